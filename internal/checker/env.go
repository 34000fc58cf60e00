package checker

import "fmt"

// VarID is a synthetic identifier for an argument, the result binding, or a
// variable introduced by a check expression.
type VarID int

// Arg is a named, semantically typed function argument.
type Arg struct {
	Name string
	Type Type
}

// Env is a bijective mapping between names and synthetic identifiers, each
// identifier carrying its semantic type. Identifier assignment is the one
// convention shared between check parsing and body translation: id 0 is the
// synthetic result binding, ids 1..n are the arguments in declaration
// order, and later ids are allocated to variables a check introduces
// itself. Both passes build their environments through NewEnv so they can
// never disagree on which identifier denotes which name.
type Env struct {
	names []string // index = VarID
	types []Type
	ids   map[string]VarID
}

// NewEnv builds the environment for one function: result first, then
// arguments in declaration order.
func NewEnv(resultType Type, args []Arg) (*Env, error) {
	e := &Env{ids: make(map[string]VarID, len(args)+1)}
	if _, err := e.Bind("result", resultType); err != nil {
		return nil, err
	}
	for _, a := range args {
		if _, err := e.Bind(a.Name, a.Type); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Bind allocates the next identifier for name. Duplicate names are an
// error; the mapping must stay bijective.
func (e *Env) Bind(name string, ty Type) (VarID, error) {
	if _, exists := e.ids[name]; exists {
		return 0, fmt.Errorf("duplicate binding %q", name)
	}
	id := VarID(len(e.names))
	e.names = append(e.names, name)
	e.types = append(e.types, ty)
	e.ids[name] = id
	return id, nil
}

// ID looks up the identifier for a name.
func (e *Env) ID(name string) (VarID, bool) {
	id, ok := e.ids[name]
	return id, ok
}

// Name returns the name bound to an identifier.
func (e *Env) Name(id VarID) string {
	if int(id) < 0 || int(id) >= len(e.names) {
		return ""
	}
	return e.names[id]
}

// TypeOf returns the semantic type of an identifier.
func (e *Env) TypeOf(id VarID) Type {
	if int(id) < 0 || int(id) >= len(e.types) {
		return TypeInteger
	}
	return e.types[id]
}

// Len returns the number of allocated identifiers.
func (e *Env) Len() int {
	return len(e.names)
}

// Clone copies the environment so a quantifier can bind fresh variables
// without leaking them into sibling expressions.
func (e *Env) Clone() *Env {
	c := &Env{
		names: append([]string(nil), e.names...),
		types: append([]Type(nil), e.types...),
		ids:   make(map[string]VarID, len(e.ids)),
	}
	for k, v := range e.ids {
		c.ids[k] = v
	}
	return c
}
