// Package model declares a translation's solver variables and reads
// counterexample or witness assignments back out of a satisfiable session.
package model

import (
	"fmt"
	"strings"

	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/solver"
	"github.com/MrRacoon/pact/internal/term"
)

// Binding is one assigned variable in an extracted model.
type Binding struct {
	Name  string
	Ty    checker.Type
	Value string
	What  string // human description, e.g. the argument name or tag origin
}

// Model is a concrete assignment produced by a Sat verdict: the function's
// result and arguments, plus every auxiliary tag the translation allocated.
type Model struct {
	Args []Binding
	Tags []Binding
}

// Declare introduces the environment's identifiers and the translation's
// tags in the session, asserting each defined tag equal to its defining
// term. Free tags (reads, keyset outcomes) stay unconstrained.
func Declare(s *solver.Session, env *checker.Env, tags []term.TagAlloc) error {
	for id := 0; id < env.Len(); id++ {
		vid := checker.VarID(id)
		if err := s.Declare(term.VarName(vid), env.TypeOf(vid)); err != nil {
			return err
		}
	}
	for _, t := range tags {
		if err := s.Declare(t.Name, t.Ty); err != nil {
			return err
		}
		if t.Def != nil {
			if err := s.Assert(term.Eq(term.SymVar{Name: t.Name, Ty: t.Ty}, t.Def)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Extract reads every declared variable's assignment. It must run inside
// the assertion scope that produced the Sat verdict; once the scope pops,
// the model is gone.
func Extract(s *solver.Session, env *checker.Env, tags []term.TagAlloc) (*Model, error) {
	m := &Model{}
	for id := 0; id < env.Len(); id++ {
		vid := checker.VarID(id)
		raw, err := s.Value(term.VarName(vid))
		if err != nil {
			return nil, err
		}
		ty := env.TypeOf(vid)
		m.Args = append(m.Args, Binding{
			Name:  env.Name(vid),
			Ty:    ty,
			Value: Normalize(raw, ty),
			What:  env.Name(vid),
		})
	}
	for _, t := range tags {
		raw, err := s.Value(t.Name)
		if err != nil {
			return nil, err
		}
		m.Tags = append(m.Tags, Binding{
			Name:  t.Name,
			Ty:    t.Ty,
			Value: Normalize(raw, t.Ty),
			What:  t.What,
		})
	}
	return m, nil
}

// Normalize rewrites a raw solver value into display form: negations and
// rationals are folded, string quoting is undone.
func Normalize(raw string, ty checker.Type) string {
	raw = strings.TrimSpace(raw)
	if ty == checker.TypeString || ty == checker.TypeKeySet {
		return unquote(raw)
	}
	return fold(raw)
}

// fold evaluates the small term shapes z3 uses for numeric values:
// (- x), (/ a b) and nestings of the two.
func fold(raw string) string {
	if !strings.HasPrefix(raw, "(") {
		return raw
	}
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")"))
	if rest, ok := strings.CutPrefix(inner, "- "); ok {
		return "-" + fold(strings.TrimSpace(rest))
	}
	if rest, ok := strings.CutPrefix(inner, "/ "); ok {
		parts := splitArgs(rest)
		if len(parts) == 2 {
			return fmt.Sprintf("%s/%s", fold(parts[0]), fold(parts[1]))
		}
	}
	return raw
}

// splitArgs splits top-level s-expression arguments.
func splitArgs(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ' ':
			if depth == 0 {
				if i > start {
					parts = append(parts, s[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return strings.ReplaceAll(raw[1:len(raw)-1], `""`, `"`)
	}
	return raw
}
