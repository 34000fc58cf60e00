package verify

import (
	"fmt"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/prop"
)

// ExtractChecks parses every property attached to one function. Parsing
// is independent per property: failures are batched alongside the checks
// that did parse, so one malformed expression never masks its siblings.
// The error return is reserved for environment construction, which is
// fatal to the function as a whole.
func ExtractChecks(tables checker.TableEnv, d *ast.Def, sig *checker.FunSig) ([]prop.Located, []ParseFailure, error) {
	env, err := checker.NewEnv(sig.Result, sig.Args)
	if err != nil {
		return nil, nil, err
	}

	var nodes []ast.SNode
	if n, ok := d.Meta.Get("property"); ok {
		nodes = append(nodes, n)
	}
	if n, ok := d.Meta.Get("properties"); ok {
		if n.Kind != ast.SList {
			return nil, []ParseFailure{{
				Loc:     n.Pos,
				Context: fmt.Sprintf("properties on %q", d.Name),
				Err:     fmt.Errorf("properties must be a list of expressions"),
			}}, nil
		}
		nodes = append(nodes, n.Items...)
	}

	var checks []prop.Located
	var failures []ParseFailure
	for _, n := range nodes {
		// each property gets a fresh environment so quantifier bindings in
		// one check cannot shift identifier allocation in the next
		c, err := prop.ParseCheck(tables, env.Clone(), n)
		if err != nil {
			failures = append(failures, ParseFailure{
				Loc:     n.Pos,
				Context: fmt.Sprintf("property on %q", d.Name),
				Err:     err,
			})
			continue
		}
		checks = append(checks, prop.Located{Loc: n.Pos, Check: c})
	}
	return checks, failures, nil
}
