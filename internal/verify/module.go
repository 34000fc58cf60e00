package verify

import (
	"context"
	"fmt"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/prop"
)

// VerifyModule verifies every function of a module: all attached
// properties and all table invariants its bodies can violate. It returns
// either a complete ModuleChecks, with one entry per attempted function,
// or a VerificationFailure naming the structural problem that made
// verification impossible.
func (v *Verifier) VerifyModule(ctx context.Context, all map[string]*ast.Module, m *ast.Module) (*ModuleChecks, *VerificationFailure) {
	tables, parseFailures := ExtractTables(all, m)
	if len(parseFailures) > 0 {
		return nil, &VerificationFailure{
			Kind:   ModuleParseFailures,
			Module: m.Name,
			Parse:  parseFailures,
		}
	}
	tableEnv := prop.BuildTableEnv(tables)

	checks := &ModuleChecks{
		Module:     m.Name,
		Properties: map[string][]CheckResult{},
		Invariants: map[string]*FunInvariants{},
	}

	for _, d := range m.Defs {
		if d.Kind == ast.DefConst {
			// constants are typechecked but produce no checks; an ill-typed
			// constant is a structural defect of the module itself
			if diags := checker.CheckConst(d); len(diags) > 0 {
				return nil, &VerificationFailure{
					Kind:    ModuleCheckFailure,
					Module:  m.Name,
					Loc:     d.Pos,
					Message: fmt.Sprintf("constant %s does not typecheck: %s", d.Name, diags[0].Message),
				}
			}
			continue
		}
		sig, err := checker.Signature(d)
		if err != nil {
			return nil, &VerificationFailure{
				Kind:    TypeTranslationFailure,
				Module:  m.Name,
				Loc:     d.Pos,
				Message: err.Error(),
			}
		}
		if sig == nil {
			// schemas and tables produce no checks
			continue
		}

		located, parseFails, err := ExtractChecks(tableEnv, d, sig)
		if err != nil {
			return nil, &VerificationFailure{
				Kind:    TypeTranslationFailure,
				Module:  m.Name,
				Loc:     d.Pos,
				Message: err.Error(),
			}
		}

		results := make([]CheckResult, 0, len(located)+len(parseFails))
		for _, pf := range parseFails {
			results = append(results, CheckResult{
				Fun:    sig.Name,
				Loc:    pf.Loc,
				Status: ParseFailed,
				Reason: pf.Err.Error(),
			})
		}

		if diags := checker.CheckFun(d, sig, tableEnv); len(diags) > 0 {
			// one failure stands in for every check; symbolic work on an
			// ill-typed body would be meaningless
			results = append(results, CheckResult{
				Fun:    sig.Name,
				Loc:    d.Pos,
				Status: TypecheckFailed,
				Diags:  diags,
			})
			checks.Properties[sig.Name] = results
			checks.Invariants[sig.Name] = &FunInvariants{
				Failure: &CheckResult{
					Fun:    sig.Name,
					Loc:    d.Pos,
					Status: TypecheckFailed,
					Diags:  diags,
				},
			}
			continue
		}

		for _, lc := range located {
			results = append(results, v.runCheck(ctx, d, sig, tableEnv, lc))
		}
		checks.Properties[sig.Name] = results
		checks.Invariants[sig.Name] = v.runInvariants(ctx, d, sig, tables, tableEnv)
	}
	return checks, nil
}

// VerifyCheck verifies one externally supplied check expression against a
// named function, bypassing metadata extraction.
func (v *Verifier) VerifyCheck(ctx context.Context, all map[string]*ast.Module, m *ast.Module, funName string, expr ast.SNode) (CheckResult, *VerificationFailure) {
	tables, parseFailures := ExtractTables(all, m)
	if len(parseFailures) > 0 {
		return CheckResult{}, &VerificationFailure{
			Kind:   ModuleParseFailures,
			Module: m.Name,
			Parse:  parseFailures,
		}
	}
	tableEnv := prop.BuildTableEnv(tables)

	ref, ok := ast.Resolve(all, m, funName)
	if !ok || ref.Def.Kind != ast.DefFun {
		return CheckResult{}, &VerificationFailure{
			Kind:    NotAFunction,
			Module:  m.Name,
			Message: funName,
		}
	}
	d := ref.Def

	sig, err := checker.Signature(d)
	if err != nil {
		return CheckResult{}, &VerificationFailure{
			Kind:    TypeTranslationFailure,
			Module:  m.Name,
			Loc:     d.Pos,
			Message: err.Error(),
		}
	}

	if diags := checker.CheckFun(d, sig, tableEnv); len(diags) > 0 {
		return CheckResult{
			Fun:    sig.Name,
			Loc:    d.Pos,
			Status: TypecheckFailed,
			Diags:  diags,
		}, nil
	}

	env, err := checker.NewEnv(sig.Result, sig.Args)
	if err != nil {
		return CheckResult{}, &VerificationFailure{
			Kind:    TypeTranslationFailure,
			Module:  m.Name,
			Loc:     d.Pos,
			Message: err.Error(),
		}
	}
	c, err := prop.ParseCheck(tableEnv, env, expr)
	if err != nil {
		return CheckResult{
			Fun:    sig.Name,
			Loc:    expr.Pos,
			Source: expr.String(),
			Status: ParseFailed,
			Reason: err.Error(),
		}, nil
	}

	return v.runCheck(ctx, d, sig, tableEnv, prop.Located{Loc: expr.Pos, Check: c}), nil
}
