package verify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MrRacoon/pact/internal/analyze"
	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/model"
	"github.com/MrRacoon/pact/internal/prop"
	"github.com/MrRacoon/pact/internal/solver"
	"github.com/MrRacoon/pact/internal/term"
)

// runInvariants verifies every table invariant against one function's
// body. The body is translated and its variables declared exactly once;
// each invariant is then checked inside its own push/pop scope of one
// shared session, so counterexample searches never see each other's
// assertions. A failure inside one scope is recorded and the remaining
// invariants still run.
func (v *Verifier) runInvariants(ctx context.Context, fun *ast.Def, sig *checker.FunSig, tables []prop.Table, tableEnv checker.TableEnv) (fi *FunInvariants) {
	fi = &FunInvariants{Tables: map[string][]CheckResult{}}
	setFailure := func(status Status, reason string) {
		fi.Failure = &CheckResult{
			Fun:    sig.Name,
			Loc:    fun.Pos,
			Status: status,
			Reason: reason,
		}
		fi.Tables = nil
	}
	defer func() {
		if r := recover(); r != nil {
			setFailure(UnexpectedFailure, fmt.Sprint(r))
		}
	}()

	tr, err := term.Translate(sig, tableEnv, fun.Body)
	if err != nil {
		setFailure(TranslateFailed, err.Error())
		return fi
	}

	// a body that writes no invariant-bearing table has nothing to check;
	// don't spawn a solver process for it
	if !anyTouched(tables, tr) {
		return fi
	}

	s, err := solver.Open(ctx, v.Solver)
	if err != nil {
		setFailure(UnexpectedFailure, err.Error())
		return fi
	}
	defer s.Close()

	if err := model.Declare(s, tr.Env, tr.Tags); err != nil {
		setFailure(UnexpectedFailure, err.Error())
		return fi
	}
	if err := s.Assert(term.Eq(term.SymVar{Name: term.VarName(0), Ty: sig.Result}, tr.Result)); err != nil {
		setFailure(UnexpectedFailure, err.Error())
		return fi
	}

	for _, table := range tables {
		results := v.tableInvariants(s, sig, table, tr)
		if results != nil {
			fi.Tables[table.Name] = results
		}
	}
	return fi
}

// anyTouched reports whether the body writes at least one table that
// carries invariants.
func anyTouched(tables []prop.Table, tr *term.Translation) bool {
	for _, table := range tables {
		if len(table.Invariants) == 0 {
			continue
		}
		for _, w := range tr.Writes {
			if w.Table == table.Name {
				return true
			}
		}
	}
	return false
}

// tableInvariants checks one table's invariants against the translation.
// Returns nil when the body never writes the table.
func (v *Verifier) tableInvariants(s *solver.Session, sig *checker.FunSig, table prop.Table, tr *term.Translation) []CheckResult {
	touched := false
	for _, w := range tr.Writes {
		if w.Table == table.Name {
			touched = true
			break
		}
	}
	if !touched || len(table.Invariants) == 0 {
		return nil
	}

	var results []CheckResult
	for _, inv := range table.Invariants {
		results = append(results, v.oneInvariant(s, sig, table, inv, tr))
	}
	return results
}

func (v *Verifier) oneInvariant(s *solver.Session, sig *checker.FunSig, table prop.Table, inv prop.Invariant, tr *term.Translation) CheckResult {
	res := CheckResult{
		Fun:    sig.Name,
		Table:  table.Name,
		Loc:    inv.Loc,
		Source: inv.Raw,
		Goal:   prop.Validation,
	}

	p, touched, err := analyze.Invariant(table, inv, tr)
	if err != nil {
		res.Status = AnalyzeFailed
		res.Reason = err.Error()
		return res
	}
	if !touched {
		res.Status = ProvedTheorem
		return res
	}

	err = s.InScope(func() error {
		if err := s.Assert(term.Not(p)); err != nil {
			return err
		}
		verdict, reason, err := s.CheckSat()
		if err != nil {
			return err
		}
		v.Log.WithFields(logrus.Fields{
			"fun":       sig.Name,
			"table":     table.Name,
			"invariant": inv.Raw,
			"verdict":   verdict,
		}).Debug("checked invariant")
		switch verdict {
		case solver.Unsat:
			res.Status = ProvedTheorem
		case solver.Sat:
			// extract before the scope pops and the assignment vanishes
			m, err := model.Extract(s, tr.Env, tr.Tags)
			if err != nil {
				return err
			}
			res.Status = Invalid
			res.Model = m
		default:
			res.Status = Unknown
			res.Reason = reason
		}
		return nil
	})
	if err != nil {
		res.Status = UnexpectedFailure
		res.Reason = err.Error()
	}
	return res
}
