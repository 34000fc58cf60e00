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

// Verifier drives solver sessions for a module's checks. Verification is
// single-threaded: one session at a time, opened per property check or per
// function invariant set.
type Verifier struct {
	Solver solver.Options
	Log    logrus.FieldLogger
}

// New builds a verifier with the given solver options.
func New(opts solver.Options) *Verifier {
	v := &Verifier{Solver: opts, Log: opts.Logger}
	if v.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		v.Log = l
		v.Solver.Logger = l
	}
	return v
}

// runCheck verifies one located check against one function, producing
// exactly one CheckResult. Solver-level faults, including panics inside
// the session, are converted to UnexpectedFailure rather than propagated.
func (v *Verifier) runCheck(ctx context.Context, fun *ast.Def, sig *checker.FunSig, tables checker.TableEnv, lc prop.Located) (res CheckResult) {
	res = CheckResult{
		Fun:    sig.Name,
		Loc:    lc.Loc,
		Source: lc.Check.Raw,
		Goal:   lc.Check.Goal,
	}
	defer func() {
		if r := recover(); r != nil {
			res.Status = UnexpectedFailure
			res.Reason = fmt.Sprint(r)
			res.Model = nil
		}
	}()

	tr, err := term.Translate(sig, tables, fun.Body)
	if err != nil {
		res.Status = TranslateFailed
		res.Reason = err.Error()
		return res
	}
	an, err := analyze.Property(tr, lc.Check)
	if err != nil {
		res.Status = AnalyzeFailed
		res.Reason = err.Error()
		return res
	}

	s, err := solver.Open(ctx, v.Solver)
	if err != nil {
		res.Status = UnexpectedFailure
		res.Reason = err.Error()
		return res
	}
	defer s.Close()

	if err := assertCheck(s, sig, tr, an, lc.Check.Goal); err != nil {
		res.Status = UnexpectedFailure
		res.Reason = err.Error()
		return res
	}

	verdict, reason, err := s.CheckSat()
	if err != nil {
		res.Status = UnexpectedFailure
		res.Reason = err.Error()
		return res
	}
	v.Log.WithFields(logrus.Fields{
		"fun":     sig.Name,
		"check":   lc.Check.Raw,
		"verdict": verdict,
	}).Debug("checked property")

	switch lc.Check.Goal {
	case prop.Validation:
		switch verdict {
		case solver.Unsat:
			res.Status = ProvedTheorem
		case solver.Sat:
			// the assignment dies with the session, saturate now
			m, err := model.Extract(s, tr.Env, tr.Tags)
			if err != nil {
				res.Status = UnexpectedFailure
				res.Reason = err.Error()
				return res
			}
			res.Status = Invalid
			res.Model = m
		default:
			res.Status = Unknown
			res.Reason = reason
		}
	default:
		switch verdict {
		case solver.Sat:
			m, err := model.Extract(s, tr.Env, tr.Tags)
			if err != nil {
				res.Status = UnexpectedFailure
				res.Reason = err.Error()
				return res
			}
			res.Status = SatisfiedProperty
			res.Model = m
		case solver.Unsat:
			res.Status = Unsatisfiable
		default:
			res.Status = Unknown
			res.Reason = reason
		}
	}
	return res
}

// assertCheck loads one translated function and one analyzed check into a
// fresh session: declarations first, then the result binding, the keyset
// links, and finally the goal-shaped proposition. Validation asserts the
// negation and searches for a counterexample; Satisfaction asserts the
// proposition and searches for a witness.
func assertCheck(s *solver.Session, sig *checker.FunSig, tr *term.Translation, an *analyze.Analysis, goal prop.Goal) error {
	if err := model.Declare(s, tr.Env, tr.Tags); err != nil {
		return err
	}
	for _, ks := range an.Keysets {
		if err := s.Declare(ks.Var.Name, checker.TypeBool); err != nil {
			return err
		}
	}
	for _, link := range an.Links {
		if err := s.Assert(link); err != nil {
			return err
		}
	}
	resultVar := term.SymVar{Name: term.VarName(0), Ty: sig.Result}
	if err := s.Assert(term.Eq(resultVar, tr.Result)); err != nil {
		return err
	}
	if goal == prop.Validation {
		return s.Assert(term.Not(an.Prop))
	}
	return s.Assert(an.Prop)
}
