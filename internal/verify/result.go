// Package verify orchestrates property and invariant verification: it
// extracts tables and checks from parsed modules, drives the solver per
// check, and aggregates everything into one uniform result model.
package verify

import (
	"fmt"
	"strings"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/diagnostic"
	"github.com/MrRacoon/pact/internal/model"
	"github.com/MrRacoon/pact/internal/prop"
)

// Status classifies the outcome of one check. The first two are the only
// successes; everything else is a failure with its cause preserved.
type Status int

const (
	ProvedTheorem Status = iota
	SatisfiedProperty
	Invalid
	Unsatisfiable
	Unknown
	ParseFailed
	TypecheckFailed
	TranslateFailed
	AnalyzeFailed
	UnexpectedFailure
)

// String names the status for reports.
func (s Status) String() string {
	switch s {
	case ProvedTheorem:
		return "proved"
	case SatisfiedProperty:
		return "satisfied"
	case Invalid:
		return "invalid"
	case Unsatisfiable:
		return "unsatisfiable"
	case Unknown:
		return "unknown"
	case ParseFailed:
		return "parse failure"
	case TypecheckFailed:
		return "typecheck failure"
	case TranslateFailed:
		return "translation failure"
	case AnalyzeFailed:
		return "analysis failure"
	case UnexpectedFailure:
		return "unexpected solver failure"
	default:
		return "unknown"
	}
}

// Passed reports whether the status is a verification success.
func (s Status) Passed() bool {
	return s == ProvedTheorem || s == SatisfiedProperty
}

// CheckResult is the atomic unit of the report: one verdict for one
// property or one table invariant, always traceable to a source location.
type CheckResult struct {
	Fun    string
	Table  string // set for invariant results
	Loc    ast.Loc
	Source string
	Goal   prop.Goal
	Status Status
	Model  *model.Model // counterexample (Invalid) or witness (SatisfiedProperty)
	Reason string       // solver reason or failure detail
	Diags  []diagnostic.Diagnostic
}

// String renders the result with its location for reports.
func (r CheckResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", r.Loc, r.Status)
	if r.Source != "" {
		fmt.Fprintf(&sb, " %s", r.Source)
	}
	if r.Reason != "" {
		fmt.Fprintf(&sb, ": %s", r.Reason)
	}
	for _, d := range r.Diags {
		fmt.Fprintf(&sb, "\n  %s", d)
	}
	if r.Model != nil {
		sb.WriteString("\n" + renderModel(r.Model))
	}
	return sb.String()
}

// ParseFailure is one malformed property or invariant expression, batched
// per extraction pass so a bad expression never masks its siblings.
type ParseFailure struct {
	Loc     ast.Loc
	Context string // e.g. "invariant on table accounts"
	Err     error
}

func (p ParseFailure) String() string {
	return fmt.Sprintf("%s: cannot parse %s: %v", p.Loc, p.Context, p.Err)
}

// FailureKind classifies a module-wide verification abort.
type FailureKind int

const (
	// ModuleParseFailures: table or invariant extraction failed to parse.
	ModuleParseFailures FailureKind = iota
	// TypeTranslationFailure: an argument or result type has no symbolic
	// representation, so no environment could be built.
	TypeTranslationFailure
	// ModuleCheckFailure: a structural failure outside any single check.
	ModuleCheckFailure
	// NotAFunction: the ad-hoc entry point named something that does not
	// resolve to a function.
	NotAFunction
)

// VerificationFailure aborts a whole module (or ad-hoc) verification.
type VerificationFailure struct {
	Kind    FailureKind
	Module  string
	Loc     ast.Loc
	Parse   []ParseFailure
	Message string
}

func (f *VerificationFailure) Error() string {
	switch f.Kind {
	case ModuleParseFailures:
		lines := make([]string, 0, len(f.Parse)+1)
		lines = append(lines, fmt.Sprintf("module %s: extraction failed", f.Module))
		for _, p := range f.Parse {
			lines = append(lines, "  "+p.String())
		}
		return strings.Join(lines, "\n")
	case TypeTranslationFailure:
		return fmt.Sprintf("module %s: %s: %s", f.Module, f.Loc, f.Message)
	case NotAFunction:
		return fmt.Sprintf("module %s: %s is not a function", f.Module, f.Message)
	default:
		return fmt.Sprintf("module %s: %s", f.Module, f.Message)
	}
}

// FunInvariants is one function's invariant verdicts: either a whole-set
// failure (translation or typechecking, nothing per-invariant to report)
// or per-table result lists for every table the body writes.
type FunInvariants struct {
	Failure *CheckResult
	Tables  map[string][]CheckResult
}

// ModuleChecks is the terminal artifact of module verification: every
// attempted function appears in both maps, never a partial view.
type ModuleChecks struct {
	Module     string
	Properties map[string][]CheckResult
	Invariants map[string]*FunInvariants
}
