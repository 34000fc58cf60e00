package verify

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/parser"
	"github.com/MrRacoon/pact/internal/solver"
)

func parseModules(t *testing.T, source string) (map[string]*ast.Module, *ast.Module) {
	t.Helper()
	mods, err := parser.Parse("test.pact", source)
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	all := make(map[string]*ast.Module, len(mods))
	for _, m := range mods {
		all[m.Name] = m
	}
	return all, mods[0]
}

func solverVerifier(t *testing.T) *Verifier {
	t.Helper()
	if _, err := exec.LookPath("z3"); err != nil {
		t.Skip("z3 not installed")
	}
	return New(solver.Options{Timeout: 30 * time.Second})
}

func verifySource(t *testing.T, source string) *ModuleChecks {
	t.Helper()
	all, m := parseModules(t, source)
	mc, vf := solverVerifier(t).VerifyModule(context.Background(), all, m)
	if vf != nil {
		t.Fatalf("VerifyModule failed: %s", vf.Error())
	}
	return mc
}

func statusOf(t *testing.T, mc *ModuleChecks, fun, source string) CheckResult {
	t.Helper()
	for _, r := range mc.Properties[fun] {
		if strings.Contains(r.Source, source) {
			return r
		}
	}
	t.Fatalf("No result for %s check %q in %+v", fun, source, mc.Properties[fun])
	return CheckResult{}
}

func argValue(t *testing.T, r CheckResult, name string) int64 {
	t.Helper()
	if r.Model == nil {
		t.Fatalf("Result %s carries no model", r.Status)
	}
	for _, b := range r.Model.Args {
		if b.Name == name {
			v, err := strconv.ParseInt(b.Value, 10, 64)
			if err != nil {
				t.Fatalf("Model value for %s is not an integer: %q", name, b.Value)
			}
			return v
		}
	}
	t.Fatalf("Model has no binding for %s", name)
	return 0
}

// --- Table extraction ---

func TestExtractTablesMergesInvariantKeys(t *testing.T) {
	all, m := parseModules(t, `
(module m
  (defschema account
    (balance integer)
    (meta (invariant (>= balance 0))
          (invariants ((> balance -100) (< balance 100)))))
  (deftable accounts account))
`)
	tables, failures := ExtractTables(all, m)
	if len(failures) != 0 {
		t.Fatalf("Unexpected failures: %v", failures)
	}
	if len(tables) != 1 {
		t.Fatalf("Expected 1 table, got %d", len(tables))
	}
	if len(tables[0].Invariants) != 3 {
		t.Errorf("Expected singular and plural forms merged into 3 invariants, got %d", len(tables[0].Invariants))
	}
}

func TestExtractTablesPluralMustBeList(t *testing.T) {
	all, m := parseModules(t, `
(module m
  (defschema account (balance integer) (meta (invariants (>= balance 0))))
  (deftable accounts account))
`)
	// (>= balance 0) is a list whose items are treated as invariant
	// expressions, so the first "invariant" is the bare symbol >=
	_, failures := ExtractTables(all, m)
	if len(failures) == 0 {
		t.Fatal("Expected parse failures for misshapen plural form")
	}
}

func TestExtractTablesBatchesFailures(t *testing.T) {
	all, m := parseModules(t, `
(module m
  (defschema a (n integer) (meta (invariant (>= n))))
  (defschema b (n integer) (meta (invariant (nonsense n))))
  (deftable ta a)
  (deftable tb b))
`)
	_, failures := ExtractTables(all, m)
	if len(failures) != 2 {
		t.Fatalf("Expected both tables' failures collected, got %d: %v", len(failures), failures)
	}
}

func TestExtractTablesImportedTable(t *testing.T) {
	all, m := parseModules(t, `
(module child
  (use base)
  (defun noop ((x integer)) integer x))
(module base
  (defschema row (n integer))
  (deftable rows row))
`)
	tables, failures := ExtractTables(all, m)
	if len(failures) != 0 {
		t.Fatalf("Unexpected failures: %v", failures)
	}
	if len(tables) != 1 || tables[0].Name != "rows" {
		t.Errorf("Expected imported table rows, got %+v", tables)
	}
}

// --- Module verification (no solver needed) ---

func TestVerifyModuleAbortsOnInvariantParseFailure(t *testing.T) {
	all, m := parseModules(t, `
(module m
  (defschema account (balance integer) (meta (invariant (>= balance))))
  (deftable accounts account)
  (defun f ((x integer)) integer x))
`)
	v := New(solver.Options{})
	mc, vf := v.VerifyModule(context.Background(), all, m)
	if mc != nil || vf == nil {
		t.Fatal("Expected module-level abort")
	}
	if vf.Kind != ModuleParseFailures || len(vf.Parse) == 0 {
		t.Errorf("Expected ModuleParseFailures with a batch, got %+v", vf)
	}
}

func TestVerifyModuleTypeTranslationFailure(t *testing.T) {
	all, m := parseModules(t, `
(module m (defun f ((x object)) bool true))
`)
	v := New(solver.Options{})
	mc, vf := v.VerifyModule(context.Background(), all, m)
	if mc != nil || vf == nil || vf.Kind != TypeTranslationFailure {
		t.Fatalf("Expected TypeTranslationFailure, got (%v, %+v)", mc, vf)
	}
}

func TestVerifyModuleIllTypedConstant(t *testing.T) {
	all, m := parseModules(t, `
(module m
  (defconst bad (+ 1 true))
  (defun f ((x integer)) integer x))
`)
	v := New(solver.Options{})
	mc, vf := v.VerifyModule(context.Background(), all, m)
	if mc != nil || vf == nil || vf.Kind != ModuleCheckFailure {
		t.Fatalf("Expected ModuleCheckFailure, got (%v, %+v)", mc, vf)
	}
	if !strings.Contains(vf.Error(), "bad") {
		t.Errorf("Expected the constant name in the failure, got %q", vf.Error())
	}
}

func TestVerifyModuleUntouchedTablesNeedNoSolver(t *testing.T) {
	// the configured solver binary does not exist, so any attempt to start
	// a session would surface as an unexpected failure
	all, m := parseModules(t, `
(module m
  (defschema account (balance integer) (meta (invariant (>= balance 0))))
  (deftable accounts account)
  (defconst limit 100)
  (defun pure ((x integer)) integer (+ x 1)))
`)
	v := New(solver.Options{Binary: "/nonexistent/solver"})
	mc, vf := v.VerifyModule(context.Background(), all, m)
	if vf != nil {
		t.Fatalf("VerifyModule failed: %s", vf.Error())
	}
	fi := mc.Invariants["pure"]
	if fi == nil || fi.Failure != nil {
		t.Fatalf("Expected a clean empty invariant set, got %+v", fi)
	}
	if len(fi.Tables) != 0 {
		t.Errorf("Expected no table entries for an untouched table, got %+v", fi.Tables)
	}
}

func TestVerifyModuleTypecheckDegradation(t *testing.T) {
	all, m := parseModules(t, `
(module m
  (defun broken ((x integer)) bool
    (meta (properties ((valid (success)) (valid (> x 0)))))
    (+ x true)))
`)
	v := New(solver.Options{})
	mc, vf := v.VerifyModule(context.Background(), all, m)
	if vf != nil {
		t.Fatalf("VerifyModule failed: %s", vf.Error())
	}
	results := mc.Properties["broken"]
	if len(results) != 1 || results[0].Status != TypecheckFailed {
		t.Fatalf("Expected both checks degraded to one typecheck failure, got %+v", results)
	}
	if len(results[0].Diags) == 0 {
		t.Error("Expected typecheck diagnostics to be carried")
	}
	fi := mc.Invariants["broken"]
	if fi == nil || fi.Failure == nil || fi.Failure.Status != TypecheckFailed {
		t.Errorf("Expected invariant set degraded to a typecheck failure, got %+v", fi)
	}
}

func TestVerifyModuleParseFailureContainment(t *testing.T) {
	// scenario: one malformed property must not block siblings or other
	// functions
	mc := verifySource(t, `
(module m
  (defun a ((x integer)) bool
    (meta (properties ((valid (not (> x 0) (> x 1))) (valid (success)))))
    true)
  (defun b ((x integer)) bool
    (meta (property (valid (success))))
    true))
`)
	aResults := mc.Properties["a"]
	if len(aResults) != 2 {
		t.Fatalf("Expected 2 results for a, got %+v", aResults)
	}
	var sawParse, sawProved bool
	for _, r := range aResults {
		switch r.Status {
		case ParseFailed:
			sawParse = true
		case ProvedTheorem:
			sawProved = true
		}
	}
	if !sawParse || !sawProved {
		t.Errorf("Expected one parse failure and one proof on a, got %+v", aResults)
	}
	if r := statusOf(t, mc, "b", "success"); r.Status != ProvedTheorem {
		t.Errorf("Expected b unaffected, got %s", r.Status)
	}
}

// --- End-to-end solver scenarios ---

func TestVerifyAlwaysSucceeds(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defun test ((x integer)) bool
    (meta (property (valid (success))))
    (if (< x 10) true false)))
`)
	if r := statusOf(t, mc, "test", "success"); r.Status != ProvedTheorem {
		t.Errorf("Expected proved, got %s (%s)", r.Status, r.Reason)
	}
}

func TestVerifyAlwaysAborts(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defun test () bool
    (meta (properties ((satisfiable (abort))
                       (valid (abort))
                       (satisfiable (success)))))
    (enforce false "cannot pass")))
`)
	sat := statusOf(t, mc, "test", "(satisfiable (abort))")
	if sat.Status != SatisfiedProperty || sat.Model == nil {
		t.Errorf("Expected satisfied with model, got %s", sat.Status)
	}
	if r := statusOf(t, mc, "test", "(valid (abort))"); r.Status != ProvedTheorem {
		t.Errorf("Expected abort proved, got %s (%s)", r.Status, r.Reason)
	}
	if r := statusOf(t, mc, "test", "(satisfiable (success))"); r.Status != Unsatisfiable {
		t.Errorf("Expected success unsatisfiable, got %s", r.Status)
	}
}

func TestVerifyConditionalAbort(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defun test ((x integer)) bool
    (meta (properties ((satisfiable (abort)) (valid (abort)))))
    (if (< x 10) (enforce (< x 5) "small") true)))
`)
	sat := statusOf(t, mc, "test", "(satisfiable (abort))")
	if sat.Status != SatisfiedProperty {
		t.Fatalf("Expected satisfied, got %s (%s)", sat.Status, sat.Reason)
	}
	if x := argValue(t, sat, "x"); x < 5 || x >= 10 {
		t.Errorf("Witness x = %d, want a value in [5,10)", x)
	}

	inv := statusOf(t, mc, "test", "(valid (abort))")
	if inv.Status != Invalid {
		t.Fatalf("Expected invalid, got %s (%s)", inv.Status, inv.Reason)
	}
	// any input that does not abort refutes the claim
	if x := argValue(t, inv, "x"); x >= 5 && x < 10 {
		t.Errorf("Counterexample x = %d, want a non-aborting input", x)
	}
}

func TestVerifyGoalDuality(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defun test ((x integer)) bool
    (meta (properties ((valid (>= (abs x) 0))
                       (satisfiable (not (>= (abs x) 0)))
                       (valid (> x 0))
                       (satisfiable (not (> x 0))))))
    true))
`)
	if r := statusOf(t, mc, "test", "(valid (>= (abs x) 0))"); r.Status != ProvedTheorem {
		t.Errorf("Expected tautology proved, got %s", r.Status)
	}
	if r := statusOf(t, mc, "test", "(satisfiable (not (>= (abs x) 0)))"); r.Status != Unsatisfiable {
		t.Errorf("Expected negated tautology unsatisfiable, got %s", r.Status)
	}
	if r := statusOf(t, mc, "test", "(valid (> x 0))"); r.Status != Invalid {
		t.Errorf("Expected contingent property invalid, got %s", r.Status)
	}
	if r := statusOf(t, mc, "test", "(satisfiable (not (> x 0)))"); r.Status != SatisfiedProperty {
		t.Errorf("Expected negated contingent property satisfied, got %s", r.Status)
	}
}

func TestVerifyInvariantViolation(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defschema account
    (balance integer)
    (meta (invariant (>= balance 0))))
  (deftable accounts account)
  (defun bad-write ((who string)) string
    (write accounts who {"balance": -1})))
`)
	fi := mc.Invariants["bad-write"]
	if fi == nil || fi.Failure != nil {
		t.Fatalf("Expected per-table invariant results, got %+v", fi)
	}
	results := fi.Tables["accounts"]
	if len(results) != 1 {
		t.Fatalf("Expected 1 invariant result, got %+v", fi.Tables)
	}
	if results[0].Status != Invalid || results[0].Model == nil {
		t.Errorf("Expected invalid with counterexample, got %s", results[0].Status)
	}
}

func TestVerifyInvariantPreserved(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defschema account
    (balance integer)
    (meta (invariant (>= balance 0))))
  (deftable accounts account)
  (defun deposit ((who string) (amount integer)) string
    (enforce (> amount 0) "positive")
    (write accounts who {"balance": amount})))
`)
	fi := mc.Invariants["deposit"]
	if fi == nil || fi.Failure != nil {
		t.Fatalf("Expected per-table invariant results, got %+v", fi)
	}
	results := fi.Tables["accounts"]
	if len(results) != 1 || results[0].Status != ProvedTheorem {
		t.Fatalf("Expected invariant proved under the enforce guard, got %+v", results)
	}
}

func TestVerifyInvariantGuardedWrite(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defschema account
    (balance integer)
    (meta (invariants ((>= balance 0) (< balance 1000)))))
  (deftable accounts account)
  (defun set-balance ((who string) (amount integer)) string
    (if (>= amount 0)
        (write accounts who {"balance": amount})
        "rejected")))
`)
	fi := mc.Invariants["set-balance"]
	if fi == nil || fi.Failure != nil {
		t.Fatalf("Expected per-table invariant results, got %+v", fi)
	}
	results := fi.Tables["accounts"]
	if len(results) != 2 {
		t.Fatalf("Expected 2 invariant results in one session, got %+v", results)
	}
	// the guard makes the first invariant hold; the second is violated for
	// amount >= 1000 and each verdict must be isolated from the other
	if results[0].Status != ProvedTheorem {
		t.Errorf("Expected non-negative invariant proved, got %s (%s)", results[0].Status, results[0].Reason)
	}
	if results[1].Status != Invalid {
		t.Errorf("Expected upper-bound invariant invalid, got %s", results[1].Status)
	}
}

func TestVerifyInvariantUntouchedTableSkipped(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defschema account (balance integer) (meta (invariant (>= balance 0))))
  (deftable accounts account)
  (defun pure ((x integer)) integer (+ x 1)))
`)
	fi := mc.Invariants["pure"]
	if fi == nil || fi.Failure != nil {
		t.Fatalf("Expected invariant results, got %+v", fi)
	}
	if len(fi.Tables) != 0 {
		t.Errorf("Expected no entries for untouched tables, got %+v", fi.Tables)
	}
}

func TestVerifyAuthorizedBy(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defun admin-only ((x integer)) bool
    (meta (property (valid (when (success) (authorized-by "admins")))))
    (enforce-keyset "admins")))
`)
	if r := statusOf(t, mc, "admin-only", "authorized-by"); r.Status != ProvedTheorem {
		t.Errorf("Expected authorization property proved, got %s (%s)", r.Status, r.Reason)
	}
}

func TestVerifyResultProperty(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defun clamp ((x integer)) integer
    (meta (property (valid (>= result 0))))
    (if (< x 0) 0 x)))
`)
	if r := statusOf(t, mc, "clamp", "result"); r.Status != ProvedTheorem {
		t.Errorf("Expected result property proved, got %s (%s)", r.Status, r.Reason)
	}
}

func TestVerifyColumnDelta(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defschema account (balance integer))
  (deftable accounts account)
  (defun credit ((who string) (amount integer)) string
    (meta (property (valid (when (success) (>= (column-delta accounts balance) 0)))))
    (enforce (> amount 0) "positive")
    (write accounts who {"balance": amount})))
`)
	if r := statusOf(t, mc, "credit", "column-delta"); r.Status != ProvedTheorem {
		t.Errorf("Expected column-delta property proved, got %s (%s)", r.Status, r.Reason)
	}
}

func TestVerifyAggregateCompleteness(t *testing.T) {
	mc := verifySource(t, `
(module m
  (defschema account (balance integer) (meta (invariant (>= balance 0))))
  (deftable accounts account)
  (defun a ((x integer)) bool
    (meta (properties ((valid (success)) (satisfiable (success)))))
    true)
  (defun b ((who string)) string
    (write accounts who {"balance": 1})))
`)
	if len(mc.Properties["a"]) != 2 {
		t.Errorf("Expected one result per parsed property on a, got %d", len(mc.Properties["a"]))
	}
	if _, ok := mc.Properties["b"]; !ok {
		t.Error("Expected an entry for b even with no properties")
	}
	fi := mc.Invariants["b"]
	if fi == nil || len(fi.Tables["accounts"]) != 1 {
		t.Errorf("Expected one invariant result for the touched table, got %+v", fi)
	}
}

// --- Ad-hoc checks ---

func TestVerifyCheckAdHoc(t *testing.T) {
	all, m := parseModules(t, `
(module m (defun double ((x integer)) integer (* x 2)))
`)
	v := solverVerifier(t)

	expr, err := parser.ParseExpr("<check>", `(valid (= (- result x) x))`)
	if err != nil {
		t.Fatalf("ParseExpr failed: %s", err)
	}
	res, vf := v.VerifyCheck(context.Background(), all, m, "double", expr)
	if vf != nil {
		t.Fatalf("VerifyCheck failed: %s", vf.Error())
	}
	if res.Status != ProvedTheorem {
		t.Errorf("Expected proved, got %s (%s)", res.Status, res.Reason)
	}
}

func TestVerifyCheckNotAFunction(t *testing.T) {
	all, m := parseModules(t, `
(module m (defconst X 1))
`)
	v := New(solver.Options{})
	expr, err := parser.ParseExpr("<check>", `(valid (success))`)
	if err != nil {
		t.Fatalf("ParseExpr failed: %s", err)
	}
	_, vf := v.VerifyCheck(context.Background(), all, m, "X", expr)
	if vf == nil || vf.Kind != NotAFunction {
		t.Fatalf("Expected NotAFunction, got %+v", vf)
	}
	_, vf = v.VerifyCheck(context.Background(), all, m, "missing", expr)
	if vf == nil || vf.Kind != NotAFunction {
		t.Fatalf("Expected NotAFunction for unknown name, got %+v", vf)
	}
}
