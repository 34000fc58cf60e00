package analyze

import (
	"strings"
	"testing"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/parser"
	"github.com/MrRacoon/pact/internal/prop"
	"github.com/MrRacoon/pact/internal/term"
)

func testTables() checker.TableEnv {
	return checker.TableEnv{
		"accounts": {"balance": checker.TypeInteger, "owner": checker.TypeString},
	}
}

func translate(t *testing.T, source, name string) (*term.Translation, *checker.FunSig) {
	t.Helper()
	mods, err := parser.Parse("test.pact", source)
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	d, ok := mods[0].Def(name)
	if !ok {
		t.Fatalf("No definition %q", name)
	}
	sig, err := checker.Signature(d)
	if err != nil {
		t.Fatalf("Signature failed: %s", err)
	}
	tr, terr := term.Translate(sig, testTables(), d.Body)
	if terr != nil {
		t.Fatalf("Translate failed: %s", terr)
	}
	return tr, sig
}

func parseCheck(t *testing.T, sig *checker.FunSig, src string) prop.Check {
	t.Helper()
	env, err := checker.NewEnv(sig.Result, sig.Args)
	if err != nil {
		t.Fatalf("NewEnv failed: %s", err)
	}
	n, err := parser.ParseExpr("<check>", src)
	if err != nil {
		t.Fatalf("ParseExpr failed: %s", err)
	}
	c, err := prop.ParseCheck(testTables(), env, n)
	if err != nil {
		t.Fatalf("ParseCheck failed: %s", err)
	}
	return c
}

func TestPropertySuccessAbort(t *testing.T) {
	tr, sig := translate(t, `
(module m (defun f ((x integer)) bool (enforce (> x 0) "positive")))
`, "f")

	an, err := Property(tr, parseCheck(t, sig, `(valid (success))`))
	if err != nil {
		t.Fatalf("Property failed: %s", err)
	}
	if got := term.SMT(an.Prop); got != term.SMT(tr.Success) {
		t.Errorf("success should analyze to the success condition, got %q", got)
	}

	an, err = Property(tr, parseCheck(t, sig, `(valid (abort))`))
	if err != nil {
		t.Fatalf("Property failed: %s", err)
	}
	if got := term.SMT(an.Prop); !strings.HasPrefix(got, "(not ") {
		t.Errorf("abort should analyze to the negated success condition, got %q", got)
	}
}

func TestPropertyResultReference(t *testing.T) {
	tr, sig := translate(t, `
(module m (defun f ((x integer)) integer (+ x 1)))
`, "f")
	an, err := Property(tr, parseCheck(t, sig, `(valid (> result x))`))
	if err != nil {
		t.Fatalf("Property failed: %s", err)
	}
	if got := term.SMT(an.Prop); got != "(> v0 v1)" {
		t.Errorf("Prop = %q, want shared identifier naming", got)
	}
}

func TestPropertyTableWritten(t *testing.T) {
	tr, sig := translate(t, `
(module m
  (defun f ((x integer) (who string)) string
    (if (> x 0)
        (write accounts "key" {"balance": x, "owner": who})
        "skipped")))
`, "f")
	an, err := Property(tr, parseCheck(t, sig, `(valid (table-written accounts))`))
	if err != nil {
		t.Fatalf("Property failed: %s", err)
	}
	if got := term.SMT(an.Prop); got != "(> v1 0)" {
		t.Errorf("table-written should be the write's path condition, got %q", got)
	}
}

func TestPropertyTableWrittenNoWrites(t *testing.T) {
	tr, sig := translate(t, `
(module m (defun f ((x integer)) integer (+ x 1)))
`, "f")
	an, err := Property(tr, parseCheck(t, sig, `(valid (table-written accounts))`))
	if err != nil {
		t.Fatalf("Property failed: %s", err)
	}
	if got := term.SMT(an.Prop); got != "false" {
		t.Errorf("table-written with no writes = %q, want false", got)
	}
}

func TestPropertyColumnDelta(t *testing.T) {
	tr, sig := translate(t, `
(module m
  (defun f ((x integer) (who string)) string
    (write accounts "key" {"balance": x, "owner": who})))
`, "f")
	an, err := Property(tr, parseCheck(t, sig, `(valid (>= (column-delta accounts balance) 0))`))
	if err != nil {
		t.Fatalf("Property failed: %s", err)
	}
	got := term.SMT(an.Prop)
	if !strings.Contains(got, "ite") || !strings.Contains(got, "t0") {
		t.Errorf("column-delta should sum conditional column tags, got %q", got)
	}
}

func TestPropertyAuthorizedBy(t *testing.T) {
	tr, sig := translate(t, `
(module m (defun f ((x integer)) bool (enforce-keyset "admins")))
`, "f")
	an, err := Property(tr, parseCheck(t, sig, `(valid (when (success) (authorized-by "admins")))`))
	if err != nil {
		t.Fatalf("Property failed: %s", err)
	}
	if len(an.Keysets) != 1 || an.Keysets[0].Name != "admins" {
		t.Fatalf("Expected one keyset variable for admins, got %+v", an.Keysets)
	}
	if len(an.Links) != 1 {
		t.Fatalf("Expected the enforcement site linked to the keyset variable, got %d links", len(an.Links))
	}
	link := term.SMT(an.Links[0])
	if !strings.Contains(link, tr.Keysets[0].Var.Name) || !strings.Contains(link, an.Keysets[0].Var.Name) {
		t.Errorf("Link %q does not tie the site to the keyset variable", link)
	}
}

func TestInvariantSubstitution(t *testing.T) {
	tr, _ := translate(t, `
(module m
  (defun f ((x integer) (who string)) string
    (write accounts "key" {"balance": (- x 1), "owner": who})))
`, "f")
	table := prop.Table{
		Name:   "accounts",
		Fields: map[string]checker.Type{"balance": checker.TypeInteger, "owner": checker.TypeString},
	}
	inv := parseInvariant(t, `(>= balance 0)`)

	p, touched, err := Invariant(table, inv, tr)
	if err != nil {
		t.Fatalf("Invariant failed: %s", err)
	}
	if !touched {
		t.Fatal("Expected the table to be touched")
	}
	got := term.SMT(p)
	// the invariant must range over the written tag, not the raw field name
	if strings.Contains(got, "balance") {
		t.Errorf("Invariant proposition leaks field names: %q", got)
	}
	if !strings.Contains(got, "(>= t0 0)") {
		t.Errorf("Expected substituted column tag in %q", got)
	}
}

func TestInvariantUntouchedTable(t *testing.T) {
	tr, _ := translate(t, `
(module m (defun f ((x integer)) integer (+ x 1)))
`, "f")
	table := prop.Table{
		Name:   "accounts",
		Fields: map[string]checker.Type{"balance": checker.TypeInteger},
	}
	_, touched, err := Invariant(table, parseInvariant(t, `(>= balance 0)`), tr)
	if err != nil {
		t.Fatalf("Invariant failed: %s", err)
	}
	if touched {
		t.Error("Expected untouched table to report touched=false")
	}
}

func parseInvariant(t *testing.T, src string) prop.Invariant {
	t.Helper()
	fields := []ast.Field{{Name: "balance", Type: "integer"}, {Name: "owner", Type: "string"}}
	types := map[string]checker.Type{"balance": checker.TypeInteger, "owner": checker.TypeString}
	n, err := parser.ParseExpr("<invariant>", src)
	if err != nil {
		t.Fatalf("ParseExpr failed: %s", err)
	}
	inv, perr := prop.ParseInvariant(fields, types, n)
	if perr != nil {
		t.Fatalf("ParseInvariant failed: %s", perr)
	}
	return inv
}
