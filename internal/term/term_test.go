package term

import (
	"strings"
	"testing"

	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/parser"
)

func TestSMTRendering(t *testing.T) {
	cases := []struct {
		name string
		term Term
		want string
	}{
		{"int", IntLit(42), "42"},
		{"negative int", IntLit(-7), "(- 7)"},
		{"decimal", DecLit(2.5), "2.5"},
		{"whole decimal", DecLit(3), "3.0"},
		{"negative decimal", DecLit(-1.5), "(- 1.5)"},
		{"bool", BoolLit(true), "true"},
		{"string", StrLit("hello"), `"hello"`},
		{"string quote escape", StrLit(`say "hi"`), `"say ""hi"""`},
		{"var", SymVar{Name: "v1", Ty: checker.TypeInteger}, "v1"},
		{"app", App{Sym: "+", Args: []Term{IntLit(1), SymVar{Name: "v1"}}}, "(+ 1 v1)"},
		{"nested", Not(Eq(IntLit(1), IntLit(2))), "(not (= 1 2))"},
		{"ite", Ite(BoolLit(true), IntLit(1), IntLit(2)), "(ite true 1 2)"},
		{
			"forall",
			Quantified{Var: SymVar{Name: "v3", Ty: checker.TypeInteger}, Body: BoolLit(true)},
			"(forall ((v3 Int)) true)",
		},
		{
			"exists",
			Quantified{Exists: true, Var: SymVar{Name: "v3", Ty: checker.TypeString}, Body: BoolLit(false)},
			"(exists ((v3 String)) false)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SMT(tc.term); got != tc.want {
				t.Errorf("SMT = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestConnectiveFlattening(t *testing.T) {
	if got := SMT(And()); got != "true" {
		t.Errorf("Empty conjunction = %q, want true", got)
	}
	if got := SMT(Or()); got != "false" {
		t.Errorf("Empty disjunction = %q, want false", got)
	}
	x := SymVar{Name: "v1", Ty: checker.TypeBool}
	if And(x) != Term(x) {
		t.Error("Single-term conjunction should be the term itself")
	}
}

func TestSort(t *testing.T) {
	cases := map[checker.Type]string{
		checker.TypeInteger: "Int",
		checker.TypeDecimal: "Real",
		checker.TypeString:  "String",
		checker.TypeBool:    "Bool",
		checker.TypeTime:    "Int",
		checker.TypeKeySet:  "String",
	}
	for ty, want := range cases {
		if got := Sort(ty); got != want {
			t.Errorf("Sort(%s) = %q, want %q", ty, got, want)
		}
	}
}

func translateFun(t *testing.T, source, name string) (*Translation, *checker.FunSig) {
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
	tables := checker.TableEnv{
		"accounts": {"balance": checker.TypeInteger, "owner": checker.TypeString},
	}
	tr, terr := Translate(sig, tables, d.Body)
	if terr != nil {
		t.Fatalf("Translate failed: %s", terr)
	}
	return tr, sig
}

func TestTranslateArithmetic(t *testing.T) {
	tr, _ := translateFun(t, `
(module m (defun f ((x integer)) integer (+ (* x 2) 1)))
`, "f")
	if got := SMT(tr.Result); got != "(+ (* v1 2) 1)" {
		t.Errorf("Result = %q", got)
	}
	if got := SMT(tr.Success); got != "true" {
		t.Errorf("Success = %q, want true for a body with no enforcements", got)
	}
}

func TestTranslateEnforce(t *testing.T) {
	tr, _ := translateFun(t, `
(module m (defun f ((x integer)) bool (enforce (> x 0) "positive")))
`, "f")
	if len(tr.Tags) != 1 {
		t.Fatalf("Expected 1 tag, got %d", len(tr.Tags))
	}
	if tr.Tags[0].Def == nil {
		t.Error("Enforce tag should carry its defining condition")
	}
	// success is conditioned on the enforcement outcome variable
	if got := SMT(tr.Success); !strings.Contains(got, tr.Tags[0].Name) {
		t.Errorf("Success %q does not mention enforce tag %s", got, tr.Tags[0].Name)
	}
}

func TestTranslateIfPathConditions(t *testing.T) {
	tr, _ := translateFun(t, `
(module m
  (defun f ((x integer)) bool
    (if (< x 10) (enforce (< x 5) "small") true)))
`, "f")
	// enforcement applies only on the then-path
	success := SMT(tr.Success)
	if !strings.Contains(success, "(< v1 10)") {
		t.Errorf("Success %q does not condition on the branch", success)
	}
	if !strings.HasPrefix(success, "(=>") {
		t.Errorf("Success %q should be an implication", success)
	}
}

func TestTranslateWrite(t *testing.T) {
	tr, _ := translateFun(t, `
(module m
  (defun f ((x integer) (who string)) string
    (write accounts "key" {"balance": x, "owner": who})))
`, "f")
	if len(tr.Writes) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(tr.Writes))
	}
	w := tr.Writes[0]
	if w.Table != "accounts" || len(w.Cols) != 2 {
		t.Fatalf("Unexpected write: %+v", w)
	}
	if _, ok := w.Cols["balance"]; !ok {
		t.Error("Write misses the balance column")
	}
	// column values are tagged so models can show them
	if len(tr.Tags) != 2 {
		t.Errorf("Expected 2 column tags, got %d", len(tr.Tags))
	}
}

func TestTranslateRead(t *testing.T) {
	tr, _ := translateFun(t, `
(module m (defun f ((k string)) integer (read accounts k "balance")))
`, "f")
	if len(tr.Reads) != 1 {
		t.Fatalf("Expected 1 read, got %d", len(tr.Reads))
	}
	r := tr.Reads[0]
	if r.Table != "accounts" || r.Column != "balance" {
		t.Errorf("Unexpected read: %+v", r)
	}
	// the read result is a free tag, nothing assumed about table contents
	if len(tr.Tags) != 1 || tr.Tags[0].Def != nil {
		t.Errorf("Expected one free tag for the read, got %+v", tr.Tags)
	}
	if got := SMT(tr.Result); got != r.Var.Name {
		t.Errorf("Result = %q, want the read variable %q", got, r.Var.Name)
	}
}

func TestTranslateKeyset(t *testing.T) {
	tr, _ := translateFun(t, `
(module m (defun f ((x integer)) bool (enforce-keyset "admins")))
`, "f")
	if len(tr.Keysets) != 1 {
		t.Fatalf("Expected 1 keyset enforcement, got %d", len(tr.Keysets))
	}
	if tr.Keysets[0].Literal != "admins" {
		t.Errorf("Expected literal keyset name, got %q", tr.Keysets[0].Literal)
	}
	if got := SMT(tr.Success); !strings.Contains(got, tr.Keysets[0].Var.Name) {
		t.Errorf("Success %q does not depend on the authorization outcome", got)
	}
}

func TestTranslateLetScoping(t *testing.T) {
	tr, _ := translateFun(t, `
(module m
  (defun f ((x integer)) integer
    (let ((y (+ x 1)) (z (* y 2))) z)))
`, "f")
	if got := SMT(tr.Result); got != "(* (+ v1 1) 2)" {
		t.Errorf("Result = %q", got)
	}
}

func TestTranslateIntegerDivision(t *testing.T) {
	tr, _ := translateFun(t, `
(module m (defun f ((x integer)) integer (/ x 2)))
`, "f")
	if got := SMT(tr.Result); got != "(div v1 2)" {
		t.Errorf("Result = %q, want integer division", got)
	}
}

func TestTranslateDeterminism(t *testing.T) {
	source := `
(module m
  (defun f ((x integer)) bool
    (if (< x 10) (enforce (< x 5) "small") true)))
`
	a, _ := translateFun(t, source, "f")
	b, _ := translateFun(t, source, "f")
	if SMT(a.Result) != SMT(b.Result) || SMT(a.Success) != SMT(b.Success) {
		t.Error("Translation is not deterministic")
	}
	if len(a.Tags) != len(b.Tags) {
		t.Error("Tag allocation is not deterministic")
	}
}
