package checker

import (
	"errors"
	"strings"
	"testing"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/parser"
)

func parseFun(t *testing.T, source, name string) *ast.Def {
	t.Helper()
	mods, err := parser.Parse("test.pact", source)
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	d, ok := mods[0].Def(name)
	if !ok {
		t.Fatalf("No definition %q", name)
	}
	return d
}

func testTables() TableEnv {
	return TableEnv{
		"accounts": {"balance": TypeInteger, "owner": TypeString},
	}
}

func TestSignature(t *testing.T) {
	d := parseFun(t, `
(module m
  (defun f ((x integer) (who string)) bool true))
`, "f")
	sig, err := Signature(d)
	if err != nil {
		t.Fatalf("Signature failed: %s", err)
	}
	if sig.Name != "f" || sig.Result != TypeBool {
		t.Errorf("Unexpected signature: %+v", sig)
	}
	if len(sig.Args) != 2 || sig.Args[0].Type != TypeInteger || sig.Args[1].Type != TypeString {
		t.Errorf("Unexpected arguments: %+v", sig.Args)
	}
}

func TestSignatureNonFunction(t *testing.T) {
	d := parseFun(t, `(module m (defconst X 1))`, "X")
	sig, err := Signature(d)
	if sig != nil || err != nil {
		t.Errorf("Expected (nil, nil) for a constant, got (%v, %v)", sig, err)
	}
}

func TestSignatureUntranslatableType(t *testing.T) {
	d := parseFun(t, `(module m (defun f ((x table)) bool true))`, "f")
	_, err := Signature(d)
	if err == nil {
		t.Fatal("Expected error for type with no symbolic representation")
	}
	if !errors.Is(err, ErrNoSymbolicType) {
		t.Errorf("Expected ErrNoSymbolicType, got %v", err)
	}
}

func TestEnvAllocation(t *testing.T) {
	env, err := NewEnv(TypeBool, []Arg{
		{Name: "x", Type: TypeInteger},
		{Name: "y", Type: TypeDecimal},
	})
	if err != nil {
		t.Fatalf("NewEnv failed: %s", err)
	}

	if id, _ := env.ID("result"); id != 0 {
		t.Errorf("Expected result at id 0, got %d", id)
	}
	if id, _ := env.ID("x"); id != 1 {
		t.Errorf("Expected x at id 1, got %d", id)
	}
	if id, _ := env.ID("y"); id != 2 {
		t.Errorf("Expected y at id 2, got %d", id)
	}
	if env.TypeOf(0) != TypeBool || env.TypeOf(2) != TypeDecimal {
		t.Error("Environment types do not match declarations")
	}

	clone := env.Clone()
	if _, err := clone.Bind("z", TypeBool); err != nil {
		t.Fatalf("Bind on clone failed: %s", err)
	}
	if _, ok := env.ID("z"); ok {
		t.Error("Binding on a clone leaked into the original")
	}
}

func TestEnvDuplicateArg(t *testing.T) {
	_, err := NewEnv(TypeBool, []Arg{
		{Name: "x", Type: TypeInteger},
		{Name: "x", Type: TypeInteger},
	})
	if err == nil {
		t.Error("Expected error for duplicate argument name")
	}
}

func checkBody(t *testing.T, source, fun string) []string {
	t.Helper()
	d := parseFun(t, source, fun)
	sig, err := Signature(d)
	if err != nil {
		t.Fatalf("Signature failed: %s", err)
	}
	var msgs []string
	for _, diag := range CheckFun(d, sig, testTables()) {
		msgs = append(msgs, diag.Message)
	}
	return msgs
}

func hasError(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestCheckFunWellTyped(t *testing.T) {
	msgs := checkBody(t, `
(module m
  (defun f ((x integer)) bool
    (let ((doubled (* x 2)))
      (if (< doubled 10) (enforce (> x 0)) true))))
`, "f")
	if len(msgs) != 0 {
		t.Errorf("Expected no diagnostics, got %v", msgs)
	}
}

func TestCheckFunBranchMismatch(t *testing.T) {
	msgs := checkBody(t, `
(module m (defun f ((x integer)) integer (if (< x 0) true 1)))
`, "f")
	if !hasError(msgs, "branches disagree") {
		t.Errorf("Expected branch mismatch diagnostic, got %v", msgs)
	}
}

func TestCheckFunReturnMismatch(t *testing.T) {
	msgs := checkBody(t, `
(module m (defun f ((x integer)) bool (+ x 1)))
`, "f")
	if !hasError(msgs, "returns bool") {
		t.Errorf("Expected return type diagnostic, got %v", msgs)
	}
}

func TestCheckFunUnknownVariable(t *testing.T) {
	msgs := checkBody(t, `
(module m (defun f ((x integer)) integer (+ x missing)))
`, "f")
	if !hasError(msgs, `unknown variable "missing"`) {
		t.Errorf("Expected unknown variable diagnostic, got %v", msgs)
	}
}

func TestCheckFunPartialWrite(t *testing.T) {
	msgs := checkBody(t, `
(module m
  (defun f ((x integer)) string
    (write accounts "key" {"balance": x})))
`, "f")
	if !hasError(msgs, `must cover column "owner"`) {
		t.Errorf("Expected partial write diagnostic, got %v", msgs)
	}
}

func TestCheckFunWriteTypeMismatch(t *testing.T) {
	msgs := checkBody(t, `
(module m
  (defun f ((x integer)) string
    (write accounts "key" {"balance": x, "owner": 5})))
`, "f")
	if !hasError(msgs, `column "owner"`) {
		t.Errorf("Expected column type diagnostic, got %v", msgs)
	}
}

func TestCheckFunReadColumn(t *testing.T) {
	msgs := checkBody(t, `
(module m
  (defun f ((k string)) integer (read accounts k "missing")))
`, "f")
	if !hasError(msgs, `no column "missing"`) {
		t.Errorf("Expected missing column diagnostic, got %v", msgs)
	}
}

func TestTranslateType(t *testing.T) {
	cases := map[string]Type{
		"integer": TypeInteger,
		"decimal": TypeDecimal,
		"string":  TypeString,
		"bool":    TypeBool,
		"time":    TypeTime,
		"keyset":  TypeKeySet,
	}
	for name, want := range cases {
		got, err := TranslateType(name)
		if err != nil || got != want {
			t.Errorf("TranslateType(%q) = (%v, %v), want %v", name, got, err, want)
		}
	}
	if _, err := TranslateType("object"); !errors.Is(err, ErrNoSymbolicType) {
		t.Errorf("Expected ErrNoSymbolicType for object, got %v", err)
	}
}
