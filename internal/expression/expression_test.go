package expression

import (
	"errors"
	"testing"

	"StreamSpectra/internal/feature"
)

func TestArithmeticPrecedence(t *testing.T) {
	fm := feature.NewMap(10)
	// 2 + 3 * 4 = 14
	e := New(fm, Number(2), Add, Number(3), Mul, Number(4))
	v, err := e.Evaluate("any")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != 14.0 {
		t.Errorf("Expected 14, got %f", v)
	}
}

func TestLeftAssociativity(t *testing.T) {
	fm := feature.NewMap(10)
	// 10 - 4 - 3 = 3, not 9
	e := New(fm, Number(10), Sub, Number(4), Sub, Number(3))
	v, err := e.Evaluate("any")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != 3.0 {
		t.Errorf("Expected 3, got %f", v)
	}
}

func TestComparisonAndLogic(t *testing.T) {
	fm := feature.NewMap(10)
	cases := []struct {
		name   string
		tokens []Token
		want   float64
	}{
		{"less than true", []Token{Number(1), LessThan, Number(2)}, 1.0},
		{"less than false", []Token{Number(2), LessThan, Number(1)}, 0.0},
		{"greater than", []Token{Number(2), GreaterThan, Number(1)}, 1.0},
		{"equal", []Token{Number(2), Equal, Number(2)}, 1.0},
		{"and coerces", []Token{Number(5), And, Number(-1)}, 1.0},
		{"and false", []Token{Number(5), And, Number(0)}, 0.0},
		{"or", []Token{Number(0), Or, Number(3)}, 1.0},
		// Comparison binds tighter than logic: (1<2) && (3>4) = 0.
		{"mixed", []Token{Number(1), LessThan, Number(2), And, Number(3), GreaterThan, Number(4)}, 0.0},
	}
	for _, c := range cases {
		e := New(fm, c.tokens...)
		v, err := e.Evaluate("any")
		if err != nil {
			t.Fatalf("%s: Evaluate failed: %v", c.name, err)
		}
		if v != c.want {
			t.Errorf("%s: expected %f, got %f", c.name, c.want, v)
		}
	}
}

func TestFuncTokenReadsFeatureMap(t *testing.T) {
	fm := feature.NewMap(10)
	fm.UpdateInsert("10.0.0.1", "aveBytes", feature.SingleFeature(0.25))
	fm.UpdateInsert("10.0.0.1", "top2", feature.TopKFeature{
		Keys:        []string{"80", "443"},
		Frequencies: []float64{0.5, 0.3},
	})

	// top2[0] + top2[1] < 0.9
	e := New(fm,
		Func{Identifier: "top2", Project: feature.Frequency(0)},
		Add,
		Func{Identifier: "top2", Project: feature.Frequency(1)},
		LessThan,
		Number(0.9),
	)
	v, err := e.Evaluate("10.0.0.1")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v != 1.0 {
		t.Errorf("Expected match (0.8 < 0.9), got %f", v)
	}

	// The same expression for a key with no features fails evaluation.
	if _, err := e.Evaluate("10.0.0.99"); !errors.Is(err, ErrEvaluationFailed) {
		t.Errorf("Expected ErrEvaluationFailed for missing key, got %v", err)
	}

	// A projection hitting the wrong variant fails evaluation too.
	bad := New(fm, Func{Identifier: "aveBytes", Project: feature.Frequency(0)})
	if _, err := bad.Evaluate("10.0.0.1"); !errors.Is(err, ErrEvaluationFailed) {
		t.Errorf("Expected ErrEvaluationFailed for variant mismatch, got %v", err)
	}
}

func TestEvaluationIsPure(t *testing.T) {
	fm := feature.NewMap(10)
	fm.UpdateInsert("k", "f", feature.SingleFeature(2))
	e := New(fm, Func{Identifier: "f", Project: feature.Value}, Mul, Number(3))
	for i := 0; i < 5; i++ {
		v, err := e.Evaluate("k")
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if v != 6.0 {
			t.Fatalf("Evaluation not stable: got %f on round %d", v, i)
		}
	}
}

func TestPostfixIdempotentOnSingleToken(t *testing.T) {
	// A lone operand list is already postfix and converts to itself.
	got := toPostfix([]Token{Number(7)})
	if len(got) != 1 {
		t.Fatalf("Expected 1 token, got %d", len(got))
	}
	if got[0].(Number) != 7 {
		t.Errorf("Expected Number(7), got %v", got[0])
	}
	again := toPostfix(got)
	if len(again) != 1 || again[0].(Number) != 7 {
		t.Errorf("Conversion not idempotent: %v", again)
	}
}
