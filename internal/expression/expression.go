package expression

import (
	"errors"
	"fmt"
	"sync"

	"StreamSpectra/internal/feature"
)

// ErrEvaluationFailed wraps any failure during evaluation: a feature not yet
// published, a projection applied to the wrong variant, or a malformed token
// list. Callers treat the expression as false.
var ErrEvaluationFailed = errors.New("expression evaluation failed")

// Expression evaluates an infix token list against the feature map in the
// context of a tuple key. The infix form is converted to postfix once, on
// first evaluation, by the shunting-yard algorithm. Evaluation is a pure
// function of the map contents, the key and the token list.
type Expression struct {
	featureMap *feature.Map
	infix      []Token
	postfix    []Token
	once       sync.Once
}

// New creates an expression over the given feature map from infix tokens.
func New(featureMap *feature.Map, infix ...Token) *Expression {
	return &Expression{featureMap: featureMap, infix: infix}
}

// toPostfix runs shunting-yard over the infix list. With only
// left-associative binary operators and no parentheses, an operator pops
// every stacked operator of greater or equal precedence before pushing.
// A list that is already postfix (a single operand) passes through unchanged.
func toPostfix(infix []Token) []Token {
	postfix := make([]Token, 0, len(infix))
	var ops []Op
	for _, tok := range infix {
		switch t := tok.(type) {
		case Op:
			for len(ops) > 0 && ops[len(ops)-1].precedence() >= t.precedence() {
				postfix = append(postfix, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, t)
		default:
			postfix = append(postfix, tok)
		}
	}
	for len(ops) > 0 {
		postfix = append(postfix, ops[len(ops)-1])
		ops = ops[:len(ops)-1]
	}
	return postfix
}

// Evaluate computes the expression for the given tuple key. The caller
// interprets a non-zero result as a match.
func (e *Expression) Evaluate(tupleKey string) (float64, error) {
	e.once.Do(func() {
		e.postfix = toPostfix(e.infix)
	})

	var stack []float64
	pop2 := func() (float64, float64, bool) {
		if len(stack) < 2 {
			return 0, 0, false
		}
		b := stack[len(stack)-1]
		a := stack[len(stack)-2]
		stack = stack[:len(stack)-2]
		return a, b, true
	}

	for _, tok := range e.postfix {
		switch t := tok.(type) {
		case Number:
			stack = append(stack, float64(t))
		case Func:
			v, err := e.featureMap.Apply(tupleKey, t.Identifier, t.Project)
			if err != nil {
				return 0, fmt.Errorf("%w: func %q: %v", ErrEvaluationFailed, t.Identifier, err)
			}
			stack = append(stack, v)
		case Op:
			a, b, ok := pop2()
			if !ok {
				return 0, fmt.Errorf("%w: operator %s missing operands", ErrEvaluationFailed, t)
			}
			stack = append(stack, apply(t, a, b))
		default:
			return 0, fmt.Errorf("%w: unknown token %T", ErrEvaluationFailed, tok)
		}
	}

	if len(stack) != 1 {
		return 0, fmt.Errorf("%w: %d values left on stack", ErrEvaluationFailed, len(stack))
	}
	return stack[0], nil
}

func apply(o Op, a, b float64) float64 {
	switch o {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	case Div:
		return a / b
	case LessThan:
		return boolToFloat(a < b)
	case GreaterThan:
		return boolToFloat(a > b)
	case Equal:
		return boolToFloat(a == b)
	case And:
		return boolToFloat(a != 0 && b != 0)
	case Or:
		return boolToFloat(a != 0 || b != 0)
	}
	return 0
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
