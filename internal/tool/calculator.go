package tool

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Calculator evaluates arithmetic expressions locally. The expression is
// validated against a character whitelist before anything is parsed; input
// containing any other token is rejected outright and never evaluated.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Description() string {
	return "Perform arithmetic calculations: + - * / ^ % and parentheses."
}

func (c *Calculator) Available() bool { return true }

func (c *Calculator) Execute(_ context.Context, query string) Result {
	value, err := Evaluate(query)
	if err != nil {
		return failure(c.Name(), err.Error())
	}
	return Result{
		Tool:    c.Name(),
		OK:      true,
		Text:    fmt.Sprintf("%s = %s", strings.TrimSpace(query), formatNumber(value)),
		Value:   value,
		Numeric: true,
	}
}

// Evaluate parses and computes an arithmetic expression. Only digits,
// '+', '-', '*', '/', '(', ')', '.', '^', '%' and whitespace are accepted;
// anything else yields ErrInvalidExpression without evaluation.
func Evaluate(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	for _, r := range expr {
		if !isAllowedRune(r) {
			return 0, fmt.Errorf("%w: disallowed character %q", ErrInvalidExpression, r)
		}
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	rpn, err := toPostfix(tokens)
	if err != nil {
		return 0, err
	}
	return evalPostfix(rpn)
}

func isAllowedRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '-' || r == '*' || r == '/' || r == '(' || r == ')' ||
		r == '.' || r == '^' || r == '%' || r == ' ' || r == '\t':
		return true
	}
	return false
}

type tokKind int

const (
	tokNumber tokKind = iota
	tokOperator
	tokLeftParen
	tokRightParen
)

type token struct {
	kind  tokKind
	op    byte
	value float64
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch >= '0' && ch <= '9' || ch == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			value, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, expr[i:j])
			}
			tokens = append(tokens, token{kind: tokNumber, value: value})
			i = j
		case ch == '(':
			tokens = append(tokens, token{kind: tokLeftParen})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRightParen})
			i++
		case ch == '+' || ch == '-' || ch == '*' || ch == '/' || ch == '^' || ch == '%':
			op := ch
			if ch == '-' && expectsOperand(tokens) {
				op = 'u' // unary minus
			}
			tokens = append(tokens, token{kind: tokOperator, op: op})
			i++
		default:
			return nil, fmt.Errorf("%w: disallowed character %q", ErrInvalidExpression, rune(ch))
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	return tokens, nil
}

// expectsOperand reports whether the parser is positioned before an operand,
// which makes a following '-' unary.
func expectsOperand(tokens []token) bool {
	if len(tokens) == 0 {
		return true
	}
	last := tokens[len(tokens)-1]
	return last.kind == tokOperator || last.kind == tokLeftParen
}

func precedence(op byte) int {
	switch op {
	case '+', '-':
		return 1
	case '*', '/', '%':
		return 2
	case 'u':
		return 3
	case '^':
		return 4
	}
	return 0
}

func rightAssociative(op byte) bool {
	return op == '^' || op == 'u'
}

func toPostfix(tokens []token) ([]token, error) {
	var output []token
	var stack []token

	for _, t := range tokens {
		switch t.kind {
		case tokNumber:
			output = append(output, t)
		case tokOperator:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.kind != tokOperator {
					break
				}
				if precedence(top.op) > precedence(t.op) ||
					(precedence(top.op) == precedence(t.op) && !rightAssociative(t.op)) {
					output = append(output, top)
					stack = stack[:len(stack)-1]
					continue
				}
				break
			}
			stack = append(stack, t)
		case tokLeftParen:
			stack = append(stack, t)
		case tokRightParen:
			matched := false
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.kind == tokLeftParen {
					matched = true
					break
				}
				output = append(output, top)
			}
			if !matched {
				return nil, fmt.Errorf("%w: unbalanced parentheses", ErrInvalidExpression)
			}
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.kind == tokLeftParen {
			return nil, fmt.Errorf("%w: unbalanced parentheses", ErrInvalidExpression)
		}
		output = append(output, top)
	}
	return output, nil
}

func evalPostfix(rpn []token) (float64, error) {
	var stack []float64
	pop := func() (float64, bool) {
		if len(stack) == 0 {
			return 0, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	for _, t := range rpn {
		if t.kind == tokNumber {
			stack = append(stack, t.value)
			continue
		}
		if t.op == 'u' {
			v, ok := pop()
			if !ok {
				return 0, fmt.Errorf("%w: malformed expression", ErrInvalidExpression)
			}
			stack = append(stack, -v)
			continue
		}
		b, okB := pop()
		a, okA := pop()
		if !okA || !okB {
			return 0, fmt.Errorf("%w: malformed expression", ErrInvalidExpression)
		}
		switch t.op {
		case '+':
			stack = append(stack, a+b)
		case '-':
			stack = append(stack, a-b)
		case '*':
			stack = append(stack, a*b)
		case '/':
			if b == 0 {
				return 0, fmt.Errorf("calculator: division by zero")
			}
			stack = append(stack, a/b)
		case '%':
			if b == 0 {
				return 0, fmt.Errorf("calculator: modulo by zero")
			}
			stack = append(stack, math.Mod(a, b))
		case '^':
			stack = append(stack, math.Pow(a, b))
		}
	}

	if len(stack) != 1 {
		return 0, fmt.Errorf("%w: malformed expression", ErrInvalidExpression)
	}
	result := stack[0]
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("calculator: result is not a finite number")
	}
	return result, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
