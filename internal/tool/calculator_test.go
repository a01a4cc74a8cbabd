package tool

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+3", 5},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"2 ^ 10", 1024},
		{"2 ^ 3 ^ 2", 512}, // right-associative
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"-(2 + 3)", -5},
		{"3.5 * 2", 7},
		{"  7  ", 7},
		{"2 * -3", -6},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) error: %v", tt.expr, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateRejectsDisallowedInput(t *testing.T) {
	exprs := []string{
		"",
		"2 + x",
		"__import__('os')",
		"system('ls')",
		"1e10",
		"0x10",
		"2;3",
		"len(1)",
	}

	for _, expr := range exprs {
		if _, err := Evaluate(expr); !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("Evaluate(%q) = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

func TestEvaluateMalformed(t *testing.T) {
	exprs := []string{"(2 + 3", "2 + 3)", "2 +", "* 3", "2 3"}

	for _, expr := range exprs {
		if _, err := Evaluate(expr); err == nil {
			t.Errorf("Evaluate(%q) succeeded, want error", expr)
		}
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	if _, err := Evaluate("1 / 0"); err == nil {
		t.Fatal("expected division by zero error")
	}
	if _, err := Evaluate("1 % 0"); err == nil {
		t.Fatal("expected modulo by zero error")
	}
	if _, err := Evaluate("1 / (2 - 2)"); err == nil {
		t.Fatal("expected division by zero error for computed zero")
	}
}

func TestCalculatorExecute(t *testing.T) {
	c := NewCalculator()

	if !c.Available() {
		t.Fatal("calculator should always be available")
	}

	res := c.Execute(context.Background(), "2 + 3 * 4")
	if !res.OK {
		t.Fatalf("execute failed: %s", res.Err)
	}
	if !res.Numeric || res.Value != 14 {
		t.Fatalf("got value %v (numeric=%v), want 14", res.Value, res.Numeric)
	}

	res = c.Execute(context.Background(), "__import__('os')")
	if res.OK {
		t.Fatal("expected failure result for disallowed input")
	}
	if res.Err == "" {
		t.Fatal("failure result should carry an error message")
	}
}
