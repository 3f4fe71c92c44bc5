package expr

import (
	"errors"
	"math"
	"testing"

	"surveyclean/domain/core"
	"surveyclean/domain/table"
)

func exprTable() *table.Table {
	return table.New().
		MustAddColumn(table.FromFloats("income", []float64{5000, 2000, math.NaN()})).
		MustAddColumn(table.FromFloats("expenses", []float64{3000, 3500, 1000})).
		MustAddColumn(table.FromStrings("status", []string{"employed", "unemployed", "employed"})).
		MustAddColumn(table.FromBools("consent", []bool{true, false, true}))
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"single equals", "x = 1"},
		{"unterminated string", `status == "employed`},
		{"dangling operator", "income >="},
		{"missing close paren", "(income > 0"},
		{"trailing garbage", "income > 0 income"},
		{"bare null test", "isnull"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatalf("Expected parse error for %q", tc.input)
			}
			if !errors.Is(err, core.ErrExpressionSyntax) {
				t.Errorf("Expected ErrExpressionSyntax, got %v", err)
			}
		})
	}
}

func TestEval_Comparisons(t *testing.T) {
	tbl := exprTable()
	cases := []struct {
		expr string
		row  int
		want bool
	}{
		{"income > expenses", 0, true},
		{"income > expenses", 1, false},
		{"income >= 5000", 0, true},
		{"income != 5000", 1, true},
		{`status == "employed"`, 0, true},
		{`status == 'unemployed'`, 1, true},
		{"consent == true", 0, true},
		{"consent != true", 1, true},
		{"expenses < 2000", 2, true},
		{"income > -1000", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			e, err := Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			got, err := e.Eval(tbl, tc.row)
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Row %d: expected %v", tc.row, tc.want)
			}
		})
	}
}

func TestEval_BooleanConnectives(t *testing.T) {
	tbl := exprTable()
	cases := []struct {
		expr string
		row  int
		want bool
	}{
		{"income > 0 && expenses > 0", 0, true},
		{"income > 3000 && expenses > 3000", 1, false},
		{"income > 3000 || expenses > 3000", 1, true},
		{"!(income > expenses)", 1, true},
		{`income > 0 and status == "employed"`, 0, true},
		{`income < 0 or consent == true`, 0, true},
		{`not (consent == true)`, 1, true},
		{"(income > 0 || expenses > 0) && consent == true", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			e, err := Parse(tc.expr)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			got, err := e.Eval(tbl, tc.row)
			if err != nil {
				t.Fatalf("Eval failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Row %d: expected %v", tc.row, tc.want)
			}
		})
	}
}

func TestEval_NullHandling(t *testing.T) {
	tbl := exprTable()

	t.Run("comparison against missing errors", func(t *testing.T) {
		e, _ := Parse("income > expenses")
		_, err := e.Eval(tbl, 2)
		if err == nil {
			t.Fatal("Expected evaluation error on missing operand")
		}
		if !errors.Is(err, core.ErrExpressionEval) {
			t.Errorf("Expected ErrExpressionEval, got %v", err)
		}
	})

	t.Run("isnull guards the comparison", func(t *testing.T) {
		e, _ := Parse("isnull(income) || income > expenses")
		got, err := e.Eval(tbl, 2)
		if err != nil {
			t.Fatalf("Eval failed: %v", err)
		}
		if !got {
			t.Error("Expected true via the isnull short-circuit")
		}
	})

	t.Run("notnull", func(t *testing.T) {
		e, _ := Parse("notnull(income)")
		got, _ := e.Eval(tbl, 0)
		if !got {
			t.Error("Expected notnull true for observed cell")
		}
		got, _ = e.Eval(tbl, 2)
		if got {
			t.Error("Expected notnull false for missing cell")
		}
	})
}

func TestEval_TypeMismatch(t *testing.T) {
	tbl := exprTable()
	e, err := Parse(`income == "employed"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, evalErr := e.Eval(tbl, 0)
	if !errors.Is(evalErr, core.ErrExpressionEval) {
		t.Errorf("Expected ErrExpressionEval for mixed types, got %v", evalErr)
	}
}

func TestEval_UnknownColumn(t *testing.T) {
	tbl := exprTable()
	e, err := Parse("ghost > 0")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, evalErr := e.Eval(tbl, 0); evalErr == nil {
		t.Error("Expected evaluation error for unknown column")
	}
}

func TestExpr_Columns(t *testing.T) {
	e, err := Parse("income >= expenses || isnull(income)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cols := e.Columns()
	counts := map[string]int{}
	for _, c := range cols {
		counts[c]++
	}
	if counts["income"] != 2 || counts["expenses"] != 1 {
		t.Errorf("Unexpected column references: %v", cols)
	}
}

func TestExpr_String(t *testing.T) {
	src := "income > 0 && consent == true"
	e, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if e.String() != src {
		t.Errorf("Expected original source back, got %q", e.String())
	}
}
