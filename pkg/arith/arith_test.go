package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"0", 0},
		{"1 + 2", 3},
		{"10 - 2 - 3", 5},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"17 / 5", 3},
		{"17 % 5", 2},
		{"-3 + 10", 7},
		{"- -3", 3},
		{"!0", 1},
		{"!7", 0},
		{"~0", -1},
		{"0x10", 16},
		{"0X1f", 31},
		{"010", 8},
		{"0", 0},
		{"1 << 4", 16},
		{"256 >> 3", 32},
		{"3 < 4", 1},
		{"4 <= 4", 1},
		{"5 < 4", 0},
		{"4 > 3", 1},
		{"4 >= 5", 0},
		{"3 == 3", 1},
		{"3 != 3", 0},
		{"6 & 3", 2},
		{"6 | 3", 7},
		{"6 ^ 3", 5},
		{"1 && 2", 1},
		{"1 && 0", 0},
		{"0 || 0", 0},
		{"0 || 9", 1},
		{"1 ? 10 : 20", 10},
		{"0 ? 10 : 20", 20},
		{"1 ? 2 ? 3 : 4 : 5", 3},
		{"1, 2, 3", 3},
		// Precedence across levels.
		{"1 | 2 ^ 3 & 4", 3},
		{"1 + 2 < 4 == 1", 1},
		{"2 << 1 + 1", 8},
	}
	for _, test := range tests {
		got, err := Eval(test.expr, MapStore{})
		if assert.NoError(t, err, "Eval(%q)", test.expr) {
			assert.Equal(t, test.want, got, "Eval(%q)", test.expr)
		}
	}
}

func TestEval_Variables(t *testing.T) {
	store := MapStore{"a": "5", "hex": "0x10", "oct": "010", "neg": "-2", "empty": ""}
	tests := []struct {
		expr string
		want int64
	}{
		{"a", 5},
		{"a + a", 10},
		{"hex", 16},
		{"oct", 8},
		{"neg", -2},
		{"empty", 0},
		{"unset", 0},
	}
	for _, test := range tests {
		got, err := Eval(test.expr, store)
		if assert.NoError(t, err, "Eval(%q)", test.expr) {
			assert.Equal(t, test.want, got, "Eval(%q)", test.expr)
		}
	}
}

func TestEval_Assignment(t *testing.T) {
	store := MapStore{"a": "5"}
	got, err := Eval("b = a + 2", store)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, "7", store["b"])

	got, err = Eval("a += 3, a *= 2", store)
	require.NoError(t, err)
	assert.Equal(t, int64(16), got)
	assert.Equal(t, "16", store["a"])

	_, err = Eval("a /= 0", store)
	assert.Error(t, err)
}

func TestEval_ShortCircuitSuppressesSideEffects(t *testing.T) {
	store := MapStore{"a": "5", "b": "0"}
	got, err := Eval("a && (b = a + 2)", store)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	assert.Equal(t, "7", store["b"])

	// The right side of a short-circuited && is parsed but not evaluated:
	// no assignment, no division error.
	store = MapStore{"b": "1"}
	got, err = Eval("0 && (b = 9)", store)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
	assert.Equal(t, "1", store["b"])

	_, err = Eval("1 || 1 / 0", store)
	assert.NoError(t, err)

	// Same for the untaken arm of ?:.
	store = MapStore{"b": "1"}
	got, err = Eval("1 ? 2 : (b = 9)", store)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
	assert.Equal(t, "1", store["b"])
}

func TestEval_Errors(t *testing.T) {
	tests := []string{
		"1 / 0",
		"1 % 0",
		"(1 + 2",
		"1 +",
		"1 @ 2",
		"1 ? 2",
		"0x",
		"@",
		"",
	}
	for _, expr := range tests {
		_, err := Eval(expr, MapStore{})
		assert.Error(t, err, "Eval(%q)", expr)
	}
	_, err := Eval("notanum + 1", MapStore{"notanum": "3x"})
	assert.Error(t, err)
}
