package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array of ints", Array{Int(1), Int(2), Int(3)}, "[1,2,3]"},
		{"simple object", Object{"a": Int(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Object{"y": Int(1), "x": Int(2)},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort before U+FB01 in
	// UTF-16 but after it in UTF-8.
	obj := Object{
		"\ufb01":     Int(1),
		"\U0001F600": Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\ufb01\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by the text u2028 stays escaped.
	result, err = MarshalCanonical(String(`x\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	result, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalRejectsNil(t *testing.T) {
	_, err := MarshalCanonical(Array{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestMarshalLog(t *testing.T) {
	rec := MustMove(OpChooseRecruit, 1, "p1/reserve/0", "p1/active/0", 3, false)
	rec.Elapsed = 1500 * time.Millisecond
	start := MustMove(OpNormalStart, 0, NoLocation, NoLocation, 4, false)

	result, err := MarshalLog([]MoveRecord{rec, start})
	require.NoError(t, err)
	assert.Equal(t,
		`[{"dest":"p1/active/0","elapsed_ms":1500,"index":3,"op":"ChooseRecruit","player":1,"source":"p1/reserve/0"},`+
			`{"elapsed_ms":0,"index":4,"op":"NormalStart","player":0}]`,
		string(result))
}

func TestMarshalLogEphemeralFlag(t *testing.T) {
	rec := MustMove(OpEphemeralPick, 0, "p0/reserve/1", NoLocation, 2, true)

	result, err := MarshalLog([]MoveRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, `[{"elapsed_ms":0,"ephemeral":true,"index":2,"op":"EphemeralPick","player":0,"source":"p0/reserve/1"}]`, string(result))
}
