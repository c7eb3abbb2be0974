package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface for values that can be canonically encoded.
// Only String, Int, Bool, Array and Object implement it. There is no float
// and no null: both break byte-identical encodings across replicas.
type Value interface {
	irValue()
}

// String is a string value.
type String string

func (String) irValue() {}

// Int is an integer value.
type Int int64

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps string keys to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units as RFC 8785 requires.
// Go string comparison is by UTF-8 bytes, which orders supplementary-plane
// characters differently.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// RecordValue converts a move record to its canonical object form.
func RecordValue(m MoveRecord) Object {
	obj := Object{
		"index":      Int(m.Index),
		"op":         String(m.Op.String()),
		"player":     Int(m.Player),
		"elapsed_ms": Int(m.Elapsed.Milliseconds()),
	}
	if m.Source != NoLocation {
		obj["source"] = String(m.Source)
	}
	if m.Dest != NoLocation {
		obj["dest"] = String(m.Dest)
	}
	if m.Ephemeral {
		obj["ephemeral"] = Bool(true)
	}
	return obj
}

// LogValue converts an ordered record sequence to a canonical array.
func LogValue(records []MoveRecord) Array {
	arr := make(Array, len(records))
	for i, rec := range records {
		arr[i] = RecordValue(rec)
	}
	return arr
}
