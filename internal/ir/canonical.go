package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// CRITICAL: This is the ONLY serialization used for digests. Two replicas
// agree on a log exactly when their canonical encodings are byte-identical.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. No whitespace
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalLog is MarshalCanonical over a record sequence.
func MarshalLog(records []MoveRecord) ([]byte, error) {
	return MarshalCanonical(LogValue(records))
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case String:
		return writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes an NFC normalized JSON string.
// Only control characters, backslash and quote are escaped; in particular
// <, >, & and U+2028/U+2029 are written literally.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. An escape preceded by an odd
// run of backslashes is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	backslashes := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && backslashes%2 == 0 && i+5 < len(data) &&
			string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			backslashes = 0
			continue
		}
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		out = append(out, c)
	}
	return out
}
