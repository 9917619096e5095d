package recipe

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Scalar is a field value kept in its wire form. The recipe service is free to
// send "4", 4 or omit a field entirely, and display code decides how to show it,
// so the value passes through normalization untouched.
type Scalar json.RawMessage

// StringScalar wraps a string value.
func StringScalar(s string) Scalar {
	return Scalar(marshalNoEscape(s))
}

// NumberScalar wraps a numeric value.
func NumberScalar(f float64) Scalar {
	return Scalar(strconv.FormatFloat(f, 'f', -1, 64))
}

// Present reports whether the field was sent with a non-null value.
func (s Scalar) Present() bool {
	t := bytes.TrimSpace(s)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// String returns the text form: strings unquoted, other values as sent.
// Absent values return "".
func (s Scalar) String() string {
	if !s.Present() {
		return ""
	}
	t := bytes.TrimSpace(s)
	if t[0] == '"' {
		var v string
		if err := json.Unmarshal(t, &v); err == nil {
			return v
		}
	}
	return string(t)
}

// Float parses the value as a number. Numeric strings count.
func (s Scalar) Float() (float64, bool) {
	if !s.Present() {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s.String()), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// MarshalJSON emits the wire form, or null when absent.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.Present() {
		return []byte("null"), nil
	}
	return s, nil
}

// UnmarshalJSON stores a copy of the wire form.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	*s = append((*s)[:0], data...)
	return nil
}

// marshalNoEscape encodes v without HTML escaping so values stay byte-stable
// across repeated normalization.
func marshalNoEscape(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return []byte("null")
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// compact returns the compact form of raw JSON, or nil for empty input.
func compact(raw json.RawMessage) json.RawMessage {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, t); err != nil {
		return append(json.RawMessage(nil), t...)
	}
	return buf.Bytes()
}
