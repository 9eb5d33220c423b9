package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Bounds is one side of an inequality task, one entry per task row.
// Infinite entries leave that row open on this side.
//
// JSON has no infinity, so ±Inf travel as the strings "+inf" and "-inf".
type Bounds []float64

const (
	posInf = "+inf"
	negInf = "-inf"
)

// Present reports whether this side was given at all.
func (b Bounds) Present() bool {
	return b != nil
}

// MarshalJSON writes finite entries as numbers and infinite ones as strings.
func (b Bounds) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		switch {
		case math.IsNaN(v):
			return nil, fmt.Errorf("bounds[%d]: NaN is not a bound", i)
		case math.IsInf(v, 1):
			buf.WriteString(`"` + posInf + `"`)
		case math.IsInf(v, -1):
			buf.WriteString(`"` + negInf + `"`)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("bounds[%d]: %w", i, err)
			}
			buf.Write(data)
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts numbers and the strings "+inf", "inf" and "-inf".
func (b *Bounds) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bounds: %w", err)
	}
	out := make(Bounds, len(raw))
	for i, elem := range raw {
		v, err := parseBound(elem)
		if err != nil {
			return fmt.Errorf("bounds[%d]: %w", i, err)
		}
		out[i] = v
	}
	*b = out
	return nil
}

func parseBound(elem json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(elem, &s); err == nil {
		return ParseBound(s)
	}
	var f float64
	if err := json.Unmarshal(elem, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// ParseBound converts an infinity marker to a float.
func ParseBound(s string) (float64, error) {
	switch s {
	case posInf, "inf":
		return math.Inf(1), nil
	case negInf:
		return math.Inf(-1), nil
	}
	return 0, fmt.Errorf("unknown bound marker %q", s)
}

// canonical returns the form used in content hashes.
func (b Bounds) canonical() []any {
	out := make([]any, len(b))
	for i, v := range b {
		switch {
		case math.IsInf(v, 1):
			out[i] = posInf
		case math.IsInf(v, -1):
			out[i] = negInf
		default:
			out[i] = v
		}
	}
	return out
}

// LowerBounds returns the dense lower bounds of t with open rows at -Inf.
func (t Task) LowerBounds() []float64 {
	return denseBounds(t.Lower, t.Rows(), math.Inf(-1))
}

// UpperBounds returns the dense upper bounds of t with open rows at +Inf.
func (t Task) UpperBounds() []float64 {
	return denseBounds(t.Upper, t.Rows(), math.Inf(1))
}

func denseBounds(b Bounds, m int, open float64) []float64 {
	out := make([]float64, m)
	for i := range out {
		if i < len(b) {
			out[i] = b[i]
		} else {
			out[i] = open
		}
	}
	return out
}
