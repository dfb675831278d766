package narrative

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Measure is a value reported by the extraction step. The reported text is
// kept so it can be echoed as-is; value is only meaningful when numeric.
type Measure struct {
	text    string
	value   float64
	numeric bool
}

func NewMeasure(value float64) *Measure {
	return &Measure{
		text:    strconv.FormatFloat(value, 'f', -1, 64),
		value:   value,
		numeric: true,
	}
}

func ParseMeasure(text string) *Measure {
	m := &Measure{text: text}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		m.value = v
		m.numeric = true
	}
	return m
}

// Float returns the numeric value. Nil and non-numeric measures report false.
func (m *Measure) Float() (float64, bool) {
	if m == nil || !m.numeric {
		return 0, false
	}
	return m.value, true
}

// Present reports a measure that upstream would treat as set: non-nil and,
// when numeric, non-zero.
func (m *Measure) Present() bool {
	if m == nil {
		return false
	}
	if m.numeric {
		return m.value != 0
	}
	return m.text != ""
}

func (m *Measure) String() string {
	if m == nil {
		return ""
	}
	return m.text
}

func (m *Measure) greater(threshold float64) bool {
	v, ok := m.Float()
	return ok && v > threshold
}

func (m *Measure) less(threshold float64) bool {
	v, ok := m.Float()
	return ok && v < threshold
}

// decimal renders the value the way a float is printed upstream: integral
// values keep a trailing ".0".
func (m *Measure) decimal() (string, bool) {
	v, ok := m.Float()
	if !ok {
		return "", false
	}
	return pythonFloat(v), true
}

// pythonFloat formats v like Python's repr of a float: shortest round-trip
// digits, ".0" on integral values, exponent form outside [1e-4, 1e16).
func pythonFloat(v float64) string {
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// decodeLiteral reads an unquoted JSON literal. Integers keep integer
// rendering and anything with a fraction or exponent renders as a float, so
// 72.50 reads back as 72.5 and 1e2 as 100.0.
func decodeLiteral(literal string) *Measure {
	m := ParseMeasure(literal)
	if !m.numeric {
		return m
	}
	if strings.ContainsAny(literal, ".eE") {
		m.text = pythonFloat(m.value)
	} else if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		m.text = strconv.FormatInt(i, 10)
	}
	return m
}

// UnmarshalJSON accepts numbers and strings. Strings are echoed as sent;
// numbers are normalised by decodeLiteral. Any other literal is kept as
// non-numeric text so one ill-typed field never fails the whole record.
func (m *Measure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = *ParseMeasure(s)
		return nil
	}
	*m = *decodeLiteral(string(data))
	return nil
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if m.numeric {
		return []byte(strconv.FormatFloat(m.value, 'f', -1, 64)), nil
	}
	return json.Marshal(m.text)
}
