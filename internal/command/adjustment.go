// internal/command/adjustment.go
package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Adjustment is one numeric change: a signed string ("+5", "-2.5")
// reads as a delta, a bare number (string or JSON number) as an
// absolute value.
type Adjustment struct {
	Delta bool
	Value float64
}

// Apply returns the adjusted value.
func (a Adjustment) Apply(current float64) float64 {
	if a.Delta {
		return current + a.Value
	}
	return a.Value
}

func (a *Adjustment) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 {
		return fmt.Errorf("empty adjustment")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("empty adjustment")
		}
		delta := s[0] == '+' || s[0] == '-'
		value, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
		if err != nil {
			return fmt.Errorf("invalid adjustment %q: %w", s, err)
		}
		a.Delta = delta
		a.Value = value
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("invalid adjustment %s: %w", trimmed, err)
	}
	a.Delta = false
	a.Value = value
	return nil
}

func (a Adjustment) MarshalJSON() ([]byte, error) {
	if a.Delta {
		return json.Marshal(fmt.Sprintf("%+g", a.Value))
	}
	return json.Marshal(a.Value)
}

// Date accepts both plain dates ("2026-03-02") and RFC 3339 timestamps
// on the wire, which is what the upstream producers actually emit.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			d.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}
