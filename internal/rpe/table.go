// internal/rpe/table.go
package rpe

import (
	"fmt"
	"math"
)

// LookupKind identifies which argument of a table lookup was not found.
type LookupKind int

const (
	IntensityUnknown LookupKind = iota
	EffortUnknown
	VolumeUnknown
)

func (k LookupKind) String() string {
	switch k {
	case IntensityUnknown:
		return "intensity unknown"
	case EffortUnknown:
		return "effort unknown"
	case VolumeUnknown:
		return "volume unknown"
	}
	return "unknown lookup failure"
}

// LookupError is the closed error type for conversion table lookups.
// Lookup failures are always local and non-retryable.
type LookupError struct {
	Kind  LookupKind
	Class string
	Value float64
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("rpe table %q: %s (%g)", e.Class, e.Kind, e.Value)
}

// IntensityRow maps integer effort (RPE floored toward zero) to volume
// for a single intensity percentage.
type IntensityRow struct {
	Percent int         `yaml:"percent"`
	Efforts map[int]int `yaml:"efforts"`
}

// Table is the per-exercise-class conversion between intensity, effort
// and volume. Rows keep their declaration order: reverse lookups return
// the first match in that order. Tables are built once at startup and
// never mutated afterwards.
type Table struct {
	class string
	rows  []IntensityRow
	index map[int]int // percent -> position in rows
}

// NewTable builds a table from ordered intensity rows. A duplicated
// percent keeps the first row, matching first-match-wins scan semantics.
func NewTable(class string, rows []IntensityRow) *Table {
	t := &Table{class: class, rows: rows, index: make(map[int]int, len(rows))}
	for i, row := range rows {
		if _, dup := t.index[row.Percent]; !dup {
			t.index[row.Percent] = i
		}
	}
	return t
}

// Class returns the exercise classification this table belongs to.
func (t *Table) Class() string { return t.class }

// VolumeFor resolves volume from intensity and effort. Effort is
// truncated toward zero to its integer floor before lookup. A nil
// argument makes the lookup a no-op: both results are nil, the caller
// has to supply both values before resolution can be attempted.
func (t *Table) VolumeFor(intensity *int, effort *float64) (*int, error) {
	if intensity == nil || effort == nil {
		return nil, nil
	}
	pos, ok := t.index[*intensity]
	if !ok {
		return nil, &LookupError{Kind: IntensityUnknown, Class: t.class, Value: float64(*intensity)}
	}
	key := int(math.Trunc(*effort))
	volume, ok := t.rows[pos].Efforts[key]
	if !ok {
		return nil, &LookupError{Kind: EffortUnknown, Class: t.class, Value: *effort}
	}
	return &volume, nil
}

// IntensityFor scans the rows in declaration order for one whose entry
// at the floored effort equals volume and returns its percent. The
// table is expected to be injective for a fixed effort but that is not
// enforced: the first matching row wins.
func (t *Table) IntensityFor(volume *int, effort *float64) (*int, error) {
	if volume == nil || effort == nil {
		return nil, nil
	}
	key := int(math.Trunc(*effort))
	for _, row := range t.rows {
		if v, ok := row.Efforts[key]; ok && v == *volume {
			percent := row.Percent
			return &percent, nil
		}
	}
	return nil, &LookupError{Kind: VolumeUnknown, Class: t.class, Value: float64(*volume)}
}

// EffortFor scans the intensity row for an entry equal to volume and
// returns its integer effort key. The smallest matching effort wins so
// repeated scans stay deterministic.
func (t *Table) EffortFor(volume *int, intensity *int) (*float64, error) {
	if volume == nil || intensity == nil {
		return nil, nil
	}
	pos, ok := t.index[*intensity]
	if !ok {
		return nil, &LookupError{Kind: IntensityUnknown, Class: t.class, Value: float64(*intensity)}
	}
	found := false
	best := 0
	for key, v := range t.rows[pos].Efforts {
		if v != *volume {
			continue
		}
		if !found || key < best {
			found = true
			best = key
		}
	}
	if !found {
		return nil, &LookupError{Kind: VolumeUnknown, Class: t.class, Value: float64(*volume)}
	}
	effort := float64(best)
	return &effort, nil
}
