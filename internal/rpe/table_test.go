package rpe

import (
	"errors"
	"testing"
)

func testTable() *Table {
	return NewTable("barbell_compound", []IntensityRow{
		{Percent: 85, Efforts: map[int]int{8: 3, 9: 4, 10: 5}},
		{Percent: 80, Efforts: map[int]int{8: 5, 9: 7, 10: 8}},
		{Percent: 75, Efforts: map[int]int{8: 7, 9: 8, 10: 9}},
	})
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestTable_VolumeFor(t *testing.T) {
	table := testTable()

	t.Run("exact lookup", func(t *testing.T) {
		v, err := table.VolumeFor(intPtr(80), floatPtr(8))
		if err != nil {
			t.Fatalf("VolumeFor() error = %v", err)
		}
		if v == nil || *v != 5 {
			t.Errorf("VolumeFor(80, 8) = %v, want 5", v)
		}
	})

	t.Run("effort truncated toward zero", func(t *testing.T) {
		v, err := table.VolumeFor(intPtr(80), floatPtr(8.9))
		if err != nil {
			t.Fatalf("VolumeFor() error = %v", err)
		}
		if v == nil || *v != 5 {
			t.Errorf("VolumeFor(80, 8.9) = %v, want 5 (floored to 8)", v)
		}
	})

	t.Run("unknown intensity", func(t *testing.T) {
		_, err := table.VolumeFor(intPtr(77), floatPtr(8))
		var lookupErr *LookupError
		if !errors.As(err, &lookupErr) || lookupErr.Kind != IntensityUnknown {
			t.Errorf("VolumeFor(77, 8) error = %v, want IntensityUnknown", err)
		}
	})

	t.Run("unknown effort", func(t *testing.T) {
		_, err := table.VolumeFor(intPtr(80), floatPtr(6))
		var lookupErr *LookupError
		if !errors.As(err, &lookupErr) || lookupErr.Kind != EffortUnknown {
			t.Errorf("VolumeFor(80, 6) error = %v, want EffortUnknown", err)
		}
	})

	t.Run("absent argument is a no-op", func(t *testing.T) {
		v, err := table.VolumeFor(nil, floatPtr(8))
		if v != nil || err != nil {
			t.Errorf("VolumeFor(nil, 8) = (%v, %v), want (nil, nil)", v, err)
		}
		v, err = table.VolumeFor(intPtr(80), nil)
		if v != nil || err != nil {
			t.Errorf("VolumeFor(80, nil) = (%v, %v), want (nil, nil)", v, err)
		}
	})
}

func TestTable_IntensityFor(t *testing.T) {
	table := testTable()

	t.Run("first matching row wins", func(t *testing.T) {
		i, err := table.IntensityFor(intPtr(7), floatPtr(9))
		if err != nil {
			t.Fatalf("IntensityFor() error = %v", err)
		}
		if i == nil || *i != 80 {
			t.Errorf("IntensityFor(7, 9) = %v, want 80", i)
		}
	})

	t.Run("no row carries the volume", func(t *testing.T) {
		_, err := table.IntensityFor(intPtr(20), floatPtr(8))
		var lookupErr *LookupError
		if !errors.As(err, &lookupErr) || lookupErr.Kind != VolumeUnknown {
			t.Errorf("IntensityFor(20, 8) error = %v, want VolumeUnknown", err)
		}
	})

	t.Run("absent argument is a no-op", func(t *testing.T) {
		i, err := table.IntensityFor(nil, floatPtr(8))
		if i != nil || err != nil {
			t.Errorf("IntensityFor(nil, 8) = (%v, %v), want (nil, nil)", i, err)
		}
	})
}

func TestTable_EffortFor(t *testing.T) {
	table := testTable()

	t.Run("finds effort key for volume", func(t *testing.T) {
		e, err := table.EffortFor(intPtr(5), intPtr(80))
		if err != nil {
			t.Fatalf("EffortFor() error = %v", err)
		}
		if e == nil || *e != 8 {
			t.Errorf("EffortFor(5, 80) = %v, want 8", e)
		}
	})

	t.Run("unknown intensity", func(t *testing.T) {
		_, err := table.EffortFor(intPtr(5), intPtr(50))
		var lookupErr *LookupError
		if !errors.As(err, &lookupErr) || lookupErr.Kind != IntensityUnknown {
			t.Errorf("EffortFor(5, 50) error = %v, want IntensityUnknown", err)
		}
	})

	t.Run("volume not in row", func(t *testing.T) {
		_, err := table.EffortFor(intPtr(12), intPtr(80))
		var lookupErr *LookupError
		if !errors.As(err, &lookupErr) || lookupErr.Kind != VolumeUnknown {
			t.Errorf("EffortFor(12, 80) error = %v, want VolumeUnknown", err)
		}
	})
}

// The reverse lookups must be true left inverses of VolumeFor for
// every (intensity, effort) pair present in the table.
func TestTable_InverseProperties(t *testing.T) {
	table := testTable()
	for _, row := range []struct {
		percent int
		effort  float64
	}{
		{85, 8}, {85, 9}, {85, 10},
		{80, 8}, {80, 9}, {80, 10},
		{75, 8}, {75, 9}, {75, 10},
	} {
		v, err := table.VolumeFor(intPtr(row.percent), floatPtr(row.effort))
		if err != nil || v == nil {
			t.Fatalf("VolumeFor(%d, %g) = (%v, %v)", row.percent, row.effort, v, err)
		}
		i, err := table.IntensityFor(v, floatPtr(row.effort))
		if err != nil || i == nil {
			t.Fatalf("IntensityFor(%d, %g) = (%v, %v)", *v, row.effort, i, err)
		}
		// IntensityFor must land on a row producing the same volume.
		back, err := table.VolumeFor(i, floatPtr(row.effort))
		if err != nil || back == nil || *back != *v {
			t.Errorf("VolumeFor(IntensityFor(%d, %g)) = %v, want %d", *v, row.effort, back, *v)
		}
		e, err := table.EffortFor(v, intPtr(row.percent))
		if err != nil || e == nil {
			t.Fatalf("EffortFor(%d, %d) = (%v, %v)", *v, row.percent, e, err)
		}
		back, err = table.VolumeFor(intPtr(row.percent), e)
		if err != nil || back == nil || *back != *v {
			t.Errorf("VolumeFor(%d, EffortFor(%d)) = %v, want %d", row.percent, *v, back, *v)
		}
	}
}

func TestCatalog(t *testing.T) {
	t.Run("falls back to default class", func(t *testing.T) {
		catalog := NewCatalog(defaultTables()...)
		table, ok := catalog.Table("dumbbell_isolation")
		if !ok || table.Class() != DefaultClass {
			t.Errorf("Table(dumbbell_isolation) = (%v, %v), want default class fallback", table, ok)
		}
	})

	t.Run("built-in chart covers the canonical row", func(t *testing.T) {
		catalog, err := LoadCatalog("")
		if err != nil {
			t.Fatalf("LoadCatalog() error = %v", err)
		}
		table, _ := catalog.Table(DefaultClass)
		v, err := table.VolumeFor(intPtr(80), floatPtr(8))
		if err != nil || v == nil || *v != 5 {
			t.Errorf("VolumeFor(80, 8) = (%v, %v), want 5", v, err)
		}
	})
}
