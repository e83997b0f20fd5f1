package clock

import (
	"testing"
)

func TestVectorClock_Compare_EdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		vc1      VectorClock
		vc2      VectorClock
		expected CompareResult
	}{
		{
			name:     "empty clocks are equal",
			vc1:      New(),
			vc2:      New(),
			expected: Equal,
		},
		{
			name:     "empty before non-empty",
			vc1:      New(),
			vc2:      VectorClock{"a": 1},
			expected: Before,
		},
		{
			name:     "non-empty after empty",
			vc1:      VectorClock{"a": 1},
			vc2:      New(),
			expected: After,
		},
		{
			name:     "subset before superset",
			vc1:      VectorClock{"a": 1},
			vc2:      VectorClock{"a": 1, "b": 1},
			expected: Before,
		},
		{
			name:     "superset after subset",
			vc1:      VectorClock{"a": 1, "b": 1},
			vc2:      VectorClock{"a": 1},
			expected: After,
		},
		{
			name:     "concurrent: different replicas",
			vc1:      VectorClock{"a": 2},
			vc2:      VectorClock{"b": 2},
			expected: Concurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.vc1.Compare(tt.vc2)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestVectorClock_Merge_Comprehensive(t *testing.T) {
	vc1 := New()
	vc1.Set("a", 5)
	vc1.Set("b", 3)

	vc2 := New()
	vc2.Set("a", 2)
	vc2.Set("b", 7)
	vc2.Set("c", 1)

	vc1.Merge(vc2)

	if vc1.Get("a") != 5 {
		t.Errorf("Expected max(5,2)=5, got %d", vc1.Get("a"))
	}
	if vc1.Get("b") != 7 {
		t.Errorf("Expected max(3,7)=7, got %d", vc1.Get("b"))
	}
	if vc1.Get("c") != 1 {
		t.Errorf("Expected 1, got %d", vc1.Get("c"))
	}
}

func TestVectorClock_Increment_ZeroToOne(t *testing.T) {
	vc := New()
	if vc.Get("a") != 0 {
		t.Errorf("Expected 0 for a replica with no entry, got %d", vc.Get("a"))
	}

	vc.Increment("a")
	if vc.Get("a") != 1 {
		t.Errorf("Expected 1 after increment, got %d", vc.Get("a"))
	}
}

func TestVectorClock_String_Deterministic(t *testing.T) {
	vc := New()
	vc.Set("z", 3)
	vc.Set("a", 1)
	vc.Set("m", 2)

	// String should be sorted
	str := vc.String()
	expected := "{a:1, m:2, z:3}"
	if str != expected {
		t.Errorf("Expected %s, got %s", expected, str)
	}
}
