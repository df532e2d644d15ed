package domain

import "testing"

func hm(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) error: %v", s, err)
	}
	return v
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b [2]string
		want bool
	}{
		{name: "partial overlap", a: [2]string{"09:00", "10:00"}, b: [2]string{"09:30", "10:30"}, want: true},
		{name: "identical", a: [2]string{"09:00", "10:00"}, b: [2]string{"09:00", "10:00"}, want: true},
		{name: "contained", a: [2]string{"08:00", "12:00"}, b: [2]string{"09:00", "10:00"}, want: true},
		{name: "same start different end", a: [2]string{"09:00", "09:15"}, b: [2]string{"09:00", "11:00"}, want: true},
		{name: "back to back", a: [2]string{"09:00", "10:00"}, b: [2]string{"10:00", "11:00"}, want: false},
		{name: "back to back reversed", a: [2]string{"10:00", "11:00"}, b: [2]string{"09:00", "10:00"}, want: false},
		{name: "disjoint", a: [2]string{"08:00", "09:00"}, b: [2]string{"13:00", "14:00"}, want: false},
		{name: "zero length inside", a: [2]string{"09:30", "09:30"}, b: [2]string{"09:00", "10:00"}, want: false},
		{name: "two zero length at same instant", a: [2]string{"09:00", "09:00"}, b: [2]string{"09:00", "09:00"}, want: false},
		{name: "until end of day", a: [2]string{"23:00", "24:00"}, b: [2]string{"23:59", "24:00"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Interval{Start: hm(t, tt.a[0]), End: hm(t, tt.a[1])}
			b := Interval{Start: hm(t, tt.b[0]), End: hm(t, tt.b[1])}
			if got := a.Overlaps(b); got != tt.want {
				t.Fatalf("%v.Overlaps(%v) = %v, want %v", a, b, got, tt.want)
			}
			if got := b.Overlaps(a); got != tt.want {
				t.Fatalf("%v.Overlaps(%v) = %v, want %v (symmetry)", b, a, got, tt.want)
			}
		})
	}
}

func TestFindConflict_ReturnsEarliestOverlap(t *testing.T) {
	existing := []ClassSession{
		{ID: 3, StartTime: hm(t, "11:00"), EndTime: hm(t, "12:00")},
		{ID: 1, StartTime: hm(t, "08:00"), EndTime: hm(t, "09:00")},
		{ID: 2, StartTime: hm(t, "09:30"), EndTime: hm(t, "11:00")},
	}

	got, ok := FindConflict(existing, Interval{Start: hm(t, "10:30"), End: hm(t, "11:30")})
	if !ok {
		t.Fatalf("expected conflict")
	}
	if got.ID != 2 {
		t.Fatalf("conflict id = %d, want 2", got.ID)
	}
	if existing[0].ID != 3 {
		t.Fatalf("FindConflict must not reorder its input")
	}
}

func TestFindConflict_NoConflict(t *testing.T) {
	existing := []ClassSession{
		{ID: 1, StartTime: hm(t, "09:00"), EndTime: hm(t, "10:00")},
		{ID: 2, StartTime: hm(t, "11:00"), EndTime: hm(t, "12:00")},
	}

	if c, ok := FindConflict(existing, Interval{Start: hm(t, "10:00"), End: hm(t, "11:00")}); ok {
		t.Fatalf("unexpected conflict with %d", c.ID)
	}
	if _, ok := FindConflict(nil, Interval{Start: hm(t, "10:00"), End: hm(t, "11:00")}); ok {
		t.Fatalf("unexpected conflict on empty room")
	}
}
