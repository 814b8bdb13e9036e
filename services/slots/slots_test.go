package slots

import (
	"testing"
	"time"

	"rallyrent/config"
	"rallyrent/models"
)

func testPolicy() config.Policy {
	return config.Policy{
		Location:          time.UTC,
		LeadTime:          8 * time.Hour,
		Notice:            2 * time.Hour,
		DurationHours:     2,
		IncrementMinutes:  30,
		EarliestStartHour: 7,
		LatestStartHour:   18,
	}
}

func TestGenerateFullDay(t *testing.T) {
	slots, err := Generate("07:00", "20:00", 2, 30)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(slots) != 24 {
		t.Fatalf("got %d slots, want 24", len(slots))
	}
	if slots[0].Start != "07:00" || slots[0].End != "09:00" {
		t.Fatalf("first slot = %+v", slots[0])
	}
	last := slots[len(slots)-1]
	if last.Start != "18:00" || last.End != "20:00" {
		t.Fatalf("last slot = %+v", last)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("slot %s generated unavailable", s.Start)
		}
	}
}

func TestGenerateEdges(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		increment  int
		want       []string
	}{
		{"window shorter than duration", "07:00", "08:30", 30, nil},
		{"exactly one session", "07:00", "09:00", 30, []string{"07:00"}},
		{"uneven increment drops the overflow", "07:00", "10:00", 45, []string{"07:00", "07:45"}},
		{"hourly", "10:00", "14:00", 60, []string{"10:00", "11:00", "12:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots, err := Generate(tc.start, tc.end, 2, tc.increment)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if len(slots) != len(tc.want) {
				t.Fatalf("got %d slots, want %d", len(slots), len(tc.want))
			}
			for i, s := range slots {
				if s.Start != tc.want[i] {
					t.Fatalf("slot %d = %s, want %s", i, s.Start, tc.want[i])
				}
			}
		})
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	if _, err := Generate("7am", "20:00", 2, 30); err == nil {
		t.Fatal("expected error for malformed start")
	}
	if _, err := Generate("07:00", "20:00", 2, 0); err == nil {
		t.Fatal("expected error for zero increment")
	}
}

func TestEffectiveWindow(t *testing.T) {
	p := testPolicy()

	start, end, ok := EffectiveWindow(nil, p)
	if !ok || start != "07:00" || end != "20:00" {
		t.Fatalf("no record: %s-%s %v", start, end, ok)
	}

	loose := &models.BusinessHours{DayOfWeek: 2, Start: "05:00", End: "23:00", IsAvailable: true}
	start, end, ok = EffectiveWindow(loose, p)
	if !ok || start != "07:00" || end != "20:00" {
		t.Fatalf("loose record should be clamped: %s-%s %v", start, end, ok)
	}

	closed := &models.BusinessHours{DayOfWeek: 0, Start: "07:00", End: "20:00", IsAvailable: false}
	if _, _, ok = EffectiveWindow(closed, p); ok {
		t.Fatal("closed day should have no window")
	}
}

func TestOnGrid(t *testing.T) {
	p := testPolicy()
	cases := map[string]bool{
		"07:00": true,
		"07:30": true,
		"18:00": true,
		"18:30": false,
		"06:30": false,
		"10:15": false,
	}
	for clock, want := range cases {
		got, err := OnGrid(clock, p)
		if err != nil {
			t.Fatalf("%s: %v", clock, err)
		}
		if got != want {
			t.Errorf("OnGrid(%s) = %v, want %v", clock, got, want)
		}
	}
}
