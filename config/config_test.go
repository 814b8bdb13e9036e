package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Timezone:             "America/Los_Angeles",
		LeadTimeHours:        8,
		NoticeHours:          2,
		SlotDurationHours:    2,
		SlotIncrementMinutes: 30,
		EarliestStartHour:    7,
		LatestStartHour:      18,
		PickupLocation:       "Dock 4",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero duration", func(c *Config) { c.SlotDurationHours = 0 }, true},
		{"increment not dividing an hour", func(c *Config) { c.SlotIncrementMinutes = 25 }, true},
		{"window past midnight", func(c *Config) { c.LatestStartHour = 23 }, true},
		{"inverted window", func(c *Config) { c.EarliestStartHour = 19 }, true},
		{"unknown zone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestPolicyWindow(t *testing.T) {
	c := validConfig()
	p, err := c.Policy()
	if err != nil {
		t.Fatalf("Policy(): %v", err)
	}
	if p.WindowStart() != "07:00" || p.WindowEnd() != "20:00" {
		t.Fatalf("window = %s-%s, want 07:00-20:00", p.WindowStart(), p.WindowEnd())
	}
	if p.Duration() != 2*time.Hour {
		t.Fatalf("duration = %v", p.Duration())
	}
	if p.LeadTime != 8*time.Hour || p.Notice != 2*time.Hour {
		t.Fatalf("lead/notice = %v/%v", p.LeadTime, p.Notice)
	}
}
