package models

// TimeSlot is one candidate session as local wall-clock times.
type TimeSlot struct {
	Start     string `json:"start"` // "HH:MM"
	End       string `json:"end"`   // "HH:MM"
	Available bool   `json:"available"`
}

// BusinessWindow is the effective bookable window for a day.
type BusinessWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayAvailability is the availability answer for a single local date.
type DayAvailability struct {
	Date          string          `json:"date"`
	DayOfWeek     int             `json:"dayOfWeek"`
	BusinessHours *BusinessWindow `json:"businessHours"`
	Slots         []TimeSlot      `json:"slots"`
}
