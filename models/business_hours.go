package models

// BusinessHours is the configured record for one day of the week (0 = Sunday).
type BusinessHours struct {
	DayOfWeek   int    `bson:"dayOfWeek" json:"dayOfWeek"`
	Start       string `bson:"start" json:"start"` // "HH:MM"
	End         string `bson:"end" json:"end"`     // "HH:MM"
	IsAvailable bool   `bson:"isAvailable" json:"isAvailable"`
}
