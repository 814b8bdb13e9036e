package models

import "time"

// SlotClaim reserves one increment-sized cell of the timeline for a booking.
// The unique index on Cell is what rejects overlapping bookings atomically.
type SlotClaim struct {
	Cell      time.Time `bson:"cell" json:"cell"`
	BookingID string    `bson:"bookingId" json:"bookingId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Cells lists the step-aligned cells that cover iv. Two intervals overlap
// only if they share at least one cell.
func Cells(iv Interval, step time.Duration) []time.Time {
	if step <= 0 || !iv.End.After(iv.Start) {
		return nil
	}
	var cells []time.Time
	for c := iv.Start.UTC().Truncate(step); c.Before(iv.End); c = c.Add(step) {
		cells = append(cells, c)
	}
	return cells
}
