package models

import "time"

// BlockedInterval is an operator-declared window when the unit is unavailable.
type BlockedInterval struct {
	ID        string    `bson:"id" json:"id"`
	Start     time.Time `bson:"start" json:"start"`
	End       time.Time `bson:"end" json:"end"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedBy string    `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Interval returns the half-open range of the block.
func (b BlockedInterval) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}
