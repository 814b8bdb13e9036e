package models

import "time"

// ProcessedEvent is the durable idempotency record for externally delivered events.
type ProcessedEvent struct {
	Key         string    `bson:"key" json:"key"`
	Kind        string    `bson:"kind" json:"kind"`
	ProcessedAt time.Time `bson:"processedAt" json:"processedAt"`
}
