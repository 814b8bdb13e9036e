// File: utils/constants.go
package utils

import "time"

// StoreTimeout is the ceiling applied to every repository round-trip.
const StoreTimeout = 5 * time.Second

// BusyCachePrefix is the prefix used for cached calendar busy periods.
const BusyCachePrefix = "busy:"

// Context keys set by middleware.
const (
	ContextLoggerKey = "logger"
	ContextAdminKey  = "adminSubject"
)
