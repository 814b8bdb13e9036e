// Package slots enumerates candidate sessions for a day.
package slots

import (
	"fmt"

	"rallyrent/config"
	"rallyrent/models"
	"rallyrent/services/timezone"
	"rallyrent/utils"
)

// Generate returns one candidate per increment step whose full duration fits
// inside [businessStart, businessEnd]. Every candidate starts available.
func Generate(businessStart, businessEnd string, durationHours, incrementMinutes int) ([]models.TimeSlot, error) {
	if durationHours <= 0 || incrementMinutes <= 0 {
		return nil, utils.Validation(utils.CodeInvalidRequest,
			fmt.Sprintf("duration and increment must be positive, got %dh/%dm", durationHours, incrementMinutes))
	}
	open, err := minutesOf(businessStart)
	if err != nil {
		return nil, err
	}
	closing, err := minutesOf(businessEnd)
	if err != nil {
		return nil, err
	}

	duration := durationHours * 60
	slots := make([]models.TimeSlot, 0)
	for start := open; start+duration <= closing; start += incrementMinutes {
		slots = append(slots, models.TimeSlot{
			Start:     formatMinutes(start),
			End:       formatMinutes(start + duration),
			Available: true,
		})
	}
	return slots, nil
}

// EffectiveWindow applies the operating policy to a day's business-hours
// record. A record marking the day unavailable closes it entirely; in every
// other case the policy window wins over whatever the record says.
func EffectiveWindow(record *models.BusinessHours, policy config.Policy) (string, string, bool) {
	if record != nil && !record.IsAvailable {
		return "", "", false
	}
	return policy.WindowStart(), policy.WindowEnd(), true
}

// OnGrid reports whether clock is a start the generator would emit for the
// policy window.
func OnGrid(clock string, policy config.Policy) (bool, error) {
	m, err := minutesOf(clock)
	if err != nil {
		return false, err
	}
	earliest := policy.EarliestStartHour * 60
	latest := policy.LatestStartHour * 60
	if m < earliest || m > latest {
		return false, nil
	}
	return (m-earliest)%policy.IncrementMinutes == 0, nil
}

func minutesOf(clock string) (int, error) {
	h, m, _, err := timezone.ParseClock(clock)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
