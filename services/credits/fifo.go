package credits

import (
	"sort"
	"time"

	"rallyrent/models"
)

// SelectFIFO orders the credits usable at now for consumption: oldest
// createdAt first, ties broken by the earlier expiry and then by id.
// Unusable credits are dropped.
func SelectFIFO(credits []models.SessionCredit, now time.Time) []models.SessionCredit {
	usable := make([]models.SessionCredit, 0, len(credits))
	for _, c := range credits {
		if c.Usable(now) {
			usable = append(usable, c)
		}
	}
	sort.SliceStable(usable, func(i, j int) bool {
		a, b := usable[i], usable[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if !a.ExpiresAt.Equal(b.ExpiresAt) {
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		return a.ID < b.ID
	})
	return usable
}
