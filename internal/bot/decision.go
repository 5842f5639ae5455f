package bot

import (
	"time"

	"github.com/tripleee/sloshy/internal/config"
)

// isDue reports whether a room needs a thawing notice: its inactivity has
// reached the effective threshold (equality counts). A zero lastActivity
// means the room never had a qualifying message and is infinitely stale.
func isDue(now, lastActivity time.Time, threshold time.Duration, messageCount int) bool {
	if lastActivity.IsZero() {
		return true
	}
	return now.Sub(lastActivity) >= effectiveThreshold(threshold, messageCount)
}

// effectiveThreshold tightens the configured threshold for low-traffic
// rooms, which the service freezes on a shorter countdown.
func effectiveThreshold(threshold time.Duration, messageCount int) time.Duration {
	if messageCount < config.LowTrafficMessageLimit && config.LowTrafficThreshold < threshold {
		return config.LowTrafficThreshold
	}
	return threshold
}
