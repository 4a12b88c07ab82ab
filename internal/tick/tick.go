// Package tick defines the execution cadences and the in-process scheduler
// that periodically advances every incomplete quest.
package tick

import "fmt"

// Cadence selects how much work an execution pass is allowed to do. Fast
// ticks run frequently and must stay cheap (no external API polling); full
// ticks run the complete checks.
type Cadence string

const (
	Fast Cadence = "fast"
	Full Cadence = "full"
)

// ParseCadence converts a wire-level cadence string.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case Fast:
		return Fast, nil
	case Full:
		return Full, nil
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}
