// internal/services/draftsync/outcome.go
package draftsync

import "fmt"

// Outcome reports how a best-effort synchronization went. The primary
// operation succeeded either way; a degraded outcome means one of the
// storage tiers could not be kept in sync. Callers and tests can assert
// on the degradation reason instead of scraping logs.
type Outcome struct {
	Warnings []string
}

// Degraded reports whether any best-effort step failed.
func (o Outcome) Degraded() bool {
	return len(o.Warnings) > 0
}

func (o *Outcome) warnf(format string, args ...interface{}) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

func (o Outcome) label() string {
	if o.Degraded() {
		return "degraded"
	}
	return "ok"
}
