package id

import "github.com/google/uuid"

// New returns a random request identifier used to correlate log lines.
func New() string {
	u, err := uuid.NewRandom()
	if err != nil {
		return "req-fallback-id"
	}
	return u.String()
}
