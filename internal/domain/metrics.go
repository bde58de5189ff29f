package domain

import "errors"

// ErrUnknownCounter is returned when incrementing a counter that does not exist.
var ErrUnknownCounter = errors.New("unknown counter")

const (
	CounterTotalUsers          = "totalUsers"
	CounterTotalTestsStarted   = "totalTestsStarted"
	CounterTotalTestsCompleted = "totalTestsCompleted"
)

// Metrics is the usage counters document.
type Metrics struct {
	TotalUsers          int64 `json:"totalUsers"`
	TotalTestsStarted   int64 `json:"totalTestsStarted"`
	TotalTestsCompleted int64 `json:"totalTestsCompleted"`
}

// Counter returns a pointer to the named counter, or nil if the name is unknown.
func (m *Metrics) Counter(name string) *int64 {
	switch name {
	case CounterTotalUsers:
		return &m.TotalUsers
	case CounterTotalTestsStarted:
		return &m.TotalTestsStarted
	case CounterTotalTestsCompleted:
		return &m.TotalTestsCompleted
	default:
		return nil
	}
}
