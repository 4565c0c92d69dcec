package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	matchesApproved     int
	matchesCancelled    int
	challengesIssued    int
	challengesAccepted  int
	sweepRuns           int
	transitionDurations []float64
	notifSent           int
	notifFailed         int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		transitionDurations: make([]float64, 0),
	}
}

func (m *Mock) IncMatchesApproved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesApproved++
}

func (m *Mock) IncMatchesCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCancelled++
}

func (m *Mock) IncChallengesIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challengesIssued++
}

func (m *Mock) IncChallengesAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challengesAccepted++
}

func (m *Mock) IncSweepRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepRuns++
}

func (m *Mock) ObserveTransitionDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionDurations = append(m.transitionDurations, duration)
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesApproved returns the number of times IncMatchesApproved was called.
func (m *Mock) MatchesApproved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesApproved
}

// MatchesCancelled returns the number of times IncMatchesCancelled was called.
func (m *Mock) MatchesCancelled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCancelled
}

// NotifSent returns the number of times IncNotifSent was called.
func (m *Mock) NotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent
}

// NotifFailed returns the number of times IncNotifFailed was called.
func (m *Mock) NotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed
}
