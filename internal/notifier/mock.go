package notifier

import "sync"

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	SendFunc func(text string) error

	// Call records
	SentTexts []string
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentTexts = nil
}

func (m *Mock) Send(text string) error {
	m.mu.Lock()
	m.SentTexts = append(m.SentTexts, text)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(text)
	}
	return nil
}

// Sent returns a copy of all texts sent so far.
func (m *Mock) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.SentTexts))
	copy(out, m.SentTexts)
	return out
}
