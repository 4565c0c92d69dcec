package notifier

// Notifier defines a best-effort channel for announcing league events.
// Delivery is fire-and-forget relative to the state transition that triggered
// it: a failed send is logged and counted but never propagated back into the
// transition.
type Notifier interface {
	Send(text string) error
}
