package core

// SessionID identifies one live connection. Assigned by the transport
// adapter on upgrade, never reused.
type SessionID string

// Frame is a raw outbound payload, already encoded.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats for one fan-out.
type PublishResult struct {
	SentTo  int
	Dropped int
}
