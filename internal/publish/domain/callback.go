package domain

import "time"

// CallbackSignal is what the platform reports about a post.
type CallbackSignal string

const (
	CallbackSignalConfirmed CallbackSignal = "confirmed"
	CallbackSignalFailed    CallbackSignal = "failed"
)

// IsValid reports whether s is a known signal.
func (s CallbackSignal) IsValid() bool {
	return s == CallbackSignalConfirmed || s == CallbackSignalFailed
}

// CallbackEvent is a parsed out-of-band notification from a platform.
type CallbackEvent struct {
	Platform       string
	ExternalPostID string
	Signal         CallbackSignal
	Data           map[string]any
	ReceivedAt     time.Time
}

// ReconcileOutcome reports what ingesting a callback did.
type ReconcileOutcome string

const (
	// ReconcileConfirmed means the event moved an attempted request to confirmed.
	ReconcileConfirmed ReconcileOutcome = "confirmed"
	// ReconcileFailed means the event moved an attempted request to failed.
	ReconcileFailed ReconcileOutcome = "failed"
	// ReconcileDuplicate means the request was already resolved; nothing changed.
	ReconcileDuplicate ReconcileOutcome = "duplicate"
	// ReconcileUnmatched means no request carries the external post id.
	ReconcileUnmatched ReconcileOutcome = "unmatched"
)

// TargetStatus is the status a callback with signal s resolves an attempted request to.
func (s CallbackSignal) TargetStatus() PublishStatus {
	if s == CallbackSignalFailed {
		return PublishStatusFailed
	}
	return PublishStatusConfirmed
}

// Outcome maps a resolved status to the reconcile outcome reported to the caller.
func (s CallbackSignal) Outcome() ReconcileOutcome {
	if s == CallbackSignalFailed {
		return ReconcileFailed
	}
	return ReconcileConfirmed
}
