package dispatch

import "time"

// Policy describes the delivery contract of the channel between intake and
// the enrichment worker: at-least-once, unordered, non-idempotent. The
// worker performs no deduplication, so a batch aborted after partial
// progress redelivers every message in it, including already-persisted
// ones. Consumers must treat duplicate records as expected behavior.
type Policy struct {
	// VisibilityTimeout is how long an in-flight message stays hidden
	// before an unacknowledged delivery becomes visible again.
	VisibilityTimeout time.Duration
	// MaxReceives is the delivery attempt count after which a message is
	// moved to the dead-letter queue.
	MaxReceives int
	// MaxBatchSize caps the number of messages handed to the worker per
	// invocation.
	MaxBatchSize int
	// LongPollWait is the receive wait time used to reduce empty polls.
	LongPollWait time.Duration
	// Retention bounds how long unconsumed messages survive on the
	// primary queue; DLQRetention bounds the dead-letter queue.
	Retention    time.Duration
	DLQRetention time.Duration
}

// DefaultPolicy mirrors the deployed queue configuration.
func DefaultPolicy() Policy {
	return Policy{
		VisibilityTimeout: 5 * time.Minute,
		MaxReceives:       3,
		MaxBatchSize:      10,
		LongPollWait:      20 * time.Second,
		Retention:         4 * 24 * time.Hour,
		DLQRetention:      14 * 24 * time.Hour,
	}
}
