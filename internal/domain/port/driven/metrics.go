package driven

// Metrics receives counters from the application layer. A nil-safe no-op
// implementation is used when metrics are disabled.
type Metrics interface {
	DigestComputed(backend string)
	DigestFailed(backend string)
	InitSettled(outcome string)
	PasswordRotated(success bool)
	LoginAttempt(outcome string)
}
