package insight

import "errors"

var (
	// ErrRemoteUnavailable means no remote provider is configured.
	ErrRemoteUnavailable = errors.New("remote insight unavailable")
	// ErrCircuitOpen means recent remote failures opened the breaker.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrRateLimited means the remote call budget is exhausted for now.
	ErrRateLimited = errors.New("remote insight rate limited")
	// ErrInvalidInsight means the provider answered with something that is not an Insight.
	ErrInvalidInsight = errors.New("invalid insight payload")
)
