// Package health emits the periodic liveness heartbeat and tracks whether
// heartbeat publishing itself is working.
package health

import "time"

// DegradedThreshold is the number of consecutive failures after which the
// monitor stops pacing off the last success and starts probing off the last
// retry instead.
const DegradedThreshold = 5

// State is the heartbeat ledger: when the last one succeeded, how many have
// failed in a row, and when the last degraded-mode probe went out. It lives
// for the whole process and is mutated on every attempt.
type State struct {
	LastSuccess time.Time
	Failures    int
	LastRetry   time.Time
}

// Degraded reports whether the failure streak has hit the threshold.
func (s *State) Degraded() bool {
	return s.Failures >= DegradedThreshold
}

// Due reports whether a heartbeat should be attempted at now. Healthy
// pacing keys off the last success, so a fresh process with a zero
// LastSuccess beats immediately. Degraded pacing keys off the last retry,
// which turns a hammering loop against a dead broker into one probe per
// interval.
func (s *State) Due(now time.Time, interval time.Duration) bool {
	if s.Degraded() {
		return now.Sub(s.LastRetry) >= interval
	}
	return now.Sub(s.LastSuccess) >= interval
}

// RecordSuccess resets the failure streak and stamps the success time. It
// reports whether this success ended a degraded period, so the caller can
// log the recovery.
func (s *State) RecordSuccess(now time.Time) (recovered bool) {
	recovered = s.Degraded()
	s.Failures = 0
	s.LastSuccess = now
	return recovered
}

// RecordFailure bumps the failure streak up to the threshold and stamps the
// retry time once the threshold is reached.
func (s *State) RecordFailure(now time.Time) {
	if s.Failures < DegradedThreshold {
		s.Failures++
	}
	if s.Degraded() {
		s.LastRetry = now
	}
}
