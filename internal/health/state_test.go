package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, time.July, 4, 12, 0, 0, 0, time.UTC)

func TestStateFirstBeatDueImmediately(t *testing.T) {
	var s State
	assert.True(t, s.Due(t0, time.Hour),
		"a fresh process has no last success and beats right away")
}

func TestStateHealthyPacing(t *testing.T) {
	var s State
	s.RecordSuccess(t0)

	assert.False(t, s.Due(t0.Add(30*time.Minute), time.Hour))
	assert.False(t, s.Due(t0.Add(59*time.Minute), time.Hour))
	assert.True(t, s.Due(t0.Add(time.Hour), time.Hour))
}

func TestStateDegradedAfterThreshold(t *testing.T) {
	var s State
	for i := 0; i < DegradedThreshold-1; i++ {
		s.RecordFailure(t0)
	}
	assert.False(t, s.Degraded())

	s.RecordFailure(t0)
	assert.True(t, s.Degraded())
	assert.Equal(t, t0, s.LastRetry)
}

func TestStateFailureCountCaps(t *testing.T) {
	var s State
	for i := 0; i < 10; i++ {
		s.RecordFailure(t0.Add(time.Duration(i) * time.Minute))
	}
	assert.Equal(t, DegradedThreshold, s.Failures)
	assert.Equal(t, t0.Add(9*time.Minute), s.LastRetry,
		"each capped failure still refreshes the retry stamp")
}

func TestStateDegradedPacing(t *testing.T) {
	var s State
	s.RecordSuccess(t0)
	for i := 0; i < DegradedThreshold; i++ {
		s.RecordFailure(t0.Add(time.Duration(i) * time.Minute))
	}
	lastRetry := t0.Add(4 * time.Minute)

	assert.False(t, s.Due(lastRetry.Add(30*time.Minute), time.Hour),
		"degraded state suppresses attempts even though the last success is old")
	assert.True(t, s.Due(lastRetry.Add(time.Hour), time.Hour),
		"one probe per interval once degraded")
}

func TestStateRecoveryResets(t *testing.T) {
	var s State
	for i := 0; i < DegradedThreshold; i++ {
		s.RecordFailure(t0)
	}

	recovered := s.RecordSuccess(t0.Add(2 * time.Hour))
	assert.True(t, recovered)
	assert.Equal(t, 0, s.Failures)
	assert.False(t, s.Degraded())

	assert.False(t, s.Due(t0.Add(2*time.Hour).Add(30*time.Minute), time.Hour),
		"pacing keys off the new success again")

	assert.False(t, s.RecordSuccess(t0.Add(3*time.Hour)),
		"a success from a healthy state is not a recovery")
}
