package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusRunning.CanPause())
	assert.False(t, StatusPending.CanPause())
	assert.True(t, StatusPaused.CanResume())
	assert.False(t, StatusRunning.CanResume())
	assert.True(t, StatusPending.CanStop())
	assert.True(t, StatusRunning.CanStop())
	assert.True(t, StatusPaused.CanStop())
	assert.False(t, StatusCompleted.CanStop())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, StatusPaused.IsTerminal())
}

func TestNew_DefaultsToPending(t *testing.T) {
	sess := New("s1", "/proj", "001-auth", "claude", ModeAutonomous)
	assert.Equal(t, StatusPending, sess.Status)
	assert.False(t, sess.IsRunning())
	assert.False(t, sess.IsCompleted())
}

func TestCalculateDuration(t *testing.T) {
	sess := New("s1", "/proj", "", "claude", ModeAutonomous)
	assert.Nil(t, sess.CalculateDuration())

	end := sess.StartedAt.Add(5 * time.Second)
	sess.EndedAt = &end
	d := sess.CalculateDuration()
	require.NotNil(t, d)
	assert.Equal(t, int64(5000), *d)
}

func TestUpdateDuration_SetsField(t *testing.T) {
	sess := New("s1", "/proj", "", "claude", ModeAutonomous)
	end := sess.StartedAt.Add(2 * time.Second)
	sess.EndedAt = &end
	sess.UpdateDuration()
	require.NotNil(t, sess.DurationMS)
	assert.Equal(t, int64(2000), *sess.DurationMS)
}

func TestMode_Valid(t *testing.T) {
	assert.True(t, ModeGuided.Valid())
	assert.True(t, ModeAutonomous.Valid())
	assert.True(t, ModeRalph.Valid())
	assert.False(t, Mode("bogus").Valid())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "claude", cfg.Tool)
	assert.Equal(t, ModeAutonomous, cfg.Mode)
	assert.NotNil(t, cfg.EnvVars)
}
