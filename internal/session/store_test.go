package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CreateAndGetSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess := New("s1", "/proj", "001-auth", "claude", ModeAutonomous)
	sess.Metadata["key"] = "value"
	require.NoError(t, store.CreateSession(ctx, sess))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "/proj", got.ProjectPath)
	assert.Equal(t, "001-auth", got.SpecID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "value", got.Metadata["key"])
}

func TestStore_UpdateSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess := New("s1", "/proj", "", "claude", ModeAutonomous)
	require.NoError(t, store.CreateSession(ctx, sess))

	sess.Status = StatusCompleted
	code := 0
	sess.ExitCode = &code
	end := time.Now().UTC()
	sess.EndedAt = &end
	sess.UpdateDuration()
	require.NoError(t, store.UpdateSession(ctx, sess))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 0, *got.ExitCode)
	require.NotNil(t, got.DurationMS)
}

func TestStore_UpdateSession_NotFound(t *testing.T) {
	store := openTestStore(t)
	sess := New("missing", "/proj", "", "claude", ModeAutonomous)
	err := store.UpdateSession(context.Background(), sess)
	assert.Error(t, err)
}

func TestStore_ListSessions_Filters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	s1 := New("s1", "/proj-a", "001-auth", "claude", ModeAutonomous)
	s2 := New("s2", "/proj-a", "002-cli", "codex", ModeGuided)
	s2.Status = StatusCompleted
	s3 := New("s3", "/proj-b", "001-auth", "claude", ModeAutonomous)
	for _, s := range []*Session{s1, s2, s3} {
		require.NoError(t, store.CreateSession(ctx, s))
	}

	byProject, err := store.ListSessions(ctx, ListFilter{ProjectPath: "/proj-a"})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	bySpec, err := store.ListSessions(ctx, ListFilter{SpecID: "001-auth"})
	require.NoError(t, err)
	assert.Len(t, bySpec, 2)

	byStatus, err := store.ListSessions(ctx, ListFilter{Status: StatusCompleted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "s2", byStatus[0].ID)
}

func TestStore_DeleteSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := New("s1", "/proj", "", "claude", ModeAutonomous)
	require.NoError(t, store.CreateSession(ctx, sess))
	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err := store.GetSession(ctx, "s1")
	assert.Error(t, err)
}

func TestStore_LogsAndEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sess := New("s1", "/proj", "", "claude", ModeAutonomous)
	require.NoError(t, store.CreateSession(ctx, sess))

	require.NoError(t, store.AppendLog(ctx, Log{SessionID: "s1", Timestamp: time.Now().UTC(), Level: LogStdout, Message: "hello"}))
	require.NoError(t, store.AppendLog(ctx, Log{SessionID: "s1", Timestamp: time.Now().UTC(), Level: LogStderr, Message: "warn"}))
	logs, err := store.ListLogs(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "hello", logs[0].Message)

	require.NoError(t, store.AppendEvent(ctx, Event{SessionID: "s1", Type: EventStarted, Timestamp: time.Now().UTC()}))
	events, err := store.ListEvents(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventStarted, events[0].Type)
}

func TestDefaultDBPath_NonEmpty(t *testing.T) {
	assert.NotEmpty(t, DefaultDBPath())
}
