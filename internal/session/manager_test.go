package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shRegistry(id string, args ...string) *RunnerRegistry {
	reg := &RunnerRegistry{runners: map[string]RunnerDefinition{}, dflt: id}
	reg.add(RunnerDefinition{ID: id, Name: id, Command: "sh", Args: args})
	return reg
}

func waitForTerminal(t *testing.T, mgr *Manager, id string) *Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := mgr.Get(context.Background(), id)
		require.NoError(t, err)
		if sess.Status.IsTerminal() {
			return sess
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("session did not reach a terminal status in time")
	return nil
}

func TestManager_StartCompletes(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	reg := shRegistry("echo", "-c", "echo hello-stdout; echo hello-stderr 1>&2")
	mgr := NewManager(store, reg, nil)

	sess, err := mgr.Start(context.Background(), Config{Tool: "echo", ProjectPath: "/proj"})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, sess.Status)

	final := waitForTerminal(t, mgr, sess.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	require.NotNil(t, final.ExitCode)
	assert.Equal(t, 0, *final.ExitCode)

	logs, err := mgr.Logs(context.Background(), sess.ID)
	require.NoError(t, err)
	var messages []string
	for _, l := range logs {
		messages = append(messages, l.Message)
	}
	assert.Contains(t, messages, "hello-stdout")
	assert.Contains(t, messages, "hello-stderr")

	events, err := mgr.Events(context.Background(), sess.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, EventCreated, events[0].Type)
}

func TestManager_StartFailureExitCode(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	reg := shRegistry("fail", "-c", "exit 3")
	mgr := NewManager(store, reg, nil)

	sess, err := mgr.Start(context.Background(), Config{Tool: "fail", ProjectPath: "/proj"})
	require.NoError(t, err)

	final := waitForTerminal(t, mgr, sess.ID)
	assert.Equal(t, StatusFailed, final.Status)
	require.NotNil(t, final.ExitCode)
	assert.Equal(t, 3, *final.ExitCode)
}

func TestManager_Stop(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	reg := shRegistry("sleeper", "-c", "sleep 30")
	mgr := NewManager(store, reg, nil)

	sess, err := mgr.Start(context.Background(), Config{Tool: "sleeper", ProjectPath: "/proj"})
	require.NoError(t, err)

	require.NoError(t, mgr.Stop(context.Background(), sess.ID))
	final := waitForTerminal(t, mgr, sess.ID)
	assert.Equal(t, StatusCancelled, final.Status)
}

func TestManager_Subscribe_StreamsLogs(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	reg := shRegistry("echo", "-c", "echo streamed")
	mgr := NewManager(store, reg, nil)

	sess, err := mgr.Start(context.Background(), Config{Tool: "echo", ProjectPath: "/proj"})
	require.NoError(t, err)

	ch, unsub, err := mgr.Subscribe(sess.ID)
	require.NoError(t, err)
	defer unsub()

	select {
	case log := <-ch:
		assert.Equal(t, "streamed", log.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for streamed log")
	}

	waitForTerminal(t, mgr, sess.ID)
}

func TestManager_Start_UnknownRunner(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	mgr := NewManager(store, shRegistry("only"), nil)
	_, err = mgr.Start(context.Background(), Config{Tool: "nonexistent", ProjectPath: "/proj"})
	assert.Error(t, err)
}
