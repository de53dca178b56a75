package session

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Manager supervises the full lifecycle of runner-backed sessions: spawning
// the external process, streaming its output to subscribers, persisting
// logs/events to a Store, and enforcing the Status state machine. Grounded
// on the teacher's scheduler.Scheduler (goroutine-per-job, context-driven
// shutdown), generalized from periodic ticking jobs to one-shot supervised
// child processes, plus golang.org/x/sync/errgroup for joint
// stdout/stderr/wait supervision (already present in the pack's dependency
// set for concurrent fan-in).
type Manager struct {
	store    *Store
	registry *RunnerRegistry
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]*liveSession
}

type liveSession struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	bus    *bus
}

func (l *liveSession) setCmd(cmd *exec.Cmd) {
	l.mu.Lock()
	l.cmd = cmd
	l.mu.Unlock()
}

func (l *liveSession) process() *os.Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cmd == nil {
		return nil
	}
	return l.cmd.Process
}

// NewManager constructs a Manager backed by store and registry.
func NewManager(store *Store, registry *RunnerRegistry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		registry: registry,
		logger:   logger,
		running:  map[string]*liveSession{},
	}
}

// Start spawns a new session for cfg and begins supervising it. The first
// child process is started synchronously, so the returned Session is
// already Running by the time Start returns (on a spawn error the session
// row is marked Failed and Start returns the error with no Session);
// use Subscribe to stream its output and Get/List to poll status
// thereafter as the runLoop goroutine takes over subsequent iterations (for
// autonomous/ralph modes) and terminal-state bookkeeping.
func (m *Manager) Start(ctx context.Context, cfg Config) (*Session, error) {
	runnerID := cfg.Tool
	if runnerID == "" {
		runnerID = m.registry.Default()
	}
	def, ok := m.registry.Get(runnerID)
	if !ok {
		return nil, fmt.Errorf("unknown runner: %s", runnerID)
	}
	if err := def.ValidateCommand(); err != nil {
		return nil, err
	}
	if !cfg.Mode.Valid() {
		cfg.Mode = ModeAutonomous
	}

	sess := New(uuid.NewString(), cfg.ProjectPath, cfg.SpecID, runnerID, cfg.Mode)
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	m.recordEvent(ctx, sess.ID, EventCreated, "")

	runCtx, cancel := context.WithCancel(context.Background())
	live := &liveSession{cancel: cancel, bus: newBus()}

	cmd, stdout, stderr, err := m.spawnProcess(def, cfg)
	if err != nil {
		cancel()
		sess.Status = StatusFailed
		sess.Touch()
		m.store.UpdateSession(ctx, sess)
		m.recordEvent(ctx, sess.ID, EventFailed, err.Error())
		return nil, err
	}
	live.setCmd(cmd)

	sess.Status = StatusRunning
	sess.Touch()
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		m.logger.Error("persist session start", "session", sess.ID, "error", err)
	}
	m.recordEvent(ctx, sess.ID, EventStarted, "")

	m.mu.Lock()
	m.running[sess.ID] = live
	m.mu.Unlock()

	go m.runLoop(runCtx, sess, def, cfg, live, cmd, stdout, stderr)

	return sess, nil
}

// iterationResult is the outcome of one spawned child process.
type iterationResult struct {
	exitCode int
	err      error
	canceled bool
}

// spawnProcess builds and starts one child process for def/cfg, returning
// its pipes for the caller to pump before calling cmd.Wait.
func (m *Manager) spawnProcess(def RunnerDefinition, cfg Config) (*exec.Cmd, io.ReadCloser, io.ReadCloser, error) {
	cmd, err := def.BuildCommand(cfg.WorkingDir, cfg.ToolArgs, cfg.EnvVars)
	if err != nil {
		return nil, nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("attach stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("attach stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start runner %s: %w", def.DisplayName(), err)
	}
	return cmd, stdout, stderr, nil
}

// waitIteration pumps cmd's already-started stdout/stderr into live's bus
// and the store, then waits for it to exit.
func (m *Manager) waitIteration(ctx context.Context, sess *Session, live *liveSession, cmd *exec.Cmd, stdout, stderr io.Reader) iterationResult {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return m.pump(sess.ID, LogStdout, stdout, live.bus) })
	g.Go(func() error { return m.pump(sess.ID, LogStderr, stderr, live.bus) })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()
	if pumpErr != nil {
		m.logger.Warn("session output pump error", "session", sess.ID, "error", pumpErr)
	}

	if ctx.Err() == context.Canceled {
		return iterationResult{canceled: true}
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return iterationResult{exitCode: exitErr.ExitCode(), err: waitErr}
		}
		return iterationResult{err: waitErr}
	}
	return iterationResult{}
}

// runLoop drives sess through one or more spawned iterations according to
// cfg.Mode: guided spawns exactly once (the one Start already started);
// autonomous repeats up to cfg.MaxIterations self-directed turns, stopping
// at the first failure; ralph repeats until a stop condition (non-zero
// exit, elapsed cfg.MaxDuration, or cfg.CompletionMarker seen in the log
// stream) is met, bounded by cfg.MaxIterations as a backstop. firstCmd and
// its pipes are the process Start already spawned; later iterations
// (autonomous and ralph modes) are spawned here.
func (m *Manager) runLoop(ctx context.Context, sess *Session, def RunnerDefinition, cfg Config, live *liveSession, firstCmd *exec.Cmd, firstStdout, firstStderr io.Reader) {
	bg := context.Background()
	var deadline time.Time
	if cfg.MaxDuration > 0 {
		deadline = time.Now().Add(cfg.MaxDuration)
	}

	var lastErr error
	lastExit := 0
	canceled := false
	max := maxIterations(cfg)

	cmd, stdout, stderr := firstCmd, firstStdout, firstStderr
	for iter := 1; iter <= max; iter++ {
		if iter > 1 {
			m.recordEvent(bg, sess.ID, EventIterationStarted, fmt.Sprintf("%d", iter))
			var err error
			cmd, stdout, stderr, err = m.spawnProcess(def, cfg)
			if err != nil {
				lastErr = err
				break
			}
			live.setCmd(cmd)
			sess.Status = StatusRunning
			sess.Touch()
			if uerr := m.store.UpdateSession(bg, sess); uerr != nil {
				m.logger.Error("persist session start", "session", sess.ID, "error", uerr)
			}
		}

		res := m.waitIteration(ctx, sess, live, cmd, stdout, stderr)
		lastErr, lastExit = res.err, res.exitCode
		if res.canceled {
			canceled = true
			break
		}
		if res.err != nil {
			break
		}
		if cfg.Mode == ModeRalph && m.ralphShouldStop(bg, sess.ID, cfg, deadline) {
			break
		}
	}

	sess.EndedAt = timePtr(time.Now().UTC())
	sess.UpdateDuration()

	switch {
	case canceled:
		sess.Status = StatusCancelled
		m.recordEvent(bg, sess.ID, EventCancelled, "")
	case lastErr != nil:
		sess.Status = StatusFailed
		code := lastExit
		sess.ExitCode = &code
		m.recordEvent(bg, sess.ID, EventFailed, lastErr.Error())
	default:
		sess.Status = StatusCompleted
		code := lastExit
		sess.ExitCode = &code
		m.recordEvent(bg, sess.ID, EventCompleted, "")
	}

	sess.Touch()
	if err := m.store.UpdateSession(bg, sess); err != nil {
		m.logger.Error("persist session completion", "session", sess.ID, "error", err)
	}

	live.bus.closeAll()
	m.mu.Lock()
	delete(m.running, sess.ID)
	m.mu.Unlock()
}

// maxIterations resolves the iteration cap for cfg.Mode: guided always
// spawns once; autonomous and ralph honor cfg.MaxIterations when set,
// falling back to 1 (autonomous) or a generous ralph backstop.
func maxIterations(cfg Config) int {
	switch cfg.Mode {
	case ModeGuided:
		return 1
	case ModeRalph:
		if cfg.MaxIterations > 0 {
			return cfg.MaxIterations
		}
		return 50
	default:
		if cfg.MaxIterations > 0 {
			return cfg.MaxIterations
		}
		return 1
	}
}

// ralphShouldStop reports whether a ralph-mode loop has met one of its stop
// conditions: the wall-clock deadline has passed, or cfg.CompletionMarker
// appears in a log line from the iteration just finished.
func (m *Manager) ralphShouldStop(ctx context.Context, sessionID string, cfg Config, deadline time.Time) bool {
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return true
	}
	if cfg.CompletionMarker == "" {
		return false
	}
	logs, err := m.store.ListLogs(ctx, sessionID)
	if err != nil {
		m.logger.Warn("check ralph completion marker", "session", sessionID, "error", err)
		return false
	}
	for i := len(logs) - 1; i >= 0; i-- {
		if strings.Contains(logs[i].Message, cfg.CompletionMarker) {
			return true
		}
	}
	return false
}

func (m *Manager) pump(sessionID string, level LogLevel, r io.Reader, b *bus) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := Log{SessionID: sessionID, Timestamp: time.Now().UTC(), Level: level, Message: scanner.Text()}
		b.publish(line)
		if err := m.store.AppendLog(context.Background(), line); err != nil {
			m.logger.Warn("persist session log", "session", sessionID, "error", err)
		}
	}
	return scanner.Err()
}

// Pause suspends a running session's process (SIGSTOP). Only meaningful on
// Unix; callers should check Status.CanPause first.
func (m *Manager) Pause(ctx context.Context, id string) error {
	return m.transition(ctx, id, StatusRunning, StatusPaused, EventPaused, syscall.SIGSTOP)
}

// Resume continues a paused session's process (SIGCONT).
func (m *Manager) Resume(ctx context.Context, id string) error {
	return m.transition(ctx, id, StatusPaused, StatusRunning, EventResumed, syscall.SIGCONT)
}

func (m *Manager) transition(ctx context.Context, id string, from, to Status, event EventType, sig syscall.Signal) error {
	m.mu.Lock()
	live, ok := m.running[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session not running: %s", id)
	}

	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status != from {
		return fmt.Errorf("session %s is %s, cannot transition to %s", id, sess.Status, to)
	}
	proc := live.process()
	if proc == nil {
		return fmt.Errorf("session %s has no process", id)
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("signal session %s: %w", id, err)
	}

	sess.Status = to
	sess.Touch()
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return err
	}
	m.recordEvent(ctx, id, event, "")
	return nil
}

// Stop cancels a pending/running/paused session, terminating its process.
func (m *Manager) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	live, ok := m.running[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session not running: %s", id)
	}

	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if !sess.Status.CanStop() {
		return fmt.Errorf("session %s cannot be stopped from status %s", id, sess.Status)
	}

	live.cancel()
	if proc := live.process(); proc != nil {
		_ = proc.Kill()
	}
	return nil
}

// Subscribe streams id's log output to the caller. The returned channel
// closes when the session ends or unsubscribe is called.
func (m *Manager) Subscribe(id string) (<-chan Log, func(), error) {
	m.mu.Lock()
	live, ok := m.running[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("session not running: %s", id)
	}
	ch, unsub := live.bus.subscribe(256)
	return ch, unsub, nil
}

// Get returns a session's current persisted state.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.GetSession(ctx, id)
}

// List returns sessions matching filter.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*Session, error) {
	return m.store.ListSessions(ctx, filter)
}

// Logs returns every persisted log line for a session, running or not.
func (m *Manager) Logs(ctx context.Context, id string) ([]Log, error) {
	return m.store.ListLogs(ctx, id)
}

// Events returns every persisted lifecycle event for a session.
func (m *Manager) Events(ctx context.Context, id string) ([]Event, error) {
	return m.store.ListEvents(ctx, id)
}

// sessionExport is the document written by Archive: the session row plus
// its full log and event history, as of the moment it was archived.
type sessionExport struct {
	Session *Session `json:"session"`
	Logs    []Log    `json:"logs"`
	Events  []Event  `json:"events"`
}

// Archive exports a terminal session's logs and events to a timestamped,
// gzip-compressed JSON file under the store's archive directory, then marks
// the row archived. Refuses while the session is still running. Archiving
// is not a deletion: the row and its logs remain queryable afterward.
func (m *Manager) Archive(ctx context.Context, id string) error {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if !sess.Status.IsTerminal() {
		return fmt.Errorf("session %s is still %s; stop it first", id, sess.Status)
	}

	path, err := m.exportSession(ctx, sess)
	if err != nil {
		return fmt.Errorf("export session %s: %w", id, err)
	}
	m.recordEvent(ctx, id, EventArchived, path)
	return nil
}

// exportSession writes sess's logs and events to a timestamped .json.gz
// file under the store's archive directory and returns its path.
func (m *Manager) exportSession(ctx context.Context, sess *Session) (string, error) {
	logs, err := m.store.ListLogs(ctx, sess.ID)
	if err != nil {
		return "", fmt.Errorf("list logs: %w", err)
	}
	events, err := m.store.ListEvents(ctx, sess.ID)
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}

	dir := m.store.ArchiveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102T150405Z")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json.gz", sess.ID, stamp))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(sessionExport{Session: sess, Logs: logs, Events: events}); err != nil {
		gz.Close()
		return "", fmt.Errorf("encode session export: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("flush session export: %w", err)
	}
	return path, nil
}

// RotateLogs deletes all but the most recent keep log rows for id,
// returning the number of rows removed.
func (m *Manager) RotateLogs(ctx context.Context, id string, keep int) (int64, error) {
	return m.store.RotateLogs(ctx, id, keep)
}

// Delete removes a terminal session and its logs/events, refusing while it
// is still running.
func (m *Manager) Delete(ctx context.Context, id string) error {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if !sess.Status.IsTerminal() {
		return fmt.Errorf("session %s is still %s; stop it first", id, sess.Status)
	}
	return m.store.DeleteSession(ctx, id)
}

func (m *Manager) recordEvent(ctx context.Context, sessionID string, eventType EventType, data string) {
	event := Event{SessionID: sessionID, Type: eventType, Data: data, Timestamp: time.Now().UTC()}
	if err := m.store.AppendEvent(ctx, event); err != nil {
		m.logger.Warn("persist session event", "session", sessionID, "event", eventType, "error", err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
