package scheduler

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/aristath/conductor/internal/engine"
	"github.com/aristath/conductor/internal/events"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	defaultGraceTimeout = 5 * time.Second
	defaultQueueSize    = 256
)

// Workspaces provisions per-session scratch directories.
type Workspaces interface {
	Create(sessionID string) (string, error)
	Cleanup(sessionID string) error
}

// Options configures a LocalScheduler.
type Options struct {
	// MaxConcurrent is the hard bound on simultaneously live processes.
	// Must be at least 1.
	MaxConcurrent int

	// PollInterval is how often running sessions are checked against
	// their deadlines. Defaults to 250ms.
	PollInterval time.Duration

	// GraceTimeout is how long a terminated process gets between SIGTERM
	// and SIGKILL. Defaults to 5s.
	GraceTimeout time.Duration

	// QueueSize bounds the admission queue. Defaults to 256.
	QueueSize int

	// RolePrompts maps role names to system prompts passed to the engine.
	RolePrompts map[string]string

	// Bus, when set, receives session lifecycle events.
	Bus *events.Bus

	// Workspaces, when set, provisions scratch directories for tasks that
	// did not pin a working directory.
	Workspaces Workspaces

	// Processes, when set, tracks live process groups for emergency
	// cleanup on shutdown.
	Processes *engine.ProcessManager
}

// exitNotice is sent by a session's waiter goroutine when its process
// exits, however it exited.
type exitNotice struct {
	sessionID string
	waitErr   error
}

// LocalScheduler runs agent tasks as local subprocesses, at most
// MaxConcurrent at a time. Tasks past the bound queue in submission order
// and launch as slots free up.
type LocalScheduler struct {
	opts     Options
	registry *engine.Registry

	mu       sync.Mutex
	sessions map[string]*session
	order    []string
	total    int
	started  bool
	inFlight int

	slots   *semaphore.Weighted
	pending chan *session
	exits   chan exitNotice

	runCtx  context.Context
	cancel  context.CancelFunc
	loops   sync.WaitGroup // launcher + monitor
	waiters sync.WaitGroup // one per live process
}

// NewLocal creates a scheduler that resolves task engines through registry.
// Call Start before scheduling.
func NewLocal(registry *engine.Registry, opts Options) *LocalScheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.GraceTimeout <= 0 {
		opts.GraceTimeout = defaultGraceTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &LocalScheduler{
		opts:     opts,
		registry: registry,
		sessions: make(map[string]*session),
	}
}

// Start begins accepting tasks. Safe to call on a started scheduler.
func (l *LocalScheduler) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if l.opts.MaxConcurrent < 1 {
		return fmt.Errorf("invalid max concurrent %d: must be at least 1", l.opts.MaxConcurrent)
	}

	l.slots = semaphore.NewWeighted(int64(l.opts.MaxConcurrent))
	l.pending = make(chan *session, l.opts.QueueSize)
	l.exits = make(chan exitNotice, l.opts.QueueSize+l.opts.MaxConcurrent)
	l.runCtx, l.cancel = context.WithCancel(context.Background())
	l.started = true

	l.loops.Add(2)
	go l.launcher(l.runCtx)
	go l.monitor(l.runCtx)
	return nil
}

// Schedule records a pending session for the task and returns its ID
// immediately. The session launches once a slot is free, in submission
// order.
func (l *LocalScheduler) Schedule(ctx context.Context, task AgentTask) (string, error) {
	if err := task.Validate(); err != nil {
		return "", fmt.Errorf("invalid task: %w", err)
	}
	eng, err := l.registry.Resolve(task.Engine)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	if task.TaskID == "" {
		task.TaskID = id
	}
	s := &session{
		id:        id,
		task:      task,
		eng:       eng,
		status:    StatusPending,
		createdAt: time.Now(),
	}

	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return "", ErrNotStarted
	}
	l.sessions[id] = s
	l.order = append(l.order, id)
	l.total++
	pending, runCtx := l.pending, l.runCtx
	l.mu.Unlock()

	select {
	case pending <- s:
		return id, nil
	case <-ctx.Done():
		l.abandon(s, ctx.Err())
		return "", ctx.Err()
	case <-runCtx.Done():
		l.abandon(s, ErrNotStarted)
		return "", ErrNotStarted
	}
}

// abandon marks a session that never reached the queue as cancelled.
func (l *LocalScheduler) abandon(s *session, cause error) {
	l.mu.Lock()
	if !s.status.Terminal() {
		s.status = StatusCancelled
		s.err = cause
		s.completedAt = time.Now()
	}
	l.mu.Unlock()
}

// launcher admits queued sessions one at a time, blocking on a free slot
// before each launch. A single launcher preserves submission order.
func (l *LocalScheduler) launcher(ctx context.Context) {
	defer l.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-l.pending:
			l.mu.Lock()
			done := s.status.Terminal()
			l.mu.Unlock()
			if done {
				continue // cancelled while queued
			}
			if err := l.slots.Acquire(ctx, 1); err != nil {
				return
			}
			l.mu.Lock()
			l.inFlight++
			l.mu.Unlock()
			if err := l.launch(ctx, s); err != nil {
				l.failLaunch(s, err)
			}
		}
	}
}

// launch provisions a working directory, starts the engine process, and
// hands exit detection to a waiter goroutine. The caller has already
// charged a slot; launch releases it on every path that does not produce a
// live process.
func (l *LocalScheduler) launch(ctx context.Context, s *session) error {
	l.mu.Lock()
	done := s.status.Terminal() // cancelled while waiting for a slot
	l.mu.Unlock()
	if done {
		l.releaseSlot()
		return nil
	}

	inv := engine.Invocation{
		SessionID:    s.id,
		Prompt:       s.task.Prompt,
		Role:         s.task.RoleName,
		SystemPrompt: l.opts.RolePrompts[s.task.RoleName],
		WorkDir:      s.task.WorkDir,
	}

	var wsDir string
	if inv.WorkDir == "" && l.opts.Workspaces != nil {
		dir, err := l.opts.Workspaces.Create(s.id)
		if err != nil {
			l.releaseSlot()
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		wsDir = dir
		inv.WorkDir = dir
	}

	cmd, err := s.eng.Command(ctx, inv)
	if err != nil {
		l.cleanupWorkspace(s.id, wsDir)
		l.releaseSlot()
		return err
	}
	cmd.Stdout = &s.stdout
	cmd.Stderr = &s.stderr

	l.mu.Lock()
	if s.status.Terminal() { // cancelled since the check above
		l.mu.Unlock()
		l.cleanupWorkspace(s.id, wsDir)
		l.releaseSlot()
		return nil
	}
	if err := cmd.Start(); err != nil {
		l.mu.Unlock()
		l.cleanupWorkspace(s.id, wsDir)
		l.releaseSlot()
		return fmt.Errorf("failed to start %s process: %w", s.task.Engine, err)
	}
	s.cmd = cmd
	s.workspace = wsDir
	s.status = StatusRunning
	s.startedAt = time.Now()
	if s.task.Timeout > 0 {
		s.deadline = s.startedAt.Add(s.task.Timeout)
	}
	info := s.snapshot()
	l.waiters.Add(1)
	l.mu.Unlock()

	if l.opts.Processes != nil {
		l.opts.Processes.Track(cmd)
	}
	l.publish(events.TypeSessionStarted, info)

	go func() {
		defer l.waiters.Done()
		waitErr := cmd.Wait()
		if l.opts.Processes != nil {
			l.opts.Processes.Untrack(cmd)
		}
		l.exits <- exitNotice{sessionID: s.id, waitErr: waitErr}
	}()
	return nil
}

// failLaunch records a launch error on a session whose slot has already
// been released by launch.
func (l *LocalScheduler) failLaunch(s *session, cause error) {
	log.Printf("ERROR: session %s failed to launch: %v", s.id, cause)
	l.mu.Lock()
	if !s.status.Terminal() {
		s.status = StatusFailed
		s.err = cause
		s.completedAt = time.Now()
	}
	info := s.snapshot()
	l.mu.Unlock()
	l.publish(events.TypeSessionFailed, info)
}

// monitor finalizes exited sessions and enforces deadlines.
func (l *LocalScheduler) monitor(ctx context.Context) {
	defer l.loops.Done()
	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Stop waits for every waiter before cancelling, so all
			// outstanding notices are already buffered. Drain them so no
			// slot is left charged.
			for {
				select {
				case n := <-l.exits:
					l.finalize(n)
				default:
					return
				}
			}
		case n := <-l.exits:
			l.finalize(n)
		case <-ticker.C:
			l.reapTimeouts()
		}
	}
}

// finalize settles a session whose process has exited: parses output,
// resolves the final status, frees the slot, and publishes the outcome.
func (l *LocalScheduler) finalize(n exitNotice) {
	l.mu.Lock()
	s, ok := l.sessions[n.sessionID]
	if !ok {
		l.mu.Unlock()
		l.releaseSlot()
		return
	}
	if s.killTimer != nil {
		s.killTimer.Stop()
		s.killTimer = nil
	}
	if s.cmd != nil && s.cmd.ProcessState != nil {
		s.exitCode = s.cmd.ProcessState.ExitCode()
	}
	s.completedAt = time.Now()

	settled := !s.status.Terminal() // timeout and terminate settle first
	if settled {
		if n.waitErr == nil {
			out, perr := s.eng.ParseOutput(s.stdout.Bytes(), s.stderr.Bytes())
			if perr != nil {
				s.status = StatusFailed
				s.err = fmt.Errorf("failed to parse %s output: %w", s.task.Engine, perr)
			} else {
				s.status = StatusCompleted
				s.output = out.Content
			}
		} else {
			s.status = StatusFailed
			s.err = processError(n.waitErr, s.stderr.String())
		}
	}
	info := s.snapshot()
	wsDir := s.workspace
	l.mu.Unlock()

	l.cleanupWorkspace(info.ID, wsDir)
	l.releaseSlot()

	if settled {
		switch info.Status {
		case StatusCompleted:
			l.publish(events.TypeSessionCompleted, info)
		case StatusFailed:
			log.Printf("ERROR: session %s failed: %s", info.ID, info.Error)
			l.publish(events.TypeSessionFailed, info)
		}
	}
}

// processError folds captured stderr into a process exit error.
func processError(waitErr error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("process failed: %w", waitErr)
	}
	const maxStderr = 2048
	if len(stderr) > maxStderr {
		stderr = stderr[:maxStderr]
	}
	return fmt.Errorf("process failed: %w (stderr: %s)", waitErr, stderr)
}

// reapTimeouts fails and kills running sessions past their deadline.
func (l *LocalScheduler) reapTimeouts() {
	now := time.Now()
	var expired []*session
	l.mu.Lock()
	for _, s := range l.sessions {
		if s.status == StatusRunning && !s.deadline.IsZero() && now.After(s.deadline) {
			s.status = StatusFailed
			s.err = fmt.Errorf("timed out after %s", s.task.Timeout)
			expired = append(expired, s)
		}
	}
	infos := make([]SessionInfo, 0, len(expired))
	cmds := make([]*exec.Cmd, 0, len(expired))
	for _, s := range expired {
		infos = append(infos, s.snapshot())
		cmds = append(cmds, s.cmd)
	}
	l.mu.Unlock()

	for i, info := range infos {
		log.Printf("WARNING: session %s timed out after %s, killing process group", info.ID, info.Task.Timeout)
		if cmds[i] != nil {
			if err := engine.KillProcessGroup(cmds[i]); err != nil {
				log.Printf("WARNING: failed to kill timed-out session %s: %v", info.ID, err)
			}
		}
		l.publish(events.TypeSessionFailed, info)
	}
}

// Terminate cancels a session. Pending sessions are dropped before launch;
// running sessions get SIGTERM and, after the grace timeout, SIGKILL.
// Returns false for unknown or already-terminal sessions.
func (l *LocalScheduler) Terminate(sessionID string) bool {
	l.mu.Lock()
	s, ok := l.sessions[sessionID]
	if !ok || s.status.Terminal() {
		l.mu.Unlock()
		return false
	}
	wasRunning := s.status == StatusRunning
	s.status = StatusCancelled
	s.completedAt = time.Now()
	cmd := s.cmd
	if wasRunning && cmd != nil {
		grace := l.opts.GraceTimeout
		s.killTimer = time.AfterFunc(grace, func() {
			if err := engine.KillProcessGroup(cmd); err != nil {
				log.Printf("WARNING: failed to force-kill session %s: %v", sessionID, err)
			}
		})
	}
	info := s.snapshot()
	l.mu.Unlock()

	if wasRunning && cmd != nil {
		if err := engine.TerminateProcessGroup(cmd); err != nil {
			log.Printf("WARNING: failed to signal session %s: %v", sessionID, err)
			_ = engine.KillProcessGroup(cmd)
		}
	}
	l.publish(events.TypeSessionCancelled, info)
	return true
}

// Stop cancels all live sessions, waits for their processes to exit, and
// halts the background loops. Safe to call twice.
func (l *LocalScheduler) Stop() error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = false
	var live []string
	for id, s := range l.sessions {
		if !s.status.Terminal() {
			live = append(live, id)
		}
	}
	l.mu.Unlock()

	for _, id := range live {
		l.Terminate(id)
	}

	// Every waiter must report before the monitor shuts down, otherwise a
	// slot could stay charged forever.
	l.waiters.Wait()
	l.cancel()
	l.loops.Wait()
	return nil
}

// Status returns the session's status, or false for unknown IDs.
func (l *LocalScheduler) Status(sessionID string) (Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[sessionID]
	if !ok {
		return StatusPending, false
	}
	return s.status, true
}

// Session returns a read-only snapshot, or false for unknown IDs.
func (l *LocalScheduler) Session(sessionID string) (SessionInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[sessionID]
	if !ok {
		return SessionInfo{}, false
	}
	return s.snapshot(), true
}

// Active returns a snapshot of all non-terminal sessions.
func (l *LocalScheduler) Active() map[string]Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	active := make(map[string]Status)
	for id, s := range l.sessions {
		if !s.status.Terminal() {
			active[id] = s.status
		}
	}
	return active
}

// ActiveIDs returns non-terminal session IDs in creation order.
func (l *LocalScheduler) ActiveIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []string
	for _, id := range l.order {
		if s, ok := l.sessions[id]; ok && !s.status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Stats returns the scheduler's concurrency bookkeeping.
func (l *LocalScheduler) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	active := 0
	for _, s := range l.sessions {
		if !s.status.Terminal() {
			active++
		}
	}
	return Stats{
		Running:        l.started,
		MaxConcurrent:  l.opts.MaxConcurrent,
		ActiveSessions: active,
		TotalSessions:  l.total,
		AvailableSlots: l.opts.MaxConcurrent - l.inFlight,
	}
}

// releaseSlot returns one concurrency slot.
func (l *LocalScheduler) releaseSlot() {
	l.slots.Release(1)
	l.mu.Lock()
	l.inFlight--
	l.mu.Unlock()
}

// cleanupWorkspace removes a session's scratch directory, if any.
func (l *LocalScheduler) cleanupWorkspace(sessionID, dir string) {
	if dir == "" || l.opts.Workspaces == nil {
		return
	}
	if err := l.opts.Workspaces.Cleanup(sessionID); err != nil {
		log.Printf("WARNING: failed to clean up workspace for session %s: %v", sessionID, err)
	}
}

// publish emits a session lifecycle event on the bus, if one is wired.
// Dispatch happens off the scheduler's goroutines so slow handlers never
// stall launching or monitoring.
func (l *LocalScheduler) publish(eventType string, info SessionInfo) {
	if l.opts.Bus == nil {
		return
	}
	payload := map[string]any{
		"session_id": info.ID,
		"task_id":    info.Task.TaskID,
		"role":       info.Task.RoleName,
		"issue_id":   info.Task.IssueID,
		"engine":     info.Task.Engine,
		"status":     info.Status.String(),
	}
	switch eventType {
	case events.TypeSessionCompleted:
		payload["output"] = info.Output
		payload["duration"] = info.CompletedAt.Sub(info.StartedAt).String()
	case events.TypeSessionFailed:
		payload["error"] = info.Error
	}
	go l.opts.Bus.Publish(context.Background(), events.New(eventType, "scheduler", payload))
}
