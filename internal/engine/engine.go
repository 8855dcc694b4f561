// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snipr/snipr/internal/config"
	"github.com/snipr/snipr/internal/history"
)

const (
	// inboxSize bounds how far pumps can run ahead of the consumer.
	inboxSize = 64

	startProgress = 0.02
	chunkProgress = 0.01
	maxRunning    = 0.95
)

var (
	// ErrRunInProgress is returned by Run while another run is active, in this
	// process or (through the run lock) in another one.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("engine closed")
)

type (
	// ConfigSource supplies the configuration read at the start of every run.
	ConfigSource interface {
		Current() config.RunConfig
	}

	// HistorySink receives one record per finished run.
	HistorySink interface {
		Add(history.Record) error
	}

	// SessionBuffer mirrors the current transcript on disk.
	SessionBuffer interface {
		Restore() (string, error)
		PersistSnapshot(text string) error
		AppendChunk(text string) error
	}

	// RunLogger appends one block per run to the run log.
	RunLogger interface {
		Append(at time.Time, description, transcript string) error
	}

	// Clock is the time source for run timestamps and durations.
	Clock interface {
		Now() time.Time
		Since(t time.Time) time.Duration
	}

	// Option configures an Engine.
	Option func(*Engine)

	// Engine executes snippets one at a time. Create it with New and stop it
	// with Close.
	Engine struct {
		cfg      ConfigSource
		history  HistorySink
		buffer   SessionBuffer
		runLog   RunLogger
		logger   *slog.Logger
		clock    Clock
		environ  func() []string
		metrics  *Metrics
		lockPath string

		inbox     chan message
		quit      chan struct{}
		done      chan struct{}
		closeOnce sync.Once
		// inflight counts spawned runs whose exit has not been applied yet.
		inflight sync.WaitGroup

		snap   atomic.Pointer[Snapshot]
		subsMu sync.Mutex
		subs   map[chan Snapshot]struct{}

		// Owned by the consumer goroutine.
		st      state
		closing bool
	}

	// state is the mutable engine state. Only the consumer goroutine (and New,
	// before the consumer starts) touches it.
	state struct {
		phase      Phase
		running    bool
		progress   float64
		current    *activeRun
		transcript *strings.Builder
		cancelReq  bool
		exitCode   int
		hasExit    bool
	}

	realClock struct{}
)

func (realClock) Now() time.Time                  { return time.Now() }
func (realClock) Since(t time.Time) time.Duration { return time.Since(t) }

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithEnviron sets the function providing the inherited environment.
// The default is os.Environ.
func WithEnviron(fn func() []string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.environ = fn
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRunLock serializes runs across processes through a flock on path.
// Without it, runs are serialized within the process only.
func WithRunLock(path string) Option {
	return func(e *Engine) { e.lockPath = path }
}

// New creates an engine, restores the last session transcript from buffer and
// starts the consumer goroutine.
func New(cfg ConfigSource, hist HistorySink, buffer SessionBuffer, runLog RunLogger, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		history: hist,
		buffer:  buffer,
		runLog:  runLog,
		logger:  slog.Default(),
		clock:   realClock{},
		environ: os.Environ,
		inbox:   make(chan message, inboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		subs:    make(map[chan Snapshot]struct{}),
		st:      state{transcript: &strings.Builder{}},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.restore()
	e.publish()

	go e.loop()
	return e
}

// Run starts snippet with args using the interpreter selected in the current
// configuration. It returns once the process has been spawned (or has failed
// to spawn, which is reported in the snapshot, not as an error).
func (e *Engine) Run(snippet string, args ...string) (Snapshot, error) {
	reply := make(chan error, 1)
	if err := e.request(runMsg{snippet: snippet, args: args, reply: reply}, reply); err != nil {
		return e.Snapshot(), err
	}
	return e.Snapshot(), nil
}

// Cancel stops the active run. It reports whether a run was cancelled;
// without an active run it is a no-op.
func (e *Engine) Cancel() (bool, error) {
	reply := make(chan bool, 1)
	if err := e.send(cancelMsg{reply: reply}); err != nil {
		return false, err
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-e.done:
		return false, ErrClosed
	}
}

// RestoreLastSession replaces the transcript with the session buffer content.
// It fails with ErrRunInProgress while a run is active.
func (e *Engine) RestoreLastSession() (Snapshot, error) {
	reply := make(chan error, 1)
	if err := e.request(restoreMsg{reply: reply}, reply); err != nil {
		return e.Snapshot(), err
	}
	return e.Snapshot(), nil
}

// ClearTranscript empties the displayed transcript. The session buffer is
// left untouched. It fails with ErrRunInProgress while a run is active.
func (e *Engine) ClearTranscript() (Snapshot, error) {
	reply := make(chan error, 1)
	if err := e.request(clearMsg{reply: reply}, reply); err != nil {
		return e.Snapshot(), err
	}
	return e.Snapshot(), nil
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// Subscribe returns a channel that always holds the most recent snapshot;
// intermediate states may be skipped. The channel is closed by unsubscribe
// or Close.
func (e *Engine) Subscribe() (updates <-chan Snapshot, unsubscribe func()) {
	ch := make(chan Snapshot, 1)

	e.subsMu.Lock()
	select {
	case <-e.done:
		e.subsMu.Unlock()
		ch <- e.Snapshot()
		close(ch)
		return ch, func() {}
	default:
	}
	e.subs[ch] = struct{}{}
	ch <- e.Snapshot()
	e.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subsMu.Lock()
			defer e.subsMu.Unlock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
		})
	}
}

// WaitIdle blocks until no run is active and returns that snapshot.
func (e *Engine) WaitIdle(ctx context.Context) (Snapshot, error) {
	updates, unsubscribe := e.Subscribe()
	defer unsubscribe()

	for {
		select {
		case s, ok := <-updates:
			if !ok {
				s = e.Snapshot()
				if !s.Phase.IsActive() {
					return s, nil
				}
				return s, ErrClosed
			}
			if !s.Phase.IsActive() {
				return s, nil
			}
		case <-ctx.Done():
			return e.Snapshot(), ctx.Err()
		}
	}
}

// Close waits, bounded by ctx, for spawned processes to be reaped so that
// cancelled runs still reach the history, then stops the consumer. Processes
// that are still running are left alone. Close is idempotent.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		// Once closing is applied no new run can join inflight.
		reply := make(chan struct{}, 1)
		if e.send(closingMsg{reply: reply}) == nil {
			<-reply
		}

		drained := make(chan struct{})
		go func() {
			e.inflight.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-ctx.Done():
			err = ctx.Err()
			e.logger.Warn("closing engine with runs still in flight", "error", err)
		}

		close(e.quit)
		<-e.done

		e.subsMu.Lock()
		for ch := range e.subs {
			close(ch)
		}
		clear(e.subs)
		e.subsMu.Unlock()
	})
	return err
}

// send hands m to the consumer.
func (e *Engine) send(m message) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	select {
	case e.inbox <- m:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// request sends m and waits for the consumer's verdict on reply.
func (e *Engine) request(m message, reply <-chan error) error {
	if err := e.send(m); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-e.done:
		return ErrClosed
	}
}

func (e *Engine) loop() {
	defer close(e.done)
	for {
		select {
		case m := <-e.inbox:
			m.apply(e)
		case <-e.quit:
			return
		}
	}
}

// publish stores a fresh snapshot and offers it to every subscriber.
func (e *Engine) publish() {
	s := &Snapshot{
		Phase:                 e.st.phase,
		IsRunning:             e.st.running,
		Progress:              e.st.progress,
		Transcript:            e.st.transcript.String(),
		CancellationRequested: e.st.cancelReq,
		ExitCode:              e.st.exitCode,
		HasExitCode:           e.st.hasExit,
	}
	if r := e.st.current; r != nil {
		s.RunID = r.id.String()
		s.ActiveCommand = r.description
	}
	e.snap.Store(s)

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		ch <- *s
	}
}

// restore loads the session buffer into the transcript. Read failures are
// logged and leave the transcript empty.
func (e *Engine) restore() {
	text, err := e.buffer.Restore()
	if err != nil {
		e.logger.Warn("failed to restore last session", "error", err)
		text = ""
	}
	b := &strings.Builder{}
	b.WriteString(text)

	e.st = state{phase: PhaseIdle, transcript: b}
}

func (e *Engine) persistSnapshot(text string) {
	if err := e.buffer.PersistSnapshot(text); err != nil {
		e.logger.Warn("failed to persist session", "error", err)
	}
}

func (e *Engine) appendChunk(text string) {
	if err := e.buffer.AppendChunk(text); err != nil {
		e.logger.Warn("failed to append to session", "error", err)
	}
}

func (e *Engine) appendRunLog(at time.Time, description, transcript string) {
	if err := e.runLog.Append(at, description, transcript); err != nil {
		e.logger.Warn("failed to append to run log", "error", err)
	}
}
