// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/snipr/snipr/internal/config"
	"github.com/snipr/snipr/internal/history"
	"github.com/snipr/snipr/internal/runtime"
)

const (
	// StreamStdout is the child's standard output.
	StreamStdout Stream = iota
	// StreamStderr is the child's standard error.
	StreamStderr
)

const (
	readBufferSize = 32 * 1024
	// maxReadErrors stops a pump that keeps failing without reading anything.
	maxReadErrors = 8
	// exitDrainTimeout bounds how long output is still collected after the
	// process exited.
	exitDrainTimeout = 200 * time.Millisecond

	stderrPrefix       = "❌ "
	cancelMarker       = "\n🟥 Process canceled by user.\n"
	failedToStartLabel = "❌ Failed to start: "
)

type (
	// Stream identifies which pipe a chunk was read from.
	Stream int

	// activeRun is one accepted Run call. Fields other than cmd are only
	// touched by the consumer goroutine.
	activeRun struct {
		id          uuid.UUID
		command     string
		label       string
		description string
		startedAt   time.Time
		cmd         *exec.Cmd
		transcript  *strings.Builder
		lock        *runLock
		cancelled   bool
		finalized   bool
	}

	message interface {
		apply(e *Engine)
	}

	runMsg struct {
		snippet string
		args    []string
		reply   chan<- error
	}

	cancelMsg struct {
		reply chan<- bool
	}

	restoreMsg struct {
		reply chan<- error
	}

	clearMsg struct {
		reply chan<- error
	}

	chunkMsg struct {
		run    *activeRun
		stream Stream
		text   string
	}

	exitMsg struct {
		run *activeRun
		err error
	}

	closingMsg struct {
		reply chan<- struct{}
	}
)

// String returns the stream name used in metrics labels.
func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

func (m runMsg) apply(e *Engine) { m.reply <- e.startRun(m.snippet, m.args) }

func (m cancelMsg) apply(e *Engine) { m.reply <- e.cancelRun() }

func (m restoreMsg) apply(e *Engine) {
	if e.st.running {
		m.reply <- ErrRunInProgress
		return
	}
	e.restore()
	e.publish()
	m.reply <- nil
}

func (m clearMsg) apply(e *Engine) {
	if e.st.running {
		m.reply <- ErrRunInProgress
		return
	}
	e.st.transcript = &strings.Builder{}
	e.st.current = nil
	e.publish()
	m.reply <- nil
}

func (m chunkMsg) apply(e *Engine) { e.applyChunk(m.run, m.stream, m.text) }

func (m exitMsg) apply(e *Engine) { e.finishRun(m.run, m.err) }

func (m closingMsg) apply(e *Engine) {
	e.closing = true
	m.reply <- struct{}{}
}

func settingsFrom(c config.RunConfig) runtime.Settings {
	return runtime.Settings{
		Interpreter:   runtime.Interpreter(c.Interpreter),
		SecondaryPath: string(c.SecondaryPath),
		ShellPath:     string(c.ShellPath),
		NativeTool:    c.NativeTool,
	}
}

func (e *Engine) startRun(snippet string, args []string) error {
	if e.closing {
		return ErrClosed
	}
	if e.st.running {
		e.metrics.rejectedRun()
		return ErrRunInProgress
	}

	var lock *runLock
	if e.lockPath != "" {
		l, err := acquireRunLockAt(e.lockPath)
		switch {
		case errors.Is(err, errRunLocked):
			e.metrics.rejectedRun()
			return ErrRunInProgress
		case err != nil:
			e.logger.Warn("running without cross-process lock", "path", e.lockPath, "error", err)
		default:
			lock = l
		}
	}

	cfg := e.cfg.Current()
	inv := runtime.Resolve(settingsFrom(cfg), snippet, args)

	run := &activeRun{
		id:          uuid.New(),
		command:     snippet,
		label:       inv.Label,
		description: inv.Description(),
		startedAt:   e.clock.Now(),
		transcript:  &strings.Builder{},
		lock:        lock,
	}

	e.st = state{
		phase:      PhaseStarting,
		running:    true,
		progress:   startProgress,
		current:    run,
		transcript: run.transcript,
	}
	e.persistSnapshot("⏳ Running " + run.description + "...\n")
	e.metrics.setRunning(true)
	e.publish()

	e.logger.Debug("starting run", "run", run.id, "command", run.description)

	cmd := exec.Command(inv.Executable, inv.Args...)
	cmd.Env = runtime.MergeEnv(e.environ(), cfg.Env)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		e.failToStart(run, err)
		return nil
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeFiles(stdoutR, stdoutW)
		e.failToStart(run, err)
		return nil
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	// The child holds its own copies of the write ends.
	closeFiles(stdoutW, stderrW)
	if err != nil {
		closeFiles(stdoutR, stderrR)
		e.failToStart(run, err)
		return nil
	}

	run.cmd = cmd
	e.st.phase = PhaseRunning
	e.inflight.Add(1)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go e.pump(run, StreamStdout, stdoutR, &pumps)
	go e.pump(run, StreamStderr, stderrR, &pumps)
	go func() {
		// Wait returns when the process exits, even if a background child
		// still holds the pipes open.
		err := cmd.Wait()
		drainPumps(&pumps, exitDrainTimeout, stdoutR, stderrR)
		if sendErr := e.send(exitMsg{run: run, err: err}); sendErr != nil {
			e.inflight.Done()
		}
	}()

	e.publish()
	return nil
}

// drainPumps lets the pumps read what is left in the pipes for up to timeout,
// then closes the read ends and waits for the pumps to return. Every chunk
// they forward is queued before the caller's exit notification.
func drainPumps(pumps *sync.WaitGroup, timeout time.Duration, readers ...*os.File) {
	done := make(chan struct{})
	go func() {
		pumps.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}

	closeFiles(readers...)
	<-done
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func (e *Engine) failToStart(run *activeRun, err error) {
	reason := runtime.ClassifyStartError(err)
	text := failedToStartLabel + err.Error()

	run.finalized = true
	run.transcript.Reset()
	run.transcript.WriteString(text)
	run.lock.Release()

	e.st.phase = PhaseFailedToStart
	e.st.running = false
	e.st.progress = 0
	e.st.exitCode = int(reason.ExitCode())
	e.st.hasExit = true

	e.logger.Warn("failed to start run", "command", run.description, "reason", reason, "error", err)
	e.appendRunLog(run.startedAt, run.description, text)
	e.persistSnapshot(text)
	e.metrics.setRunning(false)
	e.metrics.observeFinished(OutcomeFailedToStart, 0)
	e.publish()
}

// pump forwards everything read from r to the consumer, holding back an
// incomplete UTF-8 sequence until the rest of it arrives.
func (e *Engine) pump(run *activeRun, stream Stream, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()

	buf := make([]byte, readBufferSize)
	var pending []byte
	failures := 0

	for {
		n, err := r.Read(buf)
		if n > 0 {
			failures = 0
			e.metrics.addOutput(stream, n)

			data := append(pending, buf[:n]...)
			complete, tail := splitIncompleteUTF8(data)
			if len(complete) > 0 {
				if e.send(chunkMsg{run: run, stream: stream, text: string(complete)}) != nil {
					return
				}
			}
			pending = append([]byte(nil), tail...)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			break
		}
		failures++
		if failures >= maxReadErrors {
			e.logger.Warn("giving up on output stream", "run", run.id, "stream", stream, "error", err)
			break
		}
	}

	if len(pending) > 0 {
		_ = e.send(chunkMsg{run: run, stream: stream, text: string(pending)})
	}
}

// splitIncompleteUTF8 splits p before a trailing multi-byte sequence that is
// valid so far but not yet complete. Invalid bytes are never held back.
func splitIncompleteUTF8(p []byte) (complete, tail []byte) {
	for i := len(p) - 1; i >= 0 && len(p)-i < utf8.UTFMax; i-- {
		if !utf8.RuneStart(p[i]) {
			continue
		}
		if utf8.FullRune(p[i:]) {
			return p, nil
		}
		return p[:i], p[i:]
	}
	return p, nil
}

func (e *Engine) applyChunk(run *activeRun, stream Stream, text string) {
	if stream == StreamStderr {
		text = stderrPrefix + text
	}
	run.transcript.WriteString(text)

	if run != e.st.current {
		return
	}
	e.appendChunk(text)
	if e.st.running {
		e.st.progress = min(e.st.progress+chunkProgress, maxRunning)
	}
	e.publish()
}

func (e *Engine) cancelRun() bool {
	run := e.st.current
	if !e.st.running || run == nil || run.cmd == nil {
		return false
	}

	run.cancelled = true
	if err := runtime.Terminate(run.cmd.Process); err != nil {
		e.logger.Warn("failed to signal process", "run", run.id, "error", err)
	}
	run.transcript.WriteString(cancelMarker)
	run.lock.Release()

	e.st.phase = PhaseCancelled
	e.st.running = false
	e.st.progress = 0
	e.st.cancelReq = true

	e.logger.Debug("run cancelled", "run", run.id)
	e.persistSnapshot(run.transcript.String())
	e.metrics.setRunning(false)
	e.publish()
	return true
}

// finishRun applies an observed exit. It runs at most once per run. A run
// that is no longer current only reaches history and the run log.
func (e *Engine) finishRun(run *activeRun, waitErr error) {
	defer e.inflight.Done()
	if run.finalized {
		return
	}
	run.finalized = true
	run.lock.Release()

	code, ok := runtime.ExitCodeFromWait(waitErr)
	transcript := run.transcript.String()

	rec := history.NewRecord(run.command, run.label, run.startedAt, transcript)
	if ok {
		rec = rec.WithExitCode(int(code))
	}
	rec.Cancelled = run.cancelled

	if err := e.history.Add(rec); err != nil {
		e.logger.Warn("failed to save history", "run", run.id, "error", err)
	}
	e.appendRunLog(run.startedAt, run.description, transcript)

	outcome := OutcomeCompleted
	if run.cancelled {
		outcome = OutcomeCancelled
	}
	e.metrics.observeFinished(outcome, e.clock.Since(run.startedAt).Seconds())
	e.logger.Debug("run finished", "run", run.id, "outcome", outcome, "exit_code", code, "exit_code_known", ok)

	if run != e.st.current {
		return
	}

	if !run.cancelled {
		e.st.phase = PhaseCompleted
		e.st.running = false
		e.st.progress = 1
		e.metrics.setRunning(false)
	}
	e.st.exitCode = int(code)
	e.st.hasExit = ok
	e.persistSnapshot(transcript)
	e.publish()
}
