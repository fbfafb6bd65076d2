// Package profile writes Chrome trace event files (chrome://tracing,
// Perfetto) describing where frame time goes.
//
// A Profiler has at most one open session. Events are appended to the
// session's writer as they are recorded, guarded by a single mutex, and the
// JSON document is closed by EndSession.
//
// Instrumentation points use Scope:
//
//	defer profile.Scope("Renderer2D.Flush")()
//
// Scope records into Default and is compiled to a no-op unless the binary is
// built with -tags hearthprofile.
package profile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hearth-engine/hearth/internal/logging"
	"github.com/hearth-engine/hearth/internal/threadid"
)

// Errors returned by Profiler.
var (
	ErrSessionOpen = errors.New("profile: a session is already open")
	ErrNoSession   = errors.New("profile: no open session")
)

// Event is one complete ("ph":"X") trace event.
type Event struct {
	Name     string        // event name shown in the viewer
	Category string        // "cat" field; defaults to "function"
	Start    time.Time     // wall-clock start
	Duration time.Duration // elapsed time
	ThreadID uint64        // OS thread that ran the scope
}

// wireEvent is the JSON shape of a trace event. Times are microseconds.
type wireEvent struct {
	Name string `json:"name"`
	Cat  string `json:"cat"`
	Ph   string `json:"ph"`
	TS   int64  `json:"ts"`
	Dur  int64  `json:"dur"`
	PID  int    `json:"pid"`
	TID  uint64 `json:"tid"`
}

// Profiler serializes trace events for one session at a time.
type Profiler struct {
	mu      sync.Mutex
	session string
	w       *bufio.Writer
	closer  io.Closer
	events  int
	origin  time.Time
	pid     int
}

// Default is the profiler Scope records into.
var Default = New()

// New creates a profiler with no open session.
func New() *Profiler {
	return &Profiler{pid: os.Getpid()}
}

// BeginSession opens a session writing to w. Timestamps in the trace are
// relative to the moment the session opened.
func (p *Profiler) BeginSession(name string, w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w != nil {
		return fmt.Errorf("%w: %q", ErrSessionOpen, p.session)
	}
	p.session = name
	p.w = bufio.NewWriter(w)
	p.closer = nil
	p.events = 0
	p.origin = time.Now()

	if _, err := p.w.WriteString(`{"otherData":{},"traceEvents":[`); err != nil {
		p.w = nil
		return fmt.Errorf("write trace header: %w", err)
	}
	logging.Logger().Debug("profile: session started", "session", name)
	return nil
}

// BeginSessionFile opens a session writing to a new file at path. The file
// is closed by EndSession.
func (p *Profiler) BeginSessionFile(name, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	if err := p.BeginSession(name, f); err != nil {
		_ = f.Close()
		return err
	}
	p.mu.Lock()
	p.closer = f
	p.mu.Unlock()
	return nil
}

// EndSession terminates the JSON document, flushes it and closes the file
// opened by BeginSessionFile.
func (p *Profiler) EndSession() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w == nil {
		return ErrNoSession
	}
	_, err := p.w.WriteString("]}")
	if ferr := p.w.Flush(); err == nil {
		err = ferr
	}
	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
	}
	logging.Logger().Debug("profile: session ended", "session", p.session, "events", p.events)

	p.w = nil
	p.closer = nil
	p.session = ""
	if err != nil {
		return fmt.Errorf("finish trace: %w", err)
	}
	return nil
}

// Active reports whether a session is open.
func (p *Profiler) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w != nil
}

// Write appends ev to the open session.
func (p *Profiler) Write(ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w == nil {
		return ErrNoSession
	}
	cat := ev.Category
	if cat == "" {
		cat = "function"
	}
	data, err := json.Marshal(wireEvent{
		Name: ev.Name,
		Cat:  cat,
		Ph:   "X",
		TS:   ev.Start.Sub(p.origin).Microseconds(),
		Dur:  ev.Duration.Microseconds(),
		PID:  p.pid,
		TID:  ev.ThreadID,
	})
	if err != nil {
		return fmt.Errorf("encode trace event: %w", err)
	}
	if p.events > 0 {
		if err := p.w.WriteByte(','); err != nil {
			return err
		}
	}
	if _, err := p.w.Write(data); err != nil {
		return err
	}
	p.events++
	return nil
}

// Events returns the number of events written in the current session.
func (p *Profiler) Events() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}

// Timer measures one scope. Stop records it.
type Timer struct {
	p     *Profiler
	name  string
	start time.Time
}

// Start begins timing a scope on the calling thread.
func (p *Profiler) Start(name string) *Timer {
	return &Timer{p: p, name: name, start: time.Now()}
}

// Stop records the scope. Errors (no open session) are dropped: timers are
// routinely left in code paths that run with profiling off.
func (t *Timer) Stop() {
	if t == nil || t.p == nil {
		return
	}
	_ = t.p.Write(Event{
		Name:     t.name,
		Start:    t.start,
		Duration: time.Since(t.start),
		ThreadID: uint64(threadid.Current()),
	})
}
