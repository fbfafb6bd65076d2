package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type traceFile struct {
	TraceEvents []struct {
		Name string `json:"name"`
		Cat  string `json:"cat"`
		Ph   string `json:"ph"`
		TS   int64  `json:"ts"`
		Dur  int64  `json:"dur"`
		TID  uint64 `json:"tid"`
	} `json:"traceEvents"`
}

func TestProfiler_WritesChromeTrace(t *testing.T) {
	var buf bytes.Buffer
	p := New()
	if err := p.BeginSession("test", &buf); err != nil {
		t.Fatalf("BeginSession() error = %v", err)
	}

	start := time.Now()
	if err := p.Write(Event{Name: "flush", Start: start, Duration: 1500 * time.Microsecond, ThreadID: 7}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	p.Start("scope").Stop()

	if err := p.EndSession(); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	var tf traceFile
	if err := json.Unmarshal(buf.Bytes(), &tf); err != nil {
		t.Fatalf("trace is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(tf.TraceEvents) != 2 {
		t.Fatalf("got %d events, want 2", len(tf.TraceEvents))
	}
	ev := tf.TraceEvents[0]
	if ev.Name != "flush" || ev.Ph != "X" || ev.Cat != "function" || ev.Dur != 1500 || ev.TID != 7 {
		t.Errorf("event = %+v", ev)
	}
	if ev.TS < 0 {
		t.Errorf("ts = %d, want >= 0", ev.TS)
	}
}

func TestProfiler_OneSessionAtATime(t *testing.T) {
	p := New()
	if err := p.BeginSession("a", &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if err := p.BeginSession("b", &bytes.Buffer{}); !errors.Is(err, ErrSessionOpen) {
		t.Errorf("second BeginSession error = %v, want ErrSessionOpen", err)
	}
	if err := p.EndSession(); err != nil {
		t.Fatal(err)
	}
	if err := p.EndSession(); !errors.Is(err, ErrNoSession) {
		t.Errorf("second EndSession error = %v, want ErrNoSession", err)
	}
	if err := p.Write(Event{Name: "late"}); !errors.Is(err, ErrNoSession) {
		t.Errorf("Write without session error = %v, want ErrNoSession", err)
	}
}

func TestProfiler_ConcurrentWriters(t *testing.T) {
	var buf bytes.Buffer
	p := New()
	if err := p.BeginSession("concurrent", &buf); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				p.Start("work").Stop()
			}
		}()
	}
	wg.Wait()

	if p.Events() != 400 {
		t.Errorf("Events() = %d, want 400", p.Events())
	}
	if err := p.EndSession(); err != nil {
		t.Fatal(err)
	}
	var tf traceFile
	if err := json.Unmarshal(buf.Bytes(), &tf); err != nil {
		t.Fatalf("trace is not valid JSON: %v", err)
	}
	if len(tf.TraceEvents) != 400 {
		t.Errorf("decoded %d events, want 400", len(tf.TraceEvents))
	}
}

func TestProfiler_SessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	p := New()
	if err := p.BeginSessionFile("file", path); err != nil {
		t.Fatal(err)
	}
	p.Start("x").Stop()
	if err := p.EndSession(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		t.Fatalf("trace file is not valid JSON: %v", err)
	}
	if len(tf.TraceEvents) != 1 {
		t.Errorf("got %d events, want 1", len(tf.TraceEvents))
	}
}

func TestScope_MatchesBuildTag(t *testing.T) {
	var buf bytes.Buffer
	if err := Default.BeginSession("scope", &buf); err != nil {
		t.Fatal(err)
	}
	Scope("tagged")()
	n := Default.Events()
	if err := Default.EndSession(); err != nil {
		t.Fatal(err)
	}

	want := 0
	if Enabled {
		want = 1
	}
	if n != want {
		t.Errorf("Scope recorded %d events with Enabled=%v, want %d", n, Enabled, want)
	}
}
