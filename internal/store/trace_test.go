package store

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestTraceWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	tw, err := NewTraceWriter(dir, "run-1", false)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}

	entries := []TraceEntry{
		{Iteration: 1, BestReward: -10, CurrBestReward: -12, RMSStdev: 0.1, Timestamp: time.Now().UTC()},
		{Iteration: 2, BestReward: -8, CurrBestReward: -8, RMSStdev: 0.099, Timestamp: time.Now().UTC()},
		{Iteration: 3, BestReward: -5, CurrBestReward: -6, RMSStdev: 0.098, Timestamp: time.Now().UTC(),
			Params: []float64{0.5, -0.5}},
	}
	for _, e := range entries {
		if err := tw.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatalf("NewTraceReader: %v", err)
	}
	defer tr.Close()

	got, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i].Iteration != e.Iteration {
			t.Errorf("entry %d iteration = %d, want %d", i, got[i].Iteration, e.Iteration)
		}
		if got[i].BestReward != e.BestReward {
			t.Errorf("entry %d best reward = %g, want %g", i, got[i].BestReward, e.BestReward)
		}
	}
	if len(got[2].Params) != 2 {
		t.Errorf("entry 2 params = %v, want the recorded vector", got[2].Params)
	}
	if got[0].Params != nil {
		t.Errorf("entry 0 params = %v, want omitted", got[0].Params)
	}
}

func TestTraceAppendMode(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "run-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tw.Write(TraceEntry{Iteration: 1, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	tw, err = NewTraceWriter(dir, "run-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := tw.Write(TraceEntry{Iteration: 2, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	got, err := tr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Iteration != 1 || got[1].Iteration != 2 {
		t.Errorf("entries after append = %+v, want iterations [1 2]", got)
	}
}

func TestTraceTruncateMode(t *testing.T) {
	dir := t.TempDir()

	tw, err := NewTraceWriter(dir, "run-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tw.Write(TraceEntry{Iteration: 1, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening without append starts the trace over.
	tw, err = NewTraceWriter(dir, "run-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tw.Write(TraceEntry{Iteration: 9, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	got, err := tr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Iteration != 9 {
		t.Errorf("entries after truncate = %+v, want only iteration 9", got)
	}
}

func TestTraceReaderMissing(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestTraceReaderSequentialRead(t *testing.T) {
	dir := t.TempDir()
	tw, err := NewTraceWriter(dir, "run-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tw.Write(TraceEntry{Iteration: 1, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	if _, err := tr.Read(); err != nil {
		t.Fatalf("first Read: %v", err)
	}
	if _, err := tr.Read(); err != io.EOF {
		t.Errorf("second Read = %v, want io.EOF", err)
	}
}

func TestTraceFlushMakesDataVisible(t *testing.T) {
	dir := t.TempDir()
	tw, err := NewTraceWriter(dir, "run-1", false)
	if err != nil {
		t.Fatal(err)
	}
	defer tw.Close()

	if err := tw.Write(TraceEntry{Iteration: 1, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	tr, err := NewTraceReader(dir, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	got, err := tr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("read %d entries after flush, want 1", len(got))
	}
}
