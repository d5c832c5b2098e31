package tasks

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testRegistry(capacity int) *Registry {
	return NewRegistry(time.Hour, capacity, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreate_ImmediatelyVisible(t *testing.T) {
	r := testRegistry(10)
	r.Create("t1", "Starting clip processing")

	rec, err := r.Get("t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != StatusProcessing {
		t.Errorf("Status = %q, want processing", rec.Status)
	}
	if rec.Message != "Starting clip processing" {
		t.Errorf("Message = %q", rec.Message)
	}
}

func TestGet_UnknownID(t *testing.T) {
	r := testRegistry(10)

	_, err := r.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestComplete_PopulatesBothFields(t *testing.T) {
	r := testRegistry(10)
	r.Create("t1", "starting")
	r.Complete("t1", "", "1. a\n2. b\n3. c")

	rec, _ := r.Get("t1")
	if rec.Status != StatusCompleted {
		t.Fatalf("Status = %q, want completed", rec.Status)
	}
	if rec.Transcript == nil {
		t.Fatal("Transcript must be present on a completed record, even when empty")
	}
	if *rec.Transcript != "" {
		t.Errorf("Transcript = %q, want empty string", *rec.Transcript)
	}
	if rec.Insights == nil || *rec.Insights == "" {
		t.Error("Insights must be populated on a completed record")
	}
	if rec.Message != "" {
		t.Errorf("Message = %q, want empty after completion", rec.Message)
	}
}

func TestFail_RecordsStageMessage(t *testing.T) {
	r := testRegistry(10)
	r.Create("t1", "starting")
	r.Fail("t1", "Error processing clip: download failed: network unreachable")

	rec, _ := r.Get("t1")
	if rec.Status != StatusError {
		t.Fatalf("Status = %q, want error", rec.Status)
	}
	if rec.Message == "" {
		t.Error("errored record must carry a non-empty message")
	}
	if rec.Transcript != nil || rec.Insights != nil {
		t.Error("errored record must not carry transcript or insights")
	}
}

func TestTerminalRecordsAreImmutable(t *testing.T) {
	r := testRegistry(10)
	r.Create("t1", "starting")
	r.Complete("t1", "text", "notes")

	r.SetMessage("t1", "late progress update")
	r.Fail("t1", "late failure")

	rec, _ := r.Get("t1")
	if rec.Status != StatusCompleted {
		t.Errorf("Status = %q, terminal state must not change", rec.Status)
	}
	if rec.Message != "" {
		t.Errorf("Message = %q, terminal record must not be mutated", rec.Message)
	}
}

func TestSetMessage_UnknownIDIsNoop(t *testing.T) {
	r := testRegistry(10)
	r.SetMessage("ghost", "hello") // must not panic
}

func TestSweep_RemovesExpiredTerminalRecords(t *testing.T) {
	r := testRegistry(10)
	r.Create("done", "starting")
	r.Complete("done", "t", "i")
	r.Create("active", "starting")

	r.sweep(time.Now().Add(2 * time.Hour))

	if _, err := r.Get("done"); !errors.Is(err, ErrNotFound) {
		t.Error("expired terminal record should be swept")
	}
	if _, err := r.Get("active"); err != nil {
		t.Error("processing record must survive the sweep")
	}
}

func TestSweep_KeepsFreshTerminalRecords(t *testing.T) {
	r := testRegistry(10)
	r.Create("done", "starting")
	r.Complete("done", "t", "i")

	r.sweep(time.Now())

	if _, err := r.Get("done"); err != nil {
		t.Error("fresh terminal record should survive the sweep")
	}
}

func TestCapacity_EvictsOldestTerminalFirst(t *testing.T) {
	r := testRegistry(3)
	r.Create("a", "starting")
	r.Complete("a", "t", "i")
	r.Create("b", "starting")
	r.Create("c", "starting")
	r.Create("d", "starting")

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want capacity 3", r.Len())
	}
	if _, err := r.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Error("terminal record should be evicted before in-flight ones")
	}
	for _, id := range []string{"b", "c", "d"} {
		if _, err := r.Get(id); err != nil {
			t.Errorf("record %q should survive eviction", id)
		}
	}
}

func TestCapacity_EvictsOldestWhenAllProcessing(t *testing.T) {
	r := testRegistry(2)
	r.Create("a", "starting")
	r.Create("b", "starting")
	r.Create("c", "starting")

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want capacity 2", r.Len())
	}
	if _, err := r.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Error("oldest record should be evicted when all are in flight")
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	r := testRegistry(200)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("task-%d", i)
		r.Create(id, "starting")

		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			r.SetMessage(id, "Downloading video clip")
			r.SetMessage(id, "Generating transcript")
			r.Complete(id, "text", "notes")
		}(id)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if rec, err := r.Get(id); err == nil && rec.Terminal() {
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		rec, err := r.Get(fmt.Sprintf("task-%d", i))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec.Status != StatusCompleted {
			t.Errorf("task-%d status = %q, want completed", i, rec.Status)
		}
	}
}
