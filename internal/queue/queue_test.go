package queue

import (
	"sync"
	"testing"
	"time"
)

// TestPublishTryGet verifies the basic produce/consume path.
func TestPublishTryGet(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	out, err := reg.Create("color")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if f := out.TryGet(); f != nil {
		t.Fatalf("TryGet on empty queue returned frame seq %d", f.Seq)
	}

	reg.Publish("color", &Frame{Seq: 1, Source: "color"})

	f := out.TryGet()
	if f == nil {
		t.Fatal("TryGet returned nil after publish")
	}
	if f.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", f.Seq)
	}

	// A frame is delivered at most once.
	if f := out.TryGet(); f != nil {
		t.Errorf("Frame delivered twice, seq %d", f.Seq)
	}
}

// TestOverwriteDropsOldFrame verifies latest-only semantics.
func TestOverwriteDropsOldFrame(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	out, _ := reg.Create("depth")

	reg.Publish("depth", &Frame{Seq: 1})
	reg.Publish("depth", &Frame{Seq: 2})
	reg.Publish("depth", &Frame{Seq: 3})

	f := out.TryGet()
	if f == nil || f.Seq != 3 {
		t.Fatalf("Expected latest frame seq 3, got %+v", f)
	}

	stats := reg.Stats()
	qs := stats.Outputs["depth"]
	if qs.Dropped != 2 {
		t.Errorf("Expected 2 dropped, got %d", qs.Dropped)
	}
	if qs.Delivered != 1 {
		t.Errorf("Expected 1 delivered, got %d", qs.Delivered)
	}
	if stats.TotalPublished != 3 {
		t.Errorf("Expected 3 published, got %d", stats.TotalPublished)
	}
}

// TestPublishUnknownQueueIsNoop verifies disabled previews never error.
func TestPublishUnknownQueueIsNoop(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	// Must not panic or block.
	reg.Publish("disparity", &Frame{Seq: 1})
}

// TestCloseDiscardsPendingFrame verifies shutdown leaves nothing behind.
func TestCloseDiscardsPendingFrame(t *testing.T) {
	reg := NewRegistry()
	out, _ := reg.Create("color")

	reg.Publish("color", &Frame{Seq: 1})
	reg.Close()

	if f := out.TryGet(); f != nil {
		t.Errorf("Expected nil after close, got seq %d", f.Seq)
	}

	// Publishing after close is a silent no-op.
	reg.Publish("color", &Frame{Seq: 2})
	if f := out.TryGet(); f != nil {
		t.Errorf("Closed queue accepted a frame, seq %d", f.Seq)
	}
}

// TestCreateAfterCloseFails verifies registry lifecycle.
func TestCreateAfterCloseFails(t *testing.T) {
	reg := NewRegistry()
	reg.Close()

	if _, err := reg.Create("late"); err != ErrRegistryClosed {
		t.Errorf("Expected ErrRegistryClosed, got %v", err)
	}

	// Close is idempotent.
	if err := reg.Close(); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
}

// TestDuplicateCreate verifies name collisions are rejected.
func TestDuplicateCreate(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	if _, err := reg.Create("color"); err != nil {
		t.Fatalf("First Create failed: %v", err)
	}
	if _, err := reg.Create("color"); err != ErrQueueExists {
		t.Errorf("Expected ErrQueueExists, got %v", err)
	}
}

// TestConcurrentPublishConsume exercises the queue under contention.
func TestConcurrentPublishConsume(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	out, _ := reg.Create("color")

	const frames = 1000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= frames; i++ {
			reg.Publish("color", &Frame{Seq: i})
		}
	}()

	var lastSeq uint64
	deadline := time.After(5 * time.Second)
	for lastSeq < frames {
		select {
		case <-deadline:
			t.Fatalf("Timed out, last seq %d", lastSeq)
		default:
		}
		if f := out.TryGet(); f != nil {
			if f.Seq < lastSeq {
				t.Fatalf("Out of order delivery: %d after %d", f.Seq, lastSeq)
			}
			lastSeq = f.Seq
		}
	}
	wg.Wait()

	stats := reg.Stats()
	qs := stats.Outputs["color"]
	if qs.Delivered+qs.Dropped != frames {
		t.Errorf("Delivered (%d) + dropped (%d) != published (%d)",
			qs.Delivered, qs.Dropped, frames)
	}
}
