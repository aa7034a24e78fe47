package device

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fakeLister(nodes ...string) Lister {
	return func() ([]string, error) { return nodes, nil }
}

func TestDiscoverFirstAvailable(t *testing.T) {
	list := fakeLister("/dev/video0", "/dev/video1", "/dev/video2", "/dev/video3")

	info, err := Discover("", list)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if info.ID != "0" {
		t.Errorf("Expected id 0, got %q", info.ID)
	}
	if info.ColorNode != "/dev/video0" || info.LeftNode != "/dev/video1" || info.RightNode != "/dev/video2" {
		t.Errorf("Unexpected node mapping: %+v", info)
	}
	if info.DepthNode != "/dev/video3" {
		t.Errorf("Expected depth node video3, got %q", info.DepthNode)
	}
}

func TestDiscoverByID(t *testing.T) {
	list := fakeLister(
		"/dev/video0", "/dev/video1", "/dev/video2", "/dev/video3",
		"/dev/video4", "/dev/video5", "/dev/video6", "/dev/video7",
	)

	info, err := Discover("4", list)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if info.ColorNode != "/dev/video4" {
		t.Errorf("Expected color node video4, got %q", info.ColorNode)
	}
}

func TestDiscoverMissingID(t *testing.T) {
	list := fakeLister("/dev/video0")

	_, err := Discover("9", list)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestDiscoverEmpty(t *testing.T) {
	_, err := Discover("", fakeLister())
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func TestSingleSensorDevice(t *testing.T) {
	info, err := Discover("", fakeLister("/dev/video0"))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if info.LeftNode != "" || info.RightNode != "" || info.DepthNode != "" {
		t.Errorf("Single-sensor device should have no extra nodes: %+v", info)
	}
}

func TestWaitForReturn(t *testing.T) {
	var calls atomic.Int32
	list := func() ([]string, error) {
		// Device reappears on the third poll.
		if calls.Add(1) < 3 {
			return nil, nil
		}
		return []string{"/dev/video0"}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := WaitForReturn(ctx, "0", list); err != nil {
		t.Fatalf("WaitForReturn failed: %v", err)
	}
}

func TestWaitForReturnCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForReturn(ctx, "0", fakeLister())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
