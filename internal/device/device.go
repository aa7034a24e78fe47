// Package device discovers depth-camera video nodes and tracks their
// availability across restarts.
//
// Discovery is filesystem based: every camera exposed by the kernel
// shows up as a /dev/video* node. A demo "device" groups the nodes for
// its color, left and right sensors plus the depth stream; mapping is
// positional, the way the UVC driver enumerates the sensor heads.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNoDevice is returned when discovery finds no video nodes.
	ErrNoDevice = errors.New("no device available")

	// ErrDeviceNotFound is returned when the requested id is absent.
	ErrDeviceNotFound = errors.New("device not found")
)

// reconnectTimeout bounds the wait for a device to come back after a
// restart before the run is aborted.
const reconnectTimeout = 10 * time.Second

// Info describes one discovered device.
type Info struct {
	// ID is the stable identifier used for selection (node basename).
	ID string

	// ColorNode, LeftNode and RightNode are the /dev paths of the
	// sensor streams. Mono nodes are empty on single-sensor devices.
	ColorNode string
	LeftNode  string
	RightNode string

	// DepthNode carries the device-computed disparity stream. Empty on
	// devices without stereo depth.
	DepthNode string
}

// Lister enumerates candidate video nodes. The default implementation
// globs /dev/video*; tests substitute a fake.
type Lister func() ([]string, error)

// DevLister is the production Lister.
func DevLister() ([]string, error) {
	return filepath.Glob("/dev/video*")
}

// Discover returns the device matching id, or the first available
// device when id is empty.
func Discover(id string, list Lister) (*Info, error) {
	if list == nil {
		list = DevLister
	}

	nodes, err := list()
	if err != nil {
		return nil, fmt.Errorf("device enumeration failed: %w", err)
	}
	if len(nodes) == 0 {
		return nil, ErrNoDevice
	}
	sort.Strings(nodes)

	infos := group(nodes)
	if id == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.ID == id {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
}

// group folds consecutive video nodes into devices of up to four
// streams (color, left, right, depth).
func group(nodes []string) []*Info {
	var infos []*Info
	for i := 0; i < len(nodes); i += 4 {
		info := &Info{
			ID:        strings.TrimPrefix(filepath.Base(nodes[i]), "video"),
			ColorNode: nodes[i],
		}
		if i+1 < len(nodes) {
			info.LeftNode = nodes[i+1]
		}
		if i+2 < len(nodes) {
			info.RightNode = nodes[i+2]
		}
		if i+3 < len(nodes) {
			info.DepthNode = nodes[i+3]
		}
		infos = append(infos, info)
	}
	return infos
}

// WaitForReturn blocks until the device with the given id reappears
// after a restart, polling the lister. Returns an error if the device
// is not available again within the timeout.
func WaitForReturn(ctx context.Context, id string, list Lister) error {
	if list == nil {
		list = DevLister
	}

	deadline := time.Now().Add(reconnectTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if _, err := Discover(id, list); err == nil {
			slog.Info("device: available again", "id", id)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("device %q not available again after %s", id, reconnectTimeout)
		}
	}
}
