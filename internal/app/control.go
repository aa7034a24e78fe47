package app

import (
	"fmt"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/control"
)

// controlCallbacks wires the MQTT commands into the demo. The handler
// runs on its own goroutine; everything touching cfg takes d.mu.
func (d *Demo) controlCallbacks() control.CommandCallbacks {
	return control.CommandCallbacks{
		OnGetStatus: d.status,

		OnPause: func() error {
			d.paused.Store(true)
			return nil
		},
		OnResume: func() error {
			d.paused.Store(false)
			return nil
		},

		OnUpdateDepth: func(params map[string]interface{}) error {
			d.mu.Lock()
			defer d.mu.Unlock()
			if err := parseDepthParams(params, &d.cfg.Depth); err != nil {
				return err
			}
			if d.pipe != nil {
				d.pipe.UpdateDepthConfig(d.cfg.Depth)
			}
			if d.nn != nil {
				d.nn.SetDepthBounds(d.cfg.Depth.MinDepth, d.cfg.Depth.MaxDepth)
			}
			return nil
		},

		OnUpdateCamera: func(params map[string]interface{}) error {
			d.mu.Lock()
			defer d.mu.Unlock()
			if err := parseCameraParams(params, &d.cfg.Tuning); err != nil {
				return err
			}
			d.pushCameraConfig()
			return nil
		},

		OnSelectPreview: func(name string) error {
			return d.prev.Select(name)
		},

		OnShutdown: func() error {
			d.RequestStop()
			return nil
		},
	}
}

// status snapshots the run state for the get_status ack.
func (d *Demo) status() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := map[string]interface{}{
		"paused": d.paused.Load(),
		"sync":   d.cfg.Sync,
		"median": d.cfg.Depth.Median.String(),
		"fps":    d.fpsHandler.FPS(),
	}
	if d.dev != nil {
		st["device"] = d.dev.ID
	}
	if d.pipe != nil {
		streams := map[string]interface{}{}
		for name, cs := range d.pipe.Stats() {
			streams[name] = map[string]interface{}{
				"frames": cs.Frames,
				"fps":    d.fpsHandler.TickFPS(name),
			}
		}
		st["streams"] = streams
	}
	return st
}

// intParam reads a numeric command parameter. JSON numbers arrive as
// float64.
func intParam(params map[string]interface{}, key string) (int, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false, fmt.Errorf("parameter %q must be a number", key)
	}
	return int(f), true, nil
}

func boolParam(params map[string]interface{}, key string) (bool, bool, error) {
	v, ok := params[key]
	if !ok {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("parameter %q must be a boolean", key)
	}
	return b, true, nil
}

// parseDepthParams applies an update_depth command onto the depth
// config, rejecting out-of-range values before anything changes.
func parseDepthParams(params map[string]interface{}, dc *config.DepthConfig) error {
	next := *dc

	if v, ok, err := intParam(params, "median"); err != nil {
		return err
	} else if ok {
		m := config.MedianFilter(v)
		if !m.Valid() {
			return fmt.Errorf("invalid median %d (must be 0, 3, 5 or 7)", v)
		}
		next.Median = m
	}

	if v, ok, err := intParam(params, "confidence"); err != nil {
		return err
	} else if ok {
		if v < 0 || v > 255 {
			return fmt.Errorf("invalid confidence %d (must be 0-255)", v)
		}
		next.Confidence = v
	}

	if v, ok, err := intParam(params, "sigma"); err != nil {
		return err
	} else if ok {
		if v < 0 || v > 250 {
			return fmt.Errorf("invalid sigma %d (must be 0-250)", v)
		}
		next.Sigma = v
	}

	if v, ok, err := boolParam(params, "lr_check"); err != nil {
		return err
	} else if ok {
		next.LRCheck = v
	}

	if v, ok, err := intParam(params, "lr_check_threshold"); err != nil {
		return err
	} else if ok {
		if v < 0 || v > 10 {
			return fmt.Errorf("invalid lr_check_threshold %d (must be 0-10)", v)
		}
		next.LRCThreshold = v
	}

	if v, ok, err := boolParam(params, "extended"); err != nil {
		return err
	} else if ok {
		next.Extended = v
	}

	if v, ok, err := boolParam(params, "subpixel"); err != nil {
		return err
	} else if ok {
		next.Subpixel = v
	}

	if v, ok, err := intParam(params, "min_depth"); err != nil {
		return err
	} else if ok {
		if v < 0 {
			return fmt.Errorf("invalid min_depth %d (must be >= 0)", v)
		}
		next.MinDepth = v
	}

	if v, ok, err := intParam(params, "max_depth"); err != nil {
		return err
	} else if ok {
		next.MaxDepth = v
	}

	if next.MaxDepth <= next.MinDepth {
		return fmt.Errorf("invalid depth range %d-%d mm", next.MinDepth, next.MaxDepth)
	}

	*dc = next
	return nil
}

// parseCameraParams applies an update_camera command onto the tuning.
func parseCameraParams(params map[string]interface{}, t *config.Tuning) error {
	next := *t

	set := func(key string, min, max int, dst **int) error {
		v, ok, err := intParam(params, key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if v < min || v > max {
			return fmt.Errorf("invalid %s %d (must be %d-%d)", key, v, min, max)
		}
		val := v
		*dst = &val
		return nil
	}

	if err := set("exposure", 1, 33000, &next.Exposure); err != nil {
		return err
	}
	if err := set("sensitivity", 100, 1600, &next.Sensitivity); err != nil {
		return err
	}
	if err := set("saturation", -10, 10, &next.Saturation); err != nil {
		return err
	}
	if err := set("contrast", -10, 10, &next.Contrast); err != nil {
		return err
	}
	if err := set("brightness", -10, 10, &next.Brightness); err != nil {
		return err
	}
	if err := set("sharpness", 0, 4, &next.Sharpness); err != nil {
		return err
	}

	*t = next
	return nil
}
