package config

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// ParseFlags builds a Config from command line arguments. Defaults come
// from Default(), an optional -config YAML file sits under that, and
// explicitly set flags win over both.
func ParseFlags(args []string) (*Config, error) {
	fs := flag.NewFlagSet("depthai-demo", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to YAML configuration file")

	deviceID := fs.String("dev", "", "device id to connect to (empty: first available)")
	videoPath := fs.String("vid", "", "run on a host video file instead of the camera")
	source := fs.String("cam", PreviewColor, "camera feeding the neural network (color, left, right)")
	show := fs.String("show", PreviewColor, "comma separated previews to display")
	sync := fs.Bool("sync", false, "sync NN results with the frames they were computed on")
	debug := fs.Bool("debug", false, "enable debug logging")

	rgbRes := fs.String("rgbr", string(Res1080p), "color camera resolution (1080p, 2160p, 3040p)")
	rgbFPS := fs.Float64("rgbf", 30, "color camera fps")
	monoRes := fs.String("monor", string(Res400p), "mono camera resolution (400p, 720p, 800p)")
	monoFPS := fs.Float64("monof", 30, "mono camera fps")

	disableDepth := fs.Bool("dd", false, "disable the stereo depth branch")
	median := fs.Int("med", int(Median7x7), "depth median filter kernel (0, 3, 5, 7)")
	confidence := fs.Int("dct", 245, "disparity confidence threshold (0-255)")
	sigma := fs.Int("sig", 0, "bilateral filter sigma (0-250)")
	lrCheck := fs.Bool("lrc", false, "enable left-right consistency check")
	lrcThreshold := fs.Int("lrct", 4, "LR-check disparity threshold (0-10)")
	extended := fs.Bool("ext", false, "enable extended disparity range")
	subpixel := fs.Bool("sub", false, "enable subpixel disparity precision")
	minDepth := fs.Int("mind", 100, "minimum depth for spatial calculations (mm)")
	maxDepth := fs.Int("maxd", 10000, "maximum depth for spatial calculations (mm)")

	model := fs.String("cnn", "mobilenet-ssd", "neural network model name")
	modelDir := fs.String("cnnp", "resources/nn", "directory holding model files")
	disableNN := fs.Bool("dnn", false, "disable the neural network stage")
	countLabel := fs.String("count", "", "label to count on screen")
	disableFullFOV := fs.Bool("dff", false, "crop instead of letterboxing the NN input")

	encode := fs.String("enc", "", "comma separated camera streams to encode")
	encodeFPS := fs.Float64("encfps", 30, "encode fps")
	encodeOut := fs.String("encout", ".", "directory for encoded output files")

	report := fs.String("report", "", "comma separated system report types (temp, cpu, memory)")
	reportFile := fs.String("reportFile", "", "append report rows to this CSV file instead of the log")
	reportInterval := fs.Duration("reportInterval", time.Second, "interval between report samples")

	broker := fs.String("mqtt", "", "MQTT broker for the remote control surface (host:port)")

	cameraControls := fs.Bool("cc", false, "enable keyboard camera controls")
	exposure := fs.Int("cexp", -1, "initial manual exposure, us (1-33000)")
	sensitivity := fs.Int("csens", -1, "initial manual sensitivity, ISO (100-1600)")
	saturation := fs.Int("csat", -100, "initial saturation (-10..10)")
	contrast := fs.Int("ccont", -100, "initial contrast (-10..10)")
	brightness := fs.Int("cbri", -100, "initial brightness (-10..10)")
	sharpness := fs.Int("csharp", -1, "initial sharpness (0-4)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configPath != "" {
		loaded, err := Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Only explicitly set flags override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dev":
			cfg.DeviceID = *deviceID
		case "vid":
			cfg.VideoPath = *videoPath
		case "cam":
			cfg.Source = *source
		case "show":
			cfg.Show = splitList(*show)
		case "sync":
			cfg.Sync = *sync
		case "debug":
			cfg.Debug = *debug
		case "rgbr":
			cfg.RGB.Resolution = Resolution(*rgbRes)
		case "rgbf":
			cfg.RGB.FPS = *rgbFPS
		case "monor":
			cfg.Mono.Resolution = Resolution(*monoRes)
		case "monof":
			cfg.Mono.FPS = *monoFPS
		case "dd":
			cfg.Depth.Enabled = !*disableDepth
		case "med":
			cfg.Depth.Median = MedianFilter(*median)
		case "dct":
			cfg.Depth.Confidence = *confidence
		case "sig":
			cfg.Depth.Sigma = *sigma
		case "lrc":
			cfg.Depth.LRCheck = *lrCheck
		case "lrct":
			cfg.Depth.LRCThreshold = *lrcThreshold
		case "ext":
			cfg.Depth.Extended = *extended
		case "sub":
			cfg.Depth.Subpixel = *subpixel
		case "mind":
			cfg.Depth.MinDepth = *minDepth
		case "maxd":
			cfg.Depth.MaxDepth = *maxDepth
		case "cnn":
			cfg.NN.Model = *model
		case "cnnp":
			cfg.NN.ModelDir = *modelDir
		case "dnn":
			cfg.NN.Enabled = !*disableNN
		case "count":
			cfg.NN.CountLabel = *countLabel
		case "dff":
			cfg.NN.FullFOV = !*disableFullFOV
		case "enc":
			streams := make(map[string]float64)
			for _, s := range splitList(*encode) {
				streams[s] = *encodeFPS
			}
			cfg.Encode.Streams = streams
		case "encout":
			cfg.Encode.OutputDir = *encodeOut
		case "report":
			cfg.Report.Types = splitList(*report)
		case "reportFile":
			cfg.Report.File = *reportFile
		case "reportInterval":
			cfg.Report.Interval = *reportInterval
		case "mqtt":
			cfg.MQTT.Broker = *broker
		case "cc":
			cfg.Tuning.Controls = *cameraControls
		case "cexp":
			cfg.Tuning.Exposure = flagValue(*exposure, -1)
		case "csens":
			cfg.Tuning.Sensitivity = flagValue(*sensitivity, -1)
		case "csat":
			cfg.Tuning.Saturation = flagValue(*saturation, -100)
		case "ccont":
			cfg.Tuning.Contrast = flagValue(*contrast, -100)
		case "cbri":
			cfg.Tuning.Brightness = flagValue(*brightness, -100)
		case "csharp":
			cfg.Tuning.Sharpness = flagValue(*sharpness, -1)
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// flagValue maps the "unset" sentinel back to nil (automatic mode).
func flagValue(v, unset int) *int {
	if v == unset {
		return nil
	}
	return intp(v)
}
