// Package segment runs the pretrained blob-segmentation network over
// ROI images. The network is consumed through the narrow Segmenter
// interface so the mask pipeline can be driven with synthetic
// probability maps instead of a real backend.
package segment

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// Segmenter produces a foreground probability raster for a grayscale
// ROI. The result has the same width and height as the input; higher
// values mark likelier blob pixels on a 0-255 scale.
type Segmenter interface {
	Predict(roi gocv.Mat) (gocv.Mat, error)
}

// Device is the compute target the network runs on. It is chosen once
// at startup and held fixed for the whole run.
type Device int

const (
	DeviceCPU Device = iota
	DeviceCUDA
)

func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceCUDA:
		return "cuda"
	default:
		return "unknown"
	}
}

// ParseDevice maps a command-line device name to a Device. An empty
// name selects the CPU.
func ParseDevice(name string) (Device, error) {
	switch strings.ToLower(name) {
	case "", "cpu":
		return DeviceCPU, nil
	case "cuda", "gpu":
		return DeviceCUDA, nil
	default:
		return DeviceCPU, fmt.Errorf("unknown device %q (want cpu or cuda)", name)
	}
}
