package segment

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// Net wraps an ONNX export of the segmentation model loaded through
// OpenCV's DNN module.
type Net struct {
	net    gocv.Net
	device Device
}

// LoadNet reads the model file and pins it to the requested device.
// The file must be an ONNX export; the TorchScript training artifact
// has to be converted before use.
func LoadNet(path string, device Device) (*Net, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("model file %s did not load as an ONNX network", path)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if device == DeviceCUDA {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("select %s backend: %w", device, err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("select %s target: %w", device, err)
	}

	return &Net{net: net, device: device}, nil
}

// Device returns the compute target the network was pinned to.
func (n *Net) Device() Device { return n.device }

// Close releases the network.
func (n *Net) Close() error { return n.net.Close() }

// Predict runs the network on one grayscale ROI and returns the
// probability raster as an 8-bit image of the same size.
//
// The model was trained on polarity-reversed blobs, so the ROI is
// inverted before it is packed into a 1x1xHxW float tensor of raw
// byte values (no mean subtraction, no resize). The single-channel
// output plane is scaled from [0,1] to [0,255] and saturated into
// 8-bit range.
func (n *Net) Predict(roi gocv.Mat) (gocv.Mat, error) {
	if roi.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty input image")
	}

	inv := gocv.NewMat()
	defer inv.Close()
	gocv.BitwiseNot(roi, &inv)

	blob := gocv.BlobFromImage(inv, 1.0, image.Pt(roi.Cols(), roi.Rows()),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	if out.Total() != roi.Rows()*roi.Cols() {
		return gocv.NewMat(), fmt.Errorf("model output has %d values for a %dx%d input",
			out.Total(), roi.Cols(), roi.Rows())
	}

	plane := out.Reshape(1, roi.Rows())
	defer plane.Close()
	plane.MultiplyFloat(255)

	prob := gocv.NewMat()
	plane.ConvertTo(&prob, gocv.MatTypeCV8U)
	return prob, nil
}
