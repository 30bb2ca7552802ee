// Command blobtest runs the blob segmentation pipeline on a single
// image and reports what mask synthesis makes of it. It exists to
// sanity-check a model export and a cutoff against one ROI without
// touching any ledger.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/yang-z-03/spblob/internal/blob"
	"github.com/yang-z-03/spblob/internal/segment"

	_ "golang.org/x/image/tiff"
)

func main() {
	imagePath := flag.String("image", "", "Path to an ROI image (TIFF, PNG, or JPEG)")
	modelPath := flag.String("model", "", "Path to the exported segmentation model (*.onnx)")
	deviceName := flag.String("device", "cpu", "Inference device: cpu or cuda")
	cutoff := flag.Int("cutoff", blob.DefaultParams().Cutoff, "Prediction grayscale cutoff")
	write := flag.Bool("write", false, "Write the overlay and probability map beside the input")
	flag.Parse()

	if *imagePath == "" || *modelPath == "" {
		fmt.Println("Usage: blobtest -image <path> -model <path> [-cutoff 180] [-device cpu|cuda] [-write]")
		os.Exit(1)
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}
	bounds := img.Bounds()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, bounds.Dx(), bounds.Dy())

	mat := grayMat(img)
	defer mat.Close()

	device, err := segment.ParseDevice(*deviceName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	net, err := segment.LoadNet(*modelPath, device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load model: %v\n", err)
		os.Exit(1)
	}
	defer net.Close()
	fmt.Printf("Model: %s on %s\n", *modelPath, device)

	prob, err := net.Predict(mat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inference failed: %v\n", err)
		os.Exit(1)
	}

	params := blob.DefaultParams().WithCutoff(*cutoff)
	masks := blob.Synthesize(prob, params)
	defer masks.Close()
	meas := blob.Measure(mat, masks, params)

	fmt.Printf("\nContours (cutoff %d, accepting %.0f..%.0f px^2):\n",
		params.Cutoff, params.AreaMin, params.AreaMax)
	if len(masks.Contours) == 0 {
		fmt.Println("  none")
	}
	for i, c := range masks.Contours {
		state := "rejected"
		if c.Accepted {
			state = "FOREGROUND"
		}
		fmt.Printf("  #%-3d area %9.1f  %s\n", i, c.Area, state)
	}

	fmt.Printf("\nMeasurement:\n")
	fmt.Printf("  foreground mean    %9.2f\n", meas.ForegroundMean)
	fmt.Printf("  foreground size    %9d px\n", meas.ForegroundSize)
	fmt.Printf("  strict background  %9.2f\n", meas.StrictMean)
	fmt.Printf("  loose background   %9.2f\n", meas.LooseMean)

	if *write {
		overlay := blob.RenderOverlay(mat, masks)
		defer overlay.Close()

		base := strings.TrimSuffix(*imagePath, filepath.Ext(*imagePath))
		annotPath, maskPath := base+".annot.jpg", base+".mask.jpg"
		if !gocv.IMWrite(annotPath, overlay) || !gocv.IMWrite(maskPath, masks.Probability) {
			fmt.Fprintln(os.Stderr, "Failed to write output images")
			os.Exit(1)
		}
		fmt.Printf("\nWrote %s and %s\n", annotPath, maskPath)
	}
}

// grayMat converts a decoded image to an 8-bit grayscale Mat.
func grayMat(src image.Image) gocv.Mat {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.GrayModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			mat.SetUCharAt(y, x, c.Y)
		}
	}
	return mat
}
