package blob

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	maskOn  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	maskOff = color.RGBA{}
)

// Contour is one boundary extracted from the binarized probability
// raster, kept in hierarchy order.
type Contour struct {
	Points   []image.Point
	Area     float64
	Accepted bool // passed the area gate and joined the foreground
}

// MaskSet carries the rasters derived from one ROI. All four planes
// share the ROI's size, except for the 3x3 placeholders recorded when
// upstream detection failed.
type MaskSet struct {
	Probability   gocv.Mat // 8-bit model output
	Foreground    gocv.Mat // union of accepted contours, filled
	Loose         gocv.Mat // inset border rectangle minus exclusions
	Strict        gocv.Mat // loose mask eroded away from every boundary
	HasForeground bool
	Contours      []Contour
}

// Placeholder returns the degenerate all-black mask set recorded for
// ROIs whose upstream detection failed.
func Placeholder() MaskSet {
	return MaskSet{
		Probability: gocv.Zeros(3, 3, gocv.MatTypeCV8U),
		Foreground:  gocv.Zeros(3, 3, gocv.MatTypeCV8U),
		Loose:       gocv.Zeros(3, 3, gocv.MatTypeCV8U),
		Strict:      gocv.Zeros(3, 3, gocv.MatTypeCV8U),
	}
}

// Close releases every plane of the set.
func (m *MaskSet) Close() {
	m.Probability.Close()
	m.Foreground.Close()
	m.Loose.Close()
	m.Strict.Close()
}

// Synthesize builds the mask set for one ROI from its probability
// raster. It takes ownership of prob, which becomes the set's
// Probability plane.
func Synthesize(prob gocv.Mat, p Params) MaskSet {
	rows, cols := prob.Rows(), prob.Cols()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(prob, &binary, float32(p.Cutoff), 255, gocv.ThresholdBinary)

	// The full hierarchy keeps inner boundaries: a model may report a
	// hollow blob as two nested contours, and both count.
	contours := gocv.FindContours(binary, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	set := MaskSet{
		Probability: prob,
		Foreground:  gocv.Zeros(rows, cols, gocv.MatTypeCV8U),
		Loose:       gocv.Zeros(rows, cols, gocv.MatTypeCV8U),
	}

	// The loose background starts as the border-inset rectangle and
	// loses territory to every accepted contour.
	inset := image.Rect(p.Padding, p.Padding, cols-p.Padding, rows-p.Padding)
	gocv.Rectangle(&set.Loose, inset, maskOn, -1)

	for i := 0; i < contours.Size(); i++ {
		cnt := contours.At(i)
		area := gocv.ContourArea(cnt)
		accepted := area > p.AreaMin && area < p.AreaMax

		if accepted {
			set.HasForeground = true
			gocv.DrawContours(&set.Foreground, contours, i, maskOn, -1)

			// Carve the contour's own region out of the loose
			// background, along with the full-height band from its
			// right edge to the image border; the extraction crops
			// keep a dark separator line on that side.
			bounds := gocv.BoundingRect(cnt)
			band := image.Rect(bounds.Max.X, 0, cols, rows)
			gocv.Rectangle(&set.Loose, band, maskOff, -1)
			gocv.DrawContours(&set.Loose, contours, i, maskOff, -1)
		}

		set.Contours = append(set.Contours, Contour{
			Points:   cnt.ToPoints(),
			Area:     area,
			Accepted: accepted,
		})
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	set.Strict = gocv.NewMat()
	set.Loose.CopyTo(&set.Strict)
	for i := 0; i < p.Padding; i++ {
		gocv.Erode(set.Strict, &set.Strict, kernel)
	}

	return set
}
