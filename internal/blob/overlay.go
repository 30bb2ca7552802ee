package blob

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	foregroundColor = color.RGBA{R: 255} // accepted contours, solid red
	rejectColor     = color.RGBA{}       // gated-out contours, thin black
	looseTint       = color.RGBA{B: 255}
	strictTint      = color.RGBA{G: 255}
)

// RenderOverlay paints the inspection composite for one ROI: contour
// outlines over the grayscale base, then the three mask classes tinted
// blue (loose), green (strict) and red (foreground), each blended at
// 0.3 over the running image. Regions outside a mask keep 0.7 of their
// previous value per layer, so the composite darkens away from the
// masks; that is the calibrated look, not an artifact.
func RenderOverlay(img gocv.Mat, masks MaskSet) gocv.Mat {
	ol := gocv.NewMat()
	gocv.CvtColor(img, &ol, gocv.ColorGrayToBGR)

	if len(masks.Contours) > 0 {
		points := make([][]image.Point, len(masks.Contours))
		for i, c := range masks.Contours {
			points[i] = c.Points
		}
		pv := gocv.NewPointsVectorFromPoints(points)
		defer pv.Close()

		for i, c := range masks.Contours {
			if c.Accepted {
				gocv.DrawContours(&ol, pv, i, foregroundColor, 2)
			} else {
				gocv.DrawContours(&ol, pv, i, rejectColor, 1)
			}
		}
	}

	blendTint(&ol, masks.Loose, looseTint)
	blendTint(&ol, masks.Strict, strictTint)
	blendTint(&ol, masks.Foreground, foregroundColor)
	return ol
}

// blendTint mixes a solid tint, limited to mask, into the composite.
func blendTint(ol *gocv.Mat, mask gocv.Mat, tint color.RGBA) {
	if mask.Empty() || mask.Rows() != ol.Rows() || mask.Cols() != ol.Cols() {
		return
	}

	solid := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(tint.B), float64(tint.G), float64(tint.R), 0),
		ol.Rows(), ol.Cols(), gocv.MatTypeCV8UC3)
	defer solid.Close()

	masked := gocv.Zeros(ol.Rows(), ol.Cols(), gocv.MatTypeCV8UC3)
	defer masked.Close()
	gocv.BitwiseAndWithMask(solid, solid, &masked, mask)

	gocv.AddWeighted(masked, 0.3, *ol, 0.7, 0, ol)
}
