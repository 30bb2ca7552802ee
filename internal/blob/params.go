// Package blob turns a model's foreground probability raster into the
// mask set and intensity statistics of one ROI: a filled foreground
// mask gated by contour area, a loose geometric background, and a
// strict eroded background, plus the rendered inspection overlay.
package blob

// Params holds the tunables of mask synthesis and sampling.
type Params struct {
	// Cutoff binarizes the 0-255 probability raster. Values strictly
	// above it count as foreground candidates.
	Cutoff int

	// Area gate for candidate contours, in px^2, both bounds
	// exclusive. The lower bound rejects specks and ragged threshold
	// noise, the upper bound rejects frame-sized false positives.
	AreaMin float64
	AreaMax float64

	// Padding is the border inset of the loose background rectangle,
	// and doubles as the erosion depth that derives the strict mask.
	Padding int

	// GrowIterations dilates the foreground before intensity sampling
	// so the sampled patch covers the blob's faded rim.
	GrowIterations int
}

// DefaultParams returns the parameters the extraction pipeline was
// calibrated with.
func DefaultParams() Params {
	return Params{
		Cutoff:         180,
		AreaMin:        1000,
		AreaMax:        50000,
		Padding:        5,
		GrowIterations: 2,
	}
}

// WithCutoff returns a copy of params with the binarization cutoff
// replaced.
func (p Params) WithCutoff(cutoff int) Params {
	p.Cutoff = cutoff
	return p
}
