package blob

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/yang-z-03/spblob/internal/roi"
)

// Measurement is the intensity summary of one ROI under its mask set.
type Measurement struct {
	HasForeground  bool
	ForegroundMean float64 // mean intensity under the grown foreground; -1 without one
	ForegroundSize int     // nonzero pixels of the grown foreground; -1 without one
	StrictMean     float64 // mean intensity under the strict background
	LooseMean      float64 // mean intensity under the loose background
}

// Measure samples the ROI image under the mask set.
func Measure(img gocv.Mat, masks MaskSet, p Params) Measurement {
	m := Measurement{
		HasForeground:  masks.HasForeground,
		ForegroundMean: -1,
		ForegroundSize: -1,
	}

	if masks.HasForeground {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
		defer kernel.Close()

		grown := gocv.NewMat()
		defer grown.Close()
		masks.Foreground.CopyTo(&grown)
		for i := 0; i < p.GrowIterations; i++ {
			gocv.Dilate(grown, &grown, kernel)
		}

		m.ForegroundMean = maskedMean(img, grown)
		m.ForegroundSize = gocv.CountNonZero(grown)
	}

	m.StrictMean = maskedMean(img, masks.Strict)
	m.LooseMean = maskedMean(img, masks.Loose)
	return m
}

// maskedMean is the mean of src under mask, or 0 when the mask selects
// nothing or does not match src in size. Placeholder mask sets and
// missing source images both land in the 0 case.
func maskedMean(src, mask gocv.Mat) float64 {
	if src.Empty() || mask.Empty() {
		return 0
	}
	if src.Rows() != mask.Rows() || src.Cols() != mask.Cols() {
		return 0
	}
	if gocv.CountNonZero(mask) == 0 {
		return 0
	}
	return src.MeanWithMask(mask).Val1
}

// LogAbs is ln((strict - foreground) x size), the blot absorbance
// proxy the stats ledger tracks. Only meaningful when Gate passes.
func (m Measurement) LogAbs() float64 {
	return math.Log((m.StrictMean - m.ForegroundMean) * float64(m.ForegroundSize))
}

// Gate reports whether the record yields a stats row. Every quantity a
// logarithm is taken of must come out strictly positive, so a failed
// detection, a missing scale bar, or an inverted contrast all suppress
// the row without suppressing the raw one.
func Gate(rec roi.Record, m Measurement) bool {
	return rec.Detected && rec.ScaleOK && m.HasForeground &&
		m.ForegroundSize > 0 && m.ForegroundMean > 0 &&
		m.StrictMean-m.ForegroundMean > 0 &&
		rec.ScaleLight > 0 && rec.ScaleDark > 0 &&
		rec.ScaleLight > rec.ScaleDark &&
		m.LooseMean > 0 && m.StrictMean > 0
}

// RawLine formats the 13-column raw-ledger row for one record. It is
// emitted for every ROI, whatever the masks came out as.
func RawLine(rec roi.Record, m Measurement) string {
	return fmt.Sprintf("%d\t%s\t%d\t%s\t%s\t%s\t%s\t%.2f\t%d\t%.2f\t%.2f\t%d\t%d",
		rec.UID, rec.Filename, rec.SampleID, rec.SampleName,
		mark(rec.Detected), mark(rec.ScaleOK), mark(m.HasForeground),
		m.ForegroundMean, m.ForegroundSize, m.StrictMean, m.LooseMean,
		rec.ScaleDark, rec.ScaleLight)
}

// StatsLine formats the 12-column stats-ledger row, with the sample
// name in the trailing column. ok is false when the gate suppressed
// the row.
func StatsLine(rec roi.Record, m Measurement) (line string, ok bool) {
	if !Gate(rec, m) {
		return "", false
	}
	line = fmt.Sprintf("%d\t%s\t%d\t%.5f\t%.5f\t%.5f\t%.5f\t%.5f\t%.5f\t%.5f\t%.5f\t%s",
		rec.UID, rec.Filename, rec.SampleID,
		m.LogAbs(), // log.abs
		math.Log(float64(rec.ScaleLight-rec.ScaleDark)), // log.delta
		math.Log(float64(rec.ScaleLight)),               // log.light
		math.Log(float64(rec.ScaleDark)),                // log.dark
		math.Log(m.LooseMean),                           // log.back
		math.Log(m.StrictMean),                          // log.back.strict
		math.Log(m.ForegroundMean),                      // log.mean
		math.Log(float64(m.ForegroundSize)),             // log.sz
		rec.SampleName)
	return line, true
}

func mark(set bool) string {
	if set {
		return "x"
	}
	return "."
}
