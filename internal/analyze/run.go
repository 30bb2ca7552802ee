// Package analyze drives one batch run: scan the manifest, push every
// in-range ROI through inference and mask synthesis, write the
// per-ROI artifacts, and commit the regenerated ledgers.
package analyze

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"github.com/yang-z-03/spblob/internal/blob"
	"github.com/yang-z-03/spblob/internal/ledger"
	"github.com/yang-z-03/spblob/internal/roi"
	"github.com/yang-z-03/spblob/internal/segment"
)

// Options configures one run.
type Options struct {
	Tree      roi.Tree
	Start     int // first uid processed, inclusive
	End       int // last uid processed, inclusive
	Params    blob.Params
	Segmenter segment.Segmenter
	Log       zerolog.Logger
}

// SampleSummary aggregates the stats rows of one sample id.
type SampleSummary struct {
	SampleID     int
	Name         string
	Rows         int
	MeanLogAbs   float64
	StdDevLogAbs float64
}

// Report is the outcome of one run.
type Report struct {
	Processed        int // in-range records handled
	FailedDetections int
	MissingSources   int
	StatsRows        int
	Skipped          int // manifest rows outside the uid range
	Malformed        int
	MaxUID           int // highest uid across manifest and prior ledgers
	Counts           ledger.CommitCounts
	Samples          []SampleSummary
}

type sampleAcc struct {
	name   string
	logAbs []float64
}

// Run executes the batch. Input validation happens before any ledger
// file is opened for writing, and the ledgers are only rewritten after
// every ROI went through, so an aborted run leaves the prior files
// intact.
func Run(opts Options) (*Report, error) {
	log := opts.Log

	if err := opts.Tree.Check(); err != nil {
		return nil, err
	}
	scan, err := roi.ScanManifest(opts.Tree.ManifestPath(), opts.Start, opts.End, log)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("records", len(scan.Records)).
		Int("skipped", scan.Skipped).
		Int("malformed", scan.Malformed).
		Msg("manifest scanned")

	merger := ledger.NewMerger(opts.Tree.RawLedgerPath(), opts.Tree.StatsLedgerPath(), log)
	if err := merger.Load(); err != nil {
		return nil, err
	}
	if err := opts.Tree.EnsureOutputDirs(); err != nil {
		return nil, err
	}

	report := &Report{
		Skipped:   scan.Skipped,
		Malformed: scan.Malformed,
		MaxUID:    scan.MaxUID,
	}
	if prior := merger.MaxPriorUID(); prior > report.MaxUID {
		report.MaxUID = prior
	}

	var rawRows, statsRows []ledger.Entry
	samples := make(map[int]*sampleAcc)

	for _, rec := range scan.Records {
		meas, missing, err := processRecord(opts, rec)
		if err != nil {
			return nil, fmt.Errorf("uid %d: %w", rec.UID, err)
		}
		report.Processed++
		if !rec.Detected {
			report.FailedDetections++
		}
		if missing {
			report.MissingSources++
		}

		rawRows = append(rawRows, ledger.Entry{UID: rec.UID, Line: blob.RawLine(rec, meas)})
		if line, ok := blob.StatsLine(rec, meas); ok {
			statsRows = append(statsRows, ledger.Entry{UID: rec.UID, Line: line})
			report.StatsRows++

			acc := samples[rec.SampleID]
			if acc == nil {
				acc = &sampleAcc{name: rec.SampleName}
				samples[rec.SampleID] = acc
			}
			acc.logAbs = append(acc.logAbs, meas.LogAbs())
		}
	}

	counts, err := merger.Commit(rawRows, statsRows, opts.Start, opts.End)
	if err != nil {
		return nil, err
	}
	report.Counts = counts
	report.Samples = summarize(samples)
	return report, nil
}

// processRecord takes one record through inference, mask synthesis,
// measurement, and the two image side effects. The bool reports a
// detected record whose source image could not be read.
func processRecord(opts Options, rec roi.Record) (blob.Measurement, bool, error) {
	log := opts.Log

	if !rec.Detected {
		log.Warn().Int("uid", rec.UID).Msg("upstream detection failed")
		masks := blob.Placeholder()
		defer masks.Close()

		empty := gocv.NewMat()
		defer empty.Close()
		meas := blob.Measure(empty, masks, opts.Params)

		writeArtifacts(opts, rec.UID, masks.Probability, masks.Probability)
		return meas, false, nil
	}

	img := opts.Tree.LoadSource(rec.UID)
	defer img.Close()
	if img.Empty() {
		log.Warn().Int("uid", rec.UID).Str("path", opts.Tree.SourcePath(rec.UID)).
			Msg("source image missing, recording empty masks")
		masks := blob.Placeholder()
		defer masks.Close()
		meas := blob.Measure(img, masks, opts.Params)
		writeArtifacts(opts, rec.UID, masks.Probability, masks.Probability)
		return meas, true, nil
	}

	begun := time.Now()
	prob, err := opts.Segmenter.Predict(img)
	if err != nil {
		return blob.Measurement{}, false, fmt.Errorf("inference: %w", err)
	}

	masks := blob.Synthesize(prob, opts.Params)
	defer masks.Close()
	for i, c := range masks.Contours {
		log.Debug().
			Int("uid", rec.UID).
			Int("contour", i).
			Float64("area", c.Area).
			Bool("accepted", c.Accepted).
			Msg("contour area gate")
	}
	meas := blob.Measure(img, masks, opts.Params)

	overlay := blob.RenderOverlay(img, masks)
	defer overlay.Close()
	writeArtifacts(opts, rec.UID, overlay, masks.Probability)

	log.Info().
		Int("uid", rec.UID).
		Bool("foreground", meas.HasForeground).
		Float64("seconds", time.Since(begun).Seconds()).
		Msg("processed detection")
	return meas, false, nil
}

// writeArtifacts stores the overlay and the probability raster for a
// uid. A failed image write is reported but does not stop the batch.
func writeArtifacts(opts Options, uid int, overlay, prob gocv.Mat) {
	if !gocv.IMWrite(opts.Tree.AnnotPath(uid), overlay) {
		opts.Log.Warn().Int("uid", uid).Msg("could not write overlay image")
	}
	if !gocv.IMWrite(opts.Tree.MaskPath(uid), prob) {
		opts.Log.Warn().Int("uid", uid).Msg("could not write mask image")
	}
}

// summarize folds the per-sample accumulators into ordered summaries.
func summarize(samples map[int]*sampleAcc) []SampleSummary {
	ids := make([]int, 0, len(samples))
	for id := range samples {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]SampleSummary, 0, len(ids))
	for _, id := range ids {
		acc := samples[id]
		s := SampleSummary{
			SampleID:   id,
			Name:       acc.name,
			Rows:       len(acc.logAbs),
			MeanLogAbs: stat.Mean(acc.logAbs, nil),
		}
		if len(acc.logAbs) > 1 {
			s.StdDevLogAbs = stat.StdDev(acc.logAbs, nil)
		}
		out = append(out, s)
	}
	return out
}
