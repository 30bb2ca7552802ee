// Command blobnn measures the intensity of semen patch blobs in
// previously extracted ROI images, locating each blob with a
// pretrained segmentation network. It maintains the raw.tsv and
// stats.tsv ledgers beside the input manifest, regenerating only the
// processed uid range on every run and carrying all other rows
// forward.
//
// Usage: blobnn [options] SOURCE
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/yang-z-03/spblob/internal/analyze"
	"github.com/yang-z-03/spblob/internal/blob"
	"github.com/yang-z-03/spblob/internal/logging"
	"github.com/yang-z-03/spblob/internal/roi"
	"github.com/yang-z-03/spblob/internal/segment"
	"github.com/yang-z-03/spblob/internal/version"
)

var (
	flagStart   = flag.Int("start", 1, "starting index (included) of the uid")
	flagEnd     = flag.Int("end", math.MaxInt32-10, "ending index (included) of the uid")
	flagCutoff  = flag.Int("cutoff", blob.DefaultParams().Cutoff, "prediction grayscale cutoff for the foreground mask")
	flagModel   = flag.String("model", "", "path to the exported segmentation model (*.onnx)")
	flagDevice  = flag.String("device", "cpu", "inference device: cpu or cuda")
	flagVerbose = flag.Bool("verbose", false, "emit per-contour debug output")
	flagVersion = flag.Bool("version", false, "print the version and exit")
)

func init() {
	// Shorthands kept compatible with the earlier releases.
	flag.IntVar(flagStart, "m", 1, "shorthand for -start")
	flag.IntVar(flagEnd, "n", math.MaxInt32-10, "shorthand for -end")
	flag.IntVar(flagCutoff, "c", blob.DefaultParams().Cutoff, "shorthand for -cutoff")
	flag.StringVar(flagModel, "t", "", "shorthand for -model")
	flag.BoolVar(flagVerbose, "v", false, "shorthand for -verbose")
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *flagVersion {
		fmt.Println(version.String("blobnn"))
		return
	}
	if flag.NArg() > 1 {
		usage()
		os.Exit(1)
	}
	source := "."
	if flag.NArg() == 1 {
		source = flag.Arg(0)
	}

	log := logging.New(*flagVerbose)

	if *flagModel == "" {
		fmt.Fprintln(os.Stderr, "a segmentation model path is required (-model)")
		usage()
		os.Exit(1)
	}

	device, err := segment.ParseDevice(*flagDevice)
	if err != nil {
		log.Fatal().Err(err).Msg("bad device selection")
	}

	log.Info().Str("path", *flagModel).Msg("loading segmentation model")
	net, err := segment.LoadNet(*flagModel, device)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the segmentation model")
	}
	defer net.Close()
	log.Info().Str("device", device.String()).Msg("model ready")

	begun := time.Now()
	report, err := analyze.Run(analyze.Options{
		Tree:      roi.Tree{Root: source},
		Start:     *flagStart,
		End:       *flagEnd,
		Params:    blob.DefaultParams().WithCutoff(*flagCutoff),
		Segmenter: net,
		Log:       logging.For(log, "analyze"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	log.Info().
		Int("processed", report.Processed).
		Int("failed", report.FailedDetections).
		Int("stats_rows", report.StatsRows).
		Int("raw_carried", report.Counts.RawCarried).
		Int("stats_carried", report.Counts.StatsCarried).
		Int("max_uid", report.MaxUID).
		Float64("seconds", time.Since(begun).Seconds()).
		Msg("run complete")

	for _, s := range report.Samples {
		log.Info().
			Int("sample", s.SampleID).
			Str("name", s.Name).
			Int("rows", s.Rows).
			Float64("mean_log_abs", s.MeanLogAbs).
			Float64("sd_log_abs", s.StdDevLogAbs).
			Msg("sample summary")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: blobnn [options] SOURCE\n\n")
	fmt.Fprintf(os.Stderr, "Measure semen patch blob intensity over a blobroi output directory.\n")
	fmt.Fprintf(os.Stderr, "SOURCE defaults to the current directory.\n\nOptions:\n")
	flag.PrintDefaults()
}
