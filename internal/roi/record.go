package roi

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Record is one row of the rois.tsv manifest. The uid is the sole
// identity key across runs; rows are expected in non-decreasing uid
// order, inherited from the upstream writer.
type Record struct {
	UID        int
	Filename   string // originating scan file, carried through verbatim
	SampleID   int
	SampleName string
	Detected   bool // upstream blob detection succeeded
	ScaleOK    bool // scale-bar calibration succeeded
	ScaleDark  int
	ScaleLight int
}

// ScanResult is the outcome of one manifest pass.
type ScanResult struct {
	Records   []Record // rows with start <= uid <= end, in manifest order
	MaxUID    int      // highest uid seen in any well-formed row
	Skipped   int      // well-formed rows outside [start, end]
	Malformed int      // rows dropped with a diagnostic
}

// ScanManifest reads the manifest and returns the records whose uid
// falls inside [start, end], both inclusive. Blank lines are ignored;
// malformed rows are dropped with a warning rather than aborting the
// batch.
func ScanManifest(path string, start, end int, log zerolog.Logger) (ScanResult, error) {
	var res ScanResult

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			res.Malformed++
			log.Warn().Err(err).Int("line", lineno).Msg("dropping malformed manifest row")
			continue
		}

		if rec.UID > res.MaxUID {
			res.MaxUID = rec.UID
		}
		if rec.UID < start || rec.UID > end {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read manifest: %w", err)
	}
	return res, nil
}

// parseRecord splits one manifest row into a Record. The upstream
// writer terminates every column with a tab, so a single trailing
// empty field is tolerated.
func parseRecord(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) == 9 && fields[8] == "" {
		fields = fields[:8]
	}
	if len(fields) != 8 {
		return Record{}, fmt.Errorf("expected 8 columns, got %d", len(fields))
	}

	uid, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("uid column: %w", err)
	}
	sid, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("sample id column: %w", err)
	}
	dark, err := strconv.Atoi(fields[6])
	if err != nil {
		return Record{}, fmt.Errorf("scale dark column: %w", err)
	}
	light, err := strconv.Atoi(fields[7])
	if err != nil {
		return Record{}, fmt.Errorf("scale light column: %w", err)
	}

	return Record{
		UID:        uid,
		Filename:   fields[1],
		SampleID:   sid,
		SampleName: fields[3],
		Detected:   flagSet(fields[4]),
		ScaleOK:    flagSet(fields[5]),
		ScaleDark:  dark,
		ScaleLight: light,
	}, nil
}

// flagSet reports whether a manifest marker column is set. The writer
// uses "x" for set and "." for clear; only the first byte counts.
func flagSet(field string) bool {
	return len(field) > 0 && field[0] == 'x'
}
