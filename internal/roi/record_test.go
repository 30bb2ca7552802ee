package roi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseRecord_WellFormedRow(t *testing.T) {
	rec, err := parseRecord("17\tscan-004.jpg\t3\tmouse-b\tx\t.\t12\t215")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if rec.UID != 17 || rec.Filename != "scan-004.jpg" || rec.SampleID != 3 {
		t.Fatalf("wrong identity fields: %+v", rec)
	}
	if rec.SampleName != "mouse-b" {
		t.Fatalf("wrong sample name: %q", rec.SampleName)
	}
	if !rec.Detected || rec.ScaleOK {
		t.Fatalf("wrong flags: detected=%v scaleok=%v", rec.Detected, rec.ScaleOK)
	}
	if rec.ScaleDark != 12 || rec.ScaleLight != 215 {
		t.Fatalf("wrong scale values: %d %d", rec.ScaleDark, rec.ScaleLight)
	}
}

func TestParseRecord_TrailingTab(t *testing.T) {
	// The upstream writer terminates every column with a tab, so a
	// ninth empty field must be tolerated.
	rec, err := parseRecord("5\ta.jpg\t1\ts\tx\tx\t10\t200\t")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if rec.UID != 5 || rec.ScaleLight != 200 {
		t.Fatalf("wrong record: %+v", rec)
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"too few columns", "5\ta.jpg\t1\ts\tx\tx\t10"},
		{"too many columns", "5\ta.jpg\t1\ts\tx\tx\t10\t200\textra"},
		{"uid not integer", "five\ta.jpg\t1\ts\tx\tx\t10\t200"},
		{"sample id not integer", "5\ta.jpg\tone\ts\tx\tx\t10\t200"},
		{"scale dark not integer", "5\ta.jpg\t1\ts\tx\tx\tdark\t200"},
		{"scale light not integer", "5\ta.jpg\t1\ts\tx\tx\t10\tlight"},
	}
	for _, tc := range cases {
		if _, err := parseRecord(tc.line); err == nil {
			t.Errorf("%s: expected parse error, got none", tc.name)
		}
	}
}

func TestScanManifest_RangeAndDiagnostics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rois.tsv")
	content := "1\ta.jpg\t1\ts1\tx\tx\t10\t200\t\n" +
		"\n" + // blank lines are skipped
		"5\tb.jpg\t1\ts1\tx\t.\t0\t0\t\n" +
		"not a row\n" +
		"9\tc.jpg\t2\ts2\t.\t.\t0\t0\t\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := ScanManifest(path, 2, 6, zerolog.Nop())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].UID != 5 {
		t.Fatalf("expected only uid 5 in range, got %+v", res.Records)
	}
	if res.Skipped != 2 {
		t.Fatalf("expected 2 skipped rows, got %d", res.Skipped)
	}
	if res.Malformed != 1 {
		t.Fatalf("expected 1 malformed row, got %d", res.Malformed)
	}
	if res.MaxUID != 9 {
		t.Fatalf("expected max uid 9 from the full scan, got %d", res.MaxUID)
	}
}

func TestScanManifest_MissingFile(t *testing.T) {
	_, err := ScanManifest(filepath.Join(t.TempDir(), "rois.tsv"), 1, 10, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error for a missing manifest")
	}
}

func TestTree_Paths(t *testing.T) {
	tree := Tree{Root: "out"}
	if got := tree.SourcePath(7); got != filepath.Join("out", "sources", "7.jpg") {
		t.Fatalf("wrong source path: %s", got)
	}
	if got := tree.AnnotPath(7); got != filepath.Join("out", "annots", "7.jpg") {
		t.Fatalf("wrong annot path: %s", got)
	}
	if got := tree.MaskPath(7); got != filepath.Join("out", "masks", "7.jpg") {
		t.Fatalf("wrong mask path: %s", got)
	}
}

func TestTree_EnsureOutputDirs(t *testing.T) {
	tree := Tree{Root: t.TempDir()}
	if err := tree.EnsureOutputDirs(); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	for _, sub := range []string{"annots", "masks"} {
		info, err := os.Stat(filepath.Join(tree.Root, sub))
		if err != nil || !info.IsDir() {
			t.Fatalf("%s not created: %v", sub, err)
		}
	}
	// Creating again over existing directories is a no-op.
	if err := tree.EnsureOutputDirs(); err != nil {
		t.Fatalf("second create failed: %v", err)
	}
}
