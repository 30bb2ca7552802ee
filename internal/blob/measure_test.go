package blob

import (
	"strings"
	"testing"

	"github.com/yang-z-03/spblob/internal/roi"
)

func passingRecord() roi.Record {
	return roi.Record{
		UID:        5,
		Filename:   "scan-001.jpg",
		SampleID:   1,
		SampleName: "mouse-a",
		Detected:   true,
		ScaleOK:    true,
		ScaleDark:  10,
		ScaleLight: 200,
	}
}

func passingMeasurement() Measurement {
	return Measurement{
		HasForeground:  true,
		ForegroundMean: 50,
		ForegroundSize: 2000,
		StrictMean:     150,
		LooseMean:      120,
	}
}

func TestGate_PassingCase(t *testing.T) {
	if !Gate(passingRecord(), passingMeasurement()) {
		t.Fatal("reference record must pass the gate")
	}
}

func TestGate_EachConditionSuppresses(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*roi.Record, *Measurement)
	}{
		{"detection failed", func(r *roi.Record, m *Measurement) { r.Detected = false }},
		{"scale failed", func(r *roi.Record, m *Measurement) { r.ScaleOK = false }},
		{"no foreground", func(r *roi.Record, m *Measurement) {
			m.HasForeground = false
			m.ForegroundMean = -1
			m.ForegroundSize = -1
		}},
		{"zero size", func(r *roi.Record, m *Measurement) { m.ForegroundSize = 0 }},
		{"zero mean", func(r *roi.Record, m *Measurement) { m.ForegroundMean = 0 }},
		{"contrast inverted", func(r *roi.Record, m *Measurement) { m.StrictMean = 40 }},
		{"zero light", func(r *roi.Record, m *Measurement) { r.ScaleLight = 0 }},
		{"zero dark", func(r *roi.Record, m *Measurement) { r.ScaleDark = 0 }},
		{"scale order inverted", func(r *roi.Record, m *Measurement) { r.ScaleDark = 250 }},
		{"zero loose mean", func(r *roi.Record, m *Measurement) { m.LooseMean = 0 }},
		{"equal strict and foreground", func(r *roi.Record, m *Measurement) { m.StrictMean = 50 }},
	}
	for _, tc := range cases {
		rec, m := passingRecord(), passingMeasurement()
		tc.mutate(&rec, &m)
		if Gate(rec, m) {
			t.Errorf("%s: gate must suppress the stats row", tc.name)
		}
	}
}

func TestRawLine_Columns(t *testing.T) {
	line := RawLine(passingRecord(), passingMeasurement())
	want := "5\tscan-001.jpg\t1\tmouse-a\tx\tx\tx\t50.00\t2000\t150.00\t120.00\t10\t200"
	if line != want {
		t.Fatalf("wrong raw line:\n got %q\nwant %q", line, want)
	}
}

func TestRawLine_FailedDetection(t *testing.T) {
	rec := roi.Record{UID: 7, Filename: "scan-002.jpg", SampleID: 2, SampleName: "mouse-b"}
	m := Measurement{ForegroundMean: -1, ForegroundSize: -1}
	line := RawLine(rec, m)
	want := "7\tscan-002.jpg\t2\tmouse-b\t.\t.\t.\t-1.00\t-1\t0.00\t0.00\t0\t0"
	if line != want {
		t.Fatalf("wrong raw line:\n got %q\nwant %q", line, want)
	}
	if _, ok := StatsLine(rec, m); ok {
		t.Fatal("failed detection must not yield a stats row")
	}
}

func TestStatsLine_WorkedExample(t *testing.T) {
	// (150-50) x 2000 = 200000, ln(200000) = 12.20607...
	line, ok := StatsLine(passingRecord(), passingMeasurement())
	if !ok {
		t.Fatal("gate should pass for the reference record")
	}

	fields := strings.Split(line, "\t")
	if len(fields) != 12 {
		t.Fatalf("expected 12 columns, got %d: %q", len(fields), line)
	}
	if fields[0] != "5" || fields[1] != "scan-001.jpg" || fields[2] != "1" {
		t.Fatalf("wrong identity columns: %v", fields[:3])
	}
	if fields[11] != "mouse-a" {
		t.Fatalf("sample name must be the trailing column, got %q", fields[11])
	}

	want := []string{
		"12.20607", // log.abs = ln(200000)
		"5.24702",  // log.delta = ln(190)
		"5.29832",  // log.light = ln(200)
		"2.30259",  // log.dark = ln(10)
		"4.78749",  // log.back = ln(120)
		"5.01064",  // log.back.strict = ln(150)
		"3.91202",  // log.mean = ln(50)
		"7.60090",  // log.sz = ln(2000)
	}
	for i, w := range want {
		if fields[3+i] != w {
			t.Errorf("column %d: got %s want %s", 3+i, fields[3+i], w)
		}
	}
}
