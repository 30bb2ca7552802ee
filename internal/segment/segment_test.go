package segment

import "testing"

func TestParseDevice(t *testing.T) {
	cases := []struct {
		name    string
		want    Device
		wantErr bool
	}{
		{"", DeviceCPU, false},
		{"cpu", DeviceCPU, false},
		{"CPU", DeviceCPU, false},
		{"cuda", DeviceCUDA, false},
		{"gpu", DeviceCUDA, false},
		{"tpu", DeviceCPU, true},
	}
	for _, tc := range cases {
		got, err := ParseDevice(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseDevice(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseDevice(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDevice_String(t *testing.T) {
	if DeviceCPU.String() != "cpu" || DeviceCUDA.String() != "cuda" {
		t.Fatalf("wrong device names: %s %s", DeviceCPU, DeviceCUDA)
	}
}

func TestLoadNet_MissingFile(t *testing.T) {
	if _, err := LoadNet("no-such-model.onnx", DeviceCPU); err == nil {
		t.Fatal("expected an error for a missing model file")
	}
}
