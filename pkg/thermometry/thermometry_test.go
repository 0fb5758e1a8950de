package thermometry

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func validRequest() *Request {
	return &Request{
		ImageFiles:       []string{"a.nii.gz", "b.nii.gz"},
		EchoTimeFiles:    []string{"a_te_s.txt", "b_te_s.txt"},
		SegmentationFile: "segmentation.nii.gz",
		OutputPrefix:     "run-01_thermometry",
		Method:           Regionwise,
	}
}

func TestParseMethod(t *testing.T) {
	for _, valid := range []string{"regionwise", "voxelwise", "regionwise_bootstrap"} {
		if _, err := ParseMethod(valid); err != nil {
			t.Errorf("ParseMethod(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseMethod("pixelwise"); err == nil {
		t.Error("Expected error for unknown method")
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr bool
	}{
		{"valid", func(r *Request) {}, false},
		{"no images", func(r *Request) { r.ImageFiles = nil }, true},
		{"length mismatch", func(r *Request) { r.EchoTimeFiles = r.EchoTimeFiles[:1] }, true},
		{"unset image path", func(r *Request) { r.ImageFiles[1] = "" }, true},
		{"missing segmentation", func(r *Request) { r.SegmentationFile = "" }, true},
		{"bootstrap without count", func(r *Request) { r.Method = RegionwiseBootstrap }, true},
		{"bootstrap with count", func(r *Request) { r.Method = RegionwiseBootstrap; r.Bootstrap = 100 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommandRunnerArgs(t *testing.T) {
	runner := NewCommandRunner("multiecho-thermometry")

	t.Run("Regionwise", func(t *testing.T) {
		got := runner.args(validRequest())
		want := []string{
			"--segmentation", "segmentation.nii.gz",
			"--method", "regionwise",
			"--output-prefix", "run-01_thermometry",
			"--image", "a.nii.gz", "--te", "a_te_s.txt",
			"--image", "b.nii.gz", "--te", "b_te_s.txt",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("args = %v, want %v", got, want)
		}
	})

	t.Run("BootstrapCountOnlyInBootstrapMode", func(t *testing.T) {
		req := validRequest()
		req.Bootstrap = 100
		for _, arg := range runner.args(req) {
			if arg == "--n-bootstrap" {
				t.Fatal("--n-bootstrap must not appear outside bootstrap mode")
			}
		}

		req.Method = RegionwiseBootstrap
		got := runner.args(req)
		found := false
		for i, arg := range got {
			if arg == "--n-bootstrap" {
				found = true
				if i+1 >= len(got) || got[i+1] != "100" {
					t.Errorf("Expected --n-bootstrap 100, got %v", got)
				}
			}
		}
		if !found {
			t.Errorf("--n-bootstrap missing from %v", got)
		}
	})
}

func TestReadReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run-01_thermometry_report.json")
	content := `{
		"regions": [
			{"region_id": 1, "temperature": 21.3, "uncertainty": 0.2, "interval": 0.4},
			{"region_id": 2, "temperature": 20.9, "uncertainty": 0.3, "interval": 0.5}
		],
		"acquisition_times": ["2024-01-01T00:00:00", "2024-01-01T00:10:00"]
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write report fixture: %v", err)
	}

	report, err := ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport failed: %v", err)
	}
	if len(report.Regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d", len(report.Regions))
	}
	if report.Regions[0].RegionID != 1 || report.Regions[0].Temperature != 21.3 {
		t.Errorf("Unexpected first region: %+v", report.Regions[0])
	}
	if len(report.AcquisitionTimes) != 2 {
		t.Fatalf("Expected 2 acquisition times, got %d", len(report.AcquisitionTimes))
	}
}

func TestReadReportErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		if _, err := ReadReport(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Fatal("Expected error for missing report")
		}
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.json")
		if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}
		if _, err := ReadReport(path); err == nil {
			t.Fatal("Expected error for malformed report")
		}
	})
}

func TestReportPath(t *testing.T) {
	if got := ReportPath("run-03_thermometry"); got != "run-03_thermometry_report.json" {
		t.Errorf("ReportPath = %q", got)
	}
}
