// Package thermometry is the boundary to the external multi-echo thermometry
// routine. The routine itself (phase unwrapping, temperature conversion,
// region statistics, bootstrap resampling) is not implemented here; this
// package builds its invocation and decodes its report.
package thermometry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// Method selects how the external routine computes its statistics.
type Method string

const (
	// Regionwise computes one temperature estimate per segmentation region.
	Regionwise Method = "regionwise"

	// Voxelwise computes a per-voxel temperature map.
	Voxelwise Method = "voxelwise"

	// RegionwiseBootstrap is Regionwise with bootstrap-resampled
	// confidence intervals.
	RegionwiseBootstrap Method = "regionwise_bootstrap"
)

// ParseMethod validates a method name from the command line.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case Regionwise, Voxelwise, RegionwiseBootstrap:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown method %q (expected %s, %s or %s)",
		s, Regionwise, Voxelwise, RegionwiseBootstrap)
}

// Request describes one invocation of the routine: all series of a single run.
//
// ImageFiles and EchoTimeFiles correspond by index; the routine pairs them
// positionally, not by name.
type Request struct {
	// ImageFiles are the multi-echo imaging volumes, one per series.
	ImageFiles []string

	// EchoTimeFiles are the echo-time text files (seconds, one value per
	// line), one per series, in the same order as ImageFiles.
	EchoTimeFiles []string

	// SegmentationFile is the segmentation mask shared by the run.
	SegmentationFile string

	// OutputPrefix prefixes every file the routine writes, report included.
	OutputPrefix string

	// Method selects the statistics mode.
	Method Method

	// Bootstrap is the resampling iteration count. Only meaningful for
	// RegionwiseBootstrap.
	Bootstrap int
}

// Validate rejects requests that would fail inside the external routine for
// reasons this pipeline can detect up front. An empty image path in
// particular means a series had no matching sidecar.
func (r *Request) Validate() error {
	if len(r.ImageFiles) == 0 {
		return fmt.Errorf("no image files")
	}
	if len(r.ImageFiles) != len(r.EchoTimeFiles) {
		return fmt.Errorf("%d image files but %d echo-time files",
			len(r.ImageFiles), len(r.EchoTimeFiles))
	}
	for i, f := range r.ImageFiles {
		if f == "" {
			return fmt.Errorf("image file %d is unset (series had no matching sidecar)", i)
		}
	}
	if r.SegmentationFile == "" {
		return fmt.Errorf("segmentation file is unset")
	}
	if r.Method == RegionwiseBootstrap && r.Bootstrap <= 0 {
		return fmt.Errorf("bootstrap method requires a positive iteration count, got %d", r.Bootstrap)
	}
	return nil
}

// RegionResult is one region's estimate within a report.
type RegionResult struct {
	// RegionID is the segmentation label the statistics were computed over.
	RegionID int `json:"region_id"`

	// Temperature is the mean region temperature in degrees Celsius.
	Temperature float64 `json:"temperature"`

	// Uncertainty and Interval are the routine's error estimates for the
	// region; their exact meaning depends on the method.
	Uncertainty float64 `json:"uncertainty"`
	Interval    float64 `json:"interval"`
}

// Report is the routine's decoded output for one run.
type Report struct {
	// Regions holds one result per segmentation region.
	Regions []RegionResult `json:"regions"`

	// AcquisitionTimes holds one timestamp string per input image, in input
	// order, formatted as 2006-01-02T15:04:05 with optional fractional
	// seconds.
	AcquisitionTimes []string `json:"acquisition_times"`
}

// Runner invokes the external thermometry routine for one run.
type Runner interface {
	Run(ctx context.Context, req *Request) (*Report, error)
}

// CommandRunner executes the routine as an external command and reads the
// JSON report it writes next to its other outputs.
type CommandRunner struct {
	// Command is the executable name or path.
	Command string
}

// NewCommandRunner creates a runner for the given executable.
func NewCommandRunner(command string) *CommandRunner {
	return &CommandRunner{Command: command}
}

// Run validates the request, executes the command and decodes
// <OutputPrefix>_report.json. Errors are returned as-is apart from context;
// there is no retry.
func (c *CommandRunner) Run(ctx context.Context, req *Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thermometry request: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Command, c.args(req)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("thermometry command failed: %w", err)
	}

	return ReadReport(ReportPath(req.OutputPrefix))
}

// args builds the command line. Image and echo-time files are interleaved as
// repeated --image/--te pairs so the routine receives them in matching order.
func (c *CommandRunner) args(req *Request) []string {
	args := []string{
		"--segmentation", req.SegmentationFile,
		"--method", string(req.Method),
		"--output-prefix", req.OutputPrefix,
	}
	if req.Method == RegionwiseBootstrap {
		args = append(args, "--n-bootstrap", fmt.Sprintf("%d", req.Bootstrap))
	}
	for i := range req.ImageFiles {
		args = append(args, "--image", req.ImageFiles[i], "--te", req.EchoTimeFiles[i])
	}
	return args
}

// ReportPath returns the report filename the routine writes for a prefix.
func ReportPath(outputPrefix string) string {
	return outputPrefix + "_report.json"
}

// ReadReport decodes a report file.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading thermometry report %s: %w", path, err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("error parsing thermometry report %s: %w", path, err)
	}
	return &report, nil
}
