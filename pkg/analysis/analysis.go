// Package analysis implements the phantom thermometry pipeline: it joins the
// acquisition spreadsheet with the imaging sidecars, exports per-series
// echo-time files, invokes the external thermometry routine once per run and
// aggregates the per-region results into a time series.
package analysis

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"phantomtherm/internal/models"
	"phantomtherm/pkg/config"
	"phantomtherm/pkg/seriesinfo"
	"phantomtherm/pkg/sidecar"
	"phantomtherm/pkg/thermometry"
)

// AcquisitionTimeLayout is the timestamp format the thermometry routine
// reports. Fractional seconds after the seconds element are tolerated.
const AcquisitionTimeLayout = "2006-01-02T15:04:05"

// Params holds the pipeline configuration for one dataset.
type Params struct {
	// DataDir is the dataset directory holding the spreadsheet, the
	// sidecars, the imaging volumes and the segmentation mask.
	DataDir string

	// Method selects the thermometry statistics mode.
	Method thermometry.Method

	// Bootstrap is the resampling iteration count for the bootstrap method.
	Bootstrap int

	// Runner invokes the external thermometry routine.
	Runner thermometry.Runner

	// Config carries filenames and conventions; nil means defaults.
	Config *config.Config

	// Logger receives warnings and progress output; nil means stderr.
	// The pipeline configures no global logging state.
	Logger *log.Logger
}

// Pipeline runs the analysis for one dataset. Runs are processed one at a
// time; any error aborts the remaining runs and nothing is written.
type Pipeline struct {
	params *Params
	cfg    *config.Config
	logger *log.Logger

	// series holds the spreadsheet records, with image paths attached by
	// the matching stage
	series []*models.SeriesRecord

	// sidecars holds the JSON metadata records, sorted by path
	sidecars []*models.SidecarRecord

	// results accumulates one row per (run, region)
	results []models.ResultRow
}

// NewPipeline creates a pipeline instance with the provided parameters.
func NewPipeline(params *Params) *Pipeline {
	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := params.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Pipeline{
		params: params,
		cfg:    cfg,
		logger: logger,
	}
}

// Process executes the pipeline stages in order: load inputs, match sidecars,
// process runs. After a successful return, Results holds the full table.
func (p *Pipeline) Process(ctx context.Context) error {
	if err := p.loadInputs(); err != nil {
		return err
	}
	p.matchSidecars()
	return p.processRuns(ctx)
}

// Results returns the aggregated rows, ordered by run and then by the order
// regions appear in each run's report.
func (p *Pipeline) Results() []models.ResultRow {
	return p.results
}

// loadInputs reads the spreadsheet and scans the data directory for sidecars.
func (p *Pipeline) loadInputs() error {
	spreadsheet := filepath.Join(p.params.DataDir, p.cfg.Data.SpreadsheetName)
	series, err := seriesinfo.Load(spreadsheet)
	if err != nil {
		return err
	}

	sidecars, err := sidecar.LoadDirectory(p.params.DataDir)
	if err != nil {
		return err
	}

	p.series = series
	p.sidecars = sidecars
	p.logger.Printf("loaded %d series records and %d sidecars from %s",
		len(series), len(sidecars), p.params.DataDir)
	return nil
}

// matchSidecars attaches an image path to every series with a matching
// sidecar. A miss is a warning, not an error: the join is best-effort and the
// unset path is rejected later, when the series is actually used.
func (p *Pipeline) matchSidecars() {
	for _, sd := range p.series {
		sc, ok := sidecar.FindMatch(p.sidecars, sd.StudyID, sd.SeriesNo)
		if !ok {
			p.logger.Printf("warning: no matching sidecar for study %s, series %d",
				sd.StudyID, sd.SeriesNo)
			continue
		}
		sd.ImageFile = sidecar.ImagePath(sc, p.cfg.Data.ImagingExtension)
	}
}

// processRuns invokes the thermometry routine once per run, in ascending run
// order, and aggregates each report into result rows.
func (p *Pipeline) processRuns(ctx context.Context) error {
	groups := groupByRun(p.series)

	runs := make([]int, 0, len(groups))
	for run := range groups {
		runs = append(runs, run)
	}
	sort.Ints(runs)

	for _, run := range runs {
		if err := p.processRun(ctx, run, groups[run]); err != nil {
			return fmt.Errorf("run %d: %w", run, err)
		}
	}
	return nil
}

func (p *Pipeline) processRun(ctx context.Context, run int, runSeries []*models.SeriesRecord) error {
	segFile, err := p.segmentationForRun(runSeries)
	if err != nil {
		return err
	}

	imageFiles := make([]string, len(runSeries))
	teFiles := make([]string, len(runSeries))
	for i, sd := range runSeries {
		teFile, err := p.writeEchoTimes(run, sd)
		if err != nil {
			return err
		}
		// Index order ties each echo-time file to its image: the routine
		// pairs the two lists positionally.
		teFiles[i] = teFile
		imageFiles[i] = sd.ImageFile
	}

	req := &thermometry.Request{
		ImageFiles:       imageFiles,
		EchoTimeFiles:    teFiles,
		SegmentationFile: segFile,
		OutputPrefix:     filepath.Join(p.params.DataDir, fmt.Sprintf("run-%02d_thermometry", run)),
		Method:           p.params.Method,
		Bootstrap:        p.params.Bootstrap,
	}

	p.logger.Printf("run %d: invoking thermometry (%s) on %d series", run, req.Method, len(runSeries))
	report, err := p.params.Runner.Run(ctx, req)
	if err != nil {
		return err
	}

	return p.aggregate(run, runSeries, report)
}

// segmentationForRun resolves the mask for a run. A non-empty
// segmentation_file spreadsheet cell (first one among the run's series)
// overrides the central mask; either way the file must exist.
func (p *Pipeline) segmentationForRun(runSeries []*models.SeriesRecord) (string, error) {
	path := filepath.Join(p.params.DataDir, p.cfg.Data.SegmentationName)
	for _, sd := range runSeries {
		if sd.SegmentationFile != "" {
			path = sd.SegmentationFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(p.params.DataDir, path)
			}
			break
		}
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("segmentation file not found: %s", path)
	}
	return path, nil
}

// writeEchoTimes converts a series' echo times from milliseconds to seconds
// and writes them one per line to run-NN_series-NNN_te_s.txt in the data
// directory, returning the file path.
func (p *Pipeline) writeEchoTimes(run int, sd *models.SeriesRecord) (string, error) {
	path := filepath.Join(p.params.DataDir,
		fmt.Sprintf("run-%02d_series-%03d_te_s.txt", run, sd.SeriesNo))

	var buf []byte
	for _, te := range sd.TEms {
		buf = strconv.AppendFloat(buf, te/1000.0, 'g', -1, 64)
		buf = append(buf, '\n')
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("error writing echo-time file %s: %w", path, err)
	}
	return path, nil
}

// acqWindow is one series' acquisition window: its start instant and its
// duration travel together so that sorting can never misalign them.
type acqWindow struct {
	start    time.Time
	duration time.Duration
}

// aggregate turns one run's report into result rows, all stamped with the
// run's midpoint acquisition time.
func (p *Pipeline) aggregate(run int, runSeries []*models.SeriesRecord, report *thermometry.Report) error {
	if len(report.AcquisitionTimes) != len(runSeries) {
		return fmt.Errorf("report has %d acquisition times for %d series",
			len(report.AcquisitionTimes), len(runSeries))
	}

	windows := make([]acqWindow, len(runSeries))
	for i, raw := range report.AcquisitionTimes {
		start, err := ParseAcquisitionTime(raw)
		if err != nil {
			return err
		}
		if runSeries[i].AcqDuration == 0 {
			p.logger.Printf("warning: series %d has no acquisition duration, assuming zero-length window",
				runSeries[i].SeriesNo)
		}
		windows[i] = acqWindow{start: start, duration: runSeries[i].AcqDuration}
	}

	mid := midpoint(windows)
	for _, region := range report.Regions {
		p.results = append(p.results, models.ResultRow{
			Run:         run,
			Time:        mid,
			RegionID:    region.RegionID,
			Temperature: region.Temperature,
			Uncertainty: region.Uncertainty,
			Interval:    region.Interval,
		})
	}
	return nil
}

// midpoint computes the temporal center of the full acquisition window: from
// the earliest scan start to the end of the latest scan.
func midpoint(windows []acqWindow) time.Time {
	sorted := make([]acqWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start.Before(sorted[j].start)
	})

	first := sorted[0]
	last := sorted[len(sorted)-1]
	span := last.start.Add(last.duration).Sub(first.start)
	return first.start.Add(span / 2)
}

// ParseAcquisitionTime parses a report timestamp.
func ParseAcquisitionTime(raw string) (time.Time, error) {
	t, err := time.Parse(AcquisitionTimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid acquisition time %q: %w", raw, err)
	}
	return t, nil
}

// groupByRun partitions series records by run number. Only grouping is
// guaranteed here; callers impose run ordering themselves.
func groupByRun(series []*models.SeriesRecord) map[int][]*models.SeriesRecord {
	groups := make(map[int][]*models.SeriesRecord)
	for _, sd := range series {
		groups[sd.Run] = append(groups[sd.Run], sd)
	}
	return groups
}
