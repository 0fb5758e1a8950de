package models

import (
	"time"
)

// SeriesRecord represents one row of the acquisition spreadsheet: a single
// multi-echo series belonging to a run of the phantom experiment.
type SeriesRecord struct {
	// PatientName is the patient identifier as recorded on the scanner.
	PatientName string

	// StudyID is the study instance identifier the series belongs to.
	StudyID string

	// SeriesNo is the scanner-assigned series number within the study.
	SeriesNo int

	// Run is the experiment run this series belongs to. Several series
	// (one per echo train) share a run.
	Run int

	// TEms holds the echo times in milliseconds, in acquisition order.
	TEms []float64

	// ImageFile is the path to the imaging volume for this series.
	// It is empty until the matcher attaches it from a sidecar, and stays
	// empty when no sidecar matches.
	ImageFile string

	// SegmentationFile optionally names a per-series segmentation mask,
	// relative to the data directory. Empty means the central mask is used.
	SegmentationFile string

	// AcqDuration is the acquisition duration of this series. Zero when the
	// spreadsheet carries no value.
	AcqDuration time.Duration
}

// SidecarRecord represents one JSON metadata sidecar found in the data
// directory. The raw mapping is kept so callers can reach fields this
// pipeline does not interpret.
type SidecarRecord struct {
	// Path is the sidecar file path.
	Path string

	// StudyID is the StudyInstanceUID field, or "unknown_study" when absent.
	StudyID string

	// SeriesNo is the SeriesNumber field, or -1 when absent.
	SeriesNo int

	// Raw is the full decoded sidecar content.
	Raw map[string]interface{}
}

// ResultRow is the unit of pipeline output: one region of one run, stamped
// with the run's midpoint acquisition time.
type ResultRow struct {
	// Run is the experiment run the row belongs to.
	Run int

	// Time is the midpoint of the run's acquisition window, from the
	// earliest scan start to the latest scan's end.
	Time time.Time

	// RegionID identifies the segmentation region.
	RegionID int

	// Temperature is the estimated mean temperature of the region in
	// degrees Celsius.
	Temperature float64

	// Uncertainty is the reported uncertainty on the temperature, used for
	// the plot error bars.
	Uncertainty float64

	// Interval is the reported confidence interval width.
	Interval float64
}
