// Package seriesinfo loads per-series acquisition metadata from the study
// spreadsheet (image_information.xlsx).
//
// The spreadsheet must have the columns patient_name, study_id, series_no,
// run and te_ms, where te_ms is a literal list of echo times in milliseconds,
// e.g. "[1.2, 3.4]". The optional columns acq_duration_s and segmentation_file
// carry the series acquisition duration in seconds and a per-series
// segmentation mask path.
package seriesinfo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"phantomtherm/internal/models"
)

// Required spreadsheet columns. Optional: acq_duration_s, segmentation_file.
const (
	colPatientName  = "patient_name"
	colStudyID      = "study_id"
	colSeriesNo     = "series_no"
	colRun          = "run"
	colTEms         = "te_ms"
	colAcqDuration  = "acq_duration_s"
	colSegmentation = "segmentation_file"
)

// Load reads the spreadsheet at path and returns one SeriesRecord per data
// row. Duplicate (study, series) pairs are not rejected; the matcher takes
// the first match.
func Load(path string) ([]*models.SeriesRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening series spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("spreadsheet %s is empty", path)
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("spreadsheet %s: %w", path, err)
	}

	records := make([]*models.SeriesRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		// Excelize trims trailing empty cells, so rows can be shorter
		// than the header.
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("spreadsheet %s row %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// headerIndex maps column names to their positions, verifying that all
// required columns are present.
func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	for _, required := range []string{colPatientName, colStudyID, colSeriesNo, colRun, colTEms} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (*models.SeriesRecord, error) {
	seriesNo, err := strconv.Atoi(strings.TrimSpace(cell(row, cols[colSeriesNo])))
	if err != nil {
		return nil, fmt.Errorf("invalid series_no: %w", err)
	}

	run, err := strconv.Atoi(strings.TrimSpace(cell(row, cols[colRun])))
	if err != nil {
		return nil, fmt.Errorf("invalid run: %w", err)
	}

	rec := &models.SeriesRecord{
		PatientName: cell(row, cols[colPatientName]),
		StudyID:     cell(row, cols[colStudyID]),
		SeriesNo:    seriesNo,
		Run:         run,
		TEms:        ParseTEList(cell(row, cols[colTEms])),
	}

	if idx, ok := cols[colAcqDuration]; ok {
		if raw := strings.TrimSpace(cell(row, idx)); raw != "" {
			seconds, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid acq_duration_s: %w", err)
			}
			rec.AcqDuration = time.Duration(seconds * float64(time.Second))
		}
	}

	if idx, ok := cols[colSegmentation]; ok {
		rec.SegmentationFile = strings.TrimSpace(cell(row, idx))
	}

	return rec, nil
}

// ParseTEList parses a literal list of echo times such as "[1.2, 3.4]".
// Any value that is not a well-formed list yields an empty slice: malformed
// te_ms cells degrade to "no echo times" rather than failing the load.
func ParseTEList(raw string) []float64 {
	s := strings.TrimSpace(raw)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return []float64{}
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []float64{}
	}

	parts := strings.Split(inner, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return []float64{}
		}
		values = append(values, v)
	}
	return values
}

// cell returns row[i], or "" when the row is shorter than the header.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
