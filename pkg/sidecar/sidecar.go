// Package sidecar loads JSON metadata sidecars from a data directory and
// matches them against series records.
//
// Sidecars are BIDS-style: one .json file per imaging volume, with the volume
// itself stored next to it under the same name and an imaging extension.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"phantomtherm/internal/models"
)

// Defaults for sidecars that lack the identifying fields.
const (
	UnknownStudy    = "unknown_study"
	UnknownSeriesNo = -1
)

// LoadDirectory reads every *.json file directly inside dir into a
// SidecarRecord. Files are sorted by path so that the first-match rule of
// FindMatch is deterministic across runs.
func LoadDirectory(dir string) ([]*models.SidecarRecord, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error scanning %s for sidecars: %w", dir, err)
	}
	sort.Strings(paths)

	sidecars := make([]*models.SidecarRecord, 0, len(paths))
	for _, path := range paths {
		sc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		sidecars = append(sidecars, sc)
	}
	return sidecars, nil
}

func loadFile(path string) (*models.SidecarRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading sidecar %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing sidecar %s: %w", path, err)
	}

	return &models.SidecarRecord{
		Path:     path,
		StudyID:  stringField(raw, "StudyInstanceUID", UnknownStudy),
		SeriesNo: intField(raw, "SeriesNumber", UnknownSeriesNo),
		Raw:      raw,
	}, nil
}

// stringField returns raw[key] as a string, or fallback when the key is
// absent or not a string.
func stringField(raw map[string]interface{}, key, fallback string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return fallback
}

// intField returns raw[key] as an int. JSON numbers decode as float64;
// scanner exports occasionally store SeriesNumber as a string, so both are
// accepted.
func intField(raw map[string]interface{}, key string, fallback int) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// FindMatch returns the first sidecar whose (study id, series number) equal
// the given pair, and whether one was found. With LoadDirectory's sorted
// output, duplicates resolve to the lexicographically first sidecar.
func FindMatch(sidecars []*models.SidecarRecord, studyID string, seriesNo int) (*models.SidecarRecord, bool) {
	for _, sc := range sidecars {
		if sc.StudyID == studyID && sc.SeriesNo == seriesNo {
			return sc, true
		}
	}
	return nil, false
}

// ImagePath derives the imaging volume path for a sidecar by replacing its
// .json extension with ext (e.g. ".nii.gz").
func ImagePath(sc *models.SidecarRecord, ext string) string {
	return strings.TrimSuffix(sc.Path, filepath.Ext(sc.Path)) + ext
}
