// Package report writes the pipeline's output artifacts: the results
// workbook and the temperature-vs-time error-bar plot.
package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"phantomtherm/internal/models"
	"phantomtherm/pkg/analysis"
	"phantomtherm/pkg/thermometry"
)

// OutputBasename returns the method-keyed stem shared by the workbook and
// the plot files, e.g. "thermometry_analysis_regionwise".
func OutputBasename(method thermometry.Method) string {
	return fmt.Sprintf("thermometry_analysis_%s", method)
}

// WriteWorkbook writes all result rows to an xlsx file with a "results"
// sheet (one row per run and region) and a "summary" sheet with per-region
// temperature statistics across runs.
func WriteWorkbook(rows []models.ResultRow, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const resultsSheet = "results"
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("error naming results sheet: %w", err)
	}

	header := []interface{}{"run", "time", "region_id", "temperature", "uncertainty", "interval"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("error computing cell reference: %w", err)
		}
		values := []interface{}{
			row.Run,
			row.Time.Format(analysis.AcquisitionTimeLayout),
			row.RegionID,
			row.Temperature,
			row.Uncertainty,
			row.Interval,
		}
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+1, err)
		}
	}

	if err := writeSummarySheet(f, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving workbook %s: %w", path, err)
	}
	return nil
}

// writeSummarySheet adds a per-region mean and standard deviation of
// temperature over all runs.
func writeSummarySheet(f *excelize.File, rows []models.ResultRow) error {
	const summarySheet = "summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating summary sheet: %w", err)
	}

	header := []interface{}{"region_id", "n_runs", "mean_temperature", "std_temperature"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing summary header: %w", err)
	}

	for i, id := range regionIDs(rows) {
		temps := regionTemperatures(rows, id)

		std := 0.0
		if len(temps) > 1 {
			std = stat.StdDev(temps, nil)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("error computing cell reference: %w", err)
		}
		values := []interface{}{id, len(temps), stat.Mean(temps, nil), std}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("error writing summary row for region %d: %w", id, err)
		}
	}
	return nil
}

// SavePlots renders an error-bar plot of temperature against midpoint time,
// one series per region, and saves it as basePath+".png" and basePath+".svg".
func SavePlots(rows []models.ResultRow, basePath string, widthInches, heightInches float64) error {
	p := plot.New()
	p.Title.Text = "Phantom thermometry"
	p.X.Label.Text = "Acquisition time"
	p.Y.Label.Text = "Temperature (°C)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04:05"}

	for i, id := range regionIDs(rows) {
		data := regionSeries(rows, id)

		line, points, err := plotter.NewLinePoints(data.XYs)
		if err != nil {
			return fmt.Errorf("error building series for region %d: %w", id, err)
		}
		bars, err := plotter.NewYErrorBars(data)
		if err != nil {
			return fmt.Errorf("error building error bars for region %d: %w", id, err)
		}

		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		bars.Color = plotutil.Color(i)

		p.Add(line, points, bars)
		p.Legend.Add(fmt.Sprintf("region %d", id), line, points)
	}

	w := vg.Length(widthInches) * vg.Inch
	h := vg.Length(heightInches) * vg.Inch
	for _, ext := range []string{".png", ".svg"} {
		if err := p.Save(w, h, basePath+ext); err != nil {
			return fmt.Errorf("error saving plot %s: %w", basePath+ext, err)
		}
	}
	return nil
}

// errorPoints couples the plotted points with their y error bars.
type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// regionSeries extracts one region's rows as plot data, sorted by time.
// X values are Unix seconds, which is what plot.TimeTicks expects.
func regionSeries(rows []models.ResultRow, regionID int) errorPoints {
	var data errorPoints
	for _, row := range rows {
		if row.RegionID != regionID {
			continue
		}
		data.XYs = append(data.XYs, plotter.XY{
			X: float64(row.Time.Unix()),
			Y: row.Temperature,
		})
		data.YErrors = append(data.YErrors, struct{ Low, High float64 }{
			Low:  row.Uncertainty,
			High: row.Uncertainty,
		})
	}

	order := make([]int, len(data.XYs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return data.XYs[order[a]].X < data.XYs[order[b]].X })

	sorted := errorPoints{
		XYs:     make(plotter.XYs, len(order)),
		YErrors: make(plotter.YErrors, len(order)),
	}
	for i, j := range order {
		sorted.XYs[i] = data.XYs[j]
		sorted.YErrors[i] = data.YErrors[j]
	}
	return sorted
}

// regionIDs returns the distinct region ids in ascending order.
func regionIDs(rows []models.ResultRow) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, row := range rows {
		if !seen[row.RegionID] {
			seen[row.RegionID] = true
			ids = append(ids, row.RegionID)
		}
	}
	sort.Ints(ids)
	return ids
}

// regionTemperatures collects one region's temperatures across all rows.
func regionTemperatures(rows []models.ResultRow, regionID int) []float64 {
	var temps []float64
	for _, row := range rows {
		if row.RegionID == regionID {
			temps = append(temps, row.Temperature)
		}
	}
	return temps
}
