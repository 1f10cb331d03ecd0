// Package report renders evaluation charts for a trained model.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// PlotSize is the width and height of the saved chart.
const PlotSize = 5 * vg.Inch

// formats are the file extensions gonum/plot can render.
var formats = map[string]bool{
	"eps": true, "jpg": true, "jpeg": true, "pdf": true, "png": true,
	"svg": true, "tex": true, "tif": true, "tiff": true,
}

// CheckPath rejects a path whose extension names no supported image
// format. The failure is a ValueError so callers do not retry it.
func CheckPath(path string) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !formats[ext] {
		return errors.NewValueError("report.CheckPath",
			fmt.Sprintf("unsupported plot format %q in %s (want png, svg, pdf, eps, jpg, tif or tex)", ext, path))
	}
	return nil
}

// PredictedVsActual draws a scatter of predicted against actual age with
// the identity line and saves it to path. The image format follows the
// file extension (.png, .svg, .pdf, ...).
func PredictedVsActual(path string, actual, predicted mat.Vector, rmse, r2 float64) error {
	if actual.Len() != predicted.Len() {
		return errors.NewDimensionError("report.PredictedVsActual", actual.Len(), predicted.Len(), 0)
	}
	if actual.Len() == 0 {
		return errors.NewValueError("report.PredictedVsActual", "no points to plot")
	}
	if err := CheckPath(path); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Predicted vs actual age (RMSE %.3f, R² %.3f)", rmse, r2)
	p.X.Label.Text = "actual age"
	p.Y.Label.Text = "predicted age"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, actual.Len())
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range pts {
		pts[i].X = actual.AtVec(i)
		pts[i].Y = predicted.AtVec(i)
		lo = math.Min(lo, math.Min(pts[i].X, pts[i].Y))
		hi = math.Max(hi, math.Max(pts[i].X, pts[i].Y))
	}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "build scatter")
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)

	ideal, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "build identity line")
	}
	ideal.LineStyle.Width = vg.Points(1)
	ideal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ideal)
	p.Legend.Add("test rows", s)
	p.Legend.Add("ideal", ideal)
	p.Legend.Top = true

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewIOError("report.PredictedVsActual", path, err)
		}
	}
	if err := p.Save(PlotSize, PlotSize, path); err != nil {
		return errors.NewIOError("report.PredictedVsActual", path, err)
	}

	log.GetLoggerWithName("report").Info("Plot saved",
		log.PathKey, path,
		log.SamplesKey, actual.Len(),
	)
	return nil
}
