package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is a named time series
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

// NewTimePlot creates new line plot of the supplied series against time.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * no series is supplied
// * X and Y of a series differ in length or are empty
// * gonum plot fails to create a line
func NewTimePlot(title, ylabel string, series ...Series) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("Invalid data supplied")
	}

	p := plot.New()

	p.Title.Text = title
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.X) == 0 || len(s.X) != len(s.Y) {
			return nil, fmt.Errorf("Invalid data dimensions of %q: %d x %d", s.Name, len(s.X), len(s.Y))
		}

		// non-finite samples, e.g. of a failed filter, are left out
		pts := make(plotter.XYs, 0, len(s.X))
		for j := range s.X {
			if finite(s.X[j]) && finite(s.Y[j]) {
				pts = append(pts, plotter.XY{X: s.X[j], Y: s.Y[j]})
			}
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("Failed to create line %q: %v", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		line.Width = vg.Points(1)

		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	return p, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SavePlot saves plot p to file as a PNG image of the given size in inches
func SavePlot(p *plot.Plot, width, height float64, file string) error {
	return p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, file)
}
