// Package plot draws learning curves of episodic returns on a
// logarithmic scale
package plot

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/qcartpole/utils/floatutils"
)

const (
	// Width and Height are the default dimensions of rendered plots
	Width  = 800
	Height = 500

	margin = 60.0

	// Returns below minReturn are drawn at minReturn, since the y axis
	// is logarithmic
	minReturn = 1.0
)

var (
	background = color.White
	axisColour = color.Black
	lineColour = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// logReturns returns the base 10 logarithm of each return
func logReturns(returns []float64) []float64 {
	logs := make([]float64, len(returns))
	for i, r := range returns {
		logs[i] = math.Log10(floatutils.Clip(r, minReturn, math.MaxFloat64))
	}
	return logs
}

// Render draws the learning curve of returns into an image of the
// given dimensions. The x axis is the episode index and the y axis is
// the episodic return on a base 10 logarithmic scale.
func Render(returns []float64, width, height int) (image.Image, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("render: no returns to plot")
	}
	if float64(width) <= 2*margin || float64(height) <= 2*margin {
		return nil, fmt.Errorf("render: image %vx%v too small", width,
			height)
	}

	logs := logReturns(returns)

	// The y axis spans whole decades
	yMax := math.Max(math.Ceil(floats.Max(logs)), 1)

	dc := gg.NewContext(width, height)
	dc.SetColor(background)
	dc.Clear()

	left, right := margin, float64(width)-margin/2
	top, bottom := margin/2, float64(height)-margin
	toX := func(i int) float64 {
		if len(logs) == 1 {
			return left
		}
		return left + (right-left)*float64(i)/float64(len(logs)-1)
	}
	toY := func(v float64) float64 {
		return bottom - (bottom-top)*v/yMax
	}

	// Axes and decade ticks
	dc.SetColor(axisColour)
	dc.SetLineWidth(1.5)
	dc.DrawLine(left, top, left, bottom)
	dc.DrawLine(left, bottom, right, bottom)
	dc.Stroke()

	for decade := 0.0; decade <= yMax; decade++ {
		y := toY(decade)
		dc.DrawLine(left-5, y, left, y)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("1e%.0f", decade), left-8, y, 1,
			0.5)
	}
	dc.DrawStringAnchored("0", left, bottom+15, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d", len(logs)-1), right, bottom+15,
		0.5, 0.5)
	dc.DrawStringAnchored("episode", (left+right)/2, bottom+35, 0.5, 0.5)

	// Learning curve
	dc.SetColor(lineColour)
	dc.SetLineWidth(1)
	dc.MoveTo(toX(0), toY(logs[0]))
	for i := 1; i < len(logs); i++ {
		dc.LineTo(toX(i), toY(logs[i]))
	}
	dc.Stroke()

	return dc.Image(), nil
}

// SavePNG renders the learning curve of returns and saves it as a PNG
// image at filename
func SavePNG(returns []float64, filename string) error {
	img, err := Render(returns, Width, Height)
	if err != nil {
		return fmt.Errorf("savePNG: %w", err)
	}

	if err := gg.SavePNG(filename, img); err != nil {
		return fmt.Errorf("savePNG: %w", err)
	}
	return nil
}

// WriteHTML writes an interactive line chart of returns, with a
// logarithmic y axis, as an HTML page to w
func WriteHTML(returns []float64, w io.Writer) error {
	if len(returns) == 0 {
		return fmt.Errorf("writeHTML: no returns to plot")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Return per episode",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "episode",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "return",
			Type: "log",
		}),
	)

	episodes := make([]string, len(returns))
	items := make([]opts.LineData, len(returns))
	for i, r := range returns {
		episodes[i] = fmt.Sprintf("%d", i)
		items[i] = opts.LineData{
			Value: floatutils.Clip(r, minReturn, math.MaxFloat64),
		}
	}
	line.SetXAxis(episodes).AddSeries("return", items)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("writeHTML: %w", err)
	}
	return nil
}
