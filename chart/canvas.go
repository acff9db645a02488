package chart

import (
	"strings"

	"github.com/dnldd/pulse/shared"
)

// NoDataPlaceholder is rendered in place of a chart whose primary series is
// empty.
const NoDataPlaceholder = "(no data)"

const (
	equityRune     = '·'
	wickRune       = '|'
	bodyRune       = '█'
	buyMarkerRune  = '▲'
	sellMarkerRune = '▼'
)

// Canvas is a fixed-size rune grid for terminal chart rendering.
type Canvas struct {
	width  int
	height int
	cells  [][]rune
}

// NewCanvas initializes a blank canvas of the provided dimensions.
func NewCanvas(width, height int) *Canvas {
	cells := make([][]rune, height)
	for y := range cells {
		cells[y] = make([]rune, width)
		for x := range cells[y] {
			cells[y][x] = ' '
		}
	}

	return &Canvas{
		width:  width,
		height: height,
		cells:  cells,
	}
}

// Set draws a rune at the provided pixel position. Positions outside the
// canvas are ignored.
func (c *Canvas) Set(x, y int, r rune) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}

	c.cells[y][x] = r
}

// SetColumn draws a vertical run of the provided rune between two pixel rows.
func (c *Canvas) SetColumn(x, yA, yB int, r rune) {
	if yA > yB {
		yA, yB = yB, yA
	}

	for y := yA; y <= yB; y++ {
		c.Set(x, y, r)
	}
}

// String renders the canvas as newline-separated rows.
func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow((c.width + 1) * c.height)

	for y := range c.cells {
		b.WriteString(string(c.cells[y]))
		b.WriteByte('\n')
	}

	return b.String()
}

// plotMarker draws a trade marker at the provided pixel position.
func (c *Canvas) plotMarker(x, y int, buy bool) {
	r := sellMarkerRune
	if buy {
		r = buyMarkerRune
	}

	c.Set(x, y, r)
}

// RenderEquityChart renders the equity curve with trade markers overlaid on
// it. An empty equity series yields the no-data placeholder regardless of
// trade data.
func RenderEquityChart(points []shared.EquityPoint, markers []TradeMarker, width, height int) string {
	if len(points) == 0 {
		return NoDataPlaceholder
	}

	// The curve and its markers share one coordinate mapping so overlays
	// land on the plotted line.
	data := make([]shared.ChartPoint, 0, len(points)+len(markers))
	for idx := range points {
		data = append(data, shared.ChartPoint{X: float64(points[idx].Ts), Y: points[idx].Equity})
	}
	for idx := range markers {
		data = append(data, shared.ChartPoint{X: float64(markers[idx].Ts), Y: markers[idx].Value})
	}

	mapped := MapToCanvas(data, float64(width), float64(height))

	canvas := NewCanvas(width, height)
	for idx := range points {
		canvas.Set(int(mapped[idx].X), int(mapped[idx].Y), equityRune)
	}
	for idx := range markers {
		pixel := mapped[len(points)+idx]
		canvas.plotMarker(int(pixel.X), int(pixel.Y), markers[idx].Buy())
	}

	return canvas.String()
}

// RenderCandleChart renders OHLC candles with trade markers overlaid on
// them. An empty candle series yields the no-data placeholder regardless of
// trade data.
func RenderCandleChart(candles []shared.Candle, markers []TradeMarker, width, height int) string {
	if len(candles) == 0 {
		return NoDataPlaceholder
	}

	// Four mapped points per candle (high, low, open, close), then the
	// markers, all sharing one coordinate mapping.
	data := make([]shared.ChartPoint, 0, len(candles)*4+len(markers))
	for idx := range candles {
		x := float64(candles[idx].Ts)
		data = append(data,
			shared.ChartPoint{X: x, Y: candles[idx].High},
			shared.ChartPoint{X: x, Y: candles[idx].Low},
			shared.ChartPoint{X: x, Y: candles[idx].Open},
			shared.ChartPoint{X: x, Y: candles[idx].Close},
		)
	}
	for idx := range markers {
		data = append(data, shared.ChartPoint{X: float64(markers[idx].Ts), Y: markers[idx].Value})
	}

	mapped := MapToCanvas(data, float64(width), float64(height))

	canvas := NewCanvas(width, height)
	for idx := range candles {
		high := mapped[idx*4]
		low := mapped[idx*4+1]
		open := mapped[idx*4+2]
		closing := mapped[idx*4+3]

		x := int(high.X)
		canvas.SetColumn(x, int(high.Y), int(low.Y), wickRune)
		canvas.SetColumn(x, int(open.Y), int(closing.Y), bodyRune)
	}
	for idx := range markers {
		pixel := mapped[len(candles)*4+idx]
		canvas.plotMarker(int(pixel.X), int(pixel.Y), markers[idx].Buy())
	}

	return canvas.String()
}
