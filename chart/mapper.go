package chart

import "github.com/dnldd/pulse/shared"

// canvasMargin is the pixel margin reserved on every canvas edge.
const canvasMargin = 10

// MapToCanvas linearly maps data-space points onto a width by height pixel
// canvas, reserving the margin on every edge. The y axis is inverted since
// pixel space grows downward. A zero data range on either axis maps the
// series to the canvas midline instead of dividing by zero. Callers must
// render a placeholder instead of invoking the mapper with no points.
func MapToCanvas(points []shared.ChartPoint, width, height float64) []shared.ChartPoint {
	if len(points) == 0 {
		return nil
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for idx := range points[1:] {
		point := &points[idx+1]
		if point.X < minX {
			minX = point.X
		}
		if point.X > maxX {
			maxX = point.X
		}
		if point.Y < minY {
			minY = point.Y
		}
		if point.Y > maxY {
			maxY = point.Y
		}
	}

	rangeX := maxX - minX
	if rangeX == 0 {
		rangeX = 1
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}

	mapped := make([]shared.ChartPoint, len(points))
	for idx := range points {
		px := (points[idx].X-minX)/rangeX*(width-2*canvasMargin) + canvasMargin
		py := height - ((points[idx].Y-minY)/rangeY*(height-2*canvasMargin) + canvasMargin)
		mapped[idx] = shared.ChartPoint{X: px, Y: py}
	}

	return mapped
}
