package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/plasmazones/plasmazones/internal/geom"
)

type previewZone struct {
	Number int
	Rect   geom.RelRect
}

// renderZones draws zones as box art on a width x height character canvas.
// Zone numbers are printed in the middle of each box.
func renderZones(zones []previewZone, width, height int) []string {
	if width < 5 || height < 3 {
		return nil
	}
	canvas := make([][]rune, height)
	for y := range canvas {
		canvas[y] = []rune(strings.Repeat(" ", width))
	}
	for _, z := range zones {
		drawZone(canvas, z, width, height)
	}
	drawFrame(canvas, width, height)

	lines := make([]string, height)
	for y, row := range canvas {
		lines[y] = string(row)
	}
	return lines
}

func drawZone(canvas [][]rune, z previewZone, w, h int) {
	scale := func(v float64, n int) int { return int(math.Round(v * float64(n-1))) }
	x1 := max(scale(z.Rect.X, w), 1)
	y1 := max(scale(z.Rect.Y, h), 1)
	x2 := min(scale(z.Rect.X+z.Rect.Width, w), w-2)
	y2 := min(scale(z.Rect.Y+z.Rect.Height, h), h-2)
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for x := x1; x <= x2; x++ {
		canvas[y1][x] = '─'
		canvas[y2][x] = '─'
	}
	for y := y1; y <= y2; y++ {
		canvas[y][x1] = '│'
		canvas[y][x2] = '│'
	}
	canvas[y1][x1], canvas[y1][x2] = '┌', '┐'
	canvas[y2][x1], canvas[y2][x2] = '└', '┘'

	cy, cx := (y1+y2)/2, (x1+x2)/2
	if cy <= y1 || cy >= y2 {
		return
	}
	label := strconv.Itoa(z.Number)
	start := cx - len(label)/2
	for i, r := range label {
		if x := start + i; x > x1 && x < x2 {
			canvas[cy][x] = r
		}
	}
}

func drawFrame(canvas [][]rune, w, h int) {
	for x := 0; x < w; x++ {
		canvas[0][x] = '═'
		canvas[h-1][x] = '═'
	}
	for y := 0; y < h; y++ {
		canvas[y][0] = '║'
		canvas[y][w-1] = '║'
	}
	canvas[0][0], canvas[0][w-1] = '╔', '╗'
	canvas[h-1][0], canvas[h-1][w-1] = '╚', '╝'
}
