package autotile

import "github.com/plasmazones/plasmazones/internal/geom"

func builtins() []Algorithm {
	return []Algorithm{
		masterStack{base{"master-stack", "Master + Stack", "Master windows on the left, the rest stacked on the right"}},
		bsp{base{"bsp", "BSP", "Binary space partitioning, splitting the longer side"}},
		columns{base{"columns", "Columns", "Equal-width columns"}},
		rows{base{"rows", "Rows", "Equal-height rows"}},
		fibonacci{base{"fibonacci", "Fibonacci", "Each window takes half of the remaining space in a spiral"}},
		monocle{base{"monocle", "Monocle", "Every window fills the screen"}},
		threeColumn{base{"three-column", "Three Column", "Master in the center, stack split left and right"}},
	}
}

// prepare applies outer gaps and smart gaps, returning the usable area and
// the gap between tiles.
func prepare(n int, area geom.Rect, p Params) (geom.Rect, int) {
	if p.SmartGaps && n == 1 {
		return area, 0
	}
	return area.Inset(max(p.OuterGap, 0)), max(p.InnerGap, 0)
}

// span is a 1-D segment.
type span struct{ pos, size int }

// cells divides [start, start+length) into n segments separated by gap.
// The last segment absorbs rounding so the segments exactly fill length.
func cells(start, length, n, gap int) []span {
	if n <= 0 {
		return nil
	}
	size := (length - (n-1)*gap) / n
	out := make([]span, n)
	pos := start
	for i := range out {
		s := size
		if i == n-1 {
			s = start + length - pos
		}
		out[i] = span{pos, max(s, 1)}
		pos += size + gap
	}
	return out
}

func column(area geom.Rect, n, gap int) []geom.Rect {
	out := make([]geom.Rect, 0, n)
	for _, s := range cells(area.Y, area.Height, n, gap) {
		out = append(out, geom.Rect{X: area.X, Y: s.pos, Width: area.Width, Height: s.size})
	}
	return out
}

func row(area geom.Rect, n, gap int) []geom.Rect {
	out := make([]geom.Rect, 0, n)
	for _, s := range cells(area.X, area.Width, n, gap) {
		out = append(out, geom.Rect{X: s.pos, Y: area.Y, Width: s.size, Height: area.Height})
	}
	return out
}

// splitX cuts area vertically; the left part gets ratio of the width.
func splitX(area geom.Rect, ratio float64, gap int) (geom.Rect, geom.Rect) {
	w := int(float64(area.Width-gap) * ratio)
	w = min(max(w, 1), area.Width-gap-1)
	left := geom.Rect{X: area.X, Y: area.Y, Width: w, Height: area.Height}
	right := geom.Rect{X: area.X + w + gap, Y: area.Y, Width: area.Width - w - gap, Height: area.Height}
	return left, right
}

// splitY cuts area horizontally; the top part gets ratio of the height.
func splitY(area geom.Rect, ratio float64, gap int) (geom.Rect, geom.Rect) {
	h := int(float64(area.Height-gap) * ratio)
	h = min(max(h, 1), area.Height-gap-1)
	top := geom.Rect{X: area.X, Y: area.Y, Width: area.Width, Height: h}
	bottom := geom.Rect{X: area.X, Y: area.Y + h + gap, Width: area.Width, Height: area.Height - h - gap}
	return top, bottom
}

type masterStack struct{ base }

func (masterStack) Arrange(windows []string, bounds geom.Rect, p Params) []geom.Rect {
	n := len(windows)
	if n == 0 {
		return nil
	}
	area, gap := prepare(n, bounds, p)
	masters := min(max(p.MasterCount, 1), n)
	if masters == n {
		return column(area, n, gap)
	}
	left, right := splitX(area, p.MasterRatio, gap)
	return append(column(left, masters, gap), column(right, n-masters, gap)...)
}

type bsp struct{ base }

func (bsp) Arrange(windows []string, bounds geom.Rect, p Params) []geom.Rect {
	n := len(windows)
	if n == 0 {
		return nil
	}
	area, gap := prepare(n, bounds, p)
	return partition(area, n, gap)
}

func partition(area geom.Rect, n, gap int) []geom.Rect {
	if n == 1 {
		return []geom.Rect{area}
	}
	first := (n + 1) / 2
	ratio := float64(first) / float64(n)
	var a, b geom.Rect
	if area.Width >= area.Height {
		a, b = splitX(area, ratio, gap)
	} else {
		a, b = splitY(area, ratio, gap)
	}
	return append(partition(a, first, gap), partition(b, n-first, gap)...)
}

type columns struct{ base }

func (columns) Arrange(windows []string, bounds geom.Rect, p Params) []geom.Rect {
	if len(windows) == 0 {
		return nil
	}
	area, gap := prepare(len(windows), bounds, p)
	return row(area, len(windows), gap)
}

type rows struct{ base }

func (rows) Arrange(windows []string, bounds geom.Rect, p Params) []geom.Rect {
	if len(windows) == 0 {
		return nil
	}
	area, gap := prepare(len(windows), bounds, p)
	return column(area, len(windows), gap)
}

type fibonacci struct{ base }

// Arrange gives each window half of what is left, turning right, down,
// left, up in turn.
func (fibonacci) Arrange(windows []string, bounds geom.Rect, p Params) []geom.Rect {
	n := len(windows)
	if n == 0 {
		return nil
	}
	area, gap := prepare(n, bounds, p)
	out := make([]geom.Rect, 0, n)
	rest := area
	for i := 0; i < n-1; i++ {
		var take geom.Rect
		switch i % 4 {
		case 0:
			take, rest = splitX(rest, 0.5, gap)
		case 1:
			take, rest = splitY(rest, 0.5, gap)
		case 2:
			rest, take = splitX(rest, 0.5, gap)
		case 3:
			rest, take = splitY(rest, 0.5, gap)
		}
		out = append(out, take)
	}
	return append(out, rest)
}

type monocle struct{ base }

func (monocle) Arrange(windows []string, bounds geom.Rect, p Params) []geom.Rect {
	n := len(windows)
	if n == 0 {
		return nil
	}
	area, _ := prepare(1, bounds, p)
	out := make([]geom.Rect, n)
	for i := range out {
		out[i] = area
	}
	return out
}

type threeColumn struct{ base }

// Arrange puts the first window in a center column of MasterRatio width;
// the others alternate between the right and left columns.
func (threeColumn) Arrange(windows []string, bounds geom.Rect, p Params) []geom.Rect {
	n := len(windows)
	if n == 0 {
		return nil
	}
	area, gap := prepare(n, bounds, p)
	if n == 1 {
		return []geom.Rect{area}
	}
	if n == 2 {
		l, r := splitX(area, p.MasterRatio, gap)
		return []geom.Rect{l, r}
	}

	side := (1 - p.MasterRatio) / 2
	left, rest := splitX(area, side, gap)
	center, right := splitX(rest, p.MasterRatio/(p.MasterRatio+side), gap)

	var rightIdx, leftIdx []int
	for i := 1; i < n; i++ {
		if i%2 == 1 {
			rightIdx = append(rightIdx, i)
		} else {
			leftIdx = append(leftIdx, i)
		}
	}
	out := make([]geom.Rect, n)
	out[0] = center
	for j, r := range column(right, len(rightIdx), gap) {
		out[rightIdx[j]] = r
	}
	for j, r := range column(left, len(leftIdx), gap) {
		out[leftIdx[j]] = r
	}
	return out
}
