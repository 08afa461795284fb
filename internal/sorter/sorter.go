// Package sorter arranges bounding boxes in reading order: rows top to bottom,
// and left to right within each row.
//
// Rows are formed greedily over the boxes ordered by vertical center. A box
// joins the current row when its vertical center is less than the tolerance
// below the row's reference, which is the vertical center of the row's first
// (topmost) box. Every member of a row therefore lies in
// [reference, reference+tolerance), so two boxes whose centers are at least
// the tolerance apart never share a row.
//
// Ordering uses the full box geometry as the key, which makes the result
// independent of input order: sorting an already sorted slice is a no-op.
package sorter

import (
	"image"
	"math"
	"sort"
)

// DefaultTolerance is the vertical tolerance used when there are no boxes to
// estimate one from.
const DefaultTolerance = 20

// Tolerance bounds for EstimateTolerance.
const (
	MinTolerance = 10
	MaxTolerance = 100
)

// Boxed is anything with a bounding box.
type Boxed interface {
	Rect() image.Rectangle
}

// Row is one reading row.
type Row[T Boxed] struct {
	// Index is the 0-based row number, top to bottom.
	Index int

	// Reference is the vertical center of the row's topmost item.
	Reference float64

	// Items are the row's members, left to right.
	Items []T
}

// RowInfo summarizes a row for reporting.
type RowInfo struct {
	Index int     `json:"row_index"`
	Count int     `json:"count"`
	AvgY  float64 `json:"avg_y"`
	MinX  int     `json:"min_x"`
	MaxX  int     `json:"max_x"`
}

func centerX(r image.Rectangle) float64 { return float64(r.Min.X+r.Max.X) / 2 }
func centerY(r image.Rectangle) float64 { return float64(r.Min.Y+r.Max.Y) / 2 }

// geometryLess orders rectangles by (center y, center x, x1, y1, x2, y2).
func geometryLess(a, b image.Rectangle) bool {
	if ay, by := centerY(a), centerY(b); ay != by {
		return ay < by
	}
	return rowLess(a, b)
}

// rowLess orders rectangles by (center x, center y, x1, y1, x2, y2).
func rowLess(a, b image.Rectangle) bool {
	if ax, bx := centerX(a), centerX(b); ax != bx {
		return ax < bx
	}
	if ay, by := centerY(a), centerY(b); ay != by {
		return ay < by
	}
	switch {
	case a.Min.X != b.Min.X:
		return a.Min.X < b.Min.X
	case a.Min.Y != b.Min.Y:
		return a.Min.Y < b.Min.Y
	case a.Max.X != b.Max.X:
		return a.Max.X < b.Max.X
	default:
		return a.Max.Y < b.Max.Y
	}
}

// Rows groups items into reading rows using tolerance in pixels. Rows are
// returned top to bottom with their items left to right. The input slice is
// not modified. A tolerance of zero or less puts every item in its own row.
func Rows[T Boxed](items []T, tolerance float64) []Row[T] {
	if len(items) == 0 {
		return []Row[T]{}
	}

	byY := make([]T, len(items))
	copy(byY, items)
	sort.SliceStable(byY, func(i, j int) bool {
		return geometryLess(byY[i].Rect(), byY[j].Rect())
	})

	rows := make([]Row[T], 0)
	for _, item := range byY {
		cy := centerY(item.Rect())
		if n := len(rows); n > 0 && cy-rows[n-1].Reference < tolerance {
			rows[n-1].Items = append(rows[n-1].Items, item)
			continue
		}
		rows = append(rows, Row[T]{
			Index:     len(rows),
			Reference: cy,
			Items:     []T{item},
		})
	}

	for i := range rows {
		members := rows[i].Items
		sort.SliceStable(members, func(a, b int) bool {
			return rowLess(members[a].Rect(), members[b].Rect())
		})
	}
	return rows
}

// Sort returns items in reading order. See Rows for the grouping rule.
func Sort[T Boxed](items []T, tolerance float64) []T {
	out := make([]T, 0, len(items))
	for _, row := range Rows(items, tolerance) {
		out = append(out, row.Items...)
	}
	return out
}

// EstimateTolerance derives a vertical tolerance from the boxes themselves:
// half the median box height, rounded, clamped to [MinTolerance,
// MaxTolerance]. The median of an even count is the mean of the two middle
// heights. With no items it returns DefaultTolerance.
func EstimateTolerance[T Boxed](items []T) int {
	if len(items) == 0 {
		return DefaultTolerance
	}

	heights := make([]int, len(items))
	for i, item := range items {
		heights[i] = item.Rect().Canon().Dy()
	}
	sort.Ints(heights)

	mid := len(heights) / 2
	median := float64(heights[mid])
	if len(heights)%2 == 0 {
		median = float64(heights[mid-1]+heights[mid]) / 2
	}

	tol := int(math.Round(median * 0.5))
	if tol < MinTolerance {
		return MinTolerance
	}
	if tol > MaxTolerance {
		return MaxTolerance
	}
	return tol
}

// Summarize reports the count, mean vertical center and horizontal extent of
// each row.
func Summarize[T Boxed](rows []Row[T]) []RowInfo {
	infos := make([]RowInfo, 0, len(rows))
	for _, row := range rows {
		if len(row.Items) == 0 {
			continue
		}
		info := RowInfo{
			Index: row.Index,
			Count: len(row.Items),
			MinX:  math.MaxInt,
			MaxX:  math.MinInt,
		}
		var sumY float64
		for _, item := range row.Items {
			r := item.Rect()
			sumY += centerY(r)
			info.MinX = min(info.MinX, r.Min.X)
			info.MaxX = max(info.MaxX, r.Max.X)
		}
		info.AvgY = sumY / float64(len(row.Items))
		infos = append(infos, info)
	}
	return infos
}
