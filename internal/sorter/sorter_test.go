package sorter

import (
	"image"
	"math"
	"math/rand"
	"testing"
)

type label struct {
	id int
	r  image.Rectangle
}

func (l label) Rect() image.Rectangle { return l.r }

// at returns a 10x10 label centered on (cx, cy).
func at(id, cx, cy int) label {
	return label{id: id, r: image.Rect(cx-5, cy-5, cx+5, cy+5)}
}

func ids(items []label) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func randomLabels(rng *rand.Rand, n int) []label {
	items := make([]label, n)
	for i := range items {
		x := rng.Intn(1000)
		y := rng.Intn(1000)
		w := 5 + rng.Intn(60)
		h := 5 + rng.Intn(60)
		items[i] = label{id: i, r: image.Rect(x, y, x+w, y+h)}
	}
	return items
}

func TestSort_Example(t *testing.T) {
	items := []label{at(3, 10, 60), at(2, 50, 12), at(1, 10, 10)}

	got := ids(Sort(items, 20))
	want := []int{1, 2, 3}
	if !equalInts(got, want) {
		t.Errorf("Sort order = %v, want %v", got, want)
	}
}

func TestSort_Empty(t *testing.T) {
	got := Sort([]label{}, 20)
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d items", len(got))
	}
	if rows := Rows[label](nil, 20); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestSort_Single(t *testing.T) {
	got := ids(Sort([]label{at(7, 100, 100)}, 20))
	if !equalInts(got, []int{7}) {
		t.Errorf("Sort single = %v", got)
	}
}

func TestSort_DoesNotModifyInput(t *testing.T) {
	items := []label{at(2, 50, 50), at(1, 10, 10)}
	Sort(items, 20)
	if items[0].id != 2 || items[1].id != 1 {
		t.Error("Sort modified its input")
	}
}

func TestSort_RowsLeftToRight(t *testing.T) {
	// Two rows with jittered centers, given in scrambled order
	items := []label{
		at(6, 300, 205),
		at(1, 20, 100),
		at(5, 150, 198),
		at(3, 250, 104),
		at(4, 30, 200),
		at(2, 120, 95),
	}

	// 2 (y=95) anchors the first row; 1 and 3 are within tolerance of it
	got := ids(Sort(items, 20))
	want := []int{1, 2, 3, 4, 5, 6}
	if !equalInts(got, want) {
		t.Errorf("Sort order = %v, want %v", got, want)
	}
}

func TestSort_Outlier(t *testing.T) {
	items := []label{at(1, 10, 10), at(2, 60, 12), at(3, 30, 500)}
	rows := Rows(items, 20)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if len(rows[1].Items) != 1 || rows[1].Items[0].id != 3 {
		t.Errorf("outlier should form its own row, got %v", ids(rows[1].Items))
	}
}

func TestRows_ChainDoesNotMerge(t *testing.T) {
	// Centers 15 px apart with tolerance 20: a running reference would chain
	// all three together, the anchored reference must not.
	items := []label{at(1, 10, 0+50), at(2, 20, 15+50), at(3, 30, 30+50)}
	rows := Rows(items, 20)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !equalInts(ids(rows[0].Items), []int{1, 2}) || !equalInts(ids(rows[1].Items), []int{3}) {
		t.Errorf("rows = %v / %v", ids(rows[0].Items), ids(rows[1].Items))
	}
	if rows[0].Reference != 50 || rows[1].Reference != 80 {
		t.Errorf("references = %v, %v", rows[0].Reference, rows[1].Reference)
	}
}

func TestRows_ZeroTolerance(t *testing.T) {
	items := []label{at(1, 10, 10), at(2, 20, 10)}
	rows := Rows(items, 0)
	if len(rows) != 2 {
		t.Errorf("expected every item in its own row, got %d rows", len(rows))
	}
}

func TestSort_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		items := randomLabels(rng, rng.Intn(40))
		tol := float64(5 + rng.Intn(60))

		sorted := Sort(items, tol)

		// Same length, no drops or duplicates
		if len(sorted) != len(items) {
			t.Fatalf("trial %d: length %d, want %d", trial, len(sorted), len(items))
		}
		seen := make(map[int]bool)
		for _, it := range sorted {
			if seen[it.id] {
				t.Fatalf("trial %d: duplicate id %d", trial, it.id)
			}
			seen[it.id] = true
		}

		// Idempotent
		again := Sort(sorted, tol)
		if !equalInts(ids(sorted), ids(again)) {
			t.Fatalf("trial %d: not idempotent", trial)
		}

		// Independent of input order
		shuffled := make([]label, len(items))
		copy(shuffled, items)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if !equalInts(ids(sorted), ids(Sort(shuffled, tol))) {
			t.Fatalf("trial %d: result depends on input order", trial)
		}

		rows := Rows(items, tol)
		prevRef := math.Inf(-1)
		for _, row := range rows {
			if row.Reference <= prevRef {
				t.Fatalf("trial %d: row references not increasing", trial)
			}
			prevRef = row.Reference

			for i, it := range row.Items {
				cy := centerY(it.r)
				// Members lie within [reference, reference+tolerance)
				if cy < row.Reference || cy-row.Reference >= tol {
					t.Fatalf("trial %d: center %.1f outside row at %.1f (tol %.0f)", trial, cy, row.Reference, tol)
				}
				// Left to right
				if i > 0 && centerX(row.Items[i-1].r) > centerX(it.r) {
					t.Fatalf("trial %d: row not in x order", trial)
				}
			}

			// Items at least tol apart never share a row
			for i := range row.Items {
				for j := i + 1; j < len(row.Items); j++ {
					if math.Abs(centerY(row.Items[i].r)-centerY(row.Items[j].r)) >= tol {
						t.Fatalf("trial %d: items %.0f px apart share a row", trial, tol)
					}
				}
			}
		}
	}
}

func TestEstimateTolerance(t *testing.T) {
	box := func(h int) label { return label{r: image.Rect(0, 0, 10, h)} }

	tests := []struct {
		name    string
		heights []int
		want    int
	}{
		{"empty", nil, DefaultTolerance},
		{"single", []int{60}, 30},
		{"odd count uses middle", []int{40, 60, 500}, 30},
		{"even count averages middle", []int{40, 50, 70, 900}, 30},
		{"rounds half up", []int{41}, 21},
		{"clamped low", []int{4, 6, 8}, MinTolerance},
		{"clamped high", []int{300, 400}, MaxTolerance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]label, len(tt.heights))
			for i, h := range tt.heights {
				items[i] = box(h)
			}
			if got := EstimateTolerance(items); got != tt.want {
				t.Errorf("EstimateTolerance = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	items := []label{
		{id: 1, r: image.Rect(10, 0, 30, 20)},
		{id: 2, r: image.Rect(50, 4, 90, 24)},
		{id: 3, r: image.Rect(5, 100, 25, 120)},
	}

	infos := Summarize(Rows(items, 20))
	if len(infos) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(infos))
	}

	want := RowInfo{Index: 0, Count: 2, AvgY: 12, MinX: 10, MaxX: 90}
	if infos[0] != want {
		t.Errorf("row 0 = %+v, want %+v", infos[0], want)
	}
	want = RowInfo{Index: 1, Count: 1, AvgY: 110, MinX: 5, MaxX: 25}
	if infos[1] != want {
		t.Errorf("row 1 = %+v, want %+v", infos[1], want)
	}
}
