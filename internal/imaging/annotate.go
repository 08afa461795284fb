package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotation describes one recognized label to draw onto an image.
type Annotation struct {
	// Bounds is the detected box in source image coordinates.
	Bounds image.Rectangle

	// Sequence is the 1-based reading order position shown in the label.
	Sequence int

	// Text is the recognized text. When empty only the sequence is shown.
	Text string

	// Row is the 0-based reading row; it selects the box color.
	Row int
}

// AnnotateOptions controls how annotations are drawn.
type AnnotateOptions struct {
	// Thickness is the box border width in pixels.
	Thickness int

	// TextColor is the label text color as "#RRGGBB".
	TextColor string

	// LabelBackground is the color behind the label text as "#RRGGBB".
	LabelBackground string
}

// DefaultAnnotateOptions returns 2 px boxes with blue text on white labels.
func DefaultAnnotateOptions() AnnotateOptions {
	return AnnotateOptions{
		Thickness:       2,
		TextColor:       "#0000FF",
		LabelBackground: "#FFFFFF",
	}
}

// Annotate returns a copy of img with a box and a "<sequence>: <text>" label
// drawn for every annotation. The source image is not modified.
//
// Boxes are colored by row so that the reading order can be checked at a
// glance. Labels sit above their box, or just inside it when the box touches
// the top of the image.
func Annotate(img image.Image, annotations []Annotation, opts AnnotateOptions) *image.NRGBA {
	origin := img.Bounds().Min
	out := imaging.Clone(img)

	if opts.Thickness < 1 {
		opts.Thickness = 1
	}
	fg := parseHexColor(opts.TextColor, colorful.Color{R: 0, G: 0, B: 1})
	bg := parseHexColor(opts.LabelBackground, colorful.Color{R: 1, G: 1, B: 1})

	rows := 0
	for _, a := range annotations {
		if a.Row+1 > rows {
			rows = a.Row + 1
		}
	}

	for _, a := range annotations {
		r := a.Bounds.Canon().Sub(origin)
		drawRect(out, r, opts.Thickness, RowColor(a.Row, rows))
		drawLabel(out, r, labelText(a), fg, bg)
	}

	return out
}

// RowColor returns the box color for row out of rows. Hues are spaced evenly
// around the color wheel starting at green, so adjacent rows stay distinct.
func RowColor(row, rows int) color.Color {
	if rows < 1 {
		rows = 1
	}
	hue := math.Mod(120+float64(row)*360/float64(rows), 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsv(hue, 0.9, 0.85).Clamped()
}

func labelText(a Annotation) string {
	text := strings.TrimSpace(a.Text)
	if text == "" {
		return strconv.Itoa(a.Sequence)
	}
	return fmt.Sprintf("%d: %s", a.Sequence, text)
}

// drawRect draws an unfilled rectangle whose border grows inward by thickness.
// Drawing is clipped to the destination bounds.
func drawRect(dst draw.Image, r image.Rectangle, thickness int, c color.Color) {
	src := image.NewUniform(c)
	strips := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, s := range strips {
		draw.Draw(dst, s, src, image.Point{}, draw.Src)
	}
}

// drawLabel renders text with the 7x13 bitmap face on a filled background,
// placed 5 px above the box or inside it when there is no room above.
func drawLabel(dst draw.Image, box image.Rectangle, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	width := font.MeasureString(face, text).Ceil()

	x := box.Min.X
	baseline := box.Min.Y - 5
	if baseline < ascent+5 {
		baseline = box.Min.Y + ascent + 5
	}

	background := image.Rect(x-2, baseline-ascent-2, x+width+2, baseline+descent+2)
	draw.Draw(dst, background, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

// parseHexColor parses "#RRGGBB", returning fallback when hex is malformed.
func parseHexColor(hex string, fallback colorful.Color) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallback
	}
	return c
}
