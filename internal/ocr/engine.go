package ocr

import (
	"context"
	"fmt"
	"image"
	"regexp"
	"sort"
	"strings"
)

// Engine names accepted by New.
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
)

// Line is one line of recognized text.
type Line struct {
	// Text is the recognized text of the line.
	Text string `json:"text"`

	// Y is the vertical center of the line in the recognized image; it
	// orders lines top to bottom.
	Y float64 `json:"y"`

	// Confidence is the engine's score in [0, 1], or 0 when unknown.
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text lines in an image.
//
// Recognize returns zero lines (and a nil error) when the image holds no
// text. Engines hold native or network resources; Close releases them.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Line, error)
	Name() string
	Close() error
}

// Options selects and configures an Engine.
type Options struct {
	// Engine is EngineTesseract or EngineVision.
	Engine string

	// Language is a short code ("en", "ch") or an engine-native code.
	Language string

	// TessdataPrefix points Tesseract at a language data directory.
	// Empty uses the system default.
	TessdataPrefix string
}

// New creates the engine named by opts.Engine.
func New(ctx context.Context, opts Options) (Engine, error) {
	switch strings.ToLower(opts.Engine) {
	case "", EngineTesseract:
		return NewTesseractEngine(opts.Language, opts.TessdataPrefix)
	case EngineVision:
		return NewVisionEngine(ctx, opts.Language)
	default:
		return nil, NewError("New", ErrUnknownEngine, fmt.Sprintf("engine %q", opts.Engine))
	}
}

// Reader turns a label crop into a single cleaned string.
type Reader struct {
	engine     Engine
	preprocess bool
}

// NewReader returns a Reader using engine. When preprocess is set, crops
// are upscaled and contrast enhanced before recognition.
func NewReader(engine Engine, preprocess bool) *Reader {
	return &Reader{engine: engine, preprocess: preprocess}
}

// ReadLabel recognizes the text in img, merges its lines and cleans the
// result. An empty image yields "" without calling the engine.
func (r *Reader) ReadLabel(ctx context.Context, img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", nil
	}
	if r.preprocess {
		img = Preprocess(img)
	}

	lines, err := r.engine.Recognize(ctx, img)
	if err != nil {
		return "", WrapError("ReadLabel", err, r.engine.Name())
	}
	return CleanText(MergeLines(lines)), nil
}

// MergeLines joins lines top to bottom with single spaces, so a label
// reading "AV" over "C101" becomes "AV C101". Blank lines are dropped and
// each line is trimmed. Lines with equal Y keep their input order.
func MergeLines(lines []Line) string {
	kept := make([]Line, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.Text) != "" {
			kept = append(kept, l)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Y < kept[j].Y })

	parts := make([]string, len(kept))
	for i, l := range kept {
		parts[i] = strings.TrimSpace(l.Text)
	}
	return strings.Join(parts, " ")
}

var noiseChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// CleanText removes OCR noise: everything except letters, digits,
// underscores, hyphens and whitespace is dropped, whitespace runs collapse
// to one space, and the result is upper-cased.
func CleanText(text string) string {
	cleaned := noiseChars.ReplaceAllString(text, "")
	return strings.ToUpper(strings.Join(strings.Fields(cleaned), " "))
}
