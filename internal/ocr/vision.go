package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// imageAnnotator is the part of the Vision client the engine uses.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// VisionEngine recognizes text with the Google Cloud Vision API.
type VisionEngine struct {
	client imageAnnotator
	hints  []string
}

// VisionLanguageHints maps a short language code to Vision language hints.
// "ch" is Chinese; other values are passed through. Empty means no hint.
func VisionLanguageHints(lang string) []string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "":
		return nil
	case "ch":
		return []string{"zh"}
	case "eng":
		return []string{"en"}
	default:
		return []string{strings.TrimSpace(lang)}
	}
}

// NewVisionEngine creates a Vision engine with credentials from the
// environment: GOOGLE_CREDENTIALS (inline JSON) first, then
// GOOGLE_APPLICATION_CREDENTIALS (file), then application defaults.
func NewVisionEngine(ctx context.Context, lang string) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return newVisionEngineWithClient(client, lang), nil
}

func newVisionEngineWithClient(client imageAnnotator, lang string) *VisionEngine {
	return &VisionEngine{client: client, hints: VisionLanguageHints(lang)}
}

// Name implements Engine.
func (e *VisionEngine) Name() string { return EngineVision }

// Recognize implements Engine. The image is sent inline as PNG with
// TEXT_DETECTION. Lines are taken from the paragraphs of the full text
// annotation, positioned by their bounding polygon; when the response has no
// layout the plain text is split on newlines.
func (e *VisionEngine) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	const op = "Recognize"

	if img == nil || img.Bounds().Empty() {
		return []Line{}, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, NewError(op, err, "failed to encode image")
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: buf.Bytes()},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: e.hints},
			},
		},
	}

	resp, err := e.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, NewError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.GetResponses()) == 0 {
		return nil, NewError(op, ErrRecognitionFailed, "no response from Vision API")
	}

	imgResp := resp.GetResponses()[0]
	if imgResp.GetError() != nil && imgResp.GetError().GetMessage() != "" {
		return nil, NewError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API error: %s", imgResp.GetError().GetMessage()))
	}

	return visionLines(imgResp.GetFullTextAnnotation()), nil
}

// visionLines flattens a text annotation into lines, one per paragraph.
func visionLines(annotation *visionpb.TextAnnotation) []Line {
	lines := make([]Line, 0)
	if annotation == nil {
		return lines
	}

	for _, page := range annotation.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, para := range block.GetParagraphs() {
				words := make([]string, 0, len(para.GetWords()))
				for _, word := range para.GetWords() {
					var sb strings.Builder
					for _, sym := range word.GetSymbols() {
						sb.WriteString(sym.GetText())
					}
					if sb.Len() > 0 {
						words = append(words, sb.String())
					}
				}
				if len(words) == 0 {
					continue
				}
				lines = append(lines, Line{
					Text:       strings.Join(words, " "),
					Y:          polygonCenterY(para.GetBoundingBox()),
					Confidence: float64(para.GetConfidence()),
				})
			}
		}
	}

	if len(lines) == 0 {
		return splitLines(annotation.GetText())
	}
	return lines
}

func polygonCenterY(poly *visionpb.BoundingPoly) float64 {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vertices {
		sum += float64(v.GetY())
	}
	return sum / float64(len(vertices))
}

// Close closes the underlying Vision client.
func (e *VisionEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
