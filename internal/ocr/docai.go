package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/MeKo-Tech/intygscan/internal/layout"
)

// DocAIConfig locates a Google Document AI OCR processor.
type DocAIConfig struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id" json:"project_id"`
	Location        string `mapstructure:"location" yaml:"location" json:"location"`
	ProcessorID     string `mapstructure:"processor_id" yaml:"processor_id" json:"processor_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
}

// DocAI sends images to a Document AI OCR processor.
type DocAI struct {
	cfg DocAIConfig
}

// NewDocAI checks the processor coordinates.
func NewDocAI(cfg DocAIConfig) (*DocAI, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, errors.New("document ai project and processor ids are required")
	}
	if cfg.Location == "" {
		cfg.Location = "eu"
	}
	return &DocAI{cfg: cfg}, nil
}

// Recognize implements Recognizer. The language hint is left to the
// processor.
func (d *DocAI) Recognize(ctx context.Context, image []byte, _ string) (*Result, error) {
	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", d.cfg.Location)),
	}
	if d.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create document ai client: %w", err)
	}
	defer func() { _ = client.Close() }()

	req := &documentaipb.ProcessRequest{
		Name: fmt.Sprintf("projects/%s/locations/%s/processors/%s", d.cfg.ProjectID, d.cfg.Location, d.cfg.ProcessorID),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: http.DetectContentType(image),
			},
		},
		SkipHumanReview: true,
	}
	resp, err := client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, &APIError{Service: "document ai", Message: err.Error()}
	}
	return docAIResult(resp.GetDocument()), nil
}

// docAIResult converts the first page of a processed document. Token boxes
// are taken from pixel vertices, or from normalized ones scaled by the page
// dimension.
func docAIResult(doc *documentaipb.Document) *Result {
	res := &Result{Text: strings.TrimSpace(doc.GetText())}
	pages := doc.GetPages()
	if len(pages) == 0 {
		return res
	}
	page := pages[0]
	dim := page.GetDimension()
	res.Width, res.Height = int(dim.GetWidth()), int(dim.GetHeight())

	for _, tok := range page.GetTokens() {
		lay := tok.GetLayout()
		text := strings.TrimSpace(anchorText(lay.GetTextAnchor(), doc.GetText()))
		box, ok := tokenBox(lay.GetBoundingPoly(), dim)
		if text == "" || !ok {
			continue
		}
		res.Words = append(res.Words, layout.Word{
			Text: text, X1: box[0], Y1: box[1], X2: box[2], Y2: box[3],
			Confidence: float64(lay.GetConfidence() * 100),
		})
	}
	return res
}

func anchorText(a *documentaipb.Document_TextAnchor, full string) string {
	runes := []rune(full)
	var b strings.Builder
	for _, seg := range a.GetTextSegments() {
		start := max(0, min(int(seg.GetStartIndex()), len(runes)))
		end := max(start, min(int(seg.GetEndIndex()), len(runes)))
		b.WriteString(string(runes[start:end]))
	}
	return b.String()
}

func tokenBox(poly *documentaipb.BoundingPoly, dim *documentaipb.Document_Page_Dimension) ([4]float64, bool) {
	var xs, ys []float64
	if vs := poly.GetVertices(); len(vs) > 0 {
		for _, v := range vs {
			xs = append(xs, float64(v.GetX()))
			ys = append(ys, float64(v.GetY()))
		}
	} else {
		w, h := float64(dim.GetWidth()), float64(dim.GetHeight())
		for _, v := range poly.GetNormalizedVertices() {
			xs = append(xs, float64(v.GetX())*w)
			ys = append(ys, float64(v.GetY())*h)
		}
	}
	if len(xs) == 0 {
		return [4]float64{}, false
	}
	box := [4]float64{xs[0], ys[0], xs[0], ys[0]}
	for i := range xs {
		box[0], box[2] = min(box[0], xs[i]), max(box[2], xs[i])
		box[1], box[3] = min(box[1], ys[i]), max(box[3], ys[i])
	}
	return box, true
}
