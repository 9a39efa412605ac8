package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/intygscan/internal/layout"
)

// DefaultOCRSpaceEndpoint is the public OCR.space parse endpoint.
const DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"

// OCRSpace calls the OCR.space REST API with word overlay enabled.
type OCRSpace struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewOCRSpace returns a client. An empty key is a configuration error.
func NewOCRSpace(apiKey, endpoint string) (*OCRSpace, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if endpoint == "" {
		endpoint = DefaultOCRSpaceEndpoint
	}
	return &OCRSpace{apiKey: apiKey, endpoint: endpoint, client: &http.Client{}}, nil
}

// WithHTTPClient replaces the HTTP client.
func (c *OCRSpace) WithHTTPClient(hc *http.Client) *OCRSpace {
	c.client = hc
	return c
}

type ocrSpaceWord struct {
	WordText string  `json:"WordText"`
	Left     float64 `json:"Left"`
	Top      float64 `json:"Top"`
	Width    float64 `json:"Width"`
	Height   float64 `json:"Height"`
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText  string `json:"ParsedText"`
		TextOverlay struct {
			Lines []struct {
				Words []ocrSpaceWord `json:"Words"`
			} `json:"Lines"`
		} `json:"TextOverlay"`
		ImageWidth  int `json:"ImageWidth"`
		ImageHeight int `json:"ImageHeight"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// errorText flattens ErrorMessage, which the API sends as a string or a list.
func (r *ocrSpaceResponse) errorText() string {
	if len(r.ErrorMessage) == 0 || string(r.ErrorMessage) == "null" {
		return ""
	}
	var list []string
	if err := json.Unmarshal(r.ErrorMessage, &list); err == nil {
		return strings.Join(list, ", ")
	}
	var s string
	if err := json.Unmarshal(r.ErrorMessage, &s); err == nil {
		return s
	}
	return string(r.ErrorMessage)
}

// Recognize implements Recognizer. A language rejected by the service is
// retried once in English.
func (c *OCRSpace) Recognize(ctx context.Context, image []byte, lang string) (*Result, error) {
	language := OCRSpaceLanguage(lang)
	res, err := c.call(ctx, image, language)
	var apiErr *APIError
	if errors.As(err, &apiErr) && language != "eng" && isLanguageError(apiErr.Message) {
		slog.Debug("OCR.space rejected language, retrying in English", "language", language)
		res, err = c.call(ctx, image, "eng")
	}
	return res, err
}

func (c *OCRSpace) call(ctx context.Context, image []byte, language string) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"apikey":            c.apiKey,
		"language":          language,
		"isOverlayRequired": "true",
		"detectOrientation": "true",
		"scale":             "true",
		"OCREngine":         "2",
		"base64Image":       "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr.space request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ocr.space response: %w", err)
	}
	var parsed ocrSpaceResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := parsed.errorText()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Service: "ocr.space", StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode ocr.space response: %w", decodeErr)
	}
	if parsed.IsErroredOnProcessing || parsed.errorText() != "" {
		return nil, &APIError{Service: "ocr.space", Message: parsed.errorText()}
	}
	return parsed.result(), nil
}

func (r *ocrSpaceResponse) result() *Result {
	if len(r.ParsedResults) == 0 {
		return &Result{}
	}
	pr := r.ParsedResults[0]
	out := &Result{
		Text:   strings.TrimSpace(pr.ParsedText),
		Width:  pr.ImageWidth,
		Height: pr.ImageHeight,
	}
	for _, line := range pr.TextOverlay.Lines {
		for _, w := range line.Words {
			if w.WordText == "" {
				continue
			}
			out.Words = append(out.Words, layout.Word{
				Text: w.WordText,
				X1:   w.Left,
				Y1:   w.Top,
				X2:   w.Left + w.Width,
				Y2:   w.Top + w.Height,
			})
		}
	}
	return out
}

var ocrSpaceLanguages = map[string]bool{
	"eng": true, "swe": true, "dan": true, "nor": true, "fin": true, "ger": true,
	"fre": true, "spa": true, "ita": true, "por": true, "pol": true, "dut": true,
}

// OCRSpaceLanguage maps a Tesseract style language list to the single
// three-letter code OCR.space accepts. Swedish wins when listed; unknown
// codes become "eng".
func OCRSpaceLanguage(lang string) string {
	s := strings.ToLower(strings.TrimSpace(lang))
	primary, _, _ := strings.Cut(s, "+")
	if strings.Contains(s, "swe") || s == "sv" || strings.HasPrefix(s, "sv+") {
		primary = "swe"
	}
	switch primary {
	case "sv", "se":
		primary = "swe"
	case "en", "":
		primary = "eng"
	}
	if !ocrSpaceLanguages[primary] {
		return "eng"
	}
	return primary
}

func isLanguageError(msg string) bool {
	return strings.Contains(msg, "E201") || strings.Contains(strings.ToLower(msg), "language")
}
