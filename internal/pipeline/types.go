package pipeline

import (
	"errors"
	"slices"

	"github.com/MeKo-Tech/intygscan/internal/classify"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/layout"
	"github.com/MeKo-Tech/intygscan/internal/overlap"
)

var (
	// ErrOCRTimeout means the recognizer did not answer within the timeout.
	ErrOCRTimeout = errors.New("ocr timed out")
	// ErrOCRFailed wraps any other recognizer failure.
	ErrOCRFailed = errors.New("ocr failed")
	// ErrEmptyText means OCR answered but found no text on the image.
	ErrEmptyText = errors.New("no text recognized")
	// ErrNoRecognizer is returned by Process on a pipeline built without one.
	ErrNoRecognizer = errors.New("pipeline has no ocr recognizer")
)

// Issue codes.
const (
	IssueUnrecognized   = "unrecognized"
	IssueRegimeMismatch = "regime_mismatch"
	IssueOCRTimeout     = "ocr_timeout"
	IssueOCRFailed      = "ocr_failed"
	IssueEmptyText      = "empty_text"
	IssueDateMissing    = "date_missing"
	IssueOverlap        = "overlap"
	IssueAspectRatio    = "aspect_ratio"
)

// Issue is a problem the reviewer must see. BlocksSave issues must be
// resolved or acknowledged before the record is stored.
type Issue struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	BlocksSave bool   `json:"blocksSave"`
}

// Processing holds stage timings in nanoseconds.
type Processing struct {
	PreprocessNs int64 `json:"preprocess_ns"`
	OCRNs        int64 `json:"ocr_ns"`
	AnalyzeNs    int64 `json:"analyze_ns"`
	TotalNs      int64 `json:"total_ns"`
}

// Result is the outcome of one scan.
type Result struct {
	Record         intyg.Record    `json:"record"`
	Labels         intyg.Labels    `json:"labels"`
	Classification classify.Result `json:"classification"`
	// RawText is the OCR text before normalization.
	RawText        string          `json:"rawText"`
	NormalizedText string          `json:"normalizedText"`
	Words          []layout.Word   `json:"words,omitempty"`
	Width          int             `json:"width,omitempty"`
	Height         int             `json:"height,omitempty"`
	Overlap        *overlap.Report `json:"overlap,omitempty"`
	Issues         []Issue         `json:"issues"`
	Processing     Processing      `json:"processing"`
}

// CanSave reports whether no issue blocks saving.
func (r *Result) CanSave() bool {
	return !slices.ContainsFunc(r.Issues, func(i Issue) bool { return i.BlocksSave })
}

// HasIssue reports whether an issue with code was raised.
func (r *Result) HasIssue(code string) bool {
	return slices.ContainsFunc(r.Issues, func(i Issue) bool { return i.Code == code })
}

// IssueForError maps an error returned by Process to the issue shown to the
// user. Errors that are not OCR failures yield false.
func IssueForError(err error) (Issue, bool) {
	switch {
	case err == nil:
		return Issue{}, false
	case errors.Is(err, ErrOCRTimeout):
		return Issue{Code: IssueOCRTimeout, Message: "Text recognition took too long. Try again."}, true
	case errors.Is(err, ErrEmptyText):
		return Issue{Code: IssueEmptyText, Message: "No text was found in the image. Try a sharper photo."}, true
	case errors.Is(err, ErrOCRFailed):
		return Issue{Code: IssueOCRFailed, Message: "Text recognition failed. Try again."}, true
	}
	return Issue{}, false
}
