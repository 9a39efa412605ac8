package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/MeKo-Tech/intygscan/internal/classify"
	"github.com/MeKo-Tech/intygscan/internal/common"
	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/layout"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/overlap"
	"github.com/MeKo-Tech/intygscan/internal/parser"
	"github.com/MeKo-Tech/intygscan/internal/textnorm"
)

// Stage names reported to a StageFunc.
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageOCR        Stage = "ocr"
	StageClassify   Stage = "classify"
	StageParse      Stage = "parse"
	StageOverlap    Stage = "overlap"
)

// StageFunc is called when a stage starts.
type StageFunc func(Stage)

// Process runs the whole pipeline on an encoded image. OCR failures are
// returned as errors wrapping ErrOCRTimeout, ErrOCRFailed or ErrEmptyText;
// everything found afterwards is reported as issues on the result.
func (p *Pipeline) Process(ctx context.Context, image []byte) (*Result, error) {
	return p.ProcessStages(ctx, image, nil)
}

// ProcessStages is Process with stage notifications.
func (p *Pipeline) ProcessStages(ctx context.Context, image []byte, onStage StageFunc) (*Result, error) {
	if p.recognizer == nil {
		return nil, ErrNoRecognizer
	}
	notify := func(s Stage) {
		if onStage != nil {
			onStage(s)
		}
	}
	total := common.NewNamedTimer("scan")

	if _, err := ocr.ValidateUpload(image, p.cfg.MaxUploadBytes); err != nil {
		return nil, err
	}

	notify(StagePreprocess)
	t := common.NewNamedTimer("preprocess")
	data, meta, err := ocr.Preprocess(image, p.cfg.Preprocess)
	if err != nil {
		return nil, fmt.Errorf("preprocess image: %w", err)
	}
	prepDur := t.Stop()

	notify(StageOCR)
	t = common.NewNamedTimer("ocr")
	scan, err := p.recognize(ctx, data)
	ocrDur := t.Stop()
	ocrDuration.Observe(ocrDur.Seconds())
	if err != nil {
		p.logger.Warn("OCR failed", "error", err, "elapsed_ms", ocrDur.Milliseconds())
		if issue, ok := IssueForError(err); ok {
			issuesTotal.WithLabelValues(issue.Code).Inc()
		}
		return nil, err
	}
	if scan.Width <= 0 || scan.Height <= 0 {
		scan.Width, scan.Height = meta.Width, meta.Height
	}

	res := p.analyze(ctx, scan, notify)
	res.Processing.PreprocessNs = prepDur.Nanoseconds()
	res.Processing.OCRNs = ocrDur.Nanoseconds()
	res.Processing.TotalNs = total.Stop().Nanoseconds()
	return res, nil
}

// ProcessScan runs classification and extraction on an OCR result produced
// elsewhere (a saved scan, hOCR or TSV file). Blank text is rebuilt from the
// words when there are any.
func (p *Pipeline) ProcessScan(ctx context.Context, scan *ocr.Result) (*Result, error) {
	if scan == nil || (strings.TrimSpace(scan.Text) == "" && len(scan.Words) == 0) {
		return nil, ErrEmptyText
	}
	total := common.NewNamedTimer("scan")
	res := p.analyze(ctx, scan, nil)
	res.Processing.TotalNs = total.Stop().Nanoseconds()
	return res, nil
}

// recognize races the recognizer against the OCR timeout.
func (p *Pipeline) recognize(ctx context.Context, image []byte) (*ocr.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
	defer cancel()

	type outcome struct {
		res *ocr.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.recognizer.Recognize(ctx, image, p.cfg.Language)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		switch {
		case o.err != nil && errors.Is(o.err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", ErrOCRTimeout, p.cfg.OCRTimeout)
		case o.err != nil:
			return nil, fmt.Errorf("%w: %w", ErrOCRFailed, o.err)
		case o.res == nil || (strings.TrimSpace(o.res.Text) == "" && len(o.res.Words) == 0):
			return nil, ErrEmptyText
		}
		return o.res, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrOCRTimeout, p.cfg.OCRTimeout)
		}
		return nil, ctx.Err()
	}
}

func (p *Pipeline) analyze(ctx context.Context, scan *ocr.Result, notify StageFunc) *Result {
	if notify == nil {
		notify = func(Stage) {}
	}
	t := common.NewNamedTimer("analyze")

	text := scan.Text
	if strings.TrimSpace(text) == "" {
		text = layout.ReconstructLines(scan.Words)
	}
	normalized := textnorm.Normalize(text)

	notify(StageClassify)
	cls := classify.Classify(normalized, nil, p.cfg.ExpectedRegime)

	notify(StageParse)
	rec := parser.ParseInput(cls.Kind, parser.Input{Text: normalized, Words: scan.Words, Size: scan.Size()})

	res := &Result{
		Record:         rec,
		Labels:         intyg.LabelsFor(cls.Kind),
		Classification: cls,
		RawText:        scan.Text,
		NormalizedText: normalized,
		Words:          scan.Words,
		Width:          scan.Width,
		Height:         scan.Height,
		Issues:         []Issue{},
	}
	res.Issues = append(res.Issues, recordIssues(cls, &res.Record)...)
	if issue, ok := aspectIssue(scan.Width, scan.Height, p.cfg.AspectTolerance); ok {
		res.Issues = append(res.Issues, issue)
	}

	if p.cfg.CheckOverlap && p.source != nil && isDatedActivity(rec.Kind) {
		notify(StageOverlap)
		p.checkOverlap(ctx, res)
	}

	res.Processing.AnalyzeNs = t.Stop().Nanoseconds()
	scansTotal.WithLabelValues(kindLabel(rec.Kind)).Inc()
	for _, is := range res.Issues {
		issuesTotal.WithLabelValues(is.Code).Inc()
	}
	p.logger.Debug("Scan analyzed",
		"kind", rec.Kind.String(),
		"signals", cls.Signals,
		"issues", len(res.Issues),
		"elapsed_ms", res.Processing.AnalyzeNs/1e6)
	return res
}

func (p *Pipeline) checkOverlap(ctx context.Context, res *Result) {
	var candidate intyg.Period
	if res.Record.Period != nil {
		candidate = *res.Record.Period
	}
	report, err := overlap.CheckSource(ctx, p.source, candidate, res.Record.CertificateDate)
	if err != nil {
		p.logger.Warn("Overlap check skipped", "error", err)
		return
	}
	res.Overlap = &report
	if report.HasOverlap {
		res.Issues = append(res.Issues, Issue{
			Code:       IssueOverlap,
			Message:    "The period overlaps " + strings.Join(report.OverlappingItems, "; "),
			BlocksSave: true,
		})
	}
}

func recordIssues(cls classify.Result, rec *intyg.Record) []Issue {
	var out []Issue
	if !cls.Recognized() {
		out = append(out, Issue{
			Code:    IssueUnrecognized,
			Message: "The certificate type was not recognized. Fill in the fields manually.",
		})
	}
	if cls.RegimeMismatch {
		out = append(out, Issue{
			Code: IssueRegimeMismatch,
			Message: fmt.Sprintf("The certificate follows the %s regulations but %s was expected.",
				cls.Regime, cls.ExpectedRegime),
			BlocksSave: true,
		})
	}
	if isDatedActivity(rec.Kind) && rec.Period.Empty() {
		out = append(out, Issue{
			Code:       IssueDateMissing,
			Message:    "No start or end date was found. Enter the period before saving.",
			BlocksSave: true,
		})
	}
	return out
}

// aspectIssue flags photos whose shape is far from the printed A4 page,
// usually a cropped or rotated capture. Unknown sizes are not flagged.
func aspectIssue(width, height int, tol float64) (Issue, bool) {
	if width <= 0 || height <= 0 || tol <= 0 {
		return Issue{}, false
	}
	ratio := float64(width) / float64(height)
	want := float64(ReferenceWidth) / float64(ReferenceHeight)
	if math.Abs(ratio-want) <= tol {
		return Issue{}, false
	}
	return Issue{
		Code:    IssueAspectRatio,
		Message: fmt.Sprintf("The image proportions (%.2f) differ from a full page (%.2f). Check that the whole certificate is in the picture.", ratio, want),
	}, true
}

// isDatedActivity reports whether k describes an activity with a period.
func isDatedActivity(k intyg.Kind) bool {
	return k.Valid() && !k.IsAdministrative() && k.HasDates()
}

func kindLabel(k intyg.Kind) string {
	if !k.Valid() {
		return "unknown"
	}
	return k.String()
}
