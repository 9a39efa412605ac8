// Package store keeps the activities already on the applicant's timeline in
// a local sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/overlap"
	"github.com/MeKo-Tech/intygscan/internal/parser"
)

var (
	ErrNotFound    = errors.New("activity not found")
	ErrNotActivity = errors.New("certificate kind describes no activity")
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
	id               TEXT PRIMARY KEY,
	kind             TEXT NOT NULL,
	label            TEXT NOT NULL,
	start_date       TEXT NOT NULL DEFAULT '',
	end_date         TEXT NOT NULL DEFAULT '',
	certificate_date TEXT NOT NULL DEFAULT '',
	visible          INTEGER NOT NULL DEFAULT 1,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS activities_start ON activities (start_date);
`

// Activity is one stored course or placement.
type Activity struct {
	ID              string     `json:"id"`
	Kind            intyg.Kind `json:"kind"`
	Label           string     `json:"label"`
	StartISO        string     `json:"startISO,omitempty"`
	EndISO          string     `json:"endISO,omitempty"`
	CertificateDate string     `json:"certificateDate,omitempty"`
	Visible         bool       `json:"visible"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Overlap converts the activity for the conflict check.
func (a Activity) Overlap() overlap.Activity {
	return overlap.Activity{
		ID:              a.ID,
		Label:           a.Label,
		StartISO:        a.StartISO,
		EndISO:          a.EndISO,
		CertificateDate: a.CertificateDate,
		Visible:         a.Visible,
	}
}

// Store is a sqlite backed activity list. It implements overlap.Source.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite serializes writers; one connection also keeps :memory: stable.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate activities: %w", err)
	}
	logger.Debug("Activity store opened", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save inserts a. A missing ID is generated and CreatedAt is set to now.
func (s *Store) Save(ctx context.Context, a Activity) (Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Label == "" {
		return Activity{}, errors.New("activity label is required")
	}
	a.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, kind, label, start_date, end_date, certificate_date, visible, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Kind.String(), a.Label, a.StartISO, a.EndISO, a.CertificateDate, a.Visible,
		a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	s.logger.Debug("Activity saved", "id", a.ID, "kind", a.Kind.String(), "label", a.Label)
	return a, nil
}

// Get returns the activity with id.
func (s *Store) Get(ctx context.Context, id string) (Activity, error) {
	row := s.db.QueryRowContext(ctx, selectActivities+` WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Activity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, err
}

// ListOptions filters List.
type ListOptions struct {
	IncludeHidden bool
}

// List returns activities ordered by start date, then creation time.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Activity, error) {
	q := selectActivities
	if !opts.IncludeHidden {
		q += ` WHERE visible = 1`
	}
	q += ` ORDER BY start_date, created_at`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListActivities implements overlap.Source. Hidden activities are included;
// the check skips them itself.
func (s *Store) ListActivities(ctx context.Context) ([]overlap.Activity, error) {
	acts, err := s.List(ctx, ListOptions{IncludeHidden: true})
	if err != nil {
		return nil, err
	}
	out := make([]overlap.Activity, 0, len(acts))
	for _, a := range acts {
		out = append(out, a.Overlap())
	}
	return out, nil
}

// SetVisible shows or hides an activity on the timeline.
func (s *Store) SetVisible(ctx context.Context, id string, visible bool) error {
	return s.exec(ctx, id, `UPDATE activities SET visible = ? WHERE id = ?`, visible, id)
}

// Delete removes an activity.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, id, `DELETE FROM activities WHERE id = ?`, id)
}

func (s *Store) exec(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update activity %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const selectActivities = `SELECT id, kind, label, start_date, end_date, certificate_date, visible, created_at FROM activities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(r rowScanner) (Activity, error) {
	var (
		a       Activity
		kind    string
		created string
	)
	if err := r.Scan(&a.ID, &kind, &a.Label, &a.StartISO, &a.EndISO, &a.CertificateDate, &a.Visible, &created); err != nil {
		return Activity{}, err
	}
	k, err := intyg.ParseKind(kind)
	if err != nil {
		return Activity{}, fmt.Errorf("activity %s: %w", a.ID, err)
	}
	a.Kind = k
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Activity{}, fmt.Errorf("activity %s created_at: %w", a.ID, err)
	}
	return a, nil
}

// FromRecord turns an extracted certificate into a visible activity.
// Courses are labelled with their catalog title (or the raw course text for
// "Annan kurs"); placements with "<type>: <clinic>". A single period end is
// mirrored. Administrative and unknown kinds are rejected.
func FromRecord(rec intyg.Record) (Activity, error) {
	if !rec.Kind.Valid() || rec.Kind.IsAdministrative() {
		return Activity{}, fmt.Errorf("%w: %q", ErrNotActivity, rec.Kind.String())
	}
	a := Activity{Kind: rec.Kind, CertificateDate: rec.CertificateDate, Visible: true}
	if rec.Period != nil {
		p := rec.Period.Mirrored()
		a.StartISO, a.EndISO = p.StartISO, p.EndISO
	}
	switch rec.Kind {
	case intyg.Kind2015B5Kurs, intyg.Kind2021B10Kurs:
		title := rec.Title
		if title == "" || title == parser.OtherCourse {
			title = firstNonEmpty(rec.CourseTitle, rec.Title)
		}
		a.Label = overlap.CourseLabel(title)
	default:
		a.Label = overlap.PlacementLabel(activityType(rec.Kind), firstNonEmpty(rec.Clinic, rec.Subject))
	}
	return a, nil
}

func activityType(k intyg.Kind) string {
	switch k {
	case intyg.Kind2015B3Ausk, intyg.Kind2021B8Ausk:
		return "Auskultation"
	case intyg.Kind2015B4Klin, intyg.Kind2021B9Klin:
		return "Klinisk tjänstgöring"
	case intyg.Kind2015B6Utv, intyg.Kind2021B11Utv:
		return "Utvecklingsarbete"
	case intyg.Kind2015B7Skriftligt, intyg.Kind2021B12STa3:
		return "Skriftligt arbete"
	case intyg.Kind2021B13Tredjeland:
		return "Tredje land"
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
