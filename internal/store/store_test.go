package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/overlap"
	"github.com/MeKo-Tech/intygscan/internal/parser"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "intygscan.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	tick := time.Date(2028, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { tick = tick.Add(time.Minute); return tick }

	late, err := s.Save(ctx, Activity{Kind: intyg.Kind2015B5Kurs, Label: "Etik", StartISO: "2028-03-01", EndISO: "2028-03-03", Visible: true})
	require.NoError(t, err)
	assert.NotEmpty(t, late.ID)
	assert.Equal(t, tick, late.CreatedAt)

	early, err := s.Save(ctx, Activity{ID: "fixed", Kind: intyg.Kind2015B4Klin, Label: "Klinisk tjänstgöring: Psykos", StartISO: "2028-01-13", EndISO: "2028-04-15", CertificateDate: "2028-04-20", Visible: true})
	require.NoError(t, err)
	assert.Equal(t, "fixed", early.ID)

	_, err = s.Save(ctx, Activity{Kind: intyg.Kind2021B11Utv, Label: "Dolt", CertificateDate: "2027-01-01"})
	require.NoError(t, err)

	visible, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "fixed", visible[0].ID)
	assert.Equal(t, intyg.Kind2015B4Klin, visible[0].Kind)
	assert.Equal(t, "2028-04-20", visible[0].CertificateDate)
	assert.Equal(t, late.ID, visible[1].ID)

	all, err := s.List(ctx, ListOptions{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Dolt", all[0].Label, "empty start sorts first")
	assert.False(t, all[0].Visible)

	got, err := s.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, early, got)
}

func TestSaveRequiresLabel(t *testing.T) {
	_, err := openTestStore(t).Save(context.Background(), Activity{Kind: intyg.Kind2015B4Klin})
	assert.Error(t, err)
}

func TestVisibilityAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a, err := s.Save(ctx, Activity{Kind: intyg.Kind2021B9Klin, Label: "Akuten", StartISO: "2024-01-01", EndISO: "2024-02-01", Visible: true})
	require.NoError(t, err)

	require.NoError(t, s.SetVisible(ctx, a.ID, false))
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Visible)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, a.ID), ErrNotFound)
	assert.ErrorIs(t, s.SetVisible(ctx, "missing", true), ErrNotFound)
}

func TestStoreIsOverlapSource(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.Save(ctx, Activity{Kind: intyg.Kind2021B9Klin, Label: "Placering: Akuten", StartISO: "2024-01-01", EndISO: "2024-02-01", Visible: true})
	require.NoError(t, err)
	_, err = s.Save(ctx, Activity{Kind: intyg.Kind2021B10Kurs, Label: "Dold kurs", StartISO: "2024-01-10", EndISO: "2024-01-12"})
	require.NoError(t, err)

	var src overlap.Source = s
	rep, err := overlap.CheckSource(ctx, src, intyg.Period{StartISO: "2024-01-15", EndISO: "2024-03-01"}, "")
	require.NoError(t, err)
	assert.True(t, rep.HasOverlap)
	assert.Equal(t, []string{"Placering: Akuten (2024-01-01 - 2024-02-01)"}, rep.OverlappingItems)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Save(ctx, Activity{Kind: intyg.Kind2015B3Ausk, Label: "Auskultation: Kirurgen", Visible: true})
	require.NoError(t, err)
	acts, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, acts, 1)
}

func TestFromRecord(t *testing.T) {
	tests := []struct {
		name    string
		rec     intyg.Record
		want    Activity
		wantErr error
	}{
		{
			name: "placement",
			rec: intyg.Record{
				Kind: intyg.Kind2015B4Klin, Clinic: "Psykos",
				Period:          &intyg.Period{StartISO: "2028-01-13", EndISO: "2028-04-15"},
				CertificateDate: "2028-04-20",
			},
			want: Activity{
				Kind: intyg.Kind2015B4Klin, Label: "Klinisk tjänstgöring: Psykos",
				StartISO: "2028-01-13", EndISO: "2028-04-15", CertificateDate: "2028-04-20", Visible: true,
			},
		},
		{
			name: "catalog course with single end",
			rec:  intyg.Record{Kind: intyg.Kind2021B10Kurs, Title: "Psykofarmakologi", CourseTitle: "Psykofarmakologi grund", Period: &intyg.Period{EndISO: "2024-01-19"}},
			want: Activity{Kind: intyg.Kind2021B10Kurs, Label: "Psykofarmakologi", StartISO: "2024-01-19", EndISO: "2024-01-19", Visible: true},
		},
		{
			name: "other course keeps raw title",
			rec:  intyg.Record{Kind: intyg.Kind2015B5Kurs, Title: parser.OtherCourse, CourseTitle: "Ledarskap i vården"},
			want: Activity{Kind: intyg.Kind2015B5Kurs, Label: "Ledarskap i vården", Visible: true},
		},
		{
			name: "untitled course",
			rec:  intyg.Record{Kind: intyg.Kind2015B5Kurs},
			want: Activity{Kind: intyg.Kind2015B5Kurs, Label: "Kurs", Visible: true},
		},
		{
			name: "written work uses subject",
			rec:  intyg.Record{Kind: intyg.Kind2021B12STa3, Subject: "Delirium på IVA", CertificateDate: "2025-06-01"},
			want: Activity{Kind: intyg.Kind2021B12STa3, Label: "Skriftligt arbete: Delirium på IVA", CertificateDate: "2025-06-01", Visible: true},
		},
		{
			name:    "administrative",
			rec:     intyg.Record{Kind: intyg.Kind2021B5Ans},
			wantErr: ErrNotActivity,
		},
		{
			name:    "unknown",
			rec:     intyg.Record{},
			wantErr: ErrNotActivity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromRecord(tt.rec)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportXLSX(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.Save(ctx, Activity{Kind: intyg.Kind2015B4Klin, Label: "Klinisk tjänstgöring: Psykos", StartISO: "2028-01-13", EndISO: "2028-04-15", Visible: true})
	require.NoError(t, err)
	_, err = s.Save(ctx, Activity{Kind: intyg.Kind2015B5Kurs, Label: "Etik", StartISO: "2028-05-01", EndISO: "2028-05-03"})
	require.NoError(t, err)

	data, err := s.ExportXLSX(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, []string{"2015-B4-KLIN", "Klinisk tjänstgöring: Psykos", "2028-01-13", "2028-04-15"}, rows[1][:4])
	assert.Equal(t, "ja", rows[1][5])
	assert.Equal(t, "nej", rows[2][5])
}
