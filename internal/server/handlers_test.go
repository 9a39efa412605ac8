package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/store"
)

func TestNewServerRequiresPipeline(t *testing.T) {
	_, err := NewServer(Config{}, nil, nil)
	assert.ErrorIs(t, err, ErrNoPipeline)
}

func TestServer_HealthHandler(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.healthHandler(w, httptest.NewRequest(tt.method, "/health", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "healthy", resp.Status)
			assert.NotEmpty(t, resp.Time)
			assert.NotEmpty(t, resp.Version)
			assert.Equal(t, "swe", resp.Pipeline["language"])
			assert.Positive(t, resp.Memory.Goroutines)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestServer_KindsHandler(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	w := httptest.NewRecorder()
	server.kindsHandler(w, httptest.NewRequest(http.MethodGet, "/kinds", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp KindsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, len(intyg.AllKinds()), resp.Count)
	require.Len(t, resp.Kinds, resp.Count)

	byKind := map[intyg.Kind]KindInfo{}
	for _, k := range resp.Kinds {
		byKind[k.Kind] = k
	}
	klin := byKind[intyg.Kind2015B4Klin]
	assert.Equal(t, intyg.Regime2015, klin.Regime)
	assert.Equal(t, 4, klin.Annex)
	assert.True(t, klin.HasDates)
	assert.Equal(t, intyg.LabelsFor(intyg.Kind2015B4Klin), klin.Labels)
	assert.True(t, byKind[intyg.Kind2021B5Ans].Administrative)
}

func TestServer_ClassifyHandler(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		server.classifyHandler(w, httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(body)))
		return w
	}

	t.Run("recognized", func(t *testing.T) {
		body, _ := json.Marshal(ClassifyRequest{Text: clinicalText, ExpectedRegime: "2021"})
		w := post(string(body))
		require.Equal(t, http.StatusOK, w.Code)
		var resp ClassifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, intyg.Kind2015B4Klin, resp.Kind)
		assert.Equal(t, intyg.Regime2015, resp.Regime)
		assert.True(t, resp.RegimeMismatch)
		assert.NotEmpty(t, resp.Signals)
		assert.Equal(t, "Intyg för klinisk tjänstgöring", resp.Labels.Title)
	})

	t.Run("bad regime", func(t *testing.T) {
		w := post(`{"text":"x","expected_regime":"1999"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad json", func(t *testing.T) {
		w := post(`{"text":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.classifyHandler(w, httptest.NewRequest(http.MethodGet, "/classify", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestServer_ParseHandler(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	post := func(target, body string) (*httptest.ResponseRecorder, ScanResponse) {
		w := httptest.NewRecorder()
		server.parseHandler(w, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
		var resp ScanResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}
	scanJSON := func(text string) string {
		b, err := json.Marshal(ocr.Result{Text: text, Width: 1057, Height: 1496})
		require.NoError(t, err)
		return string(b)
	}

	t.Run("valid scan", func(t *testing.T) {
		w, resp := post("/parse", scanJSON(clinicalText))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
		assert.True(t, resp.CanSave)
		require.NotNil(t, resp.Result)
		assert.Equal(t, intyg.Kind2015B4Klin, resp.Result.Record.Kind)
		assert.Equal(t, "Psykos", resp.Result.Record.Clinic)
	})

	t.Run("expected regime override", func(t *testing.T) {
		w, resp := post("/parse?expected_regime=2021", scanJSON(clinicalText))
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, resp.CanSave)
		assert.True(t, resp.Result.HasIssue(pipeline.IssueRegimeMismatch))
	})

	t.Run("bad override", func(t *testing.T) {
		w, _ := post("/parse?check_overlap=maybe", scanJSON(clinicalText))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("schema violation", func(t *testing.T) {
		w, resp := post("/parse", `{"words":[{"text":"a"}]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("blank text", func(t *testing.T) {
		w, resp := post("/parse", `{"text":"   "}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Issue)
		assert.Equal(t, pipeline.IssueEmptyText, resp.Issue.Code)
	})
}

func TestServer_ActivitiesHandler(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		server := newTestServer(t, serverOptions{})
		w := httptest.NewRecorder()
		server.activitiesHandler(w, httptest.NewRequest(http.MethodGet, "/activities", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("save and list", func(t *testing.T) {
		server := newTestServer(t, serverOptions{store: openStore(t)})

		rec := intyg.Record{
			Kind:   intyg.Kind2015B4Klin,
			Clinic: "Psykos",
			Period: &intyg.Period{StartISO: "2028-01-13", EndISO: "2028-04-15"},
		}
		body, err := json.Marshal(rec)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		server.activitiesHandler(w, httptest.NewRequest(http.MethodPost, "/activities", strings.NewReader(string(body))))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var saved store.Activity
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
		assert.NotEmpty(t, saved.ID)
		assert.Contains(t, saved.Label, "Psykos")

		w = httptest.NewRecorder()
		server.activitiesHandler(w, httptest.NewRequest(http.MethodGet, "/activities", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var list []store.Activity
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, saved.ID, list[0].ID)
	})

	t.Run("administrative kind rejected", func(t *testing.T) {
		server := newTestServer(t, serverOptions{store: openStore(t)})
		w := httptest.NewRecorder()
		server.activitiesHandler(w, httptest.NewRequest(http.MethodPost, "/activities",
			strings.NewReader(`{"kind":"2021-B5-ANS"}`)))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		server := newTestServer(t, serverOptions{store: openStore(t)})
		w := httptest.NewRecorder()
		server.activitiesHandler(w, httptest.NewRequest(http.MethodGet, "/activities", nil))
		assert.JSONEq(t, "[]", w.Body.String())
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", ocr.ErrImageTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("x: %w", ocr.ErrUnsupportedImage), http.StatusUnsupportedMediaType},
		{fmt.Errorf("preprocess image: %w", &ocr.ImageError{Operation: "decode", Err: errors.New("bad")}), http.StatusBadRequest},
		{fmt.Errorf("%w after 25s", pipeline.ErrOCRTimeout), http.StatusGatewayTimeout},
		{pipeline.ErrEmptyText, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: boom", pipeline.ErrOCRFailed), http.StatusBadGateway},
		{pipeline.ErrNoRecognizer, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestServer_WriteErrorResponse(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	w := httptest.NewRecorder()
	server.writeErrorResponse(w, "Invalid input", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid input", resp.Error)
}
