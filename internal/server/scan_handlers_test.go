package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/intyg"
	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/store"
)

func doScan(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, ScanResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	s.scanHandler(w, req)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestServer_ScanHandler(t *testing.T) {
	server := newTestServer(t, serverOptions{recognizer: textRecognizer(clinicalText)})

	w, resp := doScan(t, server, multipartRequest(t, "/scan", pagePNG(t), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.True(t, resp.CanSave)
	require.NotNil(t, resp.Result)
	assert.Equal(t, intyg.Kind2015B4Klin, resp.Result.Record.Kind)
	assert.Equal(t, "850101-1234", resp.Result.Record.Personnummer)
	assert.Positive(t, resp.Result.Width)
	assert.False(t, resp.Result.HasIssue(pipeline.IssueAspectRatio))
}

func TestServer_ScanHandlerOverrides(t *testing.T) {
	st := openStore(t)
	_, err := st.Save(context.Background(), store.Activity{
		Kind:     intyg.Kind2015B4Klin,
		Label:    "Klinisk tjänstgöring: Akuten",
		StartISO: "2028-03-01",
		EndISO:   "2028-05-31",
		Visible:  true,
	})
	require.NoError(t, err)
	server := newTestServer(t, serverOptions{recognizer: textRecognizer(clinicalText), store: st})

	t.Run("overlap found", func(t *testing.T) {
		w, resp := doScan(t, server, multipartRequest(t, "/scan", pagePNG(t), nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Result.HasIssue(pipeline.IssueOverlap))
		assert.False(t, resp.CanSave)
		require.NotNil(t, resp.Result.Overlap)
		assert.Contains(t, resp.Result.Overlap.OverlappingItems, "Klinisk tjänstgöring: Akuten (2028-03-01 - 2028-05-31)")
	})

	t.Run("overlap check disabled", func(t *testing.T) {
		w, resp := doScan(t, server, multipartRequest(t, "/scan", pagePNG(t), map[string]string{"check_overlap": "false"}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, resp.Result.HasIssue(pipeline.IssueOverlap))
		assert.Nil(t, resp.Result.Overlap)
	})

	t.Run("expected regime", func(t *testing.T) {
		w, resp := doScan(t, server, multipartRequest(t, "/scan", pagePNG(t), map[string]string{
			"expected_regime": "2021",
			"check_overlap":   "false",
		}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Result.HasIssue(pipeline.IssueRegimeMismatch))
		assert.False(t, resp.CanSave)
	})

	t.Run("invalid regime", func(t *testing.T) {
		w, _ := doScan(t, server, multipartRequest(t, "/scan", pagePNG(t), map[string]string{"expected_regime": "1984"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_ScanHandlerErrors(t *testing.T) {
	failing := ocr.RecognizerFunc(func(context.Context, []byte, string) (*ocr.Result, error) {
		return nil, errors.New("connection reset")
	})

	tests := []struct {
		name       string
		recognizer ocr.Recognizer
		body       []byte
		wantStatus int
		wantIssue  string
	}{
		{"missing file", textRecognizer(clinicalText), nil, http.StatusBadRequest, ""},
		{"not an image", textRecognizer(clinicalText), []byte("hello, plain text"), http.StatusUnsupportedMediaType, ""},
		{"ocr failure", failing, nil, http.StatusBadGateway, pipeline.IssueOCRFailed},
		{"no text", textRecognizer("  \n "), nil, http.StatusUnprocessableEntity, pipeline.IssueEmptyText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, serverOptions{recognizer: tt.recognizer})
			body := tt.body
			if body == nil && tt.name != "missing file" {
				body = pagePNG(t)
			}
			w, resp := doScan(t, server, multipartRequest(t, "/scan", body, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			if tt.wantIssue == "" {
				assert.Nil(t, resp.Issue)
				return
			}
			require.NotNil(t, resp.Issue)
			assert.Equal(t, tt.wantIssue, resp.Issue.Code)
		})
	}
}

func TestServer_ScanHandlerNoRecognizer(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	w, resp := doScan(t, server, multipartRequest(t, "/scan", pagePNG(t), nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestServer_ScanHandlerTooLarge(t *testing.T) {
	server := newTestServer(t, serverOptions{recognizer: textRecognizer(clinicalText)})
	big := make([]byte, 3<<20)
	copy(big, pagePNG(t))

	w, _ := doScan(t, server, multipartRequest(t, "/scan", big, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_ScanHandlerMethod(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	w := httptest.NewRecorder()
	server.scanHandler(w, httptest.NewRequest(http.MethodGet, "/scan", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
