package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/store"
	"github.com/MeKo-Tech/intygscan/internal/testutil"
)

const clinicalText = testutil.Clinical2015

func textRecognizer(text string) ocr.Recognizer { return testutil.TextRecognizer(text) }

type serverOptions struct {
	recognizer ocr.Recognizer
	store      *store.Store
	rpm        int
}

func newTestServer(t *testing.T, opts serverOptions) *Server {
	t.Helper()
	b := pipeline.NewBuilder().WithRecognizer(opts.recognizer)
	if opts.store != nil {
		b = b.WithOverlapSource(opts.store)
	}
	p, err := b.Build()
	require.NoError(t, err)
	s, err := NewServer(Config{MaxUploadMB: 1, TimeoutSec: 5, RequestsPerMinute: opts.rpm}, p, opts.store)
	require.NoError(t, err)
	return s
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// pagePNG returns a page with the proportions of the printed form.
func pagePNG(t *testing.T) []byte {
	t.Helper()
	return testutil.PagePNG(t, 106, 150)
}

// multipartRequest posts data as the "image" field, or no file when data
// is nil.
func multipartRequest(t *testing.T, path string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if data != nil {
		part, err := writer.CreateFormFile("image", "intyg.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
