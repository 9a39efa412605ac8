package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/pipeline"
	"github.com/MeKo-Tech/intygscan/internal/server"
	"github.com/MeKo-Tech/intygscan/internal/store"
	"github.com/MeKo-Tech/intygscan/internal/testutil"
)

// HTTPTestServerWrapper runs the API in process with a scripted OCR engine.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
	Store      *store.Store
}

func (testCtx *TestContext) startTestHTTPServer(rec ocr.Recognizer, rpm int) error {
	if testCtx.HTTPTestServer != nil {
		return nil
	}
	st, err := store.Open(context.Background(), testCtx.StorePath, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	p, err := pipeline.NewBuilder().WithRecognizer(rec).WithOverlapSource(st).Build()
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	s, err := server.NewServer(server.Config{
		CORSOrigin:        "*",
		MaxUploadMB:       1,
		TimeoutSec:        10,
		RequestsPerMinute: rpm,
	}, p, st)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(s.Handler()),
		TestServer: s,
		Store:      st,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() error {
	w := testCtx.HTTPTestServer
	testCtx.HTTPTestServer = nil
	w.Server.Close()
	if err := w.TestServer.Close(); err != nil {
		return err
	}
	return w.Store.Close()
}

func (testCtx *TestContext) theAPIServerIsRunning() error {
	return testCtx.startTestHTTPServer(testutil.TextRecognizer(testutil.Clinical2015), 0)
}

func (testCtx *TestContext) theAPIServerIsRunningReading(fixture string) error {
	for _, f := range testutil.Fixtures() {
		if f.Name == fixture {
			return testCtx.startTestHTTPServer(testutil.TextRecognizer(f.Text), 0)
		}
	}
	return fmt.Errorf("unknown fixture %q", fixture)
}

func (testCtx *TestContext) theAPIServerIsRunningWithoutEngine() error {
	return testCtx.startTestHTTPServer(nil, 0)
}

func (testCtx *TestContext) theAPIServerIsRunningWithRateLimit(rpm int) error {
	return testCtx.startTestHTTPServer(testutil.TextRecognizer(testutil.Clinical2015), rpm)
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("the API server is not running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}

func (testCtx *TestContext) do(method, path, contentType string, body io.Reader) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	return testCtx.do(http.MethodGet, path, "", nil)
}

func (testCtx *TestContext) iSendAPOSTRequestWithJSON(path string, body *godog.DocString) error {
	return testCtx.do(http.MethodPost, path, "application/json", strings.NewReader(body.Content))
}

func (testCtx *TestContext) iPostTheScanTo(name, path string) error {
	data, err := os.ReadFile(testCtx.resolve(name)) //nolint:gosec // G304: path inside the scenario temp dir
	if err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, path, "application/json", bytes.NewReader(data))
}

func (testCtx *TestContext) iUploadThePhotoTo(name, path string) error {
	data, err := os.ReadFile(testCtx.resolve(name)) //nolint:gosec // G304: path inside the scenario temp dir
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return testCtx.do(http.MethodPost, path, writer.FormDataContentType(), &buf)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, want string) error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &v); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return expectField(v, field, want)
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != want {
		return fmt.Errorf("header %s is %q, want %q", name, got, want)
	}
	return nil
}

// blankPNG is an empty portrait page.
func blankPNG() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, testutil.RenderPage(testutil.DefaultPageConfig()))
	return buf.Bytes()
}

// RegisterServerSteps registers the API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the API server is running$`, testCtx.theAPIServerIsRunning)
	sc.Step(`^the API server is running with an OCR engine reading the "([^"]*)" certificate$`, testCtx.theAPIServerIsRunningReading)
	sc.Step(`^the API server is running without an OCR engine$`, testCtx.theAPIServerIsRunningWithoutEngine)
	sc.Step(`^the API server is running with a limit of (\d+) requests per minute$`, testCtx.theAPIServerIsRunningWithRateLimit)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I send a POST request to "([^"]*)" with JSON:$`, testCtx.iSendAPOSTRequestWithJSON)
	sc.Step(`^I post the scan "([^"]*)" to "([^"]*)"$`, testCtx.iPostTheScanTo)
	sc.Step(`^I upload the photo "([^"]*)" to "([^"]*)"$`, testCtx.iUploadThePhotoTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
}
