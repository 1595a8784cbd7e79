package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voicecheck/api/internal/client"
	"github.com/voicecheck/api/internal/config"
	"github.com/voicecheck/api/internal/handler"
	"github.com/voicecheck/api/internal/model"
	"github.com/voicecheck/api/internal/service"
	"github.com/voicecheck/api/internal/storage"
)

const (
	defaultMaxSize = 50 * 1024 * 1024
	bodySlack      = 1024 * 1024
)

// testApp holds all components needed for testing
type testApp struct {
	app        *fiber.App
	scratchDir string
}

type appOptions struct {
	maxSize  int64
	provider client.ClassificationProvider
}

// setupApp creates a Fiber app wired like main.go, with the mock provider
// running without delay and a per-test scratch directory.
func setupApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	if opts.maxSize == 0 {
		opts.maxSize = defaultMaxSize
	}
	if opts.provider == nil {
		opts.provider = client.NewMockClassifier(0)
	}

	uploadCfg := &config.UploadConfig{
		Dir:               t.TempDir(),
		MaxSize:           opts.maxSize,
		AllowedExtensions: []string{"wav", "flac"},
	}

	scratch, err := storage.NewScratch(uploadCfg.Dir, uploadCfg.MaxSize)
	if err != nil {
		t.Fatalf("failed to create scratch dir: %v", err)
	}

	analysisService := service.NewAnalysisService(uploadCfg, scratch, opts.provider, nil, validator.New())
	analyzeHandler := handler.NewAnalyzeHandler(analysisService, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handler.NewErrorHandler(uploadCfg.MaxSize),
		BodyLimit:             int(uploadCfg.MaxSize) + bodySlack,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Get("/", handler.Root)
	app.Get("/health", handler.Health)
	app.Post("/analyze", analyzeHandler.Analyze)

	return &testApp{app: app, scratchDir: uploadCfg.Dir}
}

// startServer serves app on a random local port and returns its address.
// Needed where app.Test cannot stand in for a real connection.
func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() {
		if err := app.Shutdown(); err != nil {
			t.Logf("shutdown: %v", err)
		}
	})

	return ln.Addr().String()
}

// stubProvider lets tests control the classifier outcome
type stubProvider struct {
	classify func(ctx context.Context, audio []byte) (*model.ClassificationResult, error)
}

func (s *stubProvider) Classify(ctx context.Context, audio []byte) (*model.ClassificationResult, error) {
	return s.classify(ctx, audio)
}

func (s *stubProvider) Name() string {
	return "stub"
}

// filePart describes one multipart file part
type filePart struct {
	field    string
	filename string
	content  []byte
}

// newAnalyzeRequest builds a multipart/form-data POST /analyze request
func newAnalyzeRequest(t *testing.T, parts ...filePart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		header.Set("Content-Type", "application/octet-stream")
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(p.content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, "/analyze", &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// audioPart returns an "audio" part with n bytes of fake content
func audioPart(filename string, n int) filePart {
	content := bytes.Repeat([]byte{0x52}, n)
	return filePart{field: "audio", filename: filename, content: content}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// assertScratchEmpty checks that no staged file outlived its request.
func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected empty scratch dir, found %v", names)
	}
}
