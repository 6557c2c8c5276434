package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/videorobot/api/internal/audio"
	"github.com/videorobot/api/internal/engine"
	"github.com/videorobot/api/internal/handler"
	"github.com/videorobot/api/internal/manifest"
	"github.com/videorobot/api/internal/model"
	"github.com/videorobot/api/internal/render"
	"github.com/videorobot/api/internal/report"
	"github.com/videorobot/api/internal/scheduler"
	"github.com/videorobot/api/internal/service"
)

// fakeEngine stands in for ffmpeg: probes return canned durations and
// Render writes a placeholder artifact.
type fakeEngine struct {
	durations  map[string]float64
	failRender bool
	renderGate chan struct{} // when set, Render blocks until closed
}

func (f *fakeEngine) Probe(ctx context.Context, path string) (engine.MediaInfo, error) {
	if d, ok := f.durations[filepath.Base(path)]; ok {
		return engine.MediaInfo{DurationSec: d, HasAudio: strings.HasSuffix(path, ".wav")}, nil
	}
	return engine.MediaInfo{DurationSec: 3.0}, nil
}

func (f *fakeEngine) ExtractAudio(ctx context.Context, path string, sampleRate int) (*audio.Buffer, error) {
	info, _ := f.Probe(ctx, path)
	n := int(info.DurationSec * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.1 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate))
	}
	return &audio.Buffer{SampleRate: sampleRate, Samples: samples}, nil
}

func (f *fakeEngine) Render(ctx context.Context, spec engine.RenderSpec) error {
	if f.renderGate != nil {
		select {
		case <-f.renderGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.failRender {
		return &model.CompositionError{Stage: "encode", Err: fmt.Errorf("injected failure")}
	}
	return os.WriteFile(spec.OutputPath, []byte("fake-mp4"), 0o644)
}

// testApp holds all components needed for testing.
type testApp struct {
	app        *fiber.App
	assetsRoot string
	outputRoot string
	engine     *fakeEngine
}

// setupApp builds a Fiber app wired like main.go but against temp storage
// and a fake engine, so no external binaries are needed.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	outputRoot := t.TempDir()
	assetsRoot := t.TempDir()
	eng := &fakeEngine{durations: map[string]float64{}}

	resolver := &manifest.Resolver{AssetsRoot: assetsRoot}
	writer := report.NewWriter(outputRoot)
	pipeline := &render.Pipeline{
		Engine:   eng,
		Resolver: resolver,
		Audio: audio.Config{
			SampleRate: 48000,
			TargetLUFS: -16.0,
			UseVAD:     true,
			VAD:        audio.DefaultVADConfig(),
			Duck:       audio.DefaultDuckConfig(),
		},
	}
	sched := scheduler.New(scheduler.Config{
		Workers:    2,
		Depth:      3,
		JobTimeout: 30 * time.Second,
	}, pipeline, writer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sched.Start(ctx)

	renderService := service.NewRenderService(manifest.NewValidator(), resolver, writer, sched)
	assetService := service.NewAssetService(assetsRoot)

	renderHandler := handler.NewRenderHandler(renderService)
	downloadHandler := handler.NewDownloadHandler(renderService)
	assetHandler := handler.NewAssetHandler(assetService)

	app := fiber.New(fiber.Config{BodyLimit: 200 * 1024 * 1024})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "data": fiber.Map{"status": "ok"}})
	})
	app.Post("/render", renderHandler.Render)
	app.Get("/progress/:jobId", renderHandler.Progress)
	app.Get("/download", downloadHandler.Download)
	app.Post("/assets", assetHandler.Upload)
	app.Get("/assets", assetHandler.List)

	return &testApp{app: app, assetsRoot: assetsRoot, outputRoot: outputRoot, engine: eng}
}

// writeAsset drops a file into the test assets root.
func (ta *testApp) writeAsset(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ta.assetsRoot, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write asset %s: %v", name, err)
	}
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string) (*http.Response, error) {
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

// parseJSON parses a response body into a map.
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

// data extracts the envelope's data object.
func data(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := result["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing data in envelope: %v", result)
	}
	return d
}

// errorDetail extracts the envelope's error object.
func errorDetail(t *testing.T, result map[string]interface{}) map[string]interface{} {
	t.Helper()
	e, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing error in envelope: %v", result)
	}
	return e
}

// submitAndWait submits a manifest and polls progress until the job is
// terminal, returning the final progress payload.
func submitAndWait(t *testing.T, ta *testApp, body string) (jobID string, final map[string]interface{}) {
	t.Helper()
	resp, err := doRequest(ta.app, http.MethodPost, "/render", body)
	if err != nil {
		t.Fatalf("render request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	d := data(t, parseJSON(t, resp))
	jobID, _ = d["job_id"].(string)
	if jobID == "" {
		t.Fatal("missing job_id in render response")
	}

	return jobID, waitForJob(t, ta, jobID)
}

// waitForJob polls progress until the job reaches a terminal state.
func waitForJob(t *testing.T, ta *testApp, jobID string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doRequest(ta.app, http.MethodGet, "/progress/"+jobID, "")
		if err != nil {
			t.Fatalf("progress request failed: %v", err)
		}
		d := data(t, parseJSON(t, resp))
		state, _ := d["state"].(string)
		if state == "succeeded" || state == "failed" {
			return d
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", jobID)
	return nil
}

func textManifest() string {
	return `{
		"video": {"width": 640, "height": 360, "fps": 30},
		"tracks": [{"type": "text", "start": 0.5, "duration": 3, "content": "hello world"}]
	}`
}
