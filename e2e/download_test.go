package e2e

import (
	"net/http"
	"testing"
)

func TestDownload_Success(t *testing.T) {
	ta := setupApp(t)

	jobID, final := submitAndWait(t, ta, textManifest())
	if final["state"] != "succeeded" {
		t.Fatalf("job did not succeed: %v", final)
	}

	resp, err := doRequest(ta.app, http.MethodGet, "/download?jobId="+jobID, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); body != "fake-mp4" {
		t.Errorf("unexpected artifact body %q", body)
	}
}

func TestDownload_MissingJobID(t *testing.T) {
	ta := setupApp(t)
	resp, err := doRequest(ta.app, http.MethodGet, "/download", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestDownload_NotYetComplete(t *testing.T) {
	ta := setupApp(t)
	gate := make(chan struct{})
	ta.engine.renderGate = gate

	resp, err := doRequest(ta.app, http.MethodPost, "/render", textManifest())
	if err != nil {
		t.Fatalf("render request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID, _ := data(t, parseJSON(t, resp))["job_id"].(string)
	if jobID == "" {
		t.Fatal("missing job_id in render response")
	}

	resp, err = doRequest(ta.app, http.MethodGet, "/download?jobId="+jobID, "")
	if err != nil {
		t.Fatalf("download request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
	if kind := errorDetail(t, parseJSON(t, resp))["kind"]; kind != "not_found" {
		t.Errorf("unexpected error kind %v", kind)
	}

	close(gate)
	if final := waitForJob(t, ta, jobID); final["state"] != "succeeded" {
		t.Fatalf("job did not succeed: %v", final)
	}
	resp, err = doRequest(ta.app, http.MethodGet, "/download?jobId="+jobID, "")
	if err != nil {
		t.Fatalf("download request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}

func TestDownload_UnknownJob(t *testing.T) {
	ta := setupApp(t)
	resp, err := doRequest(ta.app, http.MethodGet, "/download?jobId=nope", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}
