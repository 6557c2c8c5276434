// Package report stages job artifacts and publishes them atomically. A job
// directory appears under the output root only after every artifact in it is
// complete, via a single rename from the staging area.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/videorobot/api/internal/model"
)

type Writer struct {
	OutputRoot string
}

func NewWriter(outputRoot string) *Writer {
	return &Writer{OutputRoot: outputRoot}
}

// Stage creates the job's private working directory under the staging area
// and returns its path. Nothing below it is visible to readers of the
// output root until Publish.
func (w *Writer) Stage(jobID string) (string, error) {
	dir := filepath.Join(w.OutputRoot, ".staging", jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	return dir, nil
}

// Publish writes report.json into the staged directory and renames it to
// outputs/<job_id>. Failed jobs publish their report and canonical inputs
// but never a media artifact.
func (w *Writer) Publish(job *model.Job) error {
	if job.Report == nil {
		return fmt.Errorf("job %s has no report", job.ID)
	}
	if job.Report.Error != "" {
		// Drop any partial encode so failures never expose an artifact.
		_ = os.Remove(filepath.Join(job.WorkDir, "final.mp4"))
	}

	data, err := json.MarshalIndent(job.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(job.WorkDir, "report.json"), data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	dest := filepath.Join(w.OutputRoot, job.ID)
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clear publish dir: %w", err)
	}
	if err := os.Rename(job.WorkDir, dest); err != nil {
		return fmt.Errorf("publish job dir: %w", err)
	}

	job.OutputDir = dest
	if job.Report.Error == "" {
		job.OutputPath = filepath.Join(dest, "final.mp4")
	} else {
		job.OutputPath = ""
	}
	return nil
}

// JobDir returns the published directory for a job, or an error when the
// job has not been published.
func (w *Writer) JobDir(jobID string) (string, error) {
	dir := filepath.Join(w.OutputRoot, jobID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", &model.NotFoundError{JobID: jobID}
	}
	return dir, nil
}
