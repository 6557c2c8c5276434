package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/videorobot/api/internal/manifest"
	"github.com/videorobot/api/internal/model"
	"github.com/videorobot/api/internal/report"
	"github.com/videorobot/api/internal/scheduler"
)

// RenderService runs the synchronous half of a submission: validation,
// canonicalization, fingerprinting and staging. Anything that passes is
// handed to the scheduler; anything that fails is rejected before a job
// id ever exists.
type RenderService struct {
	validator *manifest.Validator
	resolver  *manifest.Resolver
	writer    *report.Writer
	sched     *scheduler.Scheduler
}

func NewRenderService(v *manifest.Validator, r *manifest.Resolver, w *report.Writer, s *scheduler.Scheduler) *RenderService {
	return &RenderService{
		validator: v,
		resolver:  r,
		writer:    w,
		sched:     s,
	}
}

// Submit validates a raw manifest body and enqueues a job for it. The
// canonical manifest and the inputs digest are staged before the job is
// queued, so every published job directory carries both regardless of
// outcome.
func (s *RenderService) Submit(raw []byte) (*model.Job, error) {
	m, err := s.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	m = manifest.Canonicalize(m)

	canonical, err := manifest.MarshalCanonical(m)
	if err != nil {
		return nil, fmt.Errorf("canonicalize manifest: %w", err)
	}
	assets, err := manifest.CollectAssets(m, s.resolver)
	if err != nil {
		return nil, err
	}
	fingerprint, err := manifest.Fingerprint(canonical, assets)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	workDir, err := s.writer.Stage(jobID)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(workDir, "manifest_canonical.json"), canonical, 0o644); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("stage canonical manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "inputs.sha256"), []byte(fingerprint+"\n"), 0o644); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("stage inputs digest: %w", err)
	}

	job := &model.Job{
		ID:          jobID,
		Fingerprint: fingerprint,
		Manifest:    m,
		WorkDir:     workDir,
	}
	if err := s.sched.Submit(job); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	return job, nil
}

// Progress returns a point-in-time copy of the job's public state.
func (s *RenderService) Progress(jobID string) (model.Job, error) {
	return s.sched.GetProgress(jobID)
}

// Artifact returns the path of a finished job's rendered output. The job
// must exist and be in the succeeded state.
func (s *RenderService) Artifact(jobID string) (model.Job, string, error) {
	job, err := s.sched.GetProgress(jobID)
	if err != nil {
		return model.Job{}, "", err
	}
	if job.State != model.JobStatusSucceeded || job.OutputPath == "" {
		return job, "", nil
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		return job, "", &model.NotFoundError{JobID: jobID}
	}
	return job, job.OutputPath, nil
}

// Jobs lists every job the scheduler knows about.
func (s *RenderService) Jobs() []model.Job {
	return s.sched.Snapshot()
}
