package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/videorobot/api/internal/model"
	"github.com/videorobot/api/internal/service"
	"github.com/videorobot/api/pkg/response"
)

type DownloadHandler struct {
	service *service.RenderService
}

func NewDownloadHandler(svc *service.RenderService) *DownloadHandler {
	return &DownloadHandler{service: svc}
}

// Download handles GET /download?jobId=
func (h *DownloadHandler) Download(c *fiber.Ctx) error {
	jobID := c.Query("jobId")
	if jobID == "" {
		return response.ValidationError(c, "jobId query parameter is required", nil)
	}

	job, path, err := h.service.Artifact(jobID)
	if err != nil {
		return response.FromError(c, err)
	}
	if path == "" {
		if job.State == model.JobStatusFailed {
			kind := job.ErrorKind
			if kind == "" {
				kind = model.KindComposition
			}
			return response.Conflict(c, kind, "job failed; no artifact was produced")
		}
		// Not terminal yet: the artifact does not exist as a resource.
		return response.NotFound(c, "job has not completed yet")
	}

	c.Attachment("final.mp4")
	return c.SendFile(path)
}
