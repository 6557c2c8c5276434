package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/videorobot/api/internal/service"
	"github.com/videorobot/api/pkg/response"
)

type RenderHandler struct {
	service *service.RenderService
}

func NewRenderHandler(svc *service.RenderService) *RenderHandler {
	return &RenderHandler{service: svc}
}

// Render handles POST /render
func (h *RenderHandler) Render(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return response.ValidationError(c, "request body is required", nil)
	}

	job, err := h.service.Submit(body)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Accepted(c, fiber.Map{
		"job_id":        job.ID,
		"inputs_sha256": job.Fingerprint,
		"state":         job.State,
	})
}

// Progress handles GET /progress/:jobId
func (h *RenderHandler) Progress(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "job id is required", nil)
	}

	job, err := h.service.Progress(jobID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.OK(c, job)
}
