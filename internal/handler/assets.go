package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/videorobot/api/internal/service"
	"github.com/videorobot/api/pkg/response"
)

const maxAssetSize = 200 * 1024 * 1024 // 200MB

type AssetHandler struct {
	service *service.AssetService
}

func NewAssetHandler(svc *service.AssetService) *AssetHandler {
	return &AssetHandler{service: svc}
}

// Upload handles POST /assets
func (h *AssetHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "file is required", nil)
	}
	if file.Size > maxAssetSize {
		return response.ValidationError(c, "file exceeds the 200MB limit", fiber.Map{
			"maxSize":  maxAssetSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "failed to open uploaded file")
	}
	defer f.Close()

	info, err := h.service.Save(file.Filename, f)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(response.Envelope{OK: true, Data: info})
}

// List handles GET /assets
func (h *AssetHandler) List(c *fiber.Ctx) error {
	assets, err := h.service.List()
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"assets": assets})
}
