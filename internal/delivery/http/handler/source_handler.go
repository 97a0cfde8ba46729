package handler

import (
	"errors"
	"strconv"

	"feedpulse/internal/delivery/http/dto"
	"feedpulse/internal/pkg/response"
	"feedpulse/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type SourceHandler struct {
	uc usecase.SourceAdminUsecase
}

type createSourceRequest struct {
	Name        string `json:"name"`
	BaseURL     string `json:"base_url"`
	Provider    string `json:"provider"`
	Language    string `json:"language"`
	Region      string `json:"region"`
	Category    string `json:"category"`
	ContentType string `json:"content_type"`
}

type createInstanceRequest struct {
	FetchURL           string  `json:"fetch_url"`
	Tier               string  `json:"tier"`
	BaseRefreshMinutes float64 `json:"base_refresh_minutes"`
	AdaptiveRefresh    bool    `json:"adaptive_refresh"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func NewSourceHandler(uc usecase.SourceAdminUsecase) *SourceHandler {
	return &SourceHandler{uc: uc}
}

func (h *SourceHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/sources")
	grp.Post("/", h.Create)
	grp.Get("/", h.List)
	grp.Get("/:id", h.Get)
	grp.Patch("/:id/active", h.SetActive)
	grp.Post("/:id/instances", h.CreateInstance)
}

func (h *SourceHandler) Create(c fiber.Ctx) error {
	var req createSourceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	src, err := h.uc.RegisterSource(c.Context(), usecase.RegisterSourceParams{
		Name:        req.Name,
		BaseURL:     req.BaseURL,
		Provider:    req.Provider,
		Language:    req.Language,
		Region:      req.Region,
		Category:    req.Category,
		ContentType: req.ContentType,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, "Feed source registered successfully", dto.NewSourceResponse(*src))
}

func (h *SourceHandler) List(c fiber.Ctx) error {
	onlyActive := c.Query("active") == "true"
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	items, err := h.uc.ListSources(c.Context(), onlyActive, limit, offset)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	res := make([]dto.SourceResponse, 0, len(items))
	for _, it := range items {
		res = append(res, dto.NewSourceResponse(it))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *SourceHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	src, instances, err := h.uc.GetSource(c.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			return response.Error(c, fiber.StatusNotFound, response.MessageNotFound, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewSourceDetailResponse(*src, instances))
}

func (h *SourceHandler) SetActive(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	var req setActiveRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	if err := h.uc.SetSourceActive(c.Context(), id, req.Active); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			return response.Error(c, fiber.StatusNotFound, response.MessageNotFound, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, "Feed source updated successfully", fiber.Map{"id": id, "active": req.Active})
}

func (h *SourceHandler) CreateInstance(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	var req createInstanceRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	inst, err := h.uc.RegisterInstance(c.Context(), usecase.RegisterInstanceParams{
		SourceID:           id,
		FetchURL:           req.FetchURL,
		Tier:               req.Tier,
		BaseRefreshMinutes: req.BaseRefreshMinutes,
		AdaptiveRefresh:    req.AdaptiveRefresh,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		if errors.Is(err, usecase.ErrNotFound) {
			return response.Error(c, fiber.StatusNotFound, response.MessageNotFound, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, "Feed instance registered successfully", dto.NewInstanceResponse(*inst))
}
