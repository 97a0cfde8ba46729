package handler

import (
	"time"

	"feedpulse/internal/pkg/response"
	"feedpulse/internal/repository"
	"feedpulse/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type SchedulerHandler struct {
	uc usecase.SchedulerControlUsecase
}

type startSchedulerRequest struct {
	Category    string   `json:"category"`
	Language    string   `json:"language"`
	Region      string   `json:"region"`
	InstanceIDs []string `json:"instance_ids"`
}

type updateSchedulerConfigRequest struct {
	MaxConcurrentJobs *int   `json:"max_concurrent_jobs"`
	CheckIntervalMs   *int64 `json:"check_interval_ms"`
}

func NewSchedulerHandler(uc usecase.SchedulerControlUsecase) *SchedulerHandler {
	return &SchedulerHandler{uc: uc}
}

func (h *SchedulerHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/scheduler")
	grp.Post("/start", h.Start)
	grp.Post("/stop", h.Stop)
	grp.Get("/status", h.Status)
	grp.Patch("/config", h.UpdateConfig)
}

// Start accepts an optional feed filter body; an empty body starts the
// scheduler over the full due set.
func (h *SchedulerHandler) Start(c fiber.Ctx) error {
	var req startSchedulerRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
	}

	filter := repository.DueFilter{
		Category: req.Category,
		Language: req.Language,
		Region:   req.Region,
	}
	for _, raw := range req.InstanceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		filter.IDs = append(filter.IDs, id)
	}

	h.uc.Start(filter)
	return response.Success(c, fiber.StatusOK, "Scheduler started", h.uc.Status())
}

func (h *SchedulerHandler) Stop(c fiber.Ctx) error {
	h.uc.Stop()
	return response.Success(c, fiber.StatusOK, "Scheduler stopped", h.uc.Status())
}

func (h *SchedulerHandler) Status(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.uc.Status())
}

func (h *SchedulerHandler) UpdateConfig(c fiber.Ctx) error {
	var req updateSchedulerConfigRequest
	if err := c.Bind().Body(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	if req.MaxConcurrentJobs == nil && req.CheckIntervalMs == nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	if req.MaxConcurrentJobs != nil && *req.MaxConcurrentJobs <= 0 {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	if req.CheckIntervalMs != nil && *req.CheckIntervalMs <= 0 {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}

	var interval *time.Duration
	if req.CheckIntervalMs != nil {
		d := time.Duration(*req.CheckIntervalMs) * time.Millisecond
		interval = &d
	}

	h.uc.UpdateConfiguration(req.MaxConcurrentJobs, interval)
	return response.Success(c, fiber.StatusOK, "Scheduler configuration updated", h.uc.Status())
}
