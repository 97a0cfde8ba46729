package handler

import (
	"errors"

	"feedpulse/internal/pkg/response"
	"feedpulse/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type MonitorHandler struct {
	uc usecase.MonitorUsecase
}

func NewMonitorHandler(uc usecase.MonitorUsecase) *MonitorHandler {
	return &MonitorHandler{uc: uc}
}

func (h *MonitorHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/sources/:id/health", h.Dashboard)
}

func (h *MonitorHandler) Dashboard(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
	}
	refresh := c.Query("refresh") == "true"

	d, err := h.uc.GetDashboard(c.Context(), id, refresh)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			return response.Error(c, fiber.StatusNotFound, response.MessageNotFound, nil)
		}
		if errors.Is(err, usecase.ErrInvalidInput) {
			return response.Error(c, fiber.StatusBadRequest, response.MessageBadRequest, nil)
		}
		return response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, d)
}
