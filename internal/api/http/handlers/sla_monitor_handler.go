package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-sla/internal/api/dto"
	"github.com/spec-kit/maintenance-sla/internal/service"
)

// SLAMonitorHandler exposes the admin monitoring endpoints.
type SLAMonitorHandler struct {
	service *service.SLAService
}

// NewSLAMonitorHandler constructs handler.
func NewSLAMonitorHandler(slaService *service.SLAService) *SLAMonitorHandler {
	return &SLAMonitorHandler{service: slaService}
}

// Trigger POST /sla-monitor/trigger.
func (h *SLAMonitorHandler) Trigger(c *fiber.Ctx) error {
	job, err := h.service.TriggerCheck(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.TriggerResponse{
		Message: "SLA check triggered",
		JobID:   job.ID,
	}})
}

// Status GET /sla-monitor/status.
func (h *SLAMonitorHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.QueueStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QueueStatusResponse{Queue: status}})
}

// Statistics GET /sla-monitor/statistics.
func (h *SLAMonitorHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.service.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// ClearJobs DELETE /sla-monitor/jobs.
func (h *SLAMonitorHandler) ClearJobs(c *fiber.Ctx) error {
	removed, err := h.service.ClearCompletedJobs(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ClearJobsResponse{
		Message: "Completed and failed jobs cleared",
		Removed: removed,
	}})
}
