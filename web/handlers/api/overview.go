package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ottermq/otterconf/internal/controller"
)

type OverviewResponse struct {
	Source   string             `json:"source"`
	Interval string             `json:"interval"`
	LastRun  *controller.Status `json:"last_run"`
}

// GetOverview godoc
// @Summary Describe the reconciliation loop
// @Description The managed document, the schedule and the most recent run
// @Tags overview
// @Produce json
// @Success 200 {object} OverviewResponse
// @Failure 401 {object} models.ErrorResponse "Missing or invalid JWT token"
// @Router /overview [get]
// @Security BearerAuth
func GetOverview(c *fiber.Ctx, ctrl *controller.Controller) error {
	resp := OverviewResponse{
		Source:   ctrl.Source(),
		Interval: ctrl.Interval().String(),
	}
	if last, ok := ctrl.Last(); ok {
		resp.LastRun = &last
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
