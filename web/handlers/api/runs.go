package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/ottermq/otterconf/internal/controller"
	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/ottermq/otterconf/internal/reconcile"
	"github.com/ottermq/otterconf/pkg/persistence"
)

type RunListResponse struct {
	Runs []persistence.Run `json:"runs"`
}

type RunObjectsResponse struct {
	RunID   string                    `json:"run_id"`
	Objects []persistence.ObjectEntry `json:"objects"`
}

type TriggerRunRequest struct {
	Mode string `json:"mode"`
}

// ListRuns godoc
// @Summary List recorded runs
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs" default(20)
// @Success 200 {object} RunListResponse
// @Failure 401 {object} models.ErrorResponse "Missing or invalid JWT token"
// @Failure 500 {object} models.ErrorResponse "Failed to read journal"
// @Router /runs [get]
// @Security BearerAuth
func ListRuns(c *fiber.Ctx, journal persistence.Journal) error {
	limit := c.QueryInt("limit", 20)
	runs, err := journal.Runs(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Failed to read journal: " + err.Error(),
		})
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	return c.Status(fiber.StatusOK).JSON(RunListResponse{Runs: runs})
}

// GetRun godoc
// @Summary Get the per-object outcomes of a run
// @Tags runs
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} RunObjectsResponse
// @Failure 401 {object} models.ErrorResponse "Missing or invalid JWT token"
// @Failure 404 {object} models.ErrorResponse "Run not found"
// @Router /runs/{id} [get]
// @Security BearerAuth
func GetRun(c *fiber.Ctx, journal persistence.Journal) error {
	id := c.Params("id")
	objects, err := journal.Objects(id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "run not found: " + id,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Failed to read journal: " + err.Error(),
		})
	}
	if objects == nil {
		objects = []persistence.ObjectEntry{}
	}
	return c.Status(fiber.StatusOK).JSON(RunObjectsResponse{RunID: id, Objects: objects})
}

// TriggerRun godoc
// @Summary Run a reconciliation now
// @Description Blocks until the run finishes. A run with errors answers 422 with its status.
// @Tags runs
// @Accept json
// @Produce json
// @Param run body TriggerRunRequest false "Mode, apply by default"
// @Success 200 {object} controller.Status
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse "Missing or invalid JWT token"
// @Failure 409 {object} models.ErrorResponse "A run is already in progress"
// @Failure 422 {object} controller.Status
// @Router /runs [post]
// @Security BearerAuth
func TriggerRun(c *fiber.Ctx, ctrl *controller.Controller) error {
	var req TriggerRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: "Invalid request body",
			})
		}
	}
	mode := reconcile.ModeApply
	switch reconcile.Mode(req.Mode) {
	case "", reconcile.ModeApply:
	case reconcile.ModeVerify:
		mode = reconcile.ModeVerify
	default:
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "mode must be apply or verify",
		})
	}

	status, err := ctrl.Reconcile(c.UserContext(), mode)
	if errors.Is(err, controller.ErrBusy) {
		return c.Status(fiber.StatusConflict).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(status)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}
