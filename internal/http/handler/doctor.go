package handler

import (
	"backend-antrian-klinik/internal/helper"
	"backend-antrian-klinik/internal/http/middleware"
	"backend-antrian-klinik/internal/models"
	"backend-antrian-klinik/internal/queue"

	"github.com/gofiber/fiber/v2"
)

const localDoctorParam = "doctor_param"

// DoctorScope parses :doctorId and keeps doctor-bound tokens on their own queue.
func DoctorScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("doctorId")
		if err != nil || id <= 0 {
			return badRequest(c, "doctorId tidak valid")
		}
		if own, ok := middleware.DoctorID(c); ok && own != int64(id) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Anda tidak memiliki akses ke antrian dokter ini",
			})
		}
		c.Locals(localDoctorParam, int64(id))
		return c.Next()
	}
}

func doctorParam(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localDoctorParam).(int64)
	return id
}

func dayQuery(c *fiber.Ctx) (string, bool) {
	day := c.Query("day")
	if day == "" {
		return "", true
	}
	return day, helper.ValidDay(day)
}

func (h *Handler) ListQueue(c *fiber.Ctx) error {
	doctorID := doctorParam(c)
	day, ok := dayQuery(c)
	if !ok {
		return badRequest(c, "Format day harus YYYY-MM-DD")
	}

	f := queue.QueueFilter{Day: day}
	if s := c.Query("status"); s != "" {
		status := models.TicketStatus(s)
		switch status {
		case models.StatusWaiting, models.StatusConsulting, models.StatusFinished:
		default:
			return badRequest(c, "Status tidak dikenal")
		}
		f.Status = &status
	}
	if t := c.Query("queue_type"); t != "" {
		qt := models.QueueType(t)
		if !qt.Valid() {
			return badRequest(c, "queue_type tidak dikenal")
		}
		f.QueueType = &qt
	}

	list, err := h.svc.ListQueue(c.UserContext(), middleware.ClinicID(c), doctorID, f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
		"total":   len(list),
	})
}

func (h *Handler) NextWaiting(c *fiber.Ctx) error {
	doctorID := doctorParam(c)
	day, ok := dayQuery(c)
	if !ok {
		return badRequest(c, "Format day harus YYYY-MM-DD")
	}

	var lane *models.QueueType
	if t := c.Query("queue_type"); t != "" {
		qt := models.QueueType(t)
		lane = &qt
	}

	next, err := h.svc.NextWaiting(c.UserContext(), middleware.ClinicID(c), doctorID, day, lane)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, next)
}

func (h *Handler) Reconcile(c *fiber.Ctx) error {
	doctorID := doctorParam(c)
	day, ok := dayQuery(c)
	if !ok {
		return badRequest(c, "Format day harus YYYY-MM-DD")
	}

	state, err := h.svc.Reconcile(c.UserContext(), middleware.ClinicID(c), doctorID, day)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, state)
}

func (h *Handler) UpdateAvailability(c *fiber.Ctx) error {
	doctorID := doctorParam(c)

	var req models.UpdateAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	doctor, err := h.svc.SetAvailability(c.UserContext(), middleware.ClinicID(c), doctorID, req)
	if err != nil {
		return h.fail(c, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"doctor_id":      doctor.ID,
		"is_available":   doctor.IsAvailable,
		"status_message": doctor.StatusMessage,
	})
}
