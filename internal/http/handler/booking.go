package handler

import (
	"backend-antrian-klinik/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CreateBooking - endpoint publik untuk ambil nomor antrian dokter
func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	var req models.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if h.recaptcha.Enabled() {
		ok, score, err := h.recaptcha.Verify(req.RecaptchaToken)
		if err != nil {
			h.log.Warn("recaptcha verify failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   "Verifikasi captcha gagal, silakan coba lagi",
			})
		}
		if !ok {
			h.log.Info("recaptcha rejected", zap.Float64("score", score), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Captcha tidak valid",
			})
		}
	}

	ticket, err := h.svc.CreateTicket(c.UserContext(), c.Params("slug"), req)
	if err != nil {
		return h.fail(c, err)
	}

	return success(c, fiber.StatusCreated, fiber.Map{
		"ticket_id":    ticket.ID,
		"queue_number": ticket.QueueNumber,
		"booking_day":  ticket.BookingDay,
	})
}
