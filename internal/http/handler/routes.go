package handler

import (
	"time"

	"backend-antrian-klinik/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/websocket/v2"
)

const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
	RoleDoctor       = "doctor"
)

type RouteConfig struct {
	JWTSecret       string
	PublicRateLimit int // per menit per IP; 0 mematikan limiter
}

// Register mounts the queue API on app.
func (h *Handler) Register(app *fiber.App, rc RouteConfig) {
	// ===== PUBLIC ROUTES =====
	limit := publicLimiter(rc.PublicRateLimit)

	public := app.Group("/api/public", limit)
	public.Post("/clinics/:slug/bookings", h.CreateBooking)
	public.Get("/tickets/:id", h.GetPublicTicket)
	public.Get("/queue/:clinicId/:doctorId", h.GetPublicQueueState)

	app.Get("/ws/queue/:clinicId/:doctorId", limit, h.QueueStreamUpgrade, websocket.New(h.QueueStream))

	// ===== STAFF ROUTES (wajib login) =====
	auth := middleware.JWTAuth(rc.JWTSecret)

	tickets := app.Group("/api/tickets", auth)
	tickets.Post("/:id/start", h.TicketScope(), h.StartConsulting)
	tickets.Post("/:id/finish", h.TicketScope(), h.FinishConsultation)
	tickets.Post("/:id/finish-and-next", h.TicketScope(), h.FinishAndCallNext)
	tickets.Delete("/:id", h.TicketScope(), h.CancelTicket)

	doctors := app.Group("/api/doctors/:doctorId", auth, DoctorScope())
	doctors.Get("/queue", h.ListQueue)
	doctors.Get("/queue/next", h.NextWaiting)
	doctors.Post("/queue/reconcile", middleware.RoleAuth(RoleAdmin, RoleReceptionist), h.Reconcile)
	doctors.Put("/availability", h.UpdateAvailability)
}

// publicLimiter limits anonymous callers per IP. A non-positive rate turns it
// into a pass-through.
func publicLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Terlalu banyak permintaan, coba lagi nanti",
			})
		},
	})
}
