package handler

import (
	"backend-antrian-klinik/internal/config"
	"backend-antrian-klinik/internal/queue"
	"backend-antrian-klinik/internal/realtime"

	"go.uber.org/zap"
)

type Handler struct {
	svc       *queue.Service
	hub       *realtime.Hub
	recaptcha *config.Recaptcha
	log       *zap.Logger
}

func New(svc *queue.Service, hub *realtime.Hub, recaptcha *config.Recaptcha, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, hub: hub, recaptcha: recaptcha, log: log}
}
