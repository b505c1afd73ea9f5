package config

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

const recaptchaURL = "https://www.google.com/recaptcha/api/siteverify"

type RecaptchaResponse struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"`
	Action  string  `json:"action"`
}

// Recaptcha verifies booking tokens. A zero secret disables verification.
type Recaptcha struct {
	Secret   string
	URL      string
	MinScore float64
}

func NewRecaptcha(secret string) *Recaptcha {
	return &Recaptcha{Secret: secret, URL: recaptchaURL, MinScore: 0.5}
}

func (r *Recaptcha) Enabled() bool {
	return r != nil && r.Secret != ""
}

func (r *Recaptcha) Verify(token string) (bool, float64, error) {
	if !r.Enabled() {
		return true, 1, nil
	}
	if token == "" {
		return false, 0, nil
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("secret", r.Secret)
	args.Set("response", token)

	var result RecaptchaResponse
	code, _, errs := fiber.Post(r.URL).Form(args).Struct(&result)
	if len(errs) > 0 {
		return false, 0, errors.Join(errs...)
	}
	if code != fiber.StatusOK {
		return false, 0, fmt.Errorf("recaptcha status %d", code)
	}

	// v2 tidak mengirim score
	if result.Score == 0 {
		return result.Success, 0, nil
	}
	return result.Success && result.Score >= r.MinScore, result.Score, nil
}
