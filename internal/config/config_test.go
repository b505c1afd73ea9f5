package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PUBLIC_REF_SECRET", "")
	t.Setenv("SEQUENCE_BACKEND", "etcd")
	t.Setenv("QUEUE_LANES", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET", "PUBLIC_REF_SECRET", "SEQUENCE_BACKEND"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PUBLIC_REF_SECRET", "r")
	t.Setenv("SEQUENCE_BACKEND", "redis")
	t.Setenv("PROJECTION_SWEEP_INTERVAL", "30s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Queue.Lanes != "single" || cfg.Queue.SweepInterval != 30*time.Second || cfg.Queue.SequenceBackend != "redis" {
		t.Fatalf("unexpected queue config %+v", cfg.Queue)
	}
}

func TestDSN(t *testing.T) {
	dsn := DBConfig{Host: "db", Port: "3306", User: "app", Password: "pw", Name: "antrian"}.DSN()
	for _, want := range []string{"app:pw@tcp(db:3306)/antrian", "parseTime=true"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	doctorID := int64(10)
	tok, err := GenerateToken("rahasia", 7, 1, &doctorID, "doctor", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken("rahasia", tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 7 || claims.ClinicID != 1 || claims.DoctorID == nil || *claims.DoctorID != 10 {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := ValidateToken("salah", tok); err == nil {
		t.Fatalf("wrong secret must fail")
	}

	expired, _ := GenerateToken("rahasia", 7, 1, nil, "admin", -time.Minute)
	if _, err := ValidateToken("rahasia", expired); err == nil {
		t.Fatalf("expired token must fail")
	}

	noClinic, _ := GenerateToken("rahasia", 7, 0, nil, "admin", time.Hour)
	if _, err := ValidateToken("rahasia", noClinic); err == nil {
		t.Fatalf("token without clinic must fail")
	}
}

func TestRecaptchaDisabledAcceptsEverything(t *testing.T) {
	r := NewRecaptcha("")
	ok, _, err := r.Verify("")
	if err != nil || !ok {
		t.Fatalf("disabled recaptcha: %v %v", ok, err)
	}
	if NewRecaptcha("secret").Enabled() == false {
		t.Fatalf("secret should enable verification")
	}
}
