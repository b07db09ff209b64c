package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/config"
	"github.com/mediscanhq/mediscan-backend/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  uuid.New().String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func testApp(roles ...string) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/guarded", JWTProtected(cfg), RoleRequired(roles...), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRoleRequired(t *testing.T) {
	cases := []struct {
		name       string
		allowed    []string
		tokenRole  string
		wantStatus int
	}{
		{"doctor allowed", []string{models.RoleDoctor}, models.RoleDoctor, fiber.StatusOK},
		{"patient blocked from doctor route", []string{models.RoleDoctor}, models.RolePatient, fiber.StatusForbidden},
		{"either of two roles", []string{models.RoleDoctor, models.RoleAdmin}, models.RoleAdmin, fiber.StatusOK},
		{"empty role claim", []string{models.RoleDoctor}, "", fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := testApp(tc.allowed...)
			req := httptest.NewRequest("GET", "/guarded", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tc.tokenRole))

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := testApp(models.RoleDoctor)

	cases := []struct {
		name  string
		token string
	}{
		{name: "missing header"},
		{name: "garbage token", token: "not-a-jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/guarded", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}

func TestJWTProtectedRejectsWrongSignature(t *testing.T) {
	app := testApp(models.RoleDoctor)

	claims := jwt.MapClaims{"sub": uuid.New().String(), "role": models.RoleDoctor, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestParseCSV(t *testing.T) {
	got := parseCSV(" Admin@x.com, ,ops@x.com ")
	if len(got) != 2 || got[0] != "admin@x.com" || got[1] != "ops@x.com" {
		t.Errorf("parseCSV = %v", got)
	}
	if parseCSV("") != nil {
		t.Error("parseCSV(\"\") should be nil")
	}
}
