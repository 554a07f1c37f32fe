package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"

	"shortly/internal/codec"
	"shortly/internal/db"
	"shortly/internal/models"
	"shortly/internal/testutil"
)

func newRedirectApp(t *testing.T) (*fiber.App, *db.DB, func()) {
	t.Helper()
	database, cleanup := testutil.TestDB(t)

	app := fiber.New()
	handler := NewRedirectHandler(database)
	app.Get("/api/v2/link/redirect", handler.Resolve)
	app.Post("/api/v2/link/verify-password", handler.VerifyPassword)

	return app, database, cleanup
}

func createRedirectLink(t *testing.T, database *db.DB, password string) (*models.Link, string) {
	t.Helper()
	ctx := context.Background()

	userID := testutil.CreateTestUser(t, database, "redirects", "redirects@example.com")

	index, err := database.NextLinkIndex(ctx)
	if err != nil {
		t.Fatalf("NextLinkIndex() error = %v", err)
	}

	link := &models.Link{
		Index:       index,
		UserID:      userID,
		Kind:        models.KindShortURL,
		Title:       "Docs",
		OriginalURL: "https://example.com/docs",
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			t.Fatalf("bcrypt error = %v", err)
		}
		hashStr := string(hash)
		link.IsPasswordProtected = true
		link.PasswordHash = &hashStr
	}
	if err := database.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	return link, codec.Encode(index)
}

func decodeBody(t *testing.T, body io.Reader, out any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestResolve(t *testing.T) {
	app, database, cleanup := newRedirectApp(t)
	defer cleanup()

	link, identifier := createRedirectLink(t, database, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v2/link/redirect?index="+identifier, nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var body struct {
		URL models.ResolveResponse `json:"url"`
	}
	decodeBody(t, resp.Body, &body)

	if body.URL.OriginalURL != link.OriginalURL {
		t.Errorf("originalUrl = %q, want %q", body.URL.OriginalURL, link.OriginalURL)
	}
	if body.URL.PasswordRequired {
		t.Error("passwordRequired = true for unprotected link")
	}

	got, err := database.GetLinkByID(context.Background(), link.ID)
	if err != nil {
		t.Fatalf("GetLinkByID() error = %v", err)
	}
	if got.Clicks != 1 {
		t.Errorf("clicks = %d, want 1", got.Clicks)
	}
}

func TestResolveErrors(t *testing.T) {
	app, _, cleanup := newRedirectApp(t)
	defer cleanup()

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing identifier", "/api/v2/link/redirect", fiber.StatusBadRequest},
		{"malformed identifier", "/api/v2/link/redirect?index=ab-cd", fiber.StatusBadRequest},
		{"below floor", "/api/v2/link/redirect?index=1", fiber.StatusBadRequest},
		{"unknown identifier", "/api/v2/link/redirect?index=zzzz", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestResolveProtected(t *testing.T) {
	app, database, cleanup := newRedirectApp(t)
	defer cleanup()

	link, identifier := createRedirectLink(t, database, "hunter2")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v2/link/redirect?index="+identifier, nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var body struct {
		URL models.ResolveResponse `json:"url"`
	}
	decodeBody(t, resp.Body, &body)

	if !body.URL.PasswordRequired {
		t.Error("passwordRequired = false for protected link")
	}
	if body.URL.OriginalURL != "" {
		t.Errorf("originalUrl leaked before password check: %q", body.URL.OriginalURL)
	}

	// No click until the destination is released
	got, err := database.GetLinkByID(context.Background(), link.ID)
	if err != nil {
		t.Fatalf("GetLinkByID() error = %v", err)
	}
	if got.Clicks != 0 {
		t.Errorf("clicks = %d, want 0", got.Clicks)
	}
}

func TestVerifyPassword(t *testing.T) {
	app, database, cleanup := newRedirectApp(t)
	defer cleanup()

	link, identifier := createRedirectLink(t, database, "hunter2")

	send := func(t *testing.T, payload map[string]string) (int, models.VerifyPasswordResponse) {
		t.Helper()
		raw, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/api/v2/link/verify-password", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		var body models.VerifyPasswordResponse
		decodeBody(t, resp.Body, &body)
		return resp.StatusCode, body
	}

	status, body := send(t, map[string]string{"index": identifier, "password": "wrong"})
	if status != fiber.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want %d", status, fiber.StatusUnauthorized)
	}
	if body.Success || body.OriginalURL != "" {
		t.Errorf("wrong password leaked destination: %+v", body)
	}

	status, body = send(t, map[string]string{"index": identifier, "password": "hunter2"})
	if status != fiber.StatusOK {
		t.Errorf("correct password status = %d, want %d", status, fiber.StatusOK)
	}
	if !body.Success || body.OriginalURL != link.OriginalURL {
		t.Errorf("correct password response = %+v, want destination %q", body, link.OriginalURL)
	}

	// Only the successful attempt counts as a click
	got, err := database.GetLinkByID(context.Background(), link.ID)
	if err != nil {
		t.Fatalf("GetLinkByID() error = %v", err)
	}
	if got.Clicks != 1 {
		t.Errorf("clicks = %d, want 1", got.Clicks)
	}

	status, _ = send(t, map[string]string{"index": identifier})
	if status != fiber.StatusBadRequest {
		t.Errorf("missing password status = %d, want %d", status, fiber.StatusBadRequest)
	}
}
