package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"golang.org/x/oauth2"

	"shortly/internal/config"
	"shortly/internal/db"
	"shortly/internal/models"
)

const googleIssuer = "https://accounts.google.com"

// GoogleAuthHandler handles the Google OIDC sign-in flow.
type GoogleAuthHandler struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	db           *db.DB
	cfg          *config.Config
}

// NewGoogleAuthHandler creates an auth handler against Google's OIDC issuer.
func NewGoogleAuthHandler(ctx context.Context, cfg *config.Config, database *db.DB) (*GoogleAuthHandler, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, err
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.GoogleClientID})

	return &GoogleAuthHandler{
		oauth2Config: oauth2Config,
		verifier:     verifier,
		db:           database,
		cfg:          cfg,
	}, nil
}

// Login initiates the Google sign-in flow.
func (h *GoogleAuthHandler) Login(c fiber.Ctx) error {
	state := generateState()

	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	sess.Set("oauth_state", state)

	url := h.oauth2Config.AuthCodeURL(state)
	return c.Redirect().To(url)
}

// Callback handles the redirect back from Google. It verifies the ID token,
// upserts the account, and opens a session before sending the browser to the
// dashboard.
func (h *GoogleAuthHandler) Callback(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	savedState := sess.Get("oauth_state")
	if savedState == nil || savedState.(string) != c.Query("state") {
		return fiber.NewError(fiber.StatusBadRequest, "invalid state")
	}
	sess.Delete("oauth_state")

	oauth2Token, err := h.oauth2Config.Exchange(c.Context(), c.Query("code"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to exchange code")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "missing id_token")
	}

	idToken, err := h.verifier.Verify(c.Context(), rawIDToken)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id_token")
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return err
	}
	if claims.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email claim missing")
	}

	user := &models.User{
		Email:    claims.Email,
		Username: claims.Name,
		Picture:  claims.Picture,
		GoogleID: &claims.Sub,
	}
	if err := h.db.UpsertGoogleUser(c.Context(), user); err != nil {
		return err
	}

	if err := openSession(c, models.SessionUser{
		Username: user.Username,
		Email:    user.Email,
		Picture:  user.Picture,
	}); err != nil {
		log.Printf("Failed to open session for %s: %v", user.Email, err)
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	return c.Redirect().To(h.cfg.FrontendURL + "/dashboard")
}

func generateState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
