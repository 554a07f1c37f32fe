package handlers

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"shortly/internal/db"
	"shortly/internal/email"
	"shortly/internal/models"
)

// codeTTL is how long verification and reset codes stay valid.
const codeTTL = 10 * time.Minute

// AccountHandler handles registration, login, and password management.
type AccountHandler struct {
	db       *db.DB
	notifier *email.Notifier
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(database *db.DB, notifier *email.Notifier) *AccountHandler {
	return &AccountHandler{db: database, notifier: notifier}
}

// generateCode returns a random 4-digit verification code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}

// Register creates an unverified account and mails a verification code.
// An existing unverified account for the address is replaced.
func (h *AccountHandler) Register(c fiber.Ctx) error {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if body.Username == "" || body.Email == "" || body.Password == "" {
		return jsonError(c, fiber.StatusBadRequest, "Please fill in all fields")
	}

	addr := strings.ToLower(strings.TrimSpace(body.Email))

	existing, err := h.db.GetUserByEmail(c.Context(), addr)
	if err != nil && !errors.Is(err, db.ErrUserNotFound) {
		return storeError(c, err)
	}
	if existing != nil {
		if existing.EmailVerified {
			return jsonError(c, fiber.StatusBadRequest, "User already exists")
		}
		// Abandoned registration; start over.
		if err := h.db.DeleteUser(c.Context(), existing.ID); err != nil {
			return storeError(c, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
	}
	hashStr := string(hash)

	user := &models.User{
		Email:        addr,
		Username:     body.Username,
		PasswordHash: &hashStr,
	}
	if err := h.db.CreateUser(c.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return jsonError(c, fiber.StatusBadRequest, "User already exists")
		}
		return storeError(c, err)
	}

	code, err := generateCode()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
	}

	vc := &models.VerificationCode{
		UserID:    user.ID,
		Email:     addr,
		Code:      code,
		Purpose:   models.PurposeVerifyEmail,
		ExpiresAt: time.Now().Add(codeTTL),
	}
	if err := h.db.ReplaceVerificationCode(c.Context(), vc); err != nil {
		return storeError(c, err)
	}

	h.notifier.SendVerificationCode(addr, user.Username, code)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"msg": "User registered successfully"})
}

// VerifyEmail confirms ownership of an address with the mailed code.
func (h *AccountHandler) VerifyEmail(c fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Code == "" {
		return jsonError(c, fiber.StatusBadRequest, "Please provide a verification code")
	}

	addr := strings.ToLower(strings.TrimSpace(body.Email))

	vc, err := h.db.GetValidCode(c.Context(), addr, models.PurposeVerifyEmail)
	if err != nil || vc.Code != body.Code {
		if err != nil && !errors.Is(err, db.ErrCodeNotFound) {
			return storeError(c, err)
		}
		return jsonError(c, fiber.StatusBadRequest, "Invalid or expired verification code")
	}

	if err := h.db.MarkEmailVerified(c.Context(), vc.UserID); err != nil {
		return storeError(c, err)
	}
	h.db.DeleteCode(c.Context(), vc.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"msg": "Email verified successfully"})
}

// Login authenticates a verified account and opens a session.
func (h *AccountHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return jsonError(c, fiber.StatusBadRequest, "Please fill in all fields")
	}

	addr := strings.ToLower(strings.TrimSpace(body.Email))

	user, err := h.db.GetUserByEmail(c.Context(), addr)
	if err != nil && !errors.Is(err, db.ErrUserNotFound) {
		return storeError(c, err)
	}
	if user == nil || !user.EmailVerified {
		return jsonError(c, fiber.StatusBadRequest, "User does not exist or email not verified")
	}
	if user.PasswordHash == nil {
		return jsonError(c, fiber.StatusBadRequest, "User signed up with Google")
	}

	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(body.Password)) != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid credentials")
	}

	sessionUser := models.SessionUser{
		Username: user.Username,
		Email:    user.Email,
		Picture:  user.Picture,
	}
	if err := openSession(c, sessionUser); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
	}

	return c.JSON(fiber.Map{"user": sessionUser})
}

// Verify reports the session's account, if any.
func (h *AccountHandler) Verify(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return jsonError(c, fiber.StatusUnauthorized, "Not authenticated")
	}

	addr, _ := sess.Get("user_email").(string)
	if addr == "" {
		return jsonError(c, fiber.StatusUnauthorized, "Not authenticated")
	}

	username, _ := sess.Get("user_name").(string)
	picture, _ := sess.Get("user_picture").(string)
	return c.JSON(fiber.Map{"user": models.SessionUser{
		Username: username,
		Email:    addr,
		Picture:  picture,
	}})
}

// Logout destroys the session.
func (h *AccountHandler) Logout(c fiber.Ctx) error {
	if sess := session.FromContext(c); sess != nil {
		sess.Destroy()
	}
	return c.JSON(fiber.Map{"msg": "Logged out"})
}

// ChangePassword rotates the password of a logged-in account after
// checking the current one.
func (h *AccountHandler) ChangePassword(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var body struct {
		Password    string `json:"password"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Password == "" || body.NewPassword == "" {
		return jsonError(c, fiber.StatusBadRequest, "Please fill in all fields")
	}

	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(body.Password)) != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid current password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
	}

	if err := h.db.UpdateUserPassword(c.Context(), user.ID, string(hash)); err != nil {
		return storeError(c, err)
	}

	return c.JSON(fiber.Map{"msg": "Password updated successfully"})
}

// RequestPasswordReset mails a reset code to an existing account.
func (h *AccountHandler) RequestPasswordReset(c fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Email == "" {
		return jsonError(c, fiber.StatusBadRequest, "Email is required")
	}

	addr := strings.ToLower(strings.TrimSpace(body.Email))

	user, err := h.db.GetUserByEmail(c.Context(), addr)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "User not found")
		}
		return storeError(c, err)
	}

	code, err := generateCode()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
	}

	vc := &models.VerificationCode{
		UserID:    user.ID,
		Email:     addr,
		Code:      code,
		Purpose:   models.PurposePasswordReset,
		ExpiresAt: time.Now().Add(codeTTL),
	}
	if err := h.db.ReplaceVerificationCode(c.Context(), vc); err != nil {
		return storeError(c, err)
	}

	h.notifier.SendPasswordResetCode(addr, user.Username, code)

	return c.JSON(fiber.Map{"msg": "Reset code sent to your email."})
}

// CheckPasswordResetDetails validates a reset code before the frontend
// shows the new-password form.
func (h *AccountHandler) CheckPasswordResetDetails(c fiber.Ctx) error {
	userID, code := c.Query("userId"), c.Query("code")
	if userID == "" || code == "" {
		return jsonError(c, fiber.StatusBadRequest, "User ID and code are required")
	}

	if _, err := h.validResetCode(c, userID, code); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"msg": "Valid reset code", "userId": userID})
}

// ForgotPasswordChangePassword sets a new password with a valid reset code.
func (h *AccountHandler) ForgotPasswordChangePassword(c fiber.Ctx) error {
	var body struct {
		UserID      string `json:"userId"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.UserID == "" || body.Code == "" || body.NewPassword == "" {
		return jsonError(c, fiber.StatusBadRequest, "All fields are required")
	}

	vc, err := h.validResetCode(c, body.UserID, body.Code)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
	}

	if err := h.db.UpdateUserPassword(c.Context(), vc.UserID, string(hash)); err != nil {
		return storeError(c, err)
	}
	h.db.DeleteCode(c.Context(), vc.ID)

	return c.JSON(fiber.Map{"msg": "Password changed successfully"})
}

// validResetCode loads and checks a password-reset code, writing the error
// response itself on failure.
func (h *AccountHandler) validResetCode(c fiber.Ctx, rawUserID, code string) (*models.VerificationCode, error) {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, jsonError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	vc, err := h.db.GetValidCodeByUser(c.Context(), userID, models.PurposePasswordReset)
	if err != nil || vc.Code != code {
		if err != nil && !errors.Is(err, db.ErrCodeNotFound) {
			return nil, storeError(c, err)
		}
		return nil, jsonError(c, fiber.StatusNotFound, "Invalid or expired reset link")
	}
	return vc, nil
}

// openSession stores the account identity in a fresh session.
func openSession(c fiber.Ctx, user models.SessionUser) error {
	sess := session.FromContext(c)
	if sess == nil {
		return errors.New("session not available")
	}
	// Fresh session ID on every login
	if err := sess.Reset(); err != nil {
		return err
	}
	sess.Set("user_email", user.Email)
	sess.Set("user_name", user.Username)
	sess.Set("user_picture", user.Picture)
	return nil
}
