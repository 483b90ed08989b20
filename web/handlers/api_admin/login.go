package api_admin

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/ottermq/otterconf/web/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is the single API account and how its tokens are signed.
type Credentials struct {
	Username     string
	PasswordHash []byte // bcrypt
	JwtKey       string
	TokenTTL     time.Duration
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login godoc
// @Summary Obtain an API token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "API account"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func Login(c *fiber.Ctx, creds *Credentials) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request body",
		})
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(creds.Username)) == 1
	// compare the password even for a wrong username so timing does not leak it
	passErr := bcrypt.CompareHashAndPassword(creds.PasswordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		log.Warn().Str("username", req.Username).Str("ip", c.IP()).Msg("Rejected API login")
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Error: "Invalid username or password",
		})
	}

	token, expires, err := middleware.IssueToken(creds.JwtKey, creds.Username, creds.TokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Failed to issue token: " + err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(LoginResponse{Token: token, ExpiresAt: expires})
}
