package auth

import (
	"context"
	"errors"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/voxnote/backend/internal/middleware"
	"github.com/voxnote/backend/internal/models"
	"github.com/voxnote/backend/pkg/response"
	"github.com/voxnote/backend/pkg/utils"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 6

// UserStore is the persistence surface the handlers need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, fullName, email, pseudo, passwordHash string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

// RegisterRequest is the body for POST /api/user/register.
type RegisterRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Pseudo          string `json:"pseudo"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the body for POST /api/user/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EditProfileRequest is the body for PUT /api/user/editProfile.
// All fields are optional; a password change requires the last three.
type EditProfileRequest struct {
	Pseudo          string `json:"pseudo"`
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	OldPassword     string `json:"oldPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Handler handles user HTTP endpoints.
type Handler struct {
	store  UserStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates a user handler.
func NewHandler(store UserStore, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, jwt: jwt, logger: logger}
}

// Register handles POST /api/user/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Please fill in all the fields.")
		return
	}

	if req.FullName == "" || req.Email == "" || req.Pseudo == "" || req.Password == "" || req.ConfirmPassword == "" {
		response.BadRequest(c, "Please fill in all the fields.")
		return
	}
	if !emailRegex.MatchString(req.Email) {
		response.BadRequest(c, "Invalid email format.")
		return
	}
	if len(req.Password) < minPasswordLen {
		response.BadRequest(c, "Password must be at least 6 characters long.")
		return
	}
	if req.Password != req.ConfirmPassword {
		response.BadRequest(c, "Passwords do not match.")
		return
	}

	if _, err := h.store.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "This email is already in use.")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	if _, err := h.store.Create(c.Request.Context(), req.FullName, req.Email, req.Pseudo, hash); err != nil {
		// The unique index is the real enforcer; a race loser lands here.
		if isUniqueViolation(err) {
			response.BadRequest(c, "This email is already in use.")
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.Created(c, response.Message{Message: "User registered successfully."})
}

// Login handles POST /api/user/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and password are required.")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.BadRequest(c, "Email and password are required.")
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "User not found.")
			return
		}
		h.logger.Error("lookup user failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.BadRequest(c, "Incorrect password.")
		return
	}

	token, err := h.jwt.Generate(user.ID)
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.Created(c, gin.H{"user": user.ToPublic(), "token": token})
}

// EditProfile handles PUT /api/user/editProfile.
func (h *Handler) EditProfile(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	// The gate strips the password; re-fetch for the old-password check.
	user, err := h.store.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "User not found")
			return
		}
		h.logger.Error("lookup user failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	var req EditProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	if req.Pseudo != "" {
		user.Pseudo = req.Pseudo
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}

	// An unchanged email is a no-op and is never re-validated.
	if req.Email != "" && req.Email != user.Email {
		if !emailRegex.MatchString(req.Email) {
			response.BadRequest(c, "Invalid email address")
			return
		}
		if _, err := h.store.GetByEmail(c.Request.Context(), req.Email); err == nil {
			response.BadRequest(c, "Email already in use")
			return
		}
		user.Email = req.Email
	}

	if req.NewPassword != "" {
		if req.OldPassword == "" || req.ConfirmPassword == "" {
			response.BadRequest(c, "Old and confirm password are required")
			return
		}
		if !utils.CheckPassword(req.OldPassword, user.Password) {
			response.BadRequest(c, "Old password is incorrect")
			return
		}
		if req.NewPassword != req.ConfirmPassword {
			response.BadRequest(c, "New password and confirm password do not match")
			return
		}
		if len(req.NewPassword) < minPasswordLen {
			response.BadRequest(c, "Password must be at least 6 characters")
			return
		}
		hash, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			h.logger.Error("hash password failed", zap.Error(err))
			response.Internal(c, "Internal server error")
			return
		}
		user.Password = hash
	}

	if err := h.store.Update(c.Request.Context(), user); err != nil {
		if isUniqueViolation(err) {
			response.BadRequest(c, "Email already in use")
			return
		}
		h.logger.Error("update user failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.Created(c, gin.H{"message": "Profile updated successfully", "user": user.ToPublic()})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
