package handlers

// auth.go handles the /api/auth routes: login and signup.

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/auth"
	"github.com/courtside/court-booking/internal/models"
)

// LoginRequest is the JSON body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the JSON body of POST /api/auth/signup.
type SignupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user. The password hash never leaves the server.
// Token is only present when the server has a signing secret configured.
type UserResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

var errEmailTaken = fiber.NewError(fiber.StatusConflict, "Email already exists")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userResponse(u models.User, tokens *auth.Tokens) (UserResponse, error) {
	resp := UserResponse{
		ID:       u.ID.String(),
		FullName: u.FullName,
		Email:    u.Email,
		Role:     string(u.Role),
	}
	if tokens != nil {
		token, err := tokens.Issue(resp.ID, resp.Role, resp.Email)
		if err != nil {
			return UserResponse{}, err
		}
		resp.Token = token
	}
	return resp, nil
}

// Login returns a handler for POST /api/auth/login.
// Unknown email and wrong password both answer 401 with the same message.
func Login(db *gorm.DB, tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		var user models.User
		err := db.WithContext(c.UserContext()).
			Where("email = ?", normalizeEmail(req.Email)).
			Take(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err != nil || !auth.CheckPassword(user.Password, req.Password) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid email or password",
			})
		}

		resp, err := userResponse(user, tokens)
		if err != nil {
			return err
		}
		return c.JSON(resp)
	}
}

// Signup returns a handler for POST /api/auth/signup (also mounted at /register).
// A taken email answers 409, whether caught by the lookup or by the unique index
// when two signups race.
func Signup(db *gorm.DB, tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignupRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		req.FullName = strings.TrimSpace(req.FullName)
		req.Email = normalizeEmail(req.Email)
		if req.FullName == "" || req.Email == "" || req.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "full_name, email and password are required",
			})
		}

		ctxDB := db.WithContext(c.UserContext())

		var existing int64
		if err := ctxDB.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errEmailTaken
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return err
		}
		user := models.User{
			FullName: req.FullName,
			Email:    req.Email,
			Password: hash,
			Role:     models.UserRoleUser,
		}
		if err := ctxDB.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errEmailTaken
			}
			return err
		}

		resp, err := userResponse(user, tokens)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}
