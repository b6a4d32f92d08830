package server

import (
	"fmt"
	"log/slog"

	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Signup handles POST /signup
// @Summary User signup
// @Description Register a new account and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string,image_url=string} true "Signup request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
		ImageURL string `json:"image_url" form:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateImageURL(req.ImageURL); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	ctx := c.UserContext()
	var user *models.User
	err := database.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		user, err = s.userService.WithTx(tx).Signup(ctx, service.SignupInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			ImageURL: req.ImageURL,
		})
		return err
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// LoginPage handles GET /login
// @Summary Login page
// @Description Returns pending flash messages for the login form
// @Tags auth
// @Produce json
// @Success 200 {object} object{flashes=[]middleware.FlashMessage}
// @Router /login [get]
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flashes": middleware.PopFlashes(c)})
}

// Login handles POST /login
// @Summary User login
// @Description Authenticate by username and password and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}
	if user == nil {
		middleware.Flash(c, "danger", "Invalid credentials.")
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials."))
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return respondServiceError(c, err)
	}
	middleware.Flash(c, "success", fmt.Sprintf("Hello, %s!", user.Username))

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles GET /logout
// @Summary Logout
// @Description Revokes the current session and redirects to the login page
// @Tags auth
// @Success 302
// @Router /logout [get]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.endSession(c)
	middleware.Flash(c, "success", "You have successfully logged out.")
	return c.Redirect("/login", fiber.StatusFound)
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) (string, error) {
	token, claims, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	s.sessions.SetCookie(c, token, claims)
	return token, nil
}

func (s *Server) endSession(c *fiber.Ctx) {
	if claims, ok := middleware.SessionFrom(c); ok {
		if err := s.sessions.Revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "Failed to revoke session",
				slog.String("error", err.Error()))
		}
	}
	s.sessions.ClearCookie(c)
}
