package server

import (
	"context"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /users
// @Summary List or search users
// @Tags users
// @Produce json
// @Param q query string false "Username substring"
// @Param limit query int false "Max results" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{users=[]models.UserSummary}
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	users, err := s.userService.SearchUsers(c.UserContext(), c.Query("q"), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"users": summaries(users)})
}

// ShowUser handles GET /users/:id
// @Summary User profile
// @Description Profile with latest messages and counters. is_following and is_followed_by are relative to the current user.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{profile=service.UserProfile,is_following=bool,is_followed_by=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) ShowUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	profile, err := s.userService.Profile(ctx, id, timelineLimit)
	if err != nil {
		return respondServiceError(c, err)
	}

	resp := fiber.Map{
		"profile":        profile,
		"is_following":   false,
		"is_followed_by": false,
	}

	if viewerID, ok := currentUserID(c); ok {
		viewer, err := s.userService.GetUser(ctx, viewerID)
		if err != nil && !models.IsKind(err, models.CodeNotFound) {
			return respondServiceError(c, err)
		}
		following, err := s.followService.IsFollowing(ctx, viewer, profile.User)
		if err != nil {
			return respondServiceError(c, err)
		}
		followedBy, err := s.followService.IsFollowedBy(ctx, viewer, profile.User)
		if err != nil {
			return respondServiceError(c, err)
		}
		resp["is_following"] = following
		resp["is_followed_by"] = followedBy
	}

	return c.JSON(resp)
}

// ShowFollowing handles GET /users/:id/following
// @Summary Users a user follows
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user=models.UserSummary,users=[]models.UserSummary}
// @Success 302 "Redirect home when logged out"
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/following [get]
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	return s.showFollowList(c, s.followService.ListFollowing)
}

// ShowFollowers handles GET /users/:id/followers
// @Summary Followers of a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user=models.UserSummary,users=[]models.UserSummary}
// @Success 302 "Redirect home when logged out"
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/followers [get]
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	return s.showFollowList(c, s.followService.ListFollowers)
}

func (s *Server) showFollowList(c *fiber.Ctx, list func(ctx context.Context, userID uint) ([]models.User, error)) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	user, err := s.userService.GetUser(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	users, err := list(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":  user.Summary(),
		"users": summaries(users),
	})
}

// ShowLikes handles GET /users/:id/likes
// @Summary Messages a user liked
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user=models.UserSummary,messages=[]models.Message}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/likes [get]
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	user, err := s.userService.GetUser(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	messages, err := s.messageService.ListLikes(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":     user.Summary(),
		"messages": messages,
	})
}

// UpdateProfile handles POST /users/profile
// @Summary Update own profile
// @Description Requires the current password. Empty username or email keeps the current value.
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{password=string,username=string,email=string,image_url=string,header_image_url=string,bio=string,location=string} true "Profile update"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/profile [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)

	var req struct {
		Password       string `json:"password" form:"password"`
		Username       string `json:"username" form:"username"`
		Email          string `json:"email" form:"email"`
		ImageURL       string `json:"image_url" form:"image_url"`
		HeaderImageURL string `json:"header_image_url" form:"header_image_url"`
		Bio            string `json:"bio" form:"bio"`
		Location       string `json:"location" form:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), userID, req.Password, service.ProfileUpdate{
		Username:       req.Username,
		Email:          req.Email,
		ImageURL:       req.ImageURL,
		HeaderImageURL: req.HeaderImageURL,
		Bio:            req.Bio,
		Location:       req.Location,
	})
	if err != nil {
		if models.IsKind(err, models.CodeUnauthorized) {
			middleware.Flash(c, "danger", "Wrong password, please try again.")
		}
		return respondServiceError(c, err)
	}

	return c.JSON(user)
}

// DeleteUser handles POST /users/delete
// @Summary Delete own account
// @Description Deletes the account with its messages, likes and follow edges, then ends the session.
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /users/delete [post]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	if err := s.userService.DeleteUser(c.UserContext(), userID); err != nil {
		return respondServiceError(c, err)
	}
	s.endSession(c)
	return c.JSON(fiber.Map{"message": "Account deleted"})
}
