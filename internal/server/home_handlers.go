package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Homepage handles GET /
// @Summary Home page
// @Description Anonymous visitors get a signup prompt; members get their timeline. Pending flashes are returned and cleared.
// @Tags home
// @Produce json
// @Success 200 {object} object{flashes=[]middleware.FlashMessage,user=models.User,messages=[]models.Message,liked_message_ids=[]int}
// @Router / [get]
func (s *Server) Homepage(c *fiber.Ctx) error {
	flashes := middleware.PopFlashes(c)

	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(fiber.Map{
			"flashes": flashes,
			"signup":  "/signup",
		})
	}

	ctx := c.UserContext()
	user, err := s.userService.GetUser(ctx, userID)
	if err != nil {
		if models.IsKind(err, models.CodeNotFound) {
			// the account was deleted under a still-valid token
			s.sessions.ClearCookie(c)
			return c.JSON(fiber.Map{"flashes": flashes, "signup": "/signup"})
		}
		return respondServiceError(c, err)
	}

	messages, err := s.messageService.Timeline(ctx, userID, timelineLimit)
	if err != nil {
		return respondServiceError(c, err)
	}
	liked, err := s.messageService.LikedMessageIDs(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"flashes":           flashes,
		"user":              user,
		"messages":          messages,
		"liked_message_ids": liked,
	})
}

// Me handles GET /api/me
// @Summary Current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.UserProfile
// @Failure 401 {object} models.ErrorResponse
// @Router /api/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	profile, err := s.userService.Profile(c.UserContext(), userID, timelineLimit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// Timeline handles GET /api/timeline
// @Summary Timeline
// @Description Latest messages from the current user and everyone they follow
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Max messages" default(100)
// @Success 200 {array} models.Message
// @Failure 401 {object} models.ErrorResponse
// @Router /api/timeline [get]
func (s *Server) Timeline(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	p := parsePagination(c, timelineLimit)
	messages, err := s.messageService.Timeline(c.UserContext(), userID, p.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(messages)
}
