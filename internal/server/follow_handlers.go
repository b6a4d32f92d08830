package server

import "github.com/gofiber/fiber/v2"

// FollowUser handles POST /users/follow/:id
// @Summary Follow a user
// @Tags follows
// @Produce json
// @Param id path int true "User to follow"
// @Success 201 {object} object{following=[]models.UserSummary}
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/follow/{id} [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	followeeID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	ctx := c.UserContext()
	if err := s.followService.Follow(ctx, userID, followeeID); err != nil {
		return respondServiceError(c, err)
	}

	following, err := s.followService.ListFollowing(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"following": summaries(following)})
}

// StopFollowing handles POST /users/stop-following/:id
// @Summary Stop following a user
// @Tags follows
// @Produce json
// @Param id path int true "User to unfollow"
// @Success 200 {object} object{following=[]models.UserSummary}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/stop-following/{id} [post]
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	followeeID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	ctx := c.UserContext()
	if err := s.followService.StopFollowing(ctx, userID, followeeID); err != nil {
		return respondServiceError(c, err)
	}

	following, err := s.followService.ListFollowing(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"following": summaries(following)})
}
