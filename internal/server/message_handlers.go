package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateMessage handles POST /messages/new
// @Summary Post a message
// @Tags messages
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Message body, at most 140 characters"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/new [post]
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID, _ := currentUserID(c)
	msg, err := s.messageService.Create(c.UserContext(), userID, req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ShowMessage handles GET /messages/:id
// @Summary Show a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	msg, err := s.messageService.Get(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(msg)
}

// DeleteMessage handles POST /messages/:id/delete
// @Summary Delete own message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/delete [post]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	if err := s.messageService.Delete(c.UserContext(), userID, id); err != nil {
		if models.IsKind(err, models.CodeUnauthorized) {
			middleware.Flash(c, "danger", middleware.AccessUnauthorized)
			return models.RespondWithError(c, fiber.StatusForbidden, err)
		}
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted"})
}

// ToggleLike handles POST /messages/:id/like
// @Summary Like or unlike a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{liked=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := currentUserID(c)

	liked, err := s.messageService.ToggleLike(c.UserContext(), userID, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}
