package middleware

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FlashCookie carries one-shot user-visible messages across a redirect.
const FlashCookie = "flash"

const flashLocalsKey = "pendingFlashes"

// FlashMessage is a user-visible notice with a display category (success, danger, info).
type FlashMessage struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Flash queues a message for the next page the client loads.
func Flash(c *fiber.Ctx, category, message string) {
	pending := pendingFlashes(c)
	pending = append(pending, FlashMessage{Category: category, Message: message})
	c.Locals(flashLocalsKey, pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// PopFlashes returns queued messages and clears them.
func PopFlashes(c *fiber.Ctx) []FlashMessage {
	msgs := pendingFlashes(c)
	if len(msgs) == 0 {
		return []FlashMessage{}
	}
	c.Locals(flashLocalsKey, []FlashMessage(nil))
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return msgs
}

func pendingFlashes(c *fiber.Ctx) []FlashMessage {
	if pending, ok := c.Locals(flashLocalsKey).([]FlashMessage); ok {
		return pending
	}
	raw := c.Cookies(FlashCookie)
	if raw == "" {
		return nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var msgs []FlashMessage
	if err := json.Unmarshal(decoded, &msgs); err != nil {
		return nil
	}
	return msgs
}
