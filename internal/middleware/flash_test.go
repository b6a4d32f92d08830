package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlash_AccumulatesWithinRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		Flash(c, "success", "first")
		Flash(c, "info", "second")
		return c.JSON(fiber.Map{"flashes": PopFlashes(c)})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil))
	require.NoError(t, err)

	var body struct {
		Flashes []FlashMessage `json:"flashes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Flashes, 2)
	assert.Equal(t, "first", body.Flashes[0].Message)
	assert.Equal(t, "second", body.Flashes[1].Message)
}

func TestPopFlashes_EmptyAndCorrupt(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"count": len(PopFlashes(c))})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: FlashCookie, Value: "%%%not-base64"})
	resp, err := app.Test(req)
	require.NoError(t, err)

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body["count"])
}
