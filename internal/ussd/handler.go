package ussd

import (
	"github.com/gofiber/fiber/v2"
)

// Handler exposes the gateway callback endpoint.
type Handler struct {
	interpreter *Interpreter
}

// NewHandler builds the USSD HTTP handler.
func NewHandler(interpreter *Interpreter) *Handler {
	return &Handler{interpreter: interpreter}
}

// Callback handles the form-encoded POST the gateway sends on every session
// round-trip. The body is always plain text; even malformed callbacks get a
// terminal END rather than an HTTP error, because the gateway renders
// whatever comes back.
func (h *Handler) Callback(c *fiber.Ctx) error {
	req := Request{
		SessionID:   c.FormValue("sessionId"),
		ServiceCode: c.FormValue("serviceCode"),
		Phone:       c.FormValue("phoneNumber"),
		Text:        c.FormValue("text"),
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)

	if req.Phone == "" {
		return c.SendString(end(msgInvalidInput).Render())
	}

	resp := h.interpreter.Handle(c.UserContext(), req)
	return c.SendString(resp.Render())
}
