package ussd

import (
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func postCallback(t *testing.T, app *fiber.App, form url.Values) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestCallback(t *testing.T) {
	f := newFixture(t)
	app := fiber.New()
	app.Post("/ussd", NewHandler(f.interp).Callback)

	status, body := postCallback(t, app, url.Values{
		"sessionId":   {"session-1"},
		"serviceCode": {"*384#"},
		"phoneNumber": {testPhone},
		"text":        {""},
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.HasPrefix(body, "CON Welcome to Safiri Wallet") {
		t.Fatalf("expected main menu, got %q", body)
	}
}

func TestCallbackMissingPhone(t *testing.T) {
	f := newFixture(t)
	app := fiber.New()
	app.Post("/ussd", NewHandler(f.interp).Callback)

	status, body := postCallback(t, app, url.Values{
		"sessionId": {"session-1"},
		"text":      {"1"},
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 even for malformed callbacks, got %d", status)
	}
	if body != "END "+msgInvalidInput {
		t.Fatalf("expected terminal END, got %q", body)
	}
}
