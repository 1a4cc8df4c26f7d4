package web

import (
	"net/http"

	"github.com/gofiber/fiber/v3"
)

// Transport is an http.RoundTripper that serves requests with a fiber app in
// process, without opening a listener.
type Transport struct {
	App *fiber.App
}

func (t Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.App.Test(req)
}

// NewHTTPClient returns an http.Client bound to app.
func NewHTTPClient(app *fiber.App) *http.Client {
	return &http.Client{Transport: Transport{App: app}}
}
