package cmd

import (
	"log/slog"
	"net/http"

	"github.com/dukex/otomato/pkg/client"
)

// NewClient builds an API client. An empty token sends unauthenticated requests.
func NewClient(apiURL, token string, httpClient *http.Client, logger *slog.Logger) *client.Client {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithHTTPClient(httpClient),
	}

	if token != "" {
		opts = append(opts, client.WithAuth(token))
	}

	return client.New(apiURL, opts...)
}
