package jira

import (
	"context"
	"fmt"
	"net/http"

	jira "github.com/andygrunwald/go-jira"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Client wraps the Jira REST client the adapters share.
type Client struct {
	jira   *jira.Client
	logger *zap.Logger
}

// NewClient builds the client with basic auth, or with a bearer token
// when one is configured (Jira Cloud OAuth).
func NewClient(baseURL, username, apiToken, bearerToken string, logger *zap.Logger) (*Client, error) {
	var httpClient *http.Client
	if bearerToken != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearerToken})
		httpClient = oauth2.NewClient(context.Background(), src)
	} else {
		tp := jira.BasicAuthTransport{
			Username: username,
			Password: apiToken,
		}
		httpClient = tp.Client()
	}

	jc, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	return &Client{jira: jc, logger: logger}, nil
}

// rejected tells a validation rejection by Jira apart from a transport
// or server failure.
func rejected(resp *jira.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
