package client

import (
	"context"
	"strings"
	"time"

	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"go.uber.org/zap"
	"resty.dev/v3"
)

const maxLoggedBodyBytes = 1000

// Session is an authenticated resty client bound to one server and one
// credential pair. Calls made through a Session are sequential; share it
// between goroutines only if they serialise their calls.
type Session struct {
	client   *resty.Client
	baseURL  string
	username string
}

// NewSession creates a Session with basic auth and JSON headers. The base URL
// is normalised first. A zero timeout falls back to config.DefaultRequestTimeout.
func NewSession(baseURL string, creds config.Credentials, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	baseURL = utils.NormalizeURL(baseURL)
	return &Session{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json").
			SetBasicAuth(creds.Username, creds.Password).
			SetTimeout(timeout),
		baseURL:  baseURL,
		username: creds.Username,
	}
}

// BaseURL returns the normalised server URL.
func (s *Session) BaseURL() string { return s.baseURL }

// Username returns the account the session authenticates as.
func (s *Session) Username() string { return s.username }

// Close releases the underlying transport.
func (s *Session) Close() error {
	return s.client.Close()
}

// DoReq performs an HTTP request with the given method, endpoint, body and
// extra headers. Responses with status >= 400 are logged and returned as
// *HTTPError; the request is never retried.
func (s *Session) DoReq(ctx context.Context, method, endpoint string, body any, headers map[string]string) (*resty.Response, error) {
	request := s.client.R().
		SetContext(ctx).
		SetHeaders(headers)
	if body != nil {
		request.SetBody(body)
	}

	utils.Logger.Debug("HTTP request start",
		zap.String(utils.FieldMethod, method),
		zap.String(utils.FieldEndpoint, endpoint))

	start := time.Now()
	response, err := request.Execute(method, endpoint)
	duration := time.Since(start)
	if err != nil {
		utils.Logger.Error("HTTP request failed",
			zap.String(utils.FieldMethod, method),
			zap.String(utils.FieldEndpoint, endpoint),
			zap.Error(err))
		return nil, err
	}

	// When status >= 400, log differently for 401/404 (used as probes) vs other errors
	if response.StatusCode() >= 400 {
		responseBody := strings.TrimSpace(response.String())
		if len(responseBody) > maxLoggedBodyBytes {
			responseBody = responseBody[:maxLoggedBodyBytes] + "…"
		}
		fields := []zap.Field{
			zap.String(utils.FieldMethod, method),
			zap.String(utils.FieldURL, response.Request.URL),
			zap.Int(utils.FieldStatusCode, response.StatusCode()),
			zap.String("body", responseBody),
			zap.Duration("duration", duration),
		}
		switch {
		case response.StatusCode() == 404 || response.StatusCode() == 401:
			// existence checks and credential probes expect these
			utils.Logger.Debug("API probe response", fields...)
		case response.StatusCode() >= 500:
			utils.Logger.Error("API error response (server)", fields...)
		default:
			utils.Logger.Warn("API error response (client)", fields...)
		}
		return nil, &HTTPError{StatusCode: response.StatusCode(), Body: responseBody}
	}

	utils.Logger.Debug("HTTP request completed",
		zap.String(utils.FieldMethod, method),
		zap.String(utils.FieldURL, response.Request.URL),
		zap.Int(utils.FieldStatusCode, response.StatusCode()),
		zap.Duration("duration", duration))

	return response, nil
}
