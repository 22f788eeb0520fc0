package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/document"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"go.uber.org/zap"
)

// artifactoryClient is an unexported concrete implementation of ArtifactoryClient.
type artifactoryClient struct {
	*Session
}

// NewArtifactoryClient returns an ArtifactoryClient that issues every call
// through the given Session.
func NewArtifactoryClient(session *Session) ArtifactoryClient {
	return &artifactoryClient{Session: session}
}

// NewClientFactory returns a ClientFactory creating a fresh Session per
// credential pair against baseURL.
func NewClientFactory(baseURL string, timeout time.Duration) ClientFactory {
	return func(creds config.Credentials) ArtifactoryClient {
		return NewArtifactoryClient(NewSession(baseURL, creds, timeout))
	}
}

func (c *artifactoryClient) GetSystemConfiguration(ctx context.Context) (*document.Value, error) {
	resp, err := c.DoReq(ctx, http.MethodGet, SystemConfigurationPath, nil, map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, &ConfigFetchError{Message: "get system configuration", Err: err}
	}
	doc, err := document.DecodeXML(resp.Bytes())
	if err != nil {
		return nil, &ConfigFetchError{Message: "get system configuration: failed to decode response", Err: err}
	}
	return doc, nil
}

// UpdateSystemConfiguration replaces the whole system configuration. A
// rejection by the server is reported as false with a nil error; errors are
// reserved for documents that cannot be encoded and requests that never got
// a response.
func (c *artifactoryClient) UpdateSystemConfiguration(ctx context.Context, doc *document.Value) (bool, error) {
	body, err := document.EncodeXML(doc)
	if err != nil {
		return false, fmt.Errorf("update system configuration: %w", err)
	}
	_, err = c.DoReq(ctx, http.MethodPost, SystemConfigurationPath, body, map[string]string{"Content-Type": "application/xml"})
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return false, nil
		}
		return false, fmt.Errorf("update system configuration: %w", err)
	}
	return true, nil
}

// RepositoryExists reports whether key resolves to a repository. Any HTTP
// error status counts as absent; only transport failures are errors.
func (c *artifactoryClient) RepositoryExists(ctx context.Context, key string) (bool, error) {
	_, err := c.DoReq(ctx, http.MethodGet, repositoryPath(key), nil, nil)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			utils.Logger.Debug("Repository not found",
				zap.String(utils.FieldRepo, key),
				zap.Int(utils.FieldStatusCode, httpErr.StatusCode))
			return false, nil
		}
		return false, fmt.Errorf("get repository '%s': %w", key, err)
	}
	return true, nil
}

func (c *artifactoryClient) CreateRepository(ctx context.Context, def config.RepositoryDefinition) error {
	if _, err := c.DoReq(ctx, http.MethodPut, repositoryPath(def.Key()), map[string]any(def), nil); err != nil {
		return fmt.Errorf("create repository '%s': %w", def.Key(), err)
	}
	return nil
}

func (c *artifactoryClient) UpdateRepository(ctx context.Context, def config.RepositoryDefinition) error {
	if _, err := c.DoReq(ctx, http.MethodPost, repositoryPath(def.Key()), map[string]any(def), nil); err != nil {
		return fmt.Errorf("update repository '%s': %w", def.Key(), err)
	}
	return nil
}

func (c *artifactoryClient) GetUser(ctx context.Context, username string) (UserProfile, error) {
	resp, err := c.DoReq(ctx, http.MethodGet, userPath(username), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get user '%s': %w", username, err)
	}
	var profile UserProfile
	if err := json.Unmarshal(resp.Bytes(), &profile); err != nil {
		return nil, fmt.Errorf("get user '%s': failed to unmarshal response: %w", username, err)
	}
	return profile, nil
}

func (c *artifactoryClient) UpdateUser(ctx context.Context, username string, profile UserProfile) error {
	if username == "" {
		return fmt.Errorf("update user: username is empty")
	}
	if _, err := c.DoReq(ctx, http.MethodPost, userPath(username), map[string]any(profile), nil); err != nil {
		return fmt.Errorf("update user '%s': %w", username, err)
	}
	return nil
}

// VerifyCredentials probes the encrypted password endpoint with the session's
// credentials: 200 means valid, 401 means invalid, anything else is an
// *UnknownRestError.
func (c *artifactoryClient) VerifyCredentials(ctx context.Context) (bool, error) {
	_, err := c.DoReq(ctx, http.MethodGet, EncryptedPasswordPath, nil, nil)
	if err == nil {
		return true, nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusUnauthorized {
			return false, nil
		}
		return false, &UnknownRestError{Operation: fmt.Sprintf("verify credentials of '%s'", c.Username()), Response: httpErr}
	}
	return false, fmt.Errorf("verify credentials of '%s': %w", c.Username(), err)
}

func repositoryPath(key string) string {
	return fmt.Sprintf(RepositoryPathFmt, url.PathEscape(key))
}

func userPath(username string) string {
	return fmt.Sprintf(UserPathFmt, url.PathEscape(username))
}
