package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"go.uber.org/zap"
)

// CredentialRotator changes a user's password through the admin API.
type CredentialRotator struct {
	clients client.ClientFactory
}

// NewCredentialRotator creates a rotator that obtains one client per secret
// from clients.
func NewCredentialRotator(clients client.ClientFactory) *CredentialRotator {
	return &CredentialRotator{clients: clients}
}

// Rotate replaces oldSecret with newSecret for username and reports whether
// an update was issued. When oldSecret is rejected but newSecret is accepted
// the rotation already happened and false is returned.
func (cr *CredentialRotator) Rotate(ctx context.Context, username, oldSecret, newSecret string) (bool, error) {
	switch {
	case username == "":
		return false, &client.InvalidAPICallError{Reason: "username is required"}
	case oldSecret == "" || newSecret == "":
		return false, &client.InvalidAPICallError{Reason: "old and new passwords are required"}
	case oldSecret == newSecret:
		return false, &client.InvalidAPICallError{Reason: "new password must differ from the old one"}
	}
	log := utils.WithComponent("credential_rotator").With(zap.String(utils.FieldUsername, username))

	oldClient := cr.clients(config.Credentials{Username: username, Password: oldSecret})
	defer closeClient(oldClient)
	newClient := cr.clients(config.Credentials{Username: username, Password: newSecret})
	defer closeClient(newClient)

	oldValid, err := oldClient.VerifyCredentials(ctx)
	if err != nil {
		return false, err
	}
	if !oldValid {
		newValid, err := newClient.VerifyCredentials(ctx)
		if err != nil {
			return false, err
		}
		if !newValid {
			return false, &client.InvalidCredentialsError{Username: username}
		}
		log.Info("New password already active, nothing to rotate")
		return false, nil
	}

	profile, err := oldClient.GetUser(ctx, username)
	if err != nil {
		return false, restError(fmt.Sprintf("get user '%s'", username), err)
	}
	update := profile.WithoutServerFields()
	update["password"] = newSecret
	if err := oldClient.UpdateUser(ctx, username, update); err != nil {
		return false, restError(fmt.Sprintf("update user '%s'", username), err)
	}
	log.Debug("Password update accepted, confirming")

	confirmed, err := newClient.VerifyCredentials(ctx)
	if err != nil {
		return false, err
	}
	if !confirmed {
		// no retry: the caller decides how to recover
		return false, &client.UnknownRestError{
			Operation: fmt.Sprintf("confirm new password of '%s'", username),
			Response:  &client.HTTPError{StatusCode: http.StatusUnauthorized, Body: "new password rejected after update"},
		}
	}

	log.Info("Successfully rotated password")
	return true, nil
}

// restError turns an HTTP error status into an *UnknownRestError and wraps
// anything else.
func restError(operation string, err error) error {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return &client.UnknownRestError{Operation: operation, Response: httpErr}
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func closeClient(c client.ArtifactoryClient) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}
