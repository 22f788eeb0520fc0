package service

import (
	"context"
	"io"
	"time"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"go.uber.org/zap"
)

// RepositoryApplier creates or updates single repositories.
type RepositoryApplier struct {
	artifactory client.ArtifactoryClient
	owned       io.Closer
}

// NewRepositoryApplier returns an applier that uses session, or a new session
// authenticated with creds when session is nil. At least one of them is
// required.
func NewRepositoryApplier(baseURL string, creds *config.Credentials, session *client.Session, timeout time.Duration) (*RepositoryApplier, error) {
	if session != nil {
		return &RepositoryApplier{artifactory: client.NewArtifactoryClient(session)}, nil
	}
	if creds == nil {
		return nil, &client.InvalidAPICallError{Reason: "either credentials or a session is required"}
	}
	session = client.NewSession(baseURL, *creds, timeout)
	return &RepositoryApplier{artifactory: client.NewArtifactoryClient(session), owned: session}, nil
}

// NewRepositoryApplierFromClient wraps an existing client.
func NewRepositoryApplierFromClient(artifactory client.ArtifactoryClient) *RepositoryApplier {
	return &RepositoryApplier{artifactory: artifactory}
}

// Close releases the session when the applier created it.
func (ra *RepositoryApplier) Close() error {
	if ra.owned == nil {
		return nil
	}
	return ra.owned.Close()
}

// CreateOrUpdate updates the repository named by def when it exists and
// creates it otherwise. The existing configuration is not compared; every
// call writes. It reports whether the write succeeded.
func (ra *RepositoryApplier) CreateOrUpdate(ctx context.Context, def config.RepositoryDefinition) (bool, error) {
	key := def.Key()
	if key == "" {
		return false, &client.InvalidAPICallError{Reason: "repository definition has no key", Err: config.ErrMissingKey}
	}
	log := utils.WithComponent("repository_applier")

	exists, err := ra.artifactory.RepositoryExists(ctx, key)
	if err != nil {
		return false, err
	}

	if exists {
		log.Debug("Repository exists, updating", zap.String(utils.FieldRepo, key))
		if err := ra.artifactory.UpdateRepository(ctx, def); err != nil {
			return false, err
		}
		log.Info("Successfully updated repository",
			zap.String(utils.FieldRepo, key),
			zap.String(utils.FieldClass, string(def.Class())))
		return true, nil
	}

	log.Debug("Repository not found, creating", zap.String(utils.FieldRepo, key))
	if err := ra.artifactory.CreateRepository(ctx, def); err != nil {
		return false, err
	}
	log.Info("Successfully created repository",
		zap.String(utils.FieldRepo, key),
		zap.String(utils.FieldClass, string(def.Class())))
	return true, nil
}

// CreateOrUpdateRepository applies one definition against baseURL using
// session, or a temporary session built from creds.
func CreateOrUpdateRepository(ctx context.Context, baseURL string, def config.RepositoryDefinition, creds *config.Credentials, session *client.Session) (bool, error) {
	applier, err := NewRepositoryApplier(baseURL, creds, session, 0)
	if err != nil {
		return false, err
	}
	defer applier.Close()
	return applier.CreateOrUpdate(ctx, def)
}
