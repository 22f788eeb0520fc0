package client

import (
	"context"

	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/document"
)

// ArtifactoryClient defines the operations we perform against an Artifactory
// server. Use NewArtifactoryClient to obtain an implementation bound to a
// Session.
type ArtifactoryClient interface {
	GetSystemConfiguration(ctx context.Context) (*document.Value, error)
	UpdateSystemConfiguration(ctx context.Context, doc *document.Value) (bool, error)
	RepositoryExists(ctx context.Context, key string) (bool, error)
	CreateRepository(ctx context.Context, def config.RepositoryDefinition) error
	UpdateRepository(ctx context.Context, def config.RepositoryDefinition) error
	GetUser(ctx context.Context, username string) (UserProfile, error)
	UpdateUser(ctx context.Context, username string, profile UserProfile) error
	VerifyCredentials(ctx context.Context) (bool, error)
}

// ClientFactory builds a client authenticated as the given credentials.
// Credential rotation needs one client per secret.
type ClientFactory func(creds config.Credentials) ArtifactoryClient
