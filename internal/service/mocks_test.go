package service

import (
	"context"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/document"
	"github.com/stretchr/testify/mock"
)

// MockArtifactoryClient is a mock implementation of client.ArtifactoryClient
type MockArtifactoryClient struct {
	mock.Mock
}

func (m *MockArtifactoryClient) GetSystemConfiguration(ctx context.Context) (*document.Value, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Value), args.Error(1)
}

func (m *MockArtifactoryClient) UpdateSystemConfiguration(ctx context.Context, doc *document.Value) (bool, error) {
	args := m.Called(ctx, doc)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtifactoryClient) RepositoryExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtifactoryClient) CreateRepository(ctx context.Context, def config.RepositoryDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockArtifactoryClient) UpdateRepository(ctx context.Context, def config.RepositoryDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockArtifactoryClient) GetUser(ctx context.Context, username string) (client.UserProfile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(client.UserProfile), args.Error(1)
}

func (m *MockArtifactoryClient) UpdateUser(ctx context.Context, username string, profile client.UserProfile) error {
	args := m.Called(ctx, username, profile)
	return args.Error(0)
}

func (m *MockArtifactoryClient) VerifyCredentials(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// mockFactory hands out one mock per password.
func mockFactory(byPassword map[string]*MockArtifactoryClient) client.ClientFactory {
	return func(creds config.Credentials) client.ArtifactoryClient {
		return byPassword[creds.Password]
	}
}
