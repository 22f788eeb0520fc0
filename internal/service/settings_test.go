package service

import (
	"context"
	"errors"
	"testing"

	"github.com/anmicius0/artifactory-sync/internal/artifactorytest"
	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, s string) *document.Value {
	t.Helper()
	v, err := document.DecodeJSON([]byte(s))
	require.NoError(t, err)
	return v
}

const sampleConfig = `{"config": {
	"serverName": "art",
	"security": {
		"anonAccessEnabled": "false",
		"ldapSettings": {"ldapSetting": {"key": "corp", "ldapUrl": "ldap://b", "enabled": "true"}}
	},
	"localRepositories": {"localRepository": [{"key": "a"}, {"key": "b"}]}
}}`

func TestReconcileLdapSettings(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		desired     string
		wantChanged bool
	}{
		{
			name:        "Equal subtree",
			doc:         sampleConfig,
			desired:     `{"ldapSetting": {"key": "corp", "ldapUrl": "ldap://b", "enabled": "true"}}`,
			wantChanged: false,
		},
		{
			name:        "Equal subtree in another key order",
			doc:         sampleConfig,
			desired:     `{"ldapSetting": {"enabled": "true", "ldapUrl": "ldap://b", "key": "corp"}}`,
			wantChanged: false,
		},
		{
			name:        "Wrapped desired settings",
			doc:         sampleConfig,
			desired:     `{"ldapSettings": {"ldapSetting": {"key": "corp", "ldapUrl": "ldap://b", "enabled": "true"}}}`,
			wantChanged: false,
		},
		{
			name:        "Different value",
			doc:         sampleConfig,
			desired:     `{"ldapSetting": {"key": "corp", "ldapUrl": "ldap://a", "enabled": "true"}}`,
			wantChanged: true,
		},
		{
			name:        "Extra field",
			doc:         sampleConfig,
			desired:     `{"ldapSetting": {"key": "corp", "ldapUrl": "ldap://b", "enabled": "true", "search": {"searchFilter": "uid={0}"}}}`,
			wantChanged: true,
		},
		{
			name:        "Sequence order matters",
			doc:         `{"config": {"security": {"ldapSettings": {"ldapSetting": [{"key": "a"}, {"key": "b"}]}}}}`,
			desired:     `{"ldapSetting": [{"key": "b"}, {"key": "a"}]}`,
			wantChanged: true,
		},
		{
			name:        "Missing security section",
			doc:         `{"config": {"serverName": "art"}}`,
			desired:     `{"ldapSetting": {"key": "corp"}}`,
			wantChanged: true,
		},
		{
			name:        "Empty subtree replaced by settings",
			doc:         `{"config": {"security": {"ldapSettings": ""}}}`,
			desired:     `{"ldapSetting": {"key": "corp"}}`,
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustJSON(t, tt.doc)
			desired := mustJSON(t, tt.desired)
			before := doc.Clone()

			updated, changed, err := ReconcileLdapSettings(doc, desired)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.True(t, doc.Equal(before), "input document must not be modified")

			if !changed {
				assert.Same(t, doc, updated)
				return
			}

			got, ok := updated.Lookup(LdapSettingsPath...)
			require.True(t, ok)
			assert.True(t, got.Equal(unwrapLdapSettings(desired)))

			// restoring the original subtree must give back the input
			if original, ok := doc.Lookup(LdapSettingsPath...); ok {
				restored, err := updated.WithReplaced(LdapSettingsPath, original)
				require.NoError(t, err)
				assert.True(t, restored.Equal(doc))
			}

			again, changedAgain, err := ReconcileLdapSettings(updated, desired)
			require.NoError(t, err)
			assert.False(t, changedAgain)
			assert.Same(t, updated, again)
		})
	}
}

func TestReconcileLdapSettings_KeepsSurroundingOrder(t *testing.T) {
	doc := mustJSON(t, sampleConfig)
	updated, changed, err := ReconcileLdapSettings(doc, mustJSON(t, `{"ldapSetting": {"key": "other"}}`))
	require.NoError(t, err)
	require.True(t, changed)

	root, _ := updated.Get("config")
	assert.Equal(t, []string{"serverName", "security", "localRepositories"}, root.Keys())
	security, _ := root.Get("security")
	assert.Equal(t, []string{"anonAccessEnabled", "ldapSettings"}, security.Keys())
}

func TestReconcileLdapSettings_Errors(t *testing.T) {
	desired := mustJSON(t, `{"ldapSetting": {"key": "corp"}}`)

	t.Run("Document is not a mapping", func(t *testing.T) {
		_, _, err := ReconcileLdapSettings(document.String("config"), desired)
		assert.Error(t, err)
	})

	t.Run("Nil document", func(t *testing.T) {
		_, _, err := ReconcileLdapSettings(nil, desired)
		assert.Error(t, err)
	})

	t.Run("Nil desired", func(t *testing.T) {
		_, _, err := ReconcileLdapSettings(mustJSON(t, sampleConfig), nil)
		assert.Error(t, err)
	})

	t.Run("Intermediate element is not a mapping", func(t *testing.T) {
		_, _, err := ReconcileLdapSettings(mustJSON(t, `{"config": {"security": "disabled"}}`), desired)
		var pathErr *document.PathError
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, []string{"config", "security"}, pathErr.Path)
	})
}

func TestSettingsManager_Run(t *testing.T) {
	ctx := context.Background()
	current := mustJSON(t, sampleConfig)
	same := mustJSON(t, `{"ldapSetting": {"key": "corp", "ldapUrl": "ldap://b", "enabled": "true"}}`)
	different := mustJSON(t, `{"ldapSetting": {"key": "corp", "ldapUrl": "ldap://a", "enabled": "true"}}`)

	t.Run("Already up to date", func(t *testing.T) {
		mockClient := new(MockArtifactoryClient)
		mockClient.On("GetSystemConfiguration", mock.Anything).Return(current, nil)

		result, err := NewSettingsManager(mockClient).Run(ctx, same)

		assert.NoError(t, err)
		assert.Equal(t, SettingsResult{}, result)
		mockClient.AssertExpectations(t)
		mockClient.AssertNotCalled(t, "UpdateSystemConfiguration", mock.Anything, mock.Anything)
	})

	t.Run("Pushes changed settings", func(t *testing.T) {
		mockClient := new(MockArtifactoryClient)
		mockClient.On("GetSystemConfiguration", mock.Anything).Return(current, nil)
		mockClient.On("UpdateSystemConfiguration", mock.Anything, mock.MatchedBy(func(doc *document.Value) bool {
			got, ok := doc.Lookup(LdapSettingsPath...)
			return ok && got.Equal(different)
		})).Return(true, nil)

		result, err := NewSettingsManager(mockClient).Run(ctx, different)

		assert.NoError(t, err)
		assert.Equal(t, SettingsResult{Changed: true, Pushed: true}, result)
		mockClient.AssertExpectations(t)
	})

	t.Run("Push rejected", func(t *testing.T) {
		mockClient := new(MockArtifactoryClient)
		mockClient.On("GetSystemConfiguration", mock.Anything).Return(current, nil)
		mockClient.On("UpdateSystemConfiguration", mock.Anything, mock.Anything).Return(false, nil)

		result, err := NewSettingsManager(mockClient).Run(ctx, different)

		assert.ErrorIs(t, err, ErrConfigRejected)
		assert.Equal(t, SettingsResult{Changed: true}, result)
	})

	t.Run("Push transport failure", func(t *testing.T) {
		mockClient := new(MockArtifactoryClient)
		mockClient.On("GetSystemConfiguration", mock.Anything).Return(current, nil)
		mockClient.On("UpdateSystemConfiguration", mock.Anything, mock.Anything).Return(false, errors.New("connection reset"))

		_, err := NewSettingsManager(mockClient).Run(ctx, different)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrConfigRejected)
	})

	t.Run("Fetch failure", func(t *testing.T) {
		mockClient := new(MockArtifactoryClient)
		fetchErr := &client.ConfigFetchError{Message: "get system configuration", Err: &client.HTTPError{StatusCode: 500}}
		mockClient.On("GetSystemConfiguration", mock.Anything).Return(nil, fetchErr)

		_, err := NewSettingsManager(mockClient).Run(ctx, different)

		assert.ErrorIs(t, err, fetchErr)
		mockClient.AssertNotCalled(t, "UpdateSystemConfiguration", mock.Anything, mock.Anything)
	})

	t.Run("Dry run", func(t *testing.T) {
		mockClient := new(MockArtifactoryClient)
		mockClient.On("GetSystemConfiguration", mock.Anything).Return(current, nil)

		result, err := NewSettingsManager(mockClient, WithDryRun(true)).Run(ctx, different)

		assert.NoError(t, err)
		assert.Equal(t, SettingsResult{Changed: true}, result)
		mockClient.AssertNotCalled(t, "UpdateSystemConfiguration", mock.Anything, mock.Anything)
	})
}

func TestSettingsManager_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := artifactorytest.New("admin", "password")
	defer srv.Close()
	session := client.NewSession(srv.URL(), config.Credentials{Username: "admin", Password: "password"}, 0)
	defer session.Close()
	manager := NewSettingsManager(client.NewArtifactoryClient(session))

	desired := mustJSON(t, `{"ldapSettings": {"host": "ldap://a"}}`)

	result, err := manager.Run(ctx, desired)
	require.NoError(t, err)
	assert.Equal(t, SettingsResult{Changed: true, Pushed: true}, result)
	assert.Equal(t, 1, srv.ConfigPushes())

	pushed, err := document.DecodeXML([]byte(srv.ConfigXML()))
	require.NoError(t, err)
	subtree, ok := pushed.Lookup(LdapSettingsPath...)
	require.True(t, ok)
	assert.True(t, subtree.Equal(mustJSON(t, `{"host": "ldap://a"}`)))
	serverName, _ := pushed.Lookup("config", "serverName")
	assert.Equal(t, "art-test", serverName.Str())

	result, err = manager.Run(ctx, desired)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, 1, srv.ConfigPushes())
}
