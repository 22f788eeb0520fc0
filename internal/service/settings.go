// Package service implements the reconciliation workflows run against an
// Artifactory server: LDAP settings, repository batches and password rotation.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/document"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// LdapSettingsPath addresses the LDAP settings inside the system configuration.
var LdapSettingsPath = []string{"config", "security", "ldapSettings"}

const ldapSettingsKey = "ldapSettings"

// ErrConfigRejected is returned when the server refuses a configuration push.
var ErrConfigRejected = errors.New("system configuration rejected by server")

// ReconcileLdapSettings compares the LDAP settings subtree of doc with desired.
// When they are equal doc itself is returned with changed false. Otherwise a
// copy of doc with the subtree replaced wholesale is returned.
//
// desired may be the bare subtree or a mapping whose only key is
// "ldapSettings".
func ReconcileLdapSettings(doc, desired *document.Value) (*document.Value, bool, error) {
	if doc == nil || doc.Kind() != document.MappingKind {
		return nil, false, fmt.Errorf("reconcile ldap settings: configuration is not a mapping")
	}
	if desired == nil {
		return nil, false, fmt.Errorf("reconcile ldap settings: desired settings are empty")
	}
	desired = unwrapLdapSettings(desired)

	if current, ok := doc.Lookup(LdapSettingsPath...); ok && current.Equal(desired) {
		return doc, false, nil
	}
	updated, err := doc.WithReplaced(LdapSettingsPath, desired)
	if err != nil {
		return nil, false, fmt.Errorf("reconcile ldap settings: %w", err)
	}
	return updated, true, nil
}

func unwrapLdapSettings(desired *document.Value) *document.Value {
	if desired.Kind() == document.MappingKind && desired.Len() == 1 {
		if inner, ok := desired.Get(ldapSettingsKey); ok {
			return inner
		}
	}
	return desired
}

// SettingsResult reports what a settings run did.
type SettingsResult struct {
	Changed bool
	Pushed  bool
}

// SettingsOption configures a SettingsManager.
type SettingsOption func(*SettingsManager)

// WithDryRun makes Run log the difference instead of pushing it.
func WithDryRun(dryRun bool) SettingsOption {
	return func(sm *SettingsManager) { sm.dryRun = dryRun }
}

// SettingsManager fetches, reconciles and pushes the LDAP settings.
type SettingsManager struct {
	artifactory client.ArtifactoryClient
	dryRun      bool
}

// NewSettingsManager creates a SettingsManager using the given client.
func NewSettingsManager(artifactory client.ArtifactoryClient, opts ...SettingsOption) *SettingsManager {
	sm := &SettingsManager{artifactory: artifactory}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Run brings the server's LDAP settings in line with desired.
func (sm *SettingsManager) Run(ctx context.Context, desired *document.Value) (SettingsResult, error) {
	log := utils.WithComponent("ldap_settings")

	doc, err := sm.artifactory.GetSystemConfiguration(ctx)
	if err != nil {
		return SettingsResult{}, err
	}

	updated, changed, err := ReconcileLdapSettings(doc, desired)
	if err != nil {
		return SettingsResult{}, err
	}
	if !changed {
		log.Info("LDAP settings already up to date", zap.Bool(utils.FieldChanged, false))
		return SettingsResult{}, nil
	}

	if sm.dryRun {
		before, _ := doc.Lookup(LdapSettingsPath...)
		after, _ := updated.Lookup(LdapSettingsPath...)
		log.Info("LDAP settings differ, dry run so nothing is pushed",
			zap.Bool(utils.FieldChanged, true),
			zap.String("diff", cmp.Diff(before.Interface(), after.Interface())))
		return SettingsResult{Changed: true}, nil
	}

	pushed, err := sm.artifactory.UpdateSystemConfiguration(ctx, updated)
	if err != nil {
		return SettingsResult{Changed: true}, err
	}
	if !pushed {
		return SettingsResult{Changed: true}, ErrConfigRejected
	}
	log.Info("Successfully updated LDAP settings", zap.Bool(utils.FieldChanged, true))
	return SettingsResult{Changed: true, Pushed: true}, nil
}
