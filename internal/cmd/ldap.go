package cmd

import (
	"context"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/document"
	"github.com/anmicius0/artifactory-sync/internal/metrics"
	"github.com/anmicius0/artifactory-sync/internal/service"
	"github.com/spf13/cobra"
)

func newLdapCommand(a *app) *cobra.Command {
	var settingsFile string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ldap",
		Short: "Reconcile the LDAP settings of the system configuration",
		Long: `Fetches the system configuration, compares its ldapSettings section with
the given JSON or YAML file and pushes the configuration back when they differ.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.adminSession()
			if err != nil {
				return err
			}
			defer session.Close()

			a.syncLdapSettings(cmd.Context(), session, settingsFile, dryRun)
			return a.finish(cmd.Name())
		},
	}
	cmd.Flags().StringVarP(&settingsFile, "settings", "s", "", "desired LDAP settings file (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the difference without pushing it")
	_ = cmd.MarkFlagRequired("settings")
	return cmd
}

// syncLdapSettings runs one LDAP settings operation and records it in the
// operation log.
func (a *app) syncLdapSettings(ctx context.Context, session *client.Session, settingsFile string, dryRun bool) {
	tracker := service.NewOperationTracker(a.ops, service.OperationLdap, 1)
	tracker.SetProcessing()

	desired, err := document.DecodeFile(settingsFile)
	if err != nil {
		tracker.MarkFailed(settingsFile, err)
		return
	}

	manager := service.NewSettingsManager(client.NewArtifactoryClient(session), service.WithDryRun(dryRun))
	result, err := manager.Run(ctx, desired)
	metrics.SetLdapSettingsChanged(result.Changed)
	if err != nil {
		tracker.MarkFailed(service.OperationLdap, err)
		return
	}

	switch {
	case !result.Changed:
		tracker.Complete("LDAP settings already up to date")
	case result.Pushed:
		tracker.Complete("LDAP settings updated")
	default:
		tracker.Complete("LDAP settings differ (dry run, not pushed)")
	}
}
