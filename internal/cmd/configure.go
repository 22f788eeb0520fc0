package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigureCommand(a *app) *cobra.Command {
	var settingsFile, dir string

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Reconcile LDAP settings and repositories in one run",
		Long: `Runs the ldap and repos steps with a shared session. Either step is
optional, but at least one must be requested.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if settingsFile == "" && dir == "" {
				return fmt.Errorf("nothing to configure: pass --ldap-settings and/or --repos-dir")
			}
			session, err := a.adminSession()
			if err != nil {
				return err
			}
			defer session.Close()

			if settingsFile != "" {
				a.syncLdapSettings(cmd.Context(), session, settingsFile, false)
			}
			if dir != "" {
				a.syncRepositories(cmd.Context(), session, dir)
			}
			return a.finish(cmd.Name())
		},
	}
	cmd.Flags().StringVar(&settingsFile, "ldap-settings", "", "desired LDAP settings file")
	cmd.Flags().StringVar(&dir, "repos-dir", "", "directory of repository definitions")
	return cmd
}
