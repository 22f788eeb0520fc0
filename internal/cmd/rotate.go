package cmd

import (
	"fmt"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/metrics"
	"github.com/anmicius0/artifactory-sync/internal/service"
	"github.com/spf13/cobra"
)

func newRotatePasswordCommand(a *app) *cobra.Command {
	var username, oldPassword, newPassword string

	cmd := &cobra.Command{
		Use:   "rotate-password",
		Short: "Change a user's password and confirm the new one works",
		Long: `Verifies the old password, updates the user's profile with the new
password and checks that the new password authenticates. When the old
password is rejected but the new one works, nothing is changed. Missing
passwords are prompted for when stdin is a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if oldPassword, err = a.secret(oldPassword, "Current password for %s:", username); err != nil {
				return err
			}
			if newPassword, err = a.secret(newPassword, "New password for %s:", username); err != nil {
				return err
			}

			tracker := service.NewOperationTracker(a.ops, service.OperationRotation, 1)
			tracker.SetProcessing()

			rotator := service.NewCredentialRotator(client.NewClientFactory(a.cfg.ArtifactoryURL, a.cfg.RequestTimeout))
			changed, err := rotator.Rotate(cmd.Context(), username, oldPassword, newPassword)
			switch {
			case err != nil:
				metrics.RecordPasswordRotation(metrics.RotationError)
				tracker.MarkFailed(username, err)
			case changed:
				metrics.RecordPasswordRotation(metrics.RotationRotated)
				tracker.Complete(fmt.Sprintf("Password of %s rotated", username))
			default:
				metrics.RecordPasswordRotation(metrics.RotationUnchanged)
				tracker.Complete(fmt.Sprintf("Password of %s already rotated", username))
			}
			return a.finish(cmd.Name())
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user whose password is rotated")
	cmd.Flags().StringVar(&oldPassword, "old-password", "", "current password")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "new password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// secret returns value, or prompts for it when it is empty and stdin is a
// terminal. An empty result is left to the rotator to reject.
func (a *app) secret(value, messageFmt, username string) (string, error) {
	if value != "" || !a.interactive() {
		return value, nil
	}
	secret, err := a.prompter.Password(fmt.Sprintf(messageFmt, username))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return secret, nil
}
