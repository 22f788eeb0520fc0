package cmd

import (
	"context"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/metrics"
	"github.com/anmicius0/artifactory-sync/internal/service"
	"github.com/spf13/cobra"
)

func newReposCommand(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "Create or update the repositories defined in a directory",
		Long: `Loads every .json, .yaml, .yml and .toml repository definition in the
directory and applies them: local repositories first, then remote, then
virtual. Files without a key or a known rclass are skipped and reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.adminSession()
			if err != nil {
				return err
			}
			defer session.Close()

			a.syncRepositories(cmd.Context(), session, dir)
			return a.finish(cmd.Name())
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory of repository definitions")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

// syncRepositories loads and applies one repository batch and records it in
// the operation log.
func (a *app) syncRepositories(ctx context.Context, session *client.Session, dir string) {
	batch, err := service.LoadRepositoryBatch(dir)
	if err != nil {
		tracker := service.NewOperationTracker(a.ops, service.OperationRepositories, 0)
		tracker.MarkFailed(dir, err)
		return
	}

	tracker := service.NewOperationTracker(a.ops, service.OperationRepositories, batch.Len())
	tracker.SetProcessing()
	tracker.RecordSkipped(batch.Skipped)

	applier, err := service.NewRepositoryApplier(a.cfg.ArtifactoryURL, nil, session, a.cfg.RequestTimeout)
	if err != nil {
		tracker.MarkFailed(dir, err)
		return
	}
	manager := service.NewRepositoryBatchManager(applier)
	manager.OnResult = func(result service.ApplyResult) {
		tracker.RecordResult(result)
		metrics.RecordRepositoryApply(string(result.Class), result.Success)
	}
	manager.Apply(ctx, batch)
	tracker.Finalize()
}
