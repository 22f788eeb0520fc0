// Package cmd implements the artifactory-sync command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/metrics"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrRunFailed is returned when at least one operation of the run failed.
var ErrRunFailed = errors.New("one or more operations failed")

// app carries the state shared by all commands of one invocation.
type app struct {
	configFile string
	verbose    bool
	output     string

	cfg   *config.Config
	runID string
	ops   *config.OperationLog

	stdout      io.Writer
	prompter    passwordPrompter
	interactive func() bool
}

func newApp() *app {
	return &app{
		stdout:      os.Stdout,
		prompter:    surveyPrompter{},
		interactive: stdinIsTerminal,
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp())
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artifactory-sync",
		Short: "Synchronise LDAP settings, repositories and passwords with an Artifactory server",
		Long: `artifactory-sync brings an Artifactory server in line with local files:
the LDAP settings of the system configuration, a directory of repository
definitions (applied local, then remote, then virtual) and user passwords.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("url", "", "Artifactory base URL (env "+config.KeyURL+")")
	flags.StringP("user", "u", "", "admin username (env "+config.KeyUsername+")")
	flags.StringP("password", "p", "", "admin password (env "+config.KeyPassword+")")
	flags.Duration("timeout", config.DefaultRequestTimeout, "per-request timeout (env "+config.KeyRequestTimeout+")")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file (env "+config.KeyMetricsTextfile+")")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error (env "+config.KeyLogLevel+")")
	flags.String("log-file", config.DefaultLogFile, "JSON log file, empty to disable (env "+config.KeyLogFile+")")
	flags.StringVarP(&a.configFile, "config", "c", config.DefaultConfigFile, "dotenv configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.StringVarP(&a.output, "output", "o", OutputText, "summary format: text or json")

	rootCmd.AddCommand(
		newLdapCommand(a),
		newReposCommand(a),
		newConfigureCommand(a),
		newRotatePasswordCommand(a),
	)
	return rootCmd
}

// Execute runs the CLI and exits with status 1 on any failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	_ = utils.Sync()
	if err != nil {
		if !errors.Is(err, ErrRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// setup loads the configuration and initialises logging for every command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	if err := utils.Init(utils.LogOptions{Level: level, File: cfg.LogFile}); err != nil {
		return err
	}

	a.cfg = cfg
	a.ops = config.NewOperationLog()
	a.runID = uuid.New().String()
	utils.WithRunID(a.runID)

	utils.Logger.Debug("Configuration loaded",
		zap.String(utils.FieldURL, cfg.ArtifactoryURL),
		zap.String(utils.FieldUsername, cfg.Credentials.Username),
		zap.Duration("timeout", cfg.RequestTimeout),
		zap.String("command", cmd.Name()))
	return nil
}

// adminSession returns a session for the configured admin account, asking
// for the password when it is missing and stdin is a terminal.
func (a *app) adminSession() (*client.Session, error) {
	creds := a.cfg.Credentials
	if creds.Password == "" && creds.Username != "" && a.interactive() {
		secret, err := a.prompter.Password(fmt.Sprintf("Password for %s:", creds.Username))
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		creds.Password = secret
	}
	a.cfg.Credentials = creds
	if err := a.cfg.ValidateCredentials(); err != nil {
		return nil, err
	}
	return client.NewSession(a.cfg.ArtifactoryURL, creds, a.cfg.RequestTimeout), nil
}

// finish prints the run summary, writes metrics and maps the outcome to an
// error for the exit status.
func (a *app) finish(command string) error {
	failed := a.ops.Failed()
	metrics.MarkRunFinished(command, failed, time.Now())
	if err := metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		utils.Logger.Warn("Failed to write metrics", zap.Error(err))
	}
	if err := writeReport(a.stdout, a.output, newRunReport(a.runID, a.ops)); err != nil {
		return err
	}
	if failed {
		utils.Logger.Error("Run finished with failures", zap.String("command", command))
		return ErrRunFailed
	}
	utils.Logger.Info("Run finished", zap.String("command", command))
	return nil
}
