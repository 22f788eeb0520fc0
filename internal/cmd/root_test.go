package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/anmicius0/artifactory-sync/internal/artifactorytest"
	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	utils.Logger = zap.NewNop()

	os.Exit(m.Run())
}

type fakePrompter struct {
	answers []string
	asked   []string
}

func (f *fakePrompter) Password(message string) (string, error) {
	f.asked = append(f.asked, message)
	if len(f.answers) == 0 {
		return "", errors.New("no answer")
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer, nil
}

type harness struct {
	srv      *artifactorytest.Server
	dir      string
	prompter *fakePrompter
	tty      bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, key := range []string{config.KeyURL, config.KeyUsername, config.KeyPassword, config.KeyMetricsTextfile, config.KeyLogFile} {
		t.Setenv(key, "")
	}
	srv := artifactorytest.New("admin", "password")
	t.Cleanup(srv.Close)
	return &harness{srv: srv, dir: t.TempDir(), prompter: &fakePrompter{}}
}

// run executes the CLI against the fake server and returns its summary.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp()
	a.stdout = &out
	a.prompter = h.prompter
	a.interactive = func() bool { return h.tty }

	root := newRootCommand(a)
	root.SetArgs(append([]string{
		"--url", h.srv.URL(),
		"--config", filepath.Join(h.dir, "missing.env"),
		"--log-file=",
		"--log-level", "error",
	}, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

var admin = []string{"--user", "admin", "--password", "password"}

func TestLdapCommand(t *testing.T) {
	h := newHarness(t)
	settings := h.write(t, "ldap.json", `{"ldapSettings": {"host": "ldap://a"}}`)
	metricsFile := filepath.Join(h.dir, "sync.prom")

	out, err := h.run(t, append(admin, "ldap", "--settings", settings, "--metrics-textfile", metricsFile)...)
	require.NoError(t, err)
	assert.Contains(t, out, "[completed] ldap: LDAP settings updated")
	assert.Equal(t, 1, h.srv.ConfigPushes())
	assert.Contains(t, h.srv.ConfigXML(), "<host>ldap://a</host>")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "artifactory_sync_ldap_settings_changed 1")

	out, err = h.run(t, append(admin, "ldap", "--settings", settings)...)
	require.NoError(t, err)
	assert.Contains(t, out, "already up to date")
	assert.Equal(t, 1, h.srv.ConfigPushes())
}

func TestLdapCommand_DryRun(t *testing.T) {
	h := newHarness(t)
	settings := h.write(t, "ldap.yaml", "ldapSettings:\n  host: ldap://a\n")

	out, err := h.run(t, append(admin, "ldap", "--settings", settings, "--dry-run")...)
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Equal(t, 0, h.srv.ConfigPushes())
}

func TestLdapCommand_Failures(t *testing.T) {
	t.Run("Rejected push", func(t *testing.T) {
		h := newHarness(t)
		h.srv.RejectConfig = true
		settings := h.write(t, "ldap.json", `{"host": "ldap://a"}`)

		out, err := h.run(t, append(admin, "ldap", "--settings", settings)...)
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out, "[failed] ldap")
	})

	t.Run("Unreadable settings file", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run(t, append(admin, "ldap", "--settings", filepath.Join(h.dir, "missing.json"))...)
		assert.ErrorIs(t, err, ErrRunFailed)
	})

	t.Run("Settings flag is required", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run(t, append(admin, "ldap")...)
		assert.ErrorContains(t, err, "settings")
	})

	t.Run("Missing credentials", func(t *testing.T) {
		h := newHarness(t)
		settings := h.write(t, "ldap.json", `{"host": "ldap://a"}`)
		_, err := h.run(t, "ldap", "--settings", settings)
		assert.ErrorContains(t, err, "validate credentials")
		assert.NotErrorIs(t, err, ErrRunFailed)
	})
}

func TestAdminPasswordPrompt(t *testing.T) {
	h := newHarness(t)
	h.tty = true
	h.prompter.answers = []string{"password"}
	settings := h.write(t, "ldap.json", `{"host": "ldap://a"}`)

	_, err := h.run(t, "--user", "admin", "ldap", "--settings", settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"Password for admin:"}, h.prompter.asked)
}

func TestReposCommand(t *testing.T) {
	h := newHarness(t)
	h.write(t, "repos/a-virtual.json", `{"key": "npm", "rclass": "virtual", "repositories": ["npm-local", "npm-remote"]}`)
	h.write(t, "repos/b-remote.yaml", "key: npm-remote\nrclass: remote\nurl: https://registry.npmjs.org\n")
	h.write(t, "repos/c-local.toml", "key = \"npm-local\"\nrclass = \"local\"\n")

	out, err := h.run(t, append(admin, "repos", "--dir", filepath.Join(h.dir, "repos"))...)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully applied all 3 repositories")
	for _, key := range []string{"npm", "npm-remote", "npm-local"} {
		_, ok := h.srv.Repository(key)
		assert.True(t, ok, key)
	}
}

func TestReposCommand_Failures(t *testing.T) {
	t.Run("Skipped file fails the run", func(t *testing.T) {
		h := newHarness(t)
		h.write(t, "repos/local.json", `{"key": "libs", "rclass": "local"}`)
		h.write(t, "repos/orphan.json", `{"key": "orphan"}`)

		out, err := h.run(t, append(admin, "repos", "--dir", filepath.Join(h.dir, "repos"))...)
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out, "orphan.json")
		_, ok := h.srv.Repository("libs")
		assert.True(t, ok, "valid definitions are still applied")
	})

	t.Run("Server error on one repository", func(t *testing.T) {
		h := newHarness(t)
		h.srv.FailRepositories["broken"] = true
		h.write(t, "repos/broken.json", `{"key": "broken", "rclass": "local"}`)
		h.write(t, "repos/fine.json", `{"key": "fine", "rclass": "local"}`)

		out, err := h.run(t, append(admin, "repos", "--dir", filepath.Join(h.dir, "repos"))...)
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out, "Applied 1 of 2 repositories with 1 errors")
	})

	t.Run("Missing directory", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run(t, append(admin, "repos", "--dir", filepath.Join(h.dir, "nope"))...)
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out, "[failed] repositories")
	})
}

func TestConfigureCommand(t *testing.T) {
	h := newHarness(t)
	settings := h.write(t, "ldap.json", `{"host": "ldap://a"}`)
	h.write(t, "repos/local.json", `{"key": "libs", "rclass": "local"}`)

	out, err := h.run(t, append(admin, "--output", "json", "configure",
		"--ldap-settings", settings, "--repos-dir", filepath.Join(h.dir, "repos"))...)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["success"])
	assert.NotEmpty(t, report["runId"])
	ops, ok := report["operations"].([]any)
	require.True(t, ok)
	require.Len(t, ops, 2)
	assert.Equal(t, "ldap", ops[0].(map[string]any)["name"])
	assert.Equal(t, "repositories", ops[1].(map[string]any)["name"])

	_, err = h.run(t, append(admin, "configure")...)
	assert.ErrorContains(t, err, "nothing to configure")
}

func TestRotatePasswordCommand(t *testing.T) {
	t.Run("Flags", func(t *testing.T) {
		h := newHarness(t)
		h.srv.AddUser("deployer", "old-secret")

		out, err := h.run(t, "rotate-password", "--username", "deployer", "--old-password", "old-secret", "--new-password", "new-secret")
		require.NoError(t, err)
		assert.Contains(t, out, "Password of deployer rotated")
		assert.Equal(t, "new-secret", h.srv.Password("deployer"))

		out, err = h.run(t, "rotate-password", "--username", "deployer", "--old-password", "old-secret", "--new-password", "new-secret")
		require.NoError(t, err)
		assert.Contains(t, out, "already rotated")
	})

	t.Run("Prompted secrets", func(t *testing.T) {
		h := newHarness(t)
		h.srv.AddUser("deployer", "old-secret")
		h.tty = true
		h.prompter.answers = []string{"old-secret", "new-secret"}

		_, err := h.run(t, "rotate-password", "--username", "deployer")
		require.NoError(t, err)
		assert.Equal(t, []string{"Current password for deployer:", "New password for deployer:"}, h.prompter.asked)
		assert.Equal(t, "new-secret", h.srv.Password("deployer"))
	})

	t.Run("No terminal and no secrets", func(t *testing.T) {
		h := newHarness(t)
		out, err := h.run(t, "rotate-password", "--username", "deployer")
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out, "invalid API call")
		assert.Empty(t, h.prompter.asked)
	})

	t.Run("Wrong passwords", func(t *testing.T) {
		h := newHarness(t)
		h.srv.AddUser("deployer", "old-secret")
		out, err := h.run(t, "rotate-password", "--username", "deployer", "--old-password", "a", "--new-password", "b")
		assert.ErrorIs(t, err, ErrRunFailed)
		assert.Contains(t, out, "neither the old nor the new password is valid")
	})
}

func TestConfigurationErrors(t *testing.T) {
	h := newHarness(t)
	root := newRootCommand(newApp())
	root.SetArgs([]string{"--config", filepath.Join(h.dir, "missing.env"), "--log-file=", "repos", "--dir", h.dir})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "load configuration")
}
