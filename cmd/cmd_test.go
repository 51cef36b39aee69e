package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/connector/fake"
	"github.com/mensylisir/xmsync/shell"
)

// execute runs the root command with fresh flag values.
func execute(t *testing.T, argv ...string) (string, error) {
	t.Helper()
	args.ConfigPath = common.DefaultConfigFile
	args.LogDir = t.TempDir()
	args.Verbose = false
	planFiles = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(argv)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, host string, port int) (path, src, target string) {
	t.Helper()
	src = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.html"), []byte("<html/>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "assets", "app.js"), []byte("x"), 0o644))
	target = t.TempDir()

	content := fmt.Sprintf(`ssh_host: %s
ssh_port: %d
ssh_user: deploy
ssh_password: fake_password
source_dir: %s
target_dir: %s
exclude_patterns: []
before_sync_commands: []
after_sync_commands: ["ls"]
debounce: 50ms
work_dir: %s
`, host, port, src, target, t.TempDir())
	path = filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, src, target
}

func TestPlanCommand(t *testing.T) {
	cfgPath, _, target := writeConfig(t, "10.0.0.5", 22)

	out, err := execute(t, "plan", "-c", cfgPath, "--files")
	require.NoError(t, err)
	assert.Contains(t, out, "deploy@10.0.0.5:"+target)
	assert.Contains(t, out, "sudo tar -xzf source.tar.gz -C "+target)
	assert.Contains(t, out, "sudo chown -R deploy "+target)
	assert.Regexp(t, `pre-hooks\s+\(nothing\)`, out)
	assert.Contains(t, out, "2 files in the archive")
	assert.Contains(t, out, "  assets/app.js")
}

func TestPlanCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "plan", "-c", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestSyncCommand(t *testing.T) {
	srv, err := fake.New("deploy", "fake_password")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	cfgPath, _, target := writeConfig(t, srv.Host(), srv.Port())

	out, err := execute(t, "sync", "-c", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "index.html"))
	assert.FileExists(t, filepath.Join(target, "assets", "app.js"))
	assert.Contains(t, out, "$ ls")
	assert.Regexp(t, `extract-archive\s+SUCCESS`, out)
}

func TestExecCommand(t *testing.T) {
	srv, err := fake.New("deploy", "fake_password")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	cfgPath, _, _ := writeConfig(t, srv.Host(), srv.Port())

	out, err := execute(t, "exec", "-c", cfgPath, "--", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	_, err = execute(t, "exec", "-c", cfgPath, "--", "false")
	require.Error(t, err)
	var failure *shell.RemoteCommandFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 1, failure.Result.ExitCode)
}
