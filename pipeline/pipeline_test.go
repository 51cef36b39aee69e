package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmsync/config"
	"github.com/mensylisir/xmsync/connector"
	"github.com/mensylisir/xmsync/connector/fake"
	"github.com/mensylisir/xmsync/runtime"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func syncConfig(t *testing.T, host string, port int) *config.SyncConfig {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.html"), []byte("<html/>"), 0o644))
	cfg := &config.SyncConfig{
		SSHHost:     host,
		SSHPort:     port,
		SSHUser:     "deploy",
		SSHPassword: "fake_password",
		SourceDir:   src,
		TargetDir:   t.TempDir(),
		Debounce:    50 * time.Millisecond,
		WorkDir:     t.TempDir(),
	}
	require.NoError(t, config.SetDefaults(cfg))
	return cfg
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, Names(), SyncPipelineName)
	assert.Error(t, Register(SyncPipelineName, NewSyncPipeline))

	_, err := GetPipeline("deploy-everything", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered: sync")
	_, err = GetPipeline(SyncPipelineName, nil)
	assert.Error(t, err)
}

func TestSyncPipeline_Start(t *testing.T) {
	srv, err := fake.New("deploy", "fake_password")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	cfg := syncConfig(t, srv.Host(), srv.Port())
	rt, err := runtime.NewRuntime(cfg, nil, nil)
	require.NoError(t, err)
	var out bytes.Buffer
	rt.SetOutput(&out)

	p, err := GetPipeline(SyncPipelineName, rt)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background(), quietLog()))

	assert.FileExists(t, filepath.Join(cfg.TargetDir, "index.html"))
	assert.Contains(t, out.String(), "STEP")
	assert.Regexp(t, `post-hooks\s+SUCCESS`, out.String())
	assert.Nil(t, rt.Runner(), "session is closed after the run")
}

func TestSyncPipeline_ConnectFailure(t *testing.T) {
	cfg := syncConfig(t, "127.0.0.1", 22)
	dialer := connector.DialerFunc(func(c connector.Config) (connector.Connection, error) {
		return nil, &connector.ConnectionError{Addr: "127.0.0.1:22", Op: "dial", Err: io.ErrUnexpectedEOF}
	})
	rt, err := runtime.NewRuntime(cfg, nil, dialer)
	require.NoError(t, err)
	rt.SetOutput(io.Discard)

	p, err := NewSyncPipeline(rt)
	require.NoError(t, err)
	err = p.Start(context.Background(), quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestSyncPipeline_InitFailurePrintsSummary(t *testing.T) {
	srv, err := fake.New("deploy", "fake_password")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	cfg := syncConfig(t, srv.Host(), srv.Port())
	cfg.SourceDir = filepath.Join(t.TempDir(), "gone")
	rt, err := runtime.NewRuntime(cfg, nil, nil)
	require.NoError(t, err)
	var out bytes.Buffer
	rt.SetOutput(&out)

	p, err := GetPipeline(SyncPipelineName, rt)
	require.NoError(t, err)
	err = p.Start(context.Background(), quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize step build-archive")

	assert.Contains(t, out.String(), "STEP")
	assert.Regexp(t, `build-archive\s+FAILED`, out.String())
	assert.Regexp(t, `post-hooks\s+SKIPPED`, out.String())
	assert.Nil(t, rt.Runner(), "session is closed after the run")
}
