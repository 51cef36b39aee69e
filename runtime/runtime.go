package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/config"
	"github.com/mensylisir/xmsync/connector"
	"github.com/mensylisir/xmsync/logger"
	"github.com/mensylisir/xmsync/runner"
	"github.com/mensylisir/xmsync/shell"
)

var _ Runtime = (*SyncRuntime)(nil)

// SyncRuntime owns the session of one sync run: the connection, the shell
// driver on its PTY channel and the runner on top.
type SyncRuntime struct {
	cfg     *config.SyncConfig
	args    *CliArgs
	dialer  connector.Dialer
	runID   string
	log     *logrus.Entry
	workDir string
	out     io.Writer

	mu     sync.Mutex
	conn   connector.Connection
	driver *shell.Driver
	runner runner.Runner
	banner string
}

// NewRuntime prepares a run. Nothing is dialled until Connect.
func NewRuntime(cfg *config.SyncConfig, args *CliArgs, dialer connector.Dialer) (*SyncRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("runtime: config cannot be nil")
	}
	if args == nil {
		args = NewCliArgs()
	}
	if dialer == nil {
		dialer = connector.NewDialer()
	}
	logger.Log.AddSecrets(cfg.Secrets()...)

	runID := uuid.NewString()
	return &SyncRuntime{
		cfg:     cfg,
		args:    args,
		dialer:  dialer,
		runID:   runID,
		log:     logger.Log.WithRun(runID[:8]),
		workDir: cfg.WorkDir,
		out:     os.Stdout,
	}, nil
}

// ConnectorConfig maps the sync config onto the transport settings.
func ConnectorConfig(cfg *config.SyncConfig) connector.Config {
	return connector.Config{
		Username:       cfg.SSHUser,
		Password:       cfg.SSHPassword,
		Address:        cfg.SSHHost,
		Port:           cfg.SSHPort,
		KeyFile:        cfg.SSHKeyPath,
		KeyPassphrase:  cfg.SSHKeyPassphrase,
		AgentSocket:    cfg.SSHAgentSocket,
		Timeout:        cfg.ConnectTimeout,
		Bastion:        cfg.BastionHost,
		BastionPort:    cfg.BastionPort,
		BastionUser:    cfg.BastionUser,
		HostKeyPolicy:  cfg.HostKeyPolicy,
		KnownHostsPath: cfg.KnownHostsPath,
	}
}

// DriverOptions maps the sync config onto shell driver options.
func DriverOptions(cfg *config.SyncConfig, log *logrus.Entry) []shell.Option {
	opts := []shell.Option{
		shell.WithDebounce(cfg.Debounce),
		shell.WithCommandTimeout(cfg.CommandTimeout),
		shell.WithExitStatus(cfg.ExitStatusEnabled()),
		shell.WithLogger(log),
	}
	if cfg.SudoPassword != "" {
		opts = append(opts, shell.WithSudoPassword(cfg.SSHUser, cfg.SudoPassword))
	}
	return opts
}

// Connect dials the host, opens the shell channel and waits for its first
// prompt.
func (r *SyncRuntime) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return nil
	}

	conn, err := r.dialer.Dial(ConnectorConfig(r.cfg))
	if err != nil {
		return err
	}
	ch, err := conn.Shell()
	if err != nil {
		_ = conn.Close()
		return err
	}
	driver := shell.NewDriver(ch, DriverOptions(r.cfg, r.log)...)
	banner, err := driver.Sync(ctx)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "waiting for the first shell prompt")
	}

	r.conn = conn
	r.driver = driver
	r.runner = runner.NewCmdRunner(driver, r.log)
	r.banner = banner
	r.log.Infof("connected to %s", conn.Addr())
	return nil
}

// Banner is the login text printed before the first prompt.
func (r *SyncRuntime) Banner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.banner
}

func (r *SyncRuntime) Config() *config.SyncConfig { return r.cfg }
func (r *SyncRuntime) RunID() string              { return r.runID }
func (r *SyncRuntime) Logger() *logrus.Entry      { return r.log }
func (r *SyncRuntime) WorkDir() string            { return r.workDir }
func (r *SyncRuntime) Verbose() bool              { return r.args.Verbose }
func (r *SyncRuntime) Out() io.Writer             { return r.out }

// SetOutput redirects console narration, e.g. to a buffer in tests.
func (r *SyncRuntime) SetOutput(w io.Writer) {
	if w != nil {
		r.out = w
	}
}

func (r *SyncRuntime) Runner() runner.Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runner
}

func (r *SyncRuntime) Transfer() connector.Transfer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn
}

// LocalArchive is unique per run so concurrent runs never share a file.
func (r *SyncRuntime) LocalArchive() string {
	return filepath.Join(r.workDir, r.runID[:8]+"-"+r.cfg.ArchiveName)
}

func (r *SyncRuntime) RemoteArchive() string {
	return path.Join(r.cfg.TargetDir, r.cfg.ArchiveName)
}

// Close releases the session. It is safe to call more than once.
func (r *SyncRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result *multierror.Error
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		r.conn = nil
		r.driver = nil
		r.runner = nil
	}
	return result.ErrorOrNil()
}
