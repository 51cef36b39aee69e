package connector

import (
	"context"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/logger"
)

type Config struct {
	Username      string
	Password      string
	Address       string
	Port          int
	PrivateKey    string
	KeyFile       string
	KeyPassphrase string
	AgentSocket   string
	Timeout       time.Duration
	Bastion       string
	BastionPort   int
	BastionUser   string

	HostKeyPolicy  string
	KnownHostsPath string
}

const socketEnvPrefix = "env:"

// Terminal geometry of the shell channel. The width is large so that long
// commands are echoed on one line.
const (
	ptyTerm = "xterm"
	ptyRows = 40
	ptyCols = 4096
)

var _ Connection = (*connection)(nil)

type connection struct {
	mu         sync.Mutex
	config     Config
	addr       string
	sshclient  *ssh.Client
	bastion    *ssh.Client
	sftpclient *sftp.Client
	shell      *ShellChannel
	closed     bool

	agentSocketConn net.Conn
}

// NewConnection dials and authenticates. Channels are opened lazily by SFTP
// and Shell. Every failure is a *ConnectionError.
func NewConnection(cfg Config) (Connection, error) {
	var err error
	cfg, err = validateConfig(cfg)
	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Op: "config", Err: err}
	}
	conn := &connection{config: cfg, addr: addr}

	authMethods, err := conn.authMethods()
	if err != nil {
		conn.cleanupAgentSocket()
		return nil, &ConnectionError{Addr: addr, Op: "auth", Err: err}
	}

	hostKeyCb, err := hostKeyCallback(cfg.HostKeyPolicy, cfg.KnownHostsPath)
	if err != nil {
		conn.cleanupAgentSocket()
		return nil, &ConnectionError{Addr: addr, Op: "host key", Err: err}
	}

	sshClientConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Timeout:         cfg.Timeout,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCb,
	}

	endpoint := addr
	if cfg.Bastion != "" {
		endpoint = net.JoinHostPort(cfg.Bastion, strconv.Itoa(cfg.BastionPort))
		bastionConfig := *sshClientConfig
		bastionConfig.User = cfg.BastionUser
		sshClientConfig = &bastionConfig
	}

	client, err := ssh.Dial("tcp", endpoint, sshClientConfig)
	if err != nil {
		conn.cleanupAgentSocket()
		return nil, &ConnectionError{Addr: endpoint, Op: "dial", Err: err}
	}

	if cfg.Bastion != "" {
		connToTarget, dialErr := client.Dial("tcp", addr)
		if dialErr != nil {
			_ = client.Close()
			conn.cleanupAgentSocket()
			return nil, &ConnectionError{Addr: addr, Op: "dial via bastion", Err: dialErr}
		}
		targetSSHConfig := &ssh.ClientConfig{
			User:            cfg.Username,
			Timeout:         cfg.Timeout,
			Auth:            authMethods,
			HostKeyCallback: hostKeyCb,
		}
		ncc, chans, reqs, clientConnErr := ssh.NewClientConn(connToTarget, addr, targetSSHConfig)
		if clientConnErr != nil {
			_ = connToTarget.Close()
			_ = client.Close()
			conn.cleanupAgentSocket()
			return nil, &ConnectionError{Addr: addr, Op: "handshake via bastion", Err: clientConnErr}
		}
		conn.bastion = client
		client = ssh.NewClient(ncc, chans, reqs)
	}

	conn.sshclient = client
	logger.Log.DebugfHost(addr, "ssh session established as %s", cfg.Username)
	return conn, nil
}

// authMethods offers public keys before the password.
func (c *connection) authMethods() ([]ssh.AuthMethod, error) {
	cfg := c.config
	methods := make([]ssh.AuthMethod, 0, 4)

	if len(cfg.PrivateKey) > 0 {
		signer, err := parsePrivateKey([]byte(cfg.PrivateKey), cfg.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(cfg.AgentSocket) > 0 {
		addr := cfg.AgentSocket
		if strings.HasPrefix(cfg.AgentSocket, socketEnvPrefix) {
			envName := strings.TrimPrefix(cfg.AgentSocket, socketEnvPrefix)
			if envAddr := os.Getenv(envName); len(envAddr) > 0 {
				addr = envAddr
			} else {
				logger.Log.Warnf("SSH Agent environment variable %s not found, using original socket string %s", envName, addr)
			}
		}

		var dialErr error
		c.agentSocketConn, dialErr = net.Dial("unix", addr)
		if dialErr != nil {
			return nil, errors.Wrapf(dialErr, "could not open SSH agent socket %q", addr)
		}
		methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(c.agentSocketConn).Signers))
	}

	if len(cfg.Password) > 0 {
		password := cfg.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	return methods, nil
}

func parsePrivateKey(pem []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
		if err != nil {
			return nil, errors.Wrap(err, "the given SSH key could not be decrypted")
		}
		return signer, nil
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, errors.New("the given SSH key is encrypted and no passphrase was configured")
		}
		return nil, errors.Wrap(err, "the given SSH key could not be parsed")
	}
	return signer, nil
}

func (c *connection) cleanupAgentSocket() {
	if c.agentSocketConn != nil {
		_ = c.agentSocketConn.Close()
		c.agentSocketConn = nil
	}
}

func validateConfig(cfg Config) (Config, error) {
	if len(cfg.Username) == 0 {
		return cfg, errors.New("no username specified for SSH connection")
	}
	if len(cfg.Address) == 0 {
		return cfg, errors.New("no address specified for SSH connection")
	}
	if len(cfg.Password) == 0 && len(cfg.PrivateKey) == 0 && len(cfg.KeyFile) == 0 && len(cfg.AgentSocket) == 0 {
		return cfg, errors.New("must specify at least one of password, private key, keyfile or agent socket")
	}

	if len(cfg.PrivateKey) == 0 && len(cfg.KeyFile) > 0 {
		content, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return cfg, errors.Wrapf(err, "failed to read keyfile %q", cfg.KeyFile)
		}
		cfg.PrivateKey = string(content)
	}

	if cfg.Port <= 0 {
		cfg.Port = common.DefaultSSHPort
	}
	if cfg.Bastion != "" {
		if cfg.BastionPort <= 0 {
			cfg.BastionPort = common.DefaultSSHPort
		}
		if cfg.BastionUser == "" {
			cfg.BastionUser = cfg.Username
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = common.DefaultConnectTimeout
	}
	if cfg.HostKeyPolicy == "" {
		cfg.HostKeyPolicy = HostKeyAcceptAny
	}
	return cfg, nil
}

func (c *connection) Addr() string { return c.addr }

func (c *connection) client() (*ssh.Client, error) {
	if c.closed || c.sshclient == nil {
		return nil, errors.New("ssh connection is closed or not initialized")
	}
	return c.sshclient, nil
}

// SFTP returns the transfer channel, opening it on first use.
func (c *connection) SFTP() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftpclient != nil {
		return c.sftpclient, nil
	}
	client, err := c.client()
	if err != nil {
		return nil, &ConnectionError{Addr: c.addr, Op: "sftp", Err: err}
	}
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, &ConnectionError{Addr: c.addr, Op: "sftp", Err: errors.Wrap(err, "failed to create SFTP client")}
	}
	c.sftpclient = sftpClient
	return sftpClient, nil
}

// Shell returns the interactive shell channel, opening it on first use.
func (c *connection) Shell() (io.ReadWriteCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shell != nil {
		return c.shell, nil
	}
	client, err := c.client()
	if err != nil {
		return nil, &ConnectionError{Addr: c.addr, Op: "shell", Err: err}
	}
	sh, err := openShell(client)
	if err != nil {
		return nil, &ConnectionError{Addr: c.addr, Op: "shell", Err: err}
	}
	c.shell = sh
	return sh, nil
}

func (c *connection) ReadDir(ctx context.Context, remotePath string) ([]os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sftpClient, err := c.SFTP()
	if err != nil {
		return nil, err
	}
	infos, err := sftpClient.ReadDir(remotePath)
	if err != nil {
		return nil, errors.Wrapf(err, "sftp: failed to list remote directory %s", remotePath)
	}
	return infos, nil
}

// Close tears down shell, SFTP, SSH and agent, in that order. Closing twice is
// a no-op.
func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var result *multierror.Error
	if c.shell != nil {
		if err := c.shell.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "shell close error"))
		}
		c.shell = nil
	}
	if c.sftpclient != nil {
		if err := c.sftpclient.Close(); err != nil && !isClosedErr(err) {
			result = multierror.Append(result, errors.Wrap(err, "sftp close error"))
		}
		c.sftpclient = nil
	}
	if c.sshclient != nil {
		if err := c.sshclient.Close(); err != nil && !isClosedErr(err) {
			result = multierror.Append(result, errors.Wrap(err, "ssh close error"))
		}
		c.sshclient = nil
	}
	if c.bastion != nil {
		if err := c.bastion.Close(); err != nil && !isClosedErr(err) {
			result = multierror.Append(result, errors.Wrap(err, "bastion close error"))
		}
		c.bastion = nil
	}
	if c.agentSocketConn != nil {
		if err := c.agentSocketConn.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "agent socket close error"))
		}
		c.agentSocketConn = nil
	}
	return result.ErrorOrNil()
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
