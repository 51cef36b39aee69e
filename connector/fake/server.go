// Package fake runs an in-process SSH server for tests. It authenticates with
// a password or an authorized key, serves SFTP on the local filesystem and
// offers a small PTY shell that understands the commands a sync issues.
package fake

import (
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"
)

const (
	Localhost     = "127.0.0.1:0"
	DefaultPrompt = "fake@host:~$ "
)

// CommandHandler may take over a command line. Returning handled=false falls
// through to the built-in commands.
type CommandHandler func(line string) (output string, code int, handled bool)

// Server is a fake SSH endpoint.
type Server struct {
	User     string
	Password string

	listener      net.Listener
	server        *ssh.Server
	hostSigner    gossh.Signer
	authorizedKey ssh.PublicKey
	prompt        string
	banner        string
	sudoPassword  string
	handler       CommandHandler
	dir           string

	mu       sync.Mutex
	commands []string
	auths    []string
}

type Option func(*Server)

// WithPrompt replaces the shell prompt.
func WithPrompt(prompt string) Option { return func(s *Server) { s.prompt = prompt } }

// WithBanner prints text before the first prompt.
func WithBanner(banner string) Option { return func(s *Server) { s.banner = banner } }

// WithSudoPassword makes the first sudo of every shell ask for a password.
func WithSudoPassword(password string) Option {
	return func(s *Server) { s.sudoPassword = password }
}

// WithAuthorizedKey enables public key authentication for key.
func WithAuthorizedKey(key ssh.PublicKey) Option {
	return func(s *Server) { s.authorizedKey = key }
}

// WithHandler installs a handler that sees every command line first.
func WithHandler(h CommandHandler) Option { return func(s *Server) { s.handler = h } }

// WithDir sets the initial working directory of the shell.
func WithDir(dir string) Option { return func(s *Server) { s.dir = dir } }

// New starts a server listening on a random local port.
func New(user, password string, opts ...Option) (*Server, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate host key")
	}
	signer, err := gossh.NewSignerFromKey(priv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create host signer")
	}

	s := &Server{
		User:       user,
		Password:   password,
		hostSigner: signer,
		prompt:     DefaultPrompt,
	}
	for _, o := range opts {
		o(s)
	}

	listener, err := net.Listen("tcp", Localhost)
	if err != nil {
		return nil, errors.Wrapf(err, "can't listen to addr %s", Localhost)
	}
	s.listener = listener

	s.server = &ssh.Server{
		Handler: s.handleSession,
		PasswordHandler: func(ctx ssh.Context, pass string) bool {
			s.recordAuth("password")
			return ctx.User() == s.User && pass == s.Password
		},
		SubsystemHandlers: map[string]ssh.SubsystemHandler{
			"sftp": handleSFTP,
		},
	}
	if s.authorizedKey != nil {
		s.server.PublicKeyHandler = func(ctx ssh.Context, key ssh.PublicKey) bool {
			s.recordAuth("publickey")
			return ctx.User() == s.User && ssh.KeysEqual(key, s.authorizedKey)
		}
	}
	s.server.AddHostKey(signer)

	go func() { _ = s.server.Serve(listener) }()
	return s, nil
}

func handleSFTP(sess ssh.Session) {
	server, err := sftp.NewServer(sess)
	if err != nil {
		return
	}
	if err := server.Serve(); err == io.EOF {
		_ = server.Close()
	}
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string { return s.listener.Addr().String() }

func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr())
	p, _ := strconv.Atoi(port)
	return p
}

// HostKey is the public half of the server's host key.
func (s *Server) HostKey() gossh.PublicKey { return s.hostSigner.PublicKey() }

// Commands returns every command line the shell received, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Auths lists the authentication methods clients tried, in order.
func (s *Server) Auths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auths...)
}

func (s *Server) recordAuth(method string) {
	s.mu.Lock()
	s.auths = append(s.auths, method)
	s.mu.Unlock()
}

func (s *Server) record(line string) {
	s.mu.Lock()
	s.commands = append(s.commands, line)
	s.mu.Unlock()
}

func (s *Server) Close() error {
	return s.server.Close()
}
