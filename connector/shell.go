package connector

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// ShellChannel is the login shell of a session running on a PTY. Reads return
// the merged terminal output; writes go to the shell's input.
type ShellChannel struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
}

var _ io.ReadWriteCloser = (*ShellChannel)(nil)

func openShell(client *ssh.Client) (*ShellChannel, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ssh session")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(ptyTerm, ptyRows, ptyCols, modes); err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "failed to request PTY")
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "failed to get stdin pipe for shell")
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "failed to get stdout pipe for shell")
	}
	// a PTY merges stderr into stdout; anything left on the separate stream
	// is dropped
	sess.Stderr = io.Discard

	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, errors.Wrap(err, "failed to start remote shell")
	}
	return &ShellChannel{sess: sess, stdin: stdin, stdout: stdout}, nil
}

func (s *ShellChannel) Read(p []byte) (int, error) { return s.stdout.Read(p) }

func (s *ShellChannel) Write(p []byte) (int, error) { return s.stdin.Write(p) }

// Close ends the shell session. The reader side sees io.EOF afterwards.
func (s *ShellChannel) Close() error {
	_ = s.stdin.Close()
	if err := s.sess.Close(); err != nil && !isClosedErr(err) {
		return err
	}
	return nil
}
