package connector

import (
	"context"
	"io"
	"os"

	"github.com/pkg/sftp"
)

// ProgressFunc is called after every chunk an upload writes.
type ProgressFunc func(written, total int64)

// Transfer is the SFTP side of a session.
type Transfer interface {
	SFTP() (*sftp.Client, error)
	Upload(ctx context.Context, localPath, remotePath string, fn ProgressFunc) error
	ReadDir(ctx context.Context, remotePath string) ([]os.FileInfo, error)
}

// Connection is one authenticated SSH session that owns a single interactive
// shell channel and a single transfer channel.
type Connection interface {
	Transfer
	// Shell returns the PTY shell of this connection, opening it on first use.
	Shell() (io.ReadWriteCloser, error)
	Addr() string
	Close() error
}
