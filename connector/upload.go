package connector

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/logger"
)

// Upload copies localPath to remotePath over the transfer channel, calling fn
// after every chunk. ctx is checked between chunks. Failures after the
// remote file was created are returned as *TransferError.
func (c *connection) Upload(ctx context.Context, localPath, remotePath string, fn ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sftpClient, err := c.SFTP()
	if err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open local file %s", localPath)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat local file %s", localPath)
	}
	total := info.Size()

	dst, err := sftpClient.Create(remotePath)
	if err != nil {
		return &TransferError{Local: localPath, Remote: remotePath, Total: total,
			Err: errors.Wrap(err, "sftp: failed to create remote file")}
	}
	if err := dst.Chmod(common.FileMode0644); err != nil {
		logger.Log.Warnf("sftp: failed to chmod remote file %s: %v", remotePath, err)
	}

	pr := &progressReader{ctx: ctx, Reader: src, total: total, fn: fn}
	// io.Copy would hand the reader to sftp.File.ReadFrom, which batches
	// writes concurrently; a plain loop keeps one callback per chunk.
	_, copyErr := io.CopyBuffer(struct{ io.Writer }{dst}, pr, make([]byte, 32*1024))
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return &TransferError{Local: localPath, Remote: remotePath, Written: pr.current, Total: total, Err: copyErr}
	}
	logger.Log.DebugfHost(c.addr, "uploaded %s to %s (%d bytes)", localPath, remotePath, pr.current)
	return nil
}

type progressReader struct {
	io.Reader

	ctx     context.Context
	total   int64
	current int64
	fn      ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.current += int64(n)
		if pr.fn != nil {
			pr.fn(pr.current, pr.total)
		}
	}
	return n, err
}
