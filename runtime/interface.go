package runtime

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/config"
	"github.com/mensylisir/xmsync/connector"
	"github.com/mensylisir/xmsync/runner"
)

// Runtime is the execution context a sync task and its steps share.
type Runtime interface {
	Config() *config.SyncConfig
	RunID() string
	Logger() *logrus.Entry

	// Runner executes commands on the remote shell.
	Runner() runner.Runner
	// Transfer is the SFTP side of the session.
	Transfer() connector.Transfer

	// WorkDir holds local scratch files such as the archive.
	WorkDir() string
	// LocalArchive is where this run builds its archive.
	LocalArchive() string
	// RemoteArchive is where the archive is uploaded to.
	RemoteArchive() string

	// Out receives console narration and hook output.
	Out() io.Writer
	Verbose() bool
}
