package common

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const AppName = "xmsync"

// GetTmpDir is the default local work directory.
func GetTmpDir() string {
	return filepath.Join(os.TempDir(), AppName)
}

// Log field keys.
const (
	TaskName    = "Task"
	StepName    = "Step"
	HostName    = "Host"
	CommandName = "Command"
	RunID       = "RunID"
)

const (
	// FileMode0755 represents rwxr-xr-x
	FileMode0755 fs.FileMode = 0755
	// FileMode0644 represents rw-r--r--
	FileMode0644 fs.FileMode = 0644
	// FileMode0600 represents rw-------
	FileMode0600 fs.FileMode = 0600
	// FileMode0700 represents rwx------
	FileMode0700 fs.FileMode = 0700
)

// Remote command templates. Arguments are quoted by the operation package
// before they reach these.
const (
	ChangeDirCmdTpl  = "cd %s"
	RemoveEntryTpl   = "sudo rm -rf %s"
	ExtractCmdTpl    = "sudo tar -xzf %s -C %s"
	ChownCmdTpl      = "sudo chown -R %s %s"
	RemoveArchiveTpl = "sudo rm %s"
)

const (
	DefaultSSHPort        = 22
	DefaultConnectTimeout = 30 * time.Second
	DefaultDebounce       = 500 * time.Millisecond
	DefaultChunkSize      = 1024
	DefaultArchiveName    = "source.tar.gz"
	DefaultConfigFile     = "config.json"
)

// Prompt terminators a POSIX shell prints when it is ready for input.
var PromptTerminators = []string{"$ ", "# "}

// OperationState is the outcome of a single step.
type OperationState int

const (
	StatePending OperationState = iota
	StateRunning
	StateSuccess
	StateFailed
	StateSkipped
)

func (s OperationState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateRunning:
		return "Running"
	case StateSuccess:
		return "Success"
	case StateFailed:
		return "Failed"
	case StateSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// Sync step names, in execution order. They double as keys of the
// error_policy config map.
const (
	StepChangeDirectory = "change-directory"
	StepPreHooks        = "pre-hooks"
	StepCleanTarget     = "clean-target"
	StepBuildArchive    = "build-archive"
	StepUploadArchive   = "upload-archive"
	StepExtractArchive  = "extract-archive"
	StepFixOwnership    = "fix-ownership"
	StepCleanup         = "cleanup"
	StepPostHooks       = "post-hooks"
)

var SyncSteps = []string{
	StepChangeDirectory,
	StepPreHooks,
	StepCleanTarget,
	StepBuildArchive,
	StepUploadArchive,
	StepExtractArchive,
	StepFixOwnership,
	StepCleanup,
	StepPostHooks,
}
