package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
)

// Log is the global logger instance of XMLog.
var Log *XMLog

// XMLog wraps *logrus.Logger with run-scoped helpers and secret redaction.
type XMLog struct {
	*logrus.Logger
	redact *RedactHook
}

var defaultFieldsOrder = []string{
	common.RunID, common.TaskName, common.StepName, common.HostName, common.CommandName,
}

func init() {
	Log = newConsoleLog(os.Stdout, false, logrus.InfoLevel)
}

func displayMode(verbose bool) LevelNameDisplayMode {
	if verbose {
		return ShowAll
	}
	return ShowAboveWarn
}

func newConsoleLog(out io.Writer, verbose bool, level logrus.Level) *XMLog {
	l := logrus.New()
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetOutput(out)
	l.SetFormatter(&Formatter{
		TimestampFormat:        "15:04:05",
		DisplayLevelName:       displayMode(verbose),
		DisableCaller:          true,
		FieldsDisplayWithOrder: defaultFieldsOrder,
	})
	redact := NewRedactHook()
	l.AddHook(redact)
	return &XMLog{Logger: l, redact: redact}
}

// InitGlobalLogger replaces Log. With an empty outputPath the logger writes
// to the console; otherwise entries go to a daily-rotated xmsync.log under
// outputPath and the console stays quiet.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	xl, err := NewXMLog(outputPath, verbose, defaultLevel)
	if err != nil {
		return err
	}
	if Log != nil && Log.redact != nil {
		xl.AddSecrets(Log.redact.Secrets()...)
	}
	Log = xl
	return nil
}

// NewXMLog builds a logger without touching the global one.
func NewXMLog(outputPath string, verbose bool, defaultLevel logrus.Level) (*XMLog, error) {
	if outputPath == "" {
		return newConsoleLog(os.Stdout, verbose, defaultLevel), nil
	}

	if err := os.MkdirAll(outputPath, common.FileMode0755); err != nil {
		return nil, fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
	}
	logFilePath := filepath.Join(outputPath, common.AppName+".log")

	writer, err := rotatelogs.New(
		logFilePath+".%Y%m%d",
		rotatelogs.WithLinkName(logFilePath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
	}

	l := logrus.New()
	level := defaultLevel
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetReportCaller(true)

	fileFormatter := &Formatter{
		TimestampFormat:        "2006-01-02 15:04:05.000 MST",
		NoColors:               true,
		DisplayLevelName:       ShowAll,
		FieldsDisplayWithOrder: defaultFieldsOrder,
		CustomCallerFormatter: func(frame *runtime.Frame) string {
			return fmt.Sprintf("[%s:%d]", filepath.Base(frame.File), frame.Line)
		},
	}
	l.SetFormatter(fileFormatter)

	// redaction has to run before the file hook formats the entry
	redact := NewRedactHook()
	l.AddHook(redact)

	writers := lfshook.WriterMap{}
	for _, lv := range logrus.AllLevels {
		if l.IsLevelEnabled(lv) {
			writers[lv] = writer
		}
	}
	l.AddHook(lfshook.NewHook(writers, fileFormatter))
	l.SetOutput(io.Discard)

	return &XMLog{Logger: l, redact: redact}, nil
}

// AddSecrets registers values that must never appear in log output.
func (xl *XMLog) AddSecrets(secrets ...string) {
	if xl.redact != nil {
		xl.redact.Add(secrets...)
	}
}

// Redact masks registered secrets in s. Used for text that bypasses
// logrus, such as hook output printed to the console.
func (xl *XMLog) Redact(s string) string {
	if xl.redact == nil {
		return s
	}
	return xl.redact.Apply(s)
}

// WithRun scopes an entry to one sync run.
func (xl *XMLog) WithRun(runID string) *logrus.Entry {
	return xl.Logger.WithField(common.RunID, runID)
}

// --- Host context ---
func (xl *XMLog) DebugfHost(host string, format string, args ...interface{}) {
	xl.Logger.WithField(common.HostName, host).Debugf(format, args...)
}
func (xl *XMLog) InfofHost(host string, format string, args ...interface{}) {
	xl.Logger.WithField(common.HostName, host).Infof(format, args...)
}
func (xl *XMLog) WarnfHost(host string, format string, args ...interface{}) {
	xl.Logger.WithField(common.HostName, host).Warnf(format, args...)
}
