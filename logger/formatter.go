package logger

import (
	"bytes"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	resetColorCode         = 0
	defaultFieldSeparator  = " | "
	defaultTimestampFormat = time.RFC3339
)

// Formatter implements logrus.Formatter with an ordered, bracketed field block:
//
//	15:04:05 [WARN] [RunID:1f2e | Step:clean-target] message
type Formatter struct {
	TimestampFormat  string
	NoColors         bool
	ForceColors      bool
	DisableTimestamp bool
	// DisplayLevelName controls which levels print their [NAME] tag.
	DisplayLevelName LevelNameDisplayMode
	// HideKeys prints only field values.
	HideKeys bool
	// FieldsDisplayWithOrder lists keys printed first, in order. Remaining
	// fields follow alphabetically.
	FieldsDisplayWithOrder []string
	FieldSeparator         string
	DisableCaller          bool
	CustomCallerFormatter  func(*runtime.Frame) string
	// MaxFieldValueLength truncates long values; 0 disables truncation.
	MaxFieldValueLength int
}

// LevelNameDisplayMode defines how log level names are displayed.
type LevelNameDisplayMode int

const (
	ShowAll LevelNameDisplayMode = iota
	ShowAboveWarn
	ShowAboveError
	HideAll
)

func (f *Formatter) showLevel(level logrus.Level) bool {
	switch f.DisplayLevelName {
	case ShowAll:
		return true
	case ShowAboveWarn:
		return level <= logrus.WarnLevel
	case ShowAboveError:
		return level <= logrus.ErrorLevel
	default:
		return false
	}
}

// Format formats the log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		layout := f.TimestampFormat
		if layout == "" {
			layout = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(layout))
		b.WriteByte(' ')
	}

	if f.showLevel(entry.Level) {
		useColors := f.ForceColors || !f.NoColors
		name := strings.ToUpper(entry.Level.String())
		if len(name) > 4 {
			name = name[:4]
		}
		if useColors {
			fmt.Fprintf(b, "\x1b[%dm[%s]\x1b[%dm ", levelColor(entry.Level), name, resetColorCode)
		} else {
			fmt.Fprintf(b, "[%s] ", name)
		}
	}

	if len(entry.Data) > 0 {
		sep := f.FieldSeparator
		if sep == "" {
			sep = defaultFieldSeparator
		}
		b.WriteByte('[')
		for i, key := range f.orderedKeys(entry.Data) {
			if i > 0 {
				b.WriteString(sep)
			}
			f.writeKeyValue(b, key, entry.Data[key])
		}
		b.WriteString("] ")
	}

	b.WriteString(entry.Message)

	if !f.DisableCaller && entry.HasCaller() {
		b.WriteByte(' ')
		if f.CustomCallerFormatter != nil {
			b.WriteString(f.CustomCallerFormatter(entry.Caller))
		} else {
			fn := entry.Caller.Function
			if i := strings.LastIndex(fn, "."); i >= 0 {
				fn = fn[i+1:]
			}
			fmt.Fprintf(b, "(%s:%d %s)", filepath.Base(entry.Caller.File), entry.Caller.Line, fn)
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *Formatter) orderedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	seen := make(map[string]bool, len(f.FieldsDisplayWithOrder))
	for _, k := range f.FieldsDisplayWithOrder {
		if _, ok := data[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(data)-len(keys))
	for k := range data {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (f *Formatter) writeKeyValue(b *bytes.Buffer, key string, value interface{}) {
	val := fmt.Sprintf("%v", value)
	if f.MaxFieldValueLength > 0 && len(val) > f.MaxFieldValueLength {
		val = val[:f.MaxFieldValueLength] + "..."
	}
	if f.HideKeys {
		b.WriteString(val)
		return
	}
	b.WriteString(key)
	b.WriteByte(':')
	b.WriteString(val)
}

func levelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return colorBlue
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	default:
		return colorGray
	}
}

const (
	colorRed    = 31
	colorYellow = 33
	colorBlue   = 36
	colorGray   = 37
)
