// Package operation renders the closed set of remote commands a sync issues.
// Each operation validates its arguments and quotes them only when needed, so
// ordinary paths produce exactly the plain command text an operator would
// type, and hostile ones cannot break out of their argument.
package operation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmsync/common"
)

// Operation is a remote command with typed arguments.
type Operation interface {
	Name() string
	// Command renders the shell text, or fails if an argument is unsafe.
	Command() (string, error)
}

var (
	safeWord   = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)
	validUser  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*\$?(:[A-Za-z_][A-Za-z0-9_.-]*)?$`)
	errEmpty   = errors.New("argument must not be empty")
	errControl = errors.New("argument must not contain newline or NUL")
)

// Quote returns s unchanged when it is a safe shell word and single-quotes it
// otherwise. A leading dash gets a "./" prefix so it cannot read as an option.
func Quote(s string) string {
	if strings.HasPrefix(s, "-") {
		s = "./" + s
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func checkArg(what, s string) error {
	if s == "" {
		return errors.Wrap(errEmpty, what)
	}
	if strings.ContainsAny(s, "\n\r\x00") {
		return errors.Wrap(errControl, what)
	}
	return nil
}

// ChangeDirectory enters the target directory; the remaining relative
// operations depend on it.
type ChangeDirectory struct {
	Dir string
}

func (o ChangeDirectory) Name() string { return "change-directory" }
func (o ChangeDirectory) Command() (string, error) {
	if err := checkArg("directory", o.Dir); err != nil {
		return "", err
	}
	return fmt.Sprintf(common.ChangeDirCmdTpl, Quote(o.Dir)), nil
}

// RemoveEntry force-removes one top-level entry of the current directory.
type RemoveEntry struct {
	Entry string
}

func (o RemoveEntry) Name() string { return "remove-entry" }
func (o RemoveEntry) Command() (string, error) {
	if err := checkArg("entry", o.Entry); err != nil {
		return "", err
	}
	switch {
	case o.Entry == "." || o.Entry == "..":
		return "", errors.Errorf("refusing to remove %q", o.Entry)
	case strings.Contains(o.Entry, "/"):
		return "", errors.Errorf("entry %q must be a bare name inside the target directory", o.Entry)
	}
	return fmt.Sprintf(common.RemoveEntryTpl, Quote(o.Entry)), nil
}

// ExtractArchive unpacks the uploaded archive into Dir.
type ExtractArchive struct {
	Archive string
	Dir     string
}

func (o ExtractArchive) Name() string { return "extract-archive" }
func (o ExtractArchive) Command() (string, error) {
	if err := checkArg("archive", o.Archive); err != nil {
		return "", err
	}
	if err := checkArg("directory", o.Dir); err != nil {
		return "", err
	}
	return fmt.Sprintf(common.ExtractCmdTpl, Quote(o.Archive), Quote(o.Dir)), nil
}

// FixOwnership hands the extracted tree to the connecting user.
type FixOwnership struct {
	User string
	Dir  string
}

func (o FixOwnership) Name() string { return "fix-ownership" }
func (o FixOwnership) Command() (string, error) {
	if err := checkArg("user", o.User); err != nil {
		return "", err
	}
	if !validUser.MatchString(o.User) {
		return "", errors.Errorf("invalid user name %q", o.User)
	}
	if err := checkArg("directory", o.Dir); err != nil {
		return "", err
	}
	return fmt.Sprintf(common.ChownCmdTpl, o.User, Quote(o.Dir)), nil
}

// RemoveArchive deletes the uploaded archive.
type RemoveArchive struct {
	Archive string
}

func (o RemoveArchive) Name() string { return "remove-archive" }
func (o RemoveArchive) Command() (string, error) {
	if err := checkArg("archive", o.Archive); err != nil {
		return "", err
	}
	return fmt.Sprintf(common.RemoveArchiveTpl, Quote(o.Archive)), nil
}

// Render returns the command text of op, or a descriptive placeholder when
// it cannot be rendered. Used for plans and logs.
func Render(op Operation) string {
	cmd, err := op.Command()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", op.Name(), err)
	}
	return cmd
}
