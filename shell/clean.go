package shell

import (
	"regexp"
	"strings"

	"github.com/mensylisir/xmsync/common"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]|\x07`)

// StripANSI removes terminal escape sequences and bells.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// endsWithPrompt reports whether text ends in a prompt terminator.
func endsWithPrompt(text string) bool {
	for _, t := range common.PromptTerminators {
		if strings.HasSuffix(text, t) {
			return true
		}
	}
	return false
}

// isEcho reports whether line is the terminal's echo of cmd, either bare or
// behind a prompt.
func isEcho(line, cmd string) bool {
	if cmd == "" {
		return false
	}
	if strings.HasPrefix(line, cmd) {
		return true
	}
	if strings.HasSuffix(line, cmd) {
		return endsWithPrompt(line[:len(line)-len(cmd)])
	}
	return false
}

// CleanOutput turns the raw bytes of one command into its result text: no
// escapes, no blank lines, no echo of cmd and no trailing prompt.
func CleanOutput(raw, cmd string) string {
	cmd = strings.TrimSpace(cmd)
	lines := strings.Split(normalizeNewlines(StripANSI(raw)), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isEcho(trimmed, cmd) {
			continue
		}
		kept = append(kept, line)
	}
	if n := len(kept); n > 0 && endsWithPrompt(kept[n-1]) {
		kept = kept[:n-1]
	}
	for i := range kept {
		kept[i] = strings.TrimRight(kept[i], " \t")
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
