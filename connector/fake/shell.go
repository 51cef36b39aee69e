package fake

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gliderlabs/ssh"
	"github.com/google/shlex"

	"github.com/mensylisir/xmsync/file"
)

const ctrlC = 0x03

type shellState struct {
	srv      *Server
	sess     ssh.Session
	in       *bufio.Reader
	cwd      string
	lastCode int
	sudoOK   bool
}

func (s *Server) handleSession(sess ssh.Session) {
	if _, _, isPty := sess.Pty(); !isPty {
		_, _ = io.WriteString(sess.Stderr(), "fake server only offers an interactive shell\n")
		_ = sess.Exit(1)
		return
	}
	cwd := s.dir
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	sh := &shellState{srv: s, sess: sess, in: bufio.NewReader(sess), cwd: cwd}
	if s.banner != "" {
		sh.write(s.banner + "\n")
	}
	sh.write(s.prompt)

	for {
		line, interrupted, err := sh.readLine(true)
		if err != nil {
			return
		}
		if interrupted {
			sh.write("^C\n" + s.prompt)
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			sh.write(s.prompt)
			continue
		}
		s.record(line)
		if line == "exit" {
			_ = sess.Exit(sh.lastCode)
			return
		}
		out, code := sh.run(line)
		sh.lastCode = code
		if out != "" {
			if !strings.HasSuffix(out, "\n") {
				out += "\n"
			}
			sh.write(out)
		}
		sh.write(s.prompt)
	}
}

// write converts newlines to CRLF as a terminal would.
func (sh *shellState) write(s string) {
	_, _ = io.WriteString(sh.sess, strings.ReplaceAll(s, "\n", "\r\n"))
}

func (sh *shellState) readLine(echo bool) (string, bool, error) {
	var b strings.Builder
	for {
		c, err := sh.in.ReadByte()
		if err != nil {
			return "", false, err
		}
		switch c {
		case ctrlC:
			return "", true, nil
		case '\r', '\n':
			sh.write("\n")
			return b.String(), false, nil
		}
		b.WriteByte(c)
		if echo {
			_, _ = sh.sess.Write([]byte{c})
		}
	}
}

func (sh *shellState) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(sh.cwd, p)
}

func (sh *shellState) run(line string) (string, int) {
	if h := sh.srv.handler; h != nil {
		if out, code, ok := h(line); ok {
			return out, code
		}
	}
	args, err := shlex.Split(line)
	if err != nil || len(args) == 0 {
		return fmt.Sprintf("bash: syntax error: %s", line), 2
	}
	if args[0] == "sudo" {
		if ok, out := sh.sudo(); !ok {
			return out, 1
		}
		args = args[1:]
		if len(args) == 0 {
			return "usage: sudo command", 1
		}
	}

	switch args[0] {
	case "true":
		return "", 0
	case "false":
		return "", 1
	case "pwd":
		return sh.cwd, 0
	case "echo":
		words := make([]string, 0, len(args)-1)
		for _, w := range args[1:] {
			words = append(words, strings.ReplaceAll(w, "$?", strconv.Itoa(sh.lastCode)))
		}
		return strings.Join(words, " "), 0
	case "cd":
		if len(args) < 2 {
			return "", 0
		}
		dir := sh.resolve(args[1])
		if ok, _ := file.IsDir(dir); !ok {
			return fmt.Sprintf("bash: cd: %s: No such file or directory", args[1]), 1
		}
		sh.cwd = dir
		return "", 0
	case "ls":
		entries, err := os.ReadDir(sh.cwd)
		if err != nil {
			return err.Error(), 2
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
		return strings.Join(names, "  "), 0
	case "rm":
		return sh.rm(args[1:])
	case "tar":
		return sh.tar(args[1:])
	case "chown":
		if len(args) < 3 {
			return "chown: missing operand", 1
		}
		target := sh.resolve(args[len(args)-1])
		if ok, _ := file.PathExists(target); !ok {
			return fmt.Sprintf("chown: cannot access '%s': No such file or directory", args[len(args)-1]), 1
		}
		return "", 0
	}
	return fmt.Sprintf("bash: %s: command not found", args[0]), 127
}

func (sh *shellState) sudo() (bool, string) {
	if sh.srv.sudoPassword == "" || sh.sudoOK {
		return true, ""
	}
	sh.write(fmt.Sprintf("[sudo] password for %s: ", sh.srv.User))
	pass, interrupted, err := sh.readLine(false)
	if err != nil || interrupted || pass != sh.srv.sudoPassword {
		return false, "Sorry, try again."
	}
	sh.sudoOK = true
	return true, ""
}

func (sh *shellState) rm(args []string) (string, int) {
	recursive := false
	var targets []string
	for _, a := range args {
		switch a {
		case "-rf", "-fr", "-r", "-f":
			recursive = recursive || a != "-f"
		default:
			targets = append(targets, a)
		}
	}
	if len(targets) == 0 {
		return "rm: missing operand", 1
	}
	for _, t := range targets {
		p := sh.resolve(t)
		var err error
		if recursive {
			err = os.RemoveAll(p)
		} else {
			err = os.Remove(p)
		}
		if err != nil {
			return fmt.Sprintf("rm: cannot remove '%s': No such file or directory", t), 1
		}
	}
	return "", 0
}

func (sh *shellState) tar(args []string) (string, int) {
	var archive, dir string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-xzf":
			if i+1 < len(args) {
				archive = args[i+1]
				i++
			}
		case "-C":
			if i+1 < len(args) {
				dir = args[i+1]
				i++
			}
		}
	}
	if archive == "" {
		return "tar: option requires an argument", 2
	}
	if dir == "" {
		dir = "."
	}
	if err := file.Untar(sh.resolve(archive), sh.resolve(dir)); err != nil {
		return fmt.Sprintf("tar: %v", err), 2
	}
	return "", 0
}
