// Package shell drives an interactive remote shell. Completion of a command is
// inferred from its output: the buffer must end in a prompt terminator and
// stay quiet for a debounce window.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/logger"
)

const (
	ctrlC         = "\x03"
	statusMarker  = "__XMSYNC_RC_"
	promptWindow  = 256
	chunkBacklog  = 64
	resyncTimeout = 10 * time.Second
)

type Option func(*Driver)

// WithDebounce sets the quiet period that confirms a prompt.
func WithDebounce(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.debounce = d
		}
	}
}

// WithCommandTimeout bounds every command. Zero waits forever.
func WithCommandTimeout(d time.Duration) Option {
	return func(dr *Driver) { dr.timeout = d }
}

// WithChunkSize sets the read size of the pump.
func WithChunkSize(n int) Option {
	return func(dr *Driver) {
		if n > 0 {
			dr.chunkSize = n
		}
	}
}

// WithExitStatus turns the exit status check on or off.
func WithExitStatus(enabled bool) Option {
	return func(dr *Driver) { dr.exitStatus = enabled }
}

// WithSudoPassword answers sudo password prompts, once per command.
func WithSudoPassword(user, password string) Option {
	return func(dr *Driver) {
		dr.sudoUser = user
		dr.sudoPassword = password
	}
}

// WithLogger scopes driver logs, e.g. to a host or run.
func WithLogger(entry *logrus.Entry) Option {
	return func(dr *Driver) { dr.log = entry }
}

// Driver runs commands one at a time on a shell channel.
type Driver struct {
	mu sync.Mutex

	w      io.Writer
	chunks chan []byte

	errMu   sync.Mutex
	readErr error

	debounce     time.Duration
	timeout      time.Duration
	chunkSize    int
	exitStatus   bool
	sudoUser     string
	sudoPassword string
	log          *logrus.Entry

	// set after a Ctrl-C; the next call first waits for the prompt
	needResync bool
}

// NewDriver starts reading ch. The reader goroutine exits when ch returns an
// error, normally io.EOF after the channel is closed.
func NewDriver(ch io.ReadWriter, opts ...Option) *Driver {
	d := &Driver{
		w:          ch,
		chunks:     make(chan []byte, chunkBacklog),
		debounce:   common.DefaultDebounce,
		chunkSize:  common.DefaultChunkSize,
		exitStatus: true,
	}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = logrus.NewEntry(logger.Log.Logger)
	}
	go d.pump(ch)
	return d
}

func (d *Driver) pump(r io.Reader) {
	defer close(d.chunks)
	for {
		buf := make([]byte, d.chunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			d.chunks <- buf[:n]
		}
		if err != nil {
			d.errMu.Lock()
			d.readErr = err
			d.errMu.Unlock()
			return
		}
	}
}

func (d *Driver) closedErr() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	if d.readErr == nil || d.readErr == io.EOF {
		return ErrClosed
	}
	return errors.Wrap(d.readErr, ErrClosed.Error())
}

// Sync waits for the first prompt without sending anything, consuming the
// login banner. It returns the banner text.
func (d *Driver) Sync(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.needResync = false
	raw, _, err := d.await(ctx, "", d.timeout, false)
	if err != nil {
		return "", err
	}
	return CleanOutput(raw, ""), nil
}

// Execute sends command and waits until the shell is idle again. The
// returned Result carries the cleaned output and, when enabled, the exit
// status. A nonzero exit status is not an error here.
func (d *Driver) Execute(ctx context.Context, command string) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := &Result{Command: command, ExitCode: -1, State: Awaiting}
	if err := ctx.Err(); err != nil {
		res.State = Cancelled
		return res, errors.Wrapf(err, "command %q not sent", command)
	}
	if d.needResync {
		if err := d.resync(ctx); err != nil {
			return res, err
		}
	}
	d.drain()

	log := d.log.WithField(common.CommandName, logger.Log.Redact(command))
	start := time.Now()
	if _, err := io.WriteString(d.w, command+"\n"); err != nil {
		return res, errors.Wrapf(err, "failed to send command %q", command)
	}

	raw, state, err := d.await(ctx, command, d.timeout, true)
	res.Raw = raw
	res.State = state
	res.Duration = time.Since(start)
	if err != nil {
		log.Debugf("command ended in state %s after %s", state, res.Duration)
		return res, err
	}
	res.Output = CleanOutput(raw, command)

	if d.exitStatus {
		code, err := d.queryExitStatus(ctx)
		if err != nil {
			return res, err
		}
		res.ExitCode = code
	}
	res.Duration = time.Since(start)
	log.Debugf("command finished: exit=%d duration=%s", res.ExitCode, res.Duration)
	return res, nil
}

var statusLine = regexp.MustCompile(regexp.QuoteMeta(statusMarker) + `([0-9a-f]+)__(\d+)`)

// queryExitStatus asks the shell for $? behind a one-off marker.
func (d *Driver) queryExitStatus(ctx context.Context) (int, error) {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	cmd := fmt.Sprintf("echo %s%s__$?", statusMarker, nonce)
	if _, err := io.WriteString(d.w, cmd+"\n"); err != nil {
		return -1, errors.Wrap(err, "failed to send exit status check")
	}
	raw, _, err := d.await(ctx, cmd, d.timeout, false)
	if err != nil {
		return -1, errors.Wrap(err, "exit status check failed")
	}
	for _, m := range statusLine.FindAllStringSubmatch(StripANSI(raw), -1) {
		if m[1] != nonce {
			continue
		}
		code, convErr := strconv.Atoi(m[2])
		if convErr == nil {
			return code, nil
		}
	}
	d.log.Warnf("exit status check returned no status: %q", CleanOutput(raw, cmd))
	return -1, nil
}

// await runs the completion state machine until a prompt is confirmed, the
// timeout fires or ctx ends. On the last two it interrupts the remote
// command.
func (d *Driver) await(ctx context.Context, cmd string, timeout time.Duration, answerSudo bool) (string, State, error) {
	var buf bytes.Buffer
	state := Awaiting

	debounce := time.NewTimer(time.Hour)
	stopTimer(debounce)
	defer debounce.Stop()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	sudoAnswered := false
	for {
		var debounceC <-chan time.Time
		if state == CandidateEnd {
			debounceC = debounce.C
		}

		select {
		case chunk, ok := <-d.chunks:
			if !ok {
				return buf.String(), state, d.closedErr()
			}
			buf.Write(chunk)
			if state == CandidateEnd {
				stopTimer(debounce)
				state = Awaiting
			}
			tail := tailText(buf.Bytes())
			if answerSudo && !sudoAnswered && d.sudoPassword != "" && d.isSudoPrompt(tail) {
				if _, err := io.WriteString(d.w, d.sudoPassword+"\n"); err != nil {
					return buf.String(), state, errors.Wrap(err, "failed to answer sudo prompt")
				}
				sudoAnswered = true
				d.log.Debug("answered sudo password prompt")
				continue
			}
			if endsWithPrompt(tail) {
				state = CandidateEnd
				debounce.Reset(d.debounce)
			}
		case <-debounceC:
			return buf.String(), Confirmed, nil
		case <-timeoutC:
			d.interrupt()
			return buf.String(), TimedOut, &CommandHangError{Command: cmd, Timeout: timeout, Partial: CleanOutput(buf.String(), cmd)}
		case <-ctx.Done():
			d.interrupt()
			return buf.String(), Cancelled, errors.Wrapf(ctx.Err(), "command %q cancelled", cmd)
		}
	}
}

func (d *Driver) isSudoPrompt(tail string) bool {
	line := tail
	if i := strings.LastIndexAny(tail, "\r\n"); i >= 0 {
		line = tail[i+1:]
	}
	line = strings.TrimSpace(line)
	if d.sudoUser != "" && strings.HasPrefix(line, fmt.Sprintf("[sudo] password for %s:", d.sudoUser)) {
		return true
	}
	return strings.HasPrefix(line, "[sudo] password for ") && strings.HasSuffix(line, ":") || line == "Password:"
}

func (d *Driver) interrupt() {
	d.needResync = true
	if _, err := io.WriteString(d.w, ctrlC); err != nil {
		d.log.Debugf("failed to send interrupt: %v", err)
	}
}

// resync waits for the prompt that follows an interrupt.
func (d *Driver) resync(ctx context.Context) error {
	d.log.Debug("waiting for the shell to return to a prompt")
	if _, _, err := d.await(ctx, "", resyncTimeout, false); err != nil {
		return errors.Wrap(err, "shell did not return to a prompt after interrupt")
	}
	d.needResync = false
	return nil
}

// drain discards output that arrived between commands.
func (d *Driver) drain() {
	for {
		select {
		case chunk, ok := <-d.chunks:
			if !ok {
				return
			}
			d.log.Debugf("discarding %d bytes of unsolicited output", len(chunk))
		default:
			return
		}
	}
}

func tailText(b []byte) string {
	if len(b) > promptWindow {
		b = b[len(b)-promptWindow:]
	}
	return StripANSI(string(b))
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
