package shell

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrompt = "user@host:~$ "

// reply scripts how the fake terminal answers one command line.
type reply struct {
	out        string
	then       string        // written gap after out
	gap        time.Duration
	code       int
	delay      time.Duration // before the trailing prompt
	hang       bool          // never print a prompt
	sudo       bool          // ask for a password first
	echoPrompt bool          // echo the command behind a redrawn prompt
}

// fakeTerm plays a remote shell on the far side of two pipes.
type fakeTerm struct {
	outW *io.PipeWriter
	inR  *io.PipeReader
	rw   io.ReadWriter

	mu         sync.Mutex
	replies    map[string]reply
	lines      []string
	passwords  []string
	interrupts int
	lastCode   int
	next       func(line string)
}

func newFakeTerm(t *testing.T, replies map[string]reply) *fakeTerm {
	t.Helper()
	outR, outW := io.Pipe()
	inR, inW := io.Pipe()
	ft := &fakeTerm{
		outW:    outW,
		inR:     inR,
		rw:      struct {
			io.Reader
			io.Writer
		}{outR, inW},
		replies: replies,
	}
	go ft.loop()
	t.Cleanup(func() {
		_ = outW.Close()
		_ = inR.Close()
	})
	return ft
}

func (ft *fakeTerm) write(s string) { _, _ = ft.outW.Write([]byte(s)) }

func (ft *fakeTerm) loop() {
	var line []byte
	b := make([]byte, 1)
	for {
		if _, err := ft.inR.Read(b); err != nil {
			return
		}
		switch b[0] {
		case 0x03:
			ft.mu.Lock()
			ft.interrupts++
			ft.mu.Unlock()
			ft.write("^C\r\n" + testPrompt)
		case '\n':
			l := string(line)
			line = nil
			ft.mu.Lock()
			next := ft.next
			ft.next = nil
			if next == nil {
				ft.lines = append(ft.lines, l)
			}
			ft.mu.Unlock()
			if next != nil {
				go next(l)
			} else {
				go ft.respond(l)
			}
		default:
			line = append(line, b[0])
		}
	}
}

func (ft *fakeTerm) respond(line string) {
	if strings.HasPrefix(line, "echo "+statusMarker) {
		ft.mu.Lock()
		code := ft.lastCode
		ft.mu.Unlock()
		marker := strings.ReplaceAll(strings.TrimPrefix(line, "echo "), "$?", fmt.Sprint(code))
		ft.write(line + "\r\n" + marker + "\r\n" + testPrompt)
		return
	}

	ft.mu.Lock()
	r, ok := ft.replies[line]
	ft.mu.Unlock()
	if !ok {
		r = reply{out: "bash: " + line + ": command not found\r\n", code: 127}
	}
	if r.echoPrompt {
		ft.write(testPrompt + line + "\r\n")
	} else {
		ft.write(line + "\r\n")
	}

	finish := func() {
		ft.write(r.out)
		if r.then != "" {
			time.Sleep(r.gap)
			ft.write(r.then)
		}
		if r.hang {
			return
		}
		time.Sleep(r.delay)
		ft.mu.Lock()
		ft.lastCode = r.code
		ft.mu.Unlock()
		ft.write(testPrompt)
	}
	if r.sudo {
		ft.mu.Lock()
		ft.next = func(pw string) {
			ft.mu.Lock()
			ft.passwords = append(ft.passwords, pw)
			ft.mu.Unlock()
			ft.write("\r\n")
			finish()
		}
		ft.mu.Unlock()
		ft.write("[sudo] password for deploy: ")
		return
	}
	finish()
}

func (ft *fakeTerm) commands() []string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	var out []string
	for _, l := range ft.lines {
		if !strings.HasPrefix(l, "echo "+statusMarker) {
			out = append(out, l)
		}
	}
	return out
}

func fastDriver(ft *fakeTerm, opts ...Option) *Driver {
	return NewDriver(ft.rw, append([]Option{WithDebounce(80 * time.Millisecond)}, opts...)...)
}

func TestExecute_ListingWithGap(t *testing.T) {
	ft := newFakeTerm(t, map[string]reply{
		"ls": {out: "a.txt  src\r\nbuild\r\n", delay: 600 * time.Millisecond, echoPrompt: true},
	})
	d := NewDriver(ft.rw, WithExitStatus(false))
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	start := time.Now()
	res, err := d.Execute(context.Background(), "ls")
	require.NoError(t, err)
	assert.Equal(t, "a.txt  src\nbuild", res.Output)
	assert.Equal(t, Confirmed, res.State)
	assert.Equal(t, -1, res.ExitCode)
	assert.GreaterOrEqual(t, time.Since(start), 600*time.Millisecond+500*time.Millisecond)
	assert.Contains(t, res.Raw, testPrompt)
}

func TestExecute_CandidateEndInsideOutput(t *testing.T) {
	ft := newFakeTerm(t, map[string]reply{
		"price": {out: "total: 5$ ", gap: 30 * time.Millisecond, then: "\r\nthat's all\r\n"},
	})
	d := NewDriver(ft.rw, WithDebounce(300*time.Millisecond), WithExitStatus(false))
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	res, err := d.Execute(context.Background(), "price")
	require.NoError(t, err)
	assert.Equal(t, "total: 5$\nthat's all", res.Output)
}

func TestExecute_FalseCompletionAfterQuietWindow(t *testing.T) {
	ft := newFakeTerm(t, map[string]reply{
		"slow": {out: "cost 5$ ", hang: true},
	})
	d := fastDriver(ft, WithExitStatus(false))
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	res, err := d.Execute(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, Confirmed, res.State)
	assert.Empty(t, res.Output, "a line ending in a prompt terminator is taken for the prompt")
}

func TestExecute_ExitStatus(t *testing.T) {
	ft := newFakeTerm(t, map[string]reply{
		"true":  {code: 0},
		"false": {code: 1},
		"grep x missing": {
			out:  "grep: missing: No such file or directory\r\n",
			code: 2,
		},
	})
	d := fastDriver(ft)
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	tests := []struct {
		cmd      string
		wantCode int
		wantOut  string
	}{
		{"true", 0, ""},
		{"false", 1, ""},
		{"grep x missing", 2, "grep: missing: No such file or directory"},
		{"nope", 127, "bash: nope: command not found"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			res, err := d.Execute(context.Background(), tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantOut, res.Output)
			assert.NotContains(t, res.Output, statusMarker)
		})
	}
	assert.Equal(t, []string{"true", "false", "grep x missing", "nope"}, ft.commands())
}

func TestExecute_Timeout(t *testing.T) {
	ft := newFakeTerm(t, map[string]reply{
		"tail -f log": {out: "line 1\r\n", hang: true},
		"echo ok":     {out: "ok\r\n"},
	})
	d := fastDriver(ft, WithCommandTimeout(300*time.Millisecond), WithExitStatus(false))
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	res, err := d.Execute(context.Background(), "tail -f log")
	require.Error(t, err)
	var hang *CommandHangError
	require.True(t, errors.As(err, &hang))
	assert.Equal(t, "tail -f log", hang.Command)
	assert.Equal(t, "line 1", hang.Partial)
	assert.Equal(t, TimedOut, res.State)

	res, err = d.Execute(context.Background(), "echo ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Output)

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.Equal(t, 1, ft.interrupts)
}

func TestExecute_Cancel(t *testing.T) {
	ft := newFakeTerm(t, map[string]reply{
		"sleep 100": {hang: true},
	})
	d := fastDriver(ft)
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	res, err := d.Execute(ctx, "sleep 100")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, Cancelled, res.State)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = d.Execute(ctx, "echo late")
	require.Error(t, err, "a done context is refused up front")
	assert.Equal(t, []string{"sleep 100"}, ft.commands())
}

func TestExecute_SudoPassword(t *testing.T) {
	ft := newFakeTerm(t, map[string]reply{
		"sudo rm -rf old": {sudo: true},
	})
	d := fastDriver(ft, WithSudoPassword("deploy", "hunter2"))
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	res, err := d.Execute(context.Background(), "sudo rm -rf old")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.NotContains(t, res.Output, "hunter2")

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.Equal(t, []string{"hunter2"}, ft.passwords)
}

func TestSync_ReturnsBanner(t *testing.T) {
	ft := newFakeTerm(t, nil)
	d := fastDriver(ft)
	go ft.write("Last login: Mon Oct  5 10:00:00 2026\r\n\x1b[1;32m" + testPrompt)
	banner, err := d.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Last login: Mon Oct  5 10:00:00 2026", banner)
}

func TestExecute_ChannelClosed(t *testing.T) {
	ft := newFakeTerm(t, nil)
	d := fastDriver(ft, WithExitStatus(false))
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	ft.mu.Lock()
	ft.replies = map[string]reply{"exit": {hang: true}}
	ft.mu.Unlock()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = ft.outW.Close()
	}()
	_, err = d.Execute(context.Background(), "exit")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestExecute_OneCommandInFlight(t *testing.T) {
	replies := map[string]reply{}
	for i := 0; i < 4; i++ {
		replies[fmt.Sprintf("echo %d", i)] = reply{out: fmt.Sprintf("%d\r\n", i), delay: 10 * time.Millisecond}
	}
	ft := newFakeTerm(t, replies)
	d := fastDriver(ft)
	go ft.write(testPrompt)
	_, err := d.Sync(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	outputs := make([]string, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := d.Execute(context.Background(), fmt.Sprintf("echo %d", i))
			if assert.NoError(t, err) {
				outputs[i] = res.Output
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []string{"0", "1", "2", "3"}, outputs)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CandidateEnd", CandidateEnd.String())
	assert.Equal(t, "State(9)", State(9).String())
}
