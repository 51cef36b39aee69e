package runcmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmsync/config"
	"github.com/mensylisir/xmsync/connector"
	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/runner"
	"github.com/mensylisir/xmsync/shell"
	"github.com/mensylisir/xmsync/step"
)

type scriptedRunner struct {
	codes map[string]int
	fail  map[string]error
	ran   []string
}

func (r *scriptedRunner) Run(_ context.Context, command string) (*shell.Result, error) {
	r.ran = append(r.ran, command)
	if err := r.fail[command]; err != nil {
		return nil, err
	}
	return &shell.Result{Command: command, Output: "out of " + command, ExitCode: r.codes[command]}, nil
}

func (r *scriptedRunner) RunOperation(ctx context.Context, op operation.Operation) (*shell.Result, error) {
	return r.Run(ctx, operation.Render(op))
}

type stubRuntime struct {
	runner *scriptedRunner
	out    bytes.Buffer
}

func (s *stubRuntime) Config() *config.SyncConfig { return &config.SyncConfig{} }
func (s *stubRuntime) RunID() string              { return "test-run" }
func (s *stubRuntime) Logger() *logrus.Entry      { return quietLog() }
func (s *stubRuntime) Runner() runner.Runner {
	if s.runner == nil {
		return nil
	}
	return s.runner
}
func (s *stubRuntime) Transfer() connector.Transfer { return nil }
func (s *stubRuntime) WorkDir() string              { return "" }
func (s *stubRuntime) LocalArchive() string         { return "" }
func (s *stubRuntime) RemoteArchive() string        { return "" }
func (s *stubRuntime) Out() io.Writer               { return &s.out }
func (s *stubRuntime) Verbose() bool                { return false }

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRunCommandStep_Execute(t *testing.T) {
	tests := []struct {
		name     string
		cont     bool
		codes    map[string]int
		wantRan  []string
		wantMsg  string
		failures int
	}{
		{
			name:    "all succeed",
			wantRan: []string{"one", "two", "three"},
			wantMsg: "3 of 3 commands ran",
		},
		{
			name:     "stop at first failure",
			codes:    map[string]int{"two": 1, "three": 2},
			wantRan:  []string{"one", "two"},
			wantMsg:  "2 of 3 commands ran, 1 failed",
			failures: 1,
		},
		{
			name:     "continue past failures",
			cont:     true,
			codes:    map[string]int{"two": 1, "three": 2},
			wantRan:  []string{"one", "two", "three"},
			wantMsg:  "3 of 3 commands ran, 2 failed",
			failures: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &stubRuntime{runner: &scriptedRunner{codes: tt.codes}}
			s := NewRunCommandStep("pre-hooks", "hooks", []string{"one", "two", "three"})
			s.ContinueOnFailure = tt.cont
			require.NoError(t, s.Init(rt, quietLog()))

			msg, err := s.Execute(context.Background(), rt, quietLog())
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, tt.wantRan, rt.runner.ran)
			if tt.failures == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var merr *multierror.Error
			require.True(t, errors.As(err, &merr))
			assert.Len(t, merr.Errors, tt.failures)
			assert.True(t, step.IsRemoteFailure(err))
		})
	}
}

func TestRunCommandStep_PrintsCommandsAndOutput(t *testing.T) {
	rt := &stubRuntime{runner: &scriptedRunner{}}
	s := NewRunCommandStep("post-hooks", "hooks", []string{"ls"})
	require.NoError(t, s.Init(rt, quietLog()))
	_, err := s.Execute(context.Background(), rt, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "$ ls\nout of ls\n", rt.out.String())
}

func TestRunCommandStep_DriverErrorAborts(t *testing.T) {
	hang := &shell.CommandHangError{Command: "two"}
	rt := &stubRuntime{runner: &scriptedRunner{fail: map[string]error{"two": hang}}}
	s := NewRunCommandStep("pre-hooks", "hooks", []string{"one", "two", "three"})
	s.ContinueOnFailure = true
	require.NoError(t, s.Init(rt, quietLog()))

	msg, err := s.Execute(context.Background(), rt, quietLog())
	assert.Equal(t, "1 of 3 commands ran", msg)
	assert.Same(t, hang, err)
	assert.False(t, step.IsRemoteFailure(err))
}

func TestRunCommandStep_Init(t *testing.T) {
	empty := NewRunCommandStep("pre-hooks", "hooks", nil)
	require.NoError(t, empty.Init(&stubRuntime{}, quietLog()), "no commands needs no session")
	msg, err := empty.Execute(context.Background(), &stubRuntime{}, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "no commands", msg)

	blank := NewRunCommandStep("pre-hooks", "hooks", []string{"ls", ""})
	assert.Error(t, blank.Init(&stubRuntime{runner: &scriptedRunner{}}, quietLog()))

	offline := NewRunCommandStep("pre-hooks", "hooks", []string{"ls"})
	assert.Error(t, offline.Init(&stubRuntime{}, quietLog()))
}
