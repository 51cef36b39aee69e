package runner

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmsync/operation"
	"github.com/mensylisir/xmsync/shell"
)

type scripted struct {
	codes  map[string]int
	err    error
	issued []string
}

func (s *scripted) Execute(_ context.Context, command string) (*shell.Result, error) {
	s.issued = append(s.issued, command)
	res := &shell.Result{Command: command, ExitCode: s.codes[command], State: shell.Confirmed}
	if s.err != nil {
		res.State = shell.TimedOut
		return res, s.err
	}
	if res.ExitCode != 0 {
		res.Output = "rm: cannot remove 'x': Permission denied"
	}
	return res, nil
}

func TestRun_NonzeroIsData(t *testing.T) {
	ex := &scripted{codes: map[string]int{"make test": 2}}
	r := NewCmdRunner(ex, nil)

	res, err := r.Run(context.Background(), "make test")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)
}

func TestRunOperation(t *testing.T) {
	tests := []struct {
		name     string
		op       operation.Operation
		codes    map[string]int
		wantCmd  string
		wantFail bool
	}{
		{
			name:    "success",
			op:      operation.ChangeDirectory{Dir: "/srv/app"},
			wantCmd: "cd /srv/app",
		},
		{
			name:     "nonzero exit",
			op:       operation.RemoveEntry{Entry: "x"},
			codes:    map[string]int{"sudo rm -rf x": 1},
			wantCmd:  "sudo rm -rf x",
			wantFail: true,
		},
		{
			name:    "uncaptured status counts as success",
			op:      operation.RemoveArchive{Archive: "source.tar.gz"},
			codes:   map[string]int{"sudo rm source.tar.gz": -1},
			wantCmd: "sudo rm source.tar.gz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &scripted{codes: tt.codes}
			res, err := NewCmdRunner(ex, nil).RunOperation(context.Background(), tt.op)
			assert.Equal(t, []string{tt.wantCmd}, ex.issued)
			require.NotNil(t, res)
			if !tt.wantFail {
				assert.NoError(t, err)
				return
			}
			var failure *shell.RemoteCommandFailure
			require.True(t, errors.As(err, &failure))
			assert.Same(t, res, failure.Result)
			assert.Contains(t, err.Error(), "Permission denied")
		})
	}
}

func TestRunOperation_InvalidArgumentIsNotSent(t *testing.T) {
	ex := &scripted{}
	_, err := NewCmdRunner(ex, nil).RunOperation(context.Background(), operation.RemoveEntry{Entry: ".."})
	require.Error(t, err)
	assert.Empty(t, ex.issued)
}

func TestRunOperation_DriverErrorPassesThrough(t *testing.T) {
	hang := &shell.CommandHangError{Command: "sudo tar -xzf a.tgz -C /srv"}
	ex := &scripted{err: hang}
	_, err := NewCmdRunner(ex, nil).RunOperation(context.Background(), operation.ExtractArchive{Archive: "a.tgz", Dir: "/srv"})
	var got *shell.CommandHangError
	require.True(t, errors.As(err, &got))
	assert.Same(t, hang, got)
}
