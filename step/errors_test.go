package step

import (
	"context"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/mensylisir/xmsync/shell"
)

func TestIsRemoteFailure(t *testing.T) {
	failure := func(code int) error {
		return &shell.RemoteCommandFailure{Result: &shell.Result{Command: "false", ExitCode: code}}
	}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bare", failure(1), true},
		{"wrapped", errors.Wrap(failure(2), "remote archive left in place"), true},
		{"all failures", multierror.Append(nil, failure(1), failure(2)), true},
		{"mixed", multierror.Append(nil, failure(1), context.Canceled), false},
		{"empty multierror", &multierror.Error{}, false},
		{"hang", &shell.CommandHangError{Command: "sleep 9"}, false},
		{"closed", shell.ErrClosed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRemoteFailure(tt.err))
		})
	}
}
