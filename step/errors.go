package step

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/mensylisir/xmsync/shell"
)

// IsRemoteFailure reports whether err consists only of nonzero exit
// statuses. Those are subject to the step's error policy; anything else
// (transport, local I/O, hang, cancellation) always aborts.
func IsRemoteFailure(err error) bool {
	if err == nil {
		return false
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		if len(merr.Errors) == 0 {
			return false
		}
		for _, e := range merr.Errors {
			if !IsRemoteFailure(e) {
				return false
			}
		}
		return true
	}
	var failure *shell.RemoteCommandFailure
	return errors.As(err, &failure)
}
