package connector

import (
	"fmt"
)

// ConnectionError is returned when a session cannot be established or a
// channel on it cannot be opened. Nothing on the remote host has been changed
// by the failing call.
type ConnectionError struct {
	Addr string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ssh %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransferError is returned when an upload fails part way. The partial remote
// file is left in place and named here.
type TransferError struct {
	Local   string
	Remote  string
	Written int64
	Total   int64
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload %s -> %s failed after %d of %d bytes (partial remote file %s may remain): %v",
		e.Local, e.Remote, e.Written, e.Total, e.Remote, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }
