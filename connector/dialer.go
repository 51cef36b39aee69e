package connector

// Dialer creates connections. The CLI uses the SSH dialer; tests substitute
// their own.
type Dialer interface {
	Dial(cfg Config) (Connection, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(cfg Config) (Connection, error)

func (f DialerFunc) Dial(cfg Config) (Connection, error) { return f(cfg) }

type sshDialer struct{}

// NewDialer returns the default SSH dialer.
func NewDialer() Dialer {
	return &sshDialer{}
}

func (d *sshDialer) Dial(cfg Config) (Connection, error) {
	return NewConnection(cfg)
}

var _ Dialer = (*sshDialer)(nil)
