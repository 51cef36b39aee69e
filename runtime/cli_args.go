package runtime

// CliArgs holds the command-line flags that shape a run.
type CliArgs struct {
	ConfigPath string
	LogDir     string
	Verbose    bool
}

// NewCliArgs returns flags with their defaults.
func NewCliArgs() *CliArgs {
	return &CliArgs{}
}
