package config

import (
	"time"
)

// Host key policies.
const (
	// HostKeyAcceptAny accepts every host key without verification. It is the
	// zero-friction default and provides no protection against
	// man-in-the-middle attacks.
	HostKeyAcceptAny = "accept-any"
	// HostKeyAcceptNew trusts unknown hosts on first use and records them in
	// known_hosts; a changed key is rejected.
	HostKeyAcceptNew = "accept-new"
	// HostKeyStrict requires the host to be present in known_hosts.
	HostKeyStrict = "strict"
)

// Error policies.
const (
	PolicyAbort    = "abort"
	PolicyContinue = "continue"
)

// SyncConfig describes one sync run. The snake_case keys are the ones the
// legacy config.json used; everything after the hook lists is optional.
type SyncConfig struct {
	SSHHost     string `yaml:"ssh_host"`
	SSHPort     int    `yaml:"ssh_port"`
	SSHUser     string `yaml:"ssh_user"`
	SSHPassword string `yaml:"ssh_password"`
	SSHKeyPath  string `yaml:"ssh_key_path"`

	SourceDir          string   `yaml:"source_dir"`
	TargetDir          string   `yaml:"target_dir"`
	ExcludePatterns    []string `yaml:"exclude_patterns"`
	BeforeSyncCommands []string `yaml:"before_sync_commands"`
	AfterSyncCommands  []string `yaml:"after_sync_commands"`

	SSHKeyPassphrase string `yaml:"ssh_key_passphrase,omitempty"`
	SSHAgentSocket   string `yaml:"ssh_agent_socket,omitempty"`
	SSHAlias         string `yaml:"ssh_alias,omitempty"`
	SSHConfigPath    string `yaml:"ssh_config_path,omitempty"`

	BastionHost string `yaml:"bastion_host,omitempty"`
	BastionPort int    `yaml:"bastion_port,omitempty"`
	BastionUser string `yaml:"bastion_user,omitempty"`

	HostKeyPolicy  string `yaml:"host_key_policy,omitempty"`
	KnownHostsPath string `yaml:"known_hosts_path,omitempty"`

	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	// CommandTimeout bounds each remote command; 0 waits forever.
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
	Debounce       time.Duration `yaml:"debounce,omitempty"`

	CaptureExitStatus *bool  `yaml:"capture_exit_status,omitempty"`
	SudoPassword      string `yaml:"sudo_password,omitempty"`

	ArchiveName string            `yaml:"archive_name,omitempty"`
	WorkDir     string            `yaml:"work_dir,omitempty"`
	ErrorPolicy map[string]string `yaml:"error_policy,omitempty"`
	LogDir      string            `yaml:"log_dir,omitempty"`

	// baseDir is the directory relative paths resolve against.
	baseDir string
}

// BaseDir returns the directory the config was loaded from.
func (c *SyncConfig) BaseDir() string {
	return c.baseDir
}

// ExitStatusEnabled reports whether the shell driver queries $? after each
// command.
func (c *SyncConfig) ExitStatusEnabled() bool {
	return c.CaptureExitStatus == nil || *c.CaptureExitStatus
}

// PolicyFor returns the configured error policy of a step.
func (c *SyncConfig) PolicyFor(step string) string {
	if p, ok := c.ErrorPolicy[step]; ok && p != "" {
		return p
	}
	return DefaultPolicies[step]
}

// Secrets lists the values the logger must mask.
func (c *SyncConfig) Secrets() []string {
	return []string{c.SSHPassword, c.SudoPassword, c.SSHKeyPassphrase}
}
