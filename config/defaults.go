package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/mitchellh/go-homedir"

	"github.com/mensylisir/xmsync/common"
)

// DefaultPolicies is the abort/continue decision applied to a nonzero exit
// status when error_policy does not name the step. Steps that mutate the
// target directory abort; informational ones continue.
var DefaultPolicies = map[string]string{
	common.StepChangeDirectory: PolicyAbort,
	common.StepPreHooks:        PolicyContinue,
	common.StepCleanTarget:     PolicyAbort,
	common.StepBuildArchive:    PolicyAbort,
	common.StepUploadArchive:   PolicyAbort,
	common.StepExtractArchive:  PolicyAbort,
	common.StepFixOwnership:    PolicyAbort,
	common.StepCleanup:         PolicyContinue,
	common.StepPostHooks:       PolicyContinue,
}

// SetDefaults fills zero-valued fields and resolves local paths. It must run
// after ResolveSSHAlias so alias values are not overwritten.
func SetDefaults(cfg *SyncConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if cfg.SSHPort == 0 {
		cfg.SSHPort = common.DefaultSSHPort
	}
	if cfg.BastionHost != "" {
		if cfg.BastionPort == 0 {
			cfg.BastionPort = common.DefaultSSHPort
		}
		if cfg.BastionUser == "" {
			cfg.BastionUser = cfg.SSHUser
		}
	}
	if cfg.HostKeyPolicy == "" {
		cfg.HostKeyPolicy = HostKeyAcceptAny
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = common.DefaultConnectTimeout
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = common.DefaultDebounce
	}
	if cfg.ArchiveName == "" {
		cfg.ArchiveName = common.DefaultArchiveName
	}
	if cfg.SudoPassword == "" {
		cfg.SudoPassword = cfg.SSHPassword
	}
	if trimmed := strings.TrimRight(cfg.TargetDir, "/"); trimmed != "" {
		cfg.TargetDir = trimmed
	}

	var err error
	if cfg.SourceDir, err = cfg.localPath(cfg.SourceDir); err != nil {
		return err
	}
	if cfg.SSHKeyPath, err = cfg.localPath(cfg.SSHKeyPath); err != nil {
		return err
	}
	if cfg.KnownHostsPath == "" {
		cfg.KnownHostsPath = "~/.ssh/known_hosts"
	}
	if cfg.KnownHostsPath, err = cfg.localPath(cfg.KnownHostsPath); err != nil {
		return err
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = common.GetTmpDir()
	}
	if cfg.WorkDir, err = cfg.localPath(cfg.WorkDir); err != nil {
		return err
	}
	if cfg.LogDir, err = cfg.localPath(cfg.LogDir); err != nil {
		return err
	}
	return nil
}

// localPath expands ~ and anchors relative paths at the config directory.
func (c *SyncConfig) localPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", p, err)
	}
	if !filepath.IsAbs(expanded) && c.baseDir != "" {
		expanded = filepath.Join(c.baseDir, expanded)
	}
	return filepath.Clean(expanded), nil
}

// Validate checks a defaulted config.
func Validate(cfg *SyncConfig) error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.SSHHost == "" {
		add("ssh_host is required")
	}
	if cfg.SSHUser == "" {
		add("ssh_user is required")
	}
	if cfg.SSHPort < 1 || cfg.SSHPort > 65535 {
		add("ssh_port %d is out of range", cfg.SSHPort)
	}
	if cfg.SSHPassword == "" && cfg.SSHKeyPath == "" && cfg.SSHAgentSocket == "" {
		add("one of ssh_password, ssh_key_path or ssh_agent_socket is required")
	}
	if cfg.SourceDir == "" {
		add("source_dir is required")
	}
	if cfg.TargetDir == "" {
		add("target_dir is required")
	} else if !strings.HasPrefix(cfg.TargetDir, "/") {
		add("target_dir %q must be an absolute remote path", cfg.TargetDir)
	} else if cfg.TargetDir == "/" {
		add("target_dir must not be the remote root")
	}
	if strings.ContainsAny(cfg.ArchiveName, "/\x00\n") || cfg.ArchiveName == "." || cfg.ArchiveName == ".." {
		add("archive_name %q must be a plain file name", cfg.ArchiveName)
	}

	switch cfg.HostKeyPolicy {
	case HostKeyAcceptAny, HostKeyAcceptNew, HostKeyStrict:
	default:
		add("host_key_policy %q must be one of %s, %s, %s", cfg.HostKeyPolicy, HostKeyAcceptAny, HostKeyAcceptNew, HostKeyStrict)
	}
	if cfg.CommandTimeout < 0 {
		add("command_timeout must not be negative")
	}
	if cfg.Debounce < 0 {
		add("debounce must not be negative")
	}

	for step, policy := range cfg.ErrorPolicy {
		if _, known := DefaultPolicies[step]; !known {
			add("error_policy names unknown step %q", step)
			continue
		}
		if policy != PolicyAbort && policy != PolicyContinue {
			add("error_policy for %s must be %q or %q, got %q", step, PolicyAbort, PolicyContinue, policy)
		}
	}

	hooks := append(append([]string{}, cfg.BeforeSyncCommands...), cfg.AfterSyncCommands...)
	for _, hook := range hooks {
		if err := ValidateHook(hook); err != nil {
			add("%v", err)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateHook rejects hook commands the remote shell would leave waiting
// for more input, such as unbalanced quotes or embedded newlines.
func ValidateHook(hook string) error {
	if strings.TrimSpace(hook) == "" {
		return fmt.Errorf("hook command must not be empty")
	}
	if strings.ContainsAny(hook, "\n\r") {
		return fmt.Errorf("hook %q must be a single line", hook)
	}
	if _, err := shlex.Split(hook); err != nil {
		return fmt.Errorf("hook %q cannot be parsed: %w", hook, err)
	}
	return nil
}
