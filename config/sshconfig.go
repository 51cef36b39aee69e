package config

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kevinburke/ssh_config"
	"github.com/mitchellh/go-homedir"
)

const defaultSSHConfigPath = "~/.ssh/config"

// ResolveSSHAlias fills host, user, port, key and host key policy from an
// OpenSSH client config entry. Explicit values in the sync config win.
func ResolveSSHAlias(cfg *SyncConfig) error {
	if cfg.SSHAlias == "" {
		return nil
	}
	path := cfg.SSHConfigPath
	if path == "" {
		path = defaultSSHConfigPath
	}
	path, err := cfg.localPath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ssh config: %w", err)
	}
	defer f.Close()
	return resolveSSHAliasFrom(cfg, f)
}

func resolveSSHAliasFrom(cfg *SyncConfig, r io.Reader) error {
	sc, err := ssh_config.Decode(r)
	if err != nil {
		return fmt.Errorf("failed to parse ssh config: %w", err)
	}
	alias := cfg.SSHAlias

	if cfg.SSHHost == "" {
		hostName, _ := sc.Get(alias, "HostName")
		if hostName == "" {
			hostName = alias
		}
		cfg.SSHHost = hostName
	}
	if cfg.SSHUser == "" {
		cfg.SSHUser, _ = sc.Get(alias, "User")
	}
	if cfg.SSHPort == 0 {
		if portStr, _ := sc.Get(alias, "Port"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("ssh config alias %s has invalid port %q", alias, portStr)
			}
			cfg.SSHPort = port
		}
	}
	if cfg.SSHKeyPath == "" {
		if identity, _ := sc.Get(alias, "IdentityFile"); identity != "" {
			expanded, err := homedir.Expand(identity)
			if err != nil {
				return fmt.Errorf("failed to expand IdentityFile %q: %w", identity, err)
			}
			cfg.SSHKeyPath = expanded
		}
	}
	if cfg.KnownHostsPath == "" {
		if known, _ := sc.Get(alias, "UserKnownHostsFile"); known != "" {
			cfg.KnownHostsPath = known
		}
	}
	if cfg.HostKeyPolicy == "" {
		strict, _ := sc.Get(alias, "StrictHostKeyChecking")
		switch strict {
		case "no", "off":
			cfg.HostKeyPolicy = HostKeyAcceptAny
		case "accept-new":
			cfg.HostKeyPolicy = HostKeyAcceptNew
		case "yes":
			cfg.HostKeyPolicy = HostKeyStrict
		}
	}
	return nil
}
