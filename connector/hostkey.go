package connector

import (
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/logger"
)

const (
	// HostKeyAcceptAny accepts every host key without verification. It is
	// the default and is logged as insecure on every connection.
	HostKeyAcceptAny = "accept-any"
	// HostKeyAcceptNew records unknown hosts in known_hosts and rejects
	// changed keys.
	HostKeyAcceptNew = "accept-new"
	// HostKeyStrict requires the host to be listed in known_hosts already.
	HostKeyStrict = "strict"
)

func hostKeyCallback(policy, knownHostsPath string) (ssh.HostKeyCallback, error) {
	switch policy {
	case "", HostKeyAcceptAny:
		var once sync.Once
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			once.Do(func() {
				logger.Log.WarnfHost(hostname, "host key %s is accepted without verification (host_key_policy=%s)",
					ssh.FingerprintSHA256(key), HostKeyAcceptAny)
			})
			return nil
		}, nil
	case HostKeyStrict:
		if knownHostsPath == "" {
			return nil, errors.New("strict host key checking needs a known_hosts path")
		}
		cb, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load known_hosts %s", knownHostsPath)
		}
		return cb, nil
	case HostKeyAcceptNew:
		if knownHostsPath == "" {
			return nil, errors.New("accept-new host key checking needs a known_hosts path")
		}
		if err := ensureKnownHosts(knownHostsPath); err != nil {
			return nil, err
		}
		cb, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load known_hosts %s", knownHostsPath)
		}
		return trustOnFirstUse(cb, knownHostsPath), nil
	default:
		return nil, errors.Errorf("unknown host key policy %q", policy)
	}
}

func ensureKnownHosts(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), common.FileMode0700); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, common.FileMode0600)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	return f.Close()
}

// trustOnFirstUse appends keys of hosts that known_hosts has never seen. A
// host that is known under a different key is still rejected.
func trustOnFirstUse(cb ssh.HostKeyCallback, path string) ssh.HostKeyCallback {
	var mu sync.Mutex
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := cb(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if err == nil || !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		f, openErr := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, common.FileMode0600)
		if openErr != nil {
			return errors.Wrapf(openErr, "failed to record host key for %s", hostname)
		}
		defer f.Close()
		line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
		if _, werr := f.WriteString(line + "\n"); werr != nil {
			return errors.Wrapf(werr, "failed to record host key for %s", hostname)
		}
		logger.Log.InfofHost(hostname, "added host key %s to %s", ssh.FingerprintSHA256(key), path)
		return nil
	}
}
