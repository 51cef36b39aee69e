package logger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const redactedMask = "******"

// RedactHook replaces registered secrets in the message and string fields of
// every entry before it is formatted.
type RedactHook struct {
	mu      sync.RWMutex
	secrets []string
}

func NewRedactHook(secrets ...string) *RedactHook {
	h := &RedactHook{}
	h.Add(secrets...)
	return h
}

func (h *RedactHook) Add(secrets ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range secrets {
		if s == "" {
			continue
		}
		dup := false
		for _, existing := range h.secrets {
			if existing == s {
				dup = true
				break
			}
		}
		if !dup {
			h.secrets = append(h.secrets, s)
		}
	}
}

func (h *RedactHook) Secrets() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.secrets))
	copy(out, h.secrets)
	return out
}

func (h *RedactHook) Apply(s string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, redactedMask)
	}
	return s
}

func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RedactHook) Fire(entry *logrus.Entry) error {
	h.mu.RLock()
	empty := len(h.secrets) == 0
	h.mu.RUnlock()
	if empty {
		return nil
	}
	entry.Message = h.Apply(entry.Message)
	for k, v := range entry.Data {
		switch val := v.(type) {
		case string:
			entry.Data[k] = h.Apply(val)
		case error:
			entry.Data[k] = h.Apply(val.Error())
		case fmt.Stringer:
			entry.Data[k] = h.Apply(val.String())
		}
	}
	return nil
}
