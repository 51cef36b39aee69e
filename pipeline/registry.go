package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mensylisir/xmsync/runtime"
)

var (
	registry   = map[string]PipelineFactory{}
	registryMu sync.RWMutex
)

// Register makes a pipeline available by name. Names are unique.
func Register(name string, factory PipelineFactory) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		return fmt.Errorf("pipeline %q is already registered", name)
	}
	registry[name] = factory
	return nil
}

// GetPipeline builds the named pipeline for rt.
func GetPipeline(name string, rt *runtime.SyncRuntime) (Pipeline, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q (registered: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(rt)
}

// Names returns the registered pipeline names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
