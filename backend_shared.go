package webcodecs

import (
	"sync"

	"github.com/e1z0/gowebcodecs/internal/backend"
	"github.com/e1z0/gowebcodecs/internal/wcconfig"
)

// sharedAdapter is the process-wide backend.Adapter every codec
// instance draws pooled scratch state from (spec.md §4.C.4), sized by
// wcconfig's PoolSize the same way config.go's globalConfig tunes the
// teacher's camera pool.
var (
	sharedOnce    sync.Once
	sharedAdapter *backend.Adapter
)

func defaultAdapter() *backend.Adapter {
	sharedOnce.Do(func() {
		sharedAdapter = backend.NewAdapter(backend.NewPool(wcconfig.Current().PoolSize))
	})
	return sharedAdapter
}

// backendOverrides returns cfg.Overrides merged over wcconfig's
// configured backend table (spec.md §6 "resolution order").
func backendOverrides(cfg map[string]string) map[string]string {
	base := wcconfig.Current().Backends
	if len(cfg) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(cfg))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range cfg {
		merged[k] = v
	}
	return merged
}
