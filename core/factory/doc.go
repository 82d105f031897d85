// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[cache.Cache]()
//	reg.Register("memory", func(conf map[string]any) (cache.Cache, error) {
//	    var c struct{ TTL time.Duration `json:"ttl"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return cache.NewMemory(c.TTL), nil
//	})
//	c, err := reg.Create(factory.ModuleConfig{Type: "memory", Conf: map[string]any{"ttl": "5m"}})
package factory
