package trace

import (
	"fmt"

	"github.com/roach88/simcore/internal/config"
)

// Domain prefixes for hashes. The version suffix changes with the encoding.
const (
	DomainTrace  = "simcore/trace/v1"
	DomainConfig = "simcore/config/v1"
)

// ConfigObject is the behavior-affecting part of cfg as a canonical
// object. Logging and the journal location are left out.
func ConfigObject(cfg config.Config) Object {
	points := make(Array, 0, len(cfg.Breakpoints.Points))
	for _, p := range cfg.Breakpoints.Points {
		points = append(points, Object{"queue": p.Queue, "command": p.Command})
	}
	return Object{
		"queue": Object{
			"initial_capacity": cfg.Queue.InitialCapacity,
			"pool_capacity":    cfg.Queue.PoolCapacity,
		},
		"breakpoints": Object{
			"enabled": cfg.Breakpoints.Enabled,
			"points":  points,
		},
		"thread_checks": cfg.ThreadChecks,
		"alloc":         Object{"chunk_size": cfg.Alloc.ChunkSize},
		"frames":        cfg.Frames,
	}
}

// ConfigHash identifies a configuration. Runs recorded with the same hash
// are comparable.
func ConfigHash(cfg config.Config) (string, error) {
	data, err := MarshalCanonical(ConfigObject(cfg))
	if err != nil {
		return "", fmt.Errorf("config hash: %w", err)
	}
	return hashWithDomain(DomainConfig, data), nil
}
