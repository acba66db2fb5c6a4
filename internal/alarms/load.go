package alarms

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/SilphSquad/Brock-WhMgr/internal/geofence"
)

// Load reads, validates and compiles a guild rule file. Inline geofence
// definitions are registered into pool (first writer wins) and every rule's
// geofence names are resolved against it. An error means the file produced
// no usable rule set and the caller must keep whatever it had before.
func Load(path string, pool *geofence.Pool) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("rule file %s is empty", path)
	}

	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	if err := rs.validate(); err != nil {
		return nil, fmt.Errorf("invalid rule file %s: %w", path, err)
	}

	registerGeofences(&rs, pool)
	resolveGeofences(&rs, pool)
	rs.compile()
	return &rs, nil
}

// validate checks structural well-formedness. Unresolvable geofence
// references are not structural errors; those rules just fail closed.
func (rs *RuleSet) validate() error {
	for i, rule := range rs.Alarms {
		if rule == nil {
			return fmt.Errorf("alarm %d is null", i)
		}
		if rule.Name == "" {
			return fmt.Errorf("alarm %d has no name", i)
		}
	}
	for _, def := range rs.Geofences {
		if def.Name == "" {
			return fmt.Errorf("geofence definition has no name")
		}
		if len(def.Vertices) < 3 {
			return fmt.Errorf("geofence %s has %d vertices, need at least 3", def.Name, len(def.Vertices))
		}
	}
	return nil
}

func registerGeofences(rs *RuleSet, pool *geofence.Pool) {
	for _, def := range rs.Geofences {
		vertices := make([]geofence.Point, len(def.Vertices))
		for i, v := range def.Vertices {
			vertices[i] = geofence.Point{Latitude: v[0], Longitude: v[1]}
		}
		pool.Add(&geofence.Item{Name: def.Name, Vertices: vertices})
	}
}

func resolveGeofences(rs *RuleSet, pool *geofence.Pool) {
	for _, rule := range rs.Alarms {
		rule.resolved = rule.resolved[:0]
		for _, name := range rule.GeofenceNames {
			item, ok := pool.Get(name)
			if !ok {
				slog.Warn("Alarm references unknown geofence, location gate fails closed",
					"alarm", rule.Name,
					"geofence", name,
				)
				continue
			}
			rule.resolved = append(rule.resolved, item)
		}
	}
}
