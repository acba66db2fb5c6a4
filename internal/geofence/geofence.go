// Package geofence provides point-in-polygon containment over named
// polygons and the process-wide pool they are registered in.
package geofence

import (
	"log/slog"
	"sync"
)

// Point is a geographic coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Item is a named simple polygon. Vertices are ordered; the closing edge
// back to the first vertex is implicit.
type Item struct {
	Name     string
	Vertices []Point
}

// Contains reports whether p lies inside the polygon using an even-odd ray
// cast over the vertex sequence. Coordinates are treated as planar; the
// geodesic distortion this introduces is accepted for scan-area-sized
// polygons.
func Contains(g *Item, p Point) bool {
	n := len(g.Vertices)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := g.Vertices[i], g.Vertices[j]
		if (vi.Longitude > p.Longitude) != (vj.Longitude > p.Longitude) &&
			p.Latitude < (vj.Latitude-vi.Latitude)*(p.Longitude-vi.Longitude)/(vj.Longitude-vi.Longitude)+vi.Latitude {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Resolve returns the first candidate, in declared order, that contains p.
// First match wins: configuration order is semantically significant when
// candidates overlap. Returns nil when no candidate contains the point.
func Resolve(p Point, candidates []*Item) *Item {
	for _, g := range candidates {
		if g == nil {
			continue
		}
		if Contains(g, p) {
			return g
		}
	}
	return nil
}

// Pool is the process-wide registry of geofences by name. Names are
// first-writer-wins: a later definition under an existing name is ignored
// and flagged, never silently replaced.
type Pool struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewPool creates an empty geofence pool.
func NewPool() *Pool {
	return &Pool{items: make(map[string]*Item)}
}

// Add registers g under its name. Returns false when the name was already
// taken, in which case the existing definition stays in force.
func (p *Pool) Add(g *Item) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.items[g.Name]; exists {
		slog.Warn("Geofence name already registered, keeping first definition",
			"name", g.Name,
		)
		return false
	}
	p.items[g.Name] = g
	return true
}

// Get looks up a geofence by name.
func (p *Pool) Get(name string) (*Item, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.items[name]
	return g, ok
}

// Len returns the number of registered geofences.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}
