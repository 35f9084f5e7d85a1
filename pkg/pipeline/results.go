package pipeline

import (
	"sync"
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// Results is the complete output of one pipeline run.
type Results struct {
	RunAt  time.Time
	AsOf   time.Time
	Tables []models.Table

	byName map[string]*models.Table
}

// NewResults indexes tables by name for lookup.
func NewResults(runAt, asOf time.Time, tables []models.Table) *Results {
	r := &Results{RunAt: runAt, AsOf: asOf, Tables: tables}
	r.byName = make(map[string]*models.Table, len(tables))
	for i := range r.Tables {
		r.byName[r.Tables[i].Name] = &r.Tables[i]
	}
	return r
}

// Table returns one table by name.
func (r *Results) Table(name string) (*models.Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names lists table names in build order.
func (r *Results) Names() []string {
	names := make([]string, len(r.Tables))
	for i, t := range r.Tables {
		names[i] = t.Name
	}
	return names
}

// Registry hands the latest results to the API while runs replace them.
type Registry struct {
	mu     sync.RWMutex
	latest *Results
}

// Latest returns the most recent results, or nil before the first run.
func (g *Registry) Latest() *Results {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.latest
}

// Publish replaces the latest results.
func (g *Registry) Publish(r *Results) {
	g.mu.Lock()
	g.latest = r
	g.mu.Unlock()
}
