// Package dispatch routes store tasks: initial placement, claiming, status
// transitions, pool visibility and dashboard aggregation.
package dispatch

import (
	"time"

	"github.com/gurkanbulca/storeflow/internal/config"
	"github.com/gurkanbulca/storeflow/internal/models"
)

// Engine is stateless across requests; all shared state lives in the stores.
type Engine struct {
	tasks  TaskStore
	actors ActorDirectory
	types  TaskTypeCatalog
	flags  FlagSource

	now             func() time.Time
	location        *time.Location
	defaultPageSize int
	maxPageSize     int
	limits          config.ValidationConfig
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the store time zone used for calendar-day windows.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

func WithPageSizes(defaultSize, maxSize int) Option {
	return func(e *Engine) {
		if defaultSize > 0 {
			e.defaultPageSize = defaultSize
		}
		if maxSize > 0 {
			e.maxPageSize = maxSize
		}
	}
}

// WithLimits sets field length limits. Zero limits are not enforced.
func WithLimits(limits config.ValidationConfig) Option {
	return func(e *Engine) { e.limits = limits }
}

func New(tasks TaskStore, actors ActorDirectory, types TaskTypeCatalog, flags FlagSource, opts ...Option) *Engine {
	e := &Engine{
		tasks:           tasks,
		actors:          actors,
		types:           types,
		flags:           flags,
		now:             time.Now,
		location:        time.Local,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// page clamps caller supplied pagination.
func (e *Engine) page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = e.defaultPageSize
	}
	if limit > e.maxPageSize {
		limit = e.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// dayWindow returns the local calendar day containing t as [start, end).
func (e *Engine) dayWindow(t time.Time) (time.Time, time.Time) {
	local := t.In(e.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.location)
	return start, start.AddDate(0, 0, 1)
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks  []*models.Task `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
