// Package settings resolves runtime switches stored in the parameter table.
package settings

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gurkanbulca/storeflow/internal/repository"
)

// AutoTaskAssignment is the parameter that enables load-balanced assignment.
const AutoTaskAssignment = "AUTO_TASK_ASSIGNMENT"

// ParameterStore is the backing store for flags.
type ParameterStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}

type cachedFlag struct {
	value     bool
	expiresAt time.Time
}

// Flags is a read-through cache of boolean parameters.
type Flags struct {
	store    ParameterStore
	ttl      time.Duration
	defaults map[string]bool
	now      func() time.Time

	mu      sync.RWMutex
	cache   map[string]cachedFlag
	sfGroup singleflight.Group
}

// NewFlags returns a flag reader whose values are cached for ttl. A ttl of
// zero disables caching.
func NewFlags(store ParameterStore, ttl time.Duration, defaults map[string]bool) *Flags {
	d := make(map[string]bool, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	return &Flags{
		store:    store,
		ttl:      ttl,
		defaults: d,
		now:      time.Now,
		cache:    make(map[string]cachedFlag),
	}
}

// AutoAssignmentEnabled reports whether AUTO_TASK_ASSIGNMENT is on.
func (f *Flags) AutoAssignmentEnabled(ctx context.Context) (bool, error) {
	return f.Bool(ctx, AutoTaskAssignment)
}

// Bool reads a boolean parameter. Missing or unparsable values resolve to
// the configured default; only store failures are returned as errors.
func (f *Flags) Bool(ctx context.Context, name string) (bool, error) {
	f.mu.RLock()
	entry, ok := f.cache[name]
	f.mu.RUnlock()
	if ok && f.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	val, err, _ := f.sfGroup.Do(name, func() (any, error) {
		return f.load(ctx, name)
	})
	if err != nil {
		return f.defaults[name], err
	}
	return val.(bool), nil
}

func (f *Flags) load(ctx context.Context, name string) (bool, error) {
	value := f.defaults[name]

	raw, err := f.store.Get(ctx, name)
	switch {
	case repository.IsNotFound(err):
	case err != nil:
		return value, err
	default:
		parsed, perr := strconv.ParseBool(raw)
		if perr != nil {
			log.Printf("[settings] Warning: parameter %s has non-boolean value %q, using %t", name, raw, value)
		} else {
			value = parsed
		}
	}

	if f.ttl > 0 {
		f.mu.Lock()
		f.cache[name] = cachedFlag{value: value, expiresAt: f.now().Add(f.ttl)}
		f.mu.Unlock()
	}
	return value, nil
}

// Set writes a boolean parameter and drops its cached value.
func (f *Flags) Set(ctx context.Context, name string, value bool) error {
	if err := f.store.Set(ctx, name, strconv.FormatBool(value)); err != nil {
		return err
	}
	f.Invalidate(name)
	log.Printf("[settings] Parameter %s set to %t", name, value)
	return nil
}

// Invalidate forgets cached values. With no names every entry is dropped.
func (f *Flags) Invalidate(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(names) == 0 {
		f.cache = make(map[string]cachedFlag)
		return
	}
	for _, n := range names {
		delete(f.cache, n)
	}
}
