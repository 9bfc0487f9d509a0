package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// =============================================================================
// HOLIDAY CALENDAR - Public holidays per jurisdiction
// =============================================================================

// HolidaySource fetches the public holidays of one jurisdiction and year
// from an upstream provider.
type HolidaySource interface {
	Fetch(ctx context.Context, jurisdiction string, year int) ([]Date, error)
}

// HolidayCalendar serves holiday sets from an in-process cache backed by a
// HolidayStore. Refreshes replace a jurisdiction's set wholesale.
type HolidayCalendar struct {
	store  HolidayStore
	source HolidaySource
	now    Clock

	mu    sync.RWMutex
	cache map[string]HolidaySet

	refreshes singleflight.Group
}

// NewHolidayCalendar wires a calendar. source may be nil when refreshing is
// not needed (tests, offline CLI runs).
func NewHolidayCalendar(store HolidayStore, source HolidaySource, now Clock) *HolidayCalendar {
	if now == nil {
		now = time.Now
	}
	return &HolidayCalendar{
		store:  store,
		source: source,
		now:    now,
		cache:  make(map[string]HolidaySet),
	}
}

// Load returns the holiday set for jurisdiction. A jurisdiction that has
// never been refreshed yields an empty set, not an error.
func (c *HolidayCalendar) Load(ctx context.Context, jurisdiction string) (HolidaySet, error) {
	c.mu.RLock()
	hs, ok := c.cache[jurisdiction]
	c.mu.RUnlock()
	if ok {
		return hs, nil
	}

	dates, err := c.store.LoadHolidays(ctx, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("load holidays for %s: %w", jurisdiction, err)
	}
	hs = NewHolidaySet(dates...)

	c.mu.Lock()
	c.cache[jurisdiction] = hs
	c.mu.Unlock()
	return hs, nil
}

// Refresh fetches the previous, current and next calendar year from the
// source and replaces the stored set. Concurrent refreshes of the same
// jurisdiction share one fetch. Returns the number of holidays stored.
func (c *HolidayCalendar) Refresh(ctx context.Context, jurisdiction string) (int, error) {
	if c.source == nil {
		return 0, &ConfigurationError{Setting: "holiday_source", Err: ErrNotConfigured}
	}
	if jurisdiction == "" {
		return 0, &ValidationError{Field: "jurisdiction", Message: "required"}
	}

	v, err, _ := c.refreshes.Do(jurisdiction, func() (any, error) {
		year := c.now().Year()
		var dates []Date
		for y := year - 1; y <= year+1; y++ {
			ds, err := c.source.Fetch(ctx, jurisdiction, y)
			if err != nil {
				return 0, fmt.Errorf("%w: %s %d: %v", ErrHolidaySource, jurisdiction, y, err)
			}
			dates = append(dates, ds...)
		}
		if err := c.store.ReplaceHolidays(ctx, jurisdiction, dates); err != nil {
			return 0, fmt.Errorf("replace holidays for %s: %w", jurisdiction, err)
		}

		hs := NewHolidaySet(dates...)
		c.mu.Lock()
		c.cache[jurisdiction] = hs
		c.mu.Unlock()
		return len(hs), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Invalidate drops the cached set so the next Load reads the store.
func (c *HolidayCalendar) Invalidate(jurisdiction string) {
	c.mu.Lock()
	delete(c.cache, jurisdiction)
	c.mu.Unlock()
}
