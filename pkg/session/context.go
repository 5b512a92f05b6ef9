package session

import (
	"sync"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/api/models"
)

// FarmContext is the session-scoped farm selection state: the farm list,
// the single active farm, and the analytics loaded for it. Its lifecycle
// is bound to authentication: initialized empty on sign-in, cleared on
// sign-out. Only one farm's analytics are held at a time; selecting a
// different farm discards the previous farm's data rather than caching
// both.
type FarmContext struct {
	mu sync.RWMutex

	signedIn bool
	farms    []models.Farm
	active   *models.Farm

	analytics *analytics.Snapshot
	history   []analytics.HistoryPoint
}

// NewFarmContext returns a signed-out, empty context.
func NewFarmContext() *FarmContext {
	return &FarmContext{}
}

// OnSignIn initializes the context for a fresh session.
func (c *FarmContext) OnSignIn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signedIn = true
	c.farms = nil
	c.active = nil
	c.analytics = nil
	c.history = nil
}

// OnSignOut clears everything.
func (c *FarmContext) OnSignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signedIn = false
	c.farms = nil
	c.active = nil
	c.analytics = nil
	c.history = nil
}

// SignedIn reports whether a session is active.
func (c *FarmContext) SignedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signedIn
}

// Farms returns the farm list in insertion order.
func (c *FarmContext) Farms() []models.Farm {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Farm, len(c.farms))
	copy(out, c.farms)
	return out
}

// SetFarms replaces the farm list, e.g. after the initial fetch. The
// active farm is kept when it survives in the new list, otherwise the
// selection and its analytics are dropped.
func (c *FarmContext) SetFarms(farms []models.Farm) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.farms = make([]models.Farm, len(farms))
	copy(c.farms, farms)

	if c.active == nil {
		return
	}
	for i := range c.farms {
		if c.farms[i].ID == c.active.ID {
			c.active = &c.farms[i]
			return
		}
	}
	c.active = nil
	c.analytics = nil
	c.history = nil
}

// AddFarm appends a newly created farm and makes it the active one.
func (c *FarmContext) AddFarm(farm models.Farm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.farms = append(c.farms, farm)
	c.active = &c.farms[len(c.farms)-1]
	c.analytics = nil
	c.history = nil
}

// SelectFarm makes the farm with the given ID active. Analytics and
// history are cleared synchronously with the switch, so a consumer never
// observes the new farm paired with the old farm's data.
func (c *FarmContext) SelectFarm(farmID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.farms {
		if c.farms[i].ID == farmID {
			if c.active == nil || c.active.ID != farmID {
				c.analytics = nil
				c.history = nil
			}
			c.active = &c.farms[i]
			return true
		}
	}
	return false
}

// RemoveFarm drops a farm from the list. Removing the active farm clears
// the selection and its analytics.
func (c *FarmContext) RemoveFarm(farmID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.farms {
		if c.farms[i].ID == farmID {
			c.farms = append(c.farms[:i], c.farms[i+1:]...)
			break
		}
	}
	if c.active != nil && c.active.ID == farmID {
		c.active = nil
		c.analytics = nil
		c.history = nil
	}
}

// ActiveFarm returns the active farm, nil when none is selected.
func (c *FarmContext) ActiveFarm() *models.Farm {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return nil
	}
	copied := *c.active
	return &copied
}

// Analytics returns the loaded snapshot and history for the active farm.
func (c *FarmContext) Analytics() (*analytics.Snapshot, []analytics.HistoryPoint) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]analytics.HistoryPoint, len(c.history))
	copy(history, c.history)
	return c.analytics, history
}

// ApplyResult stores an analysis result for the farm it was requested
// for. A result arriving after the active farm changed is discarded so a
// slow response can never attach another farm's data to the current one.
func (c *FarmContext) ApplyResult(farmID string, result *Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.active.ID != farmID {
		return false
	}
	c.analytics = result.Snapshot
	c.history = result.History
	return true
}
