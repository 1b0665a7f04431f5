// Planting Sites - Spatial Reconciliation for Restoration Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plantingsites

package authz

import (
	"sync"
	"time"
)

// decisionKey identifies one cached decision.
type decisionKey struct {
	role, object, action string
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

// enforcementCache caches decisions until they expire. A background
// goroutine sweeps expired entries every TTL until stop is called.
type enforcementCache struct {
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	items    map[decisionKey]decision
	stopChan chan struct{}
	stopOnce sync.Once
}

func newEnforcementCache(ttl time.Duration) *enforcementCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &enforcementCache{
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[decisionKey]decision),
		stopChan: make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *enforcementCache) get(role, object, action string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, found := c.items[decisionKey{role, object, action}]
	if !found || c.now().After(d.expiresAt) {
		return false, false
	}
	return d.allowed, true
}

func (c *enforcementCache) set(role, object, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[decisionKey{role, object, action}] = decision{
		allowed:   allowed,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *enforcementCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[decisionKey]decision)
}

func (c *enforcementCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictExpired removes entries past their expiry.
func (c *enforcementCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, d := range c.items {
		if now.After(d.expiresAt) {
			delete(c.items, k)
		}
	}
}

func (c *enforcementCache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

// stop ends the sweep goroutine. Safe to call more than once.
func (c *enforcementCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}
