package alerting

import (
	"strings"
	"sync"
	"time"
)

// failureTracker counts consecutive failing checks per rule/target key.
type failureTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFailureTracker() *failureTracker {
	return &failureTracker{counts: make(map[string]int)}
}

// Incr increments and returns the consecutive failure count for a key.
func (t *failureTracker) Incr(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[key]++
	return t.counts[key]
}

// Reset clears the failure run for a key.
func (t *failureTracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, key)
}

// ResetRule clears all state belonging to a rule.
func (t *failureTracker) ResetRule(ruleID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix := ruleID + "/"
	for key := range t.counts {
		if strings.HasPrefix(key, prefix) {
			delete(t.counts, key)
		}
	}
}

// sustainTracker records when a threshold condition started holding
// continuously per rule/target key.
type sustainTracker struct {
	mu    sync.Mutex
	since map[string]time.Time
}

func newSustainTracker() *sustainTracker {
	return &sustainTracker{since: make(map[string]time.Time)}
}

// Hold records that the condition holds at now and returns how long it
// has held continuously.
func (t *sustainTracker) Hold(key string, now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.since[key]
	if !ok {
		t.since[key] = now
		return 0
	}
	return now.Sub(start)
}

// Reset clears the hold for a key.
func (t *sustainTracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.since, key)
}

// ResetRule clears all state belonging to a rule.
func (t *sustainTracker) ResetRule(ruleID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix := ruleID + "/"
	for key := range t.since {
		if strings.HasPrefix(key, prefix) {
			delete(t.since, key)
		}
	}
}

// CooldownManager tracks per-rule cooldowns to prevent spam.
type CooldownManager struct {
	mu        sync.RWMutex
	cooldowns map[string]time.Time
}

// NewCooldownManager creates a new cooldown manager.
func NewCooldownManager() *CooldownManager {
	return &CooldownManager{cooldowns: make(map[string]time.Time)}
}

// IsOnCooldown checks if a rule is currently on cooldown.
func (cm *CooldownManager) IsOnCooldown(ruleID string, now time.Time) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	expiresAt, ok := cm.cooldowns[ruleID]
	if !ok {
		return false
	}
	return now.Before(expiresAt)
}

// SetCooldown sets a cooldown for a rule.
func (cm *CooldownManager) SetCooldown(ruleID string, duration time.Duration, now time.Time) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cooldowns[ruleID] = now.Add(duration)
}

// Clear removes the cooldown for a rule.
func (cm *CooldownManager) Clear(ruleID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.cooldowns, ruleID)
}

// Remaining returns the remaining cooldown for a rule.
func (cm *CooldownManager) Remaining(ruleID string, now time.Time) time.Duration {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	expiresAt, ok := cm.cooldowns[ruleID]
	if !ok {
		return 0
	}
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
