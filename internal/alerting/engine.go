// Package alerting evaluates check results and metric samples against
// alert rules. Endpoint rules fire after a run of consecutive failing
// checks; resource rules fire when a threshold condition holds
// sustained for the rule's duration in minutes. Both are gated by a
// per-rule cooldown to prevent notification spam.
package alerting

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/metrics"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// Event is a triggered alert ready for notification dispatch.
type Event struct {
	RuleID     string          `json:"rule_id"`
	RuleName   string          `json:"rule_name"`
	Severity   models.Severity `json:"severity"`
	Message    string          `json:"message"`
	Value      float64         `json:"value"`
	Timestamp  time.Time       `json:"timestamp"`
	ChannelIDs []string        `json:"channel_ids"`
}

// EngineStats tracks engine counters using atomics for lock-free reads.
type EngineStats struct {
	ChecksEvaluated  atomic.Int64
	SamplesEvaluated atomic.Int64
	EventsTriggered  atomic.Int64
	EventsSuppressed atomic.Int64
	EventsDropped    atomic.Int64
}

// EngineStatsSnapshot is a point-in-time copy of the counters.
type EngineStatsSnapshot struct {
	ChecksEvaluated  int64
	SamplesEvaluated int64
	EventsTriggered  int64
	EventsSuppressed int64
	EventsDropped    int64
}

// EngineOptions configures the engine.
type EngineOptions struct {
	// EventBufferSize is the size of the event channel buffer.
	EventBufferSize int
}

// DefaultEngineOptions returns default engine options.
func DefaultEngineOptions() *EngineOptions {
	return &EngineOptions{EventBufferSize: 100}
}

// Engine evaluates observations against the active rule set.
type Engine struct {
	mu    sync.RWMutex
	rules []*models.AlertRule

	failures  *failureTracker
	sustained *sustainTracker
	cooldown  *CooldownManager

	events chan *Event
	closed atomic.Bool
	stats  *EngineStats
}

// NewEngine creates an engine with the given rules.
func NewEngine(rules []*models.AlertRule, opts *EngineOptions) *Engine {
	if opts == nil {
		opts = DefaultEngineOptions()
	}
	return &Engine{
		rules:     rules,
		failures:  newFailureTracker(),
		sustained: newSustainTracker(),
		cooldown:  NewCooldownManager(),
		events:    make(chan *Event, opts.EventBufferSize),
		stats:     &EngineStats{},
	}
}

// Events returns the channel where triggered events are sent.
func (e *Engine) Events() <-chan *Event {
	return e.events
}

// EvaluateCheck evaluates a health-check result against all endpoint rules.
func (e *Engine) EvaluateCheck(result *models.CheckResult) []*Event {
	return e.EvaluateCheckAt(result, time.Now())
}

// EvaluateCheckAt evaluates a check result at a specific time.
func (e *Engine) EvaluateCheckAt(result *models.CheckResult, now time.Time) []*Event {
	e.stats.ChecksEvaluated.Add(1)
	metrics.AlertsEvaluatedTotal.Inc()

	var events []*Event
	for _, rule := range e.snapshot() {
		if !rule.Enabled || rule.Category != models.CategoryEndpoint {
			continue
		}
		if rule.ServiceID != "" && rule.ServiceID != result.ServiceID {
			continue
		}

		value := checkValue(rule.Metric, result)
		key := rule.ID + "/" + result.ServiceID

		if !rule.Compare(value) {
			e.failures.Reset(key)
			continue
		}

		// Duration counts consecutive failing checks for endpoint rules.
		count := e.failures.Incr(key)
		if count < rule.Duration {
			continue
		}

		if event := e.trigger(rule, value, endpointMessage(rule, result, count), now); event != nil {
			e.failures.Reset(key)
			events = append(events, event)
		}
	}
	return events
}

// EvaluateSample evaluates a resource metric sample against all resource rules.
func (e *Engine) EvaluateSample(sample *models.MetricSample) []*Event {
	return e.EvaluateSampleAt(sample, time.Now())
}

// EvaluateSampleAt evaluates a metric sample at a specific time.
func (e *Engine) EvaluateSampleAt(sample *models.MetricSample, now time.Time) []*Event {
	e.stats.SamplesEvaluated.Add(1)
	metrics.AlertsEvaluatedTotal.Inc()

	var events []*Event
	for _, rule := range e.snapshot() {
		if !rule.Enabled || rule.Category != models.CategoryResource {
			continue
		}
		if rule.Metric != sample.Metric {
			continue
		}

		key := rule.ID + "/" + sample.HostID

		if !rule.Compare(sample.Value) {
			e.sustained.Reset(key)
			continue
		}

		// Duration is the sustained window in minutes for resource rules.
		held := e.sustained.Hold(key, now)
		if held < time.Duration(rule.Duration)*time.Minute {
			continue
		}

		msg := fmt.Sprintf("%s on %s has been %s %v%% for %d minutes (current: %.1f%%)",
			rule.Metric, sample.HostID, operatorPhrase(rule.Operator), rule.Threshold,
			rule.Duration, sample.Value)
		if event := e.trigger(rule, sample.Value, msg, now); event != nil {
			e.sustained.Reset(key)
			events = append(events, event)
		}
	}
	return events
}

func (e *Engine) trigger(rule *models.AlertRule, value float64, message string, now time.Time) *Event {
	if e.cooldown.IsOnCooldown(rule.ID, now) {
		e.stats.EventsSuppressed.Add(1)
		metrics.AlertsSuppressedTotal.Inc()
		return nil
	}
	if rule.Cooldown > 0 {
		e.cooldown.SetCooldown(rule.ID, time.Duration(rule.Cooldown)*time.Second, now)
	}

	e.stats.EventsTriggered.Add(1)
	metrics.AlertsFiredTotal.WithLabelValues(string(rule.Severity)).Inc()
	event := &Event{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Severity:   rule.Severity,
		Message:    message,
		Value:      value,
		Timestamp:  now,
		ChannelIDs: rule.ChannelIDs,
	}

	if !e.closed.Load() {
		select {
		case e.events <- event:
		default:
			dropped := e.stats.EventsDropped.Add(1)
			if dropped == 1 || dropped%100 == 0 {
				log.Printf("warning: event channel full, dropped %d events total", dropped)
			}
		}
	}
	return event
}

func (e *Engine) snapshot() []*models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// ReloadRules replaces the active rule set and clears per-rule state
// for rules that no longer exist.
func (e *Engine) ReloadRules(rules []*models.AlertRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keep := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		keep[r.ID] = struct{}{}
	}
	for _, old := range e.rules {
		if _, ok := keep[old.ID]; !ok {
			e.failures.ResetRule(old.ID)
			e.sustained.ResetRule(old.ID)
			e.cooldown.Clear(old.ID)
		}
	}
	e.rules = rules
}

// Rules returns a copy of the active rule set.
func (e *Engine) Rules() []*models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.AlertRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() EngineStatsSnapshot {
	return EngineStatsSnapshot{
		ChecksEvaluated:  e.stats.ChecksEvaluated.Load(),
		SamplesEvaluated: e.stats.SamplesEvaluated.Load(),
		EventsTriggered:  e.stats.EventsTriggered.Load(),
		EventsSuppressed: e.stats.EventsSuppressed.Load(),
		EventsDropped:    e.stats.EventsDropped.Load(),
	}
}

// Close closes the engine's event channel. Safe to call concurrently
// with evaluation.
func (e *Engine) Close() {
	if e.closed.Swap(true) {
		return
	}
	close(e.events)
}

func checkValue(metric models.Metric, result *models.CheckResult) float64 {
	if metric == models.MetricResponseTime {
		return float64(result.ResponseTime.Milliseconds())
	}
	return float64(result.StatusCode)
}

func endpointMessage(rule *models.AlertRule, result *models.CheckResult, count int) string {
	if rule.Metric == models.MetricResponseTime {
		return fmt.Sprintf("response time of %s %s %vms for %d consecutive checks",
			result.ServiceID, operatorPhrase(rule.Operator), rule.Threshold, count)
	}
	return fmt.Sprintf("HTTP status of %s %s %v for %d consecutive checks (last: %d)",
		result.ServiceID, operatorPhrase(rule.Operator), rule.Threshold, count, result.StatusCode)
}

func operatorPhrase(op models.Operator) string {
	switch op {
	case models.OpGT:
		return "above"
	case models.OpGTE:
		return "at or above"
	case models.OpLT:
		return "below"
	case models.OpLTE:
		return "at or below"
	case models.OpEQ:
		return "equal to"
	default:
		return string(op)
	}
}
