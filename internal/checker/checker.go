// Package checker runs scheduled HTTP health checks against monitored services
// and feeds the results to storage and the alert evaluator.
package checker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/pulseboard/internal/alerting"
	"github.com/good-yellow-bee/pulseboard/internal/metrics"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// ServiceStore lists monitored services and records their observed status.
type ServiceStore interface {
	ListServices(ctx context.Context) ([]*models.Service, error)
	UpdateServiceStatus(ctx context.Context, id string, status models.ServiceStatus, checkedAt time.Time) error
}

// ResultSink records health-check observations.
type ResultSink interface {
	RecordCheck(ctx context.Context, result *models.CheckResult) error
}

// Evaluator evaluates a check result against the active alert rules.
type Evaluator interface {
	EvaluateCheck(result *models.CheckResult) []*alerting.Event
}

// Config holds checker settings.
type Config struct {
	// Interval between baseline sweeps of all services.
	Interval time.Duration `yaml:"interval"`
	// Timeout for a single probe when the service does not set its own.
	Timeout time.Duration `yaml:"timeout"`
	// MaxProbesPerSec caps the outbound probe rate.
	MaxProbesPerSec float64 `yaml:"max_probes_per_sec"`
	// Concurrency is the maximum number of in-flight probes.
	Concurrency int `yaml:"concurrency"`
}

// SetDefaults fills in default values for unset fields.
func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxProbesPerSec <= 0 {
		c.MaxProbesPerSec = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
}

// Checker probes services on a baseline interval and on each rule's cron
// schedule, recording results and feeding them to the evaluator.
type Checker struct {
	config  Config
	store   ServiceStore
	sink    ResultSink
	eval    Evaluator
	client  *http.Client
	limiter *rate.Limiter
	cron    *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID // rule ID -> cron entry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewChecker creates a checker. The sink and evaluator may be nil, in which
// case results are only used to update service status.
func NewChecker(config Config, store ServiceStore, sink ResultSink, eval Evaluator) *Checker {
	config.SetDefaults()
	return &Checker{
		config:  config,
		store:   store,
		sink:    sink,
		eval:    eval,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.MaxProbesPerSec), int(config.MaxProbesPerSec)),
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins the baseline sweep loop and the cron scheduler. It is safe to
// call Start once; use Stop to shut down.
func (c *Checker) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.cron.Start()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.config.Interval)
		defer ticker.Stop()

		c.Sweep(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				c.Sweep(loopCtx)
			}
		}
	}()
}

// Stop halts scheduling and waits for in-flight probes to finish.
func (c *Checker) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	stopCtx := c.cron.Stop()
	<-stopCtx.Done()
	c.wg.Wait()
}

// ReloadRules replaces the scheduled check entries with those for the given
// rules. For each rule the old cron entry is removed before the new one is
// added, so no rule ever has two active entries.
func (c *Checker) ReloadRules(ctx context.Context, rules []*models.AlertRule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keep := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if rule.Category != models.CategoryEndpoint || !rule.Enabled {
			continue
		}
		keep[rule.ID] = true

		if id, ok := c.entries[rule.ID]; ok {
			c.cron.Remove(id)
			delete(c.entries, rule.ID)
		}

		rule := rule
		entryID, err := c.cron.AddFunc(rule.Schedule, func() {
			c.runScheduled(ctx, rule)
		})
		if err != nil {
			log.Printf("checker: bad schedule %q for rule %s: %v", rule.Schedule, rule.ID, err)
			continue
		}
		c.entries[rule.ID] = entryID
	}

	for ruleID, entryID := range c.entries {
		if !keep[ruleID] {
			c.cron.Remove(entryID)
			delete(c.entries, ruleID)
		}
	}
	metrics.CheckerScheduledRules.Set(float64(len(c.entries)))
}

// ScheduledRules returns the IDs of rules with an active cron entry.
func (c *Checker) ScheduledRules() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	return ids
}

// Sweep probes every known service once, updating statuses and recording
// results.
func (c *Checker) Sweep(ctx context.Context) {
	services, err := c.store.ListServices(ctx)
	if err != nil {
		log.Printf("checker: list services: %v", err)
		return
	}
	c.probeAll(ctx, services)
}

// runScheduled probes the services a rule applies to. A rule bound to a
// service probes only that service; an unbound rule probes all of them.
func (c *Checker) runScheduled(ctx context.Context, rule *models.AlertRule) {
	services, err := c.store.ListServices(ctx)
	if err != nil {
		log.Printf("checker: list services for rule %s: %v", rule.ID, err)
		return
	}
	if rule.ServiceID != "" {
		filtered := services[:0]
		for _, svc := range services {
			if svc.ID == rule.ServiceID {
				filtered = append(filtered, svc)
			}
		}
		services = filtered
	}
	c.probeAll(ctx, services)
}

func (c *Checker) probeAll(ctx context.Context, services []*models.Service) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)

	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return nil
			}
			result := c.Probe(gctx, svc)
			c.record(gctx, svc, result)
			return nil
		})
	}
	g.Wait()
}

// Probe performs a single HTTP check of a service.
func (c *Checker) Probe(ctx context.Context, svc *models.Service) *models.CheckResult {
	timeout := c.config.Timeout
	if svc.TimeoutSec > 0 {
		timeout = time.Duration(svc.TimeoutSec) * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &models.CheckResult{
		ServiceID: svc.ID,
		Timestamp: time.Now().UTC(),
	}

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, svc.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("build request: %v", err)
		return result
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	expected := svc.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	result.OK = resp.StatusCode == expected
	return result
}

func (c *Checker) record(ctx context.Context, svc *models.Service, result *models.CheckResult) {
	status := statusFor(result)
	metrics.CheckerProbesTotal.WithLabelValues(string(status)).Inc()
	metrics.CheckerProbeDuration.Observe(result.ResponseTime.Seconds())
	if err := c.store.UpdateServiceStatus(ctx, svc.ID, status, result.Timestamp); err != nil {
		log.Printf("checker: update status for %s: %v", svc.ID, err)
	}
	if c.sink != nil {
		if err := c.sink.RecordCheck(ctx, result); err != nil {
			log.Printf("checker: record check for %s: %v", svc.ID, err)
		}
	}
	if c.eval != nil {
		c.eval.EvaluateCheck(result)
	}
}

func statusFor(result *models.CheckResult) models.ServiceStatus {
	switch {
	case result.OK:
		return models.StatusUp
	case result.StatusCode > 0:
		return models.StatusDegraded
	default:
		return models.StatusDown
	}
}
