package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/good-yellow-bee/pulseboard/internal/metrics"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// observeQuery records latency and errors for a ClickHouse operation.
func observeQuery(op string, start time.Time, err error) {
	metrics.StorageQueryDuration.WithLabelValues(op, "clickhouse").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StorageErrors.WithLabelValues(op, "clickhouse").Inc()
	}
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for telemetry retention.
	RetentionDays int
}

// CheckFilter selects check results to query.
type CheckFilter struct {
	ServiceID string
	StartTime time.Time
	EndTime   time.Time
	OnlyFails bool
	Limit     int
	Offset    int
}

// SampleFilter selects metric samples to query.
type SampleFilter struct {
	HostID    string
	Metric    models.Metric
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// TelemetryStorage stores high-volume check results and metric samples.
type TelemetryStorage interface {
	Open() error
	Close() error
	Migrate() error
	Ping(ctx context.Context) error

	InsertChecks(ctx context.Context, results []*models.CheckResult) error
	QueryChecks(ctx context.Context, filter *CheckFilter) ([]*models.CheckResult, error)
	InsertSamples(ctx context.Context, samples []*models.MetricSample) error
	QuerySamples(ctx context.Context, filter *SampleFilter) ([]*models.MetricSample, error)
}

// ClickHouseStorage implements TelemetryStorage for ClickHouse.
type ClickHouseStorage struct {
	config *ClickHouseConfig
	db     *sql.DB
}

// NewClickHouseStorage creates a new ClickHouse storage.
func NewClickHouseStorage(config *ClickHouseConfig) *ClickHouseStorage {
	// Apply defaults
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 30
	}

	return &ClickHouseStorage{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseStorage) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *ClickHouseStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the telemetry tables if they don't exist.
func (s *ClickHouseStorage) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createChecks := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS check_results (
			service_id String,
			timestamp DateTime64(3, 'UTC'),
			status_code UInt16 DEFAULT 0,
			response_time_ms Float64,
			ok UInt8,
			error String DEFAULT '',
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (service_id, timestamp)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createChecks); err != nil {
		return fmt.Errorf("create check_results table: %w", err)
	}

	createSamples := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS metric_samples (
			host_id String,
			metric LowCardinality(String),
			timestamp DateTime64(3, 'UTC'),
			value Float64,
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (host_id, metric, timestamp)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createSamples); err != nil {
		return fmt.Errorf("create metric_samples table: %w", err)
	}

	return nil
}

// Ping checks the connection health.
func (s *ClickHouseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertChecks inserts check results using batch insert.
func (s *ClickHouseStorage) InsertChecks(ctx context.Context, results []*models.CheckResult) (err error) {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observeQuery("insert_checks", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO check_results (service_id, timestamp, status_code, response_time_ms, ok, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, result := range results {
		_, err := stmt.ExecContext(ctx,
			result.ServiceID,
			result.Timestamp,
			result.StatusCode,
			float64(result.ResponseTime)/float64(time.Millisecond),
			boolToInt(result.OK),
			result.Error,
		)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// QueryChecks retrieves check results matching the filter, newest first.
func (s *ClickHouseStorage) QueryChecks(ctx context.Context, filter *CheckFilter) (_ []*models.CheckResult, err error) {
	start := time.Now()
	defer func() { observeQuery("query_checks", start, err) }()

	var sb strings.Builder
	var args []interface{}

	sb.WriteString(`
		SELECT service_id, timestamp, status_code, response_time_ms, ok, error
		FROM check_results
	`)

	var conditions []string
	if filter.ServiceID != "" {
		conditions = append(conditions, "service_id = ?")
		args = append(args, filter.ServiceID)
	}
	if !filter.StartTime.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.OnlyFails {
		conditions = append(conditions, "ok = 0")
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY timestamp DESC")
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	if filter.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var results []*models.CheckResult
	for rows.Next() {
		result := &models.CheckResult{}
		var responseMS float64
		var ok uint8

		err := rows.Scan(
			&result.ServiceID,
			&result.Timestamp,
			&result.StatusCode,
			&responseMS,
			&ok,
			&result.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		result.ResponseTime = time.Duration(responseMS * float64(time.Millisecond))
		result.OK = ok != 0
		results = append(results, result)
	}
	return results, rows.Err()
}

// InsertSamples inserts metric samples using batch insert.
func (s *ClickHouseStorage) InsertSamples(ctx context.Context, samples []*models.MetricSample) (err error) {
	if len(samples) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observeQuery("insert_samples", start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_samples (host_id, metric, timestamp, value)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		_, err := stmt.ExecContext(ctx,
			sample.HostID,
			string(sample.Metric),
			sample.Timestamp,
			sample.Value,
		)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// QuerySamples retrieves metric samples matching the filter, newest first.
func (s *ClickHouseStorage) QuerySamples(ctx context.Context, filter *SampleFilter) (_ []*models.MetricSample, err error) {
	start := time.Now()
	defer func() { observeQuery("query_samples", start, err) }()

	var sb strings.Builder
	var args []interface{}

	sb.WriteString("SELECT host_id, metric, timestamp, value FROM metric_samples")

	var conditions []string
	if filter.HostID != "" {
		conditions = append(conditions, "host_id = ?")
		args = append(args, filter.HostID)
	}
	if filter.Metric != "" {
		conditions = append(conditions, "metric = ?")
		args = append(args, string(filter.Metric))
	}
	if !filter.StartTime.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndTime)
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY timestamp DESC")
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	if filter.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var samples []*models.MetricSample
	for rows.Next() {
		sample := &models.MetricSample{}
		var metric string
		err := rows.Scan(&sample.HostID, &metric, &sample.Timestamp, &sample.Value)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		sample.Metric = models.Metric(metric)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
