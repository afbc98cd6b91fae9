package datachangelog

import (
	"context"
	"time"
)

// Repository is the storage backend for the compliance mirror: every
// entity write auditengine.Descriptor.Mirror reports eventually lands
// here via Sink.Mirror, asynchronously and best-effort.
type Repository interface {
	// Save persists a single data change log entry
	Save(ctx context.Context, log *DataChangeLog) error

	// SaveBatch persists multiple data change log entries in a single operation
	SaveBatch(ctx context.Context, logs []DataChangeLog) error

	// Query retrieves audit logs based on query parameters
	Query(ctx context.Context, query *ChangeLogQuery) (*ChangeLogQueryResult, error)

	// GetByPrimaryKey retrieves all changes for a specific entity by primary key
	GetByPrimaryKey(ctx context.Context, domain, entity, primaryKey string, limit, offset int) (*ChangeLogQueryResult, error)

	// GetEntityHistory retrieves the complete change history for an entity
	GetEntityHistory(ctx context.Context, domain, entity, primaryKey string) (*EntityChangeHistory, error)

	// DeleteOlderThan deletes audit logs older than the specified date
	DeleteOlderThan(ctx context.Context, domain, entity string, date time.Time) error

	// GetStats returns statistics about audit logs
	GetStats(ctx context.Context, domain, entity string, startDate, endDate time.Time) (*AuditStats, error)

	// Close closes the repository connection/resources
	Close() error

	// Health checks if the repository is healthy and accessible
	Health(ctx context.Context) error
}

// AuditStats represents statistics about audit logs
type AuditStats struct {
	Domain               string           `json:"domain"`
	Entity               string           `json:"entity"`
	TotalRecords         int64            `json:"total_records"`
	DateRange            DateRange        `json:"date_range"`
	OperationCounts      map[string]int64 `json:"operation_counts"` // CREATE, UPDATE, DELETE counts
	UniqueUsers          int64            `json:"unique_users"`
	UniqueEntities       int64            `json:"unique_entities"`
	AverageFieldsChanged float64          `json:"average_fields_changed"`
}

// DateRange represents a range of dates
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BatchWriterStatus represents the current status of ElasticsearchRepository's
// internal BulkIndexWriter.
type BatchWriterStatus struct {
	IsRunning        bool
	QueueSize        int
	ProcessedCount   int64
	FailedCount      int64
	LastFlushTime    time.Time
	AverageLatencyMs float64
}
