package datachangelog

import (
	"context"
	"log"
	"time"

	"github.com/jecitDev/corebank/pkg/entitycore"
)

// Sink mirrors AuditEngine writes into a Repository as a best-effort,
// asynchronous compliance trail, independent of the transaction that
// produced them: a Repository outage must never fail an entity write.
type Sink struct {
	Repository Repository
	Sanitizer  *Sanitizer
	Diff       *DiffCalculator
	Timeout    time.Duration

	ExcludedFields  []string
	SensitiveFields []string
}

// NewSink builds a Sink. repo may be nil, in which case every Mirror*
// call is a no-op — useful for environments that don't run a compliance
// mirror.
func NewSink(repo Repository, sanitizer *Sanitizer) *Sink {
	return &Sink{Repository: repo, Sanitizer: sanitizer, Timeout: 5 * time.Second}
}

// WithDiff attaches a DiffCalculator so Mirror populates entry.Changes
// with a per-field before/after diff, sanitized the same way as
// AfterData/ChangeData.
func (s *Sink) WithDiff(dc *DiffCalculator, excludedFields, sensitiveFields []string) *Sink {
	s.Diff = dc
	s.ExcludedFields = excludedFields
	s.SensitiveFields = sensitiveFields
	return s
}

// Entry describes one entity write for mirroring.
type Entry struct {
	EntityType           string
	PrimaryKey           string
	Operation            string // CREATE, UPDATE, DELETE
	Before               map[string]interface{}
	After                map[string]interface{}
	ChangedBy            string
	Hash                 int64
	AuditLogID           string
	AntecedentHash       int64
	AntecedentAuditLogID string
}

// Mirror writes e to the repository in a detached goroutine and logs,
// rather than propagates, any failure.
func (s *Sink) Mirror(e Entry) {
	if s == nil || s.Repository == nil {
		return
	}

	entry := DataChangeLog{
		ID:                   e.AuditLogID,
		Domain:               e.EntityType,
		Entity:               e.EntityType,
		Operation:            e.Operation,
		PrimaryKeyStr:        e.PrimaryKey,
		PrimaryKey:           map[string]interface{}{"value": e.PrimaryKey},
		ChangeData:           e.Before,
		AfterData:            e.After,
		ChangedBy:            e.ChangedBy,
		ChangeTimestamp:      time.Now(),
		EntityType:           e.EntityType,
		Hash:                 e.Hash,
		AuditLogID:           e.AuditLogID,
		AntecedentHash:       e.AntecedentHash,
		AntecedentAuditLogID: e.AntecedentAuditLogID,
	}

	if s.Diff != nil {
		diffs := s.Diff.CalculateDiff(e.Before, e.After)
		if s.Sanitizer != nil {
			diffs = s.Sanitizer.SanitizeFieldDiffs(diffs)
		}
		entry.Changes = diffs
	}

	if s.Sanitizer != nil {
		entry.AfterData = s.Sanitizer.SanitizeMap(entry.AfterData, s.ExcludedFields, s.SensitiveFields)
		entry.ChangeData = s.Sanitizer.SanitizeMap(entry.ChangeData, s.ExcludedFields, s.SensitiveFields)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Repository.Save(ctx, &entry); err != nil {
			log.Printf("[datachangelog] failed to mirror %s %s %s: %v", e.Operation, e.EntityType, e.PrimaryKey, err)
		}
	}()
}

// MirrorFunc adapts s into an auditengine.Descriptor.Mirror hook for
// entityType, reading the acting user (if any) through changedBy at call
// time rather than capturing it up front.
func (s *Sink) MirrorFunc(entityType string, changedBy func() string) func(op, pk string, af entitycore.AuditFields) {
	return func(op, pk string, af entitycore.AuditFields) {
		auditLogID := ""
		if af.AuditLogID != nil {
			auditLogID = af.AuditLogID.String()
		}
		by := ""
		if changedBy != nil {
			by = changedBy()
		}
		s.Mirror(Entry{
			EntityType:           entityType,
			PrimaryKey:           pk,
			Operation:            op,
			ChangedBy:            by,
			Hash:                 af.Hash,
			AuditLogID:           auditLogID,
			AntecedentHash:       af.AntecedentHash,
			AntecedentAuditLogID: af.AntecedentAuditLogID.String(),
		})
	}
}
