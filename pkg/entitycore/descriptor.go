// Package entitycore declares the per-entity-kind shape the rest of the
// runtime (entityhash, indexcache, maincache, auditengine, repository)
// operates over. A concrete entity (e.g. "Account") is a plain struct. The
// Identifiable, Auditable and Indexable interfaces are declared here for
// entity types, but no package in this module calls through them:
// auditengine reaches an entity through the functions of its own
// auditengine.Descriptor. There is no base class or generated code: one
// Descriptor value per entity kind carries everything the runtime needs
// that can't be expressed through the struct's own fields and tags.
package entitycore

import "github.com/google/uuid"

// PrimaryKey is the fixed 128-bit identifier type every entity is keyed by.
type PrimaryKey = uuid.UUID

// SecondaryKeyKind classifies a declared secondary key on an index record.
type SecondaryKeyKind int

const (
	// SecondaryKeyI64 is a 64-bit signed integer-hash key, typically the
	// hash of a string or date.
	SecondaryKeyI64 SecondaryKeyKind = iota
	// SecondaryKeyUUID is a 128-bit identifier, typically a foreign key.
	SecondaryKeyUUID
)

func (k SecondaryKeyKind) String() string {
	switch k {
	case SecondaryKeyI64:
		return "i64"
	case SecondaryKeyUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// SecondaryKeyDef declares one named secondary key column on an index
// record and its kind.
type SecondaryKeyDef struct {
	Name string
	Kind SecondaryKeyKind
}

// AuditFields are the four fields an auditable entity carries in addition
// to its application fields. Hash and AuditLogID are nil/zero before the
// entity has ever been persisted.
type AuditFields struct {
	Hash                 int64
	AuditLogID           *uuid.UUID
	AntecedentHash       int64
	AntecedentAuditLogID uuid.UUID
}

// ParsePrimaryKey parses the textual form used on the wire (NOTIFY
// payloads, request DTOs) into a PrimaryKey.
func ParsePrimaryKey(s string) (PrimaryKey, error) {
	return uuid.Parse(s)
}

// Identifiable is implemented by every entity pointer type.
type Identifiable interface {
	GetPrimaryKey() PrimaryKey
}

// Auditable is implemented by entity pointer types whose kind is
// auditable. auditengine does not call these methods: it reads and writes
// AuditFields through the Audit/SetAudit functions of its own Descriptor.
type Auditable interface {
	Identifiable
	GetAuditFields() AuditFields
	SetAuditFields(AuditFields)
}

// IndexRecord is the projection of an entity to its primary key plus its
// declared secondary-key columns. A nil entry for a given key name means
// that secondary key was absent on the source entity and must not be
// indexed (spec.md §4.2: "Secondary-key values of None are not indexed").
type IndexRecord struct {
	PrimaryKey PrimaryKey
	I64Keys    map[string]*int64
	UUIDKeys   map[string]*uuid.UUID
}

// Clone returns a deep copy so callers (caches) never alias a shared map.
func (r IndexRecord) Clone() IndexRecord {
	out := IndexRecord{
		PrimaryKey: r.PrimaryKey,
		I64Keys:    make(map[string]*int64, len(r.I64Keys)),
		UUIDKeys:   make(map[string]*uuid.UUID, len(r.UUIDKeys)),
	}
	for k, v := range r.I64Keys {
		if v == nil {
			continue
		}
		cp := *v
		out.I64Keys[k] = &cp
	}
	for k, v := range r.UUIDKeys {
		if v == nil {
			continue
		}
		cp := *v
		out.UUIDKeys[k] = &cp
	}
	return out
}

// Indexable is implemented by entity pointer types that have a secondary
// key projection. ToIndex must be a pure function of the entity's current
// field values.
type Indexable interface {
	Identifiable
	ToIndex() IndexRecord
}

// Descriptor is the single per-entity-kind registration value described by
// spec.md §9 as the replacement for a deep Identifiable/Auditable/IndexAware
// trait hierarchy: one small table of facts plus the entity's own type.
type Descriptor struct {
	// TableName is the bare entity table name T; {table}_idx and
	// {table}_audit are derived from it.
	TableName string
	// EntityType is the value stored in audit_link.entity_type for this
	// kind (spec.md §6, the entity_type_enum).
	EntityType string
	Auditable  bool
	Indexed    bool
	Cacheable  bool
	// SecondaryKeys lists the declared columns in the same order ToIndex
	// populates them. Informational for callers/diagnostics; IndexCache
	// itself discovers keys from the IndexRecord maps it receives.
	SecondaryKeys []SecondaryKeyDef
}
