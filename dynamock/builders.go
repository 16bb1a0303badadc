package dynamock

import (
	"maps"
	"time"

	"github.com/nisimpson/cloudlydb"
)

// RecordOption configures a record during building.
type RecordOption func(*RecordBuilder)

// RecordBuilder builds record envelopes for tests.
type RecordBuilder struct {
	rec cloudlydb.Record
}

// NewRecord creates a record builder with the given options applied.
func NewRecord(opts ...RecordOption) *RecordBuilder {
	b := &RecordBuilder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// With applies more options to the builder.
func (b *RecordBuilder) With(opts ...RecordOption) *RecordBuilder {
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns a copy of the configured record.
func (b *RecordBuilder) Build() *cloudlydb.Record {
	rec := b.rec
	rec.Attributes = maps.Clone(b.rec.Attributes)
	rec.Data = maps.Clone(b.rec.Data)
	return &rec
}

// Item marshals the configured record into a DynamoDB item for table.
func (b *RecordBuilder) Item(table *cloudlydb.Table) (cloudlydb.Item, error) {
	return table.MarshalRecord(b.Build())
}

// WithKey sets the partition and sort keys.
func WithKey(pk, sk string) RecordOption {
	return func(b *RecordBuilder) {
		b.rec.PK = pk
		b.rec.SK = sk
	}
}

// WithModel keys the record the way cloudlydb.DefaultKeys does: the model
// name as partition key and "<model>#<id>" as sort key.
func WithModel(model, id string) RecordOption {
	return WithKey(model, model+"#"+id)
}

// WithAttribute sets an extra string attribute, such as an index key.
func WithAttribute(name, value string) RecordOption {
	return func(b *RecordBuilder) {
		if b.rec.Attributes == nil {
			b.rec.Attributes = make(map[string]string)
		}
		b.rec.Attributes[name] = value
	}
}

// WithData replaces the record document.
func WithData(data map[string]any) RecordOption {
	return func(b *RecordBuilder) {
		b.rec.Data = maps.Clone(data)
	}
}

// WithField sets one top-level field of the record document.
func WithField(name string, value any) RecordOption {
	return func(b *RecordBuilder) {
		if b.rec.Data == nil {
			b.rec.Data = make(map[string]any)
		}
		b.rec.Data[name] = value
	}
}

// WithCreated sets the creation timestamp.
func WithCreated(created time.Time) RecordOption {
	return func(b *RecordBuilder) {
		b.rec.Created = created.UTC().Format(time.RFC3339Nano)
	}
}

// WithUpdated sets the last update timestamp.
func WithUpdated(updated time.Time) RecordOption {
	return func(b *RecordBuilder) {
		b.rec.UpdatedAt = updated.UTC().Format(time.RFC3339Nano)
	}
}
