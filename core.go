package cloudlydb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

const (
	AttributeData      = "data"      // holds the record document
	AttributeCreated   = "created"   // set when the record is first put
	AttributeUpdatedAt = "updatedAt" // set on every update

	FieldID        = "id"        // default record id field
	FieldTimestamp = "timestamp" // creation time stamped into new records
	FieldRequest   = "_request"  // request metadata, never stored
)

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// Table contains DynamoDB table configuration. Every item in the table is a
// record envelope: partition and sort key, a data document, and timestamps.
type Table struct {
	TableName     string         // Main table name
	PartitionKey  string         // Partition key attribute. Default is "pk".
	SortKey       string         // Sort key attribute. Default is "sk".
	DataAttribute string         // Attribute holding the record document. Default is "data".
	Tick          Clock          // Time source for envelope timestamps
	Logger        zerolog.Logger // Command logger. Default discards everything.

	// Indexes holds the key attributes of the secondary indexes that queries
	// resume from a cursor on, by index name.
	Indexes map[string]Index
}

// Index names the key attributes of a secondary index.
type Index struct {
	PartitionKey string
	SortKey      string // empty for an index without a sort key
}

// NewTable creates a new Table with default configuration.
func NewTable(tableName string, opts ...func(*Table)) *Table {
	t := &Table{
		TableName:     tableName,
		PartitionKey:  DefaultPartitionKey,
		SortKey:       DefaultSortKey,
		DataAttribute: AttributeData,
		Tick:          DefaultClock,
		Logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithLogger sets the logger used by table commands.
func WithLogger(logger zerolog.Logger) func(*Table) {
	return func(t *Table) {
		t.Logger = logger
	}
}

// WithIndex registers the key attributes of a secondary index so that
// queries on it can resume from a cursor.
func WithIndex(name, partitionKey, sortKey string) func(*Table) {
	return func(t *Table) {
		if t.Indexes == nil {
			t.Indexes = make(map[string]Index)
		}
		t.Indexes[name] = Index{PartitionKey: partitionKey, SortKey: sortKey}
	}
}

// WithClock sets the time source used for envelope timestamps.
func WithClock(tick Clock) func(*Table) {
	return func(t *Table) {
		t.Tick = tick
	}
}

func (t *Table) tick() time.Time {
	if t.Tick == nil {
		return DefaultClock()
	}
	return t.Tick()
}

// now returns the envelope timestamp for the current time.
func (t *Table) now() string {
	return t.tick().UTC().Format(time.RFC3339Nano)
}

// Record is the envelope every item is stored in.
type Record struct {
	PK         string
	SK         string
	Attributes map[string]string // extra key attributes, e.g. index keys
	Data       map[string]any
	Created    string
	UpdatedAt  string
}

// Key returns the record's item key.
func (r *Record) Key() ItemKey {
	return ItemKey{PK: r.PK, SK: r.SK, Attributes: r.Attributes}
}

// MarshalRecord converts a record into a DynamoDB item.
func (t *Table) MarshalRecord(r *Record) (Item, error) {
	if r.PK == "" || r.SK == "" {
		return nil, fmt.Errorf("%w: record requires a partition and sort key", ErrInvalidKey)
	}

	item := t.keyItem(r.Key())
	for name, value := range r.Attributes {
		if name == t.PartitionKey || name == t.SortKey {
			continue
		}
		item[name] = &types.AttributeValueMemberS{Value: value}
	}

	data := r.Data
	if data == nil {
		data = map[string]any{}
	}
	av, err := marshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	item[t.DataAttribute] = av

	if r.Created != "" {
		item[AttributeCreated] = &types.AttributeValueMemberS{Value: r.Created}
	}
	if r.UpdatedAt != "" {
		item[AttributeUpdatedAt] = &types.AttributeValueMemberS{Value: r.UpdatedAt}
	}

	return item, nil
}

// UnmarshalRecord decodes an item into a record envelope. Attributes missing
// from a projected item are left empty. Numbers in the data document decode
// as attributevalue.Number so that no precision is lost.
func (t *Table) UnmarshalRecord(item Item) (*Record, error) {
	if len(item) == 0 {
		return nil, ErrItemNotFound
	}

	var (
		rec  Record
		errs []error
	)
	for name, av := range item {
		switch name {
		case t.PartitionKey:
			errs = append(errs, attributevalue.Unmarshal(av, &rec.PK))
		case t.SortKey:
			errs = append(errs, attributevalue.Unmarshal(av, &rec.SK))
		case t.DataAttribute:
			data, err := unmarshalDocument(av)
			errs = append(errs, err)
			rec.Data = data
		case AttributeCreated:
			errs = append(errs, attributevalue.Unmarshal(av, &rec.Created))
		case AttributeUpdatedAt:
			errs = append(errs, attributevalue.Unmarshal(av, &rec.UpdatedAt))
		default:
			if s, ok := av.(*types.AttributeValueMemberS); ok {
				if rec.Attributes == nil {
					rec.Attributes = make(map[string]string)
				}
				rec.Attributes[name] = s.Value
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

func (t *Table) keyItem(key ItemKey) Item {
	return Item{
		t.PartitionKey: &types.AttributeValueMemberS{Value: key.PK},
		t.SortKey:      &types.AttributeValueMemberS{Value: key.SK},
	}
}

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}
