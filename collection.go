package cloudlydb

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
)

// DataShaper transforms record data before it is written.
type DataShaper func(data map[string]any) (map[string]any, error)

// Collection manages the records of one model: it derives their keys from
// their data and fills in the fields every new record carries.
type Collection struct {
	Store *Store
	Keys  KeyStrategy
	Shape DataShaper // optional

	newID func() string
}

// NewCollection creates a collection of records keyed by keys.
func NewCollection(store *Store, keys KeyStrategy, opts ...func(*Collection)) *Collection {
	c := &Collection{Store: store, Keys: keys}
	for _, opt := range opts {
		opt(c)
	}
	if c.newID == nil {
		c.newID = c.defaultID
	}
	return c
}

// WithDataShaper sets a function applied to data before every write.
func WithDataShaper(shape DataShaper) func(*Collection) {
	return func(c *Collection) {
		c.Shape = shape
	}
}

// WithIDGenerator replaces the generator of record ids.
func WithIDGenerator(newID func() string) func(*Collection) {
	return func(c *Collection) {
		c.newID = newID
	}
}

// defaultID returns "<unix seconds>-<uuid>", so ids sort by creation time.
func (c *Collection) defaultID() string {
	return strconv.FormatInt(c.Store.Table.tick().Unix(), 10) + "-" + uuid.NewString()
}

// Create stores a new record. An id and a timestamp are assigned when data
// does not carry them, and request metadata under "_request" is dropped.
func (c *Collection) Create(ctx context.Context, data map[string]any, opts ...func(*WriteOptions)) (*Record, error) {
	data = maps.Clone(data)
	if data == nil {
		data = make(map[string]any)
	}
	delete(data, FieldRequest)
	if id, _ := data[FieldID].(string); id == "" {
		data[FieldID] = c.newID()
	}
	if _, ok := data[FieldTimestamp]; !ok {
		data[FieldTimestamp] = c.Store.Table.now()
	}

	data, err := c.prepare(data)
	if err != nil {
		return nil, err
	}
	key, err := c.Keys.ForCreate(data)
	if err != nil {
		return nil, err
	}
	return c.Store.Put(ctx, key, data, opts...)
}

// Update applies a partial update to the record identified by data. The key
// fields stay in the update and are assigned as is.
func (c *Collection) Update(ctx context.Context, data map[string]any, opts ...func(*WriteOptions)) (map[string]any, error) {
	data = maps.Clone(data)
	delete(data, FieldRequest)

	data, err := c.prepare(data)
	if err != nil {
		return nil, err
	}
	key, err := c.Keys.ForUpdate(data)
	if err != nil {
		return nil, err
	}
	return c.Store.Update(ctx, key, data, opts...)
}

// Get reads the record identified by data.
func (c *Collection) Get(ctx context.Context, data map[string]any, fields ...string) (*Record, error) {
	key, err := c.Keys.ForUpdate(data)
	if err != nil {
		return nil, err
	}
	return c.Store.Get(ctx, key, fields...)
}

// List reads one page of the records selected by the key strategy for data.
// The key condition of in is replaced by the strategy's.
func (c *Collection) List(ctx context.Context, data map[string]any, in QueryInput) (*QueryResults, error) {
	key, err := c.Keys.ForQuery(data)
	if err != nil {
		return nil, err
	}
	in.Key = key
	return c.Store.Query(ctx, in)
}

// Delete removes the record identified by data and returns it.
func (c *Collection) Delete(ctx context.Context, data map[string]any, opts ...func(*WriteOptions)) (*Record, error) {
	key, err := c.Keys.ForDelete(data)
	if err != nil {
		return nil, err
	}
	return c.Store.Delete(ctx, key, opts...)
}

func (c *Collection) prepare(data map[string]any) (map[string]any, error) {
	if c.Shape != nil {
		shaped, err := c.Shape(data)
		if err != nil {
			return nil, fmt.Errorf("failed to shape data: %w", err)
		}
		data = shaped
	}
	for field := range data {
		if err := validateField(field); err != nil {
			return nil, err
		}
	}
	return data, nil
}
