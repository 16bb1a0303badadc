package cloudlydb

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Put stores data as a new record envelope under key, replacing any record
// already stored there unless a condition prevents it.
func (s *Store) Put(ctx context.Context, key ItemKey, data map[string]any, opts ...func(*WriteOptions)) (*Record, error) {
	rec := &Record{
		PK:         key.PK,
		SK:         key.SK,
		Attributes: key.Attributes,
		Data:       data,
		Created:    s.Table.now(),
	}

	input, err := s.Table.MarshalPut(rec, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal put: %w", err)
	}

	err = s.execute(ctx, opPut, key, func(ctx context.Context) error {
		_, err := s.Client.PutItem(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Update applies a partial update to the record document and returns the
// updated document. See Table.MarshalUpdate.
func (s *Store) Update(ctx context.Context, key ItemKey, doc map[string]any, opts ...func(*WriteOptions)) (map[string]any, error) {
	input, err := s.Table.MarshalUpdate(key, doc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update: %w", err)
	}
	return s.update(ctx, key, input)
}

// Accumulate atomically adds the numeric leaves of doc to the record
// document and returns the updated document. A doc without leaves is a
// no-op and returns a nil document.
func (s *Store) Accumulate(ctx context.Context, key ItemKey, doc map[string]any, opts ...func(*WriteOptions)) (map[string]any, error) {
	input, err := s.Table.MarshalAccumulate(key, doc, opts...)
	if errors.Is(err, ErrEmptyExpression) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal accumulate: %w", err)
	}
	return s.update(ctx, key, input)
}

func (s *Store) update(ctx context.Context, key ItemKey, input *dynamodb.UpdateItemInput) (map[string]any, error) {
	var out *dynamodb.UpdateItemOutput
	err := s.execute(ctx, opUpdate, key, func(ctx context.Context) error {
		var err error
		out, err = s.Client.UpdateItem(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.Table.UnmarshalRecord(out.Attributes)
	if errors.Is(err, ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

// AccumulateStats merges increment into the stats stored in the record
// document, nested under path when path is set, and returns the resulting
// document. A record that does not exist yet is created with the increment
// and a timestamp.
//
// AccumulateStats reads the record, merges with MergeStats and assigns the
// merged values back. It is not safe for concurrent writers to the same
// record; use Accumulate for atomic counters.
func (s *Store) AccumulateStats(ctx context.Context, key ItemKey, increment map[string]any, path string) (map[string]any, error) {
	current, err := s.Get(ctx, key)
	if errors.Is(err, ErrItemNotFound) {
		return s.createStats(ctx, key, increment, path)
	}
	if err != nil {
		return nil, err
	}

	merged, err := MergeStats(current.Data, increment, path)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return current.Data, nil
	}
	if len(current.Data) == 0 {
		merged = wholeMaps(merged)
	}

	return s.Update(ctx, key, merged)
}

func (s *Store) createStats(ctx context.Context, key ItemKey, increment map[string]any, path string) (map[string]any, error) {
	data := maps.Clone(increment)
	if path != "" {
		nested, err := nestUnder(increment, path)
		if err != nil {
			return nil, err
		}
		data = nested
	}
	if data == nil {
		data = make(map[string]any, 1)
	}
	data[FieldTimestamp] = s.Table.now()

	cond, err := ItemNotExists(s.Table.PartitionKey)
	if err != nil {
		return nil, err
	}
	rec, err := s.Put(ctx, key, data, WithCondition(cond))
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

// wholeMaps marks the top-level maps of doc for atomic assignment.
func wholeMaps(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if m, ok := v.(map[string]any); ok {
			out[k] = Whole(m)
			continue
		}
		out[k] = v
	}
	return out
}

// Get reads the record stored under key. When fields are given, only those
// paths of the record document are read. It returns ErrItemNotFound when no
// record exists.
func (s *Store) Get(ctx context.Context, key ItemKey, fields ...string) (*Record, error) {
	input, err := s.Table.MarshalGet(key, fields...)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal get: %w", err)
	}

	var out *dynamodb.GetItemOutput
	err = s.execute(ctx, opGet, key, func(ctx context.Context) error {
		var err error
		out, err = s.Client.GetItem(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.Table.UnmarshalRecord(out.Item)
}

// Delete removes the record stored under key and returns it, or nil when no
// record was stored.
func (s *Store) Delete(ctx context.Context, key ItemKey, opts ...func(*WriteOptions)) (*Record, error) {
	input, err := s.Table.MarshalDelete(key, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delete: %w", err)
	}

	var out *dynamodb.DeleteItemOutput
	err = s.execute(ctx, opDelete, key, func(ctx context.Context) error {
		var err error
		out, err = s.Client.DeleteItem(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.Table.UnmarshalRecord(out.Attributes)
	if errors.Is(err, ErrItemNotFound) {
		return nil, nil
	}
	return rec, err
}

// Query reads one page of records matching the key condition. A query on a
// secondary index resumes from a cursor by first reading the index keys of
// the item the cursor points at; ErrInvalidCursor is returned when that item
// is gone or no longer in the index.
func (s *Store) Query(ctx context.Context, in QueryInput) (*QueryResults, error) {
	input, err := s.Table.MarshalQuery(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	if in.IndexName != "" && input.ExclusiveStartKey != nil {
		if err := s.indexStartKey(ctx, s.Table.Indexes[in.IndexName], input.ExclusiveStartKey); err != nil {
			return nil, err
		}
	}

	var out *dynamodb.QueryOutput
	err = s.execute(ctx, opQuery, ItemKey{PK: in.Key.PK}, func(ctx context.Context) error {
		var err error
		out, err = s.Client.Query(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.Table.UnmarshalQuery(ctx, out)
}

// indexStartKey adds the index keys of the item at startKey to startKey.
func (s *Store) indexStartKey(ctx context.Context, index Index, startKey Item) error {
	attrs := []string{index.PartitionKey}
	if index.SortKey != "" {
		attrs = append(attrs, index.SortKey)
	}
	proj, err := Projection(attrs...)
	if err != nil {
		return err
	}

	pk, err := stringAttribute(startKey, s.Table.PartitionKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	sk, err := stringAttribute(startKey, s.Table.SortKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	key := ItemKey{PK: pk, SK: sk}

	input := &dynamodb.GetItemInput{
		TableName:                aws.String(s.Table.TableName),
		Key:                      s.Table.keyItem(key),
		ProjectionExpression:     aws.String(proj.Expression),
		ExpressionAttributeNames: proj.Names,
	}

	var out *dynamodb.GetItemOutput
	err = s.execute(ctx, opGet, key, func(ctx context.Context) error {
		var err error
		out, err = s.Client.GetItem(ctx, input)
		return err
	})
	if err != nil {
		return err
	}

	for _, attr := range attrs {
		av, ok := out.Item[attr]
		if !ok {
			return fmt.Errorf("%w: item %s/%s is not in the index", ErrInvalidCursor, key.PK, key.SK)
		}
		startKey[attr] = av
	}
	return nil
}
