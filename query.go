package cloudlydb

import (
	"context"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DefaultQueryLimit is the page size used when QueryInput.Limit is unset.
const DefaultQueryLimit = 25

// QueryInput describes a range query over the table or one of its indexes.
type QueryInput struct {
	Key         KeyQuery                    // Key condition; attribute names default to the table keys
	IndexName   string                      // Optional index to query
	ScanForward bool                        // Ascending sort key order. Default is descending.
	Limit       int                         // Maximum number of items to return. Default is 25, capped at math.MaxInt32.
	Cursor      string                      // Cursor returned with the previous page
	Fields      []string                    // Optional record document paths to read
	Filter      expression.ConditionBuilder // Optional filter applied after the key condition
}

// QueryResults holds one page of query results.
type QueryResults struct {
	Items      []*Record
	Count      int
	NextCursor string // empty on the last page
}

// MarshalQuery marshals the input into a dynamodb query request.
//
// A cursor carries only the table keys of the last item read. Resuming a
// query on a secondary index also needs that item's index keys, so the index
// must be registered with WithIndex; Store.Query reads the missing index keys
// before sending the request.
func (t *Table) MarshalQuery(in QueryInput) (*dynamodb.QueryInput, error) {
	key := in.Key
	if key.PKName == "" {
		key = key.PKAttribute(t.PartitionKey)
	}
	if key.SKName == "" {
		key = key.SKAttribute(t.SortKey)
	}

	cond, err := key.Build()
	if err != nil {
		return nil, err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	limit = min(limit, math.MaxInt32)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.TableName),
		KeyConditionExpression: aws.String(cond.Expression),
		ScanIndexForward:       aws.Bool(in.ScanForward),
		Limit:                  aws.Int32(int32(limit)),
	}
	if in.IndexName != "" {
		input.IndexName = aws.String(in.IndexName)
	}

	var p placeholders
	if err := p.addValues(stringValues(cond.Values)); err != nil {
		return nil, err
	}

	if len(in.Fields) > 0 {
		proj, err := t.projection(in.Fields)
		if err != nil {
			return nil, err
		}
		if err := p.addNames(proj.Names); err != nil {
			return nil, err
		}
		input.ProjectionExpression = aws.String(proj.Expression)
	}

	if in.Filter.IsSet() {
		expr, err := expression.NewBuilder().WithFilter(in.Filter).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build expression: %w", err)
		}
		if err := p.addNames(expr.Names()); err != nil {
			return nil, err
		}
		if err := p.addValues(expr.Values()); err != nil {
			return nil, err
		}
		input.FilterExpression = expr.Filter()
	}

	input.ExpressionAttributeNames = p.names
	input.ExpressionAttributeValues = p.values

	if in.Cursor != "" {
		if in.IndexName != "" {
			if _, ok := t.Indexes[in.IndexName]; !ok {
				return nil, fmt.Errorf("%w: index %q is not configured on table %s", ErrInvalidCursor, in.IndexName, t.TableName)
			}
		}
		startKey, err := t.Paginator().StartKey(context.Background(), in.Cursor)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = startKey
	}

	return input, nil
}

// UnmarshalQuery decodes a query response into records and a next page cursor.
func (t *Table) UnmarshalQuery(ctx context.Context, out *dynamodb.QueryOutput) (*QueryResults, error) {
	results := &QueryResults{
		Items: make([]*Record, 0, len(out.Items)),
		Count: int(out.Count),
	}

	for _, item := range out.Items {
		rec, err := t.UnmarshalRecord(item)
		if err != nil {
			return nil, err
		}
		results.Items = append(results.Items, rec)
	}

	cursor, err := MarshalStartKey(ctx, t.Paginator(), out.LastEvaluatedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal next cursor: %w", err)
	}
	results.NextCursor = cursor

	return results, nil
}
