package cloudlydb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Paginator handles pagination by converting last evaluated keys into string
// cursors for clients, and in turn converting client cursors into start keys
// to continue paging of query results.
type Paginator interface {
	// PageCursor generates a string token from the provided last key. Implementors
	// should return an empty token if the last key is nil or empty.
	PageCursor(ctx context.Context, lastKey Item) (string, error)
	// StartKey generates a dynamodb start key from the provided cursor. Implementors
	// should return a nil item if the cursor is an empty string.
	StartKey(ctx context.Context, cursor string) (Item, error)
}

// KeyPaginator implements Paginator by encoding the partition and sort key of
// the last evaluated item directly into the cursor. It keeps no state.
type KeyPaginator struct {
	PartitionKey string
	SortKey      string
}

// PageCursor implements Paginator. Index attributes in lastKey other than the
// table keys are not carried in the cursor, so an index query resumes
// correctly only when its index keys follow from the table keys.
func (p KeyPaginator) PageCursor(_ context.Context, lastKey Item) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}

	pk, err := stringAttribute(lastKey, p.partitionKey())
	if err != nil {
		return "", fmt.Errorf("failed to read last key: %w", err)
	}
	sk, err := stringAttribute(lastKey, p.sortKey())
	if err != nil {
		return "", fmt.Errorf("failed to read last key: %w", err)
	}

	return EncodeCursor(pk, sk)
}

// StartKey implements Paginator. A cursor that does not decode is an error,
// never the end of the results.
func (p KeyPaginator) StartKey(_ context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	pk, sk, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	return Item{
		p.partitionKey(): &types.AttributeValueMemberS{Value: pk},
		p.sortKey():      &types.AttributeValueMemberS{Value: sk},
	}, nil
}

func (p KeyPaginator) partitionKey() string {
	if p.PartitionKey == "" {
		return DefaultPartitionKey
	}
	return p.PartitionKey
}

func (p KeyPaginator) sortKey() string {
	if p.SortKey == "" {
		return DefaultSortKey
	}
	return p.SortKey
}

// Paginator returns a Paginator that encodes the table's keys into cursors.
func (t *Table) Paginator() Paginator {
	return KeyPaginator{PartitionKey: t.PartitionKey, SortKey: t.SortKey}
}

// MarshalStartKey marshals a page key into a page cursor to return to clients.
func MarshalStartKey(ctx context.Context, p Paginator, lastKey Item) (string, error) {
	return p.PageCursor(ctx, lastKey)
}

// UnmarshalStartKey unmarshals a page key from the provided cursor.
func UnmarshalStartKey(ctx context.Context, p Paginator, cursor string) (Item, error) {
	return p.StartKey(ctx, cursor)
}

func stringAttribute(item Item, name string) (string, error) {
	av, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing %q attribute", name)
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is %T, want a string", name, av)
	}
	return s.Value, nil
}
