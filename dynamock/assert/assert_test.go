package assert

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/cloudlydb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// recorder collects assertion failures.
type recorder struct {
	testing.TB
	failures []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func order() *cloudlydb.Record {
	return &cloudlydb.Record{
		PK:         "Order",
		SK:         "Order#1",
		Attributes: map[string]string{"gsi1pk": "C1"},
		Data: map[string]any{
			"total":    attributevalue.Number("10.50"),
			"customer": map[string]any{"name": "Ada"},
			"tags":     []any{"a", attributevalue.Number("1")},
		},
		Created:   "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-01-02T00:00:00Z",
	}
}

func TestRecordAssertions(t *testing.T) {
	t.Run("passing", func(t *testing.T) {
		r := &recorder{TB: t}
		Record(r, order()).
			HasKey("Order", "Order#1").
			HasAttribute("gsi1pk", "C1").
			HasTimestamps().
			HasDataField("total", 10.5).
			HasDataField("total", decimal.RequireFromString("10.5")).
			HasDataField("total", json.Number("10.500")).
			HasDataField("customer.name", "Ada").
			HasDataField("customer", map[string]any{"name": "Ada"}).
			HasDataField("tags", []any{"a", 1}).
			HasNoDataField("customer.email").
			HasNoDataField("total.x")
		require.Empty(t, r.failures)
	})

	t.Run("failing", func(t *testing.T) {
		r := &recorder{TB: t}
		Record(r, order()).
			HasKey("Order", "Order#2").
			HasAttribute("gsi1sk", "x").
			HasDataField("total", 10).
			HasDataField("missing", 1).
			HasNoDataField("customer.name")
		require.Equal(t, []string{
			"expected key Order/Order#2, got Order/Order#1",
			"record missing attribute gsi1sk",
			"data field total expected 10, got 10.50",
			"data missing field missing",
			"expected data field customer.name to be absent, got Ada",
		}, r.failures)
	})

	t.Run("nil record", func(t *testing.T) {
		r := &recorder{TB: t}
		Record(r, nil).HasTimestamps()
		require.Len(t, r.failures, 3)
	})
}

func TestRecordsAssertions(t *testing.T) {
	second := order()
	second.SK = "Order#2"

	r := &recorder{TB: t}
	Records(r, []*cloudlydb.Record{second, order()}).
		HasCount(2).
		ContainsKey("Order", "Order#1").
		HasSortKeys("Order#2", "Order#1").
		Each(func(a *RecordAssertion) { a.HasDataField("customer.name", "Ada") })
	require.Empty(t, r.failures)

	Records(r, nil).IsEmpty().HasSortKeys().ContainsKey("Order", "Order#1")
	require.Equal(t, []string{"expected to find record Order/Order#1"}, r.failures)
}

func TestItemAssertions(t *testing.T) {
	item := map[string]types.AttributeValue{
		"pk":   &types.AttributeValueMemberS{Value: "Order"},
		"sk":   &types.AttributeValueMemberS{Value: "Order#1"},
		"data": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{"n": &types.AttributeValueMemberN{Value: "3"}}},
	}

	r := &recorder{TB: t}
	Item(r, item).HasKey("Order", "Order#1").HasDataField("n", 3)
	Items(r, []map[string]types.AttributeValue{item, item}).HasCount(2)
	require.Empty(t, r.failures)

	Items(r, []map[string]types.AttributeValue{{}}).IsEmpty()
	require.Len(t, r.failures, 1)
}
