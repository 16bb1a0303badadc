package cloudlydb

import (
	"context"
	"math"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalQuery(t *testing.T) {
	table := newTestTable()

	t.Run("defaults", func(t *testing.T) {
		input, err := table.MarshalQuery(QueryInput{Key: Key("Order").SKBeginsWith("Order#")})
		require.NoError(t, err)

		assert.Equal(t, "test-table", aws.ToString(input.TableName))
		assert.Equal(t, "pk = :pk AND begins_with(sk, :sk)", aws.ToString(input.KeyConditionExpression))
		assert.Equal(t, Item{":pk": avS("Order"), ":sk": avS("Order#")}, input.ExpressionAttributeValues)
		assert.Nil(t, input.ExpressionAttributeNames)
		assert.Equal(t, int32(DefaultQueryLimit), aws.ToInt32(input.Limit))
		assert.False(t, aws.ToBool(input.ScanIndexForward))
		assert.Nil(t, input.IndexName)
		assert.Nil(t, input.ProjectionExpression)
		assert.Nil(t, input.FilterExpression)
		assert.Nil(t, input.ExclusiveStartKey)
	})

	t.Run("index, order, limit and fields", func(t *testing.T) {
		input, err := table.MarshalQuery(QueryInput{
			Key:         Key("c-1").PKAttribute("gsi1pk").SKAttribute("gsi1sk").SKBetween("2024-01", "2024-12"),
			IndexName:   "gsi1",
			ScanForward: true,
			Limit:       5,
			Fields:      []string{"total", "customer.name"},
		})
		require.NoError(t, err)

		assert.Equal(t, "gsi1pk = :pk AND gsi1sk BETWEEN :sk1 AND :sk2", aws.ToString(input.KeyConditionExpression))
		assert.Equal(t, "gsi1", aws.ToString(input.IndexName))
		assert.True(t, aws.ToBool(input.ScanIndexForward))
		assert.Equal(t, int32(5), aws.ToInt32(input.Limit))
		assert.Equal(t, "#pk, #sk, #data.#total, #data.#customer.#name", aws.ToString(input.ProjectionExpression))
		assert.Equal(t, "customer", input.ExpressionAttributeNames["#customer"])
	})

	t.Run("filter", func(t *testing.T) {
		input, err := table.MarshalQuery(QueryInput{
			Key:    Key("Order").SKBeginsWith("Order#"),
			Filter: expression.Name("data.status").Equal(expression.Value("open")),
		})
		require.NoError(t, err)

		assert.Equal(t, "#0.#1 = :0", aws.ToString(input.FilterExpression))
		assert.Equal(t, map[string]string{"#0": "data", "#1": "status"}, input.ExpressionAttributeNames)
		assert.Equal(t, avS("open"), input.ExpressionAttributeValues[":0"])
		assert.Equal(t, avS("Order"), input.ExpressionAttributeValues[":pk"])
	})

	t.Run("limit is capped", func(t *testing.T) {
		input, err := table.MarshalQuery(QueryInput{Key: Key("Order").SKBeginsWith("Order#"), Limit: math.MaxInt32 + 1})
		require.NoError(t, err)
		assert.Equal(t, int32(math.MaxInt32), aws.ToInt32(input.Limit))
	})

	t.Run("numeric field names with a filter", func(t *testing.T) {
		input, err := table.MarshalQuery(QueryInput{
			Key:    Key("Order").SKBeginsWith("Order#"),
			Fields: []string{"0"},
			Filter: expression.Name("data.status").Equal(expression.Value("open")),
		})
		require.NoError(t, err)

		assert.Equal(t, "#pk, #sk, #data.#_0", aws.ToString(input.ProjectionExpression))
		assert.Equal(t, "0", input.ExpressionAttributeNames["#_0"])
		assert.Equal(t, "data", input.ExpressionAttributeNames["#0"])
		assert.Equal(t, "#0.#1 = :0", aws.ToString(input.FilterExpression))
	})

	t.Run("cursor becomes the start key", func(t *testing.T) {
		cursor, err := EncodeCursor("Order", "Order#7")
		require.NoError(t, err)

		input, err := table.MarshalQuery(QueryInput{Key: Key("Order").SKBeginsWith("Order#"), Cursor: cursor})
		require.NoError(t, err)
		assert.Equal(t, Item{"pk": avS("Order"), "sk": avS("Order#7")}, input.ExclusiveStartKey)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := table.MarshalQuery(QueryInput{Key: Key("Order").SKBeginsWith("Order#"), Cursor: "%%%"})
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := table.MarshalQuery(QueryInput{Key: Key("Order")})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestUnmarshalQuery(t *testing.T) {
	table := newTestTable()

	out := &dynamodb.QueryOutput{
		Count: 2,
		Items: []Item{
			{"pk": avS("Order"), "sk": avS("Order#2"), "data": avM(Item{"total": avN("20")})},
			{"pk": avS("Order"), "sk": avS("Order#1"), "data": avM(Item{"total": avN("10")})},
		},
		LastEvaluatedKey: Item{"pk": avS("Order"), "sk": avS("Order#1")},
	}

	results, err := table.UnmarshalQuery(context.Background(), out)
	require.NoError(t, err)

	require.Len(t, results.Items, 2)
	assert.Equal(t, 2, results.Count)
	assert.Equal(t, "Order#2", results.Items[0].SK)
	assert.Equal(t, "20", normalize(results.Items[0].Data["total"]))

	pk, sk, err := DecodeCursor(results.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "Order", pk)
	assert.Equal(t, "Order#1", sk)

	out.LastEvaluatedKey = nil
	results, err = table.UnmarshalQuery(context.Background(), out)
	require.NoError(t, err)
	assert.Empty(t, results.NextCursor)
}

func TestStoreQuery(t *testing.T) {
	client := &recordingClient{queryOut: &dynamodb.QueryOutput{}}
	store := NewStore(client, newTestTable())

	results, err := store.Query(context.Background(), QueryInput{Key: Key("Order").SKBeginsWith("Order#")})
	require.NoError(t, err)
	assert.Empty(t, results.Items)
	assert.Empty(t, results.NextCursor)
	require.NotNil(t, client.query)
	assert.Equal(t, "pk = :pk AND begins_with(sk, :sk)", aws.ToString(client.query.KeyConditionExpression))
}

func TestStoreIndexQueryResume(t *testing.T) {
	ctx := context.Background()
	table := NewTable("test-table", WithIndex("gsi1", "gsi1pk", "gsi1sk"))

	cursor, err := EncodeCursor("Order", "Order#2")
	require.NoError(t, err)
	in := QueryInput{
		Key:         Key("C1").PKAttribute("gsi1pk").SKAttribute("gsi1sk").SKGreaterThanOrEqual("2024-01"),
		IndexName:   "gsi1",
		ScanForward: true,
		Limit:       1,
		Cursor:      cursor,
	}

	t.Run("start key carries the index keys", func(t *testing.T) {
		client := &recordingClient{
			getOut:   &dynamodb.GetItemOutput{Item: Item{"gsi1pk": avS("C1"), "gsi1sk": avS("2024-01")}},
			queryOut: &dynamodb.QueryOutput{},
		}
		_, err := NewStore(client, table).Query(ctx, in)
		require.NoError(t, err)

		require.NotNil(t, client.get)
		assert.Equal(t, Item{"pk": avS("Order"), "sk": avS("Order#2")}, client.get.Key)
		assert.Equal(t, "#gsi1pk, #gsi1sk", aws.ToString(client.get.ProjectionExpression))
		require.NotNil(t, client.query)
		assert.Equal(t, Item{
			"pk":     avS("Order"),
			"sk":     avS("Order#2"),
			"gsi1pk": avS("C1"),
			"gsi1sk": avS("2024-01"),
		}, client.query.ExclusiveStartKey)
	})

	t.Run("item left the index", func(t *testing.T) {
		client := &recordingClient{getOut: &dynamodb.GetItemOutput{Item: Item{"gsi1pk": avS("C1")}}}
		_, err := NewStore(client, table).Query(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidCursor)
		assert.Nil(t, client.query)
	})

	t.Run("item deleted", func(t *testing.T) {
		client := &recordingClient{}
		_, err := NewStore(client, table).Query(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidCursor)
		assert.Nil(t, client.query)
	})

	t.Run("index not registered", func(t *testing.T) {
		client := &recordingClient{}
		_, err := NewStore(client, newTestTable()).Query(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidCursor)
		assert.Nil(t, client.get)
		assert.Nil(t, client.query)
	})

	t.Run("first page reads no index keys", func(t *testing.T) {
		client := &recordingClient{queryOut: &dynamodb.QueryOutput{}}
		first := in
		first.Cursor = ""
		_, err := NewStore(client, newTestTable()).Query(ctx, first)
		require.NoError(t, err)
		assert.Nil(t, client.get)
		assert.Nil(t, client.query.ExclusiveStartKey)
	})
}
