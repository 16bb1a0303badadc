package dynamock

import (
	"testing"
	"time"

	"github.com/nisimpson/cloudlydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBuilder(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("x", 3600))

	b := NewRecord(
		WithModel("Order", "1"),
		WithAttribute("gsi1pk", "c-1"),
		WithData(map[string]any{"total": 10}),
		WithField("status", "open"),
		WithCreated(created),
	)
	rec := b.Build()

	assert.Equal(t, "Order", rec.PK)
	assert.Equal(t, "Order#1", rec.SK)
	assert.Equal(t, map[string]string{"gsi1pk": "c-1"}, rec.Attributes)
	assert.Equal(t, map[string]any{"total": 10, "status": "open"}, rec.Data)
	assert.Equal(t, "2024-05-01T07:00:00Z", rec.Created)
	assert.Empty(t, rec.UpdatedAt)

	t.Run("builds independent copies", func(t *testing.T) {
		rec.Data["total"] = 99
		rec.Attributes["gsi1pk"] = "other"
		again := b.Build()
		assert.Equal(t, 10, again.Data["total"])
		assert.Equal(t, "c-1", again.Attributes["gsi1pk"])
	})

	t.Run("item", func(t *testing.T) {
		item, err := b.With(WithUpdated(created)).Item(cloudlydb.NewTable("t"))
		require.NoError(t, err)
		assert.Equal(t, s("Order"), item["pk"])
		assert.Equal(t, s("c-1"), item["gsi1pk"])
		assert.Equal(t, s("2024-05-01T07:00:00Z"), item["updatedAt"])
		assert.Equal(t, m(attributes{"total": n("10"), "status": s("open")}), item["data"])
	})

	t.Run("unkeyed item", func(t *testing.T) {
		_, err := NewRecord().Item(cloudlydb.NewTable("t"))
		assert.ErrorIs(t, err, cloudlydb.ErrInvalidKey)
	})
}
