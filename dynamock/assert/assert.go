// Package assert provides fluent assertions over cloudlydb records and the
// raw DynamoDB items backing them.
//
//	assert.Records(t, results.Items).
//		HasCount(2).
//		HasSortKeys("Order#2", "Order#1")
//
//	assert.Record(t, rec).
//		HasKey("Order", "Order#1").
//		HasDataField("customer.name", "Ada").
//		HasDataField("total", 10.5)
//
// Numeric fields compare by value, so 10.5, "10.50" stored as a number and
// decimal.NewFromFloat(10.5) are all equal.
package assert

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/cloudlydb"
	"github.com/shopspring/decimal"
)

// RecordsAssertion provides fluent assertions for a list of records.
type RecordsAssertion struct {
	t    testing.TB
	recs []*cloudlydb.Record
}

// Records creates assertions for recs.
func Records(t testing.TB, recs []*cloudlydb.Record) *RecordsAssertion {
	return &RecordsAssertion{t: t, recs: recs}
}

// Items creates record assertions for raw items decoded with the default
// table layout.
func Items(t testing.TB, items []map[string]types.AttributeValue) *RecordsAssertion {
	t.Helper()
	table := cloudlydb.NewTable("")
	recs := make([]*cloudlydb.Record, 0, len(items))
	for i, item := range items {
		rec, err := table.UnmarshalRecord(item)
		if err != nil {
			t.Errorf("item %d is not a record: %v", i, err)
			continue
		}
		recs = append(recs, rec)
	}
	return Records(t, recs)
}

// HasCount asserts the number of records.
func (a *RecordsAssertion) HasCount(expected int) *RecordsAssertion {
	a.t.Helper()
	if len(a.recs) != expected {
		a.t.Errorf("expected %d records, got %d", expected, len(a.recs))
	}
	return a
}

// IsEmpty asserts there are no records.
func (a *RecordsAssertion) IsEmpty() *RecordsAssertion {
	a.t.Helper()
	return a.HasCount(0)
}

// ContainsKey asserts a record with the given keys is present.
func (a *RecordsAssertion) ContainsKey(pk, sk string) *RecordsAssertion {
	a.t.Helper()
	for _, rec := range a.recs {
		if rec.PK == pk && rec.SK == sk {
			return a
		}
	}
	a.t.Errorf("expected to find record %s/%s", pk, sk)
	return a
}

// HasSortKeys asserts the sort keys of the records, in order.
func (a *RecordsAssertion) HasSortKeys(sks ...string) *RecordsAssertion {
	a.t.Helper()
	got := make([]string, len(a.recs))
	for i, rec := range a.recs {
		got[i] = rec.SK
	}
	if !reflect.DeepEqual(got, sks) && !(len(got) == 0 && len(sks) == 0) {
		a.t.Errorf("expected sort keys %v, got %v", sks, got)
	}
	return a
}

// Each runs record assertions against every record.
func (a *RecordsAssertion) Each(fn func(*RecordAssertion)) *RecordsAssertion {
	a.t.Helper()
	for _, rec := range a.recs {
		fn(Record(a.t, rec))
	}
	return a
}

// RecordAssertion provides fluent assertions for one record.
type RecordAssertion struct {
	t   testing.TB
	rec *cloudlydb.Record
}

// Record creates assertions for rec.
func Record(t testing.TB, rec *cloudlydb.Record) *RecordAssertion {
	t.Helper()
	if rec == nil {
		t.Errorf("expected a record, got nil")
		rec = &cloudlydb.Record{}
	}
	return &RecordAssertion{t: t, rec: rec}
}

// Item creates record assertions for a raw item decoded with the default
// table layout.
func Item(t testing.TB, item map[string]types.AttributeValue) *RecordAssertion {
	t.Helper()
	rec, err := cloudlydb.NewTable("").UnmarshalRecord(item)
	if err != nil {
		t.Errorf("item is not a record: %v", err)
	}
	return Record(t, rec)
}

// HasKey asserts the record keys.
func (a *RecordAssertion) HasKey(pk, sk string) *RecordAssertion {
	a.t.Helper()
	if a.rec.PK != pk || a.rec.SK != sk {
		a.t.Errorf("expected key %s/%s, got %s/%s", pk, sk, a.rec.PK, a.rec.SK)
	}
	return a
}

// HasAttribute asserts an extra string attribute of the envelope.
func (a *RecordAssertion) HasAttribute(name, expected string) *RecordAssertion {
	a.t.Helper()
	got, ok := a.rec.Attributes[name]
	switch {
	case !ok:
		a.t.Errorf("record missing attribute %s", name)
	case got != expected:
		a.t.Errorf("attribute %s expected %s, got %s", name, expected, got)
	}
	return a
}

// HasTimestamps asserts the created and updatedAt timestamps are set.
func (a *RecordAssertion) HasTimestamps() *RecordAssertion {
	a.t.Helper()
	if a.rec.Created == "" {
		a.t.Errorf("record %s/%s has no created timestamp", a.rec.PK, a.rec.SK)
	}
	if a.rec.UpdatedAt == "" {
		a.t.Errorf("record %s/%s has no updatedAt timestamp", a.rec.PK, a.rec.SK)
	}
	return a
}

// HasDataField asserts the value at a dotted path of the record document.
func (a *RecordAssertion) HasDataField(path string, expected any) *RecordAssertion {
	a.t.Helper()
	got, ok := lookup(a.rec.Data, path)
	switch {
	case !ok:
		a.t.Errorf("data missing field %s", path)
	case !Equal(got, expected):
		a.t.Errorf("data field %s expected %v, got %v", path, expected, got)
	}
	return a
}

// HasNoDataField asserts a dotted path of the record document is absent.
func (a *RecordAssertion) HasNoDataField(path string) *RecordAssertion {
	a.t.Helper()
	if got, ok := lookup(a.rec.Data, path); ok {
		a.t.Errorf("expected data field %s to be absent, got %v", path, got)
	}
	return a
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case cloudlydb.Whole:
		return m, true
	}
	return nil, false
}

// Equal reports whether two document values are equal, comparing numbers
// by value and maps and lists element-wise.
func Equal(got, expected any) bool {
	if x, ok := number(got); ok {
		y, ok := number(expected)
		return ok && x.Equal(y)
	}
	if gm, ok := asMap(got); ok {
		em, ok := asMap(expected)
		if !ok || len(gm) != len(em) {
			return false
		}
		for k, v := range gm {
			ev, ok := em[k]
			if !ok || !Equal(v, ev) {
				return false
			}
		}
		return true
	}
	if gl, ok := got.([]any); ok {
		el, ok := expected.([]any)
		if !ok || len(gl) != len(el) {
			return false
		}
		for i := range gl {
			if !Equal(gl[i], el[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(got, expected)
}

func number(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case attributevalue.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case float32:
		return decimal.NewFromFloat32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		d, err := decimal.NewFromString(fmt.Sprint(n))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
