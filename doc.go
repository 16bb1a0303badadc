// Package cloudlydb compiles nested, schema-less documents into DynamoDB
// requests over the AWS SDK for Go v2 client.
//
// # Record envelope
//
// Every item in a table is a record envelope:
//
//	{pk, sk, data, created, updatedAt}
//
// where data is the caller's document. Table configures the attribute names
// and marshals commands into SDK input structs; Store executes them.
//
// # Update expressions
//
// Compile flattens a document into one clause per leaf, addressing every
// attribute through placeholders:
//
//	expr, _ := cloudlydb.Compile(map[string]any{
//		"name": "Alice",
//		"car":  map[string]any{"num": "XYZ", "vin": "123"},
//	}, cloudlydb.ModeAssign)
//
//	expr.String() // SET #car.#carnum = :carnum, #car.#carvin = :carvin, #name = :name
//
// Sibling fields already stored under car are left untouched. DynamoDB
// rejects a SET on a nested path whose parent does not exist yet; wrap such
// maps in Whole to assign them as a single value:
//
//	store.Update(ctx, key, map[string]any{
//		"address": cloudlydb.Whole{"city": "Lisbon"},
//	})
//
// ModeAccumulate compiles to an ADD action and backs Store.Accumulate, an
// atomic counter increment.
//
// # Stats
//
// MergeStats merges an increment into stored stats so that it can be
// assigned back. Store.AccumulateStats combines a read, the merge and an
// update. It is not safe for concurrent writers; prefer Store.Accumulate
// where atomicity matters.
//
// # Queries and pagination
//
// KeyQuery builds key conditions:
//
//	results, err := store.Query(ctx, cloudlydb.QueryInput{
//		Key:    cloudlydb.Key("Order").SKBeginsWith("Order#2024"),
//		Fields: []string{"total", "customer.name"},
//	})
//
// results.NextCursor is an opaque token holding the key of the last item;
// pass it back as QueryInput.Cursor to read the next page.
//
// # Errors
//
// Failed write conditions are reported as StoreError values matching
// ErrConditionNotMet, expressions the store rejects for the shape of the
// stored item as ErrMalformedItem. Other failures are returned unchanged.
//
// # Testing
//
// The dynamock package provides an in-memory client that interprets the
// requests built here, an expectation-based mock client, and helpers for
// integration tests against DynamoDB Local.
package cloudlydb
