package dynamock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nisimpson/cloudlydb"
)

// SeedDocument is a JSON array of seed resources.
type SeedDocument []SeedResource

// SeedResource describes one fixture record. Resources are keyed either
// explicitly with pk and sk, or JSON:API style with type and id, in which
// case the record is keyed as cloudlydb.DefaultKeys would key it and the id
// is copied into the document. Attributes become the record document; Keys
// become extra string attributes such as index keys.
type SeedResource struct {
	Type       string            `json:"type,omitempty"`
	ID         string            `json:"id,omitempty"`
	PK         string            `json:"pk,omitempty"`
	SK         string            `json:"sk,omitempty"`
	Keys       map[string]string `json:"keys,omitempty"`
	Attributes map[string]any    `json:"attributes,omitempty"`
	Created    string            `json:"created,omitempty"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
}

var errUnkeyedResource = errors.New("resource requires pk and sk, or type and id")

// Record converts the resource into a record envelope.
func (r SeedResource) Record() (*cloudlydb.Record, error) {
	rec := &cloudlydb.Record{
		PK:         r.PK,
		SK:         r.SK,
		Attributes: r.Keys,
		Data:       r.Attributes,
		Created:    r.Created,
		UpdatedAt:  r.UpdatedAt,
	}

	if rec.PK == "" && rec.SK == "" {
		if r.Type == "" || r.ID == "" {
			return nil, errUnkeyedResource
		}
		rec.PK = r.Type
		rec.SK = r.Type + "#" + r.ID
		if rec.Data == nil {
			rec.Data = make(map[string]any)
		}
		if _, ok := rec.Data[cloudlydb.FieldID]; !ok {
			rec.Data[cloudlydb.FieldID] = r.ID
		}
	}
	if rec.PK == "" || rec.SK == "" {
		return nil, errUnkeyedResource
	}
	return rec, nil
}

// ParseSeedDocument decodes a seed document. Numbers are kept as
// json.Number so they are stored without float rounding.
func ParseSeedDocument(r io.Reader) ([]*cloudlydb.Record, error) {
	var doc SeedDocument
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed document: %w", err)
	}

	recs := make([]*cloudlydb.Record, 0, len(doc))
	for i, resource := range doc {
		rec, err := resource.Record()
		if err != nil {
			return nil, fmt.Errorf("resource at index %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// SeedFromJSON parses a seed document and writes its records. It returns
// the number of records written.
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	recs, err := ParseSeedDocument(r)
	if err != nil {
		return 0, err
	}
	for i, rec := range recs {
		if err := s.SeedRecord(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}
