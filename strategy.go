package cloudlydb

import (
	"errors"
	"fmt"
)

// ItemKey identifies a single item in the table.
type ItemKey struct {
	PK string
	SK string

	// Attributes holds additional string key attributes written with the
	// item, such as secondary index keys. It is ignored by reads and deletes.
	Attributes map[string]string
}

// KeyStrategy derives item keys from record data for each kind of command.
type KeyStrategy interface {
	ForCreate(data map[string]any) (ItemKey, error)
	ForUpdate(data map[string]any) (ItemKey, error)
	ForQuery(data map[string]any) (KeyQuery, error)
	ForDelete(data map[string]any) (ItemKey, error)
}

// DefaultKeys stores every record of a model in one partition named after
// the model, sorted by "<prefix>#<id>".
type DefaultKeys struct {
	Model    string // partition key value
	SKPrefix string // sort key prefix, defaults to Model
	IDField  string // data field holding the id, defaults to "id"
}

func (d DefaultKeys) prefix() string {
	if d.SKPrefix != "" {
		return d.SKPrefix
	}
	return d.Model
}

func (d DefaultKeys) key(data map[string]any) (ItemKey, error) {
	if d.Model == "" {
		return ItemKey{}, fmt.Errorf("%w: model name is required", ErrInvalidKey)
	}
	field := d.IDField
	if field == "" {
		field = FieldID
	}
	id, _ := data[field].(string)
	if id == "" {
		return ItemKey{}, fmt.Errorf("%w: %s: missing %q", ErrInvalidKey, d.Model, field)
	}
	return ItemKey{PK: d.Model, SK: d.prefix() + "#" + id}, nil
}

// ForCreate keys the record by its id field.
func (d DefaultKeys) ForCreate(data map[string]any) (ItemKey, error) { return d.key(data) }

// ForUpdate keys the record by its id field.
func (d DefaultKeys) ForUpdate(data map[string]any) (ItemKey, error) { return d.key(data) }

// ForDelete keys the record by its id field.
func (d DefaultKeys) ForDelete(data map[string]any) (ItemKey, error) { return d.key(data) }

// ForQuery selects every record of the model.
func (d DefaultKeys) ForQuery(map[string]any) (KeyQuery, error) {
	if d.Model == "" {
		return KeyQuery{}, fmt.Errorf("%w: model name is required", ErrInvalidKey)
	}
	return Key(d.Model).SKBeginsWith(d.prefix() + "#"), nil
}

// KeyFuncs overrides individual key derivations and falls back to Base for
// the ones left nil.
type KeyFuncs struct {
	Base   KeyStrategy
	Create func(data map[string]any) (ItemKey, error)
	Update func(data map[string]any) (ItemKey, error)
	Query  func(data map[string]any) (KeyQuery, error)
	Delete func(data map[string]any) (ItemKey, error)
}

var errNoKeyStrategy = errors.New("no key strategy")

// ForCreate uses the Create func when set, then Base.
func (k KeyFuncs) ForCreate(data map[string]any) (ItemKey, error) {
	switch {
	case k.Create != nil:
		return k.Create(data)
	case k.Base != nil:
		return k.Base.ForCreate(data)
	}
	return ItemKey{}, fmt.Errorf("%w: %w for create", ErrInvalidKey, errNoKeyStrategy)
}

// ForUpdate uses the Update func when set, then Base.
func (k KeyFuncs) ForUpdate(data map[string]any) (ItemKey, error) {
	switch {
	case k.Update != nil:
		return k.Update(data)
	case k.Base != nil:
		return k.Base.ForUpdate(data)
	}
	return ItemKey{}, fmt.Errorf("%w: %w for update", ErrInvalidKey, errNoKeyStrategy)
}

// ForQuery uses the Query func when set, then Base.
func (k KeyFuncs) ForQuery(data map[string]any) (KeyQuery, error) {
	switch {
	case k.Query != nil:
		return k.Query(data)
	case k.Base != nil:
		return k.Base.ForQuery(data)
	}
	return KeyQuery{}, fmt.Errorf("%w: %w for query", ErrInvalidKey, errNoKeyStrategy)
}

// ForDelete uses the Delete func when set, then Base.
func (k KeyFuncs) ForDelete(data map[string]any) (ItemKey, error) {
	switch {
	case k.Delete != nil:
		return k.Delete(data)
	case k.Base != nil:
		return k.Base.ForDelete(data)
	}
	return ItemKey{}, fmt.Errorf("%w: %w for delete", ErrInvalidKey, errNoKeyStrategy)
}
