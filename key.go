package cloudlydb

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// KeyOperator is the comparison applied to the sort key in a key condition.
type KeyOperator string

// Sort key operators.
const (
	KeyEquals             KeyOperator = "="           // sk = v
	KeyBeginsWith         KeyOperator = "begins_with" // begins_with(sk, prefix)
	KeyBetween            KeyOperator = "BETWEEN"     // sk BETWEEN lo AND hi, bounds inclusive
	KeyGreaterThan        KeyOperator = ">"
	KeyGreaterThanOrEqual KeyOperator = ">="
	KeyLessThan           KeyOperator = "<"
	KeyLessThanOrEqual    KeyOperator = "<="
)

const (
	// DefaultPartitionKey is the partition key attribute name of the item envelope.
	DefaultPartitionKey = "pk"
	// DefaultSortKey is the sort key attribute name of the item envelope.
	DefaultSortKey = "sk"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// KeyQuery describes a key condition. It is an immutable value: every
// method returns a modified copy, so a base query can be shared and refined.
//
//	q := cloudlydb.Key("Order").SKBeginsWith("Order#2024")
type KeyQuery struct {
	PK       string      `validate:"required"`
	SK       []string    `validate:"required,min=1,max=2,dive,required"`
	PKName   string      // defaults to "pk"
	SKName   string      // defaults to "sk"
	Operator KeyOperator // defaults to KeyEquals
}

// Key starts a key query on the given partition key value.
func Key(pk string) KeyQuery {
	return KeyQuery{PK: pk}
}

// PKAttribute sets the partition key attribute name.
func (k KeyQuery) PKAttribute(name string) KeyQuery {
	k.PKName = name
	return k
}

// SKAttribute sets the sort key attribute name.
func (k KeyQuery) SKAttribute(name string) KeyQuery {
	k.SKName = name
	return k
}

// SKEquals matches the sort key exactly.
func (k KeyQuery) SKEquals(v string) KeyQuery {
	return k.withSK(KeyEquals, v)
}

// SKBeginsWith matches sort keys starting with prefix.
func (k KeyQuery) SKBeginsWith(prefix string) KeyQuery {
	return k.withSK(KeyBeginsWith, prefix)
}

// SKBetween matches sort keys between lo and hi, inclusive.
func (k KeyQuery) SKBetween(lo, hi string) KeyQuery {
	return k.withSK(KeyBetween, lo, hi)
}

// SKGreaterThan matches sort keys after v.
func (k KeyQuery) SKGreaterThan(v string) KeyQuery {
	return k.withSK(KeyGreaterThan, v)
}

// SKGreaterThanOrEqual matches sort keys from v on.
func (k KeyQuery) SKGreaterThanOrEqual(v string) KeyQuery {
	return k.withSK(KeyGreaterThanOrEqual, v)
}

// SKLessThan matches sort keys before v.
func (k KeyQuery) SKLessThan(v string) KeyQuery {
	return k.withSK(KeyLessThan, v)
}

// SKLessThanOrEqual matches sort keys up to and including v.
func (k KeyQuery) SKLessThanOrEqual(v string) KeyQuery {
	return k.withSK(KeyLessThanOrEqual, v)
}

func (k KeyQuery) withSK(op KeyOperator, bounds ...string) KeyQuery {
	k.Operator = op
	k.SK = bounds
	return k
}

// KeyCondition is a built key condition expression and its value placeholders.
type KeyCondition struct {
	Expression string
	Values     map[string]string
}

// Build renders the key condition, e.g. "pk = :pk AND begins_with(sk, :sk)".
// It returns ErrInvalidKey when the partition key or sort key is missing or
// the number of bounds does not match the operator.
func (k KeyQuery) Build() (KeyCondition, error) {
	if err := validate.Struct(k); err != nil {
		return KeyCondition{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	pkName, skName := k.PKName, k.SKName
	if pkName == "" {
		pkName = DefaultPartitionKey
	}
	if skName == "" {
		skName = DefaultSortKey
	}
	op := k.Operator
	if op == "" {
		op = KeyEquals
	}

	want := 1
	if op == KeyBetween {
		want = 2
	}
	if len(k.SK) != want {
		return KeyCondition{}, fmt.Errorf("%w: %s takes %d sort key bound(s), got %d", ErrInvalidKey, op, want, len(k.SK))
	}

	values := map[string]string{":pk": k.PK}
	var skExpr string
	switch op {
	case KeyEquals:
		skExpr = skName + " = :sk"
		values[":sk"] = k.SK[0]
	case KeyBeginsWith:
		skExpr = fmt.Sprintf("begins_with(%s, :sk)", skName)
		values[":sk"] = k.SK[0]
	case KeyBetween:
		skExpr = skName + " BETWEEN :sk1 AND :sk2"
		values[":sk1"] = k.SK[0]
		values[":sk2"] = k.SK[1]
	case KeyGreaterThan, KeyGreaterThanOrEqual, KeyLessThan, KeyLessThanOrEqual:
		skExpr = fmt.Sprintf("%s %s :sk", skName, op)
		values[":sk"] = k.SK[0]
	default:
		return KeyCondition{}, fmt.Errorf("%w: unsupported sort key operator %q", ErrInvalidKey, op)
	}

	return KeyCondition{
		Expression: fmt.Sprintf("%s = :pk AND %s", pkName, skExpr),
		Values:     values,
	}, nil
}
