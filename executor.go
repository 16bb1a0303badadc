package cloudlydb

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition is a condition expression attached to a write. The write fails
// with ErrConditionNotMet when the condition evaluates to false.
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// NewCondition builds a Condition with the SDK expression builder.
//
//	cond, err := cloudlydb.NewCondition(expression.Name("data.version").Equal(expression.Value(3)))
func NewCondition(cond expression.ConditionBuilder) (*Condition, error) {
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build condition: %w", err)
	}
	return &Condition{
		Expression: aws.ToString(expr.Condition()),
		Names:      expr.Names(),
		Values:     expr.Values(),
	}, nil
}

// ItemExists returns a condition that holds when the item has attr, usually
// its partition key, i.e. when the item already exists.
func ItemExists(attr string) (*Condition, error) {
	return NewCondition(expression.AttributeExists(expression.Name(attr)))
}

// ItemNotExists returns a condition that holds when the item has no attr,
// usually its partition key, i.e. when the item does not exist yet.
func ItemNotExists(attr string) (*Condition, error) {
	return NewCondition(expression.AttributeNotExists(expression.Name(attr)))
}

// WriteOptions configures a single write command.
type WriteOptions struct {
	Condition *Condition
}

// WithCondition attaches a condition to a write.
func WithCondition(c *Condition) func(*WriteOptions) {
	return func(o *WriteOptions) {
		o.Condition = c
	}
}

func newWriteOptions(opts []func(*WriteOptions)) WriteOptions {
	var o WriteOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// placeholders collects the names and values of one request.
type placeholders struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func (p *placeholders) addNames(names map[string]string) error {
	for alias, name := range names {
		if bound, ok := p.names[alias]; ok && bound != name {
			return fmt.Errorf("%w: %s is bound to %q and %q", ErrAliasConflict, alias, bound, name)
		}
		if p.names == nil {
			p.names = make(map[string]string)
		}
		p.names[alias] = name
	}
	return nil
}

func (p *placeholders) addValues(values map[string]types.AttributeValue) error {
	for alias, value := range values {
		if bound, ok := p.values[alias]; ok && !reflect.DeepEqual(bound, value) {
			return fmt.Errorf("%w: %s is bound to two values", ErrAliasConflict, alias)
		}
		if p.values == nil {
			p.values = make(map[string]types.AttributeValue)
		}
		p.values[alias] = value
	}
	return nil
}

// addCondition merges the condition's placeholders and returns its expression.
func (p *placeholders) addCondition(c *Condition) (*string, error) {
	if c == nil || c.Expression == "" {
		return nil, nil
	}
	if err := p.addNames(c.Names); err != nil {
		return nil, err
	}
	if err := p.addValues(c.Values); err != nil {
		return nil, err
	}
	return aws.String(c.Expression), nil
}

// Store executes commands against a table. Failed write conditions and
// rejected put or update expressions are classified into StoreError kinds;
// every other error is returned unchanged.
type Store struct {
	Table  *Table
	Client DynamoDBClient
}

// NewStore creates a Store for the table.
func NewStore(client DynamoDBClient, table *Table) *Store {
	return &Store{Table: table, Client: client}
}

// execute runs a store call, logging it and classifying its failure.
func (s *Store) execute(ctx context.Context, op string, key ItemKey, call func(context.Context) error) error {
	logger := s.Table.Logger.With().
		Str("op", op).
		Str("table", s.Table.TableName).
		Str("pk", key.PK).
		Str("sk", key.SK).
		Logger()

	logger.Debug().Msg("executing command")
	err := classifyError(op, call(ctx))
	if err != nil {
		logger.Warn().Err(err).Msg("command failed")
	}
	return err
}
