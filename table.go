package cloudlydb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MarshalPut marshals the record into a dynamodb put item input request.
func (t *Table) MarshalPut(rec *Record, opts ...func(*WriteOptions)) (*dynamodb.PutItemInput, error) {
	item, err := t.MarshalRecord(rec)
	if err != nil {
		return nil, err
	}

	var p placeholders
	cond, err := p.addCondition(newWriteOptions(opts).Condition)
	if err != nil {
		return nil, err
	}

	return &dynamodb.PutItemInput{
		TableName:                 aws.String(t.TableName),
		Item:                      item,
		ConditionExpression:       cond,
		ExpressionAttributeNames:  p.names,
		ExpressionAttributeValues: p.values,
	}, nil
}

// MarshalUpdate marshals a partial update of the record document into a
// dynamodb update item input request. Nested maps in doc are flattened into
// one SET clause per leaf, so sibling fields already stored are left alone;
// wrap a map in Whole to assign it as a single value. The updatedAt
// timestamp is always set. The request returns the updated item.
func (t *Table) MarshalUpdate(key ItemKey, doc map[string]any, opts ...func(*WriteOptions)) (*dynamodb.UpdateItemInput, error) {
	update := map[string]any{AttributeUpdatedAt: t.now()}
	if len(doc) > 0 {
		update[t.DataAttribute] = doc
	}
	return t.marshalUpdate(key, update, ModeAssign, opts)
}

// MarshalAccumulate marshals an atomic increment of the numeric leaves of
// doc into a dynamodb update item input request. It returns
// ErrEmptyExpression when doc holds no leaves.
func (t *Table) MarshalAccumulate(key ItemKey, doc map[string]any, opts ...func(*WriteOptions)) (*dynamodb.UpdateItemInput, error) {
	return t.marshalUpdate(key, map[string]any{t.DataAttribute: doc}, ModeAccumulate, opts)
}

func (t *Table) marshalUpdate(key ItemKey, update map[string]any, mode Mode, opts []func(*WriteOptions)) (*dynamodb.UpdateItemInput, error) {
	expr, err := Compile(update, mode)
	if err != nil {
		return nil, err
	}

	values, err := marshalValues(expr.Values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update values: %w", err)
	}

	var p placeholders
	if err := p.addNames(expr.Names); err != nil {
		return nil, err
	}
	if err := p.addValues(values); err != nil {
		return nil, err
	}
	cond, err := p.addCondition(newWriteOptions(opts).Condition)
	if err != nil {
		return nil, err
	}

	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.TableName),
		Key:                       t.keyItem(key),
		UpdateExpression:          aws.String(expr.String()),
		ConditionExpression:       cond,
		ExpressionAttributeNames:  p.names,
		ExpressionAttributeValues: p.values,
		ReturnValues:              types.ReturnValueAllNew,
	}, nil
}

// MarshalGet marshals a dynamodb get item input request. When fields are
// given, only those paths of the record document are read.
func (t *Table) MarshalGet(key ItemKey, fields ...string) (*dynamodb.GetItemInput, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(t.TableName),
		Key:       t.keyItem(key),
	}

	if len(fields) > 0 {
		proj, err := t.projection(fields)
		if err != nil {
			return nil, err
		}
		input.ProjectionExpression = aws.String(proj.Expression)
		input.ExpressionAttributeNames = proj.Names
	}

	return input, nil
}

// MarshalDelete marshals a dynamodb delete item input request. The request
// returns the deleted item.
func (t *Table) MarshalDelete(key ItemKey, opts ...func(*WriteOptions)) (*dynamodb.DeleteItemInput, error) {
	var p placeholders
	cond, err := p.addCondition(newWriteOptions(opts).Condition)
	if err != nil {
		return nil, err
	}

	return &dynamodb.DeleteItemInput{
		TableName:                 aws.String(t.TableName),
		Key:                       t.keyItem(key),
		ConditionExpression:       cond,
		ExpressionAttributeNames:  p.names,
		ExpressionAttributeValues: p.values,
		ReturnValues:              types.ReturnValueAllOld,
	}, nil
}

// projection builds a projection over the envelope keys and the given
// record document fields.
func (t *Table) projection(fields []string) (ProjectionExpr, error) {
	paths := make([]string, 0, len(fields)+2)
	paths = append(paths, t.PartitionKey, t.SortKey)
	for _, field := range fields {
		paths = append(paths, t.DataAttribute+"."+field)
	}
	return Projection(paths...)
}
