// Package dynamotest is an in-memory stand-in for the DynamoDB calls the
// repositories make, for tests that need the conditions to actually hold.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store holds any number of single-hash-key tables. Secondary indexes are
// emulated by evaluating the key condition over every item of the table.
type Store struct {
	mu    sync.Mutex
	keys  map[string]string
	items map[string]map[string]Item

	// IndexLag makes the next IndexLag index queries come back empty, the way
	// a GSI that has not caught up with a fresh write does.
	IndexLag int
	// IndexQueries counts the queries that named an index.
	IndexQueries int
}

// New creates a store. keys maps each table name to its hash key attribute.
func New(keys map[string]string) *Store {
	s := &Store{keys: keys, items: map[string]map[string]Item{}}
	for table := range keys {
		s.items[table] = map[string]Item{}
	}
	return s
}

// Seed writes item unconditionally.
func (s *Store) Seed(table string, item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, err := s.keyOf(table, item)
	if err != nil {
		panic(err)
	}
	s.items[table][k] = clone(item)
}

// Lookup returns a copy of the item stored under key.
func (s *Store) Lookup(table, key string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[table][key]
	return clone(it), ok
}

func (s *Store) Len(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[table])
}

func (s *Store) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, err := s.keyOf(aws.ToString(in.TableName), in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := s.items[aws.ToString(in.TableName)][k]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: clone(it)}, nil
}

func (s *Store) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := aws.ToString(in.TableName)
	k, err := s.keyOf(table, in.Item)
	if err != nil {
		return nil, err
	}
	ok, err := Match(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, s.items[table][k])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	s.items[table][k] = clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (s *Store) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := aws.ToString(in.TableName)
	k, err := s.keyOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	cur := s.items[table][k]
	ok, err := Match(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, cur)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	next := clone(cur)
	if next == nil {
		next = clone(in.Key)
	}
	if err := apply(aws.ToString(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, next); err != nil {
		return nil, err
	}
	s.items[table][k] = next
	out := &dynamodb.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = clone(next)
	}
	return out, nil
}

func (s *Store) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.IndexName != nil {
		s.IndexQueries++
		if s.IndexLag > 0 {
			s.IndexLag--
			return &dynamodb.QueryOutput{}, nil
		}
	}
	var matched []Item
	for _, k := range s.sortedKeys(aws.ToString(in.TableName)) {
		it := s.items[aws.ToString(in.TableName)][k]
		ok, err := Match(in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, it)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, clone(it))
		}
		if in.Limit != nil && len(matched) == int(*in.Limit) {
			break
		}
	}
	return &dynamodb.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (s *Store) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := aws.ToString(in.TableName)
	start := ""
	if in.ExclusiveStartKey != nil {
		k, err := s.keyOf(table, in.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = k
	}
	out := &dynamodb.ScanOutput{}
	for _, k := range s.sortedKeys(table) {
		if start != "" && k <= start {
			continue
		}
		out.Items = append(out.Items, clone(s.items[table][k]))
		if in.Limit != nil && len(out.Items) == int(*in.Limit) {
			out.LastEvaluatedKey = Item{s.keys[table]: &types.AttributeValueMemberS{Value: k}}
			break
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

// TransactWriteItems applies Put and Delete actions all or nothing, reporting
// failed conditions per position the way DynamoDB does.
func (s *Store) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type write struct {
		table, key string
		item       Item
	}
	writes := make([]write, 0, len(in.TransactItems))
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	cancelled := false
	for i, ti := range in.TransactItems {
		var (
			table, cond string
			key         Item
			put         Item
			names       map[string]string
			values      map[string]types.AttributeValue
		)
		switch {
		case ti.Put != nil:
			table, key, put = aws.ToString(ti.Put.TableName), ti.Put.Item, ti.Put.Item
			cond, names, values = aws.ToString(ti.Put.ConditionExpression), ti.Put.ExpressionAttributeNames, ti.Put.ExpressionAttributeValues
		case ti.Delete != nil:
			table, key = aws.ToString(ti.Delete.TableName), ti.Delete.Key
			cond, names, values = aws.ToString(ti.Delete.ConditionExpression), ti.Delete.ExpressionAttributeNames, ti.Delete.ExpressionAttributeValues
		default:
			return nil, errors.New("dynamotest: only Put and Delete are supported in transactions")
		}
		k, err := s.keyOf(table, key)
		if err != nil {
			return nil, err
		}
		ok, err := Match(&cond, names, values, s.items[table][k])
		if err != nil {
			return nil, err
		}
		reasons[i].Code = aws.String("None")
		if !ok {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			cancelled = true
		}
		writes = append(writes, write{table: table, key: k, item: put})
	}
	if cancelled {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, w := range writes {
		if w.item == nil {
			delete(s.items[w.table], w.key)
			continue
		}
		s.items[w.table][w.key] = clone(w.item)
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (s *Store) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if _, ok := s.keys[aws.ToString(in.TableName)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func (s *Store) keyOf(table string, item Item) (string, error) {
	attr, ok := s.keys[table]
	if !ok {
		return "", fmt.Errorf("dynamotest: unknown table %q", table)
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("dynamotest: %s needs a string %s", table, attr)
	}
	return v.Value, nil
}

func (s *Store) sortedKeys(table string) []string {
	keys := make([]string, 0, len(s.items[table]))
	for k := range s.items[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clone(it Item) Item {
	if it == nil {
		return nil
	}
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
