// Package dynamotest provides an in-memory DynamoDB for tests. It understands
// the subset of expressions the task tracker issues: attribute_exists and
// attribute_not_exists conditions, "SET #a = :a, ..." updates and single
// "#name = :value" scan filters.
package dynamotest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

type item = map[string]*dynamodb.AttributeValue

type table struct {
	key   string
	items map[string]item
}

// DB is a fake dynamodbiface.DynamoDBAPI. Calls outside the implemented set
// panic through the nil embedded interface.
type DB struct {
	dynamodbiface.DynamoDBAPI

	mu       sync.Mutex
	tables   map[string]*table
	failWith error

	// PageSize bounds each Scan page so callers must follow LastEvaluatedKey.
	PageSize int
	// Scans counts ScanWithContext calls.
	Scans int
	// EventualReads counts GetItemWithContext calls without ConsistentRead.
	EventualReads int
}

// New returns a fake with one table per name → hash key entry.
func New(tables map[string]string) *DB {
	db := &DB{tables: map[string]*table{}, PageSize: 2}
	for name, key := range tables {
		db.tables[name] = &table{key: key, items: map[string]item{}}
	}
	return db
}

// FailWith makes every later call return err. Pass nil to recover.
func (db *DB) FailWith(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failWith = err
}

// PutRaw stores an item as-is, bypassing marshalling, to seed malformed data.
func (db *DB) PutRaw(tableName string, it map[string]*dynamodb.AttributeValue) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t := db.tables[tableName]
	t.items[aws.StringValue(it[t.key].S)] = copyItem(it)
}

// Len returns the number of items in a table.
func (db *DB) Len(tableName string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.tables[tableName].items)
}

func (db *DB) lookup(name *string) (*table, error) {
	if db.failWith != nil {
		return nil, db.failWith
	}
	t, ok := db.tables[aws.StringValue(name)]
	if !ok {
		return nil, awserr.New(dynamodb.ErrCodeResourceNotFoundException, "Requested resource not found", nil)
	}
	return t, nil
}

func (db *DB) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.lookup(in.TableName)
	if err != nil {
		return nil, err
	}
	key := aws.StringValue(in.Item[t.key].S)
	if key == "" {
		return nil, awserr.New("ValidationException", "missing key "+t.key, nil)
	}
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, t.items[key]); err != nil {
		return nil, err
	}

	t.items[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (db *DB) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.lookup(in.TableName)
	if err != nil {
		return nil, err
	}
	if !aws.BoolValue(in.ConsistentRead) {
		db.EventualReads++
	}
	it, ok := t.items[aws.StringValue(in.Key[t.key].S)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(it)}, nil
}

func (db *DB) UpdateItemWithContext(_ aws.Context, in *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.lookup(in.TableName)
	if err != nil {
		return nil, err
	}
	key := aws.StringValue(in.Key[t.key].S)
	existing := t.items[key]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, existing); err != nil {
		return nil, err
	}

	updated := copyItem(existing)
	if updated == nil {
		updated = item{t.key: {S: aws.String(key)}}
	}

	expr := strings.TrimSpace(aws.StringValue(in.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}
	for _, clause := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		name, placeholder, ok := splitEquality(clause)
		if !ok {
			return nil, fmt.Errorf("dynamotest: unsupported clause %q", clause)
		}
		value, ok := in.ExpressionAttributeValues[placeholder]
		if !ok {
			return nil, fmt.Errorf("dynamotest: missing value %s", placeholder)
		}
		updated[resolveName(name, in.ExpressionAttributeNames)] = value
	}

	t.items[key] = updated
	return &dynamodb.UpdateItemOutput{}, nil
}

func (db *DB) DeleteItemWithContext(_ aws.Context, in *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := db.lookup(in.TableName)
	if err != nil {
		return nil, err
	}
	delete(t.items, aws.StringValue(in.Key[t.key].S))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (db *DB) ScanWithContext(_ aws.Context, in *dynamodb.ScanInput, _ ...request.Option) (*dynamodb.ScanOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Scans++

	t, err := db.lookup(in.TableName)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := aws.StringValue(in.ExclusiveStartKey[t.key].S)
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}

	end := len(keys)
	if db.PageSize > 0 && start+db.PageSize < end {
		end = start + db.PageSize
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		it := t.items[k]
		if in.FilterExpression != nil {
			match, err := matchFilter(aws.StringValue(in.FilterExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, it)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		out.Items = append(out.Items, copyItem(it))
	}
	if end < len(keys) {
		out.LastEvaluatedKey = item{t.key: {S: aws.String(keys[end-1])}}
	}
	out.Count = aws.Int64(int64(len(out.Items)))
	return out, nil
}

func (db *DB) DescribeTableWithContext(_ aws.Context, in *dynamodb.DescribeTableInput, _ ...request.Option) (*dynamodb.DescribeTableOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.lookup(in.TableName); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{
		Table: &dynamodb.TableDescription{
			TableName:   in.TableName,
			TableStatus: aws.String(dynamodb.TableStatusActive),
		},
	}, nil
}

func (db *DB) CreateTableWithContext(_ aws.Context, in *dynamodb.CreateTableInput, _ ...request.Option) (*dynamodb.CreateTableOutput, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.failWith != nil {
		return nil, db.failWith
	}
	name := aws.StringValue(in.TableName)
	if _, ok := db.tables[name]; ok {
		return nil, awserr.New(dynamodb.ErrCodeResourceInUseException, "Table already exists", nil)
	}
	if len(in.KeySchema) != 1 {
		return nil, fmt.Errorf("dynamotest: only single hash keys are supported")
	}
	db.tables[name] = &table{key: aws.StringValue(in.KeySchema[0].AttributeName), items: map[string]item{}}
	return &dynamodb.CreateTableOutput{}, nil
}

func (db *DB) WaitUntilTableExistsWithContext(_ aws.Context, in *dynamodb.DescribeTableInput, _ ...request.WaiterOption) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.lookup(in.TableName)
	return err
}

// HasTable reports whether the fake knows the table.
func (db *DB) HasTable(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.tables[name]
	return ok
}

func checkCondition(cond *string, names map[string]*string, existing item) error {
	if cond == nil {
		return nil
	}
	expr := strings.TrimSpace(*cond)

	var wantExists bool
	switch {
	case strings.HasPrefix(expr, "attribute_exists(") && strings.HasSuffix(expr, ")"):
		wantExists = true
		expr = strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_exists("), ")")
	case strings.HasPrefix(expr, "attribute_not_exists(") && strings.HasSuffix(expr, ")"):
		expr = strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_not_exists("), ")")
	default:
		return fmt.Errorf("dynamotest: unsupported condition %q", *cond)
	}

	_, exists := existing[resolveName(strings.TrimSpace(expr), names)]
	if exists != wantExists {
		return awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
	}
	return nil
}

func matchFilter(expr string, names map[string]*string, values map[string]*dynamodb.AttributeValue, it item) (bool, error) {
	name, placeholder, ok := splitEquality(expr)
	if !ok {
		return false, fmt.Errorf("dynamotest: unsupported filter %q", expr)
	}
	want, ok := values[placeholder]
	if !ok {
		return false, fmt.Errorf("dynamotest: missing value %s", placeholder)
	}
	got, ok := it[resolveName(name, names)]
	if !ok {
		return false, nil
	}
	return aws.StringValue(got.S) == aws.StringValue(want.S), nil
}

func splitEquality(clause string) (string, string, bool) {
	parts := strings.SplitN(clause, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func resolveName(name string, names map[string]*string) string {
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return aws.StringValue(resolved)
		}
	}
	return name
}

func copyItem(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
