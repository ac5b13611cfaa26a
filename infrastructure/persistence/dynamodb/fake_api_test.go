package dynamodb

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory table that understands the handful of condition
// shapes the store and locker send
type fakeAPI struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	failWith error
	puts     int
	queries  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(item map[string]types.AttributeValue) string {
	return stringAttr(item, "PK") + "|" + stringAttr(item, "SK")
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func decode(item map[string]types.AttributeValue) map[string]interface{} {
	out := map[string]interface{}{}
	_ = attributevalue.UnmarshalMap(item, &out)
	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

// check evaluates a condition against the stored item
func (f *fakeAPI) check(condition *string, names map[string]string, values map[string]types.AttributeValue, existing map[string]types.AttributeValue) bool {
	if condition == nil {
		return true
	}
	refs := map[string]bool{}
	for _, n := range names {
		refs[n] = true
	}
	var vals []interface{}
	for _, k := range sortedKeys(values) {
		var v interface{}
		_ = attributevalue.Unmarshal(values[k], &v)
		vals = append(vals, v)
	}
	stored := decode(existing)

	switch {
	case refs["Version"]:
		return existing != nil && stored["Version"] == vals[0]
	case refs["ExpiresAt"]:
		if existing == nil {
			return true
		}
		return stored["ExpiresAt"].(float64) < vals[0].(float64)
	case refs["LockID"]:
		return existing != nil && contains(vals, stored["LockID"]) && contains(vals, stored["Owner"])
	case strings.Contains(*condition, "attribute_not_exists"):
		return existing == nil
	case strings.Contains(*condition, "attribute_exists"):
		return existing != nil
	}
	return true
}

func contains(vals []interface{}, v interface{}) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]types.AttributeValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failWith != nil {
		return nil, f.failWith
	}
	key := keyOf(in.Item)
	if !f.check(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, f.items[key]) {
		return nil, conditionFailed()
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	key := keyOf(in.Key)
	if !f.check(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, f.items[key]) {
		return nil, conditionFailed()
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failWith != nil {
		return nil, f.failWith
	}

	var pk, prefix string
	for _, v := range in.ExpressionAttributeValues {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if strings.HasPrefix(s.Value, userKeyPrefix) {
			pk = s.Value
		} else {
			prefix = s.Value
		}
	}

	var keys []string
	for k, item := range f.items {
		if stringAttr(item, "PK") == pk && strings.HasPrefix(stringAttr(item, "SK"), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if in.ExclusiveStartKey != nil {
		start := keyOf(in.ExclusiveStartKey)
		i := sort.SearchStrings(keys, start)
		if i < len(keys) && keys[i] == start {
			i++
		}
		keys = keys[i:]
	}

	out := &dynamodb.QueryOutput{}
	if f.pageSize > 0 && len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		last := f.items[keys[len(keys)-1]]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}
	out.Count = int32(len(keys))
	if in.Select != types.SelectCount {
		for _, k := range keys {
			out.Items = append(out.Items, f.items[k])
		}
	}
	return out, nil
}

func (f *fakeAPI) putItemCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

var errThrottled = errors.New("ProvisionedThroughputExceededException")
