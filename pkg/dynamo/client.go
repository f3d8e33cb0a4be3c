// Package dynamo wraps the DynamoDB client with the retry and batching
// behavior the repositories rely on. It keeps expression plumbing in one
// place so repositories deal in items and keys, not SDK input structs.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sethvargo/go-retry"
)

const (
	// batchWriteMax and batchGetMax are DynamoDB API limits per request.
	batchWriteMax = 25
	batchGetMax   = 100

	// Transient capacity rejections get three attempts total.
	retryBaseDelay = 1 * time.Second
	retryMax       = 2
)

// API is the subset of the DynamoDB client the wrapper uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client is a thin retrying wrapper over the DynamoDB API.
type Client struct {
	api API
}

func New(api API) *Client {
	return &Client{api: api}
}

// withRetry runs fn, retrying with exponential backoff only when the table
// rejects the request for capacity. Everything else surfaces immediately.
func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retryMax, retry.NewExponential(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsThroughputExceeded(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Get loads a single item by key and unmarshals it into out. The boolean
// reports whether the item exists.
func (c *Client) Get(ctx context.Context, table string, key map[string]types.AttributeValue, out any) (bool, error) {
	var res *dynamodb.GetItemOutput
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.api.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: &table,
			Key:       key,
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("get item from %s: %w", table, err)
	}
	if len(res.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal item from %s: %w", table, err)
	}
	return true, nil
}

// Put writes the marshaled item unconditionally.
func (c *Client) Put(ctx context.Context, table string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item for %s: %w", table, err)
	}
	err = c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &table,
			Item:      av,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("put item to %s: %w", table, err)
	}
	return nil
}

// UpdateInput describes a single guarded or unguarded update expression.
type UpdateInput struct {
	Table     string
	Key       map[string]types.AttributeValue
	Update    string
	Condition string
	Names     map[string]string
	Values    map[string]types.AttributeValue
}

// Update applies an update expression. A failed condition is reported as
// ErrConditionFailed so callers can distinguish races from real failures.
func (c *Client) Update(ctx context.Context, in UpdateInput) error {
	req := &dynamodb.UpdateItemInput{
		TableName:                 &in.Table,
		Key:                       in.Key,
		UpdateExpression:          &in.Update,
		ExpressionAttributeValues: in.Values,
	}
	if in.Condition != "" {
		req.ConditionExpression = &in.Condition
	}
	if len(in.Names) > 0 {
		req.ExpressionAttributeNames = in.Names
	}
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.api.UpdateItem(ctx, req)
		return err
	})
	if err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("update item in %s: %w", in.Table, err)
	}
	return nil
}

// TransactUpdates applies up to the transaction limit of update expressions
// atomically. Any failed condition cancels the whole transaction and is
// reported as ErrConditionFailed.
func (c *Client) TransactUpdates(ctx context.Context, updates []UpdateInput) error {
	items := make([]types.TransactWriteItem, 0, len(updates))
	for i := range updates {
		u := updates[i]
		upd := &types.Update{
			TableName:                 &u.Table,
			Key:                       u.Key,
			UpdateExpression:          &u.Update,
			ExpressionAttributeValues: u.Values,
		}
		if u.Condition != "" {
			upd.ConditionExpression = &u.Condition
		}
		if len(u.Names) > 0 {
			upd.ExpressionAttributeNames = u.Names
		}
		items = append(items, types.TransactWriteItem{Update: upd})
	}
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		return err
	})
	if err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("transact updates: %w", err)
	}
	return nil
}

// Delete removes a single item by key. Deleting a missing item is not an
// error.
func (c *Client) Delete(ctx context.Context, table string, key map[string]types.AttributeValue) error {
	err := c.withRetry(ctx, func(ctx context.Context) error {
		_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: &table,
			Key:       key,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete item from %s: %w", table, err)
	}
	return nil
}

// QueryInput describes one page of an index query.
type QueryInput struct {
	Table         string
	Index         string
	KeyExpression string
	Names         map[string]string
	Values        map[string]types.AttributeValue
	Limit         int32
	StartKey      map[string]types.AttributeValue
}

// QueryPage runs one query page and returns the raw items plus the key to
// resume from, nil when the result set is exhausted.
func (c *Client) QueryPage(ctx context.Context, in QueryInput) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	req := &dynamodb.QueryInput{
		TableName:                 &in.Table,
		KeyConditionExpression:    &in.KeyExpression,
		ExpressionAttributeValues: in.Values,
	}
	if in.Index != "" {
		req.IndexName = &in.Index
	}
	if len(in.Names) > 0 {
		req.ExpressionAttributeNames = in.Names
	}
	if in.Limit > 0 {
		req.Limit = &in.Limit
	}
	if len(in.StartKey) > 0 {
		req.ExclusiveStartKey = in.StartKey
	}
	var res *dynamodb.QueryOutput
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.api.Query(ctx, req)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", in.Table, err)
	}
	return res.Items, res.LastEvaluatedKey, nil
}

// ScanPage runs one scan page over the whole table.
func (c *Client) ScanPage(ctx context.Context, table string, limit int32, startKey map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	req := &dynamodb.ScanInput{TableName: &table}
	if limit > 0 {
		req.Limit = &limit
	}
	if len(startKey) > 0 {
		req.ExclusiveStartKey = startKey
	}
	var res *dynamodb.ScanOutput
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.api.Scan(ctx, req)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", table, err)
	}
	return res.Items, res.LastEvaluatedKey, nil
}

// BatchPut writes items in chunks, resubmitting any the service reports as
// unprocessed before moving to the next chunk.
func (c *Client) BatchPut(ctx context.Context, table string, items []map[string]types.AttributeValue) error {
	for start := 0; start < len(items); start += batchWriteMax {
		end := min(start+batchWriteMax, len(items))
		writes := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			writes = append(writes, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}
		if err := c.batchWrite(ctx, table, writes); err != nil {
			return err
		}
	}
	return nil
}

// BatchDelete removes items by key in chunks.
func (c *Client) BatchDelete(ctx context.Context, table string, keys []map[string]types.AttributeValue) error {
	for start := 0; start < len(keys); start += batchWriteMax {
		end := min(start+batchWriteMax, len(keys))
		writes := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			writes = append(writes, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}
		if err := c.batchWrite(ctx, table, writes); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) batchWrite(ctx context.Context, table string, writes []types.WriteRequest) error {
	pending := writes
	return c.withRetry(ctx, func(ctx context.Context) error {
		res, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: pending},
		})
		if err != nil {
			return err
		}
		if rest := res.UnprocessedItems[table]; len(rest) > 0 {
			pending = rest
			return retry.RetryableError(fmt.Errorf("batch write to %s: %d unprocessed", table, len(rest)))
		}
		return nil
	})
}

// BatchGet loads items by key in chunks, following unprocessed keys until
// every requested item has been attempted once.
func (c *Client) BatchGet(ctx context.Context, table string, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for start := 0; start < len(keys); start += batchGetMax {
		end := min(start+batchGetMax, len(keys))
		pending := keys[start:end]
		err := c.withRetry(ctx, func(ctx context.Context) error {
			res, err := c.api.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{
					table: {Keys: pending},
				},
			})
			if err != nil {
				return err
			}
			items = append(items, res.Responses[table]...)
			if rest, ok := res.UnprocessedKeys[table]; ok && len(rest.Keys) > 0 {
				pending = rest.Keys
				return retry.RetryableError(fmt.Errorf("batch get from %s: %d unprocessed", table, len(rest.Keys)))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}
