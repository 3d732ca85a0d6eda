package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"feedback-agent/internal/domain"
)

// deleteBatchSize is the BatchWriteItem limit imposed by DynamoDB.
const deleteBatchSize = 25

// ErrNotFound is returned by Update when no record exists at the given
// (owner, timestamp) key.
var ErrNotFound = errors.New("repository: record not found")

// ErrEmptyUpdate is returned when an update request carries none of the
// mutable fields.
var ErrEmptyUpdate = errors.New("repository: update request has no fields")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Filter is the store-level search criteria for one owner's partition.
// All present criteria are combined with AND; Tags matches records
// containing any of the listed tags.
type Filter struct {
	FromMillis *int64
	ToMillis   *int64
	Category   string
	Completed  *bool
	Tags       []string
}

// UpdateRequest enumerates the fields mutable after creation. A nil field
// is left untouched; a request with every field nil is rejected.
type UpdateRequest struct {
	Completed       *bool
	Tags            []string
	Recommendations []domain.RecommendationItem
	FeedbackType    *string
}

// IsEmpty reports whether no mutable field is present.
func (r UpdateRequest) IsEmpty() bool {
	return r.Completed == nil && r.Tags == nil && r.Recommendations == nil && r.FeedbackType == nil
}

// Client wraps the DynamoDB table holding recommendation records.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// Put writes a recommendation record. A record already present at the same
// (userId, timestamp) key is overwritten; with millisecond timestamps this
// only happens on redelivery, which is accepted at-least-once behavior.
func (c *Client) Put(ctx context.Context, rec domain.Recommendation) error {
	if rec.UserID == "" {
		return errors.New("repository: Put: userId is required")
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("repository: Put marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Put: %w", err)
	}
	return nil
}

// ListByOwner returns every record for an owner, newest submission first.
func (c *Client) ListByOwner(ctx context.Context, owner string) ([]domain.Recommendation, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("userId = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: owner},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListByOwner query: %w", err)
	}
	return unmarshalRecords(out.Items)
}

// Search queries an owner's partition with the given filter. Date bounds
// go into the key condition; everything else is a filter expression
// evaluated server-side after the key read.
func (c *Client) Search(ctx context.Context, owner string, f Filter) ([]domain.Recommendation, error) {
	names := map[string]string{}
	values := map[string]types.AttributeValue{
		":u": &types.AttributeValueMemberS{Value: owner},
	}

	keyCond := "userId = :u"
	switch {
	case f.FromMillis != nil && f.ToMillis != nil:
		keyCond += " AND #ts BETWEEN :from AND :to"
		names["#ts"] = "timestamp"
		values[":from"] = numberValue(*f.FromMillis)
		values[":to"] = numberValue(*f.ToMillis)
	case f.FromMillis != nil:
		keyCond += " AND #ts >= :from"
		names["#ts"] = "timestamp"
		values[":from"] = numberValue(*f.FromMillis)
	case f.ToMillis != nil:
		keyCond += " AND #ts <= :to"
		names["#ts"] = "timestamp"
		values[":to"] = numberValue(*f.ToMillis)
	}

	var filters []string
	if f.Category != "" {
		filters = append(filters, "feedbackType = :cat")
		values[":cat"] = &types.AttributeValueMemberS{Value: f.Category}
	}
	if f.Completed != nil {
		filters = append(filters, "completed = :done")
		values[":done"] = &types.AttributeValueMemberBOOL{Value: *f.Completed}
	}
	if len(f.Tags) > 0 {
		names["#tags"] = "tags"
		var tagConds []string
		for i, tag := range f.Tags {
			ph := ":tag" + strconv.Itoa(i)
			tagConds = append(tagConds, "contains(#tags, "+ph+")")
			values[ph] = &types.AttributeValueMemberS{Value: tag}
		}
		filters = append(filters, "("+strings.Join(tagConds, " OR ")+")")
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
	}
	if len(names) > 0 {
		in.ExpressionAttributeNames = names
	}
	if len(filters) > 0 {
		in.FilterExpression = aws.String(strings.Join(filters, " AND "))
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: Search query: %w", err)
	}
	return unmarshalRecords(out.Items)
}

// Update applies the present fields of req to the record at
// (owner, timestamp), refreshing updatedAt, and returns the full updated
// record. ErrNotFound is returned when no record exists at that key;
// ErrEmptyUpdate when req carries nothing.
func (c *Client) Update(ctx context.Context, owner string, timestamp int64, req UpdateRequest) (domain.Recommendation, error) {
	if req.IsEmpty() {
		return domain.Recommendation{}, ErrEmptyUpdate
	}

	names := map[string]string{"#updatedAt": "updatedAt"}
	values := map[string]types.AttributeValue{
		":updatedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}
	sets := []string{"#updatedAt = :updatedAt"}

	if req.Completed != nil {
		names["#completed"] = "completed"
		values[":completed"] = &types.AttributeValueMemberBOOL{Value: *req.Completed}
		sets = append(sets, "#completed = :completed")
	}
	if req.Tags != nil {
		av, err := attributevalue.Marshal(req.Tags)
		if err != nil {
			return domain.Recommendation{}, fmt.Errorf("repository: Update marshal tags: %w", err)
		}
		names["#tags"] = "tags"
		values[":tags"] = av
		sets = append(sets, "#tags = :tags")
	}
	if req.Recommendations != nil {
		av, err := attributevalue.Marshal(req.Recommendations)
		if err != nil {
			return domain.Recommendation{}, fmt.Errorf("repository: Update marshal recommendations: %w", err)
		}
		names["#recs"] = "recommendations"
		values[":recs"] = av
		sets = append(sets, "#recs = :recs")
	}
	if req.FeedbackType != nil {
		names["#feedbackType"] = "feedbackType"
		values[":feedbackType"] = &types.AttributeValueMemberS{Value: *req.FeedbackType}
		sets = append(sets, "#feedbackType = :feedbackType")
	}

	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key:       recordKey(owner, timestamp),
		// Update never creates; a missing target is the caller's NotFound.
		ConditionExpression:       aws.String("attribute_exists(userId)"),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return domain.Recommendation{}, ErrNotFound
		}
		return domain.Recommendation{}, fmt.Errorf("repository: Update: %w", err)
	}

	var rec domain.Recommendation
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return domain.Recommendation{}, fmt.Errorf("repository: Update unmarshal: %w", err)
	}
	return rec, nil
}

// DeleteAllByOwner removes every record for an owner and returns how many
// were deleted. An owner with no records deletes zero, which is not an
// error.
func (c *Client) DeleteAllByOwner(ctx context.Context, owner string) (int, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("userId = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: owner},
		},
		ProjectionExpression:     aws.String("userId, #ts"),
		ExpressionAttributeNames: map[string]string{"#ts": "timestamp"},
	})
	if err != nil {
		return 0, fmt.Errorf("repository: DeleteAllByOwner query: %w", err)
	}
	if len(out.Items) == 0 {
		return 0, nil
	}

	deleted := 0
	for start := 0; start < len(out.Items); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(out.Items))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range out.Items[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: keyOnly(item)},
			})
		}

		if err := c.deleteBatch(ctx, requests); err != nil {
			return deleted, err
		}
		deleted += end - start
	}
	return deleted, nil
}

// deleteBatch issues one BatchWriteItem call and resubmits any unprocessed
// deletes until the batch drains.
func (c *Client) deleteBatch(ctx context.Context, requests []types.WriteRequest) error {
	for len(requests) > 0 {
		out, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{c.tableName: requests},
		})
		if err != nil {
			return fmt.Errorf("repository: DeleteAllByOwner batch write: %w", err)
		}
		requests = nil
		if out != nil {
			requests = out.UnprocessedItems[c.tableName]
		}
	}
	return nil
}

func recordKey(owner string, timestamp int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId":    &types.AttributeValueMemberS{Value: owner},
		"timestamp": numberValue(timestamp),
	}
}

// keyOnly restricts a projected item to the table's key attributes.
func keyOnly(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId":    item["userId"],
		"timestamp": item["timestamp"],
	}
}

func numberValue(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func unmarshalRecords(items []map[string]types.AttributeValue) ([]domain.Recommendation, error) {
	recs := make([]domain.Recommendation, 0, len(items))
	for _, item := range items {
		var rec domain.Recommendation
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("repository: unmarshal record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
