package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoStore is an alternate Store backend for deployments that keep the
// event log in DynamoDB instead of a SQL database. It demonstrates that
// Store is genuinely storage-agnostic: the same aggregate code that runs
// against GormStore runs unmodified here.
//
// Single-table design:
//   - Partition key "pk" = aggregateID (aggregate IDs are globally unique
//     ksuids, so no instance/type prefix is needed to disambiguate).
//   - Sort key "sk" = zero-padded aggregateVersion, for ordered Load.
//   - A global secondary index "gsi_global" with partition key "gsi1pk"
//     (the constant "EVENTLOG") and sort key "gsi1sk" (zero-padded
//     globalPosition) supports Query's cross-aggregate ordering.
//
// Global position is assigned by atomically incrementing a counter item at
// pk="__counter__", sk="global_position" before the batch write.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	gsiName   string
}

const (
	dynamoCounterPK      = "__counter__"
	dynamoCounterSK      = "global_position"
	dynamoGlobalIndexPK  = "EVENTLOG"
	dynamoPositionDigits = 20
	dynamoVersionDigits  = 20
)

// NewDynamoStore creates a DynamoDB-backed event store. The table must
// already exist with pk/sk as the primary key and a GSI named gsiName
// keyed on gsi1pk/gsi1sk; provisioning is an operational concern, not
// something the store does on construction (unlike GormStore's
// AutoMigrate, DynamoDB tables are not migrated at connect time).
func NewDynamoStore(client *dynamodb.Client, tableName, gsiName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, gsiName: gsiName}
}

type dynamoEventItem struct {
	PK             string `dynamodbav:"pk"`
	SK             string `dynamodbav:"sk"`
	GSI1PK         string `dynamodbav:"gsi1pk"`
	GSI1SK         string `dynamodbav:"gsi1sk"`
	InstanceID     string `dynamodbav:"instance_id"`
	AggregateType  string `dynamodbav:"aggregate_type"`
	AggregateID    string `dynamodbav:"aggregate_id"`
	Version        int64  `dynamodbav:"aggregate_version"`
	Owner          string `dynamodbav:"owner"`
	EventType      string `dynamodbav:"event_type"`
	GlobalPosition int64  `dynamodbav:"global_position"`
	UserID         string `dynamodbav:"user_id"`
	Data           string `dynamodbav:"data"`
	Metadata       string `dynamodbav:"metadata"`
	CreatedAt      string `dynamodbav:"created_at"`
}

func zeroPad(n int64, digits int) string {
	return fmt.Sprintf("%0*d", digits, n)
}

func (s *DynamoStore) Push(ctx context.Context, aggregateID string, expectedVersion int64, event *Event) (*Event, error) {
	events, err := s.PushMany(ctx, aggregateID, expectedVersion, []*Event{event})
	if err != nil {
		return nil, err
	}
	return events[0], nil
}

func (s *DynamoStore) PushMany(ctx context.Context, aggregateID string, expectedVersion int64, events []*Event) ([]*Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	currentVersion, err := s.CurrentVersion(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	if currentVersion != expectedVersion {
		return nil, fmt.Errorf("%w: aggregate %s expected version %d, got %d",
			ErrConcurrency, aggregateID, expectedVersion, currentVersion)
	}

	basePosition, err := s.reserveGlobalPositions(ctx, int64(len(events)))
	if err != nil {
		return nil, fmt.Errorf("eventlog: reserve global position: %w", err)
	}

	writes := make([]types.TransactWriteItem, 0, len(events))
	saved := make([]*Event, 0, len(events))

	for i, event := range events {
		version := expectedVersion + int64(i) + 1
		position := basePosition + int64(i)

		event.AggregateId = aggregateID
		event.SequenceNum = version
		event.SetGlobalPosition(position)

		data, err := json.Marshal(event.EntityEvent)
		if err != nil {
			return nil, fmt.Errorf("eventlog: marshal event %s: %w", event.EventType(), err)
		}
		metadata, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("eventlog: marshal metadata for event %s: %w", event.EventType(), err)
		}

		item := dynamoEventItem{
			PK:             aggregateID,
			SK:             zeroPad(version, dynamoVersionDigits),
			GSI1PK:         dynamoGlobalIndexPK,
			GSI1SK:         zeroPad(position, dynamoPositionDigits),
			InstanceID:     event.InstanceID(),
			AggregateType:  event.AggregateType(),
			AggregateID:    aggregateID,
			Version:        version,
			Owner:          event.Owner(),
			EventType:      event.EventType(),
			GlobalPosition: position,
			UserID:         event.User(),
			Data:           string(data),
			Metadata:       string(metadata),
			CreatedAt:      event.CreatedAt().Format(time.RFC3339Nano),
		}

		attrs, err := attributevalue.MarshalMap(item)
		if err != nil {
			return nil, fmt.Errorf("eventlog: marshal item: %w", err)
		}

		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                attrs,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			},
		})
		saved = append(saved, event)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		return nil, fmt.Errorf("eventlog: transact write events: %w", err)
	}

	return saved, nil
}

// reserveGlobalPositions atomically reserves a contiguous block of n global
// positions and returns the first one in the block.
func (s *DynamoStore) reserveGlobalPositions(ctx context.Context, n int64) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: dynamoCounterPK},
			"sk": &types.AttributeValueMemberS{Value: dynamoCounterSK},
		},
		UpdateExpression:          aws.String("ADD #v :n"),
		ExpressionAttributeNames:  map[string]string{"#v": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":n": &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}

	var updated struct {
		Value int64 `dynamodbav:"value"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, err
	}
	return updated.Value - n + 1, nil
}

func (s *DynamoStore) Load(ctx context.Context, aggregateID string) ([]*Event, error) {
	return s.LoadFromVersion(ctx, aggregateID, 0)
}

func (s *DynamoStore) LoadFromVersion(ctx context.Context, aggregateID string, fromVersion int64) ([]*Event, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND sk >= :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: aggregateID},
			":sk": &types.AttributeValueMemberS{Value: zeroPad(fromVersion, dynamoVersionDigits)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("eventlog: query aggregate %s: %w", aggregateID, err)
	}

	events := make([]*Event, 0, len(out.Items))
	for _, item := range out.Items {
		event, err := dynamoItemToEvent(item)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *DynamoStore) Query(ctx context.Context, filter Filter) ([]*Event, error) {
	expr := "gsi1pk = :pk AND gsi1sk > :since"
	values := map[string]types.AttributeValue{
		":pk":    &types.AttributeValueMemberS{Value: dynamoGlobalIndexPK},
		":since": &types.AttributeValueMemberS{Value: zeroPad(filter.SinceGlobalPosition, dynamoPositionDigits)},
	}

	var filters []string
	if filter.InstanceID != "" {
		filters = append(filters, "instance_id = :instance")
		values[":instance"] = &types.AttributeValueMemberS{Value: filter.InstanceID}
	}
	if filter.Owner != "" {
		filters = append(filters, "owner = :owner")
		values[":owner"] = &types.AttributeValueMemberS{Value: filter.Owner}
	}
	if len(filter.AggregateTypes) > 0 {
		filters = append(filters, inExpression("aggregate_type", filter.AggregateTypes, values))
	}
	if len(filter.EventTypes) > 0 {
		filters = append(filters, inExpression("event_type", filter.EventTypes, values))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.gsiName),
		KeyConditionExpression:    aws.String(expr),
		ExpressionAttributeValues: values,
	}
	if len(filters) > 0 {
		input.FilterExpression = aws.String(strings.Join(filters, " AND "))
	}
	if filter.Limit > 0 {
		input.Limit = aws.Int32(int32(filter.Limit))
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query global index: %w", err)
	}

	events := make([]*Event, 0, len(out.Items))
	for _, item := range out.Items {
		event, err := dynamoItemToEvent(item)
		if err != nil {
			return nil, err
		}
		if !filter.matchesAggregateID(event.AggregateID()) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// inExpression builds a "field IN (:f0, :f1, ...)" fragment and registers
// its values, since FilterExpression has no direct slice-binding helper.
func inExpression(field string, values []string, out map[string]types.AttributeValue) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		key := fmt.Sprintf(":%s%d", field, i)
		placeholders[i] = key
		out[key] = &types.AttributeValueMemberS{Value: v}
	}
	return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", "))
}

func (s *DynamoStore) CurrentVersion(ctx context.Context, aggregateID string) (int64, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("eventlog: read current version for %s: %w", aggregateID, err)
	}
	if len(out.Items) == 0 {
		return 0, nil
	}

	var item dynamoEventItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return 0, err
	}
	return item.Version, nil
}

func (s *DynamoStore) Close() error {
	return nil
}

func dynamoItemToEvent(raw map[string]types.AttributeValue) (*Event, error) {
	var item dynamoEventItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("eventlog: unmarshal dynamo item: %w", err)
	}

	var entity domainEntityEventJSON
	if err := json.Unmarshal([]byte(item.Data), &entity); err != nil {
		return nil, fmt.Errorf("eventlog: unmarshal event data: %w", err)
	}

	event := New(item.AggregateType, entity.Type, item.AggregateID, item.UserID, item.Owner, nil)
	event.PayloadData = entity.PayloadData
	event.SequenceNum = item.Version
	event.InstanceId = item.InstanceID
	event.GlobalPos = item.GlobalPosition
	if t, err := time.Parse(time.RFC3339Nano, item.CreatedAt); err == nil {
		event.CreatedTime = t
	}

	if item.Metadata != "" {
		_ = json.Unmarshal([]byte(item.Metadata), &event.Metadata)
	}

	return event, nil
}
