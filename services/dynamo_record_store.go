package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"milkroad_server/models"
	"milkroad_server/utils"
)

// Tables names the DynamoDB tables backing a DynamoRecordStore
type Tables struct {
	Feeds       string
	Sleep       string
	OpenSleep   string
	Shares      string
	Connections string
}

// DefaultTables returns the table names from models
func DefaultTables() Tables {
	return Tables{
		Feeds:       models.FeedsTable,
		Sleep:       models.SleepTable,
		OpenSleep:   models.OpenSleepTable,
		Shares:      models.SharesTable,
		Connections: models.ConnectionsTable,
	}
}

// DynamoRecordStore implements RecordStore on DynamoDB
type DynamoRecordStore struct {
	Dynamo *DynamoService
	Tables Tables
}

func NewDynamoRecordStore(dynamo *DynamoService, tables Tables) *DynamoRecordStore {
	return &DynamoRecordStore{Dynamo: dynamo, Tables: tables}
}

func (s *DynamoRecordStore) ListFeeds(ctx context.Context, ownerID string, q FeedQuery) ([]models.FeedEvent, error) {
	keyCondition := "ownerId = :ownerId"
	values := map[string]types.AttributeValue{
		":ownerId": &types.AttributeValueMemberS{Value: ownerID},
	}
	var names map[string]string
	if q.Since != nil {
		// timestamp is a reserved word
		keyCondition += " AND #ts >= :since"
		values[":since"] = utils.UnixValue(q.Since.Unix())
		names = map[string]string{"#ts": "timestamp"}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.Tables.Feeds),
		IndexName:                 aws.String(models.FeedTimestampIndex),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  names,
		ScanIndexForward:          aws.Bool(false),
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	items, err := s.Dynamo.QueryAll(ctx, input, q.Limit)
	if err != nil {
		return nil, err
	}

	feeds := []models.FeedEvent{}
	if err := attributevalue.UnmarshalListOfMaps(items, &feeds); err != nil {
		return nil, fmt.Errorf("failed to parse feeds: %w", err)
	}
	return feeds, nil
}

func (s *DynamoRecordStore) AddFeed(ctx context.Context, feed models.FeedEvent) error {
	return s.Dynamo.PutItem(ctx, s.Tables.Feeds, feed)
}

func (s *DynamoRecordStore) DeleteFeed(ctx context.Context, ownerID, id string) error {
	err := s.Dynamo.DeleteItem(ctx, s.Tables.Feeds, utils.OwnerKey(ownerID, id), true)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrFeedNotFound
	}
	return err
}

func (s *DynamoRecordStore) ListSleeps(ctx context.Context, ownerID string, q SleepQuery) ([]models.SleepSession, error) {
	keyCondition := "ownerId = :ownerId"
	values := map[string]types.AttributeValue{
		":ownerId": &types.AttributeValueMemberS{Value: ownerID},
	}
	if q.Since != nil {
		keyCondition += " AND startTime >= :since"
		values[":since"] = utils.UnixValue(q.Since.Unix())
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.Tables.Sleep),
		IndexName:                 aws.String(models.SleepStartTimeIndex),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	items, err := s.Dynamo.QueryAll(ctx, input, q.Limit)
	if err != nil {
		return nil, err
	}

	sleeps := []models.SleepSession{}
	if err := attributevalue.UnmarshalListOfMaps(items, &sleeps); err != nil {
		return nil, fmt.Errorf("failed to parse sleep sessions: %w", err)
	}
	return sleeps, nil
}

func (s *DynamoRecordStore) getSleep(ctx context.Context, ownerID, id string) (*models.SleepSession, error) {
	var session models.SleepSession
	err := s.Dynamo.GetItemInto(ctx, s.Tables.Sleep, utils.OwnerKey(ownerID, id), &session)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrSleepNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *DynamoRecordStore) OpenSleep(ctx context.Context, ownerID string) (*models.SleepSession, error) {
	var marker models.OpenSleepMarker
	if err := s.Dynamo.GetItemInto(ctx, s.Tables.OpenSleep, utils.StringKey("ownerId", ownerID), &marker); err != nil {
		return nil, err
	}

	session, err := s.getSleep(ctx, ownerID, marker.SessionID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if session == nil || !session.IsOpen() {
		// stale marker: drop it so the next StartSleep is not blocked
		if err := s.clearMarker(ctx, ownerID, marker.SessionID); err != nil {
			log.Printf("⚠️ Could not drop stale open sleep marker for %s: %v", ownerID, err)
		}
		return nil, models.ErrSleepNotFound
	}
	return session, nil
}

// clearMarker deletes the owner's OpenSleep marker if it still points at id
func (s *DynamoRecordStore) clearMarker(ctx context.Context, ownerID, id string) error {
	err := s.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		{Delete: &types.Delete{
			TableName:           aws.String(s.Tables.OpenSleep),
			Key:                 utils.StringKey("ownerId", ownerID),
			ConditionExpression: aws.String("sessionId = :id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":id": &types.AttributeValueMemberS{Value: id},
			},
		}},
	})
	if errors.Is(err, ErrConditionFailed) {
		return nil
	}
	return err
}

// StartSleep writes the session and the owner's OpenSleep marker in one
// transaction, so concurrent starts from linked accounts cannot both win.
func (s *DynamoRecordStore) StartSleep(ctx context.Context, session models.SleepSession) error {
	sessionItem, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal sleep session: %w", err)
	}
	markerItem, err := attributevalue.MarshalMap(models.OpenSleepMarker{
		OwnerID:   session.OwnerID,
		SessionID: session.ID,
		StartTime: session.StartTime,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal open sleep marker: %w", err)
	}

	err = s.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(s.Tables.Sleep),
			Item:                sessionItem,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		}},
		{Put: &types.Put{
			TableName:           aws.String(s.Tables.OpenSleep),
			Item:                markerItem,
			ConditionExpression: aws.String("attribute_not_exists(ownerId)"),
		}},
	})
	if errors.Is(err, ErrConditionFailed) {
		return models.ErrSleepAlreadyOpen
	}
	return err
}

func (s *DynamoRecordStore) EndSleep(ctx context.Context, ownerID, id string, end time.Time) (*models.SleepSession, error) {
	err := s.Dynamo.TransactWrite(ctx, []types.TransactWriteItem{
		{Update: &types.Update{
			TableName:           aws.String(s.Tables.Sleep),
			Key:                 utils.OwnerKey(ownerID, id),
			UpdateExpression:    aws.String("SET endTime = :end"),
			ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(endTime)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":end": utils.UnixValue(end.Unix()),
			},
		}},
		{Delete: &types.Delete{
			TableName:           aws.String(s.Tables.OpenSleep),
			Key:                 utils.StringKey("ownerId", ownerID),
			ConditionExpression: aws.String("sessionId = :id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":id": &types.AttributeValueMemberS{Value: id},
			},
		}},
	})
	if errors.Is(err, ErrConditionFailed) {
		return nil, models.ErrNoOpenSleep
	}
	if err != nil {
		return nil, err
	}
	return s.getSleep(ctx, ownerID, id)
}

func (s *DynamoRecordStore) DeleteSleep(ctx context.Context, ownerID, id string) (bool, error) {
	session, err := s.getSleep(ctx, ownerID, id)
	if err != nil {
		return false, err
	}

	if err := s.Dynamo.DeleteItem(ctx, s.Tables.Sleep, utils.OwnerKey(ownerID, id), false); err != nil {
		return false, err
	}
	if !session.IsOpen() {
		return false, nil
	}

	// the session is gone either way; OpenSleep drops a marker left behind
	if err := s.clearMarker(ctx, ownerID, id); err != nil {
		log.Printf("⚠️ Sleep %s deleted but its open marker for %s remains: %v", id, ownerID, err)
	}
	return true, nil
}

func (s *DynamoRecordStore) ownerIDs(ctx context.Context, table, ownerID string) ([]string, error) {
	items, err := s.Dynamo.QueryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("ownerId = :ownerId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ownerId": &types.AttributeValueMemberS{Value: ownerID},
		},
		ProjectionExpression: aws.String("id"),
	}, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := utils.ExtractString(item, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *DynamoRecordStore) deleteAll(ctx context.Context, table, ownerID string) (int, error) {
	ids, err := s.ownerIDs(ctx, table, ownerID)
	if err != nil {
		return 0, err
	}

	requests := make([]types.WriteRequest, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: utils.OwnerKey(ownerID, id)},
		})
	}
	return s.Dynamo.BatchWriteItems(ctx, table, requests)
}

func (s *DynamoRecordStore) ClearAll(ctx context.Context, ownerID string) (int, error) {
	deleted := 0

	n, err := s.deleteAll(ctx, s.Tables.Feeds, ownerID)
	deleted += n
	if err != nil {
		return deleted, fmt.Errorf("%w: %v", models.ErrPartialDelete, err)
	}

	n, err = s.deleteAll(ctx, s.Tables.Sleep, ownerID)
	deleted += n
	if err != nil {
		return deleted, fmt.Errorf("%w: %v", models.ErrPartialDelete, err)
	}

	if err := s.Dynamo.DeleteItem(ctx, s.Tables.OpenSleep, utils.StringKey("ownerId", ownerID), false); err != nil {
		log.Printf("⚠️ Cleared records for %s but could not drop open sleep marker: %v", ownerID, err)
		return deleted, fmt.Errorf("%w: %v", models.ErrPartialDelete, err)
	}
	return deleted, nil
}

func (s *DynamoRecordStore) PutShare(ctx context.Context, link models.ShareLink) error {
	return s.Dynamo.PutItemIfNotExists(ctx, s.Tables.Shares, "code", link)
}

func (s *DynamoRecordStore) GetShare(ctx context.Context, code string) (*models.ShareLink, error) {
	var link models.ShareLink
	err := s.Dynamo.GetItemInto(ctx, s.Tables.Shares, utils.StringKey("code", code), &link)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrShareCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *DynamoRecordStore) GetConnection(ctx context.Context, subjectID string) (*models.Connection, error) {
	var conn models.Connection
	if err := s.Dynamo.GetItemInto(ctx, s.Tables.Connections, utils.StringKey("subjectId", subjectID), &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *DynamoRecordStore) PutConnection(ctx context.Context, conn models.Connection) error {
	return s.Dynamo.PutItem(ctx, s.Tables.Connections, conn)
}

func (s *DynamoRecordStore) DeleteConnection(ctx context.Context, subjectID string) error {
	return s.Dynamo.DeleteItem(ctx, s.Tables.Connections, utils.StringKey("subjectId", subjectID), false)
}
