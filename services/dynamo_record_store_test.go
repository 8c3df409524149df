package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milkroad_server/models"
)

// fakeDynamo records requests and replays canned responses
type fakeDynamo struct {
	items     map[string]map[string]types.AttributeValue
	pages     [][]map[string]types.AttributeValue
	putErr    error
	txErr     error
	unprocess int

	queries   []dynamodb.QueryInput
	puts      []*dynamodb.PutItemInput
	transacts []*dynamodb.TransactWriteItemsInput
	batches   []*dynamodb.BatchWriteItemInput
	deletes   []*dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[aws.ToString(in.TableName)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{Attributes: f.items[aws.ToString(in.TableName)]}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, *in)
	if len(f.pages) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	out := &dynamodb.QueryOutput{Items: page}
	if len(f.pages) > 0 {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "cursor"}}
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batches = append(f.batches, in)
	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocess > 0 {
		for table, reqs := range in.RequestItems {
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[:f.unprocess]}
		}
	}
	return out, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	if f.txErr != nil {
		return nil, f.txErr
	}
	for _, item := range in.TransactItems {
		if item.Delete != nil {
			delete(f.items, aws.ToString(item.Delete.TableName))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func newDynamoStore(f *fakeDynamo) *DynamoRecordStore {
	return NewDynamoRecordStore(&DynamoService{Client: f}, DefaultTables())
}

func marshalItem(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

func TestDynamoRecordStore_ListFeedsPaginates(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	fake := &fakeDynamo{pages: [][]map[string]types.AttributeValue{
		{marshalItem(t, models.FeedEvent{OwnerID: "alice", ID: "f2", Type: "maternal", AmountMl: 90, Timestamp: at.Add(time.Hour)})},
		{marshalItem(t, models.FeedEvent{OwnerID: "alice", ID: "f1", Type: "artificial", AmountMl: 60, Timestamp: at})},
	}}
	since := at.Add(-9 * time.Hour)

	feeds, err := newDynamoStore(fake).ListFeeds(context.Background(), "alice", FeedQuery{Since: &since})
	require.NoError(t, err)

	require.Len(t, feeds, 2)
	assert.Equal(t, "f2", feeds[0].ID)
	assert.True(t, feeds[1].Timestamp.Equal(at))

	require.Len(t, fake.queries, 2)
	q := fake.queries[0]
	assert.Equal(t, models.FeedTimestampIndex, aws.ToString(q.IndexName))
	assert.Equal(t, "ownerId = :ownerId AND #ts >= :since", aws.ToString(q.KeyConditionExpression))
	assert.Equal(t, "timestamp", q.ExpressionAttributeNames["#ts"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: fmt.Sprint(since.Unix())}, q.ExpressionAttributeValues[":since"])
	assert.False(t, aws.ToBool(q.ScanIndexForward))
	assert.NotNil(t, fake.queries[1].ExclusiveStartKey)
}

func TestDynamoRecordStore_StartSleepConflict(t *testing.T) {
	fake := &fakeDynamo{txErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}}

	err := newDynamoStore(fake).StartSleep(context.Background(), models.SleepSession{OwnerID: "alice", ID: "s1", StartTime: time.Now()})
	assert.ErrorIs(t, err, models.ErrSleepAlreadyOpen)

	require.Len(t, fake.transacts, 1)
	items := fake.transacts[0].TransactItems
	require.Len(t, items, 2)
	assert.Equal(t, models.OpenSleepTable, aws.ToString(items[1].Put.TableName))
	assert.Equal(t, "attribute_not_exists(ownerId)", aws.ToString(items[1].Put.ConditionExpression))
}

func TestDynamoRecordStore_EndSleepWithoutOpenSession(t *testing.T) {
	fake := &fakeDynamo{txErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ConditionalCheckFailed")}},
	}}

	_, err := newDynamoStore(fake).EndSleep(context.Background(), "alice", "s1", time.Now())
	assert.ErrorIs(t, err, models.ErrNoOpenSleep)
}

func TestDynamoRecordStore_PutShareCollision(t *testing.T) {
	fake := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}

	err := newDynamoStore(fake).PutShare(context.Background(), models.ShareLink{Code: "ABC123", OwnerID: "alice"})
	assert.ErrorIs(t, err, ErrConditionFailed)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "attribute_not_exists(#k)", aws.ToString(fake.puts[0].ConditionExpression))
}

func TestDynamoRecordStore_MissingItems(t *testing.T) {
	store := newDynamoStore(&fakeDynamo{})
	ctx := context.Background()

	_, err := store.GetConnection(ctx, "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.GetShare(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, models.ErrShareCodeNotFound)

	_, err = store.OpenSleep(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = store.DeleteFeed(ctx, "alice", "f1")
	assert.ErrorIs(t, err, models.ErrFeedNotFound)
}

func idPage(n int) []map[string]types.AttributeValue {
	page := make([]map[string]types.AttributeValue, 0, n)
	for i := 0; i < n; i++ {
		page = append(page, map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: fmt.Sprintf("r%d", i)},
		})
	}
	return page
}

func TestDynamoRecordStore_ClearAllBatches(t *testing.T) {
	fake := &fakeDynamo{pages: [][]map[string]types.AttributeValue{idPage(30)}}

	deleted, err := newDynamoStore(fake).ClearAll(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 30, deleted)

	require.Len(t, fake.batches, 2)
	assert.Len(t, fake.batches[0].RequestItems[models.FeedsTable], 25)
	assert.Len(t, fake.batches[1].RequestItems[models.FeedsTable], 5)
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, models.OpenSleepTable, aws.ToString(fake.deletes[0].TableName))
}

func TestDynamoRecordStore_ClearAllPartial(t *testing.T) {
	fake := &fakeDynamo{pages: [][]map[string]types.AttributeValue{idPage(10)}, unprocess: 3}

	deleted, err := newDynamoStore(fake).ClearAll(context.Background(), "alice")
	assert.ErrorIs(t, err, models.ErrPartialDelete)
	assert.Equal(t, 7, deleted)
}

func TestDynamoRecordStore_OpenSleepDropsStaleMarker(t *testing.T) {
	start := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name    string
		session *models.SleepSession
	}{
		{"session deleted", nil},
		{"session closed", &models.SleepSession{OwnerID: "alice", ID: "s1", StartTime: start, EndTime: &end}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{
				models.OpenSleepTable: marshalItem(t, models.OpenSleepMarker{OwnerID: "alice", SessionID: "s1", StartTime: start}),
			}}
			if tt.session != nil {
				fake.items[models.SleepTable] = marshalItem(t, *tt.session)
			}
			store := newDynamoStore(fake)

			_, err := store.OpenSleep(context.Background(), "alice")
			assert.ErrorIs(t, err, models.ErrSleepNotFound)

			require.Len(t, fake.transacts, 1)
			del := fake.transacts[0].TransactItems[0].Delete
			require.NotNil(t, del)
			assert.Equal(t, models.OpenSleepTable, aws.ToString(del.TableName))
			assert.Equal(t, "sessionId = :id", aws.ToString(del.ConditionExpression))
			assert.Equal(t, &types.AttributeValueMemberS{Value: "s1"}, del.ExpressionAttributeValues[":id"])
			assert.NotContains(t, fake.items, models.OpenSleepTable)

			// the owner can start a new session right away
			tracking := NewTrackingService(store)
			sleep := NewSleepService(tracking, store, &recordingNotifier{})
			session, err := sleep.StartSleep(context.Background(), "alice")
			require.NoError(t, err)
			assert.True(t, session.IsOpen())
			require.Len(t, fake.transacts, 2)
			assert.NotNil(t, fake.transacts[1].TransactItems[1].Put)
		})
	}
}

func TestDynamoRecordStore_DeleteSleepSurvivesMarkerFailure(t *testing.T) {
	start := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	fake := &fakeDynamo{
		items: map[string]map[string]types.AttributeValue{
			models.SleepTable: marshalItem(t, models.SleepSession{OwnerID: "alice", ID: "s1", StartTime: start}),
		},
		txErr: errBackendDown,
	}

	wasOpen, err := newDynamoStore(fake).DeleteSleep(context.Background(), "alice", "s1")
	require.NoError(t, err)
	assert.True(t, wasOpen)
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, models.SleepTable, aws.ToString(fake.deletes[0].TableName))
	assert.Len(t, fake.transacts, 1)
}
