package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"milkroad_server/models"
)

// DynamoAPI is the subset of *dynamodb.Client the services use
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type DynamoService struct {
	Client DynamoAPI
}

// ErrConditionFailed is returned when a conditional write is rejected
var ErrConditionFailed = errors.New("condition check failed")

// InitializeDynamoDBClient initializes the DynamoDB client.
// A non-empty endpoint points the client at DynamoDB Local.
func InitializeDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func dynamoSpan(ctx context.Context, op, table string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "DynamoDB."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "dynamodb"),
			attribute.String("db.operation", op),
			attribute.String("aws.dynamodb.table_names", table),
		),
	)
}

// PutItem marshals item and writes it to tableName
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item interface{}) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &tableName,
		Item:      marshaledItem,
	})
	if err != nil {
		log.Printf("❌ Failed to insert item into '%s': %v", tableName, err)
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// PutItemIfNotExists writes item only when no item with the same keyAttr exists.
// Returns ErrConditionFailed on collision.
func (ds *DynamoService) PutItemIfNotExists(ctx context.Context, tableName, keyAttr string, item interface{}) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                &tableName,
		Item:                     marshaledItem,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": keyAttr},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConditionFailed
		}
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// GetItem retrieves an item from DynamoDB. Missing items return models.ErrNotFound.
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &tableName,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", tableName, err)
	}

	if output.Item == nil {
		return nil, models.NotFoundError{Resource: tableName + " item"}
	}

	return output.Item, nil
}

// GetItemInto retrieves an item and unmarshals it into out
func (ds *DynamoService) GetItemInto(ctx context.Context, tableName string, key map[string]types.AttributeValue, out interface{}) error {
	item, err := ds.GetItem(ctx, tableName, key)
	if err != nil {
		return err
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item from table '%s': %w", tableName, err)
	}
	return nil
}

// DeleteItem removes an item from DynamoDB. With returnOld it reports
// models.ErrNotFound when nothing was deleted.
func (ds *DynamoService) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, returnOld bool) error {
	input := &dynamodb.DeleteItemInput{
		TableName: &tableName,
		Key:       key,
	}
	if returnOld {
		input.ReturnValues = types.ReturnValueAllOld
	}

	output, err := ds.Client.DeleteItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", tableName, err)
	}
	if returnOld && len(output.Attributes) == 0 {
		return models.NotFoundError{Resource: tableName + " item"}
	}
	return nil
}

// QueryAll runs input and follows LastEvaluatedKey until the result is
// exhausted or maxItems items were collected (0 = no cap)
func (ds *DynamoService) QueryAll(ctx context.Context, input *dynamodb.QueryInput, maxItems int) ([]map[string]types.AttributeValue, error) {
	ctx, span := dynamoSpan(ctx, "Query", aws.ToString(input.TableName))
	defer span.End()

	var items []map[string]types.AttributeValue
	for {
		result, err := ds.Client.Query(ctx, input)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to query table '%s': %w", aws.ToString(input.TableName), err)
		}
		items = append(items, result.Items...)
		if maxItems > 0 && len(items) >= maxItems {
			return items[:maxItems], nil
		}
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// BatchWriteItems writes multiple requests to DynamoDB in batches of 25.
// It returns how many requests were accepted before the first failure.
// Unprocessed items are not retried.
func (ds *DynamoService) BatchWriteItems(
	ctx context.Context,
	tableName string,
	writeRequests []types.WriteRequest,
) (int, error) {
	const maxBatchSize = 25

	ctx, span := dynamoSpan(ctx, "BatchWriteItem", tableName)
	defer span.End()

	written := 0
	for i := 0; i < len(writeRequests); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		batchInput := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				tableName: writeRequests[i:end],
			},
		}

		output, err := ds.Client.BatchWriteItem(ctx, batchInput)
		if err != nil {
			span.RecordError(err)
			return written, fmt.Errorf("failed to batch write items to table '%s': %w", tableName, err)
		}

		unprocessed := len(output.UnprocessedItems[tableName])
		written += (end - i) - unprocessed
		if unprocessed > 0 {
			return written, fmt.Errorf("batch write to table '%s' left %d unprocessed items", tableName, unprocessed)
		}
	}

	return written, nil
}

// TransactWrite executes items atomically. A cancelled transaction caused by
// a failed condition returns ErrConditionFailed.
func (ds *DynamoService) TransactWrite(ctx context.Context, items []types.TransactWriteItem) error {
	_, err := ds.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return ErrConditionFailed
				}
			}
		}
		return fmt.Errorf("failed to execute transaction: %w", err)
	}
	return nil
}
