package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payfone/prefill-verify/internal/domain"
)

// SnapshotRepo manages the per-stage request and response snapshot tables.
// Both are keyed (record_id, stage); a stage re-invocation overwrites its
// snapshot in place.
type SnapshotRepo struct {
	client        *dynamodb.Client
	requestTable  string
	responseTable string
}

func NewSnapshotRepo(client *dynamodb.Client, requestTable, responseTable string) *SnapshotRepo {
	return &SnapshotRepo{client: client, requestTable: requestTable, responseTable: responseTable}
}

func (r *SnapshotRepo) PutRequest(ctx context.Context, s *domain.RequestSnapshot) error {
	s.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal request snapshot: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.requestTable),
		Item:      item,
	})
	return err
}

func (r *SnapshotRepo) GetRequest(ctx context.Context, recordID string, stage domain.Stage) (*domain.RequestSnapshot, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.requestTable),
		Key:       compositeKey(fieldRecordID, recordID, fieldStage, string(stage)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("request snapshot not found: %w", domain.ErrNotFound)
	}
	var s domain.RequestSnapshot
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListRequests returns all request snapshots for a record, keyed by stage.
func (r *SnapshotRepo) ListRequests(ctx context.Context, recordID string) (map[domain.Stage]*domain.RequestSnapshot, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.requestTable),
		KeyConditionExpression: aws.String("record_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recordID},
		},
	})
	if err != nil {
		return nil, err
	}
	result := make(map[domain.Stage]*domain.RequestSnapshot, len(out.Items))
	for _, item := range out.Items {
		var s domain.RequestSnapshot
		if err := attributevalue.UnmarshalMap(item, &s); err != nil {
			return nil, err
		}
		result[s.Stage] = &s
	}
	return result, nil
}

func (r *SnapshotRepo) PutResponse(ctx context.Context, s *domain.ResponseSnapshot) error {
	s.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal response snapshot: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.responseTable),
		Item:      item,
	})
	return err
}

func (r *SnapshotRepo) GetResponse(ctx context.Context, recordID string, stage domain.Stage) (*domain.ResponseSnapshot, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.responseTable),
		Key:       compositeKey(fieldRecordID, recordID, fieldStage, string(stage)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("response snapshot not found: %w", domain.ErrNotFound)
	}
	var s domain.ResponseSnapshot
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListResponses returns all response snapshots for a record, keyed by stage.
func (r *SnapshotRepo) ListResponses(ctx context.Context, recordID string) (map[domain.Stage]*domain.ResponseSnapshot, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.responseTable),
		KeyConditionExpression: aws.String("record_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recordID},
		},
	})
	if err != nil {
		return nil, err
	}
	result := make(map[domain.Stage]*domain.ResponseSnapshot, len(out.Items))
	for _, item := range out.Items {
		var s domain.ResponseSnapshot
		if err := attributevalue.UnmarshalMap(item, &s); err != nil {
			return nil, err
		}
		result[s.Stage] = &s
	}
	return result, nil
}
