package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/pkg/id"
)

// RecordRepo provides typed DynamoDB operations for the prefill records table.
type RecordRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRecordRepo(client *dynamodb.Client, tableName string) *RecordRepo {
	return &RecordRepo{client: client, tableName: tableName}
}

// guardKeyPrefix namespaces the per-pair guard items in the records table.
// Guard items carry no user_session attribute, so they never surface in the
// user_session-index GSI.
const guardKeyPrefix = "session#"

// FindOrCreate returns the record for the (userID, sessionID) pair, creating
// it in the Initial state if none exists. Creation writes the record together
// with a guard item keyed by the pair in one transaction; concurrent creates
// for the same pair collide on the guard, and the loser reads the winner's
// record through it. A retry therefore never produces a duplicate.
func (r *RecordRepo) FindOrCreate(ctx context.Context, userID, sessionID string, isMobile bool, callbackURL string) (*domain.PrefillRecord, error) {
	if rec, err := r.GetByUserSession(ctx, userID, sessionID); err == nil {
		return rec, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &domain.PrefillRecord{
		RecordID:    id.New(),
		UserID:      userID,
		SessionID:   sessionID,
		UserSession: domain.UserSessionKey(userID, sessionID),
		IsMobile:    isMobile,
		State:       domain.StateInitial,
		CallbackURL: callbackURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	guard := map[string]types.AttributeValue{
		fieldRecordID:      &types.AttributeValueMemberS{Value: guardKeyPrefix + rec.UserSession},
		fieldOwnerRecordID: &types.AttributeValueMemberS{Value: rec.RecordID},
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(record_id)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item:      item,
			}},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					// Lost the race; the guard points at the winner's record.
					return r.getByGuard(ctx, rec.UserSession)
				}
			}
		}
		return nil, err
	}
	return rec, nil
}

// getByGuard resolves a (user, session) pair to its record through the guard
// item. A consistent read sees the winning transaction immediately, without
// waiting on GSI propagation.
func (r *RecordRepo) getByGuard(ctx context.Context, userSession string) (*domain.PrefillRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldRecordID, guardKeyPrefix+userSession),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	owner, ok := out.Item[fieldOwnerRecordID].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return r.Get(ctx, owner.Value)
}

func (r *RecordRepo) Get(ctx context.Context, recordID string) (*domain.PrefillRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldRecordID, recordID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	var rec domain.PrefillRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByUserSession looks up a record by its (user, session) pair via GSI.
func (r *RecordRepo) GetByUserSession(ctx context.Context, userID, sessionID string) (*domain.PrefillRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_session-index"),
		KeyConditionExpression: aws.String(fieldUserSession + " = :us"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":us": &types.AttributeValueMemberS{Value: domain.UserSessionKey(userID, sessionID)},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	var rec domain.PrefillRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateWithCounter applies updates to a record conditioned on the
// state_counter value the caller previously read, and bumps the counter in
// the same write. A superseded counter fails with domain.ErrConflict so at
// most one concurrent mutation per record is ever applied.
func (r *RecordRepo) UpdateWithCounter(ctx context.Context, recordID string, expectedCounter int64, updates map[string]interface{}) error {
	updates[fieldStateCounter] = expectedCounter + 1
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#sc"] = fieldStateCounter
	ue.Values[":expected"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedCounter)}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldRecordID, recordID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#sc = :expected"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			slog.Warn("stale record write rejected", "record_id", recordID, "expected_counter", expectedCounter)
			return fmt.Errorf("record superseded: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}
