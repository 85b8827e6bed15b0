package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"lineops/internal/domain"
)

const (
	skLedger    = "LEDGER#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Ledger.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Ledger records one dispatch per local day in a DynamoDB table.
type Ledger struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new Ledger.
func New(api dynamodbAPI, tableName string) (*Ledger, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Ledger{api: api, tableName: tableName, now: time.Now}, nil
}

// dayPK returns the partition key for a dispatch day (yyyy-mm-dd).
func dayPK(day string) string {
	return "DISPATCH#" + day
}

// Claim takes the day's slot for rec.RunID. A slot held by a failed run can be
// taken again only when that run issued no send call, since a failed send may
// still have been delivered. Any other existing slot yields
// domain.ErrAlreadyDispatched.
func (l *Ledger) Claim(ctx context.Context, rec domain.DispatchRecord) error {
	if rec.Day == "" || rec.RunID == "" {
		return errors.New("repository: Claim: day and run ID are required")
	}
	rec.Status = domain.DispatchClaimed

	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                l.recordItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(PK) OR (#status = :failed AND attempts = :zero)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: domain.DispatchFailed},
			":zero":   &types.AttributeValueMemberN{Value: "0"},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if prev, perr := itemToRecord(ccf.Item); perr == nil {
			if prev.Status == domain.DispatchFailed {
				return fmt.Errorf("%w: run %s failed after %d send attempts", domain.ErrAlreadyDispatched, prev.RunID, prev.Attempts)
			}
			return fmt.Errorf("%w: run %s is %s", domain.ErrAlreadyDispatched, prev.RunID, prev.Status)
		}
		return domain.ErrAlreadyDispatched
	}
	return fmt.Errorf("repository: Claim: %w", err)
}

// Complete records the final outcome. It only overwrites the slot while the
// slot still belongs to rec.RunID.
func (l *Ledger) Complete(ctx context.Context, rec domain.DispatchRecord) error {
	if rec.Day == "" || rec.RunID == "" {
		return errors.New("repository: Complete: day and run ID are required")
	}
	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                l.recordItem(rec),
		ConditionExpression: aws.String("runId = :runId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":runId": &types.AttributeValueMemberS{Value: rec.RunID},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: Complete: %w", err)
	}
	return nil
}

func (l *Ledger) recordItem(rec domain.DispatchRecord) map[string]types.AttributeValue {
	now := l.now().UTC()
	reasons := make([]types.AttributeValue, 0, len(rec.Reasons))
	for _, r := range rec.Reasons {
		reasons = append(reasons, &types.AttributeValueMemberS{Value: r})
	}
	return map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: dayPK(rec.Day)},
		"SK":         &types.AttributeValueMemberS{Value: skLedger},
		"day":        &types.AttributeValueMemberS{Value: rec.Day},
		"runId":      &types.AttributeValueMemberS{Value: rec.RunID},
		"mode":       &types.AttributeValueMemberS{Value: string(rec.Mode)},
		"status":     &types.AttributeValueMemberS{Value: rec.Status},
		"recipients": &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Recipients)},
		"batches":    &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Batches)},
		"attempts":   &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Attempts)},
		"reasons":    &types.AttributeValueMemberL{Value: reasons},
		"error":      &types.AttributeValueMemberS{Value: rec.Error},
		"updatedAt":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(ttlDuration).Unix(), 10)},
	}
}

// itemToRecord converts a DynamoDB attribute map to a DispatchRecord.
func itemToRecord(item map[string]types.AttributeValue) (domain.DispatchRecord, error) {
	day, err := strAttr(item, "day")
	if err != nil {
		return domain.DispatchRecord{}, err
	}
	runID, err := strAttr(item, "runId")
	if err != nil {
		return domain.DispatchRecord{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.DispatchRecord{}, err
	}
	mode, _ := strAttr(item, "mode")             // allow empty
	updatedAt, _ := strAttr(item, "updatedAt")   // allow empty
	recipients, _ := intAttr(item, "recipients") // allow empty
	batches, _ := intAttr(item, "batches")       // allow empty
	attempts, _ := intAttr(item, "attempts")     // allow empty

	return domain.DispatchRecord{
		Day:        day,
		RunID:      runID,
		Mode:       domain.SendMode(mode),
		Status:     status,
		Recipients: recipients,
		Batches:    batches,
		Attempts:   attempts,
		UpdatedAt:  updatedAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
