package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/simao-ai/rural-platform/pkg/logging"
)

// ErrArchiveNotFound indicates the request was never archived or has expired.
var ErrArchiveNotFound = errors.New("handoff: archived request not found")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// archiveRecord is the DynamoDB shape of a finished request. ExpiresAt feeds
// the table's TTL attribute.
type archiveRecord struct {
	RequestID        string            `dynamodbav:"requestId"`
	ContactID        string            `dynamodbav:"contactId"`
	Reason           string            `dynamodbav:"reason"`
	Priority         string            `dynamodbav:"priority"`
	Status           string            `dynamodbav:"status"`
	AgentID          string            `dynamodbav:"agentId,omitempty"`
	State            string            `dynamodbav:"state,omitempty"`
	CollectedData    map[string]string `dynamodbav:"collectedData,omitempty"`
	InteractionCount int               `dynamodbav:"interactionCount"`
	LastMessage      string            `dynamodbav:"lastMessage,omitempty"`
	CreatedAt        string            `dynamodbav:"createdAt"`
	ResolvedAt       string            `dynamodbav:"resolvedAt,omitempty"`
	ExpiresAt        int64             `dynamodbav:"expiresAt"`
}

// DynamoArchive keeps a 30 day trail of resolved escalations so supervisors
// can audit them after Redis has let the live record expire.
type DynamoArchive struct {
	client    dynamoAPI
	tableName string
	retention time.Duration
	log       *logging.Logger
}

var _ Archiver = (*DynamoArchive)(nil)

func NewDynamoArchive(client dynamoAPI, tableName string, retention time.Duration, log *logging.Logger) *DynamoArchive {
	if client == nil {
		panic("handoff: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("handoff: archive table name cannot be empty")
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if log == nil {
		log = logging.Default()
	}
	return &DynamoArchive{client: client, tableName: tableName, retention: retention, log: log}
}

func (a *DynamoArchive) Archive(ctx context.Context, req *Request) error {
	rec := archiveRecord{
		RequestID:        req.ID,
		ContactID:        req.ContactID,
		Reason:           string(req.Reason),
		Priority:         string(req.Priority),
		Status:           string(req.Status),
		AgentID:          req.AgentID,
		State:            req.Snapshot.State,
		CollectedData:    req.Snapshot.CollectedData,
		InteractionCount: req.Snapshot.InteractionCount,
		LastMessage:      req.Snapshot.LastMessage,
		CreatedAt:        req.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:        time.Now().Add(a.retention).Unix(),
	}
	if !req.ResolvedAt.IsZero() {
		rec.ResolvedAt = req.ResolvedAt.UTC().Format(time.RFC3339)
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("handoff: marshal archive record %s: %w", req.ID, err)
	}
	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("handoff: archive request %s: %w", req.ID, err)
	}
	a.log.Debug("archived handoff request", "request_id", req.ID, "status", req.Status)
	return nil
}

// Lookup fetches a previously archived request.
func (a *DynamoArchive) Lookup(ctx context.Context, requestID string) (*Request, error) {
	out, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(a.tableName),
		Key: map[string]types.AttributeValue{
			"requestId": &types.AttributeValueMemberS{Value: requestID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("handoff: lookup archive %s: %w", requestID, err)
	}
	if out.Item == nil {
		return nil, ErrArchiveNotFound
	}

	var rec archiveRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("handoff: decode archive %s: %w", requestID, err)
	}

	req := &Request{
		ID:        rec.RequestID,
		ContactID: rec.ContactID,
		Reason:    Reason(rec.Reason),
		Priority:  Priority(rec.Priority),
		Status:    Status(rec.Status),
		AgentID:   rec.AgentID,
		Snapshot: Snapshot{
			State:            rec.State,
			CollectedData:    rec.CollectedData,
			InteractionCount: rec.InteractionCount,
			LastMessage:      rec.LastMessage,
		},
	}
	if t, err := time.Parse(time.RFC3339, rec.CreatedAt); err == nil {
		req.CreatedAt = t
	}
	if rec.ResolvedAt != "" {
		if t, err := time.Parse(time.RFC3339, rec.ResolvedAt); err == nil {
			req.ResolvedAt = t
		}
	}
	return req, nil
}
