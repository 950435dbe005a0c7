package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoStore archives reports as DynamoDB items with a 90 day TTL.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoStore creates a DynamoDB-backed archive.
func NewDynamoStore(cfg aws.Config, table string) *DynamoStore {
	return &DynamoStore{client: dynamodb.NewFromConfig(cfg), table: table}
}

type reportItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

func (s *DynamoStore) SaveReport(ctx context.Context, batchID string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	item := reportItem{
		PK:        "BATCH#" + batchID,
		SK:        "REPORT",
		Data:      string(data),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TTL:       time.Now().Add(90 * 24 * time.Hour).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting report to DynamoDB: %w", err)
	}
	return nil
}

func (s *DynamoStore) LoadReport(ctx context.Context, batchID string, target interface{}) error {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "BATCH#" + batchID},
			"SK": &types.AttributeValueMemberS{Value: "REPORT"},
		},
	})
	if err != nil {
		return fmt.Errorf("getting report from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return ErrNotFound
	}

	var item reportItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return fmt.Errorf("unmarshaling item: %w", err)
	}
	if err := json.Unmarshal([]byte(item.Data), target); err != nil {
		return fmt.Errorf("unmarshaling report: %w", err)
	}
	return nil
}
