package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"tourism-chat/internal/domain"
)

const (
	skPrefixTurn = "TURN#"
	// Fixed width so sort keys order lexicographically; RFC3339Nano trims trailing zeros.
	skTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps conversations in a single DynamoDB table, one partition per user.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamoStore creates a DynamoDB-backed HistoryStore.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, now: time.Now}, nil
}

// userPK returns the partition key for a user's conversation.
func userPK(userID string) string {
	return "USER#" + userID
}

// turnSK returns a sort key that orders turns chronologically; the uuid suffix
// keeps two turns written in the same nanosecond distinct.
func turnSK(ts time.Time) string {
	return skPrefixTurn + ts.UTC().Format(skTimeLayout) + "#" + uuid.NewString()
}

// Append writes one turn at the end of the user's conversation.
func (s *DynamoStore) Append(ctx context.Context, userID string, turn domain.Turn) error {
	if err := validateAppend("Append", userID, turn); err != nil {
		return err
	}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":    &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK":    &types.AttributeValueMemberS{Value: turnSK(s.now())},
			"role":  &types.AttributeValueMemberS{Value: string(turn.Role)},
			"parts": &types.AttributeValueMemberS{Value: turn.Text},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

// ReadAll queries every TURN# item of the user in ascending sort-key order.
func (s *DynamoStore) ReadAll(ctx context.Context, userID string) (domain.Conversation, error) {
	if err := validateRead("ReadAll", userID); err != nil {
		return nil, err
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	}

	conv := domain.Conversation{}
	pages := dynamodb.NewQueryPaginator(s.api, in)
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("repository: ReadAll query: %w", err)
		}
		for _, item := range out.Items {
			turn, err := itemToTurn(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ReadAll unmarshal: %w", err)
			}
			conv = append(conv, turn)
		}
	}
	return conv, nil
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Turn{}, err
	}
	if !domain.Role(role).Valid() {
		return domain.Turn{}, fmt.Errorf("repository: unknown role %q", role)
	}
	text, err := strAttr(item, "parts")
	if err != nil {
		return domain.Turn{}, err
	}
	return domain.Turn{Role: domain.Role(role), Text: text}, nil
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
