// Package dynamo stores the document as one DynamoDB item whose attributes
// are the Configuration's top-level fields.
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

// KeyAttribute is the table's partition key.
const KeyAttribute = "pk"

// API is the subset of *dynamodb.Client the store needs.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Config selects the table and item.
type Config struct {
	Table      string
	Region     string
	DocumentID string
}

func (c *Config) provideDefaults() {
	if c.Table == "" {
		c.Table = "wedding-site"
	}
	if c.DocumentID == "" {
		c.DocumentID = "main"
	}
}

// Store implements storage.Store on DynamoDB.
type Store struct {
	api   API
	table string
	id    string
}

var _ storage.Store = (*Store)(nil)

// New loads the default AWS configuration and creates a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithAPI(dynamodb.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI wires an existing client.
func NewWithAPI(api API, cfg Config) *Store {
	cfg.provideDefaults()
	return &Store{api: api, table: cfg.Table, id: cfg.DocumentID}
}

func (s *Store) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		KeyAttribute: &types.AttributeValueMemberS{Value: s.id},
	}
}

// Read fetches the item with a strongly consistent read.
func (s *Store) Read(ctx context.Context) (models.Document, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError("get item", err)
	}
	if len(out.Item) == 0 {
		return nil, storage.ErrNotFound
	}
	return itemToDocument(out.Item)
}

// Write replaces the whole item.
func (s *Store) Write(ctx context.Context, cfg *models.Configuration) error {
	doc, err := models.DocumentOf(cfg)
	if err != nil {
		return err
	}
	item, err := documentToItem(doc)
	if err != nil {
		return err
	}
	item[KeyAttribute] = &types.AttributeValueMemberS{Value: s.id}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	return mapError("put item", err)
}

// Patch sets the fields of p in one UpdateItem call.
func (s *Store) Patch(ctx context.Context, p models.Patch) error {
	if err := storage.ValidatePatch(p); err != nil {
		return err
	}
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	expr := "SET "
	for i, field := range p.Fields() {
		raw, err := models.EncodeField(field, p[field])
		if err != nil {
			return err
		}
		av, err := attributeOf(field, raw)
		if err != nil {
			return err
		}
		n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[n] = field
		values[v] = av
		if i > 0 {
			expr += ", "
		}
		expr += n + " = " + v
	}

	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return mapError("update item", err)
}

// Append uses list_append so concurrent appends never overwrite each other.
func (s *Store) Append(ctx context.Context, field string, value any) error {
	if err := models.CheckElement(field, value); err != nil {
		return err
	}
	av, err := marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s element: %w", field, err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      s.key(),
		UpdateExpression:         aws.String("SET #f = list_append(if_not_exists(#f, :empty), :v)"),
		ExpressionAttributeNames: map[string]string{"#f": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":v":     &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
		},
	})
	return mapError("append", err)
}

// Close is a no-op; the SDK client holds no connections that need closing.
func (s *Store) Close() error { return nil }

func marshal(v any) (types.AttributeValue, error) {
	return attributevalue.MarshalWithOptions(v, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
}

func documentToItem(doc models.Document) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(doc)+1)
	for field, raw := range doc {
		av, err := attributeOf(field, raw)
		if err != nil {
			return nil, err
		}
		item[field] = av
	}
	return item, nil
}

// attributeOf converts one stored JSON field. Empty lists and strings stay
// typed values; a NULL would read back as a missing value.
func attributeOf(field string, raw json.RawMessage) (types.AttributeValue, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", field, err)
	}
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return &types.AttributeValueMemberL{Value: []types.AttributeValue{}}, nil
		}
	case string:
		if t == "" {
			return &types.AttributeValueMemberS{Value: ""}, nil
		}
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", field, err)
	}
	return av, nil
}

func itemToDocument(item map[string]types.AttributeValue) (models.Document, error) {
	var fields map[string]any
	if err := attributevalue.UnmarshalMap(item, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	delete(fields, KeyAttribute)

	doc := make(models.Document, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", k, err)
		}
		doc[k] = raw
	}
	return doc, nil
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException":
			return fmt.Errorf("%s: %w: %s", op, storage.ErrPermissionDenied, apiErr.ErrorMessage())
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
