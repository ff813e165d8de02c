// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package docstore

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/oops"
)

const (
	attrCollection  = "collection"
	attrID          = "id"
	attrVersion     = "version"
	attrOwner       = "owner"
	indexAttrPrefix = "idx_"
	tableWaitTime   = 2 * time.Minute
)

// dynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoConfig configures the DynamoDB backend.
type DynamoConfig struct {
	Region string
	Table  string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
	// AccessKeyID and SecretAccessKey are optional static credentials; the
	// default AWS credential chain is used when they are empty.
	AccessKeyID     string
	SecretAccessKey string
}

// dynamoItem is the fixed part of a stored item. Indexed fields are added as
// idx_<field> attributes next to it.
type dynamoItem struct {
	Collection string    `dynamodbav:"collection"`
	ID         string    `dynamodbav:"id"`
	Version    int64     `dynamodbav:"version"`
	Body       string    `dynamodbav:"body"`
	CreatedAt  time.Time `dynamodbav:"created_at"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
}

// DynamoStore keeps documents in a single DynamoDB table keyed by
// (collection, id). Unique indexes are enforced with marker items whose
// partition is "<collection>#<field>" and whose sort key is the field value.
// Unique fields are checked when a document is inserted; updates do not
// move markers.
type DynamoStore struct {
	client dynamoAPI
	table  string

	mu      sync.RWMutex
	indexes map[string][]IndexDef
}

// NewDynamoStore builds a client from the AWS default config chain.
func NewDynamoStore(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, oops.Code("DOC_CONNECT_FAILED").With("operation", "load aws config").Wrap(err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newDynamoStoreWithClient(client, cfg.Table), nil
}

func newDynamoStoreWithClient(client dynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, indexes: make(map[string][]IndexDef)}
}

func itemKey(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrCollection: &types.AttributeValueMemberS{Value: collection},
		attrID:         &types.AttributeValueMemberS{Value: id},
	}
}

func markerPartition(def IndexDef) string {
	return def.Collection + "#" + def.Field
}

// Get reads with strong consistency.
func (s *DynamoStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            itemKey(collection, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, oops.Code("DOC_GET_FAILED").With("collection", collection).With("id", id).Wrap(err)
	}
	if len(out.Item) == 0 {
		return nil, oops.Code("DOC_NOT_FOUND").With("collection", collection).With("id", id).Wrap(ErrNotFound)
	}
	return decodeItem(out.Item)
}

func decodeItem(item map[string]types.AttributeValue) (*Record, error) {
	var it dynamoItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, oops.Code("DOC_DECODE_FAILED").Wrap(err)
	}
	return &Record{
		Collection: it.Collection,
		ID:         it.ID,
		Version:    it.Version,
		Body:       []byte(it.Body),
		CreatedAt:  it.CreatedAt,
		UpdatedAt:  it.UpdatedAt,
	}, nil
}

func (s *DynamoStore) indexesFor(collection string) []IndexDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]IndexDef(nil), s.indexes[collection]...)
}

func (s *DynamoStore) encodeItem(rec *Record, version int64) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(dynamoItem{
		Collection: rec.Collection,
		ID:         rec.ID,
		Version:    version,
		Body:       string(rec.Body),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	})
	if err != nil {
		return nil, oops.Code("DOC_ENCODE_FAILED").With("collection", rec.Collection).With("id", rec.ID).Wrap(err)
	}
	for _, def := range s.indexesFor(rec.Collection) {
		if v, ok := FieldValue(rec.Body, def.Field); ok {
			item[indexAttrPrefix+def.Field] = &types.AttributeValueMemberS{Value: v}
		}
	}
	return item, nil
}

// Save uses conditional writes for both inserts and version checks.
func (s *DynamoStore) Save(ctx context.Context, rec *Record) error {
	item, err := s.encodeItem(rec, rec.Version+1)
	if err != nil {
		return err
	}

	if rec.Version == 0 {
		if err := s.insert(ctx, rec, item); err != nil {
			return err
		}
		rec.Version = 1
		return nil
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("#v = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#v": attrVersion,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.Version, 10)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return oops.Code("DOC_VERSION_CONFLICT").
				With("collection", rec.Collection).
				With("id", rec.ID).
				With("expected_version", rec.Version).
				Wrap(ErrVersionConflict)
		}
		return oops.Code("DOC_SAVE_FAILED").With("collection", rec.Collection).With("id", rec.ID).Wrap(err)
	}
	rec.Version++
	return nil
}

func (s *DynamoStore) insert(ctx context.Context, rec *Record, item map[string]types.AttributeValue) error {
	notExists := aws.String("attribute_not_exists(#id)")
	names := map[string]string{"#id": attrID}

	var markers []types.TransactWriteItem
	for _, def := range s.indexesFor(rec.Collection) {
		if !def.Unique {
			continue
		}
		v, ok := FieldValue(rec.Body, def.Field)
		if !ok {
			continue
		}
		marker := itemKey(markerPartition(def), v)
		marker[attrOwner] = &types.AttributeValueMemberS{Value: rec.ID}
		markers = append(markers, types.TransactWriteItem{Put: &types.Put{
			TableName:                aws.String(s.table),
			Item:                     marker,
			ConditionExpression:      notExists,
			ExpressionAttributeNames: names,
		}})
	}

	if len(markers) == 0 {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(s.table),
			Item:                     item,
			ConditionExpression:      notExists,
			ExpressionAttributeNames: names,
		})
		return mapInsertError(err, rec)
	}

	writes := append([]types.TransactWriteItem{{Put: &types.Put{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      notExists,
		ExpressionAttributeNames: names,
	}}}, markers...)
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	return mapInsertError(err, rec)
}

func mapInsertError(err error, rec *Record) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	var tce *types.TransactionCanceledException
	if errors.As(err, &ccf) || (errors.As(err, &tce) && conditionFailed(tce)) {
		return oops.Code("DOC_DUPLICATE").With("collection", rec.Collection).With("id", rec.ID).Wrap(ErrDuplicate)
	}
	return oops.Code("DOC_SAVE_FAILED").
		With("operation", "insert document").
		With("collection", rec.Collection).
		With("id", rec.ID).
		Wrap(err)
}

func conditionFailed(tce *types.TransactionCanceledException) bool {
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// Delete removes the document and any unique markers it owns.
func (s *DynamoStore) Delete(ctx context.Context, collection, id string) error {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.table),
		Key:          itemKey(collection, id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return oops.Code("DOC_DELETE_FAILED").With("collection", collection).With("id", id).Wrap(err)
	}
	if len(out.Attributes) == 0 {
		return nil
	}

	old, err := decodeItem(out.Attributes)
	if err != nil {
		return err
	}
	for _, def := range s.indexesFor(collection) {
		if !def.Unique {
			continue
		}
		v, ok := FieldValue(old.Body, def.Field)
		if !ok {
			continue
		}
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(s.table),
			Key:                 itemKey(markerPartition(def), v),
			ConditionExpression: aws.String("#o = :owner"),
			ExpressionAttributeNames: map[string]string{
				"#o": attrOwner,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner": &types.AttributeValueMemberS{Value: id},
			},
		})
		var ccf *types.ConditionalCheckFailedException
		if err != nil && !errors.As(err, &ccf) {
			return oops.Code("DOC_DELETE_FAILED").
				With("collection", collection).
				With("id", id).
				With("index", def.Name()).
				Wrap(err)
		}
	}
	return nil
}

// FindByField filters on the projected idx_<field> attribute when the field
// is indexed, and on the decoded body otherwise.
func (s *DynamoStore) FindByField(ctx context.Context, collection, field, value string) ([]*Record, error) {
	input := s.collectionQuery(collection)

	indexed := false
	for _, def := range s.indexesFor(collection) {
		if def.Field == field {
			indexed = true
			break
		}
	}
	if indexed {
		input.FilterExpression = aws.String("#f = :v")
		input.ExpressionAttributeNames["#f"] = indexAttrPrefix + field
		input.ExpressionAttributeValues[":v"] = &types.AttributeValueMemberS{Value: value}
	}

	recs, err := s.query(ctx, input)
	if err != nil {
		return nil, oops.With("field", field).Wrap(err)
	}
	if indexed {
		return recs, nil
	}

	out := recs[:0]
	for _, rec := range recs {
		if v, ok := FieldValue(rec.Body, field); ok && v == value {
			out = append(out, rec)
		}
	}
	return out, nil
}

// List queries the collection partition.
func (s *DynamoStore) List(ctx context.Context, collection string) ([]*Record, error) {
	return s.query(ctx, s.collectionQuery(collection))
}

func (s *DynamoStore) collectionQuery(collection string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#c = :c"),
		ConsistentRead:         aws.Bool(true),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCollection,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: collection},
		},
	}
}

func (s *DynamoStore) query(ctx context.Context, input *dynamodb.QueryInput) ([]*Record, error) {
	collection := ""
	if v, ok := input.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberS); ok {
		collection = v.Value
	}

	var out []*Record
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, oops.Code("DOC_QUERY_FAILED").With("collection", collection).Wrap(err)
		}
		for _, item := range page.Items {
			rec, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

// EnsureIndexes creates the table when missing and records which fields to
// project. DynamoDB needs no per-field index objects for filtered queries.
func (s *DynamoStore) EnsureIndexes(ctx context.Context, defs []IndexDef) error {
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
	}
	if err := s.ensureTable(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range defs {
		if !containsIndex(s.indexes[def.Collection], def) {
			s.indexes[def.Collection] = append(s.indexes[def.Collection], def)
		}
	}
	return nil
}

func (s *DynamoStore) ensureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return oops.Code("DOC_INDEX_FAILED").With("table", s.table).Wrap(err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrCollection), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrCollection), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrID), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return oops.Code("DOC_INDEX_FAILED").With("table", s.table).With("operation", "create table").Wrap(err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, tableWaitTime); err != nil {
		return oops.Code("DOC_INDEX_FAILED").With("table", s.table).With("operation", "wait for table").Wrap(err)
	}
	return nil
}

// Ping describes the table.
func (s *DynamoStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return oops.Code("DOC_PING_FAILED").With("table", s.table).Wrap(err)
	}
	return nil
}

// Close is a no-op; the AWS client holds no long-lived connections to release.
func (s *DynamoStore) Close() {}
