package universe

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"BreakoutScreener/internal/model"
)

// DefaultDynamoTable is used when no table name is configured.
const DefaultDynamoTable = "breakout_universe"

// dynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// universeItem is the table row; universe_key is the partition key.
type universeItem struct {
	Key string `dynamodbav:"universe_key"`
	model.UniverseSnapshot
}

// DynamoStore keeps snapshots in a DynamoDB table so Lambda invocations share them.
type DynamoStore struct {
	client dynamoAPI
	table  string
}

// NewDynamoStore loads the default AWS config, optionally pinned to region.
func NewDynamoStore(ctx context.Context, region, table string) (*DynamoStore, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if table == "" {
		table = DefaultDynamoTable
	}
	return &DynamoStore{client: dynamodb.NewFromConfig(cfg), table: table}, nil
}

func (d *DynamoStore) Get(ctx context.Context, key string) (*model.UniverseSnapshot, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]dynamotypes.AttributeValue{
			"universe_key": &dynamotypes.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get universe: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var item universeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("error unmarshaling universe: %v", err)
	}
	return &item.UniverseSnapshot, nil
}

func (d *DynamoStore) Put(ctx context.Context, key string, snap *model.UniverseSnapshot) error {
	item, err := attributevalue.MarshalMap(universeItem{Key: key, UniverseSnapshot: *snap})
	if err != nil {
		return fmt.Errorf("error marshaling universe: %v", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamo put universe: %w", err)
	}
	return nil
}
