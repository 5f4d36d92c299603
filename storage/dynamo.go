package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"kanban-board/domain"
)

const (
	// IDAttr is the DynamoDB partition key attribute holding the card id.
	IDAttr = "id"

	// TitleAttr holds the card title. It is absent when the card has none.
	TitleAttr = "title"

	// CategoryAttr holds the card category. It is absent when the card has none.
	CategoryAttr = "category"
)

// Dynamo stores cards in a DynamoDB table keyed by card id.
//
// Use [NewDynamo] to create the store, [Dynamo.Connect] to initialize the
// underlying client, and [Dynamo.Init] to validate the table schema.
type Dynamo struct {
	client    DynamoAPI
	tableName string
	awsCfg    *aws.Config
	opts      *DynamoOptions
}

// NewDynamo creates a Dynamo store for the given table. Call [Dynamo.Connect]
// before use.
func NewDynamo(awsCfg *aws.Config, tableName string, opts ...DynamoOption) *Dynamo {
	options := newDynamoOptions()

	for _, o := range opts {
		o(options)
	}

	return &Dynamo{
		awsCfg:    awsCfg,
		tableName: tableName,
		opts:      options,
	}
}

// Connect initializes the DynamoDB client from the AWS config provided to
// [NewDynamo]. It must complete before the store is used concurrently.
func (d *Dynamo) Connect() error {
	if d.tableName == "" {
		return errors.New("DynamoDB table name cannot be empty")
	}

	if err := d.opts.validate(); err != nil {
		return fmt.Errorf("invalid DynamoDB options: %w", err)
	}

	if d.opts.api != nil {
		d.client = d.opts.api
		return nil
	}

	if d.awsCfg == nil {
		return errors.New("AWS config cannot be nil")
	}

	d.client = dynamodb.NewFromConfig(*d.awsCfg)

	return nil
}

// Init validates that the table exists, is active and is keyed by a string
// id attribute. Pass skipSchemaValidation true to skip the checks.
func (d *Dynamo) Init(ctx context.Context, skipSchemaValidation bool) error {
	if skipSchemaValidation {
		return nil
	}

	response, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(d.tableName),
	})
	if err != nil {
		var notFoundError *dynamodbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundError) {
			return fmt.Errorf("table %s does not exist", d.tableName)
		}
		return fmt.Errorf("failed to describe table %s: %w", d.tableName, err)
	}

	table := response.Table
	if table == nil || len(table.KeySchema) < 1 {
		return fmt.Errorf("table %s has no key schema", d.tableName)
	}

	if len(table.KeySchema) > 1 {
		return fmt.Errorf("table %s has a composite primary key, expected simple", d.tableName)
	}

	key := table.KeySchema[0]
	if aws.ToString(key.AttributeName) != IDAttr || key.KeyType != dynamodbtypes.KeyTypeHash {
		return fmt.Errorf("table %s has partition key %s, expected %s", d.tableName, aws.ToString(key.AttributeName), IDAttr)
	}

	for _, def := range table.AttributeDefinitions {
		if aws.ToString(def.AttributeName) == IDAttr && def.AttributeType != dynamodbtypes.ScalarAttributeTypeS {
			return fmt.Errorf("table %s has %s of type %s, expected %s", d.tableName, IDAttr, def.AttributeType, dynamodbtypes.ScalarAttributeTypeS)
		}
	}

	if table.TableStatus != dynamodbtypes.TableStatusActive {
		return fmt.Errorf("table %s is not active (status: %s)", d.tableName, table.TableStatus)
	}

	return nil
}

// EnsureTable creates the card table with on-demand billing when it does not
// exist yet and waits for it to become active.
func (d *Dynamo) EnsureTable(ctx context.Context) error {
	_, err := d.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.tableName),
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String(IDAttr), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String(IDAttr), KeyType: dynamodbtypes.KeyTypeHash},
		},
		BillingMode: dynamodbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *dynamodbtypes.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create DynamoDB table %s: %w", d.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(d.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.tableName)}, d.opts.tableWaitTime); err != nil {
		return fmt.Errorf("DynamoDB table %s did not become active: %w", d.tableName, err)
	}

	return nil
}

// ListCards scans the whole table, following pagination.
func (d *Dynamo) ListCards(ctx context.Context) ([]domain.Card, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(d.tableName),
		ConsistentRead: aws.Bool(d.opts.consistentReads),
	}

	cards := []domain.Card{}

	for {
		output, err := d.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB table %s: %w", d.tableName, err)
		}

		for _, item := range output.Items {
			cards = append(cards, cardFromItem(item))
		}

		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return cards, nil
}

// GetCard reads a single card by id.
func (d *Dynamo) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            cardKey(id),
		ConsistentRead: aws.Bool(d.opts.consistentReads),
	}

	output, err := d.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to read card %s from DynamoDB table %s: %w", id, d.tableName, err)
	}

	if len(output.Item) == 0 {
		return nil, nil
	}

	card := cardFromItem(output.Item)

	return &card, nil
}

// PutCard creates or replaces the card item.
func (d *Dynamo) PutCard(ctx context.Context, card domain.Card) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      cardItem(card),
	}

	if _, err := d.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to write card %s to DynamoDB table %s: %w", card.ID, d.tableName, err)
	}

	return nil
}

// DeleteCard removes the card item. DynamoDB does not report absent keys.
func (d *Dynamo) DeleteCard(ctx context.Context, id string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       cardKey(id),
	}

	if _, err := d.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete card %s from DynamoDB table %s: %w", id, d.tableName, err)
	}

	return nil
}

func cardKey(id string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		IDAttr: &dynamodbtypes.AttributeValueMemberS{Value: id},
	}
}

func cardItem(card domain.Card) map[string]dynamodbtypes.AttributeValue {
	item := cardKey(card.ID)

	if card.Title != "" {
		item[TitleAttr] = &dynamodbtypes.AttributeValueMemberS{Value: card.Title}
	}

	if card.Category != "" {
		item[CategoryAttr] = &dynamodbtypes.AttributeValueMemberS{Value: card.Category}
	}

	return item
}

func cardFromItem(item map[string]dynamodbtypes.AttributeValue) domain.Card {
	return domain.Card{
		ID:       getStringValue(item[IDAttr]),
		Title:    getStringValue(item[TitleAttr]),
		Category: getStringValue(item[CategoryAttr]),
	}
}

func getStringValue(attr dynamodbtypes.AttributeValue) string {
	if attr == nil {
		return ""
	}

	if s, ok := attr.(*dynamodbtypes.AttributeValueMemberS); ok {
		return s.Value
	}

	return ""
}
