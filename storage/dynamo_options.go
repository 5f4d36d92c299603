package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoAPI is the subset of the DynamoDB client used by [Dynamo].
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var _ DynamoAPI = (*dynamodb.Client)(nil)

// DynamoOption is a functional option for configuring a [Dynamo] store.
type DynamoOption func(*DynamoOptions)

// DynamoOptions holds the configuration for a [Dynamo] store.
type DynamoOptions struct {
	api             DynamoAPI
	consistentReads bool
	tableWaitTime   time.Duration
}

func newDynamoOptions() *DynamoOptions {
	return &DynamoOptions{
		tableWaitTime: 2 * time.Minute,
	}
}

func (o *DynamoOptions) validate() error {
	if o.tableWaitTime <= 0 {
		return errors.New("table wait time must be greater than zero")
	}

	return nil
}

// WithAPI sets a custom [DynamoAPI] implementation, for a custom DynamoDB
// configuration or for injecting mocks in tests.
func WithAPI(api DynamoAPI) DynamoOption {
	return func(o *DynamoOptions) {
		o.api = api
	}
}

// WithConsistentReads makes GetCard and ListCards use strongly consistent
// reads. The default is eventually consistent reads.
func WithConsistentReads(enabled bool) DynamoOption {
	return func(o *DynamoOptions) {
		o.consistentReads = enabled
	}
}

// WithTableWaitTime bounds how long [Dynamo.EnsureTable] waits for a newly
// created table to become active. The default is 2 minutes.
func WithTableWaitTime(d time.Duration) DynamoOption {
	return func(o *DynamoOptions) {
		o.tableWaitTime = d
	}
}
