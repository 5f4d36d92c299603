package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"kanban-board/domain"
)

// Change types published to the card change queue.
const (
	ChangeUpserted = "card-upserted"
	ChangeDeleted  = "card-deleted"
)

// CardChange describes one successful write against the card table.
type CardChange struct {
	Type string      `json:"type"`
	Card domain.Card `json:"card"`
	Time int64       `json:"time"`
}

type queueAPI interface {
	Create(ctx context.Context, o *azqueue.CreateOptions) (azqueue.CreateResponse, error)
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

var _ queueAPI = (*azqueue.QueueClient)(nil)

// Feed wraps a Backend and publishes a CardChange to an Azure queue after
// every successful write. Publish failures are logged and never returned,
// since the write itself already succeeded.
type Feed struct {
	base   Backend
	queue  queueAPI
	logger *log.Logger
	now    func() time.Time
}

// NewFeed creates a Feed publishing to the named queue.
func NewFeed(base Backend, connStr, queueName string, logger *log.Logger) (*Feed, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return newFeed(base, q, logger), nil
}

func newFeed(base Backend, queue queueAPI, logger *log.Logger) *Feed {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Feed{base: base, queue: queue, logger: logger, now: time.Now}
}

// EnsureQueue creates the change queue. An existing queue is not an error.
func (f *Feed) EnsureQueue(ctx context.Context) error {
	if _, err := f.queue.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	return nil
}

func (f *Feed) ListCards(ctx context.Context) ([]domain.Card, error) {
	return f.base.ListCards(ctx)
}

func (f *Feed) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	return f.base.GetCard(ctx, id)
}

func (f *Feed) PutCard(ctx context.Context, card domain.Card) error {
	if err := f.base.PutCard(ctx, card); err != nil {
		return err
	}
	f.publish(ctx, CardChange{Type: ChangeUpserted, Card: card})
	return nil
}

func (f *Feed) DeleteCard(ctx context.Context, id string) error {
	if err := f.base.DeleteCard(ctx, id); err != nil {
		return err
	}
	f.publish(ctx, CardChange{Type: ChangeDeleted, Card: domain.Card{ID: id}})
	return nil
}

func (f *Feed) publish(ctx context.Context, change CardChange) {
	change.Time = f.now().UnixMilli()
	data, err := json.Marshal(change)
	if err != nil {
		f.logger.Errorf("encode card change failed, err: %v, card: %s", err, change.Card.ID)
		return
	}
	if _, err := f.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		f.logger.WithFields(log.Fields{
			"card_id": change.Card.ID,
			"change":  change.Type,
		}).Errorf("publish card change failed: %v", err)
	}
}
