package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-board/domain"
)

type tableAPI interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

var _ tableAPI = (*aztables.Client)(nil)

// Tables stores cards in a single Azure Table. All cards share one partition
// and the card id is the row key.
type Tables struct {
	table     tableAPI
	partition string
}

// NewTables creates a Tables store from the given connection string.
func NewTables(connStr, table, partition string) (*Tables, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	return newTables(svc.NewClient(table), partition), nil
}

func newTables(table tableAPI, partition string) *Tables {
	if partition == "" {
		partition = "cards"
	}
	return &Tables{table: table, partition: partition}
}

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type cardEntity struct {
	entityKeys
	Title    string `json:"Title,omitempty"`
	Category string `json:"Category,omitempty"`
}

func encodeCardEntity(partition string, c domain.Card) ([]byte, error) {
	return json.Marshal(cardEntity{
		entityKeys: entityKeys{PartitionKey: partition, RowKey: c.ID},
		Title:      c.Title,
		Category:   c.Category,
	})
}

func decodeCardEntity(data []byte) (domain.Card, error) {
	var ent cardEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Card{}, err
	}
	return domain.Card{ID: ent.RowKey, Title: ent.Title, Category: ent.Category}, nil
}

// ListCards retrieves every card in the partition.
func (s *Tables) ListCards(ctx context.Context) ([]domain.Card, error) {
	filter := "PartitionKey eq '" + strings.ReplaceAll(s.partition, "'", "''") + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cards := []domain.Card{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			card, err := decodeCardEntity(e)
			if err != nil {
				return nil, err
			}
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// GetCard retrieves a card entity if present.
func (s *Tables) GetCard(ctx context.Context, id string) (*domain.Card, error) {
	ent, err := s.table.GetEntity(ctx, s.partition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	card, err := decodeCardEntity(ent.Value)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// PutCard creates or replaces the card entity.
func (s *Tables) PutCard(ctx context.Context, card domain.Card) error {
	payload, err := encodeCardEntity(s.partition, card)
	if err == nil {
		_, err = s.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	}
	return err
}

// DeleteCard removes the card entity. Missing entities are ignored.
func (s *Tables) DeleteCard(ctx context.Context, id string) error {
	if _, err := s.table.DeleteEntity(ctx, s.partition, id, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// EnsureTable creates the card table. An existing table is not an error.
func (s *Tables) EnsureTable(ctx context.Context) error {
	if _, err := s.table.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
