package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"flexflow-api/domain"
)

// Events publishes domain events to an Azure Storage queue for downstream
// consumers (activity feeds, projections). The queue is append-only from this
// service's perspective.
type Events struct {
	queue *azqueue.QueueClient
}

// NewEvents creates an Events publisher from the given connection string and
// queue name.
func NewEvents(connStr, queueName string) (*Events, error) {
	opts := azqueue.ClientOptions{
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
	queue, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &Events{queue: queue}, nil
}

func (e *Events) Publish(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = e.queue.EnqueueMessage(ctx, string(data), nil)
	return err
}
