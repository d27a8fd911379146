package checker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue/queueerror"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

// QueueStorageClient is the part of a storage account's queue service the probes use.
type QueueStorageClient interface {
	// QueueExists reports whether the named queue exists.
	QueueExists(ctx context.Context, queue string) (bool, error)
	// GetServiceProperties round-trips to the queue service.
	GetServiceProperties(ctx context.Context) error
	// URL is the queue service endpoint.
	URL() string
}

// NewQueueStorageQueue returns a probe that succeeds when queue exists.
func NewQueueStorageQueue(client QueueStorageClient, queue string, logger *slog.Logger) health.Probe {
	return newProbe(queue, logger, func(ctx context.Context) health.Outcome {
		exists, err := client.QueueExists(ctx, queue)
		if err != nil {
			return classify(err)
		}
		if !exists {
			return health.NotFound(notFoundError{err: fmt.Errorf("queue %q does not exist", queue)})
		}
		return health.Available()
	})
}

// NewQueueStorageAccount returns a probe that reads the queue service properties
// of the storage account.
func NewQueueStorageAccount(client QueueStorageClient, logger *slog.Logger) health.Probe {
	return newProbe(client.URL(), logger, func(ctx context.Context) health.Outcome {
		return classify(client.GetServiceProperties(ctx))
	})
}

func newQueueStorageChecker(c config.Check, logger *slog.Logger) (health.Probe, error) {
	client, err := NewAzureQueueClient(c.ConnectionString)
	if err != nil {
		return nil, err
	}
	if c.Type == config.TypeQueueStorageAccount {
		return NewQueueStorageAccount(client, logger), nil
	}
	return NewQueueStorageQueue(client, c.Queue, logger), nil
}

// azureQueueClient implements QueueStorageClient with the Azure Queue Storage SDK.
type azureQueueClient struct {
	client *azqueue.ServiceClient
}

// NewAzureQueueClient creates a QueueStorageClient from a storage account connection string.
func NewAzureQueueClient(connectionString string) (QueueStorageClient, error) {
	client, err := azqueue.NewServiceClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating queue service client: %w", err)
	}
	return &azureQueueClient{client: client}, nil
}

func (c *azureQueueClient) QueueExists(ctx context.Context, queue string) (bool, error) {
	_, err := c.client.NewQueueClient(queue).GetProperties(ctx, nil)
	if err != nil {
		if queueerror.HasCode(err, queueerror.QueueNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *azureQueueClient) GetServiceProperties(ctx context.Context) error {
	_, err := c.client.GetServiceProperties(ctx, nil)
	return err
}

func (c *azureQueueClient) URL() string {
	return c.client.URL()
}
