package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

// DocumentDBClient reads DocumentDB (Cosmos DB) resources and returns the
// HTTP status of the read. Missing resources are reported with an error
// matching ErrNotFound.
type DocumentDBClient interface {
	ReadDatabase(ctx context.Context, database string) (int, error)
	ReadCollection(ctx context.Context, database, collection string) (int, error)
}

// DatabaseURI returns the resource link of a database.
func DatabaseURI(database string) string {
	return "dbs/" + database
}

// CollectionURI returns the resource link of a collection.
func CollectionURI(database, collection string) string {
	return DatabaseURI(database) + "/colls/" + collection
}

// NewDocumentDBDatabase returns a probe reading database and expecting 200 OK.
func NewDocumentDBDatabase(client DocumentDBClient, database string, logger *slog.Logger) health.Probe {
	return newProbe(DatabaseURI(database), logger, func(ctx context.Context) health.Outcome {
		return documentDBOutcome(client.ReadDatabase(ctx, database))
	})
}

// NewDocumentDBCollection returns a probe reading collection and expecting 200 OK.
func NewDocumentDBCollection(client DocumentDBClient, database, collection string, logger *slog.Logger) health.Probe {
	return newProbe(CollectionURI(database, collection), logger, func(ctx context.Context) health.Outcome {
		return documentDBOutcome(client.ReadCollection(ctx, database, collection))
	})
}

func documentDBOutcome(status int, err error) health.Outcome {
	if err != nil {
		return classify(err)
	}
	if status != http.StatusOK {
		return health.Failed(fmt.Errorf("read returned status %d", status))
	}
	return health.Available()
}

func newDocumentDBChecker(c config.Check, logger *slog.Logger) (health.Probe, error) {
	client, err := NewCosmosClient(c.ConnectionString)
	if err != nil {
		return nil, err
	}
	if c.Type == config.TypeDocumentDBCollection {
		return NewDocumentDBCollection(client, c.Database, c.Collection, logger), nil
	}
	return NewDocumentDBDatabase(client, c.Database, logger), nil
}

// cosmosClient implements DocumentDBClient with the Azure Cosmos DB SDK.
type cosmosClient struct {
	client *azcosmos.Client
}

// NewCosmosClient creates a DocumentDBClient from an account connection string.
func NewCosmosClient(connectionString string) (DocumentDBClient, error) {
	client, err := azcosmos.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating cosmos client: %w", err)
	}
	return &cosmosClient{client: client}, nil
}

func (c *cosmosClient) ReadDatabase(ctx context.Context, database string) (int, error) {
	db, err := c.client.NewDatabase(database)
	if err != nil {
		return 0, err
	}
	resp, err := db.Read(ctx, nil)
	if err != nil {
		return 0, cosmosError(err)
	}
	return resp.RawResponse.StatusCode, nil
}

func (c *cosmosClient) ReadCollection(ctx context.Context, database, collection string) (int, error) {
	container, err := c.client.NewContainer(database, collection)
	if err != nil {
		return 0, err
	}
	resp, err := container.Read(ctx, nil)
	if err != nil {
		return 0, cosmosError(err)
	}
	return resp.RawResponse.StatusCode, nil
}

// cosmosError marks 404 responses as not found.
func cosmosError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return notFoundError{err: err}
	}
	return err
}
