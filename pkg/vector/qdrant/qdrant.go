// Package qdrant provides a Qdrant-backed vector driver over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	qdr "github.com/qdrant/go-client/qdrant"

	"github.com/lorebookhq/lorebook/pkg/vector"
)

const payloadProjectID = "project_id"

// Driver implements vector.Driver using a Qdrant collection.
type Driver struct {
	client     *qdr.Client
	collection string
	logger     *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant gRPC host.
	Host string

	// Port is the Qdrant gRPC port (typically 6334).
	Port int

	// Collection is the collection name to store embeddings in.
	Collection string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver connects to Qdrant and ensures the configured collection exists.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	client, err := qdr.NewClient(&qdr.Config{
		Host: c.Host,
		Port: c.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, c.Collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdr.CreateCollection{
			CollectionName: c.Collection,
			VectorsConfig: qdr.NewVectorsConfig(&qdr.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdr.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %s: %w", c.Collection, err)
		}
	}

	logger.Info("qdrant vector driver initialized",
		"host", c.Host,
		"port", c.Port,
		"collection", c.Collection,
		"dimensions", c.Dimensions,
	)

	return &Driver{
		client:     client,
		collection: c.Collection,
		logger:     logger,
	}, nil
}

// Add stores documents with their embeddings, upserting on existing IDs.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdr.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, &qdr.PointStruct{
			Id:      qdr.NewID(doc.ID),
			Vectors: qdr.NewVectors(doc.Embedding...),
			Payload: qdr.NewValueMap(map[string]any{
				payloadProjectID: doc.ProjectID,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdr.UpsertPoints{
		CollectionName: d.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qdr.QueryPoints{
		CollectionName: d.collection,
		Query:          qdr.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdr.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, point := range points {
		doc := vector.Document{
			ID: point.GetId().GetUuid(),
		}
		if v, ok := point.GetPayload()[payloadProjectID]; ok {
			doc.ProjectID = v.GetStringValue()
		}
		results = append(results, vector.QueryResult{
			Document: doc,
			// Cosine similarity from Qdrant is already higher-is-better.
			Score: point.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant", "results", len(results))

	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdr.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdr.NewID(id))
	}

	points, err := d.client.Get(ctx, &qdr.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithPayload:    qdr.NewWithPayload(true),
		WithVectors:    qdr.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, point := range points {
		doc := vector.Document{
			ID: point.GetId().GetUuid(),
		}
		if v, ok := point.GetPayload()[payloadProjectID]; ok {
			doc.ProjectID = v.GetStringValue()
		}
		if vec := point.GetVectors().GetVector(); vec != nil {
			doc.Embedding = vec.GetData()
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdr.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdr.NewID(id))
	}

	_, err := d.client.Delete(ctx, &qdr.DeletePoints{
		CollectionName: d.collection,
		Points:         qdr.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	d.logger.Debug("deleted documents from qdrant", "count", len(ids))

	return nil
}

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
