package docstore

import (
	"context"
	"errors"
	"fmt"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDocument is the shape of one entry in the documents collection.
type mongoDocument struct {
	Filename string   `bson:"filename"`
	ChunkIDs []string `bson:"chunk_ids"`
}

// MongoDocStore keeps filename -> chunk ids in a MongoDB collection with a unique filename index.
type MongoDocStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDocStore returns a store over database.collection and creates the filename index.
func NewMongoDocStore(ctx context.Context, client *mongo.Client, database, collection string) (*MongoDocStore, error) {
	coll := client.Database(database).Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "filename", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filename index: %w", err)
	}
	return &MongoDocStore{client: client, collection: coll}, nil
}

func (s *MongoDocStore) Upsert(ctx context.Context, filename string, chunkIDs []string) error {
	if chunkIDs == nil {
		chunkIDs = []string{}
	}
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"filename": filename},
		bson.M{"$set": bson.M{"filename": filename, "chunk_ids": chunkIDs}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return ragerr.Wrap(ragerr.ErrStore, err)
	}
	return nil
}

func (s *MongoDocStore) Get(ctx context.Context, filename string) ([]string, error) {
	var doc mongoDocument
	err := s.collection.FindOne(ctx, bson.M{"filename": filename}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("document %q: %w", filename, ragerr.ErrNotFound)
	}
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	return doc.ChunkIDs, nil
}

func (s *MongoDocStore) ListFilenames(ctx context.Context) ([]string, error) {
	cursor, err := s.collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"filename": 1, "_id": 0}).SetSort(bson.D{{Key: "filename", Value: 1}}))
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	defer cursor.Close(ctx)

	names := []string{}
	for cursor.Next(ctx) {
		var doc mongoDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, ragerr.Wrap(ragerr.ErrStore, err)
		}
		names = append(names, doc.Filename)
	}
	if err := cursor.Err(); err != nil {
		return nil, ragerr.Wrap(ragerr.ErrStore, err)
	}
	return names, nil
}

func (s *MongoDocStore) Delete(ctx context.Context, filename string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"filename": filename}); err != nil {
		return ragerr.Wrap(ragerr.ErrStore, err)
	}
	return nil
}

func (s *MongoDocStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

var _ interfaces.DocStore = (*MongoDocStore)(nil)
