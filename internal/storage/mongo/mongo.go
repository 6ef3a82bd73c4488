// Package mongo stores the document in a MongoDB collection under a fixed _id.
package mongo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"wedding-site/internal/models"
	"wedding-site/internal/storage"
)

const (
	defaultCollectionName = "site"
	codeUnauthorized      = 13
)

type clientOwnership int

const (
	internalClient clientOwnership = iota
	externalClient
)

// Store implements storage.Store on MongoDB.
type Store struct {
	client     *mongo.Client
	ownership  clientOwnership
	collection *mongo.Collection
	id         string
}

var _ storage.Store = (*Store)(nil)

// New connects to uri (`mongodb://hostname`).
func New(ctx context.Context, uri, dbName, collection, documentID string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("could not connect to DB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	s := NewWithClient(client, dbName, collection, documentID)
	s.ownership = internalClient
	return s, nil
}

// NewWithClient wires an existing client, which Close leaves connected.
func NewWithClient(client *mongo.Client, dbName, collection, documentID string) *Store {
	if collection == "" {
		collection = defaultCollectionName
	}
	if documentID == "" {
		documentID = "main"
	}
	return &Store{
		client:     client,
		ownership:  externalClient,
		collection: client.Database(dbName).Collection(collection),
		id:         documentID,
	}
}

func (s *Store) filter() bson.M {
	return bson.M{"_id": s.id}
}

// Read fetches the document.
func (s *Store) Read(ctx context.Context) (models.Document, error) {
	raw, err := s.collection.FindOne(ctx, s.filter(),
		options.FindOne().SetProjection(bson.M{"_id": 0}),
	).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, mapError("find", err)
	}

	// Nested documents must decode as maps to serialize back to JSON objects.
	dec := bson.NewDecoder(bson.NewDocumentReader(bytes.NewReader(raw)))
	dec.DefaultDocumentM()
	var fields bson.M
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("could not decode document: %w", err)
	}

	doc := make(models.Document, len(fields))
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("could not encode %s: %w", k, err)
		}
		doc[k] = data
	}
	return doc, nil
}

// Write replaces the whole document.
func (s *Store) Write(ctx context.Context, cfg *models.Configuration) error {
	doc, err := models.DocumentOf(cfg)
	if err != nil {
		return err
	}
	fields, err := plain(doc)
	if err != nil {
		return err
	}
	fields["_id"] = s.id

	_, err = s.collection.ReplaceOne(ctx, s.filter(), fields, options.Replace().SetUpsert(true))
	return mapError("replace", err)
}

// Patch sets the fields of p.
func (s *Store) Patch(ctx context.Context, p models.Patch) error {
	if err := storage.ValidatePatch(p); err != nil {
		return err
	}
	set := bson.M{}
	for _, name := range p.Fields() {
		raw, err := models.EncodeField(name, p[name])
		if err != nil {
			return err
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("could not decode %s: %w", name, err)
		}
		set[name] = v
	}

	_, err := s.collection.UpdateOne(ctx, s.filter(), bson.M{"$set": set}, options.UpdateOne().SetUpsert(true))
	return mapError("update", err)
}

// Append uses $push, which the server applies atomically.
func (s *Store) Append(ctx context.Context, field string, value any) error {
	if err := models.CheckElement(field, value); err != nil {
		return err
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}

	_, err = s.collection.UpdateOne(ctx, s.filter(), bson.M{"$push": bson.M{field: v}}, options.UpdateOne().SetUpsert(true))
	return mapError("push", err)
}

// Close disconnects a client that New created.
func (s *Store) Close() error {
	if s.ownership == externalClient {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// normalize turns a typed value into maps and slices keyed by JSON names,
// so the stored shape matches the JSON documents the other stores hold.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func plain(doc models.Document) (bson.M, error) {
	out := make(bson.M, len(doc)+1)
	for k, raw := range doc {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("could not decode %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeUnauthorized) {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrPermissionDenied, err)
	}
	return fmt.Errorf("could not %s: %w", op, err)
}
