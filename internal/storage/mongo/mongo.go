// Package mongostorage implements storage.Backend on a MongoDB collection.
// Each class is one document keyed by its id, with an ownerId field and a
// seq field taken from a counter document that fixes listing order.
package mongostorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/pkg/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	backendName       = "mongo"
	countersSuffix    = "_counters"
	connectTimeout    = 10 * time.Second
	defaultCollection = "ar_classes"
)

// Dependencies holds all dependencies for the mongo storage backend.
// When Client is nil, Init connects using Config.URI.
type Dependencies struct {
	Client     *mongo.Client
	Config     config.MongoConfig
	LogManager *logging.SlogManager
}

// document is the stored shape of a class.
type document struct {
	core.Record `bson:",inline"`
	Seq         int64 `bson:"seq"`
}

// Backend implements storage.Backend using MongoDB.
type Backend struct {
	deps Dependencies
	log  *logging.SlogManager

	client   *mongo.Client
	owned    bool // client was created by Init
	classes  *mongo.Collection
	counters *mongo.Collection
}

// New creates a new mongo storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Config.Collection == "" {
		deps.Config.Collection = defaultCollection
	}
	if deps.Config.Database == "" {
		deps.Config.Database = "classbuilder"
	}
	return &Backend{deps: deps, log: deps.LogManager}
}

// Init connects if needed, pings the server and ensures the listing index.
func (b *Backend) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client := b.deps.Client
	if client == nil {
		opts := options.Client().
			ApplyURI(b.deps.Config.URI).
			SetServerSelectionTimeout(connectTimeout)
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			return core.WrapStorage(backendName, "init", fmt.Errorf("failed to connect to mongo: %w", err))
		}
		client = c
		b.owned = true
	}

	if err := client.Ping(ctx, nil); err != nil {
		if b.owned {
			_ = client.Disconnect(context.Background())
		}
		return core.WrapStorage(backendName, "init", fmt.Errorf("failed to ping mongo: %w", err))
	}

	db := client.Database(b.deps.Config.Database)
	b.client = client
	b.classes = db.Collection(b.deps.Config.Collection)
	b.counters = db.Collection(b.deps.Config.Collection + countersSuffix)

	_, err := b.classes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "seq", Value: 1}},
	})
	if err != nil {
		return core.WrapStorage(backendName, "init", fmt.Errorf("failed to create index: %w", err))
	}

	b.log.Logger().Info("Connected to mongo", "database", b.deps.Config.Database, "collection", b.deps.Config.Collection)
	return nil
}

// Close disconnects a client created by Init.
func (b *Backend) Close() error {
	if b.client == nil || !b.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	err := b.client.Disconnect(ctx)
	b.client = nil
	return err
}

// nextSeq increments the class counter and returns the new value.
func (b *Backend) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := b.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "classes"},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	return counter.Value, nil
}

// Save replaces the document for c.ID, keeping its seq when it exists.
func (b *Backend) Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error) {
	var existing struct {
		Seq int64 `bson:"seq"`
	}
	err := b.classes.FindOne(ctx, bson.M{"_id": c.ID},
		options.FindOne().SetProjection(bson.M{"seq": 1}),
	).Decode(&existing)

	seq := existing.Seq
	switch {
	case errors.Is(err, mongo.ErrNoDocuments) || (err == nil && seq == 0):
		if seq, err = b.nextSeq(ctx); err != nil {
			return core.Class{}, core.WrapStorage(backendName, "save", err)
		}
	case err != nil:
		return core.Class{}, core.WrapStorage(backendName, "save", err)
	}

	doc := document{Record: core.Record{Class: c, OwnerID: ownerID}, Seq: seq}
	_, err = b.classes.ReplaceOne(ctx, bson.M{"_id": c.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return core.Class{}, core.WrapStorage(backendName, "save", err)
	}
	return c, nil
}

// ListByOwner returns the owner's classes in seq order. Documents that fail
// to decode are skipped.
func (b *Backend) ListByOwner(ctx context.Context, ownerID string) ([]core.Summary, error) {
	cursor, err := b.classes.Find(ctx,
		bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, core.WrapStorage(backendName, "list", err)
	}
	defer cursor.Close(ctx)

	out := []core.Summary{}
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			b.log.Logger().Warn("Skipping corrupt class record", "backend", backendName, "error", err)
			continue
		}
		out = append(out, doc.Summarize())
	}
	if err := cursor.Err(); err != nil {
		return nil, core.WrapStorage(backendName, "list", err)
	}
	return out, nil
}

func (b *Backend) find(ctx context.Context, id string) (*document, error) {
	res := b.classes.FindOne(ctx, bson.M{"_id": id})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, core.WrapStorage(backendName, "get", err)
	}

	var doc document
	if err := res.Decode(&doc); err != nil {
		b.log.Logger().Warn("Skipping corrupt class record", "classId", id, "backend", backendName, "error", err)
		return nil, nil
	}
	return &doc, nil
}

// GetByID returns the stored class or nil when there is none.
func (b *Backend) GetByID(ctx context.Context, id string) (*core.Class, error) {
	doc, err := b.find(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	c := doc.Class
	return &c, nil
}

// OwnerOf reports the stored owner of a class.
func (b *Backend) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	doc, err := b.find(ctx, id)
	if err != nil || doc == nil {
		return "", false, err
	}
	return doc.OwnerID, true, nil
}

// DeleteByID removes the document for id.
func (b *Backend) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := b.classes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, core.WrapStorage(backendName, "delete", err)
	}
	return res.DeletedCount > 0, nil
}
