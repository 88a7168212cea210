// Package mongo implements simplefiles.Repository on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-files/pkg/simplefiles"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	filesCollection    = "files"
	countersCollection = "counters"

	// rootParent is how top-level objects record their parent
	rootParent = "0"
)

type userDocument struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"created_at"`
}

type objectDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Name      string    `bson:"name"`
	Type      string    `bson:"type"`
	ParentID  string    `bson:"parentId"`
	IsPublic  bool      `bson:"isPublic"`
	LocalPath string    `bson:"localPath,omitempty"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"created_at"`
}

// Repository implements simplefiles.Repository using MongoDB
type Repository struct {
	client   *mongo.Client
	database *mongo.Database
}

var _ simplefiles.Repository = (*Repository)(nil)

// Connect dials uri and opens database, creating the indexes the
// repository relies on.
func Connect(ctx context.Context, uri, database string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, simplefiles.Unavailable("mongo connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, simplefiles.Unavailable("mongo ping", err)
	}

	r := New(client, client.Database(database))
	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return r, nil
}

// New creates a repository on an existing client and database. The caller
// keeps ownership of client unless it calls Close.
func New(client *mongo.Client, database *mongo.Database) *Repository {
	return &Repository{client: client, database: database}
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	_, err := r.database.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	_, err = r.database.Collection(filesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "parentId", Value: 1},
				{Key: "seq", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create files indexes: %w", err)
	}
	return nil
}

// nextSeq returns a monotonically increasing insertion sequence
func (r *Repository) nextSeq(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.database.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, simplefiles.Unavailable("mongo next seq", err)
	}
	return counter.Seq, nil
}

// User operations

func (r *Repository) InsertUser(ctx context.Context, user *simplefiles.User) error {
	_, err := r.database.Collection(usersCollection).InsertOne(ctx, userDocument{
		ID:        user.ID.String(),
		Email:     user.Email,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return simplefiles.ErrConflict
	} else if err != nil {
		return simplefiles.Unavailable("mongo insert user", err)
	}
	return nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*simplefiles.User, error) {
	return r.findUser(ctx, bson.M{"email": email})
}

func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*simplefiles.User, error) {
	return r.findUser(ctx, bson.M{"_id": id.String()})
}

func (r *Repository) findUser(ctx context.Context, filter bson.M) (*simplefiles.User, error) {
	var doc userDocument
	err := r.database.Collection(usersCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, simplefiles.ErrNotFound
	} else if err != nil {
		return nil, simplefiles.Unavailable("mongo find user", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", doc.ID, err)
	}
	return &simplefiles.User{
		ID:           id,
		Email:        doc.Email,
		PasswordHash: doc.Password,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	n, err := r.database.Collection(usersCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, simplefiles.Unavailable("mongo count users", err)
	}
	return n, nil
}

// Object operations

func (r *Repository) InsertObject(ctx context.Context, object *simplefiles.Object) error {
	seq, err := r.nextSeq(ctx, filesCollection)
	if err != nil {
		return err
	}

	_, err = r.database.Collection(filesCollection).InsertOne(ctx, objectDocument{
		ID:        object.ID.String(),
		UserID:    object.OwnerID.String(),
		Name:      object.Name,
		Type:      string(object.Kind),
		ParentID:  parentString(object.ParentID),
		IsPublic:  object.IsPublic,
		LocalPath: object.ContentRef,
		Seq:       seq,
		CreatedAt: object.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return simplefiles.ErrConflict
	} else if err != nil {
		return simplefiles.Unavailable("mongo insert object", err)
	}
	return nil
}

// accessFilter pushes q's access rule into the lookup itself
func accessFilter(q simplefiles.ObjectQuery) bson.M {
	filter := bson.M{"_id": q.ID.String()}
	switch q.Access {
	case simplefiles.AccessOwner:
		filter["userId"] = q.RequesterID.String()
	case simplefiles.AccessViewer:
		if q.RequesterID == uuid.Nil {
			filter["isPublic"] = true
		} else {
			filter["$or"] = bson.A{
				bson.M{"isPublic": true},
				bson.M{"userId": q.RequesterID.String()},
			}
		}
	}
	return filter
}

func (r *Repository) FindObject(ctx context.Context, q simplefiles.ObjectQuery) (*simplefiles.Object, error) {
	if q.Access == simplefiles.AccessOwner && q.RequesterID == uuid.Nil {
		return nil, simplefiles.ErrNotFound
	}

	var doc objectDocument
	err := r.database.Collection(filesCollection).FindOne(ctx, accessFilter(q)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, simplefiles.ErrNotFound
	} else if err != nil {
		return nil, simplefiles.Unavailable("mongo find object", err)
	}
	return doc.toObject()
}

func (r *Repository) UpdateObjectVisibility(ctx context.Context, q simplefiles.ObjectQuery, isPublic bool) (*simplefiles.Object, error) {
	if q.Access == simplefiles.AccessOwner && q.RequesterID == uuid.Nil {
		return nil, simplefiles.ErrNotFound
	}

	var doc objectDocument
	err := r.database.Collection(filesCollection).FindOneAndUpdate(ctx,
		accessFilter(q),
		bson.M{"$set": bson.M{"isPublic": isPublic}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, simplefiles.ErrNotFound
	} else if err != nil {
		return nil, simplefiles.Unavailable("mongo update visibility", err)
	}
	return doc.toObject()
}

func (r *Repository) ListObjects(ctx context.Context, ownerID, parentID uuid.UUID, offset, limit int) ([]*simplefiles.Object, error) {
	return r.aggregateObjects(ctx, "list objects",
		bson.M{"userId": ownerID.String(), "parentId": parentString(parentID)}, offset, limit)
}

func (r *Repository) ScanObjects(ctx context.Context, kind simplefiles.Kind, offset, limit int) ([]*simplefiles.Object, error) {
	return r.aggregateObjects(ctx, "scan objects", bson.M{"type": string(kind)}, offset, limit)
}

func (r *Repository) aggregateObjects(ctx context.Context, operation string, match bson.M, offset, limit int) ([]*simplefiles.Object, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "seq", Value: 1}}}},
		{{Key: "$skip", Value: int64(offset)}},
		{{Key: "$limit", Value: int64(limit)}},
	}

	cursor, err := r.database.Collection(filesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, simplefiles.Unavailable("mongo "+operation, err)
	}
	defer cursor.Close(ctx)

	var docs []objectDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, simplefiles.Unavailable("mongo decode objects", err)
	}

	objects := make([]*simplefiles.Object, 0, len(docs))
	for _, doc := range docs {
		object, err := doc.toObject()
		if err != nil {
			return nil, err
		}
		objects = append(objects, object)
	}
	return objects, nil
}

func (r *Repository) CountObjects(ctx context.Context) (int64, error) {
	n, err := r.database.Collection(filesCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, simplefiles.Unavailable("mongo count objects", err)
	}
	return n, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func parentString(id uuid.UUID) string {
	if id == simplefiles.RootID {
		return rootParent
	}
	return id.String()
}

func (d objectDocument) toObject() (*simplefiles.Object, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt object id %q: %w", d.ID, err)
	}
	ownerID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt owner id %q: %w", d.UserID, err)
	}
	parentID := simplefiles.RootID
	if d.ParentID != rootParent {
		if parentID, err = uuid.Parse(d.ParentID); err != nil {
			return nil, fmt.Errorf("corrupt parent id %q: %w", d.ParentID, err)
		}
	}
	return &simplefiles.Object{
		ID:         id,
		OwnerID:    ownerID,
		Name:       d.Name,
		Kind:       simplefiles.Kind(d.Type),
		ParentID:   parentID,
		IsPublic:   d.IsPublic,
		ContentRef: d.LocalPath,
		CreatedAt:  d.CreatedAt,
	}, nil
}
