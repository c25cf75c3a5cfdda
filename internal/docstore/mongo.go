package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps each collection to a MongoDB collection and each update
// to a single FindOneAndUpdate, so $inc / $addToSet / $pull apply atomically.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the creation-time index every collection is queried by.
func (s *MongoStore) EnsureIndexes(ctx context.Context, collections ...string) error {
	for _, name := range collections {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: FieldCreatedAt, Value: -1}, {Key: "_id", Value: -1}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func toBSON(id string, fields map[string]any) bson.M {
	doc := bson.M{"_id": id}
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}

func fromBSON(raw bson.M) Document {
	id, _ := raw["_id"].(string)
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalizeBSON(v)
	}
	return Document{ID: id, Fields: fields}
}

// normalizeBSON converts driver types to plain Go values.
func normalizeBSON(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.A:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalizeBSON(x[i])
		}
		return out
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	}
	return v
}

func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	id := uuid.NewString()
	doc := toBSON(id, fields)
	doc[FieldCreatedAt] = time.Now().UTC()
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return Document{}, err
	}
	return s.Get(ctx, collection, id)
}

func (s *MongoStore) Put(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	set := bson.M{}
	for k, v := range fields {
		if k != FieldCreatedAt {
			set[k] = v
		}
	}
	coll := s.db.Collection(collection)
	var existing bson.M
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		set[FieldCreatedAt] = time.Now().UTC()
	case err != nil:
		return Document{}, err
	default:
		set[FieldCreatedAt] = existing[FieldCreatedAt]
	}
	set["_id"] = id
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, set, opts); err != nil {
		return Document{}, err
	}
	return s.Get(ctx, collection, id)
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, order Order) ([]Document, error) {
	dir := 1
	if order.Direction == Desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: order.Field, Value: dir}, {Key: "_id", Value: dir}})
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, fromBSON(raw))
	}
	return out, cur.Err()
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, ops []Op, conds ...Cond) (Document, error) {
	update := bson.M{}
	section := func(name string) bson.M {
		m, ok := update[name].(bson.M)
		if !ok {
			m = bson.M{}
			update[name] = m
		}
		return m
	}
	for _, op := range ops {
		switch op.Kind {
		case OpSet:
			section("$set")[op.Field] = op.Value
		case OpIncrement:
			section("$inc")[op.Field] = op.Delta
		case OpArrayUnion:
			section("$addToSet")[op.Field] = bson.M{"$each": op.Values}
		case OpArrayRemove:
			section("$pull")[op.Field] = bson.M{"$in": op.Values}
		}
	}

	filter := bson.M{"_id": id}
	if len(conds) > 0 {
		and := make(bson.A, 0, len(conds))
		for _, c := range conds {
			if c.Contains {
				and = append(and, bson.M{c.Field: c.Value})
			} else {
				and = append(and, bson.M{c.Field: bson.M{"$ne": c.Value}})
			}
		}
		filter["$and"] = and
	}

	coll := s.db.Collection(collection)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var raw bson.M
	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, countErr := coll.CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return Document{}, countErr
		}
		if n == 0 {
			return Document{}, ErrNotFound
		}
		return Document{}, ErrConditionFailed
	}
	if err != nil {
		return Document{}, err
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}
