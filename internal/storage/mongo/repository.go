// Package mongo is the document storage backend built on the official
// MongoDB driver. Integer identities come from a counters collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spendwise/internal/core"
	"spendwise/internal/storage"
)

var _ storage.Store = (*Repository)(nil)

const countersCollection = "counters"

// expenseDoc is the stored shape of an expense.
type expenseDoc struct {
	ID          int64     `bson:"_id"`
	OwnerID     int64     `bson:"owner_id"`
	Date        time.Time `bson:"date"`
	Category    string    `bson:"category"`
	AmountCents int64     `bson:"amount_cents"`
	Description string    `bson:"description"`
}

func toDoc(e core.Expense) expenseDoc {
	return expenseDoc{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Date:        e.Date.Time,
		Category:    e.Category,
		AmountCents: e.Amount.Cents,
		Description: e.Description,
	}
}

func (d expenseDoc) expense() core.Expense {
	return core.Expense{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Date:        core.DateOf(d.Date),
		Category:    d.Category,
		Amount:      core.Cents(d.AmountCents),
		Description: d.Description,
	}
}

type Repository struct {
	client     *mongo.Client
	collection *mongo.Collection
	counters   *mongo.Collection
}

// Open connects to uri and prepares the expenses collection.
func Open(ctx context.Context, uri, dbName, collName string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	database := client.Database(dbName)
	r := &Repository{
		client:     client,
		collection: database.Collection(collName),
		counters:   database.Collection(countersCollection),
	}

	_, err = r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("create expenses index: %w", err)
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", dbName, "collection", collName)
	return r, nil
}

func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *Repository) Find(ctx context.Context, id int64) (core.Expense, error) {
	var doc expenseDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, core.Persistence("find expense", err)
	}
	return doc.expense(), nil
}

func (r *Repository) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := storage.CheckSave(e); err != nil {
		return core.Expense{}, err
	}

	if !e.HasID() {
		id, err := r.nextID(ctx)
		if err != nil {
			return core.Expense{}, core.Persistence("allocate expense id", err)
		}
		e = e.WithID(id)
		if _, err := r.collection.InsertOne(ctx, toDoc(e)); err != nil {
			return core.Expense{}, core.Persistence("insert expense", err)
		}
		return e, nil
	}

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": e.ID, "owner_id": e.OwnerID}, toDoc(e))
	if err != nil {
		return core.Expense{}, core.Persistence("update expense", err)
	}
	if res.MatchedCount == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

// nextID increments the per-collection sequence and returns the new value.
func (r *Repository) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": r.collection.Name()},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID}); err != nil {
		return core.Persistence("delete expense", err)
	}
	return nil
}

func (r *Repository) FindBy(ctx context.Context, c core.Criteria, offset, limit int) ([]core.Expense, error) {
	if err := storage.CheckQuery(c, offset, limit); err != nil {
		return nil, err
	}
	// The driver reads a zero limit as "no limit".
	if limit == 0 {
		return []core.Expense{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, Filter(c), opts)
	if err != nil {
		return nil, core.Persistence("find expenses", err)
	}
	defer cursor.Close(ctx)

	out := make([]core.Expense, 0)
	for cursor.Next(ctx) {
		var doc expenseDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, core.Persistence("decode expense", err)
		}
		out = append(out, doc.expense())
	}
	if err := cursor.Err(); err != nil {
		return nil, core.Persistence("find expenses", err)
	}
	return out, nil
}

func (r *Repository) CountBy(ctx context.Context, c core.Criteria) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	n, err := r.collection.CountDocuments(ctx, Filter(c))
	if err != nil {
		return 0, core.Persistence("count expenses", err)
	}
	return int(n), nil
}

func (r *Repository) ListExpenditureYears(ctx context.Context, ownerID int64) ([]int, error) {
	if err := core.ForOwner(ownerID).Validate(); err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID}}},
		{{Key: "$group", Value: bson.M{"_id": bson.M{"$year": "$date"}}}},
		{{Key: "$sort", Value: bson.M{"_id": -1}}},
	}
	var rows []struct {
		Year int `bson:"_id"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, core.Persistence("list years", err)
	}
	years := make([]int, 0, len(rows))
	for _, row := range rows {
		years = append(years, row.Year)
	}
	return years, nil
}

type categoryGroup struct {
	Category string `bson:"_id"`
	Sum      int64  `bson:"sum"`
	Count    int64  `bson:"count"`
}

func (r *Repository) groupByCategory(ctx context.Context, c core.Criteria) ([]categoryGroup, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: Filter(c)}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category",
			"sum":   bson.M{"$sum": "$amount_cents"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	var groups []categoryGroup
	if err := r.aggregate(ctx, pipeline, &groups); err != nil {
		return nil, core.Persistence("group expenses", err)
	}
	return groups, nil
}

func (r *Repository) SumAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error) {
	groups, err := r.groupByCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Money, len(groups))
	for _, g := range groups {
		out[g.Category] = core.Cents(g.Sum)
	}
	return out, nil
}

func (r *Repository) AverageAmountsByCategory(ctx context.Context, c core.Criteria) (map[string]core.Money, error) {
	groups, err := r.groupByCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.Money, len(groups))
	for _, g := range groups {
		out[g.Category] = core.Average(core.Cents(g.Sum), g.Count)
	}
	return out, nil
}

func (r *Repository) SumAmounts(ctx context.Context, c core.Criteria) (core.Money, error) {
	if err := c.Validate(); err != nil {
		return core.Money{}, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: Filter(c)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "sum": bson.M{"$sum": "$amount_cents"}}}},
	}
	var rows []struct {
		Sum int64 `bson:"sum"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return core.Money{}, core.Persistence("sum expenses", err)
	}
	if len(rows) == 0 {
		return core.Money{}, nil
	}
	return core.Cents(rows[0].Sum), nil
}

func (r *Repository) ListOwners(ctx context.Context) ([]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$owner_id"}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	var rows []struct {
		OwnerID int64 `bson:"_id"`
	}
	if err := r.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, core.Persistence("list owners", err)
	}
	owners := make([]int64, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, row.OwnerID)
	}
	return owners, nil
}

func (r *Repository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}
