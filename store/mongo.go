package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Collection names used by MongoStore.
const (
	TicketsCollection   = "tickets"
	DecisionsCollection = "agent_decisions"
	DraftsCollection    = "drafted_responses"
)

// decisionDoc keeps the position of a decision within its batch because
// BSON timestamps only have millisecond precision.
type decisionDoc struct {
	ticket.AgentDecision `bson:",inline"`
	Seq                  int `bson:"seq"`
}

// MongoStore implements Store on MongoDB. Decisions are kept as documents so
// their output data is stored verbatim.
type MongoStore struct {
	client    *mongo.Client
	tickets   *mongo.Collection
	decisions *mongo.Collection
	drafts    *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects to uri and prepares the collections of database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		tickets:   db.Collection(TicketsCollection),
		decisions: db.Collection(DecisionsCollection),
		drafts:    db.Collection(DraftsCollection),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	if _, err := s.tickets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}); err != nil {
		return err
	}
	if _, err := s.decisions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ticket_id", Value: 1}, {Key: "timestamp", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := s.drafts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ticket_id", Value: 1}},
	})
	return err
}

func (s *MongoStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("ticket id is required: %w", errors.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	if _, err := s.tickets.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("ticket %s: %w", t.ID, errors.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateTicket(ctx context.Context, t *ticket.Ticket) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("ticket id is required: %w", errors.ErrInvalidInput)
	}
	t.UpdatedAt = time.Now().UTC()

	res, err := s.tickets.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("ticket %s: %w", t.ID, errors.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) GetTicket(ctx context.Context, id string) (*ticket.Ticket, error) {
	var t ticket.Ticket
	if err := s.tickets.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("ticket %s: %w", id, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &t, nil
}

func (s *MongoStore) ListTickets(ctx context.Context, status ticket.Status, offset, limit int) ([]ticket.Ticket, error) {
	offset, limit = normalizePage(offset, limit)

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.tickets.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]ticket.Ticket, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}
	return out, nil
}

func (s *MongoStore) SaveDecisions(ctx context.Context, decisions []ticket.AgentDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	docs := make([]any, len(decisions))
	for i := range decisions {
		if decisions[i].ID == "" {
			decisions[i].ID = NewID(DecisionPrefix)
		}
		docs[i] = decisionDoc{AgentDecision: decisions[i], Seq: i}
	}
	if _, err := s.decisions.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to insert decisions: %w", err)
	}
	return nil
}

func (s *MongoStore) SaveDraft(ctx context.Context, d *ticket.DraftedResponse) error {
	if d == nil {
		return fmt.Errorf("draft cannot be nil: %w", errors.ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = NewID(DraftPrefix)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if _, err := s.drafts.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

func (s *MongoStore) Decisions(ctx context.Context, ticketID string) ([]ticket.AgentDecision, error) {
	cursor, err := s.decisions.Find(ctx, bson.M{"ticket_id": ticketID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []decisionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode decisions: %w", err)
	}
	out := make([]ticket.AgentDecision, len(docs))
	for i, d := range docs {
		out[i] = d.AgentDecision
	}
	return out, nil
}

func (s *MongoStore) Drafts(ctx context.Context, ticketID string) ([]ticket.DraftedResponse, error) {
	cursor, err := s.drafts.Find(ctx, bson.M{"ticket_id": ticketID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]ticket.DraftedResponse, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode drafts: %w", err)
	}
	return out, nil
}

// Drop removes all three collections. Used by tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.tickets, s.decisions, s.drafts} {
		if err := c.Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks if the MongoDB connection is alive
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
