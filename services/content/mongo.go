package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names within the facility database.
const (
	collLocations = "locations"
	collAssets    = "assets"
	collProviders = "service_providers"
	collDocuments = "documents"
	collPlans     = "maintenance_plans"
	collTickets   = "tickets"
	collLogbook   = "logbook"
)

// MongoStore is the production Store backed by MongoDB. RolloverPlan and
// CompleteTicket run inside session transactions, which requires a replica
// set (or a hosted deployment that provides one).
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects using MONGO_URI and returns a MongoStore over the
// database named by MONGO_DATABASE (default "facilitydesk"). The connection
// is verified with a ping before use.
func ConnectMongo(ctx context.Context) (*MongoStore, error) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
		slog.Warn("MONGO_URI not set, defaulting to localhost")
	}
	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "facilitydesk"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping: %w", err)
	}
	return NewMongoStore(client, dbName), nil
}

// NewMongoStore wraps an already-connected client. Used by tests that bring
// their own client.
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(dbName)}
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) lookupLocation(ctx context.Context) nodeLookup {
	return func(id string) (*LocationNode, error) {
		var node LocationNode
		err := s.db.Collection(collLocations).FindOne(ctx, bson.M{"_id": id}).Decode(&node)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("location %q: %w", id, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("find location %q: %w", id, err)
		}
		return &node, nil
	}
}

// ResolveContext implements Store.
func (s *MongoStore) ResolveContext(ctx context.Context, assetID string) (*ContextBundle, error) {
	asset, err := s.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	bundle := &ContextBundle{Asset: *asset}
	if asset.LocationID != "" {
		chain, building, err := walkChain(asset.LocationID, s.lookupLocation(ctx))
		if err != nil {
			return nil, err
		}
		bundle.LocationChain = chain
		bundle.Building = building
	}

	cursor, err := s.db.Collection(collDocuments).Find(ctx, bson.M{"asset_id": assetID})
	if err != nil {
		return nil, fmt.Errorf("find documents for asset %q: %w", assetID, err)
	}
	if err := cursor.All(ctx, &bundle.Documents); err != nil {
		return nil, fmt.Errorf("decode documents for asset %q: %w", assetID, err)
	}

	if bundle.Building != nil && bundle.Building.TenantSlug != "" {
		cursor, err := s.db.Collection(collProviders).Find(ctx,
			bson.M{"tenant_slug": bundle.Building.TenantSlug})
		if err != nil {
			return nil, fmt.Errorf("find providers for tenant %q: %w", bundle.Building.TenantSlug, err)
		}
		if err := cursor.All(ctx, &bundle.ServiceProviders); err != nil {
			return nil, fmt.Errorf("decode providers: %w", err)
		}
	}
	return bundle, nil
}

// GetAsset implements Store.
func (s *MongoStore) GetAsset(ctx context.Context, assetID string) (*Asset, error) {
	var asset Asset
	err := s.db.Collection(collAssets).FindOne(ctx, bson.M{"_id": assetID}).Decode(&asset)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find asset %q: %w", assetID, err)
	}
	return &asset, nil
}

// DuePlans implements Store.
func (s *MongoStore) DuePlans(ctx context.Context, now time.Time) ([]MaintenancePlan, error) {
	filter := bson.M{
		"is_active":     true,
		"next_due_date": bson.M{"$lte": now},
	}
	cursor, err := s.db.Collection(collPlans).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find due plans: %w", err)
	}
	var plans []MaintenancePlan
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("decode due plans: %w", err)
	}
	return plans, nil
}

// RolloverPlan implements Store. The ticket insert and the plan patch share
// one session transaction; MongoDB aborts both on any failure.
func (s *MongoStore) RolloverPlan(ctx context.Context, planID string, ticket Ticket, lastExecution, nextDue time.Time) error {
	if err := ticket.Validate(); err != nil {
		return err
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.db.Collection(collTickets).InsertOne(sc, ticket); err != nil {
			return nil, fmt.Errorf("insert ticket: %w", err)
		}
		update := bson.M{"$set": bson.M{
			"last_execution_date": lastExecution,
			"next_due_date":       nextDue,
		}}
		res, err := s.db.Collection(collPlans).UpdateOne(sc, bson.M{"_id": planID}, update)
		if err != nil {
			return nil, fmt.Errorf("patch plan: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, fmt.Errorf("plan %q: %w", planID, ErrNotFound)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("rollover of plan %q: %w", planID, err)
	}
	return nil
}

// CompleteTicket implements Store.
func (s *MongoStore) CompleteTicket(ctx context.Context, ticketID, summary string, completedAt time.Time) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var ticket Ticket
		err := s.db.Collection(collTickets).FindOne(sc, bson.M{"_id": ticketID}).Decode(&ticket)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("find ticket: %w", err)
		}
		if ticket.Status == StatusCompleted {
			return nil, fmt.Errorf("ticket %q is already completed", ticketID)
		}

		_, err = s.db.Collection(collTickets).UpdateOne(sc,
			bson.M{"_id": ticketID},
			bson.M{"$set": bson.M{"status": StatusCompleted}})
		if err != nil {
			return nil, fmt.Errorf("update ticket: %w", err)
		}

		entry := LogbookEntry{
			ID:          "logbook-" + ticketID,
			TicketID:    ticketID,
			ScopeID:     ticket.ScopeID,
			Summary:     summary,
			CompletedAt: completedAt,
		}
		if _, err := s.db.Collection(collLogbook).InsertOne(sc, entry); err != nil {
			return nil, fmt.Errorf("insert logbook entry: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("complete ticket %q: %w", ticketID, err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
