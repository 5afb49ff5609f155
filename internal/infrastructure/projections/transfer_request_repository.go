package projections

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the Mongo collection holding the read model
const CollectionName = "stock_transfer_request_projections"

// TransferRequestProjectionRepository manages the transfer request read model
type TransferRequestProjectionRepository interface {
	// Upsert replaces the projection of one request
	Upsert(ctx context.Context, projection *TransferRequestProjection) error

	// FindByID returns nil, nil when the request was never projected
	FindByID(ctx context.Context, requestID string) (*TransferRequestProjection, error)

	FindWithFilter(ctx context.Context, filter TransferRequestFilter, page Pagination) (*PagedResult[TransferRequestProjection], error)
}

// MongoTransferRequestProjectionRepository is the MongoDB implementation
type MongoTransferRequestProjectionRepository struct {
	collection *mongo.Collection
}

// NewMongoTransferRequestProjectionRepository creates the repository and its indexes
func NewMongoTransferRequestProjectionRepository(ctx context.Context, db *mongo.Database) (*MongoTransferRequestProjectionRepository, error) {
	repo := &MongoTransferRequestProjectionRepository{collection: db.Collection(CollectionName)}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoTransferRequestProjectionRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "requestedAt", Value: -1}}},
		{Keys: bson.D{{Key: "serviceCenterId", Value: 1}, {Key: "requestedAt", Value: -1}}},
		{Keys: bson.D{{Key: "requestingWarehouseId", Value: 1}}},
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "typeComponentIds", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Upsert replaces the projection. A projection older than the stored one is
// ignored so a late writer cannot roll the status back.
func (r *MongoTransferRequestProjectionRepository) Upsert(ctx context.Context, projection *TransferRequestProjection) error {
	filter := bson.M{
		"_id": projection.RequestID,
		"$or": bson.A{
			bson.M{"updatedAt": bson.M{"$lte": projection.UpdatedAt}},
			bson.M{"updatedAt": bson.M{"$exists": false}},
		},
	}
	_, err := r.collection.ReplaceOne(ctx, filter, projection, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// a newer projection already exists
		return nil
	}
	return err
}

// FindByID retrieves a projection by request id
func (r *MongoTransferRequestProjectionRepository) FindByID(ctx context.Context, requestID string) (*TransferRequestProjection, error) {
	var projection TransferRequestProjection
	err := r.collection.FindOne(ctx, bson.M{"_id": requestID}).Decode(&projection)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &projection, nil
}

// FindWithFilter lists projections newest first
func (r *MongoTransferRequestProjectionRepository) FindWithFilter(ctx context.Context, filter TransferRequestFilter, page Pagination) (*PagedResult[TransferRequestProjection], error) {
	query := buildFilterQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "requestedAt", Value: -1}, {Key: "_id", Value: 1}})
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}
	if page.Offset > 0 {
		opts.SetSkip(int64(page.Offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []TransferRequestProjection{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}

	return &PagedResult[TransferRequestProjection]{
		Items:   items,
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: int64(page.Offset+len(items)) < total,
	}, nil
}

func buildFilterQuery(filter TransferRequestFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.RequestingWarehouseID != "" {
		query["requestingWarehouseId"] = filter.RequestingWarehouseID
	}
	if filter.ServiceCenterID != "" {
		query["serviceCenterId"] = filter.ServiceCenterID
	}
	if filter.CompanyID != "" {
		query["companyId"] = filter.CompanyID
	}
	if filter.TypeComponentID != "" {
		query["typeComponentIds"] = filter.TypeComponentID
	}
	return query
}
