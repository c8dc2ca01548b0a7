package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingserrors "tourdesk/internal/bookings/errors"
	"tourdesk/pkg/config"
	mongotx "tourdesk/pkg/db/mongo"
	"tourdesk/pkg/model"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByReference(ctx context.Context, reference, email string) (*model.Booking, error)
	FindByStatus(ctx context.Context, status model.Status, limit int, offset int64) ([]*model.Booking, error)
	CountByStatus(ctx context.Context, status model.Status) (int64, error)
	ConfirmPending(ctx context.Context, id string, confirmation *model.Confirmation) error
	MarkNotified(ctx context.Context, id string, confirmations int) error
	Update(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, monthStart time.Time) (*model.BookingStats, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.CreatedAt = now()
	booking.UpdatedAt = booking.CreatedAt
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return bookingserrors.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) findOne(ctx context.Context, filter bson.M) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoBookingRepository) FindByReference(ctx context.Context, reference, email string) (*model.Booking, error) {
	return r.findOne(ctx, bson.M{
		"booking_reference": reference,
		"customer.email":    email,
	})
}

func (r *mongoBookingRepository) FindByStatus(ctx context.Context, status model.Status, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountByStatus(ctx context.Context, status model.Status) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// ConfirmPending moves a booking from pending to confirmed, bumps its
// confirmation count and marks the notification as pending. The status is
// part of the filter, so two concurrent confirmations cannot both succeed:
// the loser gets ErrStatusChanged.
func (r *mongoBookingRepository) ConfirmPending(ctx context.Context, id string, confirmation *model.Confirmation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "status": model.StatusPending}
	update := bson.M{
		"$set": bson.M{
			"status":               model.StatusConfirmed,
			"confirmation":         confirmation,
			"notification_pending": true,
			"updated_at":           now(),
		},
		"$inc": bson.M{"confirmations": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrStatusChanged
	}
	return nil
}

// MarkNotified clears the pending notification of the given confirmation.
// A newer confirmation keeps its own flag.
func (r *mongoBookingRepository) MarkNotified(ctx context.Context, id string, confirmations int) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "confirmations": confirmations}
	update := bson.M{"$unset": bson.M{"notification_pending": ""}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to clear pending notification: %w", err)
	}
	return nil
}

// Update writes the mutable fields of booking back. Last write wins.
func (r *mongoBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(booking.ID)
	if err != nil {
		return err
	}

	booking.UpdatedAt = now()
	set := bson.M{
		"status":               booking.Status,
		"preferred_date":       booking.PreferredDate,
		"number_of_people":     booking.NumberOfPeople,
		"special_requirements": booking.SpecialRequirements,
		"updated_at":           booking.UpdatedAt,
	}
	if booking.Confirmation != nil {
		set["confirmation"] = booking.Confirmation
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) Stats(ctx context.Context, monthStart time.Time) (*model.BookingStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"by_status": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"this_month": bson.A{
				bson.M{"$match": bson.M{"created_at": bson.M{"$gte": monthStart}}},
				bson.M{"$count": "count"},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate booking stats: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		ByStatus []struct {
			Status model.Status `bson:"_id"`
			Count  int64        `bson:"count"`
		} `bson:"by_status"`
		ThisMonth []struct {
			Count int64 `bson:"count"`
		} `bson:"this_month"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("failed to decode booking stats: %w", err)
	}

	stats := &model.BookingStats{}
	if len(facets) == 0 {
		return stats, nil
	}
	for _, group := range facets[0].ByStatus {
		stats.Total += group.Count
		switch group.Status {
		case model.StatusPending:
			stats.Pending = group.Count
		case model.StatusConfirmed:
			stats.Confirmed = group.Count
		case model.StatusCancelled:
			stats.Cancelled = group.Count
		}
	}
	if len(facets[0].ThisMonth) > 0 {
		stats.ThisMonth = facets[0].ThisMonth[0].Count
	}
	return stats, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
