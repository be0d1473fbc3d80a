package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	bookingDomain "github.com/hallbook/service-reservation/internal/domain/booking"
	roomDomain "github.com/hallbook/service-reservation/internal/domain/room"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	roomsCollection    = "rooms"
	bookingsCollection = "bookings"
	countersCollection = "counters"
	locksCollection    = "room_locks"

	lockRetryMin = 10 * time.Millisecond
	lockRetryMax = 200 * time.Millisecond
)

type roomDocument struct {
	ID           int64     `bson:"_id"`
	Name         string    `bson:"name"`
	Seats        int       `bson:"seats"`
	Amenities    []string  `bson:"amenities"`
	PricePerHour float64   `bson:"price_per_hour"`
	CreatedAt    time.Time `bson:"created_at"`
}

type bookingDocument struct {
	ID           int64     `bson:"_id"`
	RoomID       int64     `bson:"room_id"`
	CustomerName string    `bson:"customer_name"`
	DateStart    time.Time `bson:"date_start"`
	DateEnd      time.Time `bson:"date_end"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"created_at"`
}

// lockDocument is an advisory lock on one room. A duplicate _id means the room is held.
type lockDocument struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// MongoStore persists rooms and bookings in MongoDB.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewMongoStore connects, pings and prepares indexes.
func NewMongoStore(ctx context.Context, uri, database string, lockTTL time.Duration, logger *zap.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{
		client:  client,
		db:      client.Database(database),
		lockTTL: lockTTL,
		logger:  logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info("connected to mongo", zap.String("database", database))
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(bookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "customer_name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	_, err = s.db.Collection(locksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create lock TTL index: %w", err)
	}
	return nil
}

// Rooms returns the room repository view of the store.
func (s *MongoStore) Rooms() *MongoRoomRepository {
	return &MongoRoomRepository{store: s}
}

// Bookings returns the booking repository view of the store.
func (s *MongoStore) Bookings() *MongoBookingRepository {
	return &MongoBookingRepository{store: s}
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// nextID atomically increments and returns the named sequence.
func (s *MongoStore) nextID(ctx context.Context, sequence string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": sequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", sequence, err)
	}
	return counter.Seq, nil
}

// roomLock is a held advisory lock document.
type roomLock struct {
	locks     *mongo.Collection
	id        string
	owner     string
	expiresAt time.Time
	logger    *zap.Logger
}

// lockRoom takes the advisory lock for roomID, retrying with backoff until ctx ends.
// Locks left behind by a crashed holder are cleared once expired.
func (s *MongoStore) lockRoom(ctx context.Context, roomID int64) (*roomLock, error) {
	locks := s.db.Collection(locksCollection)
	id := "room:" + strconv.FormatInt(roomID, 10)
	owner := uuid.NewString()
	wait := lockRetryMin

	for {
		now := time.Now().UTC()
		if _, err := locks.DeleteOne(ctx, bson.M{"_id": id, "expires_at": bson.M{"$lte": now}}); err != nil {
			return nil, fmt.Errorf("failed to clear expired room lock: %w", err)
		}
		expiresAt := now.Add(s.lockTTL)
		_, err := locks.InsertOne(ctx, lockDocument{ID: id, Owner: owner, ExpiresAt: expiresAt})
		if err == nil {
			return &roomLock{locks: locks, id: id, owner: owner, expiresAt: expiresAt, logger: s.logger}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to acquire room lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, apperror.NewUnavailableError("room is busy, try again", ctx.Err())
		case <-time.After(wait):
		}
		if wait < lockRetryMax {
			wait *= 2
		}
	}
}

// deadline is when work under the lock must stop. It leaves a fifth of the TTL as
// headroom for clock skew between replicas.
func (l *roomLock) deadline(ttl time.Duration) time.Time {
	return lockDeadline(l.expiresAt, ttl)
}

func lockDeadline(expiresAt time.Time, ttl time.Duration) time.Time {
	return expiresAt.Add(-ttl / 5)
}

// held reports whether the lock document still belongs to this holder.
func (l *roomLock) held(ctx context.Context) (bool, error) {
	n, err := l.locks.CountDocuments(ctx, bson.M{"_id": l.id, "owner": l.owner})
	if err != nil {
		return false, fmt.Errorf("failed to check room lock: %w", err)
	}
	return n == 1, nil
}

func (l *roomLock) release() {
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := l.locks.DeleteOne(releaseCtx, bson.M{"_id": l.id, "owner": l.owner}); err != nil {
		l.logger.Warn("failed to release room lock", zap.String("lock", l.id), zap.Error(err))
	}
}

// MongoRoomRepository implements roomDomain.RoomRepository over a MongoStore.
type MongoRoomRepository struct {
	store *MongoStore
}

// Save allocates a room id from the counters collection and inserts the room.
func (r *MongoRoomRepository) Save(ctx context.Context, rm *roomDomain.Room) (*roomDomain.Room, error) {
	id, err := r.store.nextID(ctx, roomsCollection)
	if err != nil {
		return nil, err
	}
	doc := toRoomDocument(rm.WithID(id))
	if _, err := r.store.db.Collection(roomsCollection).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save room: %w", err)
	}
	return toDomainRoomDocument(doc), nil
}

// FindByID retrieves a room by its id.
func (r *MongoRoomRepository) FindByID(ctx context.Context, id int64) (*roomDomain.Room, error) {
	var doc roomDocument
	err := r.store.db.Collection(roomsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NewNotFoundError("Room", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to find room by ID: %w", err)
	}
	return toDomainRoomDocument(&doc), nil
}

// ListAll returns every room ordered by id.
func (r *MongoRoomRepository) ListAll(ctx context.Context) ([]*roomDomain.Room, error) {
	cursor, err := r.store.db.Collection(roomsCollection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	var docs []roomDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}

	rooms := make([]*roomDomain.Room, len(docs))
	for i := range docs {
		rooms[i] = toDomainRoomDocument(&docs[i])
	}
	return rooms, nil
}

// MongoBookingRepository implements bookingDomain.BookingRepository over a MongoStore.
type MongoBookingRepository struct {
	store *MongoStore
}

// Reserve holds the room's advisory lock across the overlap check and the insert. The
// work is bounded by the lock's expiry, and ownership is re-checked after the insert: a
// holder whose lock was taken over removes its booking again.
func (r *MongoBookingRepository) Reserve(
	ctx context.Context,
	draft *bookingDomain.Booking,
	check bookingDomain.CheckFunc,
) (*bookingDomain.Booking, error) {
	lock, err := r.store.lockRoom(ctx, draft.RoomID())
	if err != nil {
		return nil, err
	}
	defer lock.release()

	lockCtx, cancel := context.WithDeadline(ctx, lock.deadline(r.store.lockTTL))
	defer cancel()

	if _, err := r.store.Rooms().FindByID(lockCtx, draft.RoomID()); err != nil {
		return nil, err
	}
	existing, err := r.FindByRoomID(lockCtx, draft.RoomID())
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(existing); err != nil {
			return nil, err
		}
	}

	if err := lockCtx.Err(); err != nil {
		return nil, apperror.NewUnavailableError("room lock expired, try again", err)
	}

	id, err := r.store.nextID(lockCtx, bookingsCollection)
	if err != nil {
		return nil, err
	}
	doc := toBookingDocument(draft.WithID(id))
	if _, err := r.store.db.Collection(bookingsCollection).InsertOne(lockCtx, doc); err != nil {
		// The server may still apply an insert whose context ran out.
		r.discard(id)
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	verifyCtx, verifyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer verifyCancel()
	held, err := lock.held(verifyCtx)
	if err != nil || !held {
		r.discard(id)
		if err != nil {
			return nil, err
		}
		return nil, apperror.NewUnavailableError("room lock expired, try again", nil)
	}
	return toDomainBookingDocument(doc)
}

// discard removes a booking written without a valid lock.
func (r *MongoBookingRepository) discard(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.store.db.Collection(bookingsCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		r.store.logger.Error("failed to discard booking written without lock",
			zap.Int64("booking_id", id),
			zap.Error(err),
		)
	}
}

// ListAll returns every booking in creation order.
func (r *MongoBookingRepository) ListAll(ctx context.Context) ([]*bookingDomain.Booking, error) {
	return r.find(ctx, bson.M{})
}

// FindByRoomID returns a room's bookings in creation order.
func (r *MongoBookingRepository) FindByRoomID(ctx context.Context, roomID int64) ([]*bookingDomain.Booking, error) {
	return r.find(ctx, bson.M{"room_id": roomID})
}

// FindByCustomer returns bookings made under exactly customerName.
func (r *MongoBookingRepository) FindByCustomer(ctx context.Context, customerName string) ([]*bookingDomain.Booking, error) {
	return r.find(ctx, bson.M{"customer_name": customerName})
}

// CountByRoom returns booking counts grouped by room id.
func (r *MongoBookingRepository) CountByRoom(ctx context.Context) (map[int64]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$room_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.store.db.Collection(bookingsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by room: %w", err)
	}
	var results []struct {
		RoomID int64 `bson:"_id"`
		Count  int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode booking counts: %w", err)
	}

	counts := make(map[int64]int64, len(results))
	for _, rc := range results {
		counts[rc.RoomID] = rc.Count
	}
	return counts, nil
}

func (r *MongoBookingRepository) find(ctx context.Context, filter bson.M) ([]*bookingDomain.Booking, error) {
	cursor, err := r.store.db.Collection(bookingsCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(docs))
	for i := range docs {
		b, err := toDomainBookingDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = b
	}
	return bookings, nil
}

// --- Mapping functions ---

// BSON dates carry millisecond precision.
func toMongoTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func toRoomDocument(rm *roomDomain.Room) *roomDocument {
	return &roomDocument{
		ID:           rm.ID(),
		Name:         rm.Name(),
		Seats:        rm.Seats(),
		Amenities:    rm.Amenities(),
		PricePerHour: rm.PricePerHour(),
		CreatedAt:    toMongoTime(rm.CreatedAt()),
	}
}

func toDomainRoomDocument(d *roomDocument) *roomDomain.Room {
	return roomDomain.Reconstruct(d.ID, d.Name, d.Seats, d.Amenities, d.PricePerHour, d.CreatedAt)
}

func toBookingDocument(b *bookingDomain.Booking) *bookingDocument {
	return &bookingDocument{
		ID:           b.ID(),
		RoomID:       b.RoomID(),
		CustomerName: b.CustomerName(),
		DateStart:    toMongoTime(b.DateStart()),
		DateEnd:      toMongoTime(b.DateEnd()),
		Status:       b.Status().String(),
		CreatedAt:    toMongoTime(b.CreatedAt()),
	}
}

func toDomainBookingDocument(d *bookingDocument) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", d.ID, err)
	}
	return bookingDomain.ReconstructBooking(
		d.ID,
		d.RoomID,
		d.CustomerName,
		d.DateStart,
		d.DateEnd,
		status,
		d.CreatedAt,
	), nil
}
