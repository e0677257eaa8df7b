package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"gamevault/internal/domain/models"
	"gamevault/internal/storage"
)

type Storage struct {
	client   *mongo.Client
	database *mongo.Database
	users    *mongo.Collection
	games    *mongo.Collection
	counters *mongo.Collection
}

type userDoc struct {
	ID               int64      `bson:"_id"`
	Username         string     `bson:"username"`
	Email            string     `bson:"email"`
	PassHash         []byte     `bson:"password_hash"`
	Role             string     `bson:"role"`
	IsActive         bool       `bson:"is_active"`
	RefreshTokenHash *string    `bson:"refresh_token_hash,omitempty"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
	LastLoginAt      *time.Time `bson:"last_login_at,omitempty"`
}

type gameDoc struct {
	ID        int64     `bson:"_id"`
	Title     string    `bson:"title"`
	Platform  string    `bson:"platform"`
	Price     float64   `bson:"price"`
	Rating    float64   `bson:"rating"`
	Visits    int64     `bson:"visits"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// New creates a new MongoDB storage instance and sets up indexes.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:   client,
		database: db,
		users:    db.Collection("users"),
		games:    db.Collection("games"),
		counters: db.Collection("counters"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}

	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	// users.email unique
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.email index: %w", err)
	}

	// users.username unique
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.username index: %w", err)
	}

	// users.refresh_token_hash for refresh lookups; sparse because most
	// rows have no live session
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "refresh_token_hash", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	if err != nil {
		return fmt.Errorf("users.refresh_token_hash index: %w", err)
	}

	// games title+platform unique
	_, err = s.games.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}, {Key: "platform", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("games.title index: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// nextID atomically increments and returns the next ID for a given collection.
func (s *Storage) nextID(ctx context.Context, collectionName string) (int64, error) {
	filter := bson.D{{Key: "_id", Value: collectionName}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter counterDoc
	err := s.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (s *Storage) SaveUser(
	ctx context.Context,
	username string,
	email string,
	passHash []byte,
	role models.Role,
) (int64, error) {
	const op = "storage.mongodb.SaveUser"

	id, err := s.nextID(ctx, "users")
	if err != nil {
		return 0, fmt.Errorf("%s: nextID: %w", op, err)
	}

	now := time.Now()
	doc := userDoc{
		ID:        id,
		Username:  username,
		Email:     email,
		PassHash:  passHash,
		Role:      string(role),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.users.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.mongodb.UserByID"
	return s.findUser(ctx, op, bson.D{{Key: "_id", Value: userID}})
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.mongodb.UserByEmail"
	return s.findUser(ctx, op, bson.D{{Key: "email", Value: email}})
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.mongodb.UserByUsername"
	return s.findUser(ctx, op, bson.D{{Key: "username", Value: username}})
}

// UserByRefreshDigest matches active accounts only.
func (s *Storage) UserByRefreshDigest(ctx context.Context, digest string) (*models.User, error) {
	const op = "storage.mongodb.UserByRefreshDigest"
	return s.findUser(ctx, op, bson.D{
		{Key: "refresh_token_hash", Value: digest},
		{Key: "is_active", Value: true},
	})
}

func (s *Storage) Users(ctx context.Context) ([]models.PublicUser, error) {
	const op = "storage.mongodb.Users"

	cursor, err := s.users.Find(ctx,
		bson.D{{Key: "is_active", Value: true}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	list := []models.PublicUser{}
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user := doc.toModel()
		list = append(list, user.Public())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Storage) UpdateRefreshDigest(ctx context.Context, userID int64, digest *string) error {
	const op = "storage.mongodb.UpdateRefreshDigest"

	var update bson.D
	if digest != nil {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: "refresh_token_hash", Value: *digest},
			{Key: "updated_at", Value: time.Now()},
		}}}
	} else {
		update = bson.D{
			{Key: "$unset", Value: bson.D{{Key: "refresh_token_hash", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now()}}},
		}
	}

	result, err := s.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: userID}}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	const op = "storage.mongodb.UpdateLastLogin"

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "last_login_at", Value: at},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, userID int64, upd models.UserUpdate) error {
	const op = "storage.mongodb.UpdateUser"

	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if upd.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *upd.Username})
	}
	if upd.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *upd.Email})
	}
	if upd.Role != nil {
		set = append(set, bson.E{Key: "role", Value: string(*upd.Role)})
	}

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// DeleteUser soft-deletes: the document stays, flagged inactive.
func (s *Storage) DeleteUser(ctx context.Context, userID int64) error {
	const op = "storage.mongodb.DeleteUser"

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_active", Value: false},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) SaveGame(ctx context.Context, game *models.Game) (int64, error) {
	const op = "storage.mongodb.SaveGame"

	id, err := s.nextID(ctx, "games")
	if err != nil {
		return 0, fmt.Errorf("%s: nextID: %w", op, err)
	}

	now := time.Now()
	doc := gameDoc{
		ID:        id,
		Title:     game.Title,
		Platform:  game.Platform,
		Price:     game.Price,
		Rating:    game.Rating,
		Visits:    game.Visits,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.games.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrGameExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) Game(ctx context.Context, gameID int64) (*models.Game, error) {
	const op = "storage.mongodb.Game"

	var doc gameDoc
	err := s.games.FindOne(ctx, bson.D{{Key: "_id", Value: gameID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrGameNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	game := doc.toModel()
	return &game, nil
}

func (s *Storage) Games(ctx context.Context, platform string) ([]models.Game, error) {
	const op = "storage.mongodb.Games"

	filter := bson.D{}
	if platform != "" {
		filter = bson.D{{Key: "platform", Value: platform}}
	}

	cursor, err := s.games.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	list := []models.Game{}
	for cursor.Next(ctx) {
		var doc gameDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Storage) UpdateGame(ctx context.Context, gameID int64, upd models.GameUpdate) error {
	const op = "storage.mongodb.UpdateGame"

	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if upd.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *upd.Title})
	}
	if upd.Platform != nil {
		set = append(set, bson.E{Key: "platform", Value: *upd.Platform})
	}
	if upd.Price != nil {
		set = append(set, bson.E{Key: "price", Value: *upd.Price})
	}
	if upd.Rating != nil {
		set = append(set, bson.E{Key: "rating", Value: *upd.Rating})
	}
	if upd.Visits != nil {
		set = append(set, bson.E{Key: "visits", Value: *upd.Visits})
	}

	result, err := s.games.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: gameID}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGameNotFound)
	}
	return nil
}

func (s *Storage) DeleteGame(ctx context.Context, gameID int64) error {
	const op = "storage.mongodb.DeleteGame"

	result, err := s.games.DeleteOne(ctx, bson.D{{Key: "_id", Value: gameID}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGameNotFound)
	}
	return nil
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := doc.toModel()
	return &user, nil
}

func (d userDoc) toModel() models.User {
	return models.User{
		ID:               d.ID,
		Username:         d.Username,
		Email:            d.Email,
		PassHash:         d.PassHash,
		Role:             models.Role(d.Role),
		IsActive:         d.IsActive,
		RefreshTokenHash: d.RefreshTokenHash,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		LastLoginAt:      d.LastLoginAt,
	}
}

func (d gameDoc) toModel() models.Game {
	return models.Game{
		ID:        d.ID,
		Title:     d.Title,
		Platform:  d.Platform,
		Price:     d.Price,
		Rating:    d.Rating,
		Visits:    d.Visits,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// isDuplicateKeyError checks if the error is a MongoDB duplicate key error (code 11000).
func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
