package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vnkhanh/podstream-backend/models"
)

const (
	UsersCollection      = "users"
	CategoriesCollection = "categories"
	PodcastsCollection   = "podcasts"
)

type MongoOptions struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
}

// MongoStore is the document-database backend. The client is created without
// dialing; the driver connects and reconnects on demand.
type MongoStore struct {
	client     *mongo.Client
	db         *mongo.Database
	users      *mongo.Collection
	categories *mongo.Collection
	podcasts   *mongo.Collection
	now        func() time.Time
}

func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if opts.Database == "" {
		opts.Database = "podstream"
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetMinPoolSize(0).
		SetMaxConnIdleTime(opts.MaxConnIdleTime).
		SetServerSelectionTimeout(opts.ServerSelectionTimeout).
		SetSocketTimeout(opts.SocketTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return newMongoStore(client, client.Database(opts.Database)), nil
}

func newMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:     client,
		db:         db,
		users:      db.Collection(UsersCollection),
		categories: db.Collection(CategoriesCollection),
		podcasts:   db.Collection(PodcastsCollection),
		now:        time.Now,
	}
}

func (s *MongoStore) Users() UserRepository          { return mongoUsers{s} }
func (s *MongoStore) Categories() CategoryRepository { return mongoCategories{s} }
func (s *MongoStore) Podcasts() PodcastRepository    { return mongoPodcasts{s} }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}
	unique := options.Index().SetUnique(true)

	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: asc("email"), Options: unique},
		{Keys: asc("username"), Options: unique},
		{Keys: asc("following")},
		{Keys: asc("isActive", "role")},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := s.categories.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: asc("normalizedName"), Options: unique},
		{Keys: asc("slug"), Options: unique},
		{Keys: asc("isActive")},
	}); err != nil {
		return fmt.Errorf("categories indexes: %w", err)
	}
	if _, err := s.podcasts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: asc("status", "isPublic")},
		{Keys: asc("likes")},
	}); err != nil {
		return fmt.Errorf("podcasts indexes: %w", err)
	}

	// Documents written before likeCount existed get it from their likes array.
	backfill := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"likeCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}}}}},
	}
	if _, err := s.podcasts.UpdateMany(ctx, bson.M{"likeCount": bson.M{"$exists": false}}, backfill); err != nil {
		return fmt.Errorf("backfill likeCount: %w", err)
	}
	return nil
}

// ---- documents ----

type userDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Username    string               `bson:"username"`
	Email       string               `bson:"email"`
	Password    string               `bson:"password"`
	Role        string               `bson:"role"`
	Profile     models.Profile       `bson:"profile"`
	Preferences models.Preferences   `bson:"preferences"`
	Following   []primitive.ObjectID `bson:"following"`
	IsVerified  bool                 `bson:"isVerified"`
	IsActive    bool                 `bson:"isActive"`
	LastLoginAt *time.Time           `bson:"lastLoginAt,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d *userDoc) model(followers []string) models.User {
	if followers == nil {
		followers = []string{}
	}
	return models.User{
		ID:          d.ID.Hex(),
		Username:    d.Username,
		Email:       d.Email,
		Password:    d.Password,
		Role:        models.UserRole(d.Role),
		Profile:     d.Profile,
		Preferences: d.Preferences,
		Following:   hexIDs(d.Following),
		Followers:   followers,
		IsVerified:  d.IsVerified,
		IsActive:    d.IsActive,
		LastLoginAt: d.LastLoginAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type categoryDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"categoryName"`
	NormalizedName string             `bson:"normalizedName"`
	Slug           string             `bson:"slug"`
	Description    string             `bson:"description,omitempty"`
	Color          string             `bson:"color"`
	IsActive       bool               `bson:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (d *categoryDoc) model() models.Category {
	return models.Category{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		NormalizedName: d.NormalizedName,
		Slug:           d.Slug,
		Description:    d.Description,
		Color:          d.Color,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	User      primitive.ObjectID `bson:"user"`
	Text      string             `bson:"text"`
	Timestamp time.Time          `bson:"timestamp"`
}

type podcastDoc struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty"`
	Title              string               `bson:"title"`
	Description        string               `bson:"description"`
	User               primitive.ObjectID   `bson:"user"`
	Category           primitive.ObjectID   `bson:"category"`
	FrontImage         string               `bson:"frontImage"`
	AudioFile          string               `bson:"audioFile"`
	FrontImageMetadata *models.FileMetadata `bson:"frontImageMetadata,omitempty"`
	AudioFileMetadata  *models.FileMetadata `bson:"audioFileMetadata,omitempty"`
	Views              int64                `bson:"views"`
	Likes              []primitive.ObjectID `bson:"likes"`
	LikeCount          int64                `bson:"likeCount"`
	Comments           []commentDoc         `bson:"comments"`
	Status             string               `bson:"status"`
	IsPublic           bool                 `bson:"isPublic"`
	Tags               []string             `bson:"tags"`
	Duration           float64              `bson:"duration,omitempty"`
	FileSize           int64                `bson:"fileSize,omitempty"`
	CreatedAt          time.Time            `bson:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt"`
}

func (d *podcastDoc) model() models.Podcast {
	comments := make([]models.Comment, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, models.Comment{
			ID:        c.ID.Hex(),
			UserID:    c.User.Hex(),
			Text:      c.Text,
			Timestamp: c.Timestamp,
		})
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Podcast{
		ID:                 d.ID.Hex(),
		Title:              d.Title,
		Description:        d.Description,
		OwnerID:            d.User.Hex(),
		CategoryID:         d.Category.Hex(),
		FrontImage:         d.FrontImage,
		AudioFile:          d.AudioFile,
		FrontImageMetadata: d.FrontImageMetadata,
		AudioFileMetadata:  d.AudioFileMetadata,
		Views:              d.Views,
		Likes:              hexIDs(d.Likes),
		LikeCount:          d.LikeCount,
		Comments:           comments,
		Status:             models.PodcastStatus(d.Status),
		IsPublic:           d.IsPublic,
		Tags:               tags,
		Duration:           d.Duration,
		FileSize:           d.FileSize,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// objectIDs converts the valid ids and drops the rest.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range uniqueStrings(ids) {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func containsPattern(q string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
}

func mapMongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// ---- users ----

type mongoUsers struct{ s *MongoStore }

// withFollowers resolves the follower sets of docs with one query over the
// following index.
func (r mongoUsers) withFollowers(ctx context.Context, docs []userDoc) ([]models.User, error) {
	out := make([]models.User, 0, len(docs))
	if len(docs) == 0 {
		return out, nil
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	cur, err := r.s.users.Find(ctx,
		bson.M{"following": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "following": 1}))
	if err != nil {
		return nil, err
	}
	var edges []userDoc
	if err := cur.All(ctx, &edges); err != nil {
		return nil, err
	}
	followers := make(map[primitive.ObjectID][]string)
	for _, e := range edges {
		for _, target := range e.Following {
			followers[target] = append(followers[target], e.ID.Hex())
		}
	}
	for i := range docs {
		out = append(out, docs[i].model(followers[docs[i].ID]))
	}
	return out, nil
}

func (r mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapMongoErr(err)
	}
	users, err := r.withFollowers(ctx, []userDoc{doc})
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r mongoUsers) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cur, err := r.s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return r.withFollowers(ctx, docs)
}

func (r mongoUsers) Create(ctx context.Context, user *models.User) error {
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	doc := userDoc{
		ID:          primitive.NewObjectID(),
		Username:    user.Username,
		Email:       user.Email,
		Password:    user.Password,
		Role:        string(user.Role),
		Profile:     user.Profile,
		Preferences: user.Preferences,
		Following:   objectIDs(user.Following),
		IsVerified:  user.IsVerified,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	if _, err := r.s.users.InsertOne(ctx, doc); err != nil {
		return mapMongoErr(err)
	}
	user.ID = doc.ID.Hex()
	user.Following = hexIDs(doc.Following)
	user.Followers = []string{}
	return nil
}

func (r mongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r mongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r mongoUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.User{}, nil
	}
	return r.findMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
}

func (r mongoUsers) Update(ctx context.Context, user *models.User) error {
	oid, err := objectID(user.ID)
	if err != nil {
		return err
	}
	user.UpdatedAt = r.s.now()
	set := bson.M{
		"username":    user.Username,
		"email":       user.Email,
		"password":    user.Password,
		"role":        string(user.Role),
		"profile":     user.Profile,
		"preferences": user.Preferences,
		"isVerified":  user.IsVerified,
		"isActive":    user.IsActive,
		"lastLoginAt": user.LastLoginAt,
		"updatedAt":   user.UpdatedAt,
	}
	res, err := r.s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r mongoUsers) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	follower, err := objectID(followerID)
	if err != nil {
		return false, err
	}
	followee, err := objectID(followeeID)
	if err != nil {
		return false, err
	}
	n, err := r.s.users.CountDocuments(ctx, bson.M{"_id": followee})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, ErrNotFound
	}

	for attempt := 0; attempt < 3; attempt++ {
		res, err := r.s.users.UpdateOne(ctx,
			bson.M{"_id": follower, "following": followee},
			bson.M{"$pull": bson.M{"following": followee}, "$set": bson.M{"updatedAt": r.s.now()}})
		if err != nil {
			return false, err
		}
		if res.ModifiedCount == 1 {
			return false, nil
		}
		res, err = r.s.users.UpdateOne(ctx,
			bson.M{"_id": follower, "following": bson.M{"$ne": followee}},
			bson.M{"$addToSet": bson.M{"following": followee}, "$set": bson.M{"updatedAt": r.s.now()}})
		if err != nil {
			return false, err
		}
		if res.ModifiedCount == 1 {
			return true, nil
		}
		if n, err := r.s.users.CountDocuments(ctx, bson.M{"_id": follower}); err != nil {
			return false, err
		} else if n == 0 {
			return false, ErrNotFound
		}
	}
	return false, errors.New("follow toggle contended, retry")
}

func (r mongoUsers) SearchByUsername(ctx context.Context, query string, limit int64) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.findMany(ctx, bson.M{"isActive": true, "username": containsPattern(query)}, opts)
}

func (r mongoUsers) List(ctx context.Context) ([]models.User, error) {
	return r.findMany(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r mongoUsers) Count(ctx context.Context) (int64, error) {
	return r.s.users.CountDocuments(ctx, bson.M{})
}

// ---- categories ----

type mongoCategories struct{ s *MongoStore }

func (r mongoCategories) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Category, error) {
	cur, err := r.s.categories.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Category, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].model())
	}
	return out, nil
}

func (r mongoCategories) findOne(ctx context.Context, filter bson.M) (*models.Category, error) {
	var doc categoryDoc
	if err := r.s.categories.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapMongoErr(err)
	}
	c := doc.model()
	return &c, nil
}

func (r mongoCategories) Create(ctx context.Context, category *models.Category) error {
	now := r.s.now()
	category.CreatedAt = now
	category.UpdatedAt = now
	doc := categoryDoc{
		ID:             primitive.NewObjectID(),
		Name:           category.Name,
		NormalizedName: category.NormalizedName,
		Slug:           category.Slug,
		Description:    category.Description,
		Color:          category.Color,
		IsActive:       category.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := r.s.categories.InsertOne(ctx, doc); err != nil {
		return mapMongoErr(err)
	}
	category.ID = doc.ID.Hex()
	return nil
}

func (r mongoCategories) FindByID(ctx context.Context, id string) (*models.Category, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r mongoCategories) FindByName(ctx context.Context, normalizedName string) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"normalizedName": normalizedName})
}

func (r mongoCategories) FindByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.Category{}, nil
	}
	return r.findMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
}

func (r mongoCategories) List(ctx context.Context) ([]models.Category, error) {
	return r.findMany(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "categoryName", Value: 1}}))
}

func (r mongoCategories) SearchByName(ctx context.Context, query string, limit int64) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "categoryName", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.findMany(ctx, bson.M{"isActive": true, "categoryName": containsPattern(query)}, opts)
}

func (r mongoCategories) Count(ctx context.Context) (int64, error) {
	return r.s.categories.CountDocuments(ctx, bson.M{})
}

// ---- podcasts ----

type mongoPodcasts struct{ s *MongoStore }

func podcastFilterDoc(f PodcastFilter) bson.M {
	m := bson.M{}
	switch f.Visibility {
	case VisibilityPublic:
		m["status"] = string(models.StatusPublished)
		m["isPublic"] = true
	case VisibilityNotArchived:
		m["status"] = bson.M{"$ne": string(models.StatusArchived)}
	}
	if f.RestrictCategory {
		// An empty $in never matches.
		m["category"] = bson.M{"$in": objectIDs(f.CategoryIDs)}
	}
	if f.OwnerID != "" {
		m["user"] = mustObjectIDOrNil(f.OwnerID)
	}
	if f.LikedBy != "" {
		m["likes"] = mustObjectIDOrNil(f.LikedBy)
	}
	if !f.CreatedAfter.IsZero() {
		m["createdAt"] = bson.M{"$gte": f.CreatedAfter}
	}
	if f.Search != "" {
		re := containsPattern(f.Search)
		m["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"tags": re},
		}
	}
	return m
}

// mustObjectIDOrNil maps an unparseable id to NilObjectID, which matches no
// stored document.
func mustObjectIDOrNil(id string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

func podcastSortDoc(keys []SortKey) bson.D {
	if len(keys) == 0 {
		keys = []SortKey{{Field: SortCreatedAt, Desc: true}}
	}
	d := bson.D{}
	for _, k := range keys {
		field := string(k.Field)
		if k.Field == SortLikes {
			field = "likeCount"
		}
		dir := 1
		if k.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: field, Value: dir})
	}
	return append(d, bson.E{Key: "_id", Value: 1})
}

func (r mongoPodcasts) Create(ctx context.Context, podcast *models.Podcast) error {
	owner, err := objectID(podcast.OwnerID)
	if err != nil {
		return err
	}
	category, err := objectID(podcast.CategoryID)
	if err != nil {
		return err
	}
	now := r.s.now()
	if podcast.CreatedAt.IsZero() {
		podcast.CreatedAt = now
	}
	podcast.UpdatedAt = now
	tags := podcast.Tags
	if tags == nil {
		tags = []string{}
	}
	doc := podcastDoc{
		ID:                 primitive.NewObjectID(),
		Title:              podcast.Title,
		Description:        podcast.Description,
		User:               owner,
		Category:           category,
		FrontImage:         podcast.FrontImage,
		AudioFile:          podcast.AudioFile,
		FrontImageMetadata: podcast.FrontImageMetadata,
		AudioFileMetadata:  podcast.AudioFileMetadata,
		Views:              podcast.Views,
		Likes:              objectIDs(podcast.Likes),
		Comments:           []commentDoc{},
		Status:             string(podcast.Status),
		IsPublic:           podcast.IsPublic,
		Tags:               tags,
		Duration:           podcast.Duration,
		FileSize:           podcast.FileSize,
		CreatedAt:          podcast.CreatedAt,
		UpdatedAt:          podcast.UpdatedAt,
	}
	doc.LikeCount = int64(len(doc.Likes))
	if _, err := r.s.podcasts.InsertOne(ctx, doc); err != nil {
		return mapMongoErr(err)
	}
	*podcast = doc.model()
	return nil
}

func (r mongoPodcasts) FindByID(ctx context.Context, id string) (*models.Podcast, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc podcastDoc
	if err := r.s.podcasts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapMongoErr(err)
	}
	p := doc.model()
	return &p, nil
}

func (r mongoPodcasts) Find(ctx context.Context, query PodcastQuery) ([]models.Podcast, error) {
	if query.matchesNothing() {
		return []models.Podcast{}, nil
	}
	opts := options.Find().SetSort(podcastSortDoc(query.Sort))
	if query.Skip > 0 {
		opts.SetSkip(query.Skip)
	}
	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}
	cur, err := r.s.podcasts.Find(ctx, podcastFilterDoc(query.PodcastFilter), opts)
	if err != nil {
		return nil, err
	}
	var docs []podcastDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Podcast, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].model())
	}
	return out, nil
}

func (r mongoPodcasts) Count(ctx context.Context, filter PodcastFilter) (int64, error) {
	if filter.matchesNothing() {
		return 0, nil
	}
	return r.s.podcasts.CountDocuments(ctx, podcastFilterDoc(filter))
}

func (r mongoPodcasts) IncrementViews(ctx context.Context, id string) (*models.Podcast, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc podcastDoc
	err = r.s.podcasts.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, mapMongoErr(err)
	}
	p := doc.model()
	return &p, nil
}

func (r mongoPodcasts) ToggleLike(ctx context.Context, podcastID, userID string) (bool, int64, error) {
	pid, err := objectID(podcastID)
	if err != nil {
		return false, 0, err
	}
	uid, err := objectID(userID)
	if err != nil {
		return false, 0, err
	}
	after := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likeCount": 1})

	for attempt := 0; attempt < 3; attempt++ {
		var doc podcastDoc
		err := r.s.podcasts.FindOneAndUpdate(ctx,
			bson.M{"_id": pid, "likes": uid},
			bson.M{
				"$pull": bson.M{"likes": uid},
				"$inc":  bson.M{"likeCount": -1},
				"$set":  bson.M{"updatedAt": r.s.now()},
			}, after).Decode(&doc)
		if err == nil {
			return false, doc.LikeCount, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return false, 0, err
		}

		err = r.s.podcasts.FindOneAndUpdate(ctx,
			bson.M{"_id": pid, "likes": bson.M{"$ne": uid}},
			bson.M{
				"$addToSet": bson.M{"likes": uid},
				"$inc":      bson.M{"likeCount": 1},
				"$set":      bson.M{"updatedAt": r.s.now()},
			}, after).Decode(&doc)
		if err == nil {
			return true, doc.LikeCount, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return false, 0, err
		}

		n, err := r.s.podcasts.CountDocuments(ctx, bson.M{"_id": pid})
		if err != nil {
			return false, 0, err
		}
		if n == 0 {
			return false, 0, ErrNotFound
		}
	}
	return false, 0, errors.New("like toggle contended, retry")
}

func (r mongoPodcasts) AddComment(ctx context.Context, podcastID string, comment *models.Comment) error {
	pid, err := objectID(podcastID)
	if err != nil {
		return err
	}
	uid, err := objectID(comment.UserID)
	if err != nil {
		return err
	}
	doc := commentDoc{
		ID:        primitive.NewObjectID(),
		User:      uid,
		Text:      comment.Text,
		Timestamp: comment.Timestamp,
	}
	res, err := r.s.podcasts.UpdateOne(ctx,
		bson.M{"_id": pid},
		bson.M{"$push": bson.M{"comments": doc}, "$set": bson.M{"updatedAt": r.s.now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	comment.ID = doc.ID.Hex()
	return nil
}
