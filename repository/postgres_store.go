package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/podstream-backend/models"
)

type PostgresOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
}

// PostgresStore is the relational backend. Likes, comments and follow edges
// live in their own tables.
type PostgresStore struct {
	db  *gorm.DB
	now func() time.Time
}

type accountRow struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Username    string             `gorm:"size:64;not null;uniqueIndex"`
	Email       string             `gorm:"size:255;not null;uniqueIndex"`
	Password    string             `gorm:"type:text;not null"`
	Role        string             `gorm:"type:VARCHAR(20);default:'user';index:idx_accounts_active_role,priority:2"`
	Profile     models.Profile     `gorm:"type:text;serializer:json"`
	Preferences models.Preferences `gorm:"type:text;serializer:json"`
	IsVerified  bool               `gorm:"default:false"`
	IsActive    bool               `gorm:"default:true;index:idx_accounts_active_role,priority:1"`
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (accountRow) TableName() string { return "accounts" }

type accountFollowRow struct {
	FollowerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	FolloweeID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time
}

func (accountFollowRow) TableName() string { return "account_follows" }

type categoryRow struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"size:255;not null"`
	NormalizedName string    `gorm:"size:255;not null;uniqueIndex"`
	Slug           string    `gorm:"size:255;not null;uniqueIndex"`
	Description    string    `gorm:"type:text"`
	Color          string    `gorm:"type:VARCHAR(16)"`
	IsActive       bool      `gorm:"default:true;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (categoryRow) TableName() string { return "categories" }

type podcastRow struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Title              string               `gorm:"size:255;not null"`
	Description        string               `gorm:"type:text"`
	OwnerID            uuid.UUID            `gorm:"type:uuid;not null;index:idx_podcasts_owner_created,priority:1"`
	CategoryID         uuid.UUID            `gorm:"type:uuid;not null;index:idx_podcasts_category_created,priority:1"`
	FrontImage         string               `gorm:"type:text"`
	AudioFile          string               `gorm:"type:text"`
	FrontImageMetadata *models.FileMetadata `gorm:"type:text;serializer:json"`
	AudioFileMetadata  *models.FileMetadata `gorm:"type:text;serializer:json"`
	Views              int64                `gorm:"default:0"`
	LikeCount          int64                `gorm:"default:0"`
	Status             string               `gorm:"type:VARCHAR(20);default:'published';index:idx_podcasts_status_public,priority:1"`
	IsPublic           bool                 `gorm:"default:true;index:idx_podcasts_status_public,priority:2"`
	Tags               []string             `gorm:"type:text;serializer:json"`
	Duration           float64
	FileSize           int64
	CreatedAt          time.Time `gorm:"index:idx_podcasts_owner_created,priority:2,sort:desc;index:idx_podcasts_category_created,priority:2,sort:desc"`
	UpdatedAt          time.Time
}

func (podcastRow) TableName() string { return "podcasts" }

type podcastLikeRow struct {
	PodcastID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time
}

func (podcastLikeRow) TableName() string { return "podcast_likes" }

type podcastCommentRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PodcastID uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Text      string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"index"`
}

func (podcastCommentRow) TableName() string { return "podcast_comments" }

func NewPostgresStore(opts PostgresOptions) (*PostgresStore, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger:               logger.Default.LogMode(opts.LogLevel),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	return &PostgresStore{db: db, now: time.Now}, nil
}

func (s *PostgresStore) Users() UserRepository          { return pgUsers{s} }
func (s *PostgresStore) Categories() CategoryRepository { return pgCategories{s} }
func (s *PostgresStore) Podcasts() PodcastRepository    { return pgPodcasts{s} }

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&accountRow{},
		&accountFollowRow{},
		&categoryRow{},
		&podcastRow{},
		&podcastLikeRow{},
		&podcastCommentRow{},
	)
}

func (s *PostgresStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseUUID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return u, nil
}

// parseUUIDs keeps the valid ids and drops the rest.
func parseUUIDs(ids []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range uniqueStrings(ids) {
		if u, err := uuid.Parse(id); err == nil {
			out = append(out, u)
		}
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func mapGormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters in q matched literally.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// ---- users ----

type pgUsers struct{ s *PostgresStore }

func (r pgUsers) toModels(ctx context.Context, rows []accountRow) ([]models.User, error) {
	out := make([]models.User, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var edges []accountFollowRow
	err := r.s.db.WithContext(ctx).
		Where("follower_id IN ? OR followee_id IN ?", ids, ids).
		Order("created_at ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	following := make(map[uuid.UUID][]string)
	followers := make(map[uuid.UUID][]string)
	for _, e := range edges {
		following[e.FollowerID] = append(following[e.FollowerID], e.FolloweeID.String())
		followers[e.FolloweeID] = append(followers[e.FolloweeID], e.FollowerID.String())
	}
	for _, row := range rows {
		u := models.User{
			ID:          row.ID.String(),
			Username:    row.Username,
			Email:       row.Email,
			Password:    row.Password,
			Role:        models.UserRole(row.Role),
			Profile:     row.Profile,
			Preferences: row.Preferences,
			Following:   following[row.ID],
			Followers:   followers[row.ID],
			IsVerified:  row.IsVerified,
			IsActive:    row.IsActive,
			LastLoginAt: row.LastLoginAt,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}
		if u.Following == nil {
			u.Following = []string{}
		}
		if u.Followers == nil {
			u.Followers = []string{}
		}
		out = append(out, u)
	}
	return out, nil
}

func (r pgUsers) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var row accountRow
	if err := r.s.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		return nil, mapGormErr(err)
	}
	users, err := r.toModels(ctx, []accountRow{row})
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r pgUsers) Create(ctx context.Context, user *models.User) error {
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	row := accountRow{
		ID:          uuid.New(),
		Username:    user.Username,
		Email:       user.Email,
		Password:    user.Password,
		Role:        string(user.Role),
		Profile:     user.Profile,
		Preferences: user.Preferences,
		IsVerified:  user.IsVerified,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	err := r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, target := range parseUUIDs(user.Following) {
			edge := accountFollowRow{FollowerID: row.ID, FolloweeID: target, CreatedAt: now}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapGormErr(err)
	}
	user.ID = row.ID.String()
	user.Following = uuidStrings(parseUUIDs(user.Following))
	user.Followers = []string{}
	return nil
}

func (r pgUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	uid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	return r.first(ctx, "id = ?", uid)
}

func (r pgUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r pgUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r pgUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	uids := parseUUIDs(ids)
	if len(uids) == 0 {
		return []models.User{}, nil
	}
	var rows []accountRow
	if err := r.s.db.WithContext(ctx).Where("id IN ?", uids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toModels(ctx, rows)
}

func (r pgUsers) Update(ctx context.Context, user *models.User) error {
	uid, err := parseUUID(user.ID)
	if err != nil {
		return err
	}
	user.UpdatedAt = r.s.now()
	row := accountRow{
		ID:          uid,
		Username:    user.Username,
		Email:       user.Email,
		Password:    user.Password,
		Role:        string(user.Role),
		Profile:     user.Profile,
		Preferences: user.Preferences,
		IsVerified:  user.IsVerified,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		UpdatedAt:   user.UpdatedAt,
	}
	res := r.s.db.WithContext(ctx).Model(&row).Select("*").Omit("created_at").Updates(&row)
	if res.Error != nil {
		return mapGormErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r pgUsers) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	follower, err := parseUUID(followerID)
	if err != nil {
		return false, err
	}
	followee, err := parseUUID(followeeID)
	if err != nil {
		return false, err
	}
	var following bool
	err = r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&accountRow{}).Where("id IN ?", []uuid.UUID{follower, followee}).Count(&n).Error; err != nil {
			return err
		}
		if n != 2 {
			return ErrNotFound
		}
		res := tx.Where("follower_id = ? AND followee_id = ?", follower, followee).Delete(&accountFollowRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}
		edge := accountFollowRow{FollowerID: follower, FolloweeID: followee, CreatedAt: r.s.now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
			return err
		}
		following = true
		return nil
	})
	if err != nil {
		return false, mapGormErr(err)
	}
	return following, nil
}

func (r pgUsers) SearchByUsername(ctx context.Context, query string, limit int64) ([]models.User, error) {
	q := r.s.db.WithContext(ctx).
		Where("is_active = ? AND username ILIKE ?", true, likePattern(query)).
		Order("username ASC")
	if limit > 0 {
		q = q.Limit(int(limit))
	}
	var rows []accountRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toModels(ctx, rows)
}

func (r pgUsers) List(ctx context.Context) ([]models.User, error) {
	var rows []accountRow
	if err := r.s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toModels(ctx, rows)
}

func (r pgUsers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.db.WithContext(ctx).Model(&accountRow{}).Count(&n).Error
	return n, err
}

// ---- categories ----

type pgCategories struct{ s *PostgresStore }

func (row *categoryRow) model() models.Category {
	return models.Category{
		ID:             row.ID.String(),
		Name:           row.Name,
		NormalizedName: row.NormalizedName,
		Slug:           row.Slug,
		Description:    row.Description,
		Color:          row.Color,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func categoryModels(rows []categoryRow) []models.Category {
	out := make([]models.Category, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].model())
	}
	return out
}

func (r pgCategories) Create(ctx context.Context, category *models.Category) error {
	now := r.s.now()
	row := categoryRow{
		ID:             uuid.New(),
		Name:           category.Name,
		NormalizedName: category.NormalizedName,
		Slug:           category.Slug,
		Description:    category.Description,
		Color:          category.Color,
		IsActive:       category.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// IsActive false is a zero value gorm would replace with the column default.
	if err := r.s.db.WithContext(ctx).Select("*").Create(&row).Error; err != nil {
		return mapGormErr(err)
	}
	category.ID = row.ID.String()
	category.CreatedAt = now
	category.UpdatedAt = now
	return nil
}

func (r pgCategories) FindByID(ctx context.Context, id string) (*models.Category, error) {
	cid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	var row categoryRow
	if err := r.s.db.WithContext(ctx).First(&row, "id = ?", cid).Error; err != nil {
		return nil, mapGormErr(err)
	}
	c := row.model()
	return &c, nil
}

func (r pgCategories) FindByName(ctx context.Context, normalizedName string) (*models.Category, error) {
	var row categoryRow
	if err := r.s.db.WithContext(ctx).First(&row, "normalized_name = ?", normalizedName).Error; err != nil {
		return nil, mapGormErr(err)
	}
	c := row.model()
	return &c, nil
}

func (r pgCategories) FindByIDs(ctx context.Context, ids []string) ([]models.Category, error) {
	cids := parseUUIDs(ids)
	if len(cids) == 0 {
		return []models.Category{}, nil
	}
	var rows []categoryRow
	if err := r.s.db.WithContext(ctx).Where("id IN ?", cids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return categoryModels(rows), nil
}

func (r pgCategories) List(ctx context.Context) ([]models.Category, error) {
	var rows []categoryRow
	if err := r.s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return categoryModels(rows), nil
}

func (r pgCategories) SearchByName(ctx context.Context, query string, limit int64) ([]models.Category, error) {
	q := r.s.db.WithContext(ctx).
		Where("is_active = ? AND name ILIKE ?", true, likePattern(query)).
		Order("name ASC")
	if limit > 0 {
		q = q.Limit(int(limit))
	}
	var rows []categoryRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return categoryModels(rows), nil
}

func (r pgCategories) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.db.WithContext(ctx).Model(&categoryRow{}).Count(&n).Error
	return n, err
}

// ---- podcasts ----

type pgPodcasts struct{ s *PostgresStore }

func (r pgPodcasts) scope(db *gorm.DB, f PodcastFilter) *gorm.DB {
	q := db.Model(&podcastRow{})
	switch f.Visibility {
	case VisibilityPublic:
		q = q.Where("status = ? AND is_public = ?", string(models.StatusPublished), true)
	case VisibilityNotArchived:
		q = q.Where("status <> ?", string(models.StatusArchived))
	}
	if f.RestrictCategory {
		q = q.Where("category_id IN ?", parseUUIDs(f.CategoryIDs))
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", uuidOrNil(f.OwnerID))
	}
	if f.LikedBy != "" {
		q = q.Where("id IN (?)", db.Model(&podcastLikeRow{}).Select("podcast_id").Where("user_id = ?", uuidOrNil(f.LikedBy)))
	}
	if !f.CreatedAfter.IsZero() {
		q = q.Where("created_at >= ?", f.CreatedAfter)
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		q = q.Where("(title ILIKE ? OR description ILIKE ? OR "+tagMatchSQL+")", p, p, p)
	}
	return q
}

// tagMatchSQL matches the pattern against each element of the JSON encoded
// tags column rather than its serialized text. Non-array values match nothing.
const tagMatchSQL = `EXISTS (SELECT 1 FROM json_array_elements_text(` +
	`CASE WHEN json_typeof(NULLIF(tags, '')::json) = 'array' THEN tags::json ELSE '[]'::json END` +
	`) AS t(tag) WHERE t.tag ILIKE ?)`

// uuidOrNil maps an unparseable id to the nil UUID, which no row carries.
func uuidOrNil(id string) uuid.UUID {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil
	}
	return u
}

func podcastOrder(keys []SortKey) string {
	if len(keys) == 0 {
		keys = []SortKey{{Field: SortCreatedAt, Desc: true}}
	}
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		col := "created_at"
		switch k.Field {
		case SortTitle:
			col = "title"
		case SortViews:
			col = "views"
		case SortLikes:
			col = "like_count"
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	return strings.Join(append(parts, "id ASC"), ", ")
}

// hydrate loads the likes and comments of rows and converts them.
func (r pgPodcasts) hydrate(ctx context.Context, rows []podcastRow) ([]models.Podcast, error) {
	out := make([]models.Podcast, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	db := r.s.db.WithContext(ctx)

	var likes []podcastLikeRow
	if err := db.Where("podcast_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return nil, err
	}
	var comments []podcastCommentRow
	if err := db.Where("podcast_id IN ?", ids).Order("timestamp ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	likesBy := make(map[uuid.UUID][]string)
	for _, l := range likes {
		likesBy[l.PodcastID] = append(likesBy[l.PodcastID], l.UserID.String())
	}
	commentsBy := make(map[uuid.UUID][]models.Comment)
	for _, c := range comments {
		commentsBy[c.PodcastID] = append(commentsBy[c.PodcastID], models.Comment{
			ID:        c.ID.String(),
			UserID:    c.UserID.String(),
			Text:      c.Text,
			Timestamp: c.Timestamp,
		})
	}

	for _, row := range rows {
		p := models.Podcast{
			ID:                 row.ID.String(),
			Title:              row.Title,
			Description:        row.Description,
			OwnerID:            row.OwnerID.String(),
			CategoryID:         row.CategoryID.String(),
			FrontImage:         row.FrontImage,
			AudioFile:          row.AudioFile,
			FrontImageMetadata: row.FrontImageMetadata,
			AudioFileMetadata:  row.AudioFileMetadata,
			Views:              row.Views,
			Likes:              likesBy[row.ID],
			LikeCount:          row.LikeCount,
			Comments:           commentsBy[row.ID],
			Status:             models.PodcastStatus(row.Status),
			IsPublic:           row.IsPublic,
			Tags:               row.Tags,
			Duration:           row.Duration,
			FileSize:           row.FileSize,
			CreatedAt:          row.CreatedAt,
			UpdatedAt:          row.UpdatedAt,
		}
		if p.Likes == nil {
			p.Likes = []string{}
		}
		if p.Comments == nil {
			p.Comments = []models.Comment{}
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		out = append(out, p)
	}
	return out, nil
}

func (r pgPodcasts) byID(ctx context.Context, id uuid.UUID) (*models.Podcast, error) {
	var row podcastRow
	if err := r.s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapGormErr(err)
	}
	items, err := r.hydrate(ctx, []podcastRow{row})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r pgPodcasts) Create(ctx context.Context, podcast *models.Podcast) error {
	owner, err := parseUUID(podcast.OwnerID)
	if err != nil {
		return err
	}
	category, err := parseUUID(podcast.CategoryID)
	if err != nil {
		return err
	}
	now := r.s.now()
	if podcast.CreatedAt.IsZero() {
		podcast.CreatedAt = now
	}
	tags := podcast.Tags
	if tags == nil {
		tags = []string{}
	}
	likers := parseUUIDs(podcast.Likes)
	row := podcastRow{
		ID:                 uuid.New(),
		Title:              podcast.Title,
		Description:        podcast.Description,
		OwnerID:            owner,
		CategoryID:         category,
		FrontImage:         podcast.FrontImage,
		AudioFile:          podcast.AudioFile,
		FrontImageMetadata: podcast.FrontImageMetadata,
		AudioFileMetadata:  podcast.AudioFileMetadata,
		Views:              podcast.Views,
		LikeCount:          int64(len(likers)),
		Status:             string(podcast.Status),
		IsPublic:           podcast.IsPublic,
		Tags:               tags,
		Duration:           podcast.Duration,
		FileSize:           podcast.FileSize,
		CreatedAt:          podcast.CreatedAt,
		UpdatedAt:          now,
	}
	err = r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("*").Create(&row).Error; err != nil {
			return err
		}
		for _, uid := range likers {
			like := podcastLikeRow{PodcastID: row.ID, UserID: uid, CreatedAt: now}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapGormErr(err)
	}
	created, err := r.byID(ctx, row.ID)
	if err != nil {
		return err
	}
	*podcast = *created
	return nil
}

func (r pgPodcasts) FindByID(ctx context.Context, id string) (*models.Podcast, error) {
	pid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	return r.byID(ctx, pid)
}

func (r pgPodcasts) Find(ctx context.Context, query PodcastQuery) ([]models.Podcast, error) {
	if query.matchesNothing() {
		return []models.Podcast{}, nil
	}
	q := r.scope(r.s.db.WithContext(ctx), query.PodcastFilter).Order(podcastOrder(query.Sort))
	if query.Skip > 0 {
		q = q.Offset(int(query.Skip))
	}
	if query.Limit > 0 {
		q = q.Limit(int(query.Limit))
	}
	var rows []podcastRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.hydrate(ctx, rows)
}

func (r pgPodcasts) Count(ctx context.Context, filter PodcastFilter) (int64, error) {
	if filter.matchesNothing() {
		return 0, nil
	}
	var n int64
	err := r.scope(r.s.db.WithContext(ctx), filter).Count(&n).Error
	return n, err
}

func (r pgPodcasts) IncrementViews(ctx context.Context, id string) (*models.Podcast, error) {
	pid, err := parseUUID(id)
	if err != nil {
		return nil, err
	}
	res := r.s.db.WithContext(ctx).Model(&podcastRow{}).
		Where("id = ?", pid).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.byID(ctx, pid)
}

func (r pgPodcasts) ToggleLike(ctx context.Context, podcastID, userID string) (bool, int64, error) {
	pid, err := parseUUID(podcastID)
	if err != nil {
		return false, 0, err
	}
	uid, err := parseUUID(userID)
	if err != nil {
		return false, 0, err
	}
	var (
		liked bool
		count int64
	)
	err = r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row podcastRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&row, "id = ?", pid).Error; err != nil {
			return err
		}
		res := tx.Where("podcast_id = ? AND user_id = ?", pid, uid).Delete(&podcastLikeRow{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			like := podcastLikeRow{PodcastID: pid, UserID: uid, CreatedAt: r.s.now()}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			delta = 1
			liked = true
		}
		err := tx.Model(&podcastRow{}).Where("id = ?", pid).UpdateColumns(map[string]any{
			"like_count": gorm.Expr("like_count + ?", delta),
			"updated_at": r.s.now(),
		}).Error
		if err != nil {
			return err
		}
		return tx.Model(&podcastRow{}).Select("like_count").Where("id = ?", pid).Scan(&count).Error
	})
	if err != nil {
		return false, 0, mapGormErr(err)
	}
	return liked, count, nil
}

func (r pgPodcasts) AddComment(ctx context.Context, podcastID string, comment *models.Comment) error {
	pid, err := parseUUID(podcastID)
	if err != nil {
		return err
	}
	uid, err := parseUUID(comment.UserID)
	if err != nil {
		return err
	}
	row := podcastCommentRow{
		ID:        uuid.New(),
		PodcastID: pid,
		UserID:    uid,
		Text:      comment.Text,
		Timestamp: comment.Timestamp,
	}
	err = r.s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&podcastRow{}).Where("id = ?", pid).UpdateColumn("updated_at", r.s.now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return mapGormErr(err)
	}
	comment.ID = row.ID.String()
	return nil
}
