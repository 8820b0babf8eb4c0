package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"abbleitura/pkg/domain"
)

const migrateLockID int64 = 48114811

const (
	defaultBookPageSize = 12
	defaultPostPageSize = 10
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&BookModel{},
			&PostModel{},
			&CommentModel{},
			&DownloadModel{},
			&FavoriteModel{},
			&TranslationModel{},
			&NewsletterSubscriptionModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		// A comment targets exactly one of book/post.
		if err := tx.Exec(`
			DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'comment_models'
					AND constraint_name = 'comment_models_target_check'
				) THEN
					ALTER TABLE comment_models
					ADD CONSTRAINT comment_models_target_check
					CHECK ((book_id IS NULL) <> (post_id IS NULL));
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure comment target constraint: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM comment_models c
				WHERE c.book_id IS NOT NULL
				  AND NOT EXISTS (SELECT 1 FROM book_models b WHERE b.id = c.book_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'favorite_models'
					AND constraint_name = 'favorite_models_book_id_fkey'
				) THEN
					ALTER TABLE favorite_models
					ADD CONSTRAINT favorite_models_book_id_fkey
					FOREIGN KEY (book_id) REFERENCES book_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'download_models'
					AND constraint_name = 'download_models_book_id_fkey'
				) THEN
					ALTER TABLE download_models
					ADD CONSTRAINT download_models_book_id_fkey
					FOREIGN KEY (book_id) REFERENCES book_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertUser registers or refreshes a user keyed by openId.
func (s *GormStore) UpsertUser(u domain.User) (domain.User, error) {
	if strings.TrimSpace(u.OpenID) == "" {
		return domain.User{}, errors.New("openId required for upsert")
	}
	var out domain.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model UserModel
		err := tx.Where("open_id = ?", u.OpenID).First(&model).Error
		now := time.Now().UTC()
		switch {
		case err == nil:
			updates := map[string]any{
				"last_signed_in": now,
				"updated_at":     now,
			}
			if u.Name != "" {
				updates["name"] = u.Name
			}
			if u.Email != "" {
				updates["email"] = u.Email
			}
			if u.LoginMethod != "" {
				updates["login_method"] = u.LoginMethod
			}
			if u.Role == domain.RoleAdmin {
				updates["role"] = string(domain.RoleAdmin)
			}
			if err := tx.Model(&UserModel{}).Where("id = ?", model.ID).Updates(updates).Error; err != nil {
				return err
			}
			if err := tx.First(&model, "id = ?", model.ID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			role := string(u.Role)
			if role == "" {
				role = string(domain.RoleUser)
			}
			model = UserModel{
				OpenID:       u.OpenID,
				Name:         optString(u.Name),
				Email:        optString(u.Email),
				LoginMethod:  optString(u.LoginMethod),
				Role:         role,
				CreatedAt:    now,
				UpdatedAt:    now,
				LastSignedIn: now,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		default:
			return err
		}
		out = userFromModel(model)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return out, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListBooks returns a page of published books, newest first.
func (s *GormStore) ListBooks(filter BookFilter) ([]domain.Book, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultBookPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	tx := s.db.Where("is_published = ?", true)
	if filter.Genre != "" {
		tx = tx.Where("genre = ?", filter.Genre)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		tx = tx.Where("title ILIKE ? OR author ILIKE ?", pattern, pattern)
	}
	var models []BookModel
	if err := tx.Order("created_at DESC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(models))
	for _, m := range models {
		books = append(books, bookFromModel(m))
	}
	return books, nil
}

// GetBookBySlug retrieves one book by its URL key.
func (s *GormStore) GetBookBySlug(slug string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// GetBookByID retrieves one book.
func (s *GormStore) GetBookByID(id int64) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// CreateBook inserts a book and returns it with the assigned ID.
func (s *GormStore) CreateBook(b domain.Book) (domain.Book, error) {
	model := bookToModel(b)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Book{}, err
	}
	return bookFromModel(model), nil
}

// UpdateBook patches named fields. The slug is never touched.
func (s *GormStore) UpdateBook(id int64, update BookUpdate) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	setIf(updates, "title", update.Title)
	setIf(updates, "author", update.Author)
	setIf(updates, "description", update.Description)
	setIf(updates, "synopsis", update.Synopsis)
	setIf(updates, "cover_url", update.CoverURL)
	setIf(updates, "isbn", update.ISBN)
	setIf(updates, "genre", update.Genre)
	if update.Year != nil {
		updates["year"] = *update.Year
	}
	if update.Pages != nil {
		updates["pages"] = *update.Pages
	}
	if update.Formats != nil {
		updates["formats"] = stringsToJSON(*update.Formats)
	}
	if update.Languages != nil {
		updates["languages"] = stringsToJSON(*update.Languages)
	}
	if update.IsPublished != nil {
		updates["is_published"] = *update.IsPublished
	}
	return s.db.Model(&BookModel{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteBook removes a book and its comments; downloads and favorites
// follow via FK cascade.
func (s *GormStore) DeleteBook(id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&CommentModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&BookModel{}, "id = ?", id).Error
	})
}

// IncrementBookLikes bumps the like counter in place.
func (s *GormStore) IncrementBookLikes(id int64) error {
	return s.db.Model(&BookModel{}).Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("likes + 1")).Error
}

// ListPosts returns published posts, newest publication first.
func (s *GormStore) ListPosts(limit, offset int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = defaultPostPageSize
	}
	if offset < 0 {
		offset = 0
	}
	var models []PostModel
	if err := s.db.Where("is_published = ?", true).
		Order("published_at DESC NULLS LAST").
		Limit(limit).Offset(offset).
		Find(&models).Error; err != nil {
		return nil, err
	}
	posts := make([]domain.Post, 0, len(models))
	for _, m := range models {
		posts = append(posts, postFromModel(m))
	}
	return posts, nil
}

// GetPostBySlug retrieves one post by its URL key.
func (s *GormStore) GetPostBySlug(slug string) (domain.Post, bool, error) {
	var model PostModel
	if err := s.db.Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, false, nil
		}
		return domain.Post{}, false, err
	}
	return postFromModel(model), true, nil
}

// GetPostByID retrieves one post.
func (s *GormStore) GetPostByID(id int64) (domain.Post, bool, error) {
	var model PostModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, false, nil
		}
		return domain.Post{}, false, err
	}
	return postFromModel(model), true, nil
}

// CreatePost inserts a post and returns it with the assigned ID.
func (s *GormStore) CreatePost(p domain.Post) (domain.Post, error) {
	model := postToModel(p)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Post{}, err
	}
	return postFromModel(model), nil
}

// UpdatePost patches named fields.
func (s *GormStore) UpdatePost(id int64, update PostUpdate) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	setIf(updates, "title", update.Title)
	setIf(updates, "content", update.Content)
	setIf(updates, "excerpt", update.Excerpt)
	if update.Tags != nil {
		updates["tags"] = stringsToJSON(*update.Tags)
	}
	if update.IsPublished != nil {
		updates["is_published"] = *update.IsPublished
	}
	if update.PublishedAt != nil {
		updates["published_at"] = update.PublishedAt.UTC()
	}
	return s.db.Model(&PostModel{}).Where("id = ?", id).Updates(updates).Error
}

// DeletePost removes a post and its comments.
func (s *GormStore) DeletePost(id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&CommentModel{}, "post_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&PostModel{}, "id = ?", id).Error
	})
}

// IncrementPostViews bumps the view counter in place.
func (s *GormStore) IncrementPostViews(id int64) error {
	return s.db.Model(&PostModel{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// ListCommentsByBook returns a book's comments in the given status,
// newest first.
func (s *GormStore) ListCommentsByBook(bookID int64, status domain.CommentStatus) ([]domain.Comment, error) {
	var models []CommentModel
	if err := s.db.Where("book_id = ? AND status = ?", bookID, string(status)).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return commentsFromModels(models), nil
}

// ListCommentsByStatus returns all comments in a status, newest first.
func (s *GormStore) ListCommentsByStatus(status domain.CommentStatus) ([]domain.Comment, error) {
	var models []CommentModel
	if err := s.db.Where("status = ?", string(status)).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return commentsFromModels(models), nil
}

// GetCommentByID retrieves one comment.
func (s *GormStore) GetCommentByID(id int64) (domain.Comment, bool, error) {
	var model CommentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Comment{}, false, nil
		}
		return domain.Comment{}, false, err
	}
	return commentFromModel(model), true, nil
}

// CreateComment inserts a comment and returns it with the assigned ID.
func (s *GormStore) CreateComment(c domain.Comment) (domain.Comment, error) {
	model := commentToModel(c)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Comment{}, err
	}
	return commentFromModel(model), nil
}

// SetCommentStatus moves a comment through the moderation lifecycle.
func (s *GormStore) SetCommentStatus(id int64, status domain.CommentStatus) error {
	return s.db.Model(&CommentModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

// SetCommentTranslation stores one translated rendering of the comment.
func (s *GormStore) SetCommentTranslation(id int64, language, text, detectedLanguage string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model CommentModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return err
		}
		translated := map[string]string{}
		if len(model.TranslatedContent) > 0 {
			_ = json.Unmarshal(model.TranslatedContent, &translated)
		}
		translated[language] = text
		raw, err := json.Marshal(translated)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"translated_content": datatypes.JSON(raw),
			"updated_at":         time.Now().UTC(),
		}
		if detectedLanguage != "" {
			updates["detected_language"] = detectedLanguage
		}
		return tx.Model(&CommentModel{}).Where("id = ?", id).Updates(updates).Error
	})
}

// AddFavorite marks a book as favorite; duplicate adds are idempotent.
func (s *GormStore) AddFavorite(userID, bookID int64) error {
	model := FavoriteModel{
		UserID:    userID,
		BookID:    bookID,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.Create(&model).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

// RemoveFavorite clears the (user, book) favorite if present.
func (s *GormStore) RemoveFavorite(userID, bookID int64) error {
	return s.db.Delete(&FavoriteModel{}, "user_id = ? AND book_id = ?", userID, bookID).Error
}

// ListFavorites returns the user's favorites, newest first.
func (s *GormStore) ListFavorites(userID int64) ([]domain.Favorite, error) {
	var models []FavoriteModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	favorites := make([]domain.Favorite, 0, len(models))
	for _, m := range models {
		favorites = append(favorites, domain.Favorite{
			ID:        m.ID,
			UserID:    m.UserID,
			BookID:    m.BookID,
			CreatedAt: m.CreatedAt,
		})
	}
	return favorites, nil
}

// CreateDownloadWithQuota checks the window count and inserts the row in a
// single transaction so concurrent requests cannot slip past the limit.
func (s *GormStore) CreateDownloadWithQuota(d domain.Download, since time.Time, limit int) (domain.Download, error) {
	var out domain.Download
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent requests for the same (user, book) pair so
		// the count below cannot race past the limit.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", int32(d.UserID), int32(d.BookID)).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&DownloadModel{}).
			Where("user_id = ? AND book_id = ? AND created_at >= ?", d.UserID, d.BookID, since.UTC()).
			Count(&count).Error; err != nil {
			return err
		}
		if limit > 0 && count >= int64(limit) {
			return ErrQuotaExceeded
		}
		model := downloadToModel(d)
		model.CreatedAt = time.Now().UTC()
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if err := tx.Model(&BookModel{}).Where("id = ?", d.BookID).
			UpdateColumn("downloads", gorm.Expr("downloads + 1")).Error; err != nil {
			return err
		}
		out = downloadFromModel(model)
		return nil
	})
	if err != nil {
		return domain.Download{}, err
	}
	return out, nil
}

// CountDownloads returns the number of downloads for the (user, book) pair
// since the cutoff.
func (s *GormStore) CountDownloads(userID, bookID int64, since time.Time) (int, error) {
	var count int64
	if err := s.db.Model(&DownloadModel{}).
		Where("user_id = ? AND book_id = ? AND created_at >= ?", userID, bookID, since.UTC()).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// GetTranslation looks up a cached translation for the exact triple.
func (s *GormStore) GetTranslation(sourceLang, targetLang, sourceText string) (domain.Translation, bool, error) {
	var model TranslationModel
	if err := s.db.Where(
		"source_language = ? AND target_language = ? AND source_text = ?",
		sourceLang, targetLang, sourceText,
	).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Translation{}, false, nil
		}
		return domain.Translation{}, false, err
	}
	return translationFromModel(model), true, nil
}

// SaveTranslation memoizes a provider result. Rows never expire.
func (s *GormStore) SaveTranslation(t domain.Translation) (domain.Translation, error) {
	model := TranslationModel{
		SourceLanguage: t.SourceLanguage,
		TargetLanguage: t.TargetLanguage,
		SourceText:     t.SourceText,
		TranslatedText: t.TranslatedText,
		Provider:       t.Provider,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Translation{}, err
	}
	return translationFromModel(model), nil
}

// UpsertSubscription inserts or reactivates a subscription keyed by email.
func (s *GormStore) UpsertSubscription(email, language string) (domain.NewsletterSubscription, error) {
	var out domain.NewsletterSubscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model NewsletterSubscriptionModel
		err := tx.Where("email = ?", email).First(&model).Error
		switch {
		case err == nil:
			if err := tx.Model(&NewsletterSubscriptionModel{}).Where("id = ?", model.ID).
				Updates(map[string]any{
					"is_active":       true,
					"unsubscribed_at": nil,
				}).Error; err != nil {
				return err
			}
			if err := tx.First(&model, "id = ?", model.ID).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if language == "" {
				language = "pt-BR"
			}
			model = NewsletterSubscriptionModel{
				Email:     email,
				Language:  language,
				IsActive:  true,
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		default:
			return err
		}
		out = subscriptionFromModel(model)
		return nil
	})
	if err != nil {
		return domain.NewsletterSubscription{}, err
	}
	return out, nil
}

// DeactivateSubscription marks the email unsubscribed.
func (s *GormStore) DeactivateSubscription(email string) error {
	now := time.Now().UTC()
	return s.db.Model(&NewsletterSubscriptionModel{}).Where("email = ?", email).
		Updates(map[string]any{
			"is_active":       false,
			"unsubscribed_at": now,
		}).Error
}

// ListSubscribers returns active subscriptions, optionally filtered by
// preferred language.
func (s *GormStore) ListSubscribers(language string) ([]domain.NewsletterSubscription, error) {
	tx := s.db.Where("is_active = ?", true)
	if language != "" {
		tx = tx.Where("language = ?", language)
	}
	var models []NewsletterSubscriptionModel
	if err := tx.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	subs := make([]domain.NewsletterSubscription, 0, len(models))
	for _, m := range models {
		subs = append(subs, subscriptionFromModel(m))
	}
	return subs, nil
}

func setIf(updates map[string]any, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}

func optString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func stringsToJSON(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, _ := json.Marshal(values)
	return datatypes.JSON(raw)
}

func jsonToStrings(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	_ = json.Unmarshal(raw, &values)
	return values
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// pgx surfaces SQLSTATE 23505 for unique violations.
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
