package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"abbleitura/internal/identity"
	"abbleitura/pkg/domain"
	"abbleitura/pkg/queue"
	"abbleitura/pkg/storage"
	"abbleitura/pkg/store"
)

// Enqueuer hands newsletter jobs to the delivery queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.EmailJob) (string, error)
}

// Translator renders text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (translated, detectedLanguage string, err error)
}

// TokenVerifier validates sign-in provider tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.Identity, error)
}

// Config wires the application's collaborators.
type Config struct {
	Store      store.Store
	Sessions   store.SessionStore
	Objects    storage.ObjectStore
	Newsletter Enqueuer
	Translator Translator
	Identity   TokenVerifier

	OwnerOpenID   string
	DownloadLimit int
	DownloadTTL   time.Duration
	Logger        *slog.Logger
}

// App implements the library's use cases on top of the store and the
// supporting services. HTTP concerns stay in the server package.
type App struct {
	store      store.Store
	sessions   store.SessionStore
	objects    storage.ObjectStore
	newsletter Enqueuer
	translator Translator
	identity   TokenVerifier

	ownerOpenID   string
	downloadLimit int
	downloadTTL   time.Duration
	logger        *slog.Logger
}

func New(cfg Config) *App {
	if cfg.DownloadLimit <= 0 {
		cfg.DownloadLimit = 10
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Objects == nil {
		cfg.Objects = storage.StubSigner{}
	}
	return &App{
		store:         cfg.Store,
		sessions:      cfg.Sessions,
		objects:       cfg.Objects,
		newsletter:    cfg.Newsletter,
		translator:    cfg.Translator,
		identity:      cfg.Identity,
		ownerOpenID:   cfg.OwnerOpenID,
		downloadLimit: cfg.DownloadLimit,
		downloadTTL:   cfg.DownloadTTL,
		logger:        cfg.Logger,
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// --- auth ---

// SignIn exchanges a verified provider token for a local user and a
// session token. The configured owner is promoted to admin on every
// sign-in.
func (a *App) SignIn(ctx context.Context, providerToken string) (domain.User, string, error) {
	if a.identity == nil {
		return domain.User{}, "", fmt.Errorf("%w: sign-in not configured", ErrUnauthorized)
	}
	id, err := a.identity.Verify(ctx, providerToken)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user := domain.User{
		OpenID:      id.OpenID,
		Name:        id.Name,
		Email:       id.Email,
		LoginMethod: id.LoginMethod,
	}
	if a.ownerOpenID != "" && id.OpenID == a.ownerOpenID {
		user.Role = domain.RoleAdmin
	}
	user, err = a.store.UpsertUser(user)
	if err != nil {
		return domain.User{}, "", storeErr(err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromSession resolves a session token to its user.
func (a *App) UserFromSession(token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrUnauthorized
	}
	userID, ok, err := a.sessions.UserIDFromToken(token)
	if err != nil || !ok {
		return domain.User{}, ErrUnauthorized
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, storeErr(err)
	}
	if !found {
		return domain.User{}, ErrUnauthorized
	}
	return user, nil
}

// --- books ---

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// BookInput is the payload for creating a book.
type BookInput struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Synopsis    string   `json:"synopsis"`
	CoverURL    string   `json:"coverUrl"`
	Year        int      `json:"year"`
	ISBN        string   `json:"isbn"`
	Pages       int      `json:"pages"`
	Genre       string   `json:"genre"`
	Language    string   `json:"language"`
	Formats     []string `json:"formats"`
	Languages   []string `json:"languages"`
	IsPublished *bool    `json:"isPublished"`
}

func (a *App) ListBooks(filter store.BookFilter) []domain.Book {
	books, err := a.store.ListBooks(filter)
	if err != nil {
		a.logger.Error("list books failed", "error", err)
		return []domain.Book{}
	}
	if books == nil {
		books = []domain.Book{}
	}
	return books
}

// GetBook returns a published book by slug. Admins also see unpublished
// books.
func (a *App) GetBook(slug string, viewer *domain.User) (domain.Book, error) {
	book, ok, err := a.store.GetBookBySlug(slug)
	if err != nil {
		return domain.Book{}, storeErr(err)
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	if !book.IsPublished && (viewer == nil || viewer.Role != domain.RoleAdmin) {
		return domain.Book{}, ErrNotFound
	}
	return book, nil
}

func (a *App) CreateBook(in BookInput) (domain.Book, error) {
	// The slug is validated as submitted; it is returned verbatim and
	// never rewritten.
	in.Slug = strings.TrimSpace(in.Slug)
	if !slugRe.MatchString(in.Slug) {
		return domain.Book{}, fmt.Errorf("%w: slug must be lowercase letters, digits and hyphens", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Book{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Author) == "" {
		return domain.Book{}, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}
	language := in.Language
	if language == "" {
		language = "pt-BR"
	}
	book := domain.Book{
		Slug:        in.Slug,
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Description: in.Description,
		Synopsis:    in.Synopsis,
		CoverURL:    in.CoverURL,
		Year:        in.Year,
		ISBN:        in.ISBN,
		Pages:       in.Pages,
		Genre:       in.Genre,
		Language:    language,
		Formats:     normalizeFormats(in.Formats),
		Languages:   in.Languages,
		Rating:      "0",
		IsPublished: published,
	}
	created, err := a.store.CreateBook(book)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			return domain.Book{}, fmt.Errorf("%w: slug already in use", ErrInvalidInput)
		}
		return domain.Book{}, storeErr(err)
	}
	return created, nil
}

// UpdateBook patches a book. The slug is immutable; requests never carry
// one here.
func (a *App) UpdateBook(id int64, update store.BookUpdate) (domain.Book, error) {
	if _, err := a.mustBook(id); err != nil {
		return domain.Book{}, err
	}
	if update.Formats != nil {
		normalized := normalizeFormats(*update.Formats)
		update.Formats = &normalized
	}
	if err := a.store.UpdateBook(id, update); err != nil {
		return domain.Book{}, storeErr(err)
	}
	book, _, err := a.store.GetBookByID(id)
	if err != nil {
		return domain.Book{}, storeErr(err)
	}
	return book, nil
}

func (a *App) DeleteBook(id int64) error {
	if _, err := a.mustBook(id); err != nil {
		return err
	}
	if err := a.store.DeleteBook(id); err != nil {
		return storeErr(err)
	}
	return nil
}

// LikeBook bumps the counter; the endpoint is anonymous and rate limited
// at the edge.
func (a *App) LikeBook(id int64) (domain.Book, error) {
	if _, err := a.mustBook(id); err != nil {
		return domain.Book{}, err
	}
	if err := a.store.IncrementBookLikes(id); err != nil {
		return domain.Book{}, storeErr(err)
	}
	book, _, err := a.store.GetBookByID(id)
	if err != nil {
		return domain.Book{}, storeErr(err)
	}
	return book, nil
}

// UploadBookFile stores a book file in the bucket and records the format
// on the book if it is new.
func (a *App) UploadBookFile(ctx context.Context, bookID int64, format string, r io.Reader, size int64, contentType string) error {
	book, err := a.mustBook(bookID)
	if err != nil {
		return err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return fmt.Errorf("%w: format is required", ErrInvalidInput)
	}
	key := storage.BookObjectKey(bookID, format)
	if err := a.objects.Put(ctx, key, r, size, contentType); err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	for _, f := range book.Formats {
		if f == format {
			return nil
		}
	}
	formats := append(append([]string{}, book.Formats...), format)
	if err := a.store.UpdateBook(bookID, store.BookUpdate{Formats: &formats}); err != nil {
		return storeErr(err)
	}
	return nil
}

func (a *App) mustBook(id int64) (domain.Book, error) {
	book, ok, err := a.store.GetBookByID(id)
	if err != nil {
		return domain.Book{}, storeErr(err)
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return book, nil
}

func normalizeFormats(formats []string) []string {
	out := make([]string, 0, len(formats))
	seen := map[string]bool{}
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// --- posts ---

// PostInput is the payload for creating a post. New posts always start as
// drafts regardless of what the client sends.
type PostInput struct {
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
}

func (a *App) ListPosts(limit, offset int) []domain.Post {
	posts, err := a.store.ListPosts(limit, offset)
	if err != nil {
		a.logger.Error("list posts failed", "error", err)
		return []domain.Post{}
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts
}

func (a *App) GetPost(slug string, viewer *domain.User) (domain.Post, error) {
	post, ok, err := a.store.GetPostBySlug(slug)
	if err != nil {
		return domain.Post{}, storeErr(err)
	}
	if !ok {
		return domain.Post{}, ErrNotFound
	}
	if !post.IsPublished && (viewer == nil || viewer.Role != domain.RoleAdmin) {
		return domain.Post{}, ErrNotFound
	}
	return post, nil
}

func (a *App) CreatePost(author domain.User, in PostInput) (domain.Post, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	if !slugRe.MatchString(in.Slug) {
		return domain.Post{}, fmt.Errorf("%w: slug must be lowercase letters, digits and hyphens", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Post{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	post := domain.Post{
		Slug:        in.Slug,
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Excerpt:     in.Excerpt,
		AuthorID:    author.ID,
		Tags:        in.Tags,
		IsPublished: false,
	}
	created, err := a.store.CreatePost(post)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			return domain.Post{}, fmt.Errorf("%w: slug already in use", ErrInvalidInput)
		}
		return domain.Post{}, storeErr(err)
	}
	return created, nil
}

// UpdatePost patches a post. Flipping isPublished from false to true
// stamps publishedAt; later edits never move it.
func (a *App) UpdatePost(id int64, update store.PostUpdate) (domain.Post, error) {
	post, ok, err := a.store.GetPostByID(id)
	if err != nil {
		return domain.Post{}, storeErr(err)
	}
	if !ok {
		return domain.Post{}, ErrNotFound
	}
	update.PublishedAt = nil
	if update.IsPublished != nil && *update.IsPublished && !post.IsPublished && post.PublishedAt == nil {
		now := time.Now().UTC()
		update.PublishedAt = &now
	}
	if err := a.store.UpdatePost(id, update); err != nil {
		return domain.Post{}, storeErr(err)
	}
	post, _, err = a.store.GetPostByID(id)
	if err != nil {
		return domain.Post{}, storeErr(err)
	}
	return post, nil
}

func (a *App) DeletePost(id int64) error {
	_, ok, err := a.store.GetPostByID(id)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := a.store.DeletePost(id); err != nil {
		return storeErr(err)
	}
	return nil
}

func (a *App) RecordPostView(id int64) error {
	_, ok, err := a.store.GetPostByID(id)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := a.store.IncrementPostViews(id); err != nil {
		return storeErr(err)
	}
	return nil
}

// --- comments ---

// CommentInput targets exactly one of a book or a post.
type CommentInput struct {
	BookID          *int64 `json:"bookId"`
	PostID          *int64 `json:"postId"`
	Content         string `json:"content"`
	ParentCommentID *int64 `json:"parentCommentId"`
}

const maxCommentLength = 5000

// ListBookComments returns a book's approved comments.
func (a *App) ListBookComments(bookID int64) ([]domain.Comment, error) {
	if _, err := a.mustBook(bookID); err != nil {
		return nil, err
	}
	comments, err := a.store.ListCommentsByBook(bookID, domain.CommentApproved)
	if err != nil {
		a.logger.Error("list comments failed", "bookId", bookID, "error", err)
		return []domain.Comment{}, nil
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// CreateComment records a new comment in pending state.
func (a *App) CreateComment(author domain.User, in CommentInput) (domain.Comment, error) {
	if (in.BookID == nil) == (in.PostID == nil) {
		return domain.Comment{}, fmt.Errorf("%w: a comment targets exactly one of bookId or postId", ErrInvalidInput)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.Comment{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(content) > maxCommentLength {
		return domain.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, maxCommentLength)
	}
	if in.BookID != nil {
		if _, err := a.mustBook(*in.BookID); err != nil {
			return domain.Comment{}, err
		}
	}
	if in.PostID != nil {
		_, ok, err := a.store.GetPostByID(*in.PostID)
		if err != nil {
			return domain.Comment{}, storeErr(err)
		}
		if !ok {
			return domain.Comment{}, ErrNotFound
		}
	}
	if in.ParentCommentID != nil {
		parent, ok, err := a.store.GetCommentByID(*in.ParentCommentID)
		if err != nil {
			return domain.Comment{}, storeErr(err)
		}
		if !ok {
			return domain.Comment{}, fmt.Errorf("%w: parent comment not found", ErrInvalidInput)
		}
		if !sameTarget(parent, in) {
			return domain.Comment{}, fmt.Errorf("%w: reply targets a different book or post", ErrInvalidInput)
		}
	}
	comment := domain.Comment{
		BookID:          in.BookID,
		PostID:          in.PostID,
		UserID:          author.ID,
		Content:         content,
		Status:          domain.CommentPending,
		ParentCommentID: in.ParentCommentID,
	}
	created, err := a.store.CreateComment(comment)
	if err != nil {
		return domain.Comment{}, storeErr(err)
	}
	return created, nil
}

func sameTarget(parent domain.Comment, in CommentInput) bool {
	if in.BookID != nil {
		return parent.BookID != nil && *parent.BookID == *in.BookID
	}
	return parent.PostID != nil && *parent.PostID == *in.PostID
}

// PendingComments lists the moderation queue, newest first.
func (a *App) PendingComments() []domain.Comment {
	comments, err := a.store.ListCommentsByStatus(domain.CommentPending)
	if err != nil {
		a.logger.Error("list pending comments failed", "error", err)
		return []domain.Comment{}
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments
}

func (a *App) ApproveComment(id int64) (domain.Comment, error) {
	return a.moderateComment(id, domain.CommentApproved)
}

func (a *App) RejectComment(id int64) (domain.Comment, error) {
	return a.moderateComment(id, domain.CommentRejected)
}

func (a *App) moderateComment(id int64, status domain.CommentStatus) (domain.Comment, error) {
	comment, ok, err := a.store.GetCommentByID(id)
	if err != nil {
		return domain.Comment{}, storeErr(err)
	}
	if !ok {
		return domain.Comment{}, ErrNotFound
	}
	if comment.Status != domain.CommentPending {
		return domain.Comment{}, fmt.Errorf("%w: comment already %s", ErrInvalidInput, comment.Status)
	}
	if err := a.store.SetCommentStatus(id, status); err != nil {
		return domain.Comment{}, storeErr(err)
	}
	comment.Status = status
	return comment, nil
}

// TranslateComment renders a comment into the target language and stores
// the result alongside the original. Only admins and the comment's author
// may request it.
func (a *App) TranslateComment(ctx context.Context, caller domain.User, id int64, targetLanguage string) (domain.Comment, error) {
	if a.translator == nil {
		return domain.Comment{}, fmt.Errorf("%w: translation not configured", ErrInvalidInput)
	}
	comment, ok, err := a.store.GetCommentByID(id)
	if err != nil {
		return domain.Comment{}, storeErr(err)
	}
	if !ok {
		return domain.Comment{}, ErrNotFound
	}
	if caller.Role != domain.RoleAdmin && comment.UserID != caller.ID {
		return domain.Comment{}, ErrForbidden
	}
	targetLanguage = strings.TrimSpace(targetLanguage)
	if targetLanguage == "" {
		return domain.Comment{}, fmt.Errorf("%w: targetLanguage is required", ErrInvalidInput)
	}
	if existing, ok := comment.TranslatedContent[targetLanguage]; ok && existing != "" {
		return comment, nil
	}
	translated, detected, err := a.translator.Translate(ctx, comment.Content, targetLanguage)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("translate comment: %w", err)
	}
	if err := a.store.SetCommentTranslation(id, targetLanguage, translated, detected); err != nil {
		return domain.Comment{}, storeErr(err)
	}
	comment, _, err = a.store.GetCommentByID(id)
	if err != nil {
		return domain.Comment{}, storeErr(err)
	}
	return comment, nil
}

// --- favorites ---

// FavoriteBook pairs a favorite row with its book for list responses.
type FavoriteBook struct {
	domain.Favorite
	Book domain.Book `json:"book"`
}

// AddFavorite is idempotent: favoriting twice leaves one row.
func (a *App) AddFavorite(user domain.User, bookID int64) error {
	if _, err := a.mustBook(bookID); err != nil {
		return err
	}
	if err := a.store.AddFavorite(user.ID, bookID); err != nil {
		return storeErr(err)
	}
	return nil
}

func (a *App) RemoveFavorite(user domain.User, bookID int64) error {
	if err := a.store.RemoveFavorite(user.ID, bookID); err != nil {
		return storeErr(err)
	}
	return nil
}

func (a *App) ListFavorites(user domain.User) []FavoriteBook {
	favorites, err := a.store.ListFavorites(user.ID)
	if err != nil {
		a.logger.Error("list favorites failed", "userId", user.ID, "error", err)
		return []FavoriteBook{}
	}
	out := make([]FavoriteBook, 0, len(favorites))
	for _, f := range favorites {
		book, ok, err := a.store.GetBookByID(f.BookID)
		if err != nil || !ok {
			continue
		}
		out = append(out, FavoriteBook{Favorite: f, Book: book})
	}
	return out
}

// --- downloads ---

// DownloadRequest is the payload for requesting a download link.
type DownloadRequest struct {
	BookID    int64
	Format    string
	IPAddress string
	UserAgent string
}

// CreateDownload checks the per-day quota, records the download and
// returns a short-lived URL for the file.
func (a *App) CreateDownload(ctx context.Context, user domain.User, req DownloadRequest) (domain.Download, error) {
	book, err := a.mustBook(req.BookID)
	if err != nil {
		return domain.Download{}, err
	}
	if !book.IsPublished && user.Role != domain.RoleAdmin {
		return domain.Download{}, ErrNotFound
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		return domain.Download{}, fmt.Errorf("%w: format is required", ErrInvalidInput)
	}
	if len(book.Formats) > 0 && !containsString(book.Formats, format) {
		return domain.Download{}, fmt.Errorf("%w: format %q not available for this book", ErrInvalidInput, format)
	}

	url, err := a.objects.PresignGet(ctx, storage.BookObjectKey(req.BookID, format), a.downloadTTL)
	if err != nil {
		return domain.Download{}, fmt.Errorf("presign download: %w", err)
	}
	now := time.Now().UTC()
	download := domain.Download{
		UserID:       user.ID,
		BookID:       req.BookID,
		Format:       format,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		PresignedURL: url,
		ExpiresAt:    now.Add(a.downloadTTL),
	}
	created, err := a.store.CreateDownloadWithQuota(download, now.Add(-24*time.Hour), a.downloadLimit)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return domain.Download{}, ErrDownloadLimit
		}
		return domain.Download{}, storeErr(err)
	}
	return created, nil
}

// DownloadQuota reports how many downloads the user has left for a book
// in the current 24-hour window.
type DownloadQuota struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

func (a *App) GetDownloadQuota(user domain.User, bookID int64) (DownloadQuota, error) {
	if _, err := a.mustBook(bookID); err != nil {
		return DownloadQuota{}, err
	}
	used, err := a.store.CountDownloads(user.ID, bookID, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return DownloadQuota{}, storeErr(err)
	}
	remaining := a.downloadLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return DownloadQuota{Used: used, Limit: a.downloadLimit, Remaining: remaining}, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// --- newsletter ---

// Subscribe upserts the subscription and queues a welcome email. A
// previously unsubscribed address is reactivated.
func (a *App) Subscribe(ctx context.Context, email, language string) (domain.NewsletterSubscription, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.NewsletterSubscription{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	sub, err := a.store.UpsertSubscription(email, language)
	if err != nil {
		return domain.NewsletterSubscription{}, storeErr(err)
	}
	if a.newsletter != nil {
		// Delivery is best effort; the subscription already exists.
		if _, err := a.newsletter.Enqueue(ctx, queue.EmailJob{
			Kind:     queue.JobWelcome,
			Email:    sub.Email,
			Language: sub.Language,
		}); err != nil {
			a.logger.Warn("enqueue welcome email failed", "email", sub.Email, "error", err)
		}
	}
	return sub, nil
}

func (a *App) Unsubscribe(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if err := a.store.DeactivateSubscription(email); err != nil {
		return storeErr(err)
	}
	return nil
}

func (a *App) Subscribers(language string) []domain.NewsletterSubscription {
	subs, err := a.store.ListSubscribers(language)
	if err != nil {
		a.logger.Error("list subscribers failed", "error", err)
		return []domain.NewsletterSubscription{}
	}
	if subs == nil {
		subs = []domain.NewsletterSubscription{}
	}
	return subs
}
