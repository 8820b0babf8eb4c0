package store

import (
	"errors"
	"time"

	"abbleitura/pkg/domain"
)

// ErrQuotaExceeded is returned by CreateDownloadWithQuota when the caller
// already reached the per-(user,book) download limit inside the
// quota window.
var ErrQuotaExceeded = errors.New("download quota exceeded")

// BookFilter narrows ListBooks. Genre is an exact match, Search is a
// substring match over title and author; both are optional and combine
// with AND. Only published books are returned.
type BookFilter struct {
	Genre  string
	Search string
	Limit  int
	Offset int
}

// BookUpdate patches named book fields; nil fields are left untouched.
// The slug is immutable and deliberately absent.
type BookUpdate struct {
	Title       *string   `json:"title"`
	Author      *string   `json:"author"`
	Description *string   `json:"description"`
	Synopsis    *string   `json:"synopsis"`
	CoverURL    *string   `json:"coverUrl"`
	Year        *int      `json:"year"`
	ISBN        *string   `json:"isbn"`
	Pages       *int      `json:"pages"`
	Genre       *string   `json:"genre"`
	Formats     *[]string `json:"formats"`
	Languages   *[]string `json:"languages"`
	IsPublished *bool     `json:"isPublished"`
}

// PostUpdate patches named post fields; nil fields are left untouched.
// PublishedAt is stamped by the application on the draft-to-published
// flip and never accepted from clients.
type PostUpdate struct {
	Title       *string    `json:"title"`
	Content     *string    `json:"content"`
	Excerpt     *string    `json:"excerpt"`
	Tags        *[]string  `json:"tags"`
	IsPublished *bool      `json:"isPublished"`
	PublishedAt *time.Time `json:"-"`
}

// Store defines persistence operations for the catalog.
type Store interface {
	// users
	UpsertUser(user domain.User) (domain.User, error)
	GetUserByID(id int64) (domain.User, bool, error)

	// books
	ListBooks(filter BookFilter) ([]domain.Book, error)
	GetBookBySlug(slug string) (domain.Book, bool, error)
	GetBookByID(id int64) (domain.Book, bool, error)
	CreateBook(book domain.Book) (domain.Book, error)
	UpdateBook(id int64, update BookUpdate) error
	DeleteBook(id int64) error
	IncrementBookLikes(id int64) error

	// posts
	ListPosts(limit, offset int) ([]domain.Post, error)
	GetPostBySlug(slug string) (domain.Post, bool, error)
	GetPostByID(id int64) (domain.Post, bool, error)
	CreatePost(post domain.Post) (domain.Post, error)
	UpdatePost(id int64, update PostUpdate) error
	DeletePost(id int64) error
	IncrementPostViews(id int64) error

	// comments
	ListCommentsByBook(bookID int64, status domain.CommentStatus) ([]domain.Comment, error)
	ListCommentsByStatus(status domain.CommentStatus) ([]domain.Comment, error)
	GetCommentByID(id int64) (domain.Comment, bool, error)
	CreateComment(comment domain.Comment) (domain.Comment, error)
	SetCommentStatus(id int64, status domain.CommentStatus) error
	SetCommentTranslation(id int64, language, text, detectedLanguage string) error

	// favorites
	AddFavorite(userID, bookID int64) error
	RemoveFavorite(userID, bookID int64) error
	ListFavorites(userID int64) ([]domain.Favorite, error)

	// downloads
	// CreateDownloadWithQuota counts the caller's downloads for the
	// (user, book) pair since the cutoff and inserts the row plus the
	// book download-counter increment in one transaction. Returns
	// ErrQuotaExceeded when the count is already at limit.
	CreateDownloadWithQuota(d domain.Download, since time.Time, limit int) (domain.Download, error)
	CountDownloads(userID, bookID int64, since time.Time) (int, error)

	// translations
	GetTranslation(sourceLang, targetLang, sourceText string) (domain.Translation, bool, error)
	SaveTranslation(t domain.Translation) (domain.Translation, error)

	// newsletter
	UpsertSubscription(email, language string) (domain.NewsletterSubscription, error)
	DeactivateSubscription(email string) error
	ListSubscribers(language string) ([]domain.NewsletterSubscription, error)
}

// SessionStore issues and validates session tokens carried by the cookie.
type SessionStore interface {
	NewSession(userID int64) (string, error)
	UserIDFromToken(token string) (int64, bool, error)
}
