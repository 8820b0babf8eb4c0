package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// CommentStatus is the moderation lifecycle of a comment. Comments are
// created pending; approved and rejected are terminal.
type CommentStatus string

const (
	CommentPending  CommentStatus = "pending"
	CommentApproved CommentStatus = "approved"
	CommentRejected CommentStatus = "rejected"
)

type User struct {
	ID           int64     `json:"id"`
	OpenID       string    `json:"openId"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	LoginMethod  string    `json:"loginMethod,omitempty"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastSignedIn time.Time `json:"lastSignedIn"`
}

type Book struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description,omitempty"`
	Synopsis    string    `json:"synopsis,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Year        int       `json:"year,omitempty"`
	ISBN        string    `json:"isbn,omitempty"`
	Pages       int       `json:"pages,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Language    string    `json:"language"`
	Formats     []string  `json:"formats,omitempty"`
	Languages   []string  `json:"languages,omitempty"`
	Likes       int       `json:"likes"`
	Downloads   int       `json:"downloads"`
	Rating      string    `json:"rating"`
	Reviews     int       `json:"reviews"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Post struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Content     string     `json:"content,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	AuthorID    int64      `json:"authorId"`
	Tags        []string   `json:"tags,omitempty"`
	Views       int        `json:"views"`
	IsPublished bool       `json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Comment struct {
	ID                int64             `json:"id"`
	BookID            *int64            `json:"bookId,omitempty"`
	PostID            *int64            `json:"postId,omitempty"`
	UserID            int64             `json:"userId"`
	Content           string            `json:"content"`
	TranslatedContent map[string]string `json:"translatedContent,omitempty"`
	DetectedLanguage  string            `json:"detectedLanguage,omitempty"`
	Likes             int               `json:"likes"`
	Status            CommentStatus     `json:"status"`
	ParentCommentID   *int64            `json:"parentCommentId,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

type Download struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"userId"`
	BookID       int64      `json:"bookId"`
	Format       string     `json:"format"`
	IPAddress    string     `json:"ipAddress,omitempty"`
	UserAgent    string     `json:"userAgent,omitempty"`
	PresignedURL string     `json:"presignedUrl"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	DownloadedAt *time.Time `json:"downloadedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Favorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	BookID    int64     `json:"bookId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Translation struct {
	ID             int64     `json:"id"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	SourceText     string    `json:"sourceText"`
	TranslatedText string    `json:"translatedText"`
	Provider       string    `json:"provider"`
	CreatedAt      time.Time `json:"createdAt"`
}

type NewsletterSubscription struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	Language       string     `json:"language"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
}
