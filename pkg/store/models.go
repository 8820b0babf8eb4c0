package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	OpenID       string  `gorm:"column:open_id;size:64;uniqueIndex;not null"`
	Name         *string `gorm:"type:text"`
	Email        *string `gorm:"size:320;uniqueIndex"`
	LoginMethod  *string `gorm:"size:64"`
	Role         string  `gorm:"size:16;not null;default:user"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	LastSignedIn time.Time `gorm:"not null"`
}

type BookModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Slug        string `gorm:"size:255;uniqueIndex;not null"`
	Title       string `gorm:"size:255;not null"`
	Author      string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Synopsis    string `gorm:"type:text"`
	CoverURL    string `gorm:"column:cover_url;size:1024"`
	Year        int
	ISBN        string `gorm:"column:isbn;size:20"`
	Pages       int
	Genre       string         `gorm:"size:100;index"`
	Language    string         `gorm:"size:50;default:pt-BR"`
	Formats     datatypes.JSON `gorm:"type:jsonb"`
	Languages   datatypes.JSON `gorm:"type:jsonb"`
	Likes       int            `gorm:"not null;default:0"`
	Downloads   int            `gorm:"not null;default:0"`
	Rating      string         `gorm:"type:decimal(3,1);default:0"`
	Reviews     int            `gorm:"not null;default:0"`
	IsPublished bool           `gorm:"not null;default:true"`
	CreatedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

type PostModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Slug        string `gorm:"size:255;uniqueIndex;not null"`
	Title       string `gorm:"size:255;not null"`
	Content     string `gorm:"type:text"`
	Excerpt     string `gorm:"size:500"`
	AuthorID    int64  `gorm:"not null;index"`
	Tags        datatypes.JSON `gorm:"type:jsonb"`
	Views       int            `gorm:"not null;default:0"`
	IsPublished bool           `gorm:"not null;default:false"`
	PublishedAt *time.Time     `gorm:"index"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

type CommentModel struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	BookID            *int64 `gorm:"index"`
	PostID            *int64 `gorm:"index"`
	UserID            int64  `gorm:"not null;index"`
	Content           string `gorm:"type:text;not null"`
	TranslatedContent datatypes.JSON `gorm:"type:jsonb"`
	DetectedLanguage  string         `gorm:"size:10"`
	Likes             int            `gorm:"not null;default:0"`
	Status            string         `gorm:"size:16;not null;default:pending;index"`
	ParentCommentID   *int64
	CreatedAt         time.Time `gorm:"not null;index"`
	UpdatedAt         time.Time `gorm:"not null"`
}

type DownloadModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	UserID       int64  `gorm:"not null;index:idx_download_user_book"`
	BookID       int64  `gorm:"not null;index:idx_download_user_book"`
	Format       string `gorm:"size:20;not null"`
	IPAddress    string `gorm:"column:ip_address;size:45"`
	UserAgent    string `gorm:"type:text"`
	PresignedURL string `gorm:"column:presigned_url;size:2048"`
	ExpiresAt    time.Time
	DownloadedAt *time.Time
	CreatedAt    time.Time `gorm:"not null;index"`
}

type FavoriteModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_favorite_user_book"`
	BookID    int64     `gorm:"not null;uniqueIndex:idx_favorite_user_book"`
	CreatedAt time.Time `gorm:"not null"`
}

type TranslationModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	SourceLanguage string `gorm:"size:10;not null;index:idx_translation_lookup"`
	TargetLanguage string `gorm:"size:10;not null;index:idx_translation_lookup"`
	SourceText     string `gorm:"type:text;not null"`
	TranslatedText string `gorm:"type:text;not null"`
	Provider       string `gorm:"size:50;default:stub"`
	CreatedAt      time.Time `gorm:"not null"`
}

type NewsletterSubscriptionModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Email          string `gorm:"size:320;uniqueIndex;not null"`
	Language       string `gorm:"size:10;default:pt-BR"`
	IsActive       bool   `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"not null"`
	UnsubscribedAt *time.Time
}
