package store

import (
	"encoding/json"

	"abbleitura/pkg/domain"
)

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		OpenID:       m.OpenID,
		Name:         derefString(m.Name),
		Email:        derefString(m.Email),
		LoginMethod:  derefString(m.LoginMethod),
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		LastSignedIn: m.LastSignedIn,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		Slug:        b.Slug,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Synopsis:    b.Synopsis,
		CoverURL:    b.CoverURL,
		Year:        b.Year,
		ISBN:        b.ISBN,
		Pages:       b.Pages,
		Genre:       b.Genre,
		Language:    b.Language,
		Formats:     stringsToJSON(b.Formats),
		Languages:   stringsToJSON(b.Languages),
		Likes:       b.Likes,
		Downloads:   b.Downloads,
		Rating:      b.Rating,
		Reviews:     b.Reviews,
		IsPublished: b.IsPublished,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		Slug:        m.Slug,
		Title:       m.Title,
		Author:      m.Author,
		Description: m.Description,
		Synopsis:    m.Synopsis,
		CoverURL:    m.CoverURL,
		Year:        m.Year,
		ISBN:        m.ISBN,
		Pages:       m.Pages,
		Genre:       m.Genre,
		Language:    m.Language,
		Formats:     jsonToStrings(m.Formats),
		Languages:   jsonToStrings(m.Languages),
		Likes:       m.Likes,
		Downloads:   m.Downloads,
		Rating:      m.Rating,
		Reviews:     m.Reviews,
		IsPublished: m.IsPublished,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func postToModel(p domain.Post) PostModel {
	return PostModel{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		AuthorID:    p.AuthorID,
		Tags:        stringsToJSON(p.Tags),
		Views:       p.Views,
		IsPublished: p.IsPublished,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func postFromModel(m PostModel) domain.Post {
	return domain.Post{
		ID:          m.ID,
		Slug:        m.Slug,
		Title:       m.Title,
		Content:     m.Content,
		Excerpt:     m.Excerpt,
		AuthorID:    m.AuthorID,
		Tags:        jsonToStrings(m.Tags),
		Views:       m.Views,
		IsPublished: m.IsPublished,
		PublishedAt: m.PublishedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func commentToModel(c domain.Comment) CommentModel {
	model := CommentModel{
		ID:               c.ID,
		BookID:           c.BookID,
		PostID:           c.PostID,
		UserID:           c.UserID,
		Content:          c.Content,
		DetectedLanguage: c.DetectedLanguage,
		Likes:            c.Likes,
		Status:           string(c.Status),
		ParentCommentID:  c.ParentCommentID,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if len(c.TranslatedContent) > 0 {
		raw, err := json.Marshal(c.TranslatedContent)
		if err == nil {
			model.TranslatedContent = raw
		}
	}
	return model
}

func commentFromModel(m CommentModel) domain.Comment {
	c := domain.Comment{
		ID:               m.ID,
		BookID:           m.BookID,
		PostID:           m.PostID,
		UserID:           m.UserID,
		Content:          m.Content,
		DetectedLanguage: m.DetectedLanguage,
		Likes:            m.Likes,
		Status:           domain.CommentStatus(m.Status),
		ParentCommentID:  m.ParentCommentID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if len(m.TranslatedContent) > 0 {
		translated := map[string]string{}
		if err := json.Unmarshal(m.TranslatedContent, &translated); err == nil {
			c.TranslatedContent = translated
		}
	}
	return c
}

func commentsFromModels(models []CommentModel) []domain.Comment {
	comments := make([]domain.Comment, 0, len(models))
	for _, m := range models {
		comments = append(comments, commentFromModel(m))
	}
	return comments
}

func downloadToModel(d domain.Download) DownloadModel {
	return DownloadModel{
		ID:           d.ID,
		UserID:       d.UserID,
		BookID:       d.BookID,
		Format:       d.Format,
		IPAddress:    d.IPAddress,
		UserAgent:    d.UserAgent,
		PresignedURL: d.PresignedURL,
		ExpiresAt:    d.ExpiresAt,
		DownloadedAt: d.DownloadedAt,
		CreatedAt:    d.CreatedAt,
	}
}

func downloadFromModel(m DownloadModel) domain.Download {
	return domain.Download{
		ID:           m.ID,
		UserID:       m.UserID,
		BookID:       m.BookID,
		Format:       m.Format,
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
		PresignedURL: m.PresignedURL,
		ExpiresAt:    m.ExpiresAt,
		DownloadedAt: m.DownloadedAt,
		CreatedAt:    m.CreatedAt,
	}
}

func translationFromModel(m TranslationModel) domain.Translation {
	return domain.Translation{
		ID:             m.ID,
		SourceLanguage: m.SourceLanguage,
		TargetLanguage: m.TargetLanguage,
		SourceText:     m.SourceText,
		TranslatedText: m.TranslatedText,
		Provider:       m.Provider,
		CreatedAt:      m.CreatedAt,
	}
}

func subscriptionFromModel(m NewsletterSubscriptionModel) domain.NewsletterSubscription {
	return domain.NewsletterSubscription{
		ID:             m.ID,
		Email:          m.Email,
		Language:       m.Language,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UnsubscribedAt: m.UnsubscribedAt,
	}
}
