package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"abbleitura/internal/config"
	"abbleitura/internal/util"
	"abbleitura/pkg/domain"
	"abbleitura/pkg/store"
)

// seed loads a small catalog so a fresh deployment has something to show.
func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	admin, err := db.UpsertUser(domain.User{
		OpenID:      cfg.OwnerOpenID,
		Name:        "Curator",
		LoginMethod: "seed",
		Role:        domain.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info("admin ready", "userId", admin.ID)

	books := []domain.Book{
		{
			Slug:        "dom-casmurro",
			Title:       "Dom Casmurro",
			Author:      "Machado de Assis",
			Description: "Bento Santiago narra sua vida e sua desconfianca de Capitu.",
			Year:        1899,
			Genre:       "classic",
			Language:    "pt-BR",
			Formats:     []string{"epub", "pdf"},
			Rating:      "4.6",
			IsPublished: true,
		},
		{
			Slug:        "iracema",
			Title:       "Iracema",
			Author:      "Jose de Alencar",
			Description: "A lenda da virgem dos labios de mel.",
			Year:        1865,
			Genre:       "romance",
			Language:    "pt-BR",
			Formats:     []string{"epub"},
			Rating:      "4.2",
			IsPublished: true,
		},
		{
			Slug:        "os-sertoes",
			Title:       "Os Sertoes",
			Author:      "Euclides da Cunha",
			Description: "A campanha de Canudos.",
			Year:        1902,
			Genre:       "history",
			Language:    "pt-BR",
			Formats:     []string{"pdf"},
			Rating:      "4.4",
			IsPublished: true,
		},
	}
	for _, b := range books {
		if _, ok, err := db.GetBookBySlug(b.Slug); err != nil {
			return fmt.Errorf("check book %s: %w", b.Slug, err)
		} else if ok {
			logger.Info("book exists, skipping", "slug", b.Slug)
			continue
		}
		created, err := db.CreateBook(b)
		if err != nil {
			return fmt.Errorf("seed book %s: %w", b.Slug, err)
		}
		logger.Info("book seeded", "slug", created.Slug, "id", created.ID)
	}

	if _, ok, err := db.GetPostBySlug("bem-vindos"); err != nil {
		return fmt.Errorf("check post: %w", err)
	} else if !ok {
		post, err := db.CreatePost(domain.Post{
			Slug:        "bem-vindos",
			Title:       "Bem-vindos ao acervo",
			Content:     "Tres classicos para comecar a leitura.",
			Excerpt:     "O acervo esta no ar.",
			AuthorID:    admin.ID,
			Tags:        []string{"announcements"},
			IsPublished: false,
		})
		if err != nil {
			return fmt.Errorf("seed post: %w", err)
		}
		published := true
		now := time.Now().UTC()
		if err := db.UpdatePost(post.ID, store.PostUpdate{IsPublished: &published, PublishedAt: &now}); err != nil {
			return fmt.Errorf("publish post: %w", err)
		}
		logger.Info("post seeded", "slug", post.Slug)
	}

	logger.Info("seed complete")
	return nil
}
