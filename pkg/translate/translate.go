package translate

import (
	"context"
	"fmt"
	"strings"

	"abbleitura/pkg/domain"
)

// Provider turns text into another language. Implementations may call an
// external API; the service memoizes their results.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, targetLanguage string) (translated, detectedLanguage string, err error)
}

// Cache is the persistence the service needs, satisfied by the store.
type Cache interface {
	GetTranslation(sourceLang, targetLang, sourceText string) (domain.Translation, bool, error)
	SaveTranslation(t domain.Translation) (domain.Translation, error)
}

// Service memoizes provider results so repeated texts are translated once.
type Service struct {
	provider Provider
	cache    Cache
}

func NewService(provider Provider, cache Cache) *Service {
	return &Service{provider: provider, cache: cache}
}

// Translate returns the cached rendering when one exists and otherwise
// asks the provider and stores the result.
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (string, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", fmt.Errorf("empty text")
	}
	targetLanguage = normalizeLanguage(targetLanguage)

	cached, ok, err := s.cache.GetTranslation("auto", targetLanguage, text)
	if err == nil && ok {
		return cached.TranslatedText, cached.SourceLanguage, nil
	}

	translated, detected, err := s.provider.Translate(ctx, text, targetLanguage)
	if err != nil {
		return "", "", fmt.Errorf("translate: %w", err)
	}
	// Cache write failures are not fatal; the caller still gets the text.
	_, _ = s.cache.SaveTranslation(domain.Translation{
		SourceLanguage: "auto",
		TargetLanguage: targetLanguage,
		SourceText:     text,
		TranslatedText: translated,
		Provider:       s.provider.Name(),
	})
	return translated, detected, nil
}

func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "pt-BR"
	}
	return lang
}

// EchoProvider is the built-in provider used when no external translation
// API is configured. It tags the text with the target language so callers
// can see the plumbing works end to end.
type EchoProvider struct{}

func (EchoProvider) Name() string { return "stub" }

func (EchoProvider) Translate(ctx context.Context, text, targetLanguage string) (string, string, error) {
	return fmt.Sprintf("[%s] %s", targetLanguage, text), "auto", nil
}
