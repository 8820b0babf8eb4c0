package translate

import (
	"context"
	"testing"

	"abbleitura/pkg/store"
)

type countingProvider struct {
	calls int
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Translate(ctx context.Context, text, targetLanguage string) (string, string, error) {
	p.calls++
	return "translated:" + text, "en", nil
}

func TestTranslateMemoizes(t *testing.T) {
	provider := &countingProvider{}
	svc := NewService(provider, store.NewMemoryStore())

	first, detected, err := svc.Translate(context.Background(), "hello", "pt-BR")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if first != "translated:hello" {
		t.Fatalf("translated = %q", first)
	}
	if detected != "en" {
		t.Fatalf("detected = %q, want en", detected)
	}

	second, _, err := svc.Translate(context.Background(), "hello", "pt-BR")
	if err != nil {
		t.Fatalf("Translate (cached): %v", err)
	}
	if second != first {
		t.Fatalf("cached result %q differs from %q", second, first)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}

	// A different target language is a different cache entry.
	if _, _, err := svc.Translate(context.Background(), "hello", "es"); err != nil {
		t.Fatalf("Translate (es): %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("provider called %d times, want 2", provider.calls)
	}
}

func TestTranslateRejectsEmptyText(t *testing.T) {
	svc := NewService(EchoProvider{}, store.NewMemoryStore())
	if _, _, err := svc.Translate(context.Background(), "   ", "pt-BR"); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestTranslateDefaultsLanguage(t *testing.T) {
	svc := NewService(EchoProvider{}, store.NewMemoryStore())
	got, _, err := svc.Translate(context.Background(), "ola", "")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "[pt-BR] ola" {
		t.Fatalf("translated = %q", got)
	}
}
