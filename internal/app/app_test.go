package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"abbleitura/internal/identity"
	"abbleitura/pkg/domain"
	"abbleitura/pkg/queue"
	"abbleitura/pkg/store"
	"abbleitura/pkg/translate"
)

type fakeVerifier struct {
	identity identity.Identity
	err      error
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (identity.Identity, error) {
	if f.err != nil {
		return identity.Identity{}, f.err
	}
	return f.identity, nil
}

type recordingQueue struct {
	jobs []queue.EmailJob
}

func (q *recordingQueue) Enqueue(ctx context.Context, job queue.EmailJob) (string, error) {
	q.jobs = append(q.jobs, job)
	return "job-1", nil
}

func newTestApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	a := New(Config{
		Store:       mem,
		Sessions:    sessions,
		Translator:  translate.NewService(translate.EchoProvider{}, mem),
		Identity:    fakeVerifier{identity: identity.Identity{OpenID: "open-1", Name: "Ana"}},
		OwnerOpenID: "owner-open-id",
	})
	return a, mem
}

func mustBook(t *testing.T, a *App, slug string) domain.Book {
	t.Helper()
	book, err := a.CreateBook(BookInput{
		Slug:    slug,
		Title:   "Dom Casmurro",
		Author:  "Machado de Assis",
		Genre:   "classic",
		Formats: []string{"epub", "pdf"},
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return book
}

func mustUser(t *testing.T, mem *store.MemoryStore, openID string) domain.User {
	t.Helper()
	user, err := mem.UpsertUser(domain.User{OpenID: openID, Name: "Reader"})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	return user
}

// --- auth ---

func TestSignInIssuesUsableSession(t *testing.T) {
	a, _ := newTestApp(t)
	user, token, err := a.SignIn(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
	got, err := a.UserFromSession(token)
	if err != nil {
		t.Fatalf("UserFromSession: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("session resolved to user %d, want %d", got.ID, user.ID)
	}
}

func TestSignInPromotesOwner(t *testing.T) {
	mem := store.NewMemoryStore()
	sessions, _ := store.NewJWTSessionStore("test-secret-0123456789", time.Hour)
	a := New(Config{
		Store:       mem,
		Sessions:    sessions,
		Identity:    fakeVerifier{identity: identity.Identity{OpenID: "owner-open-id"}},
		OwnerOpenID: "owner-open-id",
	})
	user, _, err := a.SignIn(context.Background(), "t")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("owner role = %q, want admin", user.Role)
	}

	// Promotion sticks on repeat sign-ins.
	user, _, err = a.SignIn(context.Background(), "t")
	if err != nil {
		t.Fatalf("SignIn again: %v", err)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("owner role after second sign-in = %q, want admin", user.Role)
	}
}

func TestSignInRejectsBadToken(t *testing.T) {
	mem := store.NewMemoryStore()
	sessions, _ := store.NewJWTSessionStore("test-secret-0123456789", time.Hour)
	a := New(Config{
		Store:    mem,
		Sessions: sessions,
		Identity: fakeVerifier{err: errors.New("bad signature")},
	})
	if _, _, err := a.SignIn(context.Background(), "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestUserFromSessionRejectsEmptyToken(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := a.UserFromSession(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

// --- books ---

func TestListBooksFiltersAndPages(t *testing.T) {
	a, _ := newTestApp(t)
	mustBook(t, a, "dom-casmurro")
	second, err := a.CreateBook(BookInput{Slug: "iracema", Title: "Iracema", Author: "Jose de Alencar", Genre: "romance"})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	unpublished := false
	if _, err := a.CreateBook(BookInput{Slug: "draft-book", Title: "Draft", Author: "Anon", IsPublished: &unpublished}); err != nil {
		t.Fatalf("CreateBook draft: %v", err)
	}

	books := a.ListBooks(store.BookFilter{})
	if len(books) != 2 {
		t.Fatalf("listed %d books, want 2 published", len(books))
	}

	books = a.ListBooks(store.BookFilter{Genre: "romance"})
	if len(books) != 1 || books[0].ID != second.ID {
		t.Fatalf("genre filter returned %+v", books)
	}

	books = a.ListBooks(store.BookFilter{Search: "alencar"})
	if len(books) != 1 || books[0].ID != second.ID {
		t.Fatalf("author search returned %+v", books)
	}

	books = a.ListBooks(store.BookFilter{Limit: 1, Offset: 1})
	if len(books) != 1 {
		t.Fatalf("pagination returned %d books, want 1", len(books))
	}
}

func TestGetBookHidesUnpublishedFromReaders(t *testing.T) {
	a, _ := newTestApp(t)
	unpublished := false
	if _, err := a.CreateBook(BookInput{Slug: "draft-book", Title: "Draft", Author: "Anon", IsPublished: &unpublished}); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if _, err := a.GetBook("draft-book", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("anonymous err = %v, want ErrNotFound", err)
	}
	admin := domain.User{ID: 1, Role: domain.RoleAdmin}
	if _, err := a.GetBook("draft-book", &admin); err != nil {
		t.Fatalf("admin err = %v, want visible", err)
	}
}

func TestCreateBookValidatesSlug(t *testing.T) {
	a, _ := newTestApp(t)
	for _, slug := range []string{"", "Bad Slug", "UPPER", "trailing-", "-leading", "sp ace"} {
		if _, err := a.CreateBook(BookInput{Slug: slug, Title: "T", Author: "A"}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("slug %q: err = %v, want ErrInvalidInput", slug, err)
		}
	}

	// A valid slug round-trips exactly as submitted.
	book, err := a.CreateBook(BookInput{Slug: "dom-casmurro-2", Title: "T", Author: "A"})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if book.Slug != "dom-casmurro-2" {
		t.Fatalf("slug = %q, want it returned verbatim", book.Slug)
	}
}

func TestCreatePostValidatesSlug(t *testing.T) {
	a, mem := newTestApp(t)
	admin := mustUser(t, mem, "admin-1")
	for _, slug := range []string{"", "UPPER", "Bad Slug", "trailing-"} {
		if _, err := a.CreatePost(admin, PostInput{Slug: slug, Title: "T"}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("slug %q: err = %v, want ErrInvalidInput", slug, err)
		}
	}
	post, err := a.CreatePost(admin, PostInput{Slug: "first-post", Title: "T"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.Slug != "first-post" {
		t.Fatalf("slug = %q, want it returned verbatim", post.Slug)
	}
}

func TestCreateBookRejectsDuplicateSlug(t *testing.T) {
	a, _ := newTestApp(t)
	mustBook(t, a, "dom-casmurro")
	if _, err := a.CreateBook(BookInput{Slug: "dom-casmurro", Title: "Other", Author: "Other"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestLikeBookIncrements(t *testing.T) {
	a, _ := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	for i := 0; i < 3; i++ {
		if _, err := a.LikeBook(book.ID); err != nil {
			t.Fatalf("LikeBook: %v", err)
		}
	}
	got, err := a.GetBook("dom-casmurro", nil)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.Likes != 3 {
		t.Fatalf("likes = %d, want 3", got.Likes)
	}
}

func TestUpdateBookKeepsSlug(t *testing.T) {
	a, _ := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	title := "Dom Casmurro (revised)"
	updated, err := a.UpdateBook(book.ID, store.BookUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if updated.Slug != "dom-casmurro" {
		t.Fatalf("slug changed to %q", updated.Slug)
	}
	if updated.Title != title {
		t.Fatalf("title = %q", updated.Title)
	}
}

// --- posts ---

func TestCreatePostStartsAsDraft(t *testing.T) {
	a, mem := newTestApp(t)
	admin := mustUser(t, mem, "admin-1")
	post, err := a.CreatePost(admin, PostInput{Slug: "first-post", Title: "First"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.IsPublished {
		t.Error("new post is published, want draft")
	}
	if post.PublishedAt != nil {
		t.Error("new post has publishedAt, want nil")
	}
	if post.AuthorID != admin.ID {
		t.Errorf("authorId = %d, want %d", post.AuthorID, admin.ID)
	}
	if len(a.ListPosts(0, 0)) != 0 {
		t.Error("draft post appears in public list")
	}
}

func TestPublishStampsPublishedAtOnce(t *testing.T) {
	a, mem := newTestApp(t)
	admin := mustUser(t, mem, "admin-1")
	post, err := a.CreatePost(admin, PostInput{Slug: "first-post", Title: "First"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	published := true
	post, err = a.UpdatePost(post.ID, store.PostUpdate{IsPublished: &published})
	if err != nil {
		t.Fatalf("UpdatePost publish: %v", err)
	}
	if post.PublishedAt == nil {
		t.Fatal("publishedAt not stamped on publish")
	}
	stamped := *post.PublishedAt

	title := "First (edited)"
	post, err = a.UpdatePost(post.ID, store.PostUpdate{Title: &title, IsPublished: &published})
	if err != nil {
		t.Fatalf("UpdatePost edit: %v", err)
	}
	if post.PublishedAt == nil || !post.PublishedAt.Equal(stamped) {
		t.Fatalf("publishedAt moved from %v to %v", stamped, post.PublishedAt)
	}

	if len(a.ListPosts(0, 0)) != 1 {
		t.Error("published post missing from public list")
	}
}

func TestRecordPostView(t *testing.T) {
	a, mem := newTestApp(t)
	admin := mustUser(t, mem, "admin-1")
	post, err := a.CreatePost(admin, PostInput{Slug: "first-post", Title: "First"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := a.RecordPostView(post.ID); err != nil {
		t.Fatalf("RecordPostView: %v", err)
	}
	got, _, _ := mem.GetPostByID(post.ID)
	if got.Views != 1 {
		t.Fatalf("views = %d, want 1", got.Views)
	}
	if err := a.RecordPostView(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing post err = %v, want ErrNotFound", err)
	}
}

// --- comments ---

func TestCommentLifecycle(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")

	comment, err := a.CreateComment(reader, CommentInput{BookID: &book.ID, Content: "Otimo livro"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if comment.Status != domain.CommentPending {
		t.Fatalf("status = %q, want pending", comment.Status)
	}

	// Pending comments are invisible to readers.
	visible, err := a.ListBookComments(book.ID)
	if err != nil {
		t.Fatalf("ListBookComments: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("pending comment visible: %+v", visible)
	}

	if len(a.PendingComments()) != 1 {
		t.Fatal("comment missing from moderation queue")
	}

	approved, err := a.ApproveComment(comment.ID)
	if err != nil {
		t.Fatalf("ApproveComment: %v", err)
	}
	if approved.Status != domain.CommentApproved {
		t.Fatalf("status = %q, want approved", approved.Status)
	}

	visible, err = a.ListBookComments(book.ID)
	if err != nil {
		t.Fatalf("ListBookComments: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("approved comment not visible, got %d", len(visible))
	}

	// Terminal states cannot be re-moderated.
	if _, err := a.RejectComment(comment.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("re-moderation err = %v, want ErrInvalidInput", err)
	}
}

func TestRejectedCommentStaysHidden(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")
	comment, err := a.CreateComment(reader, CommentInput{BookID: &book.ID, Content: "spam"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := a.RejectComment(comment.ID); err != nil {
		t.Fatalf("RejectComment: %v", err)
	}
	visible, err := a.ListBookComments(book.ID)
	if err != nil {
		t.Fatalf("ListBookComments: %v", err)
	}
	if len(visible) != 0 {
		t.Fatal("rejected comment visible")
	}
	if len(a.PendingComments()) != 0 {
		t.Fatal("rejected comment still in moderation queue")
	}
}

func TestCommentTargetExclusivity(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	admin := mustUser(t, mem, "admin-1")
	post, err := a.CreatePost(admin, PostInput{Slug: "first-post", Title: "First"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	reader := mustUser(t, mem, "reader-1")

	if _, err := a.CreateComment(reader, CommentInput{Content: "no target"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("no target: err = %v, want ErrInvalidInput", err)
	}
	if _, err := a.CreateComment(reader, CommentInput{BookID: &book.ID, PostID: &post.ID, Content: "both"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("both targets: err = %v, want ErrInvalidInput", err)
	}
	missing := int64(9999)
	if _, err := a.CreateComment(reader, CommentInput{BookID: &missing, Content: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing book: err = %v, want ErrNotFound", err)
	}
}

func TestCommentReplyMustShareTarget(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	other := mustBook(t, a, "iracema")
	reader := mustUser(t, mem, "reader-1")

	parent, err := a.CreateComment(reader, CommentInput{BookID: &book.ID, Content: "parent"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := a.CreateComment(reader, CommentInput{BookID: &other.ID, Content: "reply", ParentCommentID: &parent.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("cross-target reply err = %v, want ErrInvalidInput", err)
	}
	if _, err := a.CreateComment(reader, CommentInput{BookID: &book.ID, Content: "reply", ParentCommentID: &parent.ID}); err != nil {
		t.Fatalf("valid reply: %v", err)
	}
}

func TestTranslateCommentStoresRendering(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")
	comment, err := a.CreateComment(reader, CommentInput{BookID: &book.ID, Content: "Otimo livro"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	translated, err := a.TranslateComment(context.Background(), reader, comment.ID, "en")
	if err != nil {
		t.Fatalf("TranslateComment: %v", err)
	}
	if got := translated.TranslatedContent["en"]; !strings.Contains(got, "Otimo livro") {
		t.Fatalf("translatedContent[en] = %q", got)
	}

	// Repeat requests reuse the stored rendering.
	again, err := a.TranslateComment(context.Background(), reader, comment.ID, "en")
	if err != nil {
		t.Fatalf("TranslateComment again: %v", err)
	}
	if again.TranslatedContent["en"] != translated.TranslatedContent["en"] {
		t.Fatal("repeat translation changed the stored text")
	}

	// Other readers cannot translate someone else's comment.
	other := mustUser(t, mem, "reader-2")
	if _, err := a.TranslateComment(context.Background(), other, comment.ID, "es"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other reader err = %v, want ErrForbidden", err)
	}

	// Admins can.
	admin := domain.User{ID: other.ID, Role: domain.RoleAdmin}
	if _, err := a.TranslateComment(context.Background(), admin, comment.ID, "es"); err != nil {
		t.Fatalf("admin translate: %v", err)
	}
}

// --- favorites ---

func TestFavoritesAreIdempotent(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")

	for i := 0; i < 3; i++ {
		if err := a.AddFavorite(reader, book.ID); err != nil {
			t.Fatalf("AddFavorite: %v", err)
		}
	}
	favorites := a.ListFavorites(reader)
	if len(favorites) != 1 {
		t.Fatalf("favorites = %d, want 1", len(favorites))
	}
	if favorites[0].Book.Slug != "dom-casmurro" {
		t.Fatalf("favorite book = %q", favorites[0].Book.Slug)
	}

	if err := a.RemoveFavorite(reader, book.ID); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	if len(a.ListFavorites(reader)) != 0 {
		t.Fatal("favorite survived removal")
	}

	// Removing again is a no-op.
	if err := a.RemoveFavorite(reader, book.ID); err != nil {
		t.Fatalf("RemoveFavorite again: %v", err)
	}
}

func TestAddFavoriteRequiresExistingBook(t *testing.T) {
	a, mem := newTestApp(t)
	reader := mustUser(t, mem, "reader-1")
	if err := a.AddFavorite(reader, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// --- downloads ---

func TestDownloadQuota(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")
	req := DownloadRequest{BookID: book.ID, Format: "epub", IPAddress: "10.0.0.1", UserAgent: "test"}

	for i := 0; i < 10; i++ {
		d, err := a.CreateDownload(context.Background(), reader, req)
		if err != nil {
			t.Fatalf("download %d: %v", i+1, err)
		}
		if d.PresignedURL == "" {
			t.Fatal("download missing URL")
		}
		if until := time.Until(d.ExpiresAt); until <= 0 || until > 5*time.Minute {
			t.Fatalf("expiry %v out of the 5-minute window", until)
		}
	}

	_, err := a.CreateDownload(context.Background(), reader, req)
	if !errors.Is(err, ErrDownloadLimit) {
		t.Fatalf("11th download err = %v, want ErrDownloadLimit", err)
	}
	if !strings.Contains(err.Error(), "Download limit exceeded (10 per day)") {
		t.Fatalf("limit message = %q", err.Error())
	}

	// The same user can still download other books.
	other := mustBook(t, a, "iracema")
	if _, err := a.CreateDownload(context.Background(), reader, DownloadRequest{BookID: other.ID, Format: "epub"}); err != nil {
		t.Fatalf("other book download: %v", err)
	}

	// And other users still have their own quota on this book.
	second := mustUser(t, mem, "reader-2")
	if _, err := a.CreateDownload(context.Background(), second, req); err != nil {
		t.Fatalf("other user download: %v", err)
	}
}

func TestDownloadQuotaReporting(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")

	quota, err := a.GetDownloadQuota(reader, book.ID)
	if err != nil {
		t.Fatalf("GetDownloadQuota: %v", err)
	}
	if quota.Used != 0 || quota.Remaining != 10 || quota.Limit != 10 {
		t.Fatalf("fresh quota = %+v", quota)
	}

	for i := 0; i < 3; i++ {
		if _, err := a.CreateDownload(context.Background(), reader, DownloadRequest{BookID: book.ID, Format: "epub"}); err != nil {
			t.Fatalf("CreateDownload: %v", err)
		}
	}
	quota, err = a.GetDownloadQuota(reader, book.ID)
	if err != nil {
		t.Fatalf("GetDownloadQuota: %v", err)
	}
	if quota.Used != 3 || quota.Remaining != 7 {
		t.Fatalf("quota after 3 downloads = %+v", quota)
	}
}

func TestDownloadRejectsUnknownFormat(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")
	if _, err := a.CreateDownload(context.Background(), reader, DownloadRequest{BookID: book.ID, Format: "mobi"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestDownloadIncrementsBookCounter(t *testing.T) {
	a, mem := newTestApp(t)
	book := mustBook(t, a, "dom-casmurro")
	reader := mustUser(t, mem, "reader-1")
	if _, err := a.CreateDownload(context.Background(), reader, DownloadRequest{BookID: book.ID, Format: "epub"}); err != nil {
		t.Fatalf("CreateDownload: %v", err)
	}
	got, _, _ := mem.GetBookByID(book.ID)
	if got.Downloads != 1 {
		t.Fatalf("downloads = %d, want 1", got.Downloads)
	}
}

// --- newsletter ---

func TestSubscribeQueuesWelcomeAndReactivates(t *testing.T) {
	mem := store.NewMemoryStore()
	sessions, _ := store.NewJWTSessionStore("test-secret-0123456789", time.Hour)
	q := &recordingQueue{}
	a := New(Config{Store: mem, Sessions: sessions, Newsletter: q})

	sub, err := a.Subscribe(context.Background(), "Ana@Example.com", "pt-BR")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.Email != "ana@example.com" {
		t.Fatalf("email = %q, want lowercased", sub.Email)
	}
	if !sub.IsActive {
		t.Fatal("subscription not active")
	}
	if len(q.jobs) != 1 || q.jobs[0].Kind != queue.JobWelcome {
		t.Fatalf("queued jobs = %+v, want one welcome", q.jobs)
	}

	if err := a.Unsubscribe("ana@example.com"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if subs := a.Subscribers(""); len(subs) != 0 {
		t.Fatalf("subscribers after unsubscribe = %d, want 0", len(subs))
	}

	sub, err = a.Subscribe(context.Background(), "ana@example.com", "")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if !sub.IsActive || sub.UnsubscribedAt != nil {
		t.Fatalf("resubscription not reactivated: %+v", sub)
	}
	if subs := a.Subscribers(""); len(subs) != 1 {
		t.Fatalf("subscribers after resubscribe = %d, want 1", len(subs))
	}
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	a, _ := newTestApp(t)
	for _, email := range []string{"", "not-an-email", "@missing.local"} {
		if _, err := a.Subscribe(context.Background(), email, ""); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("email %q: err = %v, want ErrInvalidInput", email, err)
		}
	}
}
