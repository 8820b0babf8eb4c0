package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"abbleitura/pkg/domain"
)

// MemoryStore is an in-memory Store used by tests and local runs without
// Postgres. It mirrors GormStore semantics, including the transactional
// download quota check.
type MemoryStore struct {
	mu sync.RWMutex

	users         map[int64]domain.User
	books         map[int64]domain.Book
	posts         map[int64]domain.Post
	comments      map[int64]domain.Comment
	downloads     map[int64]domain.Download
	favorites     map[int64]domain.Favorite
	translations  map[int64]domain.Translation
	subscriptions map[int64]domain.NewsletterSubscription

	nextUserID         int64
	nextBookID         int64
	nextPostID         int64
	nextCommentID      int64
	nextDownloadID     int64
	nextFavoriteID     int64
	nextTranslationID  int64
	nextSubscriptionID int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[int64]domain.User),
		books:         make(map[int64]domain.Book),
		posts:         make(map[int64]domain.Post),
		comments:      make(map[int64]domain.Comment),
		downloads:     make(map[int64]domain.Download),
		favorites:     make(map[int64]domain.Favorite),
		translations:  make(map[int64]domain.Translation),
		subscriptions: make(map[int64]domain.NewsletterSubscription),
	}
}

func (s *MemoryStore) UpsertUser(u domain.User) (domain.User, error) {
	if strings.TrimSpace(u.OpenID) == "" {
		return domain.User{}, errors.New("openId required for upsert")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range s.users {
		if existing.OpenID != u.OpenID {
			continue
		}
		if u.Name != "" {
			existing.Name = u.Name
		}
		if u.Email != "" {
			existing.Email = u.Email
		}
		if u.LoginMethod != "" {
			existing.LoginMethod = u.LoginMethod
		}
		if u.Role == domain.RoleAdmin {
			existing.Role = domain.RoleAdmin
		}
		existing.LastSignedIn = now
		existing.UpdatedAt = now
		s.users[id] = existing
		return existing, nil
	}
	s.nextUserID++
	u.ID = s.nextUserID
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	u.LastSignedIn = now
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) ListBooks(filter BookFilter) ([]domain.Book, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultBookPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var books []domain.Book
	for _, b := range s.books {
		if !b.IsPublished {
			continue
		}
		if filter.Genre != "" && b.Genre != filter.Genre {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(b.Title), needle) &&
				!strings.Contains(strings.ToLower(b.Author), needle) {
				continue
			}
		}
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].ID > books[j].ID
		}
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
	if offset >= len(books) {
		return []domain.Book{}, nil
	}
	books = books[offset:]
	if len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func (s *MemoryStore) GetBookBySlug(slug string) (domain.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.books {
		if b.Slug == slug {
			return b, true, nil
		}
	}
	return domain.Book{}, false, nil
}

func (s *MemoryStore) GetBookByID(id int64) (domain.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	return b, ok, nil
}

func (s *MemoryStore) CreateBook(b domain.Book) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.books {
		if existing.Slug == b.Slug {
			return domain.Book{}, errors.New("duplicate key: slug")
		}
	}
	s.nextBookID++
	b.ID = s.nextBookID
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.books[b.ID] = b
	return b, nil
}

func (s *MemoryStore) UpdateBook(id int64, update BookUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil
	}
	if update.Title != nil {
		b.Title = *update.Title
	}
	if update.Author != nil {
		b.Author = *update.Author
	}
	if update.Description != nil {
		b.Description = *update.Description
	}
	if update.Synopsis != nil {
		b.Synopsis = *update.Synopsis
	}
	if update.CoverURL != nil {
		b.CoverURL = *update.CoverURL
	}
	if update.ISBN != nil {
		b.ISBN = *update.ISBN
	}
	if update.Genre != nil {
		b.Genre = *update.Genre
	}
	if update.Year != nil {
		b.Year = *update.Year
	}
	if update.Pages != nil {
		b.Pages = *update.Pages
	}
	if update.Formats != nil {
		b.Formats = *update.Formats
	}
	if update.Languages != nil {
		b.Languages = *update.Languages
	}
	if update.IsPublished != nil {
		b.IsPublished = *update.IsPublished
	}
	b.UpdatedAt = time.Now().UTC()
	s.books[id] = b
	return nil
}

func (s *MemoryStore) DeleteBook(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
	for cid, c := range s.comments {
		if c.BookID != nil && *c.BookID == id {
			delete(s.comments, cid)
		}
	}
	for fid, f := range s.favorites {
		if f.BookID == id {
			delete(s.favorites, fid)
		}
	}
	return nil
}

func (s *MemoryStore) IncrementBookLikes(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil
	}
	b.Likes++
	s.books[id] = b
	return nil
}

func (s *MemoryStore) ListPosts(limit, offset int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = defaultPostPageSize
	}
	if offset < 0 {
		offset = 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var posts []domain.Post
	for _, p := range s.posts {
		if p.IsPublished {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		ti, tj := posts[i].PublishedAt, posts[j].PublishedAt
		switch {
		case ti == nil && tj == nil:
			return posts[i].ID > posts[j].ID
		case ti == nil:
			return false
		case tj == nil:
			return true
		case ti.Equal(*tj):
			return posts[i].ID > posts[j].ID
		default:
			return ti.After(*tj)
		}
	})
	if offset >= len(posts) {
		return []domain.Post{}, nil
	}
	posts = posts[offset:]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *MemoryStore) GetPostBySlug(slug string) (domain.Post, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.Slug == slug {
			return p, true, nil
		}
	}
	return domain.Post{}, false, nil
}

func (s *MemoryStore) GetPostByID(id int64) (domain.Post, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	return p, ok, nil
}

func (s *MemoryStore) CreatePost(p domain.Post) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.posts {
		if existing.Slug == p.Slug {
			return domain.Post{}, errors.New("duplicate key: slug")
		}
	}
	s.nextPostID++
	p.ID = s.nextPostID
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.posts[p.ID] = p
	return p, nil
}

func (s *MemoryStore) UpdatePost(id int64, update PostUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	if update.Excerpt != nil {
		p.Excerpt = *update.Excerpt
	}
	if update.Tags != nil {
		p.Tags = *update.Tags
	}
	if update.IsPublished != nil {
		p.IsPublished = *update.IsPublished
	}
	if update.PublishedAt != nil {
		t := update.PublishedAt.UTC()
		p.PublishedAt = &t
	}
	p.UpdatedAt = time.Now().UTC()
	s.posts[id] = p
	return nil
}

func (s *MemoryStore) DeletePost(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID != nil && *c.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (s *MemoryStore) IncrementPostViews(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil
	}
	p.Views++
	s.posts[id] = p
	return nil
}

func (s *MemoryStore) ListCommentsByBook(bookID int64, status domain.CommentStatus) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var comments []domain.Comment
	for _, c := range s.comments {
		if c.BookID != nil && *c.BookID == bookID && c.Status == status {
			comments = append(comments, c)
		}
	}
	sortCommentsNewestFirst(comments)
	return comments, nil
}

func (s *MemoryStore) ListCommentsByStatus(status domain.CommentStatus) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var comments []domain.Comment
	for _, c := range s.comments {
		if c.Status == status {
			comments = append(comments, c)
		}
	}
	sortCommentsNewestFirst(comments)
	return comments, nil
}

func (s *MemoryStore) GetCommentByID(id int64) (domain.Comment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	return c, ok, nil
}

func (s *MemoryStore) CreateComment(c domain.Comment) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCommentID++
	c.ID = s.nextCommentID
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.comments[c.ID] = c
	return c, nil
}

func (s *MemoryStore) SetCommentStatus(id int64, status domain.CommentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	s.comments[id] = c
	return nil
}

func (s *MemoryStore) SetCommentTranslation(id int64, language, text, detectedLanguage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil
	}
	if c.TranslatedContent == nil {
		c.TranslatedContent = make(map[string]string)
	}
	c.TranslatedContent[language] = text
	if detectedLanguage != "" {
		c.DetectedLanguage = detectedLanguage
	}
	c.UpdatedAt = time.Now().UTC()
	s.comments[id] = c
	return nil
}

func (s *MemoryStore) AddFavorite(userID, bookID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.favorites {
		if f.UserID == userID && f.BookID == bookID {
			return nil
		}
	}
	s.nextFavoriteID++
	s.favorites[s.nextFavoriteID] = domain.Favorite{
		ID:        s.nextFavoriteID,
		UserID:    userID,
		BookID:    bookID,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) RemoveFavorite(userID, bookID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.favorites {
		if f.UserID == userID && f.BookID == bookID {
			delete(s.favorites, id)
		}
	}
	return nil
}

func (s *MemoryStore) ListFavorites(userID int64) ([]domain.Favorite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var favorites []domain.Favorite
	for _, f := range s.favorites {
		if f.UserID == userID {
			favorites = append(favorites, f)
		}
	}
	sort.Slice(favorites, func(i, j int) bool {
		if favorites[i].CreatedAt.Equal(favorites[j].CreatedAt) {
			return favorites[i].ID > favorites[j].ID
		}
		return favorites[i].CreatedAt.After(favorites[j].CreatedAt)
	})
	return favorites, nil
}

func (s *MemoryStore) CreateDownloadWithQuota(d domain.Download, since time.Time, limit int) (domain.Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, existing := range s.downloads {
		if existing.UserID == d.UserID && existing.BookID == d.BookID &&
			!existing.CreatedAt.Before(since) {
			count++
		}
	}
	if limit > 0 && count >= limit {
		return domain.Download{}, ErrQuotaExceeded
	}
	s.nextDownloadID++
	d.ID = s.nextDownloadID
	d.CreatedAt = time.Now().UTC()
	s.downloads[d.ID] = d
	if b, ok := s.books[d.BookID]; ok {
		b.Downloads++
		s.books[d.BookID] = b
	}
	return d, nil
}

func (s *MemoryStore) CountDownloads(userID, bookID int64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, d := range s.downloads {
		if d.UserID == userID && d.BookID == bookID && !d.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) GetTranslation(sourceLang, targetLang, sourceText string) (domain.Translation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.translations {
		if t.SourceLanguage == sourceLang && t.TargetLanguage == targetLang && t.SourceText == sourceText {
			return t, true, nil
		}
	}
	return domain.Translation{}, false, nil
}

func (s *MemoryStore) SaveTranslation(t domain.Translation) (domain.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTranslationID++
	t.ID = s.nextTranslationID
	t.CreatedAt = time.Now().UTC()
	s.translations[t.ID] = t
	return t, nil
}

func (s *MemoryStore) UpsertSubscription(email, language string) (domain.NewsletterSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subscriptions {
		if sub.Email != email {
			continue
		}
		sub.IsActive = true
		sub.UnsubscribedAt = nil
		s.subscriptions[id] = sub
		return sub, nil
	}
	if language == "" {
		language = "pt-BR"
	}
	s.nextSubscriptionID++
	sub := domain.NewsletterSubscription{
		ID:        s.nextSubscriptionID,
		Email:     email,
		Language:  language,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	s.subscriptions[sub.ID] = sub
	return sub, nil
}

func (s *MemoryStore) DeactivateSubscription(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, sub := range s.subscriptions {
		if sub.Email == email {
			sub.IsActive = false
			sub.UnsubscribedAt = &now
			s.subscriptions[id] = sub
		}
	}
	return nil
}

func (s *MemoryStore) ListSubscribers(language string) ([]domain.NewsletterSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []domain.NewsletterSubscription
	for _, sub := range s.subscriptions {
		if !sub.IsActive {
			continue
		}
		if language != "" && sub.Language != language {
			continue
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	return subs, nil
}

func sortCommentsNewestFirst(comments []domain.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID > comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
}
