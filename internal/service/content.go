package service

import (
	"context"
	"sync"

	"botforge/internal/db"
	"botforge/internal/markdown"
	"botforge/internal/model"
	"botforge/internal/notify"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Busy keys used by the content stores
const (
	BusyPostsLoad = "posts.load"
	BusyPostsSave = "posts.save"
	BusyCasesLoad = "cases.load"
	BusyCasesSave = "cases.save"
)

// PostQueries is the slice of the query layer the post store needs
type PostQueries interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (model.Post, error)
	CreatePost(ctx context.Context, p db.CreatePostParams) (model.Post, error)
	UpdatePost(ctx context.Context, id string, p db.UpdatePostParams) (model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// PostStore is the cached write-through store for blog posts. Reads
// serve from the in-memory cache; every mutation goes to the database
// first and the cache is only touched once the database has agreed.
type PostStore struct {
	mu      sync.RWMutex
	cache   []model.Post
	queries PostQueries
	notify  *notify.Center
	busy    *BusyTracker
	log     *zap.Logger
}

func NewPostStore(queries PostQueries, center *notify.Center, busy *BusyTracker, log *zap.Logger) *PostStore {
	return &PostStore{
		queries: queries,
		notify:  center,
		busy:    busy,
		log:     log,
	}
}

// List returns the cached posts, newest publish date first
func (s *PostStore) List() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Post, len(s.cache))
	copy(out, s.cache)
	return out
}

// Fetch reloads the cache from the database. On failure the previous
// cache contents are kept as-is and a single error notification is
// emitted.
func (s *PostStore) Fetch(ctx context.Context) error {
	s.busy.Begin(BusyPostsLoad)
	defer s.busy.End(BusyPostsLoad)

	posts, err := s.queries.ListPosts(ctx)
	if err != nil {
		s.log.Error("Failed to fetch posts", zap.Error(err))
		s.notify.Error("Failed to load posts", err.Error())
		return err
	}

	s.mu.Lock()
	s.cache = posts
	s.mu.Unlock()
	return nil
}

// FetchBySlug reads one post directly from the database
func (s *PostStore) FetchBySlug(ctx context.Context, slug string) (model.Post, error) {
	return s.queries.GetPostBySlug(ctx, slug)
}

// CreatePostInput carries the editable fields of a new post
type CreatePostInput struct {
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Excerpt   string  `json:"excerpt"`
	Content   string  `json:"content"`
	CoverURL  string  `json:"coverUrl"`
	Category  string  `json:"category"`
	ReadTime  int     `json:"readTime"`
	CreatedBy *string `json:"-"`
}

// Create inserts a post and places it in the cache at its sort
// position rather than re-fetching the whole list.
func (s *PostStore) Create(ctx context.Context, in CreatePostInput) (model.Post, error) {
	s.busy.Begin(BusyPostsSave)
	defer s.busy.End(BusyPostsSave)

	if in.ReadTime <= 0 {
		in.ReadTime = markdown.EstimateReadTime(in.Content)
	}

	post, err := s.queries.CreatePost(ctx, db.CreatePostParams{
		ID:        ulid.Make().String(),
		Title:     in.Title,
		Slug:      in.Slug,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		CoverURL:  in.CoverURL,
		Category:  in.Category,
		ReadTime:  in.ReadTime,
		CreatedBy: in.CreatedBy,
	})
	if err != nil {
		s.log.Error("Failed to create post", zap.String("slug", in.Slug), zap.Error(err))
		s.notify.Error("Failed to create post", err.Error())
		return model.Post{}, err
	}

	s.mu.Lock()
	s.cache = insertPostSorted(s.cache, post)
	s.mu.Unlock()

	s.notify.Success("Post created")
	return post, nil
}

// Update writes a partial update and replaces the cached entry by id.
// An id absent from the cache is dropped silently; the next Fetch will
// pick it up.
func (s *PostStore) Update(ctx context.Context, id string, p db.UpdatePostParams) (model.Post, error) {
	s.busy.Begin(BusyPostsSave)
	defer s.busy.End(BusyPostsSave)

	post, err := s.queries.UpdatePost(ctx, id, p)
	if err != nil {
		s.log.Error("Failed to update post", zap.String("id", id), zap.Error(err))
		s.notify.Error("Failed to update post", err.Error())
		return model.Post{}, err
	}

	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache[i] = post
			break
		}
	}
	s.mu.Unlock()

	s.notify.Success("Post updated")
	return post, nil
}

// Delete removes a post from the database and then from the cache
func (s *PostStore) Delete(ctx context.Context, id string) error {
	s.busy.Begin(BusyPostsSave)
	defer s.busy.End(BusyPostsSave)

	if err := s.queries.DeletePost(ctx, id); err != nil {
		s.log.Error("Failed to delete post", zap.String("id", id), zap.Error(err))
		s.notify.Error("Failed to delete post", err.Error())
		return err
	}

	s.mu.Lock()
	kept := s.cache[:0]
	for _, p := range s.cache {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.cache = kept
	s.mu.Unlock()

	s.notify.Success("Post deleted")
	return nil
}

// insertPostSorted places p so the published_at DESC order holds
func insertPostSorted(posts []model.Post, p model.Post) []model.Post {
	at := len(posts)
	for i := range posts {
		if posts[i].PublishedAt.Before(p.PublishedAt) {
			at = i
			break
		}
	}
	posts = append(posts, model.Post{})
	copy(posts[at+1:], posts[at:])
	posts[at] = p
	return posts
}

// CaseQueries is the slice of the query layer the case store needs
type CaseQueries interface {
	ListCases(ctx context.Context) ([]model.Case, error)
	GetCaseBySlug(ctx context.Context, slug string) (model.Case, error)
	CreateCase(ctx context.Context, c db.CreateCaseParams) (model.Case, error)
	UpdateCase(ctx context.Context, id string, c db.UpdateCaseParams) (model.Case, error)
	DeleteCase(ctx context.Context, id string) error
}

// CaseStore mirrors PostStore for case studies
type CaseStore struct {
	mu      sync.RWMutex
	cache   []model.Case
	queries CaseQueries
	notify  *notify.Center
	busy    *BusyTracker
	log     *zap.Logger
}

func NewCaseStore(queries CaseQueries, center *notify.Center, busy *BusyTracker, log *zap.Logger) *CaseStore {
	return &CaseStore{
		queries: queries,
		notify:  center,
		busy:    busy,
		log:     log,
	}
}

func (s *CaseStore) List() []model.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Case, len(s.cache))
	copy(out, s.cache)
	return out
}

func (s *CaseStore) Fetch(ctx context.Context) error {
	s.busy.Begin(BusyCasesLoad)
	defer s.busy.End(BusyCasesLoad)

	cases, err := s.queries.ListCases(ctx)
	if err != nil {
		s.log.Error("Failed to fetch cases", zap.Error(err))
		s.notify.Error("Failed to load cases", err.Error())
		return err
	}

	s.mu.Lock()
	s.cache = cases
	s.mu.Unlock()
	return nil
}

func (s *CaseStore) FetchBySlug(ctx context.Context, slug string) (model.Case, error) {
	return s.queries.GetCaseBySlug(ctx, slug)
}

// CreateCaseInput carries the editable fields of a new case study
type CreateCaseInput struct {
	Title      string             `json:"title"`
	Slug       string             `json:"slug"`
	Excerpt    string             `json:"excerpt"`
	HeroImage  string             `json:"heroImage"`
	OwnerName  string             `json:"ownerName"`
	OwnerPhoto string             `json:"ownerPhoto"`
	Metrics    []model.CaseMetric `json:"metrics"`
	ContentMD  string             `json:"contentMd"`
}

func (s *CaseStore) Create(ctx context.Context, in CreateCaseInput) (model.Case, error) {
	s.busy.Begin(BusyCasesSave)
	defer s.busy.End(BusyCasesSave)

	c, err := s.queries.CreateCase(ctx, db.CreateCaseParams{
		ID:         ulid.Make().String(),
		Title:      in.Title,
		Slug:       in.Slug,
		Excerpt:    in.Excerpt,
		HeroImage:  in.HeroImage,
		OwnerName:  in.OwnerName,
		OwnerPhoto: in.OwnerPhoto,
		Metrics:    in.Metrics,
		ContentMD:  in.ContentMD,
	})
	if err != nil {
		s.log.Error("Failed to create case", zap.String("slug", in.Slug), zap.Error(err))
		s.notify.Error("Failed to create case", err.Error())
		return model.Case{}, err
	}

	s.mu.Lock()
	s.cache = insertCaseSorted(s.cache, c)
	s.mu.Unlock()

	s.notify.Success("Case created")
	return c, nil
}

func (s *CaseStore) Update(ctx context.Context, id string, p db.UpdateCaseParams) (model.Case, error) {
	s.busy.Begin(BusyCasesSave)
	defer s.busy.End(BusyCasesSave)

	c, err := s.queries.UpdateCase(ctx, id, p)
	if err != nil {
		s.log.Error("Failed to update case", zap.String("id", id), zap.Error(err))
		s.notify.Error("Failed to update case", err.Error())
		return model.Case{}, err
	}

	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache[i] = c
			break
		}
	}
	s.mu.Unlock()

	s.notify.Success("Case updated")
	return c, nil
}

func (s *CaseStore) Delete(ctx context.Context, id string) error {
	s.busy.Begin(BusyCasesSave)
	defer s.busy.End(BusyCasesSave)

	if err := s.queries.DeleteCase(ctx, id); err != nil {
		s.log.Error("Failed to delete case", zap.String("id", id), zap.Error(err))
		s.notify.Error("Failed to delete case", err.Error())
		return err
	}

	s.mu.Lock()
	kept := s.cache[:0]
	for _, c := range s.cache {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.cache = kept
	s.mu.Unlock()

	s.notify.Success("Case deleted")
	return nil
}

func insertCaseSorted(cases []model.Case, c model.Case) []model.Case {
	at := len(cases)
	for i := range cases {
		if cases[i].PublishedAt.Before(c.PublishedAt) {
			at = i
			break
		}
	}
	cases = append(cases, model.Case{})
	copy(cases[at+1:], cases[at:])
	cases[at] = c
	return cases
}
