package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"botforge/internal/db"
	"botforge/internal/model"
	"botforge/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePostQueries struct {
	listFn   func(ctx context.Context) ([]model.Post, error)
	createFn func(ctx context.Context, p db.CreatePostParams) (model.Post, error)
	updateFn func(ctx context.Context, id string, p db.UpdatePostParams) (model.Post, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakePostQueries) ListPosts(ctx context.Context) ([]model.Post, error) {
	return f.listFn(ctx)
}

func (f *fakePostQueries) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	return model.Post{}, errors.New("not implemented")
}

func (f *fakePostQueries) CreatePost(ctx context.Context, p db.CreatePostParams) (model.Post, error) {
	return f.createFn(ctx, p)
}

func (f *fakePostQueries) UpdatePost(ctx context.Context, id string, p db.UpdatePostParams) (model.Post, error) {
	return f.updateFn(ctx, id, p)
}

func (f *fakePostQueries) DeletePost(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

func postAt(id string, published time.Time) model.Post {
	return model.Post{ID: id, Slug: id, PublishedAt: published}
}

func newPostStore(q PostQueries, center *notify.Center) *PostStore {
	return NewPostStore(q, center, NewBusyTracker(), zap.NewNop())
}

func errorNotifications(center *notify.Center) []notify.Notification {
	var out []notify.Notification
	for _, n := range center.List() {
		if n.Severity == model.SeverityError {
			out = append(out, n)
		}
	}
	return out
}

func TestPostStore_FetchFailureKeepsCache(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	seeded := []model.Post{postAt("a", base.Add(2 * time.Hour)), postAt("b", base)}

	q := &fakePostQueries{
		listFn: func(ctx context.Context) ([]model.Post, error) { return seeded, nil },
	}
	center := notify.NewCenter()
	s := newPostStore(q, center)

	require.NoError(t, s.Fetch(context.Background()))
	require.Equal(t, seeded, s.List())

	q.listFn = func(ctx context.Context) ([]model.Post, error) {
		return nil, errors.New("connection refused")
	}

	err := s.Fetch(context.Background())
	require.Error(t, err)

	assert.Equal(t, seeded, s.List(), "failed fetch must not disturb the cache")
	assert.Len(t, errorNotifications(center), 1)
}

func TestPostStore_CreateFailureLeavesCacheUntouched(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	seeded := []model.Post{postAt("a", base)}

	q := &fakePostQueries{
		listFn: func(ctx context.Context) ([]model.Post, error) { return seeded, nil },
		createFn: func(ctx context.Context, p db.CreatePostParams) (model.Post, error) {
			return model.Post{}, errors.New("duplicate key value violates unique constraint")
		},
	}
	center := notify.NewCenter()
	s := newPostStore(q, center)
	require.NoError(t, s.Fetch(context.Background()))

	_, err := s.Create(context.Background(), CreatePostInput{Title: "Dup", Slug: "a"})
	require.Error(t, err)

	assert.Equal(t, seeded, s.List())
	assert.Len(t, errorNotifications(center), 1, "exactly one error notification per failed save")
}

func TestPostStore_CreateInsertsAtSortPosition(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	seeded := []model.Post{
		postAt("newest", base.Add(48 * time.Hour)),
		postAt("oldest", base),
	}

	q := &fakePostQueries{
		listFn: func(ctx context.Context) ([]model.Post, error) { return seeded, nil },
		createFn: func(ctx context.Context, p db.CreatePostParams) (model.Post, error) {
			return model.Post{ID: p.ID, Slug: p.Slug, PublishedAt: base.Add(24 * time.Hour)}, nil
		},
	}
	s := newPostStore(q, notify.NewCenter())
	require.NoError(t, s.Fetch(context.Background()))

	created, err := s.Create(context.Background(), CreatePostInput{Slug: "middle"})
	require.NoError(t, err)

	got := s.List()
	require.Len(t, got, 3)
	assert.Equal(t, "newest", got[0].Slug)
	assert.Equal(t, created.Slug, got[1].Slug, "new post lands between its neighbours, not at the end")
	assert.Equal(t, "oldest", got[2].Slug)
}

func TestPostStore_CreateEstimatesReadTime(t *testing.T) {
	var captured db.CreatePostParams
	q := &fakePostQueries{
		createFn: func(ctx context.Context, p db.CreatePostParams) (model.Post, error) {
			captured = p
			return model.Post{ID: p.ID}, nil
		},
	}
	s := newPostStore(q, notify.NewCenter())

	content := ""
	for i := 0; i < 250; i++ {
		content += "word "
	}
	_, err := s.Create(context.Background(), CreatePostInput{Slug: "long", Content: content})
	require.NoError(t, err)
	assert.Equal(t, 2, captured.ReadTime)

	// An explicit read time wins over the estimate
	_, err = s.Create(context.Background(), CreatePostInput{Slug: "set", Content: content, ReadTime: 9})
	require.NoError(t, err)
	assert.Equal(t, 9, captured.ReadTime)
}

func TestPostStore_UpdateUnknownIDLeavesCacheAlone(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	seeded := []model.Post{postAt("a", base)}

	q := &fakePostQueries{
		listFn: func(ctx context.Context) ([]model.Post, error) { return seeded, nil },
		updateFn: func(ctx context.Context, id string, p db.UpdatePostParams) (model.Post, error) {
			return postAt(id, base), nil
		},
	}
	s := newPostStore(q, notify.NewCenter())
	require.NoError(t, s.Fetch(context.Background()))

	_, err := s.Update(context.Background(), "not-cached", db.UpdatePostParams{})
	require.NoError(t, err)
	assert.Equal(t, seeded, s.List())
}

func TestPostStore_DeleteRemovesFromCache(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	seeded := []model.Post{postAt("a", base.Add(time.Hour)), postAt("b", base)}

	q := &fakePostQueries{
		listFn:   func(ctx context.Context) ([]model.Post, error) { return seeded, nil },
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	s := newPostStore(q, notify.NewCenter())
	require.NoError(t, s.Fetch(context.Background()))

	require.NoError(t, s.Delete(context.Background(), "a"))

	got := s.List()
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

type fakeCaseQueries struct {
	listFn   func(ctx context.Context) ([]model.Case, error)
	createFn func(ctx context.Context, c db.CreateCaseParams) (model.Case, error)
}

func (f *fakeCaseQueries) ListCases(ctx context.Context) ([]model.Case, error) {
	return f.listFn(ctx)
}

func (f *fakeCaseQueries) GetCaseBySlug(ctx context.Context, slug string) (model.Case, error) {
	return model.Case{}, errors.New("not implemented")
}

func (f *fakeCaseQueries) CreateCase(ctx context.Context, c db.CreateCaseParams) (model.Case, error) {
	return f.createFn(ctx, c)
}

func (f *fakeCaseQueries) UpdateCase(ctx context.Context, id string, c db.UpdateCaseParams) (model.Case, error) {
	return model.Case{}, errors.New("not implemented")
}

func (f *fakeCaseQueries) DeleteCase(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func TestCaseStore_CreateInsertsAtSortPosition(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	seeded := []model.Case{
		{ID: "newest", PublishedAt: base.Add(48 * time.Hour)},
		{ID: "oldest", PublishedAt: base},
	}

	q := &fakeCaseQueries{
		listFn: func(ctx context.Context) ([]model.Case, error) { return seeded, nil },
		createFn: func(ctx context.Context, c db.CreateCaseParams) (model.Case, error) {
			return model.Case{ID: c.ID, PublishedAt: base.Add(24 * time.Hour)}, nil
		},
	}
	center := notify.NewCenter()
	s := NewCaseStore(q, center, NewBusyTracker(), zap.NewNop())
	require.NoError(t, s.Fetch(context.Background()))

	created, err := s.Create(context.Background(), CreateCaseInput{Title: "Middle"})
	require.NoError(t, err)

	got := s.List()
	require.Len(t, got, 3)
	assert.Equal(t, created.ID, got[1].ID)
}

func TestCaseStore_FetchFailureKeepsCacheAndNotifiesOnce(t *testing.T) {
	seeded := []model.Case{{ID: "a"}}
	q := &fakeCaseQueries{
		listFn: func(ctx context.Context) ([]model.Case, error) { return seeded, nil },
	}
	center := notify.NewCenter()
	s := NewCaseStore(q, center, NewBusyTracker(), zap.NewNop())
	require.NoError(t, s.Fetch(context.Background()))

	q.listFn = func(ctx context.Context) ([]model.Case, error) {
		return nil, errors.New("timeout")
	}
	require.Error(t, s.Fetch(context.Background()))

	assert.Equal(t, seeded, s.List())
	assert.Len(t, errorNotifications(center), 1)
}
