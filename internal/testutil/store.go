// Package testutil holds in-memory stand-ins for the postgres repositories.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

// PostStore is an in-memory repository.PostRepository with the same
// guarded-write semantics as the SQL implementation.
type PostStore struct {
	mu     sync.Mutex
	posts  map[int64]*models.Post
	Now    func() time.Time
	Claims int
	Writes int
}

func NewPostStore(posts ...*models.Post) *PostStore {
	s := &PostStore{posts: make(map[int64]*models.Post), Now: time.Now}
	for _, p := range posts {
		s.Put(p)
	}
	return s
}

func (s *PostStore) Put(p *models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.posts[p.ID] = &cp
}

// Get returns a copy of the stored post.
func (s *PostStore) Get(id int64) *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (s *PostStore) GetByID(_ context.Context, id int64) (*models.Post, error) {
	return s.Get(id), nil
}

func (s *PostStore) ListDue(_ context.Context, now time.Time) ([]*models.Post, error) {
	return s.filter(func(p *models.Post) bool {
		return p.Status == models.PostStatusScheduled && !p.ScheduledTime.After(now)
	}), nil
}

func (s *PostStore) ListRetryable(_ context.Context, maxAttempts int) ([]*models.Post, error) {
	return s.filter(func(p *models.Post) bool {
		return p.Status == models.PostStatusFailed && p.AttemptCount < maxAttempts
	}), nil
}

func (s *PostStore) ListStaleClaims(_ context.Context, claimedBefore time.Time) ([]*models.Post, error) {
	return s.filter(func(p *models.Post) bool {
		return p.Status == models.PostStatusPosting && p.UpdatedAt.Before(claimedBefore)
	}), nil
}

func (s *PostStore) filter(keep func(*models.Post) bool) []*models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Post
	for _, p := range s.posts {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out
}

func (s *PostStore) Claim(_ context.Context, postID int64, from []models.PostStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if p.Status == status {
			p.Status = models.PostStatusPosting
			p.UpdatedAt = s.Now()
			s.Claims++
			return true, nil
		}
	}
	return false, nil
}

func (s *PostStore) MarkPosted(_ context.Context, postID int64, platformPostID, platformURL string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok || p.Status != models.PostStatusPosting {
		return nil
	}
	p.Status = models.PostStatusPosted
	p.PlatformPostID = &platformPostID
	p.PlatformURL = &platformURL
	p.PublishedAt = &publishedAt
	p.ErrorMessage = nil
	p.UpdatedAt = s.Now()
	s.Writes++
	return nil
}

func (s *PostStore) MarkFailed(_ context.Context, postID int64, attemptCount int, errorMessage string, attemptAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok || p.Status != models.PostStatusPosting {
		return nil
	}
	p.Status = models.PostStatusFailed
	if attemptCount > p.AttemptCount {
		p.AttemptCount = attemptCount
	}
	p.ErrorMessage = &errorMessage
	p.LastAttemptAt = &attemptAt
	p.UpdatedAt = s.Now()
	s.Writes++
	return nil
}

type AccountStore map[int64]*models.SocialAccount

func (s AccountStore) GetByID(_ context.Context, id int64) (*models.SocialAccount, error) {
	acc, ok := s[id]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

type AssetStore map[int64]*models.MediaAsset

func (s AssetStore) GetByID(_ context.Context, id int64) (*models.MediaAsset, error) {
	return s[id], nil
}

func (s AssetStore) ListByIDs(_ context.Context, ids []int64) ([]*models.MediaAsset, error) {
	var out []*models.MediaAsset
	for _, id := range ids {
		if a, ok := s[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

type HistoryStore struct {
	mu      sync.Mutex
	Entries []models.PostingHistory
}

func (s *HistoryStore) Create(_ context.Context, ph *models.PostingHistory) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, *ph)
	return int64(len(s.Entries)), nil
}

func (s *HistoryStore) ListByPostID(_ context.Context, postID int64) ([]*models.PostingHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.PostingHistory
	for i := range s.Entries {
		if s.Entries[i].PostID == postID {
			e := s.Entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}
