package db

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
)

func newPost(t *testing.T, s *MemoryStore) *models.Post {
	t.Helper()
	post := &models.Post{
		Name:     "harbour",
		Category: models.CategoryTravel,
		Author:   "Ada",
		Uploader: "ada@example.com",
		URL:      "https://cdn.example.com/harbour.jpg",
	}
	require.NoError(t, s.CreatePost(context.Background(), post))
	return post
}

// interfere bumps the post version from outside the running transaction the
// first n times a commit is about to happen.
func interfere(s *MemoryStore, postID string, n int32) *int32 {
	var calls int32
	s.beforeCommit = func() {
		if atomic.AddInt32(&calls, 1) > n {
			return
		}
		s.mu.Lock()
		post := s.posts[postID]
		post.Dislikes++
		s.posts[postID] = post
		s.bump(postKey(postID))
		s.mu.Unlock()
	}
	return &calls
}

func incrementLikes(ctx context.Context, tx Tx, postID string) error {
	post, err := tx.GetPost(postID)
	if err != nil {
		return err
	}
	return tx.UpdateCounters(postID, post.Likes+1, post.Dislikes)
}

func TestMemoryTransactionRetriesOnConflict(t *testing.T) {
	s := NewMemoryStore(5, zap.NewNop())
	post := newPost(t, s)
	calls := interfere(s, post.ID, 2)

	var runs int32
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		atomic.AddInt32(&runs, 1)
		return incrementLikes(ctx, tx, post.ID)
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, runs)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))

	got, err := s.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
	// the interfering writes are kept, not overwritten by a stale read
	assert.Equal(t, 2, got.Dislikes)
}

func TestMemoryTransactionGivesUpWithConflict(t *testing.T) {
	s := NewMemoryStore(1, zap.NewNop())
	post := newPost(t, s)
	interfere(s, post.ID, 1)

	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		return incrementLikes(ctx, tx, post.ID)
	})
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))

	got, err := s.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Likes)
}

func TestMemoryTransactionDoesNotRetryOtherErrors(t *testing.T) {
	s := NewMemoryStore(5, zap.NewNop())

	var runs int
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		runs++
		_, err := tx.GetPost("missing")
		return err
	})
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 1, runs)
}

func TestMemoryReadAfterWriteRejected(t *testing.T) {
	s := NewMemoryStore(5, zap.NewNop())
	post := newPost(t, s)

	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.UpdateCounters(post.ID, 1, 0); err != nil {
			return err
		}
		_, err := tx.GetPost(post.ID)
		return err
	})
	require.Error(t, err)

	got, err := s.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Likes)
}

func TestMemoryDeleteRetriesWhenCommentArrives(t *testing.T) {
	s := NewMemoryStore(5, zap.NewNop())
	post := newPost(t, s)

	var once int32
	s.beforeCommit = func() {
		if atomic.CompareAndSwapInt32(&once, 0, 1) {
			require.NoError(t, s.AddComment(context.Background(), post.ID, &models.Comment{Author: "bob@example.com", Text: "late"}))
		}
	}

	var runs int
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		runs++
		return tx.DeletePost(post.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, runs)

	_, err = s.ListComments(context.Background(), post.ID)
	assert.True(t, errs.IsNotFound(err))
	s.mu.Lock()
	assert.Empty(t, s.comments[post.ID])
	s.mu.Unlock()
}

func TestMemoryDeleteIsAtomic(t *testing.T) {
	s := NewMemoryStore(5, zap.NewNop())
	post := newPost(t, s)
	require.NoError(t, s.AddComment(context.Background(), post.ID, &models.Comment{Author: "bob@example.com", Text: "hi"}))

	failure := errors.New("storage unavailable")
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.DeletePost(post.ID); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	_, err = s.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	comments, err := s.ListComments(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestMemoryCommentTimestampsNeverGoBackwards(t *testing.T) {
	s := NewMemoryStore(5, zap.NewNop())
	post := newPost(t, s)

	base := s.now()
	ticks := []int{3, 1, 2}
	i := 0
	s.now = func() time.Time {
		d := ticks[i%len(ticks)]
		i++
		return base.Add(time.Duration(d) * time.Second)
	}

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddComment(context.Background(), post.ID, &models.Comment{Author: "bob@example.com", Text: text}))
	}
	comments, err := s.ListComments(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "a", comments[0].Text)
	assert.Equal(t, "b", comments[1].Text)
	assert.Equal(t, "c", comments[2].Text)
}
