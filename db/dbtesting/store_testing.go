// Package dbtesting holds the behavioural test suite every db.Store backend
// must pass.
package dbtesting

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/imagegallery/db"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
)

// StoreFactory returns a fresh, empty store.
type StoreFactory func(t *testing.T) db.Store

// RunStoreTests runs the suite against the store built by factory.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("CreateGet", func(t *testing.T) {
			testCreateGet(t, factory(t))
		})
		t.Run("GetMissing", func(t *testing.T) {
			testGetMissing(t, factory(t))
		})
		t.Run("QueryPosts", func(t *testing.T) {
			testQueryPosts(t, factory(t))
		})
		t.Run("TransactionWrites", func(t *testing.T) {
			testTransactionWrites(t, factory(t))
		})
		t.Run("TransactionRollback", func(t *testing.T) {
			testTransactionRollback(t, factory(t))
		})
		t.Run("CommentOrder", func(t *testing.T) {
			testCommentOrder(t, factory(t))
		})
		t.Run("CommentOnMissingPost", func(t *testing.T) {
			testCommentOnMissingPost(t, factory(t))
		})
		t.Run("DeleteCascades", func(t *testing.T) {
			testDeleteCascades(t, factory(t))
		})
		t.Run("ConcurrentCounterUpdates", func(t *testing.T) {
			testConcurrentCounterUpdates(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// NewPost returns a valid post ready to be created.
func NewPost(uploader string, category models.Category) *models.Post {
	return &models.Post{
		Name:        "sunset",
		Category:    category,
		Author:      "Ada",
		Description: "taken from the pier",
		Uploader:    uploader,
		URL:         "https://cdn.example.com/images/sunset.jpg",
	}
}

func mustCreate(t *testing.T, store db.Store, post *models.Post) *models.Post {
	t.Helper()
	require.NoError(t, store.CreatePost(context.Background(), post))
	require.NotEmpty(t, post.ID)
	return post
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testCreateGet(t *testing.T, store db.Store) {
	ctx := context.Background()
	post := mustCreate(t, store, NewPost("ada@example.com", models.CategoryNature))
	assert.False(t, post.CreatedAt.IsZero())

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Name, got.Name)
	assert.Equal(t, post.Category, got.Category)
	assert.Equal(t, post.Uploader, got.Uploader)
	assert.Zero(t, got.Likes)
	assert.Zero(t, got.Dislikes)
}

func testGetMissing(t *testing.T, store db.Store) {
	ctx := context.Background()
	_, err := store.GetPost(ctx, "does-not-exist")
	assert.True(t, errs.IsNotFound(err), "got %v", err)

	_, err = store.GetReaction(ctx, "does-not-exist", "ada@example.com")
	assert.True(t, errs.IsNotFound(err), "got %v", err)

	_, err = store.ListComments(ctx, "does-not-exist")
	assert.True(t, errs.IsNotFound(err), "got %v", err)
}

func testQueryPosts(t *testing.T, store db.Store) {
	ctx := context.Background()
	mustCreate(t, store, NewPost("ada@example.com", models.CategoryNature))
	mustCreate(t, store, NewPost("ada@example.com", models.CategoryFood))
	mustCreate(t, store, NewPost("bob@example.com", models.CategoryNature))

	all, err := store.QueryPosts(ctx, models.PostFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	nature, err := store.QueryPosts(ctx, models.PostFilter{Category: models.CategoryNature})
	require.NoError(t, err)
	assert.Len(t, nature, 2)

	ada, err := store.QueryPosts(ctx, models.PostFilter{Uploader: "ada@example.com", Category: models.CategoryFood})
	require.NoError(t, err)
	require.Len(t, ada, 1)
	assert.Equal(t, models.CategoryFood, ada[0].Category)
}

func testTransactionWrites(t *testing.T, store db.Store) {
	ctx := context.Background()
	post := mustCreate(t, store, NewPost("ada@example.com", models.CategoryArt))

	err := store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		if _, err := tx.GetPost(post.ID); err != nil {
			return err
		}
		reaction, err := tx.GetReaction(post.ID, "bob@example.com")
		if err != nil {
			return err
		}
		assert.Equal(t, models.Reaction{}, reaction)
		if err := tx.UpdateCounters(post.ID, 1, 0); err != nil {
			return err
		}
		return tx.SetReaction(post.ID, "bob@example.com", models.Reaction{Like: true})
	})
	require.NoError(t, err)

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)

	reaction, err := store.GetReaction(ctx, post.ID, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, reaction.Like)
	assert.False(t, reaction.Dislike)
}

func testTransactionRollback(t *testing.T, store db.Store) {
	ctx := context.Background()
	post := mustCreate(t, store, NewPost("ada@example.com", models.CategoryArt))

	boom := fmt.Errorf("boom")
	err := store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		if _, err := tx.GetPost(post.ID); err != nil {
			return err
		}
		if err := tx.UpdateCounters(post.ID, 5, 5); err != nil {
			return err
		}
		if err := tx.SetReaction(post.ID, "bob@example.com", models.Reaction{Dislike: true}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Likes)
	assert.Zero(t, got.Dislikes)

	reaction, err := store.GetReaction(ctx, post.ID, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.Reaction{}, reaction)
}

func testCommentOrder(t *testing.T, store db.Store) {
	ctx := context.Background()
	post := mustCreate(t, store, NewPost("ada@example.com", models.CategoryPeople))

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		c := &models.Comment{Author: "bob@example.com", Text: text}
		require.NoError(t, store.AddComment(ctx, post.ID, c))
		assert.NotEmpty(t, c.ID)
		assert.False(t, c.Timestamp.IsZero())
	}

	comments, err := store.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, len(texts))
	for i, c := range comments {
		assert.Equal(t, texts[i], c.Text)
		if i > 0 {
			assert.False(t, c.Timestamp.Before(comments[i-1].Timestamp))
		}
	}
}

func testCommentOnMissingPost(t *testing.T, store db.Store) {
	err := store.AddComment(context.Background(), "does-not-exist", &models.Comment{Author: "bob@example.com", Text: "hi"})
	assert.True(t, errs.IsNotFound(err), "got %v", err)
}

func testDeleteCascades(t *testing.T, store db.Store) {
	ctx := context.Background()
	post := mustCreate(t, store, NewPost("ada@example.com", models.CategoryTravel))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AddComment(ctx, post.ID, &models.Comment{Author: "bob@example.com", Text: fmt.Sprint(i)}))
	}
	require.NoError(t, store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		return tx.SetReaction(post.ID, "bob@example.com", models.Reaction{Like: true})
	}))

	require.NoError(t, store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		return tx.DeletePost(post.ID)
	}))

	_, err := store.GetPost(ctx, post.ID)
	assert.True(t, errs.IsNotFound(err))
	_, err = store.ListComments(ctx, post.ID)
	assert.True(t, errs.IsNotFound(err))

	posts, err := store.QueryPosts(ctx, models.PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func testConcurrentCounterUpdates(t *testing.T, store db.Store) {
	ctx := context.Background()
	post := mustCreate(t, store, NewPost("ada@example.com", models.CategoryAnimals))

	const writers = 4
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- store.RunTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
				p, err := tx.GetPost(post.ID)
				if err != nil {
					return err
				}
				return tx.UpdateCounters(post.ID, p.Likes+1, p.Dislikes)
			})
		}()
	}
	wg.Wait()
	close(errCh)

	succeeded := 0
	for err := range errCh {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errs.IsConflict(err), "unexpected error %v", err)
	}

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, succeeded, got.Likes, "every committed increment must be visible, none lost")
}
