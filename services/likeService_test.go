package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/imagegallery/db"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
)

func assertResult(t *testing.T, got *models.ReactionResult, likes, dislikes int, like, dislike bool) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, models.ReactionResult{Likes: likes, Dislikes: dislikes, Like: like, Dislike: dislike}, *got)
}

// assertCountersMatchReactions checks that the stored counters equal the
// number of users holding each reaction.
func assertCountersMatchReactions(t *testing.T, store db.Store, postID string, users []string) {
	t.Helper()
	ctx := context.Background()
	post, err := store.GetPost(ctx, postID)
	require.NoError(t, err)

	likes, dislikes := 0, 0
	for _, u := range users {
		r, err := store.GetReaction(ctx, postID, u)
		require.NoError(t, err)
		require.True(t, r.Valid(), "user %s holds both reactions", u)
		if r.Like {
			likes++
		}
		if r.Dislike {
			dislikes++
		}
	}
	assert.Equal(t, likes, post.Likes, "likes")
	assert.Equal(t, dislikes, post.Dislikes, "dislikes")
}

func TestApplyReactionScenario(t *testing.T) {
	store := newStore()
	svc := NewLikeService(store, zap.NewNop())
	ctx := context.Background()
	post := seedPost(t, store, "owner@example.com", models.CategoryNature)

	res, err := svc.ApplyReaction(ctx, post.ID, "u1", true)
	require.NoError(t, err)
	assertResult(t, res, 1, 0, true, false)

	res, err = svc.ApplyReaction(ctx, post.ID, "u1", true)
	require.NoError(t, err)
	assertResult(t, res, 1, 0, true, false)

	res, err = svc.ApplyReaction(ctx, post.ID, "u1", false)
	require.NoError(t, err)
	assertResult(t, res, 0, 1, false, true)

	res, err = svc.ApplyReaction(ctx, post.ID, "u1", false)
	require.NoError(t, err)
	assertResult(t, res, 0, 1, false, true)

	res, err = svc.ApplyReaction(ctx, post.ID, "u1", true)
	require.NoError(t, err)
	assertResult(t, res, 1, 0, true, false)

	state, err := svc.GetReactionState(ctx, post.ID, "u1")
	require.NoError(t, err)
	assertResult(t, state, 1, 0, true, false)

	state, err = svc.GetReactionState(ctx, post.ID, "")
	require.NoError(t, err)
	assertResult(t, state, 1, 0, false, false)
}

func TestApplyReactionRequiresUser(t *testing.T) {
	store := newStore()
	svc := NewLikeService(store, zap.NewNop())
	post := seedPost(t, store, "owner@example.com", models.CategoryNature)

	_, err := svc.ApplyReaction(context.Background(), post.ID, "", true)
	assert.True(t, errs.IsUnauthorized(err))

	got, err := store.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Likes)
}

func TestApplyReactionMissingPost(t *testing.T) {
	svc := NewLikeService(newStore(), zap.NewNop())

	_, err := svc.ApplyReaction(context.Background(), "missing", "u1", true)
	assert.True(t, errs.IsNotFound(err))

	_, err = svc.GetReactionState(context.Background(), "missing", "u1")
	assert.True(t, errs.IsNotFound(err))
}

func TestApplyReactionRandomSequenceKeepsCountersConsistent(t *testing.T) {
	store := newStore()
	svc := NewLikeService(store, zap.NewNop())
	ctx := context.Background()
	post := seedPost(t, store, "owner@example.com", models.CategoryArt)

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		user := users[rng.Intn(len(users))]
		res, err := svc.ApplyReaction(ctx, post.ID, user, rng.Intn(2) == 0)
		require.NoError(t, err)
		assert.False(t, res.Like && res.Dislike)
		assert.GreaterOrEqual(t, res.Likes, 0)
		assert.GreaterOrEqual(t, res.Dislikes, 0)
	}
	assertCountersMatchReactions(t, store, post.ID, users)
}

func TestApplyReactionConcurrentUsers(t *testing.T) {
	store := newStore()
	svc := NewLikeService(store, zap.NewNop())
	ctx := context.Background()
	post := seedPost(t, store, "owner@example.com", models.CategoryFood)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.ApplyReaction(ctx, post.ID, "u1", true)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.ApplyReaction(ctx, post.ID, "u2", false)
		assert.NoError(t, err)
	}()
	wg.Wait()

	got, err := store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, 1, got.Dislikes)
}

func TestApplyReactionManyConcurrentUsers(t *testing.T) {
	store := newStore()
	svc := NewLikeService(store, zap.NewNop())
	ctx := context.Background()
	post := seedPost(t, store, "owner@example.com", models.CategoryPeople)

	users := make([]string, 16)
	for i := range users {
		users[i] = fmt.Sprintf("user-%d", i)
	}

	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(seed int64, user string) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for j := 0; j < 10; j++ {
				_, err := svc.ApplyReaction(ctx, post.ID, user, rng.Intn(2) == 0)
				if err != nil {
					assert.True(t, errs.IsConflict(err), "unexpected error %v", err)
				}
			}
		}(int64(i), user)
	}
	wg.Wait()

	assertCountersMatchReactions(t, store, post.ID, users)
}
