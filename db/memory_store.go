package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
)

// MemoryStore keeps everything in process. Transactions are optimistic: each
// attempt reads from the live maps while remembering the version of every
// document it saw, buffers its writes, and commits only if none of those
// versions moved in the meantime.
type MemoryStore struct {
	mu          sync.Mutex
	clock       uint64
	versions    map[string]uint64
	posts       map[string]models.Post
	reactions   map[string]map[string]models.Reaction
	comments    map[string][]models.Comment
	seq         int64
	lastComment time.Time

	maxAttempts int
	logger      *zap.Logger
	now         func() time.Time

	// beforeCommit runs between an attempt's reads and its commit.
	beforeCommit func()
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(maxAttempts int, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		versions:    make(map[string]uint64),
		posts:       make(map[string]models.Post),
		reactions:   make(map[string]map[string]models.Reaction),
		comments:    make(map[string][]models.Comment),
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

func postKey(id string) string                 { return "images/" + id }
func reactionKey(postID, userID string) string { return "images/" + postID + "/likes/" + userID }
func threadKey(postID string) string           { return "images/" + postID + "/comments" }

// bump must be called with s.mu held.
func (s *MemoryStore) bump(key string) {
	s.clock++
	s.versions[key] = s.clock
}

func (s *MemoryStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = uuid.NewString()
	post.CreatedAt = s.now().UTC()
	if err := post.Validate(); err != nil {
		return errors.Wrap(errs.ErrValidation, err.Error())
	}
	s.posts[post.ID] = *post
	s.bump(postKey(post.ID))
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "post %s", id)
	}
	return &post, nil
}

func (s *MemoryStore) QueryPosts(_ context.Context, filter models.PostFilter) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []models.Post
	for _, post := range s.posts {
		if filter.Matches(&post) {
			posts = append(posts, post)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
	return posts, nil
}

func (s *MemoryStore) GetReaction(_ context.Context, postID, userID string) (models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return models.Reaction{}, errors.Wrapf(errs.ErrNotFound, "post %s", postID)
	}
	return s.reactions[postID][userID], nil
}

func (s *MemoryStore) AddComment(_ context.Context, postID string, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return errors.Wrapf(errs.ErrNotFound, "post %s", postID)
	}

	ts := s.now().UTC()
	if ts.Before(s.lastComment) {
		ts = s.lastComment
	}
	s.lastComment = ts
	s.seq++

	comment.ID = uuid.NewString()
	comment.PostID = postID
	comment.Seq = s.seq
	comment.Timestamp = ts
	s.comments[postID] = append(s.comments[postID], *comment)
	s.bump(threadKey(postID))
	return nil
}

func (s *MemoryStore) ListComments(_ context.Context, postID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "post %s", postID)
	}
	comments := make([]models.Comment, len(s.comments[postID]))
	copy(comments, s.comments[postID])
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].Timestamp.Equal(comments[j].Timestamp) {
			return comments[i].Timestamp.Before(comments[j].Timestamp)
		}
		return comments[i].Seq < comments[j].Seq
	})
	return comments, nil
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return retryTransaction(ctx, s.logger, s.maxAttempts, func(err error) bool {
		return errors.Is(err, errTxConflict)
	}, func(ctx context.Context) error {
		tx := &memoryTx{store: s, reads: make(map[string]uint64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.beforeCommit != nil {
			s.beforeCommit()
		}
		return tx.commit()
	})
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	reads  map[string]uint64
	writes []func()
	wrote  bool
}

// read records the version of key as seen by this attempt. Must be called
// with the store lock held.
func (tx *memoryTx) read(key string) {
	if _, seen := tx.reads[key]; !seen {
		tx.reads[key] = tx.store.versions[key]
	}
}

func (tx *memoryTx) checkReadPhase() error {
	if tx.wrote {
		return errors.New("read after write in transaction")
	}
	return nil
}

func (tx *memoryTx) GetPost(id string) (*models.Post, error) {
	if err := tx.checkReadPhase(); err != nil {
		return nil, err
	}
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.read(postKey(id))
	post, ok := s.posts[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "post %s", id)
	}
	return &post, nil
}

func (tx *memoryTx) GetReaction(postID, userID string) (models.Reaction, error) {
	if err := tx.checkReadPhase(); err != nil {
		return models.Reaction{}, err
	}
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.read(reactionKey(postID, userID))
	return s.reactions[postID][userID], nil
}

func (tx *memoryTx) UpdateCounters(postID string, likes, dislikes int) error {
	tx.wrote = true
	s := tx.store
	tx.writes = append(tx.writes, func() {
		post, ok := s.posts[postID]
		if !ok {
			return
		}
		post.Likes = likes
		post.Dislikes = dislikes
		s.posts[postID] = post
		s.bump(postKey(postID))
	})
	return nil
}

func (tx *memoryTx) SetReaction(postID, userID string, reaction models.Reaction) error {
	if !reaction.Valid() {
		return errors.Wrap(errs.ErrValidation, "reaction cannot be both like and dislike")
	}
	tx.wrote = true
	s := tx.store
	tx.writes = append(tx.writes, func() {
		if s.reactions[postID] == nil {
			s.reactions[postID] = make(map[string]models.Reaction)
		}
		reaction.PostID = postID
		reaction.UserID = userID
		s.reactions[postID][userID] = reaction
		s.bump(reactionKey(postID, userID))
	})
	return nil
}

func (tx *memoryTx) UpdateDetails(postID string, details models.PostDetails) error {
	tx.wrote = true
	s := tx.store
	tx.writes = append(tx.writes, func() {
		post, ok := s.posts[postID]
		if !ok {
			return
		}
		post.Name = details.Name
		post.Category = details.Category
		post.Author = details.Author
		post.Description = details.Description
		s.posts[postID] = post
		s.bump(postKey(postID))
	})
	return nil
}

func (tx *memoryTx) DeletePost(postID string) error {
	if err := tx.checkReadPhase(); err != nil {
		return err
	}
	// The thread is read so a comment added after this point aborts the
	// attempt instead of surviving the delete.
	s := tx.store
	s.mu.Lock()
	tx.read(postKey(postID))
	tx.read(threadKey(postID))
	s.mu.Unlock()

	tx.wrote = true
	tx.writes = append(tx.writes, func() {
		for userID := range s.reactions[postID] {
			s.bump(reactionKey(postID, userID))
		}
		delete(s.reactions, postID)
		delete(s.comments, postID)
		delete(s.posts, postID)
		s.bump(threadKey(postID))
		s.bump(postKey(postID))
	})
	return nil
}

func (tx *memoryTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, version := range tx.reads {
		if s.versions[key] != version {
			return errTxConflict
		}
	}
	for _, write := range tx.writes {
		write()
	}
	return nil
}
