package db

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	imagesCollection    = "images"
	reactionsCollection = "likes"
	commentsCollection  = "comments"
)

// FirestoreStore keeps posts in the "images" collection with reactions and
// comments as sub-collections of each post document. Firestore retries
// aborted transactions itself; we only bound the attempts.
type FirestoreStore struct {
	client      *firestore.Client
	maxAttempts int
	logger      *zap.Logger
}

var _ Store = (*FirestoreStore)(nil)

func NewFirestoreStore(client *firestore.Client, maxAttempts int, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, maxAttempts: maxAttempts, logger: logger}
}

func (f *FirestoreStore) postRef(id string) *firestore.DocumentRef {
	return f.client.Collection(imagesCollection).Doc(id)
}

func (f *FirestoreStore) reactionRef(postID, userID string) *firestore.DocumentRef {
	return f.postRef(postID).Collection(reactionsCollection).Doc(userID)
}

func (f *FirestoreStore) CreatePost(ctx context.Context, post *models.Post) error {
	ref := f.client.Collection(imagesCollection).NewDoc()
	post.ID = ref.ID
	if err := post.Validate(); err != nil {
		return errors.Wrap(errs.ErrValidation, err.Error())
	}
	wr, err := ref.Create(ctx, post)
	if err != nil {
		return errors.Wrap(err, "create post")
	}
	post.CreatedAt = wr.UpdateTime
	return nil
}

func (f *FirestoreStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	snap, err := f.postRef(id).Get(ctx)
	if err != nil {
		return nil, translateFirestoreError(err, "post %s", id)
	}
	return decodePost(snap)
}

func (f *FirestoreStore) QueryPosts(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	query := f.client.Collection(imagesCollection).Query
	if filter.Category != "" {
		query = query.Where("category", "==", string(filter.Category))
	}
	if filter.Uploader != "" {
		query = query.Where("uploader", "==", filter.Uploader)
	}
	snaps, err := query.OrderBy("timestamp", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Wrap(err, "query posts")
	}

	posts := make([]models.Post, 0, len(snaps))
	for _, snap := range snaps {
		post, err := decodePost(snap)
		if err != nil {
			f.logger.Warn("skipping malformed post", zap.String("post_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

func (f *FirestoreStore) GetReaction(ctx context.Context, postID, userID string) (models.Reaction, error) {
	snaps, err := f.client.GetAll(ctx, []*firestore.DocumentRef{f.postRef(postID), f.reactionRef(postID, userID)})
	if err != nil {
		return models.Reaction{}, errors.Wrapf(err, "get reaction of %s on post %s", userID, postID)
	}
	if !snaps[0].Exists() {
		return models.Reaction{}, errors.Wrapf(errs.ErrNotFound, "post %s", postID)
	}
	return decodeReaction(snaps[1])
}

func (f *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: f, t: t})
	}, firestore.MaxAttempts(f.maxAttempts))
	if status.Code(err) == codes.Aborted {
		return errors.Wrapf(errs.ErrConflict, "gave up after %d attempts: %v", f.maxAttempts, err)
	}
	return err
}

func (f *FirestoreStore) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	ref := f.postRef(postID).Collection(commentsCollection).NewDoc()
	comment.ID = ref.ID
	comment.PostID = postID

	err := f.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		ftx := tx.(*firestoreTx)
		if _, err := ftx.GetPost(postID); err != nil {
			return err
		}
		return ftx.t.Create(ref, comment)
	})
	if err != nil {
		return err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return errors.Wrapf(err, "read back comment %s", ref.ID)
	}
	comment.Timestamp = snap.CreateTime
	return nil
}

func (f *FirestoreStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := f.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	snaps, err := f.postRef(postID).Collection(commentsCollection).
		OrderBy("timestamp", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Wrapf(err, "list comments of post %s", postID)
	}

	comments := make([]models.Comment, 0, len(snaps))
	for _, snap := range snaps {
		var c models.Comment
		if err := snap.DataTo(&c); err != nil {
			return nil, errors.Wrapf(err, "decode comment %s", snap.Ref.ID)
		}
		c.ID = snap.Ref.ID
		c.PostID = postID
		comments = append(comments, c)
	}
	return comments, nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

type firestoreTx struct {
	store *FirestoreStore
	t     *firestore.Transaction
}

func (tx *firestoreTx) GetPost(id string) (*models.Post, error) {
	snap, err := tx.t.Get(tx.store.postRef(id))
	if err != nil {
		return nil, translateFirestoreError(err, "post %s", id)
	}
	return decodePost(snap)
}

func (tx *firestoreTx) GetReaction(postID, userID string) (models.Reaction, error) {
	snap, err := tx.t.Get(tx.store.reactionRef(postID, userID))
	if status.Code(err) == codes.NotFound {
		return models.Reaction{}, nil
	}
	if err != nil {
		return models.Reaction{}, errors.Wrapf(err, "get reaction of %s on post %s", userID, postID)
	}
	return decodeReaction(snap)
}

func (tx *firestoreTx) UpdateCounters(postID string, likes, dislikes int) error {
	return tx.t.Update(tx.store.postRef(postID), []firestore.Update{
		{Path: "likes", Value: likes},
		{Path: "dislikes", Value: dislikes},
	})
}

func (tx *firestoreTx) SetReaction(postID, userID string, reaction models.Reaction) error {
	if !reaction.Valid() {
		return errors.Wrap(errs.ErrValidation, "reaction cannot be both like and dislike")
	}
	return tx.t.Set(tx.store.reactionRef(postID, userID), reaction)
}

func (tx *firestoreTx) UpdateDetails(postID string, details models.PostDetails) error {
	return tx.t.Update(tx.store.postRef(postID), []firestore.Update{
		{Path: "name", Value: details.Name},
		{Path: "category", Value: string(details.Category)},
		{Path: "author", Value: details.Author},
		{Path: "description", Value: details.Description},
	})
}

// DeletePost reads every child inside the transaction, which locks them, and
// then deletes children and post together. A single transaction is capped at
// 500 writes by Firestore.
func (tx *firestoreTx) DeletePost(postID string) error {
	ref := tx.store.postRef(postID)
	var children []*firestore.DocumentRef
	for _, sub := range []string{reactionsCollection, commentsCollection} {
		snaps, err := tx.t.Documents(ref.Collection(sub)).GetAll()
		if err != nil {
			return errors.Wrapf(err, "read %s of post %s", sub, postID)
		}
		for _, snap := range snaps {
			children = append(children, snap.Ref)
		}
	}

	for _, child := range children {
		if err := tx.t.Delete(child); err != nil {
			return err
		}
	}
	return tx.t.Delete(ref)
}

func decodePost(snap *firestore.DocumentSnapshot) (*models.Post, error) {
	var post models.Post
	if err := snap.DataTo(&post); err != nil {
		return nil, errors.Wrapf(errs.ErrInternalServerError, "decode post %s: %v", snap.Ref.ID, err)
	}
	post.ID = snap.Ref.ID
	if err := post.Validate(); err != nil {
		return nil, errors.Wrap(errs.ErrInternalServerError, err.Error())
	}
	return &post, nil
}

func decodeReaction(snap *firestore.DocumentSnapshot) (models.Reaction, error) {
	if !snap.Exists() {
		return models.Reaction{}, nil
	}
	var reaction models.Reaction
	if err := snap.DataTo(&reaction); err != nil {
		return models.Reaction{}, errors.Wrapf(errs.ErrInternalServerError, "decode reaction %s: %v", snap.Ref.Path, err)
	}
	if !reaction.Valid() {
		// both flags set is treated as neither
		return models.Reaction{}, nil
	}
	return reaction, nil
}

func translateFirestoreError(err error, format string, args ...interface{}) error {
	if status.Code(err) == codes.NotFound {
		return errors.Wrapf(errs.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
