package storage

import (
	"context"
	"fmt"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FirebaseStore writes into a Firebase Storage bucket. Every object gets a
// download token so the returned URL works without signed requests.
type FirebaseStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

var _ BinaryStore = (*FirebaseStore)(nil)

func NewFirebaseStore(bucket *gcs.BucketHandle, bucketName string) *FirebaseStore {
	return &FirebaseStore{bucket: bucket, bucketName: bucketName}
}

func (f *FirebaseStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	token := uuid.NewString()
	w := f.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "write %s", path)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "upload %s", path)
	}
	return downloadURL(f.bucketName, path, token), nil
}

func (f *FirebaseStore) Delete(ctx context.Context, path string) error {
	err := f.bucket.Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return errors.Wrapf(err, "delete %s", path)
	}
	return nil
}

func downloadURL(bucket, path, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(path), token)
}
