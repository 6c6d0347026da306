package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/techagentng/imagegallery/config"
	"github.com/techagentng/imagegallery/db"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
)

func newStore() *db.MemoryStore {
	return db.NewMemoryStore(50, zap.NewNop())
}

func testConfig() *config.Config {
	return &config.Config{MaxUploadBytes: 1 << 20, TxMaxAttempts: 5}
}

func seedPost(t *testing.T, store db.Store, uploader string, category models.Category) *models.Post {
	t.Helper()
	post := &models.Post{
		Name:     "sunset",
		Category: category,
		Author:   "Ada",
		Uploader: uploader,
		URL:      "memory://images/sunset.png",
	}
	require.NoError(t, store.CreatePost(context.Background(), post))
	return post
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
