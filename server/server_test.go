package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/imagegallery/config"
	"github.com/techagentng/imagegallery/db"
	"github.com/techagentng/imagegallery/models"
	"github.com/techagentng/imagegallery/services"
	"github.com/techagentng/imagegallery/services/jwt"
	"github.com/techagentng/imagegallery/storage"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  string          `json:"errors"`
	Status  string          `json:"status"`
}

type testServer struct {
	handler http.Handler
	store   *db.MemoryStore
	files   *storage.MemoryStore
}

func newTestServer(t *testing.T, ratePerMinute uint) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("GIN_MODE", "test")

	conf := &config.Config{
		AuthProvider:       config.AuthJWT,
		JWTSecret:          testSecret,
		TxMaxAttempts:      5,
		MaxUploadBytes:     1 << 20,
		RateLimitPerMinute: ratePerMinute,
	}
	logger := zap.NewNop()
	store := db.NewMemoryStore(conf.TxMaxAttempts, logger)
	files := storage.NewMemoryStore()

	s := &Server{
		Config:         conf,
		Logger:         logger,
		Verifier:       JWTVerifier{Secret: testSecret},
		LikeService:    services.NewLikeService(store, logger),
		CommentService: services.NewCommentService(store, logger),
		PostService:    services.NewPostService(store, files, services.NewMediaService(conf), logger),
		GalleryService: services.NewGalleryService(store, logger),
	}
	return &testServer{handler: s.setupRouter(), store: store, files: files}
}

func token(t *testing.T, email string) string {
	t.Helper()
	tok, err := jwt.GenerateToken(email, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, user string, body *bytes.Buffer, contentType string) (int, envelope) {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (ts *testServer) doJSON(t *testing.T, method, path, user string, payload interface{}) (int, envelope) {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(payload))
	return ts.do(t, method, path, user, buf, "application/json")
}

func (ts *testServer) upload(t *testing.T, user, category string) (int, envelope) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, x%30, color.RGBA{R: 200, A: 255})
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", "red.png")
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("name", "Red line"))
	require.NoError(t, mw.WriteField("category", category))
	require.NoError(t, mw.WriteField("author", "Ada"))
	require.NoError(t, mw.WriteField("description", "a diagonal"))
	require.NoError(t, mw.Close())

	return ts.do(t, http.MethodPost, "/api/v1/images", user, body, mw.FormDataContentType())
}

func (ts *testServer) mustUpload(t *testing.T, user string) models.Post {
	t.Helper()
	code, env := ts.upload(t, user, "nature")
	require.Equal(t, http.StatusCreated, code, env.Errors)
	var post models.Post
	require.NoError(t, json.Unmarshal(env.Data, &post))
	return post
}

func reactionOf(t *testing.T, env envelope) models.ReactionResult {
	t.Helper()
	var res models.ReactionResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t, 100)
	code, env := ts.do(t, http.MethodGet, "/api/v1/categories", "", nil, "")
	require.Equal(t, http.StatusOK, code)

	var categories []models.Category
	require.NoError(t, json.Unmarshal(env.Data, &categories))
	assert.Equal(t, models.Categories, categories)
}

func TestReactionRoundTrip(t *testing.T) {
	ts := newTestServer(t, 100)
	post := ts.mustUpload(t, "owner@example.com")
	likePath := "/api/v1/images/" + post.ID + "/like"
	dislikePath := "/api/v1/images/" + post.ID + "/dislike"

	code, env := ts.do(t, http.MethodPut, likePath, "u1@example.com", nil, "")
	require.Equal(t, http.StatusOK, code, env.Errors)
	assert.Equal(t, models.ReactionResult{Likes: 1, Like: true}, reactionOf(t, env))

	code, env = ts.do(t, http.MethodPut, likePath, "u1@example.com", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.ReactionResult{Likes: 1, Like: true}, reactionOf(t, env))

	code, env = ts.do(t, http.MethodPut, dislikePath, "u1@example.com", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.ReactionResult{Dislikes: 1, Dislike: true}, reactionOf(t, env))

	code, env = ts.do(t, http.MethodGet, "/api/v1/images/"+post.ID+"/reaction", "u1@example.com", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.ReactionResult{Dislikes: 1, Dislike: true}, reactionOf(t, env))
}

func TestReactionErrors(t *testing.T) {
	ts := newTestServer(t, 100)
	post := ts.mustUpload(t, "owner@example.com")

	code, _ := ts.do(t, http.MethodPut, "/api/v1/images/"+post.ID+"/like", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/images/"+post.ID+"/like", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	code, env := ts.do(t, http.MethodPut, "/api/v1/images/missing/like", "u1@example.com", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", env.Status)
}

func TestUploadListAndDelete(t *testing.T) {
	ts := newTestServer(t, 100)
	post := ts.mustUpload(t, "owner@example.com")
	assert.Equal(t, "Red line", post.Name)
	assert.Equal(t, models.CategoryNature, post.Category)
	assert.Equal(t, 2, ts.files.Len())

	code, env := ts.do(t, http.MethodGet, "/api/v1/images?category=Nature", "", nil, "")
	require.Equal(t, http.StatusOK, code)
	var posts []models.Post
	require.NoError(t, json.Unmarshal(env.Data, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/images?category=landscapes", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.upload(t, "owner@example.com", "landscapes")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodDelete, "/api/v1/images/"+post.ID, "intruder@example.com", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = ts.do(t, http.MethodGet, "/api/v1/images/"+post.ID, "", nil, "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodDelete, "/api/v1/images/"+post.ID, "owner@example.com", nil, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodGet, "/api/v1/images/"+post.ID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Zero(t, ts.files.Len())
}

func TestUploadRequiresFile(t *testing.T) {
	ts := newTestServer(t, 100)
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("name", "nothing"))
	require.NoError(t, mw.Close())

	code, _ := ts.do(t, http.MethodPost, "/api/v1/images", "owner@example.com", body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUpdateImage(t *testing.T) {
	ts := newTestServer(t, 100)
	post := ts.mustUpload(t, "owner@example.com")
	details := map[string]string{"name": "Renamed", "category": "art", "author": "Ada", "description": ""}

	code, _ := ts.doJSON(t, http.MethodPatch, "/api/v1/images/"+post.ID, "intruder@example.com", details)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := ts.doJSON(t, http.MethodPatch, "/api/v1/images/"+post.ID, "owner@example.com", details)
	require.Equal(t, http.StatusOK, code, env.Errors)
	var updated models.Post
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.CategoryArt, updated.Category)
}

func TestComments(t *testing.T) {
	ts := newTestServer(t, 100)
	post := ts.mustUpload(t, "owner@example.com")
	path := "/api/v1/images/" + post.ID + "/comments"

	for _, text := range []string{"first", "second"} {
		code, env := ts.doJSON(t, http.MethodPost, path, "u1@example.com", map[string]string{"text": text})
		require.Equal(t, http.StatusCreated, code, env.Errors)
	}

	code, _ := ts.doJSON(t, http.MethodPost, path, "u1@example.com", map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.doJSON(t, http.MethodPost, path, "u1@example.com", map[string]string{"text": strings.Repeat("x", 501)})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.doJSON(t, http.MethodPost, path, "", map[string]string{"text": "anonymous"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = ts.doJSON(t, http.MethodPost, "/api/v1/images/missing/comments", "u1@example.com", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env := ts.do(t, http.MethodGet, path, "", nil, "")
	require.Equal(t, http.StatusOK, code)
	var comments []models.Comment
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, "u1@example.com", comments[0].Author)
}

func TestGalleryShowsViewerReaction(t *testing.T) {
	ts := newTestServer(t, 100)
	post := ts.mustUpload(t, "owner@example.com")
	code, _ := ts.do(t, http.MethodPut, "/api/v1/images/"+post.ID+"/like", "viewer@example.com", nil, "")
	require.Equal(t, http.StatusOK, code)

	code, env := ts.do(t, http.MethodGet, "/api/v1/gallery", "viewer@example.com", nil, "")
	require.Equal(t, http.StatusOK, code)
	var sections []services.GallerySection
	require.NoError(t, json.Unmarshal(env.Data, &sections))
	require.Len(t, sections, len(models.Categories))
	require.Len(t, sections[0].Cards, 1)
	assert.True(t, sections[0].Cards[0].ViewerLike)
	assert.Equal(t, 1, sections[0].Cards[0].Likes)

	code, env = ts.do(t, http.MethodGet, "/api/v1/gallery", "", nil, "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &sections))
	assert.False(t, sections[0].Cards[0].ViewerLike)
}

func TestWriteRoutesAreRateLimited(t *testing.T) {
	ts := newTestServer(t, 3)
	post := ts.mustUpload(t, "owner@example.com")
	path := "/api/v1/images/" + post.ID + "/like"

	for i := 0; i < 2; i++ {
		code, _ := ts.do(t, http.MethodPut, path, "owner@example.com", nil, "")
		require.Equal(t, http.StatusOK, code)
	}
	code, _ := ts.do(t, http.MethodPut, path, "owner@example.com", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = ts.do(t, http.MethodPut, path, "other@example.com", nil, "")
	assert.Equal(t, http.StatusOK, code)
}
