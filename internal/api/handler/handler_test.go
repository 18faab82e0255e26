package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/hotfeed/internal/cache"
	"github.com/d60-Lab/hotfeed/internal/model"
	"github.com/d60-Lab/hotfeed/internal/repository"
	"github.com/d60-Lab/hotfeed/internal/service"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Post{}, &model.Like{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	feedCache := cache.New(client, cache.Options{Namespace: "test"})

	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	h := New(
		service.NewPostService(postRepo, feedCache),
		service.NewLikeService(db, postRepo, likeRepo, feedCache),
		service.NewFeedService(postRepo, feedCache),
	)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/feed/hot", h.HotFeed)
	v1.POST("/posts", h.CreatePost)
	v1.GET("/posts/:post_id", h.GetPost)
	v1.PUT("/posts/:post_id", h.UpdatePost)
	v1.DELETE("/posts/:post_id", h.DeletePost)
	v1.GET("/posts/:post_id/aggregates", h.PostAggregates)
	v1.GET("/posts/:post_id/likes", h.ListLikes)
	v1.POST("/posts/:post_id/likes", h.AddLike)
	v1.DELETE("/posts/:post_id/likes/:user_id", h.RemoveLike)
	v1.GET("/posts/:post_id/likes/:user_id/status", h.LikeStatus)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func createPostViaAPI(t *testing.T, r *gin.Engine) int64 {
	t.Helper()
	w, body := doJSON(t, r, http.MethodPost, "/api/v1/posts", "{}")
	require.Equal(t, http.StatusCreated, w.Code)
	data := body["data"].(map[string]any)
	return int64(data["id"].(float64))
}

func TestPostLifecycle(t *testing.T) {
	r := setupRouter(t)
	id := createPostViaAPI(t, r)

	w, body := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 0, body["data"].(map[string]any)["like_count"])

	w, _ = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/posts/%d", id), `{"like_count": 5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", id), "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", id), "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLikeEndpointsAreIdempotent(t *testing.T) {
	r := setupRouter(t)
	id := createPostViaAPI(t, r)
	likeURL := fmt.Sprintf("/api/v1/posts/%d/likes", id)

	w, body := doJSON(t, r, http.MethodPost, likeURL, `{"user_id": 1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, true, body["data"].(map[string]any)["created"])

	w, body = doJSON(t, r, http.MethodPost, likeURL, `{"user_id": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, body["data"].(map[string]any)["created"])

	w, body = doJSON(t, r, http.MethodGet, likeURL+"/1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, body["data"].(map[string]any)["liked"])

	w, body = doJSON(t, r, http.MethodGet, likeURL, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, body["data"].(map[string]any)["total"])

	w, body = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d/aggregates", id), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, body["data"].(map[string]any)["total_likes"])

	w, _ = doJSON(t, r, http.MethodDelete, likeURL+"/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodDelete, likeURL+"/1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLikeValidationBoundaries(t *testing.T) {
	r := setupRouter(t)
	id := createPostViaAPI(t, r)
	likeURL := fmt.Sprintf("/api/v1/posts/%d/likes", id)

	for _, body := range []string{`{"user_id": 0}`, `{"user_id": -1}`, `{"user_id": "abc"}`} {
		w, _ := doJSON(t, r, http.MethodPost, likeURL, body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body=%s", body)
	}

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/posts/99999/likes", `{"user_id": 1}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHotFeedEndpoint(t *testing.T) {
	r := setupRouter(t)
	id := createPostViaAPI(t, r)
	_, _ = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/likes", id), `{"user_id": 1}`)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/feed/hot?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	posts := body["data"].(map[string]any)["posts"].([]any)
	require.Len(t, posts, 1)
	top := posts[0].(map[string]any)
	require.EqualValues(t, id, top["id"])
	require.EqualValues(t, 1, top["score"])
	require.EqualValues(t, 1, top["like_count"])

	for _, q := range []string{"limit=0", "limit=1001", "offset=-1", "limit=abc"} {
		w, _ := doJSON(t, r, http.MethodGet, "/api/v1/feed/hot?"+q, "")
		require.Equal(t, http.StatusBadRequest, w.Code, "query=%s", q)
	}
}
