package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/d60-Lab/hotfeed/internal/cache"
	"github.com/d60-Lab/hotfeed/internal/model"
	"github.com/d60-Lab/hotfeed/internal/repository"
	"github.com/d60-Lab/hotfeed/internal/service"
)

const (
	postCount   = 5000
	likeCount   = 200000
	workerCount = 32
	reqPerWork  = 300
	dbDelay     = 5 * time.Millisecond // simulated ranking query cost
)

func main() {
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=postgres port=5434 sslmode=disable"
	}
	db := must(gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true}))

	mustDo(db.Exec("DROP TABLE IF EXISTS likes CASCADE").Error)
	mustDo(db.Exec("DROP TABLE IF EXISTS posts CASCADE").Error)
	mustDo(db.AutoMigrate(&model.Post{}, &model.Like{}))

	fmt.Println("Seeding posts and likes...")
	seed(db)

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6380"
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis at %s: %v", redisAddr, err))
	}

	posts := repository.NewPostRepository(db)
	feedCache := cache.New(client, cache.Options{Namespace: "feedbench"})

	uncached := service.NewFeedService(posts, nil, service.WithQueryDelay(dbDelay))
	guarded := service.NewFeedService(posts, feedCache, service.WithQueryDelay(dbDelay))

	fmt.Printf("\nHot feed latency (%d workers x %d reqs, %d posts / %d likes, PostgreSQL + Redis)\n",
		workerCount, reqPerWork, postCount, likeCount)

	r1 := runScenario(ctx, client, uncached)
	fmt.Printf("%-18s avg=%v p95=%v p99=%v ranking_queries=%d\n",
		"No cache", avg(r1.durations), pct(r1.durations, 0.95), pct(r1.durations, 0.99), r1.queries)

	r2 := runScenario(ctx, client, guarded)
	fmt.Printf("%-18s avg=%v p95=%v p99=%v ranking_queries=%d\n",
		"Stampede-guarded", avg(r2.durations), pct(r2.durations, 0.95), pct(r2.durations, 0.99), r2.queries)
}

func seed(db *gorm.DB) {
	base := time.Now()
	posts := make([]model.Post, postCount)
	for i := range posts {
		posts[i] = model.Post{CreatedAt: base.Add(-time.Duration(i) * time.Minute)}
	}
	mustDo(db.CreateInBatches(&posts, 1000).Error)

	rnd := rand.New(rand.NewSource(42))
	likes := make([]model.Like, 0, 1000)
	counts := make(map[int64]int64, postCount)
	seen := make(map[[2]int64]struct{}, likeCount)
	for i := 0; i < likeCount; i++ {
		p := posts[rnd.Intn(postCount)].ID
		u := int64(1 + rnd.Intn(50000))
		if _, dup := seen[[2]int64{p, u}]; dup {
			continue
		}
		seen[[2]int64{p, u}] = struct{}{}
		counts[p]++
		likes = append(likes, model.Like{
			PostID:    p,
			UserID:    u,
			CreatedAt: base.Add(-time.Duration(rnd.Intn(48)) * time.Hour),
		})
		if len(likes) == 1000 {
			mustDo(db.CreateInBatches(&likes, 1000).Error)
			likes = likes[:0]
		}
	}
	if len(likes) > 0 {
		mustDo(db.CreateInBatches(&likes, 1000).Error)
	}
	for id, n := range counts {
		mustDo(db.Model(&model.Post{}).Where("id = ?", id).Update("like_count", n).Error)
	}
}

type scenarioResult struct {
	durations []time.Duration
	queries   int64
}

func runScenario(ctx context.Context, client *redis.Client, svc *service.FeedService) scenarioResult {
	client.FlushAll(ctx)
	svc.ResetCounters()

	limits := []int{10, 20, 50, 100}
	var mu sync.Mutex
	durations := make([]time.Duration, 0, workerCount*reqPerWork)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			local := make([]time.Duration, 0, reqPerWork)
			for i := 0; i < reqPerWork; i++ {
				limit := limits[rnd.Intn(len(limits))]
				start := time.Now()
				if _, err := svc.GetHotFeed(ctx, limit, 0); err != nil {
					panic(err)
				}
				local = append(local, time.Since(start))
			}
			mu.Lock()
			durations = append(durations, local...)
			mu.Unlock()
		}(int64(w))
	}
	wg.Wait()

	return scenarioResult{durations: durations, queries: svc.Queries()}
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
