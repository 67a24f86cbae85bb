package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/statlite/internal/config"
	"github.com/statlite/internal/db"
	"github.com/statlite/internal/logging"
	"github.com/statlite/internal/service"
	"gorm.io/gorm"
)

var (
	seedSites  = []string{"blog.example.com", "docs.example.com", "shop.example.com"}
	seedPages  = []string{"/", "/about", "/posts/hello-world", "/posts/go-generics", "/pricing", "/docs/getting-started"}
	seedAgents = []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148",
	}
)

// seedOptions 控制测试数据的规模与时间跨度。
type seedOptions struct {
	Events   int
	Visitors int
	Span     time.Duration
	Seed     int64
}

// 测试数据生成器：通过写入队列批量写入模拟的页面浏览。
func main() {
	events := flag.Int("events", 500, "number of page view events to generate")
	visitors := flag.Int("visitors", 40, "number of distinct visitors")
	span := flag.Duration("span", 24*time.Hour, "time span the events are spread over")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})
	log := logging.Logger()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal().Err(err).Msg("数据库初始化失败")
	}

	fmt.Println("开始生成测试数据...")

	queued, err := seedPageViews(context.Background(), db.DB, seedOptions{
		Events:   *events,
		Visitors: *visitors,
		Span:     *span,
		Seed:     *seed,
	}, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("生成测试数据失败")
	}

	fmt.Printf("测试数据生成完成！共提交 %d 条浏览事件\n", queued)
	for _, site := range seedSites {
		var count int64
		db.DB.Model(&db.PageView{}).Where("site_id = ?", site).Count(&count)
		fmt.Printf("站点 %s: %d 条浏览记录\n", site, count)
	}
}

// seedPageViews 生成均匀分布在 [now-span, now] 内、按时间排序的事件并等待写入完成。
// 返回提交到队列的事件数，去重窗口内的重复事件不会产生记录。
func seedPageViews(ctx context.Context, gdb *gorm.DB, opts seedOptions, now time.Time) (int, error) {
	if opts.Events <= 0 {
		return 0, nil
	}
	if opts.Visitors <= 0 {
		opts.Visitors = 1
	}
	if opts.Span <= 0 {
		opts.Span = time.Hour
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	queue := service.NewWriteQueue(gdb)
	stats := service.NewStatsService(gdb, queue)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = queue.Serve(workerCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	start := now.Add(-opts.Span)
	step := opts.Span / time.Duration(opts.Events)
	for i := 0; i < opts.Events; i++ {
		visitor := rng.Intn(opts.Visitors)
		event := service.TrackEvent{
			Site:      seedSites[rng.Intn(len(seedSites))],
			Page:      seedPages[rng.Intn(len(seedPages))],
			IP:        fmt.Sprintf("10.%d.%d.%d", visitor/65536%256, visitor/256%256, visitor%256),
			UserAgent: seedAgents[visitor%len(seedAgents)],
		}
		if err := stats.Record(event, start.Add(time.Duration(i)*step)); err != nil {
			return i, err
		}
	}

	if err := queue.Flush(ctx); err != nil {
		return opts.Events, err
	}
	return opts.Events, nil
}
