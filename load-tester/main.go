package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL       string
	Projects      []string
	Total         int
	Rate          int
	Concurrency   int
	RepeatPercent int
}

func parseFlags() *Config {
	c := &Config{}
	var projects string
	flag.StringVar(&c.BaseURL, "base-url", "", "Service base URL, e.g. http://localhost:8080 (required)")
	flag.StringVar(&projects, "projects", "pyarrow,requests,numpy,pandas,boto3", "Comma-separated projects to query")
	flag.IntVar(&c.Total, "total", 1000, "Total requests")
	flag.IntVar(&c.Rate, "rate", 50, "Requests per second")
	flag.IntVar(&c.Concurrency, "concurrency", 0, "Worker count (0=auto)")
	flag.IntVar(&c.RepeatPercent, "repeat-percent", 50, "Share of requests that repeat an earlier query, exercising the result cache")
	flag.Parse()

	if c.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -base-url is required")
		flag.Usage()
		os.Exit(1)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	for _, project := range strings.Split(projects, ",") {
		if project = strings.TrimSpace(project); project != "" {
			c.Projects = append(c.Projects, project)
		}
	}
	if len(c.Projects) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -projects must name at least one project")
		os.Exit(1)
	}

	if c.Concurrency == 0 {
		c.Concurrency = c.Rate / 5
		if c.Concurrency < 10 {
			c.Concurrency = 10
		}
	}

	if c.RepeatPercent > 100 {
		c.RepeatPercent = 100
	} else if c.RepeatPercent < 0 {
		c.RepeatPercent = 0
	}

	return c
}

type Stats struct {
	ok      uint64
	errors  uint64
	latency int64 // microseconds
}

func (s *Stats) AddOK(duration time.Duration) {
	atomic.AddUint64(&s.ok, 1)
	atomic.AddInt64(&s.latency, duration.Microseconds())
}

func (s *Stats) AddError() {
	atomic.AddUint64(&s.errors, 1)
}

func (s *Stats) StartLogger(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastOK, lastErr uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok := atomic.LoadUint64(&s.ok)
			errs := atomic.LoadUint64(&s.errors)
			latTotal := atomic.LoadInt64(&s.latency)

			curOK := ok - lastOK
			curErr := errs - lastErr
			lastOK, lastErr = ok, errs

			avgLat := 0.0
			if ok > 0 {
				avgLat = float64(latTotal) / float64(ok) / 1000.0
			}

			log.Printf("[STATS] 1s -> OK: %d | ERR: %d | AvgLat: %.2fms | Total OK: %d", curOK, curErr, avgLat, ok)
		}
	}
}

// QueryPool remembers recently sent dashboard URLs so they can be replayed.
type QueryPool struct {
	mu  sync.RWMutex
	buf []string
	max int
}

func NewQueryPool(max int) *QueryPool {
	return &QueryPool{buf: make([]string, 0, max), max: max}
}

func (p *QueryPool) Add(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) >= p.max {
		p.buf = p.buf[1:]
	}
	p.buf = append(p.buf, target)
}

func (p *QueryPool) GetRandom(rng *rand.Rand) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.buf) == 0 {
		return "", false
	}
	return p.buf[rng.Intn(len(p.buf))], true
}

func main() {
	cfg := parseFlags()
	stats := &Stats{}
	pool := NewQueryPool(1000)

	client := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency,
			MaxIdleConnsPerHost: cfg.Concurrency,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	log.Printf("Starting Load Test: Target=%s Rate=%d/s Total=%d Workers=%d Repeat=%d%%", cfg.BaseURL, cfg.Rate, cfg.Total, cfg.Concurrency, cfg.RepeatPercent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go stats.StartLogger(ctx)

	jobs := make(chan struct{}, cfg.Rate*2)
	var wg sync.WaitGroup
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go startWorker(client, cfg, jobs, stats, pool, rand.New(rand.NewSource(rng.Int63())), &wg)
	}

	remaining := cfg.Total
	for remaining > 0 {
		start := time.Now()
		batch := cfg.Rate
		if remaining < batch {
			batch = remaining
		}

		for i := 0; i < batch; i++ {
			jobs <- struct{}{}
		}
		remaining -= batch

		elapsed := time.Since(start)
		if elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}

	close(jobs)
	wg.Wait()

	log.Printf("DONE. Total OK: %d | Total Errors: %d", atomic.LoadUint64(&stats.ok), atomic.LoadUint64(&stats.errors))
}

func startWorker(client *http.Client, cfg *Config, jobs <-chan struct{}, stats *Stats, pool *QueryPool, rng *rand.Rand, wg *sync.WaitGroup) {
	defer wg.Done()

	for range jobs {
		target := pickQuery(rng, cfg, pool)
		start := time.Now()

		if err := fetch(client, target); err != nil {
			stats.AddError()
		} else {
			stats.AddOK(time.Since(start))
		}
	}
}

func fetch(client *http.Client, target string) error {
	resp, err := client.Get(target)
	if err != nil {
		return err
	}

	// Drain the body so the connection is reused.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	return nil
}

var (
	endpoints     = []string{"downloads", "downloads/rolling", "summary", "breakdown", "weekdays"}
	presets       = []string{"7d", "14d", "28d", "91d", "182d", "365d"}
	buckets       = []string{"day", "week", "month"}
	groups        = []string{"", "version", "country", "installer", "type"}
	versionStyles = []string{"major", "major.minor", "exact"}
)

func pickQuery(rng *rand.Rand, cfg *Config, pool *QueryPool) string {
	if cfg.RepeatPercent > 0 && rng.Intn(100) < cfg.RepeatPercent {
		if target, ok := pool.GetRandom(rng); ok {
			return target
		}
	}
	target := generateRandomQuery(rng, cfg)
	pool.Add(target)
	return target
}

func generateRandomQuery(rng *rand.Rand, cfg *Config) string {
	project := cfg.Projects[rng.Intn(len(cfg.Projects))]
	endpoint := endpoints[rng.Intn(len(endpoints))]

	query := url.Values{}
	query.Set("preset", presets[rng.Intn(len(presets))])
	query.Set("version_style", versionStyles[rng.Intn(len(versionStyles))])

	switch endpoint {
	case "downloads", "downloads/rolling":
		query.Set("bucket", buckets[rng.Intn(len(buckets))])
		if group := groups[rng.Intn(len(groups))]; group != "" {
			query.Set("group_by", group)
		}
		if endpoint == "downloads" && rng.Intn(2) == 0 {
			query.Set("running_total", "true")
		}
	case "breakdown":
		query.Set("group_by", groups[1+rng.Intn(len(groups)-1)])
	}

	return fmt.Sprintf("%s/api/v1/projects/%s/%s?%s", cfg.BaseURL, url.PathEscape(project), endpoint, query.Encode())
}
