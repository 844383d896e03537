// Command loadgen is a small load generator for fileserverd: it issues
// concurrent GET requests against a running server at a configured rate
// and reports throughput, the load-testing counterpart to the teacher's
// tools/benchmarks/parallelget comparison tool.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	ratePerSec  float64
)

var rootCmd = &cobra.Command{
	Use:   "loadgen <url>",
	Short: "Generate concurrent load against a fileserverd instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 16, "number of concurrent client goroutines")
	rootCmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to generate load")
	rootCmd.Flags().Float64Var(&ratePerSec, "rate", 0, "requests per second across all clients combined, 0 = unlimited")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "loadgen: %v\n", err)
		os.Exit(1)
	}
}

// result tallies outcome counts shared by all client goroutines, updated
// atomically.
type result struct {
	requests int64
	errors   int64
	bytes    int64
}

func runLoad(cmd *cobra.Command, args []string) error {
	targetURL = args[0]

	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), max(1, int(ratePerSec)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var total result
	var wg sync.WaitGroup
	client := &http.Client{Timeout: 5 * time.Second}

	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, client, limiter, &total)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	requests := atomic.LoadInt64(&total.requests)
	errs := atomic.LoadInt64(&total.errors)
	bytes := atomic.LoadInt64(&total.bytes)

	fmt.Printf("requests: %d (%d errors) in %v\n", requests, errs, elapsed)
	fmt.Printf("throughput: %.1f req/s, %.2f MB/s\n",
		float64(requests)/elapsed.Seconds(), float64(bytes)/elapsed.Seconds()/(1024*1024))
	return nil
}

func worker(ctx context.Context, client *http.Client, limiter *rate.Limiter, total *result) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
		if err != nil {
			atomic.AddInt64(&total.errors, 1)
			return
		}
		resp, err := client.Do(req)
		if err != nil {
			atomic.AddInt64(&total.errors, 1)
			continue
		}
		n, _ := io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		atomic.AddInt64(&total.requests, 1)
		atomic.AddInt64(&total.bytes, n)
		if resp.StatusCode >= 400 {
			atomic.AddInt64(&total.errors, 1)
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
