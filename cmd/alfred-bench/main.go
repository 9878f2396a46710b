package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Smattr/alfred/pkg/client"
	"github.com/panjf2000/ants/v2"
)

type benchConfig struct {
	Addr        string
	Concurrency int
	TotalOps    int
	Statement   string
}

func main() {
	addr := flag.String("addr", "localhost:3876", "Server address")
	concurrency := flag.Int("c", 8, "Number of concurrent request issuers")
	ops := flag.Int("n", 10000, "Total number of requests")
	stmt := flag.String("stmt", "SELECT 1 AS x;", "Statement to execute")
	flag.Parse()

	cfg := benchConfig{
		Addr:        *addr,
		Concurrency: *concurrency,
		TotalOps:    *ops,
		Statement:   *stmt,
	}

	fmt.Printf("Starting alfred-bench\n")
	fmt.Printf("   Server: %s\n   Issuers: %d\n   Total requests: %d\n   Statement: %s\n",
		cfg.Addr, cfg.Concurrency, cfg.TotalOps, cfg.Statement)

	runBenchmark(cfg)
}

func runBenchmark(cfg benchConfig) {
	// The server answers one connection at a time, so every issuer
	// shares this one connection. Concurrency controls how many
	// requests are queued waiting on it, not how many are in flight.
	cli, err := client.Dial(cfg.Addr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer cli.Close()

	pool, err := ants.NewPool(cfg.Concurrency, ants.WithPanicHandler(func(v any) {
		log.Printf("Issuer panic: %v", v)
	}))
	if err != nil {
		log.Fatalf("Failed to create issuer pool: %v", err)
	}
	defer func() { _ = pool.ReleaseTimeout(3 * time.Second) }()

	var wg sync.WaitGroup
	latencies := make(chan time.Duration, cfg.TotalOps)
	failures := make(chan error, cfg.TotalOps)

	start := time.Now()
	for i := 0; i < cfg.TotalOps; i++ {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()

			opStart := time.Now()
			result, err := cli.Exec(cfg.Statement)
			if err != nil {
				failures <- err
				return
			}
			if !result.Ok() {
				failures <- fmt.Errorf("request %d: %s", result.ID, result.Err)
				return
			}
			latencies <- time.Since(opStart)
		}); err != nil {
			wg.Done()
			failures <- err
		}
	}

	wg.Wait()
	close(latencies)
	close(failures)

	report(cfg, time.Since(start), latencies, failures)
}

func report(cfg benchConfig, duration time.Duration, latencies chan time.Duration, failures chan error) {
	var totalLatency time.Duration
	var latList []float64
	for l := range latencies {
		totalLatency += l
		latList = append(latList, float64(l.Microseconds())/1000.0) // ms
	}

	errCount := 0
	for err := range failures {
		errCount++
		if errCount <= 5 {
			fmt.Printf("Error sample: %v\n", err)
		}
	}

	opsCount := len(latList)
	if opsCount == 0 {
		fmt.Println("\nNo requests completed.")
		return
	}

	throughput := float64(opsCount) / duration.Seconds()
	avgLatency := totalLatency.Seconds() * 1000 / float64(opsCount)

	sort.Float64s(latList)

	fmt.Println("\nResults:")
	fmt.Printf("   Duration:    %v\n", duration)
	fmt.Printf("   Throughput:  %.2f requests/sec\n", throughput)
	fmt.Printf("   Avg latency: %.2f ms\n", avgLatency)
	fmt.Printf("   P50 latency: %.2f ms\n", percentile(latList, 0.50))
	fmt.Printf("   P95 latency: %.2f ms\n", percentile(latList, 0.95))
	fmt.Printf("   P99 latency: %.2f ms\n", percentile(latList, 0.99))
	fmt.Printf("   Errors:      %d (%.2f%%)\n", errCount, float64(errCount)/float64(cfg.TotalOps)*100)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}
