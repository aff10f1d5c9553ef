package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/mcclient"
	"github.com/pior/mcclient/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type operation string

const (
	cacheHit     operation = "cache-hit"
	dynamicValue operation = "dynamic-value"
	cacheMiss    operation = "cache-miss"
	increment    operation = "increment"
	deleteOp     operation = "delete"
	multiGet     operation = "multi-get"
	all          operation = "all"
)

var operations = []operation{cacheHit, dynamicValue, cacheMiss, increment, deleteOp, multiGet}

type benchmarkResult struct {
	operation    operation
	duration     time.Duration
	totalOps     int64
	successes    int64
	failures     int64
	avgLatency   time.Duration
	opsPerSecond float64
	correct      bool
	errorMessage string
}

// opFunc runs one iteration for a worker. It reports whether the result was
// the expected one.
type opFunc func(ctx context.Context, client *mcclient.Client, worker, i int) (bool, error)

var errMismatch = errors.New("value mismatch")

func main() {
	var (
		op          = flag.String("operation", "all", "Operation: cache-hit, dynamic-value, cache-miss, increment, delete, multi-get, or all")
		duration    = flag.Duration("duration", 5*time.Second, "Duration of each benchmark")
		concurrency = flag.Int("concurrency", 1, "Number of concurrent workers")
		servers     = flag.String("servers", "localhost:11211", "Comma-separated list of memcached servers")
		compress    = flag.Int("compress", 0, "Compress values of at least this many bytes (0 disables)")
		metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	)
	flag.Parse()

	fmt.Printf("mcclient benchmark\n")
	fmt.Printf("==================\n")
	fmt.Printf("Operation: %s\n", *op)
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Servers: %s\n", *servers)
	fmt.Println()

	client, err := mcclient.New(mcclient.NewStaticServers(strings.Split(*servers, ",")...), mcclient.Config{
		MaxSize:           1,
		Timeout:           5 * time.Second,
		CompressThreshold: *compress,
		NewCircuitBreaker: mcclient.NewCircuitBreakerConfig(1, 10*time.Second, 5*time.Second),
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	fmt.Print("Testing connection...")
	if _, _, err := client.Get(context.Background(), "test-connection-key"); err != nil {
		fmt.Printf(" failed: %v\n", err)
		fmt.Printf("Make sure memcached is running on %s\n", *servers)
		return
	}
	fmt.Println(" success!")
	fmt.Println()

	// Workers each clone the client; the collector reports the seed client.
	if *metricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(metrics.NewCollector(client))
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	selected := operations
	if operation(*op) != all {
		selected = []operation{operation(*op)}
	}

	for _, o := range selected {
		fmt.Printf("--- Running %s benchmark ---\n", o)
		printResult(runOperation(client, o, *duration, *concurrency))
	}
}

func runOperation(client *mcclient.Client, op operation, duration time.Duration, concurrency int) *benchmarkResult {
	ctx := context.Background()

	var fn opFunc
	switch op {
	case cacheHit:
		if _, err := client.Set(ctx, "cache-hit-key", "cache-hit-value", mcclient.WithTTL(time.Hour)); err != nil {
			return failed(op, fmt.Errorf("setting initial value: %w", err))
		}
		fn = func(ctx context.Context, c *mcclient.Client, _, _ int) (bool, error) {
			v, ok, err := c.Get(ctx, "cache-hit-key")
			return ok && string(v.Bytes()) == "cache-hit-value", err
		}

	case dynamicValue:
		fn = func(ctx context.Context, c *mcclient.Client, worker, i int) (bool, error) {
			key := fmt.Sprintf("dynamic-key-%d-%d", worker, i)
			if _, err := c.Set(ctx, key, int64(i), mcclient.WithTTL(time.Hour)); err != nil {
				return false, err
			}
			v, ok, err := c.Get(ctx, key)
			n, isInt := v.Int()
			return ok && isInt && n == int64(i), err
		}

	case cacheMiss:
		fn = func(ctx context.Context, c *mcclient.Client, worker, i int) (bool, error) {
			_, ok, err := c.Get(ctx, fmt.Sprintf("nonexistent-key-%d-%d", worker, i))
			return !ok, err
		}

	case increment:
		if _, err := client.Set(ctx, "increment-key", []byte("0"), mcclient.WithTTL(time.Hour)); err != nil {
			return failed(op, fmt.Errorf("initializing counter: %w", err))
		}
		fn = func(ctx context.Context, c *mcclient.Client, _, _ int) (bool, error) {
			_, ok, err := c.Incr(ctx, "increment-key", 1)
			return ok, err
		}

	case deleteOp:
		fn = func(ctx context.Context, c *mcclient.Client, worker, i int) (bool, error) {
			key := fmt.Sprintf("delete-key-%d-%d", worker, i)
			if _, err := c.Set(ctx, key, true, mcclient.WithTTL(time.Hour)); err != nil {
				return false, err
			}
			return c.Delete(ctx, key)
		}

	case multiGet:
		items := make([]mcclient.Item, 10)
		keys := make([]string, 10)
		for i := range items {
			keys[i] = "multi-key-" + strconv.Itoa(i)
			items[i] = mcclient.Item{Key: keys[i], Value: i}
		}
		if _, err := client.SetMulti(ctx, items, mcclient.WithTTL(time.Hour)); err != nil {
			return failed(op, fmt.Errorf("setting initial values: %w", err))
		}
		fn = func(ctx context.Context, c *mcclient.Client, _, _ int) (bool, error) {
			values, err := c.GetMulti(ctx, keys)
			return len(values) == len(keys), err
		}

	default:
		return failed(op, fmt.Errorf("unknown operation: %s", op))
	}

	return runWorkers(client, op, duration, concurrency, fn)
}

func runWorkers(client *mcclient.Client, op operation, duration time.Duration, concurrency int, fn opFunc) *benchmarkResult {
	result := &benchmarkResult{operation: op, correct: true}
	var totalOps, successes, failures, totalLatency atomic.Int64
	var mismatch atomic.Bool

	ctx := context.Background()
	startTime := time.Now()
	var wg sync.WaitGroup

	for w := range concurrency {
		c, err := client.Clone()
		if err != nil {
			return failed(op, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer c.Close()

			for i := 0; time.Since(startTime) < duration; i++ {
				opStart := time.Now()
				ok, err := fn(ctx, c, w, i)
				totalLatency.Add(int64(time.Since(opStart)))
				totalOps.Add(1)

				switch {
				case err != nil:
					failures.Add(1)
				case !ok:
					failures.Add(1)
					mismatch.Store(true)
				default:
					successes.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	result.duration = time.Since(startTime)
	result.totalOps = totalOps.Load()
	result.successes = successes.Load()
	result.failures = failures.Load()
	if mismatch.Load() {
		result.correct = false
		result.errorMessage = errMismatch.Error()
	}

	if result.totalOps > 0 {
		result.avgLatency = time.Duration(totalLatency.Load() / result.totalOps)
		result.opsPerSecond = float64(result.totalOps) / result.duration.Seconds()
	}
	return result
}

func failed(op operation, err error) *benchmarkResult {
	return &benchmarkResult{operation: op, errorMessage: err.Error()}
}

func printResult(result *benchmarkResult) {
	fmt.Printf("Operation: %s\n", result.operation)
	fmt.Printf("Duration: %v\n", result.duration)
	fmt.Printf("Total Operations: %d\n", result.totalOps)
	fmt.Printf("Successes: %d\n", result.successes)
	fmt.Printf("Failures: %d\n", result.failures)
	if result.totalOps > 0 {
		fmt.Printf("Success Rate: %.2f%%\n", float64(result.successes)/float64(result.totalOps)*100)
		fmt.Printf("Ops/sec: %.2f\n", result.opsPerSecond)
		fmt.Printf("Avg Latency: %v\n", result.avgLatency)
	}
	fmt.Printf("Correctness: %t\n", result.correct)
	if result.errorMessage != "" {
		fmt.Printf("Error: %s\n", result.errorMessage)
	}
	fmt.Println()
}
