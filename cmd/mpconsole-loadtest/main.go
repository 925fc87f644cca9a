package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/mpconsole/jwt"
	"github.com/MrEthical07/mpconsole/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// shell is one console instance with its own key prefix.
type shell struct {
	store *session.Store
	mu    sync.Mutex
	gen   int
}

func main() {
	var (
		shells      = flag.Int("shells", 10000, "number of console sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (load + set + clear)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "session key prefix")
	)
	flag.Parse()

	if *shells <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "shells, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:        24 * time.Hour,
		PrivateKey: []byte("loadtest-secret"),
		Issuer:     "mpconsole-loadtest",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "token manager: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	states := make([]*shell, *shells)
	fmt.Printf("seeding %d sessions...\n", *shells)
	startSeed := time.Now()
	for i := 0; i < *shells; i++ {
		p := session.NewRedisPersister(client, fmt.Sprintf("%s:%d:", *prefix, i))
		st := session.NewStore(p, logger)
		cred, err := credentialFor(tokens, i, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		if err := st.Set(ctx, cred); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = &shell{store: st}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loadStats := runPhase(states, *ops, *concurrency, 7919, func(i int, s *shell) error {
		if s.store.Load(ctx).Token == "" {
			return fmt.Errorf("shell %d: empty session", i)
		}
		return nil
	})
	setStats := runPhase(states, *ops, *concurrency, 6151, func(i int, s *shell) error {
		cred, err := credentialFor(tokens, i, s.gen+1)
		if err != nil {
			return err
		}
		if err := s.store.Set(ctx, cred); err != nil {
			return err
		}
		s.gen++
		return nil
	})
	clearStats := runPhase(states, *ops, *concurrency, 4099, func(i int, s *shell) error {
		if err := s.store.Clear(ctx); err != nil {
			return err
		}
		cred, err := credentialFor(tokens, i, s.gen+1)
		if err != nil {
			return err
		}
		s.gen++
		return s.store.Set(ctx, cred)
	})

	fmt.Println("---- results ----")
	printStats("load", loadStats)
	printStats("set", setStats)
	printStats("clear+set", clearStats)
}

// runPhase spreads ops random shell operations over concurrency workers.
// Operations on the same shell are serialized.
func runPhase(states []*shell, ops, concurrency int, seed int64, op func(int, *shell) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				s := states[idx]

				s.mu.Lock()
				t0 := time.Now()
				err := op(idx, s)
				d := time.Since(t0)
				s.mu.Unlock()
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-9s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name+":",
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func credentialFor(tokens *jwt.Manager, shell, gen int) (session.Credential, error) {
	username := fmt.Sprintf("user-%d", shell)
	token, err := tokens.Issue(fmt.Sprintf("uid-%d-%d", shell, gen), username)
	if err != nil {
		return session.Credential{}, err
	}
	return session.Credential{Token: token, Username: username}, nil
}
