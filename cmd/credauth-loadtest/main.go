package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/internal/envconfig"
	"github.com/MrEthical07/credauth/metrics/export/prometheus"
	"github.com/MrEthical07/credauth/password"
	"github.com/MrEthical07/credauth/store/memory"
	"github.com/MrEthical07/credauth/store/redisstore"
	"github.com/MrEthical07/credauth/store/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type identity struct {
	id         string
	credential string
}

// enroller is implemented by every bundled store.
type enroller interface {
	credauth.CredentialStore
	Enroll(ctx context.Context, id, credential string, stretcher *password.Stretcher) (string, error)
}

type memoryEnroller struct{ *memory.Store }

func (m memoryEnroller) Enroll(_ context.Context, id, credential string, stretcher *password.Stretcher) (string, error) {
	return m.Store.Enroll(id, credential, stretcher)
}

// staticMX answers every MX lookup so seeded domains pass validation.
type staticMX struct{}

func (staticMX) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	return []*net.MX{{Host: "mx." + name, Pref: 10}}, nil
}

func main() {
	settings, err := envconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	var (
		identities  = flag.Int("identities", 1000, "number of identities to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "authentication attempts to run")
		wrongRatio  = flag.Float64("wrong-ratio", 0.1, "fraction of attempts made with a wrong credential")
		backend     = flag.String("backend", "redis", "credential store: redis, postgres or memory")
		redisAddr   = flag.String("redis-addr", settings.Redis.Addr, "redis address; if empty, REDIS_ADDR env or miniredis is used")
		iterations  = flag.Int("iterations", settings.Hasher.Iterations, "key-stretching rounds")
		realDNS     = flag.Bool("real-dns", false, "resolve MX records instead of accepting every domain")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *ops <= 0 || *wrongRatio < 0 || *wrongRatio > 1 {
		fmt.Fprintln(os.Stderr, "identities, concurrency and ops must be > 0 and wrong-ratio within [0,1]")
		os.Exit(2)
	}

	logger, err := settings.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	settings.Hasher.Iterations = *iterations
	settings.Metrics.Enabled = true
	settings.Metrics.Histograms = true
	cfg, err := settings.EngineConfig()
	if err != nil {
		logger.Fatal("engine config", zap.Error(err))
	}

	ctx := context.Background()

	store, cleanup, err := openStore(ctx, *backend, *redisAddr, settings, logger)
	if err != nil {
		logger.Fatal("open store", zap.String("backend", *backend), zap.Error(err))
	}
	defer cleanup()

	builder := credauth.New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithLogger(logger.Named("engine"))
	if !*realDNS {
		builder = builder.WithResolver(staticMX{})
	}
	engine, err := builder.Build()
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}
	defer engine.Close()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: prometheus.NewExporter(engine).Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	stretcher, err := password.NewStretcher(password.Config{Iterations: cfg.Hasher.Iterations, Digest: cfg.Hasher.Digest})
	if err != nil {
		logger.Fatal("stretcher", zap.Error(err))
	}

	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	states := make([]identity, *identities)
	logger.Info("seeding identities", zap.Int("count", *identities), zap.String("backend", *backend))
	startSeed := time.Now()
	for i := range states {
		states[i] = identity{
			id:         fmt.Sprintf("user-%d@loadtest.example.com", i),
			credential: randomHexCredential(seed),
		}
		if _, err := store.Enroll(ctx, states[i].id, states[i].credential, stretcher); err != nil {
			logger.Fatal("enroll", zap.Error(err))
		}
	}
	logger.Info("seeded", zap.Duration("took", time.Since(startSeed).Round(time.Millisecond)))

	stats := runPhase(ctx, engine, states, *ops, *concurrency, *wrongRatio)

	fmt.Println("---- results ----")
	printStats("authenticate", stats)
	for o := credauth.OutcomePassed; o <= credauth.OutcomeOther; o++ {
		fmt.Printf("  %-26s %d\n", o, stats.outcomes[o])
	}
	fmt.Printf("  audit events dropped      %d\n", engine.AuditDropped())
}

func openStore(ctx context.Context, backend, redisAddr string, settings *envconfig.Settings, logger *zap.Logger) (enroller, func(), error) {
	switch backend {
	case "memory":
		return memoryEnroller{memory.New()}, func() {}, nil

	case "postgres":
		if settings.Postgres.DSN == "" {
			return nil, nil, fmt.Errorf("CREDAUTH_POSTGRES_DSN is required for the postgres backend")
		}
		db, err := sqlstore.Open(ctx, settings.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlstore.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlstore.New(db), func() { _ = db.Close() }, nil

	case "redis":
		addr := redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}

		var mr *miniredis.Miniredis
		if addr == "" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return nil, nil, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
			logger.Info("using miniredis", zap.String("addr", addr))
		} else {
			logger.Info("using redis", zap.String("addr", addr))
		}

		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{addr},
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})
		cleanup := func() {
			_ = client.Close()
			if mr != nil {
				mr.Close()
			}
		}
		return redisstore.New(client, redisstore.Config{Prefix: settings.Redis.Prefix}), cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	outcomes [credauth.OutcomeOther + 1]int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func runPhase(ctx context.Context, engine *credauth.Engine, states []identity, ops, concurrency int, wrongRatio float64) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		outcomes  [credauth.OutcomeOther + 1]int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			wrong := randomHexCredential(r)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				st := states[r.Intn(len(states))]
				cred := st.credential
				if r.Float64() < wrongRatio {
					cred = wrong
				}

				reqCtx := credauth.WithRequestID(ctx, fmt.Sprintf("lt-%d", i))
				t0 := time.Now()
				res, _ := engine.Authenticate(reqCtx, st.id, cred, credauth.ModeDatabase)
				d := time.Since(t0)

				atomic.AddInt64(&outcomes[res.Outcome], 1)
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	stats := computeStats(time.Since(start), latencies)
	stats.outcomes = outcomes
	return stats
}

func computeStats(total time.Duration, samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d passed=%d locked=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.outcomes[credauth.OutcomePassed],
		s.outcomes[credauth.OutcomeLocked],
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func randomHexCredential(r *rand.Rand) string {
	buf := make([]byte, 64)
	_, _ = r.Read(buf)
	return hex.EncodeToString(buf)
}
