// Command hotkeys drives a tracker with a synthetic Zipf workload and
// exposes its hot keys over HTTP (/topkeys, /stats), Prometheus metrics
// (/metrics) and, optionally, pprof.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/jedisct1/dlog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/IvanBrykalov/hotkeys/internal/config"
	"github.com/IvanBrykalov/hotkeys/internal/report"
	pmet "github.com/IvanBrykalov/hotkeys/metrics/prom"
	"github.com/IvanBrykalov/hotkeys/topkeys"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to the TOML configuration file")
		envFile    = flag.String("env", ".env", "environment file with HOTKEYS_* overrides")
		capacity   = flag.Int("capacity", 0, "tracked keys (overrides config)")
		policyName = flag.String("policy", "", "lru | lossy | spacesaving | cms (overrides config)")
		shards     = flag.Int("shards", 0, "tracker shards, -1 = auto (overrides config)")
		workers    = flag.Int("workers", 0, "workload goroutines (overrides config)")
		duration   = flag.Duration("duration", 0, "workload duration (overrides config)")
		listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
		withPprof  = flag.Bool("pprof", false, "serve /debug/pprof/ on the HTTP listener")
		top        = flag.Int("top", 10, "keys printed on exit")
	)
	flag.Parse()

	dlog.Init("hotkeys", dlog.SeverityNotice, "DAEMON")

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		dlog.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "capacity":
			cfg.Capacity = *capacity
		case "policy":
			cfg.Policy = *policyName
		case "shards":
			cfg.Shards = *shards
		case "workers":
			cfg.Workers = *workers
		case "duration":
			cfg.Duration = int(duration.Seconds())
		case "listen":
			cfg.ListenAddress = *listen
		}
	})
	if err := cfg.Validate(); err != nil {
		dlog.Fatal(err)
	}
	sev, _ := cfg.Severity()
	dlog.SetLogLevel(sev)
	if cfg.LogFile != "" {
		dlog.UseLogFile(cfg.LogFile)
	}

	if err := run(cfg, *withPprof, *top); err != nil {
		dlog.Fatal(err)
	}
}

func loadConfig(path, envFile string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(cfg config.Config, withPprof bool, top int) error {
	opt, err := cfg.TrackerOptions()
	if err != nil {
		return err
	}
	opt.Metrics = pmet.New(nil, "hotkeys", "tracker", nil)
	tr, err := topkeys.New(opt)
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	start := time.Now()
	clock := func() topkeys.RelTime { return topkeys.RelTime(time.Since(start) / time.Second) }

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := cfg.RunFor(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           newMux(tr, clock, withPprof),
		ReadHeaderTimeout: 5 * time.Second,
	}
	var ops atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dlog.Noticef("serving /metrics /topkeys /stats on %s", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return logThroughput(gctx, tr, &ops) })
	if cfg.DumpFile != "" && cfg.DumpInterval > 0 {
		out := &lumberjack.Logger{
			Filename:   cfg.DumpFile,
			MaxSize:    cfg.LogMaxSize,
			MaxAge:     cfg.LogMaxAge,
			MaxBackups: cfg.LogMaxBackups,
			LocalTime:  true,
			Compress:   true,
		}
		defer out.Close()
		d := &report.Dumper{Tracker: tr, Out: out, Interval: cfg.DumpEvery(), Clock: clock}
		g.Go(func() error { return d.Run(gctx) })
	}
	for w := 0; w < cfg.Workers; w++ {
		seed := cfg.Seed + int64(w)*9973
		g.Go(func() error { return work(gctx, tr, cfg, seed, clock, &ops) })
	}

	err = g.Wait()
	elapsed := time.Since(start)
	n := ops.Load()
	c := tr.Counters()
	fmt.Printf("policy=%s capacity=%d shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		opt.Kind, cfg.Capacity, cfg.Shards, cfg.Workers, cfg.Keys, elapsed.Round(time.Millisecond), cfg.Seed)
	fmt.Printf("ops=%d (%.0f ops/s) hits=%d misses=%d evictions=%d rejections=%d tracked=%d\n",
		n, float64(n)/elapsed.Seconds(), c.Hits, c.Misses, c.Evictions, c.Rejections, tr.Len())
	for _, e := range report.Snapshot(tr, clock(), top).Keys {
		fmt.Printf("%3d %-24s counter=%d error=%d atime=%d\n", e.Rank, e.Key, e.Counter, e.Error, e.AccessedAge)
	}
	return err
}

// work records Zipf-distributed accesses until ctx is done.
func work(ctx context.Context, tr topkeys.Tracker, cfg config.Config, seed int64, clock func() topkeys.RelTime, ops *atomic.Uint64) error {
	// rand.Rand is not safe for concurrent use: one per worker.
	r := rand.New(rand.NewSource(seed))
	z := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, cfg.Keys-1)
	key := make([]byte, 0, 32)
	for i := 0; ; i++ {
		if i&1023 == 0 {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
		key = strconv.AppendUint(append(key[:0], "key:"...), z.Uint64(), 10)
		op := topkeys.GetHits
		if r.Intn(100) < cfg.WritePct {
			op = topkeys.CmdSet
		}
		if _, _, err := tr.Update(key, clock(), op); err != nil && !errors.Is(err, topkeys.ErrOutOfMemory) {
			return err
		}
		ops.Add(1)
	}
}

// logThroughput logs the access rate every second, smoothed by an EWMA.
func logThroughput(ctx context.Context, tr topkeys.Tracker, ops *atomic.Uint64) error {
	avg := ewma.NewMovingAverage()
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	last, lastAt := ops.Load(), time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			n := ops.Load()
			rate := float64(n-last) / now.Sub(lastAt).Seconds()
			avg.Add(rate)
			last, lastAt = n, now
			dlog.Infof("%.0f ops/s (avg %.0f), tracked=%d", rate, avg.Value(), tr.Len())
		}
	}
}

func newMux(tr topkeys.Tracker, clock func() topkeys.RelTime, withPprof bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	// Concurrent /topkeys requests with the same limit share one snapshot.
	var group singleflight.Group
	mux.HandleFunc("/topkeys", func(w http.ResponseWriter, r *http.Request) {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 0 {
			limit = 0
		}
		v, err, _ := group.Do("topkeys:"+strconv.Itoa(limit), func() (any, error) {
			var buf bytes.Buffer
			if err := report.WriteJSON(&buf, report.Snapshot(tr, clock(), limit)); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(v.([]byte))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteStats(w, tr, clock()); err != nil {
			dlog.Warnf("stats: %v", err)
		}
	})

	if withPprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}
