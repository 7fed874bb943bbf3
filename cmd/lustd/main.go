// Command lustd is Lust's server process: it loads configuration, wires
// storage, cache, dispatcher, and buckets, and serves the HTTP surface
// until terminated.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lust-img/lust/bucket"
	"github.com/lust-img/lust/cache"
	"github.com/lust-img/lust/config"
	"github.com/lust-img/lust/dispatcher"
	"github.com/lust-img/lust/facade"
	"github.com/lust-img/lust/hooks"
	"github.com/lust-img/lust/httpapi"
	"github.com/lust-img/lust/log"
	"github.com/lust-img/lust/processor/registry"
	"github.com/lust-img/lust/storage"
	"github.com/lust-img/lust/storage/filesystem"
	"github.com/lust-img/lust/storage/s3"
	"github.com/lust-img/lust/storage/scylla"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load("./config", "lust")
	if err != nil {
		log.L().Error().Err(err).Msg("failed to load config")
		os.Exit(2)
	}

	log.Init(log.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: cfg.Log.ServiceName})
	l := log.L()
	l.Info().Msg("lustd starting")

	backend, err := buildBackend(cfg)
	if err != nil {
		l.Error().Err(err).Msg("failed to init storage backend")
		os.Exit(2)
	}

	reg := registry.NewDefault()

	disp := dispatcher.New(dispatcher.Config{GlobalConcurrency: cfg.MaxConcurrency})
	disp.Start(0)
	defer disp.Stop()

	obs := hooks.LoggingObserver{}
	metrics := hooks.NewMetrics()
	multi := hooks.Multi{obs, metrics}

	buckets := make(map[string]*bucket.Controller, len(cfg.Buckets))
	for slug := range cfg.Buckets {
		policy, err := cfg.BucketPolicy(slug)
		if err != nil {
			l.Error().Err(err).Str("bucket", slug).Msg("invalid bucket policy")
			os.Exit(2)
		}

		var bucketCache *cache.Cache
		if cc := cfg.CacheConfigFor(slug); cc != nil {
			bucketCache = cache.New(*cc)
		}

		ctl := bucket.New(policy, backend, bucketCache, disp, reg, 0)
		ctl.SetObserver(multi)
		buckets[slug] = ctl
		l.Info().Str("bucket", slug).Str("mode", string(policy.Mode)).Msg("bucket registered")
	}

	router := facade.NewRouter(buckets)
	server := httpapi.NewServer(router, cfg.BaseServingPath)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	server.Register(engine)

	addr := listenAddr()
	httpServer := &http.Server{Addr: addr, Handler: engine}

	serveErrCh := make(chan error, 1)
	go func() {
		l.Info().Str("addr", addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrCh:
		if err != nil {
			l.Error().Err(err).Msg("http server failed")
			os.Exit(1)
		}
	case <-sigCh:
		l.Info().Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}

	snap := metrics.Snapshot()
	l.Info().Int64("total_bytes", snap.TotalBytes).Msg("shutdown complete")
}

func buildBackend(cfg config.Config) (storage.Backend, error) {
	kind, err := cfg.Backend.Kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case config.BackendFilesystem:
		return filesystem.New(cfg.Backend.Filesystem.RootDir)
	case config.BackendBlobstore:
		b := cfg.Backend.Blobstore
		return s3.New(context.Background(), s3.Config{
			Endpoint:        b.Endpoint,
			Region:          b.Region,
			Bucket:          b.Bucket,
			AccessKeyID:     b.AccessKeyID,
			SecretAccessKey: b.SecretAccessKey,
			UsePathStyle:    b.UsePathStyle,
		})
	case config.BackendScylla:
		sc := cfg.Backend.Scylla
		return scylla.New(scylla.Config{
			Hosts:          sc.Hosts,
			Keyspace:       sc.Keyspace,
			Consistency:    sc.Consistency,
			ConnectTimeout: time.Duration(sc.ConnectTimeoutSec) * time.Second,
			Timeout:        time.Duration(sc.TimeoutSec) * time.Second,
		})
	default:
		return nil, fmt.Errorf("lustd: unsupported backend %q", kind)
	}
}

func listenAddr() string {
	if addr := os.Getenv("LUST_LISTEN_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}
