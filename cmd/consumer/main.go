package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"

	"github.com/example/ride-dashboards/internal/config"
	"github.com/example/ride-dashboards/internal/logging"
	"github.com/example/ride-dashboards/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_ride_requests_consumed_total",
		Help: "Total ride request messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_ride_requests_invalid_total",
		Help: "Total invalid ride request messages received",
	})
	redisPushes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_pushes_total",
		Help: "Total ride requests appended to the pending list",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisPushes, redisErrors)
}

func main() {
	flags := pflag.NewFlagSet("consumer", pflag.ExitOnError)
	metricsAddr := flags.String("metrics-addr", "", "address to serve prometheus metrics on (overrides METRICS_ADDR)")
	_ = flags.Parse(os.Args[1:])

	v, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		v.Set("METRICS_ADDR", *metricsAddr)
	}
	cfg, err := config.LoadConsumerConfig(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	sink := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaRequestsTopic, GroupID: cfg.KafkaGroup, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaRequestsTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		req, err := decodeRequest(m.Value)
		if err != nil {
			msgsInvalid.Inc()
			logger.Warn("invalid ride request", "error", err, "offset", m.Offset)
			continue
		}

		if err := pushWithRetry(ctx, sink, cfg.RedisPendingKey, req, 3, 200*time.Millisecond); err != nil {
			redisErrors.Inc()
			logger.Error("redis push failed", "request", req.ID, "error", err)
			continue
		}
		redisPushes.Inc()
	}
}

func decodeRequest(b []byte) (models.RideRequest, error) {
	var req models.RideRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return req, err
	}
	return req, req.Validate()
}

// RequestSink is the one redis operation the consumer needs.
type RequestSink interface {
	RPush(ctx context.Context, key string, value []byte) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) RPush(ctx context.Context, key string, value []byte) error {
	return r.c.RPush(ctx, key, value).Err()
}

// pushWithRetry appends the request to the pending list, retrying with
// doubling delay.
func pushWithRetry(ctx context.Context, sink RequestSink, key string, req models.RideRequest, attempts int, delay time.Duration) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = sink.RPush(ctx, key, b); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
