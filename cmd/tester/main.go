package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-resty/resty/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/config"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/internal/webhook"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

// DeliveryDetail describes one webhook callback to send.
type DeliveryDetail struct {
	Event     string
	Recipient string
	MessageID string
}

// BatchTask is a batch of deliveries handled by one pool worker.
type BatchTask struct {
	Deliveries []DeliveryDetail
	Client     *resty.Client
	SigningKey string
}

const defaultBatchSize = 50

func main() {
	// --- Configuration & Flag Parsing ---
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	targetURL := flag.String("url", fmt.Sprintf("http://localhost:%d/api/webhooks/mailgun", cfg.Server.Port), "Webhook endpoint URL")
	signingKey := flag.String("signing-key", cfg.Mailgun.WebhookSigningKey, "Mailgun webhook signing key")
	eventsStr := flag.String("events", "opened,clicked,delivered", "Comma-separated list of event names to cycle through")
	recipient := flag.String("recipient", "", "Fixed recipient address (random when empty)")
	messageID := flag.String("message-id", "", "Fixed message id (random when empty)")
	rate := flag.Int("rate", 50, "Target deliveries per second (total)")
	duration := flag.Duration("duration", 1*time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Number of deliveries per worker batch")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-request timeout")
	metricsPort := flag.Int("metrics-port", 9091, "Port for Prometheus metrics endpoint")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Mailgun Webhook Load Generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sends signed engagement callbacks to the lead outreach service.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *batchSize <= 0 {
		*batchSize = defaultBatchSize
		fmt.Printf("Invalid batch size, using default: %d\n", defaultBatchSize)
	}
	if *rate <= 0 {
		fmt.Println("rate must be positive")
		os.Exit(1)
	}

	// --- Initialization ---
	if err := logger.Initialize(*logLevel, true); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := startMetricsServer(*metricsPort)
	var metricsWg sync.WaitGroup
	metricsWg.Add(1)
	go func() {
		defer metricsWg.Done()
		<-ctx.Done()
		logger.Log.Info("Shutting down metrics server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Metrics server shutdown error", zap.Error(err))
		}
	}()

	events := strings.Split(*eventsStr, ",")
	if len(events) == 0 || events[0] == "" {
		logger.Log.Fatal("No events provided")
	}
	if *signingKey == "" {
		logger.Log.Warn("No signing key set, deliveries only pass a bypass verifier")
	}

	logger.Log.Info("Starting Mailgun Webhook Load Generator",
		zap.String("url", *targetURL),
		zap.Strings("events", events),
		zap.Int("rate_per_sec", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
		zap.Int("batch_size", *batchSize),
		zap.Int("metrics_port", *metricsPort),
	)

	gofakeit.Seed(time.Now().UnixNano())

	client := resty.New().
		SetTimeout(*timeout).
		SetHeader("Content-Type", "application/json")

	// --- Worker Pool Setup ---
	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(*concurrency, func(data interface{}) {
		batchWorkerFunc(ctx, data, *targetURL, &wg)
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var loopWg sync.WaitGroup
	loopWg.Add(1)
	newDelivery := func(i int) DeliveryDetail {
		d := DeliveryDetail{
			Event:     strings.TrimSpace(events[i%len(events)]),
			Recipient: *recipient,
			MessageID: *messageID,
		}
		if d.Recipient == "" {
			d.Recipient = gofakeit.Email()
		}
		if d.MessageID == "" {
			d.MessageID = fmt.Sprintf("<%s@%s>", gofakeit.UUID(), gofakeit.DomainName())
		}
		return d
	}
	go runBatchLoadLoop(ctx, *rate, *duration, *batchSize, newDelivery, BatchTask{Client: client, SigningKey: *signingKey}, pool, &wg, &loopWg)

	done := make(chan struct{})
	go func() {
		loopWg.Wait()
		close(done)
	}()

	select {
	case sig := <-sigChan:
		logger.Log.Info("Received termination signal, shutting down...", zap.String("signal", sig.String()))
		cancel()
	case <-done:
		logger.Log.Info("Load generation duration finished.")
	}

	// --- Graceful Shutdown ---
	loopWg.Wait()
	logger.Log.Info("Waiting for in-flight deliveries to complete...")
	wg.Wait()
	cancel()
	metricsWg.Wait()

	logger.Log.Info("Load generator shutdown complete.")
}

func startMetricsServer(port int) *http.Server {
	logger.Log.Info("Starting Prometheus metrics server", zap.Int("port", port))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Failed to start Prometheus metrics server", zap.Error(err))
		}
	}()

	return server
}

// runBatchLoadLoop builds deliveries at the target rate and hands full
// batches to the pool.
func runBatchLoadLoop(
	ctx context.Context,
	rate int,
	duration time.Duration,
	batchSize int,
	newDelivery func(i int) DeliveryDetail,
	template BatchTask,
	pool *ants.PoolWithFunc,
	wg *sync.WaitGroup,
	loopWg *sync.WaitGroup,
) {
	defer loopWg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	durationTimer := time.NewTimer(duration)
	defer durationTimer.Stop()

	counter := 0
	currentBatch := make([]DeliveryDetail, 0, batchSize)

	submitBatch := func(batch []DeliveryDetail) {
		if len(batch) == 0 {
			return
		}
		task := template
		task.Deliveries = batch
		wg.Add(len(batch))
		if err := pool.Invoke(task); err != nil {
			logger.Log.Warn("Failed to invoke worker pool for batch", zap.Int("batch_task_count", len(batch)), zap.Error(err))
			wg.Add(-len(batch))
			for _, d := range batch {
				observer.IncLoadgenWebhookErrors(d.Event)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			submitBatch(currentBatch)
			return
		case <-durationTimer.C:
			submitBatch(currentBatch)
			return
		case <-ticker.C:
			d := newDelivery(counter)
			counter++
			observer.IncLoadgenWebhooksAttempted(d.Event)

			currentBatch = append(currentBatch, d)
			if len(currentBatch) >= batchSize {
				submitBatch(currentBatch)
				currentBatch = make([]DeliveryDetail, 0, batchSize)
			}
		}
	}
}

// batchWorkerFunc signs and posts every delivery in a batch.
func batchWorkerFunc(ctx context.Context, data interface{}, targetURL string, wg *sync.WaitGroup) {
	task := data.(BatchTask)

	for _, delivery := range task.Deliveries {
		func(d DeliveryDetail) {
			defer wg.Done()

			now := time.Now()
			eventData := &webhook.EventData{
				Event:     d.Event,
				Timestamp: float64(now.UnixNano()) / float64(time.Second),
				ID:        gofakeit.UUID(),
				Recipient: d.Recipient,
			}
			eventData.Message.Headers.MessageID = d.MessageID
			payload := webhook.NewSignedPayload(task.SigningKey, gofakeit.LetterN(50), now, eventData)

			resp, err := task.Client.R().
				SetContext(context.WithoutCancel(ctx)).
				SetBody(payload).
				Post(targetURL)
			if err != nil {
				logger.Log.Error("Webhook delivery failed", zap.String("event", d.Event), zap.Error(err))
				observer.IncLoadgenWebhookErrors(d.Event)
				return
			}
			observer.IncLoadgenWebhooksDelivered(d.Event, resp.StatusCode())
			logger.Log.Debug("Webhook delivered",
				zap.String("event", d.Event),
				zap.Int("status", resp.StatusCode()),
				zap.Duration("latency", resp.Time()),
			)
		}(delivery)
	}
}
