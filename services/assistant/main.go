package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/facilitydesk/facilitydesk/services/assistant/observability"
	"github.com/facilitydesk/facilitydesk/services/assistant/routes"
	"github.com/facilitydesk/facilitydesk/services/content"
	"github.com/facilitydesk/facilitydesk/services/llm"
	"github.com/facilitydesk/facilitydesk/services/maintenance"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

const (
	defaultPort       = "12310"
	defaultLLMTimeout = 45 * time.Second
	defaultRunTimeout = 60 * time.Second
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "facilitydesk-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("assistant-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newStore selects the content store backend. Mongo is the default; the
// in-memory store exists for local development without a database.
func newStore(ctx context.Context) (content.Store, error) {
	if os.Getenv("CONTENT_STORE") == "memory" {
		slog.Warn("Using the in-memory content store; all data is lost on restart")
		return content.NewMemoryStore(), nil
	}
	store, err := content.ConnectMongo(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to MongoDB")
	return store, nil
}

func newLLMClient() (llm.Client, string, error) {
	backend := os.Getenv("LLM_BACKEND_TYPE")
	switch backend {
	case "anthropic", "claude":
		client, err := llm.NewAnthropicClient()
		slog.Info("Using Anthropic LLM backend")
		return client, "anthropic", err
	case "openai", "":
		client, err := llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
		return client, "openai", err
	default:
		slog.Warn("LLM_BACKEND_TYPE not recognized, defaulting to openai", "value", backend)
		client, err := llm.NewOpenAIClient()
		return client, "openai", err
	}
}

func llmTimeout() time.Duration {
	raw := os.Getenv("LLM_TIMEOUT_SECONDS")
	if raw == "" {
		return defaultLLMTimeout
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		slog.Warn("Ignoring invalid LLM_TIMEOUT_SECONDS", "value", raw)
		return defaultLLMTimeout
	}
	return time.Duration(secs) * time.Second
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on the environment")
	}

	port := os.Getenv("ASSISTANT_PORT")
	if port == "" {
		port = defaultPort
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := newStore(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect the content store: %v", err)
	}

	llmClient, backend, err := newLLMClient()
	if err != nil {
		// The service still serves health scores and the maintenance
		// trigger without a model; chat requests will return 500.
		slog.Error("Failed to initialize the LLM client, chat is disabled", "error", err)
		llmClient = nil
	}

	runner := maintenance.NewRunner(store)

	// The built-in scheduler is a safety net for deployments without an
	// external cron service. Rollover is idempotent per plan, so both
	// triggers may coexist.
	if os.Getenv("MAINTENANCE_SCHEDULER") != "off" {
		scheduler := maintenance.NewScheduler(runner, maintenance.SchedulerConfig{})
		if err := scheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start the maintenance scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("assistant-service"))

	routes.SetupRoutes(router, routes.Config{
		Store:      store,
		LLMClient:  llmClient,
		LLMBackend: backend,
		Runner:     runner,
		CronSecret: os.Getenv("CRON_SECRET"),
		LLMTimeout: llmTimeout(),
		RunTimeout: defaultRunTimeout,
	})

	slog.Info("Starting the assistant server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
