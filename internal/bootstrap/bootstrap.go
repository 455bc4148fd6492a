package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	httpadapter "github.com/kirillkom/support-agent-core/internal/adapters/http"
	"github.com/kirillkom/support-agent-core/internal/config"
	"github.com/kirillkom/support-agent-core/internal/core/classify"
	"github.com/kirillkom/support-agent-core/internal/core/confidence"
	"github.com/kirillkom/support-agent-core/internal/core/retrieval"
	"github.com/kirillkom/support-agent-core/internal/core/session"
	"github.com/kirillkom/support-agent-core/internal/core/suggest"
	"github.com/kirillkom/support-agent-core/internal/core/usecase"
	"github.com/kirillkom/support-agent-core/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/support-agent-core/internal/infrastructure/queue/nats"
	repository "github.com/kirillkom/support-agent-core/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/support-agent-core/internal/infrastructure/resilience"
	keywordsearch "github.com/kirillkom/support-agent-core/internal/infrastructure/search/postgres"
	"github.com/kirillkom/support-agent-core/internal/infrastructure/search/qdrant"
	"github.com/kirillkom/support-agent-core/internal/infrastructure/session/memstore"
	"github.com/kirillkom/support-agent-core/internal/infrastructure/tools/mcp"
	"github.com/kirillkom/support-agent-core/internal/observability/metrics"
)

// App wires the full turn pipeline and owns the lifecycle of every
// infrastructure client behind it.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue   *nats.Queue
	TurnUC  *usecase.TurnUseCase
	Router  *httpadapter.Router
	Metrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	policies, err := config.LoadPolicies(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	db, err := repository.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conversations := repository.NewConversationRepository(db)
	if err := conversations.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure conversation schema: %w", err)
	}
	keyword := keywordsearch.NewKeywordSearcher(db)
	if err := keyword.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.OllamaIntentModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	intentModel := ollama.NewIntentClassifier(ollamaClient)

	semantic := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)
	tools := mcp.NewRunner(cfg.MCPServerURL)

	states := memstore.New(time.Duration(cfg.SessionIdleTTLMinutes)*time.Minute, logger)

	queryRouter := classify.NewQueryClassifier()
	intentRouter := classify.NewIntentClassifier(intentModel, cfg.IntentModelThreshold, logger)
	if len(policies.RoutingConfigs) > 0 {
		intentRouter.OverrideRoutingConfigs(policies.RoutingConfigs)
	}

	retriever := retrieval.NewHybridRetriever(embedder, semantic, keyword, retrieval.Config{
		SearchTimeout: time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
	}, logger)
	scorer := confidence.NewScorer(policies.Confidence)
	sessions := session.NewManager(states, logger)
	suggestions := suggest.NewEngine(generator, logger)

	turnUC := usecase.NewTurnUseCase(
		queryRouter,
		intentRouter,
		retriever,
		scorer,
		sessions,
		suggestions,
		generator,
		tools,
		conversations,
		states,
		queue,
		usecase.Limits{
			HistoryMessages: cfg.HistoryMessages,
			TurnTimeout:     time.Duration(cfg.TurnTimeoutSeconds) * time.Second,
		},
		logger,
	)

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(turnUC, sessions, serverMetrics, httpadapter.TrafficConfig{
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxInFlight:    cfg.APIMaxInFlight,
	})

	return &App{
		Config:  cfg,
		Logger:  logger,
		Queue:   queue,
		TurnUC:  turnUC,
		Router:  router,
		Metrics: serverMetrics,

		closeFn: func() {
			queue.Close()
			states.Close()
			_ = tools.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
