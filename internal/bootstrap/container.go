package bootstrap

import (
	"context"
	"log"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"vas-training-be/internal/config"
	"vas-training-be/internal/controller"
	"vas-training-be/internal/pkg/logger"
	"vas-training-be/internal/repository/memory"
	"vas-training-be/internal/repository/persistence"
	"vas-training-be/internal/service"
	"vas-training-be/internal/websocket"
	"vas-training-be/pkg/embedding"
	"vas-training-be/pkg/llm/factory"
	pkgNats "vas-training-be/pkg/nats"
	"vas-training-be/pkg/retrieval"
	"vas-training-be/pkg/training/feedback"
	"vas-training-be/pkg/training/guest"
	"vas-training-be/pkg/training/persona"
	"vas-training-be/pkg/training/scenario"
	"vas-training-be/pkg/training/scoring"
)

// CompletedSessionsTopic is the in-process bus topic carrying finished
// sessions from the orchestrator to the persistence consumer.
const CompletedSessionsTopic = "SESSION_COMPLETED"

type Container struct {
	// Controllers
	TrainingController controller.ITrainingController
	SOPController      controller.ISOPController

	// Background Services (Exposed for main.go to run)
	TrainingService service.ITrainingService
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stageLogger := log.New(os.Stdout, "[STAGE] ", log.LstdFlags)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/training_ws.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Session Store & Retrieval
	sessionStore := memory.NewSessionStore(cfg.Training.ArchiveRetention)

	var retriever retrieval.Retriever
	pgRetriever := retrieval.NewPgvectorRetriever(db, embeddingProvider).WithLimit(cfg.Training.RetrievalLimit)
	if rdb != nil {
		retriever = retrieval.NewCachedRetriever(pgRetriever, rdb)
	} else {
		retriever = pgRetriever
	}

	// 6. Training Stages
	scenarioGen := scenario.NewGenerator(llmProvider, retriever, stageLogger, cfg.Training.StageTimeout)
	personaGen := persona.NewGenerator(llmProvider, stageLogger, cfg.Training.StageTimeout)
	guestSim := guest.NewSimulator(llmProvider, stageLogger, cfg.Training.StageTimeout)
	scoringEng := scoring.NewEngine(nil)
	feedbackGen := feedback.NewGenerator(llmProvider, retriever, stageLogger, cfg.Training.StageTimeout)

	// 7. Services
	publisherService := service.NewPublisherService(CompletedSessionsTopic, pubSub)
	threadRepo := persistence.NewThreadRepository(db)
	sopRepo := persistence.NewSOPRepository(db)

	var eventBus service.EventPublisher
	if natsPub != nil {
		eventBus = natsPub
	}

	trainingService := service.NewTrainingService(
		sessionStore,
		scenarioGen,
		personaGen,
		guestSim,
		scoringEng,
		feedbackGen,
		publisherService,
		eventBus,
		wsHub,
		sysLogger,
		cfg.Training,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		CompletedSessionsTopic,
		threadRepo,
		eventBus,
	)
	sopService := service.NewSOPService(sopRepo, embeddingProvider, eventBus, sysLogger)

	// 8. Controllers
	trainingController := controller.NewTrainingController(trainingService)
	sopController := controller.NewSOPController(sopService)

	return &Container{
		TrainingController: trainingController,
		SOPController:      sopController,
		TrainingService:    trainingService,
		ConsumerService:    consumerService,
		WebSocketHub:       wsHub,
	}
}
