package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"vas-training-be/internal/entity"
	"vas-training-be/internal/repository/persistence"
	"vas-training-be/pkg/database"
	"vas-training-be/pkg/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	threadRepo := persistence.NewThreadRepository(gormDB)
	sopRepo := persistence.NewSOPRepository(gormDB)
	assert.NotNil(t, threadRepo)
	assert.NotNil(t, sopRepo)

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized repositories")

	t.Run("Check SOP Repository", func(t *testing.T) {
		count, err := sopRepo.CountByCategory(context.Background(), "overbooking")
		assert.NoError(t, err)
		t.Logf("SOP chunk count for overbooking: %d", count)
	})

	t.Run("Round Trip Completed Session", func(t *testing.T) {
		ctx := context.Background()
		id := uuid.NewString()

		completed := &store.CompletedSession{
			ID:      id,
			OwnerID: "integration-test",
			Scenario: &store.Scenario{
				Title:         "Integration Check",
				Description:   "A guest reservation was lost during a system migration.",
				RequiredSteps: []string{"acknowledge the problem"},
				TimePressure:  5,
			},
			Persona: &store.Persona{
				Name:         "Test Guest",
				EmotionalArc: []string{"frustrated", "neutral"},
			},
			Transcript: []store.Message{
				{Role: store.RoleGuest, Content: "My reservation is gone.", Timestamp: time.Now(), TurnIndex: 0},
				{Role: store.RoleTrainee, Content: "I acknowledge the problem and will fix it.", Timestamp: time.Now(), TurnIndex: 1},
			},
			FinalScores: store.ScoringMetrics{
				PolicyAdherence:    80,
				EmpathyIndex:       70,
				Completeness:       90,
				EscalationJudgment: 75,
				TimeEfficiency:     100,
			},
			Feedback: &store.FeedbackReport{
				OverallScore: 83,
				Grade:        "B",
				Summary:      "integration round trip",
			},
			DurationMs:  1500,
			CompletedAt: time.Now(),
		}

		require.NoError(t, threadRepo.PersistCompleted(ctx, completed))

		threadID, err := uuid.Parse(id)
		require.NoError(t, err)

		thread, err := threadRepo.FindById(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, "Integration Check", thread.ScenarioTitle)
		assert.Equal(t, 83, thread.OverallScore)
		assert.Equal(t, "B", thread.Grade)

		messages, err := threadRepo.FindMessages(ctx, threadID)
		require.NoError(t, err)
		assert.Len(t, messages, 2)

		// Cleanup
		gormDB.Where("thread_id = ?", threadID).Delete(&entity.SessionMessage{})
		gormDB.Where("id = ?", threadID).Delete(&entity.SessionThread{})
	})
}
