// Scripted end-to-end training run against the deterministic stub generator.
// Exercises the full orchestrator loop without any model backend, database,
// or message bus.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"

	"vas-training-be/internal/config"
	"vas-training-be/internal/dto"
	"vas-training-be/internal/repository/memory"
	"vas-training-be/internal/service"
	"vas-training-be/pkg/llm/stub"
	"vas-training-be/pkg/training/feedback"
	"vas-training-be/pkg/training/guest"
	"vas-training-be/pkg/training/persona"
	"vas-training-be/pkg/training/scenario"
	"vas-training-be/pkg/training/scoring"
)

// consoleLogger satisfies logger.ILogger with plain stdout output.
type consoleLogger struct{}

func (consoleLogger) Debug(module, message string, details map[string]interface{}) {}
func (consoleLogger) Info(module, message string, details map[string]interface{}) {
	log.Printf("[%s] %s %v", module, message, details)
}
func (consoleLogger) Warn(module, message string, details map[string]interface{}) {
	log.Printf("[%s] WARN %s %v", module, message, details)
}
func (consoleLogger) Error(module, message string, details map[string]interface{}) {
	log.Printf("[%s] ERROR %s %v", module, message, details)
}
func (consoleLogger) Sync() error { return nil }

func main() {
	guestColor := color.New(color.FgCyan, color.Bold)
	traineeColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgYellow)

	provider := stub.New()
	stageLogger := log.New(os.Stdout, "[STAGE] ", log.LstdFlags)
	timeout := 5 * time.Second

	sessions := memory.NewSessionStore(time.Hour)
	orchestrator := service.NewTrainingService(
		sessions,
		scenario.NewGenerator(provider, nil, stageLogger, timeout),
		persona.NewGenerator(provider, stageLogger, timeout),
		guest.NewSimulator(provider, stageLogger, timeout),
		scoring.NewEngine(nil),
		feedback.NewGenerator(provider, nil, stageLogger, timeout),
		nil, // no persistence bus
		nil, // no NATS
		nil, // no websocket hub
		consoleLogger{},
		config.TrainingConfig{
			MaxTurns:       12,
			StageTimeout:   timeout,
			StaleThreshold: 30 * time.Minute,
			SweepInterval:  5 * time.Minute,
		},
	)

	ctx := context.Background()

	fmt.Println("=== Guest Service Training Simulation ===")
	start, err := orchestrator.Start(ctx, &dto.StartSessionRequest{
		TrainingObjective: "recover an overbooked reservation",
		Difficulty:        "intermediate",
		Category:          "overbooking",
		UserId:            "simulated-trainee",
	})
	if err != nil {
		log.Fatalf("start failed: %v", err)
	}

	infoColor.Printf("Scenario: %s\n", start.Scenario.Title)
	infoColor.Printf("Guest:    %s (%s)\n\n", start.Persona.Name, start.Persona.CommunicationStyle)
	guestColor.Printf("GUEST: %s\n", start.OpeningLine)

	script := []string{
		"I completely acknowledge the problem with your suite, and I want to fix this right now.",
		"I apologize sincerely for the inconvenience, this is not the arrival you deserved.",
		"Let me offer an alternative room on a higher floor, with tonight upgraded at no charge.",
		"I will confirm the resolution by email within the hour so everything is in writing.",
	}

	for _, line := range script {
		traineeColor.Printf("\nTRAINEE: %s\n", line)

		resp, err := orchestrator.Respond(ctx, start.SessionId, line)
		if err != nil {
			log.Fatalf("respond failed: %v", err)
		}

		if resp.GuestResponse != "" {
			guestColor.Printf("GUEST: %s\n", resp.GuestResponse)
		}

		if resp.SessionStatus == "complete" {
			fmt.Println()
			infoColor.Println("=== Session complete ===")
			if resp.Feedback != nil {
				infoColor.Printf("Overall: %d (grade %s)\n", resp.Feedback.OverallScore, resp.Feedback.Grade)
				infoColor.Printf("Summary: %s\n", resp.Feedback.Summary)
				for _, rec := range resp.Feedback.Recommendations {
					fmt.Printf("  - %s\n", rec)
				}
			}
			return
		}
	}

	// Script exhausted without completing; end explicitly.
	completed, err := orchestrator.End(ctx, start.SessionId)
	if err != nil {
		log.Fatalf("end failed: %v", err)
	}
	infoColor.Printf("\n=== Session ended after %d messages ===\n", len(completed.Transcript))
	if completed.Feedback != nil {
		infoColor.Printf("Overall: %d (grade %s)\n", completed.Feedback.OverallScore, completed.Feedback.Grade)
	}
}
