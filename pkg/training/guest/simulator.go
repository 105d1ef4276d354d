// Package guest produces the simulated guest's side of the conversation.
// The guest stays in character, hints at but never states hidden
// motivations, and walks its emotional arc forward one step at a time.
package guest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"vas-training-be/pkg/lenient"
	"vas-training-be/pkg/llm"
	"vas-training-be/pkg/store"
)

// Turn is the result of one guest simulation step.
type Turn struct {
	Reply   string
	Emotion string // member of persona.EmotionalArc, never behind the input emotion
}

// Simulator is the GuestSimulationStage. Generation failures degrade to an
// in-character deflection line; this stage never blocks a session.
type Simulator struct {
	provider llm.Provider
	logger   *log.Logger
	timeout  time.Duration
}

func NewSimulator(provider llm.Provider, logger *log.Logger, timeout time.Duration) *Simulator {
	return &Simulator{
		provider: provider,
		logger:   logger,
		timeout:  timeout,
	}
}

type guestPayload struct {
	Reply        string `json:"reply"`
	EmotionShift string `json:"emotion_shift"` // "stay" | "advance"
}

// NextTurn produces one guest message and the possibly-advanced emotion.
// The emotion moves forward in the arc by at most one step, never backward.
func (s *Simulator) NextTurn(ctx context.Context, persona *store.Persona, scn *store.Scenario, transcript []store.Message, currentEmotion string) Turn {
	prompt := s.buildPrompt(persona, scn, transcript, currentEmotion)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.provider.Generate(callCtx, prompt, llm.WithTemperature(0.9))
	if err != nil {
		s.logger.Printf("[GUEST] generation degraded to deflection: %v", err)
		return Turn{Reply: deflectionLine(persona), Emotion: currentEmotion}
	}

	var payload guestPayload
	if err := lenient.Decode(raw, &payload); err != nil || strings.TrimSpace(payload.Reply) == "" {
		s.logger.Printf("[GUEST] unparseable reply degraded to deflection: %v", err)
		return Turn{Reply: deflectionLine(persona), Emotion: currentEmotion}
	}

	// Hidden motivations must never surface verbatim, whatever the model did.
	if leaked(payload.Reply, persona.HiddenMotivations) {
		s.logger.Printf("[GUEST] reply leaked a hidden motivation, replaced with deflection")
		return Turn{Reply: deflectionLine(persona), Emotion: currentEmotion}
	}

	emotion := currentEmotion
	if payload.EmotionShift == "advance" {
		emotion = advanceEmotion(persona, currentEmotion)
	}
	return Turn{Reply: payload.Reply, Emotion: emotion}
}

// OpeningLine renders the deterministic first guest message for a new
// session. Same scenario and persona always produce the same line.
func OpeningLine(persona *store.Persona, scn *store.Scenario) string {
	return fmt.Sprintf("%s %s", scn.Description, openingTail(persona))
}

func openingTail(persona *store.Persona) string {
	return fmt.Sprintf("I'm %s, and I need you to sort this out for me.", persona.Name)
}

func deflectionLine(persona *store.Persona) string {
	return fmt.Sprintf("Look, I don't want to go around in circles. Can you just tell me what you're going to do about my situation? - %s", persona.Name)
}

// advanceEmotion moves one step forward in the arc. Unknown current emotions
// reset to the start of the arc rather than guessing a position.
func advanceEmotion(persona *store.Persona, current string) string {
	idx := persona.EmotionIndex(current)
	if idx == -1 {
		if len(persona.EmotionalArc) > 0 {
			return persona.EmotionalArc[0]
		}
		return current
	}
	if idx+1 < len(persona.EmotionalArc) {
		return persona.EmotionalArc[idx+1]
	}
	return current
}

func leaked(reply string, hidden []string) bool {
	lower := strings.ToLower(reply)
	for _, h := range hidden {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

func (s *Simulator) buildPrompt(persona *store.Persona, scn *store.Scenario, transcript []store.Message, currentEmotion string) string {
	var prompt strings.Builder

	prompt.WriteString("<guest_turn_request>\n")
	prompt.WriteString(fmt.Sprintf("You are %s, a hotel guest. Stay fully in character.\n", persona.Name))
	prompt.WriteString(fmt.Sprintf("Background: %s\n", persona.Background))
	prompt.WriteString(fmt.Sprintf("Communication style: %s\n", persona.CommunicationStyle))
	if len(persona.PersonalityTraits) > 0 {
		prompt.WriteString(fmt.Sprintf("Traits: %s\n", strings.Join(persona.PersonalityTraits, ", ")))
	}
	prompt.WriteString(fmt.Sprintf("Situation: %s\n", scn.Description))
	prompt.WriteString(fmt.Sprintf("Your current emotion: %s\n", currentEmotion))
	prompt.WriteString("</guest_turn_request>\n\n")

	if len(persona.HiddenMotivations) > 0 {
		prompt.WriteString("<private_motivations>\n")
		prompt.WriteString("These drive your behavior. Hint at them through tone and demands, but NEVER state them in these words:\n")
		for _, m := range persona.HiddenMotivations {
			prompt.WriteString(fmt.Sprintf("- %s\n", m))
		}
		prompt.WriteString("</private_motivations>\n\n")
	}

	revealed := revealedFacts(persona, transcript)
	if len(revealed) > 0 {
		prompt.WriteString("<already_established>\n")
		prompt.WriteString("You already revealed these facts about yourself; do not contradict them:\n")
		for _, f := range revealed {
			prompt.WriteString(fmt.Sprintf("- %s\n", f))
		}
		prompt.WriteString("</already_established>\n\n")
	}

	prompt.WriteString("<conversation>\n")
	for _, msg := range transcript {
		speaker := "Agent"
		if msg.Role == store.RoleGuest {
			speaker = persona.Name
		}
		prompt.WriteString(fmt.Sprintf("%s: %s\n", speaker, msg.Content))
	}
	prompt.WriteString("</conversation>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString("1. Reply with exactly one guest message.\n")
	prompt.WriteString("2. Never acknowledge being simulated or part of a training exercise.\n")
	prompt.WriteString("3. Shift emotion_shift to \"advance\" only when the agent's last message genuinely improved your situation.\n")
	prompt.WriteString("</rules>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString(`Respond with a single JSON object: {"reply": string, "emotion_shift": "stay" | "advance"}`)
	prompt.WriteString("\n</output_format>")

	return prompt.String()
}

// revealedFacts lists persona facts already surfaced in prior guest turns,
// so later turns cannot contradict them.
func revealedFacts(persona *store.Persona, transcript []store.Message) []string {
	var guestText strings.Builder
	for _, msg := range transcript {
		if msg.Role == store.RoleGuest {
			guestText.WriteString(strings.ToLower(msg.Content))
			guestText.WriteString(" ")
		}
	}
	spoken := guestText.String()

	var facts []string
	for _, trait := range persona.PersonalityTraits {
		if traitMentioned(spoken, trait) {
			facts = append(facts, trait)
		}
	}
	if strings.Contains(spoken, strings.ToLower(persona.Name)) {
		facts = append(facts, fmt.Sprintf("your name is %s", persona.Name))
	}
	return facts
}

func traitMentioned(spoken, trait string) bool {
	for _, word := range strings.Fields(strings.ToLower(trait)) {
		if len(word) > 3 && strings.Contains(spoken, word) {
			return true
		}
	}
	return false
}
