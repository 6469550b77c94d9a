package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elsastre/luisa/pkg/logging"
)

// Recommendation is one product suggestion inside a plan.
type Recommendation struct {
	Name       string `json:"name"`
	Why        string `json:"why"`
	Price      int    `json:"price"`
	Conditions string `json:"conditions"`
}

// PlannerOutput is the structured sales plan returned by the model.
type PlannerOutput struct {
	Intent               Intent           `json:"intent"`
	Confidence           float64          `json:"confidence"`
	Slots                Slots            `json:"slots"`
	UserGoal             string           `json:"user_goal"`
	AssistantGoal        string           `json:"assistant_goal"`
	NextBestQuestion     string           `json:"next_best_question"`
	RecommendedReplyBase string           `json:"recommended_reply_base"`
	Recommendations      []Recommendation `json:"recommendations"`
	ShouldOfferVisit     bool             `json:"should_offer_visit"`
	ShouldOfferShipping  bool             `json:"should_offer_shipping"`
	HandoffNeeded        bool             `json:"handoff_needed"`
	HandoffReason        string           `json:"handoff_reason"`
}

const (
	plannerMaxTokens   = 250
	plannerTemperature = 0.3
)

// Planner asks the model for a structured sales plan. It is only invoked
// when rules alone cannot move the sale forward.
type Planner struct {
	client LLMClient
	model  string
	logger *logging.Logger
}

func NewPlanner(client LLMClient, model string, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Planner{client: client, model: model, logger: logger}
}

func plannerSystemPrompt() string {
	return fmt.Sprintf(`Eres un planner de ventas para un asistente comercial de máquinas de coser.

%s
REGLAS ESTRICTAS:
1. NO inventes precios, horarios, dirección, garantía. Solo usa los facts proporcionados.
2. Si no hay datos suficientes, pregunta 1 cosa clave.
3. Si detectas objeción (caro, solo averiguo, desconfianza), propón respuesta de contención + CTA suave.
4. Recomendaciones SOLO de productos que están en los facts (KT-D3, KS-8800, familiares desde $400.000).
5. Máximo 2-3 líneas en recommended_reply_base.
6. 1 pregunta máxima en next_best_question.
7. CTA natural: visita/envío/reservar (no forzado).

OBJETIVO: Generar un plan de venta que cierre (visita/envío/reservar) de forma natural.`, BusinessFactsSummary())
}

func formatHistoryForPrompt(history []Message, max, truncate int) string {
	if len(history) > max {
		history = history[len(history)-max:]
	}
	var b strings.Builder
	for _, m := range history {
		who := "Usuario"
		if m.Direction == DirectionOutbound {
			who = "Luisa"
		}
		text := m.Body
		if len([]rune(text)) > truncate {
			text = string([]rune(text)[:truncate])
		}
		fmt.Fprintf(&b, "%s: %s\n", who, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func plannerUserPrompt(text string, intent Intent, state *State, history []Message) string {
	slotsJSON, _ := json.Marshal(state.Slots)

	var b strings.Builder
	fmt.Fprintf(&b, "Mensaje del usuario: %q\nIntent detectado: %s\nStage actual: %s\nSlots actuales: %s\n\n",
		text, intent, state.Stage, slotsJSON)
	if h := formatHistoryForPrompt(history, 4, 80); h != "" {
		fmt.Fprintf(&b, "Historial reciente:\n%s\n\n", h)
	}
	b.WriteString(`Genera un plan de venta en JSON con este schema:
{
  "intent": "intent_name",
  "confidence": 0.0-1.0,
  "slots": {"product_type": "...", "use_case": "...", "qty": "...", "budget": "...", "city": "...", "visit_or_delivery": "visit|delivery|unknown"},
  "user_goal": "objetivo del usuario (1 línea)",
  "assistant_goal": "cierre deseado (visita/envío/reservar)",
  "next_best_question": "UNA pregunta o null",
  "recommended_reply_base": "respuesta base segura (2-3 líneas, SIN inventar facts)",
  "recommendations": [
    {"name": "KT-D3", "why": "...", "price": 1230000, "conditions": "..."}
  ],
  "should_offer_visit": true/false,
  "should_offer_shipping": true/false,
  "handoff_needed": true/false,
  "handoff_reason": "..."
}`)
	return b.String()
}

// Plan requests a structured plan. Invalid prices coming back from the
// model are zeroed so a hallucinated figure never reaches the customer.
func (p *Planner) Plan(ctx context.Context, text string, intent Intent, state *State, history []Message) (*PlannerOutput, error) {
	start := time.Now()

	resp, err := p.client.Complete(ctx, LLMRequest{
		Model:       p.model,
		System:      []string{plannerSystemPrompt()},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: plannerUserPrompt(text, intent, state, history)}},
		MaxTokens:   plannerMaxTokens,
		Temperature: plannerTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: planner call: %w", err)
	}

	var out PlannerOutput
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Text)), &out); err != nil {
		return nil, fmt.Errorf("conversation: planner output: %w", err)
	}

	for i := range out.Recommendations {
		rec := &out.Recommendations[i]
		if rec.Price != 0 && !ValidPrice(rec.Price) {
			p.logger.Warn("planner invented a price", "price", rec.Price, "name", rec.Name)
			rec.Price = 0
		}
	}

	p.logger.Info("plan generated",
		"intent", string(out.Intent),
		"confidence", out.Confidence,
		"recommendations", len(out.Recommendations),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

// extractJSONObject tolerates models that wrap the object in code fences
// or prose.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
