package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elsastre/luisa/pkg/logging"
)

// ClassifierOutput is the model's reading of an ambiguous message.
type ClassifierOutput struct {
	Intent             Intent            `json:"intent"`
	Confidence         float64           `json:"confidence"`
	Entities           map[string]string `json:"entities"`
	IsAmbiguous        bool              `json:"is_ambiguous"`
	NeedsClarification bool              `json:"needs_clarification"`
}

const (
	classifierMaxTokens   = 150
	classifierTemperature = 0.2
)

// Classifier resolves messages the keyword rules could not. It is never on
// the hot path for clearly classified traffic.
type Classifier struct {
	client LLMClient
	model  string
	logger *logging.Logger
}

func NewClassifier(client LLMClient, model string, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{client: client, model: model, logger: logger}
}

const classifierSystemPrompt = `Eres un clasificador de intenciones para un asistente comercial de máquinas de coser.

INTENTS DISPONIBLES:
- buy_machine: comprar máquina (industrial/familiar)
- spare_parts: repuestos, piezas, agujas, bobinas
- tech_support: garantía, reparación, instalación, soporte técnico
- business_advice: asesoría para montar negocio, emprender, qué máquina conviene
- faq_hours_location: horarios, dirección, ubicación, cómo llegar
- sell_machine: vender/consignar máquina
- other: no clasificable

INSTRUCCIONES:
1. Clasifica el mensaje en UNO de los intents
2. Extrae entidades clave (product_type, use_case, city, etc.)
3. Si el mensaje es ambiguo o mezcla intents, elige el más probable
4. Retorna JSON estricto con el schema definido`

func classifierUserPrompt(text string, history []Message) string {
	prompt := fmt.Sprintf("Clasifica este mensaje:\n\n%q\n\n", text)
	if h := formatHistoryForPrompt(history, 3, 100); h != "" {
		prompt += fmt.Sprintf("Historial reciente:\n%s\n\n", h)
	}
	prompt += `Retorna JSON con:
{
  "intent": "intent_name",
  "confidence": 0.0-1.0,
  "entities": {"product_type": "...", "use_case": "...", "city": "..."},
  "is_ambiguous": true/false,
  "needs_clarification": true/false
}`
	return prompt
}

func (c *Classifier) Classify(ctx context.Context, text string, history []Message) (*ClassifierOutput, error) {
	start := time.Now()

	resp, err := c.client.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{classifierSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: classifierUserPrompt(text, history)}},
		MaxTokens:   classifierMaxTokens,
		Temperature: classifierTemperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: classifier call: %w", err)
	}

	var out ClassifierOutput
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Text)), &out); err != nil {
		return nil, fmt.Errorf("conversation: classifier output: %w", err)
	}

	c.logger.Info("ambiguous message classified",
		"intent", string(out.Intent),
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}
