package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/elsastre/luisa/pkg/logging"
)

const (
	humanizerMaxTokens   = 120
	humanizerTemperature = 0.4
	humanizerMinLength   = 10
)

// Humanizer rewrites a rule-built reply into warmer Colombian Spanish. It
// only polishes wording; facts, figures and numbered menus must survive
// untouched.
type Humanizer struct {
	client  LLMClient
	model   string
	enabled bool
	logger  *logging.Logger
}

func NewHumanizer(client LLMClient, model string, enabled bool, logger *logging.Logger) *Humanizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Humanizer{client: client, model: model, enabled: enabled, logger: logger}
}

const humanizerSystemPrompt = `Eres Luisa, vendedora de Almacén y Taller El Sastre en Montería, Colombia.

REGLAS ESTRICTAS:
1. NO inventes precios ni promociones
2. NO cambies dirección ni horarios
3. Máximo 2-3 líneas
4. 1 emoji máximo
5. 1 pregunta máxima
6. Español colombiano natural y cálido
7. Tono vendedor pero no agresivo
8. Mantén datos exactos (precios, direcciones, horarios)

Solo reescribe para hacerlo más humano y comercial, sin cambiar información.`

// Rewrite returns the polished reply and whether a rewrite happened. Any
// failure falls back to the original text.
func (h *Humanizer) Rewrite(ctx context.Context, base string) (string, bool) {
	if h == nil || !h.enabled || h.client == nil {
		return base, false
	}

	prompt := "Reescribe esta respuesta de forma más humana y comercial:\n\n" + base
	if strings.Contains(base, "1)") && strings.Contains(base, "2)") {
		prompt += "\n\nIMPORTANTE: Mantén las opciones numeradas (1), 2), 3), 4)) exactamente como están. Solo mejora el tono."
	}

	start := time.Now()
	resp, err := h.client.Complete(ctx, LLMRequest{
		Model:       h.model,
		System:      []string{humanizerSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   humanizerMaxTokens,
		Temperature: humanizerTemperature,
	})
	if err != nil {
		h.logger.Warn("humanizer failed, keeping base reply", "error", err.Error())
		return base, false
	}

	rewritten := strings.TrimSpace(resp.Text)
	if len([]rune(rewritten)) <= humanizerMinLength {
		h.logger.Warn("humanizer reply too short, keeping base reply", "len", len(rewritten))
		return base, false
	}

	h.logger.Info("reply humanized",
		"original_len", len(base),
		"humanized_len", len(rewritten),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rewritten, true
}
