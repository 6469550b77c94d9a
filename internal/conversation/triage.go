package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/elsastre/luisa/internal/rules"
)

// Triage classifies the first contact of a conversation. WhatsApp traffic
// is not all purchase intent, so ambiguous openers get a numbered menu
// instead of a sales pitch.

// TriageResult is the outcome of keyword classification.
type TriageResult struct {
	Intent     Intent
	Confidence float64
	Ambiguous  bool
}

var triageKeywords = []struct {
	intent Intent
	set    rules.Set
}{
	{IntentBuyMachine, rules.Set{
		"industrial", "familiar", "máquina", "maquina", "precio", "promo", "promoción",
		"recta", "fileteadora", "overlock", "singer", "kingter", "kansew", "union",
		"comprar", "quiero", "necesito", "busco", "cotización", "cotizacion",
	}},
	{IntentSpareParts, rules.Set{
		"repuesto", "repuestos", "pieza", "piezas", "aguja", "agujas", "bobina", "bobinas",
		"prensatela", "prensatelas", "motor", "correa", "correas", "placa",
	}},
	{IntentTechSupport, rules.Set{
		"daño", "dano", "no prende", "no funciona", "ruido", "ruidoso", "mantenimiento",
		"instalación", "instalacion", "arreglo", "arreglar", "garantía", "garantia",
		"soporte", "reparación", "reparacion", "falla", "fallas", "problema", "problemas",
	}},
	{IntentBusinessAdvice, rules.Set{
		"montar negocio", "emprender", "qué me recomiendas", "que me recomiendas",
		"quiero empezar", "consejo", "asesoría", "asesoria", "qué necesito", "que necesito",
		"recomendación", "recomendacion", "qué máquina conviene", "que maquina conviene",
	}},
	{IntentFAQHoursLocation, rules.Set{
		"horario", "horarios", "dirección", "direccion", "ubicación", "ubicacion",
		"cómo llegar", "como llegar", "abren", "cierran", "cuándo abren", "cuando abren",
		"dónde están", "donde estan",
	}},
	{IntentSellMachine, rules.Set{
		"vendo", "tengo una máquina", "tengo una maquina", "quiero vender", "usada", "usadas",
		"segunda mano", "consignación", "consignacion", "tengo para vender",
	}},
}

var ambiguousOpeners = rules.Set{
	"hola", "buenas", "buenos", "buen", "días", "dias", "tardes", "noches",
	"info", "información", "informacion", "ayuda", "👋", "🤝",
}

// triageConfidenceThreshold is the minimum score to accept a keyword
// classification without asking.
const triageConfidenceThreshold = 0.5

// ClassifyTriageIntent scores each triage intent by keyword hits. Two hits
// saturate confidence at 1.0. Messages with no confident intent that are
// very short, or short greetings, are ambiguous.
func ClassifyTriageIntent(text string) TriageResult {
	words := strings.Fields(rules.Normalize(text))

	best := TriageResult{Intent: IntentOther, Confidence: 0.3, Ambiguous: true}
	bestScore := 0.0
	for _, entry := range triageKeywords {
		hits := entry.set.Count(text)
		if hits == 0 {
			continue
		}
		score := float64(hits) / 2.0
		if score > 1.0 {
			score = 1.0
		}
		if score > bestScore {
			bestScore = score
			best = TriageResult{Intent: entry.intent, Confidence: score}
		}
	}
	if bestScore >= triageConfidenceThreshold {
		return best
	}

	ambiguous := (len(words) <= 3 && ambiguousOpeners.Matches(text)) || len(words) <= 2
	return TriageResult{Intent: IntentOther, Confidence: 0.3, Ambiguous: ambiguous}
}

// TriageMenu returns the numbered menu shown on ambiguous first contact.
// With prior state the greeting resumes context instead.
func TriageMenu(state *State) string {
	if state != nil && state.LastIntent == IntentBuyMachine {
		if state.Slots.ProductType != "" {
			return fmt.Sprintf("¡De una! 😊 ¿Seguimos con las %ses o necesitas repuesto/soporte?", state.Slots.ProductType)
		}
		return "¡De una! 😊 ¿Seguimos con las máquinas o necesitas repuesto/soporte?"
	}
	return "¡Hola! 😊 ¿Qué necesitas hoy:\n" +
		"1) Comprar máquina\n" +
		"2) Repuestos\n" +
		"3) Soporte/garantía\n" +
		"4) Asesoría para empezar"
}

var triageOptionRe = regexp.MustCompile(`\b([1-4])\b`)

// ParseTriageReply maps the customer's menu answer to an intent. Returns
// IntentOther and false when the reply does not pick an option.
func ParseTriageReply(text string) (Intent, bool) {
	lower := rules.Normalize(text)

	if m := triageOptionRe.FindStringSubmatch(lower); m != nil {
		switch m[1] {
		case "1":
			return IntentBuyMachine, true
		case "2":
			return IntentSpareParts, true
		case "3":
			return IntentTechSupport, true
		case "4":
			return IntentBusinessAdvice, true
		}
	}

	switch {
	case rules.Set{"comprar", "máquina", "maquina", "precio", "industrial", "familiar"}.Matches(lower):
		return IntentBuyMachine, true
	case rules.Set{"repuesto", "repuestos", "pieza", "aguja", "bobina"}.Matches(lower):
		return IntentSpareParts, true
	case rules.Set{"soporte", "garantía", "garantia", "reparación", "reparacion", "arreglo"}.Matches(lower):
		return IntentTechSupport, true
	case rules.Set{"asesoría", "asesoria", "consejo", "recomendación", "recomendacion", "emprender", "negocio"}.Matches(lower):
		return IntentBusinessAdvice, true
	}
	return IntentOther, false
}
