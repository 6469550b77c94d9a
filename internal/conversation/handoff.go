package conversation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/elsastre/luisa/internal/rules"
)

// Handoff policy. A single ordered rule table decides when the assistant
// hands the conversation to a human team; the first matching rule wins, so
// urgency always beats geography and geography beats purchase signals.

type handoffRule struct {
	match  func(text string, ctx Context) bool
	decide func(text string, ctx Context) HandoffDecision
}

var handoffRules = []handoffRule{
	{
		match: func(text string, _ Context) bool { return rules.Urgent.Matches(text) },
		decide: func(_ string, _ Context) HandoffDecision {
			return HandoffDecision{true, TeamTechnical, "Cliente requiere atención inmediata", PriorityUrgent}
		},
	},
	{
		match: func(text string, _ Context) bool { return rules.Problems.Matches(text) },
		decide: func(_ string, _ Context) HandoffDecision {
			return HandoffDecision{true, TeamCommercial, "Cliente con problema o reclamo", PriorityHigh}
		},
	},
	{
		match: func(text string, _ Context) bool { return rules.BusinessImpact.Matches(text) },
		decide: func(_ string, _ Context) HandoffDecision {
			return HandoffDecision{true, TeamCommercial, "Cliente requiere asesoría para proyecto de negocio", PriorityHigh}
		},
	},
	{
		match: func(text string, _ Context) bool {
			return rules.Union(rules.Installation, rules.Visit, rules.Training).Matches(text)
		},
		decide: func(_ string, _ Context) HandoffDecision {
			return HandoffDecision{true, TeamTechnical, "Cliente requiere servicio diferencial (instalación/visita/capacitación)", PriorityHigh}
		},
	},
	{
		match: func(text string, _ Context) bool {
			return rules.Union(rules.OtherCities, rules.RuralLocations).Matches(text)
		},
		decide: func(text string, _ Context) HandoffDecision {
			city := rules.OtherCities.Extract(text)
			if city == "" {
				city = "ubicación remota"
			}
			return HandoffDecision{true, TeamCommercial, fmt.Sprintf("Cliente requiere coordinación logística - %s", city), PriorityHigh}
		},
	},
	{
		match: func(text string, _ Context) bool { return rules.Repair.Matches(text) },
		decide: func(_ string, _ Context) HandoffDecision {
			return HandoffDecision{true, TeamTechnical, "Cliente necesita servicio de reparación", PriorityMedium}
		},
	},
	{
		match: func(text string, ctx Context) bool {
			return ctx.City != "" && (rules.Price.Matches(text) || rules.PaymentMethods.Matches(text))
		},
		decide: func(_ string, _ Context) HandoffDecision {
			return HandoffDecision{true, TeamCommercial, "Cliente en etapa de cierre de venta", PriorityHigh}
		},
	},
	{
		match: func(text string, ctx Context) bool {
			return len(detectNeeds(text)) >= 2 && ctx.Volume == "alto"
		},
		decide: func(text string, _ Context) HandoffDecision {
			needs := detectNeeds(text)
			return HandoffDecision{
				true, TeamCommercial,
				fmt.Sprintf("Cliente con múltiples necesidades (%s) + producción constante", strings.Join(needs, ", ")),
				PriorityMedium,
			}
		},
	},
}

func detectNeeds(text string) []string {
	var needs []string
	if rules.UseClothing.Matches(text) {
		needs = append(needs, "ropa")
	}
	if rules.UseCaps.Matches(text) {
		needs = append(needs, "gorras")
	}
	if rules.UseFootwear.Matches(text) {
		needs = append(needs, "calzado")
	}
	return needs
}

// ShouldHandoff evaluates the escalation rules against the inbound text
// and extracted context.
func ShouldHandoff(text string, ctx Context) HandoffDecision {
	for _, rule := range handoffRules {
		if rule.match(text, ctx) {
			return rule.decide(text, ctx)
		}
	}
	return HandoffDecision{ShouldHandoff: false, Priority: PriorityLow}
}

// HandoffCustomerMessage is what the customer reads when the assistant
// steps aside. Wording depends on the reason, the priority and whether the
// customer is in town.
func HandoffCustomerMessage(text, reason string, priority Priority, city string) string {
	reasonLower := strings.ToLower(reason)
	inTown := rules.LocalCities.Matches(text) ||
		city == "montería" || city == "monteria"

	if strings.Contains(reasonLower, "proyecto de negocio") ||
		strings.Contains(reasonLower, "servicio diferencial") ||
		strings.Contains(reasonLower, "asesoría") ||
		strings.Contains(reasonLower, "instalación") {
		if inTown {
			return "En este punto lo mejor es que uno de nuestros asesores te acompañe " +
				"directamente para elegir la mejor opción según tu proyecto.\n\n" +
				"¿Prefieres que te llamemos para agendar una cita con el asesor " +
				"o agendamos una visita del equipo a tu taller?"
		}
		return "En este punto lo mejor es que uno de nuestros asesores te acompañe " +
			"directamente para elegir la mejor opción según tu proyecto.\n\n" +
			"¿Prefieres que te llamemos para agendar una cita con el asesor?"
	}

	if strings.Contains(reasonLower, "coordinación logística") || strings.Contains(reasonLower, "ubicación") {
		return "Para coordinar el envío e instalación a tu ubicación, " +
			"lo mejor es que uno de nuestros asesores te contacte directamente.\n\n" +
			"¿Prefieres que te llamemos para agendar la entrega e instalación?"
	}

	if strings.Contains(reasonLower, "cierre") || strings.Contains(reasonLower, "compra") {
		if inTown {
			return "Para coordinar el pago y la entrega, lo mejor es que " +
				"uno de nuestros asesores te acompañe.\n\n" +
				"¿Prefieres que te llamemos para agendar la entrega " +
				"o prefieres pasar por el almacén?"
		}
		return "Para coordinar el pago y el envío, lo mejor es que " +
			"uno de nuestros asesores te contacte directamente.\n\n" +
			"¿Prefieres que te llamemos para agendar el envío?"
	}

	if priority == PriorityUrgent {
		return "Esto requiere atención inmediata. " +
			"Estoy conectándote con nuestro equipo especializado.\n\n" +
			"¿Prefieres que te llamemos ahora mismo?"
	}

	if priority == PriorityHigh {
		return "En este punto lo mejor es que uno de nuestros asesores " +
			"te acompañe directamente.\n\n" +
			"¿Prefieres que te llamemos para agendar una cita?"
	}

	return "Perfecto, lo estoy revisando con nuestro equipo y te respondo en breve."
}

// SummaryBullets condenses the case for the internal notification.
func SummaryBullets(text string, ctx Context) []string {
	var bullets []string
	if text != "" {
		display := text
		if len([]rune(display)) > 100 {
			display = string([]rune(display)[:100]) + "..."
		}
		bullets = append(bullets, fmt.Sprintf("Último mensaje: %q", display))
	}
	if ctx.MachineType != "" {
		bullets = append(bullets, fmt.Sprintf("Busca máquina %s", ctx.MachineType))
	}
	if ctx.UseCase != "" {
		bullets = append(bullets, fmt.Sprintf("Para fabricar: %s", ctx.UseCase))
	}
	if ctx.City != "" {
		bullets = append(bullets, fmt.Sprintf("Ubicación: %s", titleCase(ctx.City)))
	}
	if ctx.Brand != "" {
		bullets = append(bullets, fmt.Sprintf("Interesado en: %s", ctx.Brand))
	}
	stageDisplay := map[string]string{
		"exploracion":   "Explorando opciones",
		"consideracion": "Considerando opciones",
		"decision":      "Listo para decidir",
		"cierre":        "Listo para cerrar",
	}
	stage := ctx.FunnelStage
	if display, ok := stageDisplay[stage]; ok {
		stage = display
	}
	if stage != "" {
		bullets = append(bullets, fmt.Sprintf("Etapa: %s", stage))
	}
	return bullets
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// NextStepSuggestion recommends an action for the receiving team.
func NextStepSuggestion(team Team, text string, ctx Context) string {
	if team == TeamCommercial {
		switch {
		case ctx.City != "":
			return fmt.Sprintf("Coordinar envío e instalación a %s", titleCase(ctx.City))
		case ctx.FunnelStage == "cierre":
			return "Cerrar venta: confirmar producto, forma de pago y entrega"
		default:
			return "Contactar para asesorar sobre la mejor opción según su proyecto"
		}
	}
	switch {
	case rules.Repair.Matches(text):
		return "Coordinar diagnóstico de la máquina"
	case rules.Installation.Matches(text):
		return "Agendar visita de instalación y capacitación"
	default:
		return "Resolver consulta técnica y ofrecer servicio"
	}
}

// BuildInternalNotification renders the Spanish team notification.
func BuildInternalNotification(team Team, customerPhone, customerName string, bullets []string, nextStep string) string {
	header := "⚙️ ATENCIÓN TÉCNICA"
	if team == TeamCommercial {
		header = "💰 ATENCIÓN COMERCIAL"
	}

	phoneDisplay := customerPhone
	if !strings.HasPrefix(phoneDisplay, "+") {
		phoneDisplay = "+" + phoneDisplay
	}

	lines := []string{header, ""}
	if customerName != "" {
		lines = append(lines, fmt.Sprintf("Cliente: %s", customerName))
	}
	lines = append(lines, fmt.Sprintf("Número: %s", phoneDisplay), "")

	lines = append(lines, "Resumen del caso:")
	if len(bullets) > 5 {
		bullets = bullets[:5]
	}
	for _, b := range bullets {
		lines = append(lines, fmt.Sprintf("• %s", b))
	}
	lines = append(lines, "", "Siguiente paso recomendado:", nextStep)

	return strings.Join(lines, "\n")
}
