package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/elsastre/luisa/internal/rules"
)

// PlaybookResult is one crafted reply plus the state changes it implies.
// Empty fields mean "leave as is"; the engine merges SlotUpdates field by
// field.
type PlaybookResult struct {
	Reply        string
	NextStage    Stage
	Question     string
	SlotUpdates  Slots
	DecisionPath string
}

var qtyRe = regexp.MustCompile(`(\d+)\s*(unidades|piezas|pares|máquinas|maquinas|gorras|prendas)`)

// CraftReply turns an intent plus slot state into a commercial reply in
// Luisa's voice, quoting only business facts and asking at most one
// question.
func CraftReply(intent Intent, state *State, userText string, ctx Context) PlaybookResult {
	lower := rules.Normalize(userText)

	switch {
	case intent == IntentBuyMachine || strings.Contains(lower, "comprar") ||
		strings.Contains(lower, "máquina") || strings.Contains(lower, "maquina"):
		return craftBuyMachine(state, lower)
	case intent == IntentSpareParts || strings.Contains(lower, "repuesto"):
		return PlaybookResult{
			Reply: "Sí, tenemos repuestos para las marcas que vendemos. " +
				"De una, así te lo doy exacto. " +
				"¿Me confirmas la marca o me envías foto de la placa?",
			NextStage:    StageSupport,
			Question:     "spare_parts_marca",
			DecisionPath: "spare_parts_handled",
		}
	case intent == IntentTechSupport || strings.Contains(lower, "garantía") || strings.Contains(lower, "garantia"):
		return craftTechSupport(lower)
	case intent == IntentBusinessAdvice || strings.Contains(lower, "emprender") || strings.Contains(lower, "montar negocio"):
		return craftBusinessAdvice(state, lower, ctx)
	case intent == IntentFAQHoursLocation || strings.Contains(lower, "horario") ||
		strings.Contains(lower, "dirección") || strings.Contains(lower, "direccion"):
		return craftHoursLocation(lower)
	case intent == IntentSellMachine || strings.Contains(lower, "vendo") || strings.Contains(lower, "vender"):
		return PlaybookResult{
			Reply:        "Podemos revisarla/recibirla si está buena. ¿Qué marca y en qué estado está?",
			NextStage:    StageSupport,
			Question:     "sell_machine_info",
			DecisionPath: "sell_machine_handled",
		}
	default:
		return PlaybookResult{
			Reply:        "¿Buscas máquina familiar (para casa) o industrial (para producción)?",
			NextStage:    StageDiscovery,
			Question:     "product_type",
			DecisionPath: "default_handled",
		}
	}
}

func craftBuyMachine(state *State, lower string) PlaybookResult {
	slots := state.Slots

	if strings.Contains(lower, "precio") || strings.Contains(lower, "cuánto") ||
		strings.Contains(lower, "cuanto") || strings.Contains(lower, "cuesta") {
		var reply, question string
		if slots.ProductType == "industrial" {
			reply = "Listo 🙌 En promoción están:\n\n" +
				"• KINGTER KT-D3: $1.230.000\n" +
				"• KANSEW KS-8800: $1.300.000\n\n" +
				"Ambas incluyen mesa, motor ahorrador e instalación."
			switch {
			case slots.UseCase == "":
				reply += "\n\n¿La necesitas para producción constante o pocas unidades?"
				question = "use_case"
			case slots.Qty == "":
				reply += "\n\n¿Cuántas unidades al mes aprox?"
				question = "qty"
			default:
				reply += "\n\n¿Te separo una o quieres ver fotos primero?"
				question = "decision"
			}
		} else {
			reply = "Los precios varían según el tipo:\n\n" +
				"• Familiares: desde $400.000\n" +
				"• Industriales: desde $1.230.000\n\n"
			if slots.ProductType == "" {
				reply += "¿Buscas para casa o para producción?"
				question = "product_type"
			} else {
				reply += "¿Te separo una o quieres ver fotos primero?"
				question = "decision"
			}
		}
		return PlaybookResult{
			Reply:        reply,
			NextStage:    StagePricing,
			Question:     question,
			DecisionPath: "buy_machine_price",
		}
	}

	qty := slots.Qty
	var slotUpdates Slots
	if slots.UseCase != "" && qty == "" {
		if m := qtyRe.FindStringSubmatch(lower); m != nil {
			qty = m[1]
			slotUpdates.Qty = qty
		} else {
			return PlaybookResult{
				Reply:        fmt.Sprintf("Perfecto, para %s. ¿Cuántas al mes aprox?", slots.UseCase),
				NextStage:    StagePricing,
				Question:     "qty",
				DecisionPath: "buy_machine_ask_qty",
			}
		}
	}

	if qty != "" {
		return craftRecommendation(slots, qty, slotUpdates)
	}

	var reply, question string
	switch {
	case slots.ProductType == "":
		reply = "¿Buscas máquina familiar (para casa) o industrial (para producción)?"
		question = "product_type"
	case slots.UseCase == "":
		reply = "¿Qué vas a fabricar: ropa, gorras, calzado o accesorios?"
		question = "use_case"
	default:
		reply = "¿Cuántas unidades al mes aprox?"
		question = "qty"
	}
	return PlaybookResult{
		Reply:        reply,
		NextStage:    StageDiscovery,
		Question:     question,
		DecisionPath: "buy_machine_discovery",
	}
}

func craftRecommendation(slots Slots, qty string, slotUpdates Slots) PlaybookResult {
	qtyInt := 0
	fmt.Sscanf(qty, "%d", &qtyInt)

	var reply string
	if slots.ProductType == "industrial" {
		switch slots.UseCase {
		case "gorras":
			if qtyInt <= 30 {
				reply = fmt.Sprintf("Para %s gorras ocasional, KT-D3 te va bien; "+
					"si piensas escalar, KS-8800 te dura más. "+
					"¿Cuál te suena más: ahorrar hoy o pensar en crecimiento?", qty)
			} else {
				reply = fmt.Sprintf("Para %s gorras al mes, KS-8800 es la mejor opción (más robusta). "+
					"¿Te separo una o prefieres verla primero?", qty)
			}
		case "ropa":
			reply = "Para ropa, ambas funcionan bien. " +
				"KT-D3 es más económica; KS-8800 aguanta más tela gruesa. " +
				"¿Qué tipo de prendas: camisas, pantalones o ambas?"
		default:
			reply = fmt.Sprintf("Para %s, te recomiendo KS-8800 (más versátil). "+
				"¿Te separo una o quieres ver fotos?", slots.UseCase)
		}
	} else {
		reply = "Para casa, una familiar básica ($400.000) o intermedia ($600.000). " +
			"¿Qué tipo de costura haces: arreglos o proyectos?"
	}

	var question string
	switch slots.VisitOrDelivery {
	case "visit":
		reply += "\n\n¿Te queda mejor venir hoy o mañana?"
		question = "visit_when"
	case "delivery":
		if slots.City == "" {
			reply += "\n\n¿En qué ciudad te encuentras para coordinar el envío?"
			question = "city"
		} else {
			reply += fmt.Sprintf("\n\n¿Te separo una para envío a %s?", slots.City)
			question = "confirm"
		}
	default:
		reply += "\n\n¿Te separo una o quieres ver fotos primero?"
		question = "decision"
	}

	return PlaybookResult{
		Reply:        reply,
		NextStage:    StagePhotos,
		Question:     question,
		SlotUpdates:  slotUpdates,
		DecisionPath: "buy_machine_recommendation",
	}
}

func craftTechSupport(lower string) PlaybookResult {
	var reply string
	if strings.Contains(lower, "garantía") || strings.Contains(lower, "garantia") {
		reply = "Todas nuestras máquinas tienen garantía de 3 meses en partes y mano de obra. " +
			"Si algo falla, la revisamos sin costo. " +
			"¿Qué máquina tienes o estás pensando comprar?"
	} else {
		reply = "Te puedo ayudar. Para darte la mejor solución: " +
			"¿Qué síntoma tiene (no prende, ruido, etc.)? " +
			"¿Marca/modelo? " +
			"¿La compraste aquí o en otro lado?"
	}
	return PlaybookResult{
		Reply:        reply,
		NextStage:    StageSupport,
		Question:     "tech_support_info",
		DecisionPath: "tech_support_handled",
	}
}

func craftBusinessAdvice(state *State, lower string, ctx Context) PlaybookResult {
	useCase := state.Slots.UseCase
	if useCase == "" {
		useCase = ctx.UseCase
	}
	if strings.Contains(lower, "gorra") {
		useCase = "gorras"
	} else if strings.Contains(lower, "ropa") {
		useCase = "ropa"
	}

	budget := state.Slots.Budget
	qty := state.Slots.Qty

	var reply, question string
	if useCase != "" {
		switch useCase {
		case "gorras":
			reply = "Para empezar con gorras: recta industrial + insumos (agujas/hilo). " +
				"Luego fileteadora si escalas. "
		case "ropa":
			reply = "Para empezar con ropa: recta industrial + fileteadora (para orillos). " +
				"Luego overlock si haces prendas completas. "
		default:
			reply = fmt.Sprintf("Para empezar con %s: recta industrial básica. "+
				"Luego agregas según crezcas. ", useCase)
		}
		switch {
		case budget == "":
			reply += "¿Presupuesto aproximado?"
			question = "budget"
		case qty == "":
			reply += "¿Cuántas unidades al mes planeas?"
			question = "qty"
		default:
			reply += "¿Te separo una o quieres ver opciones?"
			question = "decision"
		}
	} else {
		switch {
		case budget == "":
			reply = "¿Presupuesto aproximado para empezar?"
			question = "budget"
		case qty == "":
			reply = "¿Cuántas unidades al mes planeas?"
			question = "qty"
		default:
			reply = "¿Qué vas a fabricar: ropa, gorras, calzado o accesorios?"
			question = "use_case"
		}
	}

	var updates Slots
	if useCase != "" {
		updates.UseCase = useCase
	}
	return PlaybookResult{
		Reply:        reply,
		NextStage:    StageDiscovery,
		Question:     question,
		SlotUpdates:  updates,
		DecisionPath: "business_advice_handled",
	}
}

func craftHoursLocation(lower string) PlaybookResult {
	reply := "Estamos en Calle 34 #1-30, Montería.\n\n" +
		"🕘 Lunes a viernes: 9am-6pm\n" +
		"🕘 Sábados: 9am-2pm\n\n"

	var question string
	if strings.Contains(lower, "visitar") || strings.Contains(lower, "pasar") || strings.Contains(lower, "visita") {
		reply += "¿Te queda mejor venir hoy o mañana?"
		question = "visit_when"
	} else {
		reply += "¿Quieres pasar o prefieres envío a domicilio?"
		question = "visit_or_delivery"
	}
	return PlaybookResult{
		Reply:        reply,
		NextStage:    StageVisit,
		Question:     question,
		DecisionPath: "faq_hours_location_handled",
	}
}

// PickOneQuestion chooses the single most important missing slot question
// for the intent. Deterministic priority, one question per turn. Returns
// "" when nothing critical is missing.
func PickOneQuestion(intent Intent, state *State) string {
	slots := state.Slots

	switch intent {
	case IntentBuyMachine:
		switch {
		case slots.UseCase == "":
			return "use_case"
		case slots.Qty == "":
			return "qty"
		case slots.Budget == "":
			return "budget"
		case slots.VisitOrDelivery == "":
			return "visit_or_delivery"
		case slots.VisitOrDelivery == "delivery" && slots.City == "":
			return "city"
		}
	case IntentBusinessAdvice:
		switch {
		case slots.Budget == "":
			return "budget"
		case slots.Qty == "":
			return "qty"
		case slots.ProductType == "":
			return "product_type"
		}
	case IntentSpareParts, IntentTechSupport:
		switch {
		case slots.Brand == "":
			return "marca"
		case intent == IntentTechSupport:
			return "sintoma"
		}
	}
	return ""
}

// QuestionText maps a question token to customer wording. Used when a
// planner supplies no question of its own.
var QuestionText = map[string]string{
	"product_type":      "¿Buscas máquina familiar (para casa) o industrial (para producción)?",
	"use_case":          "¿Qué vas a fabricar: ropa, gorras, calzado o accesorios?",
	"qty":               "¿Cuántas unidades al mes aprox?",
	"budget":            "¿Presupuesto aproximado?",
	"visit_or_delivery": "¿Quieres pasar por el almacén o prefieres envío a domicilio?",
	"city":              "¿En qué ciudad te encuentras?",
	"marca":             "¿Qué marca es tu máquina?",
	"sintoma":           "¿Qué síntoma tiene (no prende, ruido, etc.)?",
}

// HandleObjection intercepts common objections before any other routing.
// Returns nil when the message is not an objection.
func HandleObjection(userText string, state *State) *PlaybookResult {
	lower := rules.Normalize(userText)

	if rules.TooExpensive.Matches(lower) {
		return &PlaybookResult{
			Reply: "Entiendo. Tenemos opciones:\n\n" +
				"• Financiación con Addi o Sistecrédito\n" +
				"• Usadas en buen estado (pregunta por disponibilidad)\n" +
				"• Familiares desde $400.000\n\n" +
				"¿Qué presupuesto manejas?",
			NextStage:    StagePricing,
			Question:     "budget",
			DecisionPath: "objection_too_expensive",
		}
	}

	if rules.JustBrowsing.Matches(lower) {
		return &PlaybookResult{
			Reply:        "Sin problema. Te mando 2 opciones y listo. ¿Industrial o familiar?",
			NextStage:    StageDiscovery,
			Question:     "product_type",
			DecisionPath: "objection_just_browsing",
		}
	}

	return nil
}
