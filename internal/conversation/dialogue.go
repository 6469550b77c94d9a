package conversation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/elsastre/luisa/internal/rules"
)

// NextAction drives the per-stage state machine. It may mutate bookkeeping
// fields on state (triage retries, asked questions); slot changes and the
// stage transition travel back in the PlaybookResult so the engine merges
// and persists them in one place.
func NextAction(userText string, intent Intent, state *State, ctx Context) PlaybookResult {
	lower := rules.Normalize(userText)
	tri := ClassifyTriageIntent(userText)

	// A conversation parked on the triage menu consumes the answer first.
	if state.Stage == StageTriage {
		if parsed, ok := ParseTriageReply(userText); ok {
			state.TriageRetries = 0
			return routeTriageIntent(parsed, userText, lower, state, ctx)
		}
		if state.TriageRetries < 1 {
			state.TriageRetries++
			return PlaybookResult{
				Reply:        TriageMenu(state),
				NextStage:    StageTriage,
				Question:     "triage_menu",
				DecisionPath: "triage_repeat",
			}
		}
		// Second miss: stop insisting and treat it as discovery.
		state.TriageRetries = 0
		return handleDiscovery(intent, lower, state)
	}

	if r := HandleObjection(userText, state); r != nil {
		return *r
	}

	// First contact with an ambiguous opener gets the menu.
	if tri.Ambiguous && state.Stage == StageDiscovery && state.LastIntent == "" {
		return PlaybookResult{
			Reply:        TriageMenu(state),
			NextStage:    StageTriage,
			Question:     "triage_menu",
			DecisionPath: "triage_greeting",
		}
	}

	if !tri.Ambiguous && tri.Confidence >= triageConfidenceThreshold {
		switch tri.Intent {
		case IntentBuyMachine:
			// Purchase flows through the stage machine below.
		default:
			return routeTriageIntent(tri.Intent, userText, lower, state, ctx)
		}
	}

	if isPhotoRequest(lower) {
		return handlePhotoRequest(state, ctx)
	}
	if isSupportRequest(lower) {
		return handleSupportRequest(lower)
	}

	if intentChanged(tri, state, lower) && state.Stage != StageDiscovery {
		return handleIntentChange(lower, state, ctx)
	}

	switch state.Stage {
	case StageDiscovery:
		return handleDiscovery(intent, lower, state)
	case StagePricing:
		return handlePricing(intent, lower, state, ctx)
	case StageVisit:
		return handleVisit(userText, lower, state, ctx)
	case StageShipping:
		return handleShipping(userText, state)
	case StagePhotos:
		return handlePhotos(lower, state, ctx)
	case StageSupport, StageHandoffSchedule:
		return handleSupportRequest(lower)
	default:
		return handleDefault()
	}
}

func routeTriageIntent(intent Intent, userText, lower string, state *State, ctx Context) PlaybookResult {
	switch intent {
	case IntentBuyMachine:
		return handleDiscovery(intent, lower, state)
	case IntentSpareParts, IntentTechSupport, IntentBusinessAdvice,
		IntentFAQHoursLocation, IntentSellMachine:
		return CraftReply(intent, state, userText, ctx)
	default:
		return handleDefault()
	}
}

func isPhotoRequest(lower string) bool {
	return rules.Photos.Matches(lower) || strings.Contains(lower, "catálogo") ||
		strings.Contains(lower, "catalogo")
}

func isSupportRequest(lower string) bool {
	return strings.Contains(lower, "garantía") || strings.Contains(lower, "garantia") ||
		strings.Contains(lower, "repuesto") || strings.Contains(lower, "reparación") ||
		strings.Contains(lower, "reparacion") || strings.Contains(lower, "arreglo")
}

// intentChanged reports a topic switch mid-flow. Only meaningful once the
// conversation already has a last intent on record.
func intentChanged(tri TriageResult, state *State, lower string) bool {
	if state.LastIntent == "" {
		return false
	}
	for _, kw := range []string{"foto", "precio", "garantía", "garantia", "repuesto", "horario", "dirección", "direccion"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return !tri.Ambiguous && tri.Confidence >= triageConfidenceThreshold &&
		tri.Intent != state.LastIntent
}

func handleIntentChange(lower string, state *State, ctx Context) PlaybookResult {
	switch {
	case isPhotoRequest(lower):
		return handlePhotoRequest(state, ctx)
	case strings.Contains(lower, "precio"):
		return handlePricing(IntentBuyMachine, lower, state, ctx)
	case strings.Contains(lower, "horario"):
		reply := "Nuestro horario:\n\n" +
			"📍 Calle 34 #1-30, Montería\n" +
			"🕘 " + HoursWeekdays + "\n" +
			"🕘 " + HoursSaturday + "\n\n"
		// Pick the pending thread back up instead of dropping it.
		if state.LastQuestion == "city" && state.Slots.City != "" && !isMonteria(state.Slots.City) {
			reply += fmt.Sprintf("Veo que mencionaste %s. ¿Vas a venir a Montería a la tienda o prefieres que te coordinemos envío?", state.Slots.City)
		} else {
			reply += "¿Quieres pasar o prefieres envío a domicilio?"
		}
		return PlaybookResult{
			Reply:        reply,
			NextStage:    StageVisit,
			Question:     "visit_or_delivery",
			DecisionPath: "intent_change_handled",
		}
	default:
		return handleDefault()
	}
}

func handleDiscovery(intent Intent, lower string, state *State) PlaybookResult {
	if strings.Contains(lower, "industrial") {
		return PlaybookResult{
			Reply:        "Perfecto, industrial. ¿Qué vas a fabricar: ropa, gorras, calzado o accesorios?",
			NextStage:    StagePricing,
			Question:     "use_case",
			SlotUpdates:  Slots{ProductType: "industrial"},
			DecisionPath: "discovery_industrial",
		}
	}
	if strings.Contains(lower, "familiar") || strings.Contains(lower, "casa") || strings.Contains(lower, "hogar") {
		return PlaybookResult{
			Reply:        "Para casa una máquina familiar funciona bien. ¿Qué tipo de costura haces: arreglos, proyectos o costura creativa?",
			NextStage:    StagePricing,
			Question:     "use_case",
			SlotUpdates:  Slots{ProductType: "familiar"},
			DecisionPath: "discovery_familiar",
		}
	}

	if state.Slots.ProductType == "" && !state.Asked("product_type") {
		state.MarkAsked("product_type")
		return PlaybookResult{
			Reply:        "¿Buscas máquina familiar (para casa) o industrial (para producción)?",
			NextStage:    StageDiscovery,
			Question:     "product_type",
			DecisionPath: "discovery_ask_type",
		}
	}

	return handleDefault()
}

func handlePricing(intent Intent, lower string, state *State, ctx Context) PlaybookResult {
	slots := state.Slots
	productType := slots.ProductType
	if productType == "" {
		productType = ctx.MachineType
	}

	var updates Slots
	for _, uc := range []struct {
		name string
		set  rules.Set
	}{
		{"ropa", rules.UseClothing},
		{"gorras", rules.UseCaps},
		{"calzado", rules.UseFootwear},
		{"accesorios", rules.UseAccessories},
	} {
		if uc.set.Matches(lower) {
			updates.UseCase = uc.name
			slots.UseCase = uc.name
			break
		}
	}
	if m := qtyRe.FindStringSubmatch(lower); m != nil {
		updates.Qty = m[1]
		slots.Qty = m[1]
	}

	var reply string
	if productType == "industrial" {
		var b strings.Builder
		b.WriteString("Las industriales en promoción:\n\n")
		for _, p := range Promotions {
			fmt.Fprintf(&b, "• %s: %s\n", p.Name, FormatPrice(p.Price))
		}
		b.WriteString("\nIncluyen mesa, motor ahorrador e instalación.")
		reply = b.String()
	} else {
		reply = "Los precios varían según el tipo:\n\n" +
			"• Familiares: " + PriceRanges["familiar"].Description + "\n" +
			"• Industriales: " + PriceRanges["industrial"].Description + "\n"
	}

	var question string
	nextStage := StagePricing
	switch {
	case slots.UseCase == "" && productType == "industrial":
		reply += "\n\n¿Qué vas a fabricar: ropa, gorras, calzado o accesorios?"
		question = "use_case"
	case ctx.City == "" && slots.City == "":
		reply += "\n\n¿En qué ciudad te encuentras para coordinar el envío?"
		question = "city"
		nextStage = StageShipping
	default:
		reply += "\n\n¿Te separo una o quieres que te mande 2 opciones con fotos?"
		question = "decision"
		nextStage = StagePhotos
	}

	return PlaybookResult{
		Reply:        reply,
		NextStage:    nextStage,
		Question:     question,
		SlotUpdates:  updates,
		DecisionPath: "pricing_handled",
	}
}

var capitalizedWordRe = regexp.MustCompile(`(?:^|[\s,.])([A-ZÁÉÍÓÚÑ][a-záéíóúñ]+)`)

// extractMentionedCity pulls a city out of free text. Known cities win;
// otherwise any capitalized word that is not conversational filler.
func extractMentionedCity(userText string, exclude []string) string {
	lower := rules.Normalize(userText)
	for _, c := range rules.LocalCities {
		if strings.Contains(lower, c) {
			return titleCase(rules.CanonicalCity[c])
		}
	}
	for _, c := range rules.OtherCities {
		if strings.Contains(lower, c) {
			return titleCase(rules.CanonicalCity[c])
		}
	}
	if m := capitalizedWordRe.FindStringSubmatch(userText); m != nil {
		word := m[1]
		wl := strings.ToLower(word)
		for _, ex := range exclude {
			if wl == ex {
				return ""
			}
		}
		return word
	}
	return ""
}

func isMonteria(city string) bool {
	c := strings.ToLower(city)
	return c == "montería" || c == "monteria"
}

func handleVisit(userText, lower string, state *State, ctx Context) PlaybookResult {
	slots := state.Slots
	city := slots.City
	if city == "" {
		city = ctx.City
	}

	if strings.Contains(lower, "pasar") || strings.Contains(lower, "visitar") {
		var updates Slots
		if mentioned := extractMentionedCity(userText, []string{"montería", "monteria", "quiero", "pasar", "hola"}); mentioned != "" {
			city = mentioned
			updates.City = mentioned
		}
		if city != "" && !isMonteria(city) {
			return PlaybookResult{
				Reply:        fmt.Sprintf("Perfecto. ¿Vas a venir a Montería a la tienda o prefieres que te coordinemos envío a %s?", city),
				NextStage:    StageVisit,
				Question:     "visit_or_delivery",
				SlotUpdates:  updates,
				DecisionPath: "visit_handled",
			}
		}
		return PlaybookResult{
			Reply: "Perfecto. Estamos en Calle 34 #1-30, Montería.\n\n" +
				"🕘 " + HoursWeekdays + "\n" +
				"🕘 " + HoursSaturday + "\n\n" +
				"¿Qué día te viene mejor?",
			NextStage:    StageVisit,
			Question:     "visit_date",
			SlotUpdates:  updates,
			DecisionPath: "visit_handled",
		}
	}

	if city != "" && !state.Asked("city") {
		return PlaybookResult{
			Reply:        "¿Vas a venir a Montería a la tienda o prefieres envío a domicilio?",
			NextStage:    StageVisit,
			Question:     "visit_or_delivery",
			DecisionPath: "visit_handled",
		}
	}
	return PlaybookResult{
		Reply:        "¿Quieres pasar o prefieres envío a domicilio?",
		NextStage:    StageVisit,
		Question:     "visit_or_delivery",
		DecisionPath: "visit_handled",
	}
}

func handleShipping(userText string, state *State) PlaybookResult {
	var updates Slots
	city := state.Slots.City
	if mentioned := extractMentionedCity(userText, []string{"quiero", "pasar", "envío", "envio", "domicilio", "hola"}); mentioned != "" {
		city = mentioned
		updates.City = mentioned
	}

	if city != "" && state.Asked("city") {
		return PlaybookResult{
			Reply:        fmt.Sprintf("Perfecto, envío a %s. ¿Te separo una máquina o quieres ver fotos primero?", city),
			NextStage:    StagePhotos,
			Question:     "decision",
			SlotUpdates:  updates,
			DecisionPath: "shipping_handled",
		}
	}

	state.MarkAsked("city")
	return PlaybookResult{
		Reply:        "¿En qué ciudad o municipio sería el envío?",
		NextStage:    StageShipping,
		Question:     "city",
		SlotUpdates:  updates,
		DecisionPath: "shipping_handled",
	}
}

func handlePhotos(lower string, state *State, ctx Context) PlaybookResult {
	productType := state.Slots.ProductType
	if productType == "" {
		productType = ctx.MachineType
	}

	if strings.Contains(lower, "no sé") || strings.Contains(lower, "no se") ||
		strings.Contains(lower, "cual") || strings.Contains(lower, "cuál") {
		var reply string
		if productType == "industrial" {
			reply = "Te recomiendo 2 opciones:\n\n" +
				"• KINGTER KT-D3: $1.230.000 - Ideal para gorras y ropa\n" +
				"• KANSEW KS-8800: $1.300.000 - Más robusta, para producción constante\n\n" +
				"¿Te separo una o quieres ver fotos de ambas?"
		} else {
			reply = "Para casa te recomiendo empezar con una familiar básica ($400.000) o una intermedia ($600.000). " +
				"¿Te mando fotos de ambas para que veas cuál te gusta más?"
		}
		return PlaybookResult{
			Reply:        reply,
			NextStage:    StagePhotos,
			Question:     "choice",
			DecisionPath: "photos_handled",
		}
	}

	return PlaybookResult{
		Reply:        "Perfecto. ¿Te separo una o quieres ver más opciones?",
		NextStage:    StagePhotos,
		Question:     "decision",
		DecisionPath: "photos_handled",
	}
}

func handlePhotoRequest(state *State, ctx Context) PlaybookResult {
	productType := state.Slots.ProductType
	if productType == "" {
		productType = ctx.MachineType
	}
	useCase := state.Slots.UseCase
	if useCase == "" {
		useCase = ctx.UseCase
	}

	var reply string
	switch {
	case productType == "industrial" && useCase != "":
		reply = fmt.Sprintf("Sí, claro. Para %s te recomiendo estas opciones industriales. Te mando 2-3 opciones con fotos.", useCase)
	case productType == "industrial":
		reply = "Sí, claro. ¿Qué vas a coser: ropa, gorras, calzado o accesorios? Te mando 2-3 opciones con fotos."
	case productType == "familiar":
		reply = "Sí, claro. Para casa tenemos varias opciones. Te mando 2-3 opciones con fotos."
	default:
		reply = "Sí, claro. ¿Qué tipo: industrial o familiar? Y ¿qué vas a coser? Te mando 2-3 opciones con fotos."
	}

	var question string
	switch {
	case useCase == "" && productType != "":
		reply += "\n\n¿Qué vas a fabricar: ropa, gorras, calzado o accesorios?"
		question = "use_case"
	case productType == "":
		reply += "\n\n¿Buscas para casa o para producción?"
		question = "product_type"
	default:
		reply += "\n\n¿Presupuesto aproximado?"
		question = "budget"
	}

	return PlaybookResult{
		Reply:        reply,
		NextStage:    StagePhotos,
		Question:     question,
		DecisionPath: "photo_request_handled",
	}
}

func handleSupportRequest(lower string) PlaybookResult {
	var reply string
	switch {
	case strings.Contains(lower, "garantía") || strings.Contains(lower, "garantia"):
		reply = fmt.Sprintf("Todas nuestras máquinas tienen garantía de %d meses en %s. %s. ¿Qué máquina tienes o estás pensando comprar?",
			WarrantyMonths, WarrantyCoverage, WarrantyDescription)
	case strings.Contains(lower, "repuesto"):
		reply = "Sí, tenemos repuestos para las marcas que vendemos. " +
			"¿Me confirmas la marca o me envías foto de la placa? Así te doy precio exacto."
	default:
		reply = "Te puedo ayudar con garantía, repuestos o servicio técnico. ¿Qué necesitas?"
	}
	return PlaybookResult{
		Reply:        reply,
		NextStage:    StageSupport,
		Question:     "support_info",
		DecisionPath: "support_request_handled",
	}
}

func handleDefault() PlaybookResult {
	return PlaybookResult{
		Reply:        "¿Buscas máquina familiar (para casa) o industrial (para producción)?",
		NextStage:    StageDiscovery,
		Question:     "product_type",
		DecisionPath: "default_handled",
	}
}
