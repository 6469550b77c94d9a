package conversation

import (
	"strings"

	"github.com/elsastre/luisa/internal/rules"
)

// ExtractContext infers purchase context from recent history so follow-up
// questions narrow instead of restarting. It looks at the last 12 messages
// and prefers the most recent 6 for machine type.
func ExtractContext(history []Message) Context {
	var ctx Context
	if len(history) == 0 {
		return ctx
	}

	recent := history
	if len(recent) > 12 {
		recent = recent[len(recent)-12:]
	}
	ctx.Turns = len(recent)

	var fullParts, tailParts []string
	tailStart := len(recent) - 6
	if tailStart < 0 {
		tailStart = 0
	}
	for i, msg := range recent {
		lower := strings.ToLower(msg.Body)
		fullParts = append(fullParts, lower)
		if i >= tailStart {
			tailParts = append(tailParts, lower)
		}
	}
	fullText := strings.Join(fullParts, " ")
	tailText := strings.Join(tailParts, " ")

	switch {
	case rules.IndustrialMachine.Matches(tailText):
		ctx.MachineType = "industrial"
	case rules.FamiliarMachine.Matches(tailText):
		ctx.MachineType = "familiar"
	case rules.IndustrialMachine.Matches(fullText):
		ctx.MachineType = "industrial"
	case rules.FamiliarMachine.Matches(fullText):
		ctx.MachineType = "familiar"
	}

	useSets := []struct {
		name string
		set  rules.Set
	}{
		{"ropa", rules.UseClothing},
		{"gorras", rules.UseCaps},
		{"calzado", rules.UseFootwear},
		{"accesorios", rules.UseAccessories},
		{"hogar", rules.UseHome},
		{"uniformes", rules.UseUniforms},
		{"cuero", rules.UseLeather},
	}
	for _, u := range useSets {
		if u.set.Matches(fullText) {
			ctx.UseCase = u.name
			ctx.UseCaseCount++
		}
	}
	ctx.MultipleUses = ctx.UseCaseCount > 1

	// Low volume checked first: "pocas unidades al día" should not read
	// as high volume because of "día".
	if rules.LowVolume.Matches(fullText) {
		ctx.Volume = "bajo"
	} else if rules.HighVolume.Matches(fullText) {
		ctx.Volume = "alto"
	}
	if ctx.Volume == "alto" && ctx.MachineType == "" {
		ctx.MachineType = "industrial"
	}

	ctx.City = detectCity(fullText)

	for _, kw := range rules.BrandKeywords {
		if strings.Contains(fullText, kw) {
			bm := rules.BrandModels[kw]
			ctx.Brand = bm.Brand
			ctx.Model = bm.Model
			break
		}
	}

	if rules.BudgetMention.Matches(fullText) {
		ctx.Budget = "mencionado"
	}

	ctx.FunnelStage = funnelStage(ctx, recent)
	return ctx
}

// detectCity returns the canonical city named in the text, in-town first.
func detectCity(text string) string {
	if kw := rules.LocalCities.Extract(text); kw != "" {
		return rules.CanonicalCity[kw]
	}
	if kw := rules.OtherCities.Extract(text); kw != "" {
		return rules.CanonicalCity[kw]
	}
	return ""
}

func funnelStage(ctx Context, recent []Message) string {
	pricedAlready := false
	for _, msg := range recent {
		if msg.Direction != DirectionOutbound {
			continue
		}
		if strings.Contains(msg.Body, "$") || strings.Contains(msg.Body, ".000") {
			pricedAlready = true
		}
	}
	switch {
	case ctx.City != "" || (pricedAlready && ctx.Brand != ""):
		return "cierre"
	case ctx.Brand != "" || ctx.Model != "" || pricedAlready:
		return "decision"
	case ctx.MachineType != "" && ctx.UseCase != "":
		return "consideracion"
	default:
		return "exploracion"
	}
}

// ReadyToClose reports whether enough context exists to hand the customer
// to an advisor for closing.
func ReadyToClose(ctx Context) bool {
	if ctx.City != "" {
		return true
	}
	if ctx.MachineType == "industrial" && ctx.UseCase != "" && ctx.Volume != "" {
		return true
	}
	if ctx.Budget != "" && ctx.UseCase != "" {
		return true
	}
	return false
}
