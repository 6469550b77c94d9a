package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countQuestions(s string) int {
	return strings.Count(s, "?") + strings.Count(s, "¿")
}

func TestCraftReplyPriceForIndustrial(t *testing.T) {
	state := NewState("c1")
	state.Slots.ProductType = "industrial"
	got := CraftReply(IntentBuyMachine, state, "cuánto cuesta la recta", Context{})

	assert.Contains(t, got.Reply, "KINGTER KT-D3: $1.230.000")
	assert.Contains(t, got.Reply, "KANSEW KS-8800: $1.300.000")
	assert.Contains(t, got.Reply, "mesa, motor ahorrador e instalación")
	assert.Contains(t, got.Reply, "producción constante o pocas unidades")
	assert.Equal(t, StagePricing, got.NextStage)
	assert.Equal(t, "use_case", got.Question)
}

func TestCraftReplyPriceWithoutProductType(t *testing.T) {
	state := NewState("c1")
	got := CraftReply(IntentBuyMachine, state, "precio?", Context{})

	assert.Contains(t, got.Reply, "Familiares: desde $400.000")
	assert.Contains(t, got.Reply, "¿Buscas para casa o para producción?")
	assert.Equal(t, "product_type", got.Question)
}

func TestCraftReplyAsksQtyAfterUseCase(t *testing.T) {
	state := NewState("c1")
	state.Slots.ProductType = "industrial"
	state.Slots.UseCase = "gorras"
	got := CraftReply(IntentBuyMachine, state, "si, de una", Context{})

	assert.Contains(t, got.Reply, "para gorras")
	assert.Equal(t, "qty", got.Question)
	assert.Equal(t, "buy_machine_ask_qty", got.DecisionPath)
}

func TestCraftReplyExtractsQtyFromMessage(t *testing.T) {
	state := NewState("c1")
	state.Slots.ProductType = "industrial"
	state.Slots.UseCase = "gorras"
	got := CraftReply(IntentBuyMachine, state, "serían 50 gorras al mes", Context{})

	assert.Equal(t, "50", got.SlotUpdates.Qty)
	assert.Contains(t, got.Reply, "KS-8800")
	assert.Equal(t, StagePhotos, got.NextStage)
}

func TestCraftReplyRecommendationSmallCapQty(t *testing.T) {
	state := NewState("c1")
	state.Slots.ProductType = "industrial"
	state.Slots.UseCase = "gorras"
	state.Slots.Qty = "20"
	got := CraftReply(IntentBuyMachine, state, "listo", Context{})

	assert.Contains(t, got.Reply, "KT-D3 te va bien")
	assert.Equal(t, "buy_machine_recommendation", got.DecisionPath)
}

func TestCraftReplyDeliveryWithoutCityAsksCity(t *testing.T) {
	state := NewState("c1")
	state.Slots.ProductType = "industrial"
	state.Slots.UseCase = "ropa"
	state.Slots.Qty = "40"
	state.Slots.VisitOrDelivery = "delivery"
	got := CraftReply(IntentBuyMachine, state, "dale", Context{})

	assert.Contains(t, got.Reply, "¿En qué ciudad te encuentras")
	assert.Equal(t, "city", got.Question)
}

func TestCraftReplySpareParts(t *testing.T) {
	got := CraftReply(IntentSpareParts, NewState("c1"), "necesito repuestos", Context{})
	assert.Contains(t, got.Reply, "repuestos para las marcas")
	assert.Equal(t, StageSupport, got.NextStage)
}

func TestCraftReplyWarranty(t *testing.T) {
	got := CraftReply(IntentTechSupport, NewState("c1"), "qué garantía tienen", Context{})
	assert.Contains(t, got.Reply, "garantía de 3 meses")
}

func TestCraftReplyBusinessAdviceWithUseCase(t *testing.T) {
	got := CraftReply(IntentBusinessAdvice, NewState("c1"), "quiero emprender con gorras", Context{})
	assert.Contains(t, got.Reply, "recta industrial")
	assert.Equal(t, "gorras", got.SlotUpdates.UseCase)
	assert.Equal(t, "budget", got.Question)
}

func TestCraftReplyHoursLocation(t *testing.T) {
	got := CraftReply(IntentFAQHoursLocation, NewState("c1"), "qué horario tienen", Context{})
	assert.Contains(t, got.Reply, "Calle 34 #1-30, Montería")
	assert.Contains(t, got.Reply, "Lunes a viernes: 9am-6pm")
	assert.Equal(t, StageVisit, got.NextStage)
}

func TestCraftReplyDefaultAsksProductType(t *testing.T) {
	got := CraftReply(IntentOther, NewState("c1"), "mmm", Context{})
	assert.Contains(t, got.Reply, "familiar (para casa) o industrial")
	assert.Equal(t, "product_type", got.Question)
}

func TestPickOneQuestionPriority(t *testing.T) {
	state := NewState("c1")
	assert.Equal(t, "use_case", PickOneQuestion(IntentBuyMachine, state))

	state.Slots.UseCase = "ropa"
	assert.Equal(t, "qty", PickOneQuestion(IntentBuyMachine, state))

	state.Slots.Qty = "10"
	assert.Equal(t, "budget", PickOneQuestion(IntentBuyMachine, state))

	state.Slots.Budget = "1.3"
	assert.Equal(t, "visit_or_delivery", PickOneQuestion(IntentBuyMachine, state))

	state.Slots.VisitOrDelivery = "delivery"
	assert.Equal(t, "city", PickOneQuestion(IntentBuyMachine, state))

	state.Slots.City = "montería"
	assert.Empty(t, PickOneQuestion(IntentBuyMachine, state))
}

func TestPickOneQuestionOtherIntents(t *testing.T) {
	state := NewState("c1")
	assert.Equal(t, "budget", PickOneQuestion(IntentBusinessAdvice, state))
	assert.Equal(t, "marca", PickOneQuestion(IntentSpareParts, state))

	state.Slots.Brand = "SINGER"
	assert.Equal(t, "sintoma", PickOneQuestion(IntentTechSupport, state))
	assert.Empty(t, PickOneQuestion(IntentSpareParts, state))
	assert.Empty(t, PickOneQuestion(IntentOther, state))
}

func TestHandleObjectionTooExpensive(t *testing.T) {
	got := HandleObjection("está muy caro", NewState("c1"))
	require.NotNil(t, got)
	assert.Contains(t, got.Reply, "Addi o Sistecrédito")
	assert.Equal(t, "budget", got.Question)
	assert.Equal(t, "objection_too_expensive", got.DecisionPath)
}

func TestHandleObjectionJustBrowsing(t *testing.T) {
	got := HandleObjection("solo averiguando precios", NewState("c1"))
	require.NotNil(t, got)
	assert.Contains(t, got.Reply, "2 opciones")
	assert.Equal(t, "objection_just_browsing", got.DecisionPath)
}

func TestHandleObjectionNone(t *testing.T) {
	assert.Nil(t, HandleObjection("quiero una máquina", NewState("c1")))
}

func TestCraftReplySingleQuestionPerTurn(t *testing.T) {
	cases := []struct {
		intent Intent
		text   string
	}{
		{IntentBuyMachine, "precio?"},
		{IntentSpareParts, "repuestos"},
		{IntentBusinessAdvice, "quiero emprender con gorras"},
		{IntentOther, "mmm"},
	}
	for _, c := range cases {
		got := CraftReply(c.intent, NewState("c1"), c.text, Context{})
		// One question means one "¿...?" pair at most.
		assert.LessOrEqual(t, strings.Count(got.Reply, "¿"), 1, "intent %s", c.intent)
	}
}
