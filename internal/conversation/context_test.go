package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func inbound(body string) Message {
	return Message{Direction: DirectionInbound, Body: body}
}

func outbound(body string) Message {
	return Message{Direction: DirectionOutbound, Body: body}
}

func TestExtractContextEmptyHistory(t *testing.T) {
	ctx := ExtractContext(nil)
	assert.Zero(t, ctx.Turns)
	assert.Empty(t, ctx.MachineType)
}

func TestExtractContextMachineTypeAndUse(t *testing.T) {
	ctx := ExtractContext([]Message{
		inbound("busco una máquina industrial"),
		inbound("es para hacer gorras"),
	})
	assert.Equal(t, "industrial", ctx.MachineType)
	assert.Equal(t, "gorras", ctx.UseCase)
	assert.False(t, ctx.MultipleUses)
}

func TestExtractContextRecentMachineTypeWins(t *testing.T) {
	history := []Message{
		inbound("quiero algo para la casa, uso doméstico"),
	}
	// Pad so the familiar mention falls outside the recent six messages.
	for i := 0; i < 6; i++ {
		history = append(history, inbound("ok"))
	}
	history = append(history, inbound("mejor una industrial para mi taller"))
	ctx := ExtractContext(history)
	assert.Equal(t, "industrial", ctx.MachineType)
}

func TestExtractContextMultipleUses(t *testing.T) {
	ctx := ExtractContext([]Message{
		inbound("hago ropa y también bolsos"),
	})
	assert.True(t, ctx.MultipleUses)
	assert.Equal(t, 2, ctx.UseCaseCount)
	assert.Equal(t, "accesorios", ctx.UseCase)
}

func TestExtractContextVolumeLowBeatsHigh(t *testing.T) {
	ctx := ExtractContext([]Message{
		inbound("coso pocas unidades, es un hobby, no es diario"),
	})
	assert.Equal(t, "bajo", ctx.Volume)
}

func TestExtractContextHighVolumeInfersIndustrial(t *testing.T) {
	ctx := ExtractContext([]Message{
		inbound("tengo pedidos de clientes todos los días"),
	})
	assert.Equal(t, "alto", ctx.Volume)
	assert.Equal(t, "industrial", ctx.MachineType)
}

func TestExtractContextCityAndBrand(t *testing.T) {
	ctx := ExtractContext([]Message{
		inbound("estoy en monteria y me interesa la kingter"),
	})
	assert.Equal(t, "montería", ctx.City)
	assert.Equal(t, "KINGTER", ctx.Brand)
	assert.Equal(t, "KT-D3", ctx.Model)
	assert.Equal(t, "cierre", ctx.FunnelStage)
}

func TestExtractContextBudgetMention(t *testing.T) {
	ctx := ExtractContext([]Message{
		inbound("mi presupuesto es de 1.3 millones"),
	})
	assert.Equal(t, "mencionado", ctx.Budget)
}

func TestExtractContextFunnelDecisionAfterPricing(t *testing.T) {
	ctx := ExtractContext([]Message{
		inbound("precio de la recta?"),
		outbound("Claro, está en $1.230.000 con mesa y motor incluidos."),
	})
	assert.Equal(t, "decision", ctx.FunnelStage)
}

func TestReadyToClose(t *testing.T) {
	assert.True(t, ReadyToClose(Context{City: "bogotá"}))
	assert.True(t, ReadyToClose(Context{MachineType: "industrial", UseCase: "ropa", Volume: "alto"}))
	assert.True(t, ReadyToClose(Context{Budget: "mencionado", UseCase: "gorras"}))
	assert.False(t, ReadyToClose(Context{MachineType: "familiar", UseCase: "hogar"}))
	assert.False(t, ReadyToClose(Context{}))
}
