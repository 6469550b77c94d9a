package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMatches(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		text string
		want bool
	}{
		{"price question", Price, "¿Cuánto cuesta la fileteadora?", true},
		{"accented and plain spelling", Shipping, "hacen envio a sincelejo?", true},
		{"industrial inside plural", IndustrialMachine, "busco máquinas industriales", true},
		{"no match", Repair, "quiero comprar una máquina", false},
		{"case insensitive", Greetings, "HOLA buenas", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.set.Matches(tt.text))
		})
	}
}

func TestSetExtract(t *testing.T) {
	got := OtherCities.Extract("Estoy en Medellín, hacen envíos?")
	assert.Equal(t, "medellín", got)

	assert.Empty(t, OtherCities.Extract("estoy en montería"))
}

func TestSetCount(t *testing.T) {
	n := Repair.Count("la máquina no cose y salta puntadas, hace ruido")
	assert.GreaterOrEqual(t, n, 3)

	assert.Zero(t, Repair.Count("hola"))
}

func TestUnionPreservesOrder(t *testing.T) {
	u := Union(Set{"a", "b"}, Set{"c"})
	require.Len(t, u, 3)
	assert.Equal(t, Set{"a", "b", "c"}, u)
}

func TestCanonicalCity(t *testing.T) {
	assert.Equal(t, "bogotá", CanonicalCity["bogota"])
	assert.Equal(t, "montería", CanonicalCity["monteria"])
}

func TestBrandModels(t *testing.T) {
	bm, ok := BrandModels["kingter"]
	require.True(t, ok)
	assert.Equal(t, "KINGTER", bm.Brand)
	assert.Equal(t, "KT-D3", bm.Model)

	singer := BrandModels["singer"]
	assert.Empty(t, singer.Model)
}

func TestCommercialAndTechnicalUnions(t *testing.T) {
	assert.True(t, Commercial().Matches("me interesa, cómo pagar con addi"))
	assert.True(t, Technical().Matches("necesito agujas y bobinas"))
	assert.False(t, Technical().Matches("hola buenas tardes"))
}

func TestSelectVariantDeterministic(t *testing.T) {
	first := SelectVariant("573001234567", GreetingVariants)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, SelectVariant("573001234567", GreetingVariants))
	}
	assert.Contains(t, GreetingVariants, first)

	assert.Empty(t, SelectVariant("x", nil))
	assert.Equal(t, "solo", SelectVariant("x", []string{"solo"}))
}
