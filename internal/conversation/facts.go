package conversation

import (
	"fmt"
	"strings"
)

// Hard business facts for Almacén El Sastre. Replies and LLM prompts only
// quote figures from here; anything a model invents outside these ranges
// is discarded.

const (
	BusinessName    = "Almacén y Taller El Sastre"
	BusinessAddress = "Calle 34 #1-30, Montería, Córdoba, Colombia"
	HoursWeekdays   = "Lunes a viernes: 9am-6pm"
	HoursSaturday   = "Sábados: 9am-2pm"

	WarrantyMonths      = 3
	WarrantyCoverage    = "partes y mano de obra"
	WarrantyDescription = "Si algo falla, la revisamos sin costo"
)

// Promotion is a machine currently on offer.
type Promotion struct {
	Name     string
	Price    int
	Includes []string
	Category string
	BestFor  []string
}

var Promotions = []Promotion{
	{
		Name:     "KINGTER KT-D3",
		Price:    1230000,
		Includes: []string{"mesa", "motor ahorrador", "instalación"},
		Category: "industrial",
		BestFor:  []string{"gorras", "ropa", "producción ocasional"},
	},
	{
		Name:     "KANSEW KS-8800",
		Price:    1300000,
		Includes: []string{"mesa", "motor ahorrador", "instalación"},
		Category: "industrial",
		BestFor:  []string{"producción constante", "tela gruesa", "escalar"},
	},
}

// PriceRange bounds valid quotes per category.
type PriceRange struct {
	Min         int
	Max         int
	Description string
}

var PriceRanges = map[string]PriceRange{
	"familiar":   {Min: 400000, Max: 600000, Description: "desde $400.000"},
	"industrial": {Min: 1230000, Max: 1300000, Description: "desde $1.230.000"},
}

var PaymentOptions = []string{"Addi", "Sistecrédito", "Efectivo", "Transferencia"}

var SparePartsBrands = []string{"Singer", "KINGTER", "KANSEW", "Union"}

var TechServices = []string{"Instalación", "Mantenimiento", "Reparación", "Garantía"}

// ValidPrice reports whether a quoted price falls inside a known range or
// matches a promotion exactly.
func ValidPrice(price int) bool {
	for _, p := range Promotions {
		if price == p.Price {
			return true
		}
	}
	for _, r := range PriceRanges {
		if price >= r.Min && price <= r.Max {
			return true
		}
	}
	return false
}

// FormatPrice renders a Colombian peso amount with dot separators.
func FormatPrice(price int) string {
	s := fmt.Sprintf("%d", price)
	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return "$" + b.String()
}

// BusinessFactsSummary serializes the facts for LLM prompts.
func BusinessFactsSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "NEGOCIO: %s\n\n", BusinessName)
	fmt.Fprintf(&b, "UBICACIÓN Y HORARIOS:\n- Dirección: %s\n- %s\n- %s\n\n", BusinessAddress, HoursWeekdays, HoursSaturday)
	fmt.Fprintf(&b, "GARANTÍA:\n- %d meses en %s\n- %s\n\n", WarrantyMonths, WarrantyCoverage, WarrantyDescription)
	b.WriteString("PROMOCIONES ACTUALES:\n")
	for _, p := range Promotions {
		fmt.Fprintf(&b, "- %s: %s (incluye: %s)\n", p.Name, FormatPrice(p.Price), strings.Join(p.Includes, ", "))
	}
	fmt.Fprintf(&b, "\nPRECIOS BASE:\n- Familiares: %s\n- Industriales: %s\n\n",
		PriceRanges["familiar"].Description, PriceRanges["industrial"].Description)
	fmt.Fprintf(&b, "FORMAS DE PAGO:\n- %s\n\n", strings.Join(PaymentOptions, ", "))
	b.WriteString("ENTREGA:\n- Visita a tienda en Montería\n- Envío a domicilio (coordinado según ciudad)\n\n")
	fmt.Fprintf(&b, "REPUESTOS:\n- Disponibles para: %s\n\n", strings.Join(SparePartsBrands, ", "))
	fmt.Fprintf(&b, "SERVICIOS:\n- %s\n\n", strings.Join(TechServices, ", "))
	b.WriteString("DISCLAIMERS:\n- Stock sujeto a disponibilidad\n- Envío a coordinar según ciudad/barrio\n- Precios en promoción, sujetos a cambio\n")
	return b.String()
}
