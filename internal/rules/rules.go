// Package rules is the single source of truth for the Spanish keyword
// tables the engine classifies against. Triage, handoff, context extraction
// and the dialogue playbook all match through this package instead of
// keeping their own lists.
package rules

import (
	"strings"
)

// Set is an ordered list of keyword phrases matched by substring against
// normalized text.
type Set []string

// Normalize lowercases and trims text for matching.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Matches reports whether any keyword in the set occurs in the text.
func (s Set) Matches(text string) bool {
	lower := Normalize(text)
	for _, kw := range s {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Extract returns the first keyword found in the text, or "".
func (s Set) Extract(text string) string {
	lower := Normalize(text)
	for _, kw := range s {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// Count returns how many distinct keywords from the set occur in the text.
func (s Set) Count(text string) int {
	lower := Normalize(text)
	n := 0
	for _, kw := range s {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// Union concatenates sets preserving order.
func Union(sets ...Set) Set {
	var out Set
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

var Confirmations = Set{
	"si", "sí", "ok", "dale", "claro", "perfecto", "bueno", "vale",
	"está bien", "esta bien", "listo", "de acuerdo", "correcto",
	"exacto", "así es", "asi es", "afirmativo", "por favor",
	"muestrame", "muéstrame", "enséñame", "ensename", "a ver",
	"quiero ver", "me interesa", "manda", "envía", "envia",
	"pásame", "pasame", "dime", "cuáles", "cuales",
}

var Negations = Set{
	"no", "nop", "negativo", "otro", "otra", "diferente",
	"distinto", "distinta", "ninguno", "ninguna",
	"no me interesa", "no gracias", "paso", "mejor no", "no ahora",
	"más adelante", "mas adelante", "luego", "después", "despues",
}

var Greetings = Set{
	"hola", "buenos días", "buenos dias", "buenas tardes", "buenas noches",
	"buen día", "buen dia", "buenas", "saludos", "qué tal", "que tal",
	"hey", "holi", "alo", "aló",
}

var Farewells = Set{
	"gracias", "chau", "adiós", "adios", "nos vemos", "hasta luego",
	"bye", "muchas gracias", "mil gracias", "te agradezco", "hasta pronto",
}

var Price = Set{
	"precio", "precios", "cuánto cuesta", "cuanto cuesta",
	"cuánto vale", "cuanto vale", "valor", "costo",
	"cuánto es", "cuanto es", "qué precio", "que precio",
	"a cómo", "a como", "sale a", "está a", "esta a",
}

var BudgetMention = Set{
	"1.2", "1.3", "1.4", "1.5", "millón", "millones", "presupuesto",
}

var TooExpensive = Set{
	"muy caro", "caro", "costoso", "no tengo", "no alcanza",
}

var JustBrowsing = Set{
	"solo averiguando", "solo estoy viendo", "solo info",
}

var Availability = Set{
	"disponible", "disponibles", "tienen", "hay", "stock",
	"inventario", "existe", "disponibilidad", "en existencia", "manejan",
}

var PaymentMethods = Set{
	"forma de pago", "formas de pago", "cómo pagar", "como pagar",
	"pago", "pagando", "addi", "sistecrédito", "sistecredito",
	"crédito", "credito", "financiación", "financiacion",
	"cuotas", "a plazos", "contado", "efectivo", "transferencia",
	"tarjeta", "nequi", "daviplata",
}

var Buy = Set{
	"comprar", "quiero comprar", "me interesa comprar",
	"necesito comprar", "voy a comprar", "ya hice el pago",
	"pagué", "pague", "lo quiero", "la quiero", "me la llevo",
	"cómo compro", "como compro",
}

var Quote = Set{
	"cotización", "cotizacion", "cotizar", "cotizame",
	"factura proforma", "presupuesto formal", "proforma",
}

var Shipping = Set{
	"envío", "envio", "enviar", "entrega", "entregar",
	"envían", "envian", "hacen envío", "hacen envio",
	"a domicilio", "domicilio", "despacho", "mandan",
	"tiempo de entrega", "cuándo llega", "cuando llega",
	"llegan a", "despachan a",
}

var Installation = Set{
	"instalación", "instalacion", "instalar", "instalen", "instalo",
	"montar", "montaje", "dejan funcionando", "dejen funcionando",
	"configurar", "poner a funcionar", "armado", "vengan a instalar",
}

var Visit = Set{
	"visita", "visitar", "van a", "van al", "vayan a",
	"ir a mi", "vengan", "pueden ir",
}

var Warranty = Set{
	"garantía", "garantia", "garantizado", "cobertura",
	"respaldo", "soporte", "servicio técnico", "servicio tecnico",
	"postventa", "post venta", "si se daña", "si se dana",
}

var Repair = Set{
	"reparación", "reparacion", "arreglar", "arreglo",
	"mantenimiento", "revisar", "revisión", "revision",
	"no funciona", "se dañó", "se dano", "está mala", "esta mala",
	"no prende", "no cose", "tiene problemas", "se trabó", "se trabo",
	"hace ruido", "no avanza la tela", "rompe el hilo",
	"salta puntadas", "desajustada",
}

var SpareParts = Set{
	"repuestos", "repuesto", "piezas", "pieza", "partes",
	"aguja", "agujas", "hilo", "hilos", "pedal", "prensatela",
	"bobina", "canilla",
}

var Training = Set{
	"capacitación", "capacitacion", "enseñan", "ensenan",
	"curso", "cursos", "aprender", "clases", "tutorial",
	"cómo usar", "como usar", "instrucciones",
}

var Advice = Set{
	"asesoría", "asesoria", "asesorar", "asesoramiento",
	"recomiendas", "recomienda", "qué me recomiendas",
	"que me recomiendas", "recomiéndame", "recomiendame",
	"qué máquina", "que maquina", "cuál máquina", "cual maquina",
	"sugieres", "sugerencia", "aconsejas", "qué necesito",
	"que necesito", "cuál es la mejor", "cual es la mejor",
}

var FamiliarMachine = Set{
	"máquina familiar", "maquina familiar", "familiar",
	"familiares", "para casa", "doméstico", "domestico",
	"hogar", "uso personal", "uso doméstico", "uso domestico",
	"para el hogar", "casera",
}

var IndustrialMachine = Set{
	"máquina industrial", "maquina industrial", "industrial",
	"industriales", "taller", "producción", "produccion",
	"emprendimiento", "negocio", "recta industrial",
	"para taller", "para producir", "profesional", "trabajo pesado",
}

var Serger = Set{
	"fileteadora", "fileteadoras", "filetear", "orillos",
	"acabados", "overlock", "overlok", "remalladora", "remallado",
}

var UseClothing = Set{
	"ropa", "prendas", "camisas", "pantalones", "vestidos",
	"blusas", "faldas", "confección", "confeccion",
}

var UseCaps = Set{"gorras", "gorra", "cachuchas", "sombreros"}

var UseFootwear = Set{"calzado", "zapatos", "zapatillas", "tenis", "botas", "sandalias"}

var UseAccessories = Set{"bolsos", "carteras", "morrales", "billeteras"}

var UseHome = Set{"cortinas", "mantelería", "manteleria", "cojines", "lencería hogar", "lenceria hogar"}

var UseUniforms = Set{"uniformes", "dotación", "dotacion", "overoles"}

var UseLeather = Set{"cuero", "cueros", "marroquinería", "marroquineria"}

var HighVolume = Set{
	"constante", "muchas", "muchos", "producción constante",
	"produccion constante", "producción continua", "produccion continua",
	"continua", "diario", "todos los días", "clientes", "pedidos",
	"encargos", "alta producción", "alta produccion",
}

var LowVolume = Set{
	"pocas", "poca", "poco", "pocos", "ocasional", "esporádico",
	"esporadico", "hobby", "arreglos", "remiendos", "casual",
}

var BusinessImpact = Set{
	"montar negocio", "montar un negocio", "montar mi negocio",
	"emprendimiento", "emprender", "mi emprendimiento",
	"mi taller", "abrir taller", "mejorar mi negocio",
	"mejorar negocio", "hacer crecer", "crecer",
	"aumentar producción", "aumentar produccion",
	"escalar", "expandir",
}

var LocalCities = Set{"montería", "monteria"}

var OtherCities = Set{
	"bogotá", "bogota", "medellín", "medellin", "cali", "barranquilla",
	"cartagena", "santa marta", "manizales", "pereira", "armenia",
	"ibagué", "ibague", "villavicencio", "bucaramanga", "pasto",
	"neiva", "cúcuta", "cucuta", "sincelejo", "valledupar",
	"popayán", "popayan",
}

var RuralLocations = Set{"municipio", "pueblo", "vereda", "corregimiento"}

// CanonicalCity maps spelling variants to the canonical city name.
var CanonicalCity = map[string]string{
	"montería": "montería", "monteria": "montería",
	"bogotá": "bogotá", "bogota": "bogotá",
	"medellín": "medellín", "medellin": "medellín",
	"cali":          "cali",
	"barranquilla":  "barranquilla",
	"cartagena":     "cartagena",
	"bucaramanga":   "bucaramanga",
	"pereira":       "pereira",
	"manizales":     "manizales",
	"ibagué":        "ibagué", "ibague": "ibagué",
	"cúcuta":        "cúcuta", "cucuta": "cúcuta",
	"villavicencio": "villavicencio",
	"santa marta":   "santa marta",
	"pasto":         "pasto",
	"neiva":         "neiva",
	"armenia":       "armenia",
	"sincelejo":     "sincelejo",
	"valledupar":    "valledupar",
	"popayán":       "popayán", "popayan": "popayán",
}

// BrandModel identifies a machine brand plus optional model.
type BrandModel struct {
	Brand string
	Model string
}

// BrandModels maps mention keywords to brand/model.
var BrandModels = map[string]BrandModel{
	"ssgemsy":    {"SSGEMSY", "SG8802E"},
	"sg8802e":    {"SSGEMSY", "SG8802E"},
	"union":      {"UNION", "UN300"},
	"un300":      {"UNION", "UN300"},
	"un350":      {"UNION", "UN350"},
	"kansew":     {"KANSEW", "KS653"},
	"ks653":      {"KANSEW", "KS653"},
	"ks-8800":    {"KANSEW", "KS-8800"},
	"ks8800":     {"KANSEW", "KS-8800"},
	"singer":     {"SINGER", ""},
	"s0105":      {"SINGER", "S0105"},
	"heavy duty": {"SINGER", "Heavy Duty"},
	"6705c":      {"SINGER", "Heavy Duty 6705C"},
	"6705":       {"SINGER", "Heavy Duty 6705C"},
	"kingter":    {"KINGTER", "KT-D3"},
	"kt-d3":      {"KINGTER", "KT-D3"},
	"ktd3":       {"KINGTER", "KT-D3"},
	"willcox":    {"WILLCOX", ""},
	"wilcox":     {"WILLCOX", ""},
}

// BrandKeywords fixes the scan order for brand detection so the first
// mentioned brand wins deterministically.
var BrandKeywords = []string{
	"ssgemsy", "sg8802e", "union", "un300", "un350",
	"kansew", "ks653", "ks-8800", "ks8800",
	"singer", "s0105", "heavy duty", "6705c", "6705",
	"kingter", "kt-d3", "ktd3", "willcox", "wilcox",
}

var Promotions = Set{
	"promoción", "promocion", "promociones", "oferta", "ofertas",
	"descuento", "descuentos", "rebaja", "rebajas",
	"ganga", "liquidación", "liquidacion", "precio especial",
	"navidad", "navideña", "navidena",
}

var Photos = Set{
	"fotos", "foto", "imágenes", "imagenes", "imagen",
	"muéstrame", "muestrame", "ver fotos", "quiero ver",
	"tienes fotos", "tiene fotos", "fotografía", "fotografia",
	"regalame fotos", "regálame fotos", "envíame foto",
	"enviame foto", "pásame fotos", "pasame fotos",
	"mándame", "mandame",
}

var Specifications = Set{
	"especificaciones", "especificacion", "características",
	"caracteristicas", "qué tiene", "que tiene",
	"incluye", "trae", "viene con", "specs",
	"ficha técnica", "ficha tecnica",
	"información técnica", "informacion tecnica",
}

var Hours = Set{
	"horario", "horarios", "cuándo abren", "cuando abren",
	"están abiertos", "estan abiertos", "abierto", "cierran",
}

var Location = Set{
	"dónde quedan", "donde quedan", "ubicación", "ubicacion",
	"dirección", "direccion", "cómo llego", "como llego",
}

// Urgent deliberately avoids the bare word "ya": in phrases like
// "ya pagué" it means "already", not urgency, and an already-paid
// customer asking about logistics is a commercial case, not a fire.
var Urgent = Set{
	"urgente", "ya mismo", "necesito ya", "para ya", "inmediato",
	"ahora mismo", "emergencia",
	"roto", "defectuoso", "reclamo", "demanda", "abogado", "legal",
}

var Problems = Set{
	"problema", "error", "no llegó", "no llego", "perdido", "equivocado",
	"devolución", "devolucion", "reembolso", "cancelar", "cancelación",
	"insatisfecho", "mal servicio", "defectuoso", "rota", "roto",
	"reclamo", "queja", "mal estado", "llegó roto", "producto roto",
}

var OffTopic = Set{
	"programar", "programación", "código", "codigo", "python",
	"javascript", "react", "software", "desarrollo", "programador",
	"algoritmo",
	"tarea", "examen", "trabajo escolar", "universidad",
	"colegio", "profesor", "ensayo", "monografía", "monografia",
	"médico", "medico", "doctor", "enfermedad", "síntomas",
	"sintomas", "receta", "medicina", "divorcio",
	"psicólogo", "psicologo",
	"restaurante", "hotel", "vuelo",
	"celular", "computador", "laptop",
	"televisor", "nevera", "lavadora",
}

// Commercial unions every set that signals a commercial question.
func Commercial() Set {
	return Union(Price, Availability, PaymentMethods, Buy, Quote, Shipping, Promotions)
}

// Technical unions every set that signals a technical question.
func Technical() Set {
	return Union(Installation, Visit, Warranty, Repair, SpareParts, Training)
}
