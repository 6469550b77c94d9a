package rules

import "hash/fnv"

// Copy variants. SelectVariant picks one deterministically per conversation
// so the same customer always sees the same wording.

var GreetingVariants = []string{
	"¡Hola! 👋 Soy Luisa del Sastre.\n¿Buscas máquina familiar, industrial o repuesto?",
	"¡Hola! 😊 Soy Luisa. ¿Te ayudo con máquinas familiares, industriales o repuestos?",
}

var TriageRetryVariants = []string{
	"¿Es por máquinas, repuestos o servicio técnico?",
	"¿Necesitas máquinas, repuestos o soporte?",
}

var HumanActiveVariants = []string{
	"¡Hola! 😊 Un asesor te va a contactar pronto.\n¿Quieres que pase tu nombre y barrio para que todo esté listo?",
	"¡Hola! 👋 Un asesor te contactará pronto.\n¿Te ayudo con tu nombre y ubicación mientras tanto?",
}

var HandoffLocalVariants = []string{
	"Para coordinar pago y entrega, un asesor te va a acompañar.\n¿Te llamamos para agendar o prefieres pasar por el almacén?",
	"Para coordinar pago y entrega, te acompaña un asesor.\n¿Prefieres que te llamemos o pasas por el almacén?",
}

var HandoffRemoteVariants = []string{
	"Para tu proyecto, lo mejor es que un asesor te acompañe personalmente.\n¿Te llamamos para agendar cita o prefieres que vayamos a tu taller?",
	"Para tu proyecto, lo mejor es que un asesor te acompañe.\n¿Preferimos llamarte para agendar o vamos a tu taller?",
}

// SelectVariant returns a stable pick from variants for the conversation.
func SelectVariant(conversationID string, variants []string) string {
	if len(variants) == 0 {
		return ""
	}
	if len(variants) == 1 {
		return variants[0]
	}
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return variants[int(h.Sum32())%len(variants)]
}
