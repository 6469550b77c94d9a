package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textPayload = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"changes": [{
			"value": {
				"contacts": [{"wa_id": "573001112233", "profile": {"name": "Marta"}}],
				"messages": [{
					"from": "+57 300 111 2233",
					"id": "wamid.ABC123",
					"type": "text",
					"text": {"body": "hola, busco una máquina"}
				}]
			}
		}]
	}]
}`

const statusPayload = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"changes": [{
			"value": {
				"statuses": [{"id": "wamid.ABC123", "status": "delivered"}]
			}
		}]
	}]
}`

func TestParseWebhookExtractsText(t *testing.T) {
	in, kind := ParseWebhook([]byte(textPayload))
	require.Equal(t, PayloadText, kind)
	require.NotNil(t, in)

	assert.Equal(t, "573001112233", in.From)
	assert.Equal(t, "wamid.ABC123", in.ProviderMessageID)
	assert.Equal(t, "hola, busco una máquina", in.Body)
	assert.Equal(t, "Marta", in.ContactName)
}

func TestParseWebhookStatusOnly(t *testing.T) {
	in, kind := ParseWebhook([]byte(statusPayload))
	assert.Nil(t, in)
	assert.Equal(t, PayloadStatus, kind)
}

func TestParseWebhookIgnoresNonText(t *testing.T) {
	payload := `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{"from": "573001112233", "id": "wamid.X", "type": "image"}]
				}
			}]
		}]
	}`
	in, kind := ParseWebhook([]byte(payload))
	assert.Nil(t, in)
	assert.Equal(t, PayloadIgnored, kind)
}

func TestParseWebhookMalformed(t *testing.T) {
	in, kind := ParseWebhook([]byte("not json"))
	assert.Nil(t, in)
	assert.Equal(t, PayloadIgnored, kind)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***2233", MaskPhone("+57 300 111 2233"))
	assert.Equal(t, "***", MaskPhone("123"))
}
