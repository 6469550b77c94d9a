package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elsastre/luisa/internal/conversation"
)

type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) Send(_ context.Context, to, _ string) (conversation.SendOutcome, error) {
	if f.fail {
		return conversation.SendOutcome{}, errors.New("gateway down")
	}
	f.sent = append(f.sent, to)
	return conversation.SendOutcome{Success: true}, nil
}

func TestNotifyTeamFansOut(t *testing.T) {
	sender := &fakeSender{}
	s := NewService(sender, []string{"573000000001", "573000000002"}, nil)

	err := s.NotifyTeam(context.Background(), conversation.TeamTechnical, "⚙️ ATENCIÓN TÉCNICA")
	require.NoError(t, err)
	assert.Equal(t, []string{"573000000001", "573000000002"}, sender.sent)
}

func TestNotifyTeamNoNumbersConfigured(t *testing.T) {
	s := NewService(&fakeSender{}, nil, nil)

	err := s.NotifyTeam(context.Background(), conversation.TeamCommercial, "alerta")
	assert.NoError(t, err)
}

func TestNotifyTeamAllDeliveriesFail(t *testing.T) {
	s := NewService(&fakeSender{fail: true}, []string{"573000000001"}, nil)

	err := s.NotifyTeam(context.Background(), conversation.TeamCommercial, "alerta")
	assert.Error(t, err)
}
