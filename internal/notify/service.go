// Package notify pushes internal handoff alerts to the sales and technical
// advisors over WhatsApp.
package notify

import (
	"context"
	"fmt"

	"github.com/elsastre/luisa/internal/conversation"
	"github.com/elsastre/luisa/pkg/logging"
)

// Service fans a handoff alert out to the configured team numbers. The
// same gateway client that talks to customers delivers the alerts.
type Service struct {
	sender  conversation.MessageSender
	numbers []string
	logger  *logging.Logger
}

var _ conversation.TeamNotifier = (*Service)(nil)

func NewService(sender conversation.MessageSender, numbers []string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender:  sender,
		numbers: numbers,
		logger:  logger,
	}
}

// NotifyTeam delivers the alert to every configured number. Individual
// failures are logged; the call errors only when nothing was delivered.
func (s *Service) NotifyTeam(ctx context.Context, team conversation.Team, body string) error {
	if s.sender == nil || len(s.numbers) == 0 {
		s.logger.Debug("notify: no team numbers configured, skipping alert", "team", string(team))
		return nil
	}

	delivered := 0
	for _, number := range s.numbers {
		outcome, err := s.sender.Send(ctx, number, body)
		if err != nil || !outcome.Success {
			s.logger.Error("notify: failed to alert advisor",
				"team", string(team),
				"error", err,
				"error_code", outcome.ErrorCode,
			)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("notify: no advisor reached for team %s", team)
	}
	s.logger.Info("notify: team alerted", "team", string(team), "delivered", delivered)
	return nil
}
