package notification

import (
	"context"
	"fmt"
	"log/slog"

	"labcrm_backend/internal/events"
	"labcrm_backend/platform/config"
	platformevents "labcrm_backend/platform/events"
	"labcrm_backend/platform/logger"
)

// Notifier subscribes to domain events and emails the sales team about them.
// Delivery is best effort; a failed send is logged and never retried here.
type Notifier struct {
	sender Sender
	cfg    config.EmailConfig
	log    *logger.Logger
}

func NewNotifier(sender Sender, cfg config.EmailConfig, log *logger.Logger) *Notifier {
	return &Notifier{sender: sender, cfg: cfg, log: log}
}

// Subscribe registers the notifier's event handlers on the bus.
func (n *Notifier) Subscribe(bus platformevents.Bus) {
	bus.Subscribe(events.LeadConvertedName, platformevents.HandlerFunc(func(ctx context.Context, event platformevents.Event) error {
		e, ok := event.(events.LeadConverted)
		if !ok {
			return nil
		}
		n.notifyLeadConverted(ctx, e)
		return nil
	}))
}

func (n *Notifier) notifyLeadConverted(ctx context.Context, e events.LeadConverted) {
	if !n.cfg.GetEmailEnabled() || n.cfg.GetSalesTeamAddress() == "" {
		return
	}

	action := "linked to existing customer"
	if e.Created {
		action = "new customer created"
	}

	subject := "[LabCRM] Lead converted"
	body := fmt.Sprintf(
		"A lead has been converted to a customer (%s).\n\nLead ID: %s\nCustomer ID: %s\n",
		action, e.LeadID, e.CustomerID,
	)

	if err := n.sender.Send(ctx, n.cfg.GetSalesTeamAddress(), subject, body); err != nil {
		n.log.Warn("notification_send_failed",
			slog.String("event", e.EventName()),
			slog.String("lead_id", e.LeadID.String()),
			slog.String("error", err.Error()),
		)
	}
}
