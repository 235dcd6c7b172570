/*
notifier.go - Exit notice email delivery

PURPOSE:
  Sends the exit settlement notice to the departing tenant and a copy to
  the property owner. Implements clearance.Notifier; the settlement path
  treats delivery failure as a warning, never a rollback.

DISABLED MODE:
  With no SMTP host configured the notifier logs the notice instead of
  sending it, so local development needs no mail server.

SEE ALSO:
  - clearance/service.go: the settlement paths that fire the notice
  - config/config.go: SMTP settings
*/
package api

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sleekabode/tenancy-engine/clearance"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

// EmailNotifier delivers exit notices over SMTP.
type EmailNotifier struct {
	dialer     *gomail.Dialer
	from       string
	ownerEmail string
	log        *zap.Logger
}

// NewEmailNotifier builds a notifier. An empty host disables delivery.
func NewEmailNotifier(host string, port int, username, password, from, ownerEmail string, log *zap.Logger) *EmailNotifier {
	n := &EmailNotifier{from: from, ownerEmail: ownerEmail, log: log}
	if host != "" {
		n.dialer = gomail.NewDialer(host, port, username, password)
	}
	return n
}

// SendExitNotice emails the settlement summary to the tenant, copying
// the owner. A nil clearance means the exit went through final-period
// billing; the notice still goes out.
func (n *EmailNotifier) SendExitNotice(ctx context.Context, tenant *tenancy.Tenant, c *clearance.Clearance) error {
	subject := fmt.Sprintf("Exit settlement for %s", tenant.Name)
	body := n.noticeBody(tenant, c)

	if n.dialer == nil {
		n.log.Info("email delivery disabled, exit notice logged only",
			zap.String("tenant", string(tenant.ID)),
			zap.String("subject", subject))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	recipients := []string{}
	if tenant.Email != "" {
		recipients = append(recipients, tenant.Email)
	}
	if n.ownerEmail != "" {
		recipients = append(recipients, n.ownerEmail)
	}
	if len(recipients) == 0 {
		n.log.Warn("no recipients for exit notice",
			zap.String("tenant", string(tenant.ID)))
		return nil
	}
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send exit notice: %w", err)
	}
	n.log.Info("exit notice sent",
		zap.String("tenant", string(tenant.ID)),
		zap.Strings("recipients", recipients))
	return nil
}

func (n *EmailNotifier) noticeBody(tenant *tenancy.Tenant, c *clearance.Clearance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", tenant.Name)
	b.WriteString("Your tenancy has been settled for clearance.\n\n")

	if c != nil {
		fmt.Fprintf(&b, "Painting fee: %s (paid %s)\n",
			c.PaintingFee.Expected, c.PaintingFee.Amount)
		for i := range c.Miscellaneous {
			fee := &c.Miscellaneous[i]
			fmt.Fprintf(&b, "%s: %s (paid %s)\n", fee.Label(), fee.Expected, fee.Amount)
		}
		fmt.Fprintf(&b, "\nOutstanding balance: %s\n", c.GlobalDeficit)
		fmt.Fprintf(&b, "Refundable overpay: %s\n", c.Overpay)
	} else {
		b.WriteString("Your final billing period was settled from your deposits.\n")
		fmt.Fprintf(&b, "Remaining deposit balance: %s\n", tenant.Deposits.RemainingDeposits())
	}

	b.WriteString("\nYour records will be archived shortly. ")
	b.WriteString("Contact the property office for any correction.\n")
	return b.String()
}
