package notification

import (
	"fmt"
	"time"
)

// Email copy is deliberately plain HTML assembled inline. Rendering
// pipelines and branded layouts belong to the marketing site, not the
// billing core.

func paymentSucceededEmail(tenantName string, amount int64, currency string, paidUntil *time.Time) (subject, body string) {
	subject = "Payment received"
	body = fmt.Sprintf("<p>Hi %s,</p><p>We received your payment of %s.</p>", tenantName, formatAmount(amount, currency))
	if paidUntil != nil {
		body += fmt.Sprintf("<p>Your subscription is paid up until %s.</p>", paidUntil.UTC().Format("January 2, 2006"))
	}
	return subject, body
}

func paymentFailedEmail(tenantName string) (subject, body string) {
	return "Payment failed",
		fmt.Sprintf("<p>Hi %s,</p><p>Your latest payment did not go through. Please update your payment method to keep your account active.</p>", tenantName)
}

func trialExpiringEmail(tenantName string, daysLeft int) (subject, body string) {
	return "Your trial is ending soon",
		fmt.Sprintf("<p>Hi %s,</p><p>Your trial ends in %d days. Pick a plan to keep your data and your team's schedule.</p>", tenantName, daysLeft)
}

func subscriptionExpiredEmail(tenantName string) (subject, body string) {
	return "Your subscription has expired",
		fmt.Sprintf("<p>Hi %s,</p><p>Your subscription has expired and access is suspended. Renew to restore access; your data is kept safe in the meantime.</p>", tenantName)
}

func renewalReminderEmail(tenantName string, daysLeft int) (subject, body string) {
	return fmt.Sprintf("Your subscription renews in %d days", daysLeft),
		fmt.Sprintf("<p>Hi %s,</p><p>Your subscription expires in %d days. Make sure your payment method is up to date.</p>", tenantName, daysLeft)
}

func formatAmount(minor int64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", float64(minor)/100, currency)
}
