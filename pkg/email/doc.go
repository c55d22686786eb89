// Package email sends transactional billing emails behind a
// provider-agnostic EmailSender interface.
//
// Two implementations ship: the Postmark client for production and
// DevSender, which writes each email to disk for local inspection
// instead of sending it.
//
//	sender, err := email.NewPostmarkClient(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "billing@customer.example",
//		Subject:  "Payment received",
//		BodyHTML: html,
//		Tag:      "payment-succeeded",
//	})
//
// Sending is always driven through the job queue, never inline on a
// request path: the email worker applies retry, backoff, and the
// provider rate ceiling.
package email
