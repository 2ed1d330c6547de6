package domain

import (
	"fmt"
	"strings"
)

// Mail is an outgoing message waiting in the notification queue.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// OrderConfirmation is the mail sent to a customer after checkout.
func OrderConfirmation(o Order, to, name string) Mail {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "thank you for your order %s. It holds %d item(s) and will ship to:\n\n", o.ID, len(o.Lines))
	fmt.Fprintf(&b, "%s\n%s\n", o.Shipping.Name, o.Shipping.Address1)
	if o.Shipping.Address2 != "" {
		fmt.Fprintf(&b, "%s\n", o.Shipping.Address2)
	}
	fmt.Fprintf(&b, "%s %s\n%s\n", o.Shipping.PostalCode, o.Shipping.City, o.Shipping.Country)
	return Mail{
		To:      to,
		Subject: "Your order " + o.ID,
		Body:    b.String(),
	}
}
