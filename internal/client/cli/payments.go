package cli

import (
	"context"
	"fmt"
	"os"
)

func (c *Cli) runPaymentRequest(ctx context.Context, orderID string, amount float64, body string) error {
	msg, err := c.payments.Request(ctx, orderID, amount, body)
	if err != nil {
		return fmt.Errorf("failed to request payment: %w", err)
	}
	c.io.Printf("✓ Payment request %s for %s sent (%s)\n", msg.ID, orderID, formatAmount(amount))
	return nil
}

func (c *Cli) runPaymentReceipt(ctx context.Context, messageID, path string) error {
	receipt, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read receipt %s: %w", path, err)
	}

	msg, err := c.payments.AttachReceipt(ctx, messageID, receipt)
	if err != nil {
		return fmt.Errorf("failed to attach receipt: %w", err)
	}
	c.io.Printf("✓ Receipt attached to %s, status: %s\n", msg.ID, msg.PaymentRequest.Status)
	return nil
}

func (c *Cli) runPaymentConfirm(ctx context.Context, messageID string) error {
	msg, err := c.payments.Confirm(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}
	c.io.Printf("✓ Payment confirmed, order %s marked paid\n", msg.OrderID)
	return nil
}

func (c *Cli) runPaymentPending(ctx context.Context) error {
	return c.render(paymentsTmpl, c.payments.Pending(ctx))
}
