package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/petalsync/internal/models"
)

type threadView struct {
	OrderID  string
	Messages []models.Message
}

func (c *Cli) runMessageSend(ctx context.Context, orderID, body string) error {
	msg, err := c.shop.SendMessage(ctx, orderID, c.sender(), body)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.io.Printf("✓ Message %s sent\n", msg.ID)
	return nil
}

func (c *Cli) runThread(ctx context.Context, orderID string, markRead bool) error {
	view := threadView{OrderID: orderID, Messages: c.shop.Thread(ctx, orderID)}
	if err := c.render(threadTmpl, view); err != nil {
		return err
	}

	if !markRead {
		return nil
	}
	n, err := c.shop.MarkThreadRead(ctx, orderID, c.sender())
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	if n > 0 {
		c.io.Printf("Marked %d message(s) as read\n", n)
	}
	return nil
}
