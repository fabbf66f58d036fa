package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runNotifications(ctx context.Context, unreadOnly bool) error {
	return c.render(notificationsTmpl, c.shop.Notifications(ctx, unreadOnly))
}

// runMarkRead отмечает уведомление прочитанным; пустой id - все уведомления
func (c *Cli) runMarkRead(ctx context.Context, id string) error {
	if err := c.shop.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if id == "" {
		c.io.Println("✓ All notifications marked as read")
		return nil
	}
	c.io.Printf("✓ Notification %s marked as read\n", id)
	return nil
}
