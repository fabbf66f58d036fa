package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/petalsync/internal/models"
)

type ordersView struct {
	Title  string
	Orders []models.OrderView
}

func (c *Cli) runOrders(ctx context.Context, requests bool) error {
	view := ordersView{Title: "Orders", Orders: c.shop.Orders(ctx)}
	if requests {
		view = ordersView{Title: "Requests", Orders: c.shop.Requests(ctx)}
	}
	return c.render(ordersTmpl, view)
}

func (c *Cli) runOrderShow(ctx context.Context, id string) error {
	order, err := c.shop.Order(ctx, id)
	if err != nil {
		return err
	}
	return c.render(orderTmpl, order)
}

func (c *Cli) runOrderAccept(ctx context.Context, id string) error {
	order, err := c.shop.Accept(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to accept: %w", err)
	}
	c.io.Printf("✓ %s accepted\n", order.ID)
	return nil
}

func (c *Cli) runOrderDecline(ctx context.Context, id, reason string) error {
	order, err := c.shop.Decline(ctx, id, reason)
	if err != nil {
		return fmt.Errorf("failed to decline: %w", err)
	}
	c.io.Printf("✓ %s declined\n", order.ID)
	return nil
}

func (c *Cli) runOrderStatus(ctx context.Context, id, status string) error {
	order, err := c.shop.SetStatus(ctx, id, models.OrderStatus(status))
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	c.io.Printf("✓ %s is now %s\n", order.ID, order.DisplayStatus)
	return nil
}
