package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reorder-cli/internal/model"
	"github.com/sells-group/reorder-cli/internal/store"
)

var (
	orderCustomerID int
	orderItems      []string
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place customer orders",
}

var orderPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Place an order for a customer",
	Long: `Place an order with one or more items. Stock is checked and
decremented, and any pending reorder nudge for an ordered product is
resolved, all in a single transaction.

Example:
  reorder-cli order place --customer 12 --item 3:2 --item 7:1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		items, err := parseItems(orderItems)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return eris.New("at least one --item pid:qty is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		order, err := st.PlaceOrder(ctx, orderCustomerID, items)
		if err != nil {
			if errors.Is(err, store.ErrInsufficientStock) {
				return fmt.Errorf("not enough stock available: %w", err)
			}
			return err
		}

		zap.L().Info("order placed",
			zap.String("order_id", order.ID),
			zap.Int("customer_id", order.CustomerID),
			zap.Int("items", len(order.Items)),
		)
		fmt.Printf("order %s placed with %d item(s)\n", order.ID, len(order.Items))
		return nil
	},
}

// parseItems parses repeated "productID:quantity" flags.
func parseItems(raw []string) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 2)
		if len(parts) != 2 {
			return nil, eris.Errorf("invalid item %q, expected pid:qty", r)
		}
		pid, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, eris.Errorf("invalid product id in %q", r)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty <= 0 {
			return nil, eris.Errorf("invalid quantity in %q", r)
		}
		items = append(items, model.OrderItem{ProductID: pid, Quantity: qty})
	}
	return items, nil
}

func init() {
	orderPlaceCmd.Flags().IntVar(&orderCustomerID, "customer", 0, "customer ID")
	orderPlaceCmd.Flags().StringArrayVar(&orderItems, "item", nil, "order item as pid:qty (repeatable)")
	orderPlaceCmd.MarkFlagRequired("customer")
	orderCmd.AddCommand(orderPlaceCmd)
	rootCmd.AddCommand(orderCmd)
}
