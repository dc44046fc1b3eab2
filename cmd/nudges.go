package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reorder-cli/internal/model"
	"github.com/sells-group/reorder-cli/internal/predict"
	"github.com/sells-group/reorder-cli/internal/store"
)

var (
	nudgeCustomerID int
	nudgeProductID  int
	nudgeQuantity   int
)

var nudgesCmd = &cobra.Command{
	Use:   "nudges",
	Short: "Inspect and accept reorder nudges",
}

var nudgesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending nudges for a customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		nudges, err := st.ListPending(ctx, nudgeCustomerID)
		if err != nil {
			return err
		}
		if len(nudges) == 0 {
			fmt.Println("no pending nudges")
			return nil
		}
		for _, n := range nudges {
			fmt.Printf("product %4d  due %s  confidence %.2f\n",
				n.ProductID, n.NudgeDate.Format("2006-01-02"), n.Confidence)
		}
		return nil
	},
}

var nudgesAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept a nudge and place the reorder",
	Long: `Accept a surfaced nudge: validates the quantity against current
stock, places the order, and resolves the pending nudge. The order and
the nudge resolution are one atomic unit; if placement fails the nudge
stays pending.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		return acceptAndPlace(ctx, st, newEngine(st), nudgeCustomerID, nudgeProductID, nudgeQuantity)
	},
}

// acceptAndPlace runs the acceptance protocol for one nudge: validate
// the quantity, place the single-item order, and report. The order
// transaction itself resolves the pending nudge.
func acceptAndPlace(ctx context.Context, st store.Store, engine *predict.Engine, customerID, productID, quantity int) error {
	req, err := engine.AcceptNudge(ctx, customerID, productID, quantity)
	if err != nil {
		var verr *predict.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%s (adjust --qty and retry)", verr.Reason)
		}
		return err
	}

	order, err := st.PlaceOrder(ctx, req.CustomerID, []model.OrderItem{
		{ProductID: req.ProductID, Quantity: req.Quantity},
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			return fmt.Errorf("not enough stock available, nudge left pending: %w", err)
		}
		return err
	}

	zap.L().Info("nudge accepted",
		zap.String("order_id", order.ID),
		zap.Int("customer_id", req.CustomerID),
		zap.Int("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity),
	)
	fmt.Printf("order placed for %d unit(s), nudge resolved\n", req.Quantity)
	return nil
}

func init() {
	nudgesListCmd.Flags().IntVar(&nudgeCustomerID, "customer", 0, "customer ID")
	nudgesListCmd.MarkFlagRequired("customer")

	nudgesAcceptCmd.Flags().IntVar(&nudgeCustomerID, "customer", 0, "customer ID")
	nudgesAcceptCmd.Flags().IntVar(&nudgeProductID, "product", 0, "product ID")
	nudgesAcceptCmd.Flags().IntVar(&nudgeQuantity, "qty", 0, "quantity to reorder")
	nudgesAcceptCmd.MarkFlagRequired("customer")
	nudgesAcceptCmd.MarkFlagRequired("product")
	nudgesAcceptCmd.MarkFlagRequired("qty")

	nudgesCmd.AddCommand(nudgesListCmd, nudgesAcceptCmd)
	rootCmd.AddCommand(nudgesCmd)
}
