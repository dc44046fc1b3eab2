package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/reorder-cli/internal/model"
	"github.com/sells-group/reorder-cli/internal/predict"
)

var (
	predictCustomerID int
	predictDate       string
	predictFormat     string
	predictOutput     string
	predictAccept     int
	predictQty        int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict reorders for a customer",
	Long: `Compute per-product reorder predictions from the customer's order
history, persist a pending nudge for each prediction, and print the
nudges to surface now plus suggested basket groupings.

Examples:
  # Predict as of today
  predict --customer 12

  # Predict for a fixed reference date
  predict --customer 12 --date 2024-01-29

  # Export the prediction report
  predict --customer 12 --format csv --output predictions.csv
  predict --customer 12 --format xlsx --output predictions.xlsx

  # Predict, then accept the nudge for product 3
  predict --customer 12 --accept 3 --qty 2`,
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	today, err := resolveDate(predictDate)
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := newEngine(st)
	pred, err := engine.Predict(ctx, predictCustomerID, today)
	if err != nil {
		if errors.Is(err, predict.ErrNoHistory) {
			fmt.Println("no purchase history for this customer yet")
			return nil
		}
		return err
	}

	printPrediction(pred)

	if predictAccept != 0 {
		if err := acceptAndPlace(ctx, st, engine, predictCustomerID, predictAccept, predictQty); err != nil {
			return err
		}
	}

	switch predictFormat {
	case "", "table":
		return nil
	case "csv":
		if predictOutput == "" {
			return eris.New("--output is required with --format csv")
		}
		return writePredictionCSV(pred, predictOutput)
	case "xlsx":
		if predictOutput == "" {
			return eris.New("--output is required with --format xlsx")
		}
		return writePredictionXLSX(pred, predictOutput)
	default:
		return eris.Errorf("unknown format %q", predictFormat)
	}
}

// resolveDate parses --date or defaults to the current UTC date. The
// reference date is resolved once here; the prediction core itself
// never reads the clock.
func resolveDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func printPrediction(pred *model.Prediction) {
	for _, p := range pred.Insufficient {
		fmt.Printf("product %d purchased once, not enough data for prediction\n", p.ProductID)
	}

	for _, c := range pred.Candidates {
		fmt.Printf("\n%s (product %d):\n", c.ProductName, c.ProductID)
		fmt.Printf("  bought %d times, avg gap %.1f days\n", c.PurchaseCount, c.AverageGap)
		fmt.Printf("  next expected reorder: %s (in %d days)\n",
			c.NextExpected.Format("2006-01-02"), c.DaysUntilExpected)
		fmt.Printf("  confidence: %.2f\n", c.Confidence)
	}

	if len(pred.Triggered) > 0 {
		fmt.Println("\nnudges to surface now:")
		for _, c := range pred.Triggered {
			fmt.Printf("  you're probably running low on %s (confidence %.2f)\n", c.ProductName, c.Confidence)
		}
	}

	if len(pred.Basket) > 0 {
		fmt.Println("\nsuggested basket groupings:")
		for _, g := range pred.Basket {
			fmt.Printf("  %s:", g.ExpectedDate.Format("2006-01-02"))
			for _, name := range g.Products {
				fmt.Printf(" %s", name)
			}
			fmt.Println()
		}
	}
}

func init() {
	f := predictCmd.Flags()
	f.IntVar(&predictCustomerID, "customer", 0, "customer ID")
	f.StringVar(&predictDate, "date", "", "reference date YYYY-MM-DD (default: today UTC)")
	f.StringVar(&predictFormat, "format", "table", "output format: table, csv, xlsx")
	f.StringVar(&predictOutput, "output", "", "output file for csv/xlsx formats")
	f.IntVar(&predictAccept, "accept", 0, "accept the nudge for this product ID after predicting")
	f.IntVar(&predictQty, "qty", 0, "quantity to reorder with --accept")
	predictCmd.MarkFlagRequired("customer")
	rootCmd.AddCommand(predictCmd)
}
