package main

import (
	"errors"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/reorder-cli/internal/predict"
)

var (
	batchLimit       int
	batchConcurrency int
	batchDate        string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run reorder predictions for all customers",
	Long: `Run a prediction for every customer, a bounded number at a time.
Each customer's run is independent and synchronous; customers with no
purchase history are counted, not treated as failures.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		today, err := resolveDate(batchDate)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		customers, err := st.ListCustomers(ctx)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(customers) > batchLimit {
			customers = customers[:batchLimit]
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentCustomers
		}

		engine := newEngine(st)
		var predicted, triggered, noHistory atomic.Int64

		start := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, c := range customers {
			g.Go(func() error {
				pred, err := engine.Predict(gctx, c.ID, today)
				if err != nil {
					if errors.Is(err, predict.ErrNoHistory) {
						noHistory.Add(1)
						return nil
					}
					return err
				}
				predicted.Add(int64(len(pred.Candidates)))
				triggered.Add(int64(len(pred.Triggered)))
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch prediction complete",
			zap.Int("customers", len(customers)),
			zap.Int64("candidates", predicted.Load()),
			zap.Int64("triggered", triggered.Load()),
			zap.Int64("no_history", noHistory.Load()),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Printf("processed %d customers: %d candidates, %d triggered, %d without history\n",
			len(customers), predicted.Load(), triggered.Load(), noHistory.Load())
		return nil
	},
}

func init() {
	f := batchCmd.Flags()
	f.IntVar(&batchLimit, "limit", 0, "max customers to process (0 = all)")
	f.IntVar(&batchConcurrency, "concurrency", 0, "concurrent customers (defaults to config)")
	f.StringVar(&batchDate, "date", "", "reference date YYYY-MM-DD (default: today UTC)")
	rootCmd.AddCommand(batchCmd)
}
