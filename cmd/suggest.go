package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var suggestCustomerID int

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a customer's most frequently ordered products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		freqs, err := st.FrequentProducts(ctx, suggestCustomerID, cfg.Report.SuggestLimit)
		if err != nil {
			return err
		}
		if len(freqs) == 0 {
			fmt.Println("no orders yet for this customer")
			return nil
		}
		fmt.Println("frequently ordered products:")
		for _, f := range freqs {
			fmt.Printf("  %s (product %d) ordered %d times\n", f.Name, f.ProductID, f.Orders)
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVar(&suggestCustomerID, "customer", 0, "customer ID")
	suggestCmd.MarkFlagRequired("customer")
	rootCmd.AddCommand(suggestCmd)
}
