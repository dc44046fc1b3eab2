package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/reorder-cli/internal/model"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Manage customers",
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		customers, err := st.ListCustomers(ctx)
		if err != nil {
			return err
		}
		for _, c := range customers {
			fmt.Printf("%4d  %-24s  %s\n", c.ID, c.Name, c.Phone)
		}
		return nil
	},
}

var customersImportCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Bulk import customers from CSV (customer_id,name,phone)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		customers, err := readCustomerCSV(args[0])
		if err != nil {
			return err
		}

		n, err := st.UpsertCustomers(ctx, customers)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d customers\n", n)
		return nil
	},
}

func readCustomerCSV(path string) ([]model.Customer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var customers []model.Customer
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		line++

		if len(rec) < 2 {
			return nil, eris.Errorf("%s line %d: expected at least 2 columns", path, line)
		}

		id, err := strconv.Atoi(rec[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, eris.Wrapf(err, "%s line %d: customer_id", path, line)
		}

		c := model.Customer{ID: id, Name: rec[1]}
		if len(rec) > 2 {
			c.Phone = rec[2]
		}
		customers = append(customers, c)
	}
	return customers, nil
}

func init() {
	customersCmd.AddCommand(customersListCmd, customersImportCmd)
	rootCmd.AddCommand(customersCmd)
}
