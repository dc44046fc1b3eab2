package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reorder-cli/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse and maintain the product catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		products, err := st.ListProducts(ctx)
		if err != nil {
			return err
		}
		printProducts(products)
		return nil
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search products by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		products, err := st.SearchProducts(ctx, args[0])
		if err != nil {
			return err
		}
		if len(products) == 0 {
			fmt.Println("no matching products found")
			return nil
		}
		printProducts(products)
		return nil
	},
}

var catalogLowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List products below the low-stock threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		threshold, _ := cmd.Flags().GetInt("threshold")
		if threshold == 0 {
			threshold = cfg.Catalog.LowStockThreshold
		}

		products, err := st.LowStockProducts(ctx, threshold)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			fmt.Println("all products are sufficiently stocked")
			return nil
		}
		fmt.Printf("low stock (below %d):\n", threshold)
		printProducts(products)
		return nil
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Bulk import products from CSV",
	Long: `Import products from a CSV file with columns:
product_id,name,price,stock,brand,pack_size,image

Existing products are updated in place. On PostgreSQL rows are loaded
via the COPY protocol.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		products, err := readProductCSV(args[0])
		if err != nil {
			return err
		}

		n, err := st.UpsertProducts(ctx, products)
		if err != nil {
			return err
		}

		zap.L().Info("catalog import complete",
			zap.String("file", args[0]),
			zap.Int64("rows", n),
		)
		fmt.Printf("imported %d products\n", n)
		return nil
	},
}

// readProductCSV parses a product CSV file. A header row is detected
// by a non-numeric first column and skipped.
func readProductCSV(path string) ([]model.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var products []model.Product
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

		if len(rec) < 4 {
			return nil, eris.Errorf("%s line %d: expected at least 4 columns, got %d", path, line, len(rec))
		}

		id, err := strconv.Atoi(rec[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, eris.Wrapf(err, "%s line %d: product_id", path, line)
		}

		price, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "%s line %d: price", path, line)
		}
		stock, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, eris.Wrapf(err, "%s line %d: stock", path, line)
		}

		p := model.Product{ID: id, Name: rec[1], Price: price, Stock: stock}
		if len(rec) > 4 {
			p.Brand = rec[4]
		}
		if len(rec) > 5 {
			p.PackSize = rec[5]
		}
		if len(rec) > 6 {
			p.Image = rec[6]
		}
		products = append(products, p)
	}
	return products, nil
}

func printProducts(products []model.Product) {
	for _, p := range products {
		fmt.Printf("%4d  %-24s  %8.2f  stock %4d  %s\n", p.ID, p.Name, p.Price, p.Stock, p.Brand)
	}
}

func init() {
	catalogLowStockCmd.Flags().Int("threshold", 0, "stock threshold (defaults to config)")
	catalogCmd.AddCommand(catalogListCmd, catalogSearchCmd, catalogLowStockCmd, catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}
