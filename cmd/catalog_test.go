package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reorder-cli/internal/model"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadProductCSVWithHeader(t *testing.T) {
	path := writeTempCSV(t, `product_id,name,price,stock,brand,pack_size
1,milk,2.49,12,DairyBest,1L
2,bread,1.80,3
`)

	products, err := readProductCSV(path)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, model.Product{ID: 1, Name: "milk", Price: 2.49, Stock: 12, Brand: "DairyBest", PackSize: "1L"}, products[0])
	assert.Equal(t, model.Product{ID: 2, Name: "bread", Price: 1.80, Stock: 3}, products[1])
}

func TestReadProductCSVWithoutHeader(t *testing.T) {
	path := writeTempCSV(t, "1,milk,2.49,12\n")

	products, err := readProductCSV(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, products[0].ID)
}

func TestReadProductCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"too few columns", "1,milk\n"},
		{"bad price", "1,milk,free,12\n"},
		{"bad stock", "1,milk,2.49,lots\n"},
		{"bad id past header", "id,name,price,stock\nx,milk,2.49,12\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readProductCSV(writeTempCSV(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestReadProductCSVMissingFile(t *testing.T) {
	_, err := readProductCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadCustomerCSV(t *testing.T) {
	path := writeTempCSV(t, `customer_id,name,phone
5,Asha,555-0101
6,Ben
`)

	customers, err := readCustomerCSV(path)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, model.Customer{ID: 5, Name: "Asha", Phone: "555-0101"}, customers[0])
	assert.Equal(t, model.Customer{ID: 6, Name: "Ben"}, customers[1])
}
