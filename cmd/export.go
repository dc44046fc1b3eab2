package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/reorder-cli/internal/model"
)

var predictionHeader = []string{
	"product_id", "product_name", "purchase_count", "average_gap",
	"dispersion", "last_gap_days_since", "days_until_expected",
	"next_expected", "confidence", "triggered",
}

func predictionRow(c model.NudgeCandidate) []string {
	return []string{
		strconv.Itoa(c.ProductID),
		c.ProductName,
		strconv.Itoa(c.PurchaseCount),
		fmt.Sprintf("%.2f", c.AverageGap),
		fmt.Sprintf("%.2f", c.Dispersion),
		strconv.Itoa(c.DaysSinceLast),
		strconv.Itoa(c.DaysUntilExpected),
		c.NextExpected.Format("2006-01-02"),
		fmt.Sprintf("%.2f", c.Confidence),
		strconv.FormatBool(c.Triggered),
	}
}

func writePredictionCSV(pred *model.Prediction, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(predictionHeader); err != nil {
		return eris.Wrap(err, "write header")
	}
	for _, c := range pred.Candidates {
		if err := w.Write(predictionRow(c)); err != nil {
			return eris.Wrap(err, "write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush csv")
}

func writePredictionXLSX(pred *model.Prediction, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Predictions")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range predictionHeader {
		header.AddCell().Value = h
	}
	for _, c := range pred.Candidates {
		row := sheet.AddRow()
		for _, v := range predictionRow(c) {
			row.AddCell().Value = v
		}
	}

	return eris.Wrapf(file.Save(path), "save %s", path)
}

func writeLeaderboardCSV(entries []model.LeaderboardEntry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"customer_id", "name", "total_nudges", "resolved_nudges", "consistency"}); err != nil {
		return eris.Wrap(err, "write header")
	}
	for _, e := range entries {
		row := []string{
			strconv.Itoa(e.CustomerID),
			e.Name,
			strconv.Itoa(e.TotalNudges),
			strconv.Itoa(e.ResolvedNudges),
			fmt.Sprintf("%.2f", e.Consistency),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush csv")
}

func writeLeaderboardXLSX(entries []model.LeaderboardEntry, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leaderboard")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"customer_id", "name", "total_nudges", "resolved_nudges", "consistency"} {
		header.AddCell().Value = h
	}
	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetInt(e.CustomerID)
		row.AddCell().Value = e.Name
		row.AddCell().SetInt(e.TotalNudges)
		row.AddCell().SetInt(e.ResolvedNudges)
		row.AddCell().SetFloat(e.Consistency)
	}

	return eris.Wrapf(file.Save(path), "save %s", path)
}
