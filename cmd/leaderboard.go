package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	leaderboardLimit  int
	leaderboardFormat string
	leaderboardOutput string
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank customers by nudge consistency",
	Long: `Rank customers by how consistently they resolve their reorder
nudges (resolved/total). Customers with no nudges are excluded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		limit := leaderboardLimit
		if limit == 0 {
			limit = cfg.Report.LeaderboardLimit
		}

		entries, err := st.Leaderboard(ctx, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no nudges recorded yet")
			return nil
		}

		fmt.Println("most consistent customers:")
		for i, e := range entries {
			fmt.Printf("%2d. %s (ID %d) - %d/%d nudges resolved | score %.2f\n",
				i+1, e.Name, e.CustomerID, e.ResolvedNudges, e.TotalNudges, e.Consistency)
		}

		switch leaderboardFormat {
		case "", "table":
			return nil
		case "csv":
			if leaderboardOutput == "" {
				return eris.New("--output is required with --format csv")
			}
			return writeLeaderboardCSV(entries, leaderboardOutput)
		case "xlsx":
			if leaderboardOutput == "" {
				return eris.New("--output is required with --format xlsx")
			}
			return writeLeaderboardXLSX(entries, leaderboardOutput)
		default:
			return eris.Errorf("unknown format %q", leaderboardFormat)
		}
	},
}

func init() {
	f := leaderboardCmd.Flags()
	f.IntVar(&leaderboardLimit, "limit", 0, "number of customers to rank (defaults to config)")
	f.StringVar(&leaderboardFormat, "format", "table", "output format: table, csv, xlsx")
	f.StringVar(&leaderboardOutput, "output", "", "output file for csv/xlsx formats")
	rootCmd.AddCommand(leaderboardCmd)
}
