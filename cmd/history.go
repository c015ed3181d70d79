package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syncd/internal/eventlog"
	"syncd/internal/model"

	"github.com/spf13/cobra"
)

var (
	historyN   int
	historySrc string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View processed sync reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		query.Set("n", fmt.Sprint(historyN))
		if historySrc != "" {
			query.Set("src", historySrc)
		}

		resp, err := http.Get(strings.TrimRight(cfg.DaemonURL, "/") + "/history?" + query.Encode())
		if err != nil {
			return fmt.Errorf("manager not reachable: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("history request failed: %s", resp.Status)
		}

		var histories []model.History
		if err := json.NewDecoder(resp.Body).Decode(&histories); err != nil {
			return err
		}

		if len(histories) == 0 {
			fmt.Println("no history yet")
			return nil
		}

		for _, h := range histories {
			status := "✓"
			if h.Status != "SUCCESS" && h.Status != "PARTIAL" {
				status = "✗"
			}

			fmt.Printf("%s [%s] %-8s %-7s %s -> %s %s (errors: %d)\n",
				status,
				h.FinishedAt.Local().Format(eventlog.TimeLayout),
				h.Operation,
				h.Status,
				h.Src,
				h.Dst,
				h.File,
				h.ErrorCount,
			)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	historyCmd.Flags().StringVar(&historySrc, "src", "", "only show entries for this source directory")
	rootCmd.AddCommand(historyCmd)
}
