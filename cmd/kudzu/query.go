package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type queryRecord struct {
	TraceID      string
	HologramID   string
	Purpose      string
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
	Importance   string
}

func newQueryCmd() *cobra.Command {
	var purpose string
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the node's tiered storage by purpose",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(purpose, limit)
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "", "purpose tag to filter by (empty matches every trace)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records to return")

	return cmd
}

func runQuery(purpose string, limit int) error {
	client := &http.Client{Timeout: 10 * time.Second}

	q := url.Values{}
	if purpose != "" {
		q.Set("purpose", purpose)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	var records []queryRecord
	if err := getJSON(client, flagAddr+"/query?"+q.Encode(), &records); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"trace id", "hologram", "purpose", "created at", "accesses", "importance"})
	for _, r := range records {
		table.Append([]string{
			r.TraceID,
			r.HologramID,
			r.Purpose,
			r.CreatedAt.Format(time.RFC3339),
			fmt.Sprintf("%d", r.AccessCount),
			r.Importance,
		})
	}
	table.Render()
	fmt.Printf("%d record(s)\n", len(records))
	return nil
}
