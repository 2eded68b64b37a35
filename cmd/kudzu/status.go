package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status    string `json:"status"`
	Time      string `json:"time"`
	Holograms int    `json:"holograms"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this node's health and mesh membership",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	client := &http.Client{Timeout: 5 * time.Second}

	var health healthResponse
	if err := getJSON(client, flagAddr+"/healthz", &health); err != nil {
		return fmt.Errorf("node unreachable at %s: %w", flagAddr, err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{"status", health.Status})
	table.Append([]string{"time", health.Time})
	table.Append([]string{"holograms", fmt.Sprintf("%d", health.Holograms)})
	table.Render()

	var nodes []meshNode
	if err := getJSON(client, flagAddr+"/mesh/nodes", &nodes); err == nil && len(nodes) > 0 {
		fmt.Println()
		meshTable := tablewriter.NewWriter(os.Stdout)
		meshTable.SetHeader([]string{"name", "addr", "rpc addr"})
		for _, n := range nodes {
			meshTable.Append([]string{n.Name, n.Addr, n.RPCAddr})
		}
		meshTable.Render()
	}

	return nil
}

type meshNode struct {
	Name    string
	Addr    string
	RPCAddr string
}

func getJSON(client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if flagAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+flagAPIKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
