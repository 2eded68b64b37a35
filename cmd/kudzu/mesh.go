package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newMeshCmd() *cobra.Command {
	mesh := &cobra.Command{
		Use:   "mesh",
		Short: "Mesh membership commands",
	}
	mesh.AddCommand(newMeshJoinCmd())
	return mesh
}

func newMeshJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join SEED...",
		Short: "Join this node to the mesh via one or more seed addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeshJoin(args)
		},
	}
}

func runMeshJoin(seeds []string) error {
	body, err := json.Marshal(map[string][]string{"seeds": seeds})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, flagAddr+"/mesh/join", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if flagAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+flagAPIKey)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("join failed with status %d", resp.StatusCode)
	}

	var result struct {
		Joined int `json:"joined"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	fmt.Printf("joined %d peer(s)\n", result.Joined)
	return nil
}
