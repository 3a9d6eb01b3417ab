package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/duocap/duocap/internal/server"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the control server for recording status",
	Long: `Query a running DuoCap control server (see 'duocap serve') and
print the current recording status. Sessions live inside the serving
process, so status is only meaningful against a server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		host, _ := cmd.Flags().GetString("host")

		client := &http.Client{Timeout: 5 * time.Second}
		url := fmt.Sprintf("http://%s:%s/api/status", host, port)

		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("control server not reachable at %s: %w", url, err)
		}
		defer resp.Body.Close()

		var status server.StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		fmt.Printf("status: %s\n", status.Status)
		if status.Session.IsRecording {
			fmt.Printf("session: %s\n", status.Session.SessionID)
			fmt.Printf("segments: %d\n", status.Session.SegmentCount)
		}
		if status.LastError != "" {
			fmt.Printf("last error: %s\n", status.LastError)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("port", "8080", "control server port")
	statusCmd.Flags().String("host", "localhost", "control server host")
}
