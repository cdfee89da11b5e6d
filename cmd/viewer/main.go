package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"pair-lab/observability"
	"pair-lab/repositories"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Config defines the viewer-side environment variables.
type Config struct {
	DebugAddr string `envconfig:"DEBUG_ADDR" default:"http://localhost:8000"`
	// VIEWER_ARCHIVE_LIMIT caps how many ended sessions are listed
	ArchiveLimit int `envconfig:"VIEWER_ARCHIVE_LIMIT" default:"10"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}

	stats, err := fetchStats(client, config.DebugAddr)
	if err != nil {
		log.Fatalf("Failed to fetch stats: %v", err)
	}

	color.Bold.Println("Engine stats")
	statsTable := tablewriter.NewWriter(os.Stdout)
	statsTable.SetHeader([]string{"Metric", "Value"})
	statsTable.AppendBulk([][]string{
		{"Active sessions", fmt.Sprintf("%d", stats.ActiveSessions)},
		{"Queue depth", fmt.Sprintf("%d", stats.QueueDepth)},
		{"Pairings total", fmt.Sprintf("%d", stats.PairingsTotal)},
		{"Timeouts total", fmt.Sprintf("%d", stats.TimeoutsTotal)},
		{"Ended total", fmt.Sprintf("%d", stats.EndedTotal)},
		{"Relayed total", fmt.Sprintf("%d", stats.RelayedTotal)},
		{"No partner total", fmt.Sprintf("%d", stats.NoPartnerTotal)},
		{"Pairings /s", fmt.Sprintf("%.2f", stats.PairingsPerSec)},
		{"Avg session (s)", fmt.Sprintf("%.1f", stats.AvgSessionLength)},
		{"CPU %", fmt.Sprintf("%.1f", stats.CPUPercent)},
		{"RSS MB", fmt.Sprintf("%d", stats.RSSBytes/1024/1024)},
	})
	statsTable.Render()

	records, err := fetchArchive(client, config.DebugAddr, config.ArchiveLimit)
	if err != nil {
		log.Fatalf("Failed to fetch archive: %v", err)
	}

	color.Bold.Println("Recently ended sessions")
	archiveTable := tablewriter.NewWriter(os.Stdout)
	archiveTable.SetHeader([]string{"Session", "Reason", "Duration", "Ended at"})
	archiveTable.AppendBulk(lo.Map(records, func(r repositories.EndedSession, _ int) []string {
		return []string{
			string(r.Session),
			colorReason(r.Reason),
			r.Duration.Round(time.Second).String(),
			r.EndedAt.Format(time.RFC3339),
		}
	}))
	archiveTable.Render()
}

func colorReason(reason any) string {
	s := fmt.Sprintf("%v", reason)
	switch s {
	case "timeout":
		return color.Yellow.Sprint(s)
	case "partner_disconnected":
		return color.Red.Sprint(s)
	default:
		return color.Green.Sprint(s)
	}
}

func fetchStats(client *http.Client, addr string) (observability.MonitoringStats, error) {
	var stats observability.MonitoringStats
	err := fetchJSON(client, addr+"/stats", &stats)
	return stats, err
}

func fetchArchive(client *http.Client, addr string, limit int) ([]repositories.EndedSession, error) {
	var records []repositories.EndedSession
	err := fetchJSON(client, fmt.Sprintf("%s/archive?limit=%d", addr, limit), &records)
	return records, err
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
