package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// dashboardDocument is the on-disk JSON shape for a dashboard export,
// with a format marker so consumers can detect schema changes.
type dashboardDocument struct {
	Dashboard   domain.Dashboard `json:"dashboard"`
	GeneratedAt string           `json:"generated_at"`
	Format      string           `json:"format"`
}

// WriteDashboardJSON writes the dashboard to a JSON file compatible
// with the web interface.
func WriteDashboardJSON(path string, dashboard domain.Dashboard) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	doc := dashboardDocument{
		Dashboard:   dashboard,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Format:      "price_dashboard_v1",
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}

	return nil
}
