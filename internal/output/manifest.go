package output

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Manifest is a sidecar record of one crawl run that aids reproducibility.
type Manifest struct {
	RunID          string    `json:"run_id"`
	Version        string    `json:"version"`
	StartURL       string    `json:"start_url"`
	Pages          []string  `json:"pages"`
	Records        int       `json:"records"`
	Duplicates     int       `json:"duplicates"`
	DetailFailures []string  `json:"detail_failures"`
	RobotsSkipped  []string  `json:"robots_skipped"`
	OutputSHA256   string    `json:"output_sha256"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// ManifestPath returns the sidecar path next to the output file.
func ManifestPath(outputPath string) string {
	return outputPath + ".manifest.json"
}

// WriteManifest writes m next to outputPath.
func WriteManifest(outputPath string, m Manifest) error {
	if m.Pages == nil {
		m.Pages = []string{}
	}
	if m.DetailFailures == nil {
		m.DetailFailures = []string{}
	}
	if m.RobotsSkipped == nil {
		m.RobotsSkipped = []string{}
	}
	return WriteJSON(ManifestPath(outputPath), m)
}

// SHA256Hex returns the lowercase hex digest of data.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
