// Package submit posts diagnostic reports to a remote collection endpoint.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Upsolver/iceberg-diag/internal/diag"
	"github.com/Upsolver/iceberg-diag/internal/logger"
)

// DefaultEndpoint is the default report collection endpoint.
const DefaultEndpoint = "https://iceberg-auditor.upsolver.com/v2/wizards/optimizer/cli-analyze"

// Config configures report submission.
type Config struct {
	// Endpoint is the collection URL.
	Endpoint string `yaml:"endpoint"`

	// Token is an optional bearer token.
	Token string `yaml:"token"`

	// Timeout bounds the whole submission request.
	Timeout time.Duration `yaml:"timeout"`
}

func (cfg Config) withDefaults() Config {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return cfg
}

// Submitter posts finished reports. It never mutates table state; submission
// failures are reported to the caller and do not affect the local run.
type Submitter struct {
	cfg    Config
	client *http.Client
	logger *logger.VerboseLogger
}

// New creates a Submitter.
func New(cfg Config, vlogger *logger.VerboseLogger) *Submitter {
	cfg = cfg.withDefaults()

	var transport http.RoundTripper
	if vlogger.IsDetailed() {
		transport = logger.NewHTTPTransport(nil, vlogger.Underlying())
	}

	return &Submitter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger: vlogger,
	}
}

// payload is the wire format of one submission.
type payload struct {
	RunID       string        `json:"runId"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Tables      []tableReport `json:"tables"`
}

type tableReport struct {
	TableName                 string           `json:"tableName"`
	SnapshotID                int64            `json:"snapshotId"`
	TotalFilesCount           int64            `json:"totalFilesCount"`
	TargetFilesCount          int64            `json:"targetFilesCount"`
	TotalSizeBytes            int64            `json:"totalSizeBytes"`
	TargetSizeBytes           int64            `json:"targetSizeBytes"`
	AvgFileSizeBytes          int64            `json:"avgFileSizeBytes"`
	MedianFileSizeBytes       int64            `json:"medianFileSizeBytes"`
	CurrentScanOverheadMillis int64            `json:"currentScanOverheadMillis"`
	TargetScanOverheadMillis  int64            `json:"targetScanOverheadMillis"`
	ImprovementRatio          float64          `json:"improvementRatio"`
	Partitions                []partitionStats `json:"partitions,omitempty"`
	Warnings                  []string         `json:"warnings,omitempty"`
}

type partitionStats struct {
	Partition        string `json:"partition"`
	FilesCount       int64  `json:"filesCount"`
	TargetFilesCount int64  `json:"targetFilesCount"`
	SizeBytes        int64  `json:"sizeBytes"`
}

// Submit posts the reports as one run. It returns the run id assigned to the
// submission.
func (s *Submitter) Submit(ctx context.Context, reports []diag.DiagnosticReport) (string, error) {
	runID := uuid.NewString()

	body, err := json.Marshal(buildPayload(runID, reports))
	if err != nil {
		return "", fmt.Errorf("encoding submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	s.logger.Debug("submitting reports",
		zap.String("run_id", runID),
		zap.String("endpoint", s.cfg.Endpoint),
		zap.Int("tables", len(reports)))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", diag.NewError(diag.KindTransient, fmt.Errorf("posting reports: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		err := fmt.Errorf("submission rejected with status %d: %s", resp.StatusCode, string(detail))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", diag.NewError(diag.KindAccessDenied, err)
		}
		return "", diag.NewError(diag.KindTransient, err)
	}

	s.logger.Info("reports submitted",
		zap.String("run_id", runID),
		zap.Int("tables", len(reports)))

	return runID, nil
}

func buildPayload(runID string, reports []diag.DiagnosticReport) payload {
	p := payload{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Tables:      make([]tableReport, 0, len(reports)),
	}

	for _, r := range reports {
		tr := tableReport{
			TableName:                 r.Table.String(),
			SnapshotID:                r.Snapshot.SnapshotID,
			TotalFilesCount:           r.Metrics.FileCount,
			TargetFilesCount:          r.Projection.ProjectedFileCount,
			TotalSizeBytes:            r.Metrics.TotalBytes,
			TargetSizeBytes:           r.Projection.ProjectedTotalBytes,
			AvgFileSizeBytes:          r.Metrics.AverageFileSize(),
			MedianFileSizeBytes:       r.Metrics.MedianFileSize,
			CurrentScanOverheadMillis: r.Projection.BaselineCost.Milliseconds(),
			TargetScanOverheadMillis:  r.Projection.ProjectedCost.Milliseconds(),
			ImprovementRatio:          r.Projection.ImprovementRatio,
			Warnings:                  r.Warnings,
		}

		buckets := make(map[string]diag.PartitionBucket, len(r.Metrics.Partitions))
		for _, b := range r.Metrics.Partitions {
			buckets[b.Partition] = b
		}
		for _, pp := range r.Projection.Partitions {
			ps := partitionStats{
				Partition:        pp.Partition,
				FilesCount:       pp.CurrentFiles,
				TargetFilesCount: pp.ProjectedFiles,
			}
			if b, ok := buckets[pp.Partition]; ok {
				ps.SizeBytes = b.TotalBytes
			}
			tr.Partitions = append(tr.Partitions, ps)
		}

		p.Tables = append(p.Tables, tr)
	}

	return p
}
