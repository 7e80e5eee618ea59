// Package sim drives randomized device traffic against the ingest API, for
// demos and load sanity checks without physical crushers.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
)

// Config controls the simulator.
type Config struct {
	// BaseURL is the ingest API root, e.g. http://127.0.0.1:8080.
	BaseURL string
	// APIKey is sent as X-API-Key when the server requires one.
	APIKey string
	// Interval between simulated ticks.
	Interval time.Duration
	// CrusherIDs to drive. Each tick picks one at random.
	CrusherIDs []string
}

// Simulator posts randomized crush, telemetry, and alert reports on a
// schedule.
type Simulator struct {
	cfg    Config
	client *http.Client
	cron   *cron.Cron
	logger *slog.Logger
	rng    *rand.Rand
}

// New creates a Simulator. Interval defaults to five seconds.
func New(cfg Config, logger *slog.Logger) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &Simulator{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		cron:   cron.New(),
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start schedules the tick job and begins firing. Call Stop to halt.
func (s *Simulator) Start() error {
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("schedule simulator: %w", err)
	}
	s.cron.Start()
	s.logger.Info("simulator started", "interval", s.cfg.Interval, "crushers", len(s.cfg.CrusherIDs))
	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Simulator) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("simulator stopped")
}

// tick fires one randomized device report. Roughly: mostly crushes, the
// occasional telemetry sync, rarely an empty or an alert.
func (s *Simulator) tick() {
	if len(s.cfg.CrusherIDs) == 0 {
		return
	}
	id := s.cfg.CrusherIDs[s.rng.Intn(len(s.cfg.CrusherIDs))]

	switch roll := s.rng.Float64(); {
	case roll < 0.60:
		s.post(id, "crush", map[string]any{"qty": 1 + s.rng.Intn(8)})
	case roll < 0.85:
		s.post(id, "telemetry", map[string]any{
			"vibration":    0.05 + s.rng.Float64()*0.5,
			"temperature":  18 + s.rng.Float64()*10,
			"mainsVoltage": 225 + s.rng.Float64()*10,
		})
	case roll < 0.95:
		s.post(id, "alert", map[string]any{
			"level":   "warning",
			"message": "Simulated vibration spike",
		})
	default:
		s.post(id, "empty", map[string]any{"source": "Simulator"})
	}
}

func (s *Simulator) post(crusherID, action string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	url := fmt.Sprintf("%s/api/v1/ingest/%s/%s", s.cfg.BaseURL, crusherID, action)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("simulator request failed", "action", action, "crusher", crusherID, "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		s.logger.Warn("simulator request rejected", "action", action, "crusher", crusherID, "status", resp.StatusCode)
	}
}
