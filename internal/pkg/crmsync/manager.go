package crmsync

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/tradiehq/TradieHQ/internal/pkg/database"
	"github.com/tradiehq/TradieHQ/internal/pkg/env"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 10
)

// Manager manages the background CRM sync loop
type Manager struct {
	worker     *Worker
	pollTicker *time.Ticker
	interval   time.Duration
	batchSize  int
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global CRM sync manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			interval:  pollIntervalFromEnv(),
			batchSize: batchSizeFromEnv(),
			stopCh:    make(chan struct{}),
		}
	})
	return globalManager
}

// NewManager builds a manager around an explicit worker. Used by tests and
// by callers that do not want the environment-driven singleton.
func NewManager(worker *Worker, interval time.Duration, batchSize int) *Manager {
	return &Manager{
		worker:    worker,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the sync polling loop
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	if m.worker == nil {
		m.worker = NewWorker(
			NewRepository(database.GetDB()),
			NewHubSpotClientFromEnv(),
			env.GetEnv("APP_SECRET", ""),
			env.GetEnv("HUBSPOT_PRIVATE_APP_TOKEN", ""),
		)
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Infof("[HubspotSync Manager] Starting sync loop (interval: %s, batch: %d)", m.interval, m.batchSize)

	m.pollTicker = time.NewTicker(m.interval)
	m.wg.Add(1)
	go m.pollWorker(m.stopCh, m.pollTicker)

	log.Info("[HubspotSync Manager] Started successfully")
}

// Stop stops the sync polling loop
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[HubspotSync Manager] Stopping sync loop...")

	if m.pollTicker != nil {
		m.pollTicker.Stop()
	}

	// Signal the poll worker to stop
	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	log.Info("[HubspotSync Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunOnce executes a single worker pass outside the ticker loop (admin use).
func (m *Manager) RunOnce(ctx context.Context) Metrics {
	m.mu.Lock()
	worker := m.worker
	batch := m.batchSize
	m.mu.Unlock()

	if worker == nil {
		worker = NewWorker(
			NewRepository(database.GetDB()),
			NewHubSpotClientFromEnv(),
			env.GetEnv("APP_SECRET", ""),
			env.GetEnv("HUBSPOT_PRIVATE_APP_TOKEN", ""),
		)
	}
	return worker.LockAndProcess(ctx, batch)
}

// pollWorker drains the queue on every tick until the stop signal arrives.
// The channel and ticker are captured at start because Start recreates both
// on every start cycle.
func (m *Manager) pollWorker(stopCh chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()

	for {
		select {
		case <-stopCh:
			log.Info("[HubspotSync Manager] Poll worker stopping")
			return
		case <-ticker.C:
			metrics := m.worker.LockAndProcess(context.Background(), m.batchSize)
			if !metrics.IsZero() {
				log.Infof("[HubspotSync Manager] Pass finished: %s", metrics)
			}
		}
	}
}

func pollIntervalFromEnv() time.Duration {
	raw := env.GetEnv("HUBSPOT_SYNC_INTERVAL", "")
	if raw == "" {
		return defaultPollInterval
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		log.Warnf("[HubspotSync Manager] Invalid HUBSPOT_SYNC_INTERVAL %q, using default", raw)
		return defaultPollInterval
	}
	return time.Duration(secs) * time.Second
}

func batchSizeFromEnv() int {
	raw := env.GetEnv("HUBSPOT_SYNC_BATCH", "")
	if raw == "" {
		return defaultBatchSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Warnf("[HubspotSync Manager] Invalid HUBSPOT_SYNC_BATCH %q, using default", raw)
		return defaultBatchSize
	}
	return n
}
