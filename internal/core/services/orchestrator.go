package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kb-engine/internal/core/domain"
	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
	"github.com/custodia-labs/kb-engine/internal/logger"
)

// Worker pool defaults.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 16
)

// lastSyncedFormat renders the LastSynced display label.
const lastSyncedFormat = "2006-01-02 15:04:05"

type syncTask struct {
	tenantID string
	sourceID string
}

type inflightKey struct {
	tenantID string
	sourceID string
}

// SyncOrchestrator runs connector syncs on a bounded worker pool and
// drives the source status state machine. It is the only component that
// mutates DataSource.Status, which keeps the lifecycle single-writer.
// At most one sync per source is in flight at a time.
type SyncOrchestrator struct {
	sources  driven.SourceStore
	logs     driven.SyncLogStore
	registry *ConnectorRegistry

	tasks chan syncTask
	wg    sync.WaitGroup

	mu       sync.Mutex
	inflight map[inflightKey]bool
	closed   bool
}

// OrchestratorOption configures a SyncOrchestrator.
type OrchestratorOption func(*orchestratorConfig)

type orchestratorConfig struct {
	workers   int
	queueSize int
}

// WithWorkers sets the number of sync workers.
func WithWorkers(n int) OrchestratorOption {
	return func(c *orchestratorConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize sets the pending task queue capacity.
func WithQueueSize(n int) OrchestratorOption {
	return func(c *orchestratorConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// NewSyncOrchestrator creates an orchestrator and starts its workers.
// Call Close to drain and stop them.
func NewSyncOrchestrator(
	sources driven.SourceStore,
	logs driven.SyncLogStore,
	registry *ConnectorRegistry,
	opts ...OrchestratorOption,
) *SyncOrchestrator {
	cfg := orchestratorConfig{
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	o := &SyncOrchestrator{
		sources:  sources,
		logs:     logs,
		registry: registry,
		tasks:    make(chan syncTask, cfg.queueSize),
		inflight: make(map[inflightKey]bool),
	}
	for i := 0; i < cfg.workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o
}

func (o *SyncOrchestrator) worker() {
	defer o.wg.Done()
	for task := range o.tasks {
		// Syncs are background work and outlive the request that
		// queued them.
		ctx := context.Background()
		if err := o.runSync(ctx, task.tenantID, task.sourceID); err != nil {
			logger.Warn("sync failed for source %s: %v", task.sourceID, err)
		}
		o.release(task.tenantID, task.sourceID)
	}
}

// Enqueue submits a sync for background execution. Returns
// ErrSyncInProgress when the source is already syncing or queued, and
// ErrQueueFull when the task queue has no room.
func (o *SyncOrchestrator) Enqueue(ctx context.Context, tenantID, sourceID string) error {
	if _, err := o.sources.Get(ctx, tenantID, sourceID); err != nil {
		return err
	}
	if !o.tryAcquire(tenantID, sourceID) {
		return domain.ErrSyncInProgress
	}

	select {
	case o.tasks <- syncTask{tenantID: tenantID, sourceID: sourceID}:
		return nil
	default:
		o.release(tenantID, sourceID)
		return domain.ErrQueueFull
	}
}

// SyncNow runs a sync synchronously, applying the same single-flight
// guard as Enqueue.
func (o *SyncOrchestrator) SyncNow(ctx context.Context, tenantID, sourceID string) error {
	if !o.tryAcquire(tenantID, sourceID) {
		return domain.ErrSyncInProgress
	}
	defer o.release(tenantID, sourceID)
	return o.runSync(ctx, tenantID, sourceID)
}

// Close stops accepting work and waits for in-flight syncs to finish.
func (o *SyncOrchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	close(o.tasks)
	o.wg.Wait()
}

func (o *SyncOrchestrator) tryAcquire(tenantID, sourceID string) bool {
	key := inflightKey{tenantID: tenantID, sourceID: sourceID}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.inflight[key] {
		return false
	}
	o.inflight[key] = true
	return true
}

func (o *SyncOrchestrator) release(tenantID, sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, inflightKey{tenantID: tenantID, sourceID: sourceID})
}

// runSync drives one source through Syncing and into Synced or Error.
func (o *SyncOrchestrator) runSync(ctx context.Context, tenantID, sourceID string) error {
	source, err := o.sources.Get(ctx, tenantID, sourceID)
	if err != nil {
		return fmt.Errorf("get source: %w", err)
	}

	o.appendLog(ctx, tenantID, sourceID, domain.SyncLogInProgress, "", 0)

	source.Status = domain.StatusSyncing
	source.UpdatedAt = time.Now()
	if err := o.sources.Save(ctx, *source); err != nil {
		return fmt.Errorf("mark syncing: %w", err)
	}

	result, err := o.execute(ctx, *source)
	if err != nil {
		logger.Info("sync failed for source %s (%s): %v", source.ID, source.Type, err)
		source.Status = domain.StatusError
		source.LastSynced = domain.LastSyncedError
		source.UpdatedAt = time.Now()
		if saveErr := o.sources.Save(ctx, *source); saveErr != nil {
			return fmt.Errorf("mark error: %w", saveErr)
		}
		o.appendLog(ctx, tenantID, sourceID, domain.SyncLogFailure, err.Error(), 0)
		return err
	}

	source.Status = domain.StatusSynced
	source.LastSynced = time.Now().Format(lastSyncedFormat)
	source.ItemCount = result.ItemsProcessed
	source.UpdatedAt = time.Now()
	if err := o.sources.Save(ctx, *source); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	o.appendLog(ctx, tenantID, sourceID, domain.SyncLogSuccess, "", result.ItemsProcessed)

	logger.Info("sync complete for source %s: %d items, %d skipped",
		source.ID, result.ItemsProcessed, result.Skipped)
	return nil
}

// execute resolves the connector, validates, and syncs.
func (o *SyncOrchestrator) execute(ctx context.Context, source domain.DataSource) (*domain.SyncResult, error) {
	connector, err := o.registry.Get(source.Type)
	if err != nil {
		return nil, err
	}
	if err := connector.Validate(ctx, source); err != nil {
		return nil, err
	}
	return connector.Sync(ctx, source)
}

// appendLog writes an audit entry. Log failures are not allowed to fail
// the sync itself.
func (o *SyncOrchestrator) appendLog(ctx context.Context, tenantID, sourceID string, status domain.SyncLogStatus, message string, items int) {
	entry := domain.SyncLog{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		SourceID:       sourceID,
		Timestamp:      time.Now(),
		Status:         status,
		Message:        message,
		ItemsProcessed: items,
	}
	if err := o.logs.Append(ctx, entry); err != nil {
		logger.Warn("append sync log for source %s: %v", sourceID, err)
	}
}
