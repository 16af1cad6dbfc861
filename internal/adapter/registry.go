package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roomsense/internal/log"
)

// AdapterConfig holds configuration for an adapter instance
type AdapterConfig struct {
	// Enabled determines if the adapter should run
	Enabled bool `json:"enabled"`
	// PollInterval for polling adapters (e.g., "30s", "5m")
	PollInterval string `json:"poll_interval,omitempty"`
}

// Status describes an adapter's health as seen by the registry
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusDegraded Status = "degraded" // last sync failed transiently
	StatusDisabled Status = "disabled" // terminal failure or disabled by config
)

// AdapterInfo provides read-only information about an adapter. It is the
// health surface callers consult to tell "no data" apart from
// "confirmed empty": FusionResult alone cannot distinguish the two.
type AdapterInfo struct {
	Name         string      `json:"name"`
	Type         AdapterType `json:"type"`
	Enabled      bool        `json:"enabled"`
	PollInterval string      `json:"poll_interval,omitempty"`
	Status       Status      `json:"status"`
	LastSync     *time.Time  `json:"last_sync,omitempty"`
	LastError    string      `json:"last_error,omitempty"`
}

// Registry manages all registered adapters and their lifecycle. Each
// polling adapter gets its own loop; streaming adapters run their own
// subscription. Everything an adapter produces funnels through the
// single commit function.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	configs  map[string]AdapterConfig
	states   map[string]*adapterState
	commit   CommitFunc
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type adapterState struct {
	status    Status
	lastSync  time.Time
	lastError string
}

// NewRegistry creates a new adapter registry
func NewRegistry(commit CommitFunc) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		configs:  make(map[string]AdapterConfig),
		states:   make(map[string]*adapterState),
		commit:   commit,
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(a Adapter, config AdapterConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %s already registered", name)
	}

	r.adapters[name] = a
	r.configs[name] = config
	st := &adapterState{status: StatusIdle}
	if !config.Enabled {
		st.status = StatusDisabled
	}
	r.states[name] = st

	log.Info("registered adapter", "name", name, "type", a.Type(), "enabled", config.Enabled)
	return nil
}

// Start initializes all enabled adapters and begins their ingestion loops
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(ctx)

	for name, a := range r.adapters {
		config := r.configs[name]
		if !config.Enabled {
			log.Info("adapter disabled, skipping", "name", name)
			continue
		}

		if err := a.Start(r.ctx); err != nil {
			log.Error("failed to start adapter", "name", name, "error", err)
			r.setState(name, StatusDisabled, err)
			continue
		}
		r.states[name].status = StatusRunning

		switch sa := a.(type) {
		case PollingAdapter:
			r.startPollingLoop(name, sa, config)
		case StreamingAdapter:
			r.startStreamLoop(name, sa)
		default:
			log.Warn("adapter implements no ingestion interface", "name", name)
		}
	}

	return nil
}

// Stop gracefully shuts down all adapters. It waits for every ingestion
// loop to finish so underlying connections are closed before returning.
func (r *Registry) Stop() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, a := range r.adapters {
		if err := a.Stop(); err != nil {
			log.Warn("error stopping adapter", "name", name, "error", err)
		}
	}
	return nil
}

// TriggerPoll manually triggers a poll for a specific adapter
func (r *Registry) TriggerPoll(ctx context.Context, name string) error {
	r.mu.RLock()
	a, exists := r.adapters[name]
	st := r.states[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("adapter %s not found", name)
	}
	if st.status == StatusDisabled {
		return fmt.Errorf("adapter %s is disabled", name)
	}
	pa, ok := a.(PollingAdapter)
	if !ok {
		return fmt.Errorf("adapter %s is not a polling adapter", name)
	}
	return r.runPoll(ctx, name, pa)
}

// ListAdapters returns health information about registered adapters
func (r *Registry) ListAdapters() []AdapterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []AdapterInfo
	for name, a := range r.adapters {
		config := r.configs[name]
		st := r.states[name]
		info := AdapterInfo{
			Name:         name,
			Type:         a.Type(),
			Enabled:      config.Enabled,
			PollInterval: config.PollInterval,
			Status:       st.status,
			LastError:    st.lastError,
		}
		if !st.lastSync.IsZero() {
			t := st.lastSync
			info.LastSync = &t
		}
		infos = append(infos, info)
	}
	return infos
}

func (r *Registry) setState(name string, status Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[name]
	if !ok {
		return
	}
	st.status = status
	if err != nil {
		st.lastError = err.Error()
	}
}

func (r *Registry) markSynced(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[name]; ok {
		st.status = StatusRunning
		st.lastSync = time.Now()
		st.lastError = ""
	}
}

// startPollingLoop starts a goroutine that polls the adapter on schedule
func (r *Registry) startPollingLoop(name string, a PollingAdapter, config AdapterConfig) {
	interval, err := time.ParseDuration(config.PollInterval)
	if err != nil {
		log.Warn("invalid poll interval, using 30s default", "name", name, "value", config.PollInterval)
		interval = 30 * time.Second
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if err := r.runPoll(r.ctx, name, a); errors.Is(err, ErrAuth) {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				log.Info("stopping polling loop", "name", name)
				return
			case <-ticker.C:
				if err := r.runPoll(r.ctx, name, a); errors.Is(err, ErrAuth) {
					return
				}
			}
		}
	}()

	log.Info("started polling loop", "name", name, "interval", interval)
}

// startStreamLoop runs a streaming adapter's subscription until shutdown
func (r *Registry) startStreamLoop(name string, a StreamingAdapter) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		commit := func(ctx context.Context, batch *Batch) error {
			if err := r.commit(ctx, batch); err != nil {
				return err
			}
			r.markSynced(name)
			return nil
		}

		if err := a.Stream(r.ctx, commit); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("stream loop ended", "name", name, "error", err)
			r.setState(name, StatusDisabled, err)
			return
		}
		log.Info("stream loop stopped", "name", name)
	}()
}

// runPoll executes one poll and commits the result. An ErrAuth return
// permanently disables the adapter; transient errors leave the previous
// committed state untouched so downstream consumers see stale-but-present
// data rather than nothing.
func (r *Registry) runPoll(ctx context.Context, name string, a PollingAdapter) error {
	batch, err := a.Poll(ctx)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			log.Error("authentication failed, disabling adapter until restart", "name", name, "error", err)
			r.setState(name, StatusDisabled, err)
			return err
		}
		log.Warn("poll failed, retaining previous state", "name", name, "error", err)
		r.setState(name, StatusDegraded, err)
		return err
	}

	if batch == nil {
		return nil
	}

	if err := r.commit(ctx, batch); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	r.markSynced(name)

	log.Debug("poll complete", "name", name, "signals", len(batch.Signals))
	return nil
}
