package adapter

import (
	"context"
	"errors"
	"time"

	"roomsense/internal/domain"
)

// AdapterType defines how an adapter interacts with its data source
type AdapterType string

const (
	// AdapterTypePolling - adapter pulls data on a schedule
	AdapterTypePolling AdapterType = "polling"
	// AdapterTypePush - adapter consumes a long-lived event stream
	AdapterTypePush AdapterType = "push"
)

// ErrAuth marks an authentication or credential failure. It is terminal:
// the registry disables the adapter until process restart.
var ErrAuth = errors.New("authentication failed")

// Batch is what an adapter hands to the fusion engine after normalizing
// raw source data. Snapshot is nil for adapters that do not own the
// device table.
type Batch struct {
	Source   string
	Signals  []domain.Signal
	Snapshot *domain.DeviceSnapshot
}

// CommitFunc accepts a normalized batch from an adapter. Committing a
// batch is the only way external data enters the fusion state.
type CommitFunc func(ctx context.Context, batch *Batch) error

// Adapter defines the interface for evidence source integrations
type Adapter interface {
	// Name returns the unique identifier for this adapter
	Name() string

	// Type returns how this adapter interacts with its source
	Type() AdapterType

	// Start initializes the adapter (called once on startup)
	Start(ctx context.Context) error

	// Stop gracefully shuts down the adapter
	Stop() error
}

// PollingAdapter pulls data from its source once per poll tick
type PollingAdapter interface {
	Adapter

	// Poll fetches and normalizes the source's current state.
	Poll(ctx context.Context) (*Batch, error)
}

// StreamingAdapter consumes a long-lived subscription, committing
// batches as events arrive. Stream blocks until ctx is cancelled,
// handling reconnection internally.
type StreamingAdapter interface {
	Adapter

	Stream(ctx context.Context, commit CommitFunc) error
}

// Settings is the slice of runtime configuration adapters read on every
// ingestion event. The accessor indirection keeps config reloads cheap:
// adapters never cache a stale copy.
type Settings struct {
	// Rooms maps association points to room names
	Rooms map[string]string
	// People maps device ids to person names
	People map[string]string
	// RSSIAmbiguity is the dBm threshold below which radio signal
	// strength stops discriminating rooms
	RSSIAmbiguity int
	// ActivityKbps is the combined throughput threshold for the
	// device-activity signal
	ActivityKbps float64
}

// SettingsFunc returns the current settings snapshot
type SettingsFunc func() Settings

// AssociationRecord is one row of the raw device-association table as
// returned by a network collaborator, before normalization.
type AssociationRecord struct {
	DeviceID         string
	AssociationPoint string
	DisplayHint      string
	SignalStrength   int     // dBm
	SendRate         float64 // bytes/sec
	ReceiveRate      float64 // bytes/sec
	LastSeen         time.Time
}

// NetworkSource is the network collaborator: a periodic pull returning
// the currently-associated device table.
type NetworkSource interface {
	Name() string
	Fetch(ctx context.Context) ([]AssociationRecord, error)
}

// DetectionEvent is one push event from the vision collaborator.
type DetectionEvent struct {
	ObjectClass string  `json:"object_class"`
	SourceID    string  `json:"source_id"`
	EventID     string  `json:"event_id"`
	Confidence  float64 `json:"confidence"`
}

// DetectionConn is an open subscription to the vision collaborator.
type DetectionConn interface {
	// Next blocks until the next event arrives or the connection fails.
	Next() (*DetectionEvent, error)
	Close() error
}

// DetectionStream is the vision collaborator: a subscription yielding
// discrete detection events in real time.
type DetectionStream interface {
	Name() string
	Connect(ctx context.Context) (DetectionConn, error)
}

// Enricher is the optional best-effort enrichment collaborator. Given an
// event identifier it may return supplementary imagery. Failures are
// non-fatal and never surface past the adapter boundary.
type Enricher interface {
	Fetch(ctx context.Context, eventID string) ([]byte, error)
}
