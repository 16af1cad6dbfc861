package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"roomsense/internal/domain"
	"roomsense/internal/log"
)

const (
	visionInitialBackoff = 5 * time.Second
	visionMaxBackoff     = 60 * time.Second
)

// VisionAdapter consumes the vision collaborator's detection stream and
// emits one vision-person signal per qualifying event. Non-person
// detections are discarded silently. After each signal is committed an
// optional enrichment attempt runs on its own goroutine with its own
// error boundary; nothing it does can block, delay, or retract the
// already-emitted signal.
type VisionAdapter struct {
	stream   DetectionStream
	settings SettingsFunc
	enricher Enricher
	enrichTO time.Duration

	onEnriched func(eventID string, image []byte)

	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu      sync.Mutex
	running bool
}

// NewVisionAdapter creates the push-event adapter
func NewVisionAdapter(stream DetectionStream, settings SettingsFunc) *VisionAdapter {
	return &VisionAdapter{
		stream:         stream,
		settings:       settings,
		enrichTO:       5 * time.Second,
		initialBackoff: visionInitialBackoff,
		maxBackoff:     visionMaxBackoff,
	}
}

// SetEnricher attaches the optional enrichment collaborator
func (v *VisionAdapter) SetEnricher(e Enricher, timeout time.Duration) {
	v.enricher = e
	if timeout > 0 {
		v.enrichTO = timeout
	}
}

// SetEnrichedHandler registers a callback invoked when enrichment
// succeeds (e.g. to broadcast the imagery downstream)
func (v *VisionAdapter) SetEnrichedHandler(fn func(eventID string, image []byte)) {
	v.onEnriched = fn
}

// Name returns the adapter identifier
func (v *VisionAdapter) Name() string {
	return "vision-" + v.stream.Name()
}

// Type returns the adapter type
func (v *VisionAdapter) Type() AdapterType {
	return AdapterTypePush
}

// Start initializes the adapter
func (v *VisionAdapter) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.running = true
	log.Info("vision adapter started", "stream", v.stream.Name())
	return nil
}

// Stop shuts down the adapter
func (v *VisionAdapter) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.running = false
	return nil
}

// Stream runs the subscription until ctx is cancelled, reconnecting
// with exponential backoff (5s doubling to a 60s cap). Backoff resets
// to the initial value once an event is processed successfully.
func (v *VisionAdapter) Stream(ctx context.Context, commit CommitFunc) error {
	backoff := v.initialBackoff

	for {
		conn, err := v.stream.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("vision stream connect failed", "stream", v.stream.Name(),
				"error", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, v.maxBackoff)
			continue
		}

		log.Info("vision stream connected", "stream", v.stream.Name())
		err = v.consume(ctx, conn, commit, &backoff)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("vision stream disconnected", "stream", v.stream.Name(),
			"error", err, "retry_in", backoff)
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, v.maxBackoff)
	}
}

// consume reads events until the connection fails
func (v *VisionAdapter) consume(ctx context.Context, conn DetectionConn, commit CommitFunc, backoff *time.Duration) error {
	for {
		ev, err := conn.Next()
		if err != nil {
			return err
		}

		if err := v.handleEvent(ctx, ev, commit); err != nil {
			log.Warn("vision event not committed", "event", ev.EventID, "error", err)
			continue
		}
		*backoff = v.initialBackoff
	}
}

// handleEvent converts one detection event into a signal and commits
// it. Only person detections qualify; everything else is dropped
// without logging noise.
func (v *VisionAdapter) handleEvent(ctx context.Context, ev *DetectionEvent, commit CommitFunc) error {
	if ev.ObjectClass != "person" {
		return nil
	}

	s := v.settings()
	room := s.Rooms[ev.SourceID]
	if room == "" {
		room = normalizeSourceID(ev.SourceID)
	}

	sig := domain.Signal{
		Room:       room,
		Class:      domain.SignalVisionPerson,
		Weight:     domain.SignalTypes[domain.SignalVisionPerson].BaseWeight,
		Detail:     fmt.Sprintf("source=%s conf=%.2f", ev.SourceID, ev.Confidence),
		ObservedAt: time.Now(),
	}

	if err := commit(ctx, &Batch{Source: v.Name(), Signals: []domain.Signal{sig}}); err != nil {
		return err
	}

	// Enrichment runs strictly after the signal is committed.
	if v.enricher != nil && ev.EventID != "" {
		go v.enrich(ev.EventID)
	}
	return nil
}

// enrich performs the best-effort face-match attempt. Every failure mode
// (timeout, not-found, decode error) stays behind this boundary at
// debug level.
func (v *VisionAdapter) enrich(eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), v.enrichTO)
	defer cancel()

	image, err := v.enricher.Fetch(ctx, eventID)
	if err != nil {
		log.Debug("enrichment failed", "event", eventID, "error", err)
		return
	}
	log.Debug("enrichment complete", "event", eventID, "bytes", len(image))
	if v.onEnriched != nil {
		v.onEnriched(eventID, image)
	}
}

// nextBackoff doubles the delay up to the cap
func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// sleepCtx sleeps for d, returning false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// normalizeSourceID turns a raw camera identifier into a usable room
// name when no mapping exists ("Front_Door Cam" -> "front-door-cam")
func normalizeSourceID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	var b strings.Builder
	lastDash := false
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
