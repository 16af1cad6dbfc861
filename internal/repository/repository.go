package repository

import (
	"context"
	"time"

	"roomsense/internal/domain"
)

// MappingKind distinguishes the two operator-editable mappings.
type MappingKind string

const (
	// MappingRoom maps an association point to a room name
	MappingRoom MappingKind = "room"
	// MappingPerson maps a device id to a person name
	MappingPerson MappingKind = "person"
)

// Sighting is one historical observation of a device from a network
// poll. Sightings are append-only; fusion never reads them.
type Sighting struct {
	ID               int64     `json:"id"`
	DeviceID         string    `json:"device_id"`
	AssociationPoint string    `json:"association_point,omitempty"`
	Person           string    `json:"person,omitempty"`
	Room             string    `json:"room,omitempty"`
	SignalStrength   int       `json:"signal_strength"`
	Source           string    `json:"source"`
	SeenAt           time.Time `json:"seen_at"`
}

// Repository defines persistent storage for sighting history and
// mapping overrides. All fusion state stays in memory; this interface
// only covers what must survive a restart.
type Repository interface {
	// RecordSightings appends one sighting per device in the snapshot.
	RecordSightings(ctx context.Context, snap *domain.DeviceSnapshot) error

	// ListSightings returns sightings for a device, newest first. An empty
	// deviceID returns sightings for all devices.
	ListSightings(ctx context.Context, deviceID string, since time.Time, limit int) ([]Sighting, error)

	// PruneSightings deletes sightings older than the cutoff and reports
	// how many were removed.
	PruneSightings(ctx context.Context, before time.Time) (int64, error)

	// SaveMapping stores or replaces one mapping override.
	SaveMapping(ctx context.Context, kind MappingKind, key, value string) error

	// DeleteMapping removes one mapping override.
	DeleteMapping(ctx context.Context, kind MappingKind, key string) error

	// ListMappings returns all overrides of one kind.
	ListMappings(ctx context.Context, kind MappingKind) (map[string]string, error)

	// Close releases resources
	Close() error
}
