// Package adapter implements evidence source adapters for roomsense.
//
// Adapters are the translation boundary between loosely-typed external
// collaborator data and the strict internal signal model: nothing else
// in the system constructs signals or device snapshots.
//
// # Adapter Types
//
// AdapterTypePolling adapters pull their source on a schedule (the
// network/association adapter). AdapterTypePush adapters consume a
// long-lived subscription (the vision adapter).
//
// # Network Sources
//
// The network adapter is generic over a NetworkSource. Three sources
// ship in this package:
//
// ControllerClient polls a network controller's REST API for the
// device-association table.
//
// StationSource reads the wireless station table from an access point
// over SSH, deriving throughput rates from counter deltas.
//
// SweepSource runs an nmap ping sweep; it discovers devices without
// association points, feeding the Home/Away gate only.
//
// # Vision Source
//
// VisionAdapter consumes a DetectionStream (websocket implementation in
// this package) and emits vision-person signals, with a best-effort
// enrichment path that is fully isolated from signal emission.
//
// # Adapter Registry
//
// Registry owns adapter lifecycle: one polling loop per polling
// adapter, one subscription goroutine per streaming adapter, unified
// commit path, and per-adapter health that downstream consumers can
// inspect. An ErrAuth from any source permanently disables that adapter
// until restart; transient errors leave previously committed state in
// place.
package adapter
