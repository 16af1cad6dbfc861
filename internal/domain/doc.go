// Package domain defines the core domain types for the roomsense occupancy engine.
//
// This package contains the value objects that flow between source adapters
// and the fusion pipeline: signals, device records, and fusion results.
//
// # Signals
//
// Signal is one unit of timestamped, weighted evidence that a room is
// occupied. Each signal belongs to a SignalClass (network-presence,
// device-activity, vision-person, vision-face-match), whose SignalType
// fixes its base weight and decay window. Signals are constructed only by
// source adapters; that boundary is the sole translation point from
// loosely-typed external payloads into the strict internal model.
//
// # Device Snapshot
//
// DeviceRecord describes one currently-associated device as last reported
// by the network collaborator. DeviceSnapshot is replaced wholesale on
// every successful poll; a failed poll leaves the previous snapshot in
// place so the system degrades to stale-but-present rather than absent.
//
// # Home/Away
//
// HomeAwayState is a two-state global override derived from the device
// snapshot and the person map. Away forces every fused probability to
// exactly zero. An empty person map disables the gate by omission; this
// is a deliberate default, not a bug.
//
// # Fusion
//
// FusionResult carries the per-room probability together with the signals
// that contributed to it. CombineWeights implements noisy-OR combination,
// treating each signal as independent evidence.
//
// # Design Principles
//
// - Immutable value objects where possible
// - No database or external dependencies
// - Pure domain logic without infrastructure concerns
package domain
