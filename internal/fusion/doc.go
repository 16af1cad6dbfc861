// Package fusion turns accumulated occupancy signals into per-room
// probabilities.
//
// The decay store collects signals from all adapters and the device
// snapshot from the network poller. On each cycle the engine prunes
// expired signals, takes a copy-on-read view, adjusts weights through
// cross-modality validation, and folds the survivors into one
// probability per room under the Home/Away gate.
package fusion
