// Package service wires adapters, the fusion engine, persistence, and
// the event bus together. The presence service owns the single commit
// path for adapter batches and exposes the read model that handlers
// serve.
package service
