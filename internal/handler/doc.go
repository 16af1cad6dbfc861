// Package handler exposes the occupancy read model over HTTP: per-room
// presence, the Home/Away gate, device and adapter health, sighting
// history, and the mapping edit surface. Live updates flow through the
// SSE hub; everything here is request/response.
package handler
