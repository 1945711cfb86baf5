// Package api defines the transport-friendly views shared by the IPC
// surface and the CLI. Conversions flatten store records into stable
// JSON shapes so internal types can evolve without breaking clients.
package api
