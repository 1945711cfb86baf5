// Package ipc implements the daemon control channel: JSON-RPC over a
// Unix domain socket, with a matching client used by the CLI.
package ipc
