// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package roomevents

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const readyTimeout = 10 * time.Second

// EmbeddedServer is an in-process core NATS server for single-node
// deployments. Room events are fire-and-forget, so JetStream stays off.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer starts a server on host:port. Port -1 picks a random
// free port.
func NewEmbeddedServer(host string, port int) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "reelsync-rooms",
		Host:       host,
		Port:       port,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", readyTimeout)
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the nats:// URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server and waits for it unless ctx is already done.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}

// IsRunning reports whether the server accepts connections.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}
