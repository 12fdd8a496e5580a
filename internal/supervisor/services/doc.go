// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package services adapts the server's long-running components to
// suture.Service. Each wrapper depends on a small interface instead of the
// concrete package, so this package imports nothing from the domain.
//
//	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
//	tree.AddMessagingService(services.NewWebSocketHubService(hub))
//	tree.AddMaintenanceService(services.NewSessionCleanupService(store, 5*time.Minute))
package services
