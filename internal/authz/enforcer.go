// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package authz decides what an identity may do.
//
// Roles (models.Role) are Casbin subjects. The model and policy are embedded
// (model.conf, policy.csv); admin inherits every user permission through a
// grouping rule. Guard is the single entry point for handlers and returns a
// typed Decision instead of a bool.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects named in policy.csv.
const (
	ObjectAdmin         = "admin"
	ObjectWatchRoom     = "watchroom"
	ObjectWatchlist     = "watchlist"
	ObjectNotifications = "notifications"
	ObjectUsers         = "users"
)

// Actions named in policy.csv.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionSearch = "search"
)

// Enforcer wraps a Casbin SyncedEnforcer loaded from the embedded policy.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads the embedded model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadEmbeddedPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: enforcer}, nil
}

// loadEmbeddedPolicy adds each p and g line of a policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}
