// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/reelsync/internal/models"
)

// MigrateWatchlist inserts items for userID in one transaction. Items whose
// (media id, media type) already exist are left untouched and counted as
// skipped, so replaying the same payload is a no-op.
func (db *DB) MigrateWatchlist(ctx context.Context, userID string, items []models.WatchlistItem) (migrated, skipped int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO watchlist_items (user_id, media_id, media_type, title, poster_path, added_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, media_id, media_type) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("failed to prepare watchlist insert: %w", err)
		}
		defer closeQuietly(stmt)

		for i := range items {
			it := &items[i]
			res, err := stmt.ExecContext(ctx, userID, it.MediaID, string(it.MediaType), it.Title, it.PosterPath, it.AddedAt)
			if err != nil {
				return fmt.Errorf("failed to insert watchlist item %s: %w", it.Key(), err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if n > 0 {
				migrated++
			} else {
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return migrated, skipped, nil
}

// AddWatchlistItem upserts one item; title and poster are refreshed on conflict.
func (db *DB) AddWatchlistItem(ctx context.Context, item models.WatchlistItem) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO watchlist_items (user_id, media_id, media_type, title, poster_path, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, media_id, media_type)
		DO UPDATE SET title = excluded.title, poster_path = excluded.poster_path`,
		item.UserID, item.MediaID, string(item.MediaType), item.Title, item.PosterPath, item.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert watchlist item: %w", err)
	}
	return nil
}

// RemoveWatchlistItem reports whether the item existed.
func (db *DB) RemoveWatchlistItem(ctx context.Context, userID, mediaID string, mediaType models.MediaType) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM watchlist_items WHERE user_id = ? AND media_id = ? AND media_type = ?",
		userID, mediaID, string(mediaType))
	if err != nil {
		return false, fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListWatchlist returns userID's items, most recently added first.
func (db *DB) ListWatchlist(ctx context.Context, userID string) ([]models.WatchlistItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, media_id, media_type, title, poster_path, added_at
		FROM watchlist_items
		WHERE user_id = ?
		ORDER BY added_at DESC, media_type, media_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer closeQuietly(rows)

	items := make([]models.WatchlistItem, 0)
	for rows.Next() {
		var it models.WatchlistItem
		var mediaType string
		if err := rows.Scan(&it.UserID, &it.MediaID, &mediaType, &it.Title, &it.PosterPath, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		it.MediaType = models.MediaType(mediaType)
		it.AddedAt = it.AddedAt.UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return items, nil
}
