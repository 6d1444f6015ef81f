package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"feedwatch/internal/model"
	"feedwatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// DefaultHistoryLimit bounds the history collection when no limit is given.
const DefaultHistoryLimit = 500

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db           *sql.DB
	historyLimit int
}

// NewSQLite opens a SQLite database at dsn, runs pending migrations, and
// bounds the history collection to historyLimit records (oldest evicted).
func NewSQLite(dsn string, historyLimit int) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if historyLimit < 1 {
		historyLimit = DefaultHistoryLimit
	}

	return &SQLite{db: db, historyLimit: historyLimit}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateSubscription inserts a new subscription together with its keyword
// lists and populates its ID and CreatedAt.
func (s *SQLite) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO subscriptions
		   (chat_id, title, url, interval_minutes, enabled,
		    override_token, override_chat_id, override_enabled, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?)`,
		sub.ChatID, sub.Title, sub.URL, sub.IntervalMinutes, boolToInt(sub.Enabled),
		sub.OverrideToken, sub.OverrideChatID, boolToInt(sub.OverrideEnabled), now,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if err := insertKeywords(ctx, tx, id, sub.Whitelist, sub.Blacklist); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	sub.ID = id
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetSubscription returns a single subscription by its ID.
func (s *SQLite) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx, selectSubscription+` WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, err
	}
	kw, err := s.loadKeywords(ctx, `WHERE subscription_id = ?`, id)
	if err != nil {
		return nil, err
	}
	sub.Whitelist = kw[id].whitelist
	sub.Blacklist = kw[id].blacklist
	return sub, nil
}

// ListSubscriptions returns all subscriptions, including disabled ones.
func (s *SQLite) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return s.listSubscriptions(ctx, ``)
}

// ListSubscriptionsByChat returns all subscriptions owned by the given chat.
func (s *SQLite) ListSubscriptionsByChat(ctx context.Context, chatID int64) ([]model.Subscription, error) {
	return s.listSubscriptions(ctx, `WHERE chat_id = ?`, chatID)
}

func (s *SQLite) listSubscriptions(ctx context.Context, where string, args ...any) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, selectSubscription+` `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kw, err := s.loadKeywords(ctx, ``)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Whitelist = kw[subs[i].ID].whitelist
		subs[i].Blacklist = kw[subs[i].ID].blacklist
	}
	return subs, nil
}

// UpdateSubscription persists configuration changes, replacing the keyword
// lists wholesale. Runtime-state fields are not touched.
func (s *SQLite) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE subscriptions
		 SET chat_id = ?, title = ?, url = ?, interval_minutes = ?, enabled = ?,
		     override_token = ?, override_chat_id = ?, override_enabled = ?
		 WHERE id = ?`,
		sub.ChatID, sub.Title, sub.URL, sub.IntervalMinutes, boolToInt(sub.Enabled),
		sub.OverrideToken, sub.OverrideChatID, boolToInt(sub.OverrideEnabled), sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE subscription_id = ?`, sub.ID); err != nil {
		return fmt.Errorf("delete keywords: %w", err)
	}
	if err := insertKeywords(ctx, tx, sub.ID, sub.Whitelist, sub.Blacklist); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateCheckState writes the last-check timestamp and error message only.
func (s *SQLite) UpdateCheckState(ctx context.Context, id int64, checkedAt time.Time, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET last_check_at = ?, last_error = ? WHERE id = ?`,
		checkedAt.UTC().Format(timeLayout), lastError, id,
	)
	if err != nil {
		return fmt.Errorf("update check state: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription with its keywords and history,
// reporting whether it existed.
func (s *SQLite) DeleteSubscription(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE subscription_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE subscription_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete keywords: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// AddHistory records a (subscription, item) pair as seen. Inserting an
// already-recorded pair is a no-op; the collection is trimmed to the
// configured limit, oldest records first.
func (s *SQLite) AddHistory(ctx context.Context, rec *model.HistoryRecord) error {
	var published *string
	if rec.Item.PublishedAt != nil {
		v := rec.Item.PublishedAt.UTC().Format(timeLayout)
		published = &v
	}
	discovered := rec.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO history
		   (subscription_id, subscription_title, item_id, item_title, item_link,
		    item_description, published_at, discovered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SubscriptionID, rec.SubscriptionTitle, rec.Item.ID, rec.Item.Title,
		rec.Item.Link, rec.Item.Description, published, discovered.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM history
		 WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		s.historyLimit,
	)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

// HasHistory checks whether a (subscription, item) pair has been seen.
func (s *SQLite) HasHistory(ctx context.Context, subscriptionID int64, itemID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM history WHERE subscription_id = ? AND item_id = ?`,
		subscriptionID, itemID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check history: %w", err)
	}
	return count > 0, nil
}

// ListHistory returns the most recent history records, newest first.
func (s *SQLite) ListHistory(ctx context.Context, limit int) ([]model.HistoryRecord, error) {
	if limit < 1 {
		limit = s.historyLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subscription_id, subscription_title, item_id, item_title,
		        item_link, item_description, published_at, discovered_at
		 FROM history ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []model.HistoryRecord
	for rows.Next() {
		var rec model.HistoryRecord
		var published, discovered sql.NullString
		err := rows.Scan(&rec.ID, &rec.SubscriptionID, &rec.SubscriptionTitle,
			&rec.Item.ID, &rec.Item.Title, &rec.Item.Link, &rec.Item.Description,
			&published, &discovered)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if published.Valid {
			t, _ := time.Parse(timeLayout, published.String)
			rec.Item.PublishedAt = &t
		}
		if discovered.Valid {
			rec.DiscoveredAt, _ = time.Parse(timeLayout, discovered.String)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

const selectSubscription = `SELECT id, chat_id, title, url, interval_minutes, enabled,
	override_token, override_chat_id, override_enabled, last_check_at, last_error, created_at
	FROM subscriptions`

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubscription(row scannable) (*model.Subscription, error) {
	var sub model.Subscription
	var enabled, overrideEnabled int
	var lastCheck, created sql.NullString
	err := row.Scan(&sub.ID, &sub.ChatID, &sub.Title, &sub.URL, &sub.IntervalMinutes,
		&enabled, &sub.OverrideToken, &sub.OverrideChatID, &overrideEnabled,
		&lastCheck, &sub.LastError, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.Enabled = enabled == 1
	sub.OverrideEnabled = overrideEnabled == 1
	if lastCheck.Valid {
		t, _ := time.Parse(timeLayout, lastCheck.String)
		sub.LastCheckAt = &t
	}
	if created.Valid {
		sub.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &sub, nil
}

type keywordLists struct {
	whitelist []string
	blacklist []string
}

func (s *SQLite) loadKeywords(ctx context.Context, where string, args ...any) (map[int64]keywordLists, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subscription_id, kind, term FROM keywords `+where+` ORDER BY subscription_id, position, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]keywordLists)
	for rows.Next() {
		var subID int64
		var kind, term string
		if err := rows.Scan(&subID, &kind, &term); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		lists := out[subID]
		switch model.KeywordKind(kind) {
		case model.KeywordWhitelist:
			lists.whitelist = append(lists.whitelist, term)
		case model.KeywordBlacklist:
			lists.blacklist = append(lists.blacklist, term)
		}
		out[subID] = lists
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertKeywords(ctx context.Context, tx execer, subID int64, whitelist, blacklist []string) error {
	now := time.Now().UTC().Format(timeLayout)
	insert := func(kind model.KeywordKind, terms []string) error {
		for i, term := range terms {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO keywords (subscription_id, kind, term, position, created_at)
				 VALUES (?, ?, ?, ?, ?)`,
				subID, string(kind), term, i, now,
			)
			if err != nil {
				return fmt.Errorf("insert keyword: %w", err)
			}
		}
		return nil
	}
	if err := insert(model.KeywordWhitelist, whitelist); err != nil {
		return err
	}
	return insert(model.KeywordBlacklist, blacklist)
}
