// Package gateway is the single access path to the remote data store. It
// translates equality-filtered collection reads and batched writes into
// SQL, refreshes the local cache on every successful read, degrades to the
// cached copy when the store is unreachable, and parks exhausted writes on
// the failed-writes queue for the sync worker.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
)

// UpsertBatchSize bounds the number of records per remote write request.
const UpsertBatchSize = 50

// Identity is the authenticated principal returned by the remote
// password-verification procedure.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Stream string `json:"stream"`
}

// Gateway is the read/write surface the services consume. Remote is the
// production implementation; tests substitute fakes.
type Gateway interface {
	Query(ctx context.Context, collection string, filters Filters) ([]Record, error)
	Upsert(ctx context.Context, collection string, records []Record, conflictKey string) error
	Update(ctx context.Context, collection string, set Record, filters Filters) error
	Delete(ctx context.Context, collection string, filters Filters) error
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	CheckConnectivity(ctx context.Context) bool
}

// QueuedWrite is the shape parked on the failed-writes queue after retry
// exhaustion, replayed later by the sync worker.
type QueuedWrite struct {
	Collection  string   `json:"collection"`
	ConflictKey string   `json:"conflict_key"`
	Records     []Record `json:"records"`
}

// collections is the closed set of remote tables this core addresses.
// Requests for anything else are programming errors, not user input.
var collections = map[string]bool{
	"tests":           true,
	"marking_schemes": true,
	"test_sections":   true,
	"sections":        true,
	"questions":       true,
	"test_results":    true,
	"streams":         true,
	"subjects":        true,
	"users":           true,
}

// Remote is the pgx-backed Gateway.
type Remote struct {
	pool  *pgxpool.Pool
	store cache.Store
	retry RetryPolicy
	log   zerolog.Logger
}

// NewRemote creates a Remote gateway with the default retry policy.
func NewRemote(pool *pgxpool.Pool, store cache.Store, log zerolog.Logger) *Remote {
	return &Remote{
		pool:  pool,
		store: store,
		retry: DefaultRetryPolicy(),
		log:   log.With().Str("component", "gateway").Logger(),
	}
}

// WithRetryPolicy overrides the write retry policy. Used by tests and the
// sync worker (which runs on its own schedule and wants no extra delays).
func (g *Remote) WithRetryPolicy(p RetryPolicy) *Remote {
	g.retry = p
	return g
}

// Query reads records matching the equality filter set. A successful read
// refreshes the collection's cache entry; a failed read falls back to the
// cached copy (filtered in memory) or an empty list. Reads never hard-fail.
func (g *Remote) Query(ctx context.Context, collection string, filters Filters) ([]Record, error) {
	if !collections[collection] {
		return nil, remoteErr("query", collection, ErrUnknownCollection)
	}

	records, err := g.queryRemote(ctx, collection, filters)
	if err != nil {
		g.log.Warn().Err(err).Str("collection", collection).Msg("Query failed, serving cached copy")
		return g.cachedQuery(ctx, collection, filters), nil
	}

	g.refreshCollectionCache(ctx, collection, records)
	return records, nil
}

func (g *Remote) queryRemote(ctx context.Context, collection string, filters Filters) ([]Record, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", collection)

	keys := sortedKeys(filters)
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%s = $%d", k, i+1)
		args = append(args, filters[k])
	}

	rows, err := g.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, remoteErr("query", collection, errors.Join(ErrConnectivity, err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, remoteErr("query", collection, err)
		}
		rec := make(Record, len(fields))
		for i, fd := range fields {
			rec[string(fd.Name)] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, remoteErr("query", collection, errors.Join(ErrConnectivity, err))
	}
	return records, nil
}

// cachedQuery serves the last known copy of a collection, applying the
// filters in memory so callers see the same shape as a live read.
func (g *Remote) cachedQuery(ctx context.Context, collection string, filters Filters) []Record {
	var cached []Record
	if !cache.GetJSON(ctx, g.store, config.CacheKey.CollectionKey(collection), &cached) {
		return []Record{}
	}
	matched := make([]Record, 0, len(cached))
	for _, rec := range cached {
		if rec.matches(filters) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// refreshCollectionCache merges fresh records into the collection cache,
// keyed by id where present, so a filtered read does not evict rows the
// filter excluded.
func (g *Remote) refreshCollectionCache(ctx context.Context, collection string, fresh []Record) {
	var cached []Record
	cache.GetJSON(ctx, g.store, config.CacheKey.CollectionKey(collection), &cached)

	merged := make([]Record, 0, len(cached)+len(fresh))
	seen := make(map[string]int)
	for _, rec := range cached {
		if id := rec.String("id"); id != "" {
			seen[id] = len(merged)
		}
		merged = append(merged, rec)
	}
	for _, rec := range fresh {
		id := rec.String("id")
		if id != "" {
			if idx, ok := seen[id]; ok {
				merged[idx] = rec
				continue
			}
			seen[id] = len(merged)
		}
		merged = append(merged, rec)
	}

	cache.SetJSON(ctx, g.store, config.CacheKey.CollectionKey(collection), merged)
}

// Upsert writes records in batches of UpsertBatchSize. Each batch is
// retried per the policy; an exhausted batch is appended once to the
// failed-writes queue and the error is returned.
func (g *Remote) Upsert(ctx context.Context, collection string, records []Record, conflictKey string) error {
	if !collections[collection] {
		return remoteErr("upsert", collection, ErrUnknownCollection)
	}
	if len(records) == 0 {
		return nil
	}

	for start := 0; start < len(records); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		policy := g.retry
		policy.OnExhausted = func(ctx context.Context) {
			g.queueFailedWrite(ctx, collection, conflictKey, batch)
		}

		err := policy.Do(ctx, func(ctx context.Context) error {
			return g.upsertBatch(ctx, collection, batch, conflictKey)
		})
		if err != nil {
			return remoteErr("upsert", collection, errors.Join(ErrConnectivity, err))
		}
	}
	return nil
}

func (g *Remote) upsertBatch(ctx context.Context, collection string, batch []Record, conflictKey string) error {
	cols := sortedKeys(Filters(batch[0]))

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", collection, strings.Join(cols, ", "))

	args := make([]any, 0, len(batch)*len(cols))
	for i, rec := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", len(args)+1)
			args = append(args, rec[col])
		}
		sb.WriteString(")")
	}

	fmt.Fprintf(&sb, " ON CONFLICT (%s) DO UPDATE SET ", conflictKey)
	first := true
	for _, col := range cols {
		if col == conflictKey {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = EXCLUDED.%s", col, col)
		first = false
	}

	_, err := g.pool.Exec(ctx, sb.String(), args...)
	return err
}

func (g *Remote) queueFailedWrite(ctx context.Context, collection, conflictKey string, batch []Record) {
	raw, err := json.Marshal(QueuedWrite{
		Collection:  collection,
		ConflictKey: conflictKey,
		Records:     batch,
	})
	if err != nil {
		g.log.Error().Err(err).Str("collection", collection).Msg("Cannot queue failed write")
		return
	}
	g.store.AppendToQueue(ctx, config.QueueKey.FailedWrites, raw)
	g.log.Warn().
		Str("collection", collection).
		Int("records", len(batch)).
		Msg("Write retries exhausted, batch queued for sync")
}

// Update applies the set record to every row matching the filters.
func (g *Remote) Update(ctx context.Context, collection string, set Record, filters Filters) error {
	if !collections[collection] {
		return remoteErr("update", collection, ErrUnknownCollection)
	}
	if len(set) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET ", collection)

	args := make([]any, 0, len(set)+len(filters))
	for i, col := range sortedKeys(Filters(set)) {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = $%d", col, len(args)+1)
		args = append(args, set[col])
	}
	for i, col := range sortedKeys(filters) {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%s = $%d", col, len(args)+1)
		args = append(args, filters[col])
	}

	if _, err := g.pool.Exec(ctx, sb.String(), args...); err != nil {
		return remoteErr("update", collection, errors.Join(ErrConnectivity, err))
	}
	return nil
}

// Delete removes every row matching the filters. Refusing an empty filter
// set keeps a bug from truncating a collection.
func (g *Remote) Delete(ctx context.Context, collection string, filters Filters) error {
	if !collections[collection] {
		return remoteErr("delete", collection, ErrUnknownCollection)
	}
	if len(filters) == 0 {
		return remoteErr("delete", collection, errors.New("refusing unfiltered delete"))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", collection)
	args := make([]any, 0, len(filters))
	for i, col := range sortedKeys(filters) {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		fmt.Fprintf(&sb, "%s = $%d", col, len(args)+1)
		args = append(args, filters[col])
	}

	if _, err := g.pool.Exec(ctx, sb.String(), args...); err != nil {
		return remoteErr("delete", collection, errors.Join(ErrConnectivity, err))
	}
	return nil
}

// Authenticate delegates credential checking to the authenticate_user
// stored procedure. Passwords are never compared in process. Connectivity
// failure and credential rejection surface as distinct error kinds.
func (g *Remote) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	var (
		ok       bool
		identity Identity
	)
	err := g.pool.QueryRow(ctx,
		`SELECT authenticated, user_id::text, name, role, stream
		 FROM authenticate_user($1, $2)`, email, password,
	).Scan(&ok, &identity.UserID, &identity.Name, &identity.Role, &identity.Stream)
	if err != nil {
		return nil, remoteErr("authenticate", "", errors.Join(ErrConnectivity, err))
	}
	if !ok {
		return nil, remoteErr("authenticate", "", ErrAuthentication)
	}
	return &identity, nil
}

// CheckConnectivity probes the remote store with a short deadline. Used by
// login to short-circuit into an offline error before a real operation.
func (g *Remote) CheckConnectivity(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return g.pool.Ping(probeCtx) == nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
