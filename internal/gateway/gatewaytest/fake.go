// Package gatewaytest provides an in-memory Gateway fake shared by the
// catalog, session and result tests.
package gatewaytest

import (
	"context"
	"sync"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
)

// Fake is an in-memory gateway.Gateway. Collections hold records keyed by
// insertion order; FailQuery/FailUpsert simulate an unreachable store.
type Fake struct {
	mu          sync.Mutex
	Collections map[string][]gateway.Record

	FailQuery  bool
	FailUpsert bool
	FailUpdate bool

	// UpsertCalls counts Upsert invocations, including failed ones.
	UpsertCalls int
	// Updates records every Update call for assertions.
	Updates []UpdateCall

	Identity *gateway.Identity
	AuthErr  error
	Offline  bool
}

// UpdateCall captures one Update invocation.
type UpdateCall struct {
	Collection string
	Set        gateway.Record
	Filters    gateway.Filters
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{Collections: make(map[string][]gateway.Record)}
}

// Seed replaces a collection's contents.
func (f *Fake) Seed(collection string, records ...gateway.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Collections[collection] = records
}

func (f *Fake) Query(_ context.Context, collection string, filters gateway.Filters) ([]gateway.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailQuery {
		// Mirrors the production contract: degraded reads return the
		// (empty) cached copy rather than an error.
		return []gateway.Record{}, nil
	}
	var out []gateway.Record
	for _, rec := range f.Collections[collection] {
		if Matches(rec, filters) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *Fake) Upsert(_ context.Context, collection string, records []gateway.Record, conflictKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpsertCalls++
	if f.FailUpsert {
		return gateway.ErrConnectivity
	}
	for _, rec := range records {
		replaced := false
		for i, existing := range f.Collections[collection] {
			if existing[conflictKey] != nil && toStr(existing[conflictKey]) == toStr(rec[conflictKey]) {
				f.Collections[collection][i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			f.Collections[collection] = append(f.Collections[collection], rec)
		}
	}
	return nil
}

func (f *Fake) Update(_ context.Context, collection string, set gateway.Record, filters gateway.Filters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailUpdate {
		return gateway.ErrConnectivity
	}
	f.Updates = append(f.Updates, UpdateCall{Collection: collection, Set: set, Filters: filters})
	for i, rec := range f.Collections[collection] {
		if Matches(rec, filters) {
			for k, v := range set {
				rec[k] = v
			}
			f.Collections[collection][i] = rec
		}
	}
	return nil
}

func (f *Fake) Delete(_ context.Context, collection string, filters gateway.Filters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.Collections[collection][:0]
	for _, rec := range f.Collections[collection] {
		if !Matches(rec, filters) {
			kept = append(kept, rec)
		}
	}
	f.Collections[collection] = kept
	return nil
}

func (f *Fake) Authenticate(context.Context, string, string) (*gateway.Identity, error) {
	if f.AuthErr != nil {
		return nil, f.AuthErr
	}
	return f.Identity, nil
}

func (f *Fake) CheckConnectivity(context.Context) bool { return !f.Offline }

// Matches reports whether rec satisfies every equality filter, comparing
// on normalized string form like the production gateway.
func Matches(rec gateway.Record, filters gateway.Filters) bool {
	for k, want := range filters {
		if toStr(want) != rec.String(k) {
			return false
		}
	}
	return true
}

func toStr(v any) string {
	return gateway.Record{"v": v}.String("v")
}
