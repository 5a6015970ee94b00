package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"wp-migrate/internal/contentful"
)

// FakeCMS is an in-memory Contentful environment with the management API's
// versioning rules: every write must present the current version and bumps
// it, and published entries cannot be deleted. Safe for concurrent use.
type FakeCMS struct {
	mu     sync.Mutex
	locale string
	clock  *StubClock
	seq    int

	entries      map[string]*fakeEntry
	order        []string // entry ids in creation order
	assets       map[string]*fakeAsset
	contentTypes map[string]*fakeContentType

	// Calls counts calls per method name, e.g. Calls["DeleteEntry"].
	Calls map[string]int

	unready  map[string]bool
	failures map[string][]error
}

type fakeEntry struct {
	contentType string
	sys         contentful.Sys
	fields      contentful.Fields
}

type fakeAsset struct {
	sys    contentful.Sys
	upload contentful.AssetUpload
	ready  bool
}

type fakeContentType struct {
	version   int
	published int
	def       contentful.ContentType
}

// NewFakeCMS creates an empty environment writing under locale "en-US".
func NewFakeCMS() *FakeCMS {
	return &FakeCMS{
		locale:       "en-US",
		clock:        TickingClock(time.Second),
		entries:      make(map[string]*fakeEntry),
		assets:       make(map[string]*fakeAsset),
		contentTypes: make(map[string]*fakeContentType),
		Calls:        make(map[string]int),
		unready:      make(map[string]bool),
		failures:     make(map[string][]error),
	}
}

// FailNext makes the next n calls of method return err without any effect.
func (f *FakeCMS) FailNext(method string, n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.failures[method] = append(f.failures[method], err)
	}
}

// NeverReady keeps the asset's file unprocessed however often it is polled.
func (f *FakeCMS) NeverReady(assetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unready[assetID] = true
}

// SeedEntry stores e as an existing entry of contentType. Zero versions
// default to 1.
func (f *FakeCMS) SeedEntry(contentType string, e contentful.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Sys.Version == 0 {
		e.Sys.Version = 1
	}
	e.Sys.Type = "Entry"
	f.entries[e.Sys.ID] = &fakeEntry{contentType: contentType, sys: e.Sys, fields: e.Fields}
	f.order = append(f.order, e.Sys.ID)
}

// Entries returns the entries of contentType in creation order.
func (f *FakeCMS) Entries(contentType string) []contentful.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(contentType)
}

// Asset returns the stored asset and whether it exists.
func (f *FakeCMS) Asset(id string) (contentful.AssetUpload, contentful.Sys, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[id]
	if !ok {
		return contentful.AssetUpload{}, contentful.Sys{}, false
	}
	return a.upload, a.sys, true
}

// AssetCount is the number of assets stored.
func (f *FakeCMS) AssetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assets)
}

// ContentType returns a stored content type, its version and the version
// it was last published at.
func (f *FakeCMS) ContentType(id string) (contentful.ContentType, int, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.contentTypes[id]
	if !ok {
		return contentful.ContentType{}, 0, 0, false
	}
	return ct.def, ct.version, ct.published, true
}

// CallCount returns how often method was called.
func (f *FakeCMS) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *FakeCMS) Locale() string { return f.locale }

// begin records a call and pops an injected failure for it. Callers hold mu.
func (f *FakeCMS) begin(method string) error {
	f.Calls[method]++
	if errs := f.failures[method]; len(errs) > 0 {
		f.failures[method] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *FakeCMS) now() string {
	return f.clock.Tick().Format(time.RFC3339)
}

func conflict(method, id string, version int) error {
	return &contentful.VersionConflictError{Method: method, Path: id, ID: id, Version: version}
}

func notFound(method, path string) error {
	return &contentful.RequestFailedError{Method: method, Path: path, StatusCode: http.StatusNotFound}
}

func (f *FakeCMS) GetVersion(_ context.Context, res contentful.Resource, id string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("GetVersion"); err != nil {
		return 0, false, err
	}
	switch res {
	case contentful.ResourceEntry:
		if e, ok := f.entries[id]; ok {
			return e.sys.Version, true, nil
		}
	case contentful.ResourceAsset:
		if a, ok := f.assets[id]; ok {
			return a.sys.Version, true, nil
		}
	case contentful.ResourceContentType:
		if ct, ok := f.contentTypes[id]; ok {
			return ct.version, true, nil
		}
	}
	return 0, false, nil
}

// Entries

func (f *FakeCMS) FindEntryByField(_ context.Context, contentType, field, value string) (*contentful.Ref, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("FindEntryByField"); err != nil {
		return nil, err
	}
	for _, id := range f.order {
		e := f.entries[id]
		if e.contentType != contentType {
			continue
		}
		if v, ok := e.fields[field][f.locale]; ok && fmt.Sprint(v) == value {
			return &contentful.Ref{ID: id, Version: e.sys.Version}, nil
		}
	}
	return nil, nil
}

func (f *FakeCMS) CreateEntry(_ context.Context, contentType string, fields contentful.Fields) (contentful.Ref, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateEntry"); err != nil {
		return contentful.Ref{}, err
	}
	f.seq++
	id := fmt.Sprintf("entry-%d", f.seq)
	ts := f.now()
	f.entries[id] = &fakeEntry{
		contentType: contentType,
		sys:         contentful.Sys{ID: id, Type: "Entry", Version: 1, CreatedAt: ts, UpdatedAt: ts},
		fields:      fields,
	}
	f.order = append(f.order, id)
	return contentful.Ref{ID: id, Version: 1}, nil
}

func (f *FakeCMS) UpdateEntry(_ context.Context, id string, version int, fields contentful.Fields) (contentful.Ref, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpdateEntry"); err != nil {
		return contentful.Ref{}, err
	}
	e, ok := f.entries[id]
	if !ok {
		return contentful.Ref{}, notFound(http.MethodPut, id)
	}
	if version != e.sys.Version {
		return contentful.Ref{}, conflict(http.MethodPut, id, version)
	}
	e.fields = fields
	e.sys.Version++
	e.sys.UpdatedAt = f.now()
	return contentful.Ref{ID: id, Version: e.sys.Version}, nil
}

func (f *FakeCMS) PublishEntry(_ context.Context, id string, version int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PublishEntry"); err != nil {
		return 0, err
	}
	e, ok := f.entries[id]
	if !ok {
		return 0, notFound(http.MethodPut, id)
	}
	if version != e.sys.Version {
		return 0, conflict(http.MethodPut, id, version)
	}
	published := version
	e.sys.PublishedVersion = &published
	e.sys.Version++
	return e.sys.Version, nil
}

func (f *FakeCMS) UnpublishEntry(_ context.Context, id string, version int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UnpublishEntry"); err != nil {
		return 0, err
	}
	e, ok := f.entries[id]
	if !ok {
		return 0, notFound(http.MethodPut, id)
	}
	if version != e.sys.Version {
		return 0, conflict(http.MethodPut, id, version)
	}
	e.sys.PublishedVersion = nil
	e.sys.Version++
	return e.sys.Version, nil
}

func (f *FakeCMS) DeleteEntry(_ context.Context, id string, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeleteEntry"); err != nil {
		return err
	}
	e, ok := f.entries[id]
	if !ok {
		return notFound(http.MethodDelete, id)
	}
	if version != e.sys.Version {
		return conflict(http.MethodDelete, id, version)
	}
	if e.sys.PublishedVersion != nil {
		return &contentful.RequestFailedError{Method: http.MethodDelete, Path: id, StatusCode: http.StatusBadRequest, Body: "entry is published"}
	}
	delete(f.entries, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeCMS) ListEntries(_ context.Context, contentType string) ([]contentful.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListEntries"); err != nil {
		return nil, err
	}
	return f.listLocked(contentType), nil
}

func (f *FakeCMS) listLocked(contentType string) []contentful.Entry {
	var out []contentful.Entry
	for _, id := range f.order {
		e := f.entries[id]
		if e.contentType != contentType {
			continue
		}
		sys := e.sys
		if e.sys.PublishedVersion != nil {
			v := *e.sys.PublishedVersion
			sys.PublishedVersion = &v
		}
		out = append(out, contentful.Entry{Sys: sys, Fields: e.fields})
	}
	return out
}

// Assets

func (f *FakeCMS) UpsertAsset(_ context.Context, up contentful.AssetUpload) (contentful.Ref, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("UpsertAsset"); err != nil {
		return contentful.Ref{}, err
	}
	a, ok := f.assets[up.ID]
	if !ok {
		a = &fakeAsset{sys: contentful.Sys{ID: up.ID, Type: "Asset"}}
		f.assets[up.ID] = a
	}
	a.upload = up
	a.ready = false
	a.sys.Version++
	return contentful.Ref{ID: up.ID, Version: a.sys.Version}, nil
}

// ProcessAsset returns the version after the processing request. Finishing
// processing bumps the version once more, as Contentful does asynchronously.
func (f *FakeCMS) ProcessAsset(_ context.Context, id string, version int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ProcessAsset"); err != nil {
		return 0, err
	}
	a, ok := f.assets[id]
	if !ok {
		return 0, notFound(http.MethodPut, id)
	}
	if version != a.sys.Version {
		return 0, conflict(http.MethodPut, id, version)
	}
	a.sys.Version++
	processed := a.sys.Version
	if !f.unready[id] {
		a.ready = true
		a.sys.Version++
	}
	return processed, nil
}

func (f *FakeCMS) WaitForAssetReady(_ context.Context, id string, _ int, _ time.Duration) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("WaitForAssetReady"); err != nil {
		return 0, false, err
	}
	a, ok := f.assets[id]
	if !ok {
		return 0, false, notFound(http.MethodGet, id)
	}
	return a.sys.Version, a.ready, nil
}

func (f *FakeCMS) PublishAsset(_ context.Context, id string, version int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PublishAsset"); err != nil {
		return 0, err
	}
	a, ok := f.assets[id]
	if !ok {
		return 0, notFound(http.MethodPut, id)
	}
	if version != a.sys.Version {
		return 0, conflict(http.MethodPut, id, version)
	}
	published := version
	a.sys.PublishedVersion = &published
	a.sys.Version++
	return a.sys.Version, nil
}

// Content types

func (f *FakeCMS) PutContentType(_ context.Context, id string, def contentful.ContentType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PutContentType"); err != nil {
		return 0, err
	}
	ct, ok := f.contentTypes[id]
	if !ok {
		ct = &fakeContentType{}
		f.contentTypes[id] = ct
	}
	ct.def = def
	ct.version++
	return ct.version, nil
}

func (f *FakeCMS) PublishContentType(_ context.Context, id string, version int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PublishContentType"); err != nil {
		return 0, err
	}
	ct, ok := f.contentTypes[id]
	if !ok {
		return 0, notFound(http.MethodPut, id)
	}
	if version != ct.version {
		return 0, conflict(http.MethodPut, id, version)
	}
	ct.published = version
	ct.version++
	return ct.version, nil
}

// ContentTypeIDs returns the ids of all stored content types, sorted.
func (f *FakeCMS) ContentTypeIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.contentTypes))
	for id := range f.contentTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
