package service

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/config"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/identity"
	"github.com/pribylovaa/bondia/internal/storage"
)

const testBaseURL = "https://cdn.test/bondia"

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte("\xff\xd8\xff\xe0")
)

// pngImage — валидный по сигнатуре PNG с меткой в хвосте (метка управляет фейком).
func pngImage(tag string) models.Image {
	return models.Image{Data: append(append([]byte{}, pngMagic...), []byte("|"+tag)...), ContentType: "image/png"}
}

func jpegImage(tag string) models.Image {
	return models.Image{Data: append(append([]byte{}, jpegMagic...), []byte("|"+tag)...), ContentType: "image/jpeg"}
}

func tagOf(data []byte) string {
	_, tag, _ := bytes.Cut(data, []byte("|"))
	return string(tag)
}

func testCfg() *config.Config {
	return &config.Config{
		Env: "test",
		Images: config.ImagesConfig{
			MaxSizeBytes:        1 << 20,
			AllowedContentTypes: []string{"image/jpeg", "image/png", "image/webp"},
			MaxGallery:          6,
		},
		Auth: config.AuthConfig{
			JWTSecret:       "unit-secret",
			AccessTokenTTL:  30 * time.Second,
			RefreshTokenTTL: 24 * time.Hour,
			Issuer:          "bondia-service",
			Audience:        []string{"bondia-app"},
		},
		Upload: config.UploadConfig{Concurrency: 4},
		Limits: config.LimitsConfig{Default: 20, Max: 100},
	}
}

type testEnv struct {
	svc      *Service
	docs     *fakeDocs
	objects  *fakeObjects
	events   *fakeEvents
	groups   *fakeGroups
	messages *fakeMessages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		docs:     newFakeDocs(),
		objects:  newFakeObjects(),
		events:   &fakeEvents{byID: map[string]*models.Event{}},
		groups:   &fakeGroups{byID: map[string]*models.Group{}},
		messages: &fakeMessages{},
	}

	env.svc = New(testCfg(), Deps{
		Documents: env.docs,
		Objects:   env.objects,
		Events:    env.events,
		Groups:    env.groups,
		Messages:  env.messages,
	})

	return env
}

func userCtx(uid uuid.UUID) context.Context {
	return identity.Into(context.Background(), uid)
}

// ---------- documents ----------

type docWrite struct {
	Collection string
	ID         string
	Fields     storage.Fields
}

type fakeDocs struct {
	mu     sync.Mutex
	docs   map[string]storage.Fields
	writes []docWrite

	mergeErr error
	getErr   error
	// onMerge вызывается до применения записи (снимок состояния в момент записи).
	onMerge func()
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[string]storage.Fields{}}
}

func (f *fakeDocs) key(collection, id string) string { return collection + "/" + id }

func (f *fakeDocs) SetDocument(_ context.Context, collection, id string, fields storage.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.docs[f.key(collection, id)] = maps.Clone(fields)

	return nil
}

func (f *fakeDocs) UpdateFields(_ context.Context, collection, id string, fields storage.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.docs[f.key(collection, id)]
	if !ok {
		return storage.ErrNotFound
	}

	maps.Copy(doc, fields)

	return nil
}

func (f *fakeDocs) MergeDocument(_ context.Context, collection, id string, fields storage.Fields) error {
	if f.onMerge != nil {
		f.onMerge()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes = append(f.writes, docWrite{Collection: collection, ID: id, Fields: maps.Clone(fields)})
	if f.mergeErr != nil {
		return f.mergeErr
	}

	doc, ok := f.docs[f.key(collection, id)]
	if !ok {
		doc = storage.Fields{}
		f.docs[f.key(collection, id)] = doc
	}

	maps.Copy(doc, fields)

	return nil
}

func (f *fakeDocs) GetDocument(_ context.Context, collection, id string) (storage.Fields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}

	doc, ok := f.docs[f.key(collection, id)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return maps.Clone(doc), nil
}

func (f *fakeDocs) Writes() []docWrite {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]docWrite{}, f.writes...)
}

// ---------- objects ----------

// fakeObjects — объектное хранилище в памяти.
// Изображение с меткой "fail" падает; с меткой "slow" ждёт gate (или отмены ctx);
// delays задаёт задержку по метке.
type fakeObjects struct {
	mu          sync.Mutex
	objects     map[string]storage.Object
	calls       int
	inFlight    int
	maxInFlight int
	settled     int

	gate   chan struct{}
	delays map[string]time.Duration
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		objects: map[string]storage.Object{},
		gate:    make(chan struct{}),
		delays:  map[string]time.Duration{},
	}
}

func (f *fakeObjects) Upload(ctx context.Context, obj storage.Object) (string, error) {
	tag := tagOf(obj.Data)

	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delays[tag]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.settled++
		f.mu.Unlock()
	}()

	if strings.Contains(tag, "slow") {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if strings.Contains(tag, "fail") {
		return "", fmt.Errorf("upload %s: boom", obj.Key)
	}

	url := testBaseURL + "/" + obj.Key

	f.mu.Lock()
	f.objects[url] = obj
	f.mu.Unlock()

	return url, nil
}

func (f *fakeObjects) Download(ctx context.Context, url string) (*storage.Object, error) {
	f.mu.Lock()
	obj, ok := f.objects[url]
	delay := f.delays[url]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !ok {
		return nil, storage.ErrNotFound
	}

	return &obj, nil
}

func (f *fakeObjects) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, testBaseURL+"/")
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}

	return key, ok && key != ""
}

func (f *fakeObjects) put(url string, data []byte, ct string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.objects[url] = storage.Object{Data: data, ContentType: ct}
}

func (f *fakeObjects) release() { close(f.gate) }

func (f *fakeObjects) stats() (calls, inFlight, settled int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls, f.inFlight, f.settled
}

// ---------- events / groups / messages ----------

type fakeEvents struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]*models.Event
	createErr error
	listErr   error
	lastQuery models.EventFilter
}

func (f *fakeEvents) CreateEvent(_ context.Context, e models.Event) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}

	f.seq++
	e.ID = "ev" + strconv.Itoa(f.seq)
	e.CreatedAt = time.Now().UTC()
	f.byID[e.ID] = &e

	out := e
	return &out, nil
}

func (f *fakeEvents) SetEventGroup(_ context.Context, eventID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.byID[eventID]
	if !ok {
		return storage.ErrNotFound
	}

	e.GroupID = groupID

	return nil
}

func (f *fakeEvents) EventByID(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := *e
	return &out, nil
}

func (f *fakeEvents) ListEvents(_ context.Context, filter models.EventFilter, _ models.ListParams) (*models.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastQuery = filter
	if f.listErr != nil {
		return nil, f.listErr
	}

	page := &models.EventPage{}
	for _, e := range f.byID {
		page.Items = append(page.Items, *e)
	}

	return page, nil
}

type fakeGroups struct {
	mu        sync.Mutex
	seq       int
	byID      map[string]*models.Group
	createErr error
	lastErr   error
}

func (f *fakeGroups) CreateGroup(_ context.Context, g models.Group) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}

	f.seq++
	g.ID = "g" + strconv.Itoa(f.seq)
	g.CreatedAt = time.Now().UTC()
	if !g.IsMember(g.OwnerID) {
		g.Members = append(g.Members, g.OwnerID)
	}
	f.byID[g.ID] = &g

	out := g
	return &out, nil
}

func (f *fakeGroups) GroupByID(_ context.Context, id string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := *g
	out.Members = append([]uuid.UUID{}, g.Members...)
	out.Pending = append([]uuid.UUID{}, g.Pending...)

	return &out, nil
}

func (f *fakeGroups) AddPending(_ context.Context, groupID string, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.byID[groupID]
	if !ok {
		return storage.ErrNotFound
	}

	if g.IsMember(userID) || g.IsPending(userID) {
		return nil
	}

	g.Pending = append(g.Pending, userID)

	return nil
}

func (f *fakeGroups) AcceptPending(_ context.Context, groupID string, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.byID[groupID]
	if !ok || !g.IsPending(userID) {
		return storage.ErrNotFound
	}

	pending := g.Pending[:0]
	for _, id := range g.Pending {
		if id != userID {
			pending = append(pending, id)
		}
	}

	g.Pending = pending
	g.Members = append(g.Members, userID)

	return nil
}

func (f *fakeGroups) GroupsByMember(_ context.Context, userID uuid.UUID) ([]models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Group
	for _, g := range f.byID {
		if g.IsMember(userID) {
			out = append(out, *g)
		}
	}

	return out, nil
}

func (f *fakeGroups) SetLastMessage(_ context.Context, groupID, text string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lastErr != nil {
		return f.lastErr
	}

	g, ok := f.byID[groupID]
	if !ok {
		return storage.ErrNotFound
	}

	g.LastMessage = text
	g.LastMessageAt = at

	return nil
}

type fakeMessages struct {
	mu    sync.Mutex
	seq   int
	items []models.Message
}

func (f *fakeMessages) CreateMessage(_ context.Context, m models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	m.ID = "m" + strconv.Itoa(f.seq)
	m.CreatedAt = time.Now().UTC()
	f.items = append(f.items, m)

	out := m
	return &out, nil
}

func (f *fakeMessages) ListMessages(_ context.Context, groupID string, p models.ListParams) (*models.MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.PageToken == "bad" {
		return nil, storage.ErrInvalidCursor
	}

	page := &models.MessagePage{}
	for _, m := range f.items {
		if m.GroupID == groupID {
			page.Items = append(page.Items, m)
		}
	}

	return page, nil
}
