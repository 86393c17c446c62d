package analysisService

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"FaceVision/internal/api/analysis"
	analysisRepository "FaceVision/internal/api/analysis/repository"
	"FaceVision/internal/entity"
	"FaceVision/internal/vision/analyzer"
	"FaceVision/pkg/log"
	"FaceVision/pkg/redis"
	"FaceVision/pkg/storage"
	"FaceVision/pkg/utils"
	"github.com/benbjohnson/clock"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	detections []entity.Detection
	err        error
	calls      atomic.Int32
}

func (f *fakeDetector) Name() string {
	return "fake"
}

func (f *fakeDetector) Detect(ctx context.Context, _ entity.Frame) ([]entity.Detection, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.detections, f.err
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dst interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, ok := f.entries[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return jsoniter.Unmarshal(raw, dst)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := jsoniter.Marshal(value)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, k := range keys {
		delete(f.entries, k)
	}
	return nil
}

func (f *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	if raw, ok := f.entries[key]; ok {
		if err := jsoniter.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	f.entries[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (f *fakeCache) Close() error {
	return nil
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.entries[key]
	return ok
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []interface{}
}

func (f *fakePublisher) Publish(topic string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.topics = append(f.topics, topic)
	f.events = append(f.events, payload)
	return nil
}

func (f *fakePublisher) Close() {}

type fixture struct {
	svc       AnalysisService
	repo      analysisRepository.Repository
	detector  *fakeDetector
	cache     *fakeCache
	publisher *fakePublisher
	dir       string
}

func newFixture(t *testing.T, detector *fakeDetector) fixture {
	t.Helper()
	return newFixtureWithRepo(t, detector, analysisRepository.NewMemory())
}

func newFixtureWithRepo(t *testing.T, detector *fakeDetector, repo analysisRepository.Repository) fixture {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewLocal(dir, "/uploads")
	require.NoError(t, err)

	f := fixture{
		repo:      repo,
		detector:  detector,
		cache:     newFakeCache(),
		publisher: &fakePublisher{},
		dir:       dir,
	}
	f.svc = New(log.NewDiscard(), f.repo, detector, store, f.cache, f.publisher, utils.New(), Config{
		HistoryTTL:      time.Minute,
		LiveFPS:         10,
		ProviderTimeout: time.Second,
	})

	var tick atomic.Int64
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc.Records().(*recordsDomainImpl).now = func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	}
	return f
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["image"][0]
}

var ann = entity.UserLoginData{ID: "user-ann", Email: "ann@example.com", Name: "Ann"}

func oneFace() []entity.Detection {
	return []entity.Detection{{
		Box:               entity.Box{X: 1, Y: 1, Width: 4, Height: 4},
		Expressions:       map[string]float64{"happy": 0.9, "sad": 0.1},
		Age:               entity.Float(30.4),
		Gender:            "female",
		GenderProbability: entity.Float(0.97),
	}}
}

func TestCreateStoresImageOverlayAndRecord(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: oneFace()})
	ctx := context.Background()

	require.NoError(t, f.cache.SetJSON(ctx, historyKey(ann.ID, 0), []entity.Analysis{}, time.Minute))

	record, err := f.svc.Records().Create(ctx, ann, analysis.CreateRequest{
		Type:    "face",
		Image:   fileHeader(t, "me.PNG", "image/png", pngBytes(t, 8, 8)),
		Results: `{"note":"from client","processed":false}`,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, ann.ID, record.UserID)
	assert.Equal(t, entity.AnalysisFace, record.Type)
	assert.Regexp(t, `^/uploads/\d+-[0-9A-Z]{26}\.png$`, record.ImageURL)

	assert.Equal(t, true, record.Results["processed"])
	assert.Equal(t, "from client", record.Results["note"])
	assert.Equal(t, "fake", record.Results["provider"])
	assert.Equal(t, float64(1), record.Results["faceCount"])
	assert.NotEmpty(t, record.Results["timestamp"])
	assert.Len(t, record.Results["detections"], 1)

	overlayURL, _ := record.Results["overlayUrl"].(string)
	assert.Regexp(t, `^/uploads/\d+-[0-9A-Z]{26}-overlay\.png$`, overlayURL)

	_, err = os.Stat(filepath.Join(f.dir, filepath.Base(record.ImageURL)))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.dir, filepath.Base(overlayURL)))
	assert.NoError(t, err)

	history, err := f.svc.Records().History(ctx, ann)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, record.ID, history[0].ID)

	require.Len(t, f.publisher.topics, 1)
	assert.Equal(t, analysis.CreatedTopic, f.publisher.topics[0])
	event := f.publisher.events[0].(analysis.CreatedEvent)
	assert.Equal(t, record.ID, event.ID)
	assert.Equal(t, 1, event.FaceCount)
}

func TestCreateWithInvalidCategoryWritesNothing(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	ctx := context.Background()

	for _, category := range []string{"", "Face", "faces", "animal"} {
		_, err := f.svc.Records().Create(ctx, ann, analysis.CreateRequest{
			Type:  category,
			Image: fileHeader(t, "me.png", "image/png", pngBytes(t, 8, 8)),
		})
		assert.ErrorIs(t, err, analysis.ErrInvalidAnalysisType, category)
	}

	assert.Zero(t, f.detector.calls.Load())
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	history, err := f.repo.History(ctx, ann.ID, analysis.HistoryLimit)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.publisher.topics)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  analysis.CreateRequest
		err  error
	}{
		{"no image", analysis.CreateRequest{Type: "face"}, analysis.ErrImageRequired},
		{"wrong extension", analysis.CreateRequest{Type: "face", Image: fileHeader(t, "me.gif", "image/png", pngBytes(t, 4, 4))}, analysis.ErrInvalidFileType},
		{"not an image", analysis.CreateRequest{Type: "face", Image: fileHeader(t, "me.png", "image/png", []byte("plain text"))}, analysis.ErrInvalidFileType},
		{"bad results", analysis.CreateRequest{Type: "group", Image: fileHeader(t, "me.png", "image/png", pngBytes(t, 4, 4)), Results: "[1,2]"}, analysis.ErrInvalidResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Records().Create(ctx, ann, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.Zero(t, f.detector.calls.Load())
}

func TestCreateProviderFailure(t *testing.T) {
	f := newFixture(t, &fakeDetector{err: errors.New("inference down")})
	ctx := context.Background()

	_, err := f.svc.Records().Create(ctx, ann, analysis.CreateRequest{
		Type:  "crowd",
		Image: fileHeader(t, "crowd.png", "image/png", pngBytes(t, 8, 8)),
	})
	assert.ErrorIs(t, err, analysis.ErrProviderFailure)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	history, err := f.repo.History(ctx, ann.ID, analysis.HistoryLimit)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSameImageTwiceGivesTwoRecords(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	ctx := context.Background()
	data := pngBytes(t, 8, 8)

	first, err := f.svc.Records().Create(ctx, ann, analysis.CreateRequest{Type: "face", Image: fileHeader(t, "a.png", "image/png", data)})
	require.NoError(t, err)
	second, err := f.svc.Records().Create(ctx, ann, analysis.CreateRequest{Type: "face", Image: fileHeader(t, "a.png", "image/png", data)})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.ImageURL, second.ImageURL)

	history, err := f.svc.Records().History(ctx, ann)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestConcurrentUploadsKeepTheirOwnFiles(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc.Records().(*recordsDomainImpl).now = func() time.Time { return frozen }
	ctx := context.Background()

	bob := entity.UserLoginData{ID: "user-bob", Email: "bob@example.com"}
	annPic, bobPic := pngBytes(t, 8, 8), pngBytes(t, 12, 6)

	reqs := []analysis.CreateRequest{
		{Type: "face", Image: fileHeader(t, "same.png", "image/png", annPic)},
		{Type: "face", Image: fileHeader(t, "same.png", "image/png", bobPic)},
	}
	users := []entity.UserLoginData{ann, bob}

	var wg sync.WaitGroup
	records := make([]entity.Analysis, 2)
	errs := make([]error, 2)
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = f.svc.Records().Create(ctx, users[i], reqs[i])
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, records[0].ImageURL, records[1].ImageURL)
	assert.NotEqual(t, records[0].Results["overlayUrl"], records[1].Results["overlayUrl"])

	for i, want := range [][]byte{annPic, bobPic} {
		got, err := os.ReadFile(filepath.Join(f.dir, filepath.Base(records[i].ImageURL)))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

type failingRepo struct {
	analysisRepository.Repository
}

func (failingRepo) Create(context.Context, entity.Analysis) (entity.Analysis, error) {
	return entity.Analysis{}, errors.New("insert failed")
}

func TestCreateRemovesUploadsWhenInsertFails(t *testing.T) {
	f := newFixtureWithRepo(t, &fakeDetector{detections: oneFace()}, failingRepo{analysisRepository.NewMemory()})
	ctx := context.Background()

	_, err := f.svc.Records().Create(ctx, ann, analysis.CreateRequest{
		Type:  "face",
		Image: fileHeader(t, "me.png", "image/png", pngBytes(t, 8, 8)),
	})
	assert.EqualError(t, err, "insert failed")

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, f.publisher.topics)
}

// interleavingRepo runs hook once, after reading history and before
// returning it.
type interleavingRepo struct {
	analysisRepository.Repository
	once sync.Once
	hook func()
}

func (r *interleavingRepo) History(ctx context.Context, userID string, limit int64) ([]entity.Analysis, error) {
	records, err := r.Repository.History(ctx, userID, limit)
	r.once.Do(r.hook)
	return records, err
}

func TestHistoryNotPoisonedByConcurrentCreate(t *testing.T) {
	repo := &interleavingRepo{Repository: analysisRepository.NewMemory()}
	f := newFixtureWithRepo(t, &fakeDetector{}, repo)
	ctx := context.Background()

	var created entity.Analysis
	repo.hook = func() {
		var err error
		created, err = f.svc.Records().Create(ctx, ann, analysis.CreateRequest{
			Type:  "face",
			Image: fileHeader(t, "me.png", "image/png", pngBytes(t, 8, 8)),
		})
		require.NoError(t, err)
	}

	stale, err := f.svc.Records().History(ctx, ann)
	require.NoError(t, err)
	assert.Empty(t, stale)

	fresh, err := f.svc.Records().History(ctx, ann)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, created.ID, fresh[0].ID)
}

func TestHistoryLimitOrderAndScope(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < analysis.HistoryLimit+5; i++ {
		_, err := f.repo.Create(ctx, entity.Analysis{UserID: ann.ID, Type: entity.AnalysisFace, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	bob, err := f.repo.Create(ctx, entity.Analysis{UserID: "user-bob", Type: entity.AnalysisGroup, CreatedAt: base.Add(1000 * time.Hour)})
	require.NoError(t, err)

	history, err := f.svc.Records().History(ctx, ann)
	require.NoError(t, err)
	require.Len(t, history, analysis.HistoryLimit)
	assert.True(t, history[0].CreatedAt.Equal(base.Add(time.Duration(analysis.HistoryLimit+4)*time.Hour)))
	for i, rec := range history {
		assert.Equal(t, ann.ID, rec.UserID)
		if i > 0 {
			assert.True(t, history[i-1].CreatedAt.After(rec.CreatedAt))
		}
	}
	assert.True(t, f.cache.has(historyKey(ann.ID, 0)))

	_, err = f.svc.Records().GetByID(ctx, ann, bob.ID)
	assert.ErrorIs(t, err, analysis.ErrAnalysisNotFound)
	_, err = f.svc.Records().GetByID(ctx, ann, "zzz")
	assert.ErrorIs(t, err, analysis.ErrAnalysisNotFound)
}

func TestHistoryServedFromCache(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	ctx := context.Background()

	cached := []entity.Analysis{{ID: "cached", UserID: ann.ID, Type: entity.AnalysisFace}}
	require.NoError(t, f.cache.SetJSON(ctx, historyKey(ann.ID, 0), cached, time.Minute))

	history, err := f.svc.Records().History(ctx, ann)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "cached", history[0].ID)
}

type recordingSink struct {
	mu     sync.Mutex
	frames []entity.Frame
}

func (r *recordingSink) Present(frame entity.Frame, _ []entity.Detection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestLiveSessionLifecycle(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: oneFace()})
	mock := clock.NewMock()
	f.svc.Live().(*liveDomainImpl).clock = mock
	ctx := context.Background()

	_, err := f.svc.Live().Open(ctx, ann, "selfie", &recordingSink{})
	assert.ErrorIs(t, err, analysis.ErrInvalidAnalysisType)
	assert.False(t, f.svc.Live().Active(ann.ID))

	sink := &recordingSink{}
	first, err := f.svc.Live().Open(ctx, ann, "face", sink)
	require.NoError(t, err)
	assert.True(t, f.svc.Live().Active(ann.ID))

	require.NoError(t, first.Push(pngBytes(t, 8, 8)))
	mock.Add(100 * time.Millisecond)
	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	select {
	case <-first.Evicted():
		t.Fatal("session evicted before being replaced")
	default:
	}

	second, err := f.svc.Live().Open(ctx, ann, "group", &recordingSink{})
	require.NoError(t, err)
	assert.True(t, first.Replaced())
	select {
	case <-first.Evicted():
	default:
		t.Fatal("replaced session was not evicted")
	}
	assert.ErrorIs(t, first.Push(pngBytes(t, 8, 8)), analysis.ErrSessionReplaced)

	require.NoError(t, first.Close())
	assert.True(t, f.svc.Live().Active(ann.ID))

	require.NoError(t, second.Close())
	require.NoError(t, second.Close())
	assert.False(t, f.svc.Live().Active(ann.ID))
}

func TestLabels(t *testing.T) {
	labels := Labels(oneFace())
	assert.Equal(t, []string{"happy (0.90)", "30 years female (97%)"}, labels)
	assert.Empty(t, Labels([]entity.Detection{{Box: entity.Box{Width: 1, Height: 1}}}))
}

var _ analyzer.Sink = (*recordingSink)(nil)
