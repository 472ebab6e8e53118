package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/media"
	"github.com/duetapp/duet-server/internal/domain/moment"
	syncdomain "github.com/duetapp/duet-server/internal/domain/sync"
	"github.com/duetapp/duet-server/internal/domain/upload"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver/handlers"
	v1 "github.com/duetapp/duet-server/internal/interfaces/httpserver/routes/v1"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

type fakeAssetRepo struct {
	mu        sync.Mutex
	created   []*media.Asset
	favorites []string
}

func (f *fakeAssetRepo) FindByHashInCouple(ctx context.Context, coupleID, hash string) (*media.Asset, error) {
	return nil, nil
}
func (f *fakeAssetRepo) Create(ctx context.Context, asset *media.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, asset)
	return nil
}
func (f *fakeAssetRepo) GetByID(ctx context.Context, coupleID, id string) (*media.Asset, error) {
	return nil, nil
}
func (f *fakeAssetRepo) ListByMomentID(ctx context.Context, coupleID, momentID string) ([]*media.Asset, error) {
	return nil, nil
}
func (f *fakeAssetRepo) DeleteByMomentID(ctx context.Context, coupleID, momentID string) error {
	return nil
}
func (f *fakeAssetRepo) SetFavorite(ctx context.Context, coupleID, id string, favorite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites = append(f.favorites, id)
	return nil
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (f *fakeBlobStore) Put(ctx context.Context, path string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[path] = append([]byte(nil), data...)
	return nil
}
func (f *fakeBlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", path)
	}
	return data, nil
}
func (f *fakeBlobStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, path)
	return nil
}
func (f *fakeBlobStore) Health(ctx context.Context) error { return nil }

type fakeMomentRepo struct {
	mu      sync.Mutex
	moments map[string]*moment.Moment
}

func (f *fakeMomentRepo) Create(ctx context.Context, m *moment.Moment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.moments[m.ID] = &cp
	return nil
}
func (f *fakeMomentRepo) GetByID(ctx context.Context, coupleID, id string) (*moment.Moment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.moments[id]
	if !ok || m.CoupleID != coupleID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "moment not found", nil, "")
	}
	cp := *m
	return &cp, nil
}
func (f *fakeMomentRepo) Submit(ctx context.Context, coupleID, momentID string, decide moment.DecideFunc) (*moment.Moment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.moments[momentID]
	if !ok || m.CoupleID != coupleID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "moment not found", nil, "")
	}
	cp := *m
	decision, err := decide(&cp)
	if err != nil {
		return nil, err
	}
	f.moments[momentID] = decision.Moment
	out := *decision.Moment
	return &out, nil
}
func (f *fakeMomentRepo) Delete(ctx context.Context, coupleID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.moments, id)
	return nil
}
func (f *fakeMomentRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*upload.Session
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *upload.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}
func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*upload.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "upload session not found", nil, "")
	}
	cp := *s
	return &cp, nil
}
func (f *fakeSessionRepo) UpdateReceived(ctx context.Context, id string, received int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.Received = received
	}
	return nil
}
func (f *fakeSessionRepo) MarkFinalizing(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != upload.StatusReceiving {
		return false, nil
	}
	s.Status = upload.StatusFinalizing
	return true, nil
}
func (f *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}
func (f *fakeSessionRepo) ListIdleBefore(ctx context.Context, cutoff time.Time) ([]*upload.Session, error) {
	return nil, nil
}

func testJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func setupRouter(t *testing.T) (*gin.Engine, *fakeAssetRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		MaxMediaBytes:         20 * 1024 * 1024,
		ThumbnailMaxPx:        64,
		MomentTTL:             time.Hour,
		CompositeRetries:      2,
		CompositeRetryBackoff: time.Millisecond,
		UploadStagingPath:     t.TempDir(),
	}
	log := zerolog.Nop()

	assets := &fakeAssetRepo{}
	blobs := &fakeBlobStore{blobs: map[string][]byte{}}
	momentRepo := &fakeMomentRepo{moments: map[string]*moment.Moment{}}
	sessionRepo := &fakeSessionRepo{sessions: map[string]*upload.Session{}}

	pipeline := media.NewService(cfg, assets, blobs, log)
	coordinator := moment.NewCoordinator(cfg, momentRepo, assets, blobs, log)
	uploads := upload.NewService(cfg, sessionRepo, pipeline, coordinator, log)
	syncer := syncdomain.NewService(assets, coordinator, log)

	engine := gin.New()
	v1.NewRoutes(handlers.NewProvider(cfg, pipeline, uploads, coordinator, syncer, log)).Register(engine.Group("/"))
	return engine, assets
}

func doRequest(engine *gin.Engine, req *http.Request, withIdentity bool) *httptest.ResponseRecorder {
	if withIdentity {
		req.Header.Set("X-User-ID", "alice")
		req.Header.Set("X-Couple-ID", "couple-1")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestIngestRequiresIdentity(t *testing.T) {
	engine, _ := setupRouter(t)

	body, contentType := multipartBody(t, map[string][]byte{"a.jpg": testJPEG(t, 10, 10, color.White)}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/media", body)
	req.Header.Set("Content-Type", contentType)

	w := doRequest(engine, req, false)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestIngestReportsPerFileOutcomes(t *testing.T) {
	engine, assets := setupRouter(t)

	body, contentType := multipartBody(t, map[string][]byte{
		"good.jpg": testJPEG(t, 40, 30, color.RGBA{9, 9, 9, 255}),
		"bad.txt":  []byte("not an image"),
	}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/media", body)
	req.Header.Set("Content-Type", contentType)

	w := doRequest(engine, req, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Results []struct {
			Filename string `json:"filename"`
			Outcome  string `json:"outcome"`
			Error    string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	outcomes := map[string]string{}
	for _, r := range resp.Results {
		outcomes[r.Filename] = r.Outcome
	}
	if outcomes["good.jpg"] != "stored" {
		t.Errorf("good.jpg outcome = %q, want stored", outcomes["good.jpg"])
	}
	if outcomes["bad.txt"] != "error" {
		t.Errorf("bad.txt outcome = %q, want error", outcomes["bad.txt"])
	}
	if len(assets.created) != 1 {
		t.Errorf("stored assets = %d, want 1", len(assets.created))
	}
}

func TestMomentLifecycleOverHTTP(t *testing.T) {
	engine, _ := setupRouter(t)

	// Create.
	w := doRequest(engine, httptest.NewRequest(http.MethodPost, "/v1/moments", nil), true)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created struct {
		Moment struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"moment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Moment.Status != "pending" {
		t.Errorf("status = %q, want pending", created.Moment.Status)
	}

	// Submit the initiator's photo as the raw body.
	photo := testJPEG(t, 60, 80, color.RGBA{200, 0, 0, 255})
	req := httptest.NewRequest(http.MethodPost, "/v1/moments/"+created.Moment.ID+"/photo", bytes.NewReader(photo))
	w = doRequest(engine, req, true)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body.String())
	}
	var submitted struct {
		Role   string `json:"role"`
		Moment struct {
			Status string `json:"status"`
		} `json:"moment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitted.Role != "first" {
		t.Errorf("role = %q, want first", submitted.Role)
	}
	if submitted.Moment.Status != "partner1_captured" {
		t.Errorf("status = %q, want partner1_captured", submitted.Moment.Status)
	}

	// Read it back.
	w = doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/moments/"+created.Moment.ID, nil), true)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	// Delete.
	w = doRequest(engine, httptest.NewRequest(http.MethodDelete, "/v1/moments/"+created.Moment.ID, nil), true)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/moments/"+created.Moment.ID, nil), true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}
}

func uploadMetadataHeader(pairs map[string]string) string {
	var out string
	for k, v := range pairs {
		if out != "" {
			out += ","
		}
		out += k + " " + base64.StdEncoding.EncodeToString([]byte(v))
	}
	return out
}

func TestResumableUploadOverHTTP(t *testing.T) {
	engine, assets := setupRouter(t)

	data := testJPEG(t, 100, 80, color.RGBA{0, 120, 0, 255})
	half := len(data) / 2

	// Create the session.
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", nil)
	req.Header.Set("Upload-Length", strconv.Itoa(len(data)))
	req.Header.Set("Upload-Metadata", uploadMetadataHeader(map[string]string{
		"filename": "IMG_0001.jpg",
		"filetype": "image/jpeg",
		"coupleId": "couple-1",
		"clientId": "client-a",
	}))
	w := doRequest(engine, req, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	location := w.Header().Get("Location")
	if location == "" {
		t.Fatal("expected Location header")
	}

	// First chunk.
	req = httptest.NewRequest(http.MethodPatch, location, bytes.NewReader(data[:half]))
	req.Header.Set("Upload-Offset", "0")
	w = doRequest(engine, req, true)
	if w.Code != http.StatusNoContent {
		t.Fatalf("first chunk status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Upload-Offset"); got != strconv.Itoa(half) {
		t.Errorf("Upload-Offset = %q, want %d", got, half)
	}

	// Resume: ask for the offset.
	w = doRequest(engine, httptest.NewRequest(http.MethodHead, location, nil), true)
	if w.Code != http.StatusOK {
		t.Fatalf("head status = %d", w.Code)
	}
	if got := w.Header().Get("Upload-Offset"); got != strconv.Itoa(half) {
		t.Errorf("head Upload-Offset = %q, want %d", got, half)
	}

	// Final chunk completes and reports the pipeline outcome.
	req = httptest.NewRequest(http.MethodPatch, location, bytes.NewReader(data[half:]))
	req.Header.Set("Upload-Offset", strconv.Itoa(half))
	w = doRequest(engine, req, true)
	if w.Code != http.StatusOK {
		t.Fatalf("final chunk status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Completed bool `json:"completed"`
		Result    *struct {
			Outcome string `json:"outcome"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Completed || resp.Result == nil || resp.Result.Outcome != "stored" {
		t.Fatalf("unexpected completion response: %s", w.Body.String())
	}
	if len(assets.created) != 1 {
		t.Errorf("stored assets = %d, want 1", len(assets.created))
	}
}

func TestUploadCreateRejectsBadMetadata(t *testing.T) {
	engine, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", nil)
	req.Header.Set("Upload-Length", "100")
	req.Header.Set("Upload-Metadata", "filename !!!bad!!!")
	w := doRequest(engine, req, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSyncAppliesBatch(t *testing.T) {
	engine, assets := setupRouter(t)

	body := `{"actions":[
		{"id":1,"payload":{"type":"favorite","asset_id":"ast_1","favorite":true}},
		{"id":2,"payload":{"type":"favorite","asset_id":"ast_2","favorite":true}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sync", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := doRequest(engine, req, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Applied int `json:"applied"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Applied != 2 {
		t.Errorf("applied = %d, want 2", resp.Applied)
	}
	if len(assets.favorites) != 2 {
		t.Errorf("favorites = %v, want 2 entries", assets.favorites)
	}
}
