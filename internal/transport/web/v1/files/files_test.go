package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/my-files/internal/domain"
	"github.com/EgorLis/my-files/internal/infra/storage/localfs"
)

// ---- фейки леджера и кеша ----

type fakeRepo struct {
	mu         sync.Mutex
	recs       map[string]domain.FileRecord
	failCreate bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{recs: make(map[string]domain.FileRecord)}
}

func (r *fakeRepo) Close()                     {}
func (r *fakeRepo) Ping(context.Context) error { return nil }

func (r *fakeRepo) CreateFiles(_ context.Context, recs []domain.FileRecord) ([]domain.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, fmt.Errorf("connection refused")
	}
	out := make([]domain.FileRecord, 0, len(recs))
	for _, rec := range recs {
		rec.CreatedAt = time.Now().UTC()
		r.recs[rec.ID] = rec
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeRepo) FileByID(_ context.Context, id string) (domain.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok {
		return domain.FileRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *fakeRepo) DeleteFile(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.recs, id)
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

type fakeCache struct {
	mu   sync.Mutex
	vals map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{vals: make(map[string][]byte)} }

func (c *fakeCache) Ping(context.Context) error { return nil }
func (c *fakeCache) Close()                     {}
func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vals[key], nil
}
func (c *fakeCache) Set(_ context.Context, key string, val []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[key] = val
	return nil
}
func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.vals, k)
	}
	return nil
}

// ---- окружение теста ----

type testEnv struct {
	handler *Handler
	mux     *http.ServeMux
	repo    *fakeRepo
	cache   *fakeCache
	dir     string
}

func newTestEnv(t *testing.T, maxFile int64) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := localfs.New(dir, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	repo := newFakeRepo()
	cache := newFakeCache()
	h := &Handler{
		Log:            log.New(io.Discard, "", 0),
		Repo:           repo,
		Storage:        store,
		Cache:          cache,
		MaxFileSize:    maxFile,
		MaxRequestSize: 4*maxFile + 8192, // запас на multipart-оверхед
		MetaTTL:        60,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", h.Upload)
	mux.HandleFunc("GET /files/{id}", h.Get)
	mux.HandleFunc("GET /files/{id}/download", h.Download)
	mux.HandleFunc("GET /files/{id}/info", h.Info)
	mux.HandleFunc("DELETE /files/{id}", h.Delete)
	return &testEnv{handler: h, mux: mux, repo: repo, cache: cache, dir: dir}
}

// blobCount считает финализированные блобы (tmp не учитываем)
func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	n := 0
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		n++
	}
	return n
}

type namedFile struct {
	name    string
	content []byte
}

func multipartBody(t *testing.T, files []namedFile, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("file", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(f.content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(body.Len()))
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}

type uploadResponse struct {
	Files []fileCreated `json:"files"`
}

func decodeUpload(t *testing.T, rr *httptest.ResponseRecorder) uploadResponse {
	t.Helper()
	var resp uploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp
}

// ---- загрузка ----

func TestUploadSingleFile(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"a.txt", []byte("hello")}}, nil)

	rr := e.upload(t, body, ct)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	resp := decodeUpload(t, rr)
	if len(resp.Files) != 1 {
		t.Fatalf("records: want 1, got %d", len(resp.Files))
	}
	f := resp.Files[0]
	if f.Size != 5 {
		t.Errorf("size: want 5, got %d", f.Size)
	}
	if f.Name != "a" || f.Extension != ".txt" {
		t.Errorf("name split: got name=%q ext=%q", f.Name, f.Extension)
	}
	if len(f.ID) != 32 {
		t.Errorf("id length: want 32, got %d (%q)", len(f.ID), f.ID)
	}
	if len(f.ManagementKey) != 64 {
		t.Errorf("management key length: want 64, got %d", len(f.ManagementKey))
	}
	if f.CreatedAt.IsZero() {
		t.Error("createdAt is zero")
	}

	// P1: сразу читается назад байт в байт
	req := httptest.NewRequest(http.MethodGet, "/files/"+f.ID, nil)
	grr := httptest.NewRecorder()
	e.mux.ServeHTTP(grr, req)
	if grr.Code != http.StatusOK {
		t.Fatalf("get status: want 200, got %d", grr.Code)
	}
	if grr.Body.String() != "hello" {
		t.Errorf("content: want %q, got %q", "hello", grr.Body.String())
	}
	if cl := grr.Header().Get("Content-Length"); cl != "5" {
		t.Errorf("content-length: want 5, got %q", cl)
	}
	if cd := grr.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline; filename=a.txt") {
		t.Errorf("disposition: %q", cd)
	}
}

func TestUploadMultipleFiles(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{
		{"one.bin", bytes.Repeat([]byte{0xAA}, 100)},
		{"two.bin", bytes.Repeat([]byte{0xBB}, 200)},
	}, map[string]string{"comment": "ignored"})

	rr := e.upload(t, body, ct)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	resp := decodeUpload(t, rr)
	if len(resp.Files) != 2 {
		t.Fatalf("records: want 2, got %d", len(resp.Files))
	}
	if resp.Files[0].Size != 100 || resp.Files[1].Size != 200 {
		t.Errorf("sizes: got %d and %d", resp.Files[0].Size, resp.Files[1].Size)
	}
	if e.blobCount(t) != 2 {
		t.Errorf("blob count: want 2, got %d", e.blobCount(t))
	}
}

func TestUploadSecondFileTooLarge(t *testing.T) {
	e := newTestEnv(t, 64)
	body, ct := multipartBody(t, []namedFile{
		{"ok.bin", bytes.Repeat([]byte{1}, 10)},
		{"big.bin", bytes.Repeat([]byte{2}, 65)},
	}, nil)

	rr := e.upload(t, body, ct)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: want 413, got %d body=%s", rr.Code, rr.Body.String())
	}

	// P2/P3: ни блобов первого файла, ни записей в леджере
	if n := e.blobCount(t); n != 0 {
		t.Errorf("leftover blobs after failed batch: %d", n)
	}
	if n := e.repo.count(); n != 0 {
		t.Errorf("leftover ledger rows: %d", n)
	}
}

func TestUploadExactCeilingFits(t *testing.T) {
	e := newTestEnv(t, 64)
	body, ct := multipartBody(t, []namedFile{{"max.bin", bytes.Repeat([]byte{7}, 64)}}, nil)

	rr := e.upload(t, body, ct)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	resp := decodeUpload(t, rr)
	if resp.Files[0].Size != 64 {
		t.Errorf("size: want 64, got %d", resp.Files[0].Size)
	}
}

func TestUploadNoFiles(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, nil, map[string]string{"just": "a field"})

	rr := e.upload(t, body, ct)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "no files were uploaded") {
		t.Errorf("body: %s", rr.Body.String())
	}
}

func TestUploadBadContentType(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("raw bytes"))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Length", "9")
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rr.Code)
	}
}

func TestUploadMissingContentLength(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"a.txt", []byte("hi")}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", ct)
	// Content-Length заголовок намеренно не выставляем
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusLengthRequired {
		t.Fatalf("status: want 411, got %d", rr.Code)
	}
}

func TestUploadDeclaredBodyTooLarge(t *testing.T) {
	e := newTestEnv(t, 64)
	body, ct := multipartBody(t, []namedFile{{"a.txt", []byte("hi")}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Content-Length", strconv.Itoa(int(e.handler.MaxRequestSize)+1))
	req.ContentLength = e.handler.MaxRequestSize + 1
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: want 413, got %d", rr.Code)
	}
}

func TestUploadMalformedMultipart(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	raw := "this is not a multipart body at all"
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(raw))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxxx")
	req.Header.Set("Content-Length", strconv.Itoa(len(raw)))
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if n := e.blobCount(t); n != 0 {
		t.Errorf("leftover blobs after parse error: %d", n)
	}
}

func TestUploadLedgerFailureCompensates(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	e.repo.failCreate = true
	body, ct := multipartBody(t, []namedFile{
		{"one.txt", []byte("aaa")},
		{"two.txt", []byte("bbb")},
	}, nil)

	rr := e.upload(t, body, ct)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: want 500, got %d", rr.Code)
	}
	if n := e.blobCount(t); n != 0 {
		t.Errorf("leftover blobs after ledger failure: %d", n)
	}
}

// ---- выдача и info ----

func TestDownloadAttachment(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"doc.pdf", []byte("%PDF")}}, nil)
	resp := decodeUpload(t, e.upload(t, body, ct))
	id := resp.Files[0].ID

	req := httptest.NewRequest(http.MethodGet, "/files/"+id+"/download", nil)
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=doc.pdf") {
		t.Errorf("disposition: %q", cd)
	}
}

func TestInfoExcludesSecrets(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"a.txt", []byte("hello")}}, nil)
	resp := decodeUpload(t, e.upload(t, body, ct))
	id := resp.Files[0].ID

	req := httptest.NewRequest(http.MethodGet, "/files/"+id+"/info", nil)
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rr.Code)
	}

	var raw map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, forbidden := range []string{"managementKey", "location", "locationType"} {
		if _, ok := raw[forbidden]; ok {
			t.Errorf("info leaks %q", forbidden)
		}
	}
	if raw["id"] != id {
		t.Errorf("id: want %q, got %v", id, raw["id"])
	}
	if raw["size"].(float64) != 5 {
		t.Errorf("size: want 5, got %v", raw["size"])
	}
}

func TestDispositionRoundTrip(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"отчёт.txt", []byte("данные")}}, nil)
	rr := e.upload(t, body, ct)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	resp := decodeUpload(t, rr)
	f := resp.Files[0]

	req := httptest.NewRequest(http.MethodGet, "/files/"+f.ID, nil)
	grr := httptest.NewRecorder()
	e.mux.ServeHTTP(grr, req)
	cd := grr.Header().Get("Content-Disposition")

	marker := "filename*=UTF-8''"
	i := strings.Index(cd, marker)
	if i < 0 {
		t.Fatalf("no encoded filename in disposition: %q", cd)
	}
	encoded := cd[i+len(marker):]
	if j := strings.Index(encoded, ";"); j >= 0 {
		encoded = encoded[:j]
	}
	encoded = strings.TrimSuffix(strings.TrimSpace(encoded), f.Extension)

	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		t.Fatalf("unescape %q: %v", encoded, err)
	}
	if decoded != "отчёт" {
		t.Errorf("round trip: want %q, got %q", "отчёт", decoded)
	}
}

// ---- удаление ----

func TestDeleteLifecycle(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"a.txt", []byte("hello")}}, nil)
	resp := decodeUpload(t, e.upload(t, body, ct))
	f := resp.Files[0]

	// без ключа — 400
	req := httptest.NewRequest(http.MethodDelete, "/files/"+f.ID, nil)
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("delete without key: want 400, got %d", rr.Code)
	}

	// с неверным ключом — 403, и файл остаётся читаемым (P4)
	req = httptest.NewRequest(http.MethodDelete, "/files/"+f.ID+"?managementKey="+strings.Repeat("0", 64), nil)
	rr = httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("delete with wrong key: want 403, got %d", rr.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/files/"+f.ID, nil)
	rr = httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "hello" {
		t.Fatalf("file damaged after forbidden delete: code=%d body=%q", rr.Code, rr.Body.String())
	}

	// с верным ключом — 204 и пустое тело
	req = httptest.NewRequest(http.MethodDelete, "/files/"+f.ID+"?managementKey="+f.ManagementKey, nil)
	rr = httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: want 204, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("delete body not empty: %q", rr.Body.String())
	}

	// после удаления — 404 и никаких блобов
	req = httptest.NewRequest(http.MethodGet, "/files/"+f.ID, nil)
	rr = httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: want 404, got %d", rr.Code)
	}
	if n := e.blobCount(t); n != 0 {
		t.Errorf("leftover blobs after delete: %d", n)
	}
}

func TestUnknownIDAlwaysNotFound(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	const id = "ffffffffffffffffffffffffffffffff"

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/files/" + id},
		{http.MethodGet, "/files/" + id + "/download"},
		{http.MethodGet, "/files/" + id + "/info"},
		{http.MethodDelete, "/files/" + id + "?managementKey=" + strings.Repeat("a", 64)},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rr := httptest.NewRecorder()
		e.mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: want 404, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestNonLocalBackendNotImplemented(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	key := domain.NewManagementKey()
	rec := domain.FileRecord{
		ID:          domain.NewFileID(),
		Name:        "remote",
		EncodedName: "remote",
		Extension:   ".bin",
		Size:        10,
		Location:    "s3://bucket/remote",
		Type:        domain.LocationS3,
		Key:         key,
		CreatedAt:   time.Now().UTC(),
	}
	e.repo.recs[rec.ID] = rec

	req := httptest.NewRequest(http.MethodGet, "/files/"+rec.ID, nil)
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotImplemented {
		t.Errorf("get non-local: want 501, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/files/"+rec.ID+"?managementKey="+key, nil)
	rr = httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotImplemented {
		t.Errorf("delete non-local: want 501, got %d", rr.Code)
	}
	if _, err := e.repo.FileByID(context.Background(), rec.ID); err != nil {
		t.Errorf("non-local record must survive 501 delete: %v", err)
	}
}

func TestMissingBlobForKnownRecord(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"a.txt", []byte("hello")}}, nil)
	resp := decodeUpload(t, e.upload(t, body, ct))
	id := resp.Files[0].ID

	// имитируем рассинхронизацию: блоб пропал, строка осталась
	if err := e.handler.Storage.Delete(id); err != nil {
		t.Fatalf("remove blob: %v", err)
	}
	e.cache.Del(context.Background(), domain.CacheKeyFileMeta(id))

	req := httptest.NewRequest(http.MethodGet, "/files/"+id, nil)
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want 500 on missing blob, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "storage_inconsistent") {
		t.Errorf("body: %s", rr.Body.String())
	}
}

func TestCacheInvalidatedOnDelete(t *testing.T) {
	e := newTestEnv(t, 1<<20)
	body, ct := multipartBody(t, []namedFile{{"a.txt", []byte("hello")}}, nil)
	resp := decodeUpload(t, e.upload(t, body, ct))
	f := resp.Files[0]

	// прогреваем кеш
	req := httptest.NewRequest(http.MethodGet, "/files/"+f.ID+"/info", nil)
	e.mux.ServeHTTP(httptest.NewRecorder(), req)
	if b, _ := e.cache.Get(context.Background(), domain.CacheKeyFileMeta(f.ID)); len(b) == 0 {
		t.Fatal("cache not warmed by info")
	}

	req = httptest.NewRequest(http.MethodDelete, "/files/"+f.ID+"?managementKey="+f.ManagementKey, nil)
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: want 204, got %d", rr.Code)
	}
	if b, _ := e.cache.Get(context.Background(), domain.CacheKeyFileMeta(f.ID)); len(b) != 0 {
		t.Error("cache entry survived delete")
	}
}
