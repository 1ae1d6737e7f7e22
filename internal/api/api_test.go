package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/yearwheel/internal/adjust"
	"github.com/starford/yearwheel/internal/checksum"
	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/testutil"
	"github.com/starford/yearwheel/internal/wheel"
	"github.com/starford/yearwheel/internal/workspace"
)

type testEnv struct {
	router   http.Handler
	ws       *workspace.Workspace
	vaultDir string
}

// newTestEnv wires a workspace over a temp vault and SQLite index.
// A non-empty token enables token auth.
func newTestEnv(t *testing.T, token string, sseHandler http.Handler) *testEnv {
	t.Helper()
	vaultDir, files := testutil.TestVault(t)
	db := testutil.TestDB(t)

	ws := workspace.New(files,
		workspace.WithLogger(testutil.Logger()),
		workspace.WithLayout(wheel.Layout{Year: 2024, Radius: 300, Margin: 40}),
		workspace.WithCanvasSize(1200, 800),
		workspace.WithStoreOptions(notestore.WithIndex(db), notestore.WithDebounce(time.Hour)),
	)
	t.Cleanup(func() { _ = ws.Close() })

	h := NewHandler(ws, ws.Store(), db)
	return &testEnv{
		router:   NewRouter(h, token != "", token, sseHandler, vaultDir),
		ws:       ws,
		vaultDir: vaultDir,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) create(t *testing.T, title string) NoteDetail {
	t.Helper()
	w := e.do(t, http.MethodPost, "/notes", map[string]any{
		"date":     map[string]int{"year": 2024, "month": 3, "day": 14},
		"title":    title,
		"body":     "# " + title + "\nmarch notes",
		"position": map[string]float64{"x": 1000, "y": 700},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var d NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateAndGetNote(t *testing.T) {
	e := newTestEnv(t, "", nil)
	created := e.create(t, "Pi day")
	if created.ID == "" || created.Checksum == "" {
		t.Fatalf("created = %+v", created)
	}
	if created.Size != notestore.DefaultSize {
		t.Errorf("size = %+v, want default", created.Size)
	}

	w := e.do(t, http.MethodGet, "/notes/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := w.Header().Get("ETag"); got != checksum.ETag(created.Checksum) {
		t.Errorf("ETag = %q", got)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "Pi day" || note.Date.Month != 3 {
		t.Errorf("note = %+v", note)
	}
}

func TestCreateNote_Validation(t *testing.T) {
	e := newTestEnv(t, "", nil)
	cases := map[string]any{
		"bad date":      map[string]any{"date": map[string]int{"year": 2023, "month": 2, "day": 29}},
		"unknown field": map[string]any{"date": map[string]int{"year": 2024, "month": 1, "day": 1}, "path": "x.md"},
		"negative size": map[string]any{"date": map[string]int{"year": 2024, "month": 1, "day": 1}, "size": map[string]float64{"width": -1, "height": 10}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if w := e.do(t, http.MethodPost, "/notes", body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	e := newTestEnv(t, "", nil)
	created := e.create(t, "v1")

	w := e.do(t, http.MethodPut, "/notes/"+created.ID, map[string]string{"title": "v2"},
		"If-Match", checksum.ETag(created.Checksum))
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPut, "/notes/"+created.ID, map[string]string{"title": "v3"},
		"If-Match", created.Checksum)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}

	w = e.do(t, http.MethodPut, "/notes/"+created.ID, map[string]string{"title": "v3"})
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d", w.Code)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	e := newTestEnv(t, "", nil)
	if w := e.do(t, http.MethodPut, "/notes/nope", map[string]string{"title": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	e := newTestEnv(t, "", nil)
	created := e.create(t, "gone")

	if w := e.do(t, http.MethodDelete, "/notes/"+created.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/notes/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/connectors/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("connector after delete = %d", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	e := newTestEnv(t, "", nil)
	e.create(t, "a")
	e.create(t, "b")
	w := e.do(t, http.MethodPost, "/notes", map[string]any{
		"date": map[string]int{"year": 2025, "month": 1, "day": 1},
	})
	if w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/notes?year=2024", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Errorf("2024 total = %d, want 2", resp.Total)
	}

	w = e.do(t, http.MethodGet, "/notes", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}

	if w := e.do(t, http.MethodGet, "/notes?year=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad year = %d", w.Code)
	}
}

func TestHandleDragFlow(t *testing.T) {
	e := newTestEnv(t, "", nil)
	created := e.create(t, "drag me")

	w := e.do(t, http.MethodPost, "/selection", map[string]string{"id": created.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("select = %d, body = %s", w.Code, w.Body.String())
	}
	var sel workspace.Selection
	_ = json.Unmarshal(w.Body.Bytes(), &sel)
	handle := -1
	for _, h := range sel.Handles {
		if h.Axis == adjust.AxisX {
			handle = h.Index
			break
		}
	}
	if handle < 0 {
		t.Fatalf("no vertical handle in %+v", sel.Handles)
	}
	at := sel.Handles[handle].Position

	if w := e.do(t, http.MethodPost, "/handles/"+strconv.Itoa(handle)+"/grab", nil); w.Code != http.StatusOK {
		t.Fatalf("grab = %d, body = %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/pointer/move", map[string]float64{"x": at.X + 25, "y": at.Y})
	var pr PointerResponse
	_ = json.Unmarshal(w.Body.Bytes(), &pr)
	if !pr.Captured {
		t.Error("pointer move not captured")
	}
	if w := e.do(t, http.MethodPost, "/pointer/up", map[string]float64{"x": at.X + 25, "y": at.Y}); w.Code != http.StatusOK {
		t.Fatalf("pointer up = %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/notes/"+created.ID, nil)
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.ConnectionLine == nil || !note.ConnectionLine.IsCustom || len(note.ConnectionLine.PathPoints) < 2 {
		t.Fatalf("connection line not committed: %+v", note.ConnectionLine)
	}

	w = e.do(t, http.MethodDelete, "/notes/"+created.ID+"/connection", nil)
	var rr ResetResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rr)
	if !rr.Reset {
		t.Error("reset reported no custom line")
	}
	w = e.do(t, http.MethodGet, "/selection", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &sel)
	if sel.NoteID != "" {
		t.Errorf("selection after reset = %+v", sel)
	}
}

func TestGrabHandle_Invalid(t *testing.T) {
	e := newTestEnv(t, "", nil)
	if w := e.do(t, http.MethodPost, "/handles/x/grab", nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric index = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/handles/0/grab", nil); w.Code != http.StatusBadRequest {
		t.Errorf("grab without selection = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/selection", map[string]string{"id": "missing"}); w.Code != http.StatusNotFound {
		t.Errorf("select missing = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/selection", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("select without id = %d", w.Code)
	}
}

func TestMoveAndResize(t *testing.T) {
	e := newTestEnv(t, "", nil)
	created := e.create(t, "card")

	if w := e.do(t, http.MethodPost, "/notes/"+created.ID+"/move", map[string]any{"x": 900, "y": 650, "dragging": true}); w.Code != http.StatusNoContent {
		t.Fatalf("drag = %d, body = %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodPost, "/notes/"+created.ID+"/move", map[string]any{"x": 900, "y": 650}); w.Code != http.StatusNoContent {
		t.Fatalf("move = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/notes/"+created.ID+"/resize", map[string]any{"width": 300, "height": 150}); w.Code != http.StatusNoContent {
		t.Fatalf("resize = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/notes/"+created.ID+"/resize", map[string]any{"width": 0, "height": 150}); w.Code != http.StatusBadRequest {
		t.Errorf("zero width = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/notes/nope/move", map[string]any{"x": 1, "y": 1}); w.Code != http.StatusNotFound {
		t.Errorf("move missing = %d", w.Code)
	}

	w := e.do(t, http.MethodGet, "/notes/"+created.ID, nil)
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Position.X != 900 || note.Position.Y != 650 || note.Size.Width != 300 {
		t.Errorf("note = %+v", note.Note)
	}
}

func TestConnectorsAndSnapshots(t *testing.T) {
	e := newTestEnv(t, "", nil)
	created := e.create(t, "snap")

	w := e.do(t, http.MethodGet, "/connectors", nil)
	var list ConnectorListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Connectors) != 1 || list.Connectors[0].NoteID != created.ID {
		t.Fatalf("connectors = %+v", list)
	}
	if !strings.HasPrefix(list.Connectors[0].D, "M ") {
		t.Errorf("d = %q", list.Connectors[0].D)
	}

	w = e.do(t, http.MethodGet, "/canvas.svg", nil)
	if ct := w.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("svg content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), created.ID) {
		t.Error("svg missing connector")
	}

	w = e.do(t, http.MethodGet, "/canvas.png", nil)
	if _, err := png.Decode(w.Body); err != nil {
		t.Errorf("png decode: %v", err)
	}
}

func TestWheelAndViewport(t *testing.T) {
	e := newTestEnv(t, "", nil)
	e.create(t, "this year")

	w := e.do(t, http.MethodPut, "/wheel", map[string]int{"year": 2025})
	if w.Code != http.StatusOK {
		t.Fatalf("set year = %d, body = %s", w.Code, w.Body.String())
	}
	var v workspace.View
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Year != 2025 {
		t.Errorf("year = %d", v.Year)
	}
	w = e.do(t, http.MethodGet, "/connectors", nil)
	var list ConnectorListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Connectors) != 0 {
		t.Errorf("connectors of another year drawn: %+v", list.Connectors)
	}

	if w := e.do(t, http.MethodPut, "/wheel", map[string]int{"year": 0}); w.Code != http.StatusBadRequest {
		t.Errorf("year 0 = %d", w.Code)
	}
	w = e.do(t, http.MethodPut, "/viewport", map[string]float64{"width": 640, "height": 480})
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Width != 640 || v.Viewport.Scale == 0 {
		t.Errorf("view = %+v", v)
	}
	w = e.do(t, http.MethodGet, "/wheel", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Year != 2025 || v.Height != 480 {
		t.Errorf("view = %+v", v)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e := newTestEnv(t, "", nil)
	e.create(t, "Searchable gooseberry")

	w := e.do(t, http.MethodGet, "/search?q=gooseberry", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) == 0 {
		t.Error("expected search results")
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := newTestEnv(t, "", nil)
	if w := e.do(t, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := newTestEnv(t, "secret123", nil)
	if w := e.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer secret123"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := newTestEnv(t, "secret123", nil)
	if w := e.do(t, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := newTestEnv(t, "secret123", nil)
	if w := e.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	e := newTestEnv(t, "secret123", nil)
	if w := e.do(t, http.MethodGet, "/notes?access_token=secret123", nil); w.Code != http.StatusOK {
		t.Errorf("GET with query token = %d", w.Code)
	}
	w := e.do(t, http.MethodPost, "/notes?access_token=secret123", map[string]any{
		"date": map[string]int{"year": 2024, "month": 1, "day": 1},
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := newTestEnv(t, "", nil)
	if w := e.do(t, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d", w.Code)
	}
}

// sseStub writes headers and blocks until the request context ends.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := newTestEnv(t, "tok", sseStub)
	if w := e.do(t, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := newTestEnv(t, "tok", sseStub)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d", w.Code)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeImage(t *testing.T) {
	e := newTestEnv(t, "", nil)
	data := pngBytes(t)

	w := uploadFile(t, e.router, "My Cover!.png", data)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ImageUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.HasSuffix(resp.Filename, "-MyCover.png") {
		t.Errorf("filename = %q", resp.Filename)
	}
	onDisk, err := os.ReadFile(filepath.Join(e.vaultDir, "images", resp.Filename))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Error("content mismatch")
	}

	w = e.do(t, http.MethodGet, "/images/"+resp.Filename, nil)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), data) {
		t.Errorf("serve = %d", w.Code)
	}
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	e := newTestEnv(t, "", nil)
	if w := uploadFile(t, e.router, "notes.png", []byte("plain text, not a picture")); w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("non-image = %d, want 415", w.Code)
	}
}

func TestUploadImage_MissingFileField(t *testing.T) {
	e := newTestEnv(t, "", nil)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestServeImage_NotFoundAndTraversal(t *testing.T) {
	ih := NewImageHandler(t.TempDir())
	r := chi.NewRouter()
	r.Get("/images/{filename}", ih.ServeFile)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/nope.png", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing image = %d, want 404", w.Code)
	}

	for _, name := range []string{"../secret.md", "..%2Fsecret.md", ".hidden"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/"+name, nil))
		if w.Code == http.StatusOK {
			t.Errorf("%q should not return 200", name)
		}
	}
}
