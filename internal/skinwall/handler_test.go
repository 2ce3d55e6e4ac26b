package skinwall

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/gin-gonic/gin"

	"skinwall/internal/secret"
)

const testKey = "test-secret"

func newTestService(t *testing.T, setup func(root string)) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "key.txt"), []byte(testKey+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if setup != nil {
		setup(root)
	}
	cfg := Config{
		Dir:         filepath.Join(root, "uploads_v2"),
		LegacyDir:   filepath.Join(root, "uploads"),
		Migrate:     true,
		KeyFile:     filepath.Join(root, "key.txt"),
		SQLitePath:  filepath.Join(root, "db", "skinwall.db"),
		WebPQuality: 100,
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, cfg.Dir
}

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Mount(r.Group("/"), svc)
	return r
}

func skinB64(w, h int) string {
	buf := make([]byte, w*h*4)
	for i := 0; i < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = 40, 80, 120, 255
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func postCreate(r http.Handler, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/create", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCreateThenGetWallpaper(t *testing.T) {
	svc, _ := newTestService(t, nil)
	r := newTestRouter(svc)

	w := postCreate(r, map[string]any{"key": testKey, "xuid": "7", "skin": skinB64(64, 64)})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["message"] == "" {
		t.Errorf("unexpected body %s", w.Body.String())
	}

	w = get(r, "/get/7_wallpaper.png")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode wallpaper: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 854 || b.Dy() != 480 {
		t.Errorf("wallpaper is %dx%d", b.Dx(), b.Dy())
	}
	// (40+255)/2, (80+255)/2, (120+255)/2
	want := color.NRGBA{147, 167, 187, 255}
	if got := color.NRGBAModel.Convert(img.At(0, 0)); got != want {
		t.Errorf("background = %v, want %v", got, want)
	}

	w = get(r, "/get/7_icon.png")
	if w.Code != http.StatusOK {
		t.Fatalf("get icon: status %d", w.Code)
	}
	icon, err := png.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := icon.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("icon is %dx%d", b.Dx(), b.Dy())
	}
}

func TestCreateAcceptsNumericXUID(t *testing.T) {
	svc, dir := newTestService(t, nil)
	r := newTestRouter(svc)
	w := postCreate(r, map[string]any{"key": testKey, "xuid": 2535400000000001, "skin": skinB64(128, 128)})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "2535400000000001_icon.png")); err != nil {
		t.Error(err)
	}
}

func TestCreateTwiceLeavesNoBackups(t *testing.T) {
	svc, dir := newTestService(t, nil)
	r := newTestRouter(svc)
	body := map[string]any{"key": testKey, "xuid": "9", "skin": skinB64(64, 32)}

	if w := postCreate(r, body); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}
	first, _ := os.ReadFile(filepath.Join(dir, "9_wallpaper.png"))
	if w := postCreate(r, body); w.Code != http.StatusCreated {
		t.Fatalf("second create: %d", w.Code)
	}
	second, _ := os.ReadFile(filepath.Join(dir, "9_wallpaper.png"))
	if !bytes.Equal(first, second) {
		t.Error("wallpaper differs between identical creates")
	}
	names := listDir(t, dir)
	if len(names) != 2 {
		t.Errorf("expected exactly 2 files, got %v", names)
	}
}

func TestCreateWriteFailureRollsBack(t *testing.T) {
	svc, dir := newTestService(t, nil)
	r := newTestRouter(svc)
	if w := postCreate(r, map[string]any{"key": testKey, "xuid": "11", "skin": skinB64(64, 64)}); w.Code != http.StatusCreated {
		t.Fatalf("first create: %d", w.Code)
	}
	wantWP, _ := os.ReadFile(filepath.Join(dir, "11_wallpaper.png"))
	wantIC, _ := os.ReadFile(filepath.Join(dir, "11_icon.png"))

	// 第二个文件（图标）写到一半失败
	calls := 0
	svc.Store.Encode = func(w io.Writer, img image.Image) error {
		calls++
		if calls == 2 {
			_, _ = w.Write([]byte("partial"))
			return errors.New("disk full")
		}
		return png.Encode(w, img)
	}

	w := postCreate(r, map[string]any{"key": testKey, "xuid": "11", "skin": skinB64(128, 128)})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
		t.Errorf("expected json error body, got %s", w.Body.String())
	}

	gotWP, _ := os.ReadFile(filepath.Join(dir, "11_wallpaper.png"))
	gotIC, _ := os.ReadFile(filepath.Join(dir, "11_icon.png"))
	if !bytes.Equal(gotWP, wantWP) || !bytes.Equal(gotIC, wantIC) {
		t.Error("primaries not restored after failed create")
	}
	if names := listDir(t, dir); len(names) != 2 {
		t.Errorf("expected exactly 2 files, got %v", names)
	}
}

func TestCreateRejectsBadKey(t *testing.T) {
	svc, dir := newTestService(t, nil)
	r := newTestRouter(svc)
	for _, key := range []string{"", "wrong", testKey + " "} {
		w := postCreate(r, map[string]any{"key": key, "xuid": "1", "skin": skinB64(64, 64)})
		if w.Code != http.StatusForbidden {
			t.Errorf("key %q: status %d", key, w.Code)
		}
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("filesystem mutated: %v", names)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, dir := newTestService(t, nil)
	r := newTestRouter(svc)
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing xuid", map[string]any{"key": testKey, "skin": skinB64(64, 64)}},
		{"empty xuid", map[string]any{"key": testKey, "xuid": "", "skin": skinB64(64, 64)}},
		{"zero xuid", map[string]any{"key": testKey, "xuid": 0, "skin": skinB64(64, 64)}},
		{"missing skin", map[string]any{"key": testKey, "xuid": "1"}},
		{"non-integer xuid", map[string]any{"key": testKey, "xuid": "abc", "skin": skinB64(64, 64)}},
		{"float xuid", map[string]any{"key": testKey, "xuid": 1.5, "skin": skinB64(64, 64)}},
		{"bad size", map[string]any{"key": testKey, "xuid": "1", "skin": base64.StdEncoding.EncodeToString(make([]byte, 100))}},
		{"bad base64", map[string]any{"key": testKey, "xuid": "1", "skin": "%%%"}},
	}
	for _, c := range cases {
		if w := postCreate(r, c.body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d body %s", c.name, w.Code, w.Body.String())
		}
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Errorf("filesystem mutated: %v", names)
	}
}

func TestCreateInvalidJSON(t *testing.T) {
	svc, _ := newTestService(t, nil)
	r := newTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/create", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d", w.Code)
	}
}

func TestGetMissingFile(t *testing.T) {
	svc, _ := newTestService(t, nil)
	r := newTestRouter(svc)
	for _, target := range []string{"/get/1_wallpaper.png", "/get/", "/get/../key.txt", "/get/sub/dir.png"} {
		w := get(r, target)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status %d", target, w.Code)
			continue
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
			t.Errorf("%s: expected json error body, got %s", target, w.Body.String())
		}
	}
}

func TestGetWebP(t *testing.T) {
	svc, _ := newTestService(t, nil)
	r := newTestRouter(svc)
	if w := postCreate(r, map[string]any{"key": testKey, "xuid": "3", "skin": skinB64(64, 64)}); w.Code != http.StatusCreated {
		t.Fatalf("create: %d", w.Code)
	}
	for i := 0; i < 2; i++ {
		w := get(r, "/get/3_wallpaper.png?format=webp")
		if w.Code != http.StatusOK {
			t.Fatalf("status %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/webp" {
			t.Errorf("content type %q", ct)
		}
		img, err := webp.Decode(w.Body)
		if err != nil {
			t.Fatalf("decode webp: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 854 || b.Dy() != 480 {
			t.Errorf("webp is %dx%d", b.Dx(), b.Dy())
		}
	}
	if svc.webp.Len() != 1 {
		t.Errorf("expected one cached transcode, got %d", svc.webp.Len())
	}
	if w := get(r, "/get/404.png?format=webp"); w.Code != http.StatusNotFound {
		t.Errorf("missing webp: status %d", w.Code)
	}
}

func TestMeta(t *testing.T) {
	svc, _ := newTestService(t, nil)
	r := newTestRouter(svc)
	if w := postCreate(r, map[string]any{"key": testKey, "xuid": "11", "skin": skinB64(128, 64)}); w.Code != http.StatusCreated {
		t.Fatalf("create: %d", w.Code)
	}

	if w := get(r, "/meta/11"); w.Code != http.StatusForbidden {
		t.Errorf("no key: status %d", w.Code)
	}
	if w := get(r, "/meta/abc?key="+testKey); w.Code != http.StatusBadRequest {
		t.Errorf("bad xuid: status %d", w.Code)
	}
	if w := get(r, "/meta/12?key="+testKey); w.Code != http.StatusNotFound {
		t.Errorf("unknown xuid: status %d", w.Code)
	}

	w := get(r, "/meta/11?key="+testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var g struct {
		Generations int    `json:"generations"`
		Source      string `json:"source"`
		SkinWidth   int    `json:"skinWidth"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &g); err != nil {
		t.Fatal(err)
	}
	if g.Generations != 1 || g.Source != "create" || g.SkinWidth != 128 {
		t.Errorf("unexpected meta %+v", g)
	}
}

func TestNewServiceMissingKeyFile(t *testing.T) {
	root := t.TempDir()
	_, err := NewService(Config{Dir: filepath.Join(root, "v2"), KeyFile: filepath.Join(root, "key.txt")})
	if !secret.IsMissing(err) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestNewServiceMigratesLegacyData(t *testing.T) {
	var legacyBytes []byte
	svc, dir := newTestService(t, func(root string) {
		legacy := filepath.Join(root, "uploads")
		if err := os.MkdirAll(legacy, 0o755); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 64, 32))); err != nil {
			t.Fatal(err)
		}
		legacyBytes = buf.Bytes()
		if err := os.WriteFile(filepath.Join(legacy, "wallpaper-42.png"), legacyBytes, 0o644); err != nil {
			t.Fatal(err)
		}
	})

	got, err := os.ReadFile(filepath.Join(dir, "42_wallpaper.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, legacyBytes) {
		t.Error("migrated wallpaper differs from legacy file")
	}
	if _, err := os.Stat(filepath.Join(dir, "42_icon.png")); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(svc.Cfg.LegacyDir); !os.IsNotExist(err) {
		t.Errorf("legacy dir should be gone, stat err = %v", err)
	}

	r := newTestRouter(svc)
	w := get(r, "/meta/42?key="+testKey)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"source":"migrate"`)) {
		t.Errorf("meta after migration: %d %s", w.Code, w.Body.String())
	}
}

func TestNewServiceAbortsOnBrokenLegacyData(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "key.txt"), []byte(testKey), 0o600)
	_ = os.MkdirAll(filepath.Join(root, "uploads"), 0o755)
	_ = os.WriteFile(filepath.Join(root, "uploads", "wallpaper-1.png"), []byte("junk"), 0o644)

	_, err := NewService(Config{
		Dir:       filepath.Join(root, "v2"),
		LegacyDir: filepath.Join(root, "uploads"),
		Migrate:   true,
		KeyFile:   filepath.Join(root, "key.txt"),
	})
	if err == nil {
		t.Fatal("expected startup error")
	}
}

func TestParseXUID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		missing bool
		bad     bool
	}{
		{`"7"`, 7, false, false},
		{`" 7 "`, 7, false, false},
		{`7`, 7, false, false},
		{`-3`, -3, false, false},
		{``, 0, true, false},
		{`null`, 0, true, false},
		{`""`, 0, true, false},
		{`0`, 0, true, false},
		{`"0"`, 0, false, false},
		{`"x"`, 0, false, true},
		{`1.5`, 0, false, true},
	}
	for _, c := range cases {
		got, err := parseXUID(json.RawMessage(c.in))
		switch {
		case c.missing:
			if err != errMissingXUID {
				t.Errorf("%s: expected missing, got %v", c.in, err)
			}
		case c.bad:
			if err == nil || err == errMissingXUID {
				t.Errorf("%s: expected parse error, got %v", c.in, err)
			}
		default:
			if err != nil || got != c.want {
				t.Errorf("%s: got %d, %v", c.in, got, err)
			}
		}
	}
}
