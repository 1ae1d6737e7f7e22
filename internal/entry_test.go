package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/starford/yearwheel/internal/parser"
	"github.com/starford/yearwheel/internal/storage"
)

// syncBuffer guards log writes from the server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitReady(t *testing.T, base string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/health/ready")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server not ready")
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRun_SignalFlushesPendingEdits(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = freePort(t)
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	cfg.Wheel.Year = 2024
	cfg.Autosave.Debounce = time.Minute

	logs := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), WithConfig(cfg), WithLogOutput(logs))
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.App.HTTP.Port)
	waitReady(t, base)

	resp := postJSON(t, base+"/api/notes", map[string]any{
		"date":     map[string]int{"year": 2024, "month": 3, "day": 14},
		"title":    "Pi day",
		"position": map[string]float64{"x": 1000, "y": 700},
	})
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.ID == "" {
		t.Fatalf("create status = %d, id = %q", resp.StatusCode, created.ID)
	}

	// The completed move waits on the autosave debounce.
	resp = postJSON(t, base+"/api/notes/"+created.ID+"/move", map[string]any{"x": 900, "y": 650})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("move status = %d", resp.StatusCode)
	}

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after SIGINT")
	}

	if !strings.Contains(logs.String(), "Server stopped successfully") {
		t.Errorf("logs = %s", logs.String())
	}

	data, err := os.ReadFile(filepath.Join(cfg.Vault.Path, filepath.FromSlash(storage.NotePath(2024, created.ID))))
	if err != nil {
		t.Fatal(err)
	}
	res, err := parser.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if res.Note.Position.X != 900 || res.Note.Position.Y != 650 {
		t.Errorf("position on disk = %+v, want the moved position", res.Note.Position)
	}
}
