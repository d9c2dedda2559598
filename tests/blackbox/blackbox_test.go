package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) (int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	return port, func() { _ = ln.Close() }
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "vistora")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/vistora")
	cmd.Dir = projectRootFromThisFile(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:18080
	done chan error
}

func startServer(t *testing.T, bin string, port int, env ...string) *serverProc {
	t.Helper()
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, "serve",
		"--addr", fmt.Sprintf("127.0.0.1:%d", port),
		"--store", "memory",
		"--output-dir", t.TempDir(),
		"--log-format", "console",
	)
	cmd.Env = append(os.Environ(), "VISTORA_CONFIG=", "VISTORA_LADA_BINARY=vistora-blackbox-missing")
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	sp := &serverProc{cmd: cmd, base: base, done: make(chan error, 1)}
	go func() { sp.done <- cmd.Wait() }()
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	// Wait for healthz
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return sp
}

func do(t *testing.T, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, rd)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_JobFlow(t *testing.T) {
	bin := buildBinary(t)
	port, release := findFreePort(t)
	release()
	sp := startServer(t, bin, port, "VISTORA_BOOTSTRAP_USER=bb", "VISTORA_BOOTSTRAP_CREDITS=20")

	// /readyz turns 200 once the worker runs
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, _ := do(t, http.MethodGet, sp.base+"/readyz", nil)
		if resp.StatusCode == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("/readyz did not become ready in time; last=%d", resp.StatusCode)
		}
		time.Sleep(25 * time.Millisecond)
	}

	resp, body := do(t, http.MethodGet, sp.base+"/api/v1/models/catalog", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("catalog %d %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("catalog content-type=%s", ct)
	}
	var catalog struct {
		Cards []struct {
			ID string `json:"id"`
		} `json:"cards"`
	}
	if err := json.Unmarshal(body, &catalog); err != nil || len(catalog.Cards) == 0 {
		t.Fatalf("catalog json: %v body=%s", err, body)
	}

	input := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp, body = do(t, http.MethodPost, sp.base+"/api/v1/jobs", map[string]any{
		"input_path":            input,
		"user_id":               "bb",
		"quality_tier":          "high",
		"duration_hint_seconds": 240,
		"options":               map[string]any{"stage_sleep": 0},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create %d %s", resp.StatusCode, body)
	}
	var job struct {
		ID              string `json:"id"`
		Status          string `json:"status"`
		CreditsReserved int    `json:"credits_reserved"`
	}
	if err := json.Unmarshal(body, &job); err != nil {
		t.Fatalf("create json: %v body=%s", err, body)
	}
	// 240s at 120s per unit, high tier doubles
	if job.CreditsReserved != 4 {
		t.Fatalf("credits_reserved = %d, want 4", job.CreditsReserved)
	}

	deadline = time.Now().Add(5 * time.Second)
	for job.Status != "done" {
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", job.Status)
		}
		time.Sleep(25 * time.Millisecond)
		_, body = do(t, http.MethodGet, sp.base+"/api/v1/jobs/"+job.ID, nil)
		if err := json.Unmarshal(body, &job); err != nil {
			t.Fatalf("job json: %v body=%s", err, body)
		}
	}

	// The CLI client talks to the same server.
	out, err := exec.Command(bin, "--base-url", sp.base, "credits", "balance", "bb").Output()
	if err != nil {
		t.Fatalf("credits balance: %v", err)
	}
	var bal struct {
		Balance int `json:"balance"`
	}
	if err := json.Unmarshal(out, &bal); err != nil {
		t.Fatalf("balance json: %v out=%s", err, out)
	}
	if bal.Balance != 16 {
		t.Fatalf("balance = %d, want 16", bal.Balance)
	}

	// Overdraw is refused with 402.
	resp, body = do(t, http.MethodPost, sp.base+"/api/v1/jobs", map[string]any{
		"input_path":        input,
		"user_id":           "bb",
		"estimated_credits": 100,
	})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d body=%s", resp.StatusCode, body)
	}

	// SIGTERM drains and exits cleanly.
	if err := sp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case err := <-sp.done:
		if err != nil {
			t.Fatalf("server exit: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after SIGTERM")
	}
}

func TestBlackbox_RunDryRun(t *testing.T) {
	bin := buildBinary(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(input, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "restored.mp4")
	cmd := exec.Command(bin, "run", input, "--runner", "dry-run", "--option", "stage_sleep=0", "-o", output, "--json")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	var res struct {
		OutputPath string `json:"output_path"`
		Runner     string `json:"runner"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("run json: %v out=%s", err, out)
	}
	if res.OutputPath != output || res.Runner != "simulated" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if data, err := os.ReadFile(output); err != nil || string(data) != "payload" {
		t.Fatalf("output content %q %v", data, err)
	}
}

func TestBlackbox_UnknownStoreFails(t *testing.T) {
	bin := buildBinary(t)
	cmd := exec.Command(bin, "serve", "--store", "bogus")
	cmd.Env = append(os.Environ(), "VISTORA_CONFIG=")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure, got output %s", out)
	}
	if !strings.Contains(string(out), "unknown store") {
		t.Fatalf("expected config error, got %s", out)
	}
}
