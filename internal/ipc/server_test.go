//go:build !windows

package ipc

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

type stubHandler struct {
	lastReq ScreenshotRequest
	resp    ScreenshotResponse
	winErr  error
}

func (h *stubHandler) TakeScreenshot(req ScreenshotRequest) ScreenshotResponse {
	h.lastReq = req
	return h.resp
}

func (h *stubHandler) ListWindows() (WindowListResponse, error) {
	if h.winErr != nil {
		return WindowListResponse{}, h.winErr
	}
	return WindowListResponse{Windows: []WindowEntry{{Handle: 0x42, Title: "Notepad", Affinity: 0x11}}}, nil
}

func startServer(t *testing.T, key string, h Handler) (*Server, string) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "agent.sock")
	srv, err := NewServer(sock, key, h)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, sock
}

func TestServer_ScreenshotRoundTrip(t *testing.T) {
	h := &stubHandler{resp: ScreenshotResponse{Status: "success", Path: "/shots/duplication_x.png"}}
	_, sock := startServer(t, "sesame", h)

	client, err := Connect(sock, "sesame")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	mon := 1
	resp, err := client.TakeScreenshot(ScreenshotRequest{Monitor: &mon, Exact: true})
	if err != nil {
		t.Fatalf("TakeScreenshot: %v", err)
	}
	if resp.Status != "success" || resp.Path != "/shots/duplication_x.png" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if h.lastReq.Monitor == nil || *h.lastReq.Monitor != 1 {
		t.Fatalf("handler saw request %+v", h.lastReq)
	}
	if !h.lastReq.Exact {
		t.Fatal("match mode must travel with the request, not process state")
	}
}

// failedAuth runs one auth handshake with a wrong proof and returns the
// rejection reason the server gave.
func failedAuth(t *testing.T, sock string, pid int) string {
	t.Helper()
	nc, err := Dial(sock)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn := NewConn(nc)
	defer conn.Close()

	id := NewRequestID()
	if err := conn.SendTyped(id, TypeAuthRequest, AuthRequest{
		ProtocolVersion: ProtocolVersion,
		PID:             pid,
		Proof:           KeyProof("wrong", id),
	}); err != nil {
		t.Fatalf("send auth request: %v", err)
	}

	env, err := conn.Recv()
	if err != nil {
		t.Fatalf("recv auth response: %v", err)
	}
	var resp AuthResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatalf("auth response payload: %v", err)
	}
	if resp.Accepted {
		t.Fatal("wrong proof accepted")
	}
	return resp.Reason
}

func TestServer_AuthRateLimitIgnoresClaimedPID(t *testing.T) {
	_, sock := startServer(t, "sesame", &stubHandler{})

	// The server budget is 5 attempts per minute. Claiming a fresh PID on
	// every attempt must not buy more.
	for i := 0; i < 5; i++ {
		if reason := failedAuth(t, sock, 1000+i); reason != "invalid key proof" {
			t.Fatalf("attempt %d rejected with %q", i+1, reason)
		}
	}
	if reason := failedAuth(t, sock, 9999); reason != "too many auth attempts" {
		t.Fatalf("sixth attempt under a fresh PID rejected with %q, want rate limit", reason)
	}
}

func TestServer_RejectsWrongKey(t *testing.T) {
	_, sock := startServer(t, "sesame", &stubHandler{})

	if _, err := Connect(sock, "wrong"); err == nil {
		t.Fatal("expected auth rejection for wrong key")
	}
}

func TestServer_WindowList(t *testing.T) {
	_, sock := startServer(t, "sesame", &stubHandler{})

	client, err := Connect(sock, "sesame")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	resp, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(resp.Windows) != 1 || resp.Windows[0].Title != "Notepad" {
		t.Fatalf("unexpected windows %+v", resp.Windows)
	}
}

func TestServer_WindowListError(t *testing.T) {
	_, sock := startServer(t, "sesame", &stubHandler{winErr: errors.New("enumeration unavailable")})

	client, err := Connect(sock, "sesame")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if _, err := client.ListWindows(); err == nil {
		t.Fatal("expected error surfaced from handler")
	}
}

func TestServer_RequiresKey(t *testing.T) {
	if _, err := NewServer(filepath.Join(t.TempDir(), "a.sock"), "", &stubHandler{}); err == nil {
		t.Fatal("expected error for empty pre-shared key")
	}
}

func TestKeyProofRoundTrip(t *testing.T) {
	proof := KeyProof("k", "id-1")
	if !VerifyKeyProof("k", "id-1", proof) {
		t.Fatal("valid proof rejected")
	}
	if VerifyKeyProof("k", "id-2", proof) {
		t.Fatal("proof for different ID accepted")
	}
	if VerifyKeyProof("other", "id-1", proof) {
		t.Fatal("proof under different key accepted")
	}
}
