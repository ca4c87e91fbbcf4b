package ipc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Client is a connected, authenticated peer of a serving agent.
type Client struct {
	conn *Conn
}

// Connect dials the agent's pipe and runs the key-proof handshake.
func Connect(pipeName, preSharedKey string) (*Client, error) {
	nc, err := Dial(pipeName)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial %s: %w", pipeName, err)
	}
	conn := NewConn(nc)

	id := NewRequestID()
	if err := conn.SendTyped(id, TypeAuthRequest, AuthRequest{
		ProtocolVersion: ProtocolVersion,
		PID:             os.Getpid(),
		Proof:           KeyProof(preSharedKey, id),
	}); err != nil {
		conn.Close()
		return nil, err
	}

	env, err := conn.Recv()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ipc: auth response: %w", err)
	}
	var resp AuthResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ipc: auth response payload: %w", err)
	}
	if !resp.Accepted {
		conn.Close()
		return nil, fmt.Errorf("ipc: auth rejected: %s", resp.Reason)
	}
	key, err := hex.DecodeString(resp.SessionKey)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ipc: session key: %w", err)
	}
	conn.SetSessionKey(key)

	return &Client{conn: conn}, nil
}

// TakeScreenshot requests one capture and waits for the result.
func (c *Client) TakeScreenshot(req ScreenshotRequest) (*ScreenshotResponse, error) {
	id := NewRequestID()
	if err := c.conn.SendTyped(id, TypeScreenshot, req); err != nil {
		return nil, err
	}
	env, err := c.conn.Recv()
	if err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, fmt.Errorf("ipc: %s", env.Error)
	}
	var resp ScreenshotResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		return nil, fmt.Errorf("ipc: screenshot response payload: %w", err)
	}
	return &resp, nil
}

// ListWindows requests the visible window list.
func (c *Client) ListWindows() (*WindowListResponse, error) {
	id := NewRequestID()
	if err := c.conn.SendTyped(id, TypeWindowList, struct{}{}); err != nil {
		return nil, err
	}
	env, err := c.conn.Recv()
	if err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, fmt.Errorf("ipc: %s", env.Error)
	}
	var resp WindowListResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		return nil, fmt.Errorf("ipc: window list payload: %w", err)
	}
	return &resp, nil
}

// Close sends a disconnect and drops the connection.
func (c *Client) Close() error {
	c.conn.SendTyped(NewRequestID(), TypeDisconnect, struct{}{})
	return c.conn.Close()
}
