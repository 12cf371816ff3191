package ipc

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/anthropic/kidex/internal/index"
)

// Client communicates with the daemon over a Unix domain socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client that connects to the given socket
// path.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// FullIndex asks the daemon to rebuild its index from the configured
// directories. Replies after the request is posted, not after the
// reindex completes.
func (c *Client) FullIndex() error {
	_, err := c.send(Request{Command: CmdFullIndex})
	return err
}

// Reload asks the daemon to re-read its configuration file.
func (c *Client) Reload() error {
	_, err := c.send(Request{Command: CmdReload})
	return err
}

// Quit asks the daemon to shut down gracefully.
func (c *Client) Quit() error {
	_, err := c.send(Request{Command: CmdQuit})
	return err
}

// GetIndex fetches index entries. With path nil, returns a flat list of
// every child across every indexed directory node (bare segment names,
// not absolute paths). With path set, returns the absolute-path
// descendants of the directory configured at that path.
func (c *Client) GetIndex(path *string) ([]index.Entry, error) {
	resp, err := c.send(Request{Command: CmdGetIndex, Path: path})
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusNotFound {
		return nil, fmt.Errorf("path not found in index")
	}
	return resp.Entries, nil
}

// QueryIndex runs opts against the live index server-side and returns the
// scored, ascending-sorted (or top-k, if opts.Limit is set) matches.
func (c *Client) QueryIndex(opts QueryOptions) ([]index.Entry, error) {
	resp, err := c.send(Request{Command: CmdQueryIndex, Query: &opts})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// send dials the socket, writes a 0x00-terminated JSON request, and reads
// the un-terminated JSON response to end-of-stream.
func (c *Client) send(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, 0x00)
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Message)
	}
	return &resp, nil
}
