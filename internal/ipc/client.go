package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Submit queues a new song for production.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call("Openmic.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resubmit re-admits an existing song by id.
func (c *Client) Resubmit(id string) (*ResubmitResponse, error) {
	var resp ResubmitResponse
	if err := c.client.Call("Openmic.Resubmit", ResubmitRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel aborts a pending or running song.
func (c *Client) Cancel(id string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("Openmic.Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SongStatus retrieves a single song.
func (c *Client) SongStatus(id string) (*SongStatusResponse, error) {
	var resp SongStatusResponse
	if err := c.client.Call("Openmic.SongStatus", SongStatusRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns queue entries per the request's filters.
func (c *Client) QueueList(req QueueListRequest) (*QueueListResponse, error) {
	var resp QueueListResponse
	if err := c.client.Call("Openmic.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NowPlaying retrieves the song currently on stage.
func (c *Client) NowPlaying() (*NowPlayingResponse, error) {
	var resp NowPlayingResponse
	if err := c.client.Call("Openmic.NowPlaying", NowPlayingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AdvanceQueue completes the playing song and promotes the next one.
func (c *Client) AdvanceQueue() (*AdvanceQueueResponse, error) {
	var resp AdvanceQueueResponse
	if err := c.client.Call("Openmic.AdvanceQueue", AdvanceQueueRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CacheStats retrieves artifact cache occupancy.
func (c *Client) CacheStats() (*CacheStatsResponse, error) {
	var resp CacheStatsResponse
	if err := c.client.Call("Openmic.CacheStats", CacheStatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CacheEvict runs a manual eviction sweep with optional limit overrides.
func (c *Client) CacheEvict(req CacheEvictRequest) (*CacheEvictResponse, error) {
	var resp CacheEvictResponse
	if err := c.client.Call("Openmic.CacheEvict", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Openmic.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Openmic.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Openmic.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns daemon log lines starting at the requested offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Openmic.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
