// Package rpcclient is a minimal JSON-RPC 1.0 client for bitcoin-family
// wallet and node daemons.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"
)

// RpcClient talks to one daemon endpoint with basic auth.
type RpcClient struct {
	url    string
	user   string
	passwd string
	client *http.Client
}

// Response is a raw JSON-RPC response envelope.
type Response struct {
	Result json.RawMessage `json:"result"`
	Err    *RpcError       `json:"error"`
	ID     uint64          `json:"id"`
}

// RpcError is the error member of a JSON-RPC response.
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewClient returns a client for the daemon listening at host:port.
func NewClient(
	host string, port int, user, passwd string, timeoutInSeconds int,
) *RpcClient {
	return &RpcClient{
		url:    fmt.Sprintf("http://%s:%d", host, port),
		user:   user,
		passwd: passwd,
		client: &http.Client{
			Timeout: time.Duration(timeoutInSeconds) * time.Second,
		},
	}
}

// Call performs one JSON-RPC request and returns the raw result. A
// non-nil error member of the response is returned as *RpcError.
func (c *RpcClient) Call(
	method string, params interface{},
) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "1.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.user, c.passwd)
	req.Header.Set("Content-Type", "application/json")

	rs, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rs.Body.Close()

	body, err := ioutil.ReadAll(rs.Body)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed rpc response: %w", err)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Result, nil
}
