package rpc

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/canopy-network/spectroscope/lib"
)

// Client is the http client of the command driver used by the cli
type Client struct {
	rpcURL string
	client http.Client
}

func NewClient(rpcURL string) *Client {
	return &Client{rpcURL: strings.TrimSuffix(rpcURL, "/"), client: http.Client{}}
}

func (c *Client) Version() (version *string, err lib.ErrorI) {
	version = new(string)
	err = c.get(VersionRouteName, version)
	return
}

func (c *Client) AddNodes(keys []lib.HexBytes) (p *NodesResponse, err lib.ErrorI) {
	p = new(NodesResponse)
	err = c.nodesRequest(lib.RequestAdd, NodesRequest{ValidatorKeys: keys}, p)
	return
}

func (c *Client) UpNodes(keys []lib.HexBytes, status lib.ValidatorStatus) (p *NodesResponse, err lib.ErrorI) {
	p = new(NodesResponse)
	err = c.nodesRequest(lib.RequestUp, NodesRequest{ValidatorKeys: keys, Status: &status}, p)
	return
}

func (c *Client) DelNodes(keys []lib.HexBytes) (p *NodesResponse, err lib.ErrorI) {
	p = new(NodesResponse)
	err = c.nodesRequest(lib.RequestDel, NodesRequest{ValidatorKeys: keys}, p)
	return
}

func (c *Client) GetNodes(keys []lib.HexBytes) (p *KeysResponse, err lib.ErrorI) {
	p = new(KeysResponse)
	err = c.nodesRequest(lib.RequestGet, NodesRequest{ValidatorKeys: keys}, p)
	return
}

func (c *Client) WatchList() (p *WatchListResponse, err lib.ErrorI) {
	p = new(WatchListResponse)
	err = c.get(WatchListRouteName, p)
	return
}

func (c *Client) nodesRequest(request lib.RequestType, req NodesRequest, ptr any) lib.ErrorI {
	bz, err := lib.MarshalJSON(req)
	if err != nil {
		return err
	}
	return c.post(NodesPath(request.String()), bz, ptr)
}

func (c *Client) url(routeName string) string {
	return c.rpcURL + routePaths[routeName].Path
}

func (c *Client) post(path string, json []byte, ptr any) lib.ErrorI {
	resp, err := c.client.Post(c.rpcURL+path, ApplicationJSON, bytes.NewBuffer(json))
	if err != nil {
		return ErrPostRequest(err)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) get(routeName string, ptr any) lib.ErrorI {
	resp, err := c.client.Get(c.url(routeName))
	if err != nil {
		return ErrGetRequest(err)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) unmarshal(resp *http.Response, ptr any) lib.ErrorI {
	defer func() { _ = resp.Body.Close() }()
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrReadBody(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrHttpStatus(resp.Status, resp.StatusCode, bz)
	}
	return lib.UnmarshalJSON(bz, ptr)
}
