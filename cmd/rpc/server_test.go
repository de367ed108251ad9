package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/canopy-network/spectroscope/module/builtin"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher records every batch and answers with a fixed report
type fakeDispatcher struct {
	report module.Report

	mu      sync.Mutex
	batches []*lib.Batch
}

func (f *fakeDispatcher) Dispatch(_ context.Context, batch *lib.Batch) module.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return f.report
}

func newTestServer(t *testing.T, d BatchDispatcher, watch *lib.WatchList) (*Client, *httptest.Server) {
	config := lib.DefaultRPCConfig()
	responder := NewResponder(config, d, watch, lib.NewNullLogger())
	ts := httptest.NewServer(NewServer(responder, config, lib.NewNullLogger()).Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL), ts
}

func hexKeys(keys ...string) (list []lib.HexBytes) {
	for _, k := range keys {
		bz, err := lib.StringToBytes(k)
		if err != nil {
			panic(err)
		}
		list = append(list, bz)
	}
	return
}

func TestCountResponse(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		results  []lib.Result
		expected NodesResponse
	}{
		{
			name:     "no results",
			detail:   "no plugin produced a numeric result",
			expected: NodesResponse{},
		},
		{
			name:     "only keys",
			detail:   "non numeric results are ignored",
			results:  []lib.Result{lib.KeysResult{Keys: hexKeys("aa")}},
			expected: NodesResponse{},
		},
		{
			name:     "nothing changed",
			detail:   "a numeric result of zero is a 200",
			results:  []lib.Result{lib.CountResult{Count: 0}},
			expected: NodesResponse{Status: 200},
		},
		{
			name:     "summed",
			detail:   "counts of every plugin are summed and a change is a 201",
			results:  []lib.Result{lib.CountResult{Count: 2}, "opaque", lib.CountResult{Count: 1}},
			expected: NodesResponse{Status: 201, Count: 3},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, CountResponse(test.results), test.detail)
		})
	}
}

func TestDelWithoutPlugin(t *testing.T) {
	d := &fakeDispatcher{}
	client, _ := newTestServer(t, d, nil)
	resp, err := client.DelNodes(hexKeys("aa"))
	require.NoError(t, err)
	require.Equal(t, NodesResponse{Status: 0, Count: 0}, *resp)
	// the command became a single database update without identity
	require.Len(t, d.batches, 1)
	batch := d.batches[0]
	require.Nil(t, batch.Validator)
	require.Nil(t, batch.Timestamp)
	require.Equal(t, []lib.Update{lib.DatabaseUpdate{
		RequestType:   lib.RequestDel,
		Status:        DefaultDelStatus,
		ValidatorKeys: hexKeys("aa"),
	}}, batch.Updates)
}

func TestGetAll(t *testing.T) {
	d := &fakeDispatcher{report: module.Report{Results: []lib.Result{lib.KeysResult{Keys: hexKeys("01", "02")}}}}
	client, ts := newTestServer(t, d, nil)
	resp, err := client.GetNodes(nil)
	require.NoError(t, err)
	require.Equal(t, hexKeys("01", "02"), resp.ValidatorKeys)
	// an empty body is an empty request
	r, e := http.Post(ts.URL+NodesPath("get"), ApplicationJSON, nil)
	require.NoError(t, e)
	defer r.Body.Close()
	var body map[string][]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	require.Equal(t, map[string][]string{"validatorKeys": {"01", "02"}}, body)
}

func TestUpNodes(t *testing.T) {
	d := &fakeDispatcher{report: module.Report{Results: []lib.Result{lib.CountResult{Request: lib.RequestUp, Count: 1}}}}
	client, ts := newTestServer(t, d, nil)
	resp, err := client.UpNodes(hexKeys("aa"), lib.StatusExited)
	require.NoError(t, err)
	require.Equal(t, NodesResponse{Status: 201, Count: 1}, *resp)
	require.Equal(t, lib.StatusExited, d.batches[0].Updates[0].(lib.DatabaseUpdate).Status)
	// the status is required
	r, e := http.Post(ts.URL+NodesPath("up"), ApplicationJSON, bytes.NewBufferString(`{"validatorKeys":["aa"]}`))
	require.NoError(t, e)
	r.Body.Close()
	require.Equal(t, http.StatusBadRequest, r.StatusCode)
	require.Len(t, d.batches, 1)
}

func TestInvalidParams(t *testing.T) {
	d := &fakeDispatcher{}
	_, ts := newTestServer(t, d, nil)
	tests := []struct {
		name   string
		detail string
		path   string
		body   string
	}{
		{name: "malformed", detail: "the body is not json", path: NodesPath("add"), body: "{"},
		{name: "bad key", detail: "keys must be hex", path: NodesPath("del"), body: `{"validatorKeys":["zz"]}`},
		{name: "bad status", detail: "statuses must be known", path: NodesPath("up"), body: `{"validatorKeys":["aa"],"status":"NAPPING"}`},
		{name: "unknown command", detail: "only add, up, del and get exist", path: NodesPath("put"), body: `{"validatorKeys":["aa"]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r, err := http.Post(ts.URL+test.path, ApplicationJSON, bytes.NewBufferString(test.body))
			require.NoError(t, err)
			r.Body.Close()
			require.Equal(t, http.StatusBadRequest, r.StatusCode, test.detail)
		})
	}
	require.Empty(t, d.batches)
}

func TestVersion(t *testing.T) {
	client, _ := newTestServer(t, &fakeDispatcher{}, nil)
	v, err := client.Version()
	require.NoError(t, err)
	require.Equal(t, SoftwareVersion, *v)
}

func TestCommandsSyncWatchList(t *testing.T) {
	registry, err := builtin.NewRegistry(module.Deps{Logger: lib.NewNullLogger(), DataDirPath: t.TempDir()})
	require.NoError(t, err)
	modules, err := registry.RegisterAll([]lib.ModuleConfig{
		{Type: "db_update"},
		{Type: "badgerdb", Options: map[string]any{"in_memory": true}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = modules.Close() })
	watch := lib.NewWatchList(lib.NewNullLogger())
	client, _ := newTestServer(t, module.NewDispatcher(modules, lib.DefaultDispatchConfig(), lib.NewNullLogger()), watch)

	resp, e := client.AddNodes(hexKeys("02", "01"))
	require.NoError(t, e)
	require.Equal(t, NodesResponse{Status: 201, Count: 2}, *resp)
	require.Equal(t, hexKeys("01", "02"), watch.Snapshot())

	// re-adding changes nothing
	resp, e = client.AddNodes(hexKeys("01"))
	require.NoError(t, e)
	require.Equal(t, NodesResponse{Status: 200, Count: 0}, *resp)

	keys, e := client.GetNodes(nil)
	require.NoError(t, e)
	require.Equal(t, hexKeys("01", "02"), keys.ValidatorKeys)

	resp, e = client.DelNodes(hexKeys("01"))
	require.NoError(t, e)
	require.Equal(t, NodesResponse{Status: 201, Count: 1}, *resp)

	list, e := client.WatchList()
	require.NoError(t, e)
	require.Equal(t, WatchListResponse{Count: 1, ValidatorKeys: hexKeys("02")}, *list)
}

func TestSeedWatchList(t *testing.T) {
	d := &fakeDispatcher{report: module.Report{Results: []lib.Result{lib.KeysResult{Keys: hexKeys("0a", "0b")}}}}
	watch := lib.NewWatchList(lib.NewNullLogger(), hexKeys("ff")...)
	r := NewResponder(lib.DefaultRPCConfig(), d, watch, lib.NewNullLogger())
	require.Equal(t, 2, r.SeedWatchList(context.Background()))
	require.Equal(t, hexKeys("0a", "0b"), watch.Snapshot())
	require.Equal(t, lib.RequestGet, d.batches[0].Updates[0].(lib.DatabaseUpdate).RequestType)
}

func TestSyncDisabled(t *testing.T) {
	d := &fakeDispatcher{report: module.Report{Results: []lib.Result{lib.CountResult{Count: 1}}}}
	watch := lib.NewWatchList(lib.NewNullLogger())
	config := lib.DefaultRPCConfig()
	config.SyncWatchList = false
	r := NewResponder(config, d, watch, lib.NewNullLogger())
	require.Equal(t, NodesResponse{Status: 201, Count: 1}, r.AddNodes(context.Background(), hexKeys("aa")))
	require.Zero(t, watch.Count())
}

func TestExecute(t *testing.T) {
	status := lib.StatusSlashing
	tests := []struct {
		name     string
		detail   string
		request  string
		status   *lib.ValidatorStatus
		kind     lib.RequestType
		applied  lib.ValidatorStatus
		expected any
	}{
		{name: "add", detail: "a mutating command answers a count", request: "add", kind: lib.RequestAdd, applied: DefaultAddStatus, expected: NodesResponse{Status: 201, Count: 1}},
		{name: "del", detail: "the request name is case insensitive", request: "DEL", kind: lib.RequestDel, applied: DefaultDelStatus, expected: NodesResponse{Status: 201, Count: 1}},
		{name: "up", detail: "up applies the supplied status", request: "up", status: &status, kind: lib.RequestUp, applied: lib.StatusSlashing, expected: NodesResponse{Status: 201, Count: 1}},
		{name: "get", detail: "a query answers keys", request: "get", kind: lib.RequestGet, applied: DefaultGetStatus, expected: KeysResponse{ValidatorKeys: hexKeys("aa")}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := &fakeDispatcher{report: module.Report{Results: []lib.Result{lib.CountResult{Count: 1}, lib.KeysResult{Keys: hexKeys("aa")}}}}
			r := NewResponder(lib.DefaultRPCConfig(), d, nil, lib.NewNullLogger())
			got, err := r.Execute(context.Background(), test.request, hexKeys("aa"), test.status)
			require.NoError(t, err, test.detail)
			require.Equal(t, test.expected, got, test.detail)
			u := d.batches[0].Updates[0].(lib.DatabaseUpdate)
			require.Equal(t, test.kind, u.RequestType, test.detail)
			require.Equal(t, test.applied, u.Status, test.detail)
		})
	}
}

func TestExecuteRejects(t *testing.T) {
	d := &fakeDispatcher{}
	r := NewResponder(lib.DefaultRPCConfig(), d, nil, lib.NewNullLogger())
	_, err := r.Execute(context.Background(), "put", nil, nil)
	require.True(t, lib.IsCode(err, lib.MainModule, lib.CodeUnknownRequest))
	_, err = r.Execute(context.Background(), "up", hexKeys("aa"), nil)
	require.True(t, lib.IsCode(err, lib.RPCModule, lib.CodeInvalidParams))
	require.Empty(t, d.batches)
}

func TestMaxConnections(t *testing.T) {
	config := lib.DefaultRPCConfig()
	config.RPCPort, config.MaxConnections = "0", 1
	s := NewServer(NewResponder(config, &fakeDispatcher{}, nil, lib.NewNullLogger()), config, lib.NewNullLogger())
	s.Start()
	t.Cleanup(func() { _ = s.Stop() })
	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	url := "http://127.0.0.1:" + port + VersionRoutePath
	// an idle connection holds the only slot
	held, err := net.Dial("tcp", "127.0.0.1:"+port)
	require.NoError(t, err)
	c := http.Client{Timeout: 100 * time.Millisecond}
	_, err = c.Get(url)
	require.Error(t, err)
	// releasing it lets the next request through
	require.NoError(t, held.Close())
	c.Timeout = 2 * time.Second
	resp, err := c.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
