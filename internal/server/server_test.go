package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletlink/internal/config"
	"walletlink/internal/jsonrpc"
	"walletlink/internal/ws"
)

const txHash = "0x00000000000000000000000000000000000000000000000000000000000000ff"

// fakeNode answers batched calls by method and records what it saw
type fakeNode struct {
	posts atomic.Int32
	mu    sync.Mutex
	raw   []string
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.posts.Add(1)
	body, _ := io.ReadAll(r.Body)

	var reqs []*jsonrpc.Request
	if err := json.Unmarshal(body, &reqs); err != nil {
		http.Error(w, "expected batch", http.StatusBadRequest)
		return
	}

	resps := make([]*jsonrpc.Response, 0, len(reqs))
	for _, req := range reqs {
		var result string
		switch req.Method {
		case "eth_blockNumber":
			result = `"0x5"`
		case "eth_getBalance":
			result = `"0x10"`
		case "eth_getTransactionCount":
			result = `"0x7"`
		case "eth_gasPrice":
			result = `"0x3b9aca00"`
		case "eth_estimateGas":
			result = `"0x5208"`
		case "eth_sendRawTransaction":
			var params []string
			json.Unmarshal(req.Params, &params)
			n.mu.Lock()
			n.raw = append(n.raw, params...)
			n.mu.Unlock()
			result = `"` + txHash + `"`
		default:
			resps = append(resps, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrMethodNotFound))
			continue
		}
		resps = append(resps, jsonrpc.NewResponseRaw(req.ID, json.RawMessage(result)))
	}
	data, _ := jsonrpc.MarshalBatchResponse(resps)
	w.Write(data)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *fakeNode) {
	t.Helper()
	node := &fakeNode{}
	nodeSrv := httptest.NewServer(node)
	t.Cleanup(nodeSrv.Close)

	cfg := &config.Config{
		Host:             "127.0.0.1",
		Port:             8645,
		LogLevel:         "info",
		PublicURL:        "http://walletlink.test",
		RPCURL:           nodeSrv.URL,
		RequestTimeout:   5000,
		ChainID:          config.ChainCeloAlfajores,
		BatchWait:        20,
		StatsLogInterval: 0,
		Wallet: config.WalletConfig{
			DeepLinkURL: config.DefaultDeepLinkURL,
			DappName:    "Centro",
		},
		Correlation: config.CorrelationConfig{Mode: config.CorrelationKeyed, PollInterval: 5, Timeout: 5000},
		Store:       config.StoreConfig{Backend: config.StoreMemory, Size: 16, TTL: 60},
	}

	s, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.Stop(context.Background())
	})
	return s, srv, node
}

func rpc(t *testing.T, srv *httptest.Server, body string) []byte {
	t.Helper()
	resp, err := http.Post(srv.URL+"/rpc", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}

func TestServer_ChainIDNeverReachesNode(t *testing.T) {
	_, srv, node := newTestServer(t)

	data := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"eth_chainId","params":[]}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":"0xaef3"}`, string(data))
	assert.Equal(t, int32(0), node.posts.Load())
}

func TestServer_BatchesConcurrentCalls(t *testing.T) {
	_, srv, node := newTestServer(t)

	data := rpc(t, srv, `[
		{"jsonrpc":"2.0","id":"a","method":"eth_getBalance","params":["0x00000000000000000000000000000000000000aa","latest"]},
		{"jsonrpc":"2.0","id":"b","method":"eth_blockNumber","params":[]}
	]`)

	responses, _, err := jsonrpc.ParseBatchResponse(data)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, `"0x10"`, string(responses[0].Result))
	assert.Equal(t, `"0x5"`, string(responses[1].Result))
	assert.Equal(t, int32(1), node.posts.Load())
}

func TestServer_Callback(t *testing.T) {
	_, srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/callback?type=account_address&requestId=login-1&status=success&address=0xaa")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/callback?ref=1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	_, srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "walletlink_")
}

// walletApp plays the wallet app: it reads the navigation pushed to the page,
// checks the request and redirects back to the callback. It runs off the test
// goroutine, so it only reports failures through assert.
func walletApp(t *testing.T, srv *httptest.Server, conn *websocket.Conn, respond func(q url.Values) string) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var nav ws.Navigation
	if !assert.NoError(t, conn.ReadJSON(&nav)) || !assert.Equal(t, ws.NavigateType, nav.Type) {
		return
	}

	link, err := url.Parse(nav.URL)
	if !assert.NoError(t, err) {
		return
	}
	q := link.Query()
	assert.Equal(t, "Centro", q.Get("dappName"))
	assert.Equal(t, "http://walletlink.test/callback", q.Get("callback"))

	resp, err := http.Get(srv.URL + "/callback?" + respond(q))
	if !assert.NoError(t, err) {
		return
	}
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func dialFeed(t *testing.T, s *Server, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestServer_RequestAccounts(t *testing.T) {
	s, srv, _ := newTestServer(t)
	conn := dialFeed(t, s, srv)

	go walletApp(t, srv, conn, func(q url.Values) string {
		assert.Equal(t, "account_address", q.Get("type"))
		return url.Values{
			"type":      {"account_address"},
			"requestId": {q.Get("requestId")},
			"status":    {"success"},
			"address":   {"0x00000000000000000000000000000000000000aa"},
		}.Encode()
	})

	data := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"eth_requestAccounts"}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":["0x00000000000000000000000000000000000000aa"]}`, string(data))

	data = rpc(t, srv, `{"jsonrpc":"2.0","id":2,"method":"eth_accounts"}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":["0x00000000000000000000000000000000000000aa"]}`, string(data))
}

func TestServer_SendTransaction(t *testing.T) {
	s, srv, node := newTestServer(t)
	conn := dialFeed(t, s, srv)

	signedCh := make(chan []map[string]any, 1)
	go walletApp(t, srv, conn, func(q url.Values) string {
		assert.Equal(t, "sign_tx", q.Get("type"))
		var txs []map[string]any
		raw, err := base64.StdEncoding.DecodeString(q.Get("txs"))
		if assert.NoError(t, err) {
			json.Unmarshal(raw, &txs)
		}
		signedCh <- txs
		return url.Values{
			"type":      {"sign_tx"},
			"requestId": {q.Get("requestId")},
			"status":    {"success"},
			"rawTxs":    {"0xf86c07", "0xf86c08"},
		}.Encode()
	})

	tx := `{"from":"0x00000000000000000000000000000000000000aa","to":"0x00000000000000000000000000000000000000bb","data":"0x01"}`
	data := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"eth_sendTransaction","params":[`+tx+`,`+tx+`]}`)

	resp, err := jsonrpc.ParseResponse(data)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Equal(t, `"`+txHash+`"`, string(resp.Result))

	var signed []map[string]any
	select {
	case signed = <-signedCh:
	case <-time.After(time.Second):
		t.Fatal("wallet never saw the signing request")
	}
	require.Len(t, signed, 2)
	assert.Equal(t, float64(7), signed[0]["nonce"])
	assert.Equal(t, float64(8), signed[1]["nonce"])
	assert.Equal(t, float64(21000), signed[0]["estimatedGas"])
	assert.Equal(t, "0x874069fa1eb16d44d622f2e0ca25eea172369bc1", signed[0]["feeCurrencyAddress"])

	node.mu.Lock()
	assert.Equal(t, []string{"0xf86c07"}, node.raw)
	node.mu.Unlock()
}

func TestServer_SendTransactionWithoutPage(t *testing.T) {
	_, srv, _ := newTestServer(t)

	data := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"eth_sendTransaction","params":[{"from":"0x00000000000000000000000000000000000000aa"}]}`)
	resp, err := jsonrpc.ParseResponse(data)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, ws.ErrNoClients.Error())
}

func TestServer_EstimateGasQuirk(t *testing.T) {
	_, srv, _ := newTestServer(t)

	data := rpc(t, srv, `{"jsonrpc":"2.0","id":1,"method":"eth_estimateGas","params":[{"from":"0x00000000000000000000000000000000000000aa"}]}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":"0x21000"}`, string(data))
}
