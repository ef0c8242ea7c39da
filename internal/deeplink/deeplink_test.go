package deeplink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletlink/internal/metrics"
)

type recordingNavigator struct {
	urls []string
	err  error
}

func (n *recordingNavigator) Navigate(_ context.Context, url string) error {
	n.urls = append(n.urls, url)
	return n.err
}

func newTestChannel(t *testing.T, nav Navigator) *Channel {
	t.Helper()
	ch, err := NewChannel(Config{
		DeepLinkURL: "celo://wallet/dappkit",
		DappName:    "Centro",
		CallbackURL: "https://dapp.example/callback",
		Navigator:   nav,
		Metrics:     metrics.New(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return ch
}

func TestNewRequestID(t *testing.T) {
	login := NewRequestID(KindAccountAddress)
	sign := NewRequestID(KindSignTx)

	assert.True(t, strings.HasPrefix(login, "login-"), login)
	assert.True(t, strings.HasPrefix(sign, "signTransaction-"), sign)
	assert.NotEqual(t, login, NewRequestID(KindAccountAddress))
}

func TestChannel_SendAuth(t *testing.T) {
	nav := &recordingNavigator{}
	ch := newTestChannel(t, nav)

	err := ch.Send(context.Background(), &Request{RequestID: "login-abc123", Kind: KindAccountAddress})
	require.NoError(t, err)
	require.Len(t, nav.urls, 1)

	u, err := url.Parse(nav.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "celo", u.Scheme)
	assert.Equal(t, "wallet", u.Host)
	assert.Equal(t, "/dappkit", u.Path)

	q := u.Query()
	assert.Equal(t, "account_address", q.Get("type"))
	assert.Equal(t, "login-abc123", q.Get("requestId"))
	assert.Equal(t, "Centro", q.Get("dappName"))
	assert.Equal(t, "https://dapp.example/callback", q.Get("callback"))
	assert.Empty(t, q.Get("txs"))
}

func TestChannel_SendSignEncodesTransactions(t *testing.T) {
	nav := &recordingNavigator{}
	ch := newTestChannel(t, nav)

	payload := []map[string]any{{"from": "0x01", "nonce": 7}}
	err := ch.Send(context.Background(), &Request{
		RequestID:   "signTransaction-1",
		Kind:        KindSignTx,
		CallbackURL: "https://other.example/cb?type=sign_tx&requestId=old&status=success&rawTxs=0xaa",
		Payload:     payload,
	})
	require.NoError(t, err)

	u, err := url.Parse(nav.urls[0])
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "https://other.example/cb", q.Get("callback"))

	raw, err := base64.StdEncoding.DecodeString(q.Get("txs"))
	require.NoError(t, err)
	var txs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, float64(7), txs[0]["nonce"])
}

func TestChannel_SendNavigationFailure(t *testing.T) {
	nav := &recordingNavigator{err: errors.New("no page connected")}
	ch := newTestChannel(t, nav)

	err := ch.Send(context.Background(), &Request{RequestID: "login-1", Kind: KindAccountAddress})
	assert.ErrorIs(t, err, nav.err)
}

func TestChannel_RequiresRequestID(t *testing.T) {
	ch := newTestChannel(t, &recordingNavigator{})
	_, err := ch.Encode(&Request{Kind: KindAccountAddress})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *Response
		wantErr error
	}{
		{
			name: "auth success",
			url:  "https://dapp.example/callback?type=account_address&requestId=login-abc123&status=success&address=0xabc&phoneNumber=%2B15555555555&pepper=p",
			want: &Response{RequestID: "login-abc123", Kind: KindAccountAddress, Status: StatusSuccess, Address: "0xabc", PhoneNumber: "+15555555555", Pepper: "p"},
		},
		{
			name: "sign keeps every raw tx",
			url:  "https://dapp.example/callback?type=sign_tx&requestId=signTransaction-1&status=success&rawTxs=0xaa&rawTxs=0xbb",
			want: &Response{RequestID: "signTransaction-1", Kind: KindSignTx, Status: StatusSuccess, RawTxs: []string{"0xaa", "0xbb"}},
		},
		{
			name: "rejected",
			url:  "https://dapp.example/callback?type=sign_tx&requestId=signTransaction-1&status=unauthorised",
			want: &Response{RequestID: "signTransaction-1", Kind: KindSignTx, Status: StatusUnauthorised},
		},
		{
			name:    "missing type",
			url:     "https://dapp.example/callback?requestId=login-1&status=success",
			wantErr: ErrDecode,
		},
		{
			name:    "missing request id",
			url:     "https://dapp.example/callback?type=account_address",
			wantErr: ErrDecode,
		},
		{
			name:    "no query",
			url:     "https://dapp.example/callback",
			wantErr: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.url)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			tt.want.URL = tt.url
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_MultipleSegmentsMatchSingleSegment(t *testing.T) {
	single := "https://dapp.example/?ref=1&type=account_address&requestId=login-abc123&status=success&address=0xabc"
	split := "https://dapp.example/?ref=1?type=account_address&requestId=login-abc123??status=success&address=0xabc"

	a, err := Decode(single)
	require.NoError(t, err)
	b, err := Decode(split)
	require.NoError(t, err)

	a.URL, b.URL = "", ""
	assert.Equal(t, a, b)
}

func TestDecode_LaterSegmentsOverride(t *testing.T) {
	raw := "https://dapp.example/?type=account_address&requestId=login-old&status=unauthorised?requestId=login-new&status=success"

	resp, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "login-new", resp.RequestID)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.True(t, resp.OK())
}

func TestStripResponseParams(t *testing.T) {
	tests := []struct {
		name string
		url  string
		keys []string
		want string
	}{
		{
			name: "auth params removed, others kept",
			url:  "https://dapp.example/app?ref=abc&type=account_address&requestId=login-1&status=success&address=0x1&phoneNumber=1&pepper=p",
			keys: AuthResponseParams,
			want: "https://dapp.example/app?ref=abc",
		},
		{
			name: "everything removed",
			url:  "https://dapp.example/app?type=sign_tx&requestId=s-1&status=success&rawTxs=0xaa?rawTxs=0xbb",
			keys: SignResponseParams,
			want: "https://dapp.example/app",
		},
		{
			name: "no query",
			url:  "https://dapp.example/app",
			keys: AuthResponseParams,
			want: "https://dapp.example/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripResponseParams(tt.url, tt.keys))
		})
	}
}

func TestResponseParams(t *testing.T) {
	assert.Equal(t, SignResponseParams, ResponseParams(KindSignTx))
	assert.Equal(t, AuthResponseParams, ResponseParams(KindAccountAddress))
}
