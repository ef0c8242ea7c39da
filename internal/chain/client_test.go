package chain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	params string
}

func fakeCaller(results map[string]string, calls *[]recordedCall) Caller {
	return CallerFunc(func(_ context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
		*calls = append(*calls, recordedCall{method, string(params)})
		result, ok := results[method]
		if !ok {
			return nil, errors.New("unexpected method " + method)
		}
		return json.RawMessage(result), nil
	})
}

func TestClient_PendingNonceAt(t *testing.T) {
	var calls []recordedCall
	c := NewClient(fakeCaller(map[string]string{"eth_getTransactionCount": `"0x7"`}, &calls))

	account := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	nonce, err := c.PendingNonceAt(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	require.Len(t, calls, 1)
	assert.JSONEq(t, `["0x00000000000000000000000000000000000000aa","pending"]`, calls[0].params)
}

func TestClient_SuggestGasPrice(t *testing.T) {
	var calls []recordedCall
	c := NewClient(fakeCaller(map[string]string{"eth_gasPrice": `"0x3b9aca00"`}, &calls))

	price, err := c.SuggestGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), price)
	assert.Equal(t, "[]", calls[0].params)
}

func TestClient_EstimateGas(t *testing.T) {
	var calls []recordedCall
	c := NewClient(fakeCaller(map[string]string{"eth_estimateGas": `"0x5208"`}, &calls))

	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	gas, err := c.EstimateGas(context.Background(), ethereum.CallMsg{
		From: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		To:   &to,
		Data: []byte{0xde, 0xad},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)

	var params []map[string]string
	require.NoError(t, json.Unmarshal([]byte(calls[0].params), &params))
	require.Len(t, params, 1)
	assert.Equal(t, "0xdead", params[0]["data"])
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", params[0]["to"])
	_, hasValue := params[0]["value"]
	assert.False(t, hasValue)
}

func TestClient_SendRawTransaction(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	var calls []recordedCall
	c := NewClient(fakeCaller(map[string]string{"eth_sendRawTransaction": `"` + hash + `"`}, &calls))

	got, err := c.SendRawTransaction(context.Background(), "0xf86c01")
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(hash), got)
	assert.JSONEq(t, `["0xf86c01"]`, calls[0].params)
}

func TestClient_SendRawTransactionRejectsNonHex(t *testing.T) {
	var calls []recordedCall
	c := NewClient(fakeCaller(nil, &calls))

	_, err := c.SendRawTransaction(context.Background(), "not-hex")
	assert.Error(t, err)
	assert.Empty(t, calls)
}

func TestClient_PropagatesCallErrors(t *testing.T) {
	var calls []recordedCall
	c := NewClient(fakeCaller(map[string]string{}, &calls))

	_, err := c.PendingNonceAt(context.Background(), common.Address{})
	assert.Error(t, err)
}
