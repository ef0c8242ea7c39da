package deeplink

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Kind is the request kind discriminator carried in the "type" parameter
type Kind string

const (
	KindAccountAddress Kind = "account_address"
	KindSignTx         Kind = "sign_tx"
)

// idPrefix returns the request id prefix used for kind
func (k Kind) idPrefix() string {
	switch k {
	case KindAccountAddress:
		return "login"
	case KindSignTx:
		return "signTransaction"
	default:
		return string(k)
	}
}

// Status is the outcome reported by the wallet
type Status string

const (
	StatusSuccess      Status = "success"
	StatusUnauthorised Status = "unauthorised"
)

// Query parameter names shared by requests and responses
const (
	ParamType        = "type"
	ParamRequestID   = "requestId"
	ParamStatus      = "status"
	ParamDappName    = "dappName"
	ParamCallback    = "callback"
	ParamTxs         = "txs"
	ParamAddress     = "address"
	ParamPhoneNumber = "phoneNumber"
	ParamPepper      = "pepper"
	ParamRawTxs      = "rawTxs"
)

// Response parameters left on a callback URL by each kind
var (
	AuthResponseParams = []string{ParamRequestID, ParamType, ParamStatus, ParamAddress, ParamPhoneNumber, ParamPepper}
	SignResponseParams = []string{ParamRequestID, ParamType, ParamStatus, ParamRawTxs}
)

// ResponseParams returns the response parameters for kind
func ResponseParams(kind Kind) []string {
	if kind == KindSignTx {
		return SignResponseParams
	}
	return AuthResponseParams
}

// ErrDecode is returned when a callback URL lacks the mandatory fields
var ErrDecode = errors.New("no wallet response in url")

// Request is an outbound wallet request
type Request struct {
	RequestID   string
	Kind        Kind
	CallbackURL string // empty uses the channel default
	Payload     any    // JSON encoded into "txs" for sign requests
}

// Response is a decoded wallet callback
type Response struct {
	RequestID   string
	Kind        Kind
	Status      Status
	Address     string
	PhoneNumber string
	Pepper      string
	RawTxs      []string
	URL         string
}

// OK reports whether the wallet approved the request
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

// NewRequestID returns a fresh request id such as "login-3f2a9c81d0b4"
func NewRequestID(kind Kind) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return kind.idPrefix() + "-" + id[:12]
}

// Navigator hands a deep link to whatever can open it
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(ctx context.Context, url string) error

// Navigate calls f
func (f NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return f(ctx, url)
}
