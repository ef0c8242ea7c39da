package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"walletlink/internal/correlator"
	"walletlink/internal/deeplink"
	"walletlink/internal/store"
)

// accountKey is the store key of the saved account
const accountKey = "walletlink/account"

// ErrNoAccount is returned when no account has been activated
var ErrNoAccount = errors.New("no wallet account")

// Account is the wallet account shared through an auth round trip
type Account struct {
	Address     common.Address `json:"address"`
	PhoneNumber string         `json:"phoneNumber,omitempty"`
}

// RoundTripper sends a wallet request and waits for the matching response
type RoundTripper interface {
	RoundTrip(ctx context.Context, sender correlator.Sender, req *deeplink.Request) (*deeplink.Response, error)
}

// Session tracks the account the wallet has shared
type Session struct {
	store      store.Store
	sender     correlator.Sender
	correlator RoundTripper
	logger     zerolog.Logger

	// one auth round trip at a time; later callers reuse its account
	activating chan struct{}
}

// NewSession creates a new Session
func NewSession(s store.Store, sender correlator.Sender, rt RoundTripper, logger zerolog.Logger) *Session {
	return &Session{
		store:      s,
		sender:     sender,
		correlator: rt,
		logger:     logger.With().Str("component", "wallet").Logger(),
		activating: make(chan struct{}, 1),
	}
}

// Account returns the saved account or ErrNoAccount
func (s *Session) Account(ctx context.Context) (*Account, error) {
	data, err := s.store.Get(ctx, accountKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, err
	}

	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to decode saved account: %w", err)
	}
	return &account, nil
}

// Activate returns the saved account, asking the wallet for one when
// there is none. A caller waiting behind another activation gives up when
// ctx is done.
func (s *Session) Activate(ctx context.Context) (*Account, error) {
	select {
	case s.activating <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.activating }()

	account, err := s.Account(ctx)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNoAccount) {
		return nil, err
	}

	req := &deeplink.Request{
		RequestID: deeplink.NewRequestID(deeplink.KindAccountAddress),
		Kind:      deeplink.KindAccountAddress,
	}
	s.logger.Info().Str("requestId", req.RequestID).Msg("requesting account")

	resp, err := s.correlator.RoundTrip(ctx, s.sender, req)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(resp.Address) {
		return nil, fmt.Errorf("wallet returned invalid address %q", resp.Address)
	}

	account = &Account{
		Address:     common.HexToAddress(resp.Address),
		PhoneNumber: resp.PhoneNumber,
	}
	data, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, accountKey, data, 0); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.logger.Info().Str("address", account.Address.Hex()).Msg("account activated")
	return account, nil
}

// Close forgets the saved account
func (s *Session) Close(ctx context.Context) error {
	if err := s.store.Delete(ctx, accountKey); err != nil {
		return err
	}
	s.logger.Info().Msg("session closed")
	return nil
}
