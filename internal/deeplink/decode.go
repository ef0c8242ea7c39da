package deeplink

import (
	"net/url"
	"strings"
)

// splitURL returns the part before the first '?' and the query segments after it
func splitURL(raw string) (string, []string) {
	base, rest, found := strings.Cut(raw, "?")
	if !found {
		return raw, nil
	}
	return base, strings.Split(rest, "?")
}

// MergedQuery parses every '?'-separated query segment of raw in order.
// A key set in a later segment replaces all of its earlier values.
func MergedQuery(raw string) url.Values {
	merged := url.Values{}
	_, segments := splitURL(raw)
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		// Malformed pairs are skipped; the well-formed ones are kept.
		values, _ := url.ParseQuery(segment)
		for key, vs := range values {
			merged[key] = vs
		}
	}
	return merged
}

// Decode parses a wallet callback URL. It returns ErrDecode when the
// mandatory type and requestId parameters are absent.
func Decode(raw string) (*Response, error) {
	q := MergedQuery(raw)
	if q.Get(ParamType) == "" || q.Get(ParamRequestID) == "" {
		return nil, ErrDecode
	}

	resp := &Response{
		RequestID: q.Get(ParamRequestID),
		Kind:      Kind(q.Get(ParamType)),
		Status:    Status(q.Get(ParamStatus)),
		URL:       raw,
	}

	switch resp.Kind {
	case KindAccountAddress:
		resp.Address = q.Get(ParamAddress)
		resp.PhoneNumber = q.Get(ParamPhoneNumber)
		resp.Pepper = q.Get(ParamPepper)
	case KindSignTx:
		resp.RawTxs = q[ParamRawTxs]
	}

	return resp, nil
}

// StripResponseParams removes keys from every query segment of raw and
// returns the URL with the remaining parameters merged into one query.
func StripResponseParams(raw string, keys []string) string {
	base, segments := splitURL(raw)
	if segments == nil {
		return raw
	}

	q := MergedQuery(raw)
	for _, key := range keys {
		q.Del(key)
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}
