package provider

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/crosspost-social/crosspost/domain"
)

// ResolveIdentity normalizes a raw callback payload into a ProviderIdentity.
// The payload shape follows what the provider handshake returns:
//
//	{
//	  "uid": "78654",            // or numeric
//	  "user_info": {
//	    "name": "...", "nickname": "...", "email": "...",
//	    "description": "...", "image": "...", "urls": {...}
//	  },
//	  "credentials": {"token": "...", "secret": "..."}
//	}
//
// It is a pure transform: no lookups, no side effects. A payload without a
// uid fails with ErrMalformedCallback.
func ResolveIdentity(providerName string, payload map[string]any) (*domain.ProviderIdentity, error) {
	uid := stringify(payload["uid"])
	if uid == "" {
		return nil, fmt.Errorf("%w: provider %s", ErrMalformedCallback, providerName)
	}

	identity := &domain.ProviderIdentity{
		Provider: providerName,
		UID:      uid,
		Profile:  make(map[string]any),
	}

	if info, ok := payload["user_info"].(map[string]any); ok {
		identity.Name = stringify(info["name"])
		identity.Nickname = stringify(info["nickname"])
		identity.Email = stringify(info["email"])
		for k, v := range info {
			switch k {
			case "name", "nickname", "email":
			default:
				identity.Profile[k] = v
			}
		}
	}

	if creds, ok := payload["credentials"].(map[string]any); ok {
		identity.Token = stringify(creds["token"])
		identity.Secret = stringify(creds["secret"])
	}

	return identity, nil
}

// stringify renders the id forms providers actually emit (string, JSON
// number, native ints) as a canonical string. Anything else is treated as
// absent.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
