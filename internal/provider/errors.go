package provider

import "errors"

var (
	ErrProviderNotFound  = errors.New("provider not registered")
	ErrMalformedCallback = errors.New("callback payload is missing a uid")
	ErrExchangeFailed    = errors.New("failed to exchange authorization code")
	ErrFetchFailed       = errors.New("failed to fetch data from provider")
	ErrPublishFailed     = errors.New("provider rejected the publish request")
	ErrMisconfigured     = errors.New("provider is misconfigured")
)
