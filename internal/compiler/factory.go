package compiler

import (
	"fmt"
	"strings"
)

// Kinds accepted by New.
const (
	KindEmbedded = "embedded"
	KindService  = "service"
	KindNone     = "none"
)

// New returns the compiler named by kind. The service kind needs an
// endpoint.
func New(kind, endpoint string) (Compiler, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindEmbedded:
		return NewEmbedded(), nil
	case KindService:
		if endpoint == "" {
			return nil, fmt.Errorf("compiler kind %q requires an endpoint", KindService)
		}
		return NewService(endpoint, nil), nil
	case KindNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown compiler kind %q", kind)
	}
}
