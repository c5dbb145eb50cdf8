package audio

import (
	"fmt"
	"strings"
)

// Backend names accepted by BackendByName.
const (
	BackendEbiten = "ebiten"
	BackendOto    = "oto"
	BackendNull   = "null"
	BackendManual = "manual"
)

// BackendByName resolves a CLI backend name.
func BackendByName(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendEbiten:
		return NewPlayer, nil
	case BackendOto:
		return NewOtoPlayer, nil
	case BackendNull, "headless":
		return NewNullPlayer, nil
	case BackendManual:
		return NewManualPlayer, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (expected ebiten|oto|null|manual)", name)
	}
}
