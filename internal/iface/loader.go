package iface

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrInterfaceUnavailable means the ABI source could not supply a usable
// interface for an address. Callers treat it as "cannot decode this contract".
var ErrInterfaceUnavailable = errors.New("interface unavailable")

// Source is the external ABI source. Addresses are passed in canonical
// 0x-prefixed lowercase hex.
type Source interface {
	// Implementation returns the implementation address when the contract is
	// a proxy, or "" otherwise.
	Implementation(ctx context.Context, address string) (string, error)
	// ABI returns the raw interface JSON array.
	ABI(ctx context.Context, address string) ([]byte, error)
}

// Loader fetches and normalizes interfaces, caching them per address.
type Loader struct {
	source Source
	cache  *Cache
	logger *zap.Logger
}

func NewLoader(source Source, cache *Cache, logger *zap.Logger) *Loader {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, cache: cache, logger: logger}
}

// CanonicalAddress renders a 20-byte address as 0x-prefixed lowercase hex.
func CanonicalAddress(raw []byte) (string, error) {
	if len(raw) != common.AddressLength {
		return "", fmt.Errorf("address must be %d bytes, got %d", common.AddressLength, len(raw))
	}
	return "0x" + hex.EncodeToString(raw), nil
}

// GetContractInterface returns the normalized interface for address,
// following proxy indirection to the implementation contract.
func (l *Loader) GetContractInterface(ctx context.Context, address common.Address) (*Interface, error) {
	if cached, ok := l.cache.Get(address); ok {
		return cached, nil
	}
	if l.source == nil {
		return nil, fmt.Errorf("%w: %s: abi source is nil", ErrInterfaceUnavailable, address.Hex())
	}

	queried := strings.ToLower(address.Hex())
	resolved := queried

	impl, err := l.source.Implementation(ctx, queried)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInterfaceUnavailable, address.Hex(), err)
	}

	var implAddr *common.Address
	if impl = strings.TrimSpace(impl); impl != "" {
		if !common.IsHexAddress(impl) {
			return nil, fmt.Errorf("%w: %s: invalid implementation address %q", ErrInterfaceUnavailable, address.Hex(), impl)
		}
		a := common.HexToAddress(impl)
		implAddr = &a
		resolved = strings.ToLower(a.Hex())
		l.logger.Debug("proxy resolved",
			zap.String("proxy", address.Hex()),
			zap.String("implementation", a.Hex()),
		)
	}

	raw, err := l.source.ABI(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInterfaceUnavailable, address.Hex(), err)
	}

	iface, err := New(address, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInterfaceUnavailable, address.Hex(), err)
	}
	iface.Implementation = implAddr

	for _, f := range iface.Filtered {
		l.logger.Debug("abi entry filtered",
			zap.String("address", address.Hex()),
			zap.String("signature", f.Entry.Signature()),
			zap.String("rule", string(f.Rule)),
		)
	}

	l.cache.Set(address, iface)
	return iface, nil
}
