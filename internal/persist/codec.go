package persist

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes the record as MessagePack.
func Marshal(c Compound) ([]byte, error) {
	data, err := msgpack.Marshal(map[string]any(c))
	if err != nil {
		return nil, fmt.Errorf("persist: encode compound: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a MessagePack record produced by Marshal.
func Unmarshal(data []byte) (Compound, error) {
	var raw map[string]any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("persist: decode compound: %w", err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return Compound(raw), nil
}
