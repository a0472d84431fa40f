package report

import (
	"github.com/vmihailenco/msgpack/v5"

	"momentumbt/internal/engine"
)

// Encode serializes a BacktestResult to msgpack for durable, compact
// storage. Encode then Decode must yield an equal structure.
func Encode(result *engine.BacktestResult) ([]byte, error) {
	return msgpack.Marshal(result)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*engine.BacktestResult, error) {
	var result engine.BacktestResult
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
