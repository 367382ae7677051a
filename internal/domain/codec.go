package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrCorruptSnapshot is returned when a stored blob is not a JSON array.
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot failed: %w", err)
	}
	return data, nil
}

// MaxQuantity caps quantities read from untrusted numbers.
const MaxQuantity = math.MaxInt32

// PriceFromFloat rounds to the nearest whole unit, saturating at the int64 range.
func PriceFromFloat(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(math.Round(f))
}

// QuantityFromFloat truncates to a whole quantity in [1, MaxQuantity].
func QuantityFromFloat(f float64) int {
	switch {
	case math.IsNaN(f) || f < 1:
		return 1
	case f >= MaxQuantity:
		return MaxQuantity
	}
	return int(f)
}

// DecodeSnapshot parses a stored blob. Elements that are not well-formed cart
// lines are dropped; a blob that is not an array yields ErrCorruptSnapshot.
// Fractional prices are rounded and quantities are floored at 1.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if raw == nil {
		// literal null
		return nil, ErrCorruptSnapshot
	}

	out := make(Snapshot, 0, len(raw))
	for _, elem := range raw {
		line, ok := decodeLine(elem)
		if ok {
			out = append(out, line)
		}
	}
	return out, nil
}

func decodeLine(elem json.RawMessage) (CartLine, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return CartLine{}, false
	}
	if !isKind(fields["productId"], '"') || !isKind(fields["productName"], '"') {
		return CartLine{}, false
	}
	if !isNumber(fields["price"]) || !isNumber(fields["quantity"]) {
		return CartLine{}, false
	}

	// shallower fields win, so price and quantity land here as floats
	var wire struct {
		CartLine
		Price    float64 `json:"price"`
		Quantity float64 `json:"quantity"`
	}
	if err := json.Unmarshal(elem, &wire); err != nil {
		return CartLine{}, false
	}
	line := wire.CartLine
	line.Price = PriceFromFloat(wire.Price)
	line.Quantity = QuantityFromFloat(wire.Quantity)
	return line, true
}

func isKind(v json.RawMessage, first byte) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == first
}

func isNumber(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && (v[0] == '-' || (v[0] >= '0' && v[0] <= '9'))
}
