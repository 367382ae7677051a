package domain

// CartLine is one (product, color, size) row of the cart with a price snapshot.
type CartLine struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductImage string  `json:"productImage"`
	Price        int64   `json:"price"`
	Quantity     int     `json:"quantity"`
	Option       string  `json:"option,omitempty"`
	Color        string  `json:"color,omitempty"`
	Size         string  `json:"size,omitempty"`
	DiscountRate float64 `json:"discountRate"`
}

// LineKey is the merge key for cart mutations. Absent color or size is "".
type LineKey struct {
	ProductID string
	Color     string
	Size      string
}

func NewLineKey(productID, color, size string) LineKey {
	return LineKey{ProductID: productID, Color: color, Size: size}
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Color: l.Color, Size: l.Size}
}

// Subtotal is price times quantity. Discounts are applied by display layers.
func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

// Snapshot is the ordered cart. Insertion order is the only order.
type Snapshot []CartLine

// Index returns the position of the line with the given key, or -1.
func (s Snapshot) Index(key LineKey) int {
	for i := range s {
		if s[i].Key() == key {
			return i
		}
	}
	return -1
}

func (s Snapshot) TotalPrice() int64 {
	var total int64
	for _, line := range s {
		total += line.Subtotal()
	}
	return total
}

// ItemCount counts units, not distinct lines.
func (s Snapshot) ItemCount() int {
	count := 0
	for _, line := range s {
		count += line.Quantity
	}
	return count
}

// Clone returns a copy that shares no backing array with s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Add merges line into the snapshot: quantities of an existing line with the
// same key accumulate, otherwise the line is appended.
func (s Snapshot) Add(line CartLine) Snapshot {
	if i := s.Index(line.Key()); i >= 0 {
		s[i].Quantity += line.Quantity
		return s
	}
	return append(s, line)
}

// Remove drops every line with the given key regardless of quantity.
func (s Snapshot) Remove(key LineKey) Snapshot {
	out := s[:0]
	for _, line := range s {
		if line.Key() != key {
			out = append(out, line)
		}
	}
	return out
}

// SetQuantity sets the quantity of the matching line, floored at 1.
// It reports whether a line matched.
func (s Snapshot) SetQuantity(key LineKey, quantity int) bool {
	i := s.Index(key)
	if i < 0 {
		return false
	}
	s[i].Quantity = max(1, quantity)
	return true
}
