package remote

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/cart-sync/internal/domain"
)

const (
	DefaultProductName  = "상품명"
	DefaultProductImage = "https://placehold.co/100x100/png"
)

// Fallback order per field. The first key holding a non-zero value wins.
var (
	productIDKeys    = []string{"id", "itemId", "productId", "item_id", "product_id"}
	productNameKeys  = []string{"title", "name", "productName", "itemName"}
	productImageKeys = []string{"mainImageUrl", "imageUrl", "productImage", "image", "thumbnail"}
	priceKeys        = []string{"price", "unitPrice", "originalPrice"}
	quantityKeys     = []string{"quantity", "qty", "count"}
	discountKeys     = []string{"discountPercent", "discountRate", "discount"}
	optionKeys       = []string{"option"}
	colorKeys        = []string{"color", "colour"}
	sizeKeys         = []string{"size"}
)

// NormalizeRecord maps a backend record onto a cart line. Records without a
// usable identifier are rejected.
func NormalizeRecord(r Record) (domain.CartLine, bool) {
	id := firstString(r, productIDKeys)
	if id == "" {
		return domain.CartLine{}, false
	}

	line := domain.CartLine{
		ProductID:    id,
		ProductName:  firstString(r, productNameKeys),
		ProductImage: firstString(r, productImageKeys),
		Option:       firstString(r, optionKeys),
		Color:        firstString(r, colorKeys),
		Size:         firstString(r, sizeKeys),
	}
	if line.ProductName == "" {
		line.ProductName = DefaultProductName
	}
	if line.ProductImage == "" {
		line.ProductImage = DefaultProductImage
	}

	price, _ := firstNumber(r, priceKeys)
	line.Price = domain.PriceFromFloat(price)

	qty, _ := firstNumber(r, quantityKeys)
	line.Quantity = domain.QuantityFromFloat(qty)

	line.DiscountRate, _ = firstNumber(r, discountKeys)
	return line, true
}

// NormalizeRecords drops records NormalizeRecord rejects and keeps order.
func NormalizeRecords(records []Record) domain.Snapshot {
	out := make(domain.Snapshot, 0, len(records))
	for _, r := range records {
		if line, ok := NormalizeRecord(r); ok {
			out = append(out, line)
		}
	}
	return out
}

func firstString(r Record, keys []string) string {
	for _, k := range keys {
		if s := stringValue(r[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(r Record, keys []string) (float64, bool) {
	for _, k := range keys {
		if n, ok := numberValue(r[k]); ok && n != 0 {
			return n, true
		}
	}
	return 0, false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil && !math.IsNaN(n) && !math.IsInf(n, 0)
	default:
		return 0, false
	}
}
