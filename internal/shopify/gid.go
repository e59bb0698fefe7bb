package shopify

import (
	"fmt"
	"strconv"
	"strings"
)

// Resource types used in global ids
const (
	GIDProduct        = "Product"
	GIDProductVariant = "ProductVariant"
	GIDInventoryItem  = "InventoryItem"
	GIDLocation       = "Location"
	GIDOrder          = "Order"
)

// GID builds gid://shopify/{type}/{id}.
func GID(resource string, id int64) string {
	return fmt.Sprintf("gid://shopify/%s/%d", resource, id)
}

// ParseGID extracts the numeric id from a global id (gid://shopify/Product/123 -> 123).
// A bare numeric string is accepted too.
func ParseGID(gid string) (int64, error) {
	s := gid
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid global id %q", gid)
	}
	return n, nil
}
