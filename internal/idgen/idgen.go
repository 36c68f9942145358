package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes for generated identifiers
const (
	PrefixRequest        = "req_"
	PrefixBookingSession = "bks_"
	PrefixPayment        = "pay_"
	PrefixGatewayOrder   = "order_"
)

// NewRequest generates an outbound request ID with req_ prefix
func NewRequest() string {
	return PrefixRequest + uuid.New().String()
}

// NewBookingSession generates a booking session ID with bks_ prefix
func NewBookingSession() string {
	return PrefixBookingSession + uuid.New().String()
}

// NewPayment generates a gateway payment ID with pay_ prefix
func NewPayment() string {
	return PrefixPayment + compact()
}

// NewGatewayOrder generates a gateway order ID with order_ prefix
func NewGatewayOrder() string {
	return PrefixGatewayOrder + compact()
}

// New generates a generic UUID without prefix (for internal use only)
func New() string {
	return uuid.New().String()
}

// compact is a dashless UUID, the shape gateway ids take
func compact() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
