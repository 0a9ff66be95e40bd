package refund

import "errors"

var (
	// the product page is missing the season start date or the order has
	// no paid amount; the approver falls back to a custom amount
	ErrIncompleteProductData = errors.New("incomplete product data")
)
