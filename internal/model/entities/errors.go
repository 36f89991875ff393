package entities

import "errors"

// Errors reported by the planning core. Callers match them with errors.Is;
// the returned error usually wraps one of these with more context.
var (
	// ErrInvalidArgument marks a caller contract violation, such as a
	// non-positive flow rate or a negative water budget.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDataIncomplete marks fetched data that cannot be used as is: a
	// forecast without exactly ForecastHours samples, or a plant without a
	// position.
	ErrDataIncomplete = errors.New("data incomplete")
)
