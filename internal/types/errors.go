package types

import "fmt"

var (
	ErrInvalidTerms    = fmt.Errorf("invalid terms")
	ErrOutOfRangeDate  = fmt.Errorf("settlement date out of range")
	ErrNoConvergence   = fmt.Errorf("yield to maturity failed to converge")
	ErrDataUnavailable = fmt.Errorf("data unavailable")
	ErrUnsupportedBond = fmt.Errorf("unsupported bond")
	ErrInvalidCoupon   = fmt.Errorf("invalid coupon")
	ErrInvalidDesc     = fmt.Errorf("invalid description")
	ErrInvalidTicker   = fmt.Errorf("invalid ticker")
	ErrInvalidPrice    = fmt.Errorf("invalid price")
	ErrInvalidYield    = fmt.Errorf("invalid yield")
	ErrInvalidDate     = fmt.Errorf("invalid date")
)
