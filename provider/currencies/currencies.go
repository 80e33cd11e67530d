package currencies

import "github.com/sig-0/jcbrates/storage/types"

var (
	USD types.Currency = "USD"
	JPY types.Currency = "JPY"
	TWD types.Currency = "TWD"
	EUR types.Currency = "EUR"
	HKD types.Currency = "HKD"
	KRW types.Currency = "KRW"
)
