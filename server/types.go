package server

import "github.com/sig-0/jcbrates/storage/types"

type ConvertResponse struct {
	// Rate is the percentage adjustment applied to the value, if any
	Rate *float64 `json:"rate,omitempty"`

	Date   types.Date     `json:"date"`
	From   types.Currency `json:"from"`
	To     types.Currency `json:"to"`
	Amount float64        `json:"amount"`
	Value  float64        `json:"value"`
}

type TableResponse struct {
	Rates map[types.Currency]types.RateEntry `json:"rates"`
	Date  types.Date                         `json:"date"`
}

type DatesResponse struct {
	Results []types.Date `json:"results"`
}

type CurrenciesResponse struct {
	Date    types.Date       `json:"date"`
	Results []types.Currency `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
