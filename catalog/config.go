package catalog

import (
	"github.com/jinzhu/copier"
)

// DefaultConfig holds the values NewConfig starts from.
var DefaultConfig = Config{
	Range:    "Sheet1!A2:E",
	Currency: "USD",
}

// Config selects the product table.
type Config struct {
	Spreadsheet string `json:"SPREADSHEET"` // spreadsheet id of the product table
	Range       string `json:"RANGE"`       // range holding the product rows, without a header
	Currency    string `json:"CURRENCY"`    // currency of every price
}

// NewConfig returns a deep copy of DefaultConfig reading the given spreadsheet.
func NewConfig(spreadsheet string) (Config, error) {
	var conf Config
	if err := copier.CopyWithOption(&conf, &DefaultConfig, copier.Option{DeepCopy: true}); err != nil {
		return Config{}, err
	}
	conf.Spreadsheet = spreadsheet
	return conf, nil
}
