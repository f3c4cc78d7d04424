package sheets

import (
	"time"

	"github.com/jinzhu/copier"
)

// DefaultConfig holds the values NewConfig starts from.
var DefaultConfig = Config{
	BaseURL:     "https://sheets.googleapis.com",
	TokenURL:    "https://oauth2.googleapis.com/token",
	Scope:       "https://www.googleapis.com/auth/spreadsheets.readonly",
	Timeout:     10 * time.Second,
	TokenLeeway: time.Minute,
}

// Config configures a Client.
type Config struct {
	BaseURL      string        `json:"base_url"`      // values API root
	TokenURL     string        `json:"token_url"`     // client-credentials token endpoint
	ClientID     string        `json:"client_id"`     //
	ClientSecret string        `json:"client_secret"` //
	Scope        string        `json:"scope"`         // empty omits the scope parameter
	Timeout      time.Duration `json:"timeout"`       // per request

	// TokenLeeway is how long before its expiry a cached token is replaced.
	TokenLeeway time.Duration `json:"token_leeway"`
}

// NewConfig returns a deep copy of DefaultConfig with the given credentials.
func NewConfig(clientID, clientSecret string) (Config, error) {
	var conf Config
	if err := copier.CopyWithOption(&conf, &DefaultConfig, copier.Option{DeepCopy: true}); err != nil {
		return Config{}, err
	}
	conf.ClientID = clientID
	conf.ClientSecret = clientSecret
	return conf, nil
}
