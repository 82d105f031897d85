package config

// APIConfig configures the HTTP API. When Token is set the log endpoint
// requires it as a bearer token.
type APIConfig struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}
