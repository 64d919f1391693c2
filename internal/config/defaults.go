package config

// Default values for configuration options. These are "layer 0" of the
// override chain.
const (
	DefaultPort      = 443
	DefaultTLS       = true
	defaultLogLevel  = "info"
	defaultLogFormat = "auto"
	defaultTransport = TransportStdio
	defaultAddress   = "127.0.0.1:8080"
)

// Transport names accepted by ServerConfig.Transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// DefaultConfig returns a Config populated with all default values. It is the
// starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		Edge: EdgeConfig{
			Port: DefaultPort,
			TLS:  TLSFlag(DefaultTLS),
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Server: ServerConfig{
			Transport: defaultTransport,
			Address:   defaultAddress,
		},
	}
}
