package config

import "time"

// DefaultSearchURL is the HubSpot CRM contacts search endpoint.
const DefaultSearchURL = "https://api.hubapi.com/crm/v3/objects/contacts/search"

// DefaultProperties is the fixed set of contact properties requested on lookup.
var DefaultProperties = []string{
	"correo", "nombre", "apellidos", "destino", "estatus", "guia",
	"numero_de_telefono", "recoleccion", "direccion", "ciudad", "codigo_postal",
	"medidas", "peso", "direccion_de_entrega", "nombre_de_receptor",
	"telefono_del_receptor", "total",
}

// Event log backends.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config represents the complete envios-relay configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Server   ServerConfig   `yaml:"server"`
	HubSpot  HubSpotConfig  `yaml:"hubspot"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	EventLog EventLogConfig `yaml:"event_log"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// SourcePath is the absolute path of the loaded file, empty when running on defaults.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Listen string     `yaml:"listen"`
	CORS   CORSConfig `yaml:"cors"`
}

// CORSConfig lists the origins allowed to call the relay from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HubSpotConfig defines the upstream CRM search settings.
type HubSpotConfig struct {
	APIKey         string        `yaml:"api_key"`
	SearchURL      string        `yaml:"search_url"`
	LookupProperty string        `yaml:"lookup_property"`
	Properties     []string      `yaml:"properties"`
	Timeout        time.Duration `yaml:"timeout"`
}

// WebhookConfig defines inbound webhook verification.
type WebhookConfig struct {
	// Secret enables HMAC-SHA256 verification when non-empty.
	Secret          string `yaml:"secret,omitempty"`
	SignatureHeader string `yaml:"signature_header"`
	// MaxBodySize accepts plain bytes or KB/MB/GB suffixes (e.g. "1MB").
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// EventLogConfig defines where received webhook events are persisted.
type EventLogConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a configuration with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "envios-relay",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Server: ServerConfig{
			Listen: ":8000",
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
			},
		},
		HubSpot: HubSpotConfig{
			SearchURL:      DefaultSearchURL,
			LookupProperty: "guia",
			Properties:     append([]string(nil), DefaultProperties...),
			Timeout:        30 * time.Second,
		},
		Webhook: WebhookConfig{
			SignatureHeader: "X-HubSpot-Signature",
			MaxBodySize:     "1MB",
		},
		EventLog: EventLogConfig{
			Backend: BackendJSONL,
			Path:    "webhook_log.json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
