package identity

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/dbtranscode/internal/model"
)

// Config is the YAML form of a set of identity definitions:
//
//	error_handler:
//	  name: DBMerger
//	  level: warn
//	identities:
//	  - table: COUNTRY
//	    type: nk-pk-query
//	    query: SELECT name, code FROM COUNTRY
//	  - table: STATE
//	    type: sub-nk-pk-query
//	    owners: [COUNTRY]
//	    query: SELECT code, id FROM STATE WHERE country = ?
//	  - table: CITY
//	    type: unique-key
//	    nk: [name, "CITY(state_id) -> STATE(id)"]
//	    irrelevant: [updated_at]
type Config struct {
	Version      string           `yaml:"version,omitempty"`
	ErrorHandler HandlerConfig    `yaml:"error_handler,omitempty"`
	Identities   []IdentityConfig `yaml:"identities"`
}

// HandlerConfig configures the shared error handler.
type HandlerConfig struct {
	Name  string `yaml:"name,omitempty"`
	Level string `yaml:"level,omitempty"`
}

// IdentityConfig defines the identity of one table.
type IdentityConfig struct {
	Table      string   `yaml:"table"`
	Type       string   `yaml:"type"`
	Query      string   `yaml:"query,omitempty"`
	Owners     []string `yaml:"owners,omitempty"`
	NK         []string `yaml:"nk,omitempty"`
	Irrelevant []string `yaml:"irrelevant,omitempty"`
}

// LoadConfig loads and parses a YAML identity file from the given path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML data into a Config.
func ParseConfig(data []byte) (*Config, error) {
	var c Config

	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse identity YAML: %w", err)
	}

	applyDefaults(&c)

	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.ErrorHandler.Name == "" {
		c.ErrorHandler.Name = DefaultHandlerName
	}
	if c.ErrorHandler.Level == "" {
		c.ErrorHandler.Level = "warn"
	}
	for i := range c.Identities {
		id := &c.Identities[i]
		id.Type = strings.ToLower(strings.TrimSpace(id.Type))
		if id.Type == "" {
			id.Type = KindNkPkQuery
		}
	}
}

// Marshal serializes a Config to YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Provider builds the identity models. logger may be nil.
func (c *Config) Provider(logger *slog.Logger) (*Provider, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.ErrorHandler.Level)); err != nil {
		return nil, fmt.Errorf("invalid error handler level %q: %w", c.ErrorHandler.Level, model.ErrInvalidArgument)
	}
	p := NewProvider()
	p.SetErrorHandler(NewErrorHandler(c.ErrorHandler.Name, level, logger))

	for i, id := range c.Identities {
		m, err := id.build()
		if err != nil {
			return nil, fmt.Errorf("identity #%d: %w", i+1, err)
		}
		for _, column := range id.Irrelevant {
			m.AddIrrelevantColumn(column)
		}
		if err := p.Add(m); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (id IdentityConfig) build() (Model, error) {
	if strings.TrimSpace(id.Table) == "" {
		return nil, fmt.Errorf("missing table: %w", model.ErrInvalidArgument)
	}
	switch id.Type {
	case KindNkPkQuery:
		if id.Query == "" {
			return nil, fmt.Errorf("%s of %s needs a query: %w", id.Type, id.Table, model.ErrInvalidArgument)
		}
		return NewNkPkQueryIdentity(id.Table, id.Query), nil
	case KindSubNkPkQuery:
		if id.Query == "" || len(id.Owners) == 0 {
			return nil, fmt.Errorf("%s of %s needs owners and a query: %w", id.Type, id.Table, model.ErrInvalidArgument)
		}
		return NewSubNkPkQueryIdentity(id.Table, id.Owners, id.Query), nil
	case KindUniqueKey:
		if len(id.NK) == 0 {
			return nil, fmt.Errorf("%s of %s needs nk components: %w", id.Type, id.Table, model.ErrInvalidArgument)
		}
		return NewUniqueKeyIdentity(id.Table, id.NK...), nil
	case KindNone:
		return NewNoIdentity(id.Table), nil
	default:
		return nil, fmt.Errorf("unknown identity type %q of %s: %w", id.Type, id.Table, model.ErrInvalidArgument)
	}
}
