package http

import (
	"time"

	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/terramind/internal/adapters/nats"
	"github.com/samirrijal/terramind/internal/adapters/postgres"
	"github.com/samirrijal/terramind/internal/adapters/valkey"
	"github.com/samirrijal/terramind/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Scripts    *usecases.ScriptService
	Borders    *usecases.BorderService
	Runs       *usecases.RunService
	Boundaries *usecases.BoundaryService
	RunEvents  *natsadapter.Subscriber
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache

	// LLMConfigured reports whether a language model API key is set.
	LLMConfigured bool
	// ScriptTimeout bounds script endpoints; zero means 75s.
	ScriptTimeout time.Duration
	// OpenAPIPath locates the document served at /docs/openapi.yaml.
	OpenAPIPath string
}

func (d *Dependencies) scriptTimeout() time.Duration {
	if d.ScriptTimeout > 0 {
		return d.ScriptTimeout
	}
	return 75 * time.Second
}
