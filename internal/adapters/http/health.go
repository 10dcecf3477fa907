package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// probe reports one collaborator's state. A nil check means the backend is
// not configured, which does not fail readiness.
type probe struct {
	name  string
	check func(ctx context.Context) (string, bool)
}

func readinessProbes(deps *Dependencies) []probe {
	var probes []probe

	if deps.DB != nil {
		probes = append(probes, probe{"database", func(ctx context.Context) (string, bool) {
			return pingResult(deps.DB.Ping(ctx))
		}})
	} else {
		probes = append(probes, probe{name: "database"})
	}

	if deps.NATS != nil {
		probes = append(probes, probe{"nats", func(context.Context) (string, bool) {
			if !deps.NATS.IsConnected() {
				return "disconnected", false
			}
			return "ok", true
		}})
	} else {
		probes = append(probes, probe{name: "nats"})
	}

	if deps.Cache != nil {
		probes = append(probes, probe{"cache", func(ctx context.Context) (string, bool) {
			return pingResult(deps.Cache.Ping(ctx))
		}})
	} else {
		probes = append(probes, probe{name: "cache"})
	}

	// The model is the one collaborator every pipeline needs.
	probes = append(probes, probe{"llm", func(context.Context) (string, bool) {
		if !deps.LLMConfigured {
			return "missing api key", false
		}
		return "ok", true
	}})

	return probes
}

func pingResult(err error) (string, bool) {
	if err != nil {
		return "error: " + err.Error(), false
	}
	return "ok", true
}

// ReadyHandler checks the database, NATS, cache and language model key.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := readinessProbes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			if p.check == nil {
				checks[p.name] = "not configured"
				continue
			}
			state, ok := p.check(ctx)
			checks[p.name] = state
			ready = ready && ok
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
