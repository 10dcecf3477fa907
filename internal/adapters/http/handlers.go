package http

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/terramind/internal/core/classify"
	"github.com/samirrijal/terramind/internal/core/domain"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type codeRequest struct {
	Code string `json:"code"`
}

// borderRequest accepts either free text or a structured query.
type borderRequest struct {
	Query    string  `json:"query"`
	RegionA  string  `json:"region_a"`
	RegionB  string  `json:"region_b"`
	Distance float64 `json:"distance"`
	Units    string  `json:"units"`
}

// ExecuteScriptHandler runs a script and returns its execution envelope.
func ExecuteScriptHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req codeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		res, err := deps.Runs.Execute(c.UserContext(), req.Code)
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(res)
	}
}

// GenerateScriptHandler turns a prompt plus conversation state into a script.
func GenerateScriptHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.GenerationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		script, err := deps.Scripts.Generate(c.UserContext(), req)
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(script)
	}
}

// ClassifyHandler classifies an execution envelope without running anything.
func ClassifyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var res domain.ExecutionResult
		if err := c.BodyParser(&res); err != nil {
			return errBadRequest(c, "invalid execution result")
		}
		return c.JSON(classify.Classify(res))
	}
}

// RunHandler executes a script and syncs the result onto the session's map.
func RunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !sessionIDPattern.MatchString(id) {
			return errBadRequest(c, "invalid session id")
		}

		var req codeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		out, err := deps.Runs.Run(c.UserContext(), id, req.Code)
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(out)
	}
}

// GetMapHandler returns the session's current map state.
func GetMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !sessionIDPattern.MatchString(id) {
			return errBadRequest(c, "invalid session id")
		}

		state, ok := deps.Runs.MapState(id)
		if !ok {
			return errNotFound(c, "session not found")
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(state)
	}
}

// ClearMapHandler removes every run layer from the session's map.
func ClearMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !sessionIDPattern.MatchString(id) {
			return errBadRequest(c, "invalid session id")
		}

		out, err := deps.Runs.Clear(c.UserContext(), id)
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(out)
	}
}

// BorderHandler buffers the shared border of two regions.
func BorderHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req borderRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		var (
			polygon *geojson.Feature
			err     error
		)
		if strings.TrimSpace(req.Query) != "" {
			polygon, err = deps.Borders.ResolveText(c.UserContext(), req.Query)
		} else {
			polygon, err = deps.Borders.Resolve(c.UserContext(), domain.BorderQuery{
				RegionA:  req.RegionA,
				RegionB:  req.RegionB,
				Distance: req.Distance,
				Units:    req.Units,
			})
		}
		if err != nil {
			return errService(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"polygon": polygon,
		})
	}
}

// BoundariesHandler returns the reference region dataset. With a limit
// query parameter the features are paged and Link headers are set.
func BoundariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fc, err := deps.Boundaries.All(c.UserContext())
		if err != nil {
			return errService(c, err)
		}

		if !wantsPage(c) {
			c.Set("Cache-Control", "public, max-age=600")
			return c.JSON(fc)
		}

		p := parsePagination(c, len(fc.Features))
		SetLinkHeaders(c, p)
		return c.JSON(pageFeatures(fc, p))
	}
}

// RegionNamesHandler lists the names of every region in the dataset.
func RegionNamesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fc, err := deps.Boundaries.All(c.UserContext())
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(fiber.Map{"names": regionNames(fc)})
	}
}

func regionNames(fc *geojson.FeatureCollection) []string {
	names := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		if name := domain.RegionName(f.Properties); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
