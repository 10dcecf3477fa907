package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// wantsPage reports whether the request asked for a page rather than the
// whole collection.
func wantsPage(c *fiber.Ctx) bool {
	return c.Query("offset") != "" || c.Query("limit") != ""
}

// parsePagination reads offset and limit, clamping out-of-range values.
func parsePagination(c *fiber.Ctx, total int) Pagination {
	p := Pagination{
		Offset: max(c.QueryInt("offset", 0), 0),
		Limit:  c.QueryInt("limit", defaultPageLimit),
		Total:  total,
	}
	if p.Limit <= 0 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p
}

// pageFeatures returns the features of fc inside p as a new collection.
func pageFeatures(fc *geojson.FeatureCollection, p Pagination) *geojson.FeatureCollection {
	page := geojson.NewFeatureCollection()
	if p.Offset < len(fc.Features) {
		page.Features = fc.Features[p.Offset:min(p.Offset+p.Limit, len(fc.Features))]
	}
	return page
}

// SetLinkHeaders adds RFC 8288 Link headers and X-Total-Count for a paged
// response.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	link := func(offset int, rel string) string {
		return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, base, offset, p.Limit, rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set("Link", strings.Join(links, ", "))
	c.Set("X-Total-Count", strconv.Itoa(p.Total))
}
