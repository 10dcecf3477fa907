package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/samirrijal/terramind/internal/core/classify"
	"github.com/samirrijal/terramind/internal/core/domain"
)

// jsonScalar passes GeoJSON and style objects through unchanged.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize: func(v interface{}) interface{} {
		// Round-trip through encoding/json so orb and style types become plain maps.
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var out interface{}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil
		}
		return out
	},
	ParseValue: func(v interface{}) interface{} { return v },
	ParseLiteral: func(v ast.Value) interface{} {
		if s, ok := v.(*ast.StringValue); ok {
			return s.Value
		}
		return nil
	},
})

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	mapStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapState",
		Fields: graphql.Fields{
			"sources":  &graphql.Field{Type: jsonScalar},
			"layers":   &graphql.Field{Type: jsonScalar},
			"viewport": &graphql.Field{Type: graphql.NewList(graphql.Float)},
		},
	})

	payloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Payload",
		Fields: graphql.Fields{
			"kind":   &graphql.Field{Type: graphql.String},
			"source": &graphql.Field{Type: graphql.String},
			"tile_url": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pl := p.Source.(domain.Payload); pl.Raster != nil {
						return pl.Raster.TileURL, nil
					}
					return nil, nil
				},
			},
			"bbox": &graphql.Field{
				Type: graphql.NewList(graphql.Float),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pl := p.Source.(domain.Payload); pl.Raster != nil && pl.Raster.BBox != nil {
						a := pl.Raster.BBox.Array()
						return a[:], nil
					}
					return nil, nil
				},
			},
			"feature_collection": &graphql.Field{
				Type: jsonScalar,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pl := p.Source.(domain.Payload); pl.Vector != nil {
						return pl.Vector.Collection, nil
					}
					return nil, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"boundaries": &graphql.Field{
				Type:        jsonScalar,
				Description: "Reference region dataset as a GeoJSON FeatureCollection",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Boundaries.All(p.Context)
				},
			},
			"regions": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Names of every region in the dataset",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					fc, err := deps.Boundaries.All(p.Context)
					if err != nil {
						return nil, err
					}
					return regionNames(fc), nil
				},
			},
			"mapState": &graphql.Field{
				Type:        mapStateType,
				Description: "Current map of a session",
				Args: graphql.FieldConfigArgument{
					"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					state, ok := deps.Runs.MapState(p.Args["session"].(string))
					if !ok {
						return nil, nil
					}
					m := map[string]interface{}{
						"sources": state.Sources,
						"layers":  state.Layers,
					}
					if state.Viewport != nil {
						a := state.Viewport.Array()
						m["viewport"] = a[:]
					}
					return m, nil
				},
			},
			"classify": &graphql.Field{
				Type:        payloadType,
				Description: "Classify an execution envelope",
				Args: graphql.FieldConfigArgument{
					"stdout":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"stderr":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"exitCode": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"tile_url": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"bbox":     &graphql.ArgumentConfig{Type: graphql.NewList(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					res := domain.ExecutionResult{
						Stdout:   p.Args["stdout"].(string),
						Stderr:   p.Args["stderr"].(string),
						ExitCode: p.Args["exitCode"].(int),
						TileURL:  p.Args["tile_url"].(string),
					}
					if bbox, ok := p.Args["bbox"]; ok && bbox != nil {
						raw, err := json.Marshal(bbox)
						if err != nil {
							return nil, err
						}
						res.BBox = raw
					}
					return classify.Classify(res), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
