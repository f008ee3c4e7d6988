// Package graphqlapi serves a read-only introspection schema over the
// current graph snapshot: clients, ports, edges, and criticality. It is
// a debug and development surface on the metrics HTTP listener, separate
// from the IPC control surface.
package graphqlapi

import (
	"github.com/graphql-go/graphql"

	"github.com/anjeleno/rdx-rivendell/pkg/critical"
	gr "github.com/anjeleno/rdx-rivendell/pkg/graph"
)

// NewSchema builds the introspection schema over the Model and the
// Critical-Set Registry.
func NewSchema(model *gr.Model, crit *critical.Registry) (graphql.Schema, error) {
	portType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Port",
		Fields: graphql.Fields{
			"qualified": &graphql.Field{Type: graphql.String},
			"local":     &graphql.Field{Type: graphql.String},
			"kind":      &graphql.Field{Type: graphql.String},
			"isSource":  &graphql.Field{Type: graphql.Boolean},
			"isSink":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	clientType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Client",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"kind":     &graphql.Field{Type: graphql.String},
			"critical": &graphql.Field{Type: graphql.Boolean},
			"ports":    &graphql.Field{Type: graphql.NewList(portType)},
		},
	})

	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Edge",
		Fields: graphql.Fields{
			"source":   &graphql.Field{Type: graphql.String},
			"sink":     &graphql.Field{Type: graphql.String},
			"critical": &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"clients": &graphql.Field{
				Type: graphql.NewList(clientType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					snap := model.Snapshot()
					out := make([]map[string]any, 0)
					for _, name := range snap.Clients() {
						out = append(out, clientValue(snap, crit, name))
					}
					return out, nil
				},
			},
			"client": &graphql.Field{
				Type: clientType,
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					name, _ := p.Args["name"].(string)
					snap := model.Snapshot()
					if !snap.HasClient(name) {
						return nil, nil
					}
					return clientValue(snap, crit, name), nil
				},
			},
			"edges": &graphql.Field{
				Type: graphql.NewList(edgeType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					snap := model.Snapshot()
					out := make([]map[string]any, 0)
					for _, e := range snap.Edges() {
						out = append(out, map[string]any{
							"source":   e.Source,
							"sink":     e.Sink,
							"critical": crit.IsEdgeCritical(snap, e.Source, e.Sink),
						})
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

func clientValue(snap *gr.Snapshot, crit *critical.Registry, name string) map[string]any {
	c := snap.Client(name)
	ports := make([]map[string]any, 0, len(c.Ports))
	for _, p := range c.Ports {
		ports = append(ports, map[string]any{
			"qualified": p.Qualified,
			"local":     p.Local,
			"kind":      string(p.Kind),
			"isSource":  p.IsSource(),
			"isSink":    p.IsSink(),
		})
	}
	return map[string]any{
		"name":     c.Name,
		"kind":     string(c.Kind),
		"critical": crit.IsClientCritical(c.Name),
		"ports":    ports,
	}
}
