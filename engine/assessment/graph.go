package assessment

import (
	"context"
	"encoding/json"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
)

// GraphSchema describes the knowledge graph backing evidence queries: the
// node labels, the distinct property values per node, and the full graph
// schema in Cypher form.
type GraphSchema struct {
	NodeNames            json.RawMessage `json:"node_names"`
	UniquePropertyValues json.RawMessage `json:"unique_property_values"`
	Neo4jSchema          json.RawMessage `json:"neo4j_schema"`
}

type graphSchemaRequest struct {
	UserQuestion string `json:"user_question"`
}

// GraphSchemaFor fetches the graph schema scoped to a natural-language
// question. An empty question returns the full schema.
func (s *Service) GraphSchemaFor(ctx context.Context, question string) (*GraphSchema, error) {
	body, err := s.backend.Post(ctx, backend.PathGraphSchema, &graphSchemaRequest{UserQuestion: question})
	if err != nil {
		return nil, err
	}
	schema := &GraphSchema{}
	if err := json.Unmarshal(body, schema); err != nil {
		return nil, core.Backendf("decode graph schema: %v", err)
	}
	return schema, nil
}
