package rule

import (
	"github.com/go-playground/validator/v10"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/catalog"
)

// Service implements the rule-authoring workflow: input classification,
// template and parameter collection, confirmation and storage, verification,
// and rule assembly/submission. The service itself is stateless between
// calls; staged-but-unconfirmed values live in the caller's conversation
// state and are passed back in on each step.
type Service struct {
	catalog  *catalog.Client
	backend  *backend.Client
	validate *validator.Validate
}

// NewService creates the workflow service over the catalog and backend
// clients.
func NewService(cat *catalog.Client, b *backend.Client) *Service {
	return &Service{
		catalog:  cat,
		backend:  b,
		validate: validator.New(),
	}
}
