package catalog

import (
	"context"

	"github.com/policycow/cowmcp/engine/backend"
	"github.com/policycow/cowmcp/engine/core"
	"github.com/policycow/cowmcp/pkg/logger"
)

// Client fetches task metadata from the backend catalog. It holds no cache;
// every call refetches.
type Client struct {
	backend *backend.Client
}

// NewClient creates a catalog client over the given backend.
func NewClient(b *backend.Client) *Client {
	return &Client{backend: b}
}

type listResponse struct {
	Items []Task `json:"items"`
}

// ListByTag returns all tasks carrying the given catalog tag.
func (c *Client) ListByTag(ctx context.Context, tag string) ([]Task, error) {
	log := logger.FromContext(ctx)

	resp := &listResponse{}
	if err := c.backend.GetJSON(ctx, backend.PathTasks, map[string]string{"tags": tag}, resp); err != nil {
		return nil, err
	}
	log.Debug("fetched tasks from catalog", "tag", tag, "count", len(resp.Items))
	return resp.Items, nil
}

// ListPrimitives returns the primitive task set used for rule authoring.
func (c *Client) ListPrimitives(ctx context.Context) ([]Task, error) {
	return c.ListByTag(ctx, "primitive")
}

// Get returns the named task, or core.ErrNotFound when the catalog does not
// know it.
func (c *Client) Get(ctx context.Context, name string) (*Task, error) {
	resp := &listResponse{}
	if err := c.backend.GetJSON(ctx, backend.PathTasks, map[string]string{"name": name}, resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, core.NotFoundf("task '%s' not found in available tasks", name)
	}
	return &resp.Items[0], nil
}

// GetInput returns the named input descriptor of the named task. It fails
// with core.ErrNotFound when either the task or the input is unknown.
func (c *Client) GetInput(ctx context.Context, taskName, inputName string) (*Task, *TaskInput, error) {
	task, err := c.Get(ctx, taskName)
	if err != nil {
		return nil, nil, err
	}
	input := task.Input(inputName)
	if input == nil {
		return nil, nil, core.NotFoundf("input '%s' not found in task '%s'", inputName, taskName)
	}
	return task, input, nil
}
