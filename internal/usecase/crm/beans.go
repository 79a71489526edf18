package crm

import (
	"context"
	"fmt"
	"strings"

	"sugarcrm-client/internal/domain"
)

// Remote methods wrapped by the record operations.
const (
	MethodGetEntry     = "get_entry"
	MethodGetEntryList = "get_entry_list"
	MethodGetEntries   = "get_entries"
	MethodSetEntry     = "set_entry"
)

// LoadBean fetches one record. It reports false when the record is
// soft-deleted, the endpoint could not be reached or the response carried
// nothing usable. Any other response without a first entry carrying a
// deleted flag is a domain.ErrStructural error.
func (c *Client) LoadBean(ctx context.Context, module, id string) (domain.Bean, bool, error) {
	args := domain.NewArgs(
		"modulename", strings.TrimSpace(module),
		"id", strings.TrimSpace(id),
	)
	resp, err := c.Call(ctx, MethodGetEntry, args)
	if err != nil || resp.IsNone() {
		return domain.Bean{}, false, nil
	}

	entries, err := entryList("Client.LoadBean", resp)
	if err != nil {
		return domain.Bean{}, false, err
	}
	first, ok := entries.Index(0)
	if !ok {
		return domain.Bean{}, false, domain.NewDomainError("Client.LoadBean", domain.ErrStructural, "entry_list is empty")
	}

	bean := domain.NewBean(first)
	deleted, ok := bean.DeletedFlag()
	if !ok {
		return domain.Bean{}, false, domain.NewDomainError("Client.LoadBean", domain.ErrStructural, "entry has no deleted flag")
	}
	if deleted != 0 {
		return domain.Bean{}, false, nil
	}
	return bean, true, nil
}

// LoadBeans lists records of module. Options are added to the request only
// where they do not collide with the module name or session.
func (c *Client) LoadBeans(ctx context.Context, module string, options domain.Args) ([]domain.Bean, error) {
	base := domain.NewArgs(
		"modulename", strings.TrimSpace(module),
		"session", c.session,
	)
	resp, err := c.Call(ctx, MethodGetEntryList, base.Merge(options))
	if err != nil {
		return nil, domain.WrapOp("Client.LoadBeans", err)
	}
	return beans("Client.LoadBeans", resp)
}

// LoadBeansByIDs fetches records by id. Deleted records are not filtered.
func (c *Client) LoadBeansByIDs(ctx context.Context, module string, ids []string) ([]domain.Bean, error) {
	if ids == nil {
		ids = []string{}
	}
	args := domain.NewArgs(
		"modulename", strings.TrimSpace(module),
		"ids", ids,
	)
	resp, err := c.Call(ctx, MethodGetEntries, args)
	if err != nil {
		return nil, domain.WrapOp("Client.LoadBeansByIDs", err)
	}
	return beans("Client.LoadBeansByIDs", resp)
}

// SaveBean creates or updates a record and reports whether the response
// carried a record id. Every failure, transport failures included, is false.
func (c *Client) SaveBean(ctx context.Context, module string, fields any) bool {
	_, ok := c.SaveBeanID(ctx, module, fields)
	return ok
}

// SaveBeanID is SaveBean returning the id of the saved record.
func (c *Client) SaveBeanID(ctx context.Context, module string, fields any) (string, bool) {
	args := domain.NewArgs(
		"modulename", strings.TrimSpace(module),
		"name_value_list", fields,
	)
	resp, err := c.Call(ctx, MethodSetEntry, args)
	if err != nil {
		return "", false
	}
	id := textField(resp, "id")
	if id == "" || id == "0" {
		c.logger.Debug("crm save returned no id", "module", module, "result", resp.Kind().String())
		return "", false
	}
	return id, true
}

// entryList extracts the entry_list array of a response.
func entryList(op string, resp domain.Value) (domain.Value, error) {
	if resp.Kind() != domain.KindObject {
		return domain.NoResult, domain.NewDomainError(op, domain.ErrStructural, fmt.Sprintf("response is %s, want object", resp.Kind()))
	}
	list, ok := resp.Field("entry_list")
	if !ok {
		return domain.NoResult, domain.NewDomainError(op, domain.ErrStructural, "response has no entry_list")
	}
	if list.Kind() != domain.KindArray {
		return domain.NoResult, domain.NewDomainError(op, domain.ErrStructural, fmt.Sprintf("entry_list is %s, want array", list.Kind()))
	}
	return list, nil
}

func beans(op string, resp domain.Value) ([]domain.Bean, error) {
	list, err := entryList(op, resp)
	if err != nil {
		return nil, err
	}
	items := list.Items()
	out := make([]domain.Bean, len(items))
	for i, item := range items {
		out[i] = domain.NewBean(item)
	}
	return out, nil
}
