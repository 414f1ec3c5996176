package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// PermissionService answers permission checks through the mypermissions
// resource. The service authenticates as the acting user's context, so
// userKey is carried for logging only.
type PermissionService struct {
	client *Client
	logger *zap.Logger
}

// NewPermissionService wraps the shared client.
func NewPermissionService(c *Client, logger *zap.Logger) *PermissionService {
	return &PermissionService{client: c, logger: logger}
}

type permissionGrant struct {
	HavePermission bool `json:"havePermission"`
}

type myPermissions struct {
	Permissions map[string]permissionGrant `json:"permissions"`
}

// HasWorkPermission reports whether work may be logged on the issue.
func (p *PermissionService) HasWorkPermission(ctx context.Context, userKey, issueKey string) (bool, error) {
	u := "rest/api/2/mypermissions?permissions=WORK_ON_ISSUES&issueKey=" + url.QueryEscape(issueKey)
	return p.check(ctx, u, "WORK_ON_ISSUES")
}

// CanBrowseUsers reports whether other users' reports may be viewed.
func (p *PermissionService) CanBrowseUsers(ctx context.Context, userKey string) (bool, error) {
	return p.check(ctx, "rest/api/2/mypermissions?permissions=USER_PICKER", "USER_PICKER")
}

// VisibleProjects lists the ids of the projects the user can browse.
func (p *PermissionService) VisibleProjects(ctx context.Context, userKey string) ([]string, error) {
	list, _, err := p.client.jira.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	ids := make([]string, 0, len(*list))
	for _, project := range *list {
		ids = append(ids, project.ID)
	}
	return ids, nil
}

func (p *PermissionService) check(ctx context.Context, u, name string) (bool, error) {
	req, err := p.client.jira.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("permission request: %w", err)
	}
	var out myPermissions
	if _, err := p.client.jira.Do(req, &out); err != nil {
		return false, fmt.Errorf("check permission %s: %w", name, err)
	}
	return out.Permissions[name].HavePermission, nil
}
