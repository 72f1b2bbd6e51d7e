package gate

import "strings"

// Permission is an allowed action on a resource type, written
// "resource:action" (e.g. "article:create", "dette:view").
type Permission string

// NewPermission builds a permission from a resource type and an action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into its resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards for blanket grants.
const (
	WildcardAll             = "*"
	PermissionAll Permission = "*:*"
)

// Matches reports whether this permission grants the requested one.
// "*:*" grants everything; "article:*" grants every article action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionAll {
		return true
	}
	if p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res == reqRes && string(act) == WildcardAll
}
