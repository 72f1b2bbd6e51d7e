// Package gate implements capability-set authorization. A principal resolves
// to a Profile (a set of permissions of the form "resource:action"); the Gate
// answers a pure (principal, action, resource) question by combining the
// profile check with an optional per-resource ownership policy.
//
// The package has no dependency on domain models or on the persistence layer:
// U is whatever identifies a principal (a user id, a claims struct, ...).
package gate

import "context"

// Gate combines profile permissions with resource-specific policies.
// The check runs in two steps: the principal's profile must grant
// "resourceType:action", then, if a policy is registered for the resource
// type and a resource is supplied, the policy must accept it as well.
type Gate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// New creates a Gate backed by the given profile resolver.
func New[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register adds an ownership policy for a resource type (e.g. "dette").
// Overwrites any policy previously registered for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns nil if the principal may perform action on the resource.
// A zero-value principal, a missing profile, a missing permission, or a
// rejecting policy all yield ErrUnauthorized.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return ErrUnauthorized
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrUnauthorized
	}
	if resource != nil {
		if policy, ok := g.policies[resourceType]; ok {
			if !policy.Can(ctx, user, action, resource) {
				return ErrUnauthorized
			}
		}
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
