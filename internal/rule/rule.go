// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rule resolves and evaluates per-category permission rules.
// A rule map is derived once per request from the acting user's role
// assignments and is the sole source of truth for authorization in
// every downstream component.
package rule

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/picms/article/internal/model"
)

// Actions checked against the rule map.
const (
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Rules maps category id -> resource slug -> allowed. Resource slugs
// are "{lifecycle-slug}-{action}", e.g. "published-delete". An empty
// map means no category grants any action; callers must treat that as
// a hard deny.
type Rules map[int64]map[string]bool

// Resolver produces the rule map for an acting user. The identity and
// role source is external to this module.
type Resolver interface {
	Resolve(ctx context.Context, uid int64) (Rules, error)
}

// Resource builds the permission resource slug for a lifecycle status
// and action. An unknown status yields a slug no rule map grants.
func Resource(status int, action string) string {
	slug := model.StatusSlug(status)
	if slug == "" {
		return "unknown-" + action
	}
	return slug + "-" + action
}

// Allows reports whether the rule map grants action on articles with
// the given lifecycle status in the given category. Fails closed.
func (r Rules) Allows(category int64, status int, action string) bool {
	perms, ok := r[category]
	if !ok {
		return false
	}
	return perms[Resource(status, action)]
}

// HasCategory reports whether the rule map grants anything at all for
// the category.
func (r Rules) HasCategory(category int64) bool {
	_, ok := r[category]
	return ok
}

// Categories returns the permitted category ids in ascending order.
// The result is the exact scope for permission-scoped listing.
func (r Rules) Categories() []int64 {
	ids := make([]int64, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StaticResolver returns a fixed rule map regardless of user. Useful
// for tests and single-tenant deployments where rules are configured
// rather than derived.
type StaticResolver struct {
	Rules Rules
}

// Resolve implements Resolver.
func (s StaticResolver) Resolve(_ context.Context, _ int64) (Rules, error) {
	return s.Rules, nil
}

// ParseJSON decodes a rule map from JSON of the form
// {"2": {"published-edit": true, "published-delete": false}}. Category
// keys are decimal ids.
func ParseJSON(data []byte) (Rules, error) {
	var raw map[string]map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	rules := make(Rules, len(raw))
	for key, perms := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid category id %q in rules", key)
		}
		rules[id] = perms
	}
	return rules, nil
}
