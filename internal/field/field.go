// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package field provides the pluggable extension-field mechanism.
// Articles carry two kinds of extension data: compound fields
// (structured, handler-encoded) and custom fields (flat key/value).
// Handlers are registered by kind and name and own their storage.
package field

import (
	"context"
	"fmt"
	"sort"
)

// Field kinds.
const (
	KindCompound = "compound"
	KindCustom   = "custom"
)

// Handler encodes and deletes extension data for articles. Encode
// returns the field values for one article as flat key/values suitable
// for merging into a draft payload; Delete removes all rows owned by
// the handler for the given article ids.
type Handler interface {
	Encode(ctx context.Context, articleID int64) (map[string]string, error)
	Delete(ctx context.Context, ids []int64) error
}

// Registry maps field kind and name to the registered handler.
type Registry struct {
	handlers map[string]map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]map[string]Handler{
		KindCompound: {},
		KindCustom:   {},
	}}
}

// Register adds a handler under kind and name. Registering a duplicate
// name replaces the previous handler.
func (r *Registry) Register(kind, name string, h Handler) error {
	byName, ok := r.handlers[kind]
	if !ok {
		return fmt.Errorf("unknown field kind %q", kind)
	}
	byName[name] = h
	return nil
}

// Names returns the registered handler names for a kind in stable
// order.
func (r *Registry) Names(kind string) []string {
	byName := r.handlers[kind]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the handler registered under kind and name.
func (r *Registry) Handler(kind, name string) (Handler, error) {
	h, ok := r.handlers[kind][name]
	if !ok {
		return nil, fmt.Errorf("no %s field handler registered as %q", kind, name)
	}
	return h, nil
}

// EncodeAll runs every registered handler's Encode for the article and
// merges the results. The first handler failure aborts the whole
// operation; a partially encoded payload is never returned.
func (r *Registry) EncodeAll(ctx context.Context, articleID int64) (map[string]string, error) {
	merged := map[string]string{}
	for _, kind := range []string{KindCompound, KindCustom} {
		for _, name := range r.Names(kind) {
			h, err := r.Handler(kind, name)
			if err != nil {
				return nil, err
			}
			values, err := h.Encode(ctx, articleID)
			if err != nil {
				return nil, fmt.Errorf("encoding %s field %q for article %d: %w", kind, name, articleID, err)
			}
			for k, v := range values {
				merged[k] = v
			}
		}
	}
	return merged, nil
}
