// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"fmt"
	"strings"
)

// Where accumulates conjunctive filter conditions for a select, count
// or delete over a row store. Conditions are rendered as a
// parameterized WHERE clause in insertion order.
type Where struct {
	conds []string
	args  []any
}

// NewWhere returns an empty filter set.
func NewWhere() *Where {
	return &Where{}
}

// Eq adds an equality condition.
func (w *Where) Eq(column string, value any) *Where {
	w.conds = append(w.conds, column+" = ?")
	w.args = append(w.args, value)
	return w
}

// In adds a set-membership condition. An empty id set renders as a
// condition that matches nothing, so a permission scope of zero
// categories yields zero rows rather than all rows.
func (w *Where) In(column string, ids []int64) *Where {
	if len(ids) == 0 {
		w.conds = append(w.conds, "1 = 0")
		return w
	}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		w.args = append(w.args, id)
	}
	w.conds = append(w.conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return w
}

// Like adds a case-insensitive substring condition on a text column.
func (w *Where) Like(column, keyword string) *Where {
	w.conds = append(w.conds, column+" LIKE ? COLLATE NOCASE")
	w.args = append(w.args, "%"+keyword+"%")
	return w
}

// Empty reports whether no conditions have been added.
func (w *Where) Empty() bool {
	return len(w.conds) == 0
}

// Clause renders the conditions as a "WHERE ..." fragment and its
// arguments. An empty filter set renders as an empty string.
func (w *Where) Clause() (string, []any) {
	if len(w.conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(w.conds, " AND "), w.args
}
