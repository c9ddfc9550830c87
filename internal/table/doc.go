// Package table provides the data model shared by every tablegrid package.
//
// This package contains types and small pure helpers only. All other internal
// packages import table; table imports nothing internal.
//
// Key design constraints:
//   - Rows are generic; field access goes through an Accessor resolved once
//     when the column is constructed, never by name on every read
//   - State is a value type; State.Clone is the only way to get a copy that
//     shares no slices or maps with the original
//   - A column id appears in at most one of Pinned.Left / Pinned.Right
//   - ColumnSizing widths never go below MinColumnWidth
package table
