// Package store provides SQLite-backed row datasets that serve as a remote
// paginated source.
//
// A dataset is a named, ordered column list plus its rows. The registry lives
// in the datasets table; each dataset's rows live in their own table keyed by
// an INTEGER PRIMARY KEY "id". Fetch compiles a remote.Request with querysql
// and returns one page, so a table in server-sync mode can page, sort and
// filter a dataset without loading it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Page queries always end their ORDER BY in id ASC COLLATE BINARY, so a page
// is identical across calls.
package store
