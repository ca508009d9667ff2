// Package admin mounts a read-only SQL debug console over the
// matching engine's SQLite store, the way this codebase's own db
// package exposes its radar database for operational inspection.
package admin

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/trackmatch/internal/httputil"
)

// Mount attaches the debug console (tailsql's SQL browser plus a
// plain table-stats endpoint) under mux's /debug/ prefix.
func Mount(mux *http.ServeMux, db *sql.DB, label string) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("admin: create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://trackmatch.db", db, &tailsql.DBOptions{
		Label: label,
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("table-stats", "Row counts for every table (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := tableStats(db)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to get table stats: %v", err))
			return
		}
		httputil.WriteJSONOK(w, stats)
	}))

	return nil
}

// TableStat is one table's row count, for the table-stats endpoint.
type TableStat struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

func tableStats(db *sql.DB) ([]TableStat, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	var out []TableStat
	for _, name := range names {
		var count int64
		// name comes from sqlite_master (trusted metadata), %q applies
		// SQLite identifier quoting; not attacker-controlled input.
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&count); err != nil {
			count = 0
		}
		out = append(out, TableStat{Name: name, RowCount: count})
	}
	return out, nil
}
