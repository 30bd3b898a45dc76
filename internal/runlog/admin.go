package runlog

import (
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts the tsweb debug index on mux with a live SQL
// console over the run log at /debug/tailsql/.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.db, &tailsql.DBOptions{
		Label: "Plan run log",
	})
	debug.Handle("tailsql/", "SQL live debugging of plan runs", tsql.NewMux())

	debug.Handle("runlog-version", "Run log schema version", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, dirty, err := s.MigrateVersion()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "version=%d dirty=%v\n", v, dirty)
	}))
	return nil
}
