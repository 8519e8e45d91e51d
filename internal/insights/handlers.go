package insights

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Marcvolkov/task-management-system/internal/auth"
	"github.com/Marcvolkov/task-management-system/internal/httpx"
	"github.com/Marcvolkov/task-management-system/internal/tasks"
)

// Handler serves GET /api/analytics/insights.
func Handler(store tasks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		stats, err := store.Stats(r.Context(), uid)
		if err != nil {
			slog.Error("insights: stats query failed", "err", err, "user_id", uid)
			httpx.Error(w, http.StatusInternalServerError, "Error fetching productivity insights")
			return
		}

		list, err := store.List(r.Context(), uid, tasks.Filters{})
		if err != nil {
			slog.Error("insights: task list failed", "err", err, "user_id", uid)
			httpx.Error(w, http.StatusInternalServerError, "Error fetching productivity insights")
			return
		}

		httpx.JSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"insights": Compute(list, stats, time.Now()),
		})
	}
}
