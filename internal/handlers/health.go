package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AnshRaj112/chirp-backend/pkg/utils"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// Health returns 200 when every named dependency answers within two seconds.
func Health(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, ping := range deps {
			if err := ping(ctx); err != nil {
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		utils.WriteJSON(w, code, map[string]interface{}{"success": healthy, "status": status})
	}
}
