package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"lavaforge.ai/internal/protocol"
	"lavaforge.ai/internal/sim/world"
)

// stationAdmin is the slice of *world.World the admin endpoints use.
type stationAdmin interface {
	ID() string
	CurrentTick() uint64
	Stations(ctx context.Context) ([]world.StationInfo, error)
	RequestBackup(ctx context.Context) (uint64, error)
}

// registerAdmin mounts the local-only admin endpoints. They reach the world through its admin
// channel and never touch station state directly.
func registerAdmin(mux *http.ServeMux, w stationAdmin) {
	mux.HandleFunc("/admin/v1/stations", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		infos, err := w.Stations(ctx)
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "code": protocol.ErrInternal, "error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{
			"world_id": w.ID(),
			"tick":     w.CurrentTick(),
			"stations": infos,
		})
	}))
	mux.HandleFunc("/admin/v1/backup", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		tick, err := w.RequestBackup(ctx)
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "code": protocol.ErrInternal, "tick": tick, "error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick})
	}))
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
