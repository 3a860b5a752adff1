package world

import (
	"context"
	"errors"
)

type adminKind int

const (
	adminBackup adminKind = iota + 1
	adminStations
)

type adminReq struct {
	Kind adminKind
	Resp chan adminResp
}

type adminResp struct {
	Tick     uint64
	Stations []StationInfo
	Err      error
}

// RequestBackup asks the world loop goroutine to run a backup sweep now.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestBackup(ctx context.Context) (tick uint64, err error) {
	r, err := w.adminRoundTrip(ctx, adminBackup)
	return r.Tick, err
}

// Stations lists the live stations as seen by the world loop.
func (w *World) Stations(ctx context.Context) ([]StationInfo, error) {
	r, err := w.adminRoundTrip(ctx, adminStations)
	return r.Stations, err
}

func (w *World) adminRoundTrip(ctx context.Context, kind adminKind) (adminResp, error) {
	resp := make(chan adminResp, 1)
	select {
	case w.admin <- adminReq{Kind: kind, Resp: resp}:
	case <-ctx.Done():
		return adminResp{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, r.Err
	case <-ctx.Done():
		return adminResp{}, ctx.Err()
	}
}

func (w *World) handleAdminRequests(reqs []adminReq) {
	for _, r := range reqs {
		resp := adminResp{Tick: w.sched.Now()}
		switch r.Kind {
		case adminBackup:
			if w.bridge == nil {
				resp.Err = errors.New("persistence not configured")
			} else {
				resp.Err = w.bridge.Backup(w.reg.All())
			}
		case adminStations:
			resp.Stations = w.stationInfos()
		}
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Caller timed out; don't block the sim loop.
		}
	}
}

func (w *World) stationInfos() []StationInfo {
	all := w.reg.All()
	out := make([]StationInfo, 0, len(all))
	for _, st := range all {
		info := StationInfo{Key: st.Loc().String(), Status: st.Status().String(), Dirty: st.Dirty()}
		if run := st.Run(); run != nil && st.Running() {
			info.RunID = run.ID
			info.Ends = run.CompletesTick
		}
		out = append(out, info)
	}
	return out
}
