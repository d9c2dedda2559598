package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"vistora/internal/manager"
	"vistora/pkg/types"
)

// capabilities godoc
// @Summary      Host capabilities
// @Tags         system
// @Produce      json
// @Success      200  {object}  types.Capabilities
// @Router       /api/v1/system/capabilities [get]
func (s *server) capabilities(w http.ResponseWriter, r *http.Request) {
	if s.Capabilities == nil {
		unavailable(w, "capabilities")
		return
	}
	writeJSON(w, http.StatusOK, s.Capabilities(r.Context()))
}

// status godoc
// @Summary      Queue and worker status
// @Tags         system
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /api/v1/system/status [get]
func (s *server) status(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		unavailable(w, "jobs")
		return
	}
	st := s.Jobs.Status(r.Context())
	writeJSON(w, http.StatusOK, types.StatusResponse{
		Ready:         st.Ready,
		QueueDepth:    st.QueueDepth,
		Inflight:      st.Inflight,
		Counts:        st.Counts,
		UptimeSeconds: st.UptimeSeconds,
		Runners:       st.Runners,
		Error:         st.Error,
	})
}

// catalog godoc
// @Summary      Model cards and quality presets
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.Catalog
// @Router       /api/v1/models/catalog [get]
func (s *server) catalog(w http.ResponseWriter, r *http.Request) {
	out := types.Catalog{Cards: []types.ModelCard{}, QualityPresets: []types.QualityPreset{}}
	for _, c := range s.Catalog.Cards() {
		out.Cards = append(out.Cards, types.ModelCard{
			ID: c.ID, Role: string(c.Role), Family: c.Family, Objective: c.Objective, Maturity: c.Maturity, Notes: c.Notes,
		})
	}
	for _, p := range s.Catalog.Presets() {
		out.QualityPresets = append(out.QualityPresets, types.QualityPreset{
			Tier: string(p.Tier), DetectorModel: p.Detector, RestorerModel: p.Restorer, RefinerModel: p.Refiner, Notes: p.Notes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// events godoc
// @Summary      Job events after a sequence number
// @Description  With wait=N the call blocks up to N seconds (max 30) until new events arrive.
// @Tags         jobs
// @Produce      json
// @Param        since  query  int  false  "last seen sequence"
// @Param        wait   query  int  false  "long-poll seconds"
// @Success      200  {object}  types.EventList
// @Router       /api/v1/events [get]
func (s *server) events(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		unavailable(w, "events")
		return
	}
	since, err := queryInt(r, "since")
	if err != nil || since < 0 {
		writeJSONError(w, http.StatusBadRequest, "since must be a non-negative integer")
		return
	}
	wait, err := queryInt(r, "wait")
	if err != nil || wait < 0 {
		writeJSONError(w, http.StatusBadRequest, "wait must be a non-negative integer")
		return
	}
	if wait > maxEventWaitSeconds {
		wait = maxEventWaitSeconds
	}
	if wait > 0 && s.Events.LastSeq() <= since {
		ctx, cancel := requestContext(r)
		defer cancel()
		s.waitForEvents(ctx, since, time.Duration(wait)*time.Second)
	}
	out := types.EventList{Events: []types.Event{}, LastSeq: s.Events.LastSeq()}
	for _, e := range s.Events.Since(since) {
		out.Events = append(out.Events, eventView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) waitForEvents(ctx context.Context, since int64, d time.Duration) {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for s.Events.LastSeq() <= since {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

func eventView(e manager.Event) types.Event {
	return types.Event{Seq: e.Seq, Time: e.Time, Name: e.Name, JobID: e.JobID, Fields: e.Fields}
}

func queryInt(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
