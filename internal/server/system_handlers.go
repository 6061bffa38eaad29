package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/lmt-kanban/internal/modules/dashboard"
	"github.com/aristath/lmt-kanban/internal/scheduler"
)

// SchedulerStatusProvider reports the refresh scheduler state
type SchedulerStatusProvider interface {
	Status() scheduler.Status
}

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	dashboard   *dashboard.Service
	scheduler   SchedulerStatusProvider
	stats       func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, svc *dashboard.Service, sched SchedulerStatusProvider) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("service", "system").Logger(),
		startupTime: time.Now(),
		dashboard:   svc,
		scheduler:   sched,
	}
	h.stats = h.getSystemStats
	return h
}

// LastRefresh summarises the snapshot currently on screen
type LastRefresh struct {
	CycleID   string    `json:"cycle_id"`
	Trigger   string    `json:"trigger"`
	FetchedAt time.Time `json:"fetched_at"`
	BatchID   string    `json:"batch_id"`
	BatchTime time.Time `json:"batch_time"`
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status        string                    `json:"status"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
	CPUPercent    float64                   `json:"cpu_percent"`
	RAMPercent    float64                   `json:"ram_percent"`
	Loading       bool                      `json:"loading"`
	ExcludeCommon bool                      `json:"exclude_common"`
	Scheduler     *scheduler.Status         `json:"scheduler,omitempty"`
	LastRefresh   *LastRefresh              `json:"last_refresh,omitempty"`
	LastFailure   *dashboard.RefreshFailure `json:"last_failure,omitempty"`
}

// Snapshot collects the current status
func (h *SystemHandlers) Snapshot() SystemStatusResponse {
	cpuPercent, ramPercent := h.stats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
	}

	if h.scheduler != nil {
		st := h.scheduler.Status()
		resp.Scheduler = &st
		if !st.Running {
			resp.Status = "degraded"
		}
	}

	if h.dashboard != nil {
		resp.Loading = h.dashboard.Loading()
		resp.ExcludeCommon = h.dashboard.ExcludeCommon()
		resp.LastFailure = h.dashboard.LastFailure()
		if snap := h.dashboard.Snapshot(); snap != nil {
			resp.LastRefresh = &LastRefresh{
				CycleID:   snap.CycleID,
				Trigger:   snap.Trigger,
				FetchedAt: snap.FetchedAt,
				BatchID:   snap.Summary.BatchID,
				BatchTime: snap.Summary.Timestamp,
			}
		}
	}

	return resp
}

// HandleSystemStatus returns system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Snapshot()); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// Short sample window keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
