package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"bayt-storefront/internal/cache"
	"bayt-storefront/internal/service"
	"bayt-storefront/pkg/apierror"
	"bayt-storefront/pkg/response"
)

// SessionCounter reports how many renderer sessions are live.
type SessionCounter interface {
	Len() int
}

// JobRunner triggers maintenance jobs on demand.
type JobRunner interface {
	RunNow(name string) (int64, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	storage     cache.Storage
	storageType string
	sessions    SessionCounter
	jobs        JobRunner
	startTime   time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(storage cache.Storage, storageType string, sessions SessionCounter, jobs JobRunner) *AdminHandler {
	return &AdminHandler{
		storage:     storage,
		storageType: storageType,
		sessions:    sessions,
		jobs:        jobs,
		startTime:   time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["sessions"] = h.sessions.Len()

	cacheStats := map[string]interface{}{"storage": h.storageType}
	if n, err := h.storage.Len(ctx); err == nil {
		cacheStats["status"] = "connected"
		cacheStats["entries"] = n
	} else {
		cacheStats["status"] = "error"
		cacheStats["error"] = err.Error()
	}
	stats["cache"] = cacheStats

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// PurgeCache handles POST /api/v1/admin/cache/purge
func (h *AdminHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	purged, err := h.jobs.RunNow(service.JobCacheSweep)
	if err != nil {
		response.Error(w, apierror.ServiceUnavailable("cache purge failed: "+err.Error()))
		return
	}

	response.OK(w, map[string]interface{}{
		"purged": purged,
	})
}
