// Package monitor exposes the operational endpoints used by administrators.
package monitor

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"coalition-api/cache"
	"coalition-api/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultLogLines = 200
	maxLogLines     = 2000
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type LiveCounter interface {
	ClientCount() int
}

type DispatchReporter interface {
	LastRun() *services.DispatchReport
}

// Monitor reports process health. Every dependency is optional.
type Monitor struct {
	DB         Pinger
	Cache      cache.Cache
	Live       LiveCounter
	Dispatcher DispatchReporter
	LogPath    string

	startedAt time.Time
}

func New(logPath string) *Monitor {
	return &Monitor{LogPath: logPath, startedAt: time.Now()}
}

type Status struct {
	Status       string                   `json:"status"`
	Uptime       string                   `json:"uptime"`
	Goroutines   int                      `json:"goroutines"`
	HeapAllocMB  float64                  `json:"heapAllocMb"`
	Database     string                   `json:"database"`
	Cache        *cache.Stats             `json:"cache,omitempty"`
	LiveClients  int                      `json:"liveClients"`
	LastDispatch *services.DispatchReport `json:"lastDispatch,omitempty"`
	CheckedAt    time.Time                `json:"checkedAt"`
}

// Snapshot collects the current status. The database is reported "down"
// when the ping fails, which also marks the whole status degraded.
func (m *Monitor) Snapshot(ctx context.Context) Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Status{
		Status:      "ok",
		Uptime:      time.Since(m.startedAt).Round(time.Second).String(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(mem.HeapAlloc) / (1024 * 1024),
		Database:    "unknown",
		CheckedAt:   time.Now(),
	}

	if m.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := m.DB.PingContext(pingCtx); err != nil {
			s.Database = "down"
			s.Status = "degraded"
		} else {
			s.Database = "up"
		}
	}
	if r, ok := m.Cache.(cache.StatsReporter); ok {
		stats := r.Stats(ctx)
		s.Cache = &stats
	}
	if m.Live != nil {
		s.LiveClients = m.Live.ClientCount()
	}
	if m.Dispatcher != nil {
		s.LastDispatch = m.Dispatcher.LastRun()
	}
	return s
}

// Health is the unauthenticated liveness probe.
func (m *Monitor) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok", "time": time.Now()})
}

func (m *Monitor) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": m.Snapshot(c.Request.Context())})
}

// Logs returns the last ?lines= lines of the log file as plain text.
func (m *Monitor) Logs(c *gin.Context) {
	n := defaultLogLines
	if v, err := strconv.Atoi(c.Query("lines")); err == nil && v > 0 {
		n = v
	}
	if n > maxLogLines {
		n = maxLogLines
	}

	lines, err := TailFile(m.LogPath, n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
		return
	}

	var out []byte
	for _, l := range lines {
		out = append(out, l...)
		out = append(out, '\n')
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", out)
}

// TailFile returns up to n trailing lines of path.
func TailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ring, nil
}
