package bus

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// broadcastStats periodically reports host process statistics to every
// attached surface.
func (h *Hub) broadcastStats() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		h.log.Warn("host stats unavailable", zap.Error(err))
		proc = nil
	}

	ticker := time.NewTicker(h.opts.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Broadcast(Message{
				Type:      MessageTypeHostStats,
				Data:      h.collectStats(proc),
				Timestamp: time.Now(),
			})
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) collectStats(proc *process.Process) HostStatsData {
	stats := HostStatsData{
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Surfaces:      int(h.surfaceCount.Load()),
	}
	if proc == nil {
		return stats
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		stats.MemoryRSSMB = float64(mem.RSS) / (1024 * 1024)
	}
	return stats
}
