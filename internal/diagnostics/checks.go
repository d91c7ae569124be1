package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verity-labs/chorus/internal/core"
)

// CheckStatus is the outcome of one doctor check.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// Check is one named doctor check result.
type Check struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// CheckBackend pings the model backend with a short deadline.
func CheckBackend(ctx context.Context, backend core.ModelBackend) Check {
	check := Check{Name: "model backend (" + backend.Name() + ")"}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		check.Status = CheckFail
		check.Message = err.Error()
		return check
	}
	check.Status = CheckOK
	check.Message = "reachable"
	return check
}

// CheckWritableDir verifies a directory exists (creating it if needed)
// and accepts writes.
func CheckWritableDir(name, dir string) Check {
	check := Check{Name: name}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return check
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("cannot write to %s: %v", dir, err)
		return check
	}
	_ = os.Remove(probe)

	check.Status = CheckOK
	check.Message = dir
	return check
}

// CheckDiskHeadroom warns when the filesystem holding dir is close to
// full.
func CheckDiskHeadroom(report SystemReport) Check {
	check := Check{Name: "disk headroom"}
	switch {
	case report.DiskTotalGB == 0:
		check.Status = CheckWarn
		check.Message = "disk usage unavailable"
	case report.DiskPercent >= 95:
		check.Status = CheckFail
		check.Message = fmt.Sprintf("%.1f%% used, %.1f GB free", report.DiskPercent, report.DiskFreeGB)
	case report.DiskPercent >= 85:
		check.Status = CheckWarn
		check.Message = fmt.Sprintf("%.1f%% used, %.1f GB free", report.DiskPercent, report.DiskFreeGB)
	default:
		check.Status = CheckOK
		check.Message = fmt.Sprintf("%.1f GB free", report.DiskFreeGB)
	}
	return check
}
