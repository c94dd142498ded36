package api

import (
	"runtime"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/counting"
)

// Set with -ldflags "-X github.com/MJE43/blackjack-advisor-go/internal/api.EngineVersion=..."
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// VersionInfo describes the running build and what it can compute.
type VersionInfo struct {
	EngineVersion   string   `json:"engine_version"`
	GitCommit       string   `json:"git_commit,omitempty"`
	BuildTime       string   `json:"build_time,omitempty"`
	GoVersion       string   `json:"go_version"`
	Methods         []string `json:"methods"`
	CountingSystems []string `json:"counting_systems"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		GoVersion:     runtime.Version(),
		Methods: []string{
			analysis.MethodNewtonRaphson,
			analysis.MethodInterpolation,
			analysis.MethodTrapezoidal,
		},
		CountingSystems: []string{string(counting.HiLo), string(counting.KO)},
	}
}
