package health

import (
	"context"
	"fmt"
	"time"

	"github.com/halvard/quill/internal/analytics"
)

// Status is the overall health verdict.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// ServiceStatus reports one dependency check.
type ServiceStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Report is a full health-check result.
type Report struct {
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Platform  ServiceStatus `json:"platform"`
	Inference ServiceStatus `json:"inference"`
	Bot       BotStatus     `json:"bot"`
	Env       EnvStatus     `json:"env"`
}

// BotStatus summarizes runtime counters from analytics.
type BotStatus struct {
	Running     bool          `json:"running"`
	Uptime      time.Duration `json:"uptime"`
	TotalPosts  int           `json:"total_posts"`
	SuccessRate float64       `json:"success_rate"`
}

// EnvStatus reports whether credentials are configured at all, independent of
// whether they work.
type EnvStatus struct {
	HasPlatformToken  bool `json:"has_platform_token"`
	HasInferenceToken bool `json:"has_inference_token"`
}

// Verifier checks platform credentials. Satisfied by publish.Client.
type Verifier interface {
	Verify(ctx context.Context) (string, error)
}

// Prober checks the generation backend. Satisfied by generation.Pipeline.
type Prober interface {
	Probe(ctx context.Context) error
}

// SnapshotReader supplies analytics counters. Satisfied by analytics.Store.
type SnapshotReader interface {
	Snapshot() (analytics.Snapshot, error)
}

// successRateFloor is the success percentage below which the bot is flagged.
const successRateFloor = 80.0

// Checker aggregates dependency probes and analytics into one report.
type Checker struct {
	platform  Verifier
	inference Prober
	store     SnapshotReader
	env       EnvStatus
}

// NewChecker wires the checker. Any dependency may be nil; a nil dependency
// is reported as an error with an explanatory message.
func NewChecker(platform Verifier, inference Prober, store SnapshotReader, env EnvStatus) *Checker {
	return &Checker{platform: platform, inference: inference, store: store, env: env}
}

// Check runs every probe. A failing service yields an error status; missing
// credentials or a low success rate downgrade a healthy result to warning.
func (c *Checker) Check(ctx context.Context) Report {
	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Env:       c.env,
	}

	report.Platform = c.checkPlatform(ctx)
	report.Inference = c.checkInference(ctx)
	if report.Platform.Status == StatusError || report.Inference.Status == StatusError {
		report.Status = StatusError
	}

	if c.store != nil {
		if snap, err := c.store.Snapshot(); err == nil {
			report.Bot = BotStatus{
				Running:     snap.Running,
				Uptime:      snap.Uptime,
				TotalPosts:  snap.TotalPosts,
				SuccessRate: snap.SuccessRate,
			}
			if snap.TotalPosts > 0 && snap.SuccessRate < successRateFloor {
				report.Status = worsen(report.Status, StatusWarning)
			}
		}
	}

	if !c.env.HasPlatformToken || !c.env.HasInferenceToken {
		report.Status = worsen(report.Status, StatusWarning)
	}

	return report
}

func (c *Checker) checkPlatform(ctx context.Context) ServiceStatus {
	if c.platform == nil {
		return ServiceStatus{Status: StatusError, Message: "platform client not configured"}
	}
	username, err := c.platform.Verify(ctx)
	if err != nil {
		return ServiceStatus{Status: StatusError, Message: fmt.Sprintf("platform API error: %v", err)}
	}
	return ServiceStatus{Status: StatusHealthy, Message: "authenticated as @" + username}
}

func (c *Checker) checkInference(ctx context.Context) ServiceStatus {
	if c.inference == nil {
		return ServiceStatus{Status: StatusError, Message: "generation backend not configured"}
	}
	if err := c.inference.Probe(ctx); err != nil {
		return ServiceStatus{Status: StatusError, Message: fmt.Sprintf("inference API error: %v", err)}
	}
	return ServiceStatus{Status: StatusHealthy, Message: "inference API is accessible"}
}

// worsen downgrades current to candidate unless current is already worse.
func worsen(current, candidate Status) Status {
	if current == StatusError {
		return StatusError
	}
	return candidate
}
