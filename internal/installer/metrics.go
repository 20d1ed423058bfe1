package installer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

const meterName = "github.com/alexisbeaulieu97/modhost/internal/installer"

// Metric instrument names.
const (
	MetricInstallAttempts   = "modhost.install.attempts"
	MetricInstallSuccesses  = "modhost.install.successes"
	MetricInstallRejections = "modhost.install.rejections"
	MetricUninstalls        = "modhost.uninstall.total"
)

// Metrics counts install and uninstall outcomes.
type Metrics struct {
	attempts   metric.Int64Counter
	successes  metric.Int64Counter
	rejections metric.Int64Counter
	uninstalls metric.Int64Counter
}

// NewMetrics creates the instruments on meter. A nil meter uses the global
// MeterProvider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}

	m := new(Metrics)
	var err error
	if m.attempts, err = meter.Int64Counter(
		MetricInstallAttempts,
		metric.WithDescription("Total number of install attempts"),
	); err != nil {
		return nil, fmt.Errorf("failed to create attempts instrument, %v", err)
	}
	if m.successes, err = meter.Int64Counter(
		MetricInstallSuccesses,
		metric.WithDescription("Total number of modules installed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create successes instrument, %v", err)
	}
	if m.rejections, err = meter.Int64Counter(
		MetricInstallRejections,
		metric.WithDescription("Total number of rejected packages by error kind"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rejections instrument, %v", err)
	}
	if m.uninstalls, err = meter.Int64Counter(
		MetricUninstalls,
		metric.WithDescription("Total number of modules uninstalled"),
	); err != nil {
		return nil, fmt.Errorf("failed to create uninstalls instrument, %v", err)
	}
	return m, nil
}

func (m *Metrics) attempt(ctx context.Context) {
	m.attempts.Add(ctx, 1)
}

func (m *Metrics) success(ctx context.Context) {
	m.successes.Add(ctx, 1)
}

func (m *Metrics) reject(ctx context.Context, err error) {
	kind := string(moderrors.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordUninstall counts a removed module.
func (m *Metrics) RecordUninstall(ctx context.Context) {
	m.uninstalls.Add(ctx, 1)
}
