package classes

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/areduca/classbuilder/internal/classes"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
