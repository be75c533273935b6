package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// InstrumentDB attaches query spans to db when tracing is set and exports
// the connection pool statistics to reg under the given database name.
// Registering the same pool twice is not an error.
func InstrumentDB(db *gorm.DB, reg prometheus.Registerer, name string, withTracing bool) error {
	if withTracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return err
		}
	}
	if reg == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := reg.Register(collectors.NewDBStatsCollector(sqlDB, name)); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
	}
	return nil
}
