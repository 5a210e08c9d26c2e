package service

import (
	"strconv"
	"strings"

	"github.com/uns-cex/matricula-api/internal/models"
	"github.com/uns-cex/matricula-api/pkg/config"
)

// FeeSchedule resolves the monthly fee for a level from configuration.
// Unknown levels and unparseable entries fall back to the default amount.
type FeeSchedule struct {
	amounts  map[models.Level]float64
	fallback float64
}

// NewFeeSchedule parses a schedule string such as
// "Inicial=130,Primaria=180,Secundaria=180".
func NewFeeSchedule(cfg config.FeesConfig) *FeeSchedule {
	schedule := &FeeSchedule{
		amounts:  make(map[models.Level]float64),
		fallback: cfg.DefaultAmount,
	}
	for _, entry := range strings.Split(cfg.Schedule, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 {
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		schedule.amounts[models.Level(strings.TrimSpace(parts[0]))] = amount
	}
	return schedule
}

// AmountFor returns the fee for the level.
func (f *FeeSchedule) AmountFor(level models.Level) float64 {
	if amount, ok := f.amounts[level]; ok {
		return amount
	}
	return f.fallback
}
