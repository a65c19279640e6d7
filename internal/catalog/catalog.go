// Package catalog loads option strategy definitions from a directory of JSON
// records. Records are schema-validated on load; a bad record is skipped and
// logged, never fatal.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	DirectionBullish = "BULLISH"
	DirectionBearish = "BEARISH"
	DirectionNeutral = "NEUTRAL"
	DirectionAny     = "ANY"
)

var validate = validator.New()

// Leg is one option contract action within a strategy.
type Leg struct {
	Action      string `json:"action" validate:"required,oneof=BUY SELL"`
	Type        string `json:"type" validate:"required,oneof=CALL PUT"`
	StrikeLogic string `json:"strike_logic" validate:"required"`
	Quantity    int    `json:"quantity" validate:"omitempty,min=1"`
}

// EntryRules gate when a strategy is applicable. An absent trend rule is
// unconstrained; the IV rank band defaults to the full 0-100 range.
type EntryRules struct {
	Trend     string `json:"trend" validate:"omitempty,oneof=UP DOWN SIDEWAYS"`
	MinIVRank int    `json:"min_iv_rank" validate:"min=0,max=100"`
	MaxIVRank int    `json:"max_iv_rank" validate:"min=0,max=100"`
}

// ExitRules are carried for reporting and position management.
type ExitRules struct {
	MaxDaysHeld     int     `json:"max_days_held" validate:"omitempty,min=1"`
	ProfitTargetPct float64 `json:"profit_target_pct"`
	StopLossPct     float64 `json:"stop_loss_pct"`
}

// Definition is one playbook entry.
type Definition struct {
	ID        string     `json:"id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Type      string     `json:"type" validate:"required"`
	Direction string     `json:"direction" validate:"required,oneof=BULLISH BEARISH NEUTRAL ANY"`
	Legs      []Leg      `json:"legs" validate:"required,min=1,dive"`
	Entry     EntryRules `json:"entry_rules"`
	Exit      ExitRules  `json:"exit_rules"`
}

// Load reads every *.json file under dir in lexical order. Invalid or
// duplicate records are skipped with a logged reason. A missing directory
// yields an empty catalog.
func Load(dir string, log *zap.Logger) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("strategy catalog directory missing", zap.String("dir", dir))
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	defs := make([]Definition, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("strategy file unreadable", zap.String("file", name), zap.Error(err))
			continue
		}
		var def Definition
		if err := json.Unmarshal(raw, &def); err != nil {
			log.Warn("strategy file malformed", zap.String("file", name), zap.Error(err))
			continue
		}
		applyDefaults(&def)
		if err := validate.Struct(def); err != nil {
			log.Warn("strategy failed validation", zap.String("file", name), zap.Error(err))
			continue
		}
		if seen[def.ID] {
			log.Warn("duplicate strategy id skipped", zap.String("file", name), zap.String("id", def.ID))
			continue
		}
		seen[def.ID] = true
		defs = append(defs, def)
	}
	log.Info("strategy catalog loaded", zap.Int("strategies", len(defs)), zap.Int("files", len(names)))
	return defs, nil
}

func applyDefaults(def *Definition) {
	if def.Entry.MaxIVRank == 0 {
		def.Entry.MaxIVRank = 100
	}
	for i := range def.Legs {
		if def.Legs[i].Quantity == 0 {
			def.Legs[i].Quantity = 1
		}
	}
}
