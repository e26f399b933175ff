package ensemble

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/firmas-hq/firmas/core/cedula"
)

// Stats aggregates the per-position decisions of one cédula reconciliation.
// Single-source positions count toward Total only — neither Unanimous nor
// Conflicts — so Unanimous + Conflicts <= Total.
type Stats struct {
	Total             int
	Unanimous         int
	Conflicts         int
	SingleSource      int
	UnanimousRatio    float64
	ConflictRatio     float64
	AverageConfidence cedula.Confidence
	Decisions         []cedula.PositionDecision
}

// Aggregate computes ensemble statistics over a decision list.
func Aggregate(decisions []cedula.PositionDecision) Stats {
	s := Stats{Total: len(decisions), Decisions: decisions}
	if s.Total == 0 {
		return s
	}

	var sum float64
	for _, d := range decisions {
		sum += float64(d.Confidence)
		switch d.Kind {
		case cedula.KindUnanimous:
			s.Unanimous++
		case cedula.KindConflictResolved:
			s.Conflicts++
		case cedula.KindSingleSource:
			s.SingleSource++
		}
	}

	s.UnanimousRatio = float64(s.Unanimous) / float64(s.Total)
	s.ConflictRatio = float64(s.Conflicts) / float64(s.Total)
	s.AverageConfidence = cedula.ClampConfidence(sum / float64(s.Total))
	return s
}

// Validate applies the hard conflict gate: when strictly more than
// MaxConflictRatio of the positions disagreed, the two providers were
// looking at different things and the cédula is dropped.
func (s Stats) Validate(cfg Config) bool {
	return s.ConflictRatio <= cfg.MaxConflictRatio
}

// Digits joins the chosen digits into the reconciled string.
func (s Stats) Digits() string {
	var b strings.Builder
	b.Grow(s.Total)
	for _, d := range s.Decisions {
		b.WriteByte(d.Digit)
	}
	return b.String()
}

// LogTable emits the per-position decision table at debug level, one line
// per position. Only called when verbose logging is configured.
func (s Stats) LogTable(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, d := range s.Decisions {
		logger.Debug("position decision",
			"pos", d.Position,
			"digit", string(d.Digit),
			"confidence", fmt.Sprintf("%.3f", float64(d.Confidence)),
			"source", string(d.Source),
			"kind", string(d.Kind))
	}
	logger.Debug("ensemble summary",
		"total", s.Total,
		"unanimous", s.Unanimous,
		"conflicts", s.Conflicts,
		"single_source", s.SingleSource,
		"avg_confidence", fmt.Sprintf("%.3f", float64(s.AverageConfidence)))
}
