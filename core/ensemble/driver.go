package ensemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/firmas-hq/firmas/core/cedula"
)

// ErrProviderUnavailable is returned when no OCR provider produced a usable
// response for an image.
var ErrProviderUnavailable = errors.New("ensemble: no OCR provider available")

// Result is the outcome of one image extraction. DegradedTo names the
// surviving provider when the run fell back to single-provider mode.
type Result struct {
	Records    []cedula.CedulaRecord
	DegradedTo string
	Dropped    int
}

// Driver runs the two OCR providers in parallel and reconciles their
// candidate lists into final cédula records. With a nil secondary provider
// the driver operates in single-provider mode and the combination stages
// are bypassed.
type Driver struct {
	primary   Provider
	secondary Provider
	cfg       Config
	resolver  *Resolver
	logger    *slog.Logger
}

// NewDriver returns an ensemble driver over the two providers. secondary
// may be nil for single-provider mode. A nil logger falls back to
// slog.Default.
func NewDriver(primary, secondary Provider, cfg Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		resolver:  NewResolver(cfg),
		logger:    logger,
	}
}

// Extract OCRs the image with both providers concurrently, joins, pairs the
// candidate lists by position, and reconciles each pair. If exactly one
// provider fails, extraction continues with the survivor's candidates taken
// verbatim (logged, and flagged in the result); if both fail, the error
// wraps ErrProviderUnavailable.
func (d *Driver) Extract(ctx context.Context, image []byte) (*Result, error) {
	if d.secondary == nil {
		cands, err := d.primary.Extract(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, d.primary.Name(), err)
		}
		return &Result{Records: d.takeVerbatim(cands)}, nil
	}

	var (
		pCands, sCands []cedula.RawCandidate
		pErr, sErr     error
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		pCands, pErr = d.primary.Extract(ctx, image)
		return nil
	})
	g.Go(func() error {
		sCands, sErr = d.secondary.Extract(ctx, image)
		return nil
	})
	// Join before pairing: both provider calls must complete first. Errors
	// are collected per side, never through the group.
	_ = g.Wait()

	switch {
	case pErr != nil && sErr != nil:
		return nil, fmt.Errorf("%w: %s: %v; %s: %v", ErrProviderUnavailable, d.primary.Name(), pErr, d.secondary.Name(), sErr)
	case pErr != nil:
		d.logger.Warn("primary provider failed, continuing single-provider", "provider", d.primary.Name(), "error", pErr)
		return &Result{Records: d.takeVerbatim(sCands), DegradedTo: d.secondary.Name()}, nil
	case sErr != nil:
		d.logger.Warn("secondary provider failed, continuing single-provider", "provider", d.secondary.Name(), "error", sErr)
		return &Result{Records: d.takeVerbatim(pCands), DegradedTo: d.primary.Name()}, nil
	}

	res := &Result{}
	for _, pair := range PairCandidates(pCands, sCands, d.cfg) {
		rec, ok := d.combine(ctx, pair)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// combine reconciles one candidate pair into a record. The length validator
// is consulted first; equal lengths go through per-digit comparison and the
// statistics gate.
func (d *Driver) combine(ctx context.Context, pair Pair) (cedula.CedulaRecord, bool) {
	if chosen := ChooseByLength(pair.Primary, pair.Secondary); chosen != nil {
		return cedula.CedulaRecord{Digits: chosen.Digits, Confidence: chosen.Confidence}, true
	}

	pData := d.perDigit(ctx, d.primary, pair.Primary)
	sData := d.perDigit(ctx, d.secondary, pair.Secondary)

	decisions, err := CompareAll(d.resolver, pData, sData)
	if err != nil {
		d.logger.Info("cedula dropped by digit comparison",
			"primary", pair.Primary.Digits.String(),
			"secondary", pair.Secondary.Digits.String(),
			"reason", err)
		return cedula.CedulaRecord{}, false
	}

	stats := Aggregate(decisions)
	if d.cfg.VerboseLogging {
		stats.LogTable(d.logger)
	}
	if !stats.Validate(d.cfg) {
		d.logger.Info("cedula dropped by conflict-ratio gate",
			"primary", pair.Primary.Digits.String(),
			"secondary", pair.Secondary.Digits.String(),
			"conflict_ratio", stats.ConflictRatio)
		return cedula.CedulaRecord{}, false
	}

	digits, err := cedula.NewDigitString(stats.Digits())
	if err != nil {
		d.logger.Warn("reconciled digits invalid", "digits", stats.Digits(), "error", err)
		return cedula.CedulaRecord{}, false
	}
	return cedula.CedulaRecord{Digits: digits, Confidence: stats.AverageConfidence}, true
}

// perDigit fetches the candidate's per-digit confidences, substituting a
// uniform spread of the whole-string confidence when the provider traversal
// fails. Traversal errors never abort a reconciliation.
func (d *Driver) perDigit(ctx context.Context, p Provider, cand cedula.RawCandidate) cedula.DigitConfidence {
	data, err := p.PerDigit(ctx, cand, cand.Digits)
	if err != nil {
		d.logger.Warn("per-digit extraction failed, using uniform confidence",
			"provider", p.Name(), "digits", cand.Digits.String(), "error", err)
		return uniform(cand.Digits, cand.Confidence, p.Name())
	}
	if err := data.Check(); err != nil {
		d.logger.Warn("per-digit data violated invariants, using uniform confidence",
			"provider", p.Name(), "error", err)
		return uniform(cand.Digits, cand.Confidence, p.Name())
	}
	return data
}

// takeVerbatim passes single-provider candidates through with only the
// digit-string validity check applied.
func (d *Driver) takeVerbatim(cands []cedula.RawCandidate) []cedula.CedulaRecord {
	records := make([]cedula.CedulaRecord, 0, len(cands))
	for _, c := range cands {
		if !c.Digits.IsValid() {
			d.logger.Info("candidate dropped, invalid digit string", "digits", c.Digits.String(), "provider", c.Provider)
			continue
		}
		records = append(records, cedula.CedulaRecord{Digits: c.Digits, Confidence: c.Confidence})
	}
	return records
}
