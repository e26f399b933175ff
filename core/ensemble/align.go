package ensemble

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/firmas-hq/firmas/core/cedula"
)

// FallbackConfidence is assigned to every digit when a provider response
// carries no usable confidence data at all.
const FallbackConfidence = 0.85

// CharConf is one flattened character from a provider's native response
// tree, paired with the confidence the provider assigned to it. Google-style
// trees yield symbol-level entries; Azure-style trees yield one entry per
// character with the enclosing word's confidence.
type CharConf struct {
	Ch   rune
	Conf cedula.Confidence
}

// AlignDigits maps per-character provider confidences onto target. The
// flattened characters are projected down to their digits, the target is
// located in that projection by literal substring search, and the matched
// confidence slice is returned. When the target cannot be located the
// response-wide mean confidence is used for every digit; when the response
// is empty, FallbackConfidence is.
//
// The returned value always satisfies len(PerDigit) == len(target).
func AlignDigits(target cedula.DigitString, flat []CharConf, source string, logger *slog.Logger) cedula.DigitConfidence {
	if logger == nil {
		logger = slog.Default()
	}

	var projection strings.Builder
	confs := make([]cedula.Confidence, 0, len(flat))
	for _, cc := range flat {
		if !unicode.IsDigit(cc.Ch) {
			continue
		}
		projection.WriteRune(cc.Ch)
		confs = append(confs, clamp(cc.Conf))
	}

	n := target.Len()

	if len(confs) == 0 {
		return uniform(target, FallbackConfidence, source)
	}

	idx := strings.Index(projection.String(), target.String())
	if idx < 0 {
		mean := meanConfidence(confs)
		logger.Warn("target digits not located in provider response, using mean confidence",
			"source", source,
			"target", target.String(),
			"projection_len", projection.Len(),
			"mean", float64(mean))
		return uniform(target, mean, source)
	}

	perDigit := make([]cedula.Confidence, n)
	copy(perDigit, confs[idx:idx+n])
	return cedula.DigitConfidence{
		Text:     target,
		PerDigit: perDigit,
		Average:  meanConfidence(perDigit),
		Source:   source,
	}
}

// uniform fills every position of target with the same confidence.
func uniform(target cedula.DigitString, c cedula.Confidence, source string) cedula.DigitConfidence {
	perDigit := make([]cedula.Confidence, target.Len())
	for i := range perDigit {
		perDigit[i] = clamp(c)
	}
	return cedula.DigitConfidence{
		Text:     target,
		PerDigit: perDigit,
		Average:  clamp(c),
		Source:   source,
	}
}

func meanConfidence(cs []cedula.Confidence) cedula.Confidence {
	if len(cs) == 0 {
		return FallbackConfidence
	}
	var sum float64
	for _, c := range cs {
		sum += float64(c)
	}
	return clamp(cedula.Confidence(sum / float64(len(cs))))
}

func clamp(c cedula.Confidence) cedula.Confidence {
	return cedula.ClampConfidence(float64(c))
}
