package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/datasmith-io/datasmith/pkg/domain"
)

type deidentifyStage struct{}

// NewDeidentify applies each source's per-field strategies to records
// of sources whose de-identification is enabled.
func NewDeidentify() Stage {
	return &deidentifyStage{}
}

func (*deidentifyStage) Name() string {
	return "deidentify"
}

func (*deidentifyStage) Run(ctx context.Context, ws *Workspace) error {
	masked := 0
	for i, r := range ws.Records {
		in, ok := ws.input(r.SourceId)
		if !ok || !in.Deident.Enabled || len(in.Deident.Rules) == 0 {
			continue
		}

		for _, rule := range in.Deident.Rules {
			value, ok := r.Fields[rule.Field]
			if !ok {
				continue
			}
			if rule.Strategy == domain.StrategyRemove {
				delete(ws.Records[i].Fields, rule.Field)
				masked += 1
				continue
			}
			text, ok := value.(string)
			if !ok {
				text = fmt.Sprint(value)
			}
			replaced, err := apply(rule.Strategy, text)
			if err != nil {
				return err
			}
			ws.Records[i].Fields[rule.Field] = replaced
			masked += 1
		}
	}

	ws.Stats.PIIMasked = masked
	if masked != 0 {
		ws.log(domain.LogInfo, "de-identified %d field values", masked)
	}
	return nil
}

func apply(strategy domain.DeidentStrategy, text string) (string, error) {
	switch strategy {
	case domain.StrategyMask:
		return strings.Repeat("*", utf8.RuneCountInString(text)), nil
	case domain.StrategyHash:
		sum := sha256.Sum256([]byte(text))
		return hex.EncodeToString(sum[:]), nil
	case domain.StrategyTokenize:
		// stable per value, so the same speaker keeps the same token
		// across records.
		sum := sha256.Sum256([]byte(text))
		return "tok_" + hex.EncodeToString(sum[:4]), nil
	default:
		return "", fmt.Errorf("'%s' is not a de-identification strategy", strategy)
	}
}
