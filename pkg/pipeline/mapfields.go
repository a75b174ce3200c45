package pipeline

import "context"

type mapFieldsStage struct{}

// NewMapFields renames record fields per each source's schema mapping.
// Unmapped fields pass through unchanged.
func NewMapFields() Stage {
	return &mapFieldsStage{}
}

func (*mapFieldsStage) Name() string {
	return "mapfields"
}

func (*mapFieldsStage) Run(ctx context.Context, ws *Workspace) error {
	for i, r := range ws.Records {
		in, ok := ws.input(r.SourceId)
		if !ok || len(in.Mapping) == 0 {
			continue
		}

		mapped := make(map[string]any, len(r.Fields))
		for field, value := range r.Fields {
			if target, ok := in.Mapping[field]; ok && target != "" {
				mapped[target] = value
				continue
			}
			mapped[field] = value
		}
		ws.Records[i].Fields = mapped
	}
	return nil
}
