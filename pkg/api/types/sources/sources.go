package sources

import (
	"github.com/datasmith-io/datasmith/pkg/api/types/rfctime"
	"github.com/datasmith-io/datasmith/pkg/domain"
	"github.com/datasmith-io/datasmith/pkg/utils/cmp"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

type FileDetail struct {
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type ConnectorDetail struct {
	Domain string `json:"domain"`

	// the stored credential is never echoed back.
	HasCredential bool     `json:"hasCredential"`
	DataTypes     []string `json:"dataTypes"`
}

type Detail struct {
	SourceId    string           `json:"sourceId"`
	ProjectId   string           `json:"projectId"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	RecordCount int              `json:"recordCount"`
	Error       string           `json:"error,omitempty"`
	File        *FileDetail      `json:"file,omitempty"`
	Connector   *ConnectorDetail `json:"connector,omitempty"`
	CreatedAt   rfctime.RFC3339  `json:"createdAt"`
	UpdatedAt   rfctime.RFC3339  `json:"updatedAt"`
}

func (d Detail) Equal(o Detail) bool {
	fileEq := (d.File == nil && o.File == nil) ||
		(d.File != nil && o.File != nil && *d.File == *o.File)
	connEq := (d.Connector == nil && o.Connector == nil) ||
		(d.Connector != nil && o.Connector != nil &&
			d.Connector.Domain == o.Connector.Domain &&
			d.Connector.HasCredential == o.Connector.HasCredential &&
			cmp.SliceEq(d.Connector.DataTypes, o.Connector.DataTypes))

	return d.SourceId == o.SourceId &&
		d.ProjectId == o.ProjectId &&
		d.Name == o.Name &&
		d.Type == o.Type &&
		d.Status == o.Status &&
		d.RecordCount == o.RecordCount &&
		d.Error == o.Error &&
		fileEq && connEq &&
		d.CreatedAt.Equal(o.CreatedAt) &&
		d.UpdatedAt.Equal(o.UpdatedAt)
}

func Compose(s domain.Source) Detail {
	d := Detail{
		SourceId:    s.Id,
		ProjectId:   s.ProjectId,
		Name:        s.Name,
		Type:        string(s.Type),
		Status:      string(s.Status),
		RecordCount: s.RecordCount,
		Error:       s.Error,
		CreatedAt:   rfctime.New(s.CreatedAt),
		UpdatedAt:   rfctime.New(s.UpdatedAt),
	}
	if s.File != nil {
		d.File = &FileDetail{Size: s.File.Size, ContentType: s.File.ContentType}
	}
	if s.Connector != nil {
		d.Connector = &ConnectorDetail{
			Domain:        s.Connector.Domain,
			HasCredential: len(s.Connector.Credential) != 0,
			DataTypes:     s.Connector.DataTypes,
		}
	}
	return d
}

// CreateConnectorRequest creates a teamwork source.
// File sources go through multipart upload instead.
type CreateConnectorRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Connector struct {
		Domain     string   `json:"domain"`
		Credential struct {
			ApiKey string `json:"apiKey"`
		} `json:"credential"`
		DataTypes []string `json:"dataTypes"`
	} `json:"connector"`
}

type Schema struct {
	Mapping        map[string]string `json:"mapping"`
	DetectedSchema map[string]string `json:"detectedSchema"`
}

func (s Schema) Equal(o Schema) bool {
	return cmp.MapEq(s.Mapping, o.Mapping) &&
		cmp.MapEq(s.DetectedSchema, o.DetectedSchema)
}

func ComposeSchema(m domain.SchemaMapping) Schema {
	return Schema{
		Mapping:        orEmptyMap(m.Mapping),
		DetectedSchema: orEmptyMap(m.Detected),
	}
}

type PutSchemaRequest struct {
	Mapping map[string]string `json:"mapping"`
}

type DeidentRule struct {
	Field    string `json:"field"`
	Strategy string `json:"strategy"`
}

type CustomDetector struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
}

type PIIFinding struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

type Deidentification struct {
	Enabled   bool             `json:"enabled"`
	Rules     []DeidentRule    `json:"rules"`
	Detectors []CustomDetector `json:"detectors"`

	// read-only; replaced by each detection pass.
	DetectedReport []PIIFinding `json:"detectedReport"`
}

func (d Deidentification) Equal(o Deidentification) bool {
	return d.Enabled == o.Enabled &&
		cmp.SliceEq(d.Rules, o.Rules) &&
		cmp.SliceEq(d.Detectors, o.Detectors) &&
		cmp.SliceEq(d.DetectedReport, o.DetectedReport)
}

func ComposeDeidentification(c domain.DeidentConfig) Deidentification {
	return Deidentification{
		Enabled: c.Enabled,
		Rules: slices.Map(c.Rules, func(r domain.DeidentRule) DeidentRule {
			return DeidentRule{Field: r.Field, Strategy: string(r.Strategy)}
		}),
		Detectors: slices.Map(c.Detectors, func(d domain.CustomDetector) CustomDetector {
			return CustomDetector(d)
		}),
		DetectedReport: slices.Map(c.Report, func(f domain.PIIFinding) PIIFinding {
			return PIIFinding(f)
		}),
	}
}

type PutDeidentificationRequest struct {
	Enabled   bool             `json:"enabled"`
	Rules     []DeidentRule    `json:"rules"`
	Detectors []CustomDetector `json:"detectors"`
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
