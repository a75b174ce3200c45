package projects

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/datasmith-io/datasmith/pkg/api/types/rfctime"
	"github.com/datasmith-io/datasmith/pkg/domain"
)

type Detail struct {
	ProjectId string          `json:"projectId"`
	Name      string          `json:"name"`
	CreatedAt rfctime.RFC3339 `json:"createdAt"`
}

func (d Detail) Equal(o Detail) bool {
	return d.ProjectId == o.ProjectId &&
		d.Name == o.Name &&
		d.CreatedAt.Equal(o.CreatedAt)
}

func Compose(p domain.Project) Detail {
	return Detail{
		ProjectId: p.Id,
		Name:      p.Name,
		CreatedAt: rfctime.New(p.CreatedAt),
	}
}

type CreateRequest struct {
	Name string `json:"name"`
}

func (r *CreateRequest) UnmarshalJSON(bytes []byte) error {
	f := new(struct {
		Name *string `json:"name"`
	})
	if err := json.Unmarshal(bytes, f); err != nil {
		return err
	}
	if f.Name == nil || strings.TrimSpace(*f.Name) == "" {
		return fmt.Errorf(`required field missing: "name"`)
	}
	r.Name = strings.TrimSpace(*f.Name)
	return nil
}
