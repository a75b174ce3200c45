package domain

import "time"

// Organizational unit owning sources, a processing configuration and runs.
//
// Soft-deletable: DeletedAt is a tombstone, the row is not physically
// removed. All tenant-scoped lookups treat tombstoned projects as missing.
type Project struct {
	Id        string
	OrgId     string
	Name      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (p *Project) Equal(o *Project) bool {
	if (p == nil) || (o == nil) {
		return (p == nil) && (o == nil)
	}
	return p.Id == o.Id &&
		p.OrgId == o.OrgId &&
		p.Name == o.Name &&
		p.CreatedAt.Equal(o.CreatedAt) &&
		timePtrEq(p.DeletedAt, o.DeletedAt)
}

// Page is a pagination request for list operations.
type Page struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps a Page into valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if MaxPageSize < p.PageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
