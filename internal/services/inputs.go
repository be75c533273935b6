package services

import (
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/utils"
)

// Identified carries the optional id of a patch entry. Batch updates
// require it; single updates reject it.
type Identified struct {
	ID *uint `json:"id,omitempty" binding:"omitempty,min=1"`
}

// TargetID implements PatchInput.
func (i Identified) TargetID() *uint { return i.ID }

// ListParams are the ordering and paging parameters shared by every list
// endpoint.
type ListParams struct {
	Order string `form:"order" binding:"omitempty,oneof=asc desc"`
	Skip  *int   `form:"skip"  binding:"omitempty,min=0"`
	Limit *int   `form:"limit" binding:"omitempty,min=0"`
}

// Paging implements Filter.
func (p ListParams) Paging() (skip, limit *int) { return p.Skip, p.Limit }

// descending reports the sort direction; anything but "asc" sorts descending.
func (p ListParams) descending() bool { return p.Order != "asc" }

// orderBy returns sortBy or the entity default when unset.
func orderBy(sortBy, def string) string {
	if sortBy == "" {
		return def
	}
	return sortBy
}

// predicates collects optional filters; unset values add nothing.
type predicates []repo.Predicate

func (ps *predicates) contains(col, needle string) {
	if needle != "" {
		*ps = append(*ps, repo.Contains(col, needle))
	}
}

func (ps *predicates) eqString(col, v string) {
	if v != "" {
		*ps = append(*ps, repo.Eq(col, v))
	}
}

func (ps *predicates) eqInt(col string, v *int) {
	if v != nil {
		*ps = append(*ps, repo.Eq(col, *v))
	}
}

func (ps *predicates) eqUint(col string, v *uint) {
	if v != nil {
		*ps = append(*ps, repo.Eq(col, *v))
	}
}

func (ps *predicates) atLeast(col string, t *utils.Time) {
	if t != nil {
		*ps = append(*ps, repo.AtLeast(col, *t.Ptr()))
	}
}

func (ps *predicates) atMost(col string, t *utils.Time) {
	if t != nil {
		*ps = append(*ps, repo.AtMost(col, *t.Ptr()))
	}
}

// fieldSet accumulates column writes for a patch.
type fieldSet map[string]any

func (f fieldSet) text(col string, v *string) {
	if v != nil {
		f[col] = *v
	}
}

func (f fieldSet) num(col string, v *int) {
	if v != nil {
		f[col] = *v
	}
}

func (f fieldSet) when(col string, v *utils.Time) {
	if v != nil {
		f[col] = *v.Ptr()
	}
}

func deref[V any](p *V) V {
	var zero V
	if p == nil {
		return zero
	}
	return *p
}
