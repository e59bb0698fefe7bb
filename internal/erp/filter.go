package erp

import (
	"fmt"
	"strings"
)

// Filter builds the ERP item query grammar: clauses are field==value or
// field>=value, ANDed with commas.
type Filter struct {
	clauses []string
}

func NewFilter() *Filter {
	return &Filter{}
}

// Eq adds field==value.
func (f *Filter) Eq(field string, value interface{}) *Filter {
	f.clauses = append(f.clauses, fmt.Sprintf("%s==%v", field, value))
	return f
}

// Gte adds field>=value.
func (f *Filter) Gte(field string, value interface{}) *Filter {
	f.clauses = append(f.clauses, fmt.Sprintf("%s>=%v", field, value))
	return f
}

func (f *Filter) String() string {
	return strings.Join(f.clauses, ",")
}

// OutletSince is the incremental query: rows of one outlet at or after the watermark.
func OutletSince(outletID int, watermark int64) *Filter {
	return NewFilter().Eq("outletId", outletID).Gte("itemTimeStamp", watermark)
}
