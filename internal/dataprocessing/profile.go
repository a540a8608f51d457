package dataprocessing

import (
	"strings"

	"soilhub/internal/exceedance"
)

// ColumnProfile summarises the cells of one column
type ColumnProfile struct {
	Name     string `json:"name"`
	NonBlank int    `json:"non_blank"`
	Numeric  int    `json:"numeric"`
	Distinct int    `json:"distinct"`
}

// Profile reports, per column, how many cells are filled, how many of them
// read as numbers and how many distinct values occur. Distinct values are
// only tracked up to maxDistinct per column; 0 disables the limit.
func Profile(t exceedance.Table, maxDistinct int) []ColumnProfile {
	profiles := make([]ColumnProfile, len(t.Header))
	distinct := make([]map[string]struct{}, len(t.Header))
	for i, h := range t.Header {
		profiles[i].Name = h
		distinct[i] = make(map[string]struct{})
	}

	for _, row := range t.Rows {
		for i := range profiles {
			if i >= len(row) {
				break
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			profiles[i].NonBlank++
			if exceedance.NormalizeString(v) != nil {
				profiles[i].Numeric++
			}
			if maxDistinct <= 0 || len(distinct[i]) < maxDistinct {
				distinct[i][v] = struct{}{}
			}
		}
	}

	for i := range profiles {
		profiles[i].Distinct = len(distinct[i])
	}
	return profiles
}
