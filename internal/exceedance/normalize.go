package exceedance

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// minusVariants maps locale minus signs onto ASCII '-'. Full-width forms are
// narrowed separately by width.Narrow.
var minusVariants = strings.NewReplacer(
	"−", "-", // minus sign
	"﹣", "-", // small hyphen-minus
	"‒", "-", // figure dash
	"–", "-", // en dash
)

// NormalizeString turns a raw measurement cell such as "12.5mg" or "－0.3"
// into a float. Anything that does not survive cleanup as a number yields nil.
func NormalizeString(raw string) *float64 {
	if raw == "" {
		return nil
	}

	s := minusVariants.Replace(width.Narrow.String(raw))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '+', r == '-', r == 'e', r == 'E':
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return nil
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NormalizeValue accepts the cell types produced by the ingestion readers and
// spreadsheet libraries. Numbers pass through unchanged.
func NormalizeValue(raw any) *float64 {
	var v float64
	switch x := raw.(type) {
	case nil:
		return nil
	case *float64:
		if x == nil {
			return nil
		}
		v = *x
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case int32:
		v = float64(x)
	case string:
		return NormalizeString(x)
	case []byte:
		return NormalizeString(string(x))
	default:
		return nil
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Normalize returns a copy of ds whose records carry normalized values for
// items. Unparseable non-blank cells are added to the diagnostics.
func Normalize(ds *Dataset, items []string) *Dataset {
	out := *ds
	out.Records = make([]Record, len(ds.Records))
	out.Diagnostics = ds.Diagnostics.clone()

	present := make([]string, 0, len(items))
	for _, item := range items {
		if ds.HasColumn(item) {
			present = append(present, item)
		}
	}

	for i, rec := range ds.Records {
		values := make(map[string]*float64, len(rec.Values)+len(present))
		for k, v := range rec.Values {
			values[k] = v
		}
		for _, item := range present {
			if _, done := rec.Values[item]; done {
				continue
			}
			raw := rec.Cells[item]
			v := NormalizeString(raw)
			if v == nil && strings.TrimSpace(raw) != "" {
				out.Diagnostics.addUnparseable(item)
			}
			values[item] = v
		}
		rec.Values = values
		out.Records[i] = rec
	}

	out.Diagnostics.addMissing(ds, items)
	return &out
}
