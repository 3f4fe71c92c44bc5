package engine

import "sort"

// labelEncoder maps categorical values to integer codes for numeric
// processing and back. Codes are assigned over sorted distinct observed
// values so the mapping is deterministic for a given column.
//
// Encoder state is owned by a single ImputeMissingValues call and must not
// be shared across unrelated datasets.
type labelEncoder struct {
	classes []string
	index   map[string]int
}

// newLabelEncoder fits an encoder over the observed values. Returns nil when
// there is nothing to encode.
func newLabelEncoder(observed []string) *labelEncoder {
	if len(observed) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(observed))
	for _, v := range observed {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &labelEncoder{classes: classes, index: index}
}

// encode returns the integer code for a value
func (e *labelEncoder) encode(v string) (int, bool) {
	code, ok := e.index[v]
	return code, ok
}

// decode maps a code back to its value, saturating out-of-range codes to the
// nearest valid code. KNN-averaged codes can land outside the fitted range
// when neighbors are highly mixed.
func (e *labelEncoder) decode(code int) string {
	if code < 0 {
		code = 0
	}
	if code >= len(e.classes) {
		code = len(e.classes) - 1
	}
	return e.classes[code]
}
