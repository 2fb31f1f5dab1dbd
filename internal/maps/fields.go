package maps

import (
	"strconv"
	"strings"
)

// NoData is the display value for attributes the upstream did not provide.
const NoData = "Ni podatka"

// Logical attribute names resolved from feature properties.
const (
	FieldParcelNumber  = "parcel_number"
	FieldCadastralUnit = "cadastral_unit"
	FieldArea          = "area"
	FieldLandUse       = "land_use"
)

// fieldCandidates maps each logical attribute to an ordered list of upstream
// property names. Attribute naming varies by dataset and server
// configuration, so resolution is first-match over this table rather than a
// single literal per call site.
var fieldCandidates = map[string][]string{
	FieldParcelNumber:  {"ST_PARCELE", "PARCELA", "PARC_ST", "STEV_PARC", "EID_PARCELA"},
	FieldCadastralUnit: {"IME_KO", "KO_IME", "NAZIV_KO", "KATASTRSKA_OBCINA", "KO_ID"},
	FieldArea:          {"POVRSINA", "POVRSINA_M2", "POVRS", "AREA", "SHAPE_AREA"},
	FieldLandUse:       {"NAMENSKA_RABA", "RABA", "OPIS_RABE", "RABA_OPIS", "OPIS"},
}

// ResolveField returns the first candidate property present with a
// non-empty value. Property names are matched case-insensitively because
// the same dataset has been observed serving both cases.
func ResolveField(props map[string]any, logical string) (string, bool) {
	if len(props) == 0 {
		return "", false
	}
	upper := make(map[string]any, len(props))
	for k, v := range props {
		upper[strings.ToUpper(k)] = v
	}
	for _, candidate := range fieldCandidates[logical] {
		v, ok := upper[candidate]
		if !ok || v == nil {
			continue
		}
		s := stringify(v)
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// ResolveArea resolves the area attribute as square meters. Values that
// fail to parse as a number resolve to zero, which renders as "no data"
// rather than "0 m²".
func ResolveArea(props map[string]any) float64 {
	raw, ok := ResolveField(props, FieldArea)
	if !ok {
		return 0
	}
	// upstream uses both decimal points and commas
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
