package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ISO-8601 layouts written for created_at. Fractional seconds are written
// only when non-zero.
const (
	isoSecondsLayout = "2006-01-02T15:04:05"
	isoMicrosLayout  = "2006-01-02T15:04:05.000000"
	isoOffsetLayout  = "-07:00"
)

// Wire keys shared by both report variants.
const (
	keyCompetitionID    = "competition_id"
	keySubmissionExists = "submission_exists"
	keyValidSubmission  = "valid_submission"
	keyCreatedAt        = "created_at"
	keySubmissionPath   = "submission_path"
)

// Wire keys of CompetitionReport.
const (
	keyScore           = "score"
	keyGoldThreshold   = "gold_threshold"
	keySilverThreshold = "silver_threshold"
	keyBronzeThreshold = "bronze_threshold"
	keyMedianThreshold = "median_threshold"
	keyAnyMedal        = "any_medal"
	keyGoldMedal       = "gold_medal"
	keySilverMedal     = "silver_medal"
	keyBronzeMedal     = "bronze_medal"
	keyAboveMedian     = "above_median"
	keyIsLowerBetter   = "is_lower_better"
)

// Wire keys of CodeCompetitionReport.
const (
	keyDefinedClasses       = "defined_classes"
	keyInitializedClasses   = "initialized_classes"
	keyDefinedClassMethods  = "defined_class_methods"
	keyExecutedClassMethods = "executed_class_methods"
	keyDefinedFunctions     = "defined_functions"
	keyExecutedFunctions    = "executed_functions"
	keyTestMetric           = "test_metric"
)

// ToDict encodes the report as a flat mapping of JSON-compatible values.
// The score is written as a string, or nil when absent, while thresholds
// stay numeric. Downstream consumers depend on this asymmetry.
func (r CompetitionReport) ToDict() map[string]any {
	var score any
	if s, ok := r.scoreString(); ok {
		score = s
	}

	d := r.ReportBase.toDict()
	d[keyScore] = score
	d[keyGoldThreshold] = r.GoldThreshold
	d[keySilverThreshold] = r.SilverThreshold
	d[keyBronzeThreshold] = r.BronzeThreshold
	d[keyMedianThreshold] = r.MedianThreshold
	d[keyAnyMedal] = r.AnyMedal
	d[keyGoldMedal] = r.GoldMedal
	d[keySilverMedal] = r.SilverMedal
	d[keyBronzeMedal] = r.BronzeMedal
	d[keyAboveMedian] = r.AboveMedian
	d[keyIsLowerBetter] = r.IsLowerBetter
	return d
}

// CompetitionReportFromDict decodes the mapping produced by ToDict. The
// input is never mutated.
func CompetitionReportFromDict(data map[string]any) (CompetitionReport, error) {
	d := dictReader{m: cloneAnyMap(data)}

	base := d.base()
	r := CompetitionReport{
		ReportBase: base,
		Score:      d.optionalFloat(keyScore),
		Ranking: Ranking{
			GoldMedal:       d.boolean(keyGoldMedal),
			SilverMedal:     d.boolean(keySilverMedal),
			BronzeMedal:     d.boolean(keyBronzeMedal),
			AboveMedian:     d.boolean(keyAboveMedian),
			GoldThreshold:   d.float(keyGoldThreshold),
			SilverThreshold: d.float(keySilverThreshold),
			BronzeThreshold: d.float(keyBronzeThreshold),
			MedianThreshold: d.float(keyMedianThreshold),
		},
		AnyMedal:        d.boolean(keyAnyMedal),
		IsLowerBetter:   d.boolean(keyIsLowerBetter),
		ScoreIsIntegral: isIntegerString(data[keyScore]),
	}
	if d.err != nil {
		return CompetitionReport{}, d.err
	}
	return r, nil
}

// scoreString renders the score the way ToDict writes it: integral scores
// as integers, float scores in Python float form.
func (r CompetitionReport) scoreString() (string, bool) {
	if r.Score == nil {
		return "", false
	}
	v := *r.Score
	if r.ScoreIsIntegral && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return strconv.FormatInt(int64(v), 10), true
	}
	return formatPyFloat(v), true
}

// isIntegerString reports whether v is a string holding a plain integer,
// the encoding of an integral score.
func isIntegerString(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// MarshalJSON encodes the report through ToDict.
func (r CompetitionReport) MarshalJSON() ([]byte, error) { return json.Marshal(r.ToDict()) }

// UnmarshalJSON decodes the report through CompetitionReportFromDict.
func (r *CompetitionReport) UnmarshalJSON(b []byte) error {
	m, err := decodeJSONDict(b)
	if err != nil {
		return err
	}
	decoded, err := CompetitionReportFromDict(m)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// ToDict encodes the code report as a flat mapping; absent analysis fields
// become nil.
func (r CodeCompetitionReport) ToDict() map[string]any {
	d := r.ReportBase.toDict()
	d[keyDefinedClasses] = nullableString(r.DefinedClasses)
	d[keyInitializedClasses] = nullableString(r.InitializedClasses)
	d[keyDefinedClassMethods] = nullableString(r.DefinedClassMethods)
	d[keyExecutedClassMethods] = nullableString(r.ExecutedClassMethods)
	d[keyDefinedFunctions] = nullableString(r.DefinedFunctions)
	d[keyExecutedFunctions] = nullableString(r.ExecutedFunctions)
	d[keyTestMetric] = nullableString(r.TestMetric)
	return d
}

// CodeCompetitionReportFromDict decodes the mapping produced by ToDict.
// The input is never mutated.
func CodeCompetitionReportFromDict(data map[string]any) (CodeCompetitionReport, error) {
	d := dictReader{m: cloneAnyMap(data)}

	r := CodeCompetitionReport{
		ReportBase: d.base(),
		CodeAnalysis: CodeAnalysis{
			DefinedClasses:       d.optionalString(keyDefinedClasses),
			InitializedClasses:   d.optionalString(keyInitializedClasses),
			DefinedClassMethods:  d.optionalString(keyDefinedClassMethods),
			ExecutedClassMethods: d.optionalString(keyExecutedClassMethods),
			DefinedFunctions:     d.optionalString(keyDefinedFunctions),
			ExecutedFunctions:    d.optionalString(keyExecutedFunctions),
			TestMetric:           d.optionalString(keyTestMetric),
		},
	}
	if d.err != nil {
		return CodeCompetitionReport{}, d.err
	}
	return r, nil
}

// MarshalJSON encodes the report through ToDict.
func (r CodeCompetitionReport) MarshalJSON() ([]byte, error) { return json.Marshal(r.ToDict()) }

// UnmarshalJSON decodes the report through CodeCompetitionReportFromDict.
func (r *CodeCompetitionReport) UnmarshalJSON(b []byte) error {
	m, err := decodeJSONDict(b)
	if err != nil {
		return err
	}
	decoded, err := CodeCompetitionReportFromDict(m)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// DecodeReport picks the variant from the keys present in the mapping and
// decodes it.
func DecodeReport(data map[string]any) (Report, error) {
	_, hasScore := data[keyScore]
	_, hasClasses := data[keyDefinedClasses]
	switch {
	case hasScore && !hasClasses:
		return CompetitionReportFromDict(data)
	case hasClasses && !hasScore:
		return CodeCompetitionReportFromDict(data)
	default:
		return nil, ErrUnknownReportKind
	}
}

// DecodeReportJSON decodes a JSON report of either variant.
func DecodeReportJSON(b []byte) (Report, error) {
	m, err := decodeJSONDict(b)
	if err != nil {
		return nil, err
	}
	return DecodeReport(m)
}

// EncodeReportJSON encodes a report of either variant. Failures wrap
// ErrUnencodableReport.
func EncodeReportJSON(r Report) ([]byte, error) {
	b, err := json.Marshal(r.ToDict())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnencodableReport, err)
	}
	return b, nil
}

func decodeJSONDict(b []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: report is null", ErrInvalidField)
	}
	return m, nil
}

func (b ReportBase) toDict() map[string]any {
	return map[string]any{
		keyCompetitionID:    b.CompetitionID,
		keySubmissionExists: b.SubmissionExists,
		keyValidSubmission:  b.ValidSubmission,
		keyCreatedAt:        formatISOTime(b.CreatedAt),
		keySubmissionPath:   b.SubmissionPath,
	}
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// dictReader coerces mapping values field by field and keeps the first
// error, so decoders read like a straight list of assignments.
type dictReader struct {
	m   map[string]any
	err error
}

func (d *dictReader) base() ReportBase {
	return ReportBase{
		CompetitionID:    d.str(keyCompetitionID),
		SubmissionExists: d.boolean(keySubmissionExists),
		ValidSubmission:  d.boolean(keyValidSubmission),
		CreatedAt:        d.timestamp(keyCreatedAt),
		SubmissionPath:   d.str(keySubmissionPath),
	}
}

func (d *dictReader) get(key string) (any, bool) {
	if d.err != nil {
		return nil, false
	}
	v, ok := d.m[key]
	if !ok {
		d.err = fmt.Errorf("%w: %s", ErrMissingField, key)
		return nil, false
	}
	return v, true
}

func (d *dictReader) fail(key string, v any) {
	d.err = fmt.Errorf("%w: %s has unsupported value %v (%T)", ErrInvalidField, key, v, v)
}

func (d *dictReader) str(key string) string {
	v, ok := d.get(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, v)
		return ""
	}
	return s
}

func (d *dictReader) optionalString(key string) *string {
	v, ok := d.get(key)
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, v)
		return nil
	}
	return &s
}

func (d *dictReader) float(key string) float64 {
	v, ok := d.get(key)
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		d.fail(key, v)
		return 0
	}
	return f
}

func (d *dictReader) optionalFloat(key string) *float64 {
	v, ok := d.get(key)
	if !ok || v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		d.fail(key, v)
		return nil
	}
	return &f
}

// boolean applies truthiness: false, nil, zero numbers and empty strings
// are false.
func (d *dictReader) boolean(key string) bool {
	v, ok := d.get(key)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case nil:
		return false
	case string:
		return b != ""
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}
		d.fail(key, v)
		return false
	}
}

func (d *dictReader) timestamp(key string) time.Time {
	s := d.str(key)
	if d.err != nil {
		return time.Time{}
	}
	t, err := parseISOTime(s)
	if err != nil {
		d.err = fmt.Errorf("%w: %s: %w", ErrInvalidField, key, err)
		return time.Time{}
	}
	return t
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// formatPyFloat renders a float the way Python's str(float) does: shortest
// round-trip digits, a trailing ".0" for integral values, and exponent
// notation outside [1e-4, 1e16).
func formatPyFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])

	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatISOTime(t time.Time) string {
	t = t.UTC()
	layout := isoSecondsLayout
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		layout = isoMicrosLayout
	}
	return t.Format(layout + isoOffsetLayout)
}

// isoParseLayouts are tried in order. Layouts without a zone are read as UTC.
// Go accepts an optional fractional-seconds field after the seconds when
// parsing, so the layouts cover both forms.
var isoParseLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseISOTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range isoParseLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
