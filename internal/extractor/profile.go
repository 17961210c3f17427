// Package extractor turns free-form article text into structured bid
// records. It is deterministic and does no I/O: the same text always
// yields the same records, including their ids.
package extractor

import "regexp"

// Field names produced by extraction.
const (
	FieldProjectName   = "project_name"
	FieldBudget        = "budget"
	FieldPurchaser     = "purchaser"
	FieldDocTime       = "doc_time"
	FieldProjectNumber = "project_number"
	FieldServicePeriod = "service_period"
	FieldContent       = "content"
)

// FieldRule maps one record field to its in-text label. A field's value
// runs from its label to the next known label or the end of the block;
// an optional ValuePattern narrows the slice to its first match.
type FieldRule struct {
	// Name of the record field
	Name string
	// Label preceding the value in the source text
	Label string
	// Required marks fields whose absence rejects the whole block
	Required bool
	// ValuePattern, when set, keeps only its first match inside the slice
	ValuePattern *regexp.Regexp
}

// Profile is the declarative extraction table for one source format:
// the label vocabulary, the field rules, and the validation thresholds.
type Profile struct {
	// OrdinalLabel is the label whose numbered repetition ("<N><label>")
	// delimits one project block from the next
	OrdinalLabel string
	// Labels is the full label vocabulary; every occurrence of any label
	// bounds the preceding field's value
	Labels []string
	// Fields is the ordered field extraction table
	Fields []FieldRule
	// CurrencyMarkers: a budget value must contain at least one of these
	CurrencyMarkers []string
	// MinProjectNameLen is the minimum project name length in runes
	MinProjectNameLen int
}

// projectNumberPattern restricts tender numbers to the token formats
// sources actually emit.
var projectNumberPattern = regexp.MustCompile(`[A-Za-z0-9\-]+`)

// DefaultProfile returns the extraction table for the government
// procurement notice format the system was built against.
func DefaultProfile() *Profile {
	return &Profile{
		OrdinalLabel: "项目名称",
		Labels: []string{
			"项目名称", "预算金额", "采购人", "获取采购文件",
			"项目编号", "服务期限", "采购内容",
		},
		Fields: []FieldRule{
			{Name: FieldProjectName, Label: "项目名称", Required: true},
			{Name: FieldBudget, Label: "预算金额", Required: true},
			{Name: FieldPurchaser, Label: "采购人", Required: true},
			{Name: FieldDocTime, Label: "获取采购文件", Required: true},
			{Name: FieldProjectNumber, Label: "项目编号", ValuePattern: projectNumberPattern},
			{Name: FieldServicePeriod, Label: "服务期限"},
			{Name: FieldContent, Label: "采购内容"},
		},
		CurrencyMarkers:   []string{"元"},
		MinProjectNameLen: 5,
	}
}
