package extractor

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/jonesrussell/bidwatch/internal/domain"
)

// idHexWidth is the number of hex characters kept from the identity hash.
const idHexWidth = 16

// Meta carries the article provenance stamped onto extracted records.
type Meta struct {
	URL   string
	Title string
}

// Extractor extracts bid records from article text according to a
// Profile. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	profile *Profile
	marker  *regexp.Regexp
	now     func() time.Time
}

// New creates an extractor for the given profile. A nil profile selects
// the default one.
func New(profile *Profile) *Extractor {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Extractor{
		profile: profile,
		marker:  regexp.MustCompile(`\d+\s*` + regexp.QuoteMeta(profile.OrdinalLabel)),
		now:     time.Now,
	}
}

// Extract parses text into validated bid records. It returns the
// records plus the number of blocks rejected by validation so the
// caller can log them; rejection is never an error. Text without any
// ordinal marker yields no records.
func (e *Extractor) Extract(text string, meta Meta) ([]domain.BidRecord, int) {
	blocks := e.splitBlocks(text)
	if len(blocks) == 0 {
		return nil, 0
	}

	extractedAt := domain.Timestamp(e.now())
	records := make([]domain.BidRecord, 0, len(blocks))
	rejected := 0

	for _, block := range blocks {
		fields := e.extractFields(block)
		if !e.valid(fields) {
			rejected++
			continue
		}
		records = append(records, domain.BidRecord{
			ID:            ID(fields[FieldProjectName], fields[FieldPurchaser]),
			ProjectName:   fields[FieldProjectName],
			Budget:        fields[FieldBudget],
			Purchaser:     fields[FieldPurchaser],
			DocTime:       fields[FieldDocTime],
			ProjectNumber: fields[FieldProjectNumber],
			ServicePeriod: fields[FieldServicePeriod],
			Content:       fields[FieldContent],
			SourceURL:     meta.URL,
			SourceTitle:   meta.Title,
			ExtractedTime: extractedAt,
			Status:        domain.StatusNew,
		})
	}

	return records, rejected
}

// splitBlocks slices text into contiguous project blocks, each starting
// at an ordinal marker and ending at the next marker or end of text.
// The numeric value of the marker is ignored: blocks are taken in
// document order and gaps in numbering do not matter.
func (e *Extractor) splitBlocks(text string) []string {
	locs := e.marker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, text[loc[0]:end])
	}
	return blocks
}

// extractFields applies the profile's field table to one block. A field
// that does not match resolves to the empty string, never an error.
func (e *Extractor) extractFields(block string) map[string]string {
	fields := make(map[string]string, len(e.profile.Fields))
	for _, rule := range e.profile.Fields {
		fields[rule.Name] = e.sliceField(block, rule)
	}
	return fields
}

// sliceField returns the value for one field rule: the text between the
// field's own label and the nearest following occurrence of any known
// label, so a value never spans into the next field.
func (e *Extractor) sliceField(block string, rule FieldRule) string {
	idx := strings.Index(block, rule.Label)
	if idx < 0 {
		return ""
	}

	start := idx + len(rule.Label)
	end := len(block)
	for _, label := range e.profile.Labels {
		if rel := strings.Index(block[start:], label); rel >= 0 && start+rel < end {
			end = start + rel
		}
	}

	value := trimValue(block[start:end])
	if rule.ValuePattern != nil {
		value = rule.ValuePattern.FindString(value)
	}
	return value
}

// valid applies the block-level validation rules: required fields
// present, budget carries a currency unit, project name long enough.
func (e *Extractor) valid(fields map[string]string) bool {
	for _, rule := range e.profile.Fields {
		if rule.Required && fields[rule.Name] == "" {
			return false
		}
	}

	budget := fields[FieldBudget]
	hasCurrency := false
	for _, marker := range e.profile.CurrencyMarkers {
		if strings.Contains(budget, marker) {
			hasCurrency = true
			break
		}
	}
	if !hasCurrency {
		return false
	}

	return len([]rune(fields[FieldProjectName])) >= e.profile.MinProjectNameLen
}

// ID returns the stable identity hash for a (project name, purchaser)
// pair. The same pair always yields the same id; the store relies on
// this for dedup-on-write.
func ID(projectName, purchaser string) string {
	sum := md5.Sum([]byte(projectName + "-" + purchaser))
	return hex.EncodeToString(sum[:])[:idHexWidth]
}

// trimValue strips surrounding whitespace and label punctuation from a
// sliced field value.
func trimValue(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		if unicode.IsSpace(r) {
			return true
		}
		switch r {
		case ':', '：', ',', '，', ';', '；', '、', '。':
			return true
		}
		return false
	})
}
