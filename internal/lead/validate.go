package lead

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// emailRe checks the rough shape local@domain.tld; full RFC validation is not
// the goal here.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// entryDateLayouts are the accepted textual date formats, tried in order.
// dd/mm/yyyy matches how the studios' spreadsheets are exported.
var entryDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
}

// Validator coerces raw input rows into well-typed leads.
type Validator struct {
	// DefaultCampaign is applied when a record carries no campaign. It is the
	// only field with an implicit default; everything else required by the
	// schema must be present.
	DefaultCampaign string
}

// NewValidator creates a Validator with the given campaign default.
func NewValidator(defaultCampaign string) *Validator {
	if defaultCampaign == "" {
		defaultCampaign = "Imported Batch"
	}
	return &Validator{DefaultCampaign: defaultCampaign}
}

// Validate coerces one raw record into a Lead. On any constraint violation it
// returns an error listing every problem found, so a rejected row can be fixed
// in one pass. It never panics on malformed input.
func (v *Validator) Validate(raw RawRecord) (Lead, error) {
	var problems []string

	name := strings.TrimSpace(stringField(raw, "name", "nome"))
	if name == "" {
		problems = append(problems, "name is required")
	}

	email := strings.TrimSpace(stringField(raw, "email"))
	if email == "" {
		problems = append(problems, "email is required")
	} else if !emailRe.MatchString(email) {
		problems = append(problems, fmt.Sprintf("email %q is not valid", email))
	}

	phone := strings.TrimSpace(stringField(raw, "phone", "telefone"))
	if phone == "" {
		problems = append(problems, "phone is required")
	}

	state := strings.TrimSpace(stringField(raw, "state", "estado"))
	if state == "" {
		problems = append(problems, "state is required")
	}

	source := strings.TrimSpace(stringField(raw, "source", "origem"))
	switch source {
	case SourceFavale, SourcePink:
	case "":
		problems = append(problems, "source is required")
	default:
		problems = append(problems, fmt.Sprintf("source %q must be %s or %s", source, SourceFavale, SourcePink))
	}

	status := strings.TrimSpace(stringField(raw, "status"))
	switch status {
	case StatusLead, StatusAluno:
	case "":
		problems = append(problems, "status is required")
	default:
		problems = append(problems, fmt.Sprintf("status %q must be %s or %s", status, StatusLead, StatusAluno))
	}

	entryDate, err := parseEntryDate(stringField(raw, "entryDate", "entry_date", "date", "data"))
	if err != nil {
		problems = append(problems, err.Error())
	}

	campaign := strings.TrimSpace(stringField(raw, "campaign", "campanha"))
	if campaign == "" {
		campaign = v.DefaultCampaign
	}

	if len(problems) > 0 {
		return Lead{}, eris.New("validate: " + strings.Join(problems, "; "))
	}

	return Lead{
		EntryDate: entryDate,
		Name:      name,
		Email:     email,
		Phone:     phone,
		State:     state,
		Campaign:  campaign,
		Tags:      ParseTags(raw["tags"]),
		Source:    source,
		Status:    status,
		Notes:     strings.TrimSpace(stringField(raw, "notes", "observacoes")),
	}, nil
}

// parseEntryDate accepts ISO-8601 or dd/mm/yyyy and normalizes to yyyy-mm-dd.
// An empty value defaults to today; an unparseable value is rejected rather
// than silently coerced. (The lead form in the UI falls back to "today" on
// parse failure; the batch path deliberately does not.)
func parseEntryDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC().Format("2006-01-02"), nil
	}
	for _, layout := range entryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", eris.Errorf("entryDate %q is not a recognized date", s)
}

// ParseTags accepts a tag collection as an array or a comma/semicolon
// delimited string. The result has whitespace trimmed, blank entries removed,
// and duplicates collapsed, preserving first-seen order.
func ParseTags(v any) []string {
	var parts []string
	switch tv := v.(type) {
	case nil:
	case []string:
		parts = tv
	case []any:
		for _, e := range tv {
			parts = append(parts, coerceString(e))
		}
	case string:
		parts = strings.FieldsFunc(tv, func(r rune) bool {
			return r == ',' || r == ';'
		})
	default:
		parts = []string{coerceString(v)}
	}

	tags := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		tags = append(tags, p)
	}
	return tags
}

// stringField returns the first non-empty value among the given keys, coerced
// to a string. Spreadsheet exports are inconsistent about header names, so a
// few aliases are accepted per field.
func stringField(raw RawRecord, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s := coerceString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; phone columns are often numeric.
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
