// Package validate scans SQL text for patterns that often show up in
// injection payloads. Every finding is advisory: nothing here returns an
// error or blocks a conversion, and false positives (an ordinary comment,
// a column named sleep) are expected.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/kydance/sqlprep/internal/models"
)

// Warning categories.
const (
	CategoryKeywordCombination = "keyword-combination"
	CategoryTimeDelay          = "time-delay"
	CategoryPrivilegedCall     = "privileged-procedure"
	CategoryFileProbe          = "file-schema-probe"
	CategoryExecution          = "dynamic-execution"
	CategoryStackedQuery       = "stacked-query"
	CategoryComment            = "comment"
	CategoryParameter          = "parameter"
)

const (
	StackedQueryMessage = "Multiple semicolons detected - possible stacked query injection"
	CommentMessage      = "SQL comments detected - review for potential injection"
)

type suspiciousPattern struct {
	category string
	source   string
	re       *regexp.Regexp
}

func pattern(category, expr string) suspiciousPattern {
	return suspiciousPattern{category: category, source: expr, re: regexp.MustCompile("(?i)" + expr)}
}

// suspiciousPatterns is compiled once and only read afterwards.
var suspiciousPatterns = []suspiciousPattern{
	pattern(CategoryKeywordCombination, `union.*select`),
	pattern(CategoryKeywordCombination, `';.*--`),
	pattern(CategoryKeywordCombination, `';.*(drop|delete|insert|update)`),
	pattern(CategoryTimeDelay, `benchmark\s*\(`),
	pattern(CategoryTimeDelay, `sleep\s*\(`),
	pattern(CategoryTimeDelay, `waitfor\s+delay`),
	pattern(CategoryPrivilegedCall, `xp_cmdshell`),
	pattern(CategoryPrivilegedCall, `sp_executesql`),
	pattern(CategoryExecution, `exec(ute)?\s*\(`),
	pattern(CategoryFileProbe, `load_file\s*\(`),
	pattern(CategoryFileProbe, `into\s+outfile`),
	pattern(CategoryFileProbe, `information_schema`),
	pattern(CategoryTimeDelay, `pg_sleep\s*\(`),
	pattern(CategoryPrivilegedCall, `dbms_pipe\.receive_message`),
}

// Patterns returns the source of every suspicious pattern in evaluation order.
func Patterns() []string {
	out := make([]string, len(suspiciousPatterns))
	for i, p := range suspiciousPatterns {
		out[i] = p.source
	}
	return out
}

// Validate checks the raw statement text. Findings come out in a fixed order:
// the pattern table first, then the stacked query check, then the comment
// check. Independent matches each produce their own warning.
func Validate(sql string) []models.Warning {
	var warnings []models.Warning

	for _, p := range suspiciousPatterns {
		if p.re.MatchString(sql) {
			warnings = append(warnings, models.Warning{
				Category:    p.category,
				Description: "Potentially suspicious pattern detected: " + p.source,
			})
		}
	}

	// one trailing terminator is fine
	if strings.Count(sql, ";") > 1 {
		warnings = append(warnings, models.Warning{
			Category:    CategoryStackedQuery,
			Description: StackedQueryMessage,
		})
	}

	if strings.Contains(sql, "/*") || strings.Contains(sql, "--") || strings.Contains(sql, "#") {
		warnings = append(warnings, models.Warning{
			Category:    CategoryComment,
			Description: CommentMessage,
		})
	}

	return warnings
}

// InspectParams runs libinjection over the extracted string parameters.
// Only strings are checked; numbers, NULLs and temporal values cannot carry
// a payload. Positions in the descriptions are 1-based.
func InspectParams(params []any) []models.Warning {
	var warnings []models.Warning

	for idx, param := range params {
		s, ok := param.(string)
		if !ok {
			continue
		}

		if isSQLi, fingerprint := libinjection.IsSQLi(s); isSQLi {
			warnings = append(warnings, models.Warning{
				Category: CategoryParameter,
				Description: fmt.Sprintf("Parameter %d looks like SQL injection (fingerprint %s)",
					idx+1, fingerprint),
			})
		}
	}

	return warnings
}
