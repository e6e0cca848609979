package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zen-systems/localgate/pkg/contextpack"
)

var placeholderMarkers = []string{"TODO", "TBD", "FIXME", "PLACEHOLDER", "XXX"}

var hedgingPhrases = []string{
	"i think",
	"i believe",
	"probably",
	"it seems",
	"might be",
	"may be",
	"not sure",
	"i'm not certain",
	"possibly",
	"perhaps",
	"i guess",
}

// codeParseSlack is the tolerated net count of unclosed braces/brackets,
// allowing for snippets that intentionally show partial scopes.
const codeParseSlack = 2

func runHardChecks(output string, opts Options) []Check {
	var checks []Check

	if opts.CheckCompleteness {
		checks = append(checks, checkCompleteness(output))
	}
	if opts.CheckCodeParse {
		checks = append(checks, checkCodeParse(output))
	}
	if opts.CheckScopeCompliance && len(opts.AllowedFiles) > 0 {
		checks = append(checks, checkScopeCompliance(output, opts.AllowedFiles))
	}
	if opts.CheckRequiredSections && len(opts.RequiredSections) > 0 {
		checks = append(checks, checkRequiredSections(output, opts.RequiredSections))
	}
	if opts.CheckLength {
		checks = append(checks, checkLength(output, opts.MinLength, opts.MaxLength))
	}

	return checks
}

func runSoftChecks(output string, opts Options) []Check {
	var checks []Check

	if opts.CheckHedging {
		checks = append(checks, checkHedging(output, opts.MaxHedging))
	}
	if opts.CheckProportionality && opts.ExpectedOutputTokens > 0 {
		checks = append(checks, checkProportionality(output, opts))
	}

	return checks
}

func checkCompleteness(output string) Check {
	check := Check{Name: "completeness", Passed: true, Hard: true}
	for _, marker := range placeholderMarkers {
		if strings.Contains(output, marker) {
			check.Passed = false
			check.Reason = fmt.Sprintf("output contains placeholder marker %q", marker)
			return check
		}
	}
	return check
}

func checkCodeParse(output string) Check {
	check := Check{Name: "code_parse", Passed: true, Hard: true}

	subject := output
	if blocks := fencedBlocks(output); len(blocks) > 0 {
		subject = strings.Join(blocks, "\n")
	}

	braces := 0
	brackets := 0
	for _, r := range subject {
		switch r {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		}
	}

	if abs(braces) > codeParseSlack || abs(brackets) > codeParseSlack {
		check.Passed = false
		check.Reason = fmt.Sprintf("unbalanced code delimiters (braces %+d, brackets %+d)", braces, brackets)
	}
	return check
}

func checkScopeCompliance(output string, allowedFiles []string) Check {
	check := Check{Name: "scope_compliance", Passed: true, Hard: true}
	for _, path := range contextpack.ExtractFileRefs(output) {
		if !pathAllowed(path, allowedFiles) {
			check.Passed = false
			check.Reason = fmt.Sprintf("output references file %q outside the allowed set", path)
			return check
		}
	}
	return check
}

func pathAllowed(path string, allowed []string) bool {
	for _, a := range allowed {
		if path == a || strings.HasSuffix(a, "/"+path) || strings.HasSuffix(path, "/"+a) {
			return true
		}
	}
	return false
}

func checkRequiredSections(output string, required []string) Check {
	check := Check{Name: "required_sections", Passed: true, Hard: true}
	for _, keyword := range required {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
		if !re.MatchString(output) {
			check.Passed = false
			check.Reason = fmt.Sprintf("required keyword %q not found", keyword)
			return check
		}
	}
	return check
}

func checkLength(output string, min, max int) Check {
	check := Check{Name: "length", Passed: true, Hard: true}
	n := len(strings.TrimSpace(output))
	if n < min {
		check.Passed = false
		check.Reason = fmt.Sprintf("output length %d below minimum %d", n, min)
	} else if n > max {
		check.Passed = false
		check.Reason = fmt.Sprintf("output length %d above maximum %d", n, max)
	}
	return check
}

func checkHedging(output string, maxHedging int) Check {
	check := Check{Name: "no_hedging", Passed: true, Hard: false}
	lower := strings.ToLower(output)
	count := 0
	for _, phrase := range hedgingPhrases {
		count += strings.Count(lower, phrase)
	}
	if count >= maxHedging {
		check.Passed = false
		check.Reason = fmt.Sprintf("%d hedging phrases found (limit %d)", count, maxHedging)
	}
	return check
}

func checkProportionality(output string, opts Options) Check {
	check := Check{Name: "proportionality", Passed: true, Hard: false}
	actual := contextpack.EstimateTokens(output)
	ratio := float64(actual) / float64(opts.ExpectedOutputTokens)
	if ratio < opts.MinOutputRatio || ratio > opts.MaxOutputRatio {
		check.Passed = false
		check.Reason = fmt.Sprintf("output/expected token ratio %.2f outside [%.1f, %.1f]",
			ratio, opts.MinOutputRatio, opts.MaxOutputRatio)
	}
	return check
}

var fencePattern = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")

func fencedBlocks(output string) []string {
	var blocks []string
	for _, m := range fencePattern.FindAllStringSubmatch(output, -1) {
		blocks = append(blocks, m[1])
	}
	return blocks
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
