// Package quickadd turns loosely structured Chinese free text into budget
// items: "定制衣柜，2套，预算5000元" becomes a filled-in line item with a
// category resolved against the existing ones. Extraction is independent
// pattern matching per field, not a grammar; malformed input degrades to
// empty fields, never to an error.
package quickadd

import (
	"regexp"
	"strings"
)

// Parsed is the raw field map extracted from one line of text. Fields
// default to the empty string; the two spend figures default to "0" since
// absence means nothing spent, not unknown.
type Parsed struct {
	ProjectName  string `json:"project_name"`
	CategoryHint string `json:"category_hint"`
	Unit         string `json:"unit"`
	Quantity     string `json:"quantity"`
	Budget       string `json:"budget"`
	Invested     string `json:"invested"`
	Final        string `json:"final"`
	Remark       string `json:"remark"`
}

const number = `(\d+(?:\.\d+)?)`

// Longer unit words first so 平方米 wins over 米.
const unitWords = `平方米|平米|平方|套|个|米|件|台|张|把|支|根|条|块|片|组|批|项|扇|樘`

var (
	segmentSplit = regexp.MustCompile(`[，,、]`)
	quantityRe   = regexp.MustCompile(number + `\s*(` + unitWords + `)`)
	budgetRe     = regexp.MustCompile(`预算[：:，,、\s]*` + number)
	yuanRe       = regexp.MustCompile(number + `\s*元`)
	investedRe   = regexp.MustCompile(`当前投入[：:，,、\s]*` + number)
	finalRe      = regexp.MustCompile(`(?:最终花费|最终费用|实际花费|实际费用)[：:，,、\s]*` + number)

	bareQuantityRe = regexp.MustCompile(`^\d+(?:\.\d+)?\s*(?:` + unitWords + `|元)?$`)
	moneyPhraseRe  = regexp.MustCompile(`^(?:预算|当前投入|最终|实际|花费|费用)`)
	bareNumberRe   = regexp.MustCompile(`^\d+(?:\.\d+)?\s*(?:元)?$`)
	actualTrailRe  = regexp.MustCompile(`^实际\s*\d`)
)

// remarkKeywords are tried in priority order; the first hit wins.
var remarkKeywords = []string{"备注", "品牌", "型号", "渠道", "介绍", "说明"}

var remarkRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(remarkKeywords))
	for i, kw := range remarkKeywords {
		res[i] = regexp.MustCompile(kw + `[：:，,、\s]+([^，,、]+)`)
	}
	return res
}()

// categoryMarkers are phrasings that mark a leading segment as naming a
// grouping rather than a concrete item.
var categoryMarkers = []string{"全屋", "定制", "智能", "家居"}

// Parse extracts the structured fields from one line of text. It never
// fails; at worst every field comes back empty and the caller treats the
// missing project name as a validation problem.
func Parse(text string) Parsed {
	text = strings.TrimSpace(text)
	result := Parsed{Invested: "0", Final: "0"}
	if text == "" {
		return result
	}

	segments := splitSegments(text)
	result.ProjectName, result.CategoryHint = extractProject(segments)

	if m := quantityRe.FindStringSubmatch(text); m != nil {
		result.Quantity = m[1]
		result.Unit = m[2]
	}

	if m := budgetRe.FindStringSubmatch(text); m != nil {
		result.Budget = m[1]
	} else if m := yuanRe.FindStringSubmatch(text); m != nil {
		result.Budget = m[1]
	}

	if m := investedRe.FindStringSubmatch(text); m != nil {
		result.Invested = m[1]
	}
	if m := finalRe.FindStringSubmatch(text); m != nil {
		result.Final = m[1]
	}

	result.Remark = extractRemark(text, segments)
	return result
}

func splitSegments(text string) []string {
	raw := segmentSplit.Split(text, -1)
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// extractProject picks the project name and an optional category hint from
// the comma-delimited segments. A leading segment that reads like a
// grouping (全屋/定制/智能 phrasing) is kept as a hint; when no later
// segment qualifies as a project name, the hint doubles as the name.
func extractProject(segments []string) (project, hint string) {
	if len(segments) == 0 {
		return "", ""
	}
	if len(segments) == 1 {
		return leadingName(segments[0]), ""
	}

	first := segments[0]
	for _, marker := range categoryMarkers {
		if strings.Contains(first, marker) {
			hint = first
			break
		}
	}

	if hint == "" {
		return leadingName(first), ""
	}
	for _, seg := range segments[1:] {
		if bareQuantityRe.MatchString(seg) || moneyPhraseRe.MatchString(seg) {
			continue
		}
		return leadingName(seg), hint
	}
	return leadingName(first), hint
}

// leadingName trims a segment down to the run of characters before the
// first digit, then drops any trailing quantity phrase.
func leadingName(s string) string {
	for i, r := range s {
		if r >= '0' && r <= '9' {
			s = s[:i]
			break
		}
	}
	return strings.TrimSpace(quantityRe.ReplaceAllString(s, ""))
}

func extractRemark(text string, segments []string) string {
	for _, re := range remarkRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if bareNumberRe.MatchString(candidate) {
			continue // a cost figure that happened to follow the keyword
		}
		return candidate
	}

	// No labeled remark: the trailing segment often is one, as long as it
	// is not itself a figure.
	if len(segments) > 1 {
		last := segments[len(segments)-1]
		if !bareQuantityRe.MatchString(last) &&
			!actualTrailRe.MatchString(last) &&
			!moneyPhraseRe.MatchString(last) {
			return last
		}
	}
	return ""
}
