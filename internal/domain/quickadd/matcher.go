package quickadd

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Scoring weights for the heuristic category matcher. These are tuning
// constants calibrated against real renovation sheets, not requirements;
// adjust with care and re-check the matcher tests.
const (
	clusterScore    = 0.8
	jaccardWeight   = 0.6
	bigramWeight    = 0.7
	acceptThreshold = 0.3
)

// maxSynthesizedRunes bounds the length of a category synthesized from a
// project name when nothing existing matches.
const maxSynthesizedRunes = 12

// keywordClusters group related renovation vocabulary. A cluster scores
// when both the project name and a candidate category hit it, which lets
// 定制衣柜 land in a 柜 category without any shared characters being
// required up front.
var keywordClusters = [][]string{
	{"基装", "基础", "装修", "拆改", "水电", "泥工", "木工", "油漆", "吊顶", "防水"},
	{"柜", "衣柜", "鞋柜", "橱柜", "定制", "家具", "全屋", "榻榻米", "书桌"},
	{"电器", "家电", "智能", "空调", "冰箱", "洗衣机", "电视", "热水器", "油烟机", "灶"},
	{"卫浴", "浴室", "马桶", "花洒", "水槽", "龙头", "淋浴", "浴缸", "洁具"},
	{"地板", "瓷砖", "地砖", "木地板", "大理石", "墙砖", "石材"},
	{"门", "窗", "门窗", "推拉门", "防盗门", "窗户", "纱窗", "玻璃"},
}

var clusterMatchers = func() []*ahocorasick.Matcher {
	matchers := make([]*ahocorasick.Matcher, len(keywordClusters))
	for i, cluster := range keywordClusters {
		matchers[i] = ahocorasick.NewStringMatcher(cluster)
	}
	return matchers
}()

// similarityStopwords are function characters stripped before the
// character-overlap comparison.
var similarityStopwords = map[rune]struct{}{
	'的': {}, '和': {}, '与': {}, '及': {}, '等': {}, '类': {}, '、': {},
}

// ResolveCategory maps a project name (or category hint) onto one of the
// existing categories, trying progressively fuzzier strategies: direct
// containment, shared keyword clusters, character overlap, then bigram
// overlap. Anything below the acceptance threshold synthesizes a new
// category from the subject instead of forcing a bad match.
func ResolveCategory(subject string, existing []string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ""
	}

	for _, name := range existing {
		if name == subject ||
			strings.Contains(name, subject) ||
			strings.Contains(subject, name) {
			return name
		}
	}
	for _, name := range existing {
		if fuzzy.MatchNormalizedFold(name, subject) {
			return name
		}
	}

	best := ""
	bestScore := 0.0
	for _, name := range existing {
		score := matchScore(subject, name)
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore >= acceptThreshold {
		return best
	}
	return Synthesize(subject)
}

func matchScore(subject, category string) float64 {
	score := 0.0
	for _, m := range clusterMatchers {
		if len(m.Match([]byte(subject))) > 0 && len(m.Match([]byte(category))) > 0 {
			score = clusterScore
			break
		}
	}
	if s := runeJaccard(subject, category) * jaccardWeight; s > score {
		score = s
	}
	if s := bigramJaccard(subject, category) * bigramWeight; s > score {
		score = s
	}
	return score
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		if _, stop := similarityStopwords[r]; !stop {
			set[r] = struct{}{}
		}
	}
	return set
}

func runeJaccard(a, b string) float64 {
	return jaccard(runeSet(a), runeSet(b))
}

func bigramSet(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{}, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

func bigramJaccard(a, b string) float64 {
	return jaccard(bigramSet(a), bigramSet(b))
}

func jaccard[K comparable](a, b map[K]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	common := 0
	for k := range a {
		if _, ok := b[k]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	return float64(common) / float64(union)
}

// Synthesize derives a brand-new category name from a project name: cut at
// any embedded comma and bound the length.
func Synthesize(subject string) string {
	if i := strings.IndexAny(subject, "，,、"); i >= 0 {
		subject = subject[:i]
	}
	runes := []rune(strings.TrimSpace(subject))
	if len(runes) > maxSynthesizedRunes {
		runes = runes[:maxSynthesizedRunes]
	}
	return string(runes)
}
