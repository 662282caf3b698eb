package simulation

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/ashita-ai/nouki/internal/model"
)

// unitPattern is the fixed set of counter words a quantity must end with.
const unitPattern = `(?:台|個|本|式|セット|(?i:pcs|units))`

var (
	// markerRe finds an explicit "project name: <value>" label. Input is
	// width-folded first, so full-width colons arrive as ':'.
	markerRe = regexp.MustCompile(`(?i)(?:案件名|プロジェクト名|project\s*name)\s*:[ \t]*([^\r\n]*)`)

	quantityRe = regexp.MustCompile(`(\d{1,4})` + unitPattern)

	// quantityPhraseRe is removed from name candidates together with the
	// particle that usually follows it ("8台で", "4台の").
	quantityPhraseRe = regexp.MustCompile(`\d{1,4}` + unitPattern + `(?:で|の)?`)
)

// boilerplatePhrases are removed wherever they appear in a name candidate.
var boilerplatePhrases = []string{
	"出荷シミュレーション",
	"シミュレーション",
	"納期回答",
	"納期確認",
}

// politeSuffixes are trimmed from the end of a name candidate, repeatedly.
// Longest first so "をお願いします" is not left as "を".
var politeSuffixes = []string{
	"をお願いします",
	"お願いします",
	"してください",
	"ください",
	"お願い",
	"して",
	"を",
	"で",
	"の",
	"は",
}

const trimCutset = " \t\r\n、。,.!！?？"

// ExtractOrderInfo pulls an optional project name and quantity out of free
// text. An explicit "案件名: X" marker wins; otherwise the first non-blank
// line is the candidate. Quantity is the first <digits><unit> match anywhere
// in the text.
func ExtractOrderInfo(text string) model.OrderInfo {
	folded := width.Fold.String(text)

	var info model.OrderInfo
	if name, ok := projectCandidate(folded); ok {
		cleaned := cleanName(name)
		if cleaned == "" {
			cleaned = name
		}
		info.ProjectName = &cleaned
	}

	if m := quantityRe.FindStringSubmatch(folded); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			info.Quantity = &n
		}
	}
	return info
}

// projectCandidate returns the raw, trimmed candidate name.
func projectCandidate(text string) (string, bool) {
	if m := markerRe.FindStringSubmatch(text); m != nil {
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}
	for _, line := range strings.Split(text, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			return v, true
		}
	}
	return "", false
}

func cleanName(name string) string {
	s := name
	for _, p := range boilerplatePhrases {
		s = strings.ReplaceAll(s, p, " ")
	}
	s = quantityPhraseRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, trimCutset)

	for {
		before := s
		for _, suf := range politeSuffixes {
			s = strings.TrimSuffix(s, suf)
		}
		s = strings.Trim(s, trimCutset)
		if s == before {
			break
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
