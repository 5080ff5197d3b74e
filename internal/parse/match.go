package parse

import (
	"sort"
	"strings"

	"github.com/kweiss/voicetask/internal/model"
)

// maxMatches caps the number of matches returned per query.
const maxMatches = 5

// categorySynonyms maps a project category to the words that imply it.
// A keyword match requires the query and the project name to both hit
// any synonym of the same category; the words need not be identical.
var categorySynonyms = []struct {
	category string
	words    []string
}{
	{"shop", []string{"shopping", "shop", "store", "buy"}},
	{"work", []string{"work", "office", "job", "task"}},
	{"home", []string{"home", "house", "personal"}},
	{"food", []string{"food", "meal", "cook", "recipe", "dinner", "lunch"}},
	{"car", []string{"car", "vehicle", "auto", "drive"}},
	{"health", []string{"health", "doctor", "medical", "fitness"}},
	{"book", []string{"book", "read", "reading"}},
	{"movie", []string{"movie", "film", "watch", "entertainment"}},
}

// MatchProjects scores projects against a free-text query and returns
// at most five matches ordered by descending score. Each project
// appears once, at the highest tier it reaches: exact name equality,
// name prefix, name substring, then shared category keyword. An empty
// or whitespace-only query yields no matches.
func MatchProjects(projects []model.Project, query string) []model.ProjectMatch {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var matches []model.ProjectMatch
	matched := make(map[string]struct{})

	add := func(p model.Project, score int, reason model.MatchReason) {
		if _, ok := matched[p.ID]; ok {
			return
		}
		matched[p.ID] = struct{}{}
		matches = append(matches, model.ProjectMatch{
			Project:     p,
			MatchScore:  score,
			MatchReason: reason,
		})
	}

	for _, p := range projects {
		if strings.ToLower(p.Name) == query {
			add(p, model.ScoreExact, model.MatchExact)
		}
	}
	for _, p := range projects {
		if strings.HasPrefix(strings.ToLower(p.Name), query) {
			add(p, model.ScoreStartsWith, model.MatchStartsWith)
		}
	}
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), query) {
			add(p, model.ScoreContains, model.MatchContains)
		}
	}

	for _, cat := range categorySynonyms {
		if !containsAny(query, cat.words) {
			continue
		}
		for _, p := range projects {
			if containsAny(strings.ToLower(p.Name), cat.words) {
				add(p, model.ScoreKeyword, model.MatchKeyword)
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
