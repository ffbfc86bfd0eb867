package parser

import (
	"sort"
	"strings"
)

// Uncategorized is assigned when no category keywords match.
const Uncategorized = "Uncategorized"

// categoryKeywords scores articles into coarse sections. The lists
// track vocabulary the source actually uses in headlines and copy.
var categoryKeywords = map[string][]string{
	"Pakistan": {
		"pakistan", "pakistani", "islamabad", "karachi", "lahore",
		"punjab", "sindh", "balochistan", "khyber", "pakhtunkhwa",
	},
	"World": {
		"world", "international", "global", "china", "india", "america",
		"europe", "afghanistan", "iran", "russia", "ukraine", "gaza",
	},
	"Business": {
		"business", "economy", "economic", "market", "trade", "finance",
		"bank", "rupee", "dollar", "inflation", "budget", "tax",
	},
	"Sports": {
		"sports", "cricket", "football", "hockey", "tennis", "olympics",
		"world cup", "match", "tournament", "championship",
	},
	"Technology": {
		"technology", "tech", "digital", "artificial intelligence",
		"cyber", "internet", "social media", "software", "startup",
	},
	"Health": {
		"health", "medical", "doctor", "hospital", "vaccine", "disease",
		"treatment", "patient", "medicine",
	},
	"Politics": {
		"politics", "political", "government", "minister", "parliament",
		"election", "vote", "democracy", "opposition", "policy",
	},
	"Crime": {
		"crime", "criminal", "police", "court", "arrest", "murder",
		"theft", "fraud", "terrorism", "investigation",
	},
	"Education": {
		"education", "school", "university", "student", "teacher",
		"exam", "degree", "college", "scholarship",
	},
	"Entertainment": {
		"entertainment", "movie", "music", "celebrity", "actor",
		"singer", "film", "drama", "festival",
	},
}

// Categorize assigns a category by counting keyword hits in the
// combined title and content. Categories are visited in sorted order so
// ties resolve deterministically; no hits means Uncategorized.
func Categorize(title, content string) string {
	text := strings.ToLower(title + " " + content)

	names := make([]string, 0, len(categoryKeywords))
	for name := range categoryKeywords {
		names = append(names, name)
	}
	sort.Strings(names)

	best := Uncategorized
	bestScore := 0
	for _, name := range names {
		score := 0
		for _, keyword := range categoryKeywords[name] {
			if strings.Contains(text, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = name
			bestScore = score
		}
	}
	return best
}
