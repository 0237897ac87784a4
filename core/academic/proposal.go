package academic

import (
	"strings"
)

// Combination is a class & section pair proposed for creation.
type Combination struct {
	ClassName   string `json:"class_name"`
	SectionName string `json:"section_name"`
}

func combinationKey(class, section string) string {
	return strings.ToLower(strings.Join(strings.Fields(class), " ")) + "\x00" +
		strings.ToLower(strings.Join(strings.Fields(section), " "))
}

// ProposeMissing returns the classes x sections combinations absent from existing.
// Matching ignores case & redundant whitespace; duplicates in the input are proposed once.
// Order follows classes then sections as given.
func ProposeMissing(existing []ClassSection, classes, sections []string) []Combination {
	seen := make(map[string]struct{}, len(existing))
	for _, cs := range existing {
		seen[combinationKey(cs.ClassName, cs.SectionName)] = struct{}{}
	}

	proposed := make([]Combination, 0)
	for _, class := range classes {
		class = strings.TrimSpace(class)
		if class == "" {
			continue
		}
		for _, section := range sections {
			section = strings.TrimSpace(section)
			if section == "" {
				continue
			}
			key := combinationKey(class, section)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			proposed = append(proposed, Combination{ClassName: class, SectionName: section})
		}
	}
	return proposed
}
