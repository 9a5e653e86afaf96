package nlu

import "strings"

// Category is a fixed list of literal values for one entity name, e.g.
// restaurant: McDonalds, KFC.
type Category struct {
	Name   string
	Values []string
}

// Vocabulary finds fixed-vocabulary entities by case-insensitive substring
// search. Entities found this way are authoritative.
type Vocabulary struct {
	categories []Category
}

// NewVocabulary merges categories sharing a name, in first-seen order.
// Empty values are dropped since they would match every text.
func NewVocabulary(categories ...Category) *Vocabulary {
	index := map[string]int{}
	var merged []Category
	for _, c := range categories {
		if c.Name == "" {
			continue
		}
		i, ok := index[c.Name]
		if !ok {
			i = len(merged)
			index[c.Name] = i
			merged = append(merged, Category{Name: c.Name})
		}
		for _, v := range c.Values {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				continue
			}
			merged[i].Values = append(merged[i].Values, v)
		}
	}
	return &Vocabulary{categories: merged}
}

func (v *Vocabulary) Categories() []Category {
	if v == nil {
		return nil
	}
	out := make([]Category, len(v.categories))
	for i, c := range v.categories {
		out[i] = Category{Name: c.Name, Values: append([]string{}, c.Values...)}
	}
	return out
}

// Extract returns, per category, the first listed value that occurs in text.
func (v *Vocabulary) Extract(text string) map[string]string {
	found := map[string]string{}
	if v == nil {
		return found
	}
	text = strings.ToLower(text)
	for _, c := range v.categories {
		for _, value := range c.Values {
			if start := strings.Index(text, value); start != -1 {
				found[c.Name] = text[start : start+len(value)]
				break
			}
		}
	}
	return found
}
