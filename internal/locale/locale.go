// Package locale holds the two fixed label tables used by every front end.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale selects a label table.
type Locale string

const (
	English Locale = "en"
	Bengali Locale = "bn"
)

// Key identifies a user-facing label.
type Key int

const (
	Title Key = iota
	Placeholder
	AddButton
	Added
	NoTasks
	EditHint
	ListHint
	SwitchLanguage
)

var keyNames = map[Key]string{
	Title:          "title",
	Placeholder:    "placeholder",
	AddButton:      "add_button",
	Added:          "added",
	NoTasks:        "no_tasks",
	EditHint:       "edit_hint",
	ListHint:       "list_hint",
	SwitchLanguage: "switch_language",
}

var tables = map[Locale]map[Key]string{
	English: {
		Title:          "Todo List App",
		Placeholder:    "Type here...",
		AddButton:      "Add Task",
		Added:          "Task Added!",
		NoTasks:        "no tasks found",
		EditHint:       "enter save • esc cancel",
		ListHint:       "space toggle • e edit • d delete • tab input • L language • q quit",
		SwitchLanguage: "Switch to Bengali",
	},
	Bengali: {
		Title:          "টুডো লিস্ট অ্যাপ",
		Placeholder:    "এখানে লিখুন...",
		AddButton:      "টাস্ক যুক্ত করুন",
		Added:          "টাস্ক যুক্ত হয়েছে!",
		NoTasks:        "কোনো টাস্ক নেই",
		EditHint:       "enter সংরক্ষণ • esc বাতিল",
		ListHint:       "space টগল • e সম্পাদনা • d মুছুন • tab ইনপুট • L ভাষা • q প্রস্থান",
		SwitchLanguage: "Switch to English",
	},
}

var matcher = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.Bengali,
})

// T returns the label for key in locale l, falling back to English.
func (l Locale) T(key Key) string {
	if table, ok := tables[l]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	return tables[English][key]
}

// Labels returns every label in l keyed by a stable snake_case name.
func (l Locale) Labels() map[string]string {
	out := make(map[string]string, len(keyNames))
	for k, name := range keyNames {
		out[name] = l.T(k)
	}
	return out
}

// Toggle flips between the two supported locales.
func (l Locale) Toggle() Locale {
	if l == Bengali {
		return English
	}
	return Bengali
}

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	_, ok := tables[l]
	return ok
}

// Parse resolves a BCP 47 tag (or a POSIX locale such as "bn_BD.UTF-8")
// to a supported locale.
func Parse(s string) (Locale, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return English, nil
	}
	tag, err := language.Parse(posixToBCP47(s))
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", s, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", fmt.Errorf("unsupported locale %q", s)
	}
	if idx == 1 {
		return Bengali, nil
	}
	return English, nil
}

// Match picks the best supported locale for an Accept-Language style list,
// e.g. "bn-BD,bn;q=0.9,en;q=0.5". Anything unparseable yields English.
func Match(accept string) Locale {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, _ := matcher.Match(tags...)
	if idx == 1 {
		return Bengali
	}
	return English
}

func posixToBCP47(s string) string {
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "C" || s == "POSIX" {
		return "en"
	}
	return strings.ReplaceAll(s, "_", "-")
}
