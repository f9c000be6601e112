package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance bounds "did you mean?" suggestions.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of every section.
var knownKeys = map[string][]string{
	"upload": {
		"chunk_size", "parallel_uploads", "bandwidth_limit", "default_privacy",
		"default_category", "default_tags", "connect_timeout", "user_agent",
	},
	"trailer": {"api_url", "timeout"},
	"oauth":   {"client_id", "client_secret"},
	"logging": {"log_level", "log_format"},
	"server":  {"listen_addr"},
	"watch":   {"dir", "extensions", "settle"},
}

// knownSections is the sorted section list for suggestions.
var knownSections = func() []string {
	out := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}()

// allKeys maps every key name to its section, so a key written at the top
// level can be pointed at the section it belongs in.
var allKeys = func() map[string]string {
	out := make(map[string]string)
	for section, keys := range knownKeys {
		for _, k := range keys {
			out[k] = section
		}
	}

	return out
}()

// checkUnknownKeys turns undecoded TOML keys into errors with suggestions.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		errs = append(errs, unknownKeyError(key))
	}

	return errors.Join(errs...)
}

func unknownKeyError(key toml.Key) error {
	if len(key) == 1 {
		name := key[0]

		if section, ok := allKeys[name]; ok {
			return fmt.Errorf("config key %q must be inside the [%s] section", name, section)
		}

		if s := closestMatch(name, knownSections); s != "" {
			return fmt.Errorf("unknown config section %q, did you mean %q?", name, s)
		}

		return fmt.Errorf("unknown config key %q", name)
	}

	section, name := key[0], key[1]

	keys, ok := knownKeys[section]
	if !ok {
		if s := closestMatch(section, knownSections); s != "" {
			return fmt.Errorf("unknown config section [%s], did you mean [%s]?", section, s)
		}

		return fmt.Errorf("unknown config section [%s]", section)
	}

	if s := closestMatch(name, keys); s != "" {
		return fmt.Errorf("unknown key %q in [%s], did you mean %q?", name, section, s)
	}

	return fmt.Errorf("unknown key %q in [%s]", strings.Join(key[1:], "."), section)
}

// closestMatch returns the known string nearest to unknown by edit
// distance, or "" if none is within maxLevenshteinDistance. Ties go to the
// first candidate in known.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
