package document

import (
	"regexp"
	"sort"
	"strings"
)

// departmentCode matches a two-digit French department code in parentheses,
// e.g. "Ain (01)".
var departmentCode = regexp.MustCompile(`\((\d\d)\)`)

// araDepartments maps the department names of the Auvergne-Rhône-Alpes
// region to their codes, for inference from free-text project names.
var araDepartments = map[string]string{
	"ain":          "01",
	"allier":       "03",
	"ardèche":      "07",
	"cantal":       "15",
	"drôme":        "26",
	"isère":        "38",
	"loire":        "42",
	"haute-loire":  "43",
	"puy-de-dôme":  "63",
	"rhône":        "69",
	"savoie":       "73",
	"haute-savoie": "74",
}

// ParseDepartmentCode extracts the department code from a traversal label
// such as "Isère (38)". Returns "" when no code is present.
func ParseDepartmentCode(label string) string {
	m := departmentCode.FindStringSubmatch(label)
	if m == nil {
		return ""
	}
	return m[1]
}

// Departments returns the sorted, duplicate-free union of the traversal code
// and any codes inferred from the authority string or, failing that, from
// department names appearing in the project name.
func Departments(traversalCode, authority, project string) []string {
	seen := make(map[string]struct{})
	if traversalCode != "" {
		seen[traversalCode] = struct{}{}
	}

	inferred := codesIn(authority)
	if len(inferred) == 0 {
		inferred = append(codesIn(project), namesIn(project)...)
	}
	for _, code := range inferred {
		seen[code] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func codesIn(s string) []string {
	var out []string
	for _, m := range departmentCode.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func namesIn(project string) []string {
	lower := strings.ToLower(project)
	var out []string
	for name, code := range araDepartments {
		if strings.Contains(lower, name) {
			out = append(out, code)
		}
	}
	return out
}
