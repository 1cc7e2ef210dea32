package document

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
)

// ErrUnsupportedType marks a candidate whose file extension is not uploadable.
// The caller drops the candidate and deletes its scratch file, if any.
var ErrUnsupportedType = errors.New("unsupported filetype")

// supportedExtensions is the allow-list of document types the upload sink
// accepts. Lowercase, with leading dot.
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".xls":  {},
	".xlsx": {},
	".ppt":  {},
	".pptx": {},
	".odt":  {},
	".ods":  {},
	".odp":  {},
	".rtf":  {},
	".csv":  {},
}

// casParCasMarker triggers the canonical category override.
const casParCasMarker = "cas par cas"

// cityCodeProject rewrites "City (NN) : Project" into "Project - City (NN)".
var cityCodeProject = regexp.MustCompile(`^(.*? \(\d\d\)) : (.*)$`)

// SupportedExtension reports whether the filename's extension is uploadable.
func SupportedExtension(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(path.Ext(filename))]
	return ok
}

// Enrich applies every normalization stage in order. It mutates the candidate
// and returns ErrUnsupportedType when the derived filename fails the
// extension gate. Enrichment is pure apart from that mutation: no I/O.
func Enrich(c *Candidate) error {
	c.Project = BeautifyProject(c.Project)
	c.Title = DeriveTitle(c)
	c.Category = AssignCategory(c.CategoryLocal)
	if c.SourceFilename == "" {
		c.SourceFilename = DeriveFilename(c.SourceFileURL)
	}
	if !SupportedExtension(c.SourceFilename) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, c.SourceFilename)
	}
	c.Departments = Departments(c.DepartmentCode, c.Authority, c.Project)
	c.ProjectID = ProjectID(c.SourcePageURL, c.Project)
	return nil
}

// DeriveTitle builds the document title. Archive members are titled by their
// internal folder segments plus the base filename without extension; plain
// files keep the (cleaned) link text.
func DeriveTitle(c *Candidate) string {
	if c.Archive == nil {
		return cleanTitleSegment(c.Title)
	}
	rel := strings.Trim(c.Archive.RelativePath, "/")
	parts := strings.Split(rel, "/")
	base := parts[len(parts)-1]
	stem := strings.TrimSuffix(base, path.Ext(base))

	segments := make([]string, 0, len(parts))
	for _, folder := range parts[:len(parts)-1] {
		segments = append(segments, cleanTitleSegment(folder))
	}
	segments = append(segments, cleanTitleSegment(stem))
	return strings.Join(segments, " - ")
}

func cleanTitleSegment(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,")
	s = strings.TrimSpace(s)
	return capitalizeFirst(s)
}

// BeautifyProject normalizes a raw project name: whitespace, the non-breaking
// space and curly apostrophe variants, trailing punctuation, and the
// "City (NN) : Project" ordering.
func BeautifyProject(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, " ", " ")
	p = strings.ReplaceAll(p, "’", "'")
	p = strings.TrimRight(p, ".,")
	p = cityCodeProject.ReplaceAllString(p, "$2 - $1")
	p = strings.TrimSpace(p)
	return capitalizeFirst(p)
}

// AssignCategory derives the final category from the site-native label.
func AssignCategory(local string) string {
	if strings.Contains(strings.ToLower(local), casParCasMarker) {
		return "Cas par cas"
	}
	return local
}

// DeriveFilename extracts the filename from the final path segment of a URL.
// Falls back to the raw string's basename when the URL does not parse.
func DeriveFilename(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return path.Base(fileURL)
	}
	return path.Base(u.Path)
}

// ProjectID computes the stable identifier grouping documents of the same
// project: a sha256 digest over the source page URL and the beautified
// project name.
func ProjectID(sourcePageURL, project string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(sourcePageURL+project)))
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
