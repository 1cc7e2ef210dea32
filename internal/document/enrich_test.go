package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveTitleFromArchivePath(t *testing.T) {
	t.Parallel()

	c := &Candidate{
		Archive: &ArchiveContext{
			URL:          "https://example.org/archivename.zip",
			LocalPath:    "scratch/archivename/sub/doc_final.PDF",
			RelativePath: "sub/doc_final.PDF",
		},
	}
	require.Equal(t, "Sub - Doc final", DeriveTitle(c))
}

func TestDeriveTitleFromLinkText(t *testing.T) {
	t.Parallel()

	c := &Candidate{Title: "  avis_de_decision., "}
	require.Equal(t, "Avis de decision", DeriveTitle(c))
}

func TestBeautifyProjectReordersCityPrefix(t *testing.T) {
	t.Parallel()

	got := BeautifyProject("  Lyon (69) : Extension d’usine.  ")
	require.Equal(t, "Extension d'usine - Lyon (69)", got)
}

func TestBeautifyProjectPlainName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Création d'une retenue collinaire",
		BeautifyProject(" création d’une retenue collinaire, "))
}

func TestAssignCategory(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Cas par cas", AssignCategory("Les décisions au CAS PAR CAS - Projets"))
	require.Equal(t, "Avis d'autorité", AssignCategory("Avis d'autorité"))
}

func TestDeriveFilename(t *testing.T) {
	t.Parallel()

	require.Equal(t, "decision.pdf",
		DeriveFilename("https://example.org/projets/decision.pdf?lang=fr"))
}

func TestProjectIDDeterministic(t *testing.T) {
	t.Parallel()

	a := ProjectID("https://example.org/p1", "Projet A")
	b := ProjectID("https://example.org/p1", "Projet A")
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	require.NotEqual(t, a, ProjectID("https://example.org/p2", "Projet A"))
	require.NotEqual(t, a, ProjectID("https://example.org/p1", "Projet B"))
}

func TestEnrichRejectsUnsupportedType(t *testing.T) {
	t.Parallel()

	c := &Candidate{
		Title:          "Notes",
		Project:        "Projet",
		SourcePageURL:  "https://example.org/p",
		SourceFileURL:  "https://example.org/files/notes.txt",
		CategoryLocal:  "Les décisions au cas par cas - Projets",
		DepartmentCode: "69",
	}
	require.ErrorIs(t, Enrich(c), ErrUnsupportedType)
}

func TestEnrichFullCandidate(t *testing.T) {
	t.Parallel()

	c := &Candidate{
		Title:          "télécharger la décision",
		Project:        "Lyon (69) : Extension d’usine.",
		SourcePageURL:  "https://example.org/projets/extension",
		SourceFileURL:  "https://example.org/files/decision_finale.pdf",
		Authority:      "Préfecture de région Auvergne-Rhône-Alpes",
		CategoryLocal:  "Les décisions au cas par cas - Projets",
		DepartmentCode: "69",
		TargetYear:     2025,
	}
	require.NoError(t, Enrich(c))

	require.Equal(t, "Télécharger la décision", c.Title)
	require.Equal(t, "Extension d'usine - Lyon (69)", c.Project)
	require.Equal(t, "Cas par cas", c.Category)
	require.Equal(t, "decision_finale.pdf", c.SourceFilename)
	require.Contains(t, c.Departments, "69")
	require.Len(t, c.ProjectID, 64)
	require.Equal(t, "https://example.org/files/decision_finale.pdf", c.Key())
}

func TestCandidateKeyForArchiveMember(t *testing.T) {
	t.Parallel()

	c := &Candidate{
		SourceFileURL: "https://example.org/bundle.zip",
		Archive: &ArchiveContext{
			URL:          "https://example.org/bundle.zip",
			RelativePath: "sub/doc.pdf",
		},
	}
	require.Equal(t, "https://example.org/bundle.zip/sub/doc.pdf", c.Key())
	require.True(t, c.FromArchive())
}
