package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDepartmentCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "38", ParseDepartmentCode("Isère (38)"))
	require.Equal(t, "", ParseDepartmentCode("Isère"))
}

func TestDepartmentsUnionIsSortedAndUnique(t *testing.T) {
	t.Parallel()

	got := Departments("69", "Préfecture du Rhône (69) et de l'Ain (01)", "Projet")
	require.Equal(t, []string{"01", "69"}, got)
}

func TestDepartmentsFallBackToProjectName(t *testing.T) {
	t.Parallel()

	got := Departments("", "Préfecture de région Auvergne-Rhône-Alpes", "Carrière dans le Cantal")
	require.Equal(t, []string{"15"}, got)
}

func TestDepartmentsProjectCode(t *testing.T) {
	t.Parallel()

	got := Departments("38", "Préfecture de région", "Extension d'usine - Lyon (69)")
	require.Equal(t, []string{"38", "69"}, got)
}
