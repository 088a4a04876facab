package commands

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsoft/internal/domain/pets"
	"petsoft/internal/router"
)

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	root := NewRootCmd("test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err = root.Execute()
	return out.String(), errOut.String(), err
}

func newAPI(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func listJSON(t *testing.T, api string) []pets.Pet {
	t.Helper()
	out, _, err := runCLI(t, "--api", api, "list", "--json")
	require.NoError(t, err)

	var items []pets.Pet
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	return items
}

func TestRoot_ShowsHelpWithoutSubcommand(t *testing.T) {
	out, _, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "checkout")
}

func TestAdd_ShowsOptimisticViewAndPersists(t *testing.T) {
	api := newAPI(t)

	out, stderr, err := runCLI(t, "--api", api, "add", "--name", "Milo", "--owner", "Ana", "--age", "3")
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, out, "1 current guests")
	assert.Contains(t, out, "Milo")
	assert.Contains(t, out, "done")

	items := listJSON(t, api)
	require.Len(t, items, 1)
	assert.Equal(t, "Milo", items[0].Name)
	assert.Equal(t, pets.PlaceholderImageURL, items[0].ImageURL)
}

func TestAdd_RejectedByServerWarns(t *testing.T) {
	api := newAPI(t)

	out, stderr, err := runCLI(t, "--api", api, "add", "--name", "Milo", "--owner", "Ana", "--age=-1")
	require.Error(t, err)
	assert.Contains(t, out, "1 current guests", "the optimistic view is shown before the server answers")
	assert.Contains(t, stderr, "warning: Could not add pet.")

	assert.Empty(t, listJSON(t, api))
}

func TestAdd_RequiresNameAndOwner(t *testing.T) {
	api := newAPI(t)

	_, _, err := runCLI(t, "--api", api, "add", "--age", "1")
	require.Error(t, err)
}

func TestList_Search(t *testing.T) {
	api := newAPI(t)
	for _, name := range []string{"Milo", "Rex", "Camila"} {
		_, _, err := runCLI(t, "--api", api, "add", "--name", name, "--owner", "Ana", "--age", "2")
		require.NoError(t, err)
	}

	out, _, err := runCLI(t, "--api", api, "list", "--search", "MIL")
	require.NoError(t, err)
	assert.Contains(t, out, "2 current guests")
	assert.Contains(t, out, "Milo")
	assert.Contains(t, out, "Camila")
	assert.NotContains(t, out, "Rex")

	out, _, err = runCLI(t, "--api", api, "list", "--json", "-s", "rex")
	require.NoError(t, err)
	var items []pets.Pet
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Rex", items[0].Name)
}

func TestEdit_OnlyChangedFields(t *testing.T) {
	api := newAPI(t)
	_, _, err := runCLI(t, "--api", api, "add", "--name", "Milo", "--owner", "Ana", "--age", "3", "--notes", "muerde")
	require.NoError(t, err)
	id := listJSON(t, api)[0].ID

	_, _, err = runCLI(t, "--api", api, "edit", id, "--age", "4")
	require.NoError(t, err)

	got := listJSON(t, api)[0]
	assert.Equal(t, 4, got.Age)
	assert.Equal(t, "Milo", got.Name)
	assert.Equal(t, "muerde", got.Notes)
}

func TestEdit_NothingToEdit(t *testing.T) {
	api := newAPI(t)
	_, _, err := runCLI(t, "--api", api, "edit", "some-id")
	require.ErrorContains(t, err, "nothing to edit")
}

func TestCheckout(t *testing.T) {
	api := newAPI(t)
	_, _, err := runCLI(t, "--api", api, "add", "--name", "Milo", "--owner", "Ana", "--age", "3")
	require.NoError(t, err)
	id := listJSON(t, api)[0].ID

	out, _, err := runCLI(t, "--api", api, "checkout", id)
	require.NoError(t, err)
	assert.Contains(t, out, "0 current guests")
	assert.Empty(t, listJSON(t, api))

	// Segundo checkout: el servidor responde con message.
	_, stderr, err := runCLI(t, "--api", api, "checkout", id)
	require.Error(t, err)
	assert.Contains(t, stderr, "warning: Could not delete pet.")
}

func TestPrintError_SkipsMutationFailures(t *testing.T) {
	api := newAPI(t)
	_, _, err := runCLI(t, "--api", api, "checkout", "missing")
	require.Error(t, err)

	var buf bytes.Buffer
	PrintError(&buf, err)
	assert.Empty(t, buf.String())
}
