package petstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"petsoft/internal/domain/pets"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -------------------------
// Fakes
// -------------------------

type gatewayCall struct {
	op    string
	petID string
	in    pets.Essentials
	patch pets.Patch
}

// fakeGateway bloquea cada llamada hasta que el test manda un resultado por results.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []gatewayCall
	results chan error
	panicOn string
	added   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{results: make(chan error)}
}

func (g *fakeGateway) wait(ctx context.Context, c gatewayCall) error {
	g.mu.Lock()
	g.calls = append(g.calls, c)
	g.mu.Unlock()

	if g.panicOn == c.op {
		panic("boom")
	}

	select {
	case err := <-g.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddPet confirma con ids srv-1, srv-2, ... en orden de confirmación.
func (g *fakeGateway) AddPet(ctx context.Context, in pets.Essentials) (string, error) {
	if err := g.wait(ctx, gatewayCall{op: "add", in: in}); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.added++
	return fmt.Sprintf("srv-%d", g.added), nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) EditPet(ctx context.Context, petID string, patch pets.Patch) error {
	return g.wait(ctx, gatewayCall{op: "edit", petID: petID, patch: patch})
}

func (g *fakeGateway) DeletePet(ctx context.Context, petID string) error {
	return g.wait(ctx, gatewayCall{op: "delete", petID: petID})
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Warn(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func seed() []pets.Pet {
	return []pets.Pet{
		{ID: "1", Name: "Rex", OwnerName: "Ana", Age: 3},
		{ID: "2", Name: "Fido", OwnerName: "Bo", Age: 5},
	}
}

func newTestContainer(t *testing.T, snapshot []pets.Pet, rollback bool) (*Container, *fakeGateway, *recordingNotifier) {
	t.Helper()
	gw := newFakeGateway()
	n := &recordingNotifier{}
	c := New(snapshot, gw, Options{Notifier: n, Rollback: rollback})
	t.Cleanup(c.Close)
	return c, gw, n
}

func strPtr(s string) *string { return &s }

func assertSelectionInvariant(t *testing.T, c *Container) {
	t.Helper()
	v := c.View()
	if v.SelectedPet == nil {
		for _, p := range v.Pets {
			if v.HasSelection && p.ID == v.SelectedPetID {
				t.Fatalf("selected pet %q present in list but SelectedPet is nil", p.ID)
			}
		}
		return
	}
	require.True(t, v.HasSelection)
	require.Equal(t, v.SelectedPetID, v.SelectedPet.ID)
}

// -------------------------
// Tests
// -------------------------

func TestAddPet_ProjectsBeforeGatewayResolves(t *testing.T) {
	c, gw, _ := newTestContainer(t, []pets.Pet{{ID: "1", Name: "Rex"}}, false)

	done := c.AddPet(pets.Essentials{Name: "Fido"})

	list := c.Pets()
	require.Len(t, list, 2)
	assert.Equal(t, 2, c.NumberOfPets())
	assert.Equal(t, "Fido", list[1].Name)
	assert.NotEqual(t, "1", list[1].ID)
	assert.True(t, IsToken(list[1].ID))
	assert.True(t, c.View().IsOptimistic(list[1].ID))
	assert.Equal(t, 1, c.Pending())

	gw.results <- nil
	require.NoError(t, <-done)

	_, open := <-done
	assert.False(t, open, "result channel must be closed after the result")
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, 2, c.NumberOfPets())
}

func TestAddPet_ConfirmationSwapsTokenForServerID(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), false)

	done := c.AddPet(pets.Essentials{Name: "Luna"})
	token := c.Pets()[2].ID
	c.ChangeSelectedPetID(token)
	require.True(t, c.View().IsOptimistic(token))

	gw.results <- nil
	require.NoError(t, <-done)

	v := c.View()
	require.Len(t, v.Pets, 3)
	assert.Equal(t, "srv-1", v.Pets[2].ID)
	assert.False(t, v.IsOptimistic(token))
	assert.False(t, v.IsOptimistic("srv-1"), "confirmed adds are no longer optimistic")
	assert.Equal(t, "srv-1", v.SelectedPetID, "selection follows the confirmed id")
	require.NotNil(t, v.SelectedPet)
	assert.Equal(t, "Luna", v.SelectedPet.Name)
}

func TestAddPet_EmptyImageUsesPlaceholder(t *testing.T) {
	c, gw, _ := newTestContainer(t, nil, false)

	done := c.AddPet(pets.Essentials{Name: "Luna", ImageURL: "  "})
	assert.Equal(t, pets.PlaceholderImageURL, c.Pets()[0].ImageURL)

	gw.results <- nil
	require.NoError(t, <-done)
}

func TestEditPet_RejectsPendingAdd(t *testing.T) {
	c, gw, n := newTestContainer(t, seed(), false)

	added := c.AddPet(pets.Essentials{Name: "Luna"})
	token := c.Pets()[2].ID

	err := <-c.EditPet(token, pets.Patch{Name: strPtr("Nala")})
	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, MsgNotSaved, me.Message)
	assert.ErrorIs(t, err, ErrNotSaved)

	err = <-c.DeletePet(token)
	require.ErrorIs(t, err, ErrNotSaved)

	assert.Equal(t, "Luna", c.Pets()[2].Name, "rejected intents are not projected")
	assert.Len(t, c.Pets(), 3)
	assert.Equal(t, []string{MsgNotSaved, MsgNotSaved}, n.all())

	gw.results <- nil
	require.NoError(t, <-added)
	assert.Equal(t, 1, gw.callCount(), "only the add reached the gateway")
}

func TestEditPet_TokenOfConfirmedAddUsesServerID(t *testing.T) {
	c, gw, _ := newTestContainer(t, nil, false)

	added := c.AddPet(pets.Essentials{Name: "Luna"})
	token := c.Pets()[0].ID
	gw.results <- nil
	require.NoError(t, <-added)

	done := c.EditPet(token, pets.Patch{Name: strPtr("Nala")})
	assert.Equal(t, "Nala", c.Pets()[0].Name)

	gw.results <- nil
	require.NoError(t, <-done)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Len(t, gw.calls, 2)
	assert.Equal(t, "srv-1", gw.calls[1].petID)
}

func TestAddPet_TokensAreUnique(t *testing.T) {
	c, gw, _ := newTestContainer(t, nil, false)

	d1 := c.AddPet(pets.Essentials{Name: "A"})
	d2 := c.AddPet(pets.Essentials{Name: "B"})

	list := c.Pets()
	require.Len(t, list, 2)
	assert.NotEqual(t, list[0].ID, list[1].ID)

	gw.results <- nil
	gw.results <- nil
	require.NoError(t, <-d1)
	require.NoError(t, <-d2)
}

func TestEditPet_MergesOnlyPresentFields(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), false)

	done := c.EditPet("1", pets.Patch{Name: strPtr("Max")})

	list := c.Pets()
	require.Len(t, list, 2)
	assert.Equal(t, pets.Pet{ID: "1", Name: "Max", OwnerName: "Ana", Age: 3}, list[0])
	assert.Equal(t, seed()[1], list[1])

	gw.results <- nil
	require.NoError(t, <-done)
}

func TestEditPet_StaysAppliedWhenGatewayFails(t *testing.T) {
	c, gw, n := newTestContainer(t, seed(), false)

	done := c.EditPet("1", pets.Patch{Name: strPtr("Max")})
	gw.results <- &MutationError{Message: "Could not edit pet."}

	err := <-done
	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Could not edit pet.", me.Message)

	list := c.Pets()
	assert.Equal(t, "Max", list[0].Name)
	assert.Equal(t, "Fido", list[1].Name)
	assert.Equal(t, []string{"Could not edit pet."}, n.all())
}

func TestDeletePet_ClearsSelectionOnlyAfterSuccess(t *testing.T) {
	c, gw, n := newTestContainer(t, seed(), false)
	c.ChangeSelectedPetID("2")

	done := c.DeletePet("2")

	assert.Equal(t, []pets.Pet{seed()[0]}, c.Pets())
	id, ok := c.SelectedPetID()
	require.True(t, ok, "selection must survive until the gateway confirms")
	assert.Equal(t, "2", id)
	assertSelectionInvariant(t, c)

	gw.results <- nil
	require.NoError(t, <-done)

	_, ok = c.SelectedPetID()
	assert.False(t, ok)
	_, ok = c.SelectedPet()
	assert.False(t, ok)
	assert.Equal(t, []pets.Pet{{ID: "1", Name: "Rex", OwnerName: "Ana", Age: 3}}, c.Pets())
	assert.Empty(t, n.all())
}

func TestDeletePet_KeepsUnrelatedSelection(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), false)
	c.ChangeSelectedPetID("1")

	done := c.DeletePet("2")
	gw.results <- nil
	require.NoError(t, <-done)

	p, ok := c.SelectedPet()
	require.True(t, ok)
	assert.Equal(t, "Rex", p.Name)
}

func TestDeletePet_FailureWithoutRollback(t *testing.T) {
	c, gw, n := newTestContainer(t, seed(), false)
	c.ChangeSelectedPetID("2")

	done := c.DeletePet("2")
	gw.results <- errors.New("network error")

	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network error")

	assert.Len(t, c.Pets(), 1, "no rollback: record stays removed")
	id, ok := c.SelectedPetID()
	assert.True(t, ok)
	assert.Equal(t, "2", id)

	warnings := n.all()
	require.Len(t, warnings, 1)
	assert.True(t, strings.Contains(warnings[0], "network error"))
	assertSelectionInvariant(t, c)
}

func TestDeletePet_FailureWithRollbackRestoresRecord(t *testing.T) {
	c, gw, n := newTestContainer(t, seed(), true)
	c.ChangeSelectedPetID("2")

	done := c.DeletePet("2")
	require.Len(t, c.Pets(), 1)

	gw.results <- errors.New("network error")
	require.Error(t, <-done)

	assert.Equal(t, seed(), c.Pets())
	p, ok := c.SelectedPet()
	require.True(t, ok)
	assert.Equal(t, "Fido", p.Name)
	assert.Equal(t, []string{"network error"}, n.all())
}

func TestRollback_OnlyDropsTheFailedIntent(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), true)

	d1 := c.EditPet("1", pets.Patch{Name: strPtr("Max")})
	gw.results <- errors.New("boom")
	require.Error(t, <-d1)

	d2 := c.EditPet("2", pets.Patch{Age: intPtr(6)})
	gw.results <- nil
	require.NoError(t, <-d2)

	list := c.Pets()
	assert.Equal(t, "Rex", list[0].Name)
	assert.Equal(t, 6, list[1].Age)
}

func intPtr(i int) *int { return &i }

func TestSelection_StaleIDYieldsAbsentPet(t *testing.T) {
	c, _, _ := newTestContainer(t, seed(), false)

	_, ok := c.SelectedPetID()
	assert.False(t, ok)

	c.ChangeSelectedPetID("does-not-exist")
	id, ok := c.SelectedPetID()
	assert.True(t, ok)
	assert.Equal(t, "does-not-exist", id)

	_, found := c.SelectedPet()
	assert.False(t, found)
	assertSelectionInvariant(t, c)
}

func TestSelectedPet_FollowsProjection(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), false)
	c.ChangeSelectedPetID("1")

	done := c.EditPet("1", pets.Patch{Notes: strPtr("needs meds")})

	p, ok := c.SelectedPet()
	require.True(t, ok)
	assert.Equal(t, "needs meds", p.Notes)
	assertSelectionInvariant(t, c)

	gw.results <- nil
	require.NoError(t, <-done)
}

func TestReconcile_DropsSettledKeepsPending(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), false)

	added := c.AddPet(pets.Essentials{Name: "Luna"})
	gw.results <- nil
	require.NoError(t, <-added)

	pending := c.EditPet("1", pets.Patch{Name: strPtr("Max")})

	// El servidor ya persistió a Luna con su id real.
	c.Reconcile([]pets.Pet{
		{ID: "1", Name: "Rex"},
		{ID: "2", Name: "Fido"},
		{ID: "srv-1", Name: "Luna"},
	}, c.Epoch())

	v := c.View()
	require.Len(t, v.Pets, 3)
	assert.Equal(t, "Max", v.Pets[0].Name, "pending edit still applies on the new snapshot")
	assert.Equal(t, "srv-1", v.Pets[2].ID)
	assert.False(t, v.IsOptimistic("srv-1"))
	assert.Equal(t, 1, c.Pending())

	gw.results <- nil
	require.NoError(t, <-pending)
}

func TestReconcile_StaleSnapshotKeepsLateConfirmations(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), false)

	// El epoch se lee antes de pedir el snapshot; las confirmaciones llegan
	// mientras el snapshot viaja.
	epoch := c.Epoch()
	stale := seed()

	deleted := c.DeletePet("2")
	gw.results <- nil
	require.NoError(t, <-deleted)

	added := c.AddPet(pets.Essentials{Name: "Luna"})
	gw.results <- nil
	require.NoError(t, <-added)

	c.Reconcile(stale, epoch)

	list := c.Pets()
	require.Len(t, list, 2, "checked-out pet must not come back: %+v", list)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "srv-1", list[1].ID)

	// Un snapshot posterior que ya trae el alta no la duplica.
	c.Reconcile([]pets.Pet{seed()[0], {ID: "srv-1", Name: "Luna"}}, epoch)
	assert.Len(t, c.Pets(), 2)

	// Con el epoch actual las intenciones resueltas se descartan.
	c.Reconcile([]pets.Pet{seed()[0]}, c.Epoch())
	assert.Len(t, c.Pets(), 1)
	assert.Equal(t, 0, c.Pending())
}

func TestReconcile_CopiesSnapshot(t *testing.T) {
	snap := seed()
	c, _, _ := newTestContainer(t, snap, false)

	snap[0].Name = "changed"
	assert.Equal(t, "Rex", c.Pets()[0].Name)

	out := c.Pets()
	out[1].Name = "mutated"
	assert.Equal(t, "Fido", c.Pets()[1].Name)
}

func TestGatewayPanicBecomesMutationError(t *testing.T) {
	gw := newFakeGateway()
	gw.panicOn = "add"
	n := &recordingNotifier{}
	c := New(nil, gw, Options{Notifier: n})
	defer c.Close()

	err := <-c.AddPet(pets.Essentials{Name: "Boom"})

	var me *MutationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "unexpected error", me.Message)
	assert.Equal(t, []string{"unexpected error"}, n.all())
}

func TestClose_CancelsInFlightAndRejectsNewIntents(t *testing.T) {
	gw := newFakeGateway()
	n := &recordingNotifier{}
	c := New(seed(), gw, Options{Notifier: n})

	inflight := c.DeletePet("1")
	c.Close()

	err := <-inflight
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, n.all(), "cancellations on close are not user warnings")

	err = <-c.AddPet(pets.Essentials{Name: "Late"})
	require.ErrorIs(t, err, ErrClosed)
	var me *MutationError
	require.ErrorAs(t, err, &me, "closed rejections keep the MutationError contract")
	assert.Equal(t, MsgClosed, me.Message)
	assert.Len(t, c.Pets(), 1, "closed container does not project new intents")
}

func TestGatewayReceivesIntentPayloads(t *testing.T) {
	c, gw, _ := newTestContainer(t, seed(), false)

	patch := pets.Patch{OwnerName: strPtr("Carla")}
	done := c.EditPet("2", patch)
	gw.results <- nil
	require.NoError(t, <-done)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "edit", gw.calls[0].op)
	assert.Equal(t, "2", gw.calls[0].petID)
	assert.Equal(t, "Carla", *gw.calls[0].patch.OwnerName)
}
