// Package petstate mantiene la vista optimista de las mascotas de una sesión.
//
// El Container guarda la lista canónica (snapshot del servidor) y un overlay de
// intenciones de mutación. La vista que se muestra es siempre el fold del overlay
// sobre la lista canónica; la lista canónica solo cambia con Reconcile.
// Cada mutación se proyecta de forma sincrónica y después se confirma contra el
// Gateway en una goroutine propia.
package petstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"petsoft/internal/domain/pets"
	"petsoft/internal/platform/logger"
)

// TokenPrefix marca los ids temporales de altas optimistas. Los ids del
// servidor son UUIDs pelados, así que nunca colisionan.
const TokenPrefix = "optimistic-"

var (
	ErrClosed   = errors.New("petstate: container closed")
	ErrNotSaved = errors.New("petstate: pet not saved yet")
)

// Mensajes para el usuario de los rechazos locales (sin llamar al gateway).
const (
	MsgClosed   = "Session closed, reload the page."
	MsgNotSaved = "This pet is still being saved."
)

// IsToken informa si id es un token de correlación y no un id persistido.
func IsToken(id string) bool {
	return strings.HasPrefix(id, TokenPrefix)
}

type Options struct {
	// Notifier recibe el mensaje de cada mutación fallida. Default: LogNotifier.
	Notifier Notifier
	Logger   logger.Logger

	// Rollback descarta la intención fallida del overlay, restaurando la vista
	// previa a la mutación. Apagado: la vista queda optimista hasta Reconcile.
	Rollback bool

	// NewToken genera tokens de correlación (tests).
	NewToken func() string
}

type Container struct {
	mu        sync.Mutex
	canonical []pets.Pet
	overlay   []*intent

	selectedID  string
	hasSelected bool

	gw       Gateway
	notifier Notifier
	log      logger.Logger
	rollback bool
	newToken func() string

	// epoch cuenta los resultados del gateway aplicados (ver Reconcile).
	epoch uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New crea el contenedor sembrado con el snapshot del servidor. El snapshot se
// copia; el caller puede reutilizar su slice.
func New(snapshot []pets.Pet, gw Gateway, opts Options) *Container {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	newToken := opts.NewToken
	if newToken == nil {
		newToken = func() string { return TokenPrefix + uuid.NewString() }
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		canonical: clonePets(snapshot),
		gw:        gw,
		notifier:  notifier,
		log:       log,
		rollback:  opts.Rollback,
		newToken:  newToken,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// AddPet proyecta la mascota nueva con un id temporal y la manda al gateway.
// Al confirmar, el token se reemplaza por el id que asignó el servidor.
// El canal recibe nil o un *MutationError y se cierra.
func (c *Container) AddPet(in pets.Essentials) <-chan error {
	it := &intent{kind: kindAdd, essentials: in}
	return c.dispatch(it, func(ctx context.Context) (string, error) {
		return c.gw.AddPet(ctx, in)
	})
}

// EditPet proyecta un merge superficial del patch sobre la mascota petID.
func (c *Container) EditPet(petID string, patch pets.Patch) <-chan error {
	it := &intent{kind: kindEdit, petID: petID, patch: patch}
	return c.dispatch(it, func(ctx context.Context) (string, error) {
		return "", c.gw.EditPet(ctx, it.petID, patch)
	})
}

// DeletePet (checkout) saca la mascota de la vista. Si el gateway confirma y la
// selección apuntaba a petID, la selección se limpia.
func (c *Container) DeletePet(petID string) <-chan error {
	it := &intent{kind: kindDelete, petID: petID}
	return c.dispatch(it, func(ctx context.Context) (string, error) {
		return "", c.gw.DeletePet(ctx, it.petID)
	})
}

// ChangeSelectedPetID no valida existencia: una selección vieja simplemente
// deriva en SelectedPet ausente.
func (c *Container) ChangeSelectedPetID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = id
	c.hasSelected = true
}

func (c *Container) SelectedPetID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID, c.hasSelected
}

// Pets devuelve la vista optimista actual (copia).
func (c *Container) Pets() []pets.Pet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectLocked()
}

func (c *Container) NumberOfPets() int {
	return len(c.Pets())
}

func (c *Container) SelectedPet() (pets.Pet, bool) {
	v := c.View()
	if v.SelectedPet == nil {
		return pets.Pet{}, false
	}
	return *v.SelectedPet, true
}

// Epoch identifica el último resultado del gateway ya aplicado. Se lee antes de
// pedir el snapshot que después se pasa a Reconcile.
func (c *Container) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Reconcile reemplaza la lista canónica con un snapshot nuevo del servidor.
// epoch es el valor de Epoch leído antes de pedir el snapshot: las intenciones
// resueltas hasta ese punto ya están en el snapshot y se descartan. Las que
// siguen en vuelo, o se resolvieron mientras se pedía el snapshot, se aplican
// encima.
func (c *Container) Reconcile(snapshot []pets.Pet, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.canonical = clonePets(snapshot)

	kept := c.overlay[:0]
	for _, it := range c.overlay {
		if it.state == statePending || it.settledAt > epoch {
			kept = append(kept, it)
		}
	}
	clear(c.overlay[len(kept):])
	c.overlay = kept

	c.log.Debug("reconciled snapshot", map[string]any{
		"pets":    len(c.canonical),
		"overlay": len(kept),
		"epoch":   epoch,
	})
}

// Pending cuenta las mutaciones que todavía esperan respuesta del gateway.
func (c *Container) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, it := range c.overlay {
		if it.state == statePending {
			n++
		}
	}
	return n
}

// Close cancela las llamadas en vuelo y espera a que terminen.
// Después de Close toda mutación devuelve un *MutationError que envuelve
// ErrClosed, sin proyectar nada.
func (c *Container) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Container) dispatch(it *intent, call func(ctx context.Context) (string, error)) <-chan error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return resolved(&MutationError{Message: MsgClosed, Err: ErrClosed})
	}

	if it.kind != kindAdd && IsToken(it.petID) {
		id, ok := c.serverIDLocked(it.petID)
		if !ok {
			c.mu.Unlock()
			err := &MutationError{Message: MsgNotSaved, Err: ErrNotSaved}
			c.log.Info("mutation rejected", it.fields())
			c.notifier.Warn(err.Message)
			return resolved(err)
		}
		it.petID = id
	}

	if it.kind == kindAdd {
		it.token = c.newToken()
	}
	c.overlay = append(c.overlay, it)
	c.wg.Add(1)
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer c.wg.Done()
		defer close(done)

		id, err := c.invoke(call)
		c.settle(it, id, err)
		done <- err
	}()

	return done
}

// serverIDLocked traduce un token al id del servidor si el alta ya se confirmó.
func (c *Container) serverIDLocked(token string) (string, bool) {
	for _, it := range c.overlay {
		if it.kind == kindAdd && it.token == token && it.serverID != "" {
			return it.serverID, true
		}
	}
	return "", false
}

func resolved(err error) <-chan error {
	done := make(chan error, 1)
	done <- err
	close(done)
	return done
}

// invoke nunca deja escapar un panic del gateway: lo convierte en falla.
func (c *Container) invoke(call func(ctx context.Context) (string, error)) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id = ""
			err = &MutationError{Message: "unexpected error", Err: fmt.Errorf("gateway panic: %v", r)}
		}
	}()

	id, err = call(c.ctx)
	if err != nil {
		return "", AsMutationError(err)
	}
	return id, nil
}

func (c *Container) settle(it *intent, serverID string, err error) {
	c.mu.Lock()

	c.epoch++
	it.settledAt = c.epoch

	if err == nil {
		it.state = stateConfirmed
		switch it.kind {
		case kindAdd:
			if id := strings.TrimSpace(serverID); id != "" {
				it.serverID = id
				if c.hasSelected && c.selectedID == it.token {
					c.selectedID = id
				}
			}
		case kindDelete:
			if c.hasSelected && c.selectedID == it.petID {
				c.selectedID = ""
				c.hasSelected = false
			}
		}
		c.mu.Unlock()

		c.log.Debug("mutation confirmed", it.fields())
		return
	}

	it.state = stateFailed
	if c.rollback {
		c.removeLocked(it)
	}
	shuttingDown := c.closed
	c.mu.Unlock()

	fields := it.fields()
	fields["error"] = err.Error()
	fields["rolled_back"] = c.rollback

	// Las cancelaciones por Close no son culpa del usuario; no se avisan.
	if shuttingDown && errors.Is(err, context.Canceled) {
		c.log.Debug("mutation canceled", fields)
		return
	}

	c.log.Info("mutation failed", fields)
	c.notifier.Warn(err.Error())
}

func (c *Container) removeLocked(target *intent) {
	for i, it := range c.overlay {
		if it == target {
			c.overlay = append(c.overlay[:i:i], c.overlay[i+1:]...)
			return
		}
	}
}

func (c *Container) projectLocked() []pets.Pet {
	out := clonePets(c.canonical)
	for _, it := range c.overlay {
		out = it.apply(out)
	}
	return out
}

func clonePets(in []pets.Pet) []pets.Pet {
	out := make([]pets.Pet, len(in))
	copy(out, in)
	return out
}
