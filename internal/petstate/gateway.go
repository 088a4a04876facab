package petstate

import (
	"context"
	"errors"

	"petsoft/internal/domain/pets"
	"petsoft/internal/platform/logger"
)

// Gateway reenvía las mutaciones al store persistente.
// nil = éxito; cualquier error se reporta como *MutationError.
// AddPet devuelve el id que asignó el servidor.
type Gateway interface {
	AddPet(ctx context.Context, in pets.Essentials) (string, error)
	EditPet(ctx context.Context, petID string, patch pets.Patch) error
	DeletePet(ctx context.Context, petID string) error
}

// MutationError es el único tipo de falla que ve quien dispara una mutación:
// un mensaje legible para el usuario.
type MutationError struct {
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *MutationError) Unwrap() error { return e.Err }

// AsMutationError normaliza cualquier error al tipo del gateway.
func AsMutationError(err error) *MutationError {
	if err == nil {
		return nil
	}
	var me *MutationError
	if errors.As(err, &me) {
		return me
	}
	return &MutationError{Message: err.Error(), Err: err}
}

// Notifier es el canal lateral donde se avisan las fallas (equivalente a un toast).
type Notifier interface {
	Warn(message string)
}

// NotifierFunc adapta una función a Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Warn(message string) { f(message) }

// LogNotifier manda los avisos al logger.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Warn(message string) {
	if n.Log == nil {
		return
	}
	n.Log.Warn("mutation failed", map[string]any{"message": message})
}
