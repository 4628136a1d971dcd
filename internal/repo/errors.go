package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrDuplicate é retornado quando cpf ou email já estão cadastrados.
	ErrDuplicate = errors.New("registro duplicado")
)
