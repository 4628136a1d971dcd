package repo

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role é o papel fechado de um usuário no sistema.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleWorker  Role = "worker"
	RoleAdmin   Role = "admin"
)

// ParseRole valida e normaliza papel vindo da borda.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleCitizen:
		return RoleCitizen, nil
	case RoleWorker:
		return RoleWorker, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", errors.New("papel inválido: " + value)
	}
}

// User representa cidadão, operário ou administrador.
type User struct {
	ID        uuid.UUID
	Name      string
	CPF       string
	Email     string
	Phone     string
	Birthday  time.Time
	Role      Role
	SenhaHash string
	CriadoEm  time.Time
}

// Address é o endereço único de um usuário (1:1, cascateia na remoção).
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zipcode      string `json:"zipcode"`
}

// Skill é uma etiqueta nomeada associável a operários.
type Skill struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TokenRefresh modela tabela de refresh tokens.
type TokenRefresh struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
	Revogado  bool
}

// InsertRefreshTokenParams agrupa campos para criação de refresh token.
type InsertRefreshTokenParams struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
}

// NewUserParams agrupa campos para criação de usuário com endereço.
type NewUserParams struct {
	Name      string
	CPF       string
	Email     string
	Phone     string
	Birthday  time.Time
	Role      Role
	SenhaHash string
	Address   Address
}

// UpdateUserParams agrupa campos editáveis do perfil.
type UpdateUserParams struct {
	Name     string
	Email    string
	Phone    string
	Birthday time.Time
	Address  *Address
}
