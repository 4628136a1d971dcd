package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cidadeativa/zeladoria/internal/auth"
	"github.com/cidadeativa/zeladoria/internal/repo"
	"github.com/cidadeativa/zeladoria/internal/service"
	"github.com/cidadeativa/zeladoria/internal/util"
)

// ErrOnlyWorkers indica tentativa de editar usuário que não é operário.
var ErrOnlyWorkers = errors.New("apenas operários podem ser editados")

type directory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	ListUsersByRoles(ctx context.Context, roles ...repo.Role) ([]repo.User, error)
	InsertUser(ctx context.Context, arg repo.NewUserParams) (repo.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, arg repo.UpdateUserParams) error
	GetAddress(ctx context.Context, userID uuid.UUID) (*repo.Address, error)
	ListSkills(ctx context.Context) ([]repo.Skill, error)
	ListSkillsByUser(ctx context.Context, userID uuid.UUID) ([]repo.Skill, error)
	ReplaceUserSkills(ctx context.Context, userID uuid.UUID, skillIDs []uuid.UUID) error
}

// Service concentra a administração de cidadãos e operários.
type Service struct {
	repo directory
}

func NewService(r directory) *Service {
	return &Service{repo: r}
}

const birthdayLayout = "2006-01-02"

// Summary é a linha da listagem de usuários.
type Summary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	CPF      string    `json:"cpf"`
	Role     string    `json:"role"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Birthday string    `json:"birthday"`
}

// Detail acrescenta endereço e habilidades ao resumo.
type Detail struct {
	Summary
	Address *repo.Address `json:"address"`
	Skills  []repo.Skill  `json:"skills"`
}

// UpdateWorkerParams agrupa os campos editáveis de um operário.
type UpdateWorkerParams struct {
	Name     string
	Email    string
	Phone    string
	Birthday string
	Address  *repo.Address
	SkillIDs *[]uuid.UUID
}

// CreateWorkerParams agrupa os campos de criação de operário.
type CreateWorkerParams struct {
	Name     string
	CPF      string
	Email    string
	Phone    string
	Birthday string
	Password string
	Address  repo.Address
	SkillIDs []uuid.UUID
}

func summary(u repo.User) Summary {
	return Summary{
		ID:       u.ID,
		Name:     u.Name,
		CPF:      u.CPF,
		Role:     string(u.Role),
		Email:    u.Email,
		Phone:    u.Phone,
		Birthday: u.Birthday.Format(birthdayLayout),
	}
}

// List devolve cidadãos e operários ordenados por nome.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	users, err := s.repo.ListUsersByRoles(ctx, repo.RoleCitizen, repo.RoleWorker)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, summary(u))
	}
	return summaries, nil
}

// Get devolve usuário com endereço e habilidades.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, user)
}

// UpdateWorker atualiza dados de um operário e, se informado, substitui o
// conjunto de habilidades. Usuários de outros papéis não são editáveis.
func (s *Service) UpdateWorker(ctx context.Context, id uuid.UUID, arg UpdateWorkerParams) (*Detail, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != repo.RoleWorker {
		return nil, ErrOnlyWorkers
	}

	var messages []string
	if err := util.RequireString(arg.Name, "name"); err != nil {
		messages = append(messages, err.Error())
	}
	if err := util.ValidateEmail(arg.Email); err != nil {
		messages = append(messages, err.Error())
	}
	if err := util.RequireString(arg.Phone, "phone"); err != nil {
		messages = append(messages, err.Error())
	}
	birthday := user.Birthday
	if strings.TrimSpace(arg.Birthday) != "" {
		birthday, err = time.Parse(birthdayLayout, arg.Birthday)
		if err != nil {
			messages = append(messages, "birthday inválido")
		}
	}
	if arg.Address != nil {
		messages = append(messages, service.ValidateAddress(*arg.Address)...)
	}
	if len(messages) > 0 {
		return nil, &service.ValidationError{Messages: messages}
	}

	err = s.repo.UpdateUser(ctx, id, repo.UpdateUserParams{
		Name:     strings.TrimSpace(arg.Name),
		Email:    strings.ToLower(strings.TrimSpace(arg.Email)),
		Phone:    strings.TrimSpace(arg.Phone),
		Birthday: birthday,
		Address:  arg.Address,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, &service.ValidationError{Messages: []string{"email já cadastrado"}}
		}
		return nil, err
	}

	if arg.SkillIDs != nil {
		if err := s.repo.ReplaceUserSkills(ctx, id, *arg.SkillIDs); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, updated)
}

// CreateWorker cria operário com endereço e habilidades. Sem senha informada,
// gera uma aleatória.
func (s *Service) CreateWorker(ctx context.Context, arg CreateWorkerParams) (*Detail, error) {
	birthday, messages := service.ValidateUserFields(arg.Name, arg.CPF, arg.Email, arg.Phone, arg.Birthday, arg.Address)
	if arg.Password != "" {
		if err := util.ValidatePassword(arg.Password); err != nil {
			messages = append(messages, err.Error())
		}
	}
	if len(messages) > 0 {
		return nil, &service.ValidationError{Messages: messages}
	}

	password := arg.Password
	if password == "" {
		generated, err := randomPassword()
		if err != nil {
			return nil, err
		}
		password = generated
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.InsertUser(ctx, repo.NewUserParams{
		Name:      strings.TrimSpace(arg.Name),
		CPF:       util.NormalizeCPF(arg.CPF),
		Email:     strings.ToLower(strings.TrimSpace(arg.Email)),
		Phone:     strings.TrimSpace(arg.Phone),
		Birthday:  birthday,
		Role:      repo.RoleWorker,
		SenhaHash: hash,
		Address:   arg.Address,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, &service.ValidationError{Messages: []string{"cpf ou email já cadastrado"}}
		}
		return nil, err
	}

	if len(arg.SkillIDs) > 0 {
		if err := s.repo.ReplaceUserSkills(ctx, user.ID, arg.SkillIDs); err != nil {
			return nil, err
		}
	}

	return s.buildDetail(ctx, user)
}

// Skills devolve o catálogo de habilidades.
func (s *Service) Skills(ctx context.Context) ([]repo.Skill, error) {
	skills, err := s.repo.ListSkills(ctx)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []repo.Skill{}
	}
	return skills, nil
}

func (s *Service) buildDetail(ctx context.Context, user repo.User) (*Detail, error) {
	address, err := s.repo.GetAddress(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	skills, err := s.repo.ListSkillsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []repo.Skill{}
	}
	return &Detail{
		Summary: summary(user),
		Address: address,
		Skills:  skills,
	}, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
