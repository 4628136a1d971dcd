package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/cidadeativa/zeladoria/internal/auth"
	"github.com/cidadeativa/zeladoria/internal/repo"
	"github.com/cidadeativa/zeladoria/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("cpf ou senha inválidos")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
	// ErrWorkerProfileLocked indica que operários não editam o próprio perfil.
	ErrWorkerProfileLocked = errors.New("operários não podem editar o próprio perfil")
)

// ValidationError carrega mensagens de campo para respostas 422.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

type identityRepository interface {
	GetUserByCPF(ctx context.Context, cpf string) (repo.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	CPFExists(ctx context.Context, cpf string) (bool, error)
	InsertUser(ctx context.Context, arg repo.NewUserParams) (repo.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, arg repo.UpdateUserParams) error
	GetAddress(ctx context.Context, userID uuid.UUID) (*repo.Address, error)
	ListSkillsByUser(ctx context.Context, userID uuid.UUID) ([]repo.Skill, error)
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo       identityRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r identityRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Role          repo.Role
	User          *UserSummary
	RefreshExpiry time.Time
}

// UserSummary é o payload de usuário devolvido em login e registro.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	CPF   string `json:"cpf"`
}

// Profile é o payload completo de perfil com endereço e habilidades.
type Profile struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	CPF      string        `json:"cpf"`
	Role     string        `json:"role"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone"`
	Birthday string        `json:"birthday"`
	Address  *repo.Address `json:"address"`
	Skills   []repo.Skill  `json:"skills"`
}

// RegisterParams agrupa os campos do cadastro público.
type RegisterParams struct {
	Name     string
	CPF      string
	Email    string
	Phone    string
	Birthday string
	Password string
	Address  repo.Address
}

const birthdayLayout = "2006-01-02"

// CheckCPF responde se um CPF já está cadastrado.
func (s *AuthService) CheckCPF(ctx context.Context, cpf string) (bool, error) {
	return s.repo.CPFExists(ctx, util.NormalizeCPF(cpf))
}

// Login autentica por CPF e senha e abre sessão.
func (s *AuthService) Login(ctx context.Context, cpf, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByCPF(ctx, util.NormalizeCPF(cpf))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verificação de senha falhou")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, user)
}

// Register cria um cidadão com endereço completo.
func (s *AuthService) Register(ctx context.Context, arg RegisterParams) (*LoginResult, error) {
	birthday, messages := ValidateUserFields(arg.Name, arg.CPF, arg.Email, arg.Phone, arg.Birthday, arg.Address)
	if err := util.ValidatePassword(arg.Password); err != nil {
		messages = append(messages, err.Error())
	}
	if len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}

	hash, err := auth.Hash(arg.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.InsertUser(ctx, repo.NewUserParams{
		Name:      strings.TrimSpace(arg.Name),
		CPF:       util.NormalizeCPF(arg.CPF),
		Email:     strings.ToLower(strings.TrimSpace(arg.Email)),
		Phone:     strings.TrimSpace(arg.Phone),
		Birthday:  birthday,
		Role:      repo.RoleCitizen,
		SenhaHash: hash,
		Address:   arg.Address,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, &ValidationError{Messages: []string{"cpf ou email já cadastrado"}}
		}
		return nil, err
	}

	return s.openSession(ctx, user)
}

// Refresh troca refresh token por novos tokens.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if record.Revogado || time.Now().UTC().After(record.Expiracao) {
		return nil, ErrRefreshInvalid
	}

	redisKey := auth.RefreshRedisKey(hash)
	status, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUserByID(ctx, record.Subject)
	if err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	// Revoga token anterior (DB + Redis)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return result, nil
}

// Logout revoga refresh token atual.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefreshToken(rawToken)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// GetProfile monta perfil completo do subject autenticado.
func (s *AuthService) GetProfile(ctx context.Context, subject uuid.UUID) (*Profile, error) {
	user, err := s.repo.GetUserByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, user)
}

// UpdateProfile atualiza dados do próprio usuário; operários não editam.
func (s *AuthService) UpdateProfile(ctx context.Context, subject uuid.UUID, arg repo.UpdateUserParams) (*Profile, error) {
	user, err := s.repo.GetUserByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user.Role == repo.RoleWorker {
		return nil, ErrWorkerProfileLocked
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
	if arg.Address != nil {
		messages = append(messages, ValidateAddress(*arg.Address)...)
	}
	if len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}

	arg.Name = strings.TrimSpace(arg.Name)
	arg.Email = strings.ToLower(strings.TrimSpace(arg.Email))
	arg.Phone = strings.TrimSpace(arg.Phone)
	if arg.Birthday.IsZero() {
		arg.Birthday = user.Birthday
	}

	if err := s.repo.UpdateUser(ctx, subject, arg); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, &ValidationError{Messages: []string{"email já cadastrado"}}
		}
		return nil, err
	}

	updated, err := s.repo.GetUserByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, updated)
}

func (s *AuthService) buildProfile(ctx context.Context, user repo.User) (*Profile, error) {
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
	return &Profile{
		ID:       user.ID.String(),
		Name:     user.Name,
		CPF:      user.CPF,
		Role:     string(user.Role),
		Email:    user.Email,
		Phone:    user.Phone,
		Birthday: user.Birthday.Format(birthdayLayout),
		Address:  address,
		Skills:   skills,
	}, nil
}

func (s *AuthService) openSession(ctx context.Context, user repo.User) (*LoginResult, error) {
	token, _, err := s.jwt.GenerateAccessToken(user.ID.String(), "app", string(user.Role))
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  token,
		RefreshToken: rawRefresh,
		Subject:      user.ID,
		Role:         user.Role,
		User: &UserSummary{
			ID:    user.ID.String(),
			Name:  user.Name,
			Email: user.Email,
			Role:  string(user.Role),
			CPF:   user.CPF,
		},
		RefreshExpiry: expires,
	}, nil
}

func (s *AuthService) persistRefresh(ctx context.Context, subject uuid.UUID, hash string, expires time.Time) error {
	_, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		Subject:   subject,
		TokenHash: hash,
		Expiracao: expires,
		CriadoEm:  util.Now(),
	})
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, subject, hash); err != nil {
		return err
	}

	return s.redis.Set(ctx, auth.RefreshRedisKey(hash), "active", time.Until(expires)).Err()
}

// ValidateUserFields valida os campos comuns de cadastro e devolve a data de nascimento.
func ValidateUserFields(name, cpf, email, phone, birthday string, address repo.Address) (time.Time, []string) {
	var messages []string

	if err := util.RequireString(name, "name"); err != nil {
		messages = append(messages, err.Error())
	}
	if err := util.ValidateCPF(cpf); err != nil {
		messages = append(messages, err.Error())
	}
	if err := util.ValidateEmail(email); err != nil {
		messages = append(messages, err.Error())
	}
	if err := util.RequireString(phone, "phone"); err != nil {
		messages = append(messages, err.Error())
	}

	var parsed time.Time
	if strings.TrimSpace(birthday) == "" {
		messages = append(messages, "birthday obrigatório")
	} else {
		var err error
		parsed, err = time.Parse(birthdayLayout, birthday)
		if err != nil {
			messages = append(messages, "birthday inválido")
		}
	}

	messages = append(messages, ValidateAddress(address)...)
	return parsed, messages
}

// ValidateAddress valida presença dos campos de endereço.
func ValidateAddress(address repo.Address) []string {
	var messages []string
	fields := []struct {
		value string
		name  string
	}{
		{address.Street, "street"},
		{address.Number, "number"},
		{address.Neighborhood, "neighborhood"},
		{address.City, "city"},
		{address.State, "state"},
		{address.Zipcode, "zipcode"},
	}
	for _, f := range fields {
		if err := util.RequireString(f.value, f.name); err != nil {
			messages = append(messages, err.Error())
		}
	}
	return messages
}
