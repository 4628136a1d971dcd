package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cidadeativa/zeladoria/internal/db"
)

const dbTimeout = 3 * time.Second

// Queries fornece acesso aos dados de identidade (usuários, endereços, habilidades).
type Queries struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{db: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const userColumns = `id, name, cpf, email, phone, birthday, role, senha_hash, criado_em`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.CPF, &u.Email, &u.Phone, &u.Birthday, &role, &u.SenhaHash, &u.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.Role = Role(role)
	return u, nil
}

// GetUserByCPF busca usuário por CPF normalizado.
func (q *Queries) GetUserByCPF(ctx context.Context, cpf string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE cpf = $1`, cpf))
}

// GetUserByID busca usuário por id.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CPFExists responde se um CPF já está cadastrado.
func (q *Queries) CPFExists(ctx context.Context, cpf string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE cpf = $1)`, cpf).Scan(&exists)
	return exists, err
}

// InsertUser cria usuário e endereço na mesma transação.
func (q *Queries) InsertUser(ctx context.Context, arg NewUserParams) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var user User
	err := db.WithTx(ctx, q.db, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (id, name, cpf, email, phone, birthday, role, senha_hash, criado_em)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
			RETURNING `+userColumns+`
		`, uuid.New(), arg.Name, arg.CPF, arg.Email, arg.Phone, arg.Birthday, string(arg.Role), arg.SenhaHash)

		var err error
		user, err = scanUser(row)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO addresses (id, user_id, street, number, neighborhood, city, state, zipcode, criado_em)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		`, uuid.New(), user.ID, arg.Address.Street, arg.Address.Number, arg.Address.Neighborhood,
			arg.Address.City, arg.Address.State, arg.Address.Zipcode)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return user, nil
}

// UpdateUser atualiza perfil e, quando informado, o endereço.
func (q *Queries) UpdateUser(ctx context.Context, id uuid.UUID, arg UpdateUserParams) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return db.WithTx(ctx, q.db, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users SET name=$1, email=$2, phone=$3, birthday=$4 WHERE id=$5
		`, arg.Name, arg.Email, arg.Phone, arg.Birthday, id)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if arg.Address == nil {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO addresses (id, user_id, street, number, neighborhood, city, state, zipcode, criado_em)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
			ON CONFLICT (user_id)
			DO UPDATE SET street=EXCLUDED.street, number=EXCLUDED.number, neighborhood=EXCLUDED.neighborhood,
			              city=EXCLUDED.city, state=EXCLUDED.state, zipcode=EXCLUDED.zipcode
		`, uuid.New(), id, arg.Address.Street, arg.Address.Number, arg.Address.Neighborhood,
			arg.Address.City, arg.Address.State, arg.Address.Zipcode)
		return err
	})
}

// GetAddress retorna o endereço do usuário, se houver.
func (q *Queries) GetAddress(ctx context.Context, userID uuid.UUID) (*Address, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a Address
	err := q.db.QueryRow(ctx, `
		SELECT street, number, neighborhood, city, state, zipcode
		FROM addresses WHERE user_id = $1
	`, userID).Scan(&a.Street, &a.Number, &a.Neighborhood, &a.City, &a.State, &a.Zipcode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListUsersByRoles lista usuários com os papéis informados, ordenados por nome.
func (q *Queries) ListUsersByRoles(ctx context.Context, roles ...Role) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	values := make([]string, 0, len(roles))
	for _, r := range roles {
		values = append(values, string(r))
	}

	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = ANY($1)
		ORDER BY name
	`, values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListSkills retorna o catálogo completo de habilidades ordenado por nome.
func (q *Queries) ListSkills(ctx context.Context) ([]Skill, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.db.Query(ctx, `SELECT id, name FROM skills ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

// ListSkillsByUser retorna habilidades vinculadas a um usuário.
func (q *Queries) ListSkillsByUser(ctx context.Context, userID uuid.UUID) ([]Skill, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := q.db.Query(ctx, `
		SELECT s.id, s.name
		FROM user_skills us
		JOIN skills s ON s.id = us.skill_id
		WHERE us.user_id = $1
		ORDER BY s.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

// ReplaceUserSkills substitui o conjunto de habilidades do usuário.
func (q *Queries) ReplaceUserSkills(ctx context.Context, userID uuid.UUID, skillIDs []uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return db.WithTx(ctx, q.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_skills WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, skillID := range skillIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_skills (user_id, skill_id)
				VALUES ($1,$2)
				ON CONFLICT DO NOTHING
			`, userID, skillID); err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureSkill garante habilidade nomeada no catálogo e devolve o id.
func (q *Queries) EnsureSkill(ctx context.Context, name string) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		INSERT INTO skills (id, name)
		VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, uuid.New(), name).Scan(&id)
	return id, err
}

// InsertRefreshToken persiste novo refresh token.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := q.db.Exec(ctx, `
		INSERT INTO token_refresh (id, subject, token_hash, expiracao, criado_em, revogado)
		VALUES ($1,$2,$3,$4,$5,FALSE)
	`, arg.ID, arg.Subject, arg.TokenHash, arg.Expiracao, arg.CriadoEm)
	if err != nil {
		return TokenRefresh{}, err
	}
	return TokenRefresh{
		ID:        arg.ID,
		Subject:   arg.Subject,
		TokenHash: arg.TokenHash,
		Expiracao: arg.Expiracao,
		CriadoEm:  arg.CriadoEm,
	}, nil
}

// GetRefreshTokenByHash busca refresh token pelo hash.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (TokenRefresh, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var t TokenRefresh
	err := q.db.QueryRow(ctx, `
		SELECT id, subject, token_hash, expiracao, criado_em, revogado
		FROM token_refresh
		WHERE token_hash = $1
	`, tokenHash).Scan(&t.ID, &t.Subject, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// RevokeRefreshToken marca token como revogado.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := q.db.Exec(ctx, `UPDATE token_refresh SET revogado = TRUE WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InvalidateOtherRefreshTokens revoga demais tokens ativos do mesmo subject.
func (q *Queries) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := q.db.Exec(ctx, `
		UPDATE token_refresh
		SET revogado = TRUE
		WHERE subject = $1 AND token_hash <> $2 AND revogado = FALSE
	`, subject, keepHash)
	return err
}
