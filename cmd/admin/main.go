package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cidadeativa/zeladoria/internal/auth"
	"github.com/cidadeativa/zeladoria/internal/db"
	"github.com/cidadeativa/zeladoria/internal/repo"
	"github.com/cidadeativa/zeladoria/internal/service"
	"github.com/cidadeativa/zeladoria/internal/util"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	queries := repo.New(pool)

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "create":
		if err := runCreate(ctx, queries, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao criar administrador")
		}
	case "seed-skills":
		if err := runSeedSkills(ctx, queries, args); err != nil {
			log.Fatal().Err(err).Msg("falha ao semear habilidades")
		}
	case "list":
		if err := runList(ctx, queries); err != nil {
			log.Fatal().Err(err).Msg("falha ao listar usuários")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "admin CLI")
	fmt.Fprintln(os.Stderr, "uso:")
	fmt.Fprintln(os.Stderr, "  admin create --name \"Fulano\" --cpf 00000000000 --email a@b.c --phone 83999999999 --birthday 1990-01-01 --password segredo \\")
	fmt.Fprintln(os.Stderr, "      --street Rua --number 10 --neighborhood Centro --city Zabelê --state PB --zipcode 58515000")
	fmt.Fprintln(os.Stderr, "  admin seed-skills --names \"Poda,Capina,Tapa-buraco\"")
	fmt.Fprintln(os.Stderr, "  admin list")
}

func runCreate(ctx context.Context, queries *repo.Queries, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		name         = fs.String("name", "", "nome completo")
		cpf          = fs.String("cpf", "", "cpf (somente dígitos)")
		email        = fs.String("email", "", "email")
		phone        = fs.String("phone", "", "telefone")
		birthday     = fs.String("birthday", "", "nascimento (YYYY-MM-DD)")
		password     = fs.String("password", "", "senha em texto claro")
		street       = fs.String("street", "", "logradouro")
		number       = fs.String("number", "", "número")
		neighborhood = fs.String("neighborhood", "", "bairro")
		city         = fs.String("city", "", "cidade")
		state        = fs.String("state", "", "UF")
		zipcode      = fs.String("zipcode", "", "CEP")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	address := repo.Address{
		Street:       *street,
		Number:       *number,
		Neighborhood: *neighborhood,
		City:         *city,
		State:        *state,
		Zipcode:      *zipcode,
	}

	parsed, messages := service.ValidateUserFields(*name, *cpf, *email, *phone, *birthday, address)
	if err := util.ValidatePassword(*password); err != nil {
		messages = append(messages, err.Error())
	}
	if len(messages) > 0 {
		return errors.New(strings.Join(messages, "; "))
	}

	hash, err := auth.Hash(*password)
	if err != nil {
		return err
	}

	user, err := queries.InsertUser(ctx, repo.NewUserParams{
		Name:      strings.TrimSpace(*name),
		CPF:       util.NormalizeCPF(*cpf),
		Email:     strings.ToLower(strings.TrimSpace(*email)),
		Phone:     strings.TrimSpace(*phone),
		Birthday:  parsed,
		Role:      repo.RoleAdmin,
		SenhaHash: hash,
		Address:   address,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return errors.New("cpf ou email já cadastrado")
		}
		return err
	}

	fmt.Printf("administrador criado: %s (%s)\n", user.Name, user.ID)
	return nil
}

func runSeedSkills(ctx context.Context, queries *repo.Queries, args []string) error {
	fs := flag.NewFlagSet("seed-skills", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	names := fs.String("names", "", "lista de habilidades separada por vírgula")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*names) == "" {
		return errors.New("--names é obrigatório")
	}

	for _, name := range strings.Split(*names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := queries.EnsureSkill(ctx, name)
		if err != nil {
			return fmt.Errorf("habilidade %q: %w", name, err)
		}
		fmt.Printf("%s  %s\n", id, name)
	}
	return nil
}

func runList(ctx context.Context, queries *repo.Queries) error {
	list, err := queries.ListUsersByRoles(ctx, repo.RoleCitizen, repo.RoleWorker, repo.RoleAdmin)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("nenhum usuário cadastrado")
		return nil
	}

	type row struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		CPF   string `json:"cpf"`
		Role  string `json:"role"`
		Email string `json:"email"`
	}
	rows := make([]row, 0, len(list))
	for _, u := range list {
		rows = append(rows, row{
			ID:    u.ID.String(),
			Name:  u.Name,
			CPF:   u.CPF,
			Role:  string(u.Role),
			Email: u.Email,
		})
	}

	encoded, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(encoded))
	return nil
}
