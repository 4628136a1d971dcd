package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cidadeativa/zeladoria/internal/db"
	"github.com/cidadeativa/zeladoria/internal/repo"
)

var (
	errNotFound = errors.New("not found")
	// ErrRequestProcessed indica solicitação fora do estado pending.
	ErrRequestProcessed = errors.New("solicitação já processada")
	// ErrTaskNotAwaiting indica tarefa fora do estado approval_requested.
	ErrTaskNotAwaiting = errors.New("tarefa não aguarda aprovação")
	// ErrTaskFinished indica tentativa de transição a partir de estado terminal.
	ErrTaskFinished = errors.New("tarefa já concluída")
	// ErrNotAssigned indica operário que não é o designado da tarefa.
	ErrNotAssigned = errors.New("operário não designado para a tarefa")
)

const dbTimeout = 3 * time.Second

// TaskRequest é a petição de um cidadão por serviço público em um endereço.
// O endereço é copiado por valor na criação; edições posteriores do endereço
// do cidadão não afetam a solicitação.
type TaskRequest struct {
	ID        uuid.UUID
	Name      string
	Status    string
	Address   repo.Address
	Latitude  float64
	Longitude float64
	CitizenID uuid.UUID
	AdminID   *uuid.UUID
	CreatedAt time.Time
}

// Task é a unidade executável criada na aprovação de uma solicitação,
// carregando cópia própria do endereço.
type Task struct {
	ID             uuid.UUID
	TaskRequestID  uuid.UUID
	Name           string
	Status         string
	Address        repo.Address
	Latitude       float64
	Longitude      float64
	WorkerID       *uuid.UUID
	AdminID        uuid.UUID
	InitialDate    *time.Time
	LimitEndDate   *time.Time
	ConclusionDate *time.Time
	CreatedAt      time.Time
}

// RequestWithTask agrega solicitação e a tarefa gerada, se houver.
type RequestWithTask struct {
	Request TaskRequest
	Task    *Task
}

// PendingRequestRow agrega solicitação pendente com nome do cidadão.
type PendingRequestRow struct {
	Request     TaskRequest
	CitizenName string
}

// AwaitingTaskRow agrega tarefa aguardando aprovação com nome do operário.
type AwaitingTaskRow struct {
	Task       Task
	WorkerName *string
}

// PersonSummary resume usuário em detalhes de solicitação/tarefa.
type PersonSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	CPF  string    `json:"cpf,omitempty"`
}

// RequestDetail é a solicitação com vínculos resolvidos.
type RequestDetail struct {
	Request TaskRequest
	Citizen PersonSummary
	Admin   *PersonSummary
	Task    *Task
}

// TaskDetail é a tarefa com vínculos resolvidos.
type TaskDetail struct {
	Task        Task
	Worker      *PersonSummary
	Admin       PersonSummary
	RequestName string
	CitizenID   uuid.UUID
	CitizenName string
}

// Repository fornece acesso aos dados de solicitações e tarefas.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const requestColumns = `id, name, status, street, number, neighborhood, city, state, zipcode,
	COALESCE(latitude, 0), COALESCE(longitude, 0), citizen_id, admin_id, created_at`

const taskColumns = `id, task_request_id, name, status, street, number, neighborhood, city, state, zipcode,
	COALESCE(latitude, 0), COALESCE(longitude, 0), worker_id, admin_id, initial_date, limit_end_date, conclusion_date, created_at`

func scanRequest(row pgx.Row) (TaskRequest, error) {
	var tr TaskRequest
	err := row.Scan(&tr.ID, &tr.Name, &tr.Status,
		&tr.Address.Street, &tr.Address.Number, &tr.Address.Neighborhood,
		&tr.Address.City, &tr.Address.State, &tr.Address.Zipcode,
		&tr.Latitude, &tr.Longitude, &tr.CitizenID, &tr.AdminID, &tr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return tr, errNotFound
	}
	return tr, err
}

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.TaskRequestID, &t.Name, &t.Status,
		&t.Address.Street, &t.Address.Number, &t.Address.Neighborhood,
		&t.Address.City, &t.Address.State, &t.Address.Zipcode,
		&t.Latitude, &t.Longitude, &t.WorkerID, &t.AdminID,
		&t.InitialDate, &t.LimitEndDate, &t.ConclusionDate, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, errNotFound
	}
	return t, err
}

// InsertRequest persiste nova solicitação com status pending.
func (r *Repository) InsertRequest(ctx context.Context, citizenID uuid.UUID, name string, address repo.Address, latitude, longitude float64) (TaskRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanRequest(r.db.QueryRow(ctx, `
		INSERT INTO task_requests (id, name, status, street, number, neighborhood, city, state, zipcode,
			latitude, longitude, citizen_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
		RETURNING `+requestColumns+`
	`, uuid.New(), name, RequestPending, address.Street, address.Number, address.Neighborhood,
		address.City, address.State, address.Zipcode, latitude, longitude, citizenID))
}

// DecideRequest aprova ou recusa solicitação pendente. A checagem do status e
// a criação da tarefa acontecem na mesma transação, com lock de linha, para
// que duas decisões concorrentes jamais gerem duas tarefas.
func (r *Repository) DecideRequest(ctx context.Context, requestID, adminID uuid.UUID, approve bool, workerID *uuid.UUID, limitEndDate *time.Time) (TaskRequest, *Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var request TaskRequest
	var task *Task

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		current, err := scanRequest(tx.QueryRow(ctx, `
			SELECT `+requestColumns+` FROM task_requests WHERE id = $1 FOR UPDATE
		`, requestID))
		if err != nil {
			return err
		}

		newStatus := RequestRefused
		if approve {
			newStatus = RequestApproved
		}
		if !requestWorkflow.canTransition(current.Status, newStatus) {
			return ErrRequestProcessed
		}

		request, err = scanRequest(tx.QueryRow(ctx, `
			UPDATE task_requests SET status = $2, admin_id = $3 WHERE id = $1
			RETURNING `+requestColumns+`
		`, requestID, newStatus, adminID))
		if err != nil {
			return err
		}

		if !approve {
			return nil
		}

		created, err := scanTask(tx.QueryRow(ctx, `
			INSERT INTO tasks (id, task_request_id, name, status, street, number, neighborhood, city, state, zipcode,
				latitude, longitude, worker_id, admin_id, limit_end_date, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
			RETURNING `+taskColumns+`
		`, uuid.New(), request.ID, request.Name, TaskInProgress,
			request.Address.Street, request.Address.Number, request.Address.Neighborhood,
			request.Address.City, request.Address.State, request.Address.Zipcode,
			request.Latitude, request.Longitude, workerID, adminID, limitEndDate))
		if err != nil {
			return err
		}
		task = &created
		return nil
	})
	if err != nil {
		return TaskRequest{}, nil, err
	}
	return request, task, nil
}

// AdvanceTask aplica transição requisitada pelo operário designado.
// initial_date é gravada uma única vez, na primeira passagem por in_progress.
func (r *Repository) AdvanceTask(ctx context.Context, taskID, workerID uuid.UUID, newStatus string, today time.Time) (Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var task Task
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		current, err := scanTask(tx.QueryRow(ctx, `
			SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
		`, taskID))
		if err != nil {
			return err
		}

		if current.WorkerID == nil || *current.WorkerID != workerID {
			return ErrNotAssigned
		}
		if taskWorkflow.isTerminal(current.Status) {
			return ErrTaskFinished
		}
		if !taskWorkflow.canTransition(current.Status, newStatus) {
			return ErrTaskFinished
		}

		task, err = scanTask(tx.QueryRow(ctx, `
			UPDATE tasks
			SET status = $2,
			    initial_date = CASE WHEN $2 = $3 THEN COALESCE(initial_date, $4::date) ELSE initial_date END
			WHERE id = $1
			RETURNING `+taskColumns+`
		`, taskID, newStatus, TaskInProgress, today))
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// ResolveConclusion aprova ou recusa conclusão de tarefa em approval_requested,
// com o mesmo lock de linha da decisão de solicitações.
func (r *Repository) ResolveConclusion(ctx context.Context, taskID uuid.UUID, approve bool, today time.Time) (Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var task Task
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		current, err := scanTask(tx.QueryRow(ctx, `
			SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
		`, taskID))
		if err != nil {
			return err
		}

		if current.Status != TaskApprovalRequested {
			return ErrTaskNotAwaiting
		}

		if approve {
			task, err = scanTask(tx.QueryRow(ctx, `
				UPDATE tasks SET status = $2, conclusion_date = $3::date WHERE id = $1
				RETURNING `+taskColumns+`
			`, taskID, TaskApprovedConclusion, today))
			return err
		}

		task, err = scanTask(tx.QueryRow(ctx, `
			UPDATE tasks SET status = $2 WHERE id = $1
			RETURNING `+taskColumns+`
		`, taskID, TaskRefusedConclusion))
		return err
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

// ListRequestsWithTasksByCitizen lista solicitações do cidadão com a tarefa gerada.
func (r *Repository) ListRequestsWithTasksByCitizen(ctx context.Context, citizenID uuid.UUID) ([]RequestWithTask, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT tr.id, tr.name, tr.status, tr.street, tr.number, tr.neighborhood, tr.city, tr.state, tr.zipcode,
			COALESCE(tr.latitude, 0), COALESCE(tr.longitude, 0), tr.citizen_id, tr.admin_id, tr.created_at,
			t.id, t.task_request_id, t.name, t.status, t.street, t.number, t.neighborhood, t.city, t.state, t.zipcode,
			COALESCE(t.latitude, 0), COALESCE(t.longitude, 0), t.worker_id, t.admin_id,
			t.initial_date, t.limit_end_date, t.conclusion_date, t.created_at
		FROM task_requests tr
		LEFT JOIN tasks t ON t.task_request_id = tr.id
		WHERE tr.citizen_id = $1
		ORDER BY tr.created_at DESC
	`, citizenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RequestWithTask
	for rows.Next() {
		var item RequestWithTask
		var taskID, taskRequestID *uuid.UUID
		var taskName, taskStatus *string
		var street, number, neighborhood, city, state, zipcode *string
		var latitude, longitude *float64
		var workerID, adminID *uuid.UUID
		var initialDate, limitEndDate, conclusionDate, createdAt *time.Time

		if err := rows.Scan(
			&item.Request.ID, &item.Request.Name, &item.Request.Status,
			&item.Request.Address.Street, &item.Request.Address.Number, &item.Request.Address.Neighborhood,
			&item.Request.Address.City, &item.Request.Address.State, &item.Request.Address.Zipcode,
			&item.Request.Latitude, &item.Request.Longitude, &item.Request.CitizenID, &item.Request.AdminID, &item.Request.CreatedAt,
			&taskID, &taskRequestID, &taskName, &taskStatus,
			&street, &number, &neighborhood, &city, &state, &zipcode,
			&latitude, &longitude, &workerID, &adminID,
			&initialDate, &limitEndDate, &conclusionDate, &createdAt,
		); err != nil {
			return nil, err
		}

		if taskID != nil {
			item.Task = &Task{
				ID:            *taskID,
				TaskRequestID: *taskRequestID,
				Name:          *taskName,
				Status:        *taskStatus,
				Address: repo.Address{
					Street: *street, Number: *number, Neighborhood: *neighborhood,
					City: *city, State: *state, Zipcode: *zipcode,
				},
				Latitude:       *latitude,
				Longitude:      *longitude,
				WorkerID:       workerID,
				AdminID:        *adminID,
				InitialDate:    initialDate,
				LimitEndDate:   limitEndDate,
				ConclusionDate: conclusionDate,
				CreatedAt:      *createdAt,
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListTasksByWorker lista tarefas designadas ao operário.
func (r *Repository) ListTasksByWorker(ctx context.Context, workerID uuid.UUID) ([]Task, error) {
	return r.listTasks(ctx, `WHERE worker_id = $1`, workerID)
}

// ListTasksByStatus lista tarefas em um dos status informados.
func (r *Repository) ListTasksByStatus(ctx context.Context, statuses ...string) ([]Task, error) {
	return r.listTasks(ctx, `WHERE status = ANY($1)`, statuses)
}

// ListTasksWithoutWorker lista tarefas ainda sem operário designado.
func (r *Repository) ListTasksWithoutWorker(ctx context.Context) ([]Task, error) {
	return r.listTasks(ctx, `WHERE worker_id IS NULL`)
}

// ListTasksNotStarted lista tarefas designadas, em andamento, ainda sem data inicial.
func (r *Repository) ListTasksNotStarted(ctx context.Context) ([]Task, error) {
	return r.listTasks(ctx, `WHERE worker_id IS NOT NULL AND status = '`+TaskInProgress+`' AND initial_date IS NULL`)
}

func (r *Repository) listTasks(ctx context.Context, where string, args ...any) ([]Task, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListRequestsByStatus lista solicitações em um status.
func (r *Repository) ListRequestsByStatus(ctx context.Context, status string) ([]TaskRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+` FROM task_requests WHERE status = $1 ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []TaskRequest
	for rows.Next() {
		tr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, tr)
	}
	return requests, rows.Err()
}

// CountRequests conta todas as solicitações.
func (r *Repository) CountRequests(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM task_requests`).Scan(&total)
	return total, err
}

// CountTasksByStatus conta tarefas nos status informados.
func (r *Repository) CountTasksByStatus(ctx context.Context, statuses ...string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE status = ANY($1)`, statuses).Scan(&total)
	return total, err
}

// ListPendingRequestsWithCitizen lista solicitações pendentes com nome do solicitante.
func (r *Repository) ListPendingRequestsWithCitizen(ctx context.Context) ([]PendingRequestRow, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT tr.id, tr.name, tr.status, tr.street, tr.number, tr.neighborhood, tr.city, tr.state, tr.zipcode,
			COALESCE(tr.latitude, 0), COALESCE(tr.longitude, 0), tr.citizen_id, tr.admin_id, tr.created_at,
			u.name
		FROM task_requests tr
		JOIN users u ON u.id = tr.citizen_id
		WHERE tr.status = $1
		ORDER BY tr.created_at
	`, RequestPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PendingRequestRow
	for rows.Next() {
		var item PendingRequestRow
		if err := rows.Scan(
			&item.Request.ID, &item.Request.Name, &item.Request.Status,
			&item.Request.Address.Street, &item.Request.Address.Number, &item.Request.Address.Neighborhood,
			&item.Request.Address.City, &item.Request.Address.State, &item.Request.Address.Zipcode,
			&item.Request.Latitude, &item.Request.Longitude, &item.Request.CitizenID, &item.Request.AdminID, &item.Request.CreatedAt,
			&item.CitizenName,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListAwaitingTasksWithWorker lista tarefas aguardando aprovação com nome do operário.
func (r *Repository) ListAwaitingTasksWithWorker(ctx context.Context) ([]AwaitingTaskRow, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.task_request_id, t.name, t.status, t.street, t.number, t.neighborhood, t.city, t.state, t.zipcode,
			COALESCE(t.latitude, 0), COALESCE(t.longitude, 0), t.worker_id, t.admin_id,
			t.initial_date, t.limit_end_date, t.conclusion_date, t.created_at,
			w.name
		FROM tasks t
		LEFT JOIN users w ON w.id = t.worker_id
		WHERE t.status = $1
		ORDER BY t.created_at
	`, TaskApprovalRequested)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AwaitingTaskRow
	for rows.Next() {
		var item AwaitingTaskRow
		if err := rows.Scan(
			&item.Task.ID, &item.Task.TaskRequestID, &item.Task.Name, &item.Task.Status,
			&item.Task.Address.Street, &item.Task.Address.Number, &item.Task.Address.Neighborhood,
			&item.Task.Address.City, &item.Task.Address.State, &item.Task.Address.Zipcode,
			&item.Task.Latitude, &item.Task.Longitude, &item.Task.WorkerID, &item.Task.AdminID,
			&item.Task.InitialDate, &item.Task.LimitEndDate, &item.Task.ConclusionDate, &item.Task.CreatedAt,
			&item.WorkerName,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetRequestDetail resolve solicitação com cidadão, admin e tarefa gerada.
func (r *Repository) GetRequestDetail(ctx context.Context, id uuid.UUID) (RequestDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	request, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM task_requests WHERE id = $1`, id))
	if err != nil {
		return RequestDetail{}, err
	}

	detail := RequestDetail{Request: request}

	if err := r.db.QueryRow(ctx, `SELECT id, name, cpf FROM users WHERE id = $1`, request.CitizenID).
		Scan(&detail.Citizen.ID, &detail.Citizen.Name, &detail.Citizen.CPF); err != nil {
		return RequestDetail{}, err
	}

	if request.AdminID != nil {
		var admin PersonSummary
		if err := r.db.QueryRow(ctx, `SELECT id, name FROM users WHERE id = $1`, *request.AdminID).
			Scan(&admin.ID, &admin.Name); err != nil {
			return RequestDetail{}, err
		}
		detail.Admin = &admin
	}

	task, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_request_id = $1`, id))
	if err == nil {
		detail.Task = &task
	} else if !errors.Is(err, errNotFound) {
		return RequestDetail{}, err
	}

	return detail, nil
}

// GetTaskDetail resolve tarefa com operário, admin e solicitação de origem.
func (r *Repository) GetTaskDetail(ctx context.Context, id uuid.UUID) (TaskDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	task, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return TaskDetail{}, err
	}

	detail := TaskDetail{Task: task}

	if task.WorkerID != nil {
		var worker PersonSummary
		if err := r.db.QueryRow(ctx, `SELECT id, name, cpf FROM users WHERE id = $1`, *task.WorkerID).
			Scan(&worker.ID, &worker.Name, &worker.CPF); err != nil {
			return TaskDetail{}, err
		}
		detail.Worker = &worker
	}

	if err := r.db.QueryRow(ctx, `SELECT id, name FROM users WHERE id = $1`, task.AdminID).
		Scan(&detail.Admin.ID, &detail.Admin.Name); err != nil {
		return TaskDetail{}, err
	}

	if err := r.db.QueryRow(ctx, `
		SELECT tr.name, tr.citizen_id, u.name
		FROM task_requests tr
		JOIN users u ON u.id = tr.citizen_id
		WHERE tr.id = $1
	`, task.TaskRequestID).Scan(&detail.RequestName, &detail.CitizenID, &detail.CitizenName); err != nil {
		return TaskDetail{}, err
	}

	return detail, nil
}
