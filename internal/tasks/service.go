package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/cidadeativa/zeladoria/internal/repo"
	"github.com/cidadeativa/zeladoria/internal/service"
	"github.com/cidadeativa/zeladoria/internal/util"
)

var (
	// ErrInvalidAction indica action_type desconhecido.
	ErrInvalidAction = errors.New("ação inválida")
	// ErrInvalidStatus indica status fora do alcance do operário.
	ErrInvalidStatus = errors.New("status inválido")
	// ErrInvalidType indica tipo de item desconhecido.
	ErrInvalidType = errors.New("tipo inválido")
)

type repository interface {
	InsertRequest(ctx context.Context, citizenID uuid.UUID, name string, address repo.Address, latitude, longitude float64) (TaskRequest, error)
	DecideRequest(ctx context.Context, requestID, adminID uuid.UUID, approve bool, workerID *uuid.UUID, limitEndDate *time.Time) (TaskRequest, *Task, error)
	AdvanceTask(ctx context.Context, taskID, workerID uuid.UUID, newStatus string, today time.Time) (Task, error)
	ResolveConclusion(ctx context.Context, taskID uuid.UUID, approve bool, today time.Time) (Task, error)
	GetRequestDetail(ctx context.Context, id uuid.UUID) (RequestDetail, error)
	GetTaskDetail(ctx context.Context, id uuid.UUID) (TaskDetail, error)
	ListRequestsWithTasksByCitizen(ctx context.Context, citizenID uuid.UUID) ([]RequestWithTask, error)
	ListTasksByWorker(ctx context.Context, workerID uuid.UUID) ([]Task, error)
	ListTasksByStatus(ctx context.Context, statuses ...string) ([]Task, error)
	ListTasksWithoutWorker(ctx context.Context) ([]Task, error)
	ListTasksNotStarted(ctx context.Context) ([]Task, error)
	ListRequestsByStatus(ctx context.Context, status string) ([]TaskRequest, error)
	CountRequests(ctx context.Context) (int64, error)
	CountTasksByStatus(ctx context.Context, statuses ...string) (int64, error)
	ListPendingRequestsWithCitizen(ctx context.Context) ([]PendingRequestRow, error)
	ListAwaitingTasksWithWorker(ctx context.Context) ([]AwaitingTaskRow, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Service concentra o fluxo solicitação -> tarefa -> conclusão.
type Service struct {
	repo     repository
	redis    redisCommander
	cacheTTL time.Duration
}

// NewService cria novo serviço. redisClient pode ser nil para desligar o cache.
func NewService(r repository, redisClient redisCommander, cacheTTL time.Duration) *Service {
	return &Service{repo: r, redis: redisClient, cacheTTL: cacheTTL}
}

// Date serializa time.Time como data simples (YYYY-MM-DD).
type Date struct{ time.Time }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func newDate(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{*t}
}

// RequestPayload é a representação básica de uma solicitação.
type RequestPayload struct {
	ID        uuid.UUID    `json:"id"`
	Type      string       `json:"type"`
	Name      string       `json:"name"`
	Status    string       `json:"status"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Address   repo.Address `json:"address"`
}

// RequestDetailPayload acrescenta vínculos e tarefa gerada.
type RequestDetailPayload struct {
	RequestPayload
	Citizen   PersonSummary  `json:"citizen"`
	Admin     *PersonSummary `json:"admin"`
	CreatedAt time.Time      `json:"created_at"`
	Task      *TaskPayload   `json:"task"`
}

// TaskPayload é a representação básica de uma tarefa.
type TaskPayload struct {
	ID             uuid.UUID    `json:"id"`
	Type           string       `json:"type"`
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	InitialDate    *Date        `json:"initial_date"`
	LimitEndDate   *Date        `json:"limit_end_date"`
	ConclusionDate *Date        `json:"conclusion_date"`
	Address        repo.Address `json:"address"`
}

// TaskRequestRef referencia a solicitação de origem em detalhes de tarefa.
type TaskRequestRef struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CitizenName string    `json:"citizen_name"`
}

// TaskDetailPayload acrescenta vínculos à tarefa.
type TaskDetailPayload struct {
	TaskPayload
	Worker      *PersonSummary `json:"worker"`
	Admin       PersonSummary  `json:"admin"`
	TaskRequest TaskRequestRef `json:"task_request"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ApprovalResult é o retorno da aprovação de solicitação, com a tarefa criada.
type ApprovalResult struct {
	TaskRequest *RequestDetailPayload `json:"task_request"`
	Task        *TaskDetailPayload    `json:"task"`
}

// Pin é um ponto no mapa, de solicitação ou tarefa.
type Pin struct {
	ID        uuid.UUID    `json:"id"`
	Type      string       `json:"type"`
	Category  string       `json:"category,omitempty"`
	Name      string       `json:"name"`
	Status    string       `json:"status"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Address   repo.Address `json:"address"`
}

// MapPayload agrupa pins do mapa.
type MapPayload struct {
	Pins []Pin `json:"pins"`
}

// CreateRequestParams agrupa os campos de criação de solicitação.
type CreateRequestParams struct {
	Name      string
	Address   repo.Address
	Latitude  float64
	Longitude float64
}

// AdminActionParams agrupa a ação administrativa sobre solicitação ou tarefa.
type AdminActionParams struct {
	Action       string
	ID           uuid.UUID
	WorkerID     *uuid.UUID
	LimitEndDate *time.Time
}

func requestPayload(tr TaskRequest) RequestPayload {
	return RequestPayload{
		ID:        tr.ID,
		Type:      "task_request",
		Name:      tr.Name,
		Status:    tr.Status,
		Latitude:  tr.Latitude,
		Longitude: tr.Longitude,
		Address:   tr.Address,
	}
}

func taskPayload(t Task) TaskPayload {
	return TaskPayload{
		ID:             t.ID,
		Type:           "task",
		Name:           t.Name,
		Status:         t.Status,
		Latitude:       t.Latitude,
		Longitude:      t.Longitude,
		InitialDate:    newDate(t.InitialDate),
		LimitEndDate:   newDate(t.LimitEndDate),
		ConclusionDate: newDate(t.ConclusionDate),
		Address:        t.Address,
	}
}

func requestDetailPayload(d RequestDetail) *RequestDetailPayload {
	payload := &RequestDetailPayload{
		RequestPayload: requestPayload(d.Request),
		Citizen:        d.Citizen,
		Admin:          d.Admin,
		CreatedAt:      d.Request.CreatedAt,
	}
	if d.Task != nil {
		task := taskPayload(*d.Task)
		payload.Task = &task
	}
	return payload
}

func taskDetailPayload(d TaskDetail) *TaskDetailPayload {
	return &TaskDetailPayload{
		TaskPayload: taskPayload(d.Task),
		Worker:      d.Worker,
		Admin:       d.Admin,
		TaskRequest: TaskRequestRef{
			ID:          d.Task.TaskRequestID,
			Name:        d.RequestName,
			CitizenName: d.CitizenName,
		},
		CreatedAt: d.Task.CreatedAt,
	}
}

// CreateRequest cria solicitação pendente em nome do cidadão autenticado.
func (s *Service) CreateRequest(ctx context.Context, citizenID uuid.UUID, arg CreateRequestParams) (*RequestPayload, error) {
	var messages []string
	if err := util.RequireString(arg.Name, "name"); err != nil {
		messages = append(messages, err.Error())
	}
	messages = append(messages, service.ValidateAddress(arg.Address)...)
	if len(messages) > 0 {
		return nil, &service.ValidationError{Messages: messages}
	}

	created, err := s.repo.InsertRequest(ctx, citizenID, strings.TrimSpace(arg.Name), arg.Address, arg.Latitude, arg.Longitude)
	if err != nil {
		return nil, err
	}

	s.dropCaches(ctx, dashboardKey(repo.RoleCitizen, citizenID), dashboardKeyAdmin)

	payload := requestPayload(created)
	return &payload, nil
}

// AdminAction aplica decisão administrativa: aprovar/recusar solicitação
// ou aprovar/recusar conclusão de tarefa. Retorna o payload específico de
// cada ação.
func (s *Service) AdminAction(ctx context.Context, adminID uuid.UUID, arg AdminActionParams) (any, error) {
	switch arg.Action {
	case "approve_task_request":
		return s.approveRequest(ctx, adminID, arg)
	case "refuse_task_request":
		return s.refuseRequest(ctx, adminID, arg.ID)
	case "approve_task":
		return s.resolveConclusion(ctx, arg.ID, true)
	case "refuse_task":
		return s.resolveConclusion(ctx, arg.ID, false)
	default:
		return nil, ErrInvalidAction
	}
}

func (s *Service) approveRequest(ctx context.Context, adminID uuid.UUID, arg AdminActionParams) (*ApprovalResult, error) {
	_, task, err := s.repo.DecideRequest(ctx, arg.ID, adminID, true, arg.WorkerID, arg.LimitEndDate)
	if err != nil {
		return nil, err
	}

	requestDetail, err := s.repo.GetRequestDetail(ctx, arg.ID)
	if err != nil {
		return nil, err
	}
	taskDetail, err := s.repo.GetTaskDetail(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	keys := []string{dashboardKeyAdmin, dashboardKey(repo.RoleCitizen, requestDetail.Request.CitizenID)}
	if arg.WorkerID != nil {
		keys = append(keys, dashboardKey(repo.RoleWorker, *arg.WorkerID))
	}
	s.dropCaches(ctx, keys...)

	return &ApprovalResult{
		TaskRequest: requestDetailPayload(requestDetail),
		Task:        taskDetailPayload(taskDetail),
	}, nil
}

func (s *Service) refuseRequest(ctx context.Context, adminID, requestID uuid.UUID) (*RequestDetailPayload, error) {
	if _, _, err := s.repo.DecideRequest(ctx, requestID, adminID, false, nil, nil); err != nil {
		return nil, err
	}

	detail, err := s.repo.GetRequestDetail(ctx, requestID)
	if err != nil {
		return nil, err
	}

	s.dropCaches(ctx, dashboardKeyAdmin, dashboardKey(repo.RoleCitizen, detail.Request.CitizenID))
	return requestDetailPayload(detail), nil
}

func (s *Service) resolveConclusion(ctx context.Context, taskID uuid.UUID, approve bool) (*TaskDetailPayload, error) {
	task, err := s.repo.ResolveConclusion(ctx, taskID, approve, util.Today())
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.GetTaskDetail(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	keys := []string{dashboardKeyAdmin, dashboardKey(repo.RoleCitizen, detail.CitizenID)}
	if task.WorkerID != nil {
		keys = append(keys, dashboardKey(repo.RoleWorker, *task.WorkerID))
	}
	s.dropCaches(ctx, keys...)

	return taskDetailPayload(detail), nil
}

// AdvanceTask aplica transição de status pedida pelo operário designado.
func (s *Service) AdvanceTask(ctx context.Context, workerID, taskID uuid.UUID, newStatus string) (*TaskDetailPayload, error) {
	if !workerTaskStatuses[newStatus] {
		return nil, ErrInvalidStatus
	}

	if _, err := s.repo.AdvanceTask(ctx, taskID, workerID, newStatus, util.Today()); err != nil {
		return nil, err
	}

	detail, err := s.repo.GetTaskDetail(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// O painel do cidadão embute initial_date da tarefa gerada, então a
	// transição também invalida o cache dele.
	s.dropCaches(ctx,
		dashboardKey(repo.RoleWorker, workerID),
		dashboardKey(repo.RoleCitizen, detail.CitizenID),
		dashboardKeyAdmin)
	return taskDetailPayload(detail), nil
}

// Get devolve detalhes de solicitação ou tarefa, conforme o tipo.
func (s *Service) Get(ctx context.Context, itemType string, id uuid.UUID) (any, error) {
	switch itemType {
	case "task_request":
		detail, err := s.repo.GetRequestDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		return requestDetailPayload(detail), nil
	case "task":
		detail, err := s.repo.GetTaskDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		return taskDetailPayload(detail), nil
	default:
		return nil, ErrInvalidType
	}
}

const dashboardKeyAdmin = "dashboard:admin"

func dashboardKey(role repo.Role, userID uuid.UUID) string {
	if role == repo.RoleAdmin {
		return dashboardKeyAdmin
	}
	return fmt.Sprintf("dashboard:%s:%s", role, userID)
}

// Dashboard monta o painel do papel, com cache curto em Redis.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID, role repo.Role) (json.RawMessage, error) {
	key := dashboardKey(role, userID)
	if s.redis != nil && s.cacheTTL > 0 {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			return cached, nil
		} else if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("dashboard: leitura do cache falhou")
		}
	}

	var payload any
	var err error
	switch role {
	case repo.RoleCitizen:
		payload, err = s.citizenDashboard(ctx, userID)
	case repo.RoleWorker:
		payload, err = s.workerDashboard(ctx, userID)
	case repo.RoleAdmin:
		payload, err = s.adminDashboard(ctx)
	default:
		return nil, fmt.Errorf("papel desconhecido: %s", role)
	}
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	if s.redis != nil && s.cacheTTL > 0 {
		if err := s.redis.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("dashboard: escrita do cache falhou")
		}
	}
	return raw, nil
}

// CitizenDashboard resume as solicitações do cidadão.
type CitizenDashboard struct {
	TotalTaskRequests int                   `json:"total_task_requests"`
	TotalApproved     int                   `json:"total_approved"`
	ApprovedList      []ApprovedRequestItem `json:"approved_list"`
}

// ApprovedRequestItem é uma solicitação aprovada com as datas da tarefa gerada.
type ApprovedRequestItem struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	InitialDate *Date        `json:"initial_date"`
	EndDate     *Date        `json:"end_date"`
	Address     repo.Address `json:"address"`
}

func (s *Service) citizenDashboard(ctx context.Context, citizenID uuid.UUID) (*CitizenDashboard, error) {
	items, err := s.repo.ListRequestsWithTasksByCitizen(ctx, citizenID)
	if err != nil {
		return nil, err
	}

	dashboard := &CitizenDashboard{
		TotalTaskRequests: len(items),
		ApprovedList:      []ApprovedRequestItem{},
	}
	for _, item := range items {
		if item.Request.Status != RequestApproved {
			continue
		}
		dashboard.TotalApproved++
		entry := ApprovedRequestItem{
			ID:      item.Request.ID,
			Name:    item.Request.Name,
			Status:  item.Request.Status,
			Address: item.Request.Address,
		}
		if item.Task != nil {
			entry.InitialDate = newDate(item.Task.InitialDate)
			entry.EndDate = newDate(item.Task.LimitEndDate)
		}
		dashboard.ApprovedList = append(dashboard.ApprovedList, entry)
	}
	return dashboard, nil
}

// WorkerDashboard resume as tarefas designadas ao operário.
type WorkerDashboard struct {
	TotalApprovalRequested  int            `json:"total_approval_requested"`
	TotalApprovedConclusion int            `json:"total_approved_conclusion"`
	TotalInProgress         int            `json:"total_in_progress"`
	AttachedTasks           []AttachedTask `json:"attached_tasks"`
}

// AttachedTask é uma tarefa ativa do operário com endereço resumido.
type AttachedTask struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	Local        string       `json:"local"`
	LimitEndDate *Date        `json:"limit_end_date"`
	Address      repo.Address `json:"address"`
}

func localString(a repo.Address) string {
	return fmt.Sprintf("%s, %s - %s, %s - %s", a.Street, a.Number, a.Neighborhood, a.City, a.State)
}

func (s *Service) workerDashboard(ctx context.Context, workerID uuid.UUID) (*WorkerDashboard, error) {
	tasks, err := s.repo.ListTasksByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	dashboard := &WorkerDashboard{AttachedTasks: []AttachedTask{}}
	for _, t := range tasks {
		started := t.Status == TaskInProgress && t.InitialDate != nil
		switch {
		case t.Status == TaskApprovalRequested:
			dashboard.TotalApprovalRequested++
		case t.Status == TaskApprovedConclusion:
			dashboard.TotalApprovedConclusion++
		case started:
			dashboard.TotalInProgress++
		}

		// Tarefas nunca iniciadas e recusadas ficam de fora da lista ativa.
		if !started && t.Status != TaskApprovalRequested && t.Status != TaskApprovedConclusion {
			continue
		}
		dashboard.AttachedTasks = append(dashboard.AttachedTasks, AttachedTask{
			ID:           t.ID,
			Name:         t.Name,
			Status:       t.Status,
			Local:        localString(t.Address),
			LimitEndDate: newDate(t.LimitEndDate),
			Address:      t.Address,
		})
	}
	return dashboard, nil
}

// AdminDashboard resume o estado global das filas de aprovação.
type AdminDashboard struct {
	TotalTaskRequests   int64                `json:"total_task_requests"`
	TotalValidatedTasks int64                `json:"total_validated_tasks"`
	PendingTaskRequests []PendingRequestItem `json:"pending_task_requests"`
	PendingTasks        []PendingTaskItem    `json:"pending_tasks"`
}

// PendingRequestItem é uma solicitação aguardando decisão.
type PendingRequestItem struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	CitizenName string       `json:"citizen_name"`
	CreatedAt   time.Time    `json:"created_at"`
	Address     repo.Address `json:"address"`
}

// PendingTaskItem é uma tarefa aguardando aprovação de conclusão.
type PendingTaskItem struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	WorkerName   *string      `json:"worker_name"`
	LimitEndDate *Date        `json:"limit_end_date"`
	Address      repo.Address `json:"address"`
}

func (s *Service) adminDashboard(ctx context.Context) (*AdminDashboard, error) {
	totalRequests, err := s.repo.CountRequests(ctx)
	if err != nil {
		return nil, err
	}
	validated, err := s.repo.CountTasksByStatus(ctx, TaskApprovedConclusion, TaskRefusedConclusion)
	if err != nil {
		return nil, err
	}
	pendingRequests, err := s.repo.ListPendingRequestsWithCitizen(ctx)
	if err != nil {
		return nil, err
	}
	awaitingTasks, err := s.repo.ListAwaitingTasksWithWorker(ctx)
	if err != nil {
		return nil, err
	}

	dashboard := &AdminDashboard{
		TotalTaskRequests:   totalRequests,
		TotalValidatedTasks: validated,
		PendingTaskRequests: []PendingRequestItem{},
		PendingTasks:        []PendingTaskItem{},
	}
	for _, row := range pendingRequests {
		dashboard.PendingTaskRequests = append(dashboard.PendingTaskRequests, PendingRequestItem{
			ID:          row.Request.ID,
			Name:        row.Request.Name,
			Status:      row.Request.Status,
			CitizenName: row.CitizenName,
			CreatedAt:   row.Request.CreatedAt,
			Address:     row.Request.Address,
		})
	}
	for _, row := range awaitingTasks {
		dashboard.PendingTasks = append(dashboard.PendingTasks, PendingTaskItem{
			ID:           row.Task.ID,
			Name:         row.Task.Name,
			Status:       row.Task.Status,
			WorkerName:   row.WorkerName,
			LimitEndDate: newDate(row.Task.LimitEndDate),
			Address:      row.Task.Address,
		})
	}
	return dashboard, nil
}

// MapPins monta os pontos do mapa conforme o papel. Para admins, filter
// seleciona categorias; a ausência do parâmetro liga as categorias padrão,
// enquanto um filtro presente (mesmo vazio) liga apenas o que nomeia.
func (s *Service) MapPins(ctx context.Context, userID uuid.UUID, role repo.Role, filter []string, filterPresent bool) (*MapPayload, error) {
	switch role {
	case repo.RoleCitizen:
		return s.citizenPins(ctx, userID)
	case repo.RoleWorker:
		return s.workerPins(ctx, userID)
	case repo.RoleAdmin:
		return s.adminPins(ctx, filter, filterPresent)
	default:
		return nil, fmt.Errorf("papel desconhecido: %s", role)
	}
}

func requestPin(tr TaskRequest, category string) Pin {
	return Pin{
		ID:        tr.ID,
		Type:      "task_request",
		Category:  category,
		Name:      tr.Name,
		Status:    tr.Status,
		Latitude:  tr.Latitude,
		Longitude: tr.Longitude,
		Address:   tr.Address,
	}
}

func taskPin(t Task, category string) Pin {
	return Pin{
		ID:        t.ID,
		Type:      "task",
		Category:  category,
		Name:      t.Name,
		Status:    t.Status,
		Latitude:  t.Latitude,
		Longitude: t.Longitude,
		Address:   t.Address,
	}
}

func (s *Service) citizenPins(ctx context.Context, citizenID uuid.UUID) (*MapPayload, error) {
	items, err := s.repo.ListRequestsWithTasksByCitizen(ctx, citizenID)
	if err != nil {
		return nil, err
	}

	pins := []Pin{}
	for _, item := range items {
		pins = append(pins, requestPin(item.Request, ""))
		if item.Task != nil {
			pins = append(pins, taskPin(*item.Task, ""))
		}
	}
	return &MapPayload{Pins: pins}, nil
}

func (s *Service) workerPins(ctx context.Context, workerID uuid.UUID) (*MapPayload, error) {
	tasks, err := s.repo.ListTasksByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	pins := []Pin{}
	for _, t := range tasks {
		pins = append(pins, taskPin(t, ""))
	}
	return &MapPayload{Pins: pins}, nil
}

func (s *Service) adminPins(ctx context.Context, filter []string, filterPresent bool) (*MapPayload, error) {
	include := func(category string) bool {
		if !filterPresent {
			// Sem filtro, tudo menos as concluídas.
			return category != "tasks_concluded"
		}
		for _, f := range filter {
			if f == category {
				return true
			}
		}
		return false
	}

	pins := []Pin{}

	if include("pending_task_requests") {
		requests, err := s.repo.ListRequestsByStatus(ctx, RequestPending)
		if err != nil {
			return nil, err
		}
		for _, tr := range requests {
			pins = append(pins, requestPin(tr, "pending_task_requests"))
		}
	}

	if include("tasks_without_worker") {
		tasks, err := s.repo.ListTasksWithoutWorker(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			pins = append(pins, taskPin(t, "tasks_without_worker"))
		}
	}

	if include("tasks_not_started") {
		tasks, err := s.repo.ListTasksNotStarted(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			pins = append(pins, taskPin(t, "tasks_not_started"))
		}
	}

	if include("tasks_pending_approval") {
		tasks, err := s.repo.ListTasksByStatus(ctx, TaskApprovalRequested)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			pins = append(pins, taskPin(t, "tasks_pending_approval"))
		}
	}

	if include("tasks_refused") {
		tasks, err := s.repo.ListTasksByStatus(ctx, TaskRefusedConclusion)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			pins = append(pins, taskPin(t, "tasks_refused"))
		}
	}

	if include("tasks_concluded") {
		tasks, err := s.repo.ListTasksByStatus(ctx, TaskApprovedConclusion)
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			pins = append(pins, taskPin(t, "tasks_concluded"))
		}
	}

	return &MapPayload{Pins: pins}, nil
}

func (s *Service) dropCaches(ctx context.Context, keys ...string) {
	if s.redis == nil || len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("dashboard: invalidação do cache falhou")
	}
}
