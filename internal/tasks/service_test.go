package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cidadeativa/zeladoria/internal/repo"
	"github.com/cidadeativa/zeladoria/internal/service"
)

type stubRepo struct {
	requests map[uuid.UUID]*TaskRequest
	tasks    map[uuid.UUID]*Task
	names    map[uuid.UUID]string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		requests: map[uuid.UUID]*TaskRequest{},
		tasks:    map[uuid.UUID]*Task{},
		names:    map[uuid.UUID]string{},
	}
}

func (s *stubRepo) InsertRequest(ctx context.Context, citizenID uuid.UUID, name string, address repo.Address, latitude, longitude float64) (TaskRequest, error) {
	tr := TaskRequest{
		ID:        uuid.New(),
		Name:      name,
		Status:    RequestPending,
		Address:   address,
		Latitude:  latitude,
		Longitude: longitude,
		CitizenID: citizenID,
		CreatedAt: time.Now(),
	}
	s.requests[tr.ID] = &tr
	return tr, nil
}

func (s *stubRepo) DecideRequest(ctx context.Context, requestID, adminID uuid.UUID, approve bool, workerID *uuid.UUID, limitEndDate *time.Time) (TaskRequest, *Task, error) {
	tr, ok := s.requests[requestID]
	if !ok {
		return TaskRequest{}, nil, errNotFound
	}

	newStatus := RequestRefused
	if approve {
		newStatus = RequestApproved
	}
	if !requestWorkflow.canTransition(tr.Status, newStatus) {
		return TaskRequest{}, nil, ErrRequestProcessed
	}

	tr.Status = newStatus
	tr.AdminID = &adminID
	if !approve {
		return *tr, nil, nil
	}

	task := Task{
		ID:            uuid.New(),
		TaskRequestID: tr.ID,
		Name:          tr.Name,
		Status:        TaskInProgress,
		Address:       tr.Address,
		Latitude:      tr.Latitude,
		Longitude:     tr.Longitude,
		WorkerID:      workerID,
		AdminID:       adminID,
		LimitEndDate:  limitEndDate,
		CreatedAt:     time.Now(),
	}
	s.tasks[task.ID] = &task
	return *tr, &task, nil
}

func (s *stubRepo) AdvanceTask(ctx context.Context, taskID, workerID uuid.UUID, newStatus string, today time.Time) (Task, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return Task{}, errNotFound
	}
	if task.WorkerID == nil || *task.WorkerID != workerID {
		return Task{}, ErrNotAssigned
	}
	if taskWorkflow.isTerminal(task.Status) || !taskWorkflow.canTransition(task.Status, newStatus) {
		return Task{}, ErrTaskFinished
	}
	task.Status = newStatus
	if newStatus == TaskInProgress && task.InitialDate == nil {
		d := today
		task.InitialDate = &d
	}
	return *task, nil
}

func (s *stubRepo) ResolveConclusion(ctx context.Context, taskID uuid.UUID, approve bool, today time.Time) (Task, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return Task{}, errNotFound
	}
	if task.Status != TaskApprovalRequested {
		return Task{}, ErrTaskNotAwaiting
	}
	if approve {
		task.Status = TaskApprovedConclusion
		d := today
		task.ConclusionDate = &d
	} else {
		task.Status = TaskRefusedConclusion
	}
	return *task, nil
}

func (s *stubRepo) GetRequestDetail(ctx context.Context, id uuid.UUID) (RequestDetail, error) {
	tr, ok := s.requests[id]
	if !ok {
		return RequestDetail{}, errNotFound
	}
	detail := RequestDetail{
		Request: *tr,
		Citizen: PersonSummary{ID: tr.CitizenID, Name: s.names[tr.CitizenID], CPF: "11144477735"},
	}
	if tr.AdminID != nil {
		detail.Admin = &PersonSummary{ID: *tr.AdminID, Name: s.names[*tr.AdminID]}
	}
	for _, task := range s.tasks {
		if task.TaskRequestID == id {
			t := *task
			detail.Task = &t
			break
		}
	}
	return detail, nil
}

func (s *stubRepo) GetTaskDetail(ctx context.Context, id uuid.UUID) (TaskDetail, error) {
	task, ok := s.tasks[id]
	if !ok {
		return TaskDetail{}, errNotFound
	}
	tr := s.requests[task.TaskRequestID]
	detail := TaskDetail{
		Task:        *task,
		Admin:       PersonSummary{ID: task.AdminID, Name: s.names[task.AdminID]},
		RequestName: tr.Name,
		CitizenID:   tr.CitizenID,
		CitizenName: s.names[tr.CitizenID],
	}
	if task.WorkerID != nil {
		detail.Worker = &PersonSummary{ID: *task.WorkerID, Name: s.names[*task.WorkerID], CPF: "52998224725"}
	}
	return detail, nil
}

func (s *stubRepo) ListRequestsWithTasksByCitizen(ctx context.Context, citizenID uuid.UUID) ([]RequestWithTask, error) {
	var items []RequestWithTask
	for _, tr := range s.requests {
		if tr.CitizenID != citizenID {
			continue
		}
		item := RequestWithTask{Request: *tr}
		for _, task := range s.tasks {
			if task.TaskRequestID == tr.ID {
				t := *task
				item.Task = &t
				break
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *stubRepo) ListTasksByWorker(ctx context.Context, workerID uuid.UUID) ([]Task, error) {
	var tasks []Task
	for _, task := range s.tasks {
		if task.WorkerID != nil && *task.WorkerID == workerID {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (s *stubRepo) ListTasksByStatus(ctx context.Context, statuses ...string) ([]Task, error) {
	var tasks []Task
	for _, task := range s.tasks {
		for _, status := range statuses {
			if task.Status == status {
				tasks = append(tasks, *task)
				break
			}
		}
	}
	return tasks, nil
}

func (s *stubRepo) ListTasksWithoutWorker(ctx context.Context) ([]Task, error) {
	var tasks []Task
	for _, task := range s.tasks {
		if task.WorkerID == nil {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (s *stubRepo) ListTasksNotStarted(ctx context.Context) ([]Task, error) {
	var tasks []Task
	for _, task := range s.tasks {
		if task.WorkerID != nil && task.Status == TaskInProgress && task.InitialDate == nil {
			tasks = append(tasks, *task)
		}
	}
	return tasks, nil
}

func (s *stubRepo) ListRequestsByStatus(ctx context.Context, status string) ([]TaskRequest, error) {
	var requests []TaskRequest
	for _, tr := range s.requests {
		if tr.Status == status {
			requests = append(requests, *tr)
		}
	}
	return requests, nil
}

func (s *stubRepo) CountRequests(ctx context.Context) (int64, error) {
	return int64(len(s.requests)), nil
}

func (s *stubRepo) CountTasksByStatus(ctx context.Context, statuses ...string) (int64, error) {
	tasks, _ := s.ListTasksByStatus(ctx, statuses...)
	return int64(len(tasks)), nil
}

func (s *stubRepo) ListPendingRequestsWithCitizen(ctx context.Context) ([]PendingRequestRow, error) {
	var rows []PendingRequestRow
	for _, tr := range s.requests {
		if tr.Status == RequestPending {
			rows = append(rows, PendingRequestRow{Request: *tr, CitizenName: s.names[tr.CitizenID]})
		}
	}
	return rows, nil
}

func (s *stubRepo) ListAwaitingTasksWithWorker(ctx context.Context) ([]AwaitingTaskRow, error) {
	var rows []AwaitingTaskRow
	for _, task := range s.tasks {
		if task.Status == TaskApprovalRequested {
			row := AwaitingTaskRow{Task: *task}
			if task.WorkerID != nil {
				name := s.names[*task.WorkerID]
				row.WorkerName = &name
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

var testAddress = repo.Address{
	Street:       "Rua das Flores",
	Number:       "120",
	Neighborhood: "Centro",
	City:         "Zabelê",
	State:        "PB",
	Zipcode:      "58515000",
}

func seedRequest(t *testing.T, svc *Service, citizenID uuid.UUID) *RequestPayload {
	t.Helper()
	created, err := svc.CreateRequest(context.Background(), citizenID, CreateRequestParams{
		Name:      "Tapa-buraco",
		Address:   testAddress,
		Latitude:  -8.07,
		Longitude: -34.88,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return created
}

func TestCreateRequestValidation(t *testing.T) {
	svc := NewService(newStubRepo(), nil, 0)

	_, err := svc.CreateRequest(context.Background(), uuid.New(), CreateRequestParams{})
	var validation *service.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("esperado ValidationError, obtido %v", err)
	}
	// name + seis campos de endereço
	if len(validation.Messages) != 7 {
		t.Fatalf("esperadas 7 mensagens, obtidas %d: %v", len(validation.Messages), validation.Messages)
	}
}

func TestApproveRequestCreatesSingleTask(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()
	stub.names[citizenID] = "Cidadã"
	stub.names[adminID] = "Admin"
	stub.names[workerID] = "Operário"

	created := seedRequest(t, svc, citizenID)

	result, err := svc.AdminAction(context.Background(), adminID, AdminActionParams{
		Action:   "approve_task_request",
		ID:       created.ID,
		WorkerID: &workerID,
	})
	if err != nil {
		t.Fatalf("AdminAction: %v", err)
	}

	approval, ok := result.(*ApprovalResult)
	if !ok {
		t.Fatalf("esperado *ApprovalResult, obtido %T", result)
	}
	if approval.TaskRequest.Status != RequestApproved {
		t.Errorf("status da solicitação = %s", approval.TaskRequest.Status)
	}
	if approval.Task.Status != TaskInProgress {
		t.Errorf("status da tarefa = %s", approval.Task.Status)
	}
	if approval.Task.Address != testAddress {
		t.Errorf("endereço não copiado: %+v", approval.Task.Address)
	}
	if approval.Task.Latitude != -8.07 || approval.Task.Longitude != -34.88 {
		t.Error("coordenadas não copiadas")
	}

	// Segunda decisão sobre a mesma solicitação conflita e não cria outra tarefa.
	_, err = svc.AdminAction(context.Background(), adminID, AdminActionParams{
		Action: "approve_task_request",
		ID:     created.ID,
	})
	if !errors.Is(err, ErrRequestProcessed) {
		t.Fatalf("esperado ErrRequestProcessed, obtido %v", err)
	}
	if len(stub.tasks) != 1 {
		t.Fatalf("esperada exatamente 1 tarefa, obtidas %d", len(stub.tasks))
	}
}

func TestRefuseRequestCreatesNoTask(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID := uuid.New(), uuid.New()

	created := seedRequest(t, svc, citizenID)

	result, err := svc.AdminAction(context.Background(), adminID, AdminActionParams{
		Action: "refuse_task_request",
		ID:     created.ID,
	})
	if err != nil {
		t.Fatalf("AdminAction: %v", err)
	}

	detail, ok := result.(*RequestDetailPayload)
	if !ok {
		t.Fatalf("esperado *RequestDetailPayload, obtido %T", result)
	}
	if detail.Status != RequestRefused {
		t.Errorf("status = %s", detail.Status)
	}
	if detail.Task != nil {
		t.Error("recusa não deveria gerar tarefa")
	}
	if len(stub.tasks) != 0 {
		t.Fatalf("esperadas 0 tarefas, obtidas %d", len(stub.tasks))
	}
}

func TestAdminActionInvalid(t *testing.T) {
	svc := NewService(newStubRepo(), nil, 0)

	_, err := svc.AdminAction(context.Background(), uuid.New(), AdminActionParams{
		Action: "reassign_worker",
		ID:     uuid.New(),
	})
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("esperado ErrInvalidAction, obtido %v", err)
	}
}

func approveToTask(t *testing.T, stub *stubRepo, svc *Service, citizenID, adminID uuid.UUID, workerID *uuid.UUID) uuid.UUID {
	t.Helper()
	created := seedRequest(t, svc, citizenID)
	result, err := svc.AdminAction(context.Background(), adminID, AdminActionParams{
		Action:   "approve_task_request",
		ID:       created.ID,
		WorkerID: workerID,
	})
	if err != nil {
		t.Fatalf("AdminAction: %v", err)
	}
	return result.(*ApprovalResult).Task.ID
}

func TestAdvanceTaskSetsInitialDateOnce(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	taskID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)

	detail, err := svc.AdvanceTask(context.Background(), workerID, taskID, TaskInProgress)
	if err != nil {
		t.Fatalf("AdvanceTask: %v", err)
	}
	if detail.InitialDate == nil {
		t.Fatal("initial_date deveria ter sido gravada")
	}
	first := *stub.tasks[taskID].InitialDate

	// Reentrar em in_progress depois não sobrescreve a data.
	if _, err := svc.AdvanceTask(context.Background(), workerID, taskID, TaskApprovalRequested); err != nil {
		t.Fatalf("AdvanceTask: %v", err)
	}
	if _, err := svc.AdvanceTask(context.Background(), workerID, taskID, TaskInProgress); err != nil {
		t.Fatalf("AdvanceTask: %v", err)
	}
	if !stub.tasks[taskID].InitialDate.Equal(first) {
		t.Error("initial_date foi sobrescrita")
	}
}

func TestAdvanceTaskGuards(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	taskID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)

	if _, err := svc.AdvanceTask(context.Background(), workerID, taskID, TaskApprovedConclusion); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("auto-aprovação deveria falhar com ErrInvalidStatus, obtido %v", err)
	}
	if _, err := svc.AdvanceTask(context.Background(), uuid.New(), taskID, TaskInProgress); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("operário não designado deveria falhar com ErrNotAssigned, obtido %v", err)
	}

	// Tarefa sem operário: ninguém avança.
	unassignedID := approveToTask(t, stub, svc, citizenID, adminID, nil)
	if _, err := svc.AdvanceTask(context.Background(), workerID, unassignedID, TaskInProgress); !errors.Is(err, ErrNotAssigned) {
		t.Errorf("tarefa sem designado deveria falhar com ErrNotAssigned, obtido %v", err)
	}

	// Estado terminal não aceita transição.
	stub.tasks[taskID].Status = TaskApprovedConclusion
	if _, err := svc.AdvanceTask(context.Background(), workerID, taskID, TaskInProgress); !errors.Is(err, ErrTaskFinished) {
		t.Errorf("tarefa concluída deveria falhar com ErrTaskFinished, obtido %v", err)
	}
}

func TestResolveConclusion(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	taskID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)

	// Ainda em in_progress: conflito.
	_, err := svc.AdminAction(context.Background(), adminID, AdminActionParams{Action: "approve_task", ID: taskID})
	if !errors.Is(err, ErrTaskNotAwaiting) {
		t.Fatalf("esperado ErrTaskNotAwaiting, obtido %v", err)
	}

	stub.tasks[taskID].Status = TaskApprovalRequested

	result, err := svc.AdminAction(context.Background(), adminID, AdminActionParams{Action: "approve_task", ID: taskID})
	if err != nil {
		t.Fatalf("AdminAction: %v", err)
	}
	detail := result.(*TaskDetailPayload)
	if detail.Status != TaskApprovedConclusion {
		t.Errorf("status = %s", detail.Status)
	}
	if detail.ConclusionDate == nil {
		t.Error("conclusion_date deveria ter sido gravada")
	}

	// Recusa de conclusão não grava data.
	refusedID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[refusedID].Status = TaskApprovalRequested
	result, err = svc.AdminAction(context.Background(), adminID, AdminActionParams{Action: "refuse_task", ID: refusedID})
	if err != nil {
		t.Fatalf("AdminAction: %v", err)
	}
	detail = result.(*TaskDetailPayload)
	if detail.Status != TaskRefusedConclusion {
		t.Errorf("status = %s", detail.Status)
	}
	if detail.ConclusionDate != nil {
		t.Error("recusa não grava conclusion_date")
	}
}

func TestCitizenDashboard(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID := uuid.New(), uuid.New()

	seedRequest(t, svc, citizenID)
	approveToTask(t, stub, svc, citizenID, adminID, nil)

	dashboard, err := svc.citizenDashboard(context.Background(), citizenID)
	if err != nil {
		t.Fatalf("citizenDashboard: %v", err)
	}
	if dashboard.TotalTaskRequests != 2 {
		t.Errorf("total_task_requests = %d", dashboard.TotalTaskRequests)
	}
	if dashboard.TotalApproved != 1 {
		t.Errorf("total_approved = %d", dashboard.TotalApproved)
	}
	if len(dashboard.ApprovedList) != dashboard.TotalApproved {
		t.Errorf("approved_list com %d itens para total %d", len(dashboard.ApprovedList), dashboard.TotalApproved)
	}
}

func TestWorkerDashboardStartedSemantics(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	// Designada mas nunca iniciada: fora da contagem e da lista.
	approveToTask(t, stub, svc, citizenID, adminID, &workerID)

	startedID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	if _, err := svc.AdvanceTask(context.Background(), workerID, startedID, TaskInProgress); err != nil {
		t.Fatalf("AdvanceTask: %v", err)
	}

	awaitingID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[awaitingID].Status = TaskApprovalRequested

	dashboard, err := svc.workerDashboard(context.Background(), workerID)
	if err != nil {
		t.Fatalf("workerDashboard: %v", err)
	}
	if dashboard.TotalInProgress != 1 {
		t.Errorf("total_in_progress = %d", dashboard.TotalInProgress)
	}
	if dashboard.TotalApprovalRequested != 1 {
		t.Errorf("total_approval_requested = %d", dashboard.TotalApprovalRequested)
	}
	if len(dashboard.AttachedTasks) != 2 {
		t.Errorf("attached_tasks = %d", len(dashboard.AttachedTasks))
	}

	want := "Rua das Flores, 120 - Centro, Zabelê - PB"
	if dashboard.AttachedTasks[0].Local != want {
		t.Errorf("local = %q, quero %q", dashboard.AttachedTasks[0].Local, want)
	}
}

func TestAdminDashboard(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()
	stub.names[citizenID] = "Cidadã"
	stub.names[workerID] = "Operário"

	seedRequest(t, svc, citizenID)
	awaitingID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[awaitingID].Status = TaskApprovalRequested
	concludedID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[concludedID].Status = TaskApprovedConclusion

	dashboard, err := svc.adminDashboard(context.Background())
	if err != nil {
		t.Fatalf("adminDashboard: %v", err)
	}
	if dashboard.TotalTaskRequests != 3 {
		t.Errorf("total_task_requests = %d", dashboard.TotalTaskRequests)
	}
	if dashboard.TotalValidatedTasks != 1 {
		t.Errorf("total_validated_tasks = %d", dashboard.TotalValidatedTasks)
	}
	if len(dashboard.PendingTaskRequests) != 1 {
		t.Errorf("pending_task_requests = %d", len(dashboard.PendingTaskRequests))
	}
	if len(dashboard.PendingTasks) != 1 {
		t.Errorf("pending_tasks = %d", len(dashboard.PendingTasks))
	}
	if dashboard.PendingTaskRequests[0].CitizenName != "Cidadã" {
		t.Errorf("citizen_name = %s", dashboard.PendingTaskRequests[0].CitizenName)
	}
	if dashboard.PendingTasks[0].WorkerName == nil || *dashboard.PendingTasks[0].WorkerName != "Operário" {
		t.Error("worker_name ausente no pending_tasks")
	}
}

func TestMapPinsAdminFilter(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	seedRequest(t, svc, citizenID)                             // pending_task_requests
	approveToTask(t, stub, svc, citizenID, adminID, nil)       // tasks_without_worker
	approveToTask(t, stub, svc, citizenID, adminID, &workerID) // tasks_not_started
	awaitingID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[awaitingID].Status = TaskApprovalRequested // tasks_pending_approval
	refusedID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[refusedID].Status = TaskRefusedConclusion // tasks_refused
	concludedID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[concludedID].Status = TaskApprovedConclusion // tasks_concluded

	// Filtro ausente: categorias padrão, sem as concluídas.
	payload, err := svc.MapPins(context.Background(), adminID, repo.RoleAdmin, nil, false)
	if err != nil {
		t.Fatalf("MapPins: %v", err)
	}
	categories := map[string]int{}
	for _, pin := range payload.Pins {
		categories[pin.Category]++
	}
	if categories["tasks_concluded"] != 0 {
		t.Error("concluídas não entram sem filtro explícito")
	}
	for _, category := range []string{"pending_task_requests", "tasks_without_worker", "tasks_not_started", "tasks_pending_approval", "tasks_refused"} {
		if categories[category] == 0 {
			t.Errorf("categoria padrão %s ausente", category)
		}
	}

	// Filtro presente porém vazio: nenhum pin.
	payload, err = svc.MapPins(context.Background(), adminID, repo.RoleAdmin, []string{}, true)
	if err != nil {
		t.Fatalf("MapPins: %v", err)
	}
	if len(payload.Pins) != 0 {
		t.Errorf("filtro vazio deveria render 0 pins, obtidos %d", len(payload.Pins))
	}

	// Filtro nomeando só as concluídas.
	payload, err = svc.MapPins(context.Background(), adminID, repo.RoleAdmin, []string{"tasks_concluded"}, true)
	if err != nil {
		t.Fatalf("MapPins: %v", err)
	}
	if len(payload.Pins) != 1 || payload.Pins[0].Category != "tasks_concluded" {
		t.Errorf("esperado 1 pin concluído, obtido %+v", payload.Pins)
	}
}

func TestMapPinsCitizenAndWorker(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	seedRequest(t, svc, citizenID)
	approveToTask(t, stub, svc, citizenID, adminID, &workerID)

	payload, err := svc.MapPins(context.Background(), citizenID, repo.RoleCitizen, nil, false)
	if err != nil {
		t.Fatalf("MapPins: %v", err)
	}
	// Duas solicitações, uma com tarefa gerada.
	if len(payload.Pins) != 3 {
		t.Errorf("cidadão deveria ver 3 pins, obteve %d", len(payload.Pins))
	}
	for _, pin := range payload.Pins {
		if pin.Category != "" {
			t.Error("pins de cidadão não levam categoria")
		}
	}

	payload, err = svc.MapPins(context.Background(), workerID, repo.RoleWorker, nil, false)
	if err != nil {
		t.Fatalf("MapPins: %v", err)
	}
	if len(payload.Pins) != 1 || payload.Pins[0].Type != "task" {
		t.Errorf("operário deveria ver 1 pin de tarefa, obteve %+v", payload.Pins)
	}
}

func TestGetDetail(t *testing.T) {
	stub := newStubRepo()
	svc := NewService(stub, nil, 0)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()
	stub.names[citizenID] = "Cidadã"
	stub.names[adminID] = "Admin"
	stub.names[workerID] = "Operário"

	taskID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)

	result, err := svc.Get(context.Background(), "task", taskID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	detail := result.(*TaskDetailPayload)
	if detail.Worker == nil || detail.Worker.Name != "Operário" {
		t.Error("worker ausente no detalhe")
	}
	if detail.TaskRequest.CitizenName != "Cidadã" {
		t.Errorf("citizen_name = %s", detail.TaskRequest.CitizenName)
	}

	if _, err := svc.Get(context.Background(), "unknown", taskID); !errors.Is(err, ErrInvalidType) {
		t.Errorf("tipo inválido deveria falhar com ErrInvalidType, obtido %v", err)
	}
	if _, err := svc.Get(context.Background(), "task", uuid.New()); !errors.Is(err, errNotFound) {
		t.Errorf("id inexistente deveria falhar com errNotFound, obtido %v", err)
	}
}
