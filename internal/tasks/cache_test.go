package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cidadeativa/zeladoria/internal/repo"
)

type fakeRedis struct {
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

type citizenDashboardView struct {
	TotalApproved int `json:"total_approved"`
	ApprovedList  []struct {
		InitialDate *string `json:"initial_date"`
	} `json:"approved_list"`
}

func readCitizenDashboard(t *testing.T, svc *Service, citizenID uuid.UUID) citizenDashboardView {
	t.Helper()
	raw, err := svc.Dashboard(context.Background(), citizenID, repo.RoleCitizen)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	var view citizenDashboardView
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return view
}

func TestDashboardCacheHit(t *testing.T) {
	stub := newStubRepo()
	redisFake := newFakeRedis()
	svc := NewService(stub, redisFake, time.Minute)
	citizenID := uuid.New()

	seedRequest(t, svc, citizenID)
	first := readCitizenDashboard(t, svc, citizenID)

	key := dashboardKey(repo.RoleCitizen, citizenID)
	if _, ok := redisFake.values[key]; !ok {
		t.Fatal("painel deveria ter sido cacheado")
	}

	// Mutação direta no stub, sem invalidação: a leitura vem do cache.
	for _, tr := range stub.requests {
		tr.Status = RequestApproved
	}
	second := readCitizenDashboard(t, svc, citizenID)
	if second.TotalApproved != first.TotalApproved {
		t.Fatalf("leitura dentro do TTL deveria vir do cache, obtido %+v", second)
	}
}

func TestAdvanceTaskInvalidatesCitizenDashboard(t *testing.T) {
	stub := newStubRepo()
	redisFake := newFakeRedis()
	svc := NewService(stub, redisFake, time.Minute)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	taskID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)

	before := readCitizenDashboard(t, svc, citizenID)
	if len(before.ApprovedList) != 1 || before.ApprovedList[0].InitialDate != nil {
		t.Fatalf("painel inicial inesperado: %+v", before)
	}

	if _, err := svc.AdvanceTask(context.Background(), workerID, taskID, TaskInProgress); err != nil {
		t.Fatalf("AdvanceTask: %v", err)
	}

	// O início da tarefa grava initial_date, que o painel do cidadão embute;
	// a leitura seguinte não pode vir do cache anterior.
	after := readCitizenDashboard(t, svc, citizenID)
	if len(after.ApprovedList) != 1 || after.ApprovedList[0].InitialDate == nil {
		t.Fatalf("painel do cidadão ficou defasado após o início da tarefa: %+v", after)
	}
}

func TestResolveConclusionInvalidatesDashboards(t *testing.T) {
	stub := newStubRepo()
	redisFake := newFakeRedis()
	svc := NewService(stub, redisFake, time.Minute)
	citizenID, adminID, workerID := uuid.New(), uuid.New(), uuid.New()

	taskID := approveToTask(t, stub, svc, citizenID, adminID, &workerID)
	stub.tasks[taskID].Status = TaskApprovalRequested

	readCitizenDashboard(t, svc, citizenID)
	if _, err := svc.Dashboard(context.Background(), workerID, repo.RoleWorker); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if _, err := svc.Dashboard(context.Background(), adminID, repo.RoleAdmin); err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	if _, err := svc.AdminAction(context.Background(), adminID, AdminActionParams{Action: "approve_task", ID: taskID}); err != nil {
		t.Fatalf("AdminAction: %v", err)
	}

	for _, key := range []string{
		dashboardKey(repo.RoleCitizen, citizenID),
		dashboardKey(repo.RoleWorker, workerID),
		dashboardKeyAdmin,
	} {
		if _, ok := redisFake.values[key]; ok {
			t.Errorf("chave %s deveria ter sido invalidada", key)
		}
	}
}
