package tasks

// Status de solicitações de serviço.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRefused  = "refused"
)

// Status de tarefas.
const (
	TaskInProgress         = "in_progress"
	TaskApprovalRequested  = "approval_requested"
	TaskApprovedConclusion = "approved_conclusion"
	TaskRefusedConclusion  = "refused_conclusion"
)

// workflow descreve uma máquina de estados de revisão: estado inicial e
// transições permitidas. Estados sem saída são terminais.
type workflow struct {
	initial     string
	transitions map[string][]string
}

func (w workflow) canTransition(from, to string) bool {
	for _, allowed := range w.transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (w workflow) isTerminal(state string) bool {
	return len(w.transitions[state]) == 0
}

// requestWorkflow: pending é inicial; approved e refused são terminais.
var requestWorkflow = workflow{
	initial: RequestPending,
	transitions: map[string][]string{
		RequestPending: {RequestApproved, RequestRefused},
	},
}

// taskWorkflow: in_progress é inicial; conclusões são terminais. Operários
// transitam apenas entre in_progress e approval_requested; as conclusões
// saem de approval_requested por decisão administrativa.
var taskWorkflow = workflow{
	initial: TaskInProgress,
	transitions: map[string][]string{
		TaskInProgress:        {TaskInProgress, TaskApprovalRequested},
		TaskApprovalRequested: {TaskInProgress, TaskApprovalRequested, TaskApprovedConclusion, TaskRefusedConclusion},
	},
}

// workerTaskStatuses são os únicos destinos que um operário pode requisitar.
var workerTaskStatuses = map[string]bool{
	TaskInProgress:        true,
	TaskApprovalRequested: true,
}
