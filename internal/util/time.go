package util

import "time"

// Now retorna horário corrente em UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Today retorna a data corrente (meia-noite UTC), usada nos campos de data das tarefas.
func Today() time.Time {
	return Now().Truncate(24 * time.Hour)
}
