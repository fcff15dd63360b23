package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ItemResult - итог операции над одним объектом пакета
type ItemResult struct {
	ObjectID uuid.UUID  `json:"object_id"`
	Kind     ObjectKind `json:"kind"`
	OK       bool       `json:"ok"`
	Reason   string     `json:"reason,omitempty"`
}

// BatchResult - агрегированный итог пакетной операции.
// Items идут в порядке выбора.
type BatchResult struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

func (r *BatchResult) Add(item ItemResult) {
	if item.OK {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Items = append(r.Items, item)
}

// Summary формирует строку вида "moved N to trash, M failed".
// action содержит ровно один %d для числа успешных.
func (r *BatchResult) Summary(action string) string {
	s := fmt.Sprintf(action, r.Succeeded)
	if r.Failed == 0 {
		return s
	}
	return fmt.Sprintf("%s, %d failed", s, r.Failed)
}
