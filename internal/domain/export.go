package domain

import (
	"strings"

	"github.com/google/uuid"
)

type ExportMode string

const (
	// ExportModeCurrentFolder - только текущая папка, путь всегда пустой
	ExportModeCurrentFolder ExportMode = "current"
	// ExportModeRecursive - текущая папка и все вложенные
	ExportModeRecursive ExportMode = "recursive"
	// ExportModeSelection - явный набор объектов, плоский архив
	ExportModeSelection ExportMode = "selection"
)

func (m ExportMode) Valid() bool {
	switch m {
	case ExportModeCurrentFolder, ExportModeRecursive, ExportModeSelection:
		return true
	}
	return false
}

// ExportFolder - посещенная при обходе папка
type ExportFolder struct {
	Path       string `json:"path"`
	PhotoCount int    `json:"photo_count"`
	FileCount  int    `json:"file_count"`
}

func (f ExportFolder) ItemCount() int {
	return f.PhotoCount + f.FileCount
}

type ExportItem struct {
	Object StoredObject `json:"object"`
	// Path - цепочка имен папок через "/", пустая для корня экспорта
	Path string `json:"path"`
}

// IsReservedName сообщает, что имя нельзя использовать как сегмент пути
func IsReservedName(name string) bool {
	return name == "" || name == "." || name == ".."
}

// EntryName - имя записи в архиве. Пустые сегменты и сегменты "." и ".."
// отбрасываются, запись всегда остается внутри архива.
func (i ExportItem) EntryName() string {
	segments := make([]string, 0, strings.Count(i.Path, "/")+2)
	for _, s := range strings.Split(i.Path, "/") {
		if !IsReservedName(s) {
			segments = append(segments, s)
		}
	}
	name := i.Object.Name
	if IsReservedName(name) {
		name = "_"
	}
	return strings.Join(append(segments, name), "/")
}

// ExportSelection - результат обхода поддерева, который вызывающий
// просматривает перед сборкой архива
type ExportSelection struct {
	Scope    Scope          `json:"scope"`
	RootID   *int64         `json:"root_id,omitempty"`
	RootName string         `json:"root_name"`
	Mode     ExportMode     `json:"mode"`
	Folders  []ExportFolder `json:"folders"`
	Items    []ExportItem   `json:"items"`
}

// Filter возвращает элементы, путь которых не входит в excluded.
// Сравнение точное: исключение "A" не затрагивает "A/B".
func (s *ExportSelection) Filter(excluded []string) []ExportItem {
	skip := make(map[string]struct{}, len(excluded))
	for _, p := range excluded {
		skip[p] = struct{}{}
	}
	items := make([]ExportItem, 0, len(s.Items))
	for _, item := range s.Items {
		if _, ok := skip[item.Path]; ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

type FailedItem struct {
	ObjectID uuid.UUID `json:"object_id"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Reason   string    `json:"reason"`
}

type ArchiveResult struct {
	Data      []byte       `json:"-"`
	Succeeded int          `json:"succeeded"`
	Failed    []FailedItem `json:"failed"`
}

// Progress - прогресс сборки архива; Total фиксируется на старте
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type ProgressFunc func(Progress)
