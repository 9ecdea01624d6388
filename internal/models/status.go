package models

import (
	"fmt"
	"strings"
)

// TaskStatus is the canonical lifecycle state of a task.
type TaskStatus string

// Task status constants
const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCanceled   TaskStatus = "canceled"
)

// AllStatuses lists the canonical statuses in lifecycle order.
var AllStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted, StatusCanceled}

// statusSynonyms maps every known label, localized or legacy, onto its canonical status.
var statusSynonyms = map[TaskStatus][]string{
	StatusPending:    {"pending", "PENDING", "Bekliyor"},
	StatusInProgress: {"in_progress", "in-progress", "IN_PROGRESS", "assigned", "ASSIGNED", "Devam Ediyor"},
	StatusCompleted:  {"completed", "COMPLETED", "Tamamlandı"},
	StatusCanceled:   {"canceled", "cancelled", "CANCELED", "CANCELLED", "İptal", "İptal Edildi"},
}

var statusLabels = map[TaskStatus]string{
	StatusPending:    "Bekliyor",
	StatusInProgress: "Devam Ediyor",
	StatusCompleted:  "Tamamlandı",
	StatusCanceled:   "İptal",
}

var statusLookup = func() map[string]TaskStatus {
	m := make(map[string]TaskStatus)
	for status, labels := range statusSynonyms {
		for _, label := range labels {
			m[foldLabel(label)] = status
		}
	}
	return m
}()

// ParseStatus normalizes any known status label to its canonical value.
func ParseStatus(s string) (TaskStatus, error) {
	if status, ok := statusLookup[foldLabel(s)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Synonyms returns every stored label that means s, canonical value first.
func (s TaskStatus) Synonyms() []string {
	return append([]string(nil), statusSynonyms[s]...)
}

// Label returns the localized display label.
func (s TaskStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsTerminal reports whether no further work is expected on the task.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// statusTransitions lists the statuses each status may move to. Canceled is terminal.
var statusTransitions = map[TaskStatus][]TaskStatus{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusCanceled},
	StatusInProgress: {StatusPending, StatusCompleted, StatusCanceled},
	StatusCompleted:  {StatusInProgress, StatusPending},
	StatusCanceled:   nil,
}

// CanTransitionTo reports whether a task in s may move to next. Staying put is
// always allowed, and a stored status outside the known set may move anywhere.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return true
	}
	allowed, known := statusTransitions[s]
	if !known {
		return true
	}
	for _, candidate := range allowed {
		if candidate == next {
			return true
		}
	}
	return false
}

// ActiveStatuses are the non-terminal statuses a worker can hold.
func ActiveStatuses() []TaskStatus {
	return []TaskStatus{StatusPending, StatusInProgress}
}

// StatusLabels expands a set of statuses into all of their stored labels.
func StatusLabels(statuses ...TaskStatus) []string {
	var out []string
	for _, s := range statuses {
		out = append(out, statusSynonyms[s]...)
	}
	return out
}

func foldLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "İ", "i")
	s = strings.ReplaceAll(s, "ı", "i")
	return strings.ToLower(s)
}
