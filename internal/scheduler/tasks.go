// Package scheduler runs the background work queue: the periodic
// spreadsheet sync and the form deadline sweep, both delivered through
// asynq on Redis.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSyncSheetsRun = "sync.sheets.run"

const TaskFormsExpireSweep = "forms.expire.sweep"

type SyncSheetsRunPayload struct {
	Trigger string `json:"trigger"`
}

func NewSyncSheetsRunTask(payload SyncSheetsRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncSheetsRun, data), nil
}

func ParseSyncSheetsRunPayload(task *asynq.Task) (SyncSheetsRunPayload, error) {
	var payload SyncSheetsRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncSheetsRunPayload{}, err
	}
	return payload, nil
}

func NewFormsExpireSweepTask() *asynq.Task {
	return asynq.NewTask(TaskFormsExpireSweep, nil)
}
