package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type fakeSchedulerConfig struct {
	url   string
	queue string
}

func (c fakeSchedulerConfig) GetRedisURL() string       { return c.url }
func (c fakeSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c fakeSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(fakeSchedulerConfig{}); err == nil {
		t.Fatalf("expected an error without a redis url")
	}
}

func TestEnqueueSyncRunLandsOnTheQueue(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(fakeSchedulerConfig{url: "redis://" + mr.Addr(), queue: "portal"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if err := client.EnqueueSyncRun(context.Background(), "SCHEDULED"); err != nil {
		t.Fatalf("EnqueueSyncRun: %v", err)
	}

	found := false
	for _, key := range mr.Keys() {
		if strings.Contains(key, "portal") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected the task under the portal queue, got keys %v", mr.Keys())
	}
}

func TestSyncSheetsRunPayloadCarriesTheTrigger(t *testing.T) {
	task, err := NewSyncSheetsRunTask(SyncSheetsRunPayload{Trigger: "MANUAL"})
	if err != nil {
		t.Fatalf("NewSyncSheetsRunTask: %v", err)
	}
	payload, err := ParseSyncSheetsRunPayload(task)
	if err != nil {
		t.Fatalf("ParseSyncSheetsRunPayload: %v", err)
	}
	if payload.Trigger != "MANUAL" {
		t.Fatalf("expected trigger MANUAL, got %q", payload.Trigger)
	}
}
