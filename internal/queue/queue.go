package queue

import (
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

func NewPublishTask(payload PublishPostPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, taskPayload), nil
}

func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReconcilePublish, taskPayload), nil
}

func EnqueuePublish(asynqClient *asynq.Client, payload PublishPostPayload, delay time.Duration) error {
	task, err := NewPublishTask(payload)
	if err != nil {
		return err
	}

	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	log.Printf("Publish task scheduled: %+v", payload)
	return nil
}

func EnqueueReconcile(asynqClient *asynq.Client, payload ReconcilePayload, delay time.Duration) error {
	task, err := NewReconcileTask(payload)
	if err != nil {
		return err
	}

	_, err = asynqClient.Enqueue(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	log.Printf("Reconcile task scheduled: %+v", payload)
	return nil
}
